// Package rest talks to the http api for everything the gateway session needs before and
// besides the websocket: the gateway url, the bot identity and guild role lists.
package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/khlpkg/gateway"
	"github.com/khlpkg/gateway/encoding"
	"github.com/khlpkg/gateway/event"
)

const (
	DefaultBaseURL = "https://www.kookapp.cn/api/v3/"

	defaultTimeout          = 10 * time.Second
	defaultBreakerFailures  = uint32(5)
	defaultBreakerOpenDelay = 30 * time.Second
	defaultPageSize         = 50
)

type Option func(client *Client)

func WithBaseURL(baseURL string) Option {
	return func(client *Client) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		client.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.http = httpClient
	}
}

func WithRateLimiter(limiter gateway.RateLimiter) Option {
	return func(client *Client) {
		client.limiter = limiter
	}
}

// WithBreaker opens the circuit after the given number of consecutive failures, for the
// given duration.
func WithBreaker(maxFailures uint32, openFor time.Duration) Option {
	return func(client *Client) {
		client.breakerFailures = maxFailures
		client.breakerOpenFor = openFor
	}
}

func WithLogger(logger gateway.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

func New(botToken string, options ...Option) (*Client, error) {
	if botToken == "" {
		return nil, gateway.ErrMissingCredential
	}

	client := &Client{
		botToken:        botToken,
		baseURL:         DefaultBaseURL,
		http:            &http.Client{Timeout: defaultTimeout},
		breakerFailures: defaultBreakerFailures,
		breakerOpenFor:  defaultBreakerOpenDelay,
	}
	for _, option := range options {
		option(client)
	}
	if client.logger == nil {
		client.logger = gateway.NopLogger()
	}

	logger := client.logger
	maxFailures := client.breakerFailures
	client.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "rest",
		MaxRequests: 1,
		Timeout:     client.breakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s => %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			var statusErr *statusError
			if errors.As(err, &statusErr) {
				return statusErr.status < http.StatusInternalServerError
			}
			return err == nil
		},
	})
	return client, nil
}

// Client implements the endpoint, identity and role lookups. Calls pass the rate limiter
// first and then the circuit breaker.
type Client struct {
	botToken string
	baseURL  string
	http     *http.Client
	limiter  gateway.RateLimiter
	logger   gateway.Logger

	breakerFailures uint32
	breakerOpenFor  time.Duration
	breaker         *gobreaker.CircuitBreaker[[]byte]
}

var _ gateway.EndpointResolver = (*Client)(nil)
var _ gateway.IdentityResolver = (*Client)(nil)

// APIError is a response with a non zero code.
type APIError struct {
	Path    string
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s responded %d (code %d): %s", e.Path, e.Status, e.Code, e.Message)
}

type response struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    encoding.RawMessage `json:"data"`
}

type statusError struct {
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.status)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if c.limiter != nil {
		if err := gateway.WaitFor(ctx, c.limiter); err != nil {
			return err
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	status := http.StatusOK
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint)
	})
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		status, body, err = statusErr.status, statusErr.body, nil
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s circuit open: %w", path, err)
		}
		return err
	}

	var resp response
	if err := encoding.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("unable to unmarshal %s response (status %d). %w", path, status, err)
	}
	if resp.Code != 0 || status >= http.StatusBadRequest {
		return &APIError{Path: path, Status: status, Code: resp.Code, Message: resp.Message}
	}
	if out == nil {
		return nil
	}
	if err := encoding.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("unable to unmarshal %s data. %w", path, err)
	}
	return nil
}

// do performs the request. Server errors are returned as errors so they count against the
// breaker, client errors are returned as a *statusError which does not.
func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+c.botToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%s: %w", endpoint, &statusError{status: resp.StatusCode, body: body})
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &statusError{status: resp.StatusCode, body: body}
	}
	return body, nil
}

// GatewayURL looks up the websocket url. Every failure matches gateway.ErrEndpointUnavailable.
func (c *Client) GatewayURL(ctx context.Context, compress bool) (string, error) {
	query := url.Values{}
	if compress {
		query.Set("compress", "1")
	} else {
		query.Set("compress", "0")
	}

	var data struct {
		URL string `json:"url"`
	}
	if err := c.get(ctx, "gateway/index", query, &data); err != nil {
		return "", fmt.Errorf("%w: %s", gateway.ErrEndpointUnavailable, err)
	}
	if data.URL == "" {
		return "", fmt.Errorf("%w: response did not contain a url", gateway.ErrEndpointUnavailable)
	}
	return data.URL, nil
}

// Me looks up the account of the bot token.
func (c *Client) Me(ctx context.Context) (gateway.Identity, error) {
	var me gateway.Identity
	if err := c.get(ctx, "user/me", nil, &me); err != nil {
		return gateway.Identity{}, err
	}
	if me.ID == "" {
		return gateway.Identity{}, errors.New("user/me did not contain an id")
	}
	return me, nil
}

type page struct {
	Items []event.Role `json:"items"`
	Meta  struct {
		Page      int `json:"page"`
		PageTotal int `json:"page_total"`
		PageSize  int `json:"page_size"`
		Total     int `json:"total"`
	} `json:"meta"`
}

// GuildRoles fetches every page of the role list of a guild.
func (c *Client) GuildRoles(ctx context.Context, guildID string) ([]event.Role, error) {
	var roles []event.Role
	for current := 1; ; current++ {
		query := url.Values{}
		query.Set("guild_id", guildID)
		query.Set("page", strconv.Itoa(current))
		query.Set("page_size", strconv.Itoa(defaultPageSize))

		var p page
		if err := c.get(ctx, "guild-role/list", query, &p); err != nil {
			return nil, err
		}
		roles = append(roles, p.Items...)

		if current >= p.Meta.PageTotal || len(p.Items) == 0 {
			break
		}
	}

	if roles == nil {
		roles = []event.Role{}
	}
	return roles, nil
}
