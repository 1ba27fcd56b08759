package gatewayutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/khlpkg/gateway"
	"github.com/khlpkg/gateway/closecode"
	"github.com/khlpkg/gateway/errorrate"
	"github.com/khlpkg/gateway/signal"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultHeartbeatTimeout  = 6 * time.Second
	DefaultHelloTimeout      = 6 * time.Second
	DefaultReconnectDelay    = 3 * time.Second
	DefaultCloseWait         = 2 * time.Second
	DefaultMaxFailures       = 2
	DefaultQueueSize         = 64
)

type SessionOption func(s *Session)

func WithEndpointResolver(resolver gateway.EndpointResolver) SessionOption {
	return func(s *Session) {
		s.endpoints = resolver
	}
}

func WithIdentityResolver(resolver gateway.IdentityResolver) SessionOption {
	return func(s *Session) {
		s.identities = resolver
	}
}

func WithDialer(dialer Dialer) SessionOption {
	return func(s *Session) {
		s.dialer = dialer
	}
}

// WithDialRateLimiter spaces out dial attempts.
func WithDialRateLimiter(limiter gateway.RateLimiter) SessionOption {
	return func(s *Session) {
		s.dialLimiter = limiter
	}
}

// WithErrorRateMonitor replaces the monitor that paces the bootstrap retries.
func WithErrorRateMonitor(monitor *errorrate.Monitor) SessionOption {
	return func(s *Session) {
		s.monitor = monitor
	}
}

func WithHeartbeat(interval, timeout time.Duration) SessionOption {
	return func(s *Session) {
		s.heartbeatInterval = interval
		s.heartbeatTimeout = timeout
	}
}

func WithHelloTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		s.helloTimeout = timeout
	}
}

func WithReconnectDelay(delay time.Duration) SessionOption {
	return func(s *Session) {
		s.reconnectDelay = delay
	}
}

// WithCloseWait bounds how long a cancelled read may block before the connection is
// force-closed.
func WithCloseWait(wait time.Duration) SessionOption {
	return func(s *Session) {
		s.closeWait = wait
	}
}

// WithDispatchWorkers hands DATA envelopes to n workers instead of handling them on the
// receive loop. Envelopes of one guild are always handled by the same worker, in order.
func WithDispatchWorkers(n int) SessionOption {
	return func(s *Session) {
		s.workers = n
	}
}

func NewSession(client *gateway.Client, options ...SessionOption) (*Session, error) {
	if client == nil || client.BotToken() == "" {
		return nil, gateway.ErrMissingCredential
	}

	s := &Session{
		client:            client,
		logger:            client.Logger(),
		heartbeatInterval: DefaultHeartbeatInterval,
		heartbeatTimeout:  DefaultHeartbeatTimeout,
		helloTimeout:      DefaultHelloTimeout,
		reconnectDelay:    DefaultReconnectDelay,
		closeWait:         DefaultCloseWait,
		maxFailures:       DefaultMaxFailures,
	}
	for _, option := range options {
		option(s)
	}

	if s.endpoints == nil {
		return nil, errors.New("missing endpoint resolver - try 'rest.New(token)'")
	}
	if s.dialer == nil {
		s.dialer = &WebsocketDialer{}
	}
	if s.monitor == nil {
		s.monitor = errorrate.New(errorrate.WithLogger(s.logger))
	}
	if s.workers < 0 {
		return nil, errors.New("dispatch workers can not be negative")
	}
	if client.MentionRequired() && client.Identity().ID == "" && s.identities == nil {
		return nil, errors.New("mention is required but the bot identity is unknown - set gateway.WithIdentity or WithIdentityResolver")
	}
	return s, nil
}

// Session keeps one gateway connection alive: it bootstraps, listens, and reconnects until
// its context is cancelled.
type Session struct {
	client      *gateway.Client
	endpoints   gateway.EndpointResolver
	identities  gateway.IdentityResolver
	dialer      Dialer
	dialLimiter gateway.RateLimiter
	monitor     *errorrate.Monitor
	logger      gateway.Logger

	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	helloTimeout      time.Duration
	reconnectDelay    time.Duration
	closeWait         time.Duration
	maxFailures       int32
	workers           int

	pool *pool
}

func (s *Session) State() gateway.ConnState {
	return s.client.State()
}

// Run blocks until ctx is cancelled and returns the cancellation cause. A disabled client
// returns nil right away.
func (s *Session) Run(ctx context.Context) error {
	if !s.client.Active() {
		s.logger.Warn("bot is disabled by configuration, not connecting")
		return nil
	}
	defer s.client.SetState(gateway.Disconnected)

	if s.workers > 0 {
		s.pool = newPool(ctx, s.workers, DefaultQueueSize, s.client.HandleData)
		defer s.pool.stop()
	}

	conn, err := s.bootstrap(ctx)
	if err != nil {
		return err
	}

	for {
		err := s.listen(ctx, conn)
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		s.logger.Warn("connection lost, reconnecting in %s. %s", s.reconnectDelay, err)

		for conn = nil; conn == nil; {
			if err := sleep(ctx, s.reconnectDelay); err != nil {
				return err
			}
			if conn, err = s.connect(ctx); err != nil {
				if ctx.Err() != nil {
					return context.Cause(ctx)
				}
				s.logger.Error("unable to reconnect. %s", err)
				s.client.SetState(gateway.Reconnecting)
			}
		}
	}
}

// bootstrap retries until the first connection is established, backing off as the
// failure rate climbs.
func (s *Session) bootstrap(ctx context.Context) (Conn, error) {
	if err := s.monitor.Start(); err != nil {
		return nil, fmt.Errorf("unable to start error rate monitor. %w", err)
	}
	defer s.monitor.Stop()

	for {
		conn, err := s.identifyAndConnect(ctx)
		if err == nil {
			s.monitor.Reset()
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}

		s.monitor.AddError()
		delay := s.monitor.Backoff()
		s.logger.Error("unable to connect to the gateway, retrying in %s. %s", delay, err)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (s *Session) identifyAndConnect(ctx context.Context) (Conn, error) {
	if s.identities != nil && s.client.Identity().ID == "" {
		me, err := s.identities.Me(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to look up bot identity. %w", err)
		}
		s.client.SetIdentity(me)
		s.logger.Info("bot identity is %s (%s)", me.ID, me.DisplayName())
	}
	return s.connect(ctx)
}

// connect resolves the gateway url, dials and waits for HELLO.
func (s *Session) connect(ctx context.Context) (Conn, error) {
	s.client.SetState(gateway.Connecting)

	if s.dialLimiter != nil {
		if err := gateway.WaitFor(ctx, s.dialLimiter); err != nil {
			return nil, err
		}
	}

	URLString, err := s.endpoints.GatewayURL(ctx, s.client.Compressed())
	if err != nil {
		if !errors.Is(err, gateway.ErrEndpointUnavailable) {
			err = fmt.Errorf("%w: %s", gateway.ErrEndpointUnavailable, err)
		}
		return nil, err
	}
	dialURL, err := ValidateDialURL(URLString, s.client.Compressed())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", gateway.ErrEndpointUnavailable, err)
	}
	if sessionID, seq, ok := s.client.ResumeDetails(); ok {
		if dialURL, err = ResumeURL(dialURL, sessionID, seq); err != nil {
			return nil, err
		}
		s.logger.Info("resuming session %s from sequence number %d", sessionID, seq)
	} else if s.client.SequenceNumber() > 0 || s.client.SessionID() != "" {
		// a fresh session numbers its frames from 1 again
		s.logger.Info("session can not be resumed, starting a new one")
		s.client.InvalidateSession()
	}

	conn, err := s.dialer.Dial(ctx, dialURL)
	if err != nil {
		s.client.SetState(gateway.Disconnected)
		return nil, fmt.Errorf("unable to dial gateway. %w", err)
	}

	s.client.SetState(gateway.AwaitingHello)
	if err := s.awaitHello(ctx, conn); err != nil {
		code := closecode.HandshakeTimeout
		var gatewayErr *gateway.GatewayError
		if errors.As(err, &gatewayErr) {
			code = closecode.GatewayRequested
		}
		_ = conn.WriteClose(code, "")
		_ = conn.Close()
		s.client.SetState(gateway.Disconnected)
		return nil, err
	}
	return conn, nil
}

func (s *Session) awaitHello(ctx context.Context, conn Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(s.helloTimeout)); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			if isTimeout(err) {
				return gateway.ErrHandshakeTimeout
			}
			return fmt.Errorf("connection lost while waiting for hello. %w", err)
		}

		envelope, err := gateway.DecodeFrame(frame.Data, frame.Binary && s.client.Compressed())
		if err != nil {
			return err
		}
		if envelope.Signal != signal.Hello {
			s.logger.Debug("ignoring %s before hello", envelope.Signal)
			continue
		}
		if _, err := s.client.Observe(envelope); err != nil {
			return err
		}
		return conn.SetReadDeadline(time.Time{})
	}
}

type attempt struct {
	failures atomic.Int32
	cancel   context.CancelCauseFunc
}

// listen runs the heartbeat and the receive loop on an established connection until either
// fails, then tears the connection down.
func (s *Session) listen(ctx context.Context, conn Conn) error {
	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	a := &attempt{cancel: cancel}

	h := newHeart(s, conn, cancel)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.pulse(attemptCtx)
	}()

	readerDone := make(chan struct{})
	stop := context.AfterFunc(attemptCtx, func() {
		_ = conn.SetReadDeadline(time.Now())
		select {
		case <-readerDone:
		case <-time.After(s.closeWait):
			s.logger.Warn("reader did not stop within %s, closing the connection", s.closeWait)
			_ = conn.Close()
		}
	})

	err := s.receive(attemptCtx, conn, h, a)
	close(readerDone)
	stop()
	cancel(err)
	wg.Wait()

	code := closecode.ClientReconnecting
	var gatewayErr *gateway.GatewayError
	switch {
	case ctx.Err() != nil:
		code = closecode.Normal
	case errors.Is(err, gateway.ErrHeartbeatTimeout):
		code = closecode.HeartbeatTimeout
	case errors.Is(err, gateway.ErrConsecutiveFailures):
		code = closecode.ConsecutiveFailures
	case errors.As(err, &gatewayErr):
		code = closecode.GatewayRequested
	}
	_ = conn.WriteClose(code, "")
	_ = conn.Close()
	if ctx.Err() != nil {
		s.client.SetState(gateway.Disconnected)
	} else {
		s.client.SetState(gateway.Reconnecting)
	}
	if !closecode.CanResumeAfter(code) {
		s.client.InvalidateSession()
	}

	return err
}

func (s *Session) receive(ctx context.Context, conn Conn, h *heart, a *attempt) error {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if cause := context.Cause(ctx); cause != nil {
				return cause
			}
			return fmt.Errorf("read failed. %w", err)
		}

		envelope, err := gateway.DecodeFrame(frame.Data, frame.Binary && s.client.Compressed())
		if err == nil {
			if envelope.Signal == signal.Pong {
				h.ack()
			}
			err = s.process(ctx, envelope, a)
		}

		var gatewayErr *gateway.GatewayError
		if errors.As(err, &gatewayErr) {
			s.logger.Warn("gateway requested a reconnect. %s", err)
			return err
		}
		if escalation := s.report(a, err); escalation != nil {
			return escalation
		}
	}
}

func (s *Session) process(ctx context.Context, envelope *gateway.Envelope, a *attempt) error {
	if s.pool == nil {
		return s.client.Process(ctx, envelope)
	}

	dispatchable, err := s.client.Observe(envelope)
	if err != nil || !dispatchable {
		return err
	}
	return s.pool.submit(ctx, task{
		envelope: envelope,
		done: func(err error) {
			if escalation := s.report(a, err); escalation != nil {
				a.cancel(escalation)
			}
		},
	})
}

// report counts consecutive failures of an attempt and returns an error once the limit is
// reached.
func (s *Session) report(a *attempt, err error) error {
	if !gateway.IsFailure(err) {
		if err != nil {
			s.logger.Debug("dropped frame. %s", err)
		}
		a.failures.Store(0)
		return nil
	}

	failures := a.failures.Inc()
	s.logger.Error("unable to process frame (%d in a row). %s", failures, err)
	if failures >= s.maxFailures {
		return fmt.Errorf("%w: %s", gateway.ErrConsecutiveFailures, err)
	}
	return nil
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}
