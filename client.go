package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/atomic"

	"github.com/khlpkg/gateway/encoding"
	"github.com/khlpkg/gateway/event"
	"github.com/khlpkg/gateway/signal"
	"github.com/khlpkg/gateway/statuscode"
)

func NewClient(options ...Option) (*Client, error) {
	client := &Client{
		active:     true,
		compressed: true,
		classifier: &Classifier{},
	}

	for i := range options {
		if err := options[i](client); err != nil {
			return nil, err
		}
	}

	if client.botToken == "" {
		return nil, ErrMissingCredential
	}
	if client.logger == nil {
		client.logger = &nopLogger{}
	}

	client.classifier.logger = client.logger
	client.classifier.roles = client.roles
	return client, nil
}

// Client holds the protocol state of one gateway session. The session id and the last
// acknowledged sequence number survive reconnects, everything connection bound lives in
// the socket runtime.
type Client struct {
	botToken   string
	active     bool
	compressed bool

	classifier *Classifier
	dispatcher Dispatcher
	roles      RoleProvider
	logger     Logger

	sequenceNumber atomic.Int64
	sessionID      atomic.String
	state          atomic.Int32
}

func (c *Client) BotToken() string {
	return c.botToken
}

// Active is false when the bot has been disabled through configuration.
func (c *Client) Active() bool {
	return c.active
}

// Compressed reports whether frames are zlib compressed.
func (c *Client) Compressed() bool {
	return c.compressed
}

func (c *Client) MentionRequired() bool {
	return c.classifier.mentionRequired
}

func (c *Client) Logger() Logger {
	return c.logger
}

func (c *Client) SetIdentity(identity Identity) {
	c.classifier.SetIdentity(identity)
}

func (c *Client) Identity() Identity {
	return c.classifier.Identity()
}

func (c *Client) SessionID() string {
	return c.sessionID.Load()
}

func (c *Client) SequenceNumber() int64 {
	return c.sequenceNumber.Load()
}

// ResumeDetails returns the session id and sequence number to resume from. ok is false
// when a fresh session must be created.
func (c *Client) ResumeDetails() (sessionID string, sequence int64, ok bool) {
	sessionID = c.sessionID.Load()
	sequence = c.sequenceNumber.Load()
	return sessionID, sequence, sessionID != "" && sequence > 0
}

// InvalidateSession forgets the session id and the sequence number. The gateway starts a
// new sequence space for the next session.
func (c *Client) InvalidateSession() {
	c.sessionID.Store("")
	c.sequenceNumber.Store(0)
}

func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Client) SetState(state ConnState) {
	previous := ConnState(c.state.Swap(int32(state)))
	if previous != state {
		c.logger.Debug("state transition: %s => %s", previous, state)
	}
}

// Process handles one decoded envelope: control signals, the sequence gate, classification
// and dispatch.
func (c *Client) Process(ctx context.Context, envelope *Envelope) error {
	dispatchable, err := c.Observe(envelope)
	if err != nil || !dispatchable {
		return err
	}
	return c.HandleData(ctx, envelope)
}

// Observe reacts to control signals and advances the sequence number of DATA envelopes.
// It reports whether the envelope should be classified and dispatched. Observe must be
// called in receive order.
func (c *Client) Observe(envelope *Envelope) (dispatchable bool, err error) {
	switch envelope.Signal {
	case signal.Data:
		seq, ok := envelope.Seq()
		if !ok {
			return true, nil
		}
		if !c.advance(seq) {
			c.logger.Debug("dropping data with outdated sequence number %d, last is %d", seq, c.sequenceNumber.Load())
			return false, nil
		}
		return true, nil
	case signal.Hello:
		var hello Hello
		if err := encoding.Unmarshal(envelope.Data, &hello); err != nil {
			return false, &MalformedFrameError{Size: len(envelope.Data), Err: fmt.Errorf("unable to unmarshal hello. %w", err)}
		}
		if hello.Code != statuscode.OK {
			if !statuscode.CanResume(hello.Code) {
				c.InvalidateSession()
			}
			return false, &GatewayError{Signal: signal.Hello, Code: hello.Code, Reason: hello.Code.String()}
		}
		if hello.SessionID != "" {
			c.sessionID.Store(hello.SessionID)
		}
		c.SetState(Active)
		c.logger.Info("gateway said hello, session %s", hello.SessionID)
	case signal.Pong:
		c.logger.Debug("received pong")
	case signal.ResumeACK:
		var ack ResumeACK
		if err := encoding.Unmarshal(envelope.Data, &ack); err != nil {
			return false, &MalformedFrameError{Size: len(envelope.Data), Err: fmt.Errorf("unable to unmarshal resume ack. %w", err)}
		}
		if ack.SessionID != "" {
			c.sessionID.Store(ack.SessionID)
		}
		c.logger.Info("session %s resumed from sequence number %d", ack.SessionID, c.sequenceNumber.Load())
	case signal.Reconnect:
		var reconnect Reconnect
		_ = encoding.Unmarshal(envelope.Data, &reconnect)
		c.InvalidateSession()

		reason := reconnect.Err
		if reason == "" {
			reason = reconnect.Code.String()
		}
		return false, &GatewayError{Signal: signal.Reconnect, Code: reconnect.Code, Reason: reason}
	case signal.Ping, signal.Resume:
		c.logger.Debug("ignoring client signal %s sent by the gateway", envelope.Signal)
	default:
		return false, &UnrecognizedDiscriminatorError{Field: "s", Value: envelope.Signal.String()}
	}
	return false, nil
}

// advance moves the sequence number forward. A sequence number at or below the last one is
// a duplicate, unless nothing has been seen yet.
func (c *Client) advance(seq int64) bool {
	for {
		last := c.sequenceNumber.Load()
		if last > 0 && seq <= last {
			return false
		}
		if c.sequenceNumber.CompareAndSwap(last, seq) {
			return true
		}
	}
}

// HandleData classifies a DATA envelope and hands the event to the dispatcher.
func (c *Client) HandleData(ctx context.Context, envelope *Envelope) error {
	evt, err := c.classifier.Classify(ctx, envelope)
	if err != nil {
		return err
	}
	return c.dispatch(ctx, evt)
}

func (c *Client) dispatch(ctx context.Context, evt event.Event) (err error) {
	if c.dispatcher == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &HandlerFaultError{Kind: evt.Kind(), Err: fmt.Errorf("recovered from panic: %v", r)}
		}
	}()

	handled, err := c.dispatcher.Dispatch(ctx, evt)
	if err != nil {
		return &HandlerFaultError{Kind: evt.Kind(), Err: err}
	}
	if !handled {
		c.logger.Debug("no handler consumed %s", evt.Kind())
	}
	return nil
}

// Heartbeat writes a PING carrying the last sequence number.
func (c *Client) Heartbeat(pipe io.Writer) error {
	return c.write(pipe, signal.Ping, &heartbeat{
		Signal:   signal.Ping,
		Sequence: c.sequenceNumber.Load(),
	})
}

func (c *Client) write(pipe io.Writer, s signal.Type, payload interface{}) error {
	if !s.Send() {
		return errors.New("signal " + s.String() + " can not be sent by a client")
	}

	data, err := encoding.Marshal(payload)
	if err != nil {
		return fmt.Errorf("unable to marshal %s payload. %w", s, err)
	}

	_, err = pipe.Write(data)
	return err
}

// IsFailure reports whether an error returned from Process counts towards the consecutive
// failure limit of a connection.
func IsFailure(err error) bool {
	if err == nil {
		return false
	}
	var gatewayErr *GatewayError
	return !errors.Is(err, ErrFiltered) &&
		!errors.Is(err, ErrUnrecognizedDiscriminator) &&
		!errors.As(err, &gatewayErr)
}
