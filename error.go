package gateway

import (
	"errors"
	"fmt"

	"github.com/khlpkg/gateway/event"
	"github.com/khlpkg/gateway/signal"
	"github.com/khlpkg/gateway/statuscode"
)

var (
	ErrMissingCredential         = errors.New("missing bot token")
	ErrEndpointUnavailable       = errors.New("gateway endpoint unavailable")
	ErrHandshakeTimeout          = errors.New("gateway did not say hello in time")
	ErrHeartbeatTimeout          = errors.New("gateway did not answer the heartbeat in time")
	ErrMalformedFrame            = errors.New("malformed frame")
	ErrUnrecognizedDiscriminator = errors.New("unrecognized discriminator")
	ErrFiltered                  = errors.New("event filtered")
	ErrConsecutiveFailures       = errors.New("too many consecutive frame failures")
)

type MalformedFrameError struct {
	Size int
	Err  error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame of %d bytes: %s", e.Size, e.Err)
}

func (e *MalformedFrameError) Unwrap() error {
	return e.Err
}

func (e *MalformedFrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

type UnrecognizedDiscriminatorError struct {
	Field string
	Value string
}

func (e *UnrecognizedDiscriminatorError) Error() string {
	return fmt.Sprintf("unrecognized %s: %q", e.Field, e.Value)
}

func (e *UnrecognizedDiscriminatorError) Is(target error) bool {
	return target == ErrUnrecognizedDiscriminator
}

// HandlerFaultError wraps failures and panics raised by the dispatcher.
type HandlerFaultError struct {
	Kind event.Kind
	Err  error
}

func (e *HandlerFaultError) Error() string {
	return fmt.Sprintf("handler failed on %s: %s", e.Kind, e.Err)
}

func (e *HandlerFaultError) Unwrap() error {
	return e.Err
}

// GatewayError is a failure reported by the gateway through a HELLO or RECONNECT signal.
type GatewayError struct {
	Signal signal.Type
	Code   statuscode.Type
	Reason string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("[%s | %d]: %s", e.Signal, e.Code, e.Reason)
}

// CanResume reports whether the session may be resumed on the next connection.
func (e *GatewayError) CanResume() bool {
	return e.Signal != signal.Reconnect && statuscode.CanResume(e.Code)
}
