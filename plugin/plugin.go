// Package plugin dispatches classified events through an ordered list of handlers.
package plugin

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/khlpkg/gateway"
	"github.com/khlpkg/gateway/event"
	"github.com/khlpkg/gateway/internal/util"
)

const tracerName = "github.com/khlpkg/gateway/plugin"

// Handler consumes events. Returning true stops the chain.
type Handler interface {
	Name() string
	Handle(ctx context.Context, evt event.Event) (handled bool, err error)
}

// KindFilter is implemented by handlers that only accept some event kinds.
type KindFilter interface {
	Kinds() []event.Kind
}

type handlerFunc struct {
	name  string
	fn    func(ctx context.Context, evt event.Event) (bool, error)
	kinds []event.Kind
}

func (h *handlerFunc) Name() string {
	return h.name
}

func (h *handlerFunc) Handle(ctx context.Context, evt event.Event) (bool, error) {
	return h.fn(ctx, evt)
}

func (h *handlerFunc) Kinds() []event.Kind {
	return h.kinds
}

// On creates a handler from a function. Without kinds it receives every event.
func On(name string, fn func(ctx context.Context, evt event.Event) (bool, error), kinds ...event.Kind) Handler {
	return &handlerFunc{name: name, fn: fn, kinds: kinds}
}

type Option func(chain *Chain)

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(chain *Chain) {
		chain.tracer = provider.Tracer(tracerName)
	}
}

func WithLogger(logger gateway.Logger) Option {
	return func(chain *Chain) {
		chain.logger = logger
	}
}

type entry struct {
	handler Handler
	kinds   util.Set[event.Kind]
}

func (e *entry) accepts(kind event.Kind) bool {
	return e.kinds == nil || e.kinds.Contains(kind)
}

// Chain runs handlers in registration order until one reports the event as handled or
// fails.
type Chain struct {
	entries []entry
	tracer  trace.Tracer
	logger  gateway.Logger
}

var _ gateway.Dispatcher = (*Chain)(nil)

func NewChain(handlers []Handler, options ...Option) *Chain {
	chain := &Chain{}
	for _, handler := range handlers {
		e := entry{handler: handler}
		if filter, ok := handler.(KindFilter); ok && len(filter.Kinds()) > 0 {
			e.kinds = util.NewSet(filter.Kinds()...)
		}
		chain.entries = append(chain.entries, e)
	}

	for _, option := range options {
		option(chain)
	}
	if chain.tracer == nil {
		chain.tracer = otel.Tracer(tracerName)
	}
	if chain.logger == nil {
		chain.logger = gateway.NopLogger()
	}
	return chain
}

func (c *Chain) Len() int {
	return len(c.entries)
}

func (c *Chain) Dispatch(ctx context.Context, evt event.Event) (bool, error) {
	kind := evt.Kind()
	ctx, span := c.tracer.Start(ctx, "plugin.dispatch", trace.WithAttributes(
		attribute.String("event.kind", kind.String()),
		attribute.Int64("event.sn", evt.Base().Sequence),
	))
	defer span.End()

	for i := range c.entries {
		e := &c.entries[i]
		if !e.accepts(kind) {
			continue
		}

		handled, err := c.handle(ctx, e.handler, evt)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return false, fmt.Errorf("plugin %s: %w", e.handler.Name(), err)
		}
		if handled {
			c.logger.Debug("%s handled by %s", kind, e.handler.Name())
			span.SetAttributes(attribute.String("plugin.handled_by", e.handler.Name()))
			span.SetStatus(codes.Ok, "")
			return true, nil
		}
	}

	span.SetStatus(codes.Ok, "")
	return false, nil
}

func (c *Chain) handle(ctx context.Context, handler Handler, evt event.Event) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "plugin.handle", trace.WithAttributes(
		attribute.String("plugin.name", handler.Name()),
	))
	defer span.End()

	handled, err := handler.Handle(ctx, evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return handled, err
}
