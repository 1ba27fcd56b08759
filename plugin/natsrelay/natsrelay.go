// Package natsrelay forwards classified events to NATS, so processes without a gateway
// connection can consume them.
package natsrelay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/khlpkg/gateway/encoding"
	"github.com/khlpkg/gateway/event"
	"github.com/khlpkg/gateway/plugin"
)

const (
	DefaultSubjectPrefix = "khl.events"

	HeaderKind     = "Khl-Kind"
	HeaderSequence = "Khl-Sn"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

type Option func(relay *Relay)

func WithSubjectPrefix(prefix string) Option {
	return func(relay *Relay) {
		relay.prefix = strings.TrimSuffix(prefix, ".")
	}
}

// WithKinds limits the relay to the given kinds.
func WithKinds(kinds ...event.Kind) Option {
	return func(relay *Relay) {
		relay.kinds = kinds
	}
}

func New(publisher Publisher, options ...Option) *Relay {
	relay := &Relay{
		publisher: publisher,
		prefix:    DefaultSubjectPrefix,
	}
	for _, option := range options {
		option(relay)
	}
	return relay
}

// Relay publishes every event it receives and never reports it as handled, the rest of
// the chain still runs.
type Relay struct {
	publisher Publisher
	prefix    string
	kinds     []event.Kind
}

var _ plugin.Handler = (*Relay)(nil)
var _ plugin.KindFilter = (*Relay)(nil)

func (r *Relay) Name() string {
	return "natsrelay"
}

func (r *Relay) Kinds() []event.Kind {
	return r.kinds
}

// Subject for a kind, "GROUP/SYSTEM/added_role" becomes "<prefix>.group.system.added_role".
func (r *Relay) Subject(kind event.Kind) string {
	return r.prefix + "." + strings.ToLower(strings.ReplaceAll(kind.String(), "/", "."))
}

func (r *Relay) Handle(_ context.Context, evt event.Event) (bool, error) {
	data, err := encoding.Marshal(evt)
	if err != nil {
		return false, fmt.Errorf("unable to marshal %s. %w", evt.Kind(), err)
	}

	msg := nats.NewMsg(r.Subject(evt.Kind()))
	msg.Data = data
	msg.Header.Set(HeaderKind, evt.Kind().String())
	msg.Header.Set(HeaderSequence, strconv.FormatInt(evt.Base().Sequence, 10))
	if id := evt.Base().MsgID; id != "" {
		msg.Header.Set(nats.MsgIdHdr, id)
	}

	if err := r.publisher.PublishMsg(msg); err != nil {
		return false, fmt.Errorf("publish failed: %w", err)
	}
	return false, nil
}

// Dial connects to the NATS servers in url, a comma separated list.
func Dial(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
}
