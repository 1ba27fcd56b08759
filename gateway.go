package gateway

import (
	"context"
	"fmt"

	"github.com/khlpkg/gateway/encoding"
	"github.com/khlpkg/gateway/event"
	"github.com/khlpkg/gateway/signal"
	"github.com/khlpkg/gateway/statuscode"
)

type RawMessage = encoding.RawMessage

// Envelope is the outer structure of every gateway frame.
type Envelope struct {
	Signal   signal.Type `json:"s"`
	Data     RawMessage  `json:"d,omitempty"`
	Sequence *int64      `json:"sn,omitempty"`
}

func (e *Envelope) String() string {
	if e.Sequence == nil {
		return fmt.Sprintf("{\"s\":%d,\"d\":%s}", e.Signal, string(e.Data))
	}
	return fmt.Sprintf("{\"s\":%d,\"d\":%s,\"sn\":%d}", e.Signal, string(e.Data), *e.Sequence)
}

// Seq returns the sequence number, if the envelope carried one.
func (e *Envelope) Seq() (int64, bool) {
	if e.Sequence == nil {
		return 0, false
	}
	return *e.Sequence, true
}

type Hello struct {
	Code      statuscode.Type `json:"code"`
	SessionID string          `json:"session_id"`
}

type Reconnect struct {
	Code statuscode.Type `json:"code"`
	Err  string          `json:"err"`
}

type ResumeACK struct {
	SessionID string `json:"session_id"`
}

type heartbeat struct {
	Signal   signal.Type `json:"s"`
	Sequence int64       `json:"sn"`
}

// Identity of the bot account, used by the mention gate.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Bot      bool   `json:"bot"`
}

func (i Identity) DisplayName() string {
	if i.Nickname != "" {
		return i.Nickname
	}
	return i.Username
}

// MentionToken is the text form of a mention of this identity, "@name#id".
func (i Identity) MentionToken() string {
	return "@" + i.DisplayName() + "#" + i.ID
}

// Dispatcher receives classified events. Returning true signals that the event was fully
// handled.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt event.Event) (handled bool, err error)
}

// RoleProvider supplies the role list of a guild.
type RoleProvider interface {
	Get(ctx context.Context, guildID string) ([]event.Role, error)
	Refresh(ctx context.Context, guildID string) ([]event.Role, error)
}

// EndpointResolver looks up the websocket url of the gateway.
type EndpointResolver interface {
	GatewayURL(ctx context.Context, compress bool) (string, error)
}

// IdentityResolver looks up the account the bot token belongs to.
type IdentityResolver interface {
	Me(ctx context.Context) (Identity, error)
}
