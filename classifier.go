package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/khlpkg/gateway/encoding"
	"github.com/khlpkg/gateway/event"
	"github.com/khlpkg/gateway/signal"
)

// Classifier turns DATA envelopes into typed events. It applies the group text gates and
// keeps role information of the author up to date.
type Classifier struct {
	mu       sync.RWMutex
	identity Identity

	triggers        []string
	mentionRequired bool
	roles           RoleProvider
	logger          Logger
}

func (c *Classifier) SetIdentity(identity Identity) {
	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()
}

func (c *Classifier) Identity() Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

type dataHeader struct {
	ChannelType event.ChannelType `json:"channel_type"`
	Type        event.MessageType `json:"type"`
	TargetID    string            `json:"target_id"`
}

// Classify maps a DATA envelope onto exactly one event variant. Events stopped by a gate
// are reported with an error matching ErrFiltered, unknown discriminators with an
// *UnrecognizedDiscriminatorError.
func (c *Classifier) Classify(ctx context.Context, envelope *Envelope) (event.Event, error) {
	if envelope.Signal != signal.Data {
		return nil, &UnrecognizedDiscriminatorError{Field: "s", Value: envelope.Signal.String()}
	}

	var header dataHeader
	if err := encoding.Unmarshal(envelope.Data, &header); err != nil {
		return nil, &MalformedFrameError{Size: len(envelope.Data), Err: fmt.Errorf("unable to unmarshal data header. %w", err)}
	}

	scope := event.ScopeOf(header.ChannelType)
	switch scope {
	case event.ScopeUnknown:
		return nil, &UnrecognizedDiscriminatorError{Field: "channel_type", Value: string(header.ChannelType)}
	case event.ScopeBroadcast:
		c.logger.Info("broadcast message in %s ignored", header.TargetID)
		return nil, fmt.Errorf("%w: broadcast messages are not dispatched", ErrFiltered)
	}

	kind, err := c.kind(scope, header.Type, envelope.Data)
	if err != nil {
		return nil, err
	}

	evt, err := event.Decode(kind, envelope.Data)
	if err != nil {
		return nil, &MalformedFrameError{Size: len(envelope.Data), Err: err}
	}
	if seq, ok := envelope.Seq(); ok {
		evt.Base().Sequence = seq
	}

	switch {
	case kind == event.GroupText:
		if err := c.gate(ctx, evt.(*event.Message)); err != nil {
			return nil, err
		}
	case kind.SystemType().MutatesRoles():
		guildID := evt.Base().TargetID
		if c.roles != nil && guildID != "" {
			if _, err := c.roles.Refresh(ctx, guildID); err != nil {
				c.logger.Warn("unable to refetch roles of guild %s after %s. %s", guildID, kind, err)
			}
		}
	}
	return evt, nil
}

func (c *Classifier) kind(scope event.Scope, typ event.MessageType, data []byte) (event.Kind, error) {
	if typ != event.TypeSystem {
		kind, ok := event.MessageKind(scope, typ)
		if !ok {
			return event.Unknown, &UnrecognizedDiscriminatorError{Field: "type", Value: typ.String()}
		}
		return kind, nil
	}

	systemType := event.SystemType(encoding.Get(data, "extra", "type").ToString())
	kind, ok := event.SystemKind(scope, systemType)
	if !ok {
		return event.Unknown, &UnrecognizedDiscriminatorError{Field: "extra.type", Value: string(systemType)}
	}
	return kind, nil
}

// gate applies the mention, trigger and bot author rules to a group text message, and
// attaches the parsed roles of the author when the message passes.
func (c *Classifier) gate(ctx context.Context, msg *event.Message) error {
	me := c.Identity()
	mentioned := me.ID != "" && msg.Extra.Mentions(me.ID)
	if c.mentionRequired && !mentioned {
		return fmt.Errorf("%w: bot was not mentioned", ErrFiltered)
	}

	content := msg.Content
	if mentioned {
		if token := me.MentionToken(); strings.Contains(content, token) {
			content = strings.TrimSpace(strings.ReplaceAll(content, token, ""))
		}
	}

	if !c.triggered(content) {
		return fmt.Errorf("%w: no trigger prefix", ErrFiltered)
	}
	if msg.Extra.Author.Bot {
		return fmt.Errorf("%w: author is a bot", ErrFiltered)
	}
	msg.Content = content

	guildID := msg.GuildID()
	if c.roles == nil || guildID == "" || len(msg.Extra.Author.Roles) == 0 {
		return nil
	}

	roles, err := c.roles.Get(ctx, guildID)
	if err != nil {
		return fmt.Errorf("unable to resolve roles of guild %s. %w", guildID, err)
	}
	msg.Extra.Author.ParsedRoles = intersect(roles, msg.Extra.Author.Roles)
	return nil
}

// triggered reports whether the content starts with a trigger prefix. No prefixes means
// every message passes.
func (c *Classifier) triggered(content string) bool {
	if len(c.triggers) == 0 {
		return true
	}
	for _, prefix := range c.triggers {
		if strings.HasPrefix(content, prefix) {
			return true
		}
	}
	return false
}

func intersect(roles []event.Role, ids []event.Int64) []event.Role {
	parsed := make([]event.Role, 0, len(ids))
	for _, id := range ids {
		for i := range roles {
			if roles[i].RoleID == id {
				parsed = append(parsed, roles[i])
				break
			}
		}
	}
	return parsed
}
