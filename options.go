package gateway

import (
	"errors"

	"github.com/khlpkg/gateway/internal/util"
)

// Option for initializing a new gateway client. An option must be deterministic regardless
// of when or how many times it is executed.
type Option func(client *Client) error

func WithBotToken(token string) Option {
	return func(client *Client) error {
		client.botToken = token
		return nil
	}
}

// WithTriggerPrefixes sets the prefixes a group text message must start with to be
// dispatched.
func WithTriggerPrefixes(prefixes ...string) Option {
	set := util.NewSet(prefixes...)

	return func(client *Client) error {
		if len(set) != len(prefixes) {
			return errors.New("duplicated trigger prefixes found")
		}
		if set.Contains("") {
			return errors.New("empty trigger prefix would match every message")
		}

		client.classifier.triggers = prefixes
		return nil
	}
}

// WithMentionRequired drops group text messages that do not mention the bot.
func WithMentionRequired(required bool) Option {
	return func(client *Client) error {
		client.classifier.mentionRequired = required
		return nil
	}
}

func WithActive(active bool) Option {
	return func(client *Client) error {
		client.active = active
		return nil
	}
}

func WithCompression(compressed bool) Option {
	return func(client *Client) error {
		client.compressed = compressed
		return nil
	}
}

func WithIdentity(identity Identity) Option {
	return func(client *Client) error {
		client.classifier.identity = identity
		return nil
	}
}

func WithDispatcher(dispatcher Dispatcher) Option {
	return func(client *Client) error {
		client.dispatcher = dispatcher
		return nil
	}
}

func WithRoleProvider(provider RoleProvider) Option {
	return func(client *Client) error {
		client.roles = provider
		return nil
	}
}

func WithLogger(logger Logger) Option {
	return func(client *Client) error {
		client.logger = logger
		return nil
	}
}

// WithSessionID and WithSequenceNumber restore a session persisted by an earlier process.
func WithSessionID(id string) Option {
	if id == "" {
		panic("session id is not set")
	}

	return func(client *Client) error {
		client.sessionID.Store(id)
		return nil
	}
}

func WithSequenceNumber(seq int64) Option {
	if seq < 0 {
		panic("sequence number can not be negative")
	}

	return func(client *Client) error {
		client.sequenceNumber.Store(seq)
		return nil
	}
}
