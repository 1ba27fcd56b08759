package gateway

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/khlpkg/gateway/event"
)

const mentionMessage = `{"s":0,"sn":1,"d":{
	"channel_type":"GROUP","type":1,"target_id":"chan","author_id":"42","content":"@Bot#123 .ping",
	"msg_id":"m1","msg_timestamp":1700000000000,
	"extra":{"type":1,"guild_id":"g1","channel_name":"general","mention":["123"],
		"author":{"id":"42","username":"alice","bot":false,"roles":[7]}}}}`

func newTestClassifier(roles RoleProvider, options ...func(c *Classifier)) *Classifier {
	c := &Classifier{
		identity:        Identity{ID: "123", Username: "Bot"},
		triggers:        []string{".", "。"},
		mentionRequired: true,
		roles:           roles,
		logger:          NopLogger(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func TestClassifier_Classify(t *testing.T) {
	ctx := context.Background()
	roles := &roleProviderMock{roles: map[string][]event.Role{
		"g1": {{RoleID: 7, Name: "mod"}, {RoleID: 8, Name: "admin"}},
	}}

	t.Run("mention", func(t *testing.T) {
		evt, err := newTestClassifier(roles).Classify(ctx, envelope(t, mentionMessage))
		if err != nil {
			t.Fatal(err)
		}
		msg, ok := evt.(*event.Message)
		if !ok || msg.Kind() != event.GroupText {
			t.Fatalf("expected group text message, got %T", evt)
		}
		if msg.Content != ".ping" {
			t.Errorf("expected mention to be stripped, got %q", msg.Content)
		}
		if len(msg.Extra.Author.ParsedRoles) != 1 || msg.Extra.Author.ParsedRoles[0].Name != "mod" {
			t.Errorf("expected author to be enriched with the mod role, got %+v", msg.Extra.Author.ParsedRoles)
		}
		if msg.Sequence != 1 {
			t.Errorf("expected sequence 1 on the event, got %d", msg.Sequence)
		}
	})
	t.Run("not-mentioned", func(t *testing.T) {
		c := newTestClassifier(roles, func(c *Classifier) { c.identity.ID = "999" })
		_, err := c.Classify(ctx, envelope(t, mentionMessage))
		if !errors.Is(err, ErrFiltered) {
			t.Errorf("expected message to be filtered, got %v", err)
		}
	})
	t.Run("mention-optional", func(t *testing.T) {
		c := newTestClassifier(roles, func(c *Classifier) {
			c.identity.ID = "999"
			c.mentionRequired = false
			c.triggers = []string{"@"}
		})
		evt, err := c.Classify(ctx, envelope(t, mentionMessage))
		if err != nil {
			t.Fatal(err)
		}
		if evt.Base().Content != "@Bot#123 .ping" {
			t.Errorf("content should be untouched, got %q", evt.Base().Content)
		}
	})
	t.Run("no-trigger", func(t *testing.T) {
		c := newTestClassifier(roles, func(c *Classifier) { c.triggers = []string{"!"} })
		_, err := c.Classify(ctx, envelope(t, mentionMessage))
		if !errors.Is(err, ErrFiltered) {
			t.Errorf("expected message to be filtered, got %v", err)
		}
	})
	t.Run("bot-author", func(t *testing.T) {
		data := `{"s":0,"sn":1,"d":{"channel_type":"GROUP","type":1,"target_id":"chan","content":".ping",
			"extra":{"type":1,"guild_id":"g1","author":{"id":"77","bot":true}}}}`
		c := newTestClassifier(roles, func(c *Classifier) { c.mentionRequired = false })
		_, err := c.Classify(ctx, envelope(t, data))
		if !errors.Is(err, ErrFiltered) {
			t.Errorf("expected bot author to be filtered, got %v", err)
		}
	})
	t.Run("role-failure", func(t *testing.T) {
		failing := &roleProviderMock{err: errors.New("rest is down")}
		_, err := newTestClassifier(failing).Classify(ctx, envelope(t, mentionMessage))
		if err == nil || errors.Is(err, ErrFiltered) {
			t.Errorf("expected enrichment failure, got %v", err)
		}
	})
	t.Run("idempotent", func(t *testing.T) {
		c := newTestClassifier(roles)
		env := envelope(t, mentionMessage)
		first, err := c.Classify(ctx, env)
		if err != nil {
			t.Fatal(err)
		}
		second, err := c.Classify(ctx, env)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("classifying twice differs:\n%+v\n%+v", first, second)
		}
	})
	t.Run("private", func(t *testing.T) {
		data := `{"s":0,"d":{"channel_type":"PERSON","type":9,"target_id":"123","author_id":"42","content":"hi",
			"extra":{"type":9,"author":{"id":"42"},"kmarkdown":{"raw_content":"hi"}}}}`
		evt, err := newTestClassifier(roles).Classify(ctx, envelope(t, data))
		if err != nil {
			t.Fatal(err)
		}
		if evt.Kind() != event.PrivateMarkdown {
			t.Errorf("expected private markdown, got %s", evt.Kind())
		}
	})
	t.Run("system", func(t *testing.T) {
		data := `{"s":0,"d":{"channel_type":"GROUP","type":255,"target_id":"g1",
			"extra":{"type":"joined_guild","body":{"user_id":"42","joined_at":1700000000000}}}}`
		evt, err := newTestClassifier(roles).Classify(ctx, envelope(t, data))
		if err != nil {
			t.Fatal(err)
		}
		if evt.Kind() != event.MemberJoined {
			t.Errorf("expected member joined, got %s", evt.Kind())
		}
	})
	t.Run("broadcast", func(t *testing.T) {
		data := `{"s":0,"d":{"channel_type":"BROADCAST","type":1,"target_id":"chan","content":".ping"}}`
		_, err := newTestClassifier(roles).Classify(ctx, envelope(t, data))
		if !errors.Is(err, ErrFiltered) {
			t.Errorf("expected broadcast to be dropped, got %v", err)
		}
	})

	unrecognized := map[string]string{
		"channel-type": `{"s":0,"d":{"channel_type":"WEBHOOK","type":1}}`,
		"message-type": `{"s":0,"d":{"channel_type":"GROUP","type":4}}`,
		"system-type":  `{"s":0,"d":{"channel_type":"GROUP","type":255,"extra":{"type":"renamed_universe","body":{}}}}`,
		"scope-type":   `{"s":0,"d":{"channel_type":"PERSON","type":255,"extra":{"type":"joined_guild","body":{}}}}`,
		"signal":       `{"s":3}`,
	}
	for name, data := range unrecognized {
		t.Run(name, func(t *testing.T) {
			evt, err := newTestClassifier(roles).Classify(ctx, envelope(t, data))
			if evt != nil {
				t.Error("unrecognized data should not produce an event")
			}
			var discriminatorErr *UnrecognizedDiscriminatorError
			if !errors.As(err, &discriminatorErr) {
				t.Errorf("expected unrecognized discriminator, got %v", err)
			}
		})
	}
}

func TestClassifier_RoleMutation(t *testing.T) {
	roles := &roleProviderMock{}
	data := `{"s":0,"d":{"channel_type":"GROUP","type":255,"target_id":"g1",
		"extra":{"type":"updated_role","body":{"role_id":7,"name":"moderator","color":0,"position":1,"hoist":0,"mentionable":1,"permissions":8}}}}`

	evt, err := newTestClassifier(roles).Classify(context.Background(), envelope(t, data))
	if err != nil {
		t.Fatal(err)
	}
	if evt.Kind() != event.RoleUpdated {
		t.Fatalf("expected role updated, got %s", evt.Kind())
	}
	if len(roles.calls) != 1 || roles.calls[0] != "refresh:g1" {
		t.Errorf("expected guild roles to be refreshed, got %v", roles.calls)
	}

	roles.err = errors.New("rest is down")
	if _, err := newTestClassifier(roles).Classify(context.Background(), envelope(t, data)); err != nil {
		t.Errorf("a failed refetch should not drop the event, got %v", err)
	}
}
