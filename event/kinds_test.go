package event

import (
	"testing"
)

func TestKindTables(t *testing.T) {
	seen := map[string]Kind{}
	for _, k := range All() {
		name := k.String()
		if name == "" {
			t.Errorf("kind %d is missing a name", uint8(k))
		}
		if other, ok := seen[name]; ok {
			t.Errorf("kind %d and %d share the name %s", other, k, name)
		}
		seen[name] = k

		if k.Scope() != ScopeGroup && k.Scope() != ScopePrivate {
			t.Errorf("kind %s must be group or private scoped", k)
		}

		if k.IsSystem() {
			found, ok := SystemKind(k.Scope(), k.SystemType())
			if !ok || found != k {
				t.Errorf("system lookup for %s returned %s", k, found)
			}
		} else {
			found, ok := MessageKind(k.Scope(), k.MessageType())
			if !ok || found != k {
				t.Errorf("message lookup for %s returned %s", k, found)
			}
		}
	}

	if len(seen) != int(kindCount)-1 {
		t.Errorf("expected %d kinds, got %d", kindCount-1, len(seen))
	}
}

func TestLookupMisses(t *testing.T) {
	if _, ok := MessageKind(ScopeBroadcast, TypeText); ok {
		t.Error("broadcast messages must not have a kind")
	}
	if _, ok := MessageKind(ScopeGroup, MessageType(4)); ok {
		t.Error("file messages are not classified")
	}
	if _, ok := SystemKind(ScopeGroup, "made_up"); ok {
		t.Error("unknown system type resolved to a kind")
	}
	if _, ok := SystemKind(ScopePrivate, AddedRole); ok {
		t.Error("role events only exist in group scope")
	}
	if Kind(200).String() != "KIND(200)" {
		t.Errorf("unexpected name for out of range kind: %s", Kind(200))
	}
}

func TestDecode(t *testing.T) {
	t.Run("message", func(t *testing.T) {
		data := []byte(`{"channel_type":"GROUP","type":1,"target_id":"c1","author_id":"u1","content":"hi",
			"extra":{"type":1,"guild_id":"g1","mention":["123"],"mention_roles":["7"],"author":{"id":"u1","bot":0,"roles":[1,"2"]}}}`)

		evt, err := Decode(GroupText, data)
		if err != nil {
			t.Fatal(err)
		}
		msg, ok := evt.(*Message)
		if !ok {
			t.Fatalf("expected *Message, got %T", evt)
		}
		if msg.Kind() != GroupText {
			t.Errorf("wrong kind %s", msg.Kind())
		}
		if msg.GuildID() != "g1" || msg.Base().TargetID != "c1" {
			t.Error("header or extra not decoded")
		}
		if !msg.Extra.Mentions("123") || msg.Extra.Mentions("u1") {
			t.Error("mention lookup is wrong")
		}
		if bool(msg.Extra.Author.Bot) {
			t.Error("author should not be a bot")
		}
		if len(msg.Extra.Author.Roles) != 2 || msg.Extra.Author.Roles[1] != 2 {
			t.Errorf("quoted role ids not decoded: %v", msg.Extra.Author.Roles)
		}
	})

	t.Run("system", func(t *testing.T) {
		data := []byte(`{"channel_type":"GROUP","type":255,"target_id":"g1",
			"extra":{"type":"added_role","body":{"role_id":11,"name":"mods","hoist":1,"mentionable":false}}}`)

		evt, err := Decode(RoleAdded, data)
		if err != nil {
			t.Fatal(err)
		}
		role, ok := evt.(*System[Role])
		if !ok {
			t.Fatalf("expected *System[Role], got %T", evt)
		}
		if role.Body().RoleID != 11 || !bool(role.Body().Hoist) || bool(role.Body().Mentionable) {
			t.Errorf("role body not decoded: %+v", role.Body())
		}
		if role.Extra.Type != AddedRole {
			t.Errorf("wrong extra type %s", role.Extra.Type)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		if _, err := Decode(Unknown, []byte(`{}`)); err == nil {
			t.Error("expected decoding of unknown kind to fail")
		}
	})

	t.Run("bad flag", func(t *testing.T) {
		data := []byte(`{"extra":{"author":{"bot":"maybe"}}}`)
		if _, err := Decode(PrivateText, data); err == nil {
			t.Error("expected invalid flag to fail")
		}
	})
}

func TestSystemType_MutatesRoles(t *testing.T) {
	for _, st := range []SystemType{AddedRole, DeletedRole, UpdatedRole} {
		if !st.MutatesRoles() {
			t.Errorf("%s should mutate roles", st)
		}
	}
	if UpdatedGuildMember.MutatesRoles() {
		t.Error("member updates do not change role definitions")
	}
}
