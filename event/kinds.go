package event

import (
	"fmt"

	"github.com/khlpkg/gateway/encoding"
)

// Kind identifies a classified event variant.
type Kind uint8

const (
	Unknown Kind = iota

	GroupText
	GroupImage
	GroupVideo
	GroupMarkdown
	GroupCard

	PrivateText
	PrivateImage
	PrivateVideo
	PrivateMarkdown
	PrivateCard

	ReactionAdded
	ReactionRemoved
	MessageUpdated
	MessageDeleted
	ChannelAdded
	ChannelUpdated
	ChannelDeleted
	MessagePinned
	MessageUnpinned
	MemberJoined
	MemberExited
	MemberUpdated
	MemberOnline
	MemberOffline
	RoleAdded
	RoleDeleted
	RoleUpdated
	GuildUpdated
	GuildDeleted
	BlockListAdded
	BlockListRemoved
	VoiceChannelJoined
	VoiceChannelExited

	PrivateMessageUpdated
	PrivateMessageDeleted
	PrivateReactionAdded
	PrivateReactionRemoved
	UserInfoUpdated
	ButtonClicked

	kindCount
)

type kindInfo struct {
	name   string
	scope  Scope
	typ    MessageType
	system SystemType
	decode func(kind Kind, data []byte) (Event, error)
}

var kinds = [kindCount]kindInfo{
	Unknown: {name: "UNKNOWN"},

	GroupText:     message("GROUP/TEXT", ScopeGroup, TypeText),
	GroupImage:    message("GROUP/IMAGE", ScopeGroup, TypeImage),
	GroupVideo:    message("GROUP/VIDEO", ScopeGroup, TypeVideo),
	GroupMarkdown: message("GROUP/MARKDOWN", ScopeGroup, TypeKMarkdown),
	GroupCard:     message("GROUP/CARD", ScopeGroup, TypeCard),

	PrivateText:     message("PRIVATE/TEXT", ScopePrivate, TypeText),
	PrivateImage:    message("PRIVATE/IMAGE", ScopePrivate, TypeImage),
	PrivateVideo:    message("PRIVATE/VIDEO", ScopePrivate, TypeVideo),
	PrivateMarkdown: message("PRIVATE/MARKDOWN", ScopePrivate, TypeKMarkdown),
	PrivateCard:     message("PRIVATE/CARD", ScopePrivate, TypeCard),

	ReactionAdded:      system[ReactionBody](ScopeGroup, AddedReaction),
	ReactionRemoved:    system[ReactionBody](ScopeGroup, DeletedReaction),
	MessageUpdated:     system[MessageUpdateBody](ScopeGroup, UpdatedMessage),
	MessageDeleted:     system[MessageDeleteBody](ScopeGroup, DeletedMessage),
	ChannelAdded:       system[ChannelBody](ScopeGroup, AddedChannel),
	ChannelUpdated:     system[ChannelBody](ScopeGroup, UpdatedChannel),
	ChannelDeleted:     system[ChannelDeleteBody](ScopeGroup, DeletedChannel),
	MessagePinned:      system[PinBody](ScopeGroup, PinnedMessage),
	MessageUnpinned:    system[PinBody](ScopeGroup, UnpinnedMessage),
	MemberJoined:       system[MemberJoinBody](ScopeGroup, JoinedGuild),
	MemberExited:       system[MemberExitBody](ScopeGroup, ExitedGuild),
	MemberUpdated:      system[MemberUpdateBody](ScopeGroup, UpdatedGuildMember),
	MemberOnline:       system[PresenceBody](ScopeGroup, GuildMemberOnline),
	MemberOffline:      system[PresenceBody](ScopeGroup, GuildMemberOffline),
	RoleAdded:          system[Role](ScopeGroup, AddedRole),
	RoleDeleted:        system[Role](ScopeGroup, DeletedRole),
	RoleUpdated:        system[Role](ScopeGroup, UpdatedRole),
	GuildUpdated:       system[GuildBody](ScopeGroup, UpdatedGuild),
	GuildDeleted:       system[GuildBody](ScopeGroup, DeletedGuild),
	BlockListAdded:     system[BlockListAddBody](ScopeGroup, AddedBlockList),
	BlockListRemoved:   system[BlockListRemoveBody](ScopeGroup, DeletedBlockList),
	VoiceChannelJoined: system[VoiceChannelBody](ScopeGroup, JoinedChannel),
	VoiceChannelExited: system[VoiceChannelBody](ScopeGroup, ExitedChannel),

	PrivateMessageUpdated:  system[PrivateMessageUpdateBody](ScopePrivate, UpdatedPrivateMessage),
	PrivateMessageDeleted:  system[PrivateMessageDeleteBody](ScopePrivate, DeletedPrivateMessage),
	PrivateReactionAdded:   system[PrivateReactionBody](ScopePrivate, PrivateAddedReaction),
	PrivateReactionRemoved: system[PrivateReactionBody](ScopePrivate, PrivateDeletedReaction),
	UserInfoUpdated:        system[UserUpdateBody](ScopePrivate, UserUpdated),
	ButtonClicked:          system[ButtonClickBody](ScopePrivate, MessageButtonClick),
}

type messageKey struct {
	scope Scope
	typ   MessageType
}

type systemKey struct {
	scope  Scope
	system SystemType
}

var (
	messageKinds = map[messageKey]Kind{}
	systemKinds  = map[systemKey]Kind{}
)

func init() {
	for k := Kind(1); k < kindCount; k++ {
		info := kinds[k]
		if info.system == "" {
			messageKinds[messageKey{info.scope, info.typ}] = k
		} else {
			systemKinds[systemKey{info.scope, info.system}] = k
		}
	}
}

func message(name string, scope Scope, typ MessageType) kindInfo {
	return kindInfo{
		name:  name,
		scope: scope,
		typ:   typ,
		decode: func(kind Kind, data []byte) (Event, error) {
			msg := &Message{kind: kind}
			if err := encoding.Unmarshal(data, msg); err != nil {
				return nil, err
			}
			return msg, nil
		},
	}
}

func system[T any](scope Scope, systemType SystemType) kindInfo {
	return kindInfo{
		name:   scope.String() + "/SYSTEM/" + string(systemType),
		scope:  scope,
		typ:    TypeSystem,
		system: systemType,
		decode: func(kind Kind, data []byte) (Event, error) {
			evt := &System[T]{kind: kind}
			if err := encoding.Unmarshal(data, evt); err != nil {
				return nil, err
			}
			return evt, nil
		},
	}
}

func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
	return kinds[k].name
}

func (k Kind) Scope() Scope {
	if k >= kindCount {
		return ScopeUnknown
	}
	return kinds[k].scope
}

func (k Kind) MessageType() MessageType {
	if k >= kindCount {
		return 0
	}
	return kinds[k].typ
}

// SystemType is empty for non system kinds.
func (k Kind) SystemType() SystemType {
	if k >= kindCount {
		return ""
	}
	return kinds[k].system
}

func (k Kind) IsSystem() bool {
	return k.SystemType() != ""
}

// MessageKind looks up the variant for a user message of the given scope and type.
func MessageKind(scope Scope, typ MessageType) (Kind, bool) {
	k, ok := messageKinds[messageKey{scope, typ}]
	return k, ok
}

// SystemKind looks up the variant for a system message of the given scope and extra type.
func SystemKind(scope Scope, systemType SystemType) (Kind, bool) {
	k, ok := systemKinds[systemKey{scope, systemType}]
	return k, ok
}

// Decode unmarshals the data payload of an envelope into the variant of the given kind.
func Decode(kind Kind, data []byte) (Event, error) {
	if kind == Unknown || kind >= kindCount {
		return nil, fmt.Errorf("can not decode event kind %s", kind)
	}
	return kinds[kind].decode(kind, data)
}

// All returns every known kind.
func All() []Kind {
	all := make([]Kind, 0, kindCount-1)
	for k := Kind(1); k < kindCount; k++ {
		all = append(all, k)
	}
	return all
}
