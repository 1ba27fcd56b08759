package event

import "strconv"

// ChannelType is the wire value of d.channel_type.
type ChannelType string

const (
	ChannelGroup     ChannelType = "GROUP"
	ChannelPerson    ChannelType = "PERSON"
	ChannelBroadcast ChannelType = "BROADCAST"
)

// Scope of a classified event.
type Scope uint8

const (
	ScopeUnknown Scope = iota
	ScopeGroup
	ScopePrivate
	ScopeBroadcast
)

func (s Scope) String() string {
	switch s {
	case ScopeGroup:
		return "GROUP"
	case ScopePrivate:
		return "PRIVATE"
	case ScopeBroadcast:
		return "BROADCAST"
	default:
		return "UNKNOWN"
	}
}

// ScopeOf maps the wire channel type to a scope.
func ScopeOf(channelType ChannelType) Scope {
	switch channelType {
	case ChannelGroup:
		return ScopeGroup
	case ChannelPerson:
		return ScopePrivate
	case ChannelBroadcast:
		return ScopeBroadcast
	default:
		return ScopeUnknown
	}
}

// MessageType is the wire value of d.type.
type MessageType int

const (
	TypeText      MessageType = 1
	TypeImage     MessageType = 2
	TypeVideo     MessageType = 3
	TypeKMarkdown MessageType = 9
	TypeCard      MessageType = 10
	TypeSystem    MessageType = 255
)

func (t MessageType) String() string {
	switch t {
	case TypeText:
		return "TEXT"
	case TypeImage:
		return "IMAGE"
	case TypeVideo:
		return "VIDEO"
	case TypeKMarkdown:
		return "MARKDOWN"
	case TypeCard:
		return "CARD"
	case TypeSystem:
		return "SYSTEM"
	default:
		return "TYPE(" + strconv.Itoa(int(t)) + ")"
	}
}

// SystemType is the wire value of d.extra.type for system messages.
type SystemType string

// group system events
const (
	AddedReaction      SystemType = "added_reaction"
	DeletedReaction    SystemType = "deleted_reaction"
	UpdatedMessage     SystemType = "updated_message"
	DeletedMessage     SystemType = "deleted_message"
	AddedChannel       SystemType = "added_channel"
	UpdatedChannel     SystemType = "updated_channel"
	DeletedChannel     SystemType = "deleted_channel"
	PinnedMessage      SystemType = "pinned_message"
	UnpinnedMessage    SystemType = "unpinned_message"
	JoinedGuild        SystemType = "joined_guild"
	ExitedGuild        SystemType = "exited_guild"
	UpdatedGuildMember SystemType = "updated_guild_member"
	GuildMemberOnline  SystemType = "guild_member_online"
	GuildMemberOffline SystemType = "guild_member_offline"
	AddedRole          SystemType = "added_role"
	DeletedRole        SystemType = "deleted_role"
	UpdatedRole        SystemType = "updated_role"
	UpdatedGuild       SystemType = "updated_guild"
	DeletedGuild       SystemType = "deleted_guild"
	AddedBlockList     SystemType = "added_block_list"
	DeletedBlockList   SystemType = "deleted_block_list"
	JoinedChannel      SystemType = "joined_channel"
	ExitedChannel      SystemType = "exited_channel"
)

// private system events
const (
	UpdatedPrivateMessage  SystemType = "updated_private_message"
	DeletedPrivateMessage  SystemType = "deleted_private_message"
	PrivateAddedReaction   SystemType = "private_added_reaction"
	PrivateDeletedReaction SystemType = "private_deleted_reaction"
	UserUpdated            SystemType = "user_updated"
	MessageButtonClick     SystemType = "message_btn_click"
)

// MutatesRoles reports whether the system event changes the role definitions of a guild.
func (t SystemType) MutatesRoles() bool {
	return t == AddedRole || t == DeletedRole || t == UpdatedRole
}
