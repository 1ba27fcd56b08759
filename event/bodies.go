package event

type Emoji struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ReactionBody struct {
	ChannelID string `json:"channel_id"`
	Emoji     Emoji  `json:"emoji"`
	UserID    string `json:"user_id"`
	MsgID     string `json:"msg_id"`
}

type MessageUpdateBody struct {
	ChannelID    string   `json:"channel_id"`
	Content      string   `json:"content"`
	Mention      []string `json:"mention"`
	MentionAll   Flag     `json:"mention_all"`
	MentionHere  Flag     `json:"mention_here"`
	MentionRoles []Int64  `json:"mention_roles"`
	UpdatedAt    int64    `json:"updated_at"`
	MsgID        string   `json:"msg_id"`
}

type MessageDeleteBody struct {
	ChannelID string `json:"channel_id"`
	MsgID     string `json:"msg_id"`
}

type ChannelBody struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	UserID      string `json:"user_id"`
	GuildID     string `json:"guild_id"`
	IsCategory  Flag   `json:"is_category"`
	ParentID    string `json:"parent_id"`
	Level       int    `json:"level"`
	SlowMode    int    `json:"slow_mode"`
	Topic       string `json:"topic"`
	Type        int    `json:"type"`
	LimitAmount int    `json:"limit_amount"`
}

type ChannelDeleteBody struct {
	ID        string `json:"id"`
	DeletedAt int64  `json:"deleted_at"`
}

type PinBody struct {
	ChannelID  string `json:"channel_id"`
	OperatorID string `json:"operator_id"`
	MsgID      string `json:"msg_id"`
}

type MemberJoinBody struct {
	UserID   string `json:"user_id"`
	JoinedAt int64  `json:"joined_at"`
}

type MemberExitBody struct {
	UserID   string `json:"user_id"`
	ExitedAt int64  `json:"exited_at"`
}

type MemberUpdateBody struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

type PresenceBody struct {
	UserID    string   `json:"user_id"`
	EventTime int64    `json:"event_time"`
	Guilds    []string `json:"guilds"`
}

// Role is both the body of role mutation events and an entry of a guild role list.
type Role struct {
	RoleID      Int64  `json:"role_id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Position    int    `json:"position"`
	Hoist       Flag   `json:"hoist"`
	Mentionable Flag   `json:"mentionable"`
	Permissions int64  `json:"permissions"`
}

type GuildBody struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	UserID           string `json:"user_id"`
	Icon             string `json:"icon"`
	NotifyType       int    `json:"notify_type"`
	Region           string `json:"region"`
	EnableOpen       Flag   `json:"enable_open"`
	OpenID           Int64  `json:"open_id"`
	DefaultChannelID string `json:"default_channel_id"`
	WelcomeChannelID string `json:"welcome_channel_id"`
}

type BlockListAddBody struct {
	OperatorID string   `json:"operator_id"`
	Remark     string   `json:"remark"`
	UserID     []string `json:"user_id"`
}

type BlockListRemoveBody struct {
	OperatorID string   `json:"operator_id"`
	UserID     []string `json:"user_id"`
}

type VoiceChannelBody struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	JoinedAt  int64  `json:"joined_at,omitempty"`
	ExitedAt  int64  `json:"exited_at,omitempty"`
}

type PrivateMessageUpdateBody struct {
	MsgID     string `json:"msg_id"`
	AuthorID  string `json:"author_id"`
	TargetID  string `json:"target_id"`
	Content   string `json:"content"`
	ChatCode  string `json:"chat_code"`
	UpdatedAt int64  `json:"updated_at"`
}

type PrivateMessageDeleteBody struct {
	ChatCode  string `json:"chat_code"`
	MsgID     string `json:"msg_id"`
	AuthorID  string `json:"author_id"`
	TargetID  string `json:"target_id"`
	DeletedAt int64  `json:"deleted_at"`
}

type PrivateReactionBody struct {
	MsgID    string `json:"msg_id"`
	UserID   string `json:"user_id"`
	ChatCode string `json:"chat_code"`
	Emoji    Emoji  `json:"emoji"`
}

type UserUpdateBody struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type ButtonClickBody struct {
	MsgID    string `json:"msg_id"`
	UserID   string `json:"user_id"`
	Value    string `json:"value"`
	TargetID string `json:"target_id"`
	UserInfo User   `json:"user_info"`
}
