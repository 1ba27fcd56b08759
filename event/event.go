package event

import (
	"strconv"
)

// Event is a classified gateway event. The concrete type is either *Message or one of the
// *System[T] variants, the Kind tells which.
type Event interface {
	Kind() Kind
	Base() *Header
}

// Header holds the fields every data payload carries.
type Header struct {
	ChannelType  ChannelType `json:"channel_type"`
	Type         MessageType `json:"type"`
	TargetID     string      `json:"target_id"`
	AuthorID     string      `json:"author_id"`
	Content      string      `json:"content"`
	MsgID        string      `json:"msg_id"`
	MsgTimestamp int64       `json:"msg_timestamp"`
	Nonce        string      `json:"nonce"`

	// Sequence is the envelope sequence number the event arrived with.
	Sequence int64 `json:"sn,omitempty"`
}

// Message is a user authored text, image, video, markdown or card message.
type Message struct {
	Header
	Extra MessageExtra `json:"extra"`

	kind Kind
}

func (m *Message) Kind() Kind {
	return m.kind
}

func (m *Message) Base() *Header {
	return &m.Header
}

// GuildID is empty for private messages.
func (m *Message) GuildID() string {
	return m.Extra.GuildID
}

type MessageExtra struct {
	Type         MessageType `json:"type"`
	GuildID      string      `json:"guild_id,omitempty"`
	ChannelName  string      `json:"channel_name,omitempty"`
	Mention      []string    `json:"mention,omitempty"`
	MentionAll   Flag        `json:"mention_all"`
	MentionRoles []Int64     `json:"mention_roles,omitempty"`
	MentionHere  Flag        `json:"mention_here"`
	Code         string      `json:"code,omitempty"`
	Author       User        `json:"author"`
	Attachments  *Attachment `json:"attachments,omitempty"`
	KMarkdown    *KMarkdown  `json:"kmarkdown,omitempty"`
}

// Mentions reports whether the user id is in the mention list.
func (e *MessageExtra) Mentions(userID string) bool {
	for _, id := range e.Mention {
		if id == userID {
			return true
		}
	}
	return false
}

type User struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Nickname    string  `json:"nickname,omitempty"`
	IdentifyNum string  `json:"identify_num,omitempty"`
	Online      Flag    `json:"online"`
	Bot         Flag    `json:"bot"`
	Status      int     `json:"status,omitempty"`
	Avatar      string  `json:"avatar,omitempty"`
	Roles       []Int64 `json:"roles,omitempty"`

	// ParsedRoles is filled from the guild role list for group text messages.
	ParsedRoles []Role `json:"parsed_roles,omitempty"`
}

type Attachment struct {
	Type     string  `json:"type"`
	URL      string  `json:"url"`
	Name     string  `json:"name,omitempty"`
	FileType string  `json:"file_type,omitempty"`
	Size     int64   `json:"size,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
}

type KMarkdown struct {
	RawContent string `json:"raw_content"`
}

// System is a platform generated event, T is the body specific to the system type.
type System[T any] struct {
	Header
	Extra SystemExtra[T] `json:"extra"`

	kind Kind
}

func (s *System[T]) Kind() Kind {
	return s.kind
}

func (s *System[T]) Base() *Header {
	return &s.Header
}

// Body is a shorthand for Extra.Body.
func (s *System[T]) Body() *T {
	return &s.Extra.Body
}

type SystemExtra[T any] struct {
	Type SystemType `json:"type"`
	Body T          `json:"body"`
}

// Flag is a boolean the platform sometimes encodes as 0/1.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1", `"1"`, `"true"`:
		*f = true
	case "false", "0", `"0"`, `"false"`, "null", `""`:
		*f = false
	default:
		return &strconv.NumError{Func: "Flag", Num: string(data), Err: strconv.ErrSyntax}
	}
	return nil
}

// Int64 is an integer identifier that may arrive quoted.
type Int64 int64

func (i *Int64) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		return nil
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*i = Int64(v)
	return nil
}
