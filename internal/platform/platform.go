// Package platform defines the chat-platform boundary used by the policy and
// dispatch layers. Adapters (see package telegram) translate a concrete bot
// API into these types.
package platform

import (
	"context"
	"strconv"
	"time"
)

// ChatType distinguishes private conversations from groups.
type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// User is a platform account.
type User struct {
	ID        int64
	Username  string
	FirstName string
	IsBot     bool
}

// Handle returns the name used in notices: the username when set, the first
// name otherwise.
func (u User) Handle() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return strconv.FormatInt(u.ID, 10)
}

// Chat identifies a conversation.
type Chat struct {
	ID    int64
	Type  ChatType
	Title string
}

// IsGroup reports whether moderation applies to the chat.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup || c.Type == ChatSupergroup
}

// Video is the metadata of a video attachment.
type Video struct {
	FileID   string
	FileName string
	FileSize int64
	Duration time.Duration
}

// Message is an inbound chat message.
type Message struct {
	ID         int
	Chat       Chat
	From       User
	Text       string
	Command    string // without the leading slash, empty for plain text
	CommandArg string
	Video      *Video
	ReplyTo    *Message
	NewMembers []User
	Date       time.Time
}

// Callback is an inline button activation.
type Callback struct {
	ID      string
	From    User
	Message *Message // the message carrying the button
	Data    string
}

// Update is one inbound event. Exactly one of Message or Callback is set.
type Update struct {
	ID       int
	Message  *Message
	Callback *Callback
}

// Button is an inline button attached to an outgoing message.
type Button struct {
	Text string
	Data string
}

// SendOptions modify an outgoing message.
type SendOptions struct {
	ReplyTo int
	Buttons []Button
}

// Client is the set of platform operations the bot performs. Every method is
// a fallible remote call.
type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	BanMember(ctx context.Context, chatID, userID int64) error
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
	Administrators(ctx context.Context, chatID int64) ([]User, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
