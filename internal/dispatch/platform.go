package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/polyglot-bot/polyglot/internal/translate"
)

var (
	// ErrNotFound is returned by a Platform when a message does not exist.
	ErrNotFound = errors.New("message not found")
	// ErrForbidden is returned by a Platform when the bot may not read a message.
	ErrForbidden = errors.New("missing permission")
)

// Platform is the subset of the chat client the controller drives.
type Platform interface {
	SendMessage(ctx context.Context, channelID, text string) error
	FetchMessage(ctx context.Context, channelID, messageID string) (string, error)
	CanCreatePublicThreads(ctx context.Context, channelID string) (bool, error)
	StartThread(ctx context.Context, channelID, messageID, name string) (string, error)
	Typing(ctx context.Context, channelID string) error
}

// Translator produces a translation outcome. *translate.Gateway implements it.
type Translator interface {
	Translate(ctx context.Context, text, code string) translate.Outcome
}

// Inbound is a chat message as seen by the controller.
type Inbound struct {
	MessageID  string
	ChannelID  string
	GuildID    string
	AuthorID   string
	AuthorName string
	Content    string

	// Set when the message is a reply.
	ReferenceMessageID string
	ReferenceChannelID string
}

// IsReply reports whether the message references another message.
func (m Inbound) IsReply() bool {
	return strings.TrimSpace(m.ReferenceMessageID) != ""
}

func (m Inbound) referenceChannel() string {
	if ch := strings.TrimSpace(m.ReferenceChannelID); ch != "" {
		return ch
	}
	return m.ChannelID
}
