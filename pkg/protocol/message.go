// Package protocol defines the JSON messages pushed to event feed clients.
package protocol

import "time"

// MessageKind defines type of message
type MessageKind string

const (
	MessageKindEvent  MessageKind = "event"
	MessageKindSystem MessageKind = "system"
)

// Action defines action within a message kind
type Action string

const (
	// ActionTranslation carries a TranslationEvent.
	ActionTranslation Action = "translation"
	// ActionHello is sent once when a feed client connects.
	ActionHello Action = "hello"
	// ActionEcho is answered with the same payload.
	ActionEcho Action = "echo"
)

// Message represents a protocol message
type Message struct {
	Kind   MessageKind `json:"kind"`
	Action Action      `json:"action,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// TranslationEvent summarizes one finished translation request.
type TranslationEvent struct {
	RequestID    string    `json:"request_id"`
	Time         time.Time `json:"time"`
	DurationMS   int64     `json:"duration_ms"`
	GuildID      string    `json:"guild_id,omitempty"`
	ChannelID    string    `json:"channel_id"`
	AuthorID     string    `json:"author_id,omitempty"`
	Language     string    `json:"language,omitempty"`
	State        string    `json:"state"`
	Delivery     string    `json:"delivery"`
	ThreadID     string    `json:"thread_id,omitempty"`
	Outcome      string    `json:"outcome,omitempty"`
	Chunks       int       `json:"chunks"`
	SourceLength int       `json:"source_length"`
	Detail       string    `json:"detail,omitempty"`
}

// Hello is the payload of the greeting sent to a new feed client.
type Hello struct {
	Version   string   `json:"version"`
	Languages []string `json:"languages"`
}
