package session

import (
	"time"
	"unicode/utf8"
)

type Sender string

const (
	SenderUser Sender = "user"
	// SenderAssistant is persisted as "ai".
	SenderAssistant Sender = "ai"
)

const (
	DefaultTitle = "New Chat"
	// legacyDefaultTitle is the default title found in older persisted lists.
	legacyDefaultTitle = "新对话"

	titleRunes = 30
)

type Message struct {
	ID          int64     `json:"id" yaml:"id"`
	Text        string    `json:"text" yaml:"text"`
	Sender      Sender    `json:"sender" yaml:"sender"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	IsAnimating bool      `json:"isTyping,omitempty" yaml:"animating,omitempty"`
	ModelUsed   string    `json:"modelUsed,omitempty" yaml:"model,omitempty"`
}

type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
	Messages  []Message `json:"messages" yaml:"messages"`
}

func (s Session) clone() Session {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	return out
}

// HasDefaultTitle reports whether the title was never derived from a message.
func (s Session) HasDefaultTitle() bool {
	return s.Title == DefaultTitle || s.Title == legacyDefaultTitle || s.Title == ""
}

// Title derives a session title from the first message: up to 30 runes,
// followed by "..." when the text was cut.
func Title(text string) string {
	if utf8.RuneCountInString(text) <= titleRunes {
		return text
	}
	return string([]rune(text)[:titleRunes]) + "..."
}

// NextMessageID returns a millisecond timestamp id that is strictly greater
// than every id in msgs.
func NextMessageID(now time.Time, msgs []Message) int64 {
	id := now.UnixMilli()
	for _, m := range msgs {
		if m.ID >= id {
			id = m.ID + 1
		}
	}
	return id
}
