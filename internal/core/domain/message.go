package domain

import "time"

// MessageType marks the direction of a stored message. Only user-sent
// messages are stored.
type MessageType string

const MessageSent MessageType = "sent"

// MaxMessageLength is the upper bound on trimmed message content.
const MaxMessageLength = 1000

// Message is a single chat line owned by a user.
type Message struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	IsRead    bool        `json:"isRead"`
	CreatedAt time.Time   `json:"createdAt"`
}
