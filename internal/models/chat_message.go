package models

import "time"

// ChatMessage belongs to exactly one conversation. SentAt is assigned by the
// server; history ordering relies on it.
type ChatMessage struct {
	BaseModel

	ConversationID string        `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Conversation   *Conversation `gorm:"foreignKey:ConversationID" json:"-"`

	SenderID string `gorm:"type:uuid;not null;index" json:"sender_id"`
	Sender   *User  `gorm:"foreignKey:SenderID" json:"sender,omitempty"`

	Content string    `gorm:"type:text;not null" json:"content"`
	SentAt  time.Time `gorm:"not null;index" json:"sent_at"`
}
