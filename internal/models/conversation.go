package models

// Conversation is the messaging thread between exactly two users. The pair is
// unordered: a lookup for (A, B) must match a row stored as (B, A).
type Conversation struct {
	BaseModel

	User1ID string `gorm:"type:uuid;not null;index" json:"user1_id"`
	User1   *User  `gorm:"foreignKey:User1ID" json:"user1,omitempty"`

	User2ID string `gorm:"type:uuid;not null;index" json:"user2_id"`
	User2   *User  `gorm:"foreignKey:User2ID" json:"user2,omitempty"`
}

// OtherParticipant returns the participant that is not userID. The boolean is
// false when userID is not part of the conversation.
func (c *Conversation) OtherParticipant(userID string) (string, bool) {
	switch userID {
	case c.User1ID:
		return c.User2ID, true
	case c.User2ID:
		return c.User1ID, true
	}
	return "", false
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID == c.User1ID || userID == c.User2ID
}
