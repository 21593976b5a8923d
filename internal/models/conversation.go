package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is one row per unordered user pair. User1ID always holds the
// lexicographically smaller id so either participant finds the same row.
type Conversation struct {
	ID               string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	User1ID          string     `gorm:"not null;uniqueIndex:idx_conversations_pair" json:"user1Id"`
	User1Username    string     `json:"user1Username"`
	User2ID          string     `gorm:"not null;uniqueIndex:idx_conversations_pair;index" json:"user2Id"`
	User2Username    string     `json:"user2Username"`
	LastMessageID    *string    `json:"lastMessageId"`
	LastMessageText  string     `gorm:"size:100" json:"lastMessageText"`
	LastMessageAt    *time.Time `gorm:"index" json:"lastMessageAt"`
	UnreadCountUser1 int        `gorm:"not null;default:0" json:"unreadCountUser1"`
	UnreadCountUser2 int        `gorm:"not null;default:0" json:"unreadCountUser2"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// HasParticipant reports whether userID is one of the two slots
func (c *Conversation) HasParticipant(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// UnreadFor returns the unread counter belonging to userID
func (c *Conversation) UnreadFor(userID string) int {
	if c.User1ID == userID {
		return c.UnreadCountUser1
	}
	if c.User2ID == userID {
		return c.UnreadCountUser2
	}
	return 0
}

// Message is append-only; IsRead flips when the recipient fetches the thread
type Message struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ConversationID    string    `gorm:"index;not null" json:"conversationId"`
	SenderID          string    `gorm:"index;not null" json:"senderId"`
	SenderUsername    string    `json:"senderUsername"`
	RecipientID       string    `gorm:"index;not null" json:"recipientId"`
	RecipientUsername string    `json:"recipientUsername"`
	MessageText       string    `gorm:"type:text;not null" json:"messageText"`
	PostID            *string   `gorm:"size:64" json:"postId,omitempty"`
	IsRead            bool      `gorm:"not null;default:false" json:"isRead"`
	CreatedAt         time.Time `gorm:"index" json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
