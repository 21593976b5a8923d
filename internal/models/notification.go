package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification types
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
	NotificationReview  = "review"
	NotificationMention = "mention"
	NotificationSystem  = "system"
)

// Notification is a recipient-scoped event record. A NULL RecipientUsername
// makes it a broadcast visible to every user.
type Notification struct {
	ID                string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID            string  `gorm:"index;size:36" json:"userId"`
	ActorUsername     string  `gorm:"size:30" json:"actorUsername"`
	RecipientUsername *string `gorm:"index;size:30" json:"recipientUsername"`
	Type              string  `gorm:"index;not null;size:20" json:"type"`
	Content           string  `gorm:"type:text" json:"content"`
	RelatedID         *string `gorm:"size:64" json:"relatedId"`
	PostID            *string `gorm:"index;size:64" json:"postId"`
	// Metadata is an opaque JSON document; readers must tolerate garbage
	Metadata  *string   `gorm:"type:text" json:"-"`
	IsRead    bool      `gorm:"not null;default:false;index" json:"isRead"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
