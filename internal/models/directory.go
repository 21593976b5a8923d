package models

import (
	"time"

	"gorm.io/gorm"
)

// Provider is a listed business in the service directory
type Provider struct {
	ID          string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      *string  `gorm:"index" json:"userId,omitempty"`
	Name        string   `gorm:"not null;index" json:"name"`
	Category    string   `gorm:"index;size:64" json:"category"`
	Image       string   `gorm:"type:text" json:"image"`
	Rating      float64  `gorm:"default:0" json:"rating"`
	ReviewCount int      `gorm:"default:0" json:"reviewCount"`
	Distance    string   `json:"distance"`
	LocationLat *float64 `json:"-"`
	LocationLng *float64 `json:"-"`
	Services    []string `gorm:"serializer:json;type:text" json:"services"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Provider) TableName() string {
	return "service_providers"
}

func (p *Provider) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Category is a browsable directory/post category
type Category struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:64" json:"name"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"createdAt"`
}

// All returns every model managed by AutoMigrate, parents first
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&ProfileService{},
		&Follow{},
		&Post{},
		&PostImage{},
		&PostVideo{},
		&PostTag{},
		&PostLike{},
		&PostRating{},
		&Comment{},
		&Notification{},
		&Conversation{},
		&Message{},
		&Provider{},
		&Category{},
	}
}
