package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account kinds
const (
	AccountPersonal = "personal"
	AccountBusiness = "business"
)

// User is an account that can post, follow, rate and message
type User struct {
	ID               string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username         string `gorm:"uniqueIndex;not null;size:30" json:"username"`
	Email            string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string `gorm:"not null" json:"-"`
	DisplayName      string `json:"displayName"`
	ProfileImage     string `gorm:"type:text" json:"profileImage"`
	AccountType      string `gorm:"not null;default:personal;size:20" json:"accountType"`
	BusinessCategory string `json:"businessCategory,omitempty"`
	IsActive         bool   `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsBusiness reports whether the account is a business account
func (u *User) IsBusiness() bool {
	return u.AccountType == AccountBusiness
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	if u.AccountType == "" {
		u.AccountType = AccountPersonal
	}
	return nil
}

// Follow is a directed follower -> following edge
type Follow struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FollowerID  string    `gorm:"not null;uniqueIndex:idx_follows_pair" json:"followerId"`
	FollowingID string    `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}

// Profile extends a user with business-facing display fields
type Profile struct {
	ID           string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string `gorm:"uniqueIndex;not null" json:"userId"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	BusinessName string `json:"businessName"`
	Tagline      string `json:"tagline"`
	Description  string `gorm:"type:text" json:"description"`
	Website      string `json:"website"`
	ProfileImage string `gorm:"type:text" json:"profileImage"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProfileService is one priced offering listed on a profile
type ProfileService struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ProfileID   string `gorm:"index;not null" json:"profileId"`
	UserID      string `gorm:"index;not null" json:"userId"`
	Title       string `gorm:"not null" json:"title"`
	Price       string `json:"price"`
	Description string `gorm:"type:text" json:"description"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *ProfileService) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}
