package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a piece of user content with attached media.
// Rating, LikesCount and SharesCount are legacy denormalized columns;
// the feed always recomputes likes and ratings from the child tables.
type Post struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string  `gorm:"index;not null" json:"userId"`
	Caption     string  `gorm:"type:text" json:"caption"`
	Category    string  `gorm:"index;size:64" json:"category"`
	IsActive    bool    `gorm:"not null;default:true" json:"isActive"`
	Rating      float64 `gorm:"default:0" json:"rating"`
	LikesCount  int     `gorm:"default:0" json:"likesCount"`
	SharesCount int     `gorm:"default:0" json:"sharesCount"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PostImage holds either an external URL or the image bytes themselves.
// PostID is NULL until a post attaches the upload.
type PostImage struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    *string `gorm:"index;size:64" json:"postId"`
	UserID    string  `gorm:"index" json:"userId"`
	ImageURL  string  `gorm:"type:text" json:"imageUrl"`
	ImageData []byte  `json:"-"`
	MimeType  string  `gorm:"size:100" json:"mimeType"`
	FileSize  int64   `json:"fileSize"`

	CreatedAt time.Time `json:"createdAt"`
}

func (i *PostImage) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// PostVideo mirrors PostImage for video media
type PostVideo struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    *string `gorm:"index;size:64" json:"postId"`
	UserID    string  `gorm:"index" json:"userId"`
	VideoURL  string  `gorm:"type:text" json:"videoUrl"`
	VideoData []byte  `json:"-"`
	MimeType  string  `gorm:"size:100" json:"mimeType"`
	FileSize  int64   `json:"fileSize"`

	CreatedAt time.Time `json:"createdAt"`
}

func (v *PostVideo) BeforeCreate(tx *gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

type PostTag struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"not null;size:64;uniqueIndex:idx_post_tags_post_tag" json:"postId"`
	Tag       string    `gorm:"not null;size:64;uniqueIndex:idx_post_tags_post_tag;index" json:"tag"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *PostTag) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// PostLike exists once per (post, user); deleting it is an unlike
type PostLike struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"not null;size:64;uniqueIndex:idx_post_likes_post_user" json:"postId"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_post_likes_post_user" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (l *PostLike) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// PostRating exists once per (post, user); re-rating updates in place
type PostRating struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"not null;size:64;uniqueIndex:idx_post_ratings_post_user" json:"postId"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_post_ratings_post_user" json:"userId"`
	Rating    float64   `gorm:"not null" json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *PostRating) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Comment is append-only; removal flips IsActive
type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"index;not null;size:64" json:"postId"`
	UserID    string    `gorm:"index;not null" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
