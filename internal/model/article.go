package model

import (
	"time"

	"gorm.io/gorm"
)

// Article is the primary content record.
type Article struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:200;not null"`
	Body        string    `json:"body" gorm:"type:text;not null"`
	Image       string    `json:"image" gorm:"size:255"`
	ImageURL    string    `json:"imageUrl" gorm:"size:255"`
	AuthorID    uint      `json:"author" gorm:"not null;index"`
	PublishDate time.Time `json:"publish_date" gorm:"not null;index"`
	Published   bool      `json:"published" gorm:"default:false;index"`
	Tags        []Tag     `json:"tags" gorm:"many2many:article_tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// AuthorUsername is denormalized from the author row on read.
	AuthorUsername string `json:"author_username" gorm:"-"`

	// Relations
	Author User `json:"-" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate defaults the publish date to the creation time.
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.PublishDate.IsZero() {
		a.PublishDate = time.Now()
	}
	return nil
}

// AfterFind fills the denormalized author username when the author
// relation was loaded with the query.
func (a *Article) AfterFind(tx *gorm.DB) error {
	if a.Author.ID != 0 {
		a.AuthorUsername = a.Author.Username
	}
	return nil
}
