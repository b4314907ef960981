package model

import "time"

// Tag is a uniquely named label attachable to any number of articles.
// Tags are never removed when the articles referencing them are deleted.
// The binary collation makes the unique index case-sensitive, so "News"
// and "news" are distinct tags.
type Tag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;size:50;not null;collate:utf8mb4_bin"`
	CreatedAt time.Time `json:"created_at"`
}
