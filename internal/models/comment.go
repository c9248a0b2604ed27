package models

import (
	"time"
)

// Comment represents a comment on a post
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PostID    int64     `gorm:"not null;index:comments_post_idx;column:post_id"`
	AuthorID  string    `gorm:"type:uuid;not null;column:author_id"`
	Content   string    `gorm:"type:text;not null;column:content"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Post   *Post    `gorm:"foreignKey:PostID;references:ID;constraint:OnDelete:CASCADE"`
	Author *Profile `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}
