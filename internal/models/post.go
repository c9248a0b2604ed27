package models

import (
	"database/sql"
	"time"
)

// Post represents a published post
type Post struct {
	ID          int64          `gorm:"primaryKey;autoIncrement;column:id"`
	AuthorID    string         `gorm:"type:uuid;not null;index:posts_author_idx;column:author_id"`
	MediaURL    sql.NullString `gorm:"type:varchar(1024);column:media_url"`
	TextContent sql.NullString `gorm:"type:text;column:text_content"`
	CreatedAt   time.Time      `gorm:"not null;index:posts_created_idx;column:created_at"`

	// Relationships
	Author *Profile `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}
