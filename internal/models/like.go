package models

import (
	"time"
)

// Like represents a user liking a post
type Like struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PostID    int64     `gorm:"not null;uniqueIndex:likes_post_user_key,priority:1;column:post_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:likes_post_user_key,priority:2;column:user_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Post *Post    `gorm:"foreignKey:PostID;references:ID;constraint:OnDelete:CASCADE"`
	User *Profile `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for Like
func (Like) TableName() string {
	return "likes"
}

// Like table columns
const (
	LikeTable        = "likes"
	LikeColumnUser   = "user_id"
	LikeColumnTarget = "post_id"
)

// TargetValue returns the liked post
func (l *Like) TargetValue() any {
	return l.PostID
}
