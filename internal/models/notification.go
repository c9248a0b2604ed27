package models

import (
	"database/sql"
	"time"
)

// NotificationType names what caused a notification
type NotificationType string

// Notification type constants
const (
	NotifyTypeFollow  NotificationType = "follow"
	NotifyTypeLike    NotificationType = "like"
	NotifyTypeComment NotificationType = "comment"
)

// Notification represents a notification delivered to UserID, caused by ActorID
type Notification struct {
	ID        int64            `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    string           `gorm:"type:uuid;not null;index:notifications_user_idx;column:user_id"`
	ActorID   string           `gorm:"type:uuid;not null;column:actor_id"`
	Type      NotificationType `gorm:"type:varchar(16);not null;column:type"`
	PostID    sql.NullInt64    `gorm:"column:post_id"`
	IsRead    sql.NullBool     `gorm:"column:is_read"`
	CreatedAt time.Time        `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}
