package models

import (
	"database/sql"
	"time"
)

// Role is the moderation role attached to a profile
type Role string

// Role constants
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Profile represents a user profile
type Profile struct {
	ID        string         `gorm:"type:uuid;primaryKey;column:id"`
	Username  sql.NullString `gorm:"type:varchar(30);uniqueIndex:profiles_username_key;column:username"`
	AvatarURL sql.NullString `gorm:"type:varchar(1024);column:avatar_url"`
	Role      Role           `gorm:"type:varchar(16);not null;default:'user';column:role"`
	CreatedAt time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}
