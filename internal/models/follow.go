package models

import (
	"time"
)

// Follow represents a follow relationship. The (follower, following) pair is
// the primary key, so a duplicate insert fails with a unique violation.
type Follow struct {
	FollowerID  string    `gorm:"type:uuid;primaryKey;column:follower_id;check:follows_no_self,follower_id <> following_id"`
	FollowingID string    `gorm:"type:uuid;primaryKey;index:follows_following_idx;column:following_id"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Follower  *Profile `gorm:"foreignKey:FollowerID;references:ID"`
	Following *Profile `gorm:"foreignKey:FollowingID;references:ID"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "follows"
}

// Follow table columns
const (
	FollowTable          = "follows"
	FollowColumnFollower = "follower_id"
	FollowColumnTarget   = "following_id"
)

// TargetValue returns the followed user
func (f *Follow) TargetValue() any {
	return f.FollowingID
}
