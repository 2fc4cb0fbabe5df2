package models

import "time"

// Follow is a directed edge between two identity-provider subjects.
// Both sides of the relationship are read from this single row.
type Follow struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	FollowerUID  string    `json:"followerUid" gorm:"size:128;index;uniqueIndex:idx_follower_following"`
	FollowingUID string    `json:"followingUid" gorm:"size:128;index;uniqueIndex:idx_follower_following"`
	CreatedAt    time.Time `json:"createdAt"`
}
