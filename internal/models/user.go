package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is the local profile of an identity-provider subject (PostgreSQL).
type User struct {
	ID             uint      `json:"-" gorm:"primaryKey"`
	UID            string    `json:"uid" gorm:"size:128;uniqueIndex;not null"`
	Username       string    `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Email          string    `json:"email" gorm:"size:255;index"`
	FirstName      string    `json:"firstName" gorm:"size:100"`
	LastName       string    `json:"lastName" gorm:"size:100"`
	Bio            string    `json:"bio" gorm:"size:160"`
	Location       string    `json:"location" gorm:"size:100"`
	ProfilePicture string    `json:"profilePicture"`
	BannerImage    string    `json:"bannerImage"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UserSummary is the subset of profile fields embedded in other resources.
type UserSummary struct {
	UID            string `json:"uid"`
	Username       string `json:"username"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// ToSummary projects the display fields of u.
func (u *User) ToSummary() UserSummary {
	return UserSummary{
		UID:            u.UID,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
	}
}

// UserProfile is a user together with the follow sets derived from edges.
type UserProfile struct {
	User
	Followers []string `json:"followers"`
	Following []string `json:"following"`
}

// Identity is what the identity provider knows about a subject.
type Identity struct {
	UID            string
	Email          string
	FirstName      string
	LastName       string
	ProfilePicture string
}

// ProfileUpdate lists the only fields a user may change on their profile.
// Nil means "leave unchanged".
type ProfileUpdate struct {
	FirstName      *string `json:"firstName" validate:"omitempty,max=100"`
	LastName       *string `json:"lastName" validate:"omitempty,max=100"`
	Bio            *string `json:"bio" validate:"omitempty,max=160"`
	Location       *string `json:"location" validate:"omitempty,max=100"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,url"`
	BannerImage    *string `json:"bannerImage" validate:"omitempty,url"`
}

// Columns returns the column/value pairs to update.
func (p ProfileUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	set := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	set("first_name", p.FirstName)
	set("last_name", p.LastName)
	set("bio", p.Bio)
	set("location", p.Location)
	set("profile_picture", p.ProfilePicture)
	set("banner_image", p.BannerImage)
	return cols
}

// FollowResult reports the follow state after a toggle.
type FollowResult struct {
	Following bool   `json:"following"`
	Message   string `json:"message"`
}

// SessionClaims are the claims of the service-issued session JWT.
// The registered subject carries the identity-provider UID.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
