// Package model defines the data structures used throughout the application.
package model

import "time"

// DefaultProfilePhotoURL is shown for users who never uploaded a photo.
const DefaultProfilePhotoURL = "https://cdn.pixabay.com/photo/2015/10/05/22/37/blank-profile-picture-973460_960_720.png"

// Image is a file stored on the media host.
//
// PublicID is the host-side key used to delete the file later. It is empty
// for placeholder images that were never uploaded (e.g. the default profile
// photo), and nothing is removed from the host for those.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// User represents a registered account.
//
// WHY `json:"-"` ON PasswordHash?
// The hash must never leave the server. Tagging it with "-" makes
// encoding/json skip the field entirely, so no handler can leak it by
// accident when it serializes a *User.
type User struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	Bio               string    `json:"bio"`
	ProfilePhoto      Image     `json:"profilePhoto"`
	IsAdmin           bool      `json:"isAdmin"`
	IsAccountVerified bool      `json:"isAccountVerified"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`

	// Posts is only populated by the profile view.
	Posts []Post `json:"posts,omitempty"`
}

// Author is the public slice of a User embedded in posts and comments.
type Author struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfilePhoto Image  `json:"profilePhoto"`
}

// VerificationToken is a single-use secret emailed to a user. The same
// entity backs both email verification and password reset links.
//
// A user has at most one outstanding token; it is deleted as soon as it is
// consumed. There is no expiry.
type VerificationToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
