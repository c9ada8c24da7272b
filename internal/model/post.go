package model

import "time"

// Post is a blog entry.
//
// Likes holds the ids of users who liked the post; a user appears at most
// once. Author and Comments are filled by read queries only.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	UserID      string    `json:"userId"`
	Image       Image     `json:"image"`
	Likes       []string  `json:"likes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Author   *Author   `json:"user,omitempty"`
	Comments []Comment `json:"comments,omitempty"`
}

// Comment belongs to one post and one user. Username is copied from the
// author when the comment is created.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Author *Author `json:"user,omitempty"`
}

// Category is a post category managed by admins.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
