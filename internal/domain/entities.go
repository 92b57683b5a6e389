// Package domain defines the Post, Comment and User entities and the
// repositories that observe and synchronise them through a Database.
package domain

// Post is a blog post.
type Post struct {
	ID         int64  `json:"id" yaml:"id"`
	UserID     int64  `json:"userID" yaml:"userID"`
	Title      string `json:"title" yaml:"title"`
	Body       string `json:"body" yaml:"body"`
	IsFavorite bool   `json:"isFavorite" yaml:"isFavorite"`
	Read       bool   `json:"read" yaml:"read"`
}

// Entity implements database.Entity.
func (Post) Entity() string { return "Post" }

// Comment is a comment on a post.
type Comment struct {
	ID     int64  `json:"id" yaml:"id"`
	PostID int64  `json:"postID" yaml:"postID"`
	Name   string `json:"name" yaml:"name"`
	Email  string `json:"email" yaml:"email"`
	Body   string `json:"body" yaml:"body"`
}

// Entity implements database.Entity.
func (Comment) Entity() string { return "Comment" }

// User is a post author.
type User struct {
	ID      int64  `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Email   string `json:"email" yaml:"email"`
	Phone   string `json:"phone" yaml:"phone"`
	Website string `json:"website" yaml:"website"`
}

// Entity implements database.Entity.
func (User) Entity() string { return "User" }
