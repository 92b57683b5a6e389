package domain

import (
	"context"
	"fmt"

	"github.com/roach88/livesync/internal/database"
	"github.com/roach88/livesync/internal/event"
	"github.com/roach88/livesync/internal/syncpoint"
)

// Posts observes and writes posts.
type Posts struct {
	db *database.Database
}

// NewPosts creates a post repository over db.
func NewPosts(db *database.Database) *Posts {
	return &Posts{db: db}
}

// Ref returns the typed ref for a listing.
func (p *Posts) Ref(postID int64, f Filter) database.Ref[Post] {
	return database.RefFor[Post](p.db, PostsQuery(postID, f))
}

// Observe delivers the listing now and after every change to it.
func (p *Posts) Observe(postID int64, f Filter, fn func([]Post), cancel func(error)) event.Handle {
	return p.Ref(postID, f).Observe(syncpoint.Data, func(s database.Snapshot[Post]) {
		fn(s.Items)
	}, cancel)
}

// StopObserving removes a handle returned by Observe with the same
// arguments.
func (p *Posts) StopObserving(postID int64, f Filter, h event.Handle) {
	p.Ref(postID, f).RemoveObserver(h)
}

// MarkFavorite sets the favourite flag of post and stores it.
func (p *Posts) MarkFavorite(ctx context.Context, post Post, favorite bool) error {
	post.IsFavorite = favorite
	if err := p.Ref(0, FilterNone).Update(ctx, post).Wait(ctx); err != nil {
		return fmt.Errorf("mark post %d favorite=%t: %w", post.ID, favorite, err)
	}
	return nil
}

// Delete removes one post.
func (p *Posts) Delete(ctx context.Context, postID int64) error {
	if err := p.Ref(postID, FilterNone).Delete(ctx).Wait(ctx); err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	return nil
}

// DeleteAll removes every post.
func (p *Posts) DeleteAll(ctx context.Context) error {
	if err := p.Ref(0, FilterNone).Delete(ctx).Wait(ctx); err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}
	return nil
}

// Sync replaces the stored posts with a full listing.
func (p *Posts) Sync(ctx context.Context, posts []Post) error {
	return database.ApplyServerOverwrite(ctx, p.Ref(0, FilterNone), posts)
}

// Comments observes and writes comments.
type Comments struct {
	db *database.Database
}

// NewComments creates a comment repository over db.
func NewComments(db *database.Database) *Comments {
	return &Comments{db: db}
}

// Ref returns the typed ref for a post's comments.
func (c *Comments) Ref(postID int64) database.Ref[Comment] {
	return database.RefFor[Comment](c.db, CommentsQuery(postID))
}

// Observe delivers a post's comments now and after every change.
func (c *Comments) Observe(postID int64, fn func([]Comment), cancel func(error)) event.Handle {
	return c.Ref(postID).Observe(syncpoint.Data, func(s database.Snapshot[Comment]) {
		fn(s.Items)
	}, cancel)
}

// Sync replaces a post's stored comments with a full listing.
func (c *Comments) Sync(ctx context.Context, postID int64, comments []Comment) error {
	for _, cm := range comments {
		if cm.PostID != postID {
			return fmt.Errorf("sync comments of post %d: comment %d belongs to post %d", postID, cm.ID, cm.PostID)
		}
	}
	return database.ApplyServerOverwrite(ctx, c.Ref(postID), comments)
}

// Users observes and writes users.
type Users struct {
	db *database.Database
}

// NewUsers creates a user repository over db.
func NewUsers(db *database.Database) *Users {
	return &Users{db: db}
}

// Ref returns the typed ref for one user.
func (u *Users) Ref(userID int64) database.Ref[User] {
	return database.RefFor[User](u.db, UserQuery(userID))
}

// Observe delivers the user now and after every change.
func (u *Users) Observe(userID int64, fn func([]User), cancel func(error)) event.Handle {
	return u.Ref(userID).Observe(syncpoint.Data, func(s database.Snapshot[User]) {
		fn(s.Items)
	}, cancel)
}

// Sync stores a user received from a server.
func (u *Users) Sync(ctx context.Context, user User) error {
	return database.ApplyServerWrite(ctx, u.Ref(user.ID), user)
}
