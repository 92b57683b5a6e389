package domain

import (
	"fmt"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
)

// Filter narrows a post listing by favourite status.
type Filter int

const (
	// FilterNone lists every post.
	FilterNone Filter = iota
	// FilterFavorites lists favourite posts only.
	FilterFavorites
	// FilterNotFavorites lists posts that are not favourites.
	FilterNotFavorites
)

// String returns the filter name used on the command line.
func (f Filter) String() string {
	switch f {
	case FilterNone:
		return "none"
	case FilterFavorites:
		return "favorites"
	case FilterNotFavorites:
		return "notFavorites"
	default:
		return fmt.Sprintf("Filter(%d)", int(f))
	}
}

// ParseFilter is the inverse of Filter.String.
func ParseFilter(s string) (Filter, error) {
	switch s {
	case "", "none":
		return FilterNone, nil
	case "favorites":
		return FilterFavorites, nil
	case "notFavorites":
		return FilterNotFavorites, nil
	default:
		return 0, fmt.Errorf("unknown filter %q (want none, favorites or notFavorites)", s)
	}
}

// Predicate returns the filter's predicate, nil for FilterNone.
func (f Filter) Predicate() query.Predicate {
	switch f {
	case FilterFavorites:
		return query.Eq("isFavorite", ir.Bool(true))
	case FilterNotFavorites:
		return query.Eq("isFavorite", ir.Bool(false))
	default:
		return nil
	}
}

// PostsQuery lists posts in id order. A non-zero postID narrows the listing
// to that post.
func PostsQuery(postID int64, f Filter) query.Query {
	q := query.New(Post{}.Entity()).Where(f.Predicate())
	if postID != 0 {
		q = q.And(query.Eq(query.IDField, ir.Int(postID)))
	}
	return q.Order(query.IDField, true)
}

// CommentsQuery lists the comments of a post in id order.
func CommentsQuery(postID int64) query.Query {
	return query.New(Comment{}.Entity()).
		Where(query.Eq("postID", ir.Int(postID))).
		Order(query.IDField, true)
}

// UserQuery selects a single user.
func UserQuery(userID int64) query.Query {
	return query.New(User{}.Entity()).Where(query.Eq(query.IDField, ir.Int(userID)))
}
