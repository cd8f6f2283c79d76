package service

import (
	"time"

	"go-blog-app/internal/data"
)

// Principal is the identity a request acts as. The zero value is the
// anonymous visitor. It is passed to every service call that filters or
// authorizes, instead of being looked up from ambient request state.
type Principal struct {
	UserID   int64
	Username string
}

// Anonymous is the principal of a visitor without a session.
var Anonymous = Principal{}

// IsAuthenticated reports whether the principal belongs to a user account.
func (p Principal) IsAuthenticated() bool {
	return p.UserID != 0
}

// Authored is a resource with a single owning author.
type Authored interface {
	AuthoredBy() int64
}

// Owns is the single ownership predicate for posts and comments.
func (p Principal) Owns(r Authored) bool {
	return p.IsAuthenticated() && r.AuthoredBy() == p.UserID
}

// Is reports whether the principal is the given account.
func (p Principal) Is(u *data.User) bool {
	return p.IsAuthenticated() && u != nil && u.ID == p.UserID
}

// PubliclyVisible reports whether a post may be shown to any visitor: the
// post is published, its category exists and is published, and its
// publication date has passed.
func PubliclyVisible(post *data.Post, now time.Time) bool {
	return allPublished(post, post.Category) && !post.PubDate.After(now)
}

// allPublished reports whether every item is present and published.
func allPublished(items ...data.Publishable) bool {
	for _, item := range items {
		if !item.Published() {
			return false
		}
	}
	return true
}

// CanView reports whether viewer may open the post. Authors always see their
// own posts, including drafts and scheduled ones.
func CanView(post *data.Post, viewer Principal, now time.Time) bool {
	return viewer.Owns(post) || PubliclyVisible(post, now)
}

// authorize is the mutation boundary for posts and comments.
func authorize(actor Principal, r Authored) error {
	if !actor.Owns(r) {
		return ErrForbidden
	}
	return nil
}
