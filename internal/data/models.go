package data

import (
	"errors"
	"html/template"
	"time"
)

// ErrNotFound is returned by repositories when no row matches a lookup.
var ErrNotFound = errors.New("record not found")

// Publishable is the attribute set shared by categories, locations and posts:
// a publication flag plus the creation timestamp. Published is false for a
// nil item, so a missing reference counts as unpublished.
type Publishable interface {
	Published() bool
	Created() time.Time
}

// User is a registered account. Credentials are stored as a bcrypt hash.
// Accounts created by an OIDC login have no password and carry the
// "issuer|subject" key of their identity in ExternalID.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	ExternalID   *string   `db:"external_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

// Category groups posts under a URL slug.
type Category struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Slug        string    `db:"slug"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
}

func (c *Category) Published() bool    { return c != nil && c.IsPublished }
func (c *Category) Created() time.Time { return c.CreatedAt }

// Location is an optional place attached to a post.
type Location struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
}

func (l *Location) Published() bool    { return l != nil && l.IsPublished }
func (l *Location) Created() time.Time { return l.CreatedAt }

// Post is a single blog entry. Category and Location are populated from joins
// and are nil when the post has no such reference.
type Post struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Text        string    `db:"text"`
	PubDate     time.Time `db:"pub_date"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
	Image       string    `db:"image"`
	AuthorID    int64     `db:"author_id"`
	CategoryID  *int64    `db:"category_id"`
	LocationID  *int64    `db:"location_id"`

	AuthorUsername string        `db:"-"`
	Category       *Category     `db:"-"`
	Location       *Location     `db:"-"`
	CommentCount   int           `db:"-"`
	HTMLText       template.HTML `db:"-"`
}

func (p *Post) Published() bool    { return p != nil && p.IsPublished }
func (p *Post) Created() time.Time { return p.CreatedAt }
func (p *Post) AuthoredBy() int64  { return p.AuthorID }

// Comment is a reader's remark on a post.
type Comment struct {
	ID             int64     `db:"id"`
	Text           string    `db:"text"`
	CreatedAt      time.Time `db:"created_at"`
	PostID         int64     `db:"post_id"`
	AuthorID       int64     `db:"author_id"`
	AuthorUsername string    `db:"author_username"`
}

func (c *Comment) AuthoredBy() int64 { return c.AuthorID }

var (
	_ Publishable = (*Category)(nil)
	_ Publishable = (*Location)(nil)
	_ Publishable = (*Post)(nil)
)
