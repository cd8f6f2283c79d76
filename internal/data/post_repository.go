package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostFilter narrows a post listing. A nil VisibleAt disables the public
// visibility condition; otherwise only posts that are published, belong to a
// published category and have pub_date <= *VisibleAt are returned.
type PostFilter struct {
	AuthorID   *int64
	CategoryID *int64
	VisibleAt  *time.Time
	Limit      int
	Offset     int
}

// SQLPostRepository is the sqlx implementation of the post store.
type SQLPostRepository struct {
	db *sqlx.DB
}

// NewSQLPostRepository creates a new SQLPostRepository.
func NewSQLPostRepository(db *sqlx.DB) *SQLPostRepository {
	return &SQLPostRepository{db: db}
}

// postRow is the flat result of the post/author/category/location join.
type postRow struct {
	ID                  int64          `db:"id"`
	Title               string         `db:"title"`
	Text                string         `db:"text"`
	PubDate             time.Time      `db:"pub_date"`
	IsPublished         bool           `db:"is_published"`
	CreatedAt           time.Time      `db:"created_at"`
	Image               string         `db:"image"`
	AuthorID            int64          `db:"author_id"`
	AuthorUsername      string         `db:"author_username"`
	CategoryID          sql.NullInt64  `db:"category_id"`
	CategoryTitle       sql.NullString `db:"category_title"`
	CategorySlug        sql.NullString `db:"category_slug"`
	CategoryIsPublished sql.NullBool   `db:"category_is_published"`
	LocationID          sql.NullInt64  `db:"location_id"`
	LocationName        sql.NullString `db:"location_name"`
	LocationIsPublished sql.NullBool   `db:"location_is_published"`
	CommentCount        int            `db:"comment_count"`
}

func (row *postRow) toPost() *Post {
	post := &Post{
		ID:             row.ID,
		Title:          row.Title,
		Text:           row.Text,
		PubDate:        row.PubDate,
		IsPublished:    row.IsPublished,
		CreatedAt:      row.CreatedAt,
		Image:          row.Image,
		AuthorID:       row.AuthorID,
		AuthorUsername: row.AuthorUsername,
		CommentCount:   row.CommentCount,
	}
	if row.CategoryID.Valid {
		id := row.CategoryID.Int64
		post.CategoryID = &id
		post.Category = &Category{
			ID:          id,
			Title:       row.CategoryTitle.String,
			Slug:        row.CategorySlug.String,
			IsPublished: row.CategoryIsPublished.Bool,
		}
	}
	if row.LocationID.Valid {
		id := row.LocationID.Int64
		post.LocationID = &id
		post.Location = &Location{
			ID:          id,
			Name:        row.LocationName.String,
			IsPublished: row.LocationIsPublished.Bool,
		}
	}
	return post
}

const postSelect = `SELECT p.id, p.title, p.text, p.pub_date, p.is_published, p.created_at, p.image,
	p.author_id, u.username AS author_username,
	p.category_id, c.title AS category_title, c.slug AS category_slug, c.is_published AS category_is_published,
	p.location_id, l.name AS location_name, l.is_published AS location_is_published,
	(SELECT COUNT(*) FROM comments cm WHERE cm.post_id = p.id) AS comment_count
FROM posts p
JOIN users u ON u.id = p.author_id
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN locations l ON l.id = p.location_id`

// where builds the WHERE clause and its arguments for a filter.
func (f PostFilter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.AuthorID != nil {
		conds = append(conds, "p.author_id = ?")
		args = append(args, *f.AuthorID)
	}
	if f.CategoryID != nil {
		conds = append(conds, "p.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.VisibleAt != nil {
		conds = append(conds, "p.is_published = TRUE", "c.is_published = TRUE", "p.pub_date <= ?")
		args = append(args, *f.VisibleAt)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CreatePost inserts a new post and sets its ID.
func (r *SQLPostRepository) CreatePost(ctx context.Context, post *Post) error {
	query := `INSERT INTO posts (title, text, pub_date, is_published, created_at, image, author_id, location_id, category_id)
		VALUES (:title, :text, :pub_date, :is_published, :created_at, :image, :author_id, :location_id, :category_id)`
	res, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("failed to execute create post query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get new post id: %w", err)
	}
	post.ID = id
	return nil
}

// GetPostByID retrieves a single post with its author, category and location.
func (r *SQLPostRepository) GetPostByID(ctx context.Context, id int64) (*Post, error) {
	var row postRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(postSelect+" WHERE p.id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post by id: %w", err)
	}
	return row.toPost(), nil
}

// ListPosts returns posts matching the filter ordered by pub_date descending.
func (r *SQLPostRepository) ListPosts(ctx context.Context, filter PostFilter) ([]*Post, error) {
	where, args := filter.where()
	query := postSelect + where + " ORDER BY p.pub_date DESC, p.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	posts := make([]*Post, len(rows))
	for i := range rows {
		posts[i] = rows[i].toPost()
	}
	return posts, nil
}

// CountPosts returns the number of posts matching the filter, ignoring
// Limit and Offset.
func (r *SQLPostRepository) CountPosts(ctx context.Context, filter PostFilter) (int, error) {
	where, args := filter.where()
	query := `SELECT COUNT(*) FROM posts p LEFT JOIN categories c ON c.id = p.category_id` + where

	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// UpdatePost saves the editable fields of a post.
func (r *SQLPostRepository) UpdatePost(ctx context.Context, post *Post) error {
	query := `UPDATE posts SET title = :title, text = :text, pub_date = :pub_date, is_published = :is_published,
		image = :image, location_id = :location_id, category_id = :category_id WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return expectAffected(result, "post", post.ID)
}

// SetPublished flips the moderation flag of a post.
func (r *SQLPostRepository) SetPublished(ctx context.Context, id int64, published bool) error {
	result, err := r.db.ExecContext(ctx, "UPDATE posts SET is_published = ? WHERE id = ?", published, id)
	if err != nil {
		return fmt.Errorf("failed to set post publication: %w", err)
	}
	return expectAffected(result, "post", id)
}

// DeletePost removes a post from the database by its ID. Its comments are
// removed by the foreign key cascade.
func (r *SQLPostRepository) DeletePost(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return expectAffected(result, "post", id)
}
