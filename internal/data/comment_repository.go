package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CommentRepository handles database operations for comments.
type CommentRepository struct {
	DB *sqlx.DB
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

const commentSelect = `SELECT cm.id, cm.text, cm.created_at, cm.post_id, cm.author_id, u.username AS author_username
FROM comments cm
JOIN users u ON u.id = cm.author_id`

// Create inserts a comment and sets its ID.
func (r *CommentRepository) Create(ctx context.Context, comment *Comment) error {
	query := `INSERT INTO comments (text, created_at, post_id, author_id) VALUES (:text, :created_at, :post_id, :author_id)`
	res, err := r.DB.NamedExecContext(ctx, query, comment)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get new comment id: %w", err)
	}
	comment.ID = id
	return nil
}

// GetByID finds a comment by its ID.
func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*Comment, error) {
	var comment Comment
	if err := r.DB.GetContext(ctx, &comment, commentSelect+" WHERE cm.id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("comment %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get comment by id: %w", err)
	}
	return &comment, nil
}

// ListByPost returns the comments of a post, oldest first.
func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]*Comment, error) {
	var comments []*Comment
	query := commentSelect + " WHERE cm.post_id = ? ORDER BY cm.created_at ASC, cm.id ASC"
	if err := r.DB.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// UpdateText replaces the text of a comment.
func (r *CommentRepository) UpdateText(ctx context.Context, id int64, text string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE comments SET text = ? WHERE id = ?", text, id)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return expectAffected(res, "comment", id)
}

// Delete removes a comment.
func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return expectAffected(res, "comment", id)
}
