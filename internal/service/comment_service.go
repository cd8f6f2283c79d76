package service

import (
	"context"
	"strings"
	"time"

	"go-blog-app/internal/data"
)

// CommentRepository defines the interface for database operations on comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *data.Comment) error
	GetByID(ctx context.Context, id int64) (*data.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]*data.Comment, error)
	UpdateText(ctx context.Context, id int64, text string) error
	Delete(ctx context.Context, id int64) error
}

// CommentServicer defines the interface for interacting with comments.
type CommentServicer interface {
	ListComments(ctx context.Context, postID int64) ([]*data.Comment, error)
	AddComment(ctx context.Context, actor Principal, postID int64, text string) (*data.Comment, error)
	GetCommentForEdit(ctx context.Context, actor Principal, postID, commentID int64) (*data.Comment, error)
	UpdateComment(ctx context.Context, actor Principal, postID, commentID int64, text string) (*data.Comment, error)
	DeleteComment(ctx context.Context, actor Principal, postID, commentID int64) error
}

// CommentService provides business logic for comments.
type CommentService struct {
	comments CommentRepository
	posts    PostRepository
	now      func() time.Time
}

// NewCommentService creates a new CommentService.
func NewCommentService(comments CommentRepository, posts PostRepository) *CommentService {
	return &CommentService{comments: comments, posts: posts, now: time.Now}
}

// ListComments returns the comments of a post, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID int64) ([]*data.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}

func validateCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		errs := fieldErrors{}
		errs.add("text", "This field is required.")
		return "", errs.err()
	}
	return text, nil
}

// AddComment stores a comment on a post the actor is allowed to see.
func (s *CommentService) AddComment(ctx context.Context, actor Principal, postID int64, text string) (*data.Comment, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrForbidden
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, notFound(err)
	}
	if !CanView(post, actor, s.now().UTC()) {
		return nil, ErrNotFound
	}
	text, err = validateCommentText(text)
	if err != nil {
		return nil, err
	}

	comment := &data.Comment{
		Text:           text,
		CreatedAt:      s.now().UTC().Truncate(time.Second),
		PostID:         post.ID,
		AuthorID:       actor.UserID,
		AuthorUsername: actor.Username,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// loadOwned fetches a comment that belongs to postID and applies the
// ownership check. A comment addressed through the wrong post is not found.
func (s *CommentService) loadOwned(ctx context.Context, actor Principal, postID, commentID int64) (*data.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, notFound(err)
	}
	if comment.PostID != postID {
		return nil, ErrNotFound
	}
	if err := authorize(actor, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// GetCommentForEdit returns a comment the actor owns.
func (s *CommentService) GetCommentForEdit(ctx context.Context, actor Principal, postID, commentID int64) (*data.Comment, error) {
	return s.loadOwned(ctx, actor, postID, commentID)
}

// UpdateComment replaces the text of a comment the actor owns.
func (s *CommentService) UpdateComment(ctx context.Context, actor Principal, postID, commentID int64, text string) (*data.Comment, error) {
	comment, err := s.loadOwned(ctx, actor, postID, commentID)
	if err != nil {
		return nil, err
	}
	text, err = validateCommentText(text)
	if err != nil {
		return nil, err
	}
	if err := s.comments.UpdateText(ctx, comment.ID, text); err != nil {
		return nil, notFound(err)
	}
	comment.Text = text
	return comment, nil
}

// DeleteComment removes a comment the actor owns.
func (s *CommentService) DeleteComment(ctx context.Context, actor Principal, postID, commentID int64) error {
	comment, err := s.loadOwned(ctx, actor, postID, commentID)
	if err != nil {
		return err
	}
	return notFound(s.comments.Delete(ctx, comment.ID))
}
