package handler

import (
	"errors"
	"net/http"

	"go-blog-app/internal/logger"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"
)

// CommentHandler holds the dependencies for the comment handlers.
type CommentHandler struct {
	pages
	comments service.CommentServicer
	posts    *PostHandler
	metrics  *middleware.Metrics
}

// NewCommentHandler creates a new CommentHandler. The post handler renders
// the detail page when a new comment is rejected.
func NewCommentHandler(cs service.CommentServicer, ph *PostHandler, m *middleware.Metrics,
	v *view.View, sm session.Manager, log logger.Logger) *CommentHandler {
	return &CommentHandler{
		pages:    pages{view: v, log: log, session: sm},
		comments: cs,
		posts:    ph,
		metrics:  m,
	}
}

// addHandler stores a new comment and returns to the post.
func (h *CommentHandler) addHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	postID, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	text := r.PostFormValue("text")
	actor := middleware.GetUserInfo(r.Context()).Principal()

	if _, err := h.comments.AddComment(r.Context(), actor, postID, text); err != nil {
		if ve, ok := service.AsValidation(err); ok {
			return h.posts.renderDetail(w, r, postID, text, ve.Fields)
		}
		return serviceError(err, "add comment")
	}
	h.metrics.CommentsCreated.Inc()
	http.Redirect(w, r, postURL(postID), http.StatusFound)
	return nil
}

// editHandler shows and processes the comment edit form. Non-owners are sent
// back to the post without any change.
func (h *CommentHandler) editHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	postID, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	commentID, appErr := idParam(r, "cid")
	if appErr != nil {
		return appErr
	}
	actor := middleware.GetUserInfo(r.Context()).Principal()

	comment, err := h.comments.GetCommentForEdit(r.Context(), actor, postID, commentID)
	if errors.Is(err, service.ErrForbidden) {
		http.Redirect(w, r, postURL(postID), http.StatusFound)
		return nil
	}
	if err != nil {
		return serviceError(err, "load comment")
	}

	if r.Method != http.MethodPost {
		return h.render(w, r, "comment.html", map[string]interface{}{"Comment": comment, "Text": comment.Text})
	}

	text := r.PostFormValue("text")
	if _, err := h.comments.UpdateComment(r.Context(), actor, postID, commentID, text); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			http.Redirect(w, r, postURL(postID), http.StatusFound)
			return nil
		}
		if ve, ok := service.AsValidation(err); ok {
			return h.render(w, r, "comment.html", map[string]interface{}{
				"Comment": comment,
				"Text":    text,
				"Errors":  ve.Fields,
			})
		}
		return serviceError(err, "update comment")
	}
	http.Redirect(w, r, postURL(postID), http.StatusFound)
	return nil
}

// deleteHandler removes a comment. Non-owners are sent back to the post and
// the comment stays.
func (h *CommentHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	postID, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	commentID, appErr := idParam(r, "cid")
	if appErr != nil {
		return appErr
	}
	actor := middleware.GetUserInfo(r.Context()).Principal()

	err := h.comments.DeleteComment(r.Context(), actor, postID, commentID)
	switch {
	case err == nil:
		h.flash(r, "The comment was deleted.")
	case errors.Is(err, service.ErrForbidden):
		h.log.With(map[string]interface{}{"comment_id": commentID, "user": actor.Username}).Warn("Comment delete denied")
	default:
		return serviceError(err, "delete comment")
	}
	http.Redirect(w, r, postURL(postID), http.StatusFound)
	return nil
}
