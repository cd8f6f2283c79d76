package handler

import (
	"errors"
	"io"
	"net/http"

	"go-blog-app/internal/logger"
	"go-blog-app/internal/media"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"

	"github.com/go-chi/chi/v5"
)

// ImageStore saves and removes uploaded post images.
type ImageStore interface {
	Save(r io.Reader, filename string) (string, error)
	Remove(name string) error
	MaxSize() int64
}

// PostHandler holds the dependencies for the feed and post handlers.
type PostHandler struct {
	pages
	posts    service.PostServicer
	comments service.CommentServicer
	images   ImageStore
	metrics  *middleware.Metrics
}

// NewPostHandler creates a new PostHandler. images may be nil, which
// disables uploads.
func NewPostHandler(ps service.PostServicer, cs service.CommentServicer, images ImageStore, m *middleware.Metrics,
	v *view.View, sm session.Manager, log logger.Logger) *PostHandler {
	return &PostHandler{
		pages:    pages{view: v, log: log, session: sm},
		posts:    ps,
		comments: cs,
		images:   images,
		metrics:  m,
	}
}

// indexHandler renders the home feed.
func (h *PostHandler) indexHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	number, appErr := pageParam(r)
	if appErr != nil {
		return appErr
	}
	page, err := h.posts.HomeFeed(r.Context(), number)
	if err != nil {
		return serviceError(err, "load posts")
	}
	return h.render(w, r, "index.html", map[string]interface{}{"Page": page})
}

// categoryHandler renders the feed of one published category.
func (h *PostHandler) categoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	number, appErr := pageParam(r)
	if appErr != nil {
		return appErr
	}
	category, page, err := h.posts.CategoryFeed(r.Context(), chi.URLParam(r, "slug"), number)
	if err != nil {
		return serviceError(err, "load category")
	}
	return h.render(w, r, "category.html", map[string]interface{}{
		"Category": category,
		"Page":     page,
	})
}

// detailHandler renders a post with its comments and the comment form.
func (h *PostHandler) detailHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	return h.renderDetail(w, r, id, "", nil)
}

func (h *PostHandler) renderDetail(w http.ResponseWriter, r *http.Request, id int64, commentText string, commentErrors map[string]string) *middleware.AppError {
	viewer := middleware.GetUserInfo(r.Context()).Principal()
	post, err := h.posts.GetPost(r.Context(), viewer, id)
	if err != nil {
		return serviceError(err, "load post")
	}
	comments, err := h.comments.ListComments(r.Context(), post.ID)
	if err != nil {
		return serviceError(err, "load comments")
	}
	return h.render(w, r, "detail.html", map[string]interface{}{
		"Post":          post,
		"Comments":      comments,
		"IsOwner":       viewer.Owns(post),
		"CommentText":   commentText,
		"CommentErrors": commentErrors,
	})
}

// renderForm shows the create/edit form with its choices.
func (h *PostHandler) renderForm(w http.ResponseWriter, r *http.Request, form service.PostInput, errs map[string]string, postID int64) *middleware.AppError {
	categories, locations, err := h.posts.FormChoices(r.Context())
	if err != nil {
		return serviceError(err, "load form choices")
	}
	return h.render(w, r, "create.html", map[string]interface{}{
		"Form":       form,
		"Errors":     errs,
		"Categories": categories,
		"Locations":  locations,
		"PostID":     postID,
		"Uploads":    h.images != nil,
	})
}

// readForm parses the post form and stores an uploaded image, if any. Upload
// problems are returned as field errors.
func (h *PostHandler) readForm(w http.ResponseWriter, r *http.Request) (service.PostInput, map[string]string, error) {
	var in service.PostInput
	limit := int64(1 << 20)
	if h.images != nil && h.images.MaxSize() > 0 {
		limit += h.images.MaxSize()
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return in, map[string]string{"image": "The uploaded file is too large."}, nil
		}
		return in, nil, err
	}

	in = service.PostInput{
		Title:       r.PostFormValue("title"),
		Text:        r.PostFormValue("text"),
		PubDate:     r.PostFormValue("pub_date"),
		IsPublished: checked(r, "is_published"),
		CategoryID:  r.PostFormValue("category"),
		LocationID:  r.PostFormValue("location"),
		ClearImage:  checked(r, "image-clear"),
	}
	if h.images == nil || r.MultipartForm == nil {
		return in, nil, nil
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return in, nil, nil
		}
		return in, nil, err
	}
	defer file.Close()

	name, err := h.images.Save(file, header.Filename)
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return in, map[string]string{"image": "Upload a valid image."}, nil
	case errors.Is(err, media.ErrTooLarge):
		return in, map[string]string{"image": "The uploaded file is too large."}, nil
	case err != nil:
		return in, nil, err
	}
	in.Image = name
	return in, nil, nil
}

// discardUpload removes an image stored for a submission that was rejected.
func (h *PostHandler) discardUpload(in service.PostInput) {
	if in.Image != "" && h.images != nil {
		if err := h.images.Remove(in.Image); err != nil {
			h.log.Error(err, "Failed to remove rejected upload")
		}
	}
}

// createHandler shows and processes the new post form.
func (h *PostHandler) createHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if r.Method != http.MethodPost {
		return h.renderForm(w, r, service.PostInput{IsPublished: true}, nil, 0)
	}

	in, uploadErrs, err := h.readForm(w, r)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Bad request", Code: http.StatusBadRequest}
	}
	if len(uploadErrs) > 0 {
		return h.renderForm(w, r, in, uploadErrs, 0)
	}

	user := middleware.GetUserInfo(r.Context())
	post, err := h.posts.CreatePost(r.Context(), user.Principal(), in)
	if err != nil {
		h.discardUpload(in)
		if ve, ok := service.AsValidation(err); ok {
			return h.renderForm(w, r, in, ve.Fields, 0)
		}
		return serviceError(err, "create post")
	}

	h.metrics.PostsCreated.Inc()
	h.log.With(map[string]interface{}{"post_id": post.ID, "author": user.Username}).Info("Post created")
	http.Redirect(w, r, profileURL(user.Username), http.StatusFound)
	return nil
}

// editHandler shows and processes the edit form. Non-owners are sent back
// to the post without any change.
func (h *PostHandler) editHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	actor := middleware.GetUserInfo(r.Context()).Principal()

	post, err := h.posts.GetPostForEdit(r.Context(), actor, id)
	if errors.Is(err, service.ErrForbidden) {
		http.Redirect(w, r, postURL(id), http.StatusFound)
		return nil
	}
	if err != nil {
		return serviceError(err, "load post")
	}

	if r.Method != http.MethodPost {
		return h.renderForm(w, r, formFromPost(post), nil, post.ID)
	}

	in, uploadErrs, err := h.readForm(w, r)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Bad request", Code: http.StatusBadRequest}
	}
	if len(uploadErrs) > 0 {
		in.Image = post.Image
		return h.renderForm(w, r, in, uploadErrs, post.ID)
	}

	if _, err := h.posts.UpdatePost(r.Context(), actor, id, in); err != nil {
		h.discardUpload(in)
		if errors.Is(err, service.ErrForbidden) {
			http.Redirect(w, r, postURL(id), http.StatusFound)
			return nil
		}
		if ve, ok := service.AsValidation(err); ok {
			in.Image = post.Image
			return h.renderForm(w, r, in, ve.Fields, post.ID)
		}
		return serviceError(err, "update post")
	}
	http.Redirect(w, r, postURL(id), http.StatusFound)
	return nil
}

// deleteHandler asks for confirmation on GET and deletes on POST.
func (h *PostHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	user := middleware.GetUserInfo(r.Context())

	post, err := h.posts.GetPostForEdit(r.Context(), user.Principal(), id)
	if errors.Is(err, service.ErrForbidden) {
		http.Redirect(w, r, postURL(id), http.StatusFound)
		return nil
	}
	if err != nil {
		return serviceError(err, "load post")
	}

	if r.Method != http.MethodPost {
		return h.render(w, r, "post_delete.html", map[string]interface{}{"Post": post})
	}

	if err := h.posts.DeletePost(r.Context(), user.Principal(), id); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			http.Redirect(w, r, postURL(id), http.StatusFound)
			return nil
		}
		return serviceError(err, "delete post")
	}
	h.flash(r, "The post was deleted.")
	http.Redirect(w, r, profileURL(user.Username), http.StatusFound)
	return nil
}
