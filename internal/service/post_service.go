package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go-blog-app/internal/data"
	"go-blog-app/internal/logger"
)

// PostRepository defines the interface for database operations on posts.
type PostRepository interface {
	CreatePost(ctx context.Context, post *data.Post) error
	GetPostByID(ctx context.Context, id int64) (*data.Post, error)
	ListPosts(ctx context.Context, filter data.PostFilter) ([]*data.Post, error)
	CountPosts(ctx context.Context, filter data.PostFilter) (int, error)
	UpdatePost(ctx context.Context, post *data.Post) error
	SetPublished(ctx context.Context, id int64, published bool) error
	DeletePost(ctx context.Context, id int64) error
}

// CategoryRepository defines the interface for database operations on categories.
type CategoryRepository interface {
	GetBySlug(ctx context.Context, slug string) (*data.Category, error)
	GetByID(ctx context.Context, id int64) (*data.Category, error)
	List(ctx context.Context, onlyPublished bool) ([]*data.Category, error)
	Create(ctx context.Context, category *data.Category) (int64, error)
	Update(ctx context.Context, category *data.Category) error
	Delete(ctx context.Context, id int64) error
}

// LocationRepository defines the interface for database operations on locations.
type LocationRepository interface {
	GetByID(ctx context.Context, id int64) (*data.Location, error)
	List(ctx context.Context, onlyPublished bool) ([]*data.Location, error)
	Create(ctx context.Context, location *data.Location) (int64, error)
	Update(ctx context.Context, location *data.Location) error
	Delete(ctx context.Context, id int64) error
}

// ImageRemover deletes stored post images.
type ImageRemover interface {
	Remove(name string) error
}

// PostInput carries the post form fields as submitted.
type PostInput struct {
	Title       string
	Text        string
	PubDate     string
	IsPublished bool
	CategoryID  string
	LocationID  string
	// Image is the stored name of a freshly uploaded image, if any.
	Image      string
	ClearImage bool
}

// pubDateLayouts are the accepted pub_date formats, interpreted as UTC.
var pubDateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

const maxTitleLength = 256

// PostServicer defines the interface for interacting with posts.
type PostServicer interface {
	HomeFeed(ctx context.Context, page int) (*Page[*data.Post], error)
	CategoryFeed(ctx context.Context, slug string, page int) (*data.Category, *Page[*data.Post], error)
	ProfileFeed(ctx context.Context, viewer Principal, username string, page int) (*data.User, *Page[*data.Post], error)
	GetPost(ctx context.Context, viewer Principal, id int64) (*data.Post, error)
	GetPostForEdit(ctx context.Context, actor Principal, id int64) (*data.Post, error)
	CreatePost(ctx context.Context, actor Principal, in PostInput) (*data.Post, error)
	UpdatePost(ctx context.Context, actor Principal, id int64, in PostInput) (*data.Post, error)
	DeletePost(ctx context.Context, actor Principal, id int64) error
	FormChoices(ctx context.Context) ([]*data.Category, []*data.Location, error)
	ListAllPosts(ctx context.Context, page int) (*Page[*data.Post], error)
	SetPostPublished(ctx context.Context, id int64, published bool) error
	Sitemap(ctx context.Context) ([]*data.Post, []*data.Category, error)
}

// PostService provides business logic for feeds, post visibility and post
// ownership.
type PostService struct {
	posts      PostRepository
	categories CategoryRepository
	locations  LocationRepository
	users      UserRepository
	renderer   *Renderer
	images     ImageRemover
	pageSize   int
	now        func() time.Time
	log        logger.Logger
}

// NewPostService creates a new PostService. images may be nil when uploads
// are disabled.
func NewPostService(posts PostRepository, categories CategoryRepository, locations LocationRepository,
	users UserRepository, renderer *Renderer, images ImageRemover, pageSize int, log logger.Logger) *PostService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &PostService{
		posts:      posts,
		categories: categories,
		locations:  locations,
		users:      users,
		renderer:   renderer,
		images:     images,
		pageSize:   pageSize,
		now:        time.Now,
		log:        log,
	}
}

// currentTime is truncated to seconds so it compares cleanly with stored
// DATETIME values.
func (s *PostService) currentTime() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// listPage counts and fetches one page of posts for a filter.
func (s *PostService) listPage(ctx context.Context, filter data.PostFilter, number int) (*Page[*data.Post], error) {
	total, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		return nil, err
	}
	offset, numPages, err := paginate(number, s.pageSize, total)
	if err != nil {
		return nil, err
	}
	filter.Limit = s.pageSize
	filter.Offset = offset
	posts, err := s.posts.ListPosts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[*data.Post]{Items: posts, Number: number, Size: s.pageSize, Total: total, NumPages: numPages}, nil
}

// HomeFeed lists publicly visible posts, newest first.
func (s *PostService) HomeFeed(ctx context.Context, page int) (*Page[*data.Post], error) {
	now := s.currentTime()
	return s.listPage(ctx, data.PostFilter{VisibleAt: &now}, page)
}

// CategoryFeed lists the publicly visible posts of a category. An unpublished
// category is not found for every viewer.
func (s *PostService) CategoryFeed(ctx context.Context, slug string, page int) (*data.Category, *Page[*data.Post], error) {
	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, notFound(err)
	}
	if !category.IsPublished {
		return nil, nil, ErrNotFound
	}
	now := s.currentTime()
	p, err := s.listPage(ctx, data.PostFilter{CategoryID: &category.ID, VisibleAt: &now}, page)
	if err != nil {
		return nil, nil, err
	}
	return category, p, nil
}

// ProfileFeed lists the posts of one author. The author sees all of their
// posts; everybody else sees only the publicly visible ones.
func (s *PostService) ProfileFeed(ctx context.Context, viewer Principal, username string, page int) (*data.User, *Page[*data.Post], error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, notFound(err)
	}
	filter := data.PostFilter{AuthorID: &author.ID}
	if !viewer.Is(author) {
		now := s.currentTime()
		filter.VisibleAt = &now
	}
	p, err := s.listPage(ctx, filter, page)
	if err != nil {
		return nil, nil, err
	}
	return author, p, nil
}

// GetPost returns a post with its rendered body if viewer may see it.
// Hidden posts are reported as ErrNotFound.
func (s *PostService) GetPost(ctx context.Context, viewer Principal, id int64) (*data.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !CanView(post, viewer, s.currentTime()) {
		return nil, ErrNotFound
	}
	if !allPublished(post.Location) {
		post.Location = nil
	}
	if s.renderer != nil {
		html, err := s.renderer.RenderPost(ctx, post.ID, post.Text)
		if err != nil {
			return nil, err
		}
		post.HTMLText = html
	}
	return post, nil
}

// loadOwned fetches a post and applies the ownership check.
func (s *PostService) loadOwned(ctx context.Context, actor Principal, id int64) (*data.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if err := authorize(actor, post); err != nil {
		return nil, err
	}
	return post, nil
}

// GetPostForEdit returns a post the actor owns, for the edit and delete forms.
func (s *PostService) GetPostForEdit(ctx context.Context, actor Principal, id int64) (*data.Post, error) {
	return s.loadOwned(ctx, actor, id)
}

// applyInput validates the form and copies it onto post.
func (s *PostService) applyInput(ctx context.Context, post *data.Post, in PostInput) error {
	errs := fieldErrors{}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		errs.add("title", "This field is required.")
	case utf8.RuneCountInString(title) > maxTitleLength:
		errs.add("title", "Ensure this value has at most 256 characters.")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		errs.add("text", "This field is required.")
	}

	pubDate := s.currentTime()
	if raw := strings.TrimSpace(in.PubDate); raw != "" {
		parsed, ok := parsePubDate(raw)
		if !ok {
			errs.add("pub_date", "Enter a valid date/time.")
		} else {
			pubDate = parsed
		}
	}

	var categoryID *int64
	if raw := strings.TrimSpace(in.CategoryID); raw == "" {
		errs.add("category", "This field is required.")
	} else if id, err := strconv.ParseInt(raw, 10, 64); err != nil {
		errs.add("category", "Select a valid choice.")
	} else if _, err := s.categories.GetByID(ctx, id); err != nil {
		if !errors.Is(err, data.ErrNotFound) {
			return err
		}
		errs.add("category", "Select a valid choice.")
	} else {
		categoryID = &id
	}

	var locationID *int64
	if raw := strings.TrimSpace(in.LocationID); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err != nil {
			errs.add("location", "Select a valid choice.")
		} else if _, err := s.locations.GetByID(ctx, id); err != nil {
			if !errors.Is(err, data.ErrNotFound) {
				return err
			}
			errs.add("location", "Select a valid choice.")
		} else {
			locationID = &id
		}
	}

	if err := errs.err(); err != nil {
		return err
	}

	post.Title = title
	post.Text = text
	post.PubDate = pubDate
	post.IsPublished = in.IsPublished
	post.CategoryID = categoryID
	post.LocationID = locationID
	return nil
}

func parsePubDate(raw string) (time.Time, bool) {
	for _, layout := range pubDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CreatePost validates the form and stores a new post authored by actor.
func (s *PostService) CreatePost(ctx context.Context, actor Principal, in PostInput) (*data.Post, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrForbidden
	}
	post := &data.Post{AuthorID: actor.UserID, AuthorUsername: actor.Username}
	if err := s.applyInput(ctx, post, in); err != nil {
		return nil, err
	}
	post.CreatedAt = s.currentTime()
	post.Image = in.Image

	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost applies the form to a post the actor owns. A non-owner gets
// ErrForbidden and nothing is written.
func (s *PostService) UpdatePost(ctx context.Context, actor Principal, id int64, in PostInput) (*data.Post, error) {
	post, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	oldText := post.Text
	if err := s.applyInput(ctx, post, in); err != nil {
		return nil, err
	}

	oldImage := post.Image
	if in.Image != "" {
		post.Image = in.Image
	} else if in.ClearImage {
		post.Image = ""
	}

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, notFound(err)
	}
	if s.renderer != nil && oldText != post.Text {
		s.renderer.Invalidate(ctx, post.ID, oldText)
	}
	if oldImage != "" && oldImage != post.Image {
		s.removeImage(oldImage)
	}
	return post, nil
}

// DeletePost removes a post the actor owns together with its comments.
func (s *PostService) DeletePost(ctx context.Context, actor Principal, id int64) error {
	post, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, post.ID); err != nil {
		return notFound(err)
	}
	if s.renderer != nil {
		s.renderer.Invalidate(ctx, post.ID, post.Text)
	}
	if post.Image != "" {
		s.removeImage(post.Image)
	}
	return nil
}

// removeImage deletes an image that no post references any more. The post
// change is already stored, so a failure only leaves an orphaned file.
func (s *PostService) removeImage(name string) {
	if s.images == nil {
		return
	}
	if err := s.images.Remove(name); err != nil {
		s.log.Error(err, fmt.Sprintf("Failed to remove image %s", name))
	}
}

// FormChoices returns the published categories and locations offered by the
// post form.
func (s *PostService) FormChoices(ctx context.Context) ([]*data.Category, []*data.Location, error) {
	categories, err := s.categories.List(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	locations, err := s.locations.List(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	return categories, locations, nil
}

// ListAllPosts lists every post regardless of visibility, for moderation.
func (s *PostService) ListAllPosts(ctx context.Context, page int) (*Page[*data.Post], error) {
	return s.listPage(ctx, data.PostFilter{}, page)
}

// SetPostPublished is the moderation switch used by administrators.
func (s *PostService) SetPostPublished(ctx context.Context, id int64, published bool) error {
	return notFound(s.posts.SetPublished(ctx, id, published))
}

// Sitemap returns every publicly visible post and published category.
func (s *PostService) Sitemap(ctx context.Context) ([]*data.Post, []*data.Category, error) {
	now := s.currentTime()
	posts, err := s.posts.ListPosts(ctx, data.PostFilter{VisibleAt: &now})
	if err != nil {
		return nil, nil, err
	}
	categories, err := s.categories.List(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	return posts, categories, nil
}
