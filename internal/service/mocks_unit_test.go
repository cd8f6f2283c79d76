//go:build unit

package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go-blog-app/internal/data"
	"go-blog-app/internal/logger"
)

// memStore is an in-memory stand-in for the SQL repositories. It keeps the
// joins the repositories perform (author username, category, location and
// comment count) so visibility rules can be checked without a database.
type memStore struct {
	users      map[int64]*data.User
	categories map[int64]*data.Category
	locations  map[int64]*data.Location
	posts      map[int64]*data.Post
	comments   map[int64]*data.Comment
	nextID     int64

	errToReturn error
	writes      int
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[int64]*data.User{},
		categories: map[int64]*data.Category{},
		locations:  map[int64]*data.Location{},
		posts:      map[int64]*data.Post{},
		comments:   map[int64]*data.Comment{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func notFoundErr(entity string, key interface{}) error {
	return fmt.Errorf("%s %v: %w", entity, key, data.ErrNotFound)
}

// ---- posts ----

type memPosts struct{ *memStore }

var _ PostRepository = memPosts{}

func (m memPosts) join(p *data.Post) *data.Post {
	out := *p
	if u, ok := m.users[p.AuthorID]; ok {
		out.AuthorUsername = u.Username
	}
	out.Category, out.Location = nil, nil
	if p.CategoryID != nil {
		if c, ok := m.categories[*p.CategoryID]; ok {
			cc := *c
			out.Category = &cc
		}
	}
	if p.LocationID != nil {
		if l, ok := m.locations[*p.LocationID]; ok {
			ll := *l
			out.Location = &ll
		}
	}
	out.CommentCount = 0
	for _, c := range m.comments {
		if c.PostID == p.ID {
			out.CommentCount++
		}
	}
	return &out
}

func (m memPosts) CreatePost(ctx context.Context, post *data.Post) error {
	if m.errToReturn != nil {
		return m.errToReturn
	}
	m.writes++
	post.ID = m.id()
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m memPosts) GetPostByID(ctx context.Context, id int64) (*data.Post, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, notFoundErr("post", id)
	}
	return m.join(p), nil
}

func (m memPosts) match(p *data.Post, f data.PostFilter) bool {
	if f.AuthorID != nil && p.AuthorID != *f.AuthorID {
		return false
	}
	if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
		return false
	}
	if f.VisibleAt != nil && !PubliclyVisible(m.join(p), *f.VisibleAt) {
		return false
	}
	return true
}

func (m memPosts) ListPosts(ctx context.Context, f data.PostFilter) ([]*data.Post, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	var out []*data.Post
	for _, p := range m.posts {
		if m.match(p, f) {
			out = append(out, m.join(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PubDate.Equal(out[j].PubDate) {
			return out[i].PubDate.After(out[j].PubDate)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		end := f.Offset + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[f.Offset:end]
	}
	return out, nil
}

func (m memPosts) CountPosts(ctx context.Context, f data.PostFilter) (int, error) {
	f.Limit, f.Offset = 0, 0
	posts, err := m.ListPosts(ctx, f)
	return len(posts), err
}

func (m memPosts) UpdatePost(ctx context.Context, post *data.Post) error {
	if _, ok := m.posts[post.ID]; !ok {
		return notFoundErr("post", post.ID)
	}
	m.writes++
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m memPosts) SetPublished(ctx context.Context, id int64, published bool) error {
	p, ok := m.posts[id]
	if !ok {
		return notFoundErr("post", id)
	}
	m.writes++
	p.IsPublished = published
	return nil
}

func (m memPosts) DeletePost(ctx context.Context, id int64) error {
	if _, ok := m.posts[id]; !ok {
		return notFoundErr("post", id)
	}
	m.writes++
	delete(m.posts, id)
	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

// ---- categories ----

type memCategories struct{ *memStore }

var _ CategoryRepository = memCategories{}

func (m memCategories) GetBySlug(ctx context.Context, slug string) (*data.Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			cc := *c
			return &cc, nil
		}
	}
	return nil, notFoundErr("category", slug)
}

func (m memCategories) GetByID(ctx context.Context, id int64) (*data.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, notFoundErr("category", id)
	}
	cc := *c
	return &cc, nil
}

func (m memCategories) List(ctx context.Context, onlyPublished bool) ([]*data.Category, error) {
	var out []*data.Category
	for _, c := range m.categories {
		if !onlyPublished || c.IsPublished {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m memCategories) Create(ctx context.Context, c *data.Category) (int64, error) {
	m.writes++
	c.ID = m.id()
	stored := *c
	m.categories[c.ID] = &stored
	return c.ID, nil
}

func (m memCategories) Update(ctx context.Context, c *data.Category) error {
	if _, ok := m.categories[c.ID]; !ok {
		return notFoundErr("category", c.ID)
	}
	m.writes++
	stored := *c
	m.categories[c.ID] = &stored
	return nil
}

func (m memCategories) Delete(ctx context.Context, id int64) error {
	if _, ok := m.categories[id]; !ok {
		return notFoundErr("category", id)
	}
	m.writes++
	delete(m.categories, id)
	for _, p := range m.posts {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
		}
	}
	return nil
}

// ---- locations ----

type memLocations struct{ *memStore }

var _ LocationRepository = memLocations{}

func (m memLocations) GetByID(ctx context.Context, id int64) (*data.Location, error) {
	l, ok := m.locations[id]
	if !ok {
		return nil, notFoundErr("location", id)
	}
	ll := *l
	return &ll, nil
}

func (m memLocations) List(ctx context.Context, onlyPublished bool) ([]*data.Location, error) {
	var out []*data.Location
	for _, l := range m.locations {
		if !onlyPublished || l.IsPublished {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memLocations) Create(ctx context.Context, l *data.Location) (int64, error) {
	m.writes++
	l.ID = m.id()
	stored := *l
	m.locations[l.ID] = &stored
	return l.ID, nil
}

func (m memLocations) Update(ctx context.Context, l *data.Location) error {
	if _, ok := m.locations[l.ID]; !ok {
		return notFoundErr("location", l.ID)
	}
	m.writes++
	stored := *l
	m.locations[l.ID] = &stored
	return nil
}

func (m memLocations) Delete(ctx context.Context, id int64) error {
	if _, ok := m.locations[id]; !ok {
		return notFoundErr("location", id)
	}
	m.writes++
	delete(m.locations, id)
	return nil
}

// ---- comments ----

type memComments struct{ *memStore }

var _ CommentRepository = memComments{}

func (m memComments) Create(ctx context.Context, c *data.Comment) error {
	m.writes++
	c.ID = m.id()
	stored := *c
	m.comments[c.ID] = &stored
	return nil
}

func (m memComments) GetByID(ctx context.Context, id int64) (*data.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, notFoundErr("comment", id)
	}
	cc := *c
	return &cc, nil
}

func (m memComments) ListByPost(ctx context.Context, postID int64) ([]*data.Comment, error) {
	var out []*data.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m memComments) UpdateText(ctx context.Context, id int64, text string) error {
	c, ok := m.comments[id]
	if !ok {
		return notFoundErr("comment", id)
	}
	m.writes++
	c.Text = text
	return nil
}

func (m memComments) Delete(ctx context.Context, id int64) error {
	if _, ok := m.comments[id]; !ok {
		return notFoundErr("comment", id)
	}
	m.writes++
	delete(m.comments, id)
	return nil
}

// ---- users ----

type memUsers struct{ *memStore }

var _ UserRepository = memUsers{}

func (m memUsers) GetByID(ctx context.Context, id int64) (*data.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, notFoundErr("user", id)
	}
	uu := *u
	return &uu, nil
}

func (m memUsers) GetByUsername(ctx context.Context, username string) (*data.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			uu := *u
			return &uu, nil
		}
	}
	return nil, notFoundErr("user", username)
}

func (m memUsers) GetByExternalID(ctx context.Context, externalID string) (*data.User, error) {
	for _, u := range m.users {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			uu := *u
			return &uu, nil
		}
	}
	return nil, notFoundErr("user", externalID)
}

func (m memUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.GetByUsername(ctx, username)
	return err == nil, nil
}

func (m memUsers) Create(ctx context.Context, u *data.User) error {
	m.writes++
	u.ID = m.id()
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m memUsers) UpdateProfile(ctx context.Context, u *data.User) error {
	stored, ok := m.users[u.ID]
	if !ok {
		return notFoundErr("user", u.ID)
	}
	m.writes++
	stored.FirstName, stored.LastName, stored.Email = u.FirstName, u.LastName, u.Email
	return nil
}

func (m memUsers) UpdatePassword(ctx context.Context, id int64, hash string) error {
	stored, ok := m.users[id]
	if !ok {
		return notFoundErr("user", id)
	}
	m.writes++
	stored.PasswordHash = hash
	return nil
}

// mockImageRemover records removed image names.
type mockImageRemover struct {
	removed []string
	err     error
}

var _ ImageRemover = (*mockImageRemover)(nil)

func (m *mockImageRemover) Remove(name string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, name)
	return nil
}

// mockCache is a map-backed Cache. deleteErr makes Delete fail.
type mockCache struct {
	items     map[string][]byte
	sets      int
	deleteErr error
}

var _ Cache = (*mockCache)(nil)

func newMockCache() *mockCache { return &mockCache{items: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) { return m.items[key], nil }

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.sets++
	m.items[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.items, key)
	return nil
}

func (m *mockCache) TTL() time.Duration { return time.Hour }

// recordingLogger keeps the messages passed to Error.
type recordingLogger struct {
	errors []string
}

var _ logger.Logger = (*recordingLogger)(nil)

func (l *recordingLogger) Debug(msg string)                                 {}
func (l *recordingLogger) Info(msg string)                                  {}
func (l *recordingLogger) Warn(msg string)                                  {}
func (l *recordingLogger) Error(err error, msg string)                      { l.errors = append(l.errors, msg) }
func (l *recordingLogger) Fatal(err error, msg string)                      { l.errors = append(l.errors, msg) }
func (l *recordingLogger) With(fields map[string]interface{}) logger.Logger { return l }

// ---- fixture helpers ----

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func (m *memStore) addUser(username string) *data.User {
	u := &data.User{ID: m.id(), Username: username, CreatedAt: testNow}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addCategory(slug string, published bool) *data.Category {
	c := &data.Category{ID: m.id(), Title: slug, Description: slug, Slug: slug, IsPublished: published, CreatedAt: testNow}
	m.categories[c.ID] = c
	return c
}

func (m *memStore) addLocation(name string, published bool) *data.Location {
	l := &data.Location{ID: m.id(), Name: name, IsPublished: published, CreatedAt: testNow}
	m.locations[l.ID] = l
	return l
}

func (m *memStore) addPost(author *data.User, category *data.Category, published bool, pubDate time.Time) *data.Post {
	p := &data.Post{
		ID:          m.id(),
		Title:       fmt.Sprintf("post %d", m.nextID),
		Text:        "body",
		PubDate:     pubDate,
		IsPublished: published,
		CreatedAt:   testNow,
		AuthorID:    author.ID,
	}
	if category != nil {
		id := category.ID
		p.CategoryID = &id
	}
	m.posts[p.ID] = p
	return p
}

func (m *memStore) addComment(post *data.Post, author *data.User, text string, at time.Time) *data.Comment {
	c := &data.Comment{ID: m.id(), Text: text, CreatedAt: at, PostID: post.ID, AuthorID: author.ID, AuthorUsername: author.Username}
	m.comments[c.ID] = c
	return c
}

func principalOf(u *data.User) Principal {
	return Principal{UserID: u.ID, Username: u.Username}
}

func fixedClock() time.Time { return testNow }

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
