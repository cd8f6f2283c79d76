//go:build integration

package data

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSQLPostRepository_VisibleFilter(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewSQLPostRepository(db)

	author := mustCreateUser(t, db, "alice")
	news := mustCreateCategory(t, db, "news", true)
	hidden := mustCreateCategory(t, db, "hidden", false)
	yesterday := testNow.Add(-24 * time.Hour)
	tomorrow := testNow.Add(24 * time.Hour)

	visible := mustCreatePost(t, db, &Post{Title: "visible", Text: "t", PubDate: yesterday, IsPublished: true, AuthorID: author.ID, CategoryID: &news.ID})
	mustCreatePost(t, db, &Post{Title: "future", Text: "t", PubDate: tomorrow, IsPublished: true, AuthorID: author.ID, CategoryID: &news.ID})
	mustCreatePost(t, db, &Post{Title: "unpublished", Text: "t", PubDate: yesterday, IsPublished: false, AuthorID: author.ID, CategoryID: &news.ID})
	mustCreatePost(t, db, &Post{Title: "hidden category", Text: "t", PubDate: yesterday, IsPublished: true, AuthorID: author.ID, CategoryID: &hidden.ID})
	mustCreatePost(t, db, &Post{Title: "no category", Text: "t", PubDate: yesterday, IsPublished: true, AuthorID: author.ID})

	now := testNow
	filter := PostFilter{VisibleAt: &now}
	posts, err := repo.ListPosts(context.Background(), filter)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != visible.ID {
		t.Fatalf("expected only the visible post, got %d posts", len(posts))
	}
	if posts[0].Category == nil || posts[0].Category.Slug != "news" {
		t.Errorf("expected joined category 'news', got %+v", posts[0].Category)
	}
	if posts[0].AuthorUsername != "alice" {
		t.Errorf("expected author 'alice', got '%s'", posts[0].AuthorUsername)
	}

	count, err := repo.CountPosts(context.Background(), filter)
	if err != nil {
		t.Fatalf("CountPosts failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	all, err := repo.CountPosts(context.Background(), PostFilter{AuthorID: &author.ID})
	if err != nil {
		t.Fatalf("CountPosts failed: %v", err)
	}
	if all != 5 {
		t.Errorf("expected 5 posts for author without visibility filter, got %d", all)
	}
}

func TestSQLPostRepository_OrderingAndPaging(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewSQLPostRepository(db)

	author := mustCreateUser(t, db, "bob")
	for i := 0; i < 3; i++ {
		mustCreatePost(t, db, &Post{Title: string(rune('a' + i)), Text: "t", PubDate: testNow.Add(time.Duration(i) * time.Hour), AuthorID: author.ID})
	}

	page, err := repo.ListPosts(context.Background(), PostFilter{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(page))
	}
	if page[0].Title != "c" || page[1].Title != "b" {
		t.Errorf("expected newest first, got %s, %s", page[0].Title, page[1].Title)
	}

	rest, err := repo.ListPosts(context.Background(), PostFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(rest) != 1 || rest[0].Title != "a" {
		t.Errorf("expected oldest post on second page, got %v", rest)
	}
}

func TestSQLPostRepository_UpdateAndDelete(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewSQLPostRepository(db)

	author := mustCreateUser(t, db, "carol")
	post := mustCreatePost(t, db, &Post{Title: "draft", Text: "t", PubDate: testNow, AuthorID: author.ID})

	post.Title = "final"
	post.IsPublished = true
	if err := repo.UpdatePost(context.Background(), post); err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	found, err := repo.GetPostByID(context.Background(), post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if found.Title != "final" || !found.IsPublished {
		t.Errorf("update not persisted: %+v", found)
	}

	if err := repo.SetPublished(context.Background(), post.ID, false); err != nil {
		t.Fatalf("SetPublished failed: %v", err)
	}
	found, _ = repo.GetPostByID(context.Background(), post.ID)
	if found.IsPublished {
		t.Error("expected post to be unpublished")
	}

	if err := repo.DeletePost(context.Background(), post.ID); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := repo.GetPostByID(context.Background(), post.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeletePost(context.Background(), post.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestSQLPostRepository_AuthorDeletionCascades(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()

	author := mustCreateUser(t, db, "dave")
	post := mustCreatePost(t, db, &Post{Title: "bye", Text: "t", PubDate: testNow, AuthorID: author.ID})

	if err := NewUserRepository(db).Delete(context.Background(), author.ID); err != nil {
		t.Fatalf("failed to delete user: %v", err)
	}
	if _, err := NewSQLPostRepository(db).GetPostByID(context.Background(), post.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected post to be deleted with its author, got %v", err)
	}
}
