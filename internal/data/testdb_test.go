//go:build integration

package data

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an isolated in-memory SQLite database with every
// migration applied. It returns the handle and a teardown function.
func setupTestDB(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to connect to sqlite test database: %v", err)
	}
	// Every pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	files, err := filepath.Glob("../../migrations/sqlite3/*.up.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("Failed to find migrations: %v", err)
	}
	sort.Strings(files)
	for _, f := range files {
		schema, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", f, err)
		}
		db.MustExec(string(schema))
	}

	return db, func() { db.Close() }
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func mustCreateUser(t *testing.T, db *sqlx.DB, username string) *User {
	t.Helper()
	user := &User{Username: username, CreatedAt: testNow}
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func mustCreateCategory(t *testing.T, db *sqlx.DB, slug string, published bool) *Category {
	t.Helper()
	category := &Category{Title: slug, Description: "about " + slug, Slug: slug, IsPublished: published, CreatedAt: testNow}
	if _, err := NewCategoryRepository(db).Create(context.Background(), category); err != nil {
		t.Fatalf("failed to create category %s: %v", slug, err)
	}
	return category
}

func mustCreatePost(t *testing.T, db *sqlx.DB, post *Post) *Post {
	t.Helper()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = testNow
	}
	if err := NewSQLPostRepository(db).CreatePost(context.Background(), post); err != nil {
		t.Fatalf("failed to create post %q: %v", post.Title, err)
	}
	return post
}
