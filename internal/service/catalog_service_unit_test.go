//go:build unit

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCatalogService_Categories(t *testing.T) {
	store := newMemStore()
	svc := NewCatalogService(memCategories{store}, memLocations{store})
	svc.now = fixedClock
	ctx := context.Background()

	news, err := svc.CreateCategory(ctx, CategoryInput{Title: "News", Description: "Daily news", Slug: "news", IsPublished: true})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if news.ID == 0 || !news.CreatedAt.Equal(testNow) {
		t.Errorf("unexpected category: %+v", news)
	}

	_, err = svc.CreateCategory(ctx, CategoryInput{Title: "Dup", Description: "d", Slug: "news"})
	if ve, ok := AsValidation(err); !ok || ve.Fields["slug"] == "" {
		t.Errorf("expected duplicate slug error, got %v", err)
	}
	_, err = svc.CreateCategory(ctx, CategoryInput{Title: "Bad", Description: "d", Slug: "no spaces!"})
	if ve, ok := AsValidation(err); !ok || ve.Fields["slug"] == "" {
		t.Errorf("expected invalid slug error, got %v", err)
	}
	_, err = svc.CreateCategory(ctx, CategoryInput{Title: "Long", Description: "d", Slug: strings.Repeat("a", 65)})
	if ve, ok := AsValidation(err); !ok || ve.Fields["slug"] != "Ensure this value has at most 64 characters." {
		t.Errorf("expected slug length error, got %v", err)
	}
	if _, err := svc.CreateCategory(ctx, CategoryInput{Title: "Edge", Description: "d", Slug: strings.Repeat("a", 64)}); err != nil {
		t.Errorf("a 64 character slug should be accepted, got %v", err)
	}

	// Keeping its own slug is not a conflict.
	updated, err := svc.UpdateCategory(ctx, news.ID, CategoryInput{Title: "World news", Description: "d", Slug: "news"})
	if err != nil {
		t.Fatalf("UpdateCategory failed: %v", err)
	}
	if updated.Title != "World news" || updated.IsPublished {
		t.Errorf("unexpected update: %+v", updated)
	}

	author := store.addUser("alice")
	post := store.addPost(author, news, true, testNow.Add(-time.Hour))
	if err := svc.DeleteCategory(ctx, news.ID); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	if store.posts[post.ID] == nil || store.posts[post.ID].CategoryID != nil {
		t.Error("post must survive category deletion without a category")
	}
	if _, err := svc.GetCategory(ctx, news.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogService_Locations(t *testing.T) {
	store := newMemStore()
	svc := NewCatalogService(memCategories{store}, memLocations{store})
	ctx := context.Background()

	if _, err := svc.CreateLocation(ctx, LocationInput{Name: "  "}); err == nil {
		t.Error("expected validation error for blank name")
	}
	loc, err := svc.CreateLocation(ctx, LocationInput{Name: "Paris", IsPublished: true})
	if err != nil {
		t.Fatalf("CreateLocation failed: %v", err)
	}
	if _, err := svc.UpdateLocation(ctx, loc.ID, LocationInput{Name: "Lyon"}); err != nil {
		t.Fatalf("UpdateLocation failed: %v", err)
	}
	all, err := svc.ListLocations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Name != "Lyon" || all[0].IsPublished {
		t.Errorf("unexpected locations: %+v", all)
	}
	if err := svc.DeleteLocation(ctx, loc.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteLocation(ctx, loc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
