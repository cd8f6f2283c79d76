package handler

import (
	"strconv"

	"go-blog-app/internal/data"
	"go-blog-app/internal/service"
)

// formFromPost fills the post form with the stored values.
func formFromPost(post *data.Post) service.PostInput {
	in := service.PostInput{
		Title:       post.Title,
		Text:        post.Text,
		PubDate:     post.PubDate.UTC().Format("2006-01-02T15:04"),
		IsPublished: post.IsPublished,
		Image:       post.Image,
	}
	if post.CategoryID != nil {
		in.CategoryID = strconv.FormatInt(*post.CategoryID, 10)
	}
	if post.LocationID != nil {
		in.LocationID = strconv.FormatInt(*post.LocationID, 10)
	}
	return in
}
