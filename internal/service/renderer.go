package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"html/template"
	"time"

	"go-blog-app/internal/logger"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Cache stores rendered post bodies.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	TTL() time.Duration
}

// Renderer turns markdown post text into sanitized HTML.
type Renderer struct {
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
	cache     Cache
	log       logger.Logger
}

// NewRenderer creates a Renderer. cache may be nil.
func NewRenderer(cache Cache, log logger.Logger) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &Renderer{
		markdown: md,
		// UGCPolicy keeps basic formatting such as links, lists and
		// emphasis while stripping anything executable.
		sanitizer: bluemonday.UGCPolicy(),
		cache:     cache,
		log:       log,
	}
}

// postCacheKey includes a digest of the source text, so an edited post never
// hits the entry of its previous text even if that entry was not dropped.
func postCacheKey(id int64, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("post:%d:%x", id, sum[:8])
}

// RenderMarkdown converts markdown to sanitized HTML without caching.
func (r *Renderer) RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(r.sanitizer.SanitizeBytes(buf.Bytes())), nil
}

// RenderPost returns the HTML body of a post, using the cache when available.
// Cache failures are logged and only cost a re-render.
func (r *Renderer) RenderPost(ctx context.Context, id int64, text string) (template.HTML, error) {
	key := postCacheKey(id, text)
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, key)
		if err != nil {
			r.log.Error(err, fmt.Sprintf("Failed to read cached HTML of post %d", id))
		} else if cached != nil {
			return template.HTML(cached), nil
		}
	}

	out, err := r.RenderMarkdown(text)
	if err != nil {
		return "", err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, key, []byte(out), r.cache.TTL()); err != nil {
			r.log.Error(err, fmt.Sprintf("Failed to cache HTML of post %d", id))
		}
	}
	return out, nil
}

// Invalidate drops the cached HTML rendered from text. A failure is logged;
// the orphaned entry expires with the cache TTL.
func (r *Renderer) Invalidate(ctx context.Context, id int64, text string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, postCacheKey(id, text)); err != nil {
		r.log.Error(err, fmt.Sprintf("Failed to drop cached HTML of post %d", id))
	}
}
