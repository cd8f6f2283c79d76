package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned for uploads whose extension is not an image.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrTooLarge is returned for uploads above the configured size limit.
	ErrTooLarge = errors.New("image too large")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Store keeps uploaded post images on local disk under random names.
type Store struct {
	dir     string
	maxSize int64
}

// NewStore creates the media directory if needed.
func NewStore(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "posts"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{dir: dir, maxSize: maxSize}, nil
}

// Dir is the root directory served under /media/.
func (s *Store) Dir() string {
	return s.dir
}

// MaxSize is the upload limit in bytes.
func (s *Store) MaxSize() int64 {
	return s.maxSize
}

// Save copies an upload into the store and returns its path relative to Dir.
func (s *Store) Save(r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%q: %w", filename, ErrUnsupportedType)
	}

	name := filepath.ToSlash(filepath.Join("posts", uuid.NewString()+ext))
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = fmt.Errorf("image exceeds %d bytes: %w", s.maxSize, ErrTooLarge)
	}
	if err != nil {
		os.Remove(filepath.Join(s.dir, name))
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return name, nil
}

// Remove deletes a stored image. Missing files are ignored.
func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}
