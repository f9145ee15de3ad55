// Package media stores article images on local disk or in an S3 bucket.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/antlia/antlia/article"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 80
	// MaxUploadSize caps an uploaded image.
	MaxUploadSize = 10 << 20
	// KeyPrefix is the folder holding article images.
	KeyPrefix = "article-images"
)

var (
	ErrInvalidKey   = errors.New("media: invalid key")
	ErrNotFound     = errors.New("media: object not found")
	ErrAccessDenied = errors.New("media: access denied")
	ErrUnavailable  = errors.New("media: storage unavailable")
	ErrInvalidImage = errors.New("media: invalid image")
)

// Storage persists media objects under slash-separated keys.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// ValidateKey rejects empty, absolute and traversing keys.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// Image describes a stored upload.
type Image struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"`
}

// ProcessImage decodes src, shrinks it to maxImageWidth if wider, and
// re-encodes it as JPEG.
func ProcessImage(src io.Reader) ([]byte, int, int, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

// ImageKey names an upload: article-images/<unix-ms>-<slug>.jpg.
func ImageKey(now time.Time, originalName string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	slug := article.Slugify(base)
	if slug == "" {
		slug = "image"
	}
	return path.Join(KeyPrefix, fmt.Sprintf("%d-%s.jpg", now.UnixMilli(), slug))
}

// Uploader processes and stores article images.
type Uploader struct {
	store Storage
	now   func() time.Time
}

// NewUploader returns an Uploader writing to store.
func NewUploader(store Storage) *Uploader {
	return &Uploader{store: store, now: time.Now}
}

// Upload resizes the image read from src and stores it under a fresh key.
func (u *Uploader) Upload(ctx context.Context, src io.Reader, originalName string) (Image, error) {
	data, w, h, err := ProcessImage(src)
	if err != nil {
		return Image{}, err
	}
	key := ImageKey(u.now(), originalName)
	if err := u.store.Put(ctx, key, data, "image/jpeg"); err != nil {
		return Image{}, fmt.Errorf("store image: %w", err)
	}
	return Image{Key: key, URL: u.store.URL(key), Width: w, Height: h, Size: len(data)}, nil
}

// Delete removes a stored image.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	return u.store.Delete(ctx, key)
}
