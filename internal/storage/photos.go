package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	MaxPhotoBytes = 10 << 20
	// MaxPhotoSide bounds each dimension so decoding stays within memory.
	MaxPhotoSide   = 8000
	ThumbnailWidth = 320
)

var (
	ErrUnsupportedImage = errors.New("photo must be a JPEG or PNG image")
	ErrPhotoTooLarge    = errors.New("photo exceeds 10MB")
	ErrPhotoDimensions  = errors.New("photo exceeds 8000x8000 pixels")
)

type Stored struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// photoPrefix starts every object key written by Store.
const photoPrefix = "photos/"

// Photos stores a full-size photo and a JPEG thumbnail side by side.
type Photos struct {
	provider Provider
}

func NewPhotos(p Provider) *Photos {
	return &Photos{provider: p}
}

func (s *Photos) Store(ctx context.Context, challengeID uuid.UUID, date string, data []byte) (Stored, error) {
	if len(data) > MaxPhotoBytes {
		return Stored{}, ErrPhotoTooLarge
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Stored{}, ErrUnsupportedImage
	}
	if cfg.Width > MaxPhotoSide || cfg.Height > MaxPhotoSide {
		return Stored{}, fmt.Errorf("%w: %dx%d", ErrPhotoDimensions, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Stored{}, ErrUnsupportedImage
	}

	contentType := "image/jpeg"
	ext := "jpg"
	if format == "png" {
		contentType = "image/png"
		ext = "png"
	}

	thumb, err := Thumbnail(img, ThumbnailWidth)
	if err != nil {
		return Stored{}, err
	}

	base := fmt.Sprintf("%s%s/%s-%s", photoPrefix, challengeID, date, uuid.NewString())
	key := base + "." + ext

	url, err := s.provider.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return Stored{}, err
	}

	thumbURL, err := s.provider.Upload(ctx, base+"_thumb.jpg", bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg")
	if err != nil {
		if derr := s.provider.Delete(ctx, key); derr != nil {
			return Stored{}, errors.Join(err, fmt.Errorf("remove %s: %w", key, derr))
		}
		return Stored{}, err
	}

	return Stored{URL: url, ThumbnailURL: thumbURL}, nil
}

// Delete removes the objects behind urls previously returned by Store.
// URLs that do not point at a stored photo are ignored.
func (s *Photos) Delete(ctx context.Context, urls ...string) error {
	var errs []error
	for _, u := range urls {
		key, ok := KeyFromURL(u)
		if !ok {
			continue
		}
		if err := s.provider.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// KeyFromURL recovers the object key from a public photo URL of either
// provider.
func KeyFromURL(url string) (string, bool) {
	i := strings.Index(url, "/"+photoPrefix)
	if i < 0 {
		return "", false
	}
	return url[i+1:], true
}

// Thumbnail scales img to width, keeping the aspect ratio, and encodes it as
// JPEG. Images narrower than width are re-encoded at their own size.
func Thumbnail(img image.Image, width int) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, ErrUnsupportedImage
	}
	if w > width {
		h = h * width / w
		if h < 1 {
			h = 1
		}
		w = width
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
