package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/snapscape/internal/service"
)

const thumbnailPrefix = "thumbs/"

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// ImageStore uploads photos and their thumbnails and builds public URLs for
// them. Object keys never change once written.
type ImageStore struct {
	objects ObjectStore
	baseURL string

	// MaxPixels caps width*height of accepted uploads; zero means
	// DefaultMaxPixels.
	MaxPixels int
}

func NewImageStore(objects ObjectStore, publicBaseURL string) *ImageStore {
	return &ImageStore{objects: objects, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// URL returns the public address of key.
func (s *ImageStore) URL(key string) string {
	return s.baseURL + "/" + key
}

// Upload stores data under prefix/<uuid><ext> and a JPEG thumbnail under
// thumbs/prefix/<uuid><ext>. If the thumbnail cannot be produced or stored
// the original is removed again.
func (s *ImageStore) Upload(ctx context.Context, prefix string, data []byte, contentType string) (service.StoredImage, error) {
	thumb, err := Thumbnail(data, s.MaxPixels)
	if errors.Is(err, ErrUndecodable) || errors.Is(err, ErrTooManyPixels) {
		return service.StoredImage{}, fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	if err != nil {
		return service.StoredImage{}, err
	}
	key := path.Join(prefix, uuid.NewString()+extensions[contentType])
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return service.StoredImage{}, err
	}
	thumbKey := thumbnailPrefix + key
	if err := s.objects.Put(ctx, thumbKey, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err != nil {
		_ = s.objects.Delete(ctx, key)
		return service.StoredImage{}, err
	}
	return service.StoredImage{Key: key, URL: s.URL(key), ThumbnailURL: s.URL(thumbKey)}, nil
}

// Remove deletes an original and its thumbnail, attempting both.
func (s *ImageStore) Remove(ctx context.Context, key string) error {
	return errors.Join(
		s.objects.Delete(ctx, key),
		s.objects.Delete(ctx, thumbnailPrefix+key),
	)
}
