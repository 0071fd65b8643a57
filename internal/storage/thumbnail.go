package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// ErrUndecodable means the upload is not a readable JPEG or PNG.
var ErrUndecodable = errors.New("image could not be decoded")

// ErrTooManyPixels means the image header declares more pixels than allowed.
var ErrTooManyPixels = errors.New("image dimensions too large")

// ThumbnailSize bounds the longer edge of generated thumbnails.
const ThumbnailSize = 400

// DefaultMaxPixels is the decode limit used when none is configured.
const DefaultMaxPixels = 50_000_000

// Thumbnail decodes a JPEG or PNG image and returns a JPEG scaled to fit in
// ThumbnailSize x ThumbnailSize. Smaller images keep their size. Images
// declaring more than maxPixels pixels are rejected from their header alone.
func Thumbnail(data []byte, maxPixels int) ([]byte, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	thumb := resize.Thumbnail(ThumbnailSize, ThumbnailSize, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
