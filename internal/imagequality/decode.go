package imagequality

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds the decoded size of an image. A small compressed file can
// declare dimensions whose pixel buffer would exhaust memory.
const MaxPixels = 40_000_000

var ErrTooManyPixels = errors.New("image dimensions exceed the pixel limit")

// Decode reads a JPEG, PNG or WebP image and applies its EXIF orientation.
// The header is checked against MaxPixels before any pixels are decoded.
func Decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooManyPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// AnalyzeBytes decodes data and analyzes the result. Decode failures are returned as errors.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, data []byte, opts Options) (Result, error) {
	img, err := Decode(data)
	if err != nil {
		return Result{}, err
	}
	return a.Analyze(ctx, img, opts), nil
}

// Thumbnail renders a JPEG preview that fits inside a size x size box.
func Thumbnail(img image.Image, size int) ([]byte, error) {
	thumb := imaging.Fit(img, size, size, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
