package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoOCR is returned when an image extractor has no OCR engine.
var ErrNoOCR = errors.New("no OCR engine configured")

// OCR recognizes text in a decoded raster image.
type OCR interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Image decodes a raster image and runs it through OCR unmodified. The
// decoder sniffs the content, so a BMP, TIFF or WebP saved under a .png
// name still decodes.
type Image struct {
	OCR      OCR
	MaxBytes int64
}

// Extract returns the OCR text of the image.
func (e Image) Extract(ctx context.Context, r io.Reader) (string, error) {
	if e.OCR == nil {
		return "", ErrNoOCR
	}
	data, err := readLimited(r, e.MaxBytes)
	if err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}

	text, err := e.OCR.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}
