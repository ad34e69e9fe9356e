package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// Keep pdfcpu from creating a configuration directory in $HOME.
	api.DisableConfigDir()
}

// PDF extracts the text of every page in ascending page order.
type PDF struct {
	MaxBytes int64
}

// Extract concatenates page texts with no separator between pages.
func (p PDF) Extract(ctx context.Context, r io.Reader) (string, error) {
	data, err := readLimited(r, p.MaxBytes)
	if err != nil {
		return "", err
	}

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	var sb strings.Builder
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := pageText(pdfCtx, pageNr)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", pageNr, err)
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func pageText(pdfCtx *model.Context, pageNr int) (string, error) {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return textFromContentStream(data), nil
}
