package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxDocumentXML bounds the decompressed size of word/document.xml.
const maxDocumentXML = 256 << 20

// ErrNoDocumentPart is returned for a zip archive without word/document.xml.
var ErrNoDocumentPart = errors.New("word/document.xml not found in archive")

// DOCX extracts body paragraphs from a WordprocessingML package.
type DOCX struct {
	MaxBytes int64
}

// Extract joins every body paragraph with a single newline, keeping empty
// paragraphs. Paragraphs inside tables and text boxes are not body
// paragraphs and are skipped.
func (d DOCX) Extract(ctx context.Context, r io.Reader) (string, error) {
	data, err := readLimited(r, d.MaxBytes)
	if err != nil {
		return "", err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return "", ErrNoDocumentPart
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	paragraphs, err := bodyParagraphs(ctx, io.LimitReader(rc, maxDocumentXML))
	if err != nil {
		return "", err
	}
	return strings.Join(paragraphs, "\n"), nil
}

func bodyParagraphs(ctx context.Context, r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		stack      []string
		inBodyPara bool
		inText     bool
		skipDepth  int // >0 while inside a table or text box
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			stack = append(stack, name)

			switch {
			case name == "tbl" || name == "txbxContent":
				skipDepth++
			case skipDepth > 0:
			case name == "p" && parent == "body":
				inBodyPara = true
				current.Reset()
			case !inBodyPara:
			case name == "t":
				inText = true
			case name == "tab" && parent == "r":
				current.WriteByte('\t')
			case (name == "br" || name == "cr") && parent == "r":
				current.WriteByte('\n')
			}

		case xml.CharData:
			if inBodyPara && inText && skipDepth == 0 {
				current.Write(t)
			}

		case xml.EndElement:
			name := t.Name.Local
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

			switch {
			case name == "tbl" || name == "txbxContent":
				skipDepth--
			case skipDepth > 0:
			case name == "t":
				inText = false
			case name == "p" && inBodyPara && len(stack) > 0 && stack[len(stack)-1] == "body":
				paragraphs = append(paragraphs, current.String())
				inBodyPara = false
			}
		}
	}
	return paragraphs, nil
}
