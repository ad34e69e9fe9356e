// Package format classifies uploaded artifacts by filename suffix.
//
// Detection is suffix based only. Content is never sniffed, so a renamed
// file fails later in the extractor rather than here.
package format

import (
	"errors"
	"path/filepath"
	"strings"
)

// Kind is the extraction route for an artifact.
type Kind string

const (
	PDF         Kind = "pdf"
	DOCX        Kind = "docx"
	Image       Kind = "image"
	Audio       Kind = "audio"
	Unsupported Kind = "unsupported"
)

// ErrUnsupported is returned by boundaries that reject an unknown suffix.
var ErrUnsupported = errors.New("unsupported file type")

var suffixes = map[string]Kind{
	".pdf":  PDF,
	".docx": DOCX,
	".png":  Image,
	".jpg":  Image,
	".jpeg": Image,
	".wav":  Audio,
	".mp3":  Audio,
	".mpeg": Audio,
	".mp4":  Audio,
}

// Detect maps a filename to its Kind using a case-insensitive suffix match.
func Detect(name string) Kind {
	if kind, ok := suffixes[Ext(name)]; ok {
		return kind
	}
	return Unsupported
}

// Ext returns the lower-cased suffix of name including the leading dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsDocument reports whether kind is handled by a text extractor.
func (k Kind) IsDocument() bool {
	return k == PDF || k == DOCX || k == Image
}

// DocumentSuffixes lists the suffixes accepted by the document upload, without dots.
func DocumentSuffixes() []string {
	return []string{"pdf", "docx", "png", "jpg", "jpeg"}
}

// AudioSuffixes lists the suffixes accepted by the voice upload, without dots.
func AudioSuffixes() []string {
	return []string{"wav", "mp3", "mpeg", "mp4"}
}
