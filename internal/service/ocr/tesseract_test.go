package ocr

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeTesseract writes a shell script standing in for the tesseract binary.
func fakeTesseract(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tesseract")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake tesseract: %v", err)
	}
	return path
}

func TestRecognizeReturnsStdout(t *testing.T) {
	path := fakeTesseract(t, `
if [ "$1" != "stdin" ] || [ "$2" != "stdout" ] || [ "$4" != "deu" ]; then
  echo "bad args: $*" >&2
  exit 2
fi
bytes=$(wc -c | tr -d ' ')
if [ "$bytes" -eq 0 ]; then
  echo "no image on stdin" >&2
  exit 3
fi
printf 'Invoice 42\n\f'
`)

	tess := New(Config{Path: path, Language: "deu"})
	text, err := tess.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if text != "Invoice 42" {
		t.Errorf("expected 'Invoice 42', got %q", text)
	}
}

func TestRecognizeFailureIncludesStderr(t *testing.T) {
	path := fakeTesseract(t, `cat >/dev/null; echo "Failed loading language 'xyz'" >&2; exit 1`)

	_, err := New(Config{Path: path}).Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Failed loading language") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestRecognizeMissingExecutable(t *testing.T) {
	tess := New(Config{Path: filepath.Join(t.TempDir(), "does-not-exist")})
	if _, err := tess.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1))); err == nil {
		t.Fatal("expected error for missing executable")
	}
}

func TestNewDefaults(t *testing.T) {
	tess := New(Config{})
	if tess.path != DefaultPath || tess.language != DefaultLanguage {
		t.Errorf("unexpected defaults: %q %q", tess.path, tess.language)
	}
}
