package extract

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
)

func TestPDFExtractConcatenatesPagesInOrder(t *testing.T) {
	raw := buildTextPDF(
		"BT\n/F1 12 Tf\n72 720 Td\n(Alpha) Tj\nET",
		"BT\n/F1 12 Tf\n72 720 Td\n(Beta) Tj\nET",
	)

	text, err := PDF{}.Extract(context.Background(), bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "AlphaBeta" {
		t.Errorf("expected 'AlphaBeta', got %q", text)
	}
}

func TestPDFExtractPageOrderDeterminesOutput(t *testing.T) {
	alpha := "BT\n/F1 12 Tf\n72 720 Td\n(Alpha) Tj\nET"
	beta := "BT\n/F1 12 Tf\n72 720 Td\n(Beta) Tj\nET"

	tests := []struct {
		name    string
		streams []string
		want    string
	}{
		{"forward", []string{alpha, beta}, "AlphaBeta"},
		{"reversed", []string{beta, alpha}, "BetaAlpha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := PDF{}.Extract(context.Background(), bytes.NewReader(buildTextPDF(tt.streams...)))
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if text != tt.want {
				t.Errorf("expected %q, got %q", tt.want, text)
			}
		})
	}
}

func TestPDFExtractSinglePage(t *testing.T) {
	raw := buildTextPDF("BT\n/F1 12 Tf\n72 720 Td\n(Hello World) Tj\n0 -14 Td\n(Second line) Tj\nET")

	text, err := PDF{}.Extract(context.Background(), bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "Hello World\nSecond line" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestPDFExtractInvalidInput(t *testing.T) {
	_, err := PDF{}.Extract(context.Background(), strings.NewReader("not a pdf"))
	if err == nil {
		t.Fatal("expected error for invalid PDF")
	}
}

func TestPDFExtractTooLarge(t *testing.T) {
	raw := buildTextPDF("BT\n(Alpha) Tj\nET")
	_, err := PDF{MaxBytes: 16}.Extract(context.Background(), bytes.NewReader(raw))
	if err != ErrTooLarge {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

// --- PDF test helpers ---

// buildTextPDF creates a valid PDF with one page per content stream and
// exact xref offsets.
func buildTextPDF(streams ...string) []byte {
	objects := 3 + 2*len(streams)
	offsets := make([]int, objects+1)

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, len(streams))
	for i := range streams {
		kids[i] = strconv.Itoa(4+2*i) + " 0 R"
	}
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [" + strings.Join(kids, " ") + "] /Count " + strconv.Itoa(len(streams)) + " >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	for i, stream := range streams {
		pageNr, contentNr := 4+2*i, 5+2*i

		offsets[pageNr] = b.Len()
		b.WriteString(strconv.Itoa(pageNr) + " 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents " +
			strconv.Itoa(contentNr) + " 0 R /Resources << /Font << /F1 3 0 R >> >> >>\nendobj\n")

		offsets[contentNr] = b.Len()
		b.WriteString(strconv.Itoa(contentNr) + " 0 obj\n<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n")
		b.WriteString(stream)
		b.WriteString("\nendstream\nendobj\n")
	}

	xrefOffset := b.Len()
	b.WriteString("xref\n0 " + strconv.Itoa(objects+1) + "\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= objects; i++ {
		b.WriteString(padOffset(offsets[i]))
		b.WriteString(" 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size " + strconv.Itoa(objects+1) + " /Root 1 0 R >>\nstartxref\n")
	b.WriteString(strconv.Itoa(xrefOffset))
	b.WriteString("\n%%EOF\n")

	return []byte(b.String())
}

func padOffset(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}
