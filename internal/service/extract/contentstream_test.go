package extract

import "testing"

func TestTextFromContentStream(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "single Tj",
			stream: "BT\n/F1 12 Tf\n72 720 Td\n(Alpha) Tj\nET",
			want:   "Alpha",
		},
		{
			name:   "escapes",
			stream: `BT (a\(b\)c \\ d\101) Tj ET`,
			want:   `a(b)c \ dA`,
		},
		{
			name:   "nested parentheses",
			stream: "BT (f(x) = y) Tj ET",
			want:   "f(x) = y",
		},
		{
			name:   "TJ array with kerning and word gap",
			stream: "BT [(Hel) -20 (lo) -400 (World)] TJ ET",
			want:   "Hello World",
		},
		{
			name:   "T star and quote operators",
			stream: "BT (one) Tj T* (two) Tj (three) ' ET",
			want:   "one\ntwo\nthree",
		},
		{
			name:   "horizontal move stays on the line",
			stream: "BT (a) Tj 10 0 Td (b) Tj ET",
			want:   "ab",
		},
		{
			name:   "separate text objects",
			stream: "BT (first) Tj ET BT (second) Tj ET",
			want:   "first\nsecond",
		},
		{
			name:   "hex string",
			stream: "BT <48656C6C6F> Tj ET",
			want:   "Hello",
		},
		{
			name:   "utf16 hex string",
			stream: "BT <FEFF00E9> Tj ET",
			want:   "é",
		},
		{
			name:   "comments and dictionaries ignored",
			stream: "% comment (ignored) Tj\n/P << /MCID 0 >> BDC BT (x) Tj ET EMC",
			want:   "x",
		},
		{
			name:   "inline image skipped",
			stream: "BI /W 1 /H 1 ID \x00(\xff EI Q BT (after) Tj ET",
			want:   "after",
		},
		{
			name:   "no text",
			stream: "0 0 m 10 10 l S",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textFromContentStream([]byte(tt.stream)); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
