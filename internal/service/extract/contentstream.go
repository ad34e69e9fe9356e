package extract

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// tjSpaceThreshold is the TJ kerning adjustment, in thousandths of an em,
// beyond which a gap is treated as a word space.
const tjSpaceThreshold = -250

type tokenKind int

const (
	tokOther tokenKind = iota
	tokString
	tokNumber
	tokOperator
)

type token struct {
	kind  tokenKind
	value string
	num   float64
}

// textFromContentStream returns the text shown by a page content stream.
// Line-moving operators become newlines; horizontal positioning is ignored.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	var operands []token

	lx := &lexer{data: data}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokString, tokNumber:
			operands = append(operands, tok)
		case tokOperator:
			if tok.value == "ID" {
				lx.skipInlineImage()
			}
			applyTextOperator(&sb, tok.value, operands)
			operands = operands[:0]
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func applyTextOperator(sb *strings.Builder, op string, operands []token) {
	switch op {
	case "BT", "T*":
		lineBreak(sb)
	case "Td", "TD":
		if len(operands) >= 2 && operands[len(operands)-1].kind == tokNumber && operands[len(operands)-1].num != 0 {
			lineBreak(sb)
		}
	case "'", "\"":
		lineBreak(sb)
		writeStrings(sb, operands)
	case "Tj":
		writeStrings(sb, operands)
	case "TJ":
		for _, o := range operands {
			switch {
			case o.kind == tokString:
				sb.WriteString(o.value)
			case o.num < tjSpaceThreshold && sb.Len() > 0 && !endsWithSpace(sb):
				sb.WriteByte(' ')
			}
		}
	}
}

func writeStrings(sb *strings.Builder, operands []token) {
	for _, o := range operands {
		if o.kind == tokString {
			sb.WriteString(o.value)
		}
	}
}

func lineBreak(sb *strings.Builder) {
	if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteByte('\n')
	}
}

func endsWithSpace(sb *strings.Builder) bool {
	s := sb.String()
	return strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n")
}

type lexer struct {
	data []byte
	pos  int
}

func (l *lexer) next() (token, bool) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return token{}, false
	}

	c := l.data[l.pos]
	switch {
	case c == '(':
		return token{kind: tokString, value: decodeText(l.literal())}, true
	case c == '<':
		if l.peek(1) == '<' {
			l.pos += 2
			return token{kind: tokOther}, true
		}
		return token{kind: tokString, value: decodeText(l.hexString())}, true
	case c == '>':
		l.pos++
		if l.peek(0) == '>' {
			l.pos++
		}
		return token{kind: tokOther}, true
	case c == '[' || c == ']' || c == '{' || c == '}' || c == ')':
		l.pos++
		return token{kind: tokOther}, true
	case c == '/':
		l.pos++
		l.regular()
		return token{kind: tokOther}, true
	}

	word := l.regular()
	if isNumberStart(word[0]) {
		if n, err := strconv.ParseFloat(word, 64); err == nil {
			return token{kind: tokNumber, num: n}, true
		}
	}
	return token{kind: tokOperator, value: word}, true
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset < len(l.data) {
		return l.data[l.pos+offset]
	}
	return 0
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// regular consumes a run of regular characters. It always consumes at
// least one byte when called on a non-delimiter.
func (l *lexer) regular() string {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// literal reads a parenthesised string starting at '('.
func (l *lexer) literal() []byte {
	var out []byte
	depth := 0
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			if depth == 1 {
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				return out
			}
		case '\\':
			out = l.escape(out)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (l *lexer) escape(out []byte) []byte {
	if l.pos >= len(l.data) {
		return out
	}
	c := l.data[l.pos]
	l.pos++
	switch c {
	case 'n':
		return append(out, '\n')
	case 'r':
		return append(out, '\r')
	case 't':
		return append(out, '\t')
	case 'b':
		return append(out, '\b')
	case 'f':
		return append(out, '\f')
	case '\r':
		if l.peek(0) == '\n' {
			l.pos++
		}
		return out
	case '\n':
		return out
	}
	if c >= '0' && c <= '7' {
		val := int(c - '0')
		for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
			val = val*8 + int(l.data[l.pos]-'0')
			l.pos++
		}
		return append(out, byte(val))
	}
	return append(out, c)
}

// hexString reads a <...> string starting at '<'.
func (l *lexer) hexString() []byte {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out, err := hex.DecodeString(string(digits))
	if err != nil {
		return nil
	}
	return out
}

// skipInlineImage jumps past inline image data up to and including EI.
func (l *lexer) skipInlineImage() {
	if l.pos < len(l.data) {
		l.pos++
	}
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] == 'E' && l.data[i+1] == 'I' && isSpace(l.data[i-1]) &&
			(i+2 == len(l.data) || isSpace(l.data[i+2])) {
			l.pos = i + 2
			return
		}
	}
	l.pos = len(l.data)
}

// decodeText interprets string bytes as UTF-16BE when they carry a BOM and
// as Latin-1 otherwise, dropping control characters.
func decodeText(raw []byte) string {
	var runes []rune
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		units := make([]uint16, 0, len(raw)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		runes = utf16.Decode(units)
	} else {
		runes = make([]rune, 0, len(raw))
		for _, b := range raw {
			runes = append(runes, rune(b))
		}
	}

	var sb strings.Builder
	for _, r := range runes {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}
