// Package mail turns feeds and entries into RFC 822 messages and delivers
// them into a maildir.
package mail

import (
	"io"
	"strings"
	"unicode/utf8"
)

// Class is the character class of a header value, ordered from most to
// least restrictive.
type Class int

const (
	// Atom is printable ASCII without spaces.
	Atom Class = iota
	// Text is printable ASCII including spaces.
	Text
	// NonASCII is anything else: 8-bit bytes, controls, line breaks.
	NonASCII
)

// Classify returns the least restrictive class any byte of s needs.
func Classify(s string) Class {
	c := Atom
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b > ' ' && b <= '~':
		case b == ' ':
			if c < Text {
				c = Text
			}
		default:
			return NonASCII
		}
	}
	return c
}

// Encode renders s for a header slot that allows class allow. Values within
// the class are written verbatim, text in an atom slot is quoted, and
// anything needing more than text is RFC 2047 Q-encoded.
func Encode(s string, allow Class) string {
	c := Classify(s)
	switch {
	case c <= allow:
		return s
	case c == Text:
		return quote(s)
	default:
		return qEncode(s)
	}
}

func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' || s[i] == '\r' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

const (
	qPrefix = "=?UTF-8?Q?"
	qSuffix = "?="
	// RFC 2047 caps an encoded word at 75 characters.
	maxEncodedWord = 75
)

// qEncode writes s as one or more Q encoded words. Only letters, digits,
// '+' and '-' pass through; space becomes '_'. Words are split on rune
// boundaries and folded onto continuation lines.
func qEncode(s string) string {
	const hex = "0123456789ABCDEF"
	budget := maxEncodedWord - len(qPrefix) - len(qSuffix)

	var words []string
	var cur strings.Builder
	for len(s) > 0 {
		_, size := utf8.DecodeRuneInString(s)
		var chunk strings.Builder
		for i := 0; i < size; i++ {
			b := s[i]
			switch {
			case b == ' ':
				chunk.WriteByte('_')
			case b >= '0' && b <= '9', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b == '+', b == '-':
				chunk.WriteByte(b)
			default:
				chunk.WriteByte('=')
				chunk.WriteByte(hex[b>>4])
				chunk.WriteByte(hex[b&0xf])
			}
		}
		if cur.Len() > 0 && cur.Len()+chunk.Len() > budget {
			words = append(words, qPrefix+cur.String()+qSuffix)
			cur.Reset()
		}
		cur.WriteString(chunk.String())
		s = s[size:]
	}
	words = append(words, qPrefix+cur.String()+qSuffix)
	return strings.Join(words, "\n ")
}

// headerWriter renders header templates. Verbs: %s any value verbatim,
// %t text, %w atom. A template whose arguments are not all present is
// dropped entirely.
type headerWriter struct {
	w   io.Writer
	err error
}

func (h *headerWriter) Write(format string, args ...string) {
	if h.err != nil {
		return
	}
	for _, a := range args {
		if a == "" {
			return
		}
	}

	var sb strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			sb.WriteByte(format[i])
			continue
		}
		var allow Class
		switch format[i+1] {
		case 's':
			allow = NonASCII
		case 't':
			allow = Text
		case 'w':
			allow = Atom
		default:
			panic("mail: bad header verb in " + format)
		}
		sb.WriteString(Encode(args[next], allow))
		next++
		i++
	}
	sb.WriteByte('\n')
	_, h.err = io.WriteString(h.w, sb.String())
}
