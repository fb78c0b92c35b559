// Package highlight marks query occurrences in text.
//
// Marking is plain text substitution: every case-insensitive occurrence of
// the query is passed through a wrap function. Mark has no awareness of the
// structure of the text, so marking text that already contains markup can
// wrap inside tags or attributes. MarkANSI skips terminal escape sequences.
package highlight

import (
	"strings"
	"unicode/utf8"
)

// Mark wraps every case-insensitive occurrence of query in text.
// An empty query returns text unchanged.
func Mark(text, query string, wrap func(string) string) string {
	var b strings.Builder
	prev := 0
	for _, m := range matches(text, query) {
		b.WriteString(text[prev:m[0]])
		b.WriteString(wrap(text[m[0]:m[1]]))
		prev = m[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

// MarkANSI is Mark for text carrying ANSI escape sequences, such as
// syntax-coloured terminal output. Occurrences are found in the visible
// text, so they may span escapes. After each mark the colours active at
// its end are restored.
func MarkANSI(text, query string, wrap func(string) string) string {
	plain, escapes := splitANSI(text)
	found := matches(plain, query)
	if len(found) == 0 {
		return text
	}

	var b strings.Builder
	var sgr string
	apply := func(seq string, emit bool) {
		if strings.HasPrefix(seq, "\x1b[") && strings.HasSuffix(seq, "m") {
			if seq == "\x1b[0m" || seq == "\x1b[m" {
				sgr = ""
			} else {
				sgr += seq
			}
		}
		if emit {
			b.WriteString(seq)
		}
	}

	ei, mi := 0, 0
	for p := 0; ; {
		for ei < len(escapes) && escapes[ei].pos == p {
			apply(escapes[ei].seq, true)
			ei++
		}
		if p == len(plain) {
			break
		}
		if mi < len(found) && found[mi][0] == p {
			end := found[mi][1]
			b.WriteString(wrap(plain[p:end]))
			for ei < len(escapes) && escapes[ei].pos < end {
				apply(escapes[ei].seq, false)
				ei++
			}
			b.WriteString(sgr)
			p = end
			mi++
			continue
		}
		next := len(plain)
		if ei < len(escapes) {
			next = min(next, escapes[ei].pos)
		}
		if mi < len(found) {
			next = min(next, found[mi][0])
		}
		b.WriteString(plain[p:next])
		p = next
	}
	return b.String()
}

// escape is an escape sequence found before byte pos of the visible text
type escape struct {
	pos int
	seq string
}

// splitANSI separates the visible text from CSI and two-byte escapes
func splitANSI(s string) (string, []escape) {
	var plain strings.Builder
	var escapes []escape
	for i := 0; i < len(s); {
		if s[i] != 0x1b {
			plain.WriteByte(s[i])
			i++
			continue
		}
		j := i + 1
		if j < len(s) && s[j] == '[' {
			j++
			for j < len(s) && (s[j] < 0x40 || s[j] > 0x7e) {
				j++
			}
		}
		if j < len(s) {
			j++
		}
		escapes = append(escapes, escape{pos: plain.Len(), seq: s[i:j]})
		i = j
	}
	return plain.String(), escapes
}

// matches returns the byte ranges of the case-insensitive occurrences of
// query in text, left to right without overlap
func matches(text, query string) [][2]int {
	if query == "" || text == "" {
		return nil
	}
	n := utf8.RuneCountInString(query)

	var found [][2]int
	for i := 0; i < len(text); {
		if end, ok := prefixEnd(text[i:], n); ok && strings.EqualFold(text[i:i+end], query) {
			found = append(found, [2]int{i, i + end})
			i += end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return found
}

// Count returns the number of marks Mark would insert
func Count(text, query string) int {
	return len(matches(text, query))
}

// prefixEnd returns the byte length of the first n runes of s
func prefixEnd(s string, n int) (int, bool) {
	end := 0
	for range n {
		if end >= len(s) {
			return 0, false
		}
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	return end, true
}
