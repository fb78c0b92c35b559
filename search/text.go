package search

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNotText is returned when file content cannot be decoded as text
var ErrNotText = errors.New("not a text file")

// ReadText reads a file fully and decodes it as text.
// UTF-8 and UTF-16 byte order marks are honoured; anything else must be valid
// UTF-8 without NUL bytes.
func ReadText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return DecodeText(raw)
}

// DecodeText converts raw file content to a string
func DecodeText(raw []byte) (string, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotText, err)
	}
	if !utf8.Valid(decoded) || bytes.IndexByte(decoded, 0) >= 0 {
		return "", ErrNotText
	}
	return string(decoded), nil
}

// SplitLines splits content on line feeds. A trailing line feed does not
// start another line and empty content has no lines.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}
