// Package username normalizes and validates social handles.
package username

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLength bounds a handle in runes.
const MaxLength = 64

var (
	// ErrRequired indicates a blank handle.
	ErrRequired = errors.New("username is required")
	// ErrInvalid indicates a handle that breaks the character or length policy.
	ErrInvalid = errors.New("username is invalid")
)

// Normalize trims surrounding whitespace and validates handle policy.
//
// Handles are case-preserving. Inner whitespace, control characters and path
// separators are rejected so a handle always fits in one URL path segment.
func Normalize(input string) (string, error) {
	handle := strings.TrimSpace(input)
	if handle == "" {
		return "", ErrRequired
	}
	if utf8.RuneCountInString(handle) > MaxLength {
		return "", ErrInvalid
	}
	for _, r := range handle {
		if r == utf8.RuneError || r == '/' || r == '\\' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", ErrInvalid
		}
	}
	return handle, nil
}
