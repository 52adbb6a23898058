package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	MaxTitleLength   = 200
	MaxPostLength    = 50000
	MaxCommentLength = 2000
)

var sanitizer = bluemonday.UGCPolicy()

// SanitizeContent strips unsafe markup from user-authored HTML, keeping the
// formatting a rich text editor produces.
func SanitizeContent(s string) string {
	return strings.TrimSpace(sanitizer.Sanitize(s))
}

// ValidateTitle checks a post title.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLength)
	}
	return nil
}

// ValidateBody checks sanitized post or comment content against max runes.
func ValidateBody(content string, max int) error {
	if strings.TrimSpace(stripTags(content)) == "" {
		return errors.New("content is required")
	}
	if utf8.RuneCountInString(content) > max {
		return fmt.Errorf("content must not exceed %d characters", max)
	}
	return nil
}

var tagRegex = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return tagRegex.ReplaceAllString(s, "")
}
