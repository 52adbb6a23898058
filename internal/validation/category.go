package validation

import (
	"errors"
	"regexp"
	"strings"
)

var categorySlugRegex = regexp.MustCompile(`^[a-z0-9-]{2,32}$`)

var reservedCategorySlugs = map[string]struct{}{
	"admin":   {},
	"api":     {},
	"login":   {},
	"signup":  {},
	"logout":  {},
	"users":   {},
	"posts":   {},
	"search":  {},
	"ws":      {},
	"swagger": {},
	"metrics": {},
	"health":  {},
}

// ValidateCategorySlug validates slug format and reserved names.
func ValidateCategorySlug(slug string) error {
	if !categorySlugRegex.MatchString(slug) {
		return errors.New("slug must be 2-32 characters and contain only lowercase letters, numbers, and hyphens")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return errors.New("slug cannot start or end with a hyphen")
	}
	if _, exists := reservedCategorySlugs[slug]; exists {
		return errors.New("slug is reserved")
	}
	return nil
}
