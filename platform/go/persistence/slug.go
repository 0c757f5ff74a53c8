package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// MaxSlugLength keeps tenant slugs usable as a single DNS label.
const MaxSlugLength = 63

var (
	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugSeparator = regexp.MustCompile(`[\s_]+`)

	// reservedSlugs collide with console hostnames and routes.
	reservedSlugs = []string{"admin", "api", "app", "console", "status", "www"}
)

// ErrReservedSlug is returned for slugs the console routes claim for itself.
var ErrReservedSlug = errors.New("slug is reserved")

// NormalizeSlug lowercases a tenant slug and folds runs of spaces and
// underscores into one dash, so "Acme Coffee" becomes "acme-coffee".
func NormalizeSlug(input string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(input))
	if slug == "" {
		return "", errors.New("slug is required")
	}
	slug = slugSeparator.ReplaceAllString(slug, "-")

	switch {
	case len(slug) > MaxSlugLength:
		return "", fmt.Errorf("slug must be at most %d characters", MaxSlugLength)
	case !slugPattern.MatchString(slug):
		return "", fmt.Errorf("invalid slug %q: use letters, digits and single dashes", input)
	case slices.Contains(reservedSlugs, slug):
		return "", fmt.Errorf("%w: %q", ErrReservedSlug, slug)
	}
	return slug, nil
}
