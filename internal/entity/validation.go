package entity

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

var (
	// ErrInvalidSlug is returned when a slug is empty or contains characters other than letters, digits and hyphens.
	ErrInvalidSlug = errors.New("invalid slug")
	// ErrInvalidTargetURL is returned when a target URL is not an absolute URL with a scheme and a host.
	ErrInvalidTargetURL = errors.New("invalid target url")
)

// DefaultReservedSlugs collide with the management route namespaces.
var DefaultReservedSlugs = []string{"api", "dashboard"}

var slugRegexp = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidateSlug returns the slug if it is non-empty and consists of letters, digits and hyphens only.
// It checks neither uniqueness nor reservation.
func ValidateSlug(input string) (string, error) {
	if !slugRegexp.MatchString(input) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, input)
	}

	return input, nil
}

// ValidateTargetURL returns the input if it parses as an absolute URL with a scheme and a host.
func ValidateTargetURL(input string) (string, error) {
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTargetURL, err)
	}

	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidTargetURL, input)
	}

	return input, nil
}

// ReservedSlugs is a deny-list of slugs that cannot be used to create mappings.
type ReservedSlugs map[string]struct{}

// NewReservedSlugs builds a deny-list from the given slugs.
func NewReservedSlugs(slugs ...string) ReservedSlugs {
	rs := make(ReservedSlugs, len(slugs))
	for _, s := range slugs {
		rs[s] = struct{}{}
	}
	return rs
}

// Contains reports whether the slug is reserved. Matching is case-sensitive.
func (rs ReservedSlugs) Contains(slug string) bool {
	_, ok := rs[slug]
	return ok
}
