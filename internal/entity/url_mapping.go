// Package entity defines the entities, validation rules and errors used in the application.
// It includes the URLMapping struct, which binds a slug to a target URL together with
// its visit statistics, the slug and target URL validators and the reserved slug policy.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrSlugExists is returned when attempting to create a mapping with a slug that already exists.
	ErrSlugExists = errors.New("slug exists")
	// ErrSlugReserved is returned when attempting to create a mapping with a reserved slug.
	ErrSlugReserved = errors.New("slug is reserved")
	// ErrMappingNotFound is returned when a mapping with the specified slug cannot be found.
	ErrMappingNotFound = errors.New("url mapping not found")
	// ErrMappingDisabled is returned when a disabled mapping is asked to redirect.
	ErrMappingDisabled = errors.New("url mapping is disabled")
)

// URLMapping represents a slug bound to a target URL.
type URLMapping struct {
	// ID is the unique identifier of the mapping in the database.
	ID int64
	// Slug is the short identifier used in the public redirect path.
	Slug string
	// TargetURL is the address the slug redirects visitors to.
	TargetURL string
	// VisitStats contains the visit accounting of the mapping.
	VisitStats
	// Disabled suppresses redirection when true.
	Disabled bool
	// CreatedAt is the timestamp when the mapping was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the mapping was last updated.
	UpdatedAt time.Time
}

// VisitStats contains the visit accounting of a mapping.
type VisitStats struct {
	// Visits is the number of successful redirects.
	Visits int64
	// LastVisitedAt is nil until the first redirect.
	LastVisitedAt *time.Time
}

// URLMappingUpdate describes a partial update of a mapping. Nil fields are left unchanged.
type URLMappingUpdate struct {
	TargetURL *string
	Disabled  *bool
}
