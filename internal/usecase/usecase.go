// Package usecase implements the url mapping management operations and the redirect resolver.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/vadimbarashkov/shortlinks/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrMaxRetriesExceeded is returned when no free slug could be generated.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating slug")

const (
	// slugAlphabet is a subset of the slug character class.
	slugAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	defaultSlugLength   = 7
	defaultStoreTimeout = 5 * time.Second
	maxRetries          = 5
)

type urlMappingRepository interface {
	ListAll(ctx context.Context) ([]*entity.URLMapping, error)
	RetrieveBySlug(ctx context.Context, slug string) (*entity.URLMapping, error)
	Save(ctx context.Context, slug, targetURL string) (*entity.URLMapping, error)
	Update(ctx context.Context, slug string, upd entity.URLMappingUpdate) (*entity.URLMapping, error)
	Remove(ctx context.Context, slug string) error
	IncrementVisit(ctx context.Context, slug string) (*entity.URLMapping, error)
}

// Option configures a URLMappingUseCase.
type Option func(*URLMappingUseCase)

// WithReservedSlugs adds slugs to the deny-list. The defaults stay reserved.
func WithReservedSlugs(slugs ...string) Option {
	return func(uc *URLMappingUseCase) {
		uc.reserved = entity.NewReservedSlugs(append(slices.Clone(entity.DefaultReservedSlugs), slugs...)...)
	}
}

// WithSlugLength sets the length of generated slugs.
func WithSlugLength(n int) Option {
	return func(uc *URLMappingUseCase) {
		if n > 0 {
			uc.slugLength = n
		}
	}
}

// WithStoreTimeout bounds every store operation.
func WithStoreTimeout(d time.Duration) Option {
	return func(uc *URLMappingUseCase) {
		if d > 0 {
			uc.storeTimeout = d
		}
	}
}

type URLMappingUseCase struct {
	urlRepo      urlMappingRepository
	reserved     entity.ReservedSlugs
	slugLength   int
	storeTimeout time.Duration
}

func NewURLMappingUseCase(urlRepo urlMappingRepository, opts ...Option) *URLMappingUseCase {
	uc := &URLMappingUseCase{
		urlRepo:      urlRepo,
		reserved:     entity.NewReservedSlugs(entity.DefaultReservedSlugs...),
		slugLength:   defaultSlugLength,
		storeTimeout: defaultStoreTimeout,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// storeContext detaches ctx from the caller's cancellation so that a disconnecting
// client never leaves a store operation half-applied, and bounds it with the store timeout.
func (uc *URLMappingUseCase) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), uc.storeTimeout)
}

func (uc *URLMappingUseCase) ListMappings(ctx context.Context) ([]*entity.URLMapping, error) {
	const op = "usecase.URLMappingUseCase.ListMappings"

	ctx, cancel := uc.storeContext(ctx)
	defer cancel()

	mappings, err := uc.urlRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list url mappings: %w", op, err)
	}

	return mappings, nil
}

func (uc *URLMappingUseCase) GetMapping(ctx context.Context, slug string) (*entity.URLMapping, error) {
	const op = "usecase.URLMappingUseCase.GetMapping"

	if _, err := entity.ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := uc.storeContext(ctx)
	defer cancel()

	mapping, err := uc.urlRepo.RetrieveBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url mapping: %w", op, err)
	}

	return mapping, nil
}

// CreateMapping binds slug to targetURL. An empty slug is replaced by a generated one.
func (uc *URLMappingUseCase) CreateMapping(ctx context.Context, slug, targetURL string) (*entity.URLMapping, error) {
	const op = "usecase.URLMappingUseCase.CreateMapping"

	if _, err := entity.ValidateTargetURL(targetURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if slug == "" {
		return uc.createWithGeneratedSlug(ctx, targetURL)
	}

	if _, err := entity.ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if uc.reserved.Contains(slug) {
		return nil, fmt.Errorf("%s: %q: %w", op, slug, entity.ErrSlugReserved)
	}

	ctx, cancel := uc.storeContext(ctx)
	defer cancel()

	mapping, err := uc.urlRepo.Save(ctx, slug, targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create url mapping: %w", op, err)
	}

	return mapping, nil
}

func (uc *URLMappingUseCase) createWithGeneratedSlug(ctx context.Context, targetURL string) (*entity.URLMapping, error) {
	const op = "usecase.URLMappingUseCase.createWithGeneratedSlug"

	ctx, cancel := uc.storeContext(ctx)
	defer cancel()

	length := uc.slugLength

	for i := 0; i < maxRetries; i++ {
		slug, err := gonanoid.Generate(slugAlphabet, length)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate slug: %w", op, err)
		}

		if uc.reserved.Contains(slug) {
			continue
		}

		mapping, err := uc.urlRepo.Save(ctx, slug, targetURL)
		if err != nil {
			if errors.Is(err, entity.ErrSlugExists) {
				length++
				continue
			}

			return nil, fmt.Errorf("%s: failed to create url mapping: %w", op, err)
		}

		return mapping, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// UpdateMapping changes the target URL and/or the disabled flag of a mapping.
func (uc *URLMappingUseCase) UpdateMapping(ctx context.Context, slug string, upd entity.URLMappingUpdate) (*entity.URLMapping, error) {
	const op = "usecase.URLMappingUseCase.UpdateMapping"

	if _, err := entity.ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if upd.TargetURL != nil {
		if _, err := entity.ValidateTargetURL(*upd.TargetURL); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	ctx, cancel := uc.storeContext(ctx)
	defer cancel()

	mapping, err := uc.urlRepo.Update(ctx, slug, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to update url mapping: %w", op, err)
	}

	return mapping, nil
}

func (uc *URLMappingUseCase) DeleteMapping(ctx context.Context, slug string) error {
	const op = "usecase.URLMappingUseCase.DeleteMapping"

	if _, err := entity.ValidateSlug(slug); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := uc.storeContext(ctx)
	defer cancel()

	if err := uc.urlRepo.Remove(ctx, slug); err != nil {
		return fmt.Errorf("%s: failed to delete url mapping: %w", op, err)
	}

	return nil
}

// ResolveSlug records a visit and returns the mapping to redirect to.
// A slug that cannot be valid resolves to entity.ErrMappingNotFound without a store lookup;
// a disabled mapping resolves to entity.ErrMappingDisabled and is not counted.
func (uc *URLMappingUseCase) ResolveSlug(ctx context.Context, slug string) (*entity.URLMapping, error) {
	const op = "usecase.URLMappingUseCase.ResolveSlug"

	if _, err := entity.ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, entity.ErrMappingNotFound, err)
	}

	ctx, cancel := uc.storeContext(ctx)
	defer cancel()

	mapping, err := uc.urlRepo.IncrementVisit(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve slug: %w", op, err)
	}

	return mapping, nil
}
