// Package postgres implements the url mapping store on top of PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlinks/internal/entity"

	pgutil "github.com/vadimbarashkov/shortlinks/pkg/postgres"
)

type urlMappingDB struct {
	ID            int64        `db:"id"`
	Slug          string       `db:"slug"`
	TargetURL     string       `db:"target_url"`
	Visits        int64        `db:"visits"`
	LastVisitedAt sql.NullTime `db:"last_visited_at"`
	Disabled      bool         `db:"disabled"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

func (m *urlMappingDB) toEntity() *entity.URLMapping {
	mapping := &entity.URLMapping{
		ID:        m.ID,
		Slug:      m.Slug,
		TargetURL: m.TargetURL,
		VisitStats: entity.VisitStats{
			Visits: m.Visits,
		},
		Disabled:  m.Disabled,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	if m.LastVisitedAt.Valid {
		lastVisitedAt := m.LastVisitedAt.Time
		mapping.LastVisitedAt = &lastVisitedAt
	}

	return mapping
}

// URLMappingRepository stores url mappings in the url_mappings table.
// Slug uniqueness is enforced by the table's unique constraint.
type URLMappingRepository struct {
	db *sqlx.DB
}

func NewURLMappingRepository(db *sqlx.DB) *URLMappingRepository {
	return &URLMappingRepository{db: db}
}

func (r *URLMappingRepository) ListAll(ctx context.Context) ([]*entity.URLMapping, error) {
	const op = "adapter.repository.postgres.URLMappingRepository.ListAll"
	const query = `SELECT * FROM url_mappings ORDER BY id`

	var rows []urlMappingDB

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%s: failed to select from url_mappings table: %w", op, err)
	}

	mappings := make([]*entity.URLMapping, 0, len(rows))
	for i := range rows {
		mappings = append(mappings, rows[i].toEntity())
	}

	return mappings, nil
}

func (r *URLMappingRepository) RetrieveBySlug(ctx context.Context, slug string) (*entity.URLMapping, error) {
	const op = "adapter.repository.postgres.URLMappingRepository.RetrieveBySlug"
	const query = `SELECT * FROM url_mappings WHERE slug = $1`

	var mapping urlMappingDB

	if err := r.db.GetContext(ctx, &mapping, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from url_mappings table: %w", op, err)
	}

	return mapping.toEntity(), nil
}

func (r *URLMappingRepository) Save(ctx context.Context, slug, targetURL string) (*entity.URLMapping, error) {
	const op = "adapter.repository.postgres.URLMappingRepository.Save"
	const query = `INSERT INTO url_mappings(slug, target_url) VALUES ($1, $2) RETURNING *`

	var mapping urlMappingDB

	if err := r.db.GetContext(ctx, &mapping, query, slug, targetURL); err != nil {
		if pgutil.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into url_mappings table: %w", op, err)
	}

	return mapping.toEntity(), nil
}

// Update applies the non-nil fields of upd and always refreshes updated_at.
func (r *URLMappingRepository) Update(ctx context.Context, slug string, upd entity.URLMappingUpdate) (*entity.URLMapping, error) {
	const op = "adapter.repository.postgres.URLMappingRepository.Update"
	const query = `UPDATE url_mappings
		SET target_url = COALESCE($2::text, target_url),
			disabled = COALESCE($3::boolean, disabled),
			updated_at = NOW()
		WHERE slug = $1
		RETURNING *`

	var mapping urlMappingDB

	if err := r.db.GetContext(ctx, &mapping, query, slug, upd.TargetURL, upd.Disabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update url_mappings table row: %w", op, err)
	}

	return mapping.toEntity(), nil
}

func (r *URLMappingRepository) Remove(ctx context.Context, slug string) error {
	const op = "adapter.repository.postgres.URLMappingRepository.Remove"
	const query = `DELETE FROM url_mappings WHERE slug = $1`

	res, err := r.db.ExecContext(ctx, query, slug)
	if err != nil {
		return fmt.Errorf("%s: failed to delete from url_mappings table: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
	}

	return nil
}

// IncrementVisit locks the mapping row, refuses disabled mappings and records one visit,
// all within a single transaction. The counter is incremented by the database.
func (r *URLMappingRepository) IncrementVisit(ctx context.Context, slug string) (*entity.URLMapping, error) {
	const op = "adapter.repository.postgres.URLMappingRepository.IncrementVisit"
	const lockQuery = `SELECT disabled FROM url_mappings WHERE slug = $1 FOR UPDATE`
	const updateQuery = `UPDATE url_mappings
		SET visits = visits + 1,
			last_visited_at = NOW()
		WHERE slug = $1
		RETURNING *`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	var disabled bool

	if err := tx.GetContext(ctx, &disabled, lockQuery, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
		}

		return nil, fmt.Errorf("%s: failed to lock url_mappings table row: %w", op, err)
	}

	if disabled {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrMappingDisabled)
	}

	var mapping urlMappingDB

	if err := tx.GetContext(ctx, &mapping, updateQuery, slug); err != nil {
		return nil, fmt.Errorf("%s: failed to update url_mappings table row: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return mapping.toEntity(), nil
}
