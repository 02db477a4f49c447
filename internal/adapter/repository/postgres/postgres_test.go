package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortlinks/internal/entity"
)

type URLMappingRepositoryTestSuite struct {
	suite.Suite
	errUnknown      error
	errAffectedRows error
	columns         []string
	createdAt       time.Time
	mock            sqlmock.Sqlmock
	repo            *URLMappingRepository
}

func (suite *URLMappingRepositoryTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.errAffectedRows = errors.New("affected rows error")
	suite.columns = []string{
		"id", "slug", "target_url", "visits", "last_visited_at", "disabled", "created_at", "updated_at",
	}
	suite.createdAt = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
}

func (suite *URLMappingRepositoryTestSuite) SetupSubTest() {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		suite.T().Fatalf("Failed to create mock database: %v", err)
	}
	suite.T().Cleanup(func() {
		mockDB.Close()
	})

	db := sqlx.NewDb(mockDB, "sqlmock")

	suite.mock = mock
	suite.repo = NewURLMappingRepository(db)
}

func (suite *URLMappingRepositoryTestSuite) TearDownSubTest() {
	suite.NoError(suite.mock.ExpectationsWereMet())
}

func (suite *URLMappingRepositoryTestSuite) row(slug, targetURL string, visits int64, lastVisitedAt any, disabled bool) *sqlmock.Rows {
	return sqlmock.NewRows(suite.columns).
		AddRow(1, slug, targetURL, visits, lastVisitedAt, disabled, suite.createdAt, suite.createdAt)
}

func (suite *URLMappingRepositoryTestSuite) TestListAll() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM url_mappings ORDER BY id`).
			WillReturnError(suite.errUnknown)

		mappings, err := suite.repo.ListAll(context.Background())

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(mappings)
	})

	suite.Run("empty table", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM url_mappings ORDER BY id`).
			WillReturnRows(sqlmock.NewRows(suite.columns))

		mappings, err := suite.repo.ListAll(context.Background())

		suite.NoError(err)
		suite.NotNil(mappings)
		suite.Empty(mappings)
	})

	suite.Run("success", func() {
		rows := sqlmock.NewRows(suite.columns).
			AddRow(1, "blog", "https://example.com/blog", 3, suite.createdAt, false, suite.createdAt, suite.createdAt).
			AddRow(2, "docs", "https://example.com/docs", 0, nil, true, suite.createdAt, suite.createdAt)

		suite.mock.ExpectQuery(`SELECT (.+) FROM url_mappings ORDER BY id`).
			WillReturnRows(rows)

		mappings, err := suite.repo.ListAll(context.Background())

		suite.NoError(err)
		suite.Len(mappings, 2)

		suite.Equal("blog", mappings[0].Slug)
		suite.Equal(int64(3), mappings[0].Visits)
		suite.Require().NotNil(mappings[0].LastVisitedAt)
		suite.True(suite.createdAt.Equal(*mappings[0].LastVisitedAt))

		suite.Equal("docs", mappings[1].Slug)
		suite.Nil(mappings[1].LastVisitedAt)
		suite.True(mappings[1].Disabled)
	})
}

func (suite *URLMappingRepositoryTestSuite) TestRetrieveBySlug() {
	suite.Run("url mapping not found", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM url_mappings WHERE slug`).
			WithArgs("blog").
			WillReturnError(sql.ErrNoRows)

		mapping, err := suite.repo.RetrieveBySlug(context.Background(), "blog")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrMappingNotFound)
		suite.Nil(mapping)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM url_mappings WHERE slug`).
			WithArgs("blog").
			WillReturnError(suite.errUnknown)

		mapping, err := suite.repo.RetrieveBySlug(context.Background(), "blog")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(mapping)
	})

	suite.Run("success", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM url_mappings WHERE slug`).
			WithArgs("blog").
			WillReturnRows(suite.row("blog", "https://example.com/blog", 0, nil, false))

		mapping, err := suite.repo.RetrieveBySlug(context.Background(), "blog")

		suite.NoError(err)
		suite.NotNil(mapping)
		suite.Equal(&entity.URLMapping{
			ID:        1,
			Slug:      "blog",
			TargetURL: "https://example.com/blog",
			CreatedAt: suite.createdAt,
			UpdatedAt: suite.createdAt,
		}, mapping)
	})
}

func (suite *URLMappingRepositoryTestSuite) TestSave() {
	suite.Run("slug exists", func() {
		suite.mock.ExpectQuery(`INSERT INTO url_mappings`).
			WithArgs("blog", "https://example.com/blog").
			WillReturnError(&pgconn.PgError{Code: "23505"})

		mapping, err := suite.repo.Save(context.Background(), "blog", "https://example.com/blog")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrSlugExists)
		suite.Nil(mapping)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`INSERT INTO url_mappings`).
			WithArgs("blog", "https://example.com/blog").
			WillReturnError(suite.errUnknown)

		mapping, err := suite.repo.Save(context.Background(), "blog", "https://example.com/blog")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.NotErrorIs(err, entity.ErrSlugExists)
		suite.Nil(mapping)
	})

	suite.Run("success", func() {
		suite.mock.ExpectQuery(`INSERT INTO url_mappings`).
			WithArgs("blog", "https://example.com/blog").
			WillReturnRows(suite.row("blog", "https://example.com/blog", 0, nil, false))

		mapping, err := suite.repo.Save(context.Background(), "blog", "https://example.com/blog")

		suite.NoError(err)
		suite.NotNil(mapping)
		suite.Equal("blog", mapping.Slug)
		suite.Equal("https://example.com/blog", mapping.TargetURL)
		suite.Zero(mapping.Visits)
		suite.Nil(mapping.LastVisitedAt)
		suite.False(mapping.Disabled)
	})
}

func (suite *URLMappingRepositoryTestSuite) TestUpdate() {
	newTargetURL := "https://example.com/new-blog"
	disabled := true

	suite.Run("url mapping not found", func() {
		suite.mock.ExpectQuery(`UPDATE url_mappings`).
			WithArgs("blog", newTargetURL, nil).
			WillReturnError(sql.ErrNoRows)

		mapping, err := suite.repo.Update(context.Background(), "blog", entity.URLMappingUpdate{TargetURL: &newTargetURL})

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrMappingNotFound)
		suite.Nil(mapping)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`UPDATE url_mappings`).
			WithArgs("blog", newTargetURL, nil).
			WillReturnError(suite.errUnknown)

		mapping, err := suite.repo.Update(context.Background(), "blog", entity.URLMappingUpdate{TargetURL: &newTargetURL})

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(mapping)
	})

	suite.Run("only disabled", func() {
		suite.mock.ExpectQuery(`UPDATE url_mappings SET (.+) updated_at = NOW\(\)`).
			WithArgs("blog", nil, true).
			WillReturnRows(suite.row("blog", "https://example.com/blog", 0, nil, true))

		mapping, err := suite.repo.Update(context.Background(), "blog", entity.URLMappingUpdate{Disabled: &disabled})

		suite.NoError(err)
		suite.NotNil(mapping)
		suite.Equal("https://example.com/blog", mapping.TargetURL)
		suite.True(mapping.Disabled)
	})

	suite.Run("no fields", func() {
		suite.mock.ExpectQuery(`UPDATE url_mappings`).
			WithArgs("blog", nil, nil).
			WillReturnRows(suite.row("blog", "https://example.com/blog", 0, nil, false))

		mapping, err := suite.repo.Update(context.Background(), "blog", entity.URLMappingUpdate{})

		suite.NoError(err)
		suite.NotNil(mapping)
	})
}

func (suite *URLMappingRepositoryTestSuite) TestRemove() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectExec(`DELETE FROM url_mappings`).
			WithArgs("blog").
			WillReturnError(suite.errUnknown)

		err := suite.repo.Remove(context.Background(), "blog")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("rows affected error", func() {
		suite.mock.ExpectExec(`DELETE FROM url_mappings`).
			WithArgs("blog").
			WillReturnResult(sqlmock.NewErrorResult(suite.errAffectedRows))

		err := suite.repo.Remove(context.Background(), "blog")

		suite.Error(err)
		suite.ErrorIs(err, suite.errAffectedRows)
	})

	suite.Run("url mapping not found", func() {
		suite.mock.ExpectExec(`DELETE FROM url_mappings`).
			WithArgs("blog").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := suite.repo.Remove(context.Background(), "blog")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrMappingNotFound)
	})

	suite.Run("success", func() {
		suite.mock.ExpectExec(`DELETE FROM url_mappings`).
			WithArgs("blog").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := suite.repo.Remove(context.Background(), "blog")

		suite.NoError(err)
	})
}

func (suite *URLMappingRepositoryTestSuite) TestIncrementVisit() {
	const lockQuery = `SELECT disabled FROM url_mappings WHERE slug = (.+) FOR UPDATE`
	const updateQuery = `UPDATE url_mappings SET visits = visits \+ 1`

	suite.Run("begin error", func() {
		suite.mock.ExpectBegin().WillReturnError(suite.errUnknown)

		mapping, err := suite.repo.IncrementVisit(context.Background(), "blog")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(mapping)
	})

	suite.Run("url mapping not found", func() {
		suite.mock.ExpectBegin()
		suite.mock.ExpectQuery(lockQuery).
			WithArgs("blog").
			WillReturnError(sql.ErrNoRows)
		suite.mock.ExpectRollback()

		mapping, err := suite.repo.IncrementVisit(context.Background(), "blog")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrMappingNotFound)
		suite.Nil(mapping)
	})

	suite.Run("url mapping disabled", func() {
		suite.mock.ExpectBegin()
		suite.mock.ExpectQuery(lockQuery).
			WithArgs("blog").
			WillReturnRows(sqlmock.NewRows([]string{"disabled"}).AddRow(true))
		suite.mock.ExpectRollback()

		mapping, err := suite.repo.IncrementVisit(context.Background(), "blog")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrMappingDisabled)
		suite.Nil(mapping)
	})

	suite.Run("update error", func() {
		suite.mock.ExpectBegin()
		suite.mock.ExpectQuery(lockQuery).
			WithArgs("blog").
			WillReturnRows(sqlmock.NewRows([]string{"disabled"}).AddRow(false))
		suite.mock.ExpectQuery(updateQuery).
			WithArgs("blog").
			WillReturnError(suite.errUnknown)
		suite.mock.ExpectRollback()

		mapping, err := suite.repo.IncrementVisit(context.Background(), "blog")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(mapping)
	})

	suite.Run("commit error", func() {
		suite.mock.ExpectBegin()
		suite.mock.ExpectQuery(lockQuery).
			WithArgs("blog").
			WillReturnRows(sqlmock.NewRows([]string{"disabled"}).AddRow(false))
		suite.mock.ExpectQuery(updateQuery).
			WithArgs("blog").
			WillReturnRows(suite.row("blog", "https://example.com/blog", 1, suite.createdAt, false))
		suite.mock.ExpectCommit().WillReturnError(suite.errUnknown)

		mapping, err := suite.repo.IncrementVisit(context.Background(), "blog")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(mapping)
	})

	suite.Run("success", func() {
		suite.mock.ExpectBegin()
		suite.mock.ExpectQuery(lockQuery).
			WithArgs("blog").
			WillReturnRows(sqlmock.NewRows([]string{"disabled"}).AddRow(false))
		suite.mock.ExpectQuery(updateQuery).
			WithArgs("blog").
			WillReturnRows(suite.row("blog", "https://example.com/blog", 1, suite.createdAt, false))
		suite.mock.ExpectCommit()

		mapping, err := suite.repo.IncrementVisit(context.Background(), "blog")

		suite.NoError(err)
		suite.NotNil(mapping)
		suite.Equal(int64(1), mapping.Visits)
		suite.Require().NotNil(mapping.LastVisitedAt)
		suite.True(suite.createdAt.Equal(*mapping.LastVisitedAt))
	})
}

func TestURLMappingRepository(t *testing.T) {
	suite.Run(t, new(URLMappingRepositoryTestSuite))
}
