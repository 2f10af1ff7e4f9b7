package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog/log"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"shortr/internal"
)

type Link struct {
	ID           int64  `json:"id"`
	ShortCode    string `json:"short_code"`
	OriginalLink string `json:"original_link"`
	ClickCount   int64  `json:"click_count"`
	CreatedAt    Date   `json:"created_at"`
	UpdatedAt    Date   `json:"updated_at"`
}

type linkRow struct {
	ID           int64  `db:"id" goqu:"skipinsert,skipupdate"`
	ShortCode    string `db:"short_code"`
	OriginalLink string `db:"original_link"`
	ClickCount   int64  `db:"click_count"`
	CreatedAt    Date   `db:"created_at" goqu:"skipupdate"`
	UpdatedAt    Date   `db:"updated_at"`
}

var linkCols = []any{"id", "short_code", "original_link", "click_count", "created_at", "updated_at"}

// LinksRepo is the only access path to link records. It exposes
// exactly three operations: insert, exact-match lookup by code, and
// an atomic click counter increment. Target URLs are never updated
// and records are never deleted.
type LinksRepo struct {
	db *sql.DB
}

func NewLinksRepo(db *sql.DB) *LinksRepo {
	return &LinksRepo{db: db}
}

// Create inserts a new record with a zero click count. Returns
// internal.ErrCodeExists if another record already holds the code.
func (r *LinksRepo) Create(ctx context.Context, code, originalLink string) (*Link, error) {
	executor := goqu.New("sqlite", r.db)

	log.Debug().Str("code", code).Str("link", originalLink).Msg("creating link")

	now := Date(time.Now().UTC())
	query := executor.Insert("links").
		Cols("short_code", "original_link", "click_count", "created_at", "updated_at").
		Vals([]any{code, originalLink, 0, now, now}).
		Returning(linkCols...)

	var row linkRow
	found, err := query.Executor().ScanStructContext(ctx, &row)
	if err != nil {
		if isUniqueViolation(err) {
			log.Warn().Str("code", code).Msg("short code collision")
			return nil, internal.ErrCodeExists
		}
		log.Error().Err(err).Str("code", code).Msg("failed to create link")
		return nil, err
	}

	if !found {
		log.Warn().Str("code", code).Msg("link creation returned no rows")
		return nil, errors.New("failed to create link")
	}

	link := row.toDomain()
	log.Info().Int64("id", link.ID).Str("code", link.ShortCode).Msg("link created successfully")

	return link, nil
}

// GetByCode looks up a record by its short code without touching the
// click counter. Returns internal.ErrLinkNotFound when absent.
func (r *LinksRepo) GetByCode(ctx context.Context, code string) (*Link, error) {
	executor := goqu.New("sqlite", r.db)

	log.Debug().Str("code", code).Msg("fetching link by code")

	query := executor.From("links").Where(goqu.Ex{"short_code": code}).Select(linkCols...)

	var row linkRow
	found, err := query.Executor().ScanStructContext(ctx, &row)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to fetch link")
		return nil, err
	}

	if !found {
		log.Debug().Str("code", code).Msg("link not found")
		return nil, internal.ErrLinkNotFound
	}

	return row.toDomain(), nil
}

// IncrementClicks bumps the click counter by one in a single UPDATE,
// so concurrent redirects on the same code never lose a visit.
// Returns the record as persisted after the increment, or
// internal.ErrLinkNotFound when no record holds the code.
func (r *LinksRepo) IncrementClicks(ctx context.Context, code string) (*Link, error) {
	executor := goqu.New("sqlite", r.db)

	now := Date(time.Now().UTC())
	query := executor.Update("links").
		Set(goqu.Record{
			"click_count": goqu.L("click_count + 1"),
			"updated_at":  now,
		}).
		Where(goqu.Ex{"short_code": code}).
		Returning(linkCols...)

	var row linkRow
	found, err := query.Executor().ScanStructContext(ctx, &row)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to increment click count")
		return nil, err
	}

	if !found {
		return nil, internal.ErrLinkNotFound
	}

	link := row.toDomain()
	log.Debug().Str("code", code).Int64("clicks", link.ClickCount).Msg("click recorded")

	return link, nil
}

func (r *linkRow) toDomain() *Link {
	return &Link{
		ID:           r.ID,
		ShortCode:    r.ShortCode,
		OriginalLink: r.OriginalLink,
		ClickCount:   r.ClickCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
