package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
)

var _ ports.SearchRepository = (*SearchRepo)(nil)

// SearchRepo implements ports.SearchRepository.
type SearchRepo struct {
	db *DB
}

func NewSearchRepo(db *DB) *SearchRepo {
	return &SearchRepo{db: db}
}

func (r *SearchRepo) Insert(ctx context.Context, rec *domain.SearchRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO search_history (
			id, session_id, a_lat, a_lng, b_lat, b_lng, mid_lat, mid_lng,
			category, radius_miles, venue_count, created_at
		)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.SessionID,
		rec.A.Lat, rec.A.Lng, rec.B.Lat, rec.B.Lng, rec.Midpoint.Lat, rec.Midpoint.Lng,
		string(rec.Category), rec.RadiusMiles, rec.VenueCount, rec.CreatedAt)
	return err
}

func (r *SearchRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.SearchRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, COALESCE(session_id, ''), a_lat, a_lng, b_lat, b_lng, mid_lat, mid_lng,
		       category, radius_miles, venue_count, created_at
		FROM search_history
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, scanSearchRecord)
}

func (r *SearchRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM search_history`).Scan(&n)
	return n, err
}

func scanSearchRecord(row pgx.CollectableRow) (domain.SearchRecord, error) {
	var (
		rec      domain.SearchRecord
		category string
	)
	err := row.Scan(
		&rec.ID, &rec.SessionID,
		&rec.A.Lat, &rec.A.Lng, &rec.B.Lat, &rec.B.Lng, &rec.Midpoint.Lat, &rec.Midpoint.Lng,
		&category, &rec.RadiusMiles, &rec.VenueCount, &rec.CreatedAt,
	)
	rec.Category = domain.VenueCategory(category)
	return rec, err
}
