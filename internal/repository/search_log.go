package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/pagination"
	"github.com/cloo-solutions/buscador/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchLogRepository stores one row per search API call.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO search_logs (scope, query, outcome, result_count, first_link, error, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		string(entry.Scope),
		entry.Query,
		string(entry.Outcome),
		entry.ResultCount,
		nullableString(entry.FirstLink),
		nullableString(entry.Error),
		entry.DurationMs,
		createdAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert search log: %w", err)
	}
	return id, nil
}

// List returns entries newest first, starting after cursor.
func (r *SearchLogRepository) List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[service.SearchLogEntry], error) {
	if limit <= 0 {
		limit = 20
	}
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, scope, query, outcome, result_count, COALESCE(first_link, ''), COALESCE(error, ''), duration_ms, created_at
		 FROM search_logs`
	args := []any{limit}
	if decoded != nil {
		query += ` WHERE (created_at, id) < ($2, $3)`
		args = append(args, decoded.Timestamp, decoded.LastID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list search logs: %w", err)
	}
	defer rows.Close()

	entries := []service.SearchLogEntry{}
	for rows.Next() {
		var e service.SearchLogEntry
		var scope, outcome string
		if err := rows.Scan(&e.ID, &scope, &e.Query, &outcome, &e.ResultCount, &e.FirstLink, &e.Error, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search log: %w", err)
		}
		e.Scope = domain.Scope(scope)
		e.Outcome = domain.OutcomeStatus(outcome)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list search logs: %w", err)
	}

	next := pagination.CreateNextCursor(entries, limit,
		func(e service.SearchLogEntry) string { return e.ID },
		func(e service.SearchLogEntry) time.Time { return e.CreatedAt },
	)
	return &pagination.PageResult[service.SearchLogEntry]{
		Items:   entries,
		Cursor:  next,
		HasMore: next != "",
	}, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
