package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/buscador/internal/config"
	"github.com/cloo-solutions/buscador/internal/customsearch"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/rs/zerolog"
)

// SearchLogEntry captures a single call to the search API.
type SearchLogEntry struct {
	ID          string               `json:"id,omitempty"`
	Scope       domain.Scope         `json:"scope"`
	Query       string               `json:"query"`
	Outcome     domain.OutcomeStatus `json:"outcome"`
	ResultCount int                  `json:"result_count"`
	FirstLink   string               `json:"first_link,omitempty"`
	Error       string               `json:"error,omitempty"`
	DurationMs  int                  `json:"duration_ms"`
	CreatedAt   time.Time            `json:"created_at"`
}

const defaultSearchLogTimeout = 3 * time.Second

// SearchLogRepository persists search log entries.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
}

// auditedSearcher records every search in a SearchLogRepository. A failure to
// write the log is logged and never fails the search. Writes outlive the
// request's cancellation but not the timeout.
type auditedSearcher struct {
	next    customsearch.Searcher
	repo    SearchLogRepository
	creds   config.Credentials
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

func newAuditedSearcher(next customsearch.Searcher, repo SearchLogRepository, creds config.Credentials, timeout time.Duration, logger zerolog.Logger) *auditedSearcher {
	if timeout <= 0 {
		timeout = defaultSearchLogTimeout
	}
	return &auditedSearcher{
		next:    next,
		repo:    repo,
		creds:   creds,
		timeout: timeout,
		log:     logger,
		now:     time.Now,
	}
}

func (a *auditedSearcher) PerformSearch(ctx context.Context, query, engineID string) ([]domain.SearchResult, error) {
	start := a.now()
	results, err := a.next.PerformSearch(ctx, query, engineID)

	outcome := domain.OutcomeOf(results, err)
	entry := SearchLogEntry{
		Scope:       a.creds.ScopeOf(engineID),
		Query:       query,
		Outcome:     outcome.Status,
		ResultCount: len(results),
		Error:       outcome.Reason,
		DurationMs:  int(a.now().Sub(start).Milliseconds()),
		CreatedAt:   start.UTC(),
	}
	if first, ok := outcome.First(); ok {
		entry.FirstLink = first.LinkOr("")
	}

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	if _, logErr := a.repo.CreateSearchLog(logCtx, entry); logErr != nil {
		a.log.Warn().Err(logErr).Msg("failed to write search log")
	}
	return results, err
}
