package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/cloo-solutions/buscador/internal/batch"
	"github.com/cloo-solutions/buscador/internal/config"
	"github.com/cloo-solutions/buscador/internal/customsearch"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/metrics"
	"github.com/cloo-solutions/buscador/internal/telemetry"
	"github.com/rs/zerolog"
)

// SessionConfig holds everything a Session needs. Credentials and Searcher
// are required; the rest is optional.
type SessionConfig struct {
	Credentials  config.Credentials
	Searcher     customsearch.Searcher
	Workers      int
	RateLimitRPS float64
	Metrics      *metrics.Metrics
	Logger       *zerolog.Logger
	SearchLog    SearchLogRepository
	// SearchLogTimeout bounds each audit log write. Defaults to 3s.
	SearchLogTimeout time.Duration
}

// Session carries the loaded credentials and the search client for the
// lifetime of the process. It is read-only after construction and safe for
// concurrent use.
type Session struct {
	creds    config.Credentials
	searcher customsearch.Searcher
	runner   *batch.Runner
	log      zerolog.Logger
}

func NewSession(cfg SessionConfig) *Session {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "session").Logger()
	}

	searcher := cfg.Searcher
	if cfg.SearchLog != nil {
		searcher = newAuditedSearcher(searcher, cfg.SearchLog, cfg.Credentials, cfg.SearchLogTimeout, logger)
	}

	return &Session{
		creds:    cfg.Credentials,
		searcher: searcher,
		runner: batch.NewRunner(searcher, cfg.Credentials.LinkedInEngineID, batch.RunnerOptions{
			Workers:      cfg.Workers,
			RateLimitRPS: cfg.RateLimitRPS,
			Metrics:      cfg.Metrics,
			Logger:       cfg.Logger,
		}),
		log: logger,
	}
}

// ManualResult is what the manual search page and API render.
type ManualResult struct {
	Query   string         `json:"query"`
	Scope   domain.Scope   `json:"scope"`
	Notice  string         `json:"notice"`
	Outcome domain.Outcome `json:"outcome"`
}

// ManualSearch runs a single free-text query in the given scope. A blank
// query is rejected without calling the API. When the call fails the
// returned result carries a Failed outcome and the error is returned too, so
// callers can either render it inline or map it to a status code.
func (s *Session) ManualSearch(ctx context.Context, query string, scope domain.Scope) (*ManualResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	engineID, err := s.creds.EngineID(scope)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "service.manual_search", telemetry.SpanAttributes{
		Scope:     string(scope),
		Operation: "manual_search",
	})
	defer span.End()

	results, err := s.searcher.PerformSearch(ctx, query, engineID)
	result := &ManualResult{
		Query:   query,
		Scope:   scope,
		Notice:  scope.Notice(),
		Outcome: domain.OutcomeOf(results, err),
	}
	if err != nil {
		span.SetError(err)
		return result, err
	}
	span.SetResults(len(results))

	s.log.Debug().
		Str("scope", string(scope)).
		Str("outcome", string(result.Outcome.Status)).
		Msg("manual search finished")
	return result, nil
}

// ParseBatch reads and validates an uploaded file. It performs no searches.
func (s *Session) ParseBatch(kind domain.BatchKind, r io.Reader) ([]domain.BatchInputRow, error) {
	rows, err := batch.ParseInput(kind, r)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("kind", string(kind)).
		Int("rows", len(rows)).
		Msg("batch input accepted")
	return rows, nil
}

// BatchReport is the finished output of a batch workflow.
type BatchReport struct {
	Kind    domain.BatchKind
	Rows    []domain.BatchResultRow
	Table   batch.Table
	Summary BatchSummary
}

// BatchSummary counts rows per outcome.
type BatchSummary struct {
	Found    int `json:"found"`
	NotFound int `json:"not_found"`
	Failed   int `json:"failed"`
}

func summarize(rows []domain.BatchResultRow) BatchSummary {
	var sum BatchSummary
	for _, row := range rows {
		switch row.Outcome.Status {
		case domain.OutcomeFound:
			sum.Found++
		case domain.OutcomeNotFound:
			sum.NotFound++
		case domain.OutcomeFailed:
			sum.Failed++
		}
	}
	return sum
}

// RunBatch searches every row against the LinkedIn engine and lays the
// outcomes out as a report. Individual row failures do not fail the batch.
func (s *Session) RunBatch(ctx context.Context, kind domain.BatchKind, rows []domain.BatchInputRow, onProgress func(batch.Progress)) (*BatchReport, error) {
	if len(rows) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if _, err := batch.LayoutFor(kind); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "service.run_batch", telemetry.SpanAttributes{
		BatchKind: string(kind),
		Operation: "run_batch",
	})
	defer span.End()

	results := s.runner.Run(ctx, kind, rows, onProgress)
	table, err := batch.BuildTable(kind, results)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	span.SetResults(len(results))

	report := &BatchReport{
		Kind:    kind,
		Rows:    results,
		Table:   table,
		Summary: summarize(results),
	}
	s.log.Info().
		Str("kind", string(kind)).
		Int("found", report.Summary.Found).
		Int("not_found", report.Summary.NotFound).
		Int("failed", report.Summary.Failed).
		Msg("batch report ready")
	return report, nil
}

// RunBatchFile parses r and runs the batch in one go. Used by the CLI.
func (s *Session) RunBatchFile(ctx context.Context, kind domain.BatchKind, r io.Reader, onProgress func(batch.Progress)) (*BatchReport, error) {
	rows, err := s.ParseBatch(kind, r)
	if err != nil {
		return nil, err
	}
	return s.RunBatch(ctx, kind, rows, onProgress)
}
