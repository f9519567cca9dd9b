package batch

import (
	"context"
	"sync"

	"github.com/cloo-solutions/buscador/internal/customsearch"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Progress is reported after every processed row. Processed never decreases.
type Progress struct {
	Processed int
	Total     int
}

// Fraction returns the processed share in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Processed) / float64(p.Total)
}

// Done reports whether every row has been processed.
func (p Progress) Done() bool {
	return p.Processed >= p.Total
}

type RunnerOptions struct {
	// Workers bounds concurrent searches. 1 keeps rows strictly sequential.
	Workers int
	// RateLimitRPS is a global limit across all workers. Set to <=0 to disable.
	RateLimitRPS float64
	Metrics      *metrics.Metrics
	Logger       *zerolog.Logger
}

// Runner executes a batch of rows against the LinkedIn engine.
type Runner struct {
	searcher customsearch.Searcher
	engineID string
	opts     RunnerOptions
	log      zerolog.Logger
}

func NewRunner(searcher customsearch.Searcher, engineID string, opts RunnerOptions) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "batch").Logger()
	}
	return &Runner{
		searcher: searcher,
		engineID: engineID,
		opts:     opts,
		log:      logger,
	}
}

// Run searches every row and returns one result per row in input order,
// regardless of completion order. A failed row is recorded as a Failed
// outcome and does not stop the others. onProgress may be nil; calls to it
// are serialized.
func (r *Runner) Run(ctx context.Context, kind domain.BatchKind, rows []domain.BatchInputRow, onProgress func(Progress)) []domain.BatchResultRow {
	out := make([]domain.BatchResultRow, len(rows))

	var limiter *rate.Limiter
	if r.opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.opts.RateLimitRPS), 1)
	}

	var mu sync.Mutex
	processed := 0
	report := func() {
		mu.Lock()
		defer mu.Unlock()
		processed++
		if onProgress != nil {
			onProgress(Progress{Processed: processed, Total: len(rows)})
		}
	}

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, row := range rows {
		g.Go(func() error {
			out[i] = r.runRow(ctx, kind, row, limiter)
			r.opts.Metrics.ObserveBatchRow(string(kind), string(out[i].Outcome.Status))
			report()
			return nil
		})
	}
	_ = g.Wait()

	r.log.Info().
		Str("kind", string(kind)).
		Int("rows", len(rows)).
		Msg("batch finished")
	return out
}

func (r *Runner) runRow(ctx context.Context, kind domain.BatchKind, row domain.BatchInputRow, limiter *rate.Limiter) domain.BatchResultRow {
	query := BuildQuery(kind, row)
	result := domain.BatchResultRow{Input: row, Query: query}

	if query == "" {
		result.Outcome = domain.Failed(domain.ErrEmptyQuery)
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Outcome = domain.Failed(err)
		return result
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			result.Outcome = domain.Failed(err)
			return result
		}
	}

	results, err := r.searcher.PerformSearch(ctx, query, r.engineID)
	if err != nil {
		r.log.Warn().
			Err(err).
			Int("row", row.Index).
			Msg("batch row search failed")
	}
	outcome := domain.OutcomeOf(results, err)
	if kind == domain.BatchJobTitles && len(outcome.Results) > JobTitleSlots {
		outcome.Results = outcome.Results[:JobTitleSlots]
	} else if kind != domain.BatchJobTitles && len(outcome.Results) > 1 {
		outcome.Results = outcome.Results[:1]
	}
	result.Outcome = outcome
	return result
}
