package jobs

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/cloo-solutions/buscador/internal/batch"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/metrics"
	"github.com/cloo-solutions/buscador/internal/service"
	"github.com/cloo-solutions/buscador/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status of a batch job.
type Status string

const (
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
)

// BatchRunner executes a parsed batch.
type BatchRunner interface {
	RunBatch(ctx context.Context, kind domain.BatchKind, rows []domain.BatchInputRow, onProgress func(batch.Progress)) (*service.BatchReport, error)
}

// ReportArchiver stores a finished report and returns a download URL.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, key string, body []byte) (string, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

type defaultUUIDGenerator struct{}

func (defaultUUIDGenerator) NewString() string { return uuid.NewString() }

// Snapshot is a point-in-time, copy-safe view of a job.
type Snapshot struct {
	ID         string                `json:"id"`
	Kind       domain.BatchKind      `json:"kind"`
	Status     Status                `json:"status"`
	Processed  int                   `json:"processed"`
	Total      int                   `json:"total"`
	Summary    *service.BatchSummary `json:"summary,omitempty"`
	Error      string                `json:"error,omitempty"`
	ArchiveURL string                `json:"archive_url,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
}

// Fraction returns the processed share in [0, 1].
func (s Snapshot) Fraction() float64 {
	return batch.Progress{Processed: s.Processed, Total: s.Total}.Fraction()
}

// Percent is Fraction scaled to 0..100 for display.
func (s Snapshot) Percent() int {
	return int(s.Fraction() * 100)
}

// Done reports whether the job has stopped running.
func (s Snapshot) Done() bool {
	return s.Status != StatusRunning
}

type job struct {
	mu         sync.RWMutex
	id         string
	kind       domain.BatchKind
	status     Status
	progress   batch.Progress
	report     *service.BatchReport
	err        string
	archiveURL string
	createdAt  time.Time
	finishedAt time.Time
}

func (j *job) snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	snap := Snapshot{
		ID:         j.id,
		Kind:       j.kind,
		Status:     j.status,
		Processed:  j.progress.Processed,
		Total:      j.progress.Total,
		Error:      j.err,
		ArchiveURL: j.archiveURL,
		CreatedAt:  j.createdAt,
	}
	if j.report != nil {
		sum := j.report.Summary
		snap.Summary = &sum
	}
	if !j.finishedAt.IsZero() {
		finished := j.finishedAt
		snap.FinishedAt = &finished
	}
	return snap
}

type TrackerConfig struct {
	Runner   BatchRunner
	Archiver ReportArchiver
	// TTL is how long a finished job stays available. Zero keeps jobs forever.
	TTL     time.Duration
	Metrics *metrics.Metrics
	Logger  *zerolog.Logger
	UUIDGen UUIDGenerator
	Now     func() time.Time
}

// Tracker runs batch jobs in the background and keeps their state in memory.
// It also implements Sweeper so a Janitor can evict expired jobs.
type Tracker struct {
	runner   BatchRunner
	archiver ReportArchiver
	ttl      time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
	uuidGen  UUIDGenerator
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*job
}

func NewTracker(cfg TrackerConfig) *Tracker {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "jobs").Logger()
	}
	uuidGen := cfg.UUIDGen
	if uuidGen == nil {
		uuidGen = defaultUUIDGenerator{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Tracker{
		runner:   cfg.Runner,
		archiver: cfg.Archiver,
		ttl:      cfg.TTL,
		metrics:  cfg.Metrics,
		log:      logger,
		uuidGen:  uuidGen,
		now:      now,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*job),
	}
}

// Start registers a job for rows and begins processing it in the background.
// The job outlives the request that started it and is only cancelled by
// Shutdown.
func (t *Tracker) Start(kind domain.BatchKind, rows []domain.BatchInputRow) Snapshot {
	j := &job{
		id:        t.uuidGen.NewString(),
		kind:      kind,
		status:    StatusRunning,
		progress:  batch.Progress{Total: len(rows)},
		createdAt: t.now().UTC(),
	}

	t.mu.Lock()
	t.jobs[j.id] = j
	t.mu.Unlock()

	t.metrics.JobStarted()
	t.log.Info().
		Str("job_id", j.id).
		Str("kind", string(kind)).
		Int("rows", len(rows)).
		Msg("batch job started")

	t.wg.Add(1)
	go t.run(j, rows)

	return j.snapshot()
}

func (t *Tracker) run(j *job, rows []domain.BatchInputRow) {
	defer t.wg.Done()
	defer t.metrics.JobFinished()

	ctx, span := telemetry.StartSpan(t.ctx, "jobs.batch", telemetry.SpanAttributes{
		BatchKind: string(j.kind),
		JobID:     j.id,
		Operation: "batch_job",
	})
	defer span.End()

	report, err := t.runner.RunBatch(ctx, j.kind, rows, func(p batch.Progress) {
		j.mu.Lock()
		if p.Processed > j.progress.Processed {
			j.progress = p
		}
		j.mu.Unlock()
	})

	var archiveURL string
	if err == nil && t.archiver != nil {
		archiveURL = t.archive(ctx, j.id, report)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.finishedAt = t.now().UTC()
	if err != nil {
		span.SetError(err)
		j.status = StatusFailed
		j.err = err.Error()
		t.log.Error().Err(err).Str("job_id", j.id).Msg("batch job failed")
		return
	}
	j.status = StatusFinished
	j.report = report
	j.progress.Processed = j.progress.Total
	j.archiveURL = archiveURL
	t.log.Info().
		Str("job_id", j.id).
		Dur("duration", j.finishedAt.Sub(j.createdAt)).
		Msg("batch job finished")
}

func (t *Tracker) archive(ctx context.Context, id string, report *service.BatchReport) string {
	var buf bytes.Buffer
	if err := report.Table.WriteCSV(&buf); err != nil {
		t.log.Warn().Err(err).Str("job_id", id).Msg("failed to render report for archive")
		return ""
	}
	url, err := t.archiver.ArchiveReport(ctx, ArchiveKey(id, report.Table.Layout.Filename), buf.Bytes())
	if err != nil {
		telemetry.CaptureError(ctx, err)
		t.log.Warn().Err(err).Str("job_id", id).Msg("failed to archive report")
		return ""
	}
	return url
}

// ArchiveKey is the object key a job's report is stored under.
func ArchiveKey(jobID, filename string) string {
	return "reports/" + jobID + "/" + filename
}

func (t *Tracker) lookup(id string) (*job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, ok := t.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return j, nil
}

// Get returns the current state of a job.
func (t *Tracker) Get(id string) (Snapshot, error) {
	j, err := t.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return j.snapshot(), nil
}

// Report returns the finished report of a job.
func (t *Tracker) Report(id string) (*service.BatchReport, error) {
	j, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.report == nil {
		return nil, domain.ErrReportNotReady
	}
	return j.report, nil
}

// Sweep evicts jobs that finished more than TTL ago and returns how many
// were removed. Running jobs are never evicted.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	if t.ttl <= 0 {
		return 0, nil
	}
	cutoff := t.now().UTC().Add(-t.ttl)

	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for id, j := range t.jobs {
		j.mu.RLock()
		expired := j.status != StatusRunning && j.finishedAt.Before(cutoff)
		j.mu.RUnlock()
		if expired {
			delete(t.jobs, id)
			evicted++
		}
	}
	return evicted, nil
}

// Shutdown cancels running jobs and waits for them to stop, or for ctx.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.cancel()
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
