// Package telemetry wraps Sentry for error reporting and tracing of searches
// and batch jobs.
package telemetry

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

const serviceName = "buscador"

const flushTimeout = 5 * time.Second

type Config struct {
	DSN         string
	Environment string
	// TracesSampleRate defaults to 1.0 in development and 0.1 elsewhere.
	TracesSampleRate float64
	Debug            bool
}

func (c Config) sampleRate() float64 {
	if c.TracesSampleRate > 0 {
		return c.TracesSampleRate
	}
	if c.Environment == "" || c.Environment == "development" {
		return 1.0
	}
	return 0.1
}

// Init starts the Sentry client. The returned function flushes pending
// events. An empty DSN or a client that fails to start leaves telemetry off
// and is not an error.
func Init(cfg Config) func() {
	if cfg.DSN == "" {
		return func() {}
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	rate := cfg.sampleRate()

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: rate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			if ctx.Span.Name == "GET /health" || ctx.Span.Name == "GET /metrics" {
				return 0.0
			}
			var emptySpanID sentry.SpanID
			if ctx.Span.ParentSpanID != emptySpanID {
				if ctx.Span.Sampled.Bool() {
					return 1.0
				}
				return 0.0
			}
			return rate
		}),
		BeforeSend: scrubEvent,
	})
	if err != nil {
		log.Warn().Err(err).Msg("sentry: failed to initialize, continuing without telemetry")
		return func() {}
	}

	log.Info().
		Str("environment", cfg.Environment).
		Float64("sample_rate", rate).
		Msg("sentry: telemetry initialized")
	return func() { sentry.Flush(flushTimeout) }
}

// scrubEvent drops the query string from reported requests. Search API URLs
// carry the API key and manual queries may carry personal names.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		event.Request.QueryString = ""
		if u, err := url.Parse(event.Request.URL); err == nil {
			u.RawQuery = ""
			event.Request.URL = u.String()
		}
	}
	return event
}

// SpanAttributes tag a span with the search or batch it belongs to.
type SpanAttributes struct {
	Scope     string
	BatchKind string
	JobID     string
	Operation string
}

// Span wraps a sentry span. The zero value is a no-op.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetResults records how many results or rows the operation produced.
func (s *Span) SetResults(n int) {
	if s.inner != nil {
		s.inner.SetData("results", n)
	}
}

// SetError marks the span failed. Only unexpected failures are captured as
// Sentry events: user input errors and missing resources are not.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = spanStatusFor(err)
	if Reportable(err) {
		if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
			hub.CaptureException(err)
		}
	}
}

// Reportable reports whether err is worth a Sentry event.
func Reportable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == domain.ErrCodeUpstream || domainErr.Code == domain.ErrCodeInternalError
	}
	return true
}

func spanStatusFor(err error) sentry.SpanStatus {
	switch {
	case errors.Is(err, context.Canceled):
		return sentry.SpanStatusCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return sentry.SpanStatusDeadlineExceeded
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeValidation:
			return sentry.SpanStatusInvalidArgument
		case domain.ErrCodeNotFound:
			return sentry.SpanStatusNotFound
		case domain.ErrCodeUpstream:
			return sentry.SpanStatusUnavailable
		}
	}
	return sentry.SpanStatusInternalError
}

// StartSpan opens a child of the span already in ctx, or a new transaction
// when there is none, such as for batch jobs that outlive their request.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.Scope != "" {
		span.SetTag("search.scope", attrs.Scope)
	}
	if attrs.BatchKind != "" {
		span.SetTag("batch.kind", attrs.BatchKind)
	}
	if attrs.JobID != "" {
		span.SetTag("batch.job_id", attrs.JobID)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}

	return span.Context(), &Span{inner: span}
}

// CaptureError reports err when it is worth reporting.
func CaptureError(ctx context.Context, err error) {
	if !Reportable(err) {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
