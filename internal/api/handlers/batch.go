package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cloo-solutions/buscador/internal/api"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/jobs"
	"github.com/cloo-solutions/buscador/internal/service"
	"github.com/cloo-solutions/buscador/internal/web"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const uploadField = "file"

// MultipartOverhead is the room a request body gets beyond the upload limit
// for multipart boundaries and part headers.
const MultipartOverhead = 64 * 1024

type BatchParser interface {
	ParseBatch(kind domain.BatchKind, r io.Reader) ([]domain.BatchInputRow, error)
}

type JobTracker interface {
	Start(kind domain.BatchKind, rows []domain.BatchInputRow) jobs.Snapshot
	Get(id string) (jobs.Snapshot, error)
	Report(id string) (*service.BatchReport, error)
}

type BatchHandler struct {
	parser         BatchParser
	tracker        JobTracker
	pages          *web.Pages
	maxUploadBytes int64
	refreshSeconds int
}

type BatchHandlerConfig struct {
	Parser         BatchParser
	Tracker        JobTracker
	Pages          *web.Pages
	MaxUploadBytes int64
	// RefreshSeconds is the reload interval of a running job page.
	RefreshSeconds int
}

func NewBatchHandler(cfg BatchHandlerConfig) *BatchHandler {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	refresh := cfg.RefreshSeconds
	if refresh <= 0 {
		refresh = 2
	}
	return &BatchHandler{
		parser:         cfg.Parser,
		tracker:        cfg.Tracker,
		pages:          cfg.Pages,
		maxUploadBytes: maxUpload,
		refreshSeconds: refresh,
	}
}

// Form renders the upload form of a workflow.
func (h *BatchHandler) Form(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseBatchKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.pages.Render(w, http.StatusOK, web.PageBatchForm, web.NewBatchFormPage(kind))
}

// Start validates the upload, starts a job and redirects to its page.
func (h *BatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseBatchKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	rows, err := h.parseUpload(r, kind)
	if err != nil {
		page := web.NewBatchFormPage(kind)
		page.Error = web.ErrorMessage(err)
		h.pages.Render(w, api.DomainErrorToHTTP(err), web.PageBatchForm, page)
		return
	}

	snap := h.tracker.Start(kind, rows)
	http.Redirect(w, r, jobPath(snap.ID), http.StatusSeeOther)
}

// Job renders progress while the job runs and the report table once it is
// finished.
func (h *BatchHandler) Job(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.tracker.Get(id)
	if err != nil {
		http.Error(w, "job not found", api.DomainErrorToHTTP(err))
		return
	}

	page := web.JobPage{
		ID:             snap.ID,
		Kind:           snap.Kind,
		Running:        !snap.Done(),
		Failed:         snap.Status == jobs.StatusFailed,
		Error:          snap.Error,
		Processed:      snap.Processed,
		Total:          snap.Total,
		Percent:        snap.Percent(),
		ArchiveURL:     snap.ArchiveURL,
		ReportURL:      jobPath(snap.ID) + "/report.csv",
		RefreshSeconds: h.refreshSeconds,
	}
	if snap.Status == jobs.StatusFinished {
		report, err := h.tracker.Report(id)
		if err == nil {
			page.Table = &report.Table
		}
	}
	h.pages.Render(w, http.StatusOK, web.PageJob, page)
}

// Download streams the finished report as a CSV attachment.
func (h *BatchHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.tracker.Report(id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Table.Layout.Filename))
	w.WriteHeader(http.StatusOK)
	if err := report.Table.WriteCSV(w); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("job_id", id).Msg("failed to write report")
	}
}

// APIStart is the JSON form of Start. It answers 202 with the new job.
func (h *BatchHandler) APIStart(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseBatchKind(chi.URLParam(r, "kind"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	rows, err := h.parseUpload(r, kind)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	snap := h.tracker.Start(kind, rows)
	w.Header().Set("Location", "/api"+jobPath(snap.ID))
	api.Success(w, http.StatusAccepted, snap)
}

// APIJob returns the progress of a job.
func (h *BatchHandler) APIJob(w http.ResponseWriter, r *http.Request) {
	snap, err := h.tracker.Get(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, snap)
}

func (h *BatchHandler) parseUpload(r *http.Request, kind domain.BatchKind) ([]domain.BatchInputRow, error) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, domain.ErrMissingUploadFile
		}
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, domain.ErrMissingUploadFile
		}
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		return nil, &http.MaxBytesError{Limit: h.maxUploadBytes}
	}

	return h.parser.ParseBatch(kind, file)
}

func jobPath(id string) string {
	return "/batch/jobs/" + id
}
