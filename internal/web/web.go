// Package web renders the HTML pages of the search tool.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/cloo-solutions/buscador/internal/batch"
	"github.com/cloo-solutions/buscador/internal/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Placeholder is the hint shown in the manual search box.
const Placeholder = "Ex: Diretor de Marketing, Vagas Agronomia..."

// User-facing messages.
const (
	MsgEmptyQuery   = "Por favor, digite algo para buscar."
	MsgSearchFailed = "Erro ao conectar com a API de busca: "
)

// Page names accepted by Render.
const (
	PageSearch    = "search.html"
	PageBatchForm = "batch_form.html"
	PageJob       = "job.html"
)

// ErrorMessage turns an error into text for the page.
func ErrorMessage(err error) string {
	var colErr *domain.ColumnError
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		return MsgEmptyQuery
	case errors.As(err, &colErr):
		return fmt.Sprintf("O arquivo não possui a coluna obrigatória %q.", colErr.Column)
	case errors.Is(err, domain.ErrEmptyBatch):
		return "O arquivo não possui linhas para buscar."
	case errors.Is(err, domain.ErrMissingUploadFile):
		return "Selecione um arquivo para enviar."
	case errors.Is(err, domain.ErrInvalidScope):
		return "Escolha onde deseja pesquisar."
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Sprintf("O arquivo excede o limite de %d bytes.", maxErr.Limit)
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == domain.ErrCodeUpstream {
		if domainErr.Err != nil {
			return MsgSearchFailed + domainErr.Err.Error()
		}
		return MsgSearchFailed + domainErr.Message
	}
	return "Ocorreu um erro inesperado: " + err.Error()
}

// ResultCard is one manual search result as displayed.
type ResultCard struct {
	Title   string
	Link    string
	Snippet string
}

// CardsFrom converts results for display. A missing title falls back to the
// link so every card stays clickable.
func CardsFrom(results []domain.SearchResult) []ResultCard {
	cards := make([]ResultCard, 0, len(results))
	for _, r := range results {
		link := r.LinkOr("")
		cards = append(cards, ResultCard{
			Title:   r.TitleOr(link),
			Link:    link,
			Snippet: r.SnippetOr(""),
		})
	}
	return cards
}

type SearchPage struct {
	Query       string
	Scope       domain.Scope
	Scopes      []domain.Scope
	Placeholder string
	Notice      string
	Searched    bool
	NotFound    bool
	Error       string
	Results     []ResultCard
}

// NewSearchPage returns an empty form with the web scope selected.
func NewSearchPage() SearchPage {
	return SearchPage{
		Scope:       domain.ScopeWeb,
		Scopes:      []domain.Scope{domain.ScopeWeb, domain.ScopeLinkedIn},
		Placeholder: Placeholder,
	}
}

type BatchFormPage struct {
	Kind  domain.BatchKind
	Kinds []domain.BatchKind
	Hint  string
	Error string
}

// NewBatchFormPage returns the upload form for kind.
func NewBatchFormPage(kind domain.BatchKind) BatchFormPage {
	return BatchFormPage{Kind: kind, Kinds: domain.BatchKinds, Hint: UploadHint(kind)}
}

// UploadHint describes the file a workflow expects.
func UploadHint(kind domain.BatchKind) string {
	switch kind {
	case domain.BatchCompanies:
		return "Arquivo CSV ou TXT com um nome de empresa por linha."
	case domain.BatchPeople:
		return fmt.Sprintf("Arquivo CSV com as colunas %s e %s (%s opcional).", batch.ColumnName, batch.ColumnTitle, batch.ColumnCompany)
	case domain.BatchJobTitles:
		return fmt.Sprintf("Arquivo CSV com a coluna %s (%s opcional).", batch.ColumnTitle, batch.ColumnCompany)
	default:
		return ""
	}
}

type JobPage struct {
	ID         string
	Kind       domain.BatchKind
	Running    bool
	Failed     bool
	Error      string
	Processed  int
	Total      int
	Percent    int
	Table      *batch.Table
	ReportURL  string
	ArchiveURL string
	// RefreshSeconds makes the page reload itself while the job runs.
	RefreshSeconds int
}

// Pages holds the parsed templates. Each page is parsed together with the
// shared layout.
type Pages struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"kindTitle":  func(k domain.BatchKind) string { return k.Title() },
	"scopeLabel": func(s domain.Scope) string { return s.Label() },
}

// NewPages parses the embedded templates.
func NewPages() (*Pages, error) {
	names := []string{PageSearch, PageBatchForm, PageJob}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Pages{pages: pages}, nil
}

// MustPages is NewPages for callers that treat a template error as a bug.
func MustPages() *Pages {
	p, err := NewPages()
	if err != nil {
		panic(err)
	}
	return p
}

// Execute renders page into w.
func (p *Pages) Execute(w io.Writer, page string, data any) error {
	tmpl, ok := p.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// Render writes page as an HTML response. The page is rendered to a buffer
// first so a template error never produces a half-written body.
func (p *Pages) Render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := p.Execute(&buf, page, data); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
