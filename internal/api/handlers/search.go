package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/buscador/internal/api"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/service"
	"github.com/cloo-solutions/buscador/internal/web"
)

type ManualSearcher interface {
	ManualSearch(ctx context.Context, query string, scope domain.Scope) (*service.ManualResult, error)
}

type SearchHandler struct {
	svc   ManualSearcher
	pages *web.Pages
}

func NewSearchHandler(svc ManualSearcher, pages *web.Pages) *SearchHandler {
	return &SearchHandler{svc: svc, pages: pages}
}

type ManualSearchRequest struct {
	Query string `json:"query"`
	Scope string `json:"scope"`
}

// Index renders the empty search form.
func (h *SearchHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, web.PageSearch, web.NewSearchPage())
}

// Search handles the form submission and renders the results below the form.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	page := web.NewSearchPage()
	if err := r.ParseForm(); err != nil {
		page.Error = web.ErrorMessage(err)
		h.pages.Render(w, http.StatusBadRequest, web.PageSearch, page)
		return
	}
	page.Query = r.PostFormValue("query")

	scope, err := domain.ParseScope(r.PostFormValue("scope"))
	if err != nil {
		page.Error = web.ErrorMessage(err)
		h.pages.Render(w, http.StatusBadRequest, web.PageSearch, page)
		return
	}
	page.Scope = scope

	res, err := h.svc.ManualSearch(r.Context(), page.Query, scope)
	if res == nil {
		page.Error = web.ErrorMessage(err)
		h.pages.Render(w, api.DomainErrorToHTTP(err), web.PageSearch, page)
		return
	}

	page.Searched = true
	page.Notice = res.Notice
	if err != nil {
		page.Error = web.ErrorMessage(err)
		h.pages.Render(w, api.DomainErrorToHTTP(err), web.PageSearch, page)
		return
	}
	page.NotFound = res.Outcome.Status == domain.OutcomeNotFound
	page.Results = web.CardsFrom(res.Outcome.Results)
	h.pages.Render(w, http.StatusOK, web.PageSearch, page)
}

// APISearch is the JSON form of Search.
func (h *SearchHandler) APISearch(w http.ResponseWriter, r *http.Request) {
	var req ManualSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scope, err := domain.ParseScope(req.Scope)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	res, err := h.svc.ManualSearch(r.Context(), req.Query, scope)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, res)
}
