package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/service"
	"github.com/cloo-solutions/buscador/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockManualSearcher is a mock implementation of ManualSearcher
type MockManualSearcher struct {
	mock.Mock
}

func (m *MockManualSearcher) ManualSearch(ctx context.Context, query string, scope domain.Scope) (*service.ManualResult, error) {
	args := m.Called(ctx, query, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ManualResult), args.Error(1)
}

func strPtr(s string) *string { return &s }

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func parseHTML(t *testing.T, w *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)
	return doc
}

func TestSearchHandler_Index(t *testing.T) {
	handler := NewSearchHandler(new(MockManualSearcher), web.MustPages())

	w := httptest.NewRecorder()
	handler.Index(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	doc := parseHTML(t, w)
	assert.Equal(t, 1, doc.Find("#search-form").Length())
	assert.Equal(t, web.Placeholder, doc.Find(`input[name="query"]`).AttrOr("placeholder", ""))
}

func TestSearchHandler_Search_RendersCards(t *testing.T) {
	mockSvc := new(MockManualSearcher)
	mockSvc.On("ManualSearch", mock.Anything, "acme", domain.ScopeLinkedIn).Return(&service.ManualResult{
		Query:  "acme",
		Scope:  domain.ScopeLinkedIn,
		Notice: domain.ScopeLinkedIn.Notice(),
		Outcome: domain.Found([]domain.SearchResult{
			{Title: strPtr("Acme"), Link: strPtr("https://linkedin.com/company/acme"), Snippet: strPtr("Acme Inc.")},
		}),
	}, nil)
	handler := NewSearchHandler(mockSvc, web.MustPages())

	w := httptest.NewRecorder()
	handler.Search(w, postForm("/search", url.Values{"query": {"acme"}, "scope": {"linkedin"}}))

	assert.Equal(t, http.StatusOK, w.Code)
	doc := parseHTML(t, w)
	assert.Equal(t, 1, doc.Find(".card").Length())
	assert.Equal(t, "https://linkedin.com/company/acme", doc.Find(".card h3 a").AttrOr("href", ""))
	assert.Equal(t, "Buscando apenas no LinkedIn...", doc.Find("#notice").Text())
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_NotFound(t *testing.T) {
	mockSvc := new(MockManualSearcher)
	mockSvc.On("ManualSearch", mock.Anything, "zzz", domain.ScopeWeb).Return(&service.ManualResult{
		Query: "zzz", Scope: domain.ScopeWeb, Notice: domain.ScopeWeb.Notice(), Outcome: domain.NotFound(),
	}, nil)
	handler := NewSearchHandler(mockSvc, web.MustPages())

	w := httptest.NewRecorder()
	handler.Search(w, postForm("/search", url.Values{"query": {"zzz"}}))

	assert.Equal(t, http.StatusOK, w.Code)
	doc := parseHTML(t, w)
	assert.Contains(t, doc.Find("#not-found").Text(), "Nenhum resultado foi encontrado")
	assert.Zero(t, doc.Find(".card").Length())
}

func TestSearchHandler_Search_EmptyQuery(t *testing.T) {
	mockSvc := new(MockManualSearcher)
	mockSvc.On("ManualSearch", mock.Anything, "", domain.ScopeWeb).Return(nil, domain.ErrEmptyQuery)
	handler := NewSearchHandler(mockSvc, web.MustPages())

	w := httptest.NewRecorder()
	handler.Search(w, postForm("/search", url.Values{"query": {""}, "scope": {"web"}}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	doc := parseHTML(t, w)
	assert.Equal(t, web.MsgEmptyQuery, doc.Find("#error").Text())
	assert.Zero(t, doc.Find("#results").Length())
}

func TestSearchHandler_Search_UpstreamFailureInline(t *testing.T) {
	upstream := domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, domain.ErrSearchUnavailable.Message, errors.New("search api returned status 403"))
	mockSvc := new(MockManualSearcher)
	mockSvc.On("ManualSearch", mock.Anything, "acme", domain.ScopeWeb).Return(&service.ManualResult{
		Query: "acme", Scope: domain.ScopeWeb, Notice: domain.ScopeWeb.Notice(), Outcome: domain.Failed(upstream),
	}, upstream)
	handler := NewSearchHandler(mockSvc, web.MustPages())

	w := httptest.NewRecorder()
	handler.Search(w, postForm("/search", url.Values{"query": {"acme"}, "scope": {"web"}}))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	doc := parseHTML(t, w)
	assert.Contains(t, doc.Find("#error").Text(), "status 403")
	assert.Zero(t, doc.Find(".card").Length())
}

func TestSearchHandler_Search_InvalidScope(t *testing.T) {
	mockSvc := new(MockManualSearcher)
	handler := NewSearchHandler(mockSvc, web.MustPages())

	w := httptest.NewRecorder()
	handler.Search(w, postForm("/search", url.Values{"query": {"acme"}, "scope": {"news"}}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "ManualSearch", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchHandler_APISearch_Success(t *testing.T) {
	mockSvc := new(MockManualSearcher)
	mockSvc.On("ManualSearch", mock.Anything, "acme", domain.ScopeWeb).Return(&service.ManualResult{
		Query: "acme", Scope: domain.ScopeWeb, Notice: domain.ScopeWeb.Notice(),
		Outcome: domain.Found([]domain.SearchResult{{Link: strPtr("http://a")}}),
	}, nil)
	handler := NewSearchHandler(mockSvc, web.MustPages())

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"acme","scope":"web"}`))
	w := httptest.NewRecorder()
	handler.APISearch(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Query   string `json:"query"`
			Outcome struct {
				Status  string `json:"status"`
				Results []struct {
					Title *string `json:"title"`
					Link  *string `json:"link"`
				} `json:"results"`
			} `json:"outcome"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "found", resp.Data.Outcome.Status)
	require.Len(t, resp.Data.Outcome.Results, 1)
	assert.Nil(t, resp.Data.Outcome.Results[0].Title)
	assert.Equal(t, "http://a", *resp.Data.Outcome.Results[0].Link)
}

func TestSearchHandler_APISearch_Errors(t *testing.T) {
	upstream := domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, domain.ErrSearchUnavailable.Message, errors.New("timeout"))
	mockSvc := new(MockManualSearcher)
	mockSvc.On("ManualSearch", mock.Anything, "", domain.ScopeWeb).Return(nil, domain.ErrEmptyQuery)
	mockSvc.On("ManualSearch", mock.Anything, "acme", domain.ScopeWeb).Return(&service.ManualResult{Outcome: domain.Failed(upstream)}, upstream)
	handler := NewSearchHandler(mockSvc, web.MustPages())

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"empty query", `{"query":""}`, http.StatusBadRequest},
		{"invalid scope", `{"query":"acme","scope":"news"}`, http.StatusBadRequest},
		{"upstream failure", `{"query":"acme"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.APISearch(w, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}
