package domain

import "strings"

// SearchResult is one item returned by the search API. A nil field means the
// API item did not carry it.
type SearchResult struct {
	Title   *string `json:"title"`
	Link    *string `json:"link"`
	Snippet *string `json:"snippet"`
}

// TitleOr returns the title, or fallback when absent.
func (r SearchResult) TitleOr(fallback string) string {
	if r.Title == nil {
		return fallback
	}
	return *r.Title
}

// LinkOr returns the link, or fallback when absent.
func (r SearchResult) LinkOr(fallback string) string {
	if r.Link == nil {
		return fallback
	}
	return *r.Link
}

// SnippetOr returns the snippet, or fallback when absent.
func (r SearchResult) SnippetOr(fallback string) string {
	if r.Snippet == nil {
		return fallback
	}
	return *r.Snippet
}

// Scope selects which configured search engine a query runs against.
type Scope string

const (
	ScopeWeb      Scope = "web"
	ScopeLinkedIn Scope = "linkedin"
)

// ParseScope normalizes a scope value coming from a form or flag.
func ParseScope(value string) (Scope, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "web":
		return ScopeWeb, nil
	case "linkedin":
		return ScopeLinkedIn, nil
	default:
		return "", ErrInvalidScope
	}
}

// Label is the text shown next to the scope selector.
func (s Scope) Label() string {
	if s == ScopeLinkedIn {
		return "Apenas no LinkedIn"
	}
	return "Toda a Web"
}

// Notice is the message shown while a search in this scope runs.
func (s Scope) Notice() string {
	if s == ScopeLinkedIn {
		return "Buscando apenas no LinkedIn..."
	}
	return "Buscando em toda a Web..."
}

// OutcomeStatus tells found, not found and failed searches apart.
type OutcomeStatus string

const (
	OutcomeFound    OutcomeStatus = "found"
	OutcomeNotFound OutcomeStatus = "not_found"
	OutcomeFailed   OutcomeStatus = "failed"
)

// Outcome is the result of a single search call as seen by a workflow.
type Outcome struct {
	Status  OutcomeStatus  `json:"status"`
	Results []SearchResult `json:"results,omitempty"`
	Reason  string         `json:"reason,omitempty"`
}

// Found builds an Outcome for a call that returned at least one item.
func Found(results []SearchResult) Outcome {
	return Outcome{Status: OutcomeFound, Results: results}
}

// NotFound builds an Outcome for a successful call with no items.
func NotFound() Outcome {
	return Outcome{Status: OutcomeNotFound}
}

// Failed builds an Outcome for a call that did not complete.
func Failed(err error) Outcome {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return Outcome{Status: OutcomeFailed, Reason: reason}
}

// OutcomeOf folds the return values of a search call into an Outcome.
func OutcomeOf(results []SearchResult, err error) Outcome {
	if err != nil {
		return Failed(err)
	}
	if len(results) == 0 {
		return NotFound()
	}
	return Found(results)
}

// First returns the first result if the outcome has one.
func (o Outcome) First() (SearchResult, bool) {
	return o.At(0)
}

// At returns the i-th result if present.
func (o Outcome) At(i int) (SearchResult, bool) {
	if o.Status != OutcomeFound || i < 0 || i >= len(o.Results) {
		return SearchResult{}, false
	}
	return o.Results[i], true
}
