package domain

import "strings"

// BatchKind identifies one of the batch workflows.
type BatchKind string

const (
	BatchCompanies BatchKind = "companies"
	BatchPeople    BatchKind = "people"
	BatchJobTitles BatchKind = "jobs"
)

// BatchKinds lists the workflows in the order they appear in the UI.
var BatchKinds = []BatchKind{BatchCompanies, BatchPeople, BatchJobTitles}

// ParseBatchKind validates a kind taken from a URL or flag.
func ParseBatchKind(value string) (BatchKind, error) {
	switch BatchKind(strings.TrimSpace(strings.ToLower(value))) {
	case BatchCompanies:
		return BatchCompanies, nil
	case BatchPeople:
		return BatchPeople, nil
	case BatchJobTitles:
		return BatchJobTitles, nil
	default:
		return "", ErrInvalidBatchKind
	}
}

// Title is the heading used for the workflow page.
func (k BatchKind) Title() string {
	switch k {
	case BatchCompanies:
		return "Busca em lote de empresas"
	case BatchPeople:
		return "Busca em lote de pessoas"
	case BatchJobTitles:
		return "Busca em lote por cargos"
	default:
		return string(k)
	}
}

// BatchInputRow is one row read from an uploaded file. Only the fields the
// workflow uses are populated.
type BatchInputRow struct {
	Index   int    `json:"index"`
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Title   string `json:"title,omitempty"`
}

// BatchResultRow pairs an input row with the outcome of its search.
type BatchResultRow struct {
	Input   BatchInputRow `json:"input"`
	Query   string        `json:"query"`
	Outcome Outcome       `json:"outcome"`
}
