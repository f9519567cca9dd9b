package batch

import (
	"strings"

	"github.com/cloo-solutions/buscador/internal/domain"
)

// Site filters appended to batch queries.
const (
	SiteCompanyPages = "site:linkedin.com/company/"
	SiteProfiles     = "site:linkedin.com/in/"
)

// SiteFilter returns the filter used for kind. Job title searches look at
// full profiles rather than a title-only refinement.
func SiteFilter(kind domain.BatchKind) string {
	if kind == domain.BatchCompanies {
		return SiteCompanyPages
	}
	return SiteProfiles
}

// BuildQuery quotes each non-empty field of row and appends the site filter
// for kind.
func BuildQuery(kind domain.BatchKind, row domain.BatchInputRow) string {
	var fields []string
	switch kind {
	case domain.BatchCompanies:
		fields = []string{row.Company}
	case domain.BatchPeople:
		fields = []string{row.Name, row.Company, row.Title}
	case domain.BatchJobTitles:
		fields = []string{row.Title, row.Company}
	}

	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		f = strings.TrimSpace(strings.ReplaceAll(f, `"`, ""))
		if f == "" {
			continue
		}
		parts = append(parts, `"`+f+`"`)
	}
	if len(parts) == 0 {
		return ""
	}
	parts = append(parts, SiteFilter(kind))
	return strings.Join(parts, " ")
}
