package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cloo-solutions/buscador/internal/domain"
)

// Sentinels written where no search data exists.
const (
	NoResult  = "Nenhum resultado"
	EmptySlot = "-"
)

// JobTitleSlots is how many results a job title row keeps.
const JobTitleSlots = 3

// Layout describes the report for one workflow.
type Layout struct {
	Kind     domain.BatchKind
	Filename string
	Header   []string
	// Slots is the number of results recorded per row.
	Slots int
}

// LayoutFor returns the report layout for kind.
func LayoutFor(kind domain.BatchKind) (Layout, error) {
	switch kind {
	case domain.BatchCompanies:
		return Layout{
			Kind:     kind,
			Filename: "resultados_empresas.csv",
			Header:   []string{"Empresa Pesquisada", "Link LinkedIn", "Título"},
			Slots:    1,
		}, nil
	case domain.BatchPeople:
		return Layout{
			Kind:     kind,
			Filename: "resultados_pessoas.csv",
			Header:   []string{"Nome", "Empresa", "Cargo", "Link LinkedIn", "Título"},
			Slots:    1,
		}, nil
	case domain.BatchJobTitles:
		header := []string{"Cargo", "Empresa"}
		for i := 1; i <= JobTitleSlots; i++ {
			n := strconv.Itoa(i)
			header = append(header, "Resultado "+n, "Título "+n)
		}
		return Layout{
			Kind:     kind,
			Filename: "resultados_cargos.csv",
			Header:   header,
			Slots:    JobTitleSlots,
		}, nil
	default:
		return Layout{}, domain.ErrInvalidBatchKind
	}
}

// Record flattens a result row into report cells. Outcomes are collapsed to
// sentinels here and nowhere earlier.
func (l Layout) Record(row domain.BatchResultRow) []string {
	in := row.Input
	switch l.Kind {
	case domain.BatchCompanies:
		link, title := firstCells(row.Outcome)
		return []string{in.Company, link, title}
	case domain.BatchPeople:
		link, title := firstCells(row.Outcome)
		return []string{in.Name, in.Company, in.Title, link, title}
	case domain.BatchJobTitles:
		record := []string{in.Title, in.Company}
		for i := 0; i < l.Slots; i++ {
			result, ok := row.Outcome.At(i)
			if !ok {
				record = append(record, EmptySlot, EmptySlot)
				continue
			}
			record = append(record, result.LinkOr(EmptySlot), result.TitleOr(EmptySlot))
		}
		return record
	default:
		return nil
	}
}

func firstCells(o domain.Outcome) (link, title string) {
	result, ok := o.First()
	if !ok {
		return NoResult, NoResult
	}
	return result.LinkOr(NoResult), result.TitleOr(NoResult)
}

// Table is a rendered report ready for HTML or CSV output.
type Table struct {
	Layout Layout
	Rows   [][]string
}

// BuildTable lays rows out in input order.
func BuildTable(kind domain.BatchKind, rows []domain.BatchResultRow) (Table, error) {
	layout, err := LayoutFor(kind)
	if err != nil {
		return Table{}, err
	}
	table := Table{Layout: layout, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		table.Rows = append(table.Rows, layout.Record(row))
	}
	return table, nil
}

// WriteCSV writes the table as UTF-8, comma-delimited CSV with a header row.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Layout.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}
