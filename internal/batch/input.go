// Package batch turns uploaded files into search queries, runs them and
// lays the outcomes out as a downloadable report.
package batch

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/buscador/internal/domain"
)

// Column names expected in the header row of people and job title files.
const (
	ColumnName    = "Nome"
	ColumnCompany = "Empresa"
	ColumnTitle   = "Cargo"
)

const utf8BOM = "\ufeff"

// ParseInput reads the rows of an uploaded file for the given workflow.
// Missing required columns fail the whole file before any row is returned.
func ParseInput(kind domain.BatchKind, r io.Reader) ([]domain.BatchInputRow, error) {
	switch kind {
	case domain.BatchCompanies:
		return ParseCompanies(r)
	case domain.BatchPeople:
		return ParsePeople(r)
	case domain.BatchJobTitles:
		return ParseJobTitles(r)
	default:
		return nil, domain.ErrInvalidBatchKind
	}
}

// ParseCompanies reads one company name per line. A line is taken verbatim
// unless it starts with a quote, in which case it is decoded as a CSV record
// and its first cell is used. A leading "Empresa" header is skipped.
//
// When the first line holds more than one cell the file is read as a table:
// names come from the Empresa column if the header has one, otherwise from
// the first column.
func ParseCompanies(r io.Reader) ([]domain.BatchInputRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	var names []string
	if header, comma, ok := companyTableHeader(data); ok {
		names, err = companyColumn(data, header, comma)
		if err != nil {
			return nil, err
		}
	} else {
		names, err = companyLines(data)
		if err != nil {
			return nil, err
		}
	}

	rows := make([]domain.BatchInputRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, domain.BatchInputRow{Index: len(rows), Company: name})
	}
	if len(rows) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	return rows, nil
}

func companyLines(data []byte) ([]string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var names []string
	first := true
	for scanner.Scan() {
		name := companyName(strings.TrimSpace(scanner.Text()))
		if name == "" {
			continue
		}
		isFirst := first
		first = false
		if isFirst && strings.EqualFold(name, ColumnCompany) {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return names, nil
}

// companyTableHeader decodes the first non-blank line with the detected
// delimiter and reports whether it has more than one cell.
func companyTableHeader(data []byte) ([]string, rune, bool) {
	line := firstLine(data)
	if line == "" {
		return nil, 0, false
	}
	comma := detectDelimiter([]byte(line))
	reader := csv.NewReader(strings.NewReader(line))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	record, err := reader.Read()
	if err != nil || len(record) < 2 {
		return nil, 0, false
	}
	return record, comma, true
}

func companyColumn(data []byte, header []string, comma rune) ([]string, error) {
	column, skipHeader := 0, false
	for i, name := range header {
		if normalizeColumn(name) == normalizeColumn(ColumnCompany) {
			column, skipHeader = i, true
			break
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var names []string
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid csv file", err)
		}
		if first {
			first = false
			if skipHeader {
				continue
			}
		}
		if column >= len(record) {
			continue
		}
		if name := strings.TrimSpace(record[column]); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func firstLine(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}

func companyName(line string) string {
	if !strings.HasPrefix(line, `"`) {
		return line
	}
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	record, err := reader.Read()
	if err != nil {
		return strings.Trim(line, `"`)
	}
	return firstNonEmpty(record)
}

// ParsePeople reads a file with Nome and Cargo columns and an optional
// Empresa column.
func ParsePeople(r io.Reader) ([]domain.BatchInputRow, error) {
	return parseTable(r, []string{ColumnName, ColumnTitle}, func(get func(string) string) domain.BatchInputRow {
		return domain.BatchInputRow{
			Name:    get(ColumnName),
			Company: get(ColumnCompany),
			Title:   get(ColumnTitle),
		}
	})
}

// ParseJobTitles reads a file with a Cargo column and an optional Empresa
// column.
func ParseJobTitles(r io.Reader) ([]domain.BatchInputRow, error) {
	return parseTable(r, []string{ColumnTitle}, func(get func(string) string) domain.BatchInputRow {
		return domain.BatchInputRow{
			Company: get(ColumnCompany),
			Title:   get(ColumnTitle),
		}
	})
}

func parseTable(r io.Reader, required []string, build func(get func(string) string) domain.BatchInputRow) ([]domain.BatchInputRow, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.MissingColumnError(required[0])
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		key := normalizeColumn(name)
		if _, seen := columns[key]; !seen {
			columns[key] = i
		}
	}
	for _, name := range required {
		if _, ok := columns[normalizeColumn(name)]; !ok {
			return nil, domain.MissingColumnError(name)
		}
	}

	var rows []domain.BatchInputRow
	for _, record := range records[1:] {
		get := func(name string) string {
			idx, ok := columns[normalizeColumn(name)]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}
		row := build(get)
		if row.Name == "" && row.Company == "" && row.Title == "" {
			continue
		}
		row.Index = len(rows)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	return rows, nil
}

func readRecords(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid csv file", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// detectDelimiter picks ';' when the first line has more semicolons than
// commas, which is how spreadsheets export CSV in pt-BR locales.
func detectDelimiter(data []byte) rune {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if !scanner.Scan() {
		return ','
	}
	line := scanner.Text()
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, utf8BOM)))
}

func firstNonEmpty(record []string) string {
	for _, cell := range record {
		if v := strings.TrimSpace(cell); v != "" {
			return v
		}
	}
	return ""
}
