// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chem

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/chemscreen/pkg/types"
)

// Recognized header spellings, normalized to lower snake case.
var (
	nameColumns    = []string{"name", "chemical_name", "chemical", "compound", "substance"}
	casColumns     = []string{"cas", "cas_number", "cas_no", "casrn", "cas_rn"}
	synonymColumns = []string{"synonyms", "synonym", "aliases", "other_names"}
	notesColumns   = []string{"notes", "note", "comments", "comment"}
)

// RowError records why one input row was rejected. Rejected rows do not
// fail the parse; the caller decides whether to surface them.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

// ParseCSV reads a chemical list from CSV. The header row is matched
// case-insensitively against common column spellings; a name column is
// required, everything else is optional. Synonym cells may hold several
// names separated by semicolons. Each row is normalized; rows without a
// usable name come back as RowErrors.
func ParseCSV(r io.Reader) ([]types.Chemical, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("input is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		chems []types.Chemical
		errs  []RowError
		line  = 1
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errs = append(errs, RowError{Line: line, Err: err})
			continue
		}
		if blankRow(record) {
			continue
		}

		raw := types.Chemical{
			Name:      cell(record, cols.name),
			CASNumber: cell(record, cols.cas),
			Notes:     cell(record, cols.notes),
		}
		for _, syn := range strings.Split(cell(record, cols.synonyms), ";") {
			if s := strings.TrimSpace(syn); s != "" {
				raw.Synonyms = append(raw.Synonyms, s)
			}
		}

		chem, err := Normalize(raw)
		if err != nil {
			errs = append(errs, RowError{Line: line, Err: err})
			continue
		}
		chems = append(chems, chem)
	}

	return chems, errs, nil
}

type columnMap struct {
	name     int
	cas      int
	synonyms int
	notes    int
}

func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{name: -1, cas: -1, synonyms: -1, notes: -1}
	for i, h := range header {
		switch normalized := normalizeHeader(h); {
		case cols.name < 0 && matches(normalized, nameColumns):
			cols.name = i
		case cols.cas < 0 && matches(normalized, casColumns):
			cols.cas = i
		case cols.synonyms < 0 && matches(normalized, synonymColumns):
			cols.synonyms = i
		case cols.notes < 0 && matches(normalized, notesColumns):
			cols.notes = i
		}
	}
	if cols.name < 0 {
		return cols, fmt.Errorf("no chemical name column found; accepted headers: %s",
			strings.Join(nameColumns, ", "))
	}
	return cols, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

func matches(h string, candidates []string) bool {
	for _, c := range candidates {
		if h == c {
			return true
		}
	}
	return false
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blankRow(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
