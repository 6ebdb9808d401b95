// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/tealeg/xlsx/v2"

	"github.com/pdiddy/chemscreen/pkg/types"
)

// WriteXLSX writes an Excel workbook with a Results sheet, a Summary
// sheet, and optionally a Publications sheet holding per-record
// metadata and abstracts.
func WriteXLSX(w io.Writer, sess *types.BatchSession, opts Options) error {
	file := xlsx.NewFile()
	results := sess.OrderedResults()

	if err := addResultsSheet(file, results); err != nil {
		return err
	}
	if err := addSummarySheet(file, sess, Summarize(results)); err != nil {
		return err
	}
	if opts.IncludeAbstracts {
		if err := addPublicationsSheet(file, results); err != nil {
			return err
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func addResultsSheet(file *xlsx.File, results []types.ScoredResult) error {
	sheet, err := file.AddSheet("Results")
	if err != nil {
		return fmt.Errorf("adding results sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, col := range resultHeader {
		header.AddCell().SetString(col)
	}

	for _, r := range results {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Chemical.Name)
		row.AddCell().SetString(r.Chemical.CASNumber)
		row.AddCell().SetInt(r.TotalCount)
		row.AddCell().SetInt(r.QualityScore)
		row.AddCell().SetString(string(r.Trend))
		row.AddCell().SetInt(r.RecentCount)
		row.AddCell().SetInt(r.ReviewCount)
		row.AddCell().SetBool(r.FromCache)
		row.AddCell().SetString(r.RetrievedAt.UTC().Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(r.Error)
		row.AddCell().SetString(strings.Join(r.PMIDs, ";"))
	}
	return nil
}

func addSummarySheet(file *xlsx.File, sess *types.BatchSession, sum Summary) error {
	sheet, err := file.AddSheet("Summary")
	if err != nil {
		return fmt.Errorf("adding summary sheet: %w", err)
	}

	addPair := func(label string, value any) {
		row := sheet.AddRow()
		row.AddCell().SetString(label)
		switch v := value.(type) {
		case int:
			row.AddCell().SetInt(v)
		case float64:
			row.AddCell().SetFloat(v)
		default:
			row.AddCell().SetString(fmt.Sprint(v))
		}
	}

	addPair("Session", sess.ID)
	addPair("Status", string(sess.Status))
	addPair("Chemicals", sum.Chemicals)
	addPair("Succeeded", sum.Succeeded)
	addPair("Failed", sum.Failed)
	addPair("Cache hits", sum.CacheHits)
	addPair("Mean score", sum.MeanScore)
	addPair("High priority", sum.HighPriority)
	for trend, n := range sum.Trends {
		addPair("Trend: "+string(trend), n)
	}
	return nil
}

func addPublicationsSheet(file *xlsx.File, results []types.ScoredResult) error {
	sheet, err := file.AddSheet("Publications")
	if err != nil {
		return fmt.Errorf("adding publications sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, col := range []string{"chemical", "pmid", "year", "title", "journal", "authors", "doi", "review", "abstract"} {
		header.AddCell().SetString(col)
	}

	for _, r := range results {
		for _, pub := range r.Publications {
			row := sheet.AddRow()
			row.AddCell().SetString(r.Chemical.Name)
			row.AddCell().SetString(pub.PMID)
			row.AddCell().SetInt(pub.Year)
			row.AddCell().SetString(pub.Title)
			row.AddCell().SetString(pub.Journal)
			row.AddCell().SetString(strings.Join(pub.Authors, "; "))
			row.AddCell().SetString(pub.DOI)
			row.AddCell().SetBool(pub.IsReview)
			row.AddCell().SetString(pub.Abstract)
		}
	}
	return nil
}
