// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders finished screening sessions as CSV, Excel, or
// JSON reports, always in the input order of the chemical list.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/chemscreen/pkg/types"
)

// Options controls report contents.
type Options struct {
	// IncludeAbstracts adds per-publication rows (with abstracts) to
	// formats that support them.
	IncludeAbstracts bool
}

// Summary aggregates one session's results.
type Summary struct {
	Chemicals    int                 `json:"chemicals"`
	Succeeded    int                 `json:"succeeded"`
	Failed       int                 `json:"failed"`
	CacheHits    int                 `json:"cache_hits"`
	MeanScore    float64             `json:"mean_score"`
	HighPriority int                 `json:"high_priority"`
	Trends       map[types.Trend]int `json:"trends"`
}

// highPriorityThreshold marks chemicals with enough literature to be
// worth a manual review pass.
const highPriorityThreshold = 70

// Summarize computes aggregate statistics over scored results. The mean
// score covers successful results only.
func Summarize(results []types.ScoredResult) Summary {
	sum := Summary{
		Chemicals: len(results),
		Trends:    make(map[types.Trend]int),
	}

	total := 0
	for _, r := range results {
		if r.Failed() {
			sum.Failed++
			continue
		}
		sum.Succeeded++
		total += r.QualityScore
		if r.FromCache {
			sum.CacheHits++
		}
		if r.QualityScore >= highPriorityThreshold {
			sum.HighPriority++
		}
		sum.Trends[r.Trend]++
	}
	if sum.Succeeded > 0 {
		sum.MeanScore = float64(total) / float64(sum.Succeeded)
	}
	return sum
}

var resultHeader = []string{
	"name", "cas_number", "total_count", "quality_score", "trend",
	"recent_count", "review_count", "from_cache", "retrieved_at", "error", "pmids",
}

// WriteCSV writes one row per chemical in input order.
func WriteCSV(w io.Writer, sess *types.BatchSession) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range sess.OrderedResults() {
		if err := cw.Write(resultRow(r)); err != nil {
			return fmt.Errorf("writing row for %s: %w", r.Chemical.Name, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

func resultRow(r types.ScoredResult) []string {
	return []string{
		r.Chemical.Name,
		r.Chemical.CASNumber,
		strconv.Itoa(r.TotalCount),
		strconv.Itoa(r.QualityScore),
		string(r.Trend),
		strconv.Itoa(r.RecentCount),
		strconv.Itoa(r.ReviewCount),
		strconv.FormatBool(r.FromCache),
		r.RetrievedAt.UTC().Format(time.RFC3339),
		r.Error,
		strings.Join(r.PMIDs, ";"),
	}
}

// jsonReport is the envelope for JSON exports.
type jsonReport struct {
	SessionID  string                 `json:"session_id"`
	Status     types.SessionStatus    `json:"status"`
	Parameters types.SearchParameters `json:"parameters"`
	CreatedAt  time.Time              `json:"created_at"`
	Summary    Summary                `json:"summary"`
	Results    []types.ScoredResult   `json:"results"`
}

// WriteJSON writes the session, its summary, and all results as one
// indented JSON document.
func WriteJSON(w io.Writer, sess *types.BatchSession) error {
	results := sess.OrderedResults()
	report := jsonReport{
		SessionID:  sess.ID,
		Status:     sess.Status,
		Parameters: sess.Parameters,
		CreatedAt:  sess.CreatedAt,
		Summary:    Summarize(results),
		Results:    results,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
