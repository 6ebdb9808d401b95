// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// SearchParameters is the immutable value object for one batch run.
// Identical values address the same cache key space.
type SearchParameters struct {
	// DateRangeYears is how many years back the search reaches.
	DateRangeYears int `json:"date_range_years" yaml:"date_range_years"`

	// MaxResults caps the number of PMIDs retrieved per chemical.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// IncludeReviews controls whether review articles are searched.
	IncludeReviews bool `json:"include_reviews" yaml:"include_reviews"`

	// UseCache enables cache lookups and write-through for this run.
	UseCache bool `json:"use_cache" yaml:"use_cache"`
}

// MaxResultsCeiling bounds MaxResults regardless of configuration.
const MaxResultsCeiling = 10000

// Validate checks the parameter ranges.
func (p SearchParameters) Validate() error {
	if p.DateRangeYears < 1 || p.DateRangeYears > 50 {
		return fmt.Errorf("date_range_years %d out of range [1,50]", p.DateRangeYears)
	}
	if p.MaxResults < 1 || p.MaxResults > MaxResultsCeiling {
		return fmt.Errorf("max_results %d out of range [1,%d]", p.MaxResults, MaxResultsCeiling)
	}
	return nil
}

// SessionStatus is the lifecycle state of a batch run. Transitions move
// only forward: pending → running → {completed, cancelled, failed}.
type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
	StatusFailed    SessionStatus = "failed"
)

// CanTransition reports whether moving from s to next is a legal
// lifecycle step.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next == StatusCompleted || next == StatusCancelled || next == StatusFailed
	default:
		return false
	}
}

// BatchSession records one batch run: its inputs, parameters, status,
// and the per-chemical results accumulated so far. Input order in
// Chemicals is preserved so reports can always re-sort completion-order
// results back to input order.
type BatchSession struct {
	// ID uniquely identifies the run.
	ID string `json:"id" yaml:"id"`

	// Chemicals is the ordered input list.
	Chemicals []Chemical `json:"chemicals" yaml:"chemicals"`

	// Parameters are the search parameters for the whole run.
	Parameters SearchParameters `json:"parameters" yaml:"parameters"`

	// Status is the current lifecycle state.
	Status SessionStatus `json:"status" yaml:"status"`

	// Results maps Chemical.Key() to the scored outcome. Grows
	// monotonically while the run is in progress.
	Results map[string]ScoredResult `json:"results" yaml:"results"`

	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// UpdatedAt is when the session was last persisted.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// OrderedResults returns the scored results in input order. Chemicals
// without a recorded result (e.g. after cancellation) are skipped.
func (s *BatchSession) OrderedResults() []ScoredResult {
	out := make([]ScoredResult, 0, len(s.Results))
	for _, chem := range s.Chemicals {
		if r, ok := s.Results[chem.Key()]; ok {
			out = append(out, r)
		}
	}
	return out
}
