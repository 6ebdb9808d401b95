// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Publication is one literature record returned by the bibliographic API.
type Publication struct {
	// PMID is the PubMed record identifier.
	PMID string `json:"pmid" yaml:"pmid"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in citation order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Journal is the journal title, when reported.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Abstract is the abstract text, when fetched.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// DOI is the Digital Object Identifier, when reported.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// IsReview reports whether the record carries the Review publication type.
	IsReview bool `json:"is_review" yaml:"is_review"`
}

// SearchResult is the per-chemical outcome of one literature search.
// Exactly one of {successful payload, Error} is set: a failed search has
// Error non-empty and no PMIDs or count; a successful search has Error
// empty. TotalCount is the count reported by the search API and may
// exceed len(PMIDs), which is capped by the request.
type SearchResult struct {
	// Chemical is the input row this result belongs to.
	Chemical Chemical `json:"chemical" yaml:"chemical"`

	// PMIDs is the ordered list of record identifiers, at most the
	// requested maximum.
	PMIDs []string `json:"pmids,omitempty" yaml:"pmids,omitempty"`

	// TotalCount is the authoritative publication count reported by the
	// search API. Never derived from len(PMIDs).
	TotalCount int `json:"total_count" yaml:"total_count"`

	// Publications holds fetched metadata for the returned PMIDs.
	Publications []Publication `json:"publications,omitempty" yaml:"publications,omitempty"`

	// Error describes a per-item failure, empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// ErrorKind classifies the failure (transient, malformed, not_found).
	ErrorKind string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`

	// RetrievedAt is when the search completed. Scoring is anchored on
	// this timestamp so cached results score identically on every read.
	RetrievedAt time.Time `json:"retrieved_at" yaml:"retrieved_at"`

	// FromCache reports whether this result was served from the cache.
	// Observability only; it does not participate in equality or scoring.
	FromCache bool `json:"from_cache" yaml:"from_cache"`
}

// Failed reports whether the search failed.
func (r SearchResult) Failed() bool { return r.Error != "" }

// Trend classifies the publication trajectory over the searched date range.
type Trend string

const (
	TrendIncreasing       Trend = "increasing"
	TrendStable           Trend = "stable"
	TrendDecreasing       Trend = "decreasing"
	TrendInsufficientData Trend = "insufficient-data"
)

// ScoredResult is a SearchResult plus fields derived by the scorer.
// The derived fields are a pure function of the embedded result and are
// recomputed rather than persisted on their own.
type ScoredResult struct {
	SearchResult `yaml:",inline"`

	// QualityScore is the literature-strength score, 0-100.
	QualityScore int `json:"quality_score" yaml:"quality_score"`

	// Trend is the publication trend classification.
	Trend Trend `json:"trend" yaml:"trend"`

	// RecentCount is the number of fetched publications dated within the
	// three years before retrieval.
	RecentCount int `json:"recent_count" yaml:"recent_count"`

	// ReviewCount is the number of fetched review articles.
	ReviewCount int `json:"review_count" yaml:"review_count"`
}
