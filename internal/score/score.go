// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score derives a 0-100 data-availability score for a search
// result. Scoring is a pure function of the result: identical inputs
// always produce identical scores, and all date math anchors on the
// result's RetrievedAt timestamp rather than the wall clock.
package score

import (
	"math"

	"github.com/pdiddy/chemscreen/pkg/types"
)

// recentWindowYears defines how far back a publication still counts as
// recent activity.
const recentWindowYears = 3

// countBuckets maps total hit counts to the volume component (max 60).
// More literature is always at least as good as less.
var countBuckets = []struct {
	min   int
	score int
}{
	{500, 60},
	{250, 50},
	{100, 40},
	{50, 30},
	{10, 20},
	{1, 10},
}

// Score computes the quality assessment for one search result. Failed
// results and empty results score zero with an insufficient-data trend.
func Score(result types.SearchResult) types.ScoredResult {
	scored := types.ScoredResult{
		SearchResult: result,
		Trend:        types.TrendInsufficientData,
	}

	if result.Failed() || result.TotalCount == 0 {
		return scored
	}

	recent, reviews := tally(result)
	scored.RecentCount = recent
	scored.ReviewCount = reviews
	scored.QualityScore = countScore(result.TotalCount) + recencyScore(result, recent)
	scored.Trend = trend(result)
	return scored
}

func countScore(total int) int {
	for _, b := range countBuckets {
		if total >= b.min {
			return b.score
		}
	}
	return 0
}

// recencyScore awards up to 40 points for the fraction of fetched
// records published within the recent window. Undated records count
// against the fraction.
func recencyScore(result types.SearchResult, recent int) int {
	if len(result.Publications) == 0 {
		return 0
	}
	fraction := float64(recent) / float64(len(result.Publications))
	return int(math.Round(40 * fraction))
}

func tally(result types.SearchResult) (recent, reviews int) {
	cutoff := result.RetrievedAt.Year() - recentWindowYears
	for _, pub := range result.Publications {
		if pub.Year >= cutoff && pub.Year > 0 {
			recent++
		}
		if pub.IsReview {
			reviews++
		}
	}
	return recent, reviews
}

// trend classifies publication activity by splitting the observed year
// range into thirds and comparing the earliest and latest segments. At
// least three dated records are required for a verdict.
func trend(result types.SearchResult) types.Trend {
	var years []int
	for _, pub := range result.Publications {
		if pub.Year > 0 {
			years = append(years, pub.Year)
		}
	}
	if len(years) < 3 {
		return types.TrendInsufficientData
	}

	minYear, maxYear := years[0], years[0]
	for _, y := range years[1:] {
		if y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}
	if maxYear == minYear {
		return types.TrendStable
	}

	span := float64(maxYear-minYear) / 3
	var early, late int
	for _, y := range years {
		switch {
		case float64(y) < float64(minYear)+span:
			early++
		case float64(y) > float64(maxYear)-span:
			late++
		}
	}

	switch {
	case float64(late) > 1.5*float64(early):
		return types.TrendIncreasing
	case float64(late) < 0.5*float64(early):
		return types.TrendDecreasing
	default:
		return types.TrendStable
	}
}
