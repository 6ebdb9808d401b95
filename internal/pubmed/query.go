// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/chemscreen/pkg/types"
)

// BuildQuery assembles the E-utilities term for one chemical. The name,
// CAS number, and any synonyms are OR-ed together as Title/Abstract
// phrases, restricted to the trailing date window, with review articles
// excluded unless requested. Identical inputs always produce the same
// string, which keeps cache fingerprints stable.
func BuildQuery(chem types.Chemical, params types.SearchParameters, now time.Time) string {
	terms := make([]string, 0, 2+len(chem.Synonyms))
	terms = append(terms, phrase(chem.Name))
	if chem.CASNumber != "" {
		terms = append(terms, phrase(chem.CASNumber))
	}
	for _, syn := range chem.Synonyms {
		if s := strings.TrimSpace(syn); s != "" {
			terms = append(terms, phrase(s))
		}
	}

	var b strings.Builder
	b.WriteString("(")
	b.WriteString(strings.Join(terms, " OR "))
	b.WriteString(")")

	years := params.DateRangeYears
	if years <= 0 {
		years = 10
	}
	from := now.AddDate(-years, 0, 0)
	fmt.Fprintf(&b, " AND (%q[PDAT] : %q[PDAT])", from.Format("2006/01/02"), "3000")

	if !params.IncludeReviews {
		b.WriteString(" NOT Review[PT]")
	}

	return b.String()
}

func phrase(term string) string {
	return fmt.Sprintf("%q[Title/Abstract]", strings.TrimSpace(term))
}
