// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the chemscreen pipeline.
package types

import (
	"fmt"
	"regexp"
	"strings"
)

// casPattern matches the CAS Registry Number shape: 2-7 digits, 2 digits,
// and a single check digit.
var casPattern = regexp.MustCompile(`^\d{2,7}-\d{2}-\d$`)

// Chemical is the identity unit of work: one input row, one query key.
// Synonym handling happens before a Chemical is constructed; the engine
// treats every Chemical as an independent search.
type Chemical struct {
	// Name is the chemical name as provided in the input list.
	Name string `json:"name" yaml:"name"`

	// CASNumber is the optional CAS Registry Number (e.g. "75-09-2").
	CASNumber string `json:"cas_number,omitempty" yaml:"cas_number,omitempty"`

	// Synonyms lists alternative names included in the search query.
	Synonyms []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`

	// Validated reports whether the CAS number passed checksum validation.
	Validated bool `json:"validated" yaml:"validated"`

	// Notes carries free-form annotations from the input file.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Validate checks that the chemical has a non-empty name and, when a CAS
// number is present, that it matches the registry format.
func (c Chemical) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("chemical name is empty")
	}
	if c.CASNumber != "" && !casPattern.MatchString(c.CASNumber) {
		return fmt.Errorf("invalid CAS number format %q: expected digits as XXXXXX-XX-X", c.CASNumber)
	}
	return nil
}

// Key returns the identity key used for result maps and cache fingerprints.
// Name comparison is case-insensitive; the CAS number disambiguates
// different substances that share a trade name.
func (c Chemical) Key() string {
	key := strings.ToLower(strings.TrimSpace(c.Name))
	if c.CASNumber != "" {
		key += "|" + c.CASNumber
	}
	return key
}
