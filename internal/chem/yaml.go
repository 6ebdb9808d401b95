// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chem

import (
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chemscreen/pkg/types"
)

// yamlList accepts both a bare sequence of chemicals and a document
// with a top-level "chemicals" key.
type yamlList struct {
	Chemicals []types.Chemical `yaml:"chemicals"`
}

// ParseYAML reads a chemical list from YAML. Entries mirror the
// Chemical type: name, cas_number, synonyms, notes. Entries that fail
// normalization come back as RowErrors, indexed by list position.
func ParseYAML(r io.Reader) ([]types.Chemical, []RowError, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading input: %w", err)
	}

	var list yamlList
	keyedErr := yaml.Unmarshal(data, &list)
	if keyedErr != nil || len(list.Chemicals) == 0 {
		// One fallback covers both shapes: a bare sequence fails the
		// keyed unmarshal, an empty keyed document decodes to nothing.
		var bare []types.Chemical
		switch bareErr := yaml.Unmarshal(data, &bare); {
		case bareErr == nil:
			list.Chemicals = bare
		case keyedErr != nil:
			return nil, nil, fmt.Errorf("parsing chemical list: %w", keyedErr)
		}
	}
	if len(list.Chemicals) == 0 {
		return nil, nil, fmt.Errorf("no chemicals found in input")
	}

	var (
		chems []types.Chemical
		errs  []RowError
	)
	for i, raw := range list.Chemicals {
		chem, err := Normalize(raw)
		if err != nil {
			errs = append(errs, RowError{Line: i + 1, Err: err})
			continue
		}
		chems = append(chems, chem)
	}
	return chems, errs, nil
}
