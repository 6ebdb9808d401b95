// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chem prepares chemical input lists for screening: name
// cleanup, common-abbreviation expansion, CAS number validation, and
// duplicate removal.
package chem

import (
	"fmt"
	"strings"

	"github.com/pdiddy/chemscreen/pkg/types"
)

// abbreviations maps common solvent and contaminant shorthand to the
// name PubMed indexes. Matching is case-insensitive on the short form.
var abbreviations = map[string]string{
	"TCE":  "Trichloroethylene",
	"PCE":  "Tetrachloroethylene",
	"DCE":  "Dichloroethylene",
	"DCM":  "Dichloromethane",
	"TCA":  "Trichloroethane",
	"VC":   "Vinyl chloride",
	"MTBE": "Methyl tert-butyl ether",
	"PFOA": "Perfluorooctanoic acid",
	"PFOS": "Perfluorooctane sulfonate",
	"PCB":  "Polychlorinated biphenyl",
	"PAH":  "Polycyclic aromatic hydrocarbon",
	"EDC":  "Ethylene dichloride",
}

// StandardizeName trims and collapses internal whitespace. Case is
// preserved; searches are case-insensitive downstream.
func StandardizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// ExpandAbbreviation resolves a known shorthand like "TCE" to its full
// chemical name. The second return reports whether an expansion was
// found.
func ExpandAbbreviation(name string) (string, bool) {
	full, ok := abbreviations[strings.ToUpper(StandardizeName(name))]
	return full, ok
}

// ValidateCAS checks both the registry format and the mod-10 check
// digit of a CAS number. The checksum weights each digit by its
// position counted from the right, excluding the check digit itself.
func ValidateCAS(cas string) error {
	if err := (types.Chemical{Name: "x", CASNumber: cas}).Validate(); err != nil {
		return err
	}

	digits := strings.ReplaceAll(cas, "-", "")
	check := int(digits[len(digits)-1] - '0')

	sum := 0
	body := digits[:len(digits)-1]
	for i := 0; i < len(body); i++ {
		weight := len(body) - i
		sum += weight * int(body[i]-'0')
	}

	if sum%10 != check {
		return fmt.Errorf("CAS number %s fails checksum: expected check digit %d", cas, sum%10)
	}
	return nil
}

// Normalize cleans up one input chemical: the name is standardized,
// known abbreviations become synonyms of the full name, and the
// Validated flag records whether the CAS number passed its checksum.
// Chemicals with no usable name are rejected.
func Normalize(chem types.Chemical) (types.Chemical, error) {
	chem.Name = StandardizeName(chem.Name)
	chem.CASNumber = strings.TrimSpace(chem.CASNumber)
	chem.Notes = strings.TrimSpace(chem.Notes)

	if full, ok := ExpandAbbreviation(chem.Name); ok {
		chem.Synonyms = append([]string{chem.Name}, chem.Synonyms...)
		chem.Name = full
	}

	cleaned := chem.Synonyms[:0]
	for _, syn := range chem.Synonyms {
		if s := StandardizeName(syn); s != "" && !strings.EqualFold(s, chem.Name) {
			cleaned = append(cleaned, s)
		}
	}
	chem.Synonyms = cleaned
	if len(chem.Synonyms) == 0 {
		chem.Synonyms = nil
	}

	if err := chem.Validate(); err != nil {
		return types.Chemical{}, err
	}
	if chem.CASNumber != "" {
		chem.Validated = ValidateCAS(chem.CASNumber) == nil
	}
	return chem, nil
}

// Dedupe removes repeated chemicals, keeping the first occurrence of
// each identity key. The second return lists the discarded duplicates.
func Dedupe(chems []types.Chemical) (unique, duplicates []types.Chemical) {
	seen := make(map[string]bool, len(chems))
	for _, c := range chems {
		key := c.Key()
		if seen[key] {
			duplicates = append(duplicates, c)
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}
	return unique, duplicates
}
