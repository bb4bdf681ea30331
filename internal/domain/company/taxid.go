package company

import "strings"

// TaxIDLength is the expected length of a normalized tax ID
const TaxIDLength = 11

// NormalizeTaxID strips every non-digit character from a raw tax ID.
// An empty result means the input carried no usable identifier at all;
// a wrong-length result is still returned so callers can decide whether
// to proceed (back-office data contains legacy identifiers).
func NormalizeTaxID(raw string) (normalized string, ok bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	normalized = b.String()
	return normalized, normalized != ""
}

// IsWellFormedTaxID reports whether a normalized tax ID has the expected length
func IsWellFormedTaxID(taxID string) bool {
	return len(taxID) == TaxIDLength
}
