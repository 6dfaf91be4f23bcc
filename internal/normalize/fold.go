package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Column canonicalizes a column identifier: trimmed and upper-cased.
func Column(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Fold canonicalizes a column identifier for matching against configured
// names: Column plus diacritics removed, so "DATA_RECLAMAÇÃO" and
// "DATA_RECLAMACAO" compare equal.
func Fold(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, Column(name))
	if err != nil {
		return Column(name)
	}
	return out
}

// NFC returns s in Unicode composed form so precomposed and combining
// accents compare equal.
func NFC(s string) string {
	return norm.NFC.String(s)
}
