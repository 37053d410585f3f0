// Package textnorm folds text for rule matching: NFD decomposition, accent
// stripping, Unicode case folding, whitespace collapse.
package textnorm

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// transformers are stateful, so each goroutine borrows its own chain
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			cases.Fold(),
			norm.NFC,
		)
	},
}

// Fold returns s lower-cased, without diacritics and with single spaces.
// "Sanción  GRAVE" becomes "sancion grave".
func Fold(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		out = strings.ToLower(s)
	}

	return strings.Join(strings.Fields(out), " ")
}

// Contains reports whether needle appears in haystack after folding both.
func Contains(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Fold(haystack), n)
}

// RuneLen counts runes, the unit every length threshold uses.
func RuneLen(s string) int {
	return len([]rune(s))
}
