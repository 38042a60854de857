// Package normalize folds place names from the facility registry into comparable keys
// Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFKD so accents split into marks
// 3 Remove combining marks and format chars
// 4 Width fold fullwidth to ASCII
// 5 Upper case
// 6 Drop periods and collapse whitespace
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// transformers are stateful, so each call takes its own chain from the pool
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
			cases.Upper(language.English),
		)
	},
}

// Name returns the comparable form of a place name, e.g. "Doña Ana " -> "DONA ANA"
func Name(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	ns = strings.ReplaceAll(ns, ".", "")
	return strings.Join(strings.Fields(ns), " ")
}

// countySuffixes are stripped in order; longer forms precede their prefixes
var countySuffixes = []string{
	" COUNTY",
	" BOROUGH",
	" (CA)",
	"(CA)",
	" CENSUS AREA",
	" CITY AND BOROUGH",
	" CITY AND",
	" CITY",
	" PARISH",
	" COUNT",
	" COUN",
}

// County returns the corrected county name: Name folding plus removal of registry suffixes
// such as " COUNTY" and " PARISH", so "Jefferson County" and "JEFFERSON" compare equal
func County(s string) string {
	c := Name(s)
	for _, suf := range countySuffixes {
		c = strings.TrimSuffix(c, suf)
	}
	return strings.TrimSpace(c)
}
