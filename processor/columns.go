package processor

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/riaintel/advflow/pkg/table"
)

// canonAliases maps already-canonicalized header spellings onto the fixed
// names the rest of the pipeline keys on.
var canonAliases = map[string]string{
	"FILINGID":      "FILING_ID",
	"FILING_ID":     "FILING_ID",
	"FILINGNUMBER":  "FILING_ID",
	"FILING_NO":     "FILING_ID",
	"FILING_NUMBER": "FILING_ID",
	"FIRMCRD":       "CRD",
	"FIRM_CRD":      "CRD",
	"CRD":           "CRD",
	"SEC":           "SEC",
	"SEC_NUMBER":    "SEC",
	"FIRMNAME":      "FIRM_NAME",
	"FIRM_NAME":     "FIRM_NAME",
}

var nonAlnum = regexp.MustCompile(`[^0-9A-Za-z]+`)

// CanonicalName converts one raw header string into its canonical form:
// NFKC normalization, BOM stripped, runs of non-alphanumerics collapsed to
// a single underscore, outer underscores trimmed, upper-cased, then alias
// resolution.
func CanonicalName(raw string) string {
	s := norm.NFKC.String(strings.ReplaceAll(raw, "\ufeff", ""))
	s = nonAlnum.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "_")
	s = strings.ToUpper(s)
	if alias, ok := canonAliases[s]; ok {
		return alias
	}
	return s
}

// NormalizeHeader canonicalizes every header and de-duplicates collisions
// by suffixing __1, __2, ... in encounter order. The suffix order is part
// of the output contract: reprocessing the same file must yield the same
// column names.
func NormalizeHeader(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]int, len(raw))
	for _, r := range raw {
		c := CanonicalName(r)
		if n, dup := seen[c]; dup {
			seen[c] = n + 1
			out = append(out, fmt.Sprintf("%s__%d", c, n+1))
		} else {
			seen[c] = 0
			out = append(out, c)
		}
	}
	return out
}

// NormalizeColumns returns a new table with canonical column names. The
// input table is left untouched.
func NormalizeColumns(t *table.Table) *table.Table {
	normalized := NormalizeHeader(t.Columns)
	mapping := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		mapping[c] = normalized[i]
	}
	return t.RenameColumns(mapping)
}
