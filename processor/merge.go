package processor

import (
	"strings"

	"github.com/riaintel/advflow/pkg/table"
)

// MergeOptions configures PerfectMerge. Suffixes default to _A/_B and are
// applied to non-key column collisions. The join is always inner: under the
// 1:1 postcondition any unmatched row is an integrity failure, so no other
// join mode can succeed.
type MergeOptions struct {
	On       string
	Suffixes [2]string
}

func (o *MergeOptions) withDefaults() MergeOptions {
	opts := *o
	if opts.Suffixes == [2]string{} {
		opts.Suffixes = [2]string{"_A", "_B"}
	}
	return opts
}

// PerfectMerge joins left and right on a single key column and asserts a
// loss-less 1:1 correspondence: the merged row count must equal both input
// row counts. Anything else means an upstream uniqueness assumption was
// violated and is a hard MergeIntegrityError. The key column must exist and
// be non-blank on both sides.
func PerfectMerge(left, right *table.Table, options MergeOptions) (*table.Table, error) {
	opts := options.withDefaults()
	key := opts.On

	if err := requireKey(left, key, "left"); err != nil {
		return nil, err
	}
	if err := requireKey(right, key, "right"); err != nil {
		return nil, err
	}
	if err := enforceNonBlank(left, key, "left"); err != nil {
		return nil, err
	}
	if err := enforceNonBlank(right, key, "right"); err != nil {
		return nil, err
	}

	// Resolve output column names: key first from the left order, then
	// left columns, then right columns, suffixing collisions.
	collides := map[string]bool{}
	rightCols := map[string]bool{}
	for _, c := range right.Columns {
		rightCols[c] = true
	}
	for _, c := range left.Columns {
		if c != key && rightCols[c] {
			collides[c] = true
		}
	}

	leftName := func(c string) string {
		if collides[c] {
			return c + opts.Suffixes[0]
		}
		return c
	}
	rightName := func(c string) string {
		if collides[c] {
			return c + opts.Suffixes[1]
		}
		return c
	}

	var outCols []string
	for _, c := range left.Columns {
		outCols = append(outCols, leftName(c))
	}
	for _, c := range right.Columns {
		if c == key {
			continue
		}
		outCols = append(outCols, rightName(c))
	}

	rightIndex := make(map[string][]int, right.Len())
	for i, row := range right.Rows {
		k := cellKey(row[key])
		rightIndex[k] = append(rightIndex[k], i)
	}

	out := table.New(outCols...)
	for _, lrow := range left.Rows {
		matches := rightIndex[cellKey(lrow[key])]
		for _, ri := range matches {
			rrow := right.Rows[ri]
			merged := make(map[string]interface{}, len(outCols))
			for _, c := range left.Columns {
				merged[leftName(c)] = lrow[c]
			}
			for _, c := range right.Columns {
				if c == key {
					continue
				}
				merged[rightName(c)] = rrow[c]
			}
			out.Append(merged)
		}
	}

	if out.Len() != left.Len() || out.Len() != right.Len() {
		return nil, &MergeIntegrityError{
			Key:    key,
			Left:   left.Len(),
			Right:  right.Len(),
			Merged: out.Len(),
		}
	}

	return out, nil
}

func requireKey(t *table.Table, key, side string) error {
	if !t.HasColumn(key) {
		return &ValidationError{Column: key, Side: side, Reason: "missing required column"}
	}
	return nil
}

func enforceNonBlank(t *table.Table, key, side string) error {
	for _, row := range t.Rows {
		v := row[key]
		if v == nil {
			return &ValidationError{Column: key, Side: side, Reason: "blank values in required column"}
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return &ValidationError{Column: key, Side: side, Reason: "blank values in required column"}
		}
	}
	return nil
}

// cellKey gives join-key equality semantics for string-typed silver cells.
func cellKey(v interface{}) string {
	s, _ := v.(string)
	return s
}
