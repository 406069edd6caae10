package processor

import "fmt"

// ValidationError reports a precondition failure on input data: a required
// column is missing or a required key column contains blank values.
type ValidationError struct {
	Column string
	Side   string // "left"/"right" for merges, otherwise empty
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Side != "" {
		return fmt.Sprintf("validation failed on column %s (%s): %s", e.Column, e.Side, e.Reason)
	}
	return fmt.Sprintf("validation failed on column %s: %s", e.Column, e.Reason)
}

// MergeIntegrityError reports a merge whose row count differs from its
// inputs, violating the 1:1 join contract. The cause is data, not anything
// transient, so callers must never retry.
type MergeIntegrityError struct {
	Key    string
	Left   int
	Right  int
	Merged int
}

func (e *MergeIntegrityError) Error() string {
	return fmt.Sprintf("imperfect merge on %s: L=%d R=%d M=%d", e.Key, e.Left, e.Right, e.Merged)
}

// SchemaViolationError reports a value that cannot be coerced to the
// declared type of a required output column.
type SchemaViolationError struct {
	Table  string
	Column string
	Value  interface{}
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation in table %s: column %q cannot coerce value %v", e.Table, e.Column, e.Value)
}
