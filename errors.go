package portfolio

import "fmt"

// RateNotFoundError is returned when no conversion path exists between two
// currencies. Valuation callers are expected to degrade per item rather than
// fail the whole report.
type RateNotFoundError struct {
	Base, Quote string
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no exchange rate available for %s/%s", e.Base, e.Quote)
}

// ValidationError rejects a mutation before it reaches the ledger or the
// allocation tree.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Invalidf returns a ValidationError with a formatted message.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// WeightSumError reports a sibling group whose target weights do not sum
// to 100 within tolerance.
type WeightSumError struct {
	ParentID int64 // 0 for the root group
	Sum      string
}

func (e *WeightSumError) Error() string {
	return fmt.Sprintf("sibling weights under node %d sum to %s, want 100", e.ParentID, e.Sum)
}

// DataIntegrityError reports stored data in a state the invariants forbid,
// such as a cycle in the allocation tree.
type DataIntegrityError struct {
	Msg string
}

func (e *DataIntegrityError) Error() string { return e.Msg }
