package journal

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrIndex       = errors.New("exit index out of range")
	ErrNotFound    = errors.New("entry not found")
	ErrDuplicateID = errors.New("entry id already exists")
)

// ValidationError rejects invalid input before anything is changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IndexError rejects an exit index outside [0, Len).
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("exit index %d out of range [0,%d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndex }

// Warning codes.
const (
	WarnUnknownExchange      = "UNKNOWN_EXCHANGE"
	WarnPnLSignMismatch      = "PNL_SIGN_MISMATCH"
	WarnPnLMagnitudeMismatch = "PNL_MAGNITUDE_MISMATCH"
	WarnOverAllocated        = "OVER_ALLOCATED"
	WarnTakeProfitWrongSide  = "TP_WRONG_SIDE"
	WarnPersistenceFailure   = "PERSISTENCE_FAILURE"
)

// Warning is advisory and never blocks an operation. Callers decide
// whether to ask for confirmation.
type Warning struct {
	Code string
	Msg  string
}

func (w Warning) String() string {
	return w.Code + ": " + w.Msg
}

// HasPnLWarning reports whether ws contains a P&L plausibility warning.
func HasPnLWarning(ws []Warning) bool {
	for _, w := range ws {
		if w.Code == WarnPnLSignMismatch || w.Code == WarnPnLMagnitudeMismatch {
			return true
		}
	}
	return false
}

type warnings []Warning

func (ws *warnings) add(code, format string, args ...any) {
	*ws = append(*ws, Warning{Code: code, Msg: fmt.Sprintf(format, args...)})
}

func (ws *warnings) addOnce(code, msg string) {
	for _, w := range *ws {
		if w.Code == code && w.Msg == msg {
			return
		}
	}
	*ws = append(*ws, Warning{Code: code, Msg: msg})
}
