package qca

import (
	"errors"
	"fmt"
)

// Domain errors for the QCA engine
var (
	// Structural errors - fatal to a run, raised before any table is built
	ErrInsufficientData     = errors.New("insufficient data for QCA")
	ErrCombinationExplosion = errors.New("too many conditions for truth table enumeration")

	// Input validation errors
	ErrInvalidCaseMatrix    = errors.New("invalid case matrix")
	ErrInvalidConfiguration = errors.New("invalid QCA configuration")
	ErrInvalidCode          = errors.New("invalid code record")
	ErrInvalidFormula       = errors.New("invalid formula")
)

// Error constructors with context
func NewInsufficientDataError(conditions, outcomes, cases int) error {
	return fmt.Errorf("%w: %d conditions (min %d), %d outcomes (min %d), %d cases (min %d)",
		ErrInsufficientData, conditions, MinConditions, outcomes, MinOutcomes, cases, MinCases)
}

func NewCombinationExplosionError(conditions, max int) error {
	return fmt.Errorf("%w: %d conditions > %d (2^%d combinations)", ErrCombinationExplosion, conditions, max, conditions)
}

func NewCaseMatrixError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidCaseMatrix, fmt.Sprintf(format, args...))
}

func NewConfigurationError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfiguration, field, reason)
}

func NewCodeError(index int, reason string) error {
	return fmt.Errorf("%w at index %d: %s", ErrInvalidCode, index, reason)
}

// IsFatal reports whether err aborts a run before any results exist
func IsFatal(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrCombinationExplosion)
}

// IsInputError reports whether err was caused by caller-supplied data
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidCaseMatrix) ||
		errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrInvalidFormula)
}
