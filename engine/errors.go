/*
errors.go - Centralized error types for the shift engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (API, UI layers) should branch with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Eligibility errors - An action the current state forbids; state is
     never mutated when one of these is returned.
  2. Validation errors - Counter-offer form problems; surfaced with a
     field reference so the caller can re-render the form.
  3. Transport failures - The remote apply/reject/counter call was
     rejected; the optimistic mark has already been rolled back.

USAGE:
  if errors.Is(err, engine.ErrBundleOnly) {
      // slot-level action on a bundle-only shift
  }
  var verr *engine.ValidationError
  if errors.As(err, &verr) {
      highlight(verr.Field, verr.SlotID)
  }

SEE ALSO:
  - apply.go: Returns eligibility and transport errors
  - counteroffer.go: Returns validation errors
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrIneligible is returned when an injected eligibility policy
	// blocks an action. No state is mutated.
	ErrIneligible = errors.New("action not eligible for this shift")

	// ErrBundleOnly is returned for slot-level actions against a
	// bundle-only (single-user) shift.
	ErrBundleOnly = errors.New("bundle-only shift: slot-level action not allowed")

	// ErrPartialNotAllowed is returned for slot-level selection on a
	// shift that does not permit partial acceptance.
	ErrPartialNotAllowed = errors.New("shift does not allow partial slot selection")

	// ErrAlreadyApplied is returned when applying to a shift or slot
	// that is already marked applied (including an in-flight optimistic
	// mark; the mark doubles as the concurrency lock).
	ErrAlreadyApplied = errors.New("already applied")

	// ErrAlreadyRejected is returned when acting on a rejected unit.
	ErrAlreadyRejected = errors.New("already rejected")

	// ErrAlreadyCountered is returned when acting on a countered unit.
	ErrAlreadyCountered = errors.New("counter-offer already pending")

	// ErrNoSlotsSelected is returned for a "selected" action with an
	// empty selection.
	ErrNoSlotsSelected = errors.New("no slots selected")

	// ErrSlotNotFound is returned when a target slot does not belong
	// to the shift.
	ErrSlotNotFound = errors.New("slot not found on shift")

	// ErrRateNotNegotiable is returned when editing the rate of a
	// non-negotiable shift's counter-offer form.
	ErrRateNotNegotiable = errors.New("rate is not negotiable")

	// ErrTimeNotFlexible is returned when editing times of a shift
	// without flexible time.
	ErrTimeNotFlexible = errors.New("times are not flexible")

	// ErrTravelNotOfferable is returned when enabling the travel
	// allowance sub-flow on a non-negotiable shift.
	ErrTravelNotOfferable = errors.New("travel allowance requires a negotiable shift")

	// ErrSaveDisabled is returned when the saved-shifts feature flag
	// is off.
	ErrSaveDisabled = errors.New("saving shifts is disabled")

	// ErrTransportFailed wraps a failed remote apply/reject/counter
	// call. The optimistic mark has been rolled back by the time the
	// caller sees this.
	ErrTransportFailed = errors.New("transport call failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a counter-offer form problem with a field
// reference. Never a fault: the caller re-renders the form with the
// message.
type ValidationError struct {
	Field   string // e.g. "rate", "end_time", "travel_address"
	SlotID  SlotID // empty for form-level problems
	Message string
}

func (e *ValidationError) Error() string {
	if e.SlotID != "" {
		return fmt.Sprintf("invalid %s for slot %s: %s", e.Field, e.SlotID, e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TransportError carries the failed command context alongside the
// underlying transport error.
type TransportError struct {
	Op      string // "apply_shift", "apply_slots", "reject_shift", ...
	ShiftID ShiftID
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s for shift %s: %v", e.Op, e.ShiftID, e.Err)
}

// Unwrap exposes both the sentinel (for the retryable check) and the
// underlying cause, so errors.Is(err, context.DeadlineExceeded) still
// works through the wrapper.
func (e *TransportError) Unwrap() []error { return []error{ErrTransportFailed, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsEligibilityError returns true when the action was refused by the
// state machine without mutating state.
func IsEligibilityError(err error) bool {
	return errors.Is(err, ErrIneligible) ||
		errors.Is(err, ErrBundleOnly) ||
		errors.Is(err, ErrPartialNotAllowed) ||
		errors.Is(err, ErrAlreadyApplied) ||
		errors.Is(err, ErrAlreadyRejected) ||
		errors.Is(err, ErrAlreadyCountered) ||
		errors.Is(err, ErrNoSlotsSelected)
}

// IsValidationError returns true for counter-offer form problems.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransportFailed)
}
