/*
apply.go - Two-phase apply/reject/counter commands

PURPOSE:
  Drives every state transition as a staged command: the optimistic
  local mark is applied immediately (keeping the UI responsive and
  doubling as the in-flight lock), the remote call follows, and a
  transport failure structurally reverts the mark. Rollback is built
  into the command shape, not hand-wired per call site.

COMMAND FLOW:
  guard -> stage (optimistic, reversible) -> transport call
       -> success: persist snapshot
       -> failure: revert, surface TransportError for retry

ELIGIBILITY:
  Guards are injected as an EligibilityPolicy rather than loose
  closures. A false answer blocks the action without mutating state.

BUNDLE RULES:
  singleUserOnly            -> only shift-level apply/reject
  !singleUserOnly && !allowPartial -> only shift-level bulk actions
  allowPartial              -> staged slot subset, "apply selected"

SEE ALSO:
  - session.go: The state these commands transition
  - counteroffer.go: Builds the payload SubmitCounterOffer sends
*/
package engine

import (
	"context"
	"fmt"
)

// =============================================================================
// INJECTED COLLABORATORS
// =============================================================================

// EligibilityPolicy answers whether the surrounding application permits
// an action on a shift. Implemented by the caller, injected at
// construction.
type EligibilityPolicy interface {
	CanApply(shift *Shift) bool
	CanReject(shift *Shift) bool
}

// AllowAll permits every action. The default policy.
type AllowAll struct{}

func (AllowAll) CanApply(*Shift) bool  { return true }
func (AllowAll) CanReject(*Shift) bool { return true }

// Transport submits constructed commands to the marketplace backend.
// Any non-success return is a failure: the engine rolls the optimistic
// mark back before surfacing it. Timeouts and cancellation belong to
// the transport, not this layer.
type Transport interface {
	ApplyShift(ctx context.Context, shiftID ShiftID) error
	ApplySlots(ctx context.Context, shiftID ShiftID, slotIDs []SlotID) error
	RejectShift(ctx context.Context, shiftID ShiftID) error
	RejectSlots(ctx context.Context, shiftID ShiftID, slotIDs []SlotID) error
	SubmitCounterOffer(ctx context.Context, payload *ShiftCounterOfferPayload) error
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine binds a worker's session to its collaborators and exposes the
// user commands. Single-threaded by contract: one session, one logical
// actor.
type Engine struct {
	WorkerID  WorkerID
	Session   *SessionState
	Policy    EligibilityPolicy
	Transport Transport
	Resolver  *RateResolver

	// Store is optional; when set, every committed command persists the
	// session snapshot.
	Store SessionStore

	// SaveEnabled gates the saved-shifts feature.
	SaveEnabled bool

	// Today scopes "upcoming". Zero value means the current date.
	Today Date
}

// NewEngine wires an engine with defaults: AllowAll policy, default
// rate resolver, save enabled.
func NewEngine(workerID WorkerID, session *SessionState, transport Transport) *Engine {
	return &Engine{
		WorkerID:    workerID,
		Session:     session,
		Policy:      AllowAll{},
		Transport:   transport,
		Resolver:    NewRateResolver(nil),
		SaveEnabled: true,
	}
}

func (e *Engine) today() Date {
	if e.Today.IsZero() {
		return Today()
	}
	return e.Today
}

// Hydrate replaces the session from the store. Atomic per set; never a
// merge.
func (e *Engine) Hydrate(ctx context.Context) error {
	if e.Store == nil {
		return nil
	}
	snap, err := e.Store.Load(ctx, e.WorkerID)
	if err != nil {
		return fmt.Errorf("load session for %s: %w", e.WorkerID, err)
	}
	e.Session.ReplaceAll(snap)
	return nil
}

func (e *Engine) persist(ctx context.Context) error {
	if e.Store == nil {
		return nil
	}
	if err := e.Store.Replace(ctx, e.WorkerID, e.Session.Snapshot()); err != nil {
		return fmt.Errorf("persist session for %s: %w", e.WorkerID, err)
	}
	return nil
}

// =============================================================================
// COMMAND SKELETON
// =============================================================================

type command struct {
	op      string
	shiftID ShiftID
	stage   func()
	revert  func()
	call    func(ctx context.Context) error
}

func (e *Engine) run(ctx context.Context, cmd command) error {
	cmd.stage()
	if err := cmd.call(ctx); err != nil {
		cmd.revert()
		return &TransportError{Op: cmd.op, ShiftID: cmd.shiftID, Err: err}
	}
	return e.persist(ctx)
}

// =============================================================================
// SHIFT-LEVEL COMMANDS
// =============================================================================

// ApplyShift applies to a whole shift (all slots, or a non-slot role).
func (e *Engine) ApplyShift(ctx context.Context, shift *Shift) error {
	if !e.Policy.CanApply(shift) {
		return ErrIneligible
	}
	switch e.Session.ShiftStatus(shift, e.today()) {
	case StatusApplied:
		return ErrAlreadyApplied
	case StatusRejected:
		return ErrAlreadyRejected
	case StatusCountered:
		return ErrAlreadyCountered
	}

	return e.run(ctx, command{
		op:      "apply_shift",
		shiftID: shift.ID,
		stage:   func() { e.Session.markShiftApplied(shift.ID) },
		revert:  func() { e.Session.unmarkShiftApplied(shift.ID) },
		call:    func(ctx context.Context) error { return e.Transport.ApplyShift(ctx, shift.ID) },
	})
}

// RejectShift rejects a whole shift.
func (e *Engine) RejectShift(ctx context.Context, shift *Shift) error {
	if !e.Policy.CanReject(shift) {
		return ErrIneligible
	}
	switch e.Session.ShiftStatus(shift, e.today()) {
	case StatusApplied:
		return ErrAlreadyApplied
	case StatusRejected:
		return ErrAlreadyRejected
	case StatusCountered:
		return ErrAlreadyCountered
	}

	return e.run(ctx, command{
		op:      "reject_shift",
		shiftID: shift.ID,
		stage:   func() { e.Session.markShiftRejected(shift.ID) },
		revert:  func() { e.Session.unmarkShiftRejected(shift.ID) },
		call:    func(ctx context.Context) error { return e.Transport.RejectShift(ctx, shift.ID) },
	})
}

// =============================================================================
// SLOT-LEVEL COMMANDS
// =============================================================================

// slotActionAllowed enforces the bundle rules for any slot-level action.
func slotActionAllowed(shift *Shift) error {
	if shift.SingleUserOnly {
		return ErrBundleOnly
	}
	if !shift.AllowPartial {
		return ErrPartialNotAllowed
	}
	return nil
}

// ApplySelected applies to the staged slot selection of a shift.
func (e *Engine) ApplySelected(ctx context.Context, shift *Shift) error {
	if !e.Policy.CanApply(shift) {
		return ErrIneligible
	}
	if err := slotActionAllowed(shift); err != nil {
		return err
	}
	slotIDs := e.Session.SelectedSlots(shift)
	if len(slotIDs) == 0 {
		return ErrNoSlotsSelected
	}
	// Defensive re-check: a mark that landed since staging makes the
	// slot ineligible, even while the first call is in flight.
	for _, id := range slotIDs {
		if st := e.Session.SlotStatus(shift.ID, id); st != StatusAvailable {
			return statusError(st)
		}
	}

	return e.run(ctx, command{
		op:      "apply_slots",
		shiftID: shift.ID,
		stage: func() {
			for _, id := range slotIDs {
				e.Session.markSlotApplied(id)
			}
			e.Session.ClearSelection(shift.ID)
		},
		revert: func() {
			for _, id := range slotIDs {
				e.Session.unmarkSlotApplied(id)
				sel := e.Session.selected[shift.ID]
				if sel == nil {
					sel = make(map[SlotID]struct{})
					e.Session.selected[shift.ID] = sel
				}
				sel[id] = struct{}{}
			}
		},
		call: func(ctx context.Context) error { return e.Transport.ApplySlots(ctx, shift.ID, slotIDs) },
	})
}

// ApplySlot applies to a single slot directly.
func (e *Engine) ApplySlot(ctx context.Context, shift *Shift, slotID SlotID) error {
	if !e.Policy.CanApply(shift) {
		return ErrIneligible
	}
	if err := slotActionAllowed(shift); err != nil {
		return err
	}
	if shift.Slot(slotID) == nil {
		return ErrSlotNotFound
	}
	if st := e.Session.SlotStatus(shift.ID, slotID); st != StatusAvailable {
		return statusError(st)
	}

	return e.run(ctx, command{
		op:      "apply_slots",
		shiftID: shift.ID,
		stage:   func() { e.Session.markSlotApplied(slotID) },
		revert:  func() { e.Session.unmarkSlotApplied(slotID) },
		call: func(ctx context.Context) error {
			return e.Transport.ApplySlots(ctx, shift.ID, []SlotID{slotID})
		},
	})
}

// RejectSlot rejects a single slot.
func (e *Engine) RejectSlot(ctx context.Context, shift *Shift, slotID SlotID) error {
	if !e.Policy.CanReject(shift) {
		return ErrIneligible
	}
	if err := slotActionAllowed(shift); err != nil {
		return err
	}
	if shift.Slot(slotID) == nil {
		return ErrSlotNotFound
	}
	if st := e.Session.SlotStatus(shift.ID, slotID); st != StatusAvailable {
		return statusError(st)
	}

	return e.run(ctx, command{
		op:      "reject_slots",
		shiftID: shift.ID,
		stage:   func() { e.Session.markSlotRejected(slotID) },
		revert:  func() { e.Session.unmarkSlotRejected(slotID) },
		call: func(ctx context.Context) error {
			return e.Transport.RejectSlots(ctx, shift.ID, []SlotID{slotID})
		},
	})
}

func statusError(st UnitStatus) error {
	switch st {
	case StatusApplied:
		return ErrAlreadyApplied
	case StatusRejected:
		return ErrAlreadyRejected
	case StatusCountered:
		return ErrAlreadyCountered
	default:
		return ErrIneligible
	}
}

// =============================================================================
// SAVE + COUNTER
// =============================================================================

// ToggleSave flips the saved flag for a shift. Orthogonal to the
// apply/reject state; no transport call. Returns the new saved state.
func (e *Engine) ToggleSave(ctx context.Context, shift *Shift) (bool, error) {
	if !e.SaveEnabled {
		return false, ErrSaveDisabled
	}
	saved := e.Session.toggleSaved(shift.ID)
	if err := e.persist(ctx); err != nil {
		return saved, err
	}
	return saved, nil
}

// SubmitCounterOffer validates the form, stages the countered marks,
// and submits the payload. The same transition rules as any other
// action apply: a counter scoped to a slot subset follows the bundle
// rules, and no targeted slot may already be applied, rejected or
// countered. The engine's contract ends at a validated payload handed
// to the transport.
func (e *Engine) SubmitCounterOffer(ctx context.Context, shift *Shift, form *CounterOfferForm) error {
	if !e.Policy.CanApply(shift) {
		return ErrIneligible
	}
	if err := e.counterAllowed(shift, form); err != nil {
		return err
	}
	payload, err := form.Payload()
	if err != nil {
		return err
	}

	track := form.Track()
	prev, hadPrev := e.Session.CounterOffer(shift.ID)

	return e.run(ctx, command{
		op:      "counter_offer",
		shiftID: shift.ID,
		stage: func() {
			e.Session.setCounter(shift.ID, track)
			e.Session.ClearSelection(shift.ID)
		},
		revert: func() {
			if hadPrev {
				e.Session.setCounter(shift.ID, prev)
			} else {
				e.Session.clearCounter(shift.ID)
			}
		},
		call: func(ctx context.Context) error { return e.Transport.SubmitCounterOffer(ctx, payload) },
	})
}

// counterAllowed enforces the transition rules on a counter-offer form.
// Targeting fewer than all upcoming slots is a slot-level action and
// follows the bundle rules. Each targeted slot must still be available;
// a pending counter on OTHER slots of the shift does not block, so a
// worker can extend a negotiation slot by slot (the track is replaced
// on commit, restored on failure).
func (e *Engine) counterAllowed(shift *Shift, form *CounterOfferForm) error {
	switch e.Session.ShiftStatus(shift, e.today()) {
	case StatusApplied:
		return ErrAlreadyApplied
	case StatusRejected:
		return ErrAlreadyRejected
	}
	if len(form.Slots) < len(shift.UpcomingSlots(e.today())) {
		if err := slotActionAllowed(shift); err != nil {
			return err
		}
	}
	for _, row := range form.Slots {
		if st := e.Session.SlotStatus(shift.ID, row.SlotID); st != StatusAvailable {
			return statusError(st)
		}
	}
	return nil
}
