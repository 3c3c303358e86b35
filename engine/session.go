/*
session.go - Per-worker mutable state and the slot selection rules

PURPOSE:
  SessionState owns the per-user sets (applied/rejected/saved shift and
  slot IDs), the per-shift staging selection, and the counter-offer
  tracks. All mutation goes through methods that enforce the state
  machine invariants; the filter/sort path only ever reads.

STATE MACHINE (per shift, and per slot where partial is allowed):
  Available -> Applied | Rejected | Countered
  A shift derives Applied when every upcoming slot is individually
  applied. A slot already Applied, Rejected or Countered cannot be
  re-selected.

HYDRATION:
  A reload from the backend replaces each set atomically via
  ReplaceAll - never merged, so stale entries cannot leak.

SEE ALSO:
  - apply.go: Two-phase commands that drive these transitions
  - store.go (SessionStore below): persistence contract
*/
package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// UNIT STATUS
// =============================================================================

// UnitStatus is the derived state of a shift or slot.
type UnitStatus string

const (
	StatusAvailable UnitStatus = "available"
	StatusApplied   UnitStatus = "applied"
	StatusRejected  UnitStatus = "rejected"
	StatusCountered UnitStatus = "countered"
)

// =============================================================================
// COUNTER-OFFER TRACK - Pending negotiation per shift
// =============================================================================

// CounterOfferSlot is one slot's proposed amendment.
type CounterOfferSlot struct {
	Rate  decimal.Decimal
	Start *ClockTime
	End   *ClockTime
}

// CounterOfferTrack is the per-shift record of a submitted counter.
type CounterOfferTrack struct {
	Slots   map[SlotID]CounterOfferSlot
	Summary string
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionState is owned by a single worker session and is never
// concurrently mutated by more than one logical actor.
type SessionState struct {
	appliedShifts  map[ShiftID]struct{}
	appliedSlots   map[SlotID]struct{}
	rejectedShifts map[ShiftID]struct{}
	rejectedSlots  map[SlotID]struct{}
	savedShifts    map[ShiftID]struct{}

	// Staging selection while composing a multi-slot action.
	selected map[ShiftID]map[SlotID]struct{}

	counters map[ShiftID]CounterOfferTrack
}

func NewSessionState() *SessionState {
	return &SessionState{
		appliedShifts:  make(map[ShiftID]struct{}),
		appliedSlots:   make(map[SlotID]struct{}),
		rejectedShifts: make(map[ShiftID]struct{}),
		rejectedSlots:  make(map[SlotID]struct{}),
		savedShifts:    make(map[ShiftID]struct{}),
		selected:       make(map[ShiftID]map[SlotID]struct{}),
		counters:       make(map[ShiftID]CounterOfferTrack),
	}
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (s *SessionState) IsShiftApplied(id ShiftID) bool {
	_, ok := s.appliedShifts[id]
	return ok
}

func (s *SessionState) IsSlotApplied(id SlotID) bool {
	_, ok := s.appliedSlots[id]
	return ok
}

func (s *SessionState) IsShiftRejected(id ShiftID) bool {
	_, ok := s.rejectedShifts[id]
	return ok
}

func (s *SessionState) IsSlotRejected(id SlotID) bool {
	_, ok := s.rejectedSlots[id]
	return ok
}

func (s *SessionState) IsSaved(id ShiftID) bool {
	_, ok := s.savedShifts[id]
	return ok
}

// CounterOffer returns the pending track for a shift, if any.
func (s *SessionState) CounterOffer(id ShiftID) (CounterOfferTrack, bool) {
	t, ok := s.counters[id]
	return t, ok
}

func (s *SessionState) hasSlotCounter(shiftID ShiftID, slotID SlotID) bool {
	t, ok := s.counters[shiftID]
	if !ok {
		return false
	}
	_, ok = t.Slots[slotID]
	return ok
}

// SlotStatus derives the state of one slot.
func (s *SessionState) SlotStatus(shiftID ShiftID, slotID SlotID) UnitStatus {
	switch {
	case s.IsSlotApplied(slotID):
		return StatusApplied
	case s.IsSlotRejected(slotID):
		return StatusRejected
	case s.hasSlotCounter(shiftID, slotID):
		return StatusCountered
	default:
		return StatusAvailable
	}
}

// ShiftStatus derives the state of a shift. A slot-bearing shift is
// Applied only when directly applied or when every upcoming slot is
// individually applied.
func (s *SessionState) ShiftStatus(shift *Shift, today Date) UnitStatus {
	if s.IsShiftApplied(shift.ID) {
		return StatusApplied
	}
	if s.IsShiftRejected(shift.ID) {
		return StatusRejected
	}
	upcoming := shift.UpcomingSlots(today)
	if len(upcoming) > 0 {
		all := true
		for _, slot := range upcoming {
			if !s.IsSlotApplied(slot.ID) {
				all = false
				break
			}
		}
		if all {
			return StatusApplied
		}
	}
	if _, ok := s.counters[shift.ID]; ok {
		return StatusCountered
	}
	return StatusAvailable
}

// -----------------------------------------------------------------------------
// Selection staging
// -----------------------------------------------------------------------------

// ToggleSelect stages or unstages a slot for a multi-slot action.
// Rejected for bundle-only shifts, non-partial shifts, unknown slots,
// and slots whose state already forbids re-selection.
func (s *SessionState) ToggleSelect(shift *Shift, slotID SlotID) error {
	if shift.SingleUserOnly {
		return ErrBundleOnly
	}
	if !shift.PartialAllowed() {
		return ErrPartialNotAllowed
	}
	if shift.Slot(slotID) == nil {
		return ErrSlotNotFound
	}
	switch s.SlotStatus(shift.ID, slotID) {
	case StatusApplied:
		return ErrAlreadyApplied
	case StatusRejected:
		return ErrAlreadyRejected
	case StatusCountered:
		return ErrAlreadyCountered
	}

	sel := s.selected[shift.ID]
	if sel == nil {
		sel = make(map[SlotID]struct{})
		s.selected[shift.ID] = sel
	}
	if _, ok := sel[slotID]; ok {
		delete(sel, slotID)
	} else {
		sel[slotID] = struct{}{}
	}
	return nil
}

// SelectedSlots returns the staged selection for a shift in the
// shift's slot order.
func (s *SessionState) SelectedSlots(shift *Shift) []SlotID {
	sel := s.selected[shift.ID]
	if len(sel) == 0 {
		return nil
	}
	var out []SlotID
	for _, slot := range shift.Slots {
		if _, ok := sel[slot.ID]; ok {
			out = append(out, slot.ID)
		}
	}
	return out
}

// ClearSelection drops the staged selection for a shift.
func (s *SessionState) ClearSelection(shiftID ShiftID) {
	delete(s.selected, shiftID)
}

// -----------------------------------------------------------------------------
// Mutations (used by apply.go commands; not for direct callers)
// -----------------------------------------------------------------------------

func (s *SessionState) markShiftApplied(id ShiftID)   { s.appliedShifts[id] = struct{}{} }
func (s *SessionState) unmarkShiftApplied(id ShiftID) { delete(s.appliedShifts, id) }
func (s *SessionState) markSlotApplied(id SlotID)     { s.appliedSlots[id] = struct{}{} }
func (s *SessionState) unmarkSlotApplied(id SlotID)   { delete(s.appliedSlots, id) }
func (s *SessionState) markShiftRejected(id ShiftID)  { s.rejectedShifts[id] = struct{}{} }
func (s *SessionState) unmarkShiftRejected(id ShiftID) {
	delete(s.rejectedShifts, id)
}
func (s *SessionState) markSlotRejected(id SlotID)   { s.rejectedSlots[id] = struct{}{} }
func (s *SessionState) unmarkSlotRejected(id SlotID) { delete(s.rejectedSlots, id) }

func (s *SessionState) setCounter(id ShiftID, t CounterOfferTrack) { s.counters[id] = t }
func (s *SessionState) clearCounter(id ShiftID)                    { delete(s.counters, id) }

func (s *SessionState) toggleSaved(id ShiftID) bool {
	if _, ok := s.savedShifts[id]; ok {
		delete(s.savedShifts, id)
		return false
	}
	s.savedShifts[id] = struct{}{}
	return true
}

// =============================================================================
// SNAPSHOT + HYDRATION
// =============================================================================

// SessionSnapshot is the serializable form of a session: the persisted
// sets and counter tracks. The staging selection is deliberately not
// part of it - it is UI-transient.
type SessionSnapshot struct {
	AppliedShifts  []ShiftID
	AppliedSlots   []SlotID
	RejectedShifts []ShiftID
	RejectedSlots  []SlotID
	SavedShifts    []ShiftID
	CounterOffers  map[ShiftID]CounterOfferTrack
}

// Snapshot copies the persisted state out of the session.
func (s *SessionState) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		CounterOffers: make(map[ShiftID]CounterOfferTrack, len(s.counters)),
	}
	for id := range s.appliedShifts {
		snap.AppliedShifts = append(snap.AppliedShifts, id)
	}
	for id := range s.appliedSlots {
		snap.AppliedSlots = append(snap.AppliedSlots, id)
	}
	for id := range s.rejectedShifts {
		snap.RejectedShifts = append(snap.RejectedShifts, id)
	}
	for id := range s.rejectedSlots {
		snap.RejectedSlots = append(snap.RejectedSlots, id)
	}
	for id := range s.savedShifts {
		snap.SavedShifts = append(snap.SavedShifts, id)
	}
	for id, t := range s.counters {
		snap.CounterOffers[id] = t
	}
	return snap
}

// ReplaceAll atomically replaces every set from a snapshot. Hydration
// never merges: stale local entries would otherwise leak past a reload.
func (s *SessionState) ReplaceAll(snap SessionSnapshot) {
	s.appliedShifts = make(map[ShiftID]struct{}, len(snap.AppliedShifts))
	for _, id := range snap.AppliedShifts {
		s.appliedShifts[id] = struct{}{}
	}
	s.appliedSlots = make(map[SlotID]struct{}, len(snap.AppliedSlots))
	for _, id := range snap.AppliedSlots {
		s.appliedSlots[id] = struct{}{}
	}
	s.rejectedShifts = make(map[ShiftID]struct{}, len(snap.RejectedShifts))
	for _, id := range snap.RejectedShifts {
		s.rejectedShifts[id] = struct{}{}
	}
	s.rejectedSlots = make(map[SlotID]struct{}, len(snap.RejectedSlots))
	for _, id := range snap.RejectedSlots {
		s.rejectedSlots[id] = struct{}{}
	}
	s.savedShifts = make(map[ShiftID]struct{}, len(snap.SavedShifts))
	for _, id := range snap.SavedShifts {
		s.savedShifts[id] = struct{}{}
	}
	s.counters = make(map[ShiftID]CounterOfferTrack, len(snap.CounterOffers))
	for id, t := range snap.CounterOffers {
		s.counters[id] = t
	}
	// Selections are scoped to the old view of the world.
	s.selected = make(map[ShiftID]map[SlotID]struct{})
}

// =============================================================================
// SESSION STORE - Persistence contract
// =============================================================================

// SessionStore persists session snapshots per worker. Replace is
// all-or-nothing: implementations must swap every set in one atomic
// operation.
type SessionStore interface {
	// Load returns the stored snapshot for a worker. A worker with no
	// stored state gets an empty snapshot, not an error.
	Load(ctx context.Context, workerID WorkerID) (SessionSnapshot, error)

	// Replace atomically overwrites the worker's stored snapshot.
	Replace(ctx context.Context, workerID WorkerID, snap SessionSnapshot) error
}
