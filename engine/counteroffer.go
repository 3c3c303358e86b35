/*
counteroffer.go - Counter-offer form building, validation, payload

PURPOSE:
  Builds a per-slot negotiation form seeded from current values,
  enforces field mutability (rate only when negotiable, times only when
  flexible), validates before submit, and serializes the result into a
  ShiftCounterOfferPayload. Submission itself is delegated to the
  Transport; this file's contract ends at a validated payload.

TRAVEL ALLOWANCE:
  Only offerable on negotiable shifts. Enabling requires a resolved
  address (street, suburb, state, postcode) from the address lookup or
  manual entry, and appends exactly one "Traveling from: ..." line to
  the message. Rebuilding is idempotent: an existing line is replaced,
  never duplicated.

SEE ALSO:
  - rate.go: Seeds the per-slot rates
  - apply.go: Engine.SubmitCounterOffer stages and submits the payload
*/
package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// FORM TYPES
// =============================================================================

// CounterOfferFormSlot is one targeted slot's editable row.
type CounterOfferFormSlot struct {
	SlotID    SlotID
	DateLabel string // e.g. "Mon, 02 Mar 2026"
	Start     *ClockTime
	End       *ClockTime
	Rate      decimal.Decimal
	RateSet   bool // false when no rate could be seeded
}

// TravelAllowance is the optional travel sub-record.
type TravelAllowance struct {
	Address ResolvedAddress
}

// CounterOfferForm is the in-progress negotiation for one shift.
type CounterOfferForm struct {
	ShiftID ShiftID
	Slots   []CounterOfferFormSlot
	Message string
	Travel  *TravelAllowance

	rateEditable bool // shift.Negotiable
	timeEditable bool // shift.FlexibleTime
}

// RateEditable reports whether per-slot rates may be changed.
func (f *CounterOfferForm) RateEditable() bool { return f.rateEditable }

// TimeEditable reports whether per-slot times may be changed.
func (f *CounterOfferForm) TimeEditable() bool { return f.timeEditable }

// =============================================================================
// BUILDER
// =============================================================================

// CounterOfferBuilder seeds forms from current shift values.
type CounterOfferBuilder struct {
	Resolver *RateResolver
	Pref     *RatePreference
	Today    Date
}

// Build creates a form for the targeted slot subset, or every upcoming
// slot when slotIDs is empty.
func (b *CounterOfferBuilder) Build(shift *Shift, slotIDs []SlotID) (*CounterOfferForm, error) {
	today := b.Today
	if today.IsZero() {
		today = Today()
	}

	var targets []ShiftSlot
	if len(slotIDs) == 0 {
		targets = shift.UpcomingSlots(today)
	} else {
		for _, id := range slotIDs {
			slot := shift.Slot(id)
			if slot == nil {
				return nil, ErrSlotNotFound
			}
			targets = append(targets, *slot)
		}
	}
	if len(targets) == 0 {
		return nil, ErrNoSlotsSelected
	}

	resolver := b.Resolver
	if resolver == nil {
		resolver = NewRateResolver(nil)
	}

	form := &CounterOfferForm{
		ShiftID:      shift.ID,
		rateEditable: shift.Negotiable,
		timeEditable: shift.FlexibleTime,
	}
	for _, slot := range targets {
		res := resolver.SlotRate(slot, shift, b.Pref)
		form.Slots = append(form.Slots, CounterOfferFormSlot{
			SlotID:    slot.ID,
			DateLabel: slot.Date.Time().Format("Mon, 02 Jan 2006"),
			Start:     slot.Start,
			End:       slot.End,
			Rate:      res.Rate,
			RateSet:   res.OK,
		})
	}
	return form, nil
}

// =============================================================================
// FIELD EDITS
// =============================================================================

func (f *CounterOfferForm) slot(id SlotID) *CounterOfferFormSlot {
	for i := range f.Slots {
		if f.Slots[i].SlotID == id {
			return &f.Slots[i]
		}
	}
	return nil
}

// SetRate changes a slot's proposed rate. Rejected on non-negotiable
// shifts.
func (f *CounterOfferForm) SetRate(slotID SlotID, rate decimal.Decimal) error {
	if !f.rateEditable {
		return ErrRateNotNegotiable
	}
	row := f.slot(slotID)
	if row == nil {
		return ErrSlotNotFound
	}
	row.Rate = rate
	row.RateSet = true
	return nil
}

// SetTimes changes a slot's proposed start/end. Rejected on shifts
// without flexible time.
func (f *CounterOfferForm) SetTimes(slotID SlotID, start, end ClockTime) error {
	if !f.timeEditable {
		return ErrTimeNotFlexible
	}
	row := f.slot(slotID)
	if row == nil {
		return ErrSlotNotFound
	}
	row.Start = &start
	row.End = &end
	return nil
}

// SetMessage replaces the free-text message, preserving the travel line
// if travel is enabled.
func (f *CounterOfferForm) SetMessage(msg string) {
	f.Message = msg
	if f.Travel != nil {
		f.ensureTravelLine()
	}
}

// =============================================================================
// TRAVEL SUB-FLOW
// =============================================================================

const travelLinePrefix = "Traveling from: "

// EnableTravel turns the travel-allowance sub-flow on. Requires a
// negotiable shift and a complete resolved address.
func (f *CounterOfferForm) EnableTravel(addr ResolvedAddress) error {
	if !f.rateEditable {
		return ErrTravelNotOfferable
	}
	if err := addr.Validate(); err != nil {
		return err
	}
	f.Travel = &TravelAllowance{Address: addr}
	f.ensureTravelLine()
	return nil
}

// DisableTravel removes the sub-record and strips the travel line.
func (f *CounterOfferForm) DisableTravel() {
	f.Travel = nil
	f.Message = stripTravelLine(f.Message)
}

// ensureTravelLine appends the formatted travel line exactly once.
// Idempotent across rebuilds.
func (f *CounterOfferForm) ensureTravelLine() {
	line := travelLinePrefix + f.Travel.Address.OneLine()
	msg := stripTravelLine(f.Message)
	if msg == "" {
		f.Message = line
		return
	}
	f.Message = msg + "\n" + line
}

func stripTravelLine(msg string) string {
	var kept []string
	for _, line := range strings.Split(msg, "\n") {
		if strings.HasPrefix(line, travelLinePrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimRight(strings.Join(kept, "\n"), "\n")
}

// =============================================================================
// VALIDATION + SERIALIZATION
// =============================================================================

// Validate checks the form before submit. Time ordering is compared on
// a fixed reference date: overnight slots must be split by the caller,
// never silently accepted.
func (f *CounterOfferForm) Validate() error {
	for _, row := range f.Slots {
		if f.rateEditable {
			if !row.RateSet || !row.Rate.IsPositive() {
				return &ValidationError{Field: "rate", SlotID: row.SlotID, Message: "a rate is required"}
			}
		}
		if f.timeEditable {
			if row.Start == nil {
				return &ValidationError{Field: "start_time", SlotID: row.SlotID, Message: "a start time is required"}
			}
			if row.End == nil {
				return &ValidationError{Field: "end_time", SlotID: row.SlotID, Message: "an end time is required"}
			}
			if !row.End.After(*row.Start) {
				return &ValidationError{Field: "end_time", SlotID: row.SlotID, Message: "end must be after start"}
			}
		}
	}
	if f.Travel != nil {
		if err := f.Travel.Address.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SlotAmendment is one slot's proposed change in the payload.
type SlotAmendment struct {
	SlotID SlotID
	Rate   decimal.Decimal
	Start  *ClockTime
	End    *ClockTime
}

// ShiftCounterOfferPayload is the validated, serializable result handed
// to the transport.
type ShiftCounterOfferPayload struct {
	ID         string
	ShiftID    ShiftID
	Amendments []SlotAmendment
	Message    string
}

// Payload validates and serializes the form.
func (f *CounterOfferForm) Payload() (*ShiftCounterOfferPayload, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	p := &ShiftCounterOfferPayload{
		ID:      uuid.NewString(),
		ShiftID: f.ShiftID,
		Message: f.Message,
	}
	for _, row := range f.Slots {
		p.Amendments = append(p.Amendments, SlotAmendment{
			SlotID: row.SlotID,
			Rate:   row.Rate,
			Start:  row.Start,
			End:    row.End,
		})
	}
	return p, nil
}

// Track converts the form into the per-shift record kept by the
// session after a successful submit.
func (f *CounterOfferForm) Track() CounterOfferTrack {
	track := CounterOfferTrack{Slots: make(map[SlotID]CounterOfferSlot, len(f.Slots))}
	total := decimal.Zero
	for _, row := range f.Slots {
		track.Slots[row.SlotID] = CounterOfferSlot{Rate: row.Rate, Start: row.Start, End: row.End}
		total = total.Add(row.Rate)
	}
	if n := len(f.Slots); n > 0 {
		avg := total.Div(decimal.NewFromInt(int64(n)))
		track.Summary = fmt.Sprintf("%d slot(s), avg $%s/hr", n, avg.StringFixed(2))
	}
	return track
}
