/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request bodies carry go-playground/validator struct tags; handlers run
  them through a shared validator before touching the engine. Engine-level
  invariants (bundle rules, eligibility) are still enforced by the engine -
  the tags only catch malformed input early.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/counteroffer.go: Payload the counter DTO maps onto
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/shift-engine/engine"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SlotDTO represents one slot in API responses.
type SlotDTO struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Start  *string `json:"start,omitempty"`
	End    *string `json:"end,omitempty"`
	Rate   *string `json:"rate,omitempty"`
	Status string  `json:"status"`
}

// ShiftDTO represents a shift card in API responses.
type ShiftDTO struct {
	ID               string    `json:"id"`
	PharmacyName     string    `json:"pharmacy_name"`
	Role             string    `json:"role"`
	EmploymentType   string    `json:"employment_type"`
	RateType         string    `json:"rate_type"`
	RateDisplay      string    `json:"rate_display"`
	RateUnit         string    `json:"rate_unit,omitempty"`
	Negotiable       bool      `json:"negotiable"`
	FlexibleTime     bool      `json:"flexible_time"`
	SingleUserOnly   bool      `json:"single_user_only"`
	AllowPartial     bool      `json:"allow_partial"`
	Urgent           bool      `json:"urgent"`
	HasTravel        bool      `json:"has_travel"`
	HasAccommodation bool      `json:"has_accommodation"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	Address          string    `json:"address"`
	DistanceKm       *float64  `json:"distance_km,omitempty"`
	CreatedAt        string    `json:"created_at"`
	Status           string    `json:"status"`
	Saved            bool      `json:"saved"`
	Slots            []SlotDTO `json:"slots,omitempty"`
}

// SessionDTO is the worker's current session state.
type SessionDTO struct {
	AppliedShifts  []string                   `json:"applied_shifts"`
	AppliedSlots   []string                   `json:"applied_slots"`
	RejectedShifts []string                   `json:"rejected_shifts"`
	RejectedSlots  []string                   `json:"rejected_slots"`
	SavedShifts    []string                   `json:"saved_shifts"`
	CounterOffers  map[string]CounterTrackDTO `json:"counter_offers"`
}

// CounterTrackDTO is a pending counter-offer summary.
type CounterTrackDTO struct {
	Summary string              `json:"summary"`
	Slots   map[string]AmendDTO `json:"slots"`
}

// AmendDTO is one slot's proposed amendment.
type AmendDTO struct {
	Rate  string  `json:"rate"`
	Start *string `json:"start,omitempty"`
	End   *string `json:"end,omitempty"`
}

// AddressDTO is a resolved address from the lookup endpoint.
type AddressDTO struct {
	StreetAddress string  `json:"street_address"`
	Suburb        string  `json:"suburb"`
	State         string  `json:"state"`
	Postcode      string  `json:"postcode"`
	PlaceID       string  `json:"place_id,omitempty"`
	Lat           float64 `json:"lat,omitempty"`
	Lng           float64 `json:"lng,omitempty"`
	OneLine       string  `json:"one_line"`
}

// SaveResponse reports the new saved state after a toggle.
type SaveResponse struct {
	ShiftID string `json:"shift_id"`
	Saved   bool   `json:"saved"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ApplyRequest applies to a whole shift or to specific slots.
type ApplyRequest struct {
	ShiftID string   `json:"shift_id" validate:"required"`
	SlotIDs []string `json:"slot_ids,omitempty" validate:"omitempty,dive,required"`
}

// RejectRequest rejects a whole shift or a single slot.
type RejectRequest struct {
	ShiftID string `json:"shift_id" validate:"required"`
	SlotID  string `json:"slot_id,omitempty"`
}

// SaveRequest toggles the saved flag for a shift.
type SaveRequest struct {
	ShiftID string `json:"shift_id" validate:"required"`
}

// CounterSlotRequest is one slot amendment in a counter-offer.
type CounterSlotRequest struct {
	SlotID string  `json:"slot_id" validate:"required"`
	Rate   *string `json:"rate,omitempty"`
	Start  *string `json:"start,omitempty"`
	End    *string `json:"end,omitempty"`
}

// TravelRequest enables the travel-allowance sub-flow.
type TravelRequest struct {
	StreetAddress string  `json:"street_address" validate:"required"`
	Suburb        string  `json:"suburb" validate:"required"`
	State         string  `json:"state" validate:"required"`
	Postcode      string  `json:"postcode" validate:"required"`
	PlaceID       string  `json:"place_id,omitempty"`
	Lat           float64 `json:"lat,omitempty"`
	Lng           float64 `json:"lng,omitempty"`
}

// CounterOfferRequest submits a counter-offer for a shift.
type CounterOfferRequest struct {
	ShiftID string               `json:"shift_id" validate:"required"`
	Slots   []CounterSlotRequest `json:"slots" validate:"required,min=1,dive"`
	Message string               `json:"message,omitempty"`
	Travel  *TravelRequest       `json:"travel,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func clockString(c *engine.ClockTime) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}

func decString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func toShiftDTO(shift *engine.Shift, session *engine.SessionState, resolver *engine.RateResolver, pref *engine.RatePreference, today engine.Date) ShiftDTO {
	summary := resolver.Summary(shift, pref, today)
	dto := ShiftDTO{
		ID:               string(shift.ID),
		PharmacyName:     shift.PharmacyName,
		Role:             shift.Role,
		EmploymentType:   string(shift.EmploymentType),
		RateType:         string(shift.RateType),
		RateDisplay:      summary.Display,
		RateUnit:         summary.UnitLabel,
		Negotiable:       shift.Negotiable,
		FlexibleTime:     shift.FlexibleTime,
		SingleUserOnly:   shift.SingleUserOnly,
		AllowPartial:     shift.AllowPartial,
		Urgent:           shift.Urgent,
		HasTravel:        shift.HasTravel,
		HasAccommodation: shift.HasAccommodation,
		City:             shift.City,
		State:            shift.State,
		Address:          shift.Address,
		DistanceKm:       shift.DistanceKm,
		CreatedAt:        shift.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Status:           string(session.ShiftStatus(shift, today)),
		Saved:            session.IsSaved(shift.ID),
	}
	for _, slot := range shift.UpcomingSlots(today) {
		dto.Slots = append(dto.Slots, SlotDTO{
			ID:     string(slot.ID),
			Date:   slot.Date.String(),
			Start:  clockString(slot.Start),
			End:    clockString(slot.End),
			Rate:   decString(slot.Rate),
			Status: string(session.SlotStatus(shift.ID, slot.ID)),
		})
	}
	return dto
}

func toSessionDTO(snap engine.SessionSnapshot) SessionDTO {
	dto := SessionDTO{
		AppliedShifts:  make([]string, 0, len(snap.AppliedShifts)),
		AppliedSlots:   make([]string, 0, len(snap.AppliedSlots)),
		RejectedShifts: make([]string, 0, len(snap.RejectedShifts)),
		RejectedSlots:  make([]string, 0, len(snap.RejectedSlots)),
		SavedShifts:    make([]string, 0, len(snap.SavedShifts)),
		CounterOffers:  make(map[string]CounterTrackDTO, len(snap.CounterOffers)),
	}
	for _, id := range snap.AppliedShifts {
		dto.AppliedShifts = append(dto.AppliedShifts, string(id))
	}
	for _, id := range snap.AppliedSlots {
		dto.AppliedSlots = append(dto.AppliedSlots, string(id))
	}
	for _, id := range snap.RejectedShifts {
		dto.RejectedShifts = append(dto.RejectedShifts, string(id))
	}
	for _, id := range snap.RejectedSlots {
		dto.RejectedSlots = append(dto.RejectedSlots, string(id))
	}
	for _, id := range snap.SavedShifts {
		dto.SavedShifts = append(dto.SavedShifts, string(id))
	}
	for shiftID, track := range snap.CounterOffers {
		t := CounterTrackDTO{Summary: track.Summary, Slots: make(map[string]AmendDTO, len(track.Slots))}
		for slotID, offer := range track.Slots {
			t.Slots[string(slotID)] = AmendDTO{
				Rate:  offer.Rate.String(),
				Start: clockString(offer.Start),
				End:   clockString(offer.End),
			}
		}
		dto.CounterOffers[string(shiftID)] = t
	}
	return dto
}
