/*
Package upstream implements the engine's external collaborator
interfaces against the marketplace backend over HTTP.

PURPOSE:
  One client, four contracts: shift listing fetch, rate-preference
  fetch, address lookup, and the apply/reject/counter transport. The
  engine only ever sees the interfaces in engine/sources.go and
  engine/apply.go; swapping this package for a gRPC or in-process
  implementation requires no engine change.

WIRE FORMAT:
  JSON, documented inline on the wire types below. Rates travel as
  decimal strings so no precision is lost crossing the boundary.

SEE ALSO:
  - engine/sources.go: The interfaces implemented here
  - cmd/server/main.go: Construction and configuration
*/
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/shift-engine/engine"
)

// Client talks to the marketplace backend.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// Interface checks.
var (
	_ engine.ShiftSource          = (*Client)(nil)
	_ engine.RatePreferenceSource = (*Client)(nil)
	_ engine.AddressLookup        = (*Client)(nil)
	_ engine.Transport            = (*Client)(nil)
)

// New creates a client with a sane default timeout.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type shiftWire struct {
	ID               string     `json:"id"`
	PharmacyName     string     `json:"pharmacy_name"`
	Role             string     `json:"role"`
	EmploymentType   string     `json:"employment_type"`
	RateType         string     `json:"rate_type"`
	FixedRate        *string    `json:"fixed_rate"`
	MinHourlyRate    *string    `json:"min_hourly_rate"`
	MaxHourlyRate    *string    `json:"max_hourly_rate"`
	MinAnnualSalary  *string    `json:"min_annual_salary"`
	MaxAnnualSalary  *string    `json:"max_annual_salary"`
	SuperPercent     *string    `json:"super_percent"`
	Negotiable       bool       `json:"negotiable"`
	FlexibleTime     bool       `json:"flexible_time"`
	SingleUserOnly   bool       `json:"single_user_only"`
	AllowPartial     bool       `json:"allow_partial"`
	Urgent           bool       `json:"urgent"`
	HasTravel        bool       `json:"has_travel"`
	HasAccommodation bool       `json:"has_accommodation"`
	CreatedAt        time.Time  `json:"created_at"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	Address          string     `json:"address"`
	DistanceKm       *float64   `json:"distance_km"`
	Slots            []slotWire `json:"slots"`
}

type slotWire struct {
	ID    string  `json:"id"`
	Date  string  `json:"date"`
	Start *string `json:"start"`
	End   *string `json:"end"`
	Rate  *string `json:"rate"`
}

type prefWire struct {
	Weekday               *string `json:"weekday"`
	Saturday              *string `json:"saturday"`
	Sunday                *string `json:"sunday"`
	PublicHoliday         *string `json:"public_holiday"`
	EarlyMorning          *string `json:"early_morning"`
	LateNight             *string `json:"late_night"`
	EarlyMorningSameAsDay bool    `json:"early_morning_same_as_day"`
	LateNightSameAsDay    bool    `json:"late_night_same_as_day"`
}

type addressWire struct {
	StreetAddress string  `json:"street_address"`
	Suburb        string  `json:"suburb"`
	State         string  `json:"state"`
	Postcode      string  `json:"postcode"`
	PlaceID       string  `json:"place_id"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
}

// =============================================================================
// SHIFT SOURCE
// =============================================================================

// FetchShifts returns one page of the shift listing.
func (c *Client) FetchShifts(ctx context.Context, page int) ([]*engine.Shift, error) {
	var wire []shiftWire
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if err := c.getJSON(ctx, "/v1/shifts", q, &wire); err != nil {
		return nil, fmt.Errorf("fetch shifts: %w", err)
	}

	shifts := make([]*engine.Shift, 0, len(wire))
	for _, sw := range wire {
		shift, err := decodeShift(sw)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	return shifts, nil
}

func decodeShift(sw shiftWire) (*engine.Shift, error) {
	shift := &engine.Shift{
		ID:               engine.ShiftID(sw.ID),
		PharmacyName:     sw.PharmacyName,
		Role:             sw.Role,
		EmploymentType:   engine.EmploymentType(sw.EmploymentType),
		RateType:         engine.RateType(sw.RateType),
		FixedRate:        decodeRate(sw.FixedRate),
		MinHourlyRate:    decodeRate(sw.MinHourlyRate),
		MaxHourlyRate:    decodeRate(sw.MaxHourlyRate),
		MinAnnualSalary:  decodeRate(sw.MinAnnualSalary),
		MaxAnnualSalary:  decodeRate(sw.MaxAnnualSalary),
		SuperPercent:     decodeRate(sw.SuperPercent),
		Negotiable:       sw.Negotiable,
		FlexibleTime:     sw.FlexibleTime,
		SingleUserOnly:   sw.SingleUserOnly,
		AllowPartial:     sw.AllowPartial,
		Urgent:           sw.Urgent,
		HasTravel:        sw.HasTravel,
		HasAccommodation: sw.HasAccommodation,
		CreatedAt:        sw.CreatedAt,
		City:             sw.City,
		State:            sw.State,
		Address:          sw.Address,
		DistanceKm:       sw.DistanceKm,
	}
	for _, slw := range sw.Slots {
		date, err := engine.ParseDate(slw.Date)
		if err != nil {
			return nil, fmt.Errorf("shift %s slot %s: %w", sw.ID, slw.ID, err)
		}
		slot := engine.ShiftSlot{
			ID:      engine.SlotID(slw.ID),
			ShiftID: shift.ID,
			Date:    date,
			Rate:    decodeRate(slw.Rate),
		}
		if slw.Start != nil {
			c, err := engine.ParseClockTime(*slw.Start)
			if err != nil {
				return nil, fmt.Errorf("shift %s slot %s: %w", sw.ID, slw.ID, err)
			}
			slot.Start = &c
		}
		if slw.End != nil {
			c, err := engine.ParseClockTime(*slw.End)
			if err != nil {
				return nil, fmt.Errorf("shift %s slot %s: %w", sw.ID, slw.ID, err)
			}
			slot.End = &c
		}
		shift.Slots = append(shift.Slots, slot)
	}
	return shift, nil
}

// decodeRate tolerates absent and malformed values: a rate the backend
// can't express cleanly resolves through the engine's fallback chain
// instead of failing the whole page.
func decodeRate(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, ok := engine.ParseRate(*s)
	if !ok {
		return nil
	}
	return &d
}

// =============================================================================
// RATE PREFERENCE SOURCE
// =============================================================================

// FetchRatePreference returns the worker's preference record, or nil
// when the worker has none (no overrides).
func (c *Client) FetchRatePreference(ctx context.Context, workerID engine.WorkerID) (*engine.RatePreference, error) {
	var wire prefWire
	path := "/v1/workers/" + url.PathEscape(string(workerID)) + "/rate-preference"
	status, err := c.getJSONStatus(ctx, path, nil, &wire)
	if err != nil {
		return nil, fmt.Errorf("fetch rate preference: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &engine.RatePreference{
		Weekday:               decodeRate(wire.Weekday),
		Saturday:              decodeRate(wire.Saturday),
		Sunday:                decodeRate(wire.Sunday),
		PublicHoliday:         decodeRate(wire.PublicHoliday),
		EarlyMorning:          decodeRate(wire.EarlyMorning),
		LateNight:             decodeRate(wire.LateNight),
		EarlyMorningSameAsDay: wire.EarlyMorningSameAsDay,
		LateNightSameAsDay:    wire.LateNightSameAsDay,
	}, nil
}

// =============================================================================
// ADDRESS LOOKUP
// =============================================================================

// LookupAddress resolves free text into a structured address, or nil
// when nothing matches.
func (c *Client) LookupAddress(ctx context.Context, query string) (*engine.ResolvedAddress, error) {
	var wire addressWire
	q := url.Values{"q": {query}}
	status, err := c.getJSONStatus(ctx, "/v1/addresses/lookup", q, &wire)
	if err != nil {
		return nil, fmt.Errorf("address lookup: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &engine.ResolvedAddress{
		StreetAddress: wire.StreetAddress,
		Suburb:        wire.Suburb,
		State:         wire.State,
		Postcode:      wire.Postcode,
		PlaceID:       wire.PlaceID,
		Lat:           wire.Lat,
		Lng:           wire.Lng,
	}, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) ApplyShift(ctx context.Context, shiftID engine.ShiftID) error {
	return c.postJSON(ctx, "/v1/shifts/"+url.PathEscape(string(shiftID))+"/apply", nil)
}

func (c *Client) ApplySlots(ctx context.Context, shiftID engine.ShiftID, slotIDs []engine.SlotID) error {
	body := map[string]any{"slot_ids": slotIDs}
	return c.postJSON(ctx, "/v1/shifts/"+url.PathEscape(string(shiftID))+"/apply", body)
}

func (c *Client) RejectShift(ctx context.Context, shiftID engine.ShiftID) error {
	return c.postJSON(ctx, "/v1/shifts/"+url.PathEscape(string(shiftID))+"/reject", nil)
}

func (c *Client) RejectSlots(ctx context.Context, shiftID engine.ShiftID, slotIDs []engine.SlotID) error {
	body := map[string]any{"slot_ids": slotIDs}
	return c.postJSON(ctx, "/v1/shifts/"+url.PathEscape(string(shiftID))+"/reject", body)
}

func (c *Client) SubmitCounterOffer(ctx context.Context, payload *engine.ShiftCounterOfferPayload) error {
	type amendWire struct {
		SlotID string  `json:"slot_id"`
		Rate   string  `json:"rate"`
		Start  *string `json:"start,omitempty"`
		End    *string `json:"end,omitempty"`
	}
	body := struct {
		ID         string      `json:"id"`
		ShiftID    string      `json:"shift_id"`
		Amendments []amendWire `json:"amendments"`
		Message    string      `json:"message"`
	}{
		ID:      payload.ID,
		ShiftID: string(payload.ShiftID),
		Message: payload.Message,
	}
	for _, a := range payload.Amendments {
		aw := amendWire{SlotID: string(a.SlotID), Rate: a.Rate.String()}
		if a.Start != nil {
			s := a.Start.String()
			aw.Start = &s
		}
		if a.End != nil {
			s := a.End.String()
			aw.End = &s
		}
		body.Amendments = append(body.Amendments, aw)
	}
	return c.postJSON(ctx, "/v1/shifts/"+url.PathEscape(string(payload.ShiftID))+"/counter-offers", body)
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	status, err := c.getJSONStatus(ctx, path, query, dst)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, status)
	}
	return nil
}

// getJSONStatus decodes a 200 body into dst and passes 404 through so
// callers can map it to "no result".
func (c *Client) getJSONStatus(ctx context.Context, path string, query url.Values, dst any) (int, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	c.auth(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
		return resp.StatusCode, nil
	case http.StatusNotFound:
		return resp.StatusCode, nil
	default:
		return resp.StatusCode, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *Client) auth(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
