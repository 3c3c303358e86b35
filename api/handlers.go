/*
handlers.go - HTTP API handlers for the shift marketplace engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the engine's filter/sort/state-machine
  logic.

ENDPOINTS:
  Shifts:
    GET    /api/shifts                          Filtered, sorted listing
    GET    /api/addresses/lookup                Travel address search

  Worker session:
    GET    /api/workers/{id}/session            Current session state
    POST   /api/workers/{id}/apply              Apply (shift or slots)
    POST   /api/workers/{id}/reject             Reject (shift or slot)
    POST   /api/workers/{id}/save               Toggle saved flag
    POST   /api/workers/{id}/counter-offers     Submit a counter-offer

ARCHITECTURE:
  Handler holds the shared dependencies (session store, shift source,
  preference source, transport, resolver). Per request it hydrates the
  worker's session from the store, builds an engine, runs the command
  and lets the engine persist the result.

ERROR HANDLING:
  - 400: Validation errors, malformed input
  - 404: Unknown shift/slot
  - 409: Eligibility conflicts (already applied, bundle-only, ...)
  - 502: Transport failures (after rollback)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - engine/: The logic these handlers delegate to
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/shift-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     engine.SessionStore
	Source    engine.ShiftSource
	Prefs     engine.RatePreferenceSource
	Transport engine.Transport
	Resolver  *engine.RateResolver
	Policy    engine.EligibilityPolicy

	// Addresses backs the travel-allowance address search. Optional:
	// nil disables the lookup endpoint.
	Addresses engine.AddressLookup

	// SaveEnabled gates the saved-shifts feature across all workers.
	SaveEnabled bool

	validate *validator.Validate
}

// NewHandler creates a handler with defaults: AllowAll policy, default
// resolver, save enabled.
func NewHandler(store engine.SessionStore, source engine.ShiftSource, prefs engine.RatePreferenceSource, transport engine.Transport) *Handler {
	return &Handler{
		Store:       store,
		Source:      source,
		Prefs:       prefs,
		Transport:   transport,
		Resolver:    engine.NewRateResolver(nil),
		Policy:      engine.AllowAll{},
		SaveEnabled: true,
		validate:    validator.New(),
	}
}

// newEngine hydrates a worker's session and binds an engine to it.
func (h *Handler) newEngine(ctx context.Context, workerID engine.WorkerID) (*engine.Engine, error) {
	e := engine.NewEngine(workerID, engine.NewSessionState(), h.Transport)
	e.Store = h.Store
	e.Resolver = h.Resolver
	e.Policy = h.Policy
	e.SaveEnabled = h.SaveEnabled
	if err := e.Hydrate(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// findShift locates a shift by ID in the current listing.
func (h *Handler) findShift(ctx context.Context, id engine.ShiftID) (*engine.Shift, error) {
	shifts, err := h.Source.FetchShifts(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, s := range shifts {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

// =============================================================================
// SHIFT LISTING
// =============================================================================

// ListShifts returns the filtered, sorted shift collection.
// GET /api/shifts?worker=...&city=...&sort=rate&dir=desc&...
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	cfg, err := engine.ParseFilterConfig(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	workerID := engine.WorkerID(query.Get("worker"))
	session := engine.NewSessionState()
	var pref *engine.RatePreference
	if workerID != "" {
		snap, err := h.Store.Load(ctx, workerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load session", err)
			return
		}
		session.ReplaceAll(snap)

		if h.Prefs != nil {
			pref, err = h.Prefs.FetchRatePreference(ctx, workerID)
			if err != nil {
				writeError(w, http.StatusBadGateway, "Failed to fetch rate preference", err)
				return
			}
		}
	}

	shifts, err := h.Source.FetchShifts(ctx, 0)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to fetch shifts", err)
		return
	}

	today := engine.Today()
	filter := &engine.ShiftFilter{
		Config:   cfg,
		Resolver: h.Resolver,
		Pref:     pref,
		Today:    today,
		IsSaved:  session.IsSaved,
	}
	candidates := filter.Apply(shifts)

	spec := engine.DefaultSort()
	if key := query.Get("sort"); key != "" {
		spec.Key = engine.SortKey(key)
	}
	if dir := query.Get("dir"); dir == string(engine.Descending) {
		spec.Direction = engine.Descending
	}
	sorter := &engine.ShiftSorter{Resolver: h.Resolver, Pref: pref, Today: today}
	sorter.Sort(candidates, spec)

	dtos := make([]ShiftDTO, 0, len(candidates))
	for _, s := range candidates {
		dtos = append(dtos, toShiftDTO(s, session, h.Resolver, pref, today))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LookupAddress resolves free text into a structured address for the
// travel-allowance sub-flow.
// GET /api/addresses/lookup?q=...
func (h *Handler) LookupAddress(w http.ResponseWriter, r *http.Request) {
	if h.Addresses == nil {
		writeError(w, http.StatusNotFound, "Address lookup not configured", nil)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing query parameter q", nil)
		return
	}
	addr, err := h.Addresses.LookupAddress(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Address lookup failed", err)
		return
	}
	if addr == nil {
		writeError(w, http.StatusNotFound, "No matching address", nil)
		return
	}
	writeJSON(w, http.StatusOK, AddressDTO{
		StreetAddress: addr.StreetAddress,
		Suburb:        addr.Suburb,
		State:         addr.State,
		Postcode:      addr.Postcode,
		PlaceID:       addr.PlaceID,
		Lat:           addr.Lat,
		Lng:           addr.Lng,
		OneLine:       addr.OneLine(),
	})
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// GetSession returns the worker's current session state.
// GET /api/workers/{id}/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	workerID := engine.WorkerID(chi.URLParam(r, "id"))
	snap, err := h.Store.Load(r.Context(), workerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(snap))
}

// Apply applies to a whole shift (no slot_ids) or to specific slots.
// POST /api/workers/{id}/apply
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID := engine.WorkerID(chi.URLParam(r, "id"))

	var req ApplyRequest
	if !h.decode(w, r, &req) {
		return
	}

	shift, eng, ok := h.loadShiftAndEngine(w, ctx, workerID, engine.ShiftID(req.ShiftID))
	if !ok {
		return
	}

	var err error
	if len(req.SlotIDs) == 0 {
		err = eng.ApplyShift(ctx, shift)
	} else {
		for _, id := range req.SlotIDs {
			if terr := eng.Session.ToggleSelect(shift, engine.SlotID(id)); terr != nil {
				writeEngineError(w, terr)
				return
			}
		}
		err = eng.ApplySelected(ctx, shift)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(eng.Session.Snapshot()))
}

// Reject rejects a whole shift (no slot_id) or one slot.
// POST /api/workers/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID := engine.WorkerID(chi.URLParam(r, "id"))

	var req RejectRequest
	if !h.decode(w, r, &req) {
		return
	}

	shift, eng, ok := h.loadShiftAndEngine(w, ctx, workerID, engine.ShiftID(req.ShiftID))
	if !ok {
		return
	}

	var err error
	if req.SlotID == "" {
		err = eng.RejectShift(ctx, shift)
	} else {
		err = eng.RejectSlot(ctx, shift, engine.SlotID(req.SlotID))
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(eng.Session.Snapshot()))
}

// Save toggles the saved flag for a shift.
// POST /api/workers/{id}/save
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID := engine.WorkerID(chi.URLParam(r, "id"))

	var req SaveRequest
	if !h.decode(w, r, &req) {
		return
	}

	shift, eng, ok := h.loadShiftAndEngine(w, ctx, workerID, engine.ShiftID(req.ShiftID))
	if !ok {
		return
	}

	saved, err := eng.ToggleSave(ctx, shift)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{ShiftID: req.ShiftID, Saved: saved})
}

// SubmitCounterOffer builds, validates, and submits a counter-offer.
// POST /api/workers/{id}/counter-offers
func (h *Handler) SubmitCounterOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID := engine.WorkerID(chi.URLParam(r, "id"))

	var req CounterOfferRequest
	if !h.decode(w, r, &req) {
		return
	}

	shift, eng, ok := h.loadShiftAndEngine(w, ctx, workerID, engine.ShiftID(req.ShiftID))
	if !ok {
		return
	}

	var pref *engine.RatePreference
	if h.Prefs != nil {
		var err error
		pref, err = h.Prefs.FetchRatePreference(ctx, workerID)
		if err != nil {
			writeError(w, http.StatusBadGateway, "Failed to fetch rate preference", err)
			return
		}
	}

	slotIDs := make([]engine.SlotID, 0, len(req.Slots))
	for _, s := range req.Slots {
		slotIDs = append(slotIDs, engine.SlotID(s.SlotID))
	}

	builder := &engine.CounterOfferBuilder{Resolver: h.Resolver, Pref: pref}
	form, err := builder.Build(shift, slotIDs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	form.SetMessage(req.Message)

	for _, s := range req.Slots {
		if s.Rate != nil {
			rate, rok := engine.ParseRate(*s.Rate)
			if !rok {
				writeError(w, http.StatusBadRequest, "Invalid rate", nil)
				return
			}
			if err := form.SetRate(engine.SlotID(s.SlotID), rate); err != nil {
				writeEngineError(w, err)
				return
			}
		}
		if s.Start != nil && s.End != nil {
			start, err := engine.ParseClockTime(*s.Start)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid start time", err)
				return
			}
			end, err := engine.ParseClockTime(*s.End)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid end time", err)
				return
			}
			if err := form.SetTimes(engine.SlotID(s.SlotID), start, end); err != nil {
				writeEngineError(w, err)
				return
			}
		}
	}

	if req.Travel != nil {
		addr := engine.ResolvedAddress{
			StreetAddress: req.Travel.StreetAddress,
			Suburb:        req.Travel.Suburb,
			State:         req.Travel.State,
			Postcode:      req.Travel.Postcode,
			PlaceID:       req.Travel.PlaceID,
			Lat:           req.Travel.Lat,
			Lng:           req.Travel.Lng,
		}
		if err := form.EnableTravel(addr); err != nil {
			writeEngineError(w, err)
			return
		}
	}

	if err := eng.SubmitCounterOffer(ctx, shift, form); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(eng.Session.Snapshot()))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON request body. Writes the error
// response itself and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

func (h *Handler) loadShiftAndEngine(w http.ResponseWriter, ctx context.Context, workerID engine.WorkerID, shiftID engine.ShiftID) (*engine.Shift, *engine.Engine, bool) {
	shift, err := h.findShift(ctx, shiftID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to fetch shifts", err)
		return nil, nil, false
	}
	if shift == nil {
		writeError(w, http.StatusNotFound, "Shift not found", nil)
		return nil, nil, false
	}
	eng, err := h.newEngine(ctx, workerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load session", err)
		return nil, nil, false
	}
	return shift, eng, true
}

// writeEngineError maps engine errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsValidationError(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case errors.Is(err, engine.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "Slot not found", err)
	case engine.IsEligibilityError(err),
		errors.Is(err, engine.ErrSaveDisabled),
		errors.Is(err, engine.ErrRateNotNegotiable),
		errors.Is(err, engine.ErrTimeNotFlexible),
		errors.Is(err, engine.ErrTravelNotOfferable):
		writeError(w, http.StatusConflict, "Action not allowed", err)
	case errors.Is(err, engine.ErrTransportFailed):
		writeError(w, http.StatusBadGateway, "Upstream call failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
