/*
sources.go - External collaborator interfaces

PURPOSE:
  The engine is a pure computation library. Everything it needs from
  the outside world arrives through these interfaces: the shift
  collection, the worker's rate preference, and address resolution for
  the travel-allowance sub-flow. Implementations live outside this
  package (see upstream/).

SEE ALSO:
  - apply.go: Transport, the fourth collaborator
  - upstream/client.go: HTTP implementations of all four
*/
package engine

import "context"

// ShiftSource fetches the shift collection. The engine accepts
// whatever page is given and does not itself paginate.
type ShiftSource interface {
	FetchShifts(ctx context.Context, page int) ([]*Shift, error)
}

// RatePreferenceSource fetches the worker's rate preference record.
// A nil preference means "no overrides": resolution falls through to
// shift-level rates.
type RatePreferenceSource interface {
	FetchRatePreference(ctx context.Context, workerID WorkerID) (*RatePreference, error)
}

// AddressLookup resolves free text into a structured address, or nil
// when nothing matches.
type AddressLookup interface {
	LookupAddress(ctx context.Context, query string) (*ResolvedAddress, error)
}

// ResolvedAddress is a structured address from the lookup or manual
// entry.
type ResolvedAddress struct {
	StreetAddress string
	Suburb        string
	State         string
	Postcode      string
	PlaceID       string
	Lat           float64
	Lng           float64
}

// Validate checks the fields the travel sub-flow requires.
func (a ResolvedAddress) Validate() error {
	switch {
	case a.StreetAddress == "":
		return &ValidationError{Field: "travel_address", Message: "street address is required"}
	case a.Suburb == "":
		return &ValidationError{Field: "travel_address", Message: "suburb is required"}
	case a.State == "":
		return &ValidationError{Field: "travel_address", Message: "state is required"}
	case a.Postcode == "":
		return &ValidationError{Field: "travel_address", Message: "postcode is required"}
	}
	return nil
}

// OneLine formats the address for display and the travel line.
func (a ResolvedAddress) OneLine() string {
	return a.StreetAddress + ", " + a.Suburb + " " + a.State + " " + a.Postcode
}
