// Package booking implements the reservation engine: date-range conflict
// detection, the reservation lifecycle and version-checked mutation of
// shared records.  The HTTP layer is a thin shell over this package.
package booking

import (
    "errors"
    "fmt"
)

// ErrInvalidRange is returned when a date range is empty or inverted.  It is
// rejected before any store access happens.
var ErrInvalidRange = errors.New("invalid date range")

// ErrStaleVersion is returned when a conditional update matched zero rows,
// meaning another writer mutated the record since the caller last read it.
// Callers must re-read and decide; the engine never retries on its own.
var ErrStaleVersion = errors.New("stale version")

// ErrVehicleNotFound is returned when the referenced vehicle does not exist.
var ErrVehicleNotFound = errors.New("vehicle not found")

// ErrReservationNotFound is returned when the referenced reservation does
// not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrVehicleInactive is returned when a reservation is attempted against a
// vehicle that has been withdrawn from the fleet.
var ErrVehicleInactive = errors.New("vehicle inactive")

// ConflictError reports that a candidate date range overlaps an existing
// blocking reservation.  It carries the blocking reservation for
// diagnostics so the API layer can point the user at the conflict.
type ConflictError struct {
    ConflictingID  uint64
    ConflictingRef string
}

func (e *ConflictError) Error() string {
    return fmt.Sprintf("dates conflict with reservation %d", e.ConflictingID)
}

// TransitionError reports a lifecycle transition that the state machine
// does not allow, e.g. completing a reservation that was never activated.
type TransitionError struct {
    From    string
    Trigger string
}

func (e *TransitionError) Error() string {
    return fmt.Sprintf("cannot %s a %s reservation", e.Trigger, e.From)
}
