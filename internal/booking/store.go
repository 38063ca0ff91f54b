package booking

import (
    "context"
    "time"

    "github.com/iliyamo/vehicle-rental-booking/internal/model"
)

// ReservationMutation describes a version-checked change to a reservation.
// Zero-valued fields are left untouched; the store must apply the whole
// mutation and the version increment in one conditional statement keyed on
// (id, expected version).
type ReservationMutation struct {
    Status        string     // new status; empty leaves it unchanged
    PaymentStatus string     // new payment status; empty leaves it unchanged
    EndDate       *time.Time // new exclusive end date, used by extensions
    ClearExpiry   bool       // set expires_at to NULL
}

// Tx is the transaction-scoped view of the store.  Every read-then-write
// decision in the engine happens through exactly one Tx.
type Tx interface {
    // GetVehicleForUpdate loads a vehicle and takes a row lock on it for the
    // remainder of the transaction.  Concurrent writers for the same vehicle
    // serialize on this lock, which closes the check-then-insert race.
    GetVehicleForUpdate(ctx context.Context, id uint64) (model.Vehicle, error)

    GetReservation(ctx context.Context, id uint64) (model.Reservation, error)

    // FindOverlapping returns all HELD or ACTIVE reservations for the vehicle
    // whose interval intersects rng, excluding excludeID when non-zero.  The
    // blocking policy is applied by the caller, not by the store.
    FindOverlapping(ctx context.Context, vehicleID uint64, rng DateRange, excludeID uint64) ([]model.Reservation, error)

    // InsertReservation persists a new reservation and fills in its generated
    // ID and timestamps.
    InsertReservation(ctx context.Context, r *model.Reservation) error

    // UpdateReservation applies mut iff the row still carries
    // expectedVersion, incrementing the version by exactly one.  It returns
    // the new version, or ErrStaleVersion when another writer won the race.
    UpdateReservation(ctx context.Context, id, expectedVersion uint64, mut ReservationMutation) (uint64, error)

    // SetVehicleActive flips the vehicle's active flag under the same
    // conditional-version contract as UpdateReservation.
    SetVehicleActive(ctx context.Context, id, expectedVersion uint64, active bool) (uint64, error)
}

// Store is the engine's view of the persistent store.  WithTx runs fn
// inside one ACID transaction (snapshot isolation or stricter); the
// remaining methods are plain reads and single-statement conditional
// updates that need no surrounding transaction.
type Store interface {
    WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

    GetVehicle(ctx context.Context, id uint64) (model.Vehicle, error)
    GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
    FindOverlapping(ctx context.Context, vehicleID uint64, rng DateRange, excludeID uint64) ([]model.Reservation, error)

    // FindExpiredHolds lists HELD, UNPAID reservations whose deadline is at
    // or before now, oldest first, capped at limit.  Used by the sweeper.
    FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)

    // CancelExpiredHold cancels one expired hold with a single conditional
    // update whose predicate re-checks id, version, HELD status, UNPAID
    // payment and the elapsed deadline.  It returns false when the predicate
    // no longer matches (paid or cancelled in the meantime), which is a safe
    // no-op, not an error.
    CancelExpiredHold(ctx context.Context, id, expectedVersion uint64, now time.Time) (bool, error)
}
