package booking

import (
    "context"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/vehicle-rental-booking/internal/clock"
    "github.com/iliyamo/vehicle-rental-booking/internal/model"
)

// DefaultHoldGrace is how long an unpaid hold keeps blocking a vehicle
// before the sweeper may reclaim it, unless the caller asks for a
// different grace period at creation time.
const DefaultHoldGrace = 15 * time.Minute

// allowedFrom maps a lifecycle trigger to the states it may fire from.
// Keeping the table explicit makes the state machine auditable in one
// glance and testable without any store behind it.
var allowedFrom = map[string][]string{
    "mark-paid": {model.StatusHeld},
    "activate":  {model.StatusHeld},
    "complete":  {model.StatusActive},
    "cancel":    {model.StatusHeld, model.StatusActive},
    "extend":    {model.StatusHeld, model.StatusActive},
}

func allowed(trigger, from string) bool {
    for _, s := range allowedFrom[trigger] {
        if s == from {
            return true
        }
    }
    return false
}

// Service is the booking engine.  All mutations run inside one store
// transaction and go through conditional version-checked updates; a
// stale version is surfaced to the caller, never retried here.
type Service struct {
    store Store
    clock clock.Clock
    grace time.Duration
}

// NewService builds a Service.  grace <= 0 falls back to DefaultHoldGrace.
func NewService(store Store, clk clock.Clock, grace time.Duration) *Service {
    if grace <= 0 {
        grace = DefaultHoldGrace
    }
    return &Service{store: store, clock: clk, grace: grace}
}

// CheckAvailability returns the availability calendar for a vehicle over
// [from, to).  It is a pure read and runs outside any transaction, so the
// result is an eventually-consistent view suitable for listings.
func (s *Service) CheckAvailability(ctx context.Context, vehicleID uint64, from, to time.Time) (Calendar, error) {
    window, err := NewDateRange(from, to)
    if err != nil {
        return Calendar{}, err
    }
    if _, err := s.store.GetVehicle(ctx, vehicleID); err != nil {
        return Calendar{}, err
    }
    candidates, err := s.store.FindOverlapping(ctx, vehicleID, window, 0)
    if err != nil {
        return Calendar{}, err
    }
    now := s.clock.Now()
    blocking := make([]model.Reservation, 0, len(candidates))
    for _, r := range candidates {
        if Blocks(r, now) {
            blocking = append(blocking, r)
        }
    }
    return buildCalendar(vehicleID, window, blocking), nil
}

// CreateReservationInput carries the parameters for CreateReservation.
// GraceMinutes overrides the service-wide hold grace when positive.
type CreateReservationInput struct {
    VehicleID    uint64
    CustomerID   uint64
    StartDate    time.Time
    EndDate      time.Time
    GraceMinutes int
}

// CreateReservation places a new HELD, UNPAID reservation after verifying
// that no blocking reservation overlaps the requested dates.  The overlap
// check and the insert share one transaction, serialized per vehicle by a
// row lock, so two concurrent overlapping requests yield exactly one
// success and one ConflictError.
func (s *Service) CreateReservation(ctx context.Context, in CreateReservationInput) (model.Reservation, error) {
    rng, err := NewDateRange(in.StartDate, in.EndDate)
    if err != nil {
        return model.Reservation{}, err
    }
    grace := s.grace
    if in.GraceMinutes > 0 {
        grace = time.Duration(in.GraceMinutes) * time.Minute
    }

    now := s.clock.Now()
    expiresAt := now.Add(grace)
    res := model.Reservation{
        Reference:     uuid.NewString(),
        VehicleID:     in.VehicleID,
        CustomerID:    in.CustomerID,
        StartDate:     rng.Start,
        EndDate:       rng.End,
        Status:        model.StatusHeld,
        PaymentStatus: model.PaymentUnpaid,
        ExpiresAt:     &expiresAt,
        Version:       1,
    }

    err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
        veh, err := tx.GetVehicleForUpdate(ctx, in.VehicleID)
        if err != nil {
            return err
        }
        if !veh.Active {
            return ErrVehicleInactive
        }
        existing, err := tx.FindOverlapping(ctx, in.VehicleID, rng, 0)
        if err != nil {
            return err
        }
        if b := firstBlocking(existing, now); b != nil {
            return &ConflictError{ConflictingID: b.ID, ConflictingRef: b.Reference}
        }
        return tx.InsertReservation(ctx, &res)
    })
    if err != nil {
        return model.Reservation{}, err
    }
    return res, nil
}

// ExtendReservation moves a reservation's exclusive end date, re-running
// the overlap check with the reservation itself excluded.  The caller's
// expectedVersion guards against concurrent mutation of the same row.
func (s *Service) ExtendReservation(ctx context.Context, id, expectedVersion uint64, newEndDate time.Time) (model.Reservation, error) {
    now := s.clock.Now()
    return s.mutate(ctx, id, expectedVersion, func(ctx context.Context, tx Tx, cur model.Reservation) (ReservationMutation, error) {
        if !allowed("extend", cur.Status) {
            return ReservationMutation{}, &TransitionError{From: cur.Status, Trigger: "extend"}
        }
        rng, err := NewDateRange(cur.StartDate, newEndDate)
        if err != nil {
            return ReservationMutation{}, err
        }
        if _, err := tx.GetVehicleForUpdate(ctx, cur.VehicleID); err != nil {
            return ReservationMutation{}, err
        }
        existing, err := tx.FindOverlapping(ctx, cur.VehicleID, rng, cur.ID)
        if err != nil {
            return ReservationMutation{}, err
        }
        if b := firstBlocking(existing, now); b != nil {
            return ReservationMutation{}, &ConflictError{ConflictingID: b.ID, ConflictingRef: b.Reference}
        }
        end := rng.End
        return ReservationMutation{EndDate: &end}, nil
    })
}

// MarkPaid records payment on a hold and clears its grace deadline, after
// which the reservation blocks its dates unconditionally.
func (s *Service) MarkPaid(ctx context.Context, id, expectedVersion uint64) (model.Reservation, error) {
    return s.mutate(ctx, id, expectedVersion, func(ctx context.Context, tx Tx, cur model.Reservation) (ReservationMutation, error) {
        if !allowed("mark-paid", cur.Status) || cur.PaymentStatus == model.PaymentPaid {
            return ReservationMutation{}, &TransitionError{From: cur.Status, Trigger: "mark-paid"}
        }
        return ReservationMutation{PaymentStatus: model.PaymentPaid, ClearExpiry: true}, nil
    })
}

// Activate transitions a hold to ACTIVE at pickup.
func (s *Service) Activate(ctx context.Context, id, expectedVersion uint64) (model.Reservation, error) {
    return s.mutate(ctx, id, expectedVersion, func(ctx context.Context, tx Tx, cur model.Reservation) (ReservationMutation, error) {
        if !allowed("activate", cur.Status) {
            return ReservationMutation{}, &TransitionError{From: cur.Status, Trigger: "activate"}
        }
        return ReservationMutation{Status: model.StatusActive, ClearExpiry: true}, nil
    })
}

// Complete transitions an ACTIVE reservation to its terminal COMPLETED
// state at dropoff.
func (s *Service) Complete(ctx context.Context, id, expectedVersion uint64) (model.Reservation, error) {
    return s.mutate(ctx, id, expectedVersion, func(ctx context.Context, tx Tx, cur model.Reservation) (ReservationMutation, error) {
        if !allowed("complete", cur.Status) {
            return ReservationMutation{}, &TransitionError{From: cur.Status, Trigger: "complete"}
        }
        return ReservationMutation{Status: model.StatusCompleted}, nil
    })
}

// Cancel terminates a HELD or ACTIVE reservation on explicit user or admin
// action.  Terminal reservations stay terminal; a new reservation must be
// created instead of reviving one.
func (s *Service) Cancel(ctx context.Context, id, expectedVersion uint64) (model.Reservation, error) {
    return s.mutate(ctx, id, expectedVersion, func(ctx context.Context, tx Tx, cur model.Reservation) (ReservationMutation, error) {
        if !allowed("cancel", cur.Status) {
            return ReservationMutation{}, &TransitionError{From: cur.Status, Trigger: "cancel"}
        }
        return ReservationMutation{Status: model.StatusCancelled, ClearExpiry: true}, nil
    })
}

// SetVehicleActive flips a vehicle's active flag through the same
// conditional-version primitive used for reservations.
func (s *Service) SetVehicleActive(ctx context.Context, id, expectedVersion uint64, active bool) (model.Vehicle, error) {
    var out model.Vehicle
    err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
        veh, err := tx.GetVehicleForUpdate(ctx, id)
        if err != nil {
            return err
        }
        newVersion, err := tx.SetVehicleActive(ctx, id, expectedVersion, active)
        if err != nil {
            return err
        }
        veh.Active = active
        veh.Version = newVersion
        out = veh
        return nil
    })
    if err != nil {
        return model.Vehicle{}, err
    }
    return out, nil
}

// mutate runs one version-checked reservation mutation inside a
// transaction: load the row, let apply derive the mutation, then issue the
// conditional update against the caller's expected version.
func (s *Service) mutate(ctx context.Context, id, expectedVersion uint64, apply func(ctx context.Context, tx Tx, cur model.Reservation) (ReservationMutation, error)) (model.Reservation, error) {
    var out model.Reservation
    err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
        cur, err := tx.GetReservation(ctx, id)
        if err != nil {
            return err
        }
        mut, err := apply(ctx, tx, cur)
        if err != nil {
            return err
        }
        newVersion, err := tx.UpdateReservation(ctx, id, expectedVersion, mut)
        if err != nil {
            return err
        }
        out = applyMutation(cur, mut)
        out.Version = newVersion
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }
    return out, nil
}

// applyMutation mirrors the store-side effect of a mutation onto an
// in-memory copy so callers get the post-update row without a re-read.
func applyMutation(r model.Reservation, mut ReservationMutation) model.Reservation {
    if mut.Status != "" {
        r.Status = mut.Status
    }
    if mut.PaymentStatus != "" {
        r.PaymentStatus = mut.PaymentStatus
    }
    if mut.EndDate != nil {
        r.EndDate = *mut.EndDate
    }
    if mut.ClearExpiry {
        r.ExpiresAt = nil
    }
    return r
}
