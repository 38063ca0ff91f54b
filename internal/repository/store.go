package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/vehicle-rental-booking/internal/booking"
    "github.com/iliyamo/vehicle-rental-booking/internal/model"
)

// Store wires the MySQL repositories into the booking engine's Store
// interface.  Transactions run at REPEATABLE READ; per-vehicle write
// serialization comes from the FOR UPDATE row lock taken inside the
// transaction, not from in-process locks.
type Store struct {
    db           *sql.DB
    reservations *ReservationRepo
    vehicles     *VehicleRepo
}

// NewStore builds a Store over an open database handle.
func NewStore(db *sql.DB) *Store {
    return &Store{
        db:           db,
        reservations: NewReservationRepo(db),
        vehicles:     NewVehicleRepo(db),
    }
}

// Reservations exposes the underlying reservation repository for plain
// listing reads that bypass the engine.
func (s *Store) Reservations() *ReservationRepo { return s.reservations }

// Vehicles exposes the underlying vehicle repository.
func (s *Store) Vehicles() *VehicleRepo { return s.vehicles }

// WithTx runs fn inside one transaction, rolling back on error or panic
// and committing otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
    tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(ctx, &storeTx{tx: tx, s: s}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

func (s *Store) GetVehicle(ctx context.Context, id uint64) (model.Vehicle, error) {
    return s.vehicles.GetByID(ctx, id)
}

func (s *Store) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    return s.reservations.GetByID(ctx, id)
}

func (s *Store) FindOverlapping(ctx context.Context, vehicleID uint64, rng booking.DateRange, excludeID uint64) ([]model.Reservation, error) {
    return s.reservations.FindOverlapping(ctx, vehicleID, rng, excludeID)
}

func (s *Store) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
    return s.reservations.FindExpiredHolds(ctx, now, limit)
}

func (s *Store) CancelExpiredHold(ctx context.Context, id, expectedVersion uint64, now time.Time) (bool, error) {
    return s.reservations.CancelExpired(ctx, id, expectedVersion, now)
}

// storeTx adapts one *sql.Tx to the engine's transaction-scoped view.
type storeTx struct {
    tx *sql.Tx
    s  *Store
}

func (t *storeTx) GetVehicleForUpdate(ctx context.Context, id uint64) (model.Vehicle, error) {
    return t.s.vehicles.GetByIDForUpdateTx(ctx, t.tx, id)
}

func (t *storeTx) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    return t.s.reservations.GetByIDTx(ctx, t.tx, id)
}

func (t *storeTx) FindOverlapping(ctx context.Context, vehicleID uint64, rng booking.DateRange, excludeID uint64) ([]model.Reservation, error) {
    return t.s.reservations.FindOverlappingTx(ctx, t.tx, vehicleID, rng, excludeID)
}

func (t *storeTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
    return t.s.reservations.CreateTx(ctx, t.tx, r)
}

func (t *storeTx) UpdateReservation(ctx context.Context, id, expectedVersion uint64, mut booking.ReservationMutation) (uint64, error) {
    return t.s.reservations.UpdateConditionalTx(ctx, t.tx, id, expectedVersion, mut)
}

func (t *storeTx) SetVehicleActive(ctx context.Context, id, expectedVersion uint64, active bool) (uint64, error) {
    return t.s.vehicles.SetActiveTx(ctx, t.tx, id, expectedVersion, active)
}
