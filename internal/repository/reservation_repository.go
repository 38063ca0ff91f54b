// Package repository implements MySQL persistence for vehicles and
// reservations.  All timestamps are stored and compared in UTC; date
// columns are day-granular DATE values bound in "YYYY-MM-DD" form.
package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/iliyamo/vehicle-rental-booking/internal/booking"
    "github.com/iliyamo/vehicle-rental-booking/internal/model"
)

// runner abstracts *sql.DB and *sql.Tx so queries can run either inside or
// outside a transaction without duplicating SQL.
type runner interface {
    ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const dateLayout = "2006-01-02"

// reservationColumns is the canonical column list shared by every
// reservation SELECT so scans stay in one place.
const reservationColumns = `id, reference, vehicle_id, customer_id, start_date, end_date,
       status, payment_status, expires_at, version, created_at, updated_at`

// ReservationRepo provides data access to the reservations table.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

func scanReservation(row interface{ Scan(...interface{}) error }) (model.Reservation, error) {
    var r model.Reservation
    var expiresAt sql.NullTime
    err := row.Scan(
        &r.ID, &r.Reference, &r.VehicleID, &r.CustomerID, &r.StartDate, &r.EndDate,
        &r.Status, &r.PaymentStatus, &expiresAt, &r.Version, &r.CreatedAt, &r.UpdatedAt,
    )
    if err != nil {
        return model.Reservation{}, err
    }
    if expiresAt.Valid {
        t := expiresAt.Time.UTC()
        r.ExpiresAt = &t
    }
    return r, nil
}

func (r *ReservationRepo) getByID(ctx context.Context, rn runner, id uint64) (model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    res, err := scanReservation(rn.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Reservation{}, booking.ErrReservationNotFound
    }
    return res, err
}

// GetByID loads a single reservation outside any transaction.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
    return r.getByID(ctx, r.db, id)
}

// GetByIDTx loads a single reservation inside an existing transaction.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
    return r.getByID(ctx, tx, id)
}

// CreateTx inserts a new reservation within the provided transaction and
// populates the generated ID and timestamps on the passed record.  The
// caller must commit or roll back the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    const q = `INSERT INTO reservations
        (reference, vehicle_id, customer_id, start_date, end_date, status, payment_status, expires_at, version)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    var expires interface{}
    if res.ExpiresAt != nil {
        expires = res.ExpiresAt.UTC().Format("2006-01-02 15:04:05")
    }
    result, err := tx.ExecContext(ctx, q,
        res.Reference, res.VehicleID, res.CustomerID,
        res.StartDate.Format(dateLayout), res.EndDate.Format(dateLayout),
        res.Status, res.PaymentStatus, expires, res.Version,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Query back the full row to populate timestamps and defaults.
    stored, err := r.getByID(ctx, tx, res.ID)
    if err != nil {
        return err
    }
    *res = stored
    return nil
}

func (r *ReservationRepo) findOverlapping(ctx context.Context, rn runner, vehicleID uint64, rng booking.DateRange, excludeID uint64) ([]model.Reservation, error) {
    // Half-open interval intersection: existing.start < end AND existing.end > start.
    const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE vehicle_id = ?
                 AND status IN ('HELD', 'ACTIVE')
                 AND start_date < ?
                 AND end_date > ?
                 AND id <> ?
               ORDER BY start_date`
    rows, err := rn.QueryContext(ctx, q, vehicleID, rng.End.Format(dateLayout), rng.Start.Format(dateLayout), excludeID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// FindOverlapping returns HELD/ACTIVE reservations intersecting the range,
// read outside a transaction (calendar views).
func (r *ReservationRepo) FindOverlapping(ctx context.Context, vehicleID uint64, rng booking.DateRange, excludeID uint64) ([]model.Reservation, error) {
    return r.findOverlapping(ctx, r.db, vehicleID, rng, excludeID)
}

// FindOverlappingTx is the transactional variant used by the overlap check
// that precedes creation and extension.
func (r *ReservationRepo) FindOverlappingTx(ctx context.Context, tx *sql.Tx, vehicleID uint64, rng booking.DateRange, excludeID uint64) ([]model.Reservation, error) {
    return r.findOverlapping(ctx, tx, vehicleID, rng, excludeID)
}

// UpdateConditionalTx applies a mutation iff the row still carries
// expectedVersion.  The version increment and the data change are one
// statement, so a concurrent writer either sees the whole effect or keeps
// the row untouched.  Zero matched rows surface as booking.ErrStaleVersion.
func (r *ReservationRepo) UpdateConditionalTx(ctx context.Context, tx *sql.Tx, id, expectedVersion uint64, mut booking.ReservationMutation) (uint64, error) {
    sets := []string{"version = version + 1"}
    args := make([]interface{}, 0, 6)
    if mut.Status != "" {
        sets = append(sets, "status = ?")
        args = append(args, mut.Status)
    }
    if mut.PaymentStatus != "" {
        sets = append(sets, "payment_status = ?")
        args = append(args, mut.PaymentStatus)
    }
    if mut.EndDate != nil {
        sets = append(sets, "end_date = ?")
        args = append(args, mut.EndDate.Format(dateLayout))
    }
    if mut.ClearExpiry {
        sets = append(sets, "expires_at = NULL")
    }
    q := "UPDATE reservations SET " + strings.Join(sets, ", ") + " WHERE id = ? AND version = ?"
    args = append(args, id, expectedVersion)
    result, err := tx.ExecContext(ctx, q, args...)
    if err != nil {
        return 0, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return 0, err
    }
    if n == 0 {
        return 0, booking.ErrStaleVersion
    }
    return expectedVersion + 1, nil
}

// FindExpiredHolds lists unpaid holds whose deadline is at or before now,
// oldest deadline first.  The sweeper feeds each result through
// CancelExpired.
func (r *ReservationRepo) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE status = 'HELD'
                 AND payment_status = 'UNPAID'
                 AND expires_at IS NOT NULL
                 AND expires_at <= ?
               ORDER BY expires_at
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, now.UTC().Format("2006-01-02 15:04:05"), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// CancelExpired cancels one expired hold with a single conditional update.
// The predicate re-checks status, payment and deadline alongside id and
// version, so a hold paid in the same instant simply stops matching and the
// update is a harmless no-op (returns false).
func (r *ReservationRepo) CancelExpired(ctx context.Context, id, expectedVersion uint64, now time.Time) (bool, error) {
    const q = `UPDATE reservations
               SET status = 'CANCELLED', expires_at = NULL, version = version + 1
               WHERE id = ?
                 AND version = ?
                 AND status = 'HELD'
                 AND payment_status = 'UNPAID'
                 AND expires_at IS NOT NULL
                 AND expires_at <= ?`
    result, err := r.db.ExecContext(ctx, q, id, expectedVersion, now.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// ListByCustomer returns all reservations created by the given customer,
// newest first.  When none exist, an empty slice is returned.
func (r *ReservationRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE customer_id = ?
               ORDER BY created_at DESC`
    return r.list(ctx, q, customerID)
}

// ListByVehicle returns all reservations for the given vehicle, newest
// first.  Used by the fleet-operations listing endpoint.
func (r *ReservationRepo) ListByVehicle(ctx context.Context, vehicleID uint64) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE vehicle_id = ?
               ORDER BY created_at DESC`
    return r.list(ctx, q, vehicleID)
}

func (r *ReservationRepo) list(ctx context.Context, q string, arg interface{}) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx, q, arg)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
