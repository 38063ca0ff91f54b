package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/vehicle-rental-booking/internal/booking"
    "github.com/iliyamo/vehicle-rental-booking/internal/model"
)

const vehicleColumns = `id, name, plate, active, version, created_at, updated_at`

// VehicleRepo provides data access to the vehicles table.
type VehicleRepo struct {
    db *sql.DB
}

// NewVehicleRepo returns a VehicleRepo bound to the given database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

func scanVehicle(row interface{ Scan(...interface{}) error }) (model.Vehicle, error) {
    var v model.Vehicle
    err := row.Scan(&v.ID, &v.Name, &v.Plate, &v.Active, &v.Version, &v.CreatedAt, &v.UpdatedAt)
    return v, err
}

func (r *VehicleRepo) getByID(ctx context.Context, rn runner, id uint64, forUpdate bool) (model.Vehicle, error) {
    q := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`
    if forUpdate {
        q += ` FOR UPDATE`
    }
    v, err := scanVehicle(rn.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Vehicle{}, booking.ErrVehicleNotFound
    }
    return v, err
}

// GetByID loads a vehicle outside any transaction.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (model.Vehicle, error) {
    return r.getByID(ctx, r.db, id, false)
}

// GetByIDForUpdateTx loads a vehicle inside a transaction and takes a row
// lock on it.  Writers for the same vehicle serialize on this lock, which
// is what makes the overlap-check-then-insert sequence atomic per vehicle.
func (r *VehicleRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Vehicle, error) {
    return r.getByID(ctx, tx, id, true)
}

// Create inserts a new vehicle and populates its generated ID and
// timestamps.  New vehicles start active with version 1.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
    const q = `INSERT INTO vehicles (name, plate, active, version) VALUES (?, ?, TRUE, 1)`
    result, err := r.db.ExecContext(ctx, q, v.Name, v.Plate)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    stored, err := r.getByID(ctx, r.db, uint64(id), false)
    if err != nil {
        return err
    }
    *v = stored
    return nil
}

// List returns all vehicles ordered by id.  Pass activeOnly to hide
// withdrawn vehicles from customer-facing listings.
func (r *VehicleRepo) List(ctx context.Context, activeOnly bool) ([]model.Vehicle, error) {
    q := `SELECT ` + vehicleColumns + ` FROM vehicles`
    if activeOnly {
        q += ` WHERE active = TRUE`
    }
    q += ` ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Vehicle, 0)
    for rows.Next() {
        v, err := scanVehicle(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, v)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// SetActiveTx flips the active flag under the conditional-version contract:
// the update matches only when the row still carries expectedVersion and
// increments the version with the same statement.
func (r *VehicleRepo) SetActiveTx(ctx context.Context, tx *sql.Tx, id, expectedVersion uint64, active bool) (uint64, error) {
    const q = `UPDATE vehicles SET active = ?, version = version + 1 WHERE id = ? AND version = ?`
    result, err := tx.ExecContext(ctx, q, active, id, expectedVersion)
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
