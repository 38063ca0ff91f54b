package model

import "time"

// Reservation statuses.  HELD and ACTIVE are the only non-terminal states;
// COMPLETED and CANCELLED are terminal and a reservation never leaves them.
const (
    StatusHeld      = "HELD"
    StatusActive    = "ACTIVE"
    StatusCompleted = "COMPLETED"
    StatusCancelled = "CANCELLED"
)

// Payment statuses for a reservation.
const (
    PaymentUnpaid = "UNPAID"
    PaymentPaid   = "PAID"
)

// Reservation records an exclusive claim on a vehicle over a half-open
// date range [StartDate, EndDate).  Dates are day-granular and stored in
// UTC; EndDate is excluded so that back-to-back rentals never overlap.
//
// ExpiresAt is only meaningful while the reservation is HELD and UNPAID:
// it marks the end of the payment grace period.  Once the reservation is
// paid or resolved the column is cleared.
//
// Fields:
//  ID            – primary key identifier.
//  Reference     – opaque UUID handed to clients.
//  VehicleID     – vehicle being reserved.
//  CustomerID    – customer who created the reservation.
//  StartDate     – first rented day (inclusive).
//  EndDate       – day after the last rented day (exclusive).
//  Status        – HELD, ACTIVE, COMPLETED or CANCELLED.
//  PaymentStatus – UNPAID or PAID.
//  ExpiresAt     – unpaid-hold deadline (nullable).
//  Version       – optimistic lock counter, incremented on every mutation.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Reservation struct {
    ID            uint64     `json:"id"`             // reservations.id
    Reference     string     `json:"reference"`      // reservations.reference
    VehicleID     uint64     `json:"vehicle_id"`     // reservations.vehicle_id
    CustomerID    uint64     `json:"customer_id"`    // reservations.customer_id
    StartDate     time.Time  `json:"start_date"`     // reservations.start_date
    EndDate       time.Time  `json:"end_date"`       // reservations.end_date
    Status        string     `json:"status"`         // reservations.status
    PaymentStatus string     `json:"payment_status"` // reservations.payment_status
    ExpiresAt     *time.Time `json:"expires_at"`     // reservations.expires_at (nullable)
    Version       uint64     `json:"version"`        // reservations.version
    CreatedAt     time.Time  `json:"created_at"`     // reservations.created_at
    UpdatedAt     time.Time  `json:"updated_at"`     // reservations.updated_at
}

// Terminal reports whether the reservation can no longer change state.
func (r Reservation) Terminal() bool {
    return r.Status == StatusCompleted || r.Status == StatusCancelled
}
