// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/iliyamo/vehicle-rental-booking/internal/model"
)

// Event kinds published on the reservation.events queue.
const (
    KindReservationConfirmed = "reservation.confirmed"
    KindReservationExpired   = "reservation.expired"
)

// ReservationEvent is published when a reservation is activated at pickup
// or reclaimed by the expiration sweeper.  It carries enough information
// for downstream consumers to log or notify without querying the primary
// database.
type ReservationEvent struct {
    Kind          string `json:"kind"`
    ReservationID uint64 `json:"reservation_id"`
    Reference     string `json:"reference"`
    VehicleID     uint64 `json:"vehicle_id"`
    CustomerID    uint64 `json:"customer_id"`
    StartDate     string `json:"start_date"`
    EndDate       string `json:"end_date"`
    Status        string `json:"status"`
    PaymentStatus string `json:"payment_status"`
    OccurredAt    string `json:"occurred_at"`
}

// NewReservationEvent builds an event of the given kind from a reservation
// snapshot.
func NewReservationEvent(kind string, r model.Reservation, at time.Time) ReservationEvent {
    return ReservationEvent{
        Kind:          kind,
        ReservationID: r.ID,
        Reference:     r.Reference,
        VehicleID:     r.VehicleID,
        CustomerID:    r.CustomerID,
        StartDate:     r.StartDate.Format("2006-01-02"),
        EndDate:       r.EndDate.Format("2006-01-02"),
        Status:        r.Status,
        PaymentStatus: r.PaymentStatus,
        OccurredAt:    at.UTC().Format(time.RFC3339),
    }
}
