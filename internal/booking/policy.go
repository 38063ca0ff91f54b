package booking

import (
    "time"

    "github.com/iliyamo/vehicle-rental-booking/internal/model"
)

// Blocks decides whether an existing reservation prevents a new overlapping
// one, evaluated against "now".  The rules, in order:
//
//  1. ACTIVE always blocks.
//  2. A PAID reservation always blocks, even while still HELD.
//  3. A HELD, UNPAID reservation blocks only while its grace deadline has
//     not passed (a missing deadline counts as not passed).
//
// Rule 3 means an expired unpaid hold stops blocking the moment its
// deadline passes, even if the sweeper has not cancelled the row yet.  The
// availability view and the stored status may disagree for up to one sweep
// interval; that window is intentional and must not be closed here.
func Blocks(r model.Reservation, now time.Time) bool {
    switch {
    case r.Status == model.StatusActive:
        return true
    case r.Status == model.StatusHeld && r.PaymentStatus == model.PaymentPaid:
        return true
    case r.Status == model.StatusHeld:
        return r.ExpiresAt == nil || !r.ExpiresAt.Before(now)
    default:
        // COMPLETED and CANCELLED never block.
        return false
    }
}

// firstBlocking returns the first reservation in the slice that blocks the
// candidate range, or nil.
func firstBlocking(existing []model.Reservation, now time.Time) *model.Reservation {
    for i := range existing {
        if Blocks(existing[i], now) {
            return &existing[i]
        }
    }
    return nil
}
