package booking

import (
    "sort"
    "time"

    "github.com/iliyamo/vehicle-rental-booking/internal/model"
)

// DayStatus is the availability of a single day within a calendar window.
// ReservationID and Reference identify the blocking reservation when the
// day is booked.
type DayStatus struct {
    Day           time.Time `json:"day"`
    Booked        bool      `json:"booked"`
    ReservationID uint64    `json:"reservation_id,omitempty"`
    Reference     string    `json:"reference,omitempty"`
}

// RangeStatus is a maximal run of consecutive days sharing the same status
// and, for booked runs, the same blocking reservation.  End is exclusive.
type RangeStatus struct {
    Start         time.Time `json:"start"`
    End           time.Time `json:"end"`
    Booked        bool      `json:"booked"`
    ReservationID uint64    `json:"reservation_id,omitempty"`
    Reference     string    `json:"reference,omitempty"`
}

// Calendar is the availability view of one vehicle over a window.  Days and
// Ranges describe the same data at different granularity.
type Calendar struct {
    VehicleID uint64       `json:"vehicle_id"`
    From      time.Time    `json:"from"`
    To        time.Time    `json:"to"`
    Days      []DayStatus  `json:"days"`
    Ranges    []RangeStatus `json:"ranges"`
}

// buildCalendar derives day statuses for the window from the set of
// blocking reservations and coalesces them into contiguous ranges.  The
// blocking set is expected to be pairwise disjoint; if it is not (which can
// only happen transiently), the reservation starting earliest wins a day.
func buildCalendar(vehicleID uint64, window DateRange, blocking []model.Reservation) Calendar {
    sorted := make([]model.Reservation, len(blocking))
    copy(sorted, blocking)
    sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartDate.Before(sorted[j].StartDate) })

    days := make([]DayStatus, 0, window.Days())
    for d := window.Start; d.Before(window.End); d = d.AddDate(0, 0, 1) {
        st := DayStatus{Day: d}
        for i := range sorted {
            if !sorted[i].StartDate.After(d) && sorted[i].EndDate.After(d) {
                st.Booked = true
                st.ReservationID = sorted[i].ID
                st.Reference = sorted[i].Reference
                break
            }
        }
        days = append(days, st)
    }

    return Calendar{
        VehicleID: vehicleID,
        From:      window.Start,
        To:        window.End,
        Days:      days,
        Ranges:    coalesce(days),
    }
}

// coalesce folds consecutive days with identical status into half-open
// ranges.
func coalesce(days []DayStatus) []RangeStatus {
    ranges := make([]RangeStatus, 0)
    for _, d := range days {
        n := len(ranges)
        if n > 0 && ranges[n-1].Booked == d.Booked && ranges[n-1].ReservationID == d.ReservationID {
            ranges[n-1].End = d.Day.AddDate(0, 0, 1)
            continue
        }
        ranges = append(ranges, RangeStatus{
            Start:         d.Day,
            End:           d.Day.AddDate(0, 0, 1),
            Booked:        d.Booked,
            ReservationID: d.ReservationID,
            Reference:     d.Reference,
        })
    }
    return ranges
}
