// Package sweeper reclaims expired unpaid holds in a periodic background
// pass so their dates become bookable again.
package sweeper

import (
    "context"
    "log"
    "time"

    "github.com/iliyamo/vehicle-rental-booking/internal/clock"
    "github.com/iliyamo/vehicle-rental-booking/internal/model"
)

// Store is the slice of the persistence layer the sweeper needs.  The
// booking store satisfies it.
type Store interface {
    FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)
    CancelExpiredHold(ctx context.Context, id, expectedVersion uint64, now time.Time) (bool, error)
}

// defaultBatch caps how many holds a single pass will touch; anything left
// over is picked up by the next tick.
const defaultBatch = 100

// Sweeper cancels HELD, UNPAID reservations whose grace deadline has
// passed.  It runs as a single goroutine: ticks are consumed by one loop,
// so a pass always finishes before the next begins and no two passes ever
// overlap.  Each cancellation is its own conditional update; a customer
// paying in the same instant wins the race and the hold is left PAID and
// untouched.
type Sweeper struct {
    store    Store
    clock    clock.Clock
    interval time.Duration
    batch    int
    notify   func(ctx context.Context, r model.Reservation)
}

// New builds a Sweeper.  notify, when non-nil, is invoked for every hold
// the pass actually cancelled (used to publish reservation.expired
// events); its failures are the callee's problem and never abort a pass.
func New(store Store, clk clock.Clock, interval time.Duration, notify func(ctx context.Context, r model.Reservation)) *Sweeper {
    if interval <= 0 {
        interval = time.Minute
    }
    return &Sweeper{store: store, clock: clk, interval: interval, batch: defaultBatch, notify: notify}
}

// Run executes sweep passes on the configured interval until ctx is
// cancelled.  The first pass fires immediately so a restart does not wait
// a full interval to reclaim overdue holds.
func (s *Sweeper) Run(ctx context.Context) {
    log.Printf("sweeper: started (interval=%s)", s.interval)
    s.sweepOnce(ctx)
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            log.Printf("sweeper: stopped: %v", ctx.Err())
            return
        case <-ticker.C:
            s.sweepOnce(ctx)
        }
    }
}

// sweepOnce performs one pass and returns how many holds it cancelled.
// Per-record failures are logged and skipped so one bad row cannot stall
// the batch; the record stays eligible and the next pass retries it.
func (s *Sweeper) sweepOnce(ctx context.Context) int {
    now := s.clock.Now()
    due, err := s.store.FindExpiredHolds(ctx, now, s.batch)
    if err != nil {
        log.Printf("sweeper: scan failed: %v", err)
        return 0
    }
    cancelled := 0
    for _, r := range due {
        ok, err := s.store.CancelExpiredHold(ctx, r.ID, r.Version, now)
        if err != nil {
            log.Printf("sweeper: cancel reservation %d failed: %v", r.ID, err)
            continue
        }
        if !ok {
            // Lost the race to a concurrent payment or cancellation.
            continue
        }
        cancelled++
        if s.notify != nil {
            s.notify(ctx, r)
        }
    }
    if cancelled > 0 {
        log.Printf("sweeper: cancelled %d expired hold(s)", cancelled)
    }
    return cancelled
}
