package booking

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/vehicle-rental-booking/internal/clock"
    "github.com/iliyamo/vehicle-rental-booking/internal/model"
)

// memStore is an in-memory Store for engine tests.  WithTx stages all
// changes on copies and swaps them in on success, and a single mutex
// serializes transactions the way the per-vehicle row lock does in MySQL.
type memStore struct {
    mu           sync.Mutex
    vehicles     map[uint64]model.Vehicle
    reservations map[uint64]model.Reservation
    nextID       uint64
}

func newMemStore() *memStore {
    return &memStore{
        vehicles:     map[uint64]model.Vehicle{},
        reservations: map[uint64]model.Reservation{},
    }
}

func (m *memStore) addVehicle(active bool) uint64 {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.nextID++
    m.vehicles[m.nextID] = model.Vehicle{ID: m.nextID, Name: "vehicle", Plate: "P-1", Active: active, Version: 1}
    return m.nextID
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    tx := &memTx{
        vehicles:     cloneMap(m.vehicles),
        reservations: cloneMap(m.reservations),
        nextID:       m.nextID,
    }
    if err := fn(ctx, tx); err != nil {
        return err
    }
    m.vehicles = tx.vehicles
    m.reservations = tx.reservations
    m.nextID = tx.nextID
    return nil
}

func (m *memStore) GetVehicle(ctx context.Context, id uint64) (model.Vehicle, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    v, ok := m.vehicles[id]
    if !ok {
        return model.Vehicle{}, ErrVehicleNotFound
    }
    return v, nil
}

func (m *memStore) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    r, ok := m.reservations[id]
    if !ok {
        return model.Reservation{}, ErrReservationNotFound
    }
    return r, nil
}

func (m *memStore) FindOverlapping(ctx context.Context, vehicleID uint64, rng DateRange, excludeID uint64) ([]model.Reservation, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    return findOverlapping(m.reservations, vehicleID, rng, excludeID), nil
}

func (m *memStore) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.Reservation
    for _, r := range m.reservations {
        if len(out) == limit {
            break
        }
        if r.Status == model.StatusHeld && r.PaymentStatus == model.PaymentUnpaid &&
            r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
            out = append(out, r)
        }
    }
    return out, nil
}

func (m *memStore) CancelExpiredHold(ctx context.Context, id, expectedVersion uint64, now time.Time) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    r, ok := m.reservations[id]
    if !ok || r.Version != expectedVersion || r.Status != model.StatusHeld ||
        r.PaymentStatus != model.PaymentUnpaid || r.ExpiresAt == nil || r.ExpiresAt.After(now) {
        return false, nil
    }
    r.Status = model.StatusCancelled
    r.ExpiresAt = nil
    r.Version++
    m.reservations[id] = r
    return true, nil
}

type memTx struct {
    vehicles     map[uint64]model.Vehicle
    reservations map[uint64]model.Reservation
    nextID       uint64
}

func (t *memTx) GetVehicleForUpdate(ctx context.Context, id uint64) (model.Vehicle, error) {
    v, ok := t.vehicles[id]
    if !ok {
        return model.Vehicle{}, ErrVehicleNotFound
    }
    return v, nil
}

func (t *memTx) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    r, ok := t.reservations[id]
    if !ok {
        return model.Reservation{}, ErrReservationNotFound
    }
    return r, nil
}

func (t *memTx) FindOverlapping(ctx context.Context, vehicleID uint64, rng DateRange, excludeID uint64) ([]model.Reservation, error) {
    return findOverlapping(t.reservations, vehicleID, rng, excludeID), nil
}

func (t *memTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
    t.nextID++
    r.ID = t.nextID
    t.reservations[r.ID] = *r
    return nil
}

func (t *memTx) UpdateReservation(ctx context.Context, id, expectedVersion uint64, mut ReservationMutation) (uint64, error) {
    r, ok := t.reservations[id]
    if !ok || r.Version != expectedVersion {
        return 0, ErrStaleVersion
    }
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
    r.Version++
    t.reservations[id] = r
    return r.Version, nil
}

func (t *memTx) SetVehicleActive(ctx context.Context, id, expectedVersion uint64, active bool) (uint64, error) {
    v, ok := t.vehicles[id]
    if !ok || v.Version != expectedVersion {
        return 0, ErrStaleVersion
    }
    v.Active = active
    v.Version++
    t.vehicles[id] = v
    return v.Version, nil
}

func findOverlapping(all map[uint64]model.Reservation, vehicleID uint64, rng DateRange, excludeID uint64) []model.Reservation {
    var out []model.Reservation
    for _, r := range all {
        if r.VehicleID != vehicleID || r.ID == excludeID {
            continue
        }
        if r.Status != model.StatusHeld && r.Status != model.StatusActive {
            continue
        }
        if rng.Overlaps(DateRange{Start: r.StartDate, End: r.EndDate}) {
            out = append(out, r)
        }
    }
    return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
    out := make(map[K]V, len(m))
    for k, v := range m {
        out[k] = v
    }
    return out
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *memStore) *Service {
    return NewService(store, clock.NewFixed(testNow), 15*time.Minute)
}

func createInput(vehicleID uint64, start, end string) CreateReservationInput {
    return CreateReservationInput{
        VehicleID:  vehicleID,
        CustomerID: 100,
        StartDate:  day(start),
        EndDate:    day(end),
    }
}

func TestCreateReservation(t *testing.T) {
    t.Run("places an unpaid hold with a grace deadline", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)

        res, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)

        assert.NotZero(t, res.ID)
        assert.NotEmpty(t, res.Reference)
        assert.Equal(t, model.StatusHeld, res.Status)
        assert.Equal(t, model.PaymentUnpaid, res.PaymentStatus)
        assert.Equal(t, uint64(1), res.Version)
        require.NotNil(t, res.ExpiresAt)
        assert.Equal(t, testNow.Add(15*time.Minute), *res.ExpiresAt)

        stored, err := store.GetReservation(context.Background(), res.ID)
        require.NoError(t, err)
        assert.Equal(t, res.Reference, stored.Reference)
    })

    t.Run("unknown vehicle", func(t *testing.T) {
        svc := newTestService(newMemStore())
        _, err := svc.CreateReservation(context.Background(), createInput(99, "2026-03-10", "2026-03-12"))
        assert.ErrorIs(t, err, ErrVehicleNotFound)
    })

    t.Run("inactive vehicle", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(false)
        svc := newTestService(store)
        _, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        assert.ErrorIs(t, err, ErrVehicleInactive)
    })

    t.Run("invalid range never reaches the store", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)
        _, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-12", "2026-03-12"))
        assert.ErrorIs(t, err, ErrInvalidRange)
        assert.Empty(t, store.reservations)
    })

    t.Run("overlap with a live hold is refused", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)

        first, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-14"))
        require.NoError(t, err)

        _, err = svc.CreateReservation(context.Background(), createInput(vid, "2026-03-12", "2026-03-16"))
        var conflict *ConflictError
        require.ErrorAs(t, err, &conflict)
        assert.Equal(t, first.ID, conflict.ConflictingID)
        assert.Equal(t, first.Reference, conflict.ConflictingRef)
    })

    t.Run("back-to-back rentals share a day without conflict", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)

        _, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)
        _, err = svc.CreateReservation(context.Background(), createInput(vid, "2026-03-12", "2026-03-14"))
        require.NoError(t, err)
    })

    t.Run("same dates on another vehicle are independent", func(t *testing.T) {
        store := newMemStore()
        v1 := store.addVehicle(true)
        v2 := store.addVehicle(true)
        svc := newTestService(store)

        _, err := svc.CreateReservation(context.Background(), createInput(v1, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)
        _, err = svc.CreateReservation(context.Background(), createInput(v2, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)
    })

    t.Run("expired unpaid hold does not block even before the sweeper runs", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)

        hold, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)

        // Same store, later clock: the hold's deadline has passed but the
        // row still says HELD.
        later := NewService(store, clock.NewFixed(testNow.Add(time.Hour)), 15*time.Minute)
        res, err := later.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)
        assert.NotEqual(t, hold.ID, res.ID)
    })

    t.Run("paid hold blocks past its old deadline", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)

        hold, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)
        _, err = svc.MarkPaid(context.Background(), hold.ID, hold.Version)
        require.NoError(t, err)

        later := NewService(store, clock.NewFixed(testNow.Add(24*time.Hour)), 15*time.Minute)
        _, err = later.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        var conflict *ConflictError
        assert.ErrorAs(t, err, &conflict)
    })
}

// Many goroutines race to book the same vehicle and dates; exactly one may
// win and every loser must see a conflict, never a double booking.
func TestCreateReservationConcurrent(t *testing.T) {
    store := newMemStore()
    vid := store.addVehicle(true)
    svc := newTestService(store)

    const n = 16
    errs := make([]error, n)
    var wg sync.WaitGroup
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, errs[i] = svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-14"))
        }(i)
    }
    wg.Wait()

    wins := 0
    for _, err := range errs {
        if err == nil {
            wins++
            continue
        }
        var conflict *ConflictError
        assert.ErrorAs(t, err, &conflict)
    }
    assert.Equal(t, 1, wins, "exactly one booking may succeed")
    assert.Len(t, store.reservations, 1)
}

func TestMarkPaid(t *testing.T) {
    t.Run("clears the grace deadline and bumps the version", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)
        hold, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)

        paid, err := svc.MarkPaid(context.Background(), hold.ID, hold.Version)
        require.NoError(t, err)
        assert.Equal(t, model.PaymentPaid, paid.PaymentStatus)
        assert.Equal(t, model.StatusHeld, paid.Status)
        assert.Nil(t, paid.ExpiresAt)
        assert.Equal(t, hold.Version+1, paid.Version)
    })

    t.Run("stale version mutates nothing", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)
        hold, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)

        _, err = svc.MarkPaid(context.Background(), hold.ID, hold.Version+5)
        assert.ErrorIs(t, err, ErrStaleVersion)

        stored, err := store.GetReservation(context.Background(), hold.ID)
        require.NoError(t, err)
        assert.Equal(t, model.PaymentUnpaid, stored.PaymentStatus)
        assert.Equal(t, hold.Version, stored.Version)
        assert.NotNil(t, stored.ExpiresAt)
    })

    t.Run("paying twice is rejected", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)
        hold, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)
        paid, err := svc.MarkPaid(context.Background(), hold.ID, hold.Version)
        require.NoError(t, err)

        _, err = svc.MarkPaid(context.Background(), paid.ID, paid.Version)
        var te *TransitionError
        assert.ErrorAs(t, err, &te)
    })
}

func TestLifecycleTransitions(t *testing.T) {
    newHold := func(t *testing.T) (*Service, *memStore, model.Reservation) {
        t.Helper()
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)
        hold, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)
        return svc, store, hold
    }

    t.Run("held activates then completes", func(t *testing.T) {
        svc, _, hold := newHold(t)

        active, err := svc.Activate(context.Background(), hold.ID, hold.Version)
        require.NoError(t, err)
        assert.Equal(t, model.StatusActive, active.Status)
        assert.Nil(t, active.ExpiresAt)

        done, err := svc.Complete(context.Background(), active.ID, active.Version)
        require.NoError(t, err)
        assert.Equal(t, model.StatusCompleted, done.Status)
        assert.True(t, done.Terminal())
    })

    t.Run("completing a hold is rejected", func(t *testing.T) {
        svc, _, hold := newHold(t)
        _, err := svc.Complete(context.Background(), hold.ID, hold.Version)
        var te *TransitionError
        require.ErrorAs(t, err, &te)
        assert.Equal(t, model.StatusHeld, te.From)
    })

    t.Run("cancel works from held and active", func(t *testing.T) {
        svc, _, hold := newHold(t)
        cancelled, err := svc.Cancel(context.Background(), hold.ID, hold.Version)
        require.NoError(t, err)
        assert.Equal(t, model.StatusCancelled, cancelled.Status)

        svc2, _, hold2 := newHold(t)
        active, err := svc2.Activate(context.Background(), hold2.ID, hold2.Version)
        require.NoError(t, err)
        _, err = svc2.Cancel(context.Background(), active.ID, active.Version)
        require.NoError(t, err)
    })

    t.Run("terminal states stay terminal", func(t *testing.T) {
        svc, _, hold := newHold(t)
        cancelled, err := svc.Cancel(context.Background(), hold.ID, hold.Version)
        require.NoError(t, err)

        var te *TransitionError
        _, err = svc.Activate(context.Background(), cancelled.ID, cancelled.Version)
        assert.ErrorAs(t, err, &te)
        _, err = svc.MarkPaid(context.Background(), cancelled.ID, cancelled.Version)
        assert.ErrorAs(t, err, &te)
        _, err = svc.Cancel(context.Background(), cancelled.ID, cancelled.Version)
        assert.ErrorAs(t, err, &te)
    })

    t.Run("unknown reservation", func(t *testing.T) {
        svc, _, _ := newHold(t)
        _, err := svc.Activate(context.Background(), 9999, 1)
        assert.ErrorIs(t, err, ErrReservationNotFound)
    })
}

func TestExtendReservation(t *testing.T) {
    t.Run("moves the end date when free", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)
        hold, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)

        out, err := svc.ExtendReservation(context.Background(), hold.ID, hold.Version, day("2026-03-15"))
        require.NoError(t, err)
        assert.Equal(t, day("2026-03-15"), out.EndDate)
        assert.Equal(t, hold.Version+1, out.Version)
    })

    t.Run("refused when the extension collides with a neighbor", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)
        hold, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)
        neighbor, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-13", "2026-03-16"))
        require.NoError(t, err)

        _, err = svc.ExtendReservation(context.Background(), hold.ID, hold.Version, day("2026-03-14"))
        var conflict *ConflictError
        require.ErrorAs(t, err, &conflict)
        assert.Equal(t, neighbor.ID, conflict.ConflictingID)

        stored, err := store.GetReservation(context.Background(), hold.ID)
        require.NoError(t, err)
        assert.Equal(t, day("2026-03-12"), stored.EndDate)
    })

    t.Run("the reservation never conflicts with itself", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)
        hold, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)

        _, err = svc.ExtendReservation(context.Background(), hold.ID, hold.Version, day("2026-03-13"))
        require.NoError(t, err)
    })

    t.Run("new end before start is invalid", func(t *testing.T) {
        store := newMemStore()
        vid := store.addVehicle(true)
        svc := newTestService(store)
        hold, err := svc.CreateReservation(context.Background(), createInput(vid, "2026-03-10", "2026-03-12"))
        require.NoError(t, err)

        _, err = svc.ExtendReservation(context.Background(), hold.ID, hold.Version, day("2026-03-10"))
        assert.ErrorIs(t, err, ErrInvalidRange)
    })
}

// Full lifecycle against a shared vehicle: a conflicting attempt fails, the
// hold survives payment past its deadline, and cancellation frees the dates
// for the next customer.
func TestConflictThenPayThenCancelScenario(t *testing.T) {
    store := newMemStore()
    vid := store.addVehicle(true)
    svc := newTestService(store)
    ctx := context.Background()

    a, err := svc.CreateReservation(ctx, createInput(vid, "2026-03-10", "2026-03-14"))
    require.NoError(t, err)

    _, err = svc.CreateReservation(ctx, createInput(vid, "2026-03-12", "2026-03-16"))
    var conflict *ConflictError
    require.ErrorAs(t, err, &conflict)

    a, err = svc.MarkPaid(ctx, a.ID, a.Version)
    require.NoError(t, err)

    // Long after the original grace deadline the paid hold still blocks.
    later := NewService(store, clock.NewFixed(testNow.Add(48*time.Hour)), 15*time.Minute)
    _, err = later.CreateReservation(ctx, createInput(vid, "2026-03-12", "2026-03-16"))
    require.ErrorAs(t, err, &conflict)

    _, err = later.Cancel(ctx, a.ID, a.Version)
    require.NoError(t, err)

    _, err = later.CreateReservation(ctx, createInput(vid, "2026-03-12", "2026-03-16"))
    require.NoError(t, err)
}

func TestSetVehicleActive(t *testing.T) {
    store := newMemStore()
    vid := store.addVehicle(true)
    svc := newTestService(store)
    ctx := context.Background()

    v, err := svc.SetVehicleActive(ctx, vid, 1, false)
    require.NoError(t, err)
    assert.False(t, v.Active)
    assert.Equal(t, uint64(2), v.Version)

    _, err = svc.SetVehicleActive(ctx, vid, 1, true)
    assert.ErrorIs(t, err, ErrStaleVersion)
}

func TestCheckAvailability(t *testing.T) {
    store := newMemStore()
    vid := store.addVehicle(true)
    svc := newTestService(store)
    ctx := context.Background()

    hold, err := svc.CreateReservation(ctx, createInput(vid, "2026-03-12", "2026-03-14"))
    require.NoError(t, err)

    cal, err := svc.CheckAvailability(ctx, vid, day("2026-03-10"), day("2026-03-16"))
    require.NoError(t, err)
    require.Len(t, cal.Ranges, 3)
    assert.True(t, cal.Ranges[1].Booked)
    assert.Equal(t, hold.ID, cal.Ranges[1].ReservationID)

    // After the grace deadline the unswept hold no longer appears.
    later := NewService(store, clock.NewFixed(testNow.Add(time.Hour)), 15*time.Minute)
    cal, err = later.CheckAvailability(ctx, vid, day("2026-03-10"), day("2026-03-16"))
    require.NoError(t, err)
    require.Len(t, cal.Ranges, 1)
    assert.False(t, cal.Ranges[0].Booked)

    _, err = svc.CheckAvailability(ctx, 999, day("2026-03-10"), day("2026-03-16"))
    assert.ErrorIs(t, err, ErrVehicleNotFound)

    _, err = svc.CheckAvailability(ctx, vid, day("2026-03-16"), day("2026-03-10"))
    assert.ErrorIs(t, err, ErrInvalidRange)
}
