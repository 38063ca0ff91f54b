package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/vehicle-rental-booking/internal/booking"
    "github.com/iliyamo/vehicle-rental-booking/internal/model"
    "github.com/iliyamo/vehicle-rental-booking/internal/queue"
    "github.com/iliyamo/vehicle-rental-booking/internal/repository"
    queue_publisher "github.com/iliyamo/vehicle-rental-booking/internal/service"
)

// ReservationHandler serves the customer-facing reservation lifecycle.
type ReservationHandler struct {
    Svc   *booking.Service
    Store *repository.Store
}

// NewReservationHandler builds a ReservationHandler.
func NewReservationHandler(svc *booking.Service, store *repository.Store) *ReservationHandler {
    return &ReservationHandler{Svc: svc, Store: store}
}

// createReservationRequest is the body of POST /v1/vehicles/:id/reservations.
// Dates are day-granular and the range is half-open: the vehicle is free
// again on end_date itself.
type createReservationRequest struct {
    StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
    EndDate      string `json:"end_date" validate:"required,datetime=2006-01-02"`
    GraceMinutes int    `json:"grace_minutes" validate:"omitempty,min=1,max=1440"`
}

// versionedRequest carries the optimistic concurrency token every lifecycle
// action requires.
type versionedRequest struct {
    ExpectedVersion uint64 `json:"expected_version" validate:"required,min=1"`
}

// extendRequest is the body of POST /v1/reservations/:id/extend.
type extendRequest struct {
    ExpectedVersion uint64 `json:"expected_version" validate:"required,min=1"`
    NewEndDate      string `json:"new_end_date" validate:"required,datetime=2006-01-02"`
}

// Create handles POST /v1/vehicles/:id/reservations.  A successful create
// places an unpaid hold that expires after the grace period unless paid.
func (h *ReservationHandler) Create(c echo.Context) error {
    customerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    vehicleID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
    }

    var req createReservationRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    start, _ := parseDay(req.StartDate)
    end, _ := parseDay(req.EndDate)

    res, err := h.Svc.CreateReservation(c.Request().Context(), booking.CreateReservationInput{
        VehicleID:    vehicleID,
        CustomerID:   customerID,
        StartDate:    start,
        EndDate:      end,
        GraceMinutes: req.GraceMinutes,
    })
    if err != nil {
        return writeEngineError(c, err)
    }
    return c.JSON(http.StatusCreated, res)
}

// Extend handles POST /v1/reservations/:id/extend.
func (h *ReservationHandler) Extend(c echo.Context) error {
    id, _, ok := h.ownReservation(c)
    if !ok {
        return nil
    }

    var req extendRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    newEnd, _ := parseDay(req.NewEndDate)

    out, err := h.Svc.ExtendReservation(c.Request().Context(), id, req.ExpectedVersion, newEnd)
    if err != nil {
        return writeEngineError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// Pay handles POST /v1/reservations/:id/pay.
func (h *ReservationHandler) Pay(c echo.Context) error {
    return h.transition(c, h.Svc.MarkPaid)
}

// Activate handles POST /v1/reservations/:id/activate.  On success a
// reservation.confirmed event is published; delivery failure does not fail
// the request.
func (h *ReservationHandler) Activate(c echo.Context) error {
    id, _, ok := h.ownReservation(c)
    if !ok {
        return nil
    }
    var req versionedRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    out, err := h.Svc.Activate(c.Request().Context(), id, req.ExpectedVersion)
    if err != nil {
        return writeEngineError(c, err)
    }
    ev := queue.NewReservationEvent(queue.KindReservationConfirmed, out, time.Now().UTC())
    _ = queue_publisher.PublishReservationEvent(c.Request().Context(), ev)
    return c.JSON(http.StatusOK, out)
}

// Complete handles POST /v1/reservations/:id/complete.
func (h *ReservationHandler) Complete(c echo.Context) error {
    return h.transition(c, h.Svc.Complete)
}

// Cancel handles POST /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    return h.transition(c, h.Svc.Cancel)
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
    customerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Store.Reservations().ListByCustomer(c.Request().Context(), customerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}

// transition runs one version-checked lifecycle action shared by pay,
// complete and cancel.
func (h *ReservationHandler) transition(c echo.Context, fn func(ctx context.Context, id, expectedVersion uint64) (model.Reservation, error)) error {
    id, _, ok := h.ownReservation(c)
    if !ok {
        return nil
    }
    var req versionedRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    out, err := fn(c.Request().Context(), id, req.ExpectedVersion)
    if err != nil {
        return writeEngineError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// ownReservation resolves the :id path parameter and verifies the caller
// owns the reservation (OPS users may act on any reservation).  When ok is
// false the response has already been written.
func (h *ReservationHandler) ownReservation(c echo.Context) (uint64, model.Reservation, bool) {
    customerID, err := getUserID(c)
    if err != nil {
        _ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
        return 0, model.Reservation{}, false
    }
    id, err := pathID(c, "id")
    if err != nil {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
        return 0, model.Reservation{}, false
    }
    res, err := h.Store.Reservations().GetByID(c.Request().Context(), id)
    if err != nil {
        _ = writeEngineError(c, err)
        return 0, model.Reservation{}, false
    }
    if role, _ := c.Get("role").(string); role != "OPS" && res.CustomerID != customerID {
        _ = c.JSON(http.StatusForbidden, echo.Map{"error": "not your reservation"})
        return 0, model.Reservation{}, false
    }
    return id, res, true
}
