package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mchenard/cinema-booking/internal/queue"
	"github.com/mchenard/cinema-booking/internal/repository"
)

// SeatLedger is the booking surface the reservation endpoints need.
type SeatLedger interface {
	Reserve(ctx context.Context, userID, showtimeID uint64, seats int) (*repository.Reservation, error)
	ListForUser(ctx context.Context, userID uint64) ([]repository.ReservationDetail, error)
}

// EventPublisher emits domain events after a successful booking.
type EventPublisher func(ctx context.Context, ev queue.ReservationConfirmedEvent) error

// ReservationHandler serves the booking endpoints.  Event publishing is best
// effort: a broker outage never fails a committed reservation.
type ReservationHandler struct {
	Ledger  SeatLedger
	Publish EventPublisher // nil disables event publishing
}

func NewReservationHandler(ledger SeatLedger, publish EventPublisher) *ReservationHandler {
	if ledger == nil {
		panic("nil ledger passed to NewReservationHandler")
	}
	return &ReservationHandler{Ledger: ledger, Publish: publish}
}

type reserveReq struct {
	SeanceID uint64 `json:"seance_id"`
	Seats    int    `json:"seats"` // 0 means unspecified; defaults to 1
}

// Reserve handles POST /reserve.  Omitted seats default to one; explicit
// out-of-range counts are rejected by the ledger.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "please log in first"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	if req.SeanceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_seance", "message": "seance_id is required"})
	}
	if req.Seats == 0 {
		req.Seats = 1
	}

	rec, err := h.Ledger.Reserve(c.Request().Context(), userID, req.SeanceID, req.Seats)
	if err != nil {
		return serviceError(c, err)
	}

	if h.Publish != nil {
		ev := queue.ReservationConfirmedEvent{
			ReservationID: rec.ID,
			UserID:        rec.UserID,
			SeanceID:      rec.ShowtimeID,
			Seats:         rec.Seats,
			ConfirmedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.Publish(ctx, ev); err != nil {
				log.Printf("reserve: event publish failed for reservation %d: %v", ev.ReservationID, err)
			}
		}()
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":        fmt.Sprintf("reservation confirmed for %d seat(s)", rec.Seats),
		"reservation_id": rec.ID,
		"seats":          rec.Seats,
	})
}

// MyReservations handles GET /api/mes_reservations.
func (h *ReservationHandler) MyReservations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "please log in first"})
	}
	details, err := h.Ledger.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, details)
}
