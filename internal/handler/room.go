package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mchenard/cinema-booking/internal/config"
	"github.com/mchenard/cinema-booking/internal/repository"
)

// RoomCatalog is the catalog surface the room endpoints need.
type RoomCatalog interface {
	Create(ctx context.Context, room *repository.Room) error
	List(ctx context.Context) ([]repository.Room, error)
}

// RoomHandler serves the screening-room endpoints.
type RoomHandler struct {
	Rooms  RoomCatalog
	Limits config.Limits
}

func NewRoomHandler(rooms RoomCatalog, limits config.Limits) *RoomHandler {
	if rooms == nil {
		panic("nil room store passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms, Limits: limits}
}

type addRoomReq struct {
	Number   int `json:"number"`
	Capacity int `json:"capacity"`
}

// AddRoom handles POST /add_room (admin only).  The number must fall in the
// configured range and be unused; capacity is fixed after creation.
func (h *RoomHandler) AddRoom(c echo.Context) error {
	var req addRoomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	if req.Number < h.Limits.RoomMin || req.Number > h.Limits.RoomMax {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "room_range",
			"message": fmt.Sprintf("room number must be between %d and %d", h.Limits.RoomMin, h.Limits.RoomMax),
		})
	}
	if req.Capacity <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_capacity", "message": "capacity must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	room := repository.Room{Number: req.Number, Capacity: req.Capacity}
	if err := h.Rooms.Create(ctx, &room); err != nil {
		if errors.Is(err, repository.ErrRoomExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room_exists", "message": "this room number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "could not create room"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "room created", "room": room})
}

// ListRooms handles GET /salles.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.Rooms.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "could not list rooms"})
	}
	return c.JSON(http.StatusOK, rooms)
}
