package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mchenard/cinema-booking/internal/repository"
)

// ShowtimeScheduler is the scheduling surface the séance endpoints need.
type ShowtimeScheduler interface {
	Schedule(ctx context.Context, filmID uint64, room int, start time.Time) (*repository.Showtime, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]repository.ShowtimeListing, error)
}

// ShowtimeHandler serves the séance endpoints.  All scheduling rules live in
// the scheduler; this layer only parses the request.
type ShowtimeHandler struct {
	Scheduler ShowtimeScheduler
}

func NewShowtimeHandler(s ShowtimeScheduler) *ShowtimeHandler {
	if s == nil {
		panic("nil scheduler passed to NewShowtimeHandler")
	}
	return &ShowtimeHandler{Scheduler: s}
}

type addSeanceReq struct {
	FilmID  uint64 `json:"film_id"`
	Salle   int    `json:"salle"`
	Date    string `json:"date"`    // optional "YYYY-MM-DD"; defaults to today (UTC)
	Horaire string `json:"horaire"` // "HH:MM", or "YYYY-MM-DD HH:MM" when date is empty
}

// parseStart turns the date/horaire pair into a UTC timestamp at minute
// granularity.  Accepted forms: separate date ("2025-03-01") and time
// ("20:30"); a combined horaire ("2025-03-01 20:30"); or a bare time, in
// which case the date defaults to the current UTC day.
func parseStart(date, horaire string, now time.Time) (time.Time, bool) {
	horaire = strings.TrimSpace(horaire)
	date = strings.TrimSpace(date)
	if horaire == "" {
		return time.Time{}, false
	}
	if date != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+horaire, time.UTC)
		return t, err == nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", horaire, time.UTC); err == nil {
		return t, true
	}
	t, err := time.ParseInLocation("15:04", horaire, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	d := now.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), true
}

// AddSeance handles POST /add_seance (admin only).
func (h *ShowtimeHandler) AddSeance(c echo.Context) error {
	var req addSeanceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	if req.FilmID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_film", "message": "film_id is required"})
	}
	start, ok := parseStart(req.Date, req.Horaire, time.Now())
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid_horaire",
			"message": "horaire must be HH:MM or YYYY-MM-DD HH:MM",
		})
	}

	st, err := h.Scheduler.Schedule(c.Request().Context(), req.FilmID, req.Salle, start)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "séance scheduled",
		"id":      st.ID,
		"salle":   st.Room,
		"horaire": st.Horaire.UTC().Format("2006-01-02 15:04"),
	})
}

// DeleteSeance handles DELETE /delete_seance/:id (admin only).  Deleting a
// séance also removes its reservations.
func (h *ShowtimeHandler) DeleteSeance(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_id", "message": "invalid séance id"})
	}
	if err := h.Scheduler.Delete(c.Request().Context(), id); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "séance deleted"})
}

// ListSeances handles GET /api/seances.
func (h *ShowtimeHandler) ListSeances(c echo.Context) error {
	listings, err := h.Scheduler.List(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, listings)
}
