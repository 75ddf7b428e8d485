package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mchenard/cinema-booking/internal/repository"
)

// FilmCatalog is the catalog surface the film endpoints need.
type FilmCatalog interface {
	Create(ctx context.Context, f *repository.Film) error
	List(ctx context.Context) ([]repository.Film, error)
	UpdatePoster(ctx context.Context, id uint64, posterURL string) error
}

// FilmHandler serves the film catalog endpoints.  Films are append-only;
// only the poster reference can change after creation.
type FilmHandler struct {
	Films FilmCatalog
}

func NewFilmHandler(films FilmCatalog) *FilmHandler {
	if films == nil {
		panic("nil film store passed to NewFilmHandler")
	}
	return &FilmHandler{Films: films}
}

type addFilmReq struct {
	Title          string `json:"title"`
	Year           int    `json:"year"`
	Genre          string `json:"genre"`
	Duration       int    `json:"duration"`
	Classification string `json:"classification"`
	PosterURL      string `json:"poster_url"`
}

// AddFilm handles POST /add_film (admin only).
func (h *FilmHandler) AddFilm(c echo.Context) error {
	var req addFilmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_title", "message": "title is required"})
	}
	if req.Duration <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_duration", "message": "duration must be a positive number of minutes"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	f := repository.Film{
		Title:          req.Title,
		Year:           req.Year,
		Genre:          req.Genre,
		Duration:       req.Duration,
		Classification: req.Classification,
		PosterURL:      req.PosterURL,
	}
	if err := h.Films.Create(ctx, &f); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "could not create film"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "film added", "film": f})
}

// ListFilms handles GET /films.
func (h *FilmHandler) ListFilms(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	films, err := h.Films.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "could not list films"})
	}
	return c.JSON(http.StatusOK, films)
}

// UpdatePoster handles PUT /update_film_poster/:id (admin only).
func (h *FilmHandler) UpdatePoster(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_id", "message": "invalid film id"})
	}
	var req struct {
		PosterURL string `json:"poster_url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	if strings.TrimSpace(req.PosterURL) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_poster", "message": "poster_url is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Films.UpdatePoster(ctx, id, req.PosterURL); err != nil {
		if errors.Is(err, repository.ErrFilmNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "film_not_found", "message": "film does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "could not update poster"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "poster updated"})
}
