package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/mchenard/cinema-booking/internal/repository"
	"github.com/mchenard/cinema-booking/internal/service"
)

// --- Mock scheduler ---

type mockScheduler struct {
	scheduleFn func(ctx context.Context, filmID uint64, room int, start time.Time) (*repository.Showtime, error)
	deleteFn   func(ctx context.Context, id uint64) error
	listFn     func(ctx context.Context) ([]repository.ShowtimeListing, error)
}

func (m *mockScheduler) Schedule(ctx context.Context, filmID uint64, room int, start time.Time) (*repository.Showtime, error) {
	return m.scheduleFn(ctx, filmID, room, start)
}

func (m *mockScheduler) Delete(ctx context.Context, id uint64) error {
	return m.deleteFn(ctx, id)
}

func (m *mockScheduler) List(ctx context.Context) ([]repository.ShowtimeListing, error) {
	return m.listFn(ctx)
}

func postJSON(path, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

// --- Tests ---

func TestAddSeanceSuccess(t *testing.T) {
	var gotStart time.Time
	sched := &mockScheduler{
		scheduleFn: func(ctx context.Context, filmID uint64, room int, start time.Time) (*repository.Showtime, error) {
			gotStart = start
			return &repository.Showtime{ID: 12, FilmID: filmID, Room: room, Horaire: start}, nil
		},
	}
	h := NewShowtimeHandler(sched)

	e := echo.New()
	req, rec := postJSON("/add_seance", `{"film_id":3,"salle":2,"date":"2030-03-01","horaire":"20:30"}`)
	c := e.NewContext(req, rec)

	assert.NoError(t, h.AddSeance(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, time.Date(2030, 3, 1, 20, 30, 0, 0, time.UTC), gotStart)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(12), body["id"])
	assert.Equal(t, "2030-03-01 20:30", body["horaire"])
}

func TestAddSeanceCombinedHoraire(t *testing.T) {
	var gotStart time.Time
	sched := &mockScheduler{
		scheduleFn: func(ctx context.Context, filmID uint64, room int, start time.Time) (*repository.Showtime, error) {
			gotStart = start
			return &repository.Showtime{ID: 1, FilmID: filmID, Room: room, Horaire: start}, nil
		},
	}
	h := NewShowtimeHandler(sched)

	e := echo.New()
	req, rec := postJSON("/add_seance", `{"film_id":3,"salle":1,"horaire":"2030-03-01 09:15"}`)
	c := e.NewContext(req, rec)

	assert.NoError(t, h.AddSeance(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, time.Date(2030, 3, 1, 9, 15, 0, 0, time.UTC), gotStart)
}

func TestAddSeanceBadHoraire(t *testing.T) {
	h := NewShowtimeHandler(&mockScheduler{
		scheduleFn: func(ctx context.Context, filmID uint64, room int, start time.Time) (*repository.Showtime, error) {
			t.Fatal("scheduler must not be called")
			return nil, nil
		},
	})

	e := echo.New()
	for _, body := range []string{
		`{"film_id":3,"salle":1,"horaire":"25:99"}`,
		`{"film_id":3,"salle":1,"horaire":"tomorrow"}`,
		`{"film_id":3,"salle":1}`,
	} {
		req, rec := postJSON("/add_seance", body)
		c := e.NewContext(req, rec)
		assert.NoError(t, h.AddSeance(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestAddSeanceOverlapMapsTo409(t *testing.T) {
	h := NewShowtimeHandler(&mockScheduler{
		scheduleFn: func(ctx context.Context, filmID uint64, room int, start time.Time) (*repository.Showtime, error) {
			return nil, &service.Error{Kind: service.KindConflict, Code: "overlap", Message: "overlap detected"}
		},
	})

	e := echo.New()
	req, rec := postJSON("/add_seance", `{"film_id":3,"salle":1,"horaire":"2030-03-01 20:00"}`)
	c := e.NewContext(req, rec)

	assert.NoError(t, h.AddSeance(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "overlap", body["error"])
}

func TestParseStartBareTimeDefaultsToToday(t *testing.T) {
	now := time.Date(2030, 6, 15, 8, 0, 0, 0, time.UTC)
	start, ok := parseStart("", "21:45", now)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2030, 6, 15, 21, 45, 0, 0, time.UTC), start)
}

func TestDeleteSeanceNotFoundMapsTo404(t *testing.T) {
	h := NewShowtimeHandler(&mockScheduler{
		deleteFn: func(ctx context.Context, id uint64) error {
			return &service.Error{Kind: service.KindNotFound, Code: "showtime_not_found", Message: "showtime 5 does not exist"}
		},
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/delete_seance/5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/delete_seance/:id")
	c.SetParamNames("id")
	c.SetParamValues("5")

	assert.NoError(t, h.DeleteSeance(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSeances(t *testing.T) {
	h := NewShowtimeHandler(&mockScheduler{
		listFn: func(ctx context.Context) ([]repository.ShowtimeListing, error) {
			return []repository.ShowtimeListing{
				{ID: 1, Film: "Dune", Salle: 2, Horaire: "2030-03-01 20:30", Capacity: 100, Remaining: 95},
			}, nil
		},
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/seances", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, h.ListSeances(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 1)
	assert.Equal(t, "Dune", body[0]["film"])
	assert.Equal(t, float64(95), body[0]["remaining"])
}
