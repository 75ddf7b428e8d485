package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mchenard/cinema-booking/internal/config"
	"github.com/mchenard/cinema-booking/internal/repository"
)

// --- Mocks ---

type mockFilms struct {
	getFn  func(ctx context.Context, id uint64) (*repository.Film, error)
	called bool
}

func (m *mockFilms) GetByID(ctx context.Context, id uint64) (*repository.Film, error) {
	m.called = true
	return m.getFn(ctx, id)
}

type mockRooms struct {
	getFn func(ctx context.Context, number int) (*repository.Room, error)
}

func (m *mockRooms) GetByNumber(ctx context.Context, number int) (*repository.Room, error) {
	return m.getFn(ctx, number)
}

// mockFilmDuration is the running time of every film the mocks serve, so
// created rows can feed back into the overlap scan.
const mockFilmDuration = 120

// mockShowtimes is a stateful in-memory showtime store: rows created through
// CreateTx become visible to later ListByRoomTx calls, so concurrent tests
// observe real interleavings instead of canned answers.
type mockShowtimes struct {
	mu       sync.Mutex
	existing []repository.ScheduledShowtime
	created  []repository.Showtime
	deleteFn func(ctx context.Context, id uint64) error
	listFn   func(ctx context.Context) ([]repository.ShowtimeListing, error)
}

func (m *mockShowtimes) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

func (m *mockShowtimes) CreateTx(ctx context.Context, tx *sql.Tx, s *repository.Showtime) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uint64(len(m.created) + 1)
	m.created = append(m.created, *s)
	return nil
}

func (m *mockShowtimes) ListByRoomTx(ctx context.Context, tx *sql.Tx, room int) ([]repository.ScheduledShowtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ScheduledShowtime
	for _, s := range m.existing {
		if s.Room == room {
			out = append(out, s)
		}
	}
	for _, s := range m.created {
		if s.Room == room {
			out = append(out, repository.ScheduledShowtime{Showtime: s, Duration: mockFilmDuration})
		}
	}
	return out, nil
}

func (m *mockShowtimes) DeleteCascade(ctx context.Context, id uint64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockShowtimes) ListWithAvailability(ctx context.Context) ([]repository.ShowtimeListing, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// --- Fixtures ---

var testLimits = config.Limits{SeatsPerRequest: 5, SeatsPerUserFilm: 5, RoomMin: 1, RoomMax: 5}

// baseDay is a fixed "now" so scheduling tests are deterministic.
var baseDay = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2025, 3, 1, hour, min, 0, 0, time.UTC)
}

func newTestScheduler(films *mockFilms, rooms *mockRooms, shows *mockShowtimes) *Scheduler {
	s := NewScheduler(films, rooms, shows, NewKeyedMutex(), testLimits)
	s.now = func() time.Time { return baseDay }
	return s
}

func twoHourFilm() *mockFilms {
	return &mockFilms{getFn: func(ctx context.Context, id uint64) (*repository.Film, error) {
		return &repository.Film{ID: id, Title: "Dune", Duration: mockFilmDuration}, nil
	}}
}

func knownRoom() *mockRooms {
	return &mockRooms{getFn: func(ctx context.Context, number int) (*repository.Room, error) {
		return &repository.Room{ID: 1, Number: number, Capacity: 100}, nil
	}}
}

// --- Tests ---

func TestScheduleRejectsRoomOutOfRange(t *testing.T) {
	films := twoHourFilm()
	sched := newTestScheduler(films, knownRoom(), &mockShowtimes{})

	for _, room := range []int{0, 6, -1} {
		_, err := sched.Schedule(context.Background(), 1, room, at(10, 0))
		assert.Equal(t, KindInvalidInput, KindOf(err))
	}
	// Range validation happens before any store lookup.
	assert.False(t, films.called)
}

func TestScheduleUnknownFilm(t *testing.T) {
	films := &mockFilms{getFn: func(ctx context.Context, id uint64) (*repository.Film, error) {
		return nil, repository.ErrFilmNotFound
	}}
	sched := newTestScheduler(films, knownRoom(), &mockShowtimes{})

	_, err := sched.Schedule(context.Background(), 42, 1, at(10, 0))
	assert.Equal(t, KindNotFound, KindOf(err))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "film_not_found", e.Code)
}

func TestScheduleUnknownRoom(t *testing.T) {
	rooms := &mockRooms{getFn: func(ctx context.Context, number int) (*repository.Room, error) {
		return nil, repository.ErrRoomNotFound
	}}
	sched := newTestScheduler(twoHourFilm(), rooms, &mockShowtimes{})

	_, err := sched.Schedule(context.Background(), 1, 3, at(10, 0))
	assert.Equal(t, KindNotFound, KindOf(err))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "room_not_found", e.Code)
}

func TestScheduleRejectsPastStart(t *testing.T) {
	shows := &mockShowtimes{}
	sched := newTestScheduler(twoHourFilm(), knownRoom(), shows)

	_, err := sched.Schedule(context.Background(), 1, 1, at(5, 0))
	assert.Equal(t, KindInvalidInput, KindOf(err))

	// Exactly "now" counts as past too.
	_, err = sched.Schedule(context.Background(), 1, 1, baseDay)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	assert.Empty(t, shows.created)
}

func TestScheduleDetectsOverlap(t *testing.T) {
	// Existing showtime 10:00–12:00 in room 1 (film runs 120 minutes).
	shows := &mockShowtimes{existing: []repository.ScheduledShowtime{
		{Showtime: repository.Showtime{ID: 1, FilmID: 1, Room: 1, Horaire: at(10, 0)}, Duration: 120},
	}}
	sched := newTestScheduler(twoHourFilm(), knownRoom(), shows)

	_, err := sched.Schedule(context.Background(), 1, 1, at(11, 0))
	assert.Equal(t, KindConflict, KindOf(err))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "overlap", e.Code)
	assert.Contains(t, e.Message, "10:00")
	assert.Contains(t, e.Message, "12:00")
	assert.Empty(t, shows.created)
}

func TestScheduleAllowsTouchingIntervals(t *testing.T) {
	// [10:00, 12:00) already scheduled; starting exactly at 12:00 is fine,
	// and so is a showtime ending exactly at 10:00.
	shows := &mockShowtimes{existing: []repository.ScheduledShowtime{
		{Showtime: repository.Showtime{ID: 1, FilmID: 1, Room: 1, Horaire: at(10, 0)}, Duration: 120},
	}}
	sched := newTestScheduler(twoHourFilm(), knownRoom(), shows)

	st, err := sched.Schedule(context.Background(), 1, 1, at(12, 0))
	assert.NoError(t, err)
	assert.Equal(t, at(12, 0), st.Horaire)

	st, err = sched.Schedule(context.Background(), 1, 1, at(8, 0))
	assert.NoError(t, err)
	assert.Equal(t, at(8, 0), st.Horaire)

	assert.Len(t, shows.created, 2)
}

func TestScheduleIgnoresOtherRooms(t *testing.T) {
	shows := &mockShowtimes{existing: []repository.ScheduledShowtime{
		{Showtime: repository.Showtime{ID: 1, FilmID: 1, Room: 2, Horaire: at(10, 0)}, Duration: 120},
	}}
	sched := newTestScheduler(twoHourFilm(), knownRoom(), shows)

	_, err := sched.Schedule(context.Background(), 1, 1, at(10, 0))
	assert.NoError(t, err)
}

func TestScheduleConcurrentOverlapRace(t *testing.T) {
	shows := &mockShowtimes{}
	sched := newTestScheduler(twoHourFilm(), knownRoom(), shows)

	// Two admins race overlapping showtimes ([10:00,12:00) and [11:00,13:00))
	// into room 1; whichever commits first must make the other fail the scan.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, start := range []time.Time{at(10, 0), at(11, 0)} {
		wg.Add(1)
		go func(s time.Time) {
			defer wg.Done()
			_, err := sched.Schedule(context.Background(), 1, 1, s)
			errs <- err
		}(start)
	}
	wg.Wait()
	close(errs)

	var successes, conflicts int
	for err := range errs {
		if err == nil {
			successes++
		} else if KindOf(err) == KindConflict {
			conflicts++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, shows.created, 1)
}

func TestScheduleTruncatesToMinute(t *testing.T) {
	shows := &mockShowtimes{}
	sched := newTestScheduler(twoHourFilm(), knownRoom(), shows)

	start := time.Date(2025, 3, 1, 10, 30, 45, 123456, time.UTC)
	st, err := sched.Schedule(context.Background(), 1, 1, start)
	assert.NoError(t, err)
	assert.Equal(t, at(10, 30), st.Horaire)
}

func TestDeleteUnknownShowtime(t *testing.T) {
	shows := &mockShowtimes{deleteFn: func(ctx context.Context, id uint64) error {
		return repository.ErrShowtimeNotFound
	}}
	sched := newTestScheduler(twoHourFilm(), knownRoom(), shows)

	err := sched.Delete(context.Background(), 99)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestListMapsStoreFailure(t *testing.T) {
	shows := &mockShowtimes{listFn: func(ctx context.Context) ([]repository.ShowtimeListing, error) {
		return nil, errors.New("boom")
	}}
	sched := newTestScheduler(twoHourFilm(), knownRoom(), shows)

	_, err := sched.List(context.Background())
	assert.Equal(t, KindInternal, KindOf(err))
}
