package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mchenard/cinema-booking/internal/config"
	"github.com/mchenard/cinema-booking/internal/repository"
)

// --- Mocks ---

// memReservations is a stateful in-memory reservation store.  Sums are
// computed from the rows actually inserted, so concurrent tests observe real
// interleavings instead of canned answers.
type memReservations struct {
	mu       sync.Mutex
	rows     []repository.Reservation
	filmByID map[uint64]uint64 // showtimeID -> filmID, for the per-user-film sum
	listFn   func(ctx context.Context, userID uint64) ([]repository.ReservationDetail, error)
}

func (m *memReservations) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

func (m *memReservations) SumForShowtimeTx(ctx context.Context, tx *sql.Tx, showtimeID uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, r := range m.rows {
		if r.ShowtimeID == showtimeID {
			total += r.Seats
		}
	}
	return total, nil
}

func (m *memReservations) SumForUserFilmTx(ctx context.Context, tx *sql.Tx, userID, filmID uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, r := range m.rows {
		if r.UserID == userID && m.filmByID[r.ShowtimeID] == filmID {
			total += r.Seats
		}
	}
	return total, nil
}

func (m *memReservations) CreateTx(ctx context.Context, tx *sql.Tx, rec *repository.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, *rec)
	return nil
}

func (m *memReservations) ListByUser(ctx context.Context, userID uint64) ([]repository.ReservationDetail, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

type mockShowtimeResolver struct {
	getFn  func(ctx context.Context, id uint64) (*repository.Showtime, error)
	called bool
}

func (m *mockShowtimeResolver) GetByID(ctx context.Context, id uint64) (*repository.Showtime, error) {
	m.called = true
	return m.getFn(ctx, id)
}

type mockRoomResolver struct {
	getFn func(ctx context.Context, number int) (*repository.Room, error)
}

func (m *mockRoomResolver) GetByNumberTx(ctx context.Context, tx *sql.Tx, number int) (*repository.Room, error) {
	return m.getFn(ctx, number)
}

type mockUserResolver struct {
	existsFn func(ctx context.Context, id uint64) (bool, error)
}

func (m *mockUserResolver) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return true, nil
}

// --- Fixtures ---

// One showtime (ID 7) of film 3, in room 1 with capacity 100, plus a second
// showtime (ID 8) of the same film.
func ledgerFixture(capacity int) (*memReservations, *mockShowtimeResolver, *mockRoomResolver, *mockUserResolver) {
	res := &memReservations{filmByID: map[uint64]uint64{7: 3, 8: 3}}
	shows := &mockShowtimeResolver{getFn: func(ctx context.Context, id uint64) (*repository.Showtime, error) {
		if id != 7 && id != 8 {
			return nil, repository.ErrShowtimeNotFound
		}
		return &repository.Showtime{ID: id, FilmID: 3, Room: 1}, nil
	}}
	rooms := &mockRoomResolver{getFn: func(ctx context.Context, number int) (*repository.Room, error) {
		return &repository.Room{ID: 1, Number: number, Capacity: capacity}, nil
	}}
	return res, shows, rooms, &mockUserResolver{}
}

func newTestLedger(limits config.Limits, res *memReservations, shows *mockShowtimeResolver, rooms *mockRoomResolver, users *mockUserResolver) *Ledger {
	return NewLedger(res, shows, rooms, users, NewKeyedMutex(), limits)
}

// --- Tests ---

func TestReserveRejectsSeatCountBeforeStoreAccess(t *testing.T) {
	res, shows, rooms, users := ledgerFixture(100)
	ledger := newTestLedger(testLimits, res, shows, rooms, users)

	for _, seats := range []int{0, -1, 6} {
		_, err := ledger.Reserve(context.Background(), 1, 7, seats)
		assert.Equal(t, KindInvalidInput, KindOf(err))
		var e *Error
		assert.True(t, errors.As(err, &e))
		assert.Equal(t, "seat_count", e.Code)
	}
	assert.False(t, shows.called)
	assert.Empty(t, res.rows)
}

func TestReserveUnknownShowtime(t *testing.T) {
	res, shows, rooms, users := ledgerFixture(100)
	ledger := newTestLedger(testLimits, res, shows, rooms, users)

	_, err := ledger.Reserve(context.Background(), 1, 99, 2)
	assert.Equal(t, KindNotFound, KindOf(err))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "showtime_not_found", e.Code)
}

func TestReserveCapacity(t *testing.T) {
	res, shows, rooms, users := ledgerFixture(100)
	// Wide per-user cap so only the room capacity constrains this test.
	limits := config.Limits{SeatsPerRequest: 100, SeatsPerUserFilm: 200, RoomMin: 1, RoomMax: 5}
	ledger := newTestLedger(limits, res, shows, rooms, users)

	rec, err := ledger.Reserve(context.Background(), 1, 7, 5)
	assert.NoError(t, err)
	assert.Equal(t, 5, rec.Seats)

	_, err = ledger.Reserve(context.Background(), 2, 7, 96)
	assert.Equal(t, KindConflict, KindOf(err))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "capacity_exceeded", e.Code)
	assert.Contains(t, e.Message, "remaining: 95")
	assert.Len(t, res.rows, 1)
}

func TestReservePerUserFilmCap(t *testing.T) {
	res, shows, rooms, users := ledgerFixture(100)
	ledger := newTestLedger(testLimits, res, shows, rooms, users)

	// User 1 already holds 3 seats on showtime 7 of film 3.
	res.rows = append(res.rows, repository.Reservation{ID: 1, UserID: 1, ShowtimeID: 7, Seats: 3})

	// 3 more on another showtime of the same film exceeds the cap of 5.
	_, err := ledger.Reserve(context.Background(), 1, 8, 3)
	assert.Equal(t, KindConflict, KindOf(err))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "per_user_film_limit", e.Code)
	assert.Contains(t, e.Message, "still reserve 2")

	// 2 more exactly reaches the cap and succeeds.
	rec, err := ledger.Reserve(context.Background(), 1, 8, 2)
	assert.NoError(t, err)
	assert.Equal(t, 2, rec.Seats)
}

func TestReserveUnknownUser(t *testing.T) {
	res, shows, rooms, _ := ledgerFixture(100)
	users := &mockUserResolver{existsFn: func(ctx context.Context, id uint64) (bool, error) {
		return false, nil
	}}
	ledger := newTestLedger(testLimits, res, shows, rooms, users)

	_, err := ledger.Reserve(context.Background(), 42, 7, 2)
	assert.Equal(t, KindNotFound, KindOf(err))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "user_not_found", e.Code)
	assert.Empty(t, res.rows)
}

func TestReserveMissingRoomConfig(t *testing.T) {
	res, shows, _, users := ledgerFixture(100)
	rooms := &mockRoomResolver{getFn: func(ctx context.Context, number int) (*repository.Room, error) {
		return nil, repository.ErrRoomNotFound
	}}
	ledger := newTestLedger(testLimits, res, shows, rooms, users)

	_, err := ledger.Reserve(context.Background(), 1, 7, 2)
	assert.Equal(t, KindInternal, KindOf(err))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "missing_room_config", e.Code)
}

func TestReserveConcurrentCapacityRace(t *testing.T) {
	res, shows, rooms, users := ledgerFixture(100)
	limits := config.Limits{SeatsPerRequest: 100, SeatsPerUserFilm: 100, RoomMin: 1, RoomMax: 5}
	ledger := newTestLedger(limits, res, shows, rooms, users)

	// Two users race for 60 seats each on a 100-seat showtime.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, userID := range []uint64{1, 2} {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := ledger.Reserve(context.Background(), uid, 7, 60)
			errs <- err
		}(userID)
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

	total := 0
	for _, r := range res.rows {
		total += r.Seats
	}
	assert.LessOrEqual(t, total, 100)
}

func TestListForUserMapsStoreFailure(t *testing.T) {
	res, shows, rooms, users := ledgerFixture(100)
	res.listFn = func(ctx context.Context, userID uint64) ([]repository.ReservationDetail, error) {
		return nil, errors.New("boom")
	}
	ledger := newTestLedger(testLimits, res, shows, rooms, users)

	_, err := ledger.ListForUser(context.Background(), 1)
	assert.Equal(t, KindInternal, KindOf(err))
}
