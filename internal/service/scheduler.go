package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mchenard/cinema-booking/internal/config"
	"github.com/mchenard/cinema-booking/internal/repository"
)

// storeTimeout bounds every store round trip issued by the core services.
// Expiry surfaces as a retryable Unavailable error, never as a hung request.
const storeTimeout = 5 * time.Second

// FilmStore is the film lookup surface the scheduler needs.
type FilmStore interface {
	GetByID(ctx context.Context, id uint64) (*repository.Film, error)
}

// RoomStore is the room lookup surface the scheduler needs.
type RoomStore interface {
	GetByNumber(ctx context.Context, number int) (*repository.Room, error)
}

// ShowtimeStore is the persistence surface for showtimes.  The list-check-
// insert sequence of Schedule runs inside InTx.
type ShowtimeStore interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	CreateTx(ctx context.Context, tx *sql.Tx, s *repository.Showtime) error
	ListByRoomTx(ctx context.Context, tx *sql.Tx, room int) ([]repository.ScheduledShowtime, error)
	DeleteCascade(ctx context.Context, id uint64) error
	ListWithAvailability(ctx context.Context) ([]repository.ShowtimeListing, error)
}

// Scheduler validates and persists showtimes, enforcing that no two
// showtimes in the same room overlap.  Concurrent scheduling for one room is
// serialized by a keyed mutex on the room number in addition to the store
// transaction, so two requests cannot both pass the overlap scan before
// either inserts.
type Scheduler struct {
	films     FilmStore
	rooms     RoomStore
	showtimes ShowtimeStore
	locks     *KeyedMutex
	limits    config.Limits
	now       func() time.Time
}

// NewScheduler constructs a Scheduler.  All dependencies must be non-nil.
func NewScheduler(films FilmStore, rooms RoomStore, showtimes ShowtimeStore, locks *KeyedMutex, limits config.Limits) *Scheduler {
	if films == nil || rooms == nil || showtimes == nil || locks == nil {
		panic("nil dependency passed to NewScheduler")
	}
	return &Scheduler{
		films:     films,
		rooms:     rooms,
		showtimes: showtimes,
		locks:     locks,
		limits:    limits,
		now:       time.Now,
	}
}

func roomKey(room int) string { return fmt.Sprintf("room:%d", room) }

// hhmm renders a timestamp as HH:MM for conflict messages.
func hhmm(t time.Time) string { return t.UTC().Format("15:04") }

// Schedule validates a new showtime and persists it.  Checks run in a fixed
// order and the first failure wins: room number range, film existence, room
// existence, start in the future, then the overlap scan against every
// showtime already in the room.  Timestamps are compared at minute
// granularity and the interval test is half-open, so a showtime ending
// exactly when another starts does not conflict.  On success the persisted
// showtime is returned; no side effect occurs on any failure path.
func (s *Scheduler) Schedule(ctx context.Context, filmID uint64, room int, start time.Time) (*repository.Showtime, error) {
	if room < s.limits.RoomMin || room > s.limits.RoomMax {
		return nil, invalidInput("room_range", "room must be between %d and %d", s.limits.RoomMin, s.limits.RoomMax)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	film, err := s.films.GetByID(ctx, filmID)
	if err != nil {
		if errors.Is(err, repository.ErrFilmNotFound) {
			return nil, notFound("film_not_found", "film %d does not exist", filmID)
		}
		return nil, storeErr(err)
	}
	if _, err := s.rooms.GetByNumber(ctx, room); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, notFound("room_not_found", "room %d does not exist, create it first", room)
		}
		return nil, storeErr(err)
	}

	start = start.UTC().Truncate(time.Minute)
	if !start.After(s.now().UTC()) {
		return nil, invalidInput("past_schedule", "cannot schedule a showtime in the past")
	}
	end := start.Add(time.Duration(film.Duration) * time.Minute)

	unlock := s.locks.Lock(roomKey(room))
	defer unlock()

	st := &repository.Showtime{FilmID: filmID, Room: room, Horaire: start}
	err = s.showtimes.InTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.showtimes.ListByRoomTx(ctx, tx, room)
		if err != nil {
			return err
		}
		for _, other := range existing {
			otherEnd := other.End()
			if start.Before(otherEnd) && end.After(other.Horaire) {
				return conflict("overlap",
					"overlap detected: existing showtime %s–%s in room %d",
					hhmm(other.Horaire), hhmm(otherEnd), room)
			}
		}
		return s.showtimes.CreateTx(ctx, tx, st)
	})
	if err != nil {
		var coreErr *Error
		if errors.As(err, &coreErr) {
			return nil, coreErr
		}
		return nil, storeErr(err)
	}
	return st, nil
}

// Delete removes a showtime and cascades to its reservations.  Deleting an
// absent showtime is NotFound.
func (s *Scheduler) Delete(ctx context.Context, id uint64) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.showtimes.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return notFound("showtime_not_found", "showtime %d does not exist", id)
		}
		return storeErr(err)
	}
	return nil
}

// List returns every showtime with film, room and remaining-seat details.
func (s *Scheduler) List(ctx context.Context) ([]repository.ShowtimeListing, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	listings, err := s.showtimes.ListWithAvailability(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return listings, nil
}
