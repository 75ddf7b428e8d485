package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mchenard/cinema-booking/internal/config"
	"github.com/mchenard/cinema-booking/internal/repository"
)

// ReservationStore is the persistence surface for reservations.  The two
// aggregate reads and the insert have Tx variants because Reserve runs them
// as one atomic unit.
type ReservationStore interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	SumForShowtimeTx(ctx context.Context, tx *sql.Tx, showtimeID uint64) (int, error)
	SumForUserFilmTx(ctx context.Context, tx *sql.Tx, userID, filmID uint64) (int, error)
	CreateTx(ctx context.Context, tx *sql.Tx, rec *repository.Reservation) error
	ListByUser(ctx context.Context, userID uint64) ([]repository.ReservationDetail, error)
}

// RoomResolver resolves room capacity inside the reservation transaction.
type RoomResolver interface {
	GetByNumberTx(ctx context.Context, tx *sql.Tx, number int) (*repository.Room, error)
}

// UserResolver checks requester existence inside the reservation transaction.
type UserResolver interface {
	ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error)
}

// ShowtimeResolver resolves the target showtime before the ledger takes its
// locks; the film ID is part of the lock key.
type ShowtimeResolver interface {
	GetByID(ctx context.Context, id uint64) (*repository.Showtime, error)
}

// Ledger validates and persists seat reservations, enforcing the room
// capacity and the per-user-per-film cap.  The aggregate checks and the
// insert are serialized per showtime and per user+film pair by a keyed
// mutex, and run inside one store transaction, so two concurrent requests
// can never both pass a check that only one of them may satisfy.
type Ledger struct {
	reservations ReservationStore
	showtimes    ShowtimeResolver
	rooms        RoomResolver
	users        UserResolver
	locks        *KeyedMutex
	limits       config.Limits
}

// NewLedger constructs a Ledger.  All dependencies must be non-nil.
func NewLedger(reservations ReservationStore, showtimes ShowtimeResolver, rooms RoomResolver, users UserResolver, locks *KeyedMutex, limits config.Limits) *Ledger {
	if reservations == nil || showtimes == nil || rooms == nil || users == nil || locks == nil {
		panic("nil dependency passed to NewLedger")
	}
	return &Ledger{
		reservations: reservations,
		showtimes:    showtimes,
		rooms:        rooms,
		users:        users,
		locks:        locks,
		limits:       limits,
	}
}

func showtimeKey(id uint64) string { return fmt.Sprintf("showtime:%d", id) }

func userFilmKey(userID, filmID uint64) string {
	return fmt.Sprintf("user:%d:film:%d", userID, filmID)
}

// Reserve books seats on a showtime for a user.  The seat count is bounds-
// checked before any store access.  The rest runs as a single transaction:
// resolve room capacity, sum the showtime's reserved seats, check capacity,
// verify the requester, sum the user's seats across the film's showtimes,
// check the per-user cap, insert.  At most one row is inserted per call and
// every failure leaves the store untouched.
func (l *Ledger) Reserve(ctx context.Context, userID, showtimeID uint64, seats int) (*repository.Reservation, error) {
	if seats < 1 || seats > l.limits.SeatsPerRequest {
		return nil, invalidInput("seat_count", "you can reserve between 1 and %d seats", l.limits.SeatsPerRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	st, err := l.showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, notFound("showtime_not_found", "showtime %d does not exist", showtimeID)
		}
		return nil, storeErr(err)
	}

	// Serialize against other reservations on this showtime and against the
	// same user booking the same film through a different showtime.
	unlock := l.locks.Lock(showtimeKey(showtimeID), userFilmKey(userID, st.FilmID))
	defer unlock()

	rec := &repository.Reservation{UserID: userID, ShowtimeID: showtimeID, Seats: seats}
	err = l.reservations.InTx(ctx, func(tx *sql.Tx) error {
		room, err := l.rooms.GetByNumberTx(ctx, tx, st.Room)
		if err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				// A showtime must never reference an unconfigured room.
				return internal("missing_room_config", "room configuration missing for showtime %d", showtimeID)
			}
			return err
		}

		reserved, err := l.reservations.SumForShowtimeTx(ctx, tx, showtimeID)
		if err != nil {
			return err
		}
		if reserved+seats > room.Capacity {
			return conflict("capacity_exceeded",
				"full or not enough seats, remaining: %d", room.Capacity-reserved)
		}

		ok, err := l.users.ExistsTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("user_not_found", "user %d does not exist", userID)
		}

		userTotal, err := l.reservations.SumForUserFilmTx(ctx, tx, userID, st.FilmID)
		if err != nil {
			return err
		}
		if userTotal+seats > l.limits.SeatsPerUserFilm {
			return conflict("per_user_film_limit",
				"limit exceeded: you already hold %d seat(s) for this film, maximum %d per film, you may still reserve %d",
				userTotal, l.limits.SeatsPerUserFilm, l.limits.SeatsPerUserFilm-userTotal)
		}

		return l.reservations.CreateTx(ctx, tx, rec)
	})
	if err != nil {
		var coreErr *Error
		if errors.As(err, &coreErr) {
			return nil, coreErr
		}
		return nil, storeErr(err)
	}
	return rec, nil
}

// ListForUser returns the user's reservations with film, showtime and room
// details, newest showtime first.
func (l *Ledger) ListForUser(ctx context.Context, userID uint64) ([]repository.ReservationDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	details, err := l.reservations.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return details, nil
}
