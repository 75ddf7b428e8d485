// Package repository contains data access logic for the booking domain.
// This file defines the Showtime model and repository.  A showtime (séance)
// schedules a film in a room at a start timestamp; its end is derived from
// the film's duration, so overlap checks always join back to films.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Showtime mirrors the 'seances' table.  Horaire is the start timestamp,
// stored at minute granularity in UTC.
type Showtime struct {
	ID      uint64
	FilmID  uint64
	Room    int // salle number, not the salles.id surrogate key
	Horaire time.Time
}

// ScheduledShowtime pairs a showtime with its film's duration so callers can
// compute the derived [start, end) interval.
type ScheduledShowtime struct {
	Showtime
	Duration int // film running time in minutes
}

// End returns the derived end of the screening interval.
func (s ScheduledShowtime) End() time.Time {
	return s.Horaire.Add(time.Duration(s.Duration) * time.Minute)
}

// ShowtimeListing is the read model behind GET /api/seances: one row per
// showtime with the film title, poster, room capacity and live remaining
// seat count.
type ShowtimeListing struct {
	ID        uint64 `json:"id"`
	Film      string `json:"film"`
	Salle     int    `json:"salle"`
	Horaire   string `json:"horaire"`
	PosterURL string `json:"poster_url"`
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
}

// horaireFormat is the wire and display format for showtime timestamps.
// Minute granularity, matching how schedules are entered.
const horaireFormat = "2006-01-02 15:04"

// ShowtimeRepo manages persistence for showtimes.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

// InTx runs fn in a transaction on the underlying database.  The scheduler
// wraps its list-check-insert sequence with it.
func (r *ShowtimeRepo) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return inTx(ctx, r.db, fn)
}

// CreateTx inserts a new showtime within the caller's transaction and
// assigns the generated ID back to the struct.
func (r *ShowtimeRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *Showtime) error {
	const q = `INSERT INTO seances (film_id, salle, horaire) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.FilmID, s.Room, s.Horaire.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID retrieves a showtime by its ID.  It returns ErrShowtimeNotFound
// when no row matches.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*Showtime, error) {
	const q = `SELECT id, film_id, salle, horaire FROM seances WHERE id = ?`
	var s Showtime
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.FilmID, &s.Room, &s.Horaire)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByRoomTx returns every showtime scheduled in a room together with its
// film's duration, inside the caller's transaction.  The scheduler walks the
// result to detect interval overlaps.
func (r *ShowtimeRepo) ListByRoomTx(ctx context.Context, tx *sql.Tx, room int) ([]ScheduledShowtime, error) {
	const q = `SELECT s.id, s.film_id, s.salle, s.horaire, f.duration
	           FROM seances s
	           JOIN films f ON f.id = s.film_id
	           WHERE s.salle = ?`
	rows, err := tx.QueryContext(ctx, q, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ScheduledShowtime
	for rows.Next() {
		var s ScheduledShowtime
		if err := rows.Scan(&s.ID, &s.FilmID, &s.Room, &s.Horaire, &s.Duration); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteCascade removes a showtime and all of its reservations in one
// transaction.  ErrShowtimeNotFound is returned when the showtime does not
// exist; in that case nothing is deleted.
func (r *ShowtimeRepo) DeleteCascade(ctx context.Context, id uint64) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM seances WHERE id = ?`, id).Scan(&one)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrShowtimeNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE seance_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM seances WHERE id = ?`, id); err != nil {
			return err
		}
		return nil
	})
}

// ListWithAvailability returns all showtimes with film, room and remaining
// seat information, ordered by start time.  COALESCE turns the absence of
// reservations into a zero reserved count.
func (r *ShowtimeRepo) ListWithAvailability(ctx context.Context) ([]ShowtimeListing, error) {
	const q = `SELECT s.id, f.title, s.salle, s.horaire, f.poster_url, sa.capacity,
	                  (SELECT COALESCE(SUM(r.seats), 0) FROM reservations r WHERE r.seance_id = s.id) AS reserved
	           FROM seances s
	           JOIN films f ON f.id = s.film_id
	           JOIN salles sa ON sa.number = s.salle
	           ORDER BY s.horaire`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	listings := make([]ShowtimeListing, 0)
	for rows.Next() {
		var l ShowtimeListing
		var horaire time.Time
		var reserved int
		if err := rows.Scan(&l.ID, &l.Film, &l.Salle, &horaire, &l.PosterURL, &l.Capacity, &reserved); err != nil {
			return nil, err
		}
		l.Horaire = horaire.UTC().Format(horaireFormat)
		l.Remaining = l.Capacity - reserved
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}
