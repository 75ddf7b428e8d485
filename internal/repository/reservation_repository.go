package repository

import (
	"context"
	"database/sql"
	"time"
)

// Reservation mirrors the 'reservations' table.  A reservation books Seats
// places on one showtime for one user.  Rows are never mutated; they only
// disappear when their showtime is deleted.
type Reservation struct {
	ID         uint64
	UserID     uint64
	ShowtimeID uint64
	Seats      int
	CreatedAt  time.Time
}

// ReservationDetail is the read model behind GET /api/mes_reservations: a
// reservation joined with its film, showtime and room.
type ReservationDetail struct {
	ID        uint64 `json:"id"`
	Film      string `json:"film"`
	Horaire   string `json:"horaire"`
	Salle     int    `json:"salle"`
	Seats     int    `json:"seats"`
	Timestamp string `json:"timestamp"`
	PosterURL string `json:"poster_url"`
}

// ReservationRepo manages persistence for reservations.  The aggregate reads
// and the insert all have Tx variants because the ledger must run them as a
// single atomic unit.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo constructs a ReservationRepo with the given DB handle.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// InTx runs fn in a transaction on the underlying database.
func (r *ReservationRepo) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return inTx(ctx, r.db, fn)
}

// SumForShowtimeTx returns the total seats already reserved for a showtime,
// zero when it has no reservations.
func (r *ReservationRepo) SumForShowtimeTx(ctx context.Context, tx *sql.Tx, showtimeID uint64) (int, error) {
	const q = `SELECT COALESCE(SUM(seats), 0) FROM reservations WHERE seance_id = ?`
	var total int
	if err := tx.QueryRowContext(ctx, q, showtimeID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// SumForUserFilmTx returns the total seats a user holds across all showtimes
// of one film, zero when there are none.
func (r *ReservationRepo) SumForUserFilmTx(ctx context.Context, tx *sql.Tx, userID, filmID uint64) (int, error) {
	const q = `SELECT COALESCE(SUM(r.seats), 0)
	           FROM reservations r
	           JOIN seances s ON s.id = r.seance_id
	           WHERE r.user_id = ? AND s.film_id = ?`
	var total int
	if err := tx.QueryRowContext(ctx, q, userID, filmID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CreateTx inserts a new reservation within the caller's transaction.  The
// generated ID and the DB-assigned creation timestamp are populated on the
// given record.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *Reservation) error {
	const q = `INSERT INTO reservations (user_id, seance_id, seats) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, rec.UserID, rec.ShowtimeID, rec.Seats)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	const sel = `SELECT created_at FROM reservations WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, rec.ID).Scan(&rec.CreatedAt)
}

// ListByUser returns the user's reservations joined with film, showtime and
// room details, newest showtime first.  When none exist an empty slice is
// returned.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]ReservationDetail, error) {
	const q = `SELECT r.id, f.title, s.horaire, s.salle, r.seats, r.created_at, f.poster_url
	           FROM reservations r
	           JOIN seances s ON s.id = r.seance_id
	           JOIN films f ON f.id = s.film_id
	           WHERE r.user_id = ?
	           ORDER BY s.horaire DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		var horaire, createdAt time.Time
		if err := rows.Scan(&d.ID, &d.Film, &horaire, &d.Salle, &d.Seats, &createdAt, &d.PosterURL); err != nil {
			return nil, err
		}
		d.Horaire = horaire.UTC().Format(horaireFormat)
		d.Timestamp = createdAt.UTC().Format(time.RFC3339)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
