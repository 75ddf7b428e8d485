package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Room mirrors the 'salles' table.  Number is unique and capacity is fixed
// after creation.
type Room struct {
	ID       uint64 `json:"id"`
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
}

// RoomRepo manages persistence for screening rooms.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// Create inserts a new room.  The UNIQUE constraint on number surfaces as
// ErrRoomExists.
func (r *RoomRepo) Create(ctx context.Context, room *Room) error {
	const q = `INSERT INTO salles (number, capacity) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, room.Number, room.Capacity)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrRoomExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	room.ID = uint64(id)
	return nil
}

// GetByNumber retrieves a room by its public number.  It returns
// ErrRoomNotFound when no row matches.
func (r *RoomRepo) GetByNumber(ctx context.Context, number int) (*Room, error) {
	const q = `SELECT id, number, capacity FROM salles WHERE number = ?`
	var room Room
	err := r.db.QueryRowContext(ctx, q, number).Scan(&room.ID, &room.Number, &room.Capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// GetByNumberTx is GetByNumber bound to the caller's transaction so capacity
// reads participate in the reservation's atomic unit.
func (r *RoomRepo) GetByNumberTx(ctx context.Context, tx *sql.Tx, number int) (*Room, error) {
	const q = `SELECT id, number, capacity FROM salles WHERE number = ?`
	var room Room
	err := tx.QueryRowContext(ctx, q, number).Scan(&room.ID, &room.Number, &room.Capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// List returns all rooms ordered by number.
func (r *RoomRepo) List(ctx context.Context) ([]Room, error) {
	const q = `SELECT id, number, capacity FROM salles ORDER BY number`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rooms := make([]Room, 0)
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Number, &room.Capacity); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rooms, nil
}
