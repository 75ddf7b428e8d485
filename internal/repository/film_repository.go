package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Film mirrors the 'films' table.  A film is immutable after creation except
// for PosterURL, which admins may update.
type Film struct {
	ID             uint64 `json:"id"`
	Title          string `json:"title"`
	Year           int    `json:"year"`
	Genre          string `json:"genre"`
	Duration       int    `json:"duration"` // running time in whole minutes
	Classification string `json:"classification"`
	PosterURL      string `json:"poster_url"`
}

// FilmRepo manages persistence for films.
type FilmRepo struct {
	db *sql.DB
}

// NewFilmRepo constructs a FilmRepo with the given DB handle.
func NewFilmRepo(db *sql.DB) *FilmRepo { return &FilmRepo{db: db} }

// Create inserts a new film and assigns the generated ID back to the struct.
func (r *FilmRepo) Create(ctx context.Context, f *Film) error {
	const q = `INSERT INTO films (title, year, genre, duration, classification, poster_url)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, f.Title, f.Year, f.Genre, f.Duration, f.Classification, f.PosterURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return nil
}

// GetByID retrieves a film by its ID.  It returns ErrFilmNotFound when no
// matching row exists.
func (r *FilmRepo) GetByID(ctx context.Context, id uint64) (*Film, error) {
	const q = `SELECT id, title, year, genre, duration, classification, poster_url FROM films WHERE id = ?`
	var f Film
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&f.ID, &f.Title, &f.Year, &f.Genre, &f.Duration, &f.Classification, &f.PosterURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFilmNotFound
		}
		return nil, err
	}
	return &f, nil
}

// List returns all films ordered by title.  An empty catalog yields an empty
// slice and nil error.
func (r *FilmRepo) List(ctx context.Context) ([]Film, error) {
	const q = `SELECT id, title, year, genre, duration, classification, poster_url
	           FROM films
	           ORDER BY title`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	films := make([]Film, 0)
	for rows.Next() {
		var f Film
		if err := rows.Scan(&f.ID, &f.Title, &f.Year, &f.Genre, &f.Duration, &f.Classification, &f.PosterURL); err != nil {
			return nil, err
		}
		films = append(films, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return films, nil
}

// UpdatePoster replaces a film's poster reference.  ErrFilmNotFound is
// returned when the film does not exist.
func (r *FilmRepo) UpdatePoster(ctx context.Context, id uint64, posterURL string) error {
	const q = `UPDATE films SET poster_url = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, posterURL, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either absent or already carrying this URL; distinguish with a lookup.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
