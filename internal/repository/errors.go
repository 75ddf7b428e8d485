// Package repository defines error types shared across repositories.  These
// sentinel values let handlers and services distinguish failure scenarios
// without inspecting driver error strings.
package repository

import "errors"

// ErrFilmNotFound is returned when a film lookup matches no row.
var ErrFilmNotFound = errors.New("film not found")

// ErrRoomNotFound is returned when a room lookup matches no row.
var ErrRoomNotFound = errors.New("room not found")

// ErrShowtimeNotFound is returned when a showtime lookup matches no row.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameExists is returned when registering a username that is taken.
var ErrUsernameExists = errors.New("username already exists")

// ErrRoomExists is returned when creating a room whose number is taken.
var ErrRoomExists = errors.New("room number already exists")
