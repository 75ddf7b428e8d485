// Package router wires the HTTP surface: public identity routes, the
// authenticated booking API, and the admin-only catalog and scheduling
// routes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mchenard/cinema-booking/internal/config"
	"github.com/mchenard/cinema-booking/internal/handler"
	"github.com/mchenard/cinema-booking/internal/middleware"
)

// Handlers bundles every endpoint group the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Film        *handler.FilmHandler
	Room        *handler.RoomHandler
	Showtime    *handler.ShowtimeHandler
	Reservation *handler.ReservationHandler
}

// Register mounts all routes.  Layout:
//
//	public        /healthz, /register, /login
//	authenticated everything else, behind JWT auth and the rate limiter
//	admin         catalog and séance management, additionally behind the
//	              role check
//
// The static catalog listings (/films, /salles) sit behind the Redis
// response cache; /api/seances does not, its remaining counts must be live.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.POST("/register", h.Auth.Register)
	e.POST("/login", h.Auth.Login)

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	auth := e.Group("", middleware.JWTAuth(cfg.JWTSecret), limit)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/check_session", h.Auth.CheckSession)

	auth.GET("/films", h.Film.ListFilms, cache)
	auth.GET("/salles", h.Room.ListRooms, cache)
	auth.GET("/api/seances", h.Showtime.ListSeances)

	auth.POST("/reserve", h.Reservation.Reserve)
	auth.GET("/api/mes_reservations", h.Reservation.MyReservations)

	admin := auth.Group("", middleware.RequireRole("admin"))
	admin.POST("/add_film", h.Film.AddFilm)
	admin.PUT("/update_film_poster/:id", h.Film.UpdatePoster)
	admin.POST("/add_room", h.Room.AddRoom)
	admin.POST("/add_seance", h.Showtime.AddSeance)
	admin.DELETE("/delete_seance/:id", h.Showtime.DeleteSeance)
}
