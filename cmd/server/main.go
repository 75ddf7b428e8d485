package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/mchenard/cinema-booking/internal/config"
	"github.com/mchenard/cinema-booking/internal/database"
	"github.com/mchenard/cinema-booking/internal/handler"
	"github.com/mchenard/cinema-booking/internal/queue"
	"github.com/mchenard/cinema-booking/internal/repository"
	"github.com/mchenard/cinema-booking/internal/router"
	"github.com/mchenard/cinema-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: rate limiting and response caching disabled")
	}

	films := repository.NewFilmRepo(db)
	rooms := repository.NewRoomRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	reservations := repository.NewReservationRepo(db)
	users := repository.NewUserRepo(db)

	locks := service.NewKeyedMutex()
	scheduler := service.NewScheduler(films, rooms, showtimes, locks, cfg.Limits)
	ledger := service.NewLedger(reservations, showtimes, rooms, users, locks, cfg.Limits)

	h := router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, users),
		Film:        handler.NewFilmHandler(films),
		Room:        handler.NewRoomHandler(rooms, cfg.Limits),
		Showtime:    handler.NewShowtimeHandler(scheduler),
		Reservation: handler.NewReservationHandler(ledger, queue.PublishReservationConfirmed),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, h, rdb)

	// Audit-log consumer; reconnects on its own, never blocks startup.
	go queue.StartReservationConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
