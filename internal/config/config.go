package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Booking limits are plain ints so they can be
// tuned per deployment without a rebuild.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name
	JWTSecret  string // secret used to sign JWTs
	TokenTTL   int    // access token time-to-live in minutes
	BcryptCost int    // bcrypt cost for password hashing
	Limits     Limits // booking limits enforced by the core services
}

// Limits groups the tunable booking constraints.  SeatsPerRequest bounds a
// single reservation; SeatsPerUserFilm bounds the total a user may hold
// across all showtimes of one film.  Both default to 5 but are deliberately
// independent knobs.  RoomMin/RoomMax delimit the room numbers the cinema is
// configured with.
type Limits struct {
	SeatsPerRequest  int // maximum seats in one reservation request
	SeatsPerUserFilm int // maximum seats per user across showtimes of one film
	RoomMin          int // lowest valid room number
	RoomMax          int // highest valid room number
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Limits fall back to
// the documented defaults when unset.
func Load() Config {
	return Config{
		Env:        must("APP_ENV"),
		Port:       must("APP_PORT"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"), // empty allowed
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		JWTSecret:  must("JWT_SECRET"),
		TokenTTL:   intOr("TOKEN_TTL_MIN", 60),
		BcryptCost: intOr("BCRYPT_COST", 10),
		Limits: Limits{
			SeatsPerRequest:  intOr("MAX_SEATS_PER_REQUEST", 5),
			SeatsPerUserFilm: intOr("MAX_SEATS_PER_USER_FILM", 5),
			RoomMin:          intOr("ROOM_NUMBER_MIN", 1),
			RoomMax:          intOr("ROOM_NUMBER_MAX", 5),
		},
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr converts the named variable to an integer, returning def when the
// variable is unset.  A malformed value is a fatal configuration error.
func intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
