package config // package config loads application configuration from environment variables

import (
	"log"  // log is used to report configuration errors and halt execution
	"os"   // os provides access to environment variables
	"time" // time for duration-typed knobs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for the
// booking policy knobs.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to verify JWTs issued by the identity service
	CallbackSecret string        // shared secret the payment provider sends on callbacks
	LockTTL        time.Duration // checkout lock lifetime
	PaymentTimeout time.Duration // how long a created order may stay unpaid
	MinDuration    time.Duration // shortest bookable interval
	MaxDuration    time.Duration // longest bookable interval
	SweepInterval  time.Duration // period of the lock/order maintenance sweep
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Booking knobs are
// optional and fall back to the documented defaults.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DBUser:         must("DB_USER"),      // database user
		DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:         must("DB_HOST"),      // database host
		DBPort:         must("DB_PORT"),      // database port
		DBName:         must("DB_NAME"),      // database name
		JWTSecret:      must("JWT_SECRET"),   // secret used for verifying JWTs
		CallbackSecret: must("PAYMENT_CALLBACK_SECRET"), // authenticates provider callbacks
		LockTTL:        durOr("LOCK_TTL", 300*time.Second),
		PaymentTimeout: durOr("PAYMENT_TIMEOUT", 15*time.Minute),
		MinDuration:    durOr("BOOKING_MIN_DURATION", time.Hour),
		MaxDuration:    durOr("BOOKING_MAX_DURATION", 8*time.Hour),
		SweepInterval:  durOr("SWEEP_INTERVAL", 30*time.Second),
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

// durOr parses an optional duration variable ("90s", "15m").  Unset means
// the default; a malformed value is fatal rather than silently ignored.
func durOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
