package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Required variables are enforced by must() and a
// missing value stops the process at startup rather than later mid-request.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// Reschedule/refund policy knobs.
	RescheduleDeadlineHours int // minimum hours before slot start to reschedule
	MaxReschedules          int // lifetime reschedule budget per booking
	FullRefundHours         int // cancel this early for a full refund
	PartialRefundHours      int // cancel this early for a partial refund
	PartialRefundPercent    int // percentage refunded in the partial tier

	// QR token knobs. The multi/master budgets are sentinel-sized passes
	// and stay configurable.
	QRSecret      string        // HMAC key for token hashing
	QRGraceWindow time.Duration // redemption window after slot end
	QRSingleUses  int           // uses for a single-attendee token
	QRGroupUses   int           // uses for a group organizer token
	QRMultiUses   int           // uses for a recurring pass
	QRMasterUses  int           // uses for an instructor master pass

	WaitlistNotifyWindow time.Duration // how long a notified entry holds its claim

	// Payment gateway credentials. A gateway with no credential set is
	// not registered; the mock gateway is always available outside prod.
	RazorpaySecret string
	StripeSecret   string
	PhonePeSaltKey string
	PhonePeSaltIdx string
	GatewayTimeout time.Duration // upper bound on any single gateway call
}

// Load reads configuration from environment variables and returns a Config.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		RescheduleDeadlineHours: envInt("RESCHEDULE_DEADLINE_HOURS", 24),
		MaxReschedules:          envInt("MAX_RESCHEDULES_PER_BOOKING", 2),
		FullRefundHours:         envInt("FULL_REFUND_HOURS", 48),
		PartialRefundHours:      envInt("PARTIAL_REFUND_HOURS", 24),
		PartialRefundPercent:    envInt("PARTIAL_REFUND_PERCENT", 50),

		QRSecret:      must("QR_TOKEN_SECRET"),
		QRGraceWindow: envDur("QR_GRACE_WINDOW", 2*time.Hour),
		QRSingleUses:  envInt("QR_SINGLE_USES", 1),
		QRGroupUses:   envInt("QR_GROUP_USES", 50),
		QRMultiUses:   envInt("QR_MULTI_USES", 999),
		QRMasterUses:  envInt("QR_MASTER_USES", 9999),

		WaitlistNotifyWindow: envDur("WAITLIST_NOTIFY_WINDOW", 6*time.Hour),

		RazorpaySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		StripeSecret:   os.Getenv("STRIPE_ENDPOINT_SECRET"),
		PhonePeSaltKey: os.Getenv("PHONEPE_SALT_KEY"),
		PhonePeSaltIdx: envStr("PHONEPE_SALT_INDEX", "1"),
		GatewayTimeout: envDur("GATEWAY_TIMEOUT", 10*time.Second),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
