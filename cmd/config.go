package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"billing/internal/core/application/usecases/commands"

	"github.com/joho/godotenv"
)

const (
	DefaultHTTPPort = "8080"
	DefaultTimezone = "America/Argentina/Buenos_Aires"
)

type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	// DBMigrateUsers also creates facturacion_users. Local setups only; in
	// production the table belongs to the account service.
	DBMigrateUsers bool

	Timezone string

	InvoicingAPIURL        string
	InvoicingTimeout       time.Duration
	InvoicingRatePerMinute int

	VaultAddress string
	VaultToken   string

	BrevoAPIKey string
	NotifyFrom  string
	NotifyTo    []string

	MinPart                 string
	MaxPart                 string
	MaxConcurrentExecutions int
	ReconcileSpec           string
	ClaimTTL                time.Duration
}

// DSN is the libpq connection string for the job store.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

func (c Config) claimTTL() time.Duration {
	if c.ClaimTTL > 0 {
		return c.ClaimTTL
	}
	return commands.DefaultClaimTTL
}

func (c Config) invoicingTimeout() time.Duration {
	if c.InvoicingTimeout > 0 {
		return c.InvoicingTimeout
	}
	return commands.DefaultInvoicingTimeout
}

// LoadConfig reads the environment after loading envFile into it. A missing
// envFile is not an error; variables already set in the process win.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var errList []error
	cfg := Config{
		HTTPPort:       envOr("HTTP_PORT", DefaultHTTPPort),
		DBHost:         envOr("DB_HOST", "localhost"),
		DBPort:         envOr("DB_PORT", "5432"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBSslMode:      envOr("DB_SSLMODE", "disable"),
		DBMigrateUsers: envBool("DB_MIGRATE_USERS", &errList),

		Timezone: envOr("TIMEZONE", DefaultTimezone),

		InvoicingAPIURL:        os.Getenv("INVOICING_API_URL"),
		InvoicingTimeout:       envDuration("INVOICING_TIMEOUT", &errList),
		InvoicingRatePerMinute: envInt("INVOICING_RATE_PER_MINUTE", &errList),

		VaultAddress: os.Getenv("VAULT_ADDRESS"),
		VaultToken:   os.Getenv("VAULT_TOKEN"),

		BrevoAPIKey: os.Getenv("BREVO_API_KEY"),
		NotifyFrom:  os.Getenv("NOTIFY_FROM"),
		NotifyTo:    envList("NOTIFY_TO"),

		MinPart:                 os.Getenv("MIN_PART"),
		MaxPart:                 os.Getenv("MAX_PART"),
		MaxConcurrentExecutions: envInt("MAX_CONCURRENT_EXECUTIONS", &errList),
		ReconcileSpec:           os.Getenv("RECONCILE_SPEC"),
		ClaimTTL:                envDuration("CLAIM_TTL", &errList),
	}

	if err := errors.Join(errList...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, errList *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errList = append(*errList, fmt.Errorf("%s: %w", key, err))
	}
	return n
}

func envBool(key string, errList *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errList = append(*errList, fmt.Errorf("%s: %w", key, err))
	}
	return b
}

func envDuration(key string, errList *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errList = append(*errList, fmt.Errorf("%s: %w", key, err))
	}
	return d
}

func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
