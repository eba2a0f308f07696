package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"painel/internal/core"
	"painel/internal/pipeline"
)

const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection
	DataBackend string
	SeedFile    string

	// Database
	SQLiteDBPath string

	// AMQP (optional for the server, required by the worker)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleAPIKey             string

	// Simulation defaults
	AnnualRate    float64
	RateAchieved  float64
	FillMonthGaps bool

	// Caching and sync
	CacheTTL     time.Duration
	SyncInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),
		SeedFile:    getEnv("SEED_FILE", "./data/transacoes.csv"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/painel.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "painel"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_dashboard"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transacoes"),
		GoogleSheetRange:         getEnv("GOOGLE_SHEET_RANGE", "A:H"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleAPIKey:             getEnv("GOOGLE_API_KEY", ""),

		AnnualRate:    getEnvFloat("ANNUAL_RATE", pipeline.DefaultAnnualRate),
		RateAchieved:  getEnvFloat("RATE_ACHIEVED", pipeline.DefaultRateAchieved),
		FillMonthGaps: getEnvBool("FILL_MONTH_GAPS", false),

		CacheTTL:     getEnvDuration("CACHE_TTL", 0),
		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
	}
}

// PipelineParams returns the configured simulation defaults.
func (c *Config) PipelineParams() pipeline.Params {
	p := pipeline.DefaultParams()
	p.AnnualRate = c.AnnualRate
	p.RateAchieved = c.RateAchieved
	p.FillGaps = c.FillMonthGaps
	return p
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSheets, BackendSQLite}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		errors = append(errors, c.validateSQLite()...)
	}

	if c.DataBackend == BackendSheets {
		errors = append(errors, c.validateSheets()...)
	}

	errors = append(errors, c.validateAMQP()...)

	if err := (core.Settings{AnnualRate: c.AnnualRate, RateAchieved: c.RateAchieved}).Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid simulation defaults: %v", err))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache ttl %v: cannot be negative", c.CacheTTL))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks what the sync worker needs on top of Validate: a
// spreadsheet to read, a SQLite mirror to write and a broker to listen on.
func (c *Config) ValidateWorker() error {
	var errors []string
	errors = append(errors, c.validateSheets()...)
	errors = append(errors, c.validateSQLite()...)
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required by the worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleAPIKey == "" {
		errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_API_KEY must be provided for sheets backend")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat accepts both "11.25" and "11,25". Non-finite values fall back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := getEnv(key, ""); value != "" {
		if f, err := strconv.ParseFloat(strings.Replace(value, ",", ".", 1), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := getEnv(key, ""); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") and plain seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := getEnv(key, ""); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if s, err := strconv.Atoi(value); err == nil {
			return time.Duration(s) * time.Second
		}
	}
	return defaultValue
}
