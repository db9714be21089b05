package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "inmopilot-ai"
	EnvFileName = "config.env"
)

const (
	DefaultAddr              = ":8080"
	DefaultDBPath            = "inmopilot.db"
	DefaultModel             = "gemini-2.5-flash"
	DefaultMaxImages         = 10
	DefaultMaxImageBytes     = 10 << 20
	DefaultRequestsPerMinute = 30
	DefaultJournalDir        = "."
	DefaultCacheMaxAgeHours  = 24
)

// requiredEnvVars lists all environment variables that must be set for the service to run.
var requiredEnvVars = []string{"GEMINI_API_KEY"}

// Config holds the service settings read from the environment.
type Config struct {
	GeminiAPIKey      string
	Addr              string
	DBPath            string
	Model             string
	MaxImages         int
	MaxImageBytes     int64
	RequestsPerMinute int
	JournalDir        string
	// CacheMaxAge is how long a generation is reused for identical input.
	// Zero never expires.
	CacheMaxAge time.Duration
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory and then from ./.env. Errors are ignored since the files
// may not exist. Variables already set in the environment win.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load(".env")
}

// CheckRequiredConfig checks if all required environment variables are set.
// Returns the names of any missing variables.
func CheckRequiredConfig() []string {
	var missing []string
	for _, v := range requiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Load reads the configuration from the environment, applying defaults for
// unset variables.
func Load() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		Addr:         getEnv("INMOPILOT_ADDR", DefaultAddr),
		DBPath:       getEnv("INMOPILOT_DB_PATH", DefaultDBPath),
		Model:        getEnv("INMOPILOT_MODEL", DefaultModel),
		JournalDir:   getEnv("INMOPILOT_JOURNAL_DIR", DefaultJournalDir),
	}

	var err error
	if cfg.MaxImages, err = getEnvInt("INMOPILOT_MAX_IMAGES", DefaultMaxImages, 1); err != nil {
		return nil, err
	}
	maxBytes, err := getEnvInt("INMOPILOT_MAX_IMAGE_BYTES", DefaultMaxImageBytes, 1)
	if err != nil {
		return nil, err
	}
	cfg.MaxImageBytes = int64(maxBytes)
	// -1 disables rate limiting
	if cfg.RequestsPerMinute, err = getEnvInt("INMOPILOT_REQUESTS_PER_MINUTE", DefaultRequestsPerMinute, -1); err != nil {
		return nil, err
	}
	hours, err := getEnvInt("INMOPILOT_CACHE_MAX_AGE_HOURS", DefaultCacheMaxAgeHours, 0)
	if err != nil {
		return nil, err
	}
	cfg.CacheMaxAge = time.Duration(hours) * time.Hour

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback, min int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n < min {
		return 0, fmt.Errorf("%s must be at least %d, got %d", key, min, n)
	}
	return n, nil
}
