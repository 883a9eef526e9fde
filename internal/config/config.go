package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL           string
	HTTPPort              string
	BinanceURL            string
	CoinGeckoURL          string
	CoinGeckoAPIKey       string
	RetryCount            int
	RetryDelay            time.Duration
	PacingDelay           time.Duration
	FXCacheTTL            time.Duration
	PriceSchedule         string
	ExtraCryptoSymbols    []string
	ExtraStablecoins      []string
	GoogleSheetsID        string
	GoogleCredentialsJSON string
	LogLevel              slog.Level
	DisplayCurrency       string
}

// Load reads an optional .env file, then configuration from environment variables
// with sensible defaults. Variables already set in the environment win over the file.
func Load() Config {
	loadEnvFile(envOrDefault("ENV_FILE", ".env"))

	return Config{
		DatabaseURL:           envOrDefaultWarn("DATABASE_URL", ""),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		BinanceURL:            envOrDefault("BINANCE_URL", "https://api.binance.com"),
		CoinGeckoURL:          envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:       envOrDefault("COINGECKO_API_KEY", ""),
		RetryCount:            envOrDefaultInt("RETRY_COUNT", 3),
		RetryDelay:            envOrDefaultDuration("RETRY_DELAY", 2*time.Second),
		PacingDelay:           envOrDefaultDuration("PACING_DELAY", 500*time.Millisecond),
		FXCacheTTL:            envOrDefaultDuration("FX_CACHE_TTL", time.Hour),
		PriceSchedule:         envOrDefault("PRICE_SCHEDULE", ""),
		ExtraCryptoSymbols:    envList("EXTRA_CRYPTO_SYMBOLS"),
		ExtraStablecoins:      envList("EXTRA_STABLECOINS"),
		GoogleSheetsID:        envOrDefault("GOOGLE_SHEETS_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
		LogLevel:              envOrDefaultLevel("LOG_LEVEL", slog.LevelInfo),
		DisplayCurrency:       strings.ToUpper(envOrDefault("DISPLAY_CURRENCY", "USD")),
	}
}

// SheetsEnabled reports whether both Google Sheets settings are present.
func (c Config) SheetsEnabled() bool {
	return c.GoogleSheetsID != "" && c.GoogleCredentialsJSON != ""
}

func loadEnvFile(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", path, "error", err)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultLevel(key string, defaultVal slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			slog.Warn("invalid log level env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return level
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping blank entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
