package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

var ErrInvalidConfig = errors.New("invalid config")

type AppConfig struct {
	GameMode       domain.GameMode
	BaseMinutes    int
	BaseSeconds    int
	IncrementSecs  int
	SquareSize     int
	HTTPAddr       string
	WSAddr         string
	RedisURL       string
	DatabaseURL    string
	MessagesDir    string
	ResultsLimit   int
	ArchiveTimeout int // seconds
}

func defaults() *AppConfig {
	return &AppConfig{
		GameMode:       domain.Standard,
		BaseMinutes:    5,
		SquareSize:     72,
		HTTPAddr:       "127.0.0.1:8080",
		WSAddr:         "127.0.0.1:8081",
		ResultsLimit:   200,
		ArchiveTimeout: 5,
	}
}

// Load reads CHESS_*, BOARD_*, REDIS_URL, DATABASE_URL and MESSAGES_DIR.
// Malformed numbers are errors rather than silently ignored.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if v := env("CHESS_GAME_MODE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: CHESS_GAME_MODE=%q", ErrInvalidConfig, v)
		}
		mode, err := domain.ParseGameMode(n)
		if err != nil {
			return nil, fmt.Errorf("%w: CHESS_GAME_MODE: %v", ErrInvalidConfig, err)
		}
		cfg.GameMode = mode
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"CHESS_BASE_MINUTES", &cfg.BaseMinutes},
		{"CHESS_BASE_SECONDS", &cfg.BaseSeconds},
		{"CHESS_INCREMENT_SECONDS", &cfg.IncrementSecs},
		{"BOARD_SQUARE_SIZE", &cfg.SquareSize},
		{"CHESS_RESULTS_LIMIT", &cfg.ResultsLimit},
		{"ARCHIVE_TIMEOUT_SECONDS", &cfg.ArchiveTimeout},
	}
	for _, it := range ints {
		v := env(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, it.key, v)
		}
		*it.dst = n
	}

	if v := env("BOARD_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := env("BOARD_WS_ADDR"); v != "" {
		cfg.WSAddr = v
	}
	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.MessagesDir = env("MESSAGES_DIR")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	if c.BaseMinutes < 0 || c.BaseSeconds < 0 || c.IncrementSecs < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, domain.ErrNegativeTime)
	}
	if c.SquareSize < 16 || c.SquareSize > 256 {
		return fmt.Errorf("%w: BOARD_SQUARE_SIZE must be between 16 and 256", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%w: BOARD_HTTP_ADDR is required", ErrInvalidConfig)
	}
	if c.ResultsLimit <= 0 || c.ArchiveTimeout <= 0 {
		return fmt.Errorf("%w: results limit and archive timeout must be positive", ErrInvalidConfig)
	}
	if err := c.Session().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Session is the SessionConfig for new games.
func (c *AppConfig) Session() domain.SessionConfig {
	return domain.SessionConfig{
		Mode:        c.GameMode,
		BaseTimeMs:  int64(c.BaseMinutes)*60_000 + int64(c.BaseSeconds)*1000,
		IncrementMs: int64(c.IncrementSecs) * 1000,
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
