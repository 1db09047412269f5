package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-live-service/internal/app"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL  string `yaml:"ttl"`
		File string `yaml:"file"`
	} `yaml:"quiz"`
	Engine struct {
		MaxSpeedBonus      *int   `yaml:"maxSpeedBonus"`
		PinRetries         int    `yaml:"pinRetries"`
		Retention          string `yaml:"retention"`
		ResultDisplay      string `yaml:"resultDisplay"`
		LeaderboardDisplay string `yaml:"leaderboardDisplay"`
		EventBuffer        int    `yaml:"eventBuffer"`
	} `yaml:"engine"`
	Auth struct {
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"tokenTTL"`
	} `yaml:"auth"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields the zero Config.
func LoadOptional(path string) (Config, bool, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, false, nil
	}
	return cfg, err == nil, err
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// EngineSettings turns the engine section into room settings, keeping
// defaults for anything left unset.
func (c Config) EngineSettings() app.Settings {
	s := app.DefaultSettings()
	e := c.Engine
	if e.MaxSpeedBonus != nil {
		s.MaxSpeedBonus = *e.MaxSpeedBonus
	}
	if e.PinRetries > 0 {
		s.PinRetries = e.PinRetries
	}
	if e.EventBuffer > 0 {
		s.EventBuffer = e.EventBuffer
	}
	s.Retention = TTLDuration(e.Retention, s.Retention)
	s.ResultDisplay = TTLDuration(e.ResultDisplay, s.ResultDisplay)
	s.LeaderboardDisplay = TTLDuration(e.LeaderboardDisplay, s.LeaderboardDisplay)
	return s
}

// NewLogger builds the process logger from the log section.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Log.Level)}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
