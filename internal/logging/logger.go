package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"metobs/internal/config"
)

// New builds the process logger. The "dev" env logs colored text, every other
// env logs JSON.
func New(cfg config.LogConfig, appName string) *slog.Logger {
	return NewWriter(os.Stdout, cfg, appName)
}

// NewWriter is New with an explicit destination
func NewWriter(w io.Writer, cfg config.LogConfig, appName string) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	if cfg.Env == "" || cfg.Env == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With(
		"app", appName,
		"env", cfg.Env,
	)
}
