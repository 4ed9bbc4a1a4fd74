package api

import (
	"log/slog"
	"net/http"

	"metobs/internal/config"
)

// NewEklimaClientFromConfig builds a client from the eklima config section
func NewEklimaClientFromConfig(cfg *config.Config, logger *slog.Logger) *EklimaClient {
	opts := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.Eklima.Timeout}),
		WithBaseURL(cfg.Eklima.BaseURL),
		WithCircuitBreaker(BreakerSettings{
			MaxFailures: cfg.Eklima.CircuitBreaker.MaxFailures,
			OpenTimeout: cfg.Eklima.CircuitBreaker.OpenTimeout,
		}),
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return NewEklimaClient(opts...)
}
