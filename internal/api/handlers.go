// Package api exposes the HTTP surface: price calculation, the status
// stream, form analysis and configuration management.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pricewatch/competitor-price-watcher/internal/calculator"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
	"github.com/pricewatch/competitor-price-watcher/internal/status"
	"github.com/pricewatch/competitor-price-watcher/internal/store"
)

// PriceCalculator runs one price calculation.
type PriceCalculator interface {
	Calculate(ctx context.Context, req calculator.Request) (*models.PriceResult, error)
}

// ConfigStore is the persistence surface the handlers need.
type ConfigStore interface {
	DomainConfig(ctx context.Context, domain string) (*models.DomainConfig, error)
	CountryConfig(ctx context.Context, code string) (*models.CountryConfig, error)
	PackageConfig(ctx context.Context, id string) (*models.PackageConfig, error)

	RawDomainConfig(ctx context.Context, domain string) (json.RawMessage, error)
	RawCountryConfig(ctx context.Context, code string) (json.RawMessage, error)
	RawPackageConfig(ctx context.Context, id string) (json.RawMessage, error)

	SaveDomainConfig(ctx context.Context, domain string, config json.RawMessage) error
	SaveCountryConfig(ctx context.Context, code string, config json.RawMessage) error
	SavePackageConfig(ctx context.Context, id string, config json.RawMessage) error

	DeleteDomainConfig(ctx context.Context, domain string) error
	DeleteCountryConfig(ctx context.Context, code string) error
	DeletePackageConfig(ctx context.Context, id string) error

	ListDomains(ctx context.Context) ([]string, error)
	ListPackages(ctx context.Context) (map[string]json.RawMessage, error)

	ListVersions(ctx context.Context, configType, configID string) ([]store.ConfigVersion, error)
	RestoreVersion(ctx context.Context, configType, configID string, version int) error

	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// fallbackCountry supplies response metadata when the requested country has
// no configuration of its own.
const fallbackCountry = "nl"

type Handlers struct {
	calc         PriceCalculator
	store        ConfigStore
	registry     *status.Registry
	sessions     calculator.SessionFactory
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewHandlers(calc PriceCalculator, configStore ConfigStore, registry *status.Registry, sessions calculator.SessionFactory, pollInterval time.Duration, logger *slog.Logger) *Handlers {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &Handlers{
		calc:         calc,
		store:        configStore,
		registry:     registry,
		sessions:     sessions,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Routes mounts every endpoint on the router.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/api/calculate-smp", h.CalculateSquareMeterPrice)
	r.Post("/api/calculate-shipping", h.CalculateShipping)
	r.Get("/api/status-stream/{requestID}", h.StatusStream)
	r.Post("/api/analyze", h.AnalyzeForm)

	r.Get("/api/config", h.ListDomainConfigs)
	r.Get("/api/config/{domain}", h.GetDomainConfig)
	r.Post("/api/config", h.SaveDomainConfig)
	r.Delete("/api/config/{domain}", h.DeleteDomainConfig)
	r.Get("/api/config/{domain}/versions", h.ListDomainVersions)
	r.Post("/api/config/{domain}/restore/{version}", h.RestoreDomainVersion)

	r.Get("/api/country/{country}", h.GetCountryConfig)
	r.Post("/api/country", h.SaveCountryConfig)
	r.Delete("/api/country/{country}", h.DeleteCountryConfig)
	r.Get("/api/country/{country}/versions", h.ListCountryVersions)
	r.Post("/api/country/{country}/restore/{version}", h.RestoreCountryVersion)

	r.Get("/api/packages", h.ListPackages)
	r.Get("/api/packages/{packageID}", h.GetPackageConfig)
	r.Post("/api/packages", h.SavePackageConfig)
	r.Delete("/api/packages/{packageID}", h.DeletePackageConfig)
	r.Get("/api/packages/{packageID}/versions", h.ListPackageVersions)
	r.Post("/api/packages/{packageID}/restore/{version}", h.RestorePackageVersion)

	r.Get("/api/settings/{key}", h.GetSetting)
	r.Post("/api/settings", h.SaveSetting)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, map[string]interface{}{
		"status":      "error",
		"status_code": statusCode,
		"message":     message,
	})
}
