package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pricewatch/competitor-price-watcher/internal/models"
	"github.com/pricewatch/competitor-price-watcher/internal/store"
)

// DomainConfigRequest is the save-domain-config request body.
type DomainConfigRequest struct {
	Domain string          `json:"domain"`
	Config json.RawMessage `json:"config"`
}

// CountryConfigRequest is the save-country-config request body.
type CountryConfigRequest struct {
	Country string          `json:"country"`
	Config  json.RawMessage `json:"config"`
}

// PackageConfigRequest is the save-package-config request body.
type PackageConfigRequest struct {
	PackageID string          `json:"package_id"`
	Config    json.RawMessage `json:"config"`
}

// SettingRequest is the save-setting request body.
type SettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *Handlers) ListDomainConfigs(w http.ResponseWriter, r *http.Request) {
	domains, err := h.store.ListDomains(r.Context())
	if err != nil {
		h.logger.Error("failed to list domains", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list domains")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"domains": domains})
}

func (h *Handlers) GetDomainConfig(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	config, err := h.store.RawDomainConfig(r.Context(), domain)
	if err != nil {
		h.respondStoreError(w, err, "failed to load domain config")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"domain": domain, "config": config})
}

// SaveDomainConfig validates the submitted configuration before persisting,
// so a broken step list never reaches a live calculation.
func (h *Handlers) SaveDomainConfig(w http.ResponseWriter, r *http.Request) {
	var req DomainConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Domain == "" || len(req.Config) == 0 {
		h.respondError(w, http.StatusBadRequest, "domain and config are required")
		return
	}
	if _, err := models.ParseDomainConfig(req.Domain, req.Config); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.saveConfig(w, r.Context(), req.Domain, func(ctx context.Context) error {
		return h.store.SaveDomainConfig(ctx, req.Domain, req.Config)
	})
}

func (h *Handlers) DeleteDomainConfig(w http.ResponseWriter, r *http.Request) {
	h.deleteConfig(w, r, chi.URLParam(r, "domain"), h.store.DeleteDomainConfig)
}

func (h *Handlers) GetCountryConfig(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	config, err := h.store.RawCountryConfig(r.Context(), country)
	if err != nil {
		h.respondStoreError(w, err, "failed to load country config")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"country": country, "config": config})
}

func (h *Handlers) SaveCountryConfig(w http.ResponseWriter, r *http.Request) {
	var req CountryConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Country == "" || len(req.Config) == 0 {
		h.respondError(w, http.StatusBadRequest, "country and config are required")
		return
	}
	if _, err := models.ParseCountryConfig(req.Country, req.Config); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.saveConfig(w, r.Context(), req.Country, func(ctx context.Context) error {
		return h.store.SaveCountryConfig(ctx, req.Country, req.Config)
	})
}

func (h *Handlers) DeleteCountryConfig(w http.ResponseWriter, r *http.Request) {
	h.deleteConfig(w, r, chi.URLParam(r, "country"), h.store.DeleteCountryConfig)
}

func (h *Handlers) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.store.ListPackages(r.Context())
	if err != nil {
		h.logger.Error("failed to list packages", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list packages")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"packages": packages})
}

func (h *Handlers) GetPackageConfig(w http.ResponseWriter, r *http.Request) {
	packageID := chi.URLParam(r, "packageID")
	config, err := h.store.RawPackageConfig(r.Context(), packageID)
	if err != nil {
		h.respondStoreError(w, err, "failed to load package config")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"package_id": packageID, "config": config})
}

func (h *Handlers) SavePackageConfig(w http.ResponseWriter, r *http.Request) {
	var req PackageConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PackageID == "" || len(req.Config) == 0 {
		h.respondError(w, http.StatusBadRequest, "package_id and config are required")
		return
	}
	if _, err := models.ParsePackageConfig(req.PackageID, req.Config); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.saveConfig(w, r.Context(), req.PackageID, func(ctx context.Context) error {
		return h.store.SavePackageConfig(ctx, req.PackageID, req.Config)
	})
}

func (h *Handlers) DeletePackageConfig(w http.ResponseWriter, r *http.Request) {
	h.deleteConfig(w, r, chi.URLParam(r, "packageID"), h.store.DeletePackageConfig)
}

func (h *Handlers) ListDomainVersions(w http.ResponseWriter, r *http.Request) {
	h.listVersions(w, r, "domain", chi.URLParam(r, "domain"))
}

func (h *Handlers) RestoreDomainVersion(w http.ResponseWriter, r *http.Request) {
	h.restoreVersion(w, r, "domain", chi.URLParam(r, "domain"))
}

func (h *Handlers) ListCountryVersions(w http.ResponseWriter, r *http.Request) {
	h.listVersions(w, r, "country", chi.URLParam(r, "country"))
}

func (h *Handlers) RestoreCountryVersion(w http.ResponseWriter, r *http.Request) {
	h.restoreVersion(w, r, "country", chi.URLParam(r, "country"))
}

func (h *Handlers) ListPackageVersions(w http.ResponseWriter, r *http.Request) {
	h.listVersions(w, r, "package", chi.URLParam(r, "packageID"))
}

func (h *Handlers) RestorePackageVersion(w http.ResponseWriter, r *http.Request) {
	h.restoreVersion(w, r, "package", chi.URLParam(r, "packageID"))
}

func (h *Handlers) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.store.Setting(r.Context(), key)
	if err != nil {
		h.respondStoreError(w, err, "failed to load setting")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (h *Handlers) SaveSetting(w http.ResponseWriter, r *http.Request) {
	var req SettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		h.respondError(w, http.StatusBadRequest, "key is required")
		return
	}
	if err := h.store.SetSetting(r.Context(), req.Key, req.Value); err != nil {
		h.logger.Error("failed to save setting", "error", err, "key", req.Key)
		h.respondError(w, http.StatusInternalServerError, "failed to save setting")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "success", "key": req.Key})
}

func (h *Handlers) saveConfig(w http.ResponseWriter, ctx context.Context, key string, save func(context.Context) error) {
	if err := save(ctx); err != nil {
		h.logger.Error("failed to save config", "error", err, "key", key)
		h.respondError(w, http.StatusInternalServerError, "failed to save config")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handlers) deleteConfig(w http.ResponseWriter, r *http.Request, key string, del func(context.Context, string) error) {
	if err := del(r.Context(), key); err != nil {
		h.respondStoreError(w, err, "failed to delete config")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handlers) listVersions(w http.ResponseWriter, r *http.Request, configType, configID string) {
	versions, err := h.store.ListVersions(r.Context(), configType, configID)
	if err != nil {
		h.logger.Error("failed to list versions", "error", err, "config_type", configType, "config_id", configID)
		h.respondError(w, http.StatusInternalServerError, "failed to list versions")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_type": configType,
		"config_id":   configID,
		"versions":    versions,
	})
}

func (h *Handlers) restoreVersion(w http.ResponseWriter, r *http.Request, configType, configID string) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid version number")
		return
	}
	if err := h.store.RestoreVersion(r.Context(), configType, configID, version); err != nil {
		h.respondStoreError(w, err, "failed to restore version")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"version": version,
	})
}

func (h *Handlers) respondStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Error(message, "error", err)
	h.respondError(w, http.StatusInternalServerError, message)
}
