package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pricewatch/competitor-price-watcher/internal/analyzer"
	"github.com/pricewatch/competitor-price-watcher/internal/automation"
	"github.com/pricewatch/competitor-price-watcher/internal/calculator"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
	"github.com/pricewatch/competitor-price-watcher/internal/status"
)

// SquareMeterPriceRequest is the calculate-smp request body. A client that
// wants to follow progress supplies its own request_id and subscribes to the
// status stream before posting.
type SquareMeterPriceRequest struct {
	URL       string  `json:"url"`
	Thickness float64 `json:"thickness"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Country   string  `json:"country"`
	Quantity  float64 `json:"quantity"`
	RequestID string  `json:"request_id"`
}

// ShippingRequest is the calculate-shipping request body. Thickness and
// quantity override the package defaults when present.
type ShippingRequest struct {
	URL         string   `json:"url"`
	Country     string   `json:"country"`
	PackageType int      `json:"package_type"`
	Thickness   *float64 `json:"thickness"`
	Quantity    *float64 `json:"quantity"`
	RequestID   string   `json:"request_id"`
}

// CalculateSquareMeterPrice runs the square_meter_price category for the
// domain resolved from the request URL.
func (h *Handlers) CalculateSquareMeterPrice(w http.ResponseWriter, r *http.Request) {
	var req SquareMeterPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.Country == "" {
		req.Country = fallbackCountry
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	result, err := h.calc.Calculate(r.Context(), calculator.Request{
		RequestID: requestID,
		URL:       req.URL,
		Dimensions: models.Dimensions{
			Thickness: req.Thickness,
			Length:    req.Length,
			Width:     req.Width,
			Quantity:  req.Quantity,
		},
		Country:  req.Country,
		Category: "square_meter_price",
	})
	if err != nil {
		h.respondCalculationError(w, err)
		return
	}

	country := h.countryInfo(r, req.Country)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"status_code": http.StatusOK,
		"message":     "Square meter price calculated successfully",
		"data": map[string]interface{}{
			"request_id":      requestID,
			"price_excl_vat":  result.ExclVAT,
			"price_incl_vat":  result.InclVAT,
			"currency":        country.Currency,
			"currency_symbol": country.CurrencySymbol,
			"vat_rate":        country.VATRate,
		},
	})
}

// CalculateShipping runs the shipping category with dimensions pre-filled
// from the requested package configuration.
func (h *Handlers) CalculateShipping(w http.ResponseWriter, r *http.Request) {
	var req ShippingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.Country == "" {
		req.Country = fallbackCountry
	}
	if req.PackageType == 0 {
		req.PackageType = 1
	}
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	pkg, err := h.store.PackageConfig(r.Context(), strconv.Itoa(req.PackageType))
	if err != nil {
		h.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid package type: %d. Must be between 1 and 6.", req.PackageType))
		return
	}

	dims := models.FromPackage(pkg, req.Thickness, req.Quantity)

	result, err := h.calc.Calculate(r.Context(), calculator.Request{
		RequestID:  requestID,
		URL:        req.URL,
		Dimensions: dims,
		Country:    req.Country,
		Category:   "shipping",
	})
	if err != nil {
		h.respondCalculationError(w, err)
		return
	}

	country := h.countryInfo(r, req.Country)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"status_code": http.StatusOK,
		"message":     "Shipping costs calculated successfully",
		"data": map[string]interface{}{
			"request_id":      requestID,
			"price_excl_vat":  result.ExclVAT,
			"price_incl_vat":  result.InclVAT,
			"currency":        country.Currency,
			"currency_symbol": country.CurrencySymbol,
			"vat_rate":        country.VATRate,
			"package_info": map[string]interface{}{
				"type":        req.PackageType,
				"name":        pkg.Name,
				"description": pkg.Description,
				"quantity":    dims.Quantity,
				"dimensions":  fmt.Sprintf("%gx%g mm", pkg.Length, pkg.Width),
				"thickness":   dims.Thickness,
				"display":     pkg.Display,
			},
		},
	})
}

func (h *Handlers) respondCalculationError(w http.ResponseWriter, err error) {
	if errors.Is(err, calculator.ErrConfigurationMissing) || errors.Is(err, calculator.ErrDimensionMissing) {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondError(w, http.StatusInternalServerError, err.Error())
}

// countryInfo loads the country configuration for response metadata, falling
// back to the default country when the requested one is absent.
func (h *Handlers) countryInfo(r *http.Request, code string) *models.CountryConfig {
	country, err := h.store.CountryConfig(r.Context(), code)
	if err != nil && code != fallbackCountry {
		country, err = h.store.CountryConfig(r.Context(), fallbackCountry)
	}
	if err != nil || country == nil {
		return &models.CountryConfig{
			CountryCode:    code,
			Currency:       "EUR",
			CurrencySymbol: "€",
		}
	}
	return country
}

// StatusStream serves the request's status over SSE, polling the registry
// and suppressing duplicates by timestamp. A disconnect stops the stream but
// never the calculation behind it.
func (h *Handlers) StatusStream(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	if requestID == "" {
		h.respondError(w, http.StatusBadRequest, "request ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			update, ok := h.registry.Get(requestID)
			if !ok || !update.Timestamp.After(last) {
				continue
			}
			last = update.Timestamp
			if err := writeStatusEvent(w, update); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeStatusEvent(w http.ResponseWriter, update status.Update) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload)
	return err
}

// AnalyzeRequest is the form-analysis request body.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// AnalyzeForm loads the page in a fresh session and reports which form
// fields look like dimension inputs.
func (h *Handlers) AnalyzeForm(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	session, err := h.sessions(r.Context(), calculator.SessionOptions{})
	if err != nil {
		h.logger.Error("failed to open session for analysis", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to open automation session")
		return
	}
	defer session.Close()

	page := session.Page()
	if err := page.Goto(req.URL, automation.LoadStateLoad, 60*time.Second); err != nil {
		h.respondError(w, http.StatusBadGateway, fmt.Sprintf("failed to load %s", req.URL))
		return
	}
	html, err := page.Content()
	if err != nil {
		h.respondError(w, http.StatusBadGateway, "failed to capture page content")
		return
	}

	fields, err := analyzer.Analyze(html)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"url":    req.URL,
		"fields": fields,
	})
}
