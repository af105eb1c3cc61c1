package http

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	pricing *usecase.PricingService
	display config.DisplayConfig
	logger  zerolog.Logger
}

// NewHandler creates a new HTTP handler. pricing may be nil when no trained
// model is available; price endpoints then answer 503.
func NewHandler(pricing *usecase.PricingService, display config.DisplayConfig, logger zerolog.Logger) *Handler {
	if display.USDRate <= 0 {
		display.USDRate = 1
		display.Currency = "USD"
	}
	return &Handler{
		pricing: pricing,
		display: display,
		logger:  logger,
	}
}

// PredictResponse is a prediction with its display-currency rendering
type PredictResponse struct {
	*domain.PredictionResult
	DisplayPrice float64      `json:"display_price"`
	Currency     string       `json:"currency"`
	Chart        domain.Chart `json:"chart"`
}

// PhoneView is a catalog row with its display-currency price
type PhoneView struct {
	domain.PhoneRecord
	DisplayPrice float64 `json:"display_price"`
}

// BrandPhonesView is the catalog rows of one brand
type BrandPhonesView struct {
	Brand  string      `json:"brand"`
	Phones []PhoneView `json:"phones"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      "pricelens-backend",
		"version":      "1.0.0",
		"model_loaded": h.pricing != nil,
	})
}

// Predict handles price estimation requests.
// Accepts JSON or form-encoded bodies.
func (h *Handler) Predict(c *gin.Context) {
	if !h.requireModel(c) {
		return
	}

	var req domain.PredictRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
			"kind":  domain.KindInvalidInput.String(),
		})
		return
	}

	result, err := h.pricing.Predict(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	chart := usecase.ScaleChart(h.pricing.PredictionChart(result), h.display.USDRate)
	chart.YTitle = "Price (" + h.display.Currency + ")"

	c.JSON(http.StatusOK, PredictResponse{
		PredictionResult: result,
		DisplayPrice:     h.toDisplay(result.CalibratedPrice),
		Currency:         h.display.Currency,
		Chart:            chart,
	})
}

// Phones lists the catalog grouped by brand
func (h *Handler) Phones(c *gin.Context) {
	if !h.requireModel(c) {
		return
	}
	groups := h.pricing.Phones()
	views := make([]BrandPhonesView, len(groups))
	for i, g := range groups {
		views[i] = BrandPhonesView{Brand: g.Brand, Phones: make([]PhoneView, len(g.Phones))}
		for j, p := range g.Phones {
			views[i].Phones[j] = PhoneView{PhoneRecord: p, DisplayPrice: h.toDisplay(p.PriceUSD)}
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"currency": h.display.Currency,
		"brands":   views,
	})
}

// Brands lists the brands the model was trained on
func (h *Handler) Brands(c *gin.Context) {
	if !h.requireModel(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": h.pricing.Brands()})
}

// MarketStats returns per-brand price statistics in USD
func (h *Handler) MarketStats(c *gin.Context) {
	if !h.requireModel(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"currency": "USD",
		"stats":    h.pricing.MarketStats(),
	})
}

// MarketChart returns the market overview chart in the display currency
func (h *Handler) MarketChart(c *gin.Context) {
	if !h.requireModel(c) {
		return
	}
	chart := usecase.ScaleChart(h.pricing.MarketChart(), h.display.USDRate)
	chart.YTitle = "Price (" + h.display.Currency + ")"
	c.JSON(http.StatusOK, chart)
}

// ModelMetrics returns the holdout metrics recorded at training time
func (h *Handler) ModelMetrics(c *gin.Context) {
	if !h.requireModel(c) {
		return
	}
	c.JSON(http.StatusOK, h.pricing.Metrics())
}

// toDisplay converts USD to the display currency, rounded to whole units.
func (h *Handler) toDisplay(usd float64) float64 {
	return math.Round(usd * h.display.USDRate)
}

func (h *Handler) requireModel(c *gin.Context) bool {
	if h.pricing != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "Pricing model not configured - run `pricectl train` first",
		"kind":  domain.KindModelUnavailable.String(),
	})
	return false
}

// respondError maps pipeline errors to status codes. Unclassified errors are
// logged and reported as a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var perr *domain.PredictionError
	if !errors.As(err, &perr) {
		h.logger.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("Prediction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch perr.Kind {
	case domain.KindInvalidInput:
		status = http.StatusBadRequest
	case domain.KindModelUnavailable:
		status = http.StatusServiceUnavailable
	case domain.KindMalformedRecord:
		status = http.StatusUnprocessableEntity
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("Prediction failed")
	}

	c.JSON(status, gin.H{
		"error": perr.Error(),
		"kind":  perr.Kind.String(),
	})
}
