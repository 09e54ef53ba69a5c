package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/V4T54L/visitor-insight/internal/adapter/metrics"
	"github.com/V4T54L/visitor-insight/internal/domain"
)

const visitorIDParam = "fullVisitorId"

// InsightLookup answers the insight question for a single visitor.
type InsightLookup interface {
	Lookup(ctx context.Context, visitorID string) (*domain.VisitorInsight, error)
}

// InsightResponse is the wire shape of a visitor insight. Field names and the
// quoted booleans are what existing clients parse.
type InsightResponse struct {
	FullVisitorID    *big.Int `json:"fullVisitorId"`
	AddressChanged   string   `json:"adddress_changed"`
	IsOrderPlaced    string   `json:"is_order_palced"`
	IsOrderDelivered string   `json:"is_order_delivered"`
	ApplicationType  string   `json:"application_type"`
}

// ErrorResponse is the body of every non-2xx answer from the insight route.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewInsightResponse renders insight for the wire.
func NewInsightResponse(insight *domain.VisitorInsight) InsightResponse {
	return InsightResponse{
		FullVisitorID:    insight.VisitorID,
		AddressChanged:   strconv.FormatBool(insight.AddressChanged),
		IsOrderPlaced:    strconv.FormatBool(insight.OrderPlaced),
		IsOrderDelivered: strconv.FormatBool(insight.OrderDelivered),
		ApplicationType:  insight.ApplicationType,
	}
}

// InsightHandler handles POST /api?fullVisitorId=<digits>.
type InsightHandler struct {
	lookup  InsightLookup
	logger  *slog.Logger
	metrics *metrics.InsightMetrics
}

// NewInsightHandler creates a new InsightHandler.
func NewInsightHandler(lookup InsightLookup, logger *slog.Logger, m *metrics.InsightMetrics) *InsightHandler {
	return &InsightHandler{
		lookup:  lookup,
		logger:  logger,
		metrics: m,
	}
}

// ServeHTTP looks up the visitor named by the fullVisitorId query parameter.
func (h *InsightHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	visitorID := r.URL.Query().Get(visitorIDParam)

	insight, err := h.lookup.Lookup(r.Context(), visitorID)
	if err != nil {
		kind := domain.KindOf(err)
		h.count(kind)
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("insight lookup failed", "visitor_id", visitorID, "kind", kind, "error", err)
		} else {
			h.logger.Info("insight lookup rejected", "visitor_id", visitorID, "kind", kind, "error", err)
		}
		writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: kind}, h.logger)
		return
	}

	h.count("ok")
	writeJSON(w, http.StatusOK, NewInsightResponse(insight), h.logger)
}

func (h *InsightHandler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	}
}

// StatusFor maps an error onto its HTTP status by error kind.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInconsistentData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAuth):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}
