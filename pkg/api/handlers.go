package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/internal/store"
	"github.com/goran-ethernal/MarketSync/internal/syncer"
	"github.com/goran-ethernal/MarketSync/pkg/market"
)

// StatusReader reports synchronization progress.
type StatusReader interface {
	Status(ctx context.Context) (syncer.Status, error)
}

// Handler handles HTTP requests for the API.
type Handler struct {
	reader market.EntityReader
	status StatusReader
	log    *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(reader market.EntityReader, status StatusReader, log *logger.Logger) *Handler {
	return &Handler{
		reader: reader,
		status: status,
		log:    log,
	}
}

// Health reports whether the entity store is readable.
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Timestamp: time.Now().UTC()}

	requests, offers, err := h.reader.Counts(r.Context())
	if err != nil {
		h.log.Warnw("health check failed", "error", err)
		resp.Status = "unhealthy"
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Requests = requests
	resp.Offers = offers
	respondJSON(w, http.StatusOK, resp)
}

// GetCursor returns the cursor, the chain head and the lag between them.
// @Summary Synchronization status
// @Tags Sync
// @Produce json
// @Success 200 {object} syncer.Status
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/cursor [get]
func (h *Handler) GetCursor(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		respondError(w, http.StatusServiceUnavailable, "synchronizer is not running in this process")
		return
	}

	st, err := h.status.Status(r.Context())
	if err != nil {
		h.log.Errorw("failed to read sync status", "error", err)
		respondError(w, http.StatusServiceUnavailable, "failed to read sync status")
		return
	}

	respondJSON(w, http.StatusOK, st)
}

// ListRequests returns requests, newest block first.
// @Summary List requests
// @Tags Requests
// @Produce json
// @Param lifecycle query string false "created, has_offers, accepted or 0-2"
// @Param buyer query string false "Buyer address"
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Rows to skip" default(0)
// @Success 200 {object} RequestsResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/requests [get]
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, offset, err := parsePage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := market.RequestFilter{Limit: limit, Offset: offset}

	if v := q.Get("lifecycle"); v != "" {
		lifecycle, err := market.ParseLifecycle(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Lifecycle = &lifecycle
	}

	if v := q.Get("buyer"); v != "" {
		if !common.IsHexAddress(v) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid buyer address: %s", v))
			return
		}
		buyer := common.HexToAddress(v)
		filter.Buyer = &buyer
	}

	requests, err := h.reader.ListRequests(r.Context(), filter)
	if err != nil {
		h.log.Errorw("failed to list requests", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}

	respondJSON(w, http.StatusOK, RequestsResponse{
		Requests:   requests,
		Pagination: page(limit, offset, len(requests)),
	})
}

// GetRequest returns the latest request with the given id.
// @Summary Get request
// @Tags Requests
// @Produce json
// @Param requestId path string true "Request id"
// @Success 200 {object} market.Request
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/requests/{requestId} [get]
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("requestId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.reader.GetRequestByRequestID(r.Context(), id)
	if errors.Is(err, market.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("request %s not found", id))
		return
	}
	if err != nil {
		h.log.Errorw("failed to get request", "request_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get request")
		return
	}

	respondJSON(w, http.StatusOK, req)
}

// ListRequestOffers returns the offers made for a request.
// @Summary List offers of a request
// @Tags Requests
// @Produce json
// @Param requestId path string true "Request id"
// @Success 200 {object} OffersResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/requests/{requestId}/offers [get]
func (h *Handler) ListRequestOffers(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("requestId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.listOffers(w, r, id)
}

// ListOffers returns offers, newest block first.
// @Summary List offers
// @Tags Offers
// @Produce json
// @Param request_id query string false "Request id"
// @Param accepted query bool false "Acceptance flag"
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Rows to skip" default(0)
// @Success 200 {object} OffersResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/offers [get]
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	requestID := ""
	if v := r.URL.Query().Get("request_id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		requestID = id
	}

	h.listOffers(w, r, requestID)
}

func (h *Handler) listOffers(w http.ResponseWriter, r *http.Request, requestID string) {
	limit, offset, err := parsePage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := market.OfferFilter{RequestID: requestID, Limit: limit, Offset: offset}

	if v := r.URL.Query().Get("accepted"); v != "" {
		accepted, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid accepted: %s", v))
			return
		}
		filter.Accepted = &accepted
	}

	offers, err := h.reader.ListOffers(r.Context(), filter)
	if err != nil {
		h.log.Errorw("failed to list offers", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list offers")
		return
	}

	respondJSON(w, http.StatusOK, OffersResponse{
		Offers:     offers,
		Pagination: page(limit, offset, len(offers)),
	})
}

// GetOffer returns the latest offer with the given id.
// @Summary Get offer
// @Tags Offers
// @Produce json
// @Param offerId path string true "Offer id"
// @Success 200 {object} market.Offer
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/offers/{offerId} [get]
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("offerId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	offer, err := h.reader.GetOfferByOfferID(r.Context(), id)
	if errors.Is(err, market.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("offer %s not found", id))
		return
	}
	if err != nil {
		h.log.Errorw("failed to get offer", "offer_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get offer")
		return
	}

	respondJSON(w, http.StatusOK, offer)
}

// parseID normalizes a non-negative base-10 identifier the way it is stored.
func parseID(raw string) (string, error) {
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok || n.Sign() < 0 {
		return "", fmt.Errorf("invalid id %q: must be a non-negative integer", raw)
	}

	return n.String(), nil
}

func parsePage(r *http.Request) (limit, offset int, err error) {
	limit = store.DefaultListLimit

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > store.MaxListLimit {
			return 0, 0, fmt.Errorf("invalid limit: must be between 1 and %d", store.MaxListLimit)
		}
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("invalid offset: must be non-negative")
		}
	}

	return limit, offset, nil
}

func page(limit, offset, count int) Pagination {
	return Pagination{
		Limit:   limit,
		Offset:  offset,
		Count:   count,
		HasMore: count == limit,
	}
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
