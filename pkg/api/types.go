package api

import (
	"time"

	"github.com/goran-ethernal/MarketSync/pkg/market"
)

// Pagination describes the page returned by a listing.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

// RequestsResponse is a page of requests.
type RequestsResponse struct {
	Requests   []*market.Request `json:"requests"`
	Pagination Pagination        `json:"pagination"`
}

// OffersResponse is a page of offers.
type OffersResponse struct {
	Offers     []*market.Offer `json:"offers"`
	Pagination Pagination      `json:"pagination"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Requests  uint64    `json:"requests"`
	Offers    uint64    `json:"offers"`
}
