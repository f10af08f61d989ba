package market

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Lifecycle is the stage of a Request in the marketplace.
type Lifecycle uint8

const (
	// LifecycleCreated is the initial state of a freshly created request.
	LifecycleCreated Lifecycle = 0
	// LifecycleHasOffers marks a request that received at least one offer.
	LifecycleHasOffers Lifecycle = 1
	// LifecycleAccepted is terminal: the buyer locked a seller.
	LifecycleAccepted Lifecycle = 2
)

// String returns the name of the lifecycle stage.
func (l Lifecycle) String() string {
	switch l {
	case LifecycleCreated:
		return "created"
	case LifecycleHasOffers:
		return "has_offers"
	case LifecycleAccepted:
		return "accepted"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(l))
	}
}

// IsValid reports whether l is one of the known stages.
func (l Lifecycle) IsValid() bool {
	return l <= LifecycleAccepted
}

// ParseLifecycle accepts either the numeric value or the stage name.
func ParseLifecycle(s string) (Lifecycle, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "created":
		return LifecycleCreated, nil
	case "has_offers", "hasoffers":
		return LifecycleHasOffers, nil
	case "accepted":
		return LifecycleAccepted, nil
	}

	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil || !Lifecycle(v).IsValid() {
		return 0, fmt.Errorf("invalid lifecycle %q", s)
	}

	return Lifecycle(v), nil
}

// EventName identifies one of the marketplace contract events.
type EventName string

const (
	EventRequestCreated  EventName = "RequestCreated"
	EventOfferCreated    EventName = "OfferCreated"
	EventRequestAccepted EventName = "RequestAccepted"
	EventOfferAccepted   EventName = "OfferAccepted"
)

// ProjectionOrder is the order in which event batches of a window are applied.
// Offers must see the requests created in the same window, and acceptances
// must see both.
var ProjectionOrder = []EventName{
	EventRequestCreated,
	EventOfferCreated,
	EventRequestAccepted,
	EventOfferAccepted,
}

// LogEntry is a decoded contract event together with its provenance.
type LogEntry struct {
	Address        common.Address
	TxHash         common.Hash
	BlockNumber    uint64
	BlockHash      common.Hash
	LogIndex       uint
	EventName      EventName
	Signature      common.Hash
	Fields         map[string]any
	BlockTimestamp uint64
}

// Request is the projected state of a buyer request.
// Uses meddler tags for struct-to-db mapping.
type Request struct {
	ID                int64          `meddler:"id,pk" json:"-"`
	TransactionHash   common.Hash    `meddler:"transaction_hash,hash" json:"transactionHash"`
	Address           common.Address `meddler:"address,address" json:"address"`
	EventName         string         `meddler:"event_name" json:"eventName"`
	Signature         common.Hash    `meddler:"signature,hash" json:"signature"`
	BlockNumber       uint64         `meddler:"block_number" json:"blockNumber"`
	BlockTimestamp    uint64         `meddler:"block_timestamp" json:"blockTimestamp"`
	RequestID         string         `meddler:"request_id" json:"requestId"`
	BuyerAddress      common.Address `meddler:"buyer_address,address" json:"buyerAddress"`
	Images            []string       `meddler:"images,json" json:"images"`
	Lifecycle         Lifecycle      `meddler:"lifecycle" json:"lifecycle"`
	RequestName       string         `meddler:"request_name" json:"requestName"`
	Description       string         `meddler:"description" json:"description"`
	Latitude          string         `meddler:"latitude" json:"latitude"`
	Longitude         string         `meddler:"longitude" json:"longitude"`
	BuyerID           string         `meddler:"buyer_id" json:"buyerId"`
	SellerIDs         []string       `meddler:"seller_ids,json" json:"sellerIds"`
	SellersPriceQuote string         `meddler:"sellers_price_quote" json:"sellersPriceQuote"`
	LockedSellerID    string         `meddler:"locked_seller_id" json:"lockedSellerId"`
	CreatedAt         uint64         `meddler:"created_at" json:"createdAt"`
	UpdatedAt         uint64         `meddler:"updated_at" json:"updatedAt"`
}

// Offer is the projected state of a seller offer.
type Offer struct {
	ID              int64          `meddler:"id,pk" json:"-"`
	TransactionHash common.Hash    `meddler:"transaction_hash,hash" json:"transactionHash"`
	Address         common.Address `meddler:"address,address" json:"address"`
	EventName       string         `meddler:"event_name" json:"eventName"`
	Signature       common.Hash    `meddler:"signature,hash" json:"signature"`
	BlockNumber     uint64         `meddler:"block_number" json:"blockNumber"`
	BlockTimestamp  uint64         `meddler:"block_timestamp" json:"blockTimestamp"`
	OfferID         string         `meddler:"offer_id" json:"offerId"`
	SellerAddress   common.Address `meddler:"seller_address,address" json:"sellerAddress"`
	StoreName       string         `meddler:"store_name" json:"storeName"`
	Price           string         `meddler:"price" json:"price"`
	RequestID       string         `meddler:"request_id" json:"requestId"`
	Images          []string       `meddler:"images,json" json:"images"`
	SellerID        string         `meddler:"seller_id" json:"sellerId"`
	IsAccepted      bool           `meddler:"is_accepted" json:"isAccepted"`
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	Lifecycle *Lifecycle
	Buyer     *common.Address
	Limit     int
	Offset    int
}

// OfferFilter narrows offer listings.
type OfferFilter struct {
	RequestID string
	Accepted  *bool
	Limit     int
	Offset    int
}
