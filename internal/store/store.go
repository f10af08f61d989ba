package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/market"
	"github.com/russross/meddler"
)

// Compile-time checks to ensure Store implements the market store interfaces.
var (
	_ market.EntityStore  = (*Store)(nil)
	_ market.EntityReader = (*Store)(nil)
)

const (
	// DefaultListLimit is used when a listing does not specify a limit.
	DefaultListLimit = 100
	// MaxListLimit caps the page size of listings.
	MaxListLimit = 1000
)

// Store keeps the Request and Offer projections in SQLite.
// Every mutation is a single SQL statement, so it is atomic per record.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// NewStore creates an entity store over an already migrated database.
func NewStore(sqlDB *sql.DB, log *logger.Logger) *Store {
	return &Store{
		db:  sqlDB,
		log: log.WithComponent(common.ComponentEntityStore),
	}
}

// UpsertRequest inserts the request or, for a replayed transaction, refreshes the
// event payload while keeping lifecycle, locked seller and update time as projected.
func (s *Store) UpsertRequest(ctx context.Context, req *market.Request) error {
	start := time.Now()
	defer observeOp("upsert_request", start)

	images, err := marshalList(req.Images)
	if err != nil {
		return fmt.Errorf("failed to encode request images: %w", err)
	}
	sellerIDs, err := marshalList(req.SellerIDs)
	if err != nil {
		return fmt.Errorf("failed to encode request seller ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO requests (
			transaction_hash, address, event_name, signature, block_number, block_timestamp,
			request_id, buyer_address, images, lifecycle, request_name, description,
			latitude, longitude, buyer_id, seller_ids, sellers_price_quote,
			locked_seller_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_hash) DO UPDATE SET
			address = excluded.address,
			event_name = excluded.event_name,
			signature = excluded.signature,
			block_number = excluded.block_number,
			block_timestamp = excluded.block_timestamp,
			request_id = excluded.request_id,
			buyer_address = excluded.buyer_address,
			images = excluded.images,
			request_name = excluded.request_name,
			description = excluded.description,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			buyer_id = excluded.buyer_id,
			seller_ids = excluded.seller_ids,
			sellers_price_quote = excluded.sellers_price_quote,
			created_at = excluded.created_at`,
		req.TransactionHash.Hex(), req.Address.Hex(), req.EventName, req.Signature.Hex(),
		req.BlockNumber, req.BlockTimestamp, req.RequestID, req.BuyerAddress.Hex(), images,
		uint8(req.Lifecycle), req.RequestName, req.Description, req.Latitude, req.Longitude,
		req.BuyerID, sellerIDs, req.SellersPriceQuote, req.LockedSellerID, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert request %s: %w", req.RequestID, err)
	}

	s.log.Debugw("request upserted", "request_id", req.RequestID, "tx", req.TransactionHash.Hex())

	return nil
}

// GetRequestByRequestID returns the most recent request carrying requestID.
func (s *Store) GetRequestByRequestID(ctx context.Context, requestID string) (*market.Request, error) {
	var req market.Request
	err := meddler.QueryRow(s.db, &req,
		`SELECT * FROM requests WHERE request_id = ? ORDER BY block_number DESC, id DESC LIMIT 1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, market.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request %s: %w", requestID, err)
	}

	return normalizeRequest(&req), nil
}

// AdvanceRequestLifecycle moves requests with requestID from one stage to the next,
// leaving rows in any other stage alone.
func (s *Store) AdvanceRequestLifecycle(ctx context.Context, requestID string,
	from, to market.Lifecycle) (bool, error) {
	start := time.Now()
	defer observeOp("advance_lifecycle", start)

	res, err := s.db.ExecContext(ctx,
		`UPDATE requests SET lifecycle = ? WHERE request_id = ? AND lifecycle = ?`,
		uint8(to), requestID, uint8(from))
	if err != nil {
		return false, fmt.Errorf("failed to advance request %s lifecycle: %w", requestID, err)
	}

	return affected(res)
}

// AcceptRequest marks requests with requestID accepted by sellerID.
func (s *Store) AcceptRequest(ctx context.Context, requestID, sellerID string, updatedAt uint64) (bool, error) {
	start := time.Now()
	defer observeOp("accept_request", start)

	res, err := s.db.ExecContext(ctx,
		`UPDATE requests SET lifecycle = ?, locked_seller_id = ?, updated_at = ? WHERE request_id = ?`,
		uint8(market.LifecycleAccepted), sellerID, updatedAt, requestID)
	if err != nil {
		return false, fmt.Errorf("failed to accept request %s: %w", requestID, err)
	}

	return affected(res)
}

// UpsertOffer inserts the offer or, for a replayed transaction, refreshes its
// payload while keeping the acceptance flag.
func (s *Store) UpsertOffer(ctx context.Context, offer *market.Offer) error {
	start := time.Now()
	defer observeOp("upsert_offer", start)

	images, err := marshalList(offer.Images)
	if err != nil {
		return fmt.Errorf("failed to encode offer images: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO offers (
			transaction_hash, address, event_name, signature, block_number, block_timestamp,
			offer_id, seller_address, store_name, price, request_id, images, seller_id, is_accepted
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_hash) DO UPDATE SET
			address = excluded.address,
			event_name = excluded.event_name,
			signature = excluded.signature,
			block_number = excluded.block_number,
			block_timestamp = excluded.block_timestamp,
			offer_id = excluded.offer_id,
			seller_address = excluded.seller_address,
			store_name = excluded.store_name,
			price = excluded.price,
			request_id = excluded.request_id,
			images = excluded.images,
			seller_id = excluded.seller_id`,
		offer.TransactionHash.Hex(), offer.Address.Hex(), offer.EventName, offer.Signature.Hex(),
		offer.BlockNumber, offer.BlockTimestamp, offer.OfferID, offer.SellerAddress.Hex(),
		offer.StoreName, offer.Price, offer.RequestID, images, offer.SellerID, offer.IsAccepted,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert offer %s: %w", offer.OfferID, err)
	}

	s.log.Debugw("offer upserted", "offer_id", offer.OfferID, "request_id", offer.RequestID,
		"tx", offer.TransactionHash.Hex())

	return nil
}

// GetOfferByOfferID returns the most recent offer carrying offerID.
func (s *Store) GetOfferByOfferID(ctx context.Context, offerID string) (*market.Offer, error) {
	var offer market.Offer
	err := meddler.QueryRow(s.db, &offer,
		`SELECT * FROM offers WHERE offer_id = ? ORDER BY block_number DESC, id DESC LIMIT 1`, offerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, market.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offer %s: %w", offerID, err)
	}

	return normalizeOffer(&offer), nil
}

// SetOfferAccepted sets the acceptance flag of offers with offerID.
func (s *Store) SetOfferAccepted(ctx context.Context, offerID string, accepted bool) (bool, error) {
	start := time.Now()
	defer observeOp("set_offer_accepted", start)

	res, err := s.db.ExecContext(ctx, `UPDATE offers SET is_accepted = ? WHERE offer_id = ?`, accepted, offerID)
	if err != nil {
		return false, fmt.Errorf("failed to update offer %s: %w", offerID, err)
	}

	return affected(res)
}

// ListRequests returns requests ordered by block number, newest first.
func (s *Store) ListRequests(ctx context.Context, filter market.RequestFilter) ([]*market.Request, error) {
	var (
		where []string
		args  []any
	)

	if filter.Lifecycle != nil {
		where = append(where, "lifecycle = ?")
		args = append(args, uint8(*filter.Lifecycle))
	}
	if filter.Buyer != nil {
		where = append(where, "buyer_address = ?")
		args = append(args, filter.Buyer.Hex())
	}

	query := "SELECT * FROM requests" + whereClause(where) + " ORDER BY block_number DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(filter.Limit), max(filter.Offset, 0))

	var requests []*market.Request
	if err := meddler.QueryAll(s.db, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	for _, r := range requests {
		normalizeRequest(r)
	}

	return requests, nil
}

// ListOffers returns offers ordered by block number, newest first.
func (s *Store) ListOffers(ctx context.Context, filter market.OfferFilter) ([]*market.Offer, error) {
	var (
		where []string
		args  []any
	)

	if filter.RequestID != "" {
		where = append(where, "request_id = ?")
		args = append(args, filter.RequestID)
	}
	if filter.Accepted != nil {
		where = append(where, "is_accepted = ?")
		args = append(args, *filter.Accepted)
	}

	query := "SELECT * FROM offers" + whereClause(where) + " ORDER BY block_number DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(filter.Limit), max(filter.Offset, 0))

	var offers []*market.Offer
	if err := meddler.QueryAll(s.db, &offers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}

	for _, o := range offers {
		normalizeOffer(o)
	}

	return offers, nil
}

// Counts returns the number of stored requests and offers.
func (s *Store) Counts(ctx context.Context) (uint64, uint64, error) {
	var requests, offers uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM requests), (SELECT COUNT(*) FROM offers)`).Scan(&requests, &offers)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count entities: %w", err)
	}

	return requests, offers, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n > 0, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}

	return " WHERE " + strings.Join(conds, " AND ")
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// marshalList encodes a list the same way the meddler json tag reads it back.
func marshalList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}

	return json.Marshal(list)
}

func normalizeRequest(r *market.Request) *market.Request {
	if r.Images == nil {
		r.Images = []string{}
	}
	if r.SellerIDs == nil {
		r.SellerIDs = []string{}
	}

	return r
}

func normalizeOffer(o *market.Offer) *market.Offer {
	if o.Images == nil {
		o.Images = []string{}
	}

	return o
}
