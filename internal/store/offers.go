package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/safar/farmmarket/internal/backend"
	"github.com/safar/farmmarket/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Offers struct {
	docs      backend.Documents
	listings  *Listings
	logger    *zap.Logger
	resultCap int
}

func NewOffers(docs backend.Documents, listings *Listings, logger *zap.Logger, resultCap int) *Offers {
	return &Offers{docs: docs, listings: listings, logger: logger, resultCap: resultCap}
}

// Create stores a buyer's offer. The stored status is always Pending,
// whatever the caller put in offer.Status.
func (s *Offers) Create(ctx context.Context, offer models.Offer) (*models.Offer, error) {
	switch {
	case offer.ListingID == "":
		return nil, invalid("listingId", "is required")
	case offer.BuyerID == "":
		return nil, invalid("buyerId", "is required")
	case !offer.OfferPrice.IsPositive():
		return nil, invalid("offerPrice", "must be greater than zero")
	case !offer.Quantity.IsPositive():
		return nil, invalid("quantity", "must be greater than zero")
	}

	listing, err := s.listings.Get(ctx, offer.ListingID)
	if err != nil {
		return nil, err
	}
	if offer.Quantity.GreaterThan(listing.Quantity) {
		return nil, invalid("quantity", fmt.Sprintf("exceeds the %s %s listed", listing.Quantity, listing.Unit))
	}

	offer.ID = uuid.NewString()
	offer.Status = models.OfferStatusPending
	offer.CounterPrice = nil
	offer.CreatedAt = models.Now()

	doc, err := backend.NewDocument(offer.ID, offer.CreatedAt.Time, offer)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Set(ctx, models.CollectionOffers, doc); err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}

	return &offer, nil
}

func (s *Offers) Get(ctx context.Context, id string) (*models.Offer, error) {
	doc, err := s.docs.Get(ctx, models.CollectionOffers, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}

	var offer models.Offer
	if err := doc.Decode(&offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

// UpdateStatus writes status and, when given, counterPrice. It does not
// check the transition; that is the negotiator's job.
func (s *Offers) UpdateStatus(ctx context.Context, id string, status models.OfferStatus, counterPrice *decimal.Decimal) error {
	if !status.Valid() {
		return invalid("status", fmt.Sprintf("unknown offer status %q", status))
	}

	fields := map[string]interface{}{"status": status}
	if counterPrice != nil {
		if !counterPrice.IsPositive() {
			return invalid("counterPrice", "must be greater than zero")
		}
		fields["counterPrice"] = *counterPrice
	}

	if err := s.docs.Update(ctx, models.CollectionOffers, id, fields); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return ErrOfferNotFound
		}
		return fmt.Errorf("update offer status: %w", err)
	}
	return nil
}

func (s *Offers) ListByListing(ctx context.Context, listingID string) ([]models.Offer, error) {
	return s.list(ctx, "listingId", listingID)
}

func (s *Offers) ListByBuyer(ctx context.Context, buyerID string) ([]models.Offer, error) {
	return s.list(ctx, "buyerId", buyerID)
}

func (s *Offers) list(ctx context.Context, field, value string) ([]models.Offer, error) {
	docs, err := s.docs.Query(ctx, backend.Query{
		Collection: models.CollectionOffers,
		Filters:    []backend.Filter{backend.Where(field, backend.OpEqual, value)},
		Limit:      s.resultCap,
	})
	if err != nil {
		return nil, fmt.Errorf("list offers by %s: %w", field, err)
	}
	return decodeOffers(docs)
}

// ListForFarmer returns the offers made on any listing farmerID owns,
// optionally only those in status. Listing ids are resolved first and the
// offers fetched in batches the size of the backend's "in" limit.
func (s *Offers) ListForFarmer(ctx context.Context, farmerID string, status *models.OfferStatus) ([]models.Offer, error) {
	ids, err := s.listings.ownedIDs(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	var docs []backend.Document
	for _, batch := range batchIDs(ids, backend.MaxInValues) {
		found, err := s.docs.Query(ctx, offersForListingsQuery(batch, status))
		if err != nil {
			return nil, fmt.Errorf("list offers for farmer: %w", err)
		}
		docs = append(docs, found...)
	}

	return decodeOffers(sortNewestFirst(docs))
}

func (s *Offers) PendingForFarmer(ctx context.Context, farmerID string) ([]models.Offer, error) {
	pending := models.OfferStatusPending
	return s.ListForFarmer(ctx, farmerID, &pending)
}

func offersForListingsQuery(listingIDs []string, status *models.OfferStatus) backend.Query {
	q := backend.Query{
		Collection: models.CollectionOffers,
		Filters:    []backend.Filter{backend.Where("listingId", backend.OpIn, listingIDs)},
	}
	if status != nil {
		q.Filters = append(q.Filters, backend.Where("status", backend.OpEqual, *status))
	}
	return q
}

func batchIDs(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

func sortNewestFirst(docs []backend.Document) []backend.Document {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs
}

func decodeOffers(docs []backend.Document) ([]models.Offer, error) {
	offers := make([]models.Offer, 0, len(docs))
	for _, doc := range docs {
		var o models.Offer
		if err := doc.Decode(&o); err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, nil
}
