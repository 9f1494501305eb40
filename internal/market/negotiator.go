// Package market holds the negotiation rules: how a listing owner's
// response moves an offer, and what accepting one writes.
package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/safar/farmmarket/internal/models"
	"github.com/safar/farmmarket/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("not permitted for this user")
)

type offerStore interface {
	Get(ctx context.Context, id string) (*models.Offer, error)
	UpdateStatus(ctx context.Context, id string, status models.OfferStatus, counterPrice *decimal.Decimal) error
}

type listingStore interface {
	Get(ctx context.Context, id string) (*models.Listing, error)
	MarkSold(ctx context.Context, id string) error
}

type Negotiator struct {
	offers   offerStore
	listings listingStore
	recorder *Recorder
	logger   *zap.Logger
}

func NewNegotiator(offers offerStore, listings listingStore, recorder *Recorder, logger *zap.Logger) *Negotiator {
	return &Negotiator{
		offers:   offers,
		listings: listings,
		recorder: recorder,
		logger:   logger,
	}
}

// Outcome is what a response wrote. Transaction is set only for an
// acceptance.
type Outcome struct {
	Offer       models.Offer        `json:"offer"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// Respond applies the listing owner's action to the offer.
//
// Accepting records a transaction at counterPrice when given, otherwise at
// the offer's standing counter price, otherwise at its offer price, and
// then marks the listing sold. The three writes are independent: a failure
// part way leaves the earlier ones in place, and the partial Outcome is
// returned together with the error. Whether the listing is still open, or
// another offer on it was already accepted, is not checked.
func (n *Negotiator) Respond(ctx context.Context, offerID string, action models.OfferStatus, counterPrice *decimal.Decimal) (*Outcome, error) {
	if counterPrice != nil && !counterPrice.IsPositive() {
		return nil, &store.ValidationError{Field: "counterPrice", Message: "must be greater than zero"}
	}
	if action == models.OfferStatusCountered && counterPrice == nil {
		return nil, &store.ValidationError{Field: "counterPrice", Message: "is required to counter"}
	}

	offer, err := n.offers.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.Status.CanRespond(action) {
		return nil, fmt.Errorf("%w: offer %s to %s", ErrInvalidTransition, offer.Status, action)
	}

	switch action {
	case models.OfferStatusAccepted:
		return n.accept(ctx, offer, counterPrice)

	case models.OfferStatusCountered:
		if err := n.offers.UpdateStatus(ctx, offer.ID, action, counterPrice); err != nil {
			return nil, err
		}
		price := *counterPrice
		offer.Status = action
		offer.CounterPrice = &price
		return &Outcome{Offer: *offer}, nil

	case models.OfferStatusRejected:
		if err := n.offers.UpdateStatus(ctx, offer.ID, action, nil); err != nil {
			return nil, err
		}
		offer.Status = action
		return &Outcome{Offer: *offer}, nil

	case models.OfferStatusPending:
	}
	return nil, fmt.Errorf("%w: offer %s to %s", ErrInvalidTransition, offer.Status, action)
}

// RespondAsOwner is Respond for a caller who must own the offer's listing.
func (n *Negotiator) RespondAsOwner(ctx context.Context, ownerID, offerID string, action models.OfferStatus, counterPrice *decimal.Decimal) (*Outcome, error) {
	offer, err := n.offers.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	listing, err := n.listings.Get(ctx, offer.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return n.Respond(ctx, offerID, action, counterPrice)
}

// AnswerCounter lets the buyer who made the offer accept or reject the
// listing owner's counter. Accepting settles at the counter price.
func (n *Negotiator) AnswerCounter(ctx context.Context, buyerID, offerID string, accept bool) (*Outcome, error) {
	offer, err := n.offers.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	if offer.Status != models.OfferStatusCountered {
		return nil, fmt.Errorf("%w: offer is %s, not countered", ErrInvalidTransition, offer.Status)
	}

	if accept {
		return n.accept(ctx, offer, nil)
	}

	if err := n.offers.UpdateStatus(ctx, offer.ID, models.OfferStatusRejected, nil); err != nil {
		return nil, err
	}
	offer.Status = models.OfferStatusRejected
	return &Outcome{Offer: *offer}, nil
}

func (n *Negotiator) accept(ctx context.Context, offer *models.Offer, counterPrice *decimal.Decimal) (*Outcome, error) {
	finalPrice := offer.OfferPrice
	switch {
	case counterPrice != nil:
		finalPrice = *counterPrice
	case offer.CounterPrice != nil:
		finalPrice = *offer.CounterPrice
	}

	if err := n.offers.UpdateStatus(ctx, offer.ID, models.OfferStatusAccepted, nil); err != nil {
		return nil, err
	}
	offer.Status = models.OfferStatusAccepted
	outcome := &Outcome{Offer: *offer}

	listing, err := n.listings.Get(ctx, offer.ListingID)
	if err != nil {
		return outcome, fmt.Errorf("load listing for accepted offer %s: %w", offer.ID, err)
	}

	tx, err := n.recorder.RecordAcceptance(ctx, *offer, *listing, finalPrice)
	if err != nil {
		return outcome, err
	}
	outcome.Transaction = tx

	if err := n.listings.MarkSold(ctx, listing.ID); err != nil {
		n.logger.Error("listing not marked sold after acceptance",
			zap.String("listing_id", listing.ID),
			zap.String("offer_id", offer.ID),
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
		return outcome, fmt.Errorf("mark listing %s sold: %w", listing.ID, err)
	}

	n.logger.Info("offer accepted",
		zap.String("offer_id", offer.ID),
		zap.String("listing_id", listing.ID),
		zap.String("transaction_id", tx.ID),
		zap.String("final_price", finalPrice.String()))
	return outcome, nil
}
