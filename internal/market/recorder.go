package market

import (
	"context"
	"fmt"

	"github.com/safar/farmmarket/internal/models"
	"github.com/safar/farmmarket/internal/store"
	"github.com/shopspring/decimal"
)

type transactionStore interface {
	Create(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
	Get(ctx context.Context, id string) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) error
}

// Recorder writes the settlement record for an accepted offer and moves it
// through settlement afterwards.
type Recorder struct {
	transactions transactionStore
}

func NewRecorder(transactions transactionStore) *Recorder {
	return &Recorder{transactions: transactions}
}

// RecordAcceptance derives the transaction for offer on listing at
// finalPrice. The total is finalPrice × offer quantity, unrounded.
func (r *Recorder) RecordAcceptance(ctx context.Context, offer models.Offer, listing models.Listing, finalPrice decimal.Decimal) (*models.Transaction, error) {
	if !finalPrice.IsPositive() {
		return nil, &store.ValidationError{Field: "finalPrice", Message: "must be greater than zero"}
	}

	tx, err := r.transactions.Create(ctx, models.Transaction{
		OfferID:     offer.ID,
		ListingID:   listing.ID,
		BuyerID:     offer.BuyerID,
		FarmerID:    listing.OwnerID,
		FinalPrice:  finalPrice,
		Quantity:    offer.Quantity,
		TotalAmount: finalPrice.Mul(offer.Quantity),
		Status:      models.TransactionStatusConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("record acceptance of offer %s: %w", offer.ID, err)
	}
	return tx, nil
}

// Settle moves a Confirmed transaction to Completed or Cancelled. Only the
// farmer on the record may settle it.
func (r *Recorder) Settle(ctx context.Context, farmerID, txID string, status models.TransactionStatus) (*models.Transaction, error) {
	tx, err := r.transactions.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.FarmerID != farmerID {
		return nil, ErrForbidden
	}
	if !tx.Status.CanSettle(status) {
		return nil, fmt.Errorf("%w: transaction %s to %s", ErrInvalidTransition, tx.Status, status)
	}

	if err := r.transactions.UpdateStatus(ctx, txID, status); err != nil {
		return nil, err
	}
	tx.Status = status
	return tx, nil
}
