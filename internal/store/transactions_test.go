package store

import (
	"context"
	"testing"

	"github.com/safar/farmmarket/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmedSale(buyerID, farmerID string) models.Transaction {
	return models.Transaction{
		OfferID:     "offer-1",
		ListingID:   "listing-1",
		BuyerID:     buyerID,
		FarmerID:    farmerID,
		FinalPrice:  dec("18"),
		Quantity:    dec("50"),
		TotalAmount: dec("900"),
		Status:      models.TransactionStatusConfirmed,
	}
}

func TestCreateTransaction(t *testing.T) {
	s := newTestStores(t, testResultCap)
	ctx := context.Background()

	created, err := s.transactions.Create(ctx, confirmedSale("buyer-1", "farmer-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := s.transactions.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, dec("900").Equal(got.TotalAmount))
	assert.Equal(t, "farmer-1", got.FarmerID)
	assert.Equal(t, models.TransactionStatusConfirmed, got.Status)

	bad := confirmedSale("buyer-1", "farmer-1")
	bad.Status = "success"
	_, err = s.transactions.Create(ctx, bad)
	assert.True(t, IsValidation(err))
}

func TestTransactionStatusAndLists(t *testing.T) {
	s := newTestStores(t, testResultCap)
	ctx := context.Background()

	a, err := s.transactions.Create(ctx, confirmedSale("buyer-1", "farmer-1"))
	require.NoError(t, err)
	b, err := s.transactions.Create(ctx, confirmedSale("buyer-2", "farmer-1"))
	require.NoError(t, err)

	require.NoError(t, s.transactions.UpdateStatus(ctx, a.ID, models.TransactionStatusCompleted))
	got, err := s.transactions.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, got.Status)

	err = s.transactions.UpdateStatus(ctx, "missing", models.TransactionStatusCompleted)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	sales, err := s.transactions.ListByFarmer(ctx, "farmer-1")
	require.NoError(t, err)
	assert.Len(t, sales, 2)

	purchases, err := s.transactions.ListByBuyer(ctx, "buyer-2")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, b.ID, purchases[0].ID)

	byOffer, err := s.transactions.ListByOffer(ctx, "offer-1")
	require.NoError(t, err)
	assert.Len(t, byOffer, 2)
}
