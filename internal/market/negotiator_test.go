package market

import (
	"context"
	"errors"
	"testing"

	"github.com/safar/farmmarket/internal/backend/memory"
	"github.com/safar/farmmarket/internal/models"
	"github.com/safar/farmmarket/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type NegotiatorSuite struct {
	suite.Suite

	ctx          context.Context
	docs         *memory.Documents
	listings     *store.Listings
	offers       *store.Offers
	transactions *store.Transactions
	recorder     *Recorder
	negotiator   *Negotiator

	listing *models.Listing
}

func TestNegotiatorSuite(t *testing.T) {
	suite.Run(t, new(NegotiatorSuite))
}

func (s *NegotiatorSuite) SetupTest() {
	logger := zaptest.NewLogger(s.T())
	s.ctx = context.Background()
	s.docs = memory.NewDocuments()
	objects := memory.NewObjects()

	s.listings = store.NewListings(s.docs, objects, logger, 50)
	s.offers = store.NewOffers(s.docs, s.listings, logger, 50)
	s.transactions = store.NewTransactions(s.docs, 50)
	s.recorder = NewRecorder(s.transactions)
	s.negotiator = NewNegotiator(s.offers, s.listings, s.recorder, logger)

	// 100 kg of tomatoes at 20 per kg.
	listing, err := s.listings.Create(s.ctx, models.Listing{
		OwnerID:       "farmer-1",
		CropName:      "Tomato",
		Quantity:      dec("100"),
		Unit:          "kg",
		PricePerUnit:  dec("20"),
		LocationLabel: "Nashik",
	})
	s.Require().NoError(err)
	s.listing = listing
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func (s *NegotiatorSuite) makeOffer(buyerID, price, qty string) *models.Offer {
	offer, err := s.offers.Create(s.ctx, models.Offer{
		ListingID:  s.listing.ID,
		BuyerID:    buyerID,
		OfferPrice: dec(price),
		Quantity:   dec(qty),
	})
	s.Require().NoError(err)
	return offer
}

func (s *NegotiatorSuite) listingStatus() models.ListingStatus {
	l, err := s.listings.Get(s.ctx, s.listing.ID)
	s.Require().NoError(err)
	return l.Status
}

func (s *NegotiatorSuite) offerTransactions(offerID string) []models.Transaction {
	txs, err := s.transactions.ListByOffer(s.ctx, offerID)
	s.Require().NoError(err)
	return txs
}

func (s *NegotiatorSuite) TestAcceptRecordsTransactionAndSellsListing() {
	offer := s.makeOffer("buyer-1", "18", "50")

	outcome, err := s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusAccepted, nil)
	s.Require().NoError(err)

	s.Equal(models.OfferStatusAccepted, outcome.Offer.Status)
	s.Require().NotNil(outcome.Transaction)
	tx := outcome.Transaction
	s.True(dec("18").Equal(tx.FinalPrice))
	s.True(dec("50").Equal(tx.Quantity))
	s.True(dec("900").Equal(tx.TotalAmount))
	s.Equal("farmer-1", tx.FarmerID)
	s.Equal("buyer-1", tx.BuyerID)
	s.Equal(s.listing.ID, tx.ListingID)
	s.Equal(models.TransactionStatusConfirmed, tx.Status)

	stored, err := s.offers.Get(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusAccepted, stored.Status)
	s.Equal(models.ListingStatusSold, s.listingStatus())
	s.Len(s.offerTransactions(offer.ID), 1)
}

func (s *NegotiatorSuite) TestCounterLeavesListingOpen() {
	offer := s.makeOffer("buyer-2", "19", "30")

	outcome, err := s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusCountered, decPtr("19.5"))
	s.Require().NoError(err)
	s.Nil(outcome.Transaction)

	stored, err := s.offers.Get(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusCountered, stored.Status)
	s.Require().NotNil(stored.CounterPrice)
	s.True(dec("19.5").Equal(*stored.CounterPrice))

	s.Empty(s.offerTransactions(offer.ID))
	s.Equal(models.ListingStatusOpen, s.listingStatus())
}

func (s *NegotiatorSuite) TestRejectLeavesListingOpen() {
	offer := s.makeOffer("buyer-1", "15", "10")

	outcome, err := s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusRejected, nil)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusRejected, outcome.Offer.Status)
	s.Empty(s.offerTransactions(offer.ID))
	s.Equal(models.ListingStatusOpen, s.listingStatus())
}

func (s *NegotiatorSuite) TestAcceptWithCounterPrice() {
	offer := s.makeOffer("buyer-1", "18", "10")

	outcome, err := s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusAccepted, decPtr("19.25"))
	s.Require().NoError(err)
	s.True(dec("19.25").Equal(outcome.Transaction.FinalPrice))
	s.True(dec("192.5").Equal(outcome.Transaction.TotalAmount))
}

func (s *NegotiatorSuite) TestAcceptAfterCounterUsesCounterPrice() {
	offer := s.makeOffer("buyer-1", "19", "30")

	_, err := s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusCountered, decPtr("19.5"))
	s.Require().NoError(err)

	outcome, err := s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusAccepted, nil)
	s.Require().NoError(err)
	s.True(dec("19.5").Equal(outcome.Transaction.FinalPrice))
	s.True(dec("585").Equal(outcome.Transaction.TotalAmount))
}

func (s *NegotiatorSuite) TestTerminalOffersRejectResponses() {
	accepted := s.makeOffer("buyer-1", "18", "10")
	_, err := s.negotiator.Respond(s.ctx, accepted.ID, models.OfferStatusAccepted, nil)
	s.Require().NoError(err)

	rejected := s.makeOffer("buyer-2", "18", "10")
	_, err = s.negotiator.Respond(s.ctx, rejected.ID, models.OfferStatusRejected, nil)
	s.Require().NoError(err)

	for _, id := range []string{accepted.ID, rejected.ID} {
		for _, action := range []models.OfferStatus{models.OfferStatusAccepted, models.OfferStatusRejected, models.OfferStatusCountered} {
			_, err := s.negotiator.Respond(s.ctx, id, action, decPtr("20"))
			s.ErrorIs(err, ErrInvalidTransition, "%s -> %s", id, action)
		}
	}

	s.Len(s.offerTransactions(accepted.ID), 1, "no second transaction for a terminal offer")
}

func (s *NegotiatorSuite) TestDoubleSaleIsNotPrevented() {
	first := s.makeOffer("buyer-1", "18", "60")
	second := s.makeOffer("buyer-2", "19", "60")

	_, err := s.negotiator.Respond(s.ctx, first.ID, models.OfferStatusAccepted, nil)
	s.Require().NoError(err)
	_, err = s.negotiator.Respond(s.ctx, second.ID, models.OfferStatusAccepted, nil)
	s.Require().NoError(err)

	s.Len(s.offerTransactions(first.ID), 1)
	s.Len(s.offerTransactions(second.ID), 1)
	s.Equal(models.ListingStatusSold, s.listingStatus())
}

func (s *NegotiatorSuite) TestRespondValidation() {
	offer := s.makeOffer("buyer-1", "18", "10")

	_, err := s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusCountered, nil)
	s.True(store.IsValidation(err))

	_, err = s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusCountered, decPtr("0"))
	s.True(store.IsValidation(err))

	_, err = s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusPending, nil)
	s.ErrorIs(err, ErrInvalidTransition)

	_, err = s.negotiator.Respond(s.ctx, "missing", models.OfferStatusAccepted, nil)
	s.ErrorIs(err, store.ErrOfferNotFound)

	stored, err := s.offers.Get(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusPending, stored.Status)
}

func (s *NegotiatorSuite) TestMarkSoldFailureKeepsTransaction() {
	offer := s.makeOffer("buyer-1", "18", "50")
	s.docs.FailOn("update", models.CollectionListings, errors.New("listings unavailable"))

	outcome, err := s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusAccepted, nil)
	s.Require().Error(err)
	s.Require().NotNil(outcome)
	s.Require().NotNil(outcome.Transaction)

	s.Len(s.offerTransactions(offer.ID), 1)
	s.Equal(models.ListingStatusOpen, s.listingStatus())
}

func (s *NegotiatorSuite) TestRespondAsOwner() {
	offer := s.makeOffer("buyer-1", "18", "10")

	_, err := s.negotiator.RespondAsOwner(s.ctx, "farmer-2", offer.ID, models.OfferStatusAccepted, nil)
	s.ErrorIs(err, ErrForbidden)
	s.Equal(models.ListingStatusOpen, s.listingStatus())

	outcome, err := s.negotiator.RespondAsOwner(s.ctx, "farmer-1", offer.ID, models.OfferStatusRejected, nil)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusRejected, outcome.Offer.Status)
}

func (s *NegotiatorSuite) TestAnswerCounter() {
	offer := s.makeOffer("buyer-1", "19", "30")

	_, err := s.negotiator.AnswerCounter(s.ctx, "buyer-1", offer.ID, true)
	s.ErrorIs(err, ErrInvalidTransition, "only countered offers can be answered")

	_, err = s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusCountered, decPtr("19.5"))
	s.Require().NoError(err)

	_, err = s.negotiator.AnswerCounter(s.ctx, "buyer-2", offer.ID, true)
	s.ErrorIs(err, ErrForbidden)

	outcome, err := s.negotiator.AnswerCounter(s.ctx, "buyer-1", offer.ID, true)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusAccepted, outcome.Offer.Status)
	s.True(dec("585").Equal(outcome.Transaction.TotalAmount))
	s.Equal(models.ListingStatusSold, s.listingStatus())
}

func (s *NegotiatorSuite) TestAnswerCounterReject() {
	offer := s.makeOffer("buyer-1", "19", "30")
	_, err := s.negotiator.Respond(s.ctx, offer.ID, models.OfferStatusCountered, decPtr("19.5"))
	s.Require().NoError(err)

	outcome, err := s.negotiator.AnswerCounter(s.ctx, "buyer-1", offer.ID, false)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusRejected, outcome.Offer.Status)
	s.Nil(outcome.Transaction)
	s.Equal(models.ListingStatusOpen, s.listingStatus())
}

func TestRecordAcceptanceDerivesTotal(t *testing.T) {
	docs := memory.NewDocuments()
	recorder := NewRecorder(store.NewTransactions(docs, 50))

	tx, err := recorder.RecordAcceptance(context.Background(),
		models.Offer{ID: "o1", BuyerID: "b1", Quantity: dec("12.5")},
		models.Listing{ID: "l1", OwnerID: "f1"},
		dec("3.2"))
	require.NoError(t, err)

	assert.True(t, dec("40").Equal(tx.TotalAmount))
	assert.Equal(t, "f1", tx.FarmerID)
	assert.Equal(t, "o1", tx.OfferID)
	assert.Equal(t, models.TransactionStatusConfirmed, tx.Status)

	_, err = recorder.RecordAcceptance(context.Background(), models.Offer{ID: "o2"}, models.Listing{ID: "l1"}, dec("0"))
	assert.True(t, store.IsValidation(err))
}

func TestSettle(t *testing.T) {
	ctx := context.Background()
	transactions := store.NewTransactions(memory.NewDocuments(), 50)
	recorder := NewRecorder(transactions)

	tx, err := recorder.RecordAcceptance(ctx,
		models.Offer{ID: "o1", BuyerID: "b1", Quantity: dec("50")},
		models.Listing{ID: "l1", OwnerID: "f1"},
		dec("18"))
	require.NoError(t, err)

	_, err = recorder.Settle(ctx, "b1", tx.ID, models.TransactionStatusCompleted)
	assert.ErrorIs(t, err, ErrForbidden)

	settled, err := recorder.Settle(ctx, "f1", tx.ID, models.TransactionStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, settled.Status)

	_, err = recorder.Settle(ctx, "f1", tx.ID, models.TransactionStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = recorder.Settle(ctx, "f1", "missing", models.TransactionStatusCancelled)
	assert.ErrorIs(t, err, store.ErrTransactionNotFound)

	stored, err := transactions.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, stored.Status)
}
