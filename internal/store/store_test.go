package store

import (
	"context"
	"testing"
	"time"

	"github.com/safar/farmmarket/internal/backend"
	"github.com/safar/farmmarket/internal/backend/memory"
	"github.com/safar/farmmarket/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testResultCap = 50

type testStores struct {
	docs         *memory.Documents
	objects      *memory.Objects
	listings     *Listings
	offers       *Offers
	transactions *Transactions
	profiles     *Profiles
}

func newTestStores(t *testing.T, resultCap int) *testStores {
	t.Helper()
	logger := zaptest.NewLogger(t)
	docs := memory.NewDocuments()
	objects := memory.NewObjects()
	listings := NewListings(docs, objects, logger, resultCap)

	return &testStores{
		docs:         docs,
		objects:      objects,
		listings:     listings,
		offers:       NewOffers(docs, listings, logger, resultCap),
		transactions: NewTransactions(docs, resultCap),
		profiles:     NewProfiles(docs, objects),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func tomatoes(ownerID string) models.Listing {
	return models.Listing{
		OwnerID:       ownerID,
		CropName:      "Tomato",
		Quantity:      dec("100"),
		Unit:          "kg",
		PricePerUnit:  dec("20"),
		LocationLabel: "Nashik",
	}
}

// seed writes v directly with a chosen creation time so ordering is
// deterministic.
func seed(t *testing.T, docs backend.Documents, collection, id string, at time.Time, v interface{}) {
	t.Helper()
	doc, err := backend.NewDocument(id, at, v)
	require.NoError(t, err)
	require.NoError(t, docs.Set(context.Background(), collection, doc))
}

func listingIDs(listings []models.Listing) []string {
	ids := make([]string, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	return ids
}

func offerIDs(offers []models.Offer) []string {
	ids := make([]string, len(offers))
	for i, o := range offers {
		ids[i] = o.ID
	}
	return ids
}
