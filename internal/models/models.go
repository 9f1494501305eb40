package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Prices and quantities are stored as native document numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	CollectionUsers        = "users"
	CollectionListings     = "listings"
	CollectionOffers       = "offers"
	CollectionTransactions = "transactions"
)

type Listing struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"ownerId"`
	CropName      string          `json:"cropName"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	PricePerUnit  decimal.Decimal `json:"pricePerUnit"`
	ImageRef      *string         `json:"imageRef,omitempty"`
	LocationLabel string          `json:"locationLabel"`
	Status        ListingStatus   `json:"status"`
	CreatedAt     Timestamp       `json:"createdAt"`
}

type Offer struct {
	ID           string           `json:"id"`
	ListingID    string           `json:"listingId"`
	BuyerID      string           `json:"buyerId"`
	OfferPrice   decimal.Decimal  `json:"offerPrice"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Status       OfferStatus      `json:"status"`
	CounterPrice *decimal.Decimal `json:"counterPrice,omitempty"`
	Message      *string          `json:"message,omitempty"`
	CreatedAt    Timestamp        `json:"createdAt"`
}

type Transaction struct {
	ID          string            `json:"id"`
	OfferID     string            `json:"offerId"`
	ListingID   string            `json:"listingId"`
	BuyerID     string            `json:"buyerId"`
	FarmerID    string            `json:"farmerId"`
	FinalPrice  decimal.Decimal   `json:"finalPrice"`
	Quantity    decimal.Decimal   `json:"quantity"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   Timestamp         `json:"createdAt"`
}

type UserProfile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Role          Role      `json:"role"`
	LocationLabel *string   `json:"locationLabel,omitempty"`
	AvatarRef     *string   `json:"avatarRef,omitempty"`
	CreatedAt     Timestamp `json:"createdAt"`
}
