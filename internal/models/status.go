package models

import "fmt"

type ListingStatus string

const (
	ListingStatusOpen ListingStatus = "open"
	ListingStatusSold ListingStatus = "sold"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusOpen, ListingStatusSold:
		return true
	}
	return false
}

func (s *ListingStatus) UnmarshalText(text []byte) error {
	v := ListingStatus(text)
	if !v.Valid() {
		return fmt.Errorf("unknown listing status %q", text)
	}
	*s = v
	return nil
}

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusCountered OfferStatus = "countered"
)

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferStatusPending, OfferStatusAccepted, OfferStatusRejected, OfferStatusCountered:
		return true
	}
	return false
}

// Terminal reports whether no further response may change the offer.
func (s OfferStatus) Terminal() bool {
	switch s {
	case OfferStatusAccepted, OfferStatusRejected:
		return true
	case OfferStatusPending, OfferStatusCountered:
		return false
	}
	return false
}

// CanRespond reports whether a listing owner may move an offer in state s
// to next. Pending is never a response.
func (s OfferStatus) CanRespond(next OfferStatus) bool {
	if next == OfferStatusPending || !next.Valid() || !s.Valid() {
		return false
	}
	return !s.Terminal()
}

func (s *OfferStatus) UnmarshalText(text []byte) error {
	v := OfferStatus(text)
	if !v.Valid() {
		return fmt.Errorf("unknown offer status %q", text)
	}
	*s = v
	return nil
}

type TransactionStatus string

const (
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusConfirmed, TransactionStatusCompleted, TransactionStatusCancelled:
		return true
	}
	return false
}

// CanSettle reports whether a transaction in state s may move to next.
// Only Confirmed records are open for settlement.
func (s TransactionStatus) CanSettle(next TransactionStatus) bool {
	switch s {
	case TransactionStatusConfirmed:
		return next == TransactionStatusCompleted || next == TransactionStatusCancelled
	case TransactionStatusCompleted, TransactionStatusCancelled:
		return false
	}
	return false
}

func (s *TransactionStatus) UnmarshalText(text []byte) error {
	v := TransactionStatus(text)
	if !v.Valid() {
		return fmt.Errorf("unknown transaction status %q", text)
	}
	*s = v
	return nil
}

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleBuyer:
		return true
	}
	return false
}

func (r *Role) UnmarshalText(text []byte) error {
	v := Role(text)
	if !v.Valid() {
		return fmt.Errorf("unknown role %q", text)
	}
	*r = v
	return nil
}
