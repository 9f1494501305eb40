package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/farmmarket/internal/backend"
	"github.com/safar/farmmarket/internal/models"
)

type Transactions struct {
	docs      backend.Documents
	resultCap int
}

func NewTransactions(docs backend.Documents, resultCap int) *Transactions {
	return &Transactions{docs: docs, resultCap: resultCap}
}

// Create stores a settlement record, assigning its id and creation time.
func (s *Transactions) Create(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	if !tx.Status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown transaction status %q", tx.Status))
	}

	tx.ID = uuid.NewString()
	tx.CreatedAt = models.Now()

	doc, err := backend.NewDocument(tx.ID, tx.CreatedAt.Time, tx)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Set(ctx, models.CollectionTransactions, doc); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	return &tx, nil
}

func (s *Transactions) Get(ctx context.Context, id string) (*models.Transaction, error) {
	doc, err := s.docs.Get(ctx, models.CollectionTransactions, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	var tx models.Transaction
	if err := doc.Decode(&tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Transactions) UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) error {
	if !status.Valid() {
		return invalid("status", fmt.Sprintf("unknown transaction status %q", status))
	}

	err := s.docs.Update(ctx, models.CollectionTransactions, id, map[string]interface{}{"status": status})
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return ErrTransactionNotFound
		}
		return fmt.Errorf("update transaction status: %w", err)
	}
	return nil
}

func (s *Transactions) ListByFarmer(ctx context.Context, farmerID string) ([]models.Transaction, error) {
	return s.list(ctx, "farmerId", farmerID)
}

func (s *Transactions) ListByBuyer(ctx context.Context, buyerID string) ([]models.Transaction, error) {
	return s.list(ctx, "buyerId", buyerID)
}

func (s *Transactions) ListByOffer(ctx context.Context, offerID string) ([]models.Transaction, error) {
	return s.list(ctx, "offerId", offerID)
}

func (s *Transactions) list(ctx context.Context, field, value string) ([]models.Transaction, error) {
	docs, err := s.docs.Query(ctx, backend.Query{
		Collection: models.CollectionTransactions,
		Filters:    []backend.Filter{backend.Where(field, backend.OpEqual, value)},
		Limit:      s.resultCap,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions by %s: %w", field, err)
	}

	txs := make([]models.Transaction, 0, len(docs))
	for _, doc := range docs {
		var tx models.Transaction
		if err := doc.Decode(&tx); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
