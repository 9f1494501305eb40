package store

import (
	"context"
	"fmt"

	"github.com/safar/farmmarket/internal/backend"
	"github.com/safar/farmmarket/internal/models"
	"go.uber.org/zap"
)

type OffersSnapshot struct {
	Offers []models.Offer
	Err    error
}

type batchUpdate struct {
	generation int
	index      int
	snapshot   backend.Snapshot
}

// WatchPendingForFarmer is the live form of PendingForFarmer. It subscribes
// to the farmer's listings and, every time that set is delivered, replaces
// its offer subscriptions with one per batch of listing ids. Each delivery
// on the returned channel is the complete pending set.
func (s *Offers) WatchPendingForFarmer(ctx context.Context, farmerID string) (<-chan OffersSnapshot, error) {
	upstream, err := s.docs.Subscribe(ctx, ownedListingsQuery(farmerID))
	if err != nil {
		return nil, fmt.Errorf("watch listings of farmer: %w", err)
	}

	out := make(chan OffersSnapshot, 1)
	go s.runPendingPipeline(ctx, farmerID, upstream, out)
	return out, nil
}

func (s *Offers) runPendingPipeline(ctx context.Context, farmerID string, upstream <-chan backend.Snapshot, out chan<- OffersSnapshot) {
	defer close(out)

	var (
		generation int
		results    [][]backend.Document
		cancel     = func() {}
		updates    = make(chan batchUpdate)
	)
	defer func() { cancel() }()

	emit := func(snap OffersSnapshot) bool {
		select {
		case out <- snap:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-upstream:
			if !ok {
				return
			}
			if snap.Err != nil {
				if !emit(OffersSnapshot{Err: fmt.Errorf("watch listings of farmer: %w", snap.Err)}) {
					return
				}
				continue
			}

			cancel()
			generation++

			var downCtx context.Context
			downCtx, cancel = context.WithCancel(ctx)

			var err error
			results, err = s.startBatches(downCtx, generation, documentIDs(snap.Documents), updates)
			if err != nil {
				cancel()
				generation++
				s.logger.Warn("restart pending offer queries",
					zap.String("farmer_id", farmerID), zap.Error(err))
				if !emit(OffersSnapshot{Err: err}) {
					return
				}
				continue
			}

			if !emit(mergeBatches(results)) {
				return
			}

		case u := <-updates:
			if u.generation != generation {
				continue
			}
			if u.snapshot.Err != nil {
				if !emit(OffersSnapshot{Err: fmt.Errorf("watch pending offers: %w", u.snapshot.Err)}) {
					return
				}
				continue
			}

			results[u.index] = u.snapshot.Documents
			if !emit(mergeBatches(results)) {
				return
			}
		}
	}
}

// startBatches opens one pending-offer subscription per batch of listing
// ids, collects each initial result and forwards later deliveries to
// updates tagged with generation.
func (s *Offers) startBatches(ctx context.Context, generation int, listingIDs []string, updates chan<- batchUpdate) ([][]backend.Document, error) {
	pending := models.OfferStatusPending
	batches := batchIDs(listingIDs, backend.MaxInValues)
	results := make([][]backend.Document, len(batches))

	for i, batch := range batches {
		ch, err := s.docs.Subscribe(ctx, offersForListingsQuery(batch, &pending))
		if err != nil {
			return nil, fmt.Errorf("watch pending offers: %w", err)
		}

		select {
		case first, ok := <-ch:
			if !ok {
				return nil, ctx.Err()
			}
			if first.Err != nil {
				return nil, fmt.Errorf("watch pending offers: %w", first.Err)
			}
			results[i] = first.Documents
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		go forwardBatch(ctx, generation, i, ch, updates)
	}

	return results, nil
}

func forwardBatch(ctx context.Context, generation, index int, ch <-chan backend.Snapshot, updates chan<- batchUpdate) {
	for snap := range ch {
		select {
		case updates <- batchUpdate{generation: generation, index: index, snapshot: snap}:
		case <-ctx.Done():
			return
		}
	}
}

func mergeBatches(results [][]backend.Document) OffersSnapshot {
	var docs []backend.Document
	for _, batch := range results {
		docs = append(docs, batch...)
	}

	offers, err := decodeOffers(sortNewestFirst(docs))
	return OffersSnapshot{Offers: offers, Err: err}
}
