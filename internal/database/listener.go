package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ChangeChannel is the channel the documents_changed trigger notifies with
// the collection name as payload.
const ChangeChannel = "documents_changed"

// ListenForChanges feeds writes made by other processes into the store's
// live queries. It returns once the LISTEN is established and keeps running
// until ctx is done. Only the postgres dialect has a change channel.
func (s *DocumentStore) ListenForChanges(ctx context.Context, dsn string, logger *zap.Logger) error {
	if s.dialect.Name() != "postgres" {
		return fmt.Errorf("change notifications need postgres, have %s", s.dialect.Name())
	}

	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("change listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})

	if err := listener.Listen(ChangeChannel); err != nil {
		listener.Close()
		return fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}

	go func() {
		defer listener.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case n := <-listener.Notify:
				if n == nil {
					// Reconnected; anything may have changed meanwhile.
					s.broker.NotifyAll()
					continue
				}
				s.broker.Notify(n.Extra)

			case <-time.After(90 * time.Second):
				if err := listener.Ping(); err != nil {
					logger.Warn("change listener ping failed", zap.Error(err))
				}
			}
		}
	}()

	return nil
}
