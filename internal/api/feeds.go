package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/safar/farmmarket/internal/store"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// feedMessage is one frame on a live feed. Data is the complete current
// set; clients replace what they show with it.
type feedMessage struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// pendingOffersFeed streams the pending offers on the caller's listings.
func (s *Server) pendingOffersFeed(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	snapshots, err := s.offers.WatchPendingForFarmer(ctx, userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	s.stream(ctx, cancel, conn, func(yield func(feedMessage) bool) {
		for snap := range snapshots {
			msg := feedMessage{Type: "pending_offers", Data: snap.Offers}
			if snap.Err != nil {
				msg = feedMessage{Type: "error", Error: snap.Err.Error()}
			}
			if !yield(msg) {
				return
			}
		}
	})
}

// openListingsFeed streams open listings, filtered like the list endpoint.
func (s *Server) openListingsFeed(c *gin.Context) {
	filter, err := listingFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	snapshots, err := s.listings.WatchOpen(ctx, filter)
	if err != nil {
		s.fail(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	s.stream(ctx, cancel, conn, func(yield func(feedMessage) bool) {
		for snap := range snapshots {
			if !yield(listingsMessage(snap)) {
				return
			}
		}
	})
}

func listingsMessage(snap store.ListingsSnapshot) feedMessage {
	if snap.Err != nil {
		return feedMessage{Type: "error", Error: snap.Err.Error()}
	}
	return feedMessage{Type: "open_listings", Data: snap.Listings}
}

// stream writes every message produced by messages to conn until the
// client goes away or the feed ends. Client frames are read and discarded
// so that close and pong frames are processed.
func (s *Server) stream(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, messages func(yield func(feedMessage) bool)) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	frames := make(chan feedMessage)
	go func() {
		defer close(frames)
		messages(func(msg feedMessage) bool {
			select {
			case frames <- msg:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-frames:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("feed write", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
