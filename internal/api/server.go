// Package api is the HTTP surface of the marketplace: JSON endpoints for
// listings, offers, transactions and profiles, and websocket feeds for the
// live views.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/safar/farmmarket/internal/backend"
	"github.com/safar/farmmarket/internal/market"
	"github.com/safar/farmmarket/internal/store"
	"go.uber.org/zap"
)

type Server struct {
	listings     *store.Listings
	offers       *store.Offers
	transactions *store.Transactions
	profiles     *store.Profiles
	negotiator   *market.Negotiator
	recorder     *market.Recorder
	auth         *Authenticator
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

type Deps struct {
	Listings     *store.Listings
	Offers       *store.Offers
	Transactions *store.Transactions
	Profiles     *store.Profiles
	Negotiator   *market.Negotiator
	Recorder     *market.Recorder
	Auth         *Authenticator
	Logger       *zap.Logger
}

func NewServer(deps Deps) *Server {
	return &Server{
		listings:     deps.Listings,
		offers:       deps.Offers,
		transactions: deps.Transactions,
		profiles:     deps.Profiles,
		negotiator:   deps.Negotiator,
		recorder:     deps.Recorder,
		auth:         deps.Auth,
		logger:       deps.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine. uploadsDir, when set, is served under
// /uploads for the local object store.
func (s *Server) Router(uploadsDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if uploadsDir != "" {
		r.Static("/uploads", uploadsDir)
	}

	v1 := r.Group("/api/v1", s.auth.Required())

	listings := v1.Group("/listings")
	listings.POST("", s.createListing)
	listings.GET("", s.listOpenListings)
	listings.GET("/mine", s.listMyListings)
	listings.GET("/:id", s.getListing)
	listings.PATCH("/:id", s.updateListing)
	listings.DELETE("/:id", s.deleteListing)
	listings.PUT("/:id/image", s.uploadListingImage)
	listings.GET("/:id/offers", s.listListingOffers)

	offers := v1.Group("/offers")
	offers.POST("", s.createOffer)
	offers.GET("/mine", s.listMyOffers)
	offers.GET("/incoming", s.listIncomingOffers)
	offers.GET("/:id", s.getOffer)
	offers.POST("/:id/respond", s.respondToOffer)
	offers.POST("/:id/answer", s.answerCounter)

	txs := v1.Group("/transactions")
	txs.GET("", s.listTransactions)
	txs.GET("/:id", s.getTransaction)
	txs.POST("/:id/status", s.settleTransaction)

	v1.GET("/profile", s.getOwnProfile)
	v1.PUT("/profile", s.upsertProfile)
	v1.PUT("/profile/avatar", s.uploadAvatar)
	v1.GET("/users/:id", s.getProfile)

	feeds := v1.Group("/feeds")
	feeds.GET("/pending-offers", s.pendingOffersFeed)
	feeds.GET("/listings", s.openListingsFeed)

	return r
}

// RequestLogger logs one line per request once the handler chain is done.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_id", userID(c)))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case store.IsValidation(err),
		errors.Is(err, backend.ErrTooManyValues),
		errors.Is(err, backend.ErrInvalidField):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, market.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
