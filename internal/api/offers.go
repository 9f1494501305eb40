package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/farmmarket/internal/models"
	"github.com/shopspring/decimal"
)

type createOfferRequest struct {
	ListingID  string          `json:"listingId"`
	OfferPrice decimal.Decimal `json:"offerPrice"`
	Quantity   decimal.Decimal `json:"quantity"`
	Message    *string         `json:"message,omitempty"`
}

type respondRequest struct {
	Action       models.OfferStatus `json:"action"`
	CounterPrice *decimal.Decimal   `json:"counterPrice,omitempty"`
}

type answerRequest struct {
	Accept bool `json:"accept"`
}

func (s *Server) createOffer(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	offer, err := s.offers.Create(c.Request.Context(), models.Offer{
		ListingID:  req.ListingID,
		BuyerID:    userID(c),
		OfferPrice: req.OfferPrice,
		Quantity:   req.Quantity,
		Message:    req.Message,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, offer)
}

func (s *Server) listMyOffers(c *gin.Context) {
	offers, err := s.offers.ListByBuyer(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, offers)
}

// listIncomingOffers lists offers on the caller's listings, optionally
// narrowed by ?status=.
func (s *Server) listIncomingOffers(c *gin.Context) {
	var status *models.OfferStatus
	if raw := c.Query("status"); raw != "" {
		var st models.OfferStatus
		if err := st.UnmarshalText([]byte(raw)); err != nil {
			s.badRequest(c, err.Error())
			return
		}
		status = &st
	}

	offers, err := s.offers.ListForFarmer(c.Request.Context(), userID(c), status)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, offers)
}

// getOffer is visible to the buyer and to the listing owner.
func (s *Server) getOffer(c *gin.Context) {
	ctx := c.Request.Context()
	offer, err := s.offers.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	if offer.BuyerID != userID(c) {
		if _, err := s.ownedListing(c, offer.ListingID); err != nil {
			s.fail(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, offer)
}

func (s *Server) respondToOffer(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	outcome, err := s.negotiator.RespondAsOwner(c.Request.Context(), userID(c), c.Param("id"), req.Action, req.CounterPrice)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (s *Server) answerCounter(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	outcome, err := s.negotiator.AnswerCounter(c.Request.Context(), userID(c), c.Param("id"), req.Accept)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}
