package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/farmmarket/internal/market"
	"github.com/safar/farmmarket/internal/models"
)

type settleRequest struct {
	Status models.TransactionStatus `json:"status"`
}

// listTransactions lists the caller's sales with ?role=farmer, otherwise
// their purchases.
func (s *Server) listTransactions(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	var (
		txs []models.Transaction
		err error
	)
	switch c.Query("role") {
	case string(models.RoleFarmer):
		txs, err = s.transactions.ListByFarmer(ctx, uid)
	case "", string(models.RoleBuyer):
		txs, err = s.transactions.ListByBuyer(ctx, uid)
	default:
		s.badRequest(c, "role must be farmer or buyer")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, txs)
}

func (s *Server) getTransaction(c *gin.Context) {
	tx, err := s.transactions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	uid := userID(c)
	if tx.BuyerID != uid && tx.FarmerID != uid {
		s.fail(c, market.ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (s *Server) settleTransaction(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	tx, err := s.recorder.Settle(c.Request.Context(), userID(c), c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}
