package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/praxis-legal/praxis/internal/ledger"
	"github.com/praxis-legal/praxis/internal/trustacct"
	"go.uber.org/zap"
)

// trustSvc is the interface expected by TrustHandler, satisfied by
// *trustacct.Service.
type trustSvc interface {
	Balance(ctx context.Context, accountID string) (int64, error)
	Post(ctx context.Context, accountID, actor string, in trustacct.TxnInput) (*ledger.Link, error)
}

// TrustHandler handles trust-account routes.
type TrustHandler struct {
	trust  trustSvc
	logger *zap.Logger
}

// NewTrustHandler creates a TrustHandler.
func NewTrustHandler(svc trustSvc, logger *zap.Logger) *TrustHandler {
	return &TrustHandler{trust: svc, logger: logger}
}

// Register mounts the trust-account routes on the given router group.
func (h *TrustHandler) Register(rg *gin.RouterGroup) {
	t := rg.Group("/trust")
	{
		t.GET("/:accountId/balance", h.Balance)
		t.POST("/:accountId/transactions", h.Post)
	}
}

// Balance handles GET /trust/:accountId/balance.
func (h *TrustHandler) Balance(c *gin.Context) {
	accountID := c.Param("accountId")

	cents, err := h.trust.Balance(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Error("read balance", zap.String("account_id", accountID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read balance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "balance_cents": cents})
}

// Post handles POST /trust/:accountId/transactions — seals a posting.
func (h *TrustHandler) Post(c *gin.Context) {
	accountID := c.Param("accountId")

	var in trustacct.TxnInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	link, err := h.trust.Post(c.Request.Context(), accountID, Actor(c), in)
	if err != nil {
		if errors.Is(err, trustacct.ErrInsufficientFunds) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		respondAppendError(c, h.logger, "post transaction", err)
		return
	}

	RecordLedgerAppend(trustacct.ActionTxnPosted)
	c.JSON(http.StatusCreated, gin.H{
		"receipt": gin.H{
			"chain_id": link.ChainID,
			"sequence": link.Sequence,
			"hash":     link.Hash,
		},
	})
}
