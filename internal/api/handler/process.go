package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/praxis-legal/praxis/internal/ledger"
	"github.com/praxis-legal/praxis/internal/process"
	"go.uber.org/zap"
)

// attemptSvc is the interface expected by ProcessHandler, satisfied by
// *process.Service.
type attemptSvc interface {
	RecordAttempt(ctx context.Context, actor string, in process.AttemptInput) (*ledger.Link, error)
}

// ProcessHandler handles service-of-process attempt routes.
type ProcessHandler struct {
	attempts attemptSvc
	logger   *zap.Logger
}

// NewProcessHandler creates a ProcessHandler.
func NewProcessHandler(attempts attemptSvc, logger *zap.Logger) *ProcessHandler {
	return &ProcessHandler{attempts: attempts, logger: logger}
}

// Register mounts the process routes on the given router group.
func (h *ProcessHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/process/attempts", h.RecordAttempt)
}

// RecordAttempt handles POST /process/attempts — seals a service attempt and
// returns the link receipt.
func (h *ProcessHandler) RecordAttempt(c *gin.Context) {
	var in process.AttemptInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	link, err := h.attempts.RecordAttempt(c.Request.Context(), Actor(c), in)
	if err != nil {
		respondAppendError(c, h.logger, "record attempt", err)
		return
	}

	RecordLedgerAppend(process.ActionAttemptLogged)
	c.JSON(http.StatusCreated, gin.H{
		"receipt": gin.H{
			"chain_id": link.ChainID,
			"sequence": link.Sequence,
			"hash":     link.Hash,
		},
	})
}

// respondAppendError maps append-path errors to HTTP statuses: payload
// problems are the caller's, exhausted retries are transient, the rest is
// internal.
func respondAppendError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var ce *ledger.CanonicalizationError
	switch {
	case errors.As(err, &ce):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrRetriesExhausted):
		RecordAppendConflict()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "append contention, please retry"})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to seal event"})
	}
}

// isValidationError reports whether err came from domain input validation
// rather than from the ledger or the store.
func isValidationError(err error) bool {
	var se *ledger.StoreError
	return !errors.As(err, &se)
}
