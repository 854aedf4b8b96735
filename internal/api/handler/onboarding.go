package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/praxis-legal/praxis/internal/ledger"
	"github.com/praxis-legal/praxis/internal/onboarding"
	"go.uber.org/zap"
)

// onboardingSvc is the interface expected by OnboardingHandler, satisfied by
// *onboarding.Service.
type onboardingSvc interface {
	Stage(ctx context.Context, clientID string) (string, error)
	AdvanceStage(ctx context.Context, clientID, actor, to string) (*ledger.Link, error)
}

// OnboardingHandler handles client onboarding routes.
type OnboardingHandler struct {
	onboarding onboardingSvc
	logger     *zap.Logger
}

// NewOnboardingHandler creates an OnboardingHandler.
func NewOnboardingHandler(svc onboardingSvc, logger *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{onboarding: svc, logger: logger}
}

// Register mounts the onboarding routes on the given router group.
func (h *OnboardingHandler) Register(rg *gin.RouterGroup) {
	o := rg.Group("/onboarding")
	{
		o.GET("/:clientId/stage", h.Stage)
		o.POST("/:clientId/advance", h.Advance)
	}
}

// Stage handles GET /onboarding/:clientId/stage.
func (h *OnboardingHandler) Stage(c *gin.Context) {
	clientID := c.Param("clientId")

	stage, err := h.onboarding.Stage(c.Request.Context(), clientID)
	if err != nil {
		h.logger.Error("read stage", zap.String("client_id", clientID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read stage"})
		return
	}
	if stage == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "onboarding not started"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"client_id": clientID, "stage": stage})
}

// Advance handles POST /onboarding/:clientId/advance — seals a stage
// transition.
func (h *OnboardingHandler) Advance(c *gin.Context) {
	clientID := c.Param("clientId")

	var body struct {
		To string `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to is required"})
		return
	}

	link, err := h.onboarding.AdvanceStage(c.Request.Context(), clientID, Actor(c), body.To)
	if err != nil {
		if errors.Is(err, onboarding.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		respondAppendError(c, h.logger, "advance stage", err)
		return
	}

	RecordLedgerAppend(onboarding.ActionStageAdvanced)
	c.JSON(http.StatusCreated, gin.H{
		"receipt": gin.H{
			"chain_id": link.ChainID,
			"sequence": link.Sequence,
			"hash":     link.Hash,
		},
	})
}
