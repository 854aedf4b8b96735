package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/praxis-legal/praxis/internal/ledger"
	"go.uber.org/zap"
)

// maxSequence caps open-ended entry windows. Sequences are stored as BIGINT,
// so the cap is the largest value the store can hold.
const maxSequence = uint64(1<<63 - 1)

// LedgerHandler exposes the read-only audit endpoints for the event ledger.
type LedgerHandler struct {
	store    ledger.Store
	verifier *ledger.Verifier
	logger   *zap.Logger
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(store ledger.Store, verifier *ledger.Verifier, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{store: store, verifier: verifier, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("/chains", h.Chains)
		l.GET("/chains/:chainId", h.Head)
		l.GET("/chains/:chainId/entries", h.Entries)
		l.GET("/chains/:chainId/verify", h.Verify)
	}
}

// Chains handles GET /ledger/chains — lists every chain id.
func (h *LedgerHandler) Chains(c *gin.Context) {
	chains, err := h.store.Chains(c.Request.Context())
	if err != nil {
		h.logger.Error("list chains", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// Head handles GET /ledger/chains/:chainId — chain length and head hash.
func (h *LedgerHandler) Head(c *gin.Context) {
	ctx := c.Request.Context()
	chainID := c.Param("chainId")

	n, err := h.store.Len(ctx, chainID)
	if err != nil {
		h.logger.Error("chain length", zap.String("chain_id", chainID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query chain"})
		return
	}

	head := ledger.GenesisHash
	if tail, err := h.store.ReadTail(ctx, chainID); err != nil {
		h.logger.Error("chain tail", zap.String("chain_id", chainID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query chain"})
		return
	} else if tail != nil {
		head = tail.Hash
	}

	c.JSON(http.StatusOK, gin.H{
		"chain_id": chainID,
		"entries":  n,
		"head":     head,
	})
}

// Entries handles GET /ledger/chains/:chainId/entries?from=&to= — returns a
// window of entries, payloads decoded for display.
func (h *LedgerHandler) Entries(c *gin.Context) {
	chainID := c.Param("chainId")

	from, to, ok := h.window(c)
	if !ok {
		return
	}

	links, err := h.store.ReadRange(c.Request.Context(), chainID, from, to)
	if err != nil {
		h.logger.Error("read range", zap.String("chain_id", chainID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query chain"})
		return
	}

	out := make([]gin.H, 0, len(links))
	for _, l := range links {
		var payload map[string]any
		if err := ledger.DecodePayload(l.Payload, &payload); err != nil {
			// Undecodable payloads still get listed; Verify localises them.
			payload = nil
		}
		out = append(out, gin.H{
			"chain_id":  l.ChainID,
			"sequence":  l.Sequence,
			"timestamp": l.Timestamp,
			"actor":     l.Actor,
			"action":    l.Action,
			"payload":   payload,
			"prev_hash": l.PrevHash,
			"hash":      l.Hash,
		})
	}
	c.JSON(http.StatusOK, gin.H{"chain_id": chainID, "entries": out})
}

// Verify handles GET /ledger/chains/:chainId/verify?from=&to= — walks the
// chain (or a window of it) and reports integrity. A broken chain is a 200
// with valid=false; only store failures are 5xx.
func (h *LedgerHandler) Verify(c *gin.Context) {
	ctx := c.Request.Context()
	chainID := c.Param("chainId")

	var report *ledger.Report
	var err error
	if c.Query("from") == "" && c.Query("to") == "" {
		report, err = h.verifier.Verify(ctx, chainID)
	} else {
		from, to, ok := h.window(c)
		if !ok {
			return
		}
		if c.Query("to") == "" {
			// Open-ended window: close it at the current chain length.
			n, lenErr := h.store.Len(ctx, chainID)
			if lenErr != nil {
				h.logger.Error("chain length", zap.String("chain_id", chainID), zap.Error(lenErr))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify chain"})
				return
			}
			if n == 0 || uint64(n-1) < from {
				c.JSON(http.StatusBadRequest, gin.H{"error": "from is beyond the chain tail"})
				return
			}
			to = uint64(n - 1)
		}
		report, err = h.verifier.VerifyRange(ctx, chainID, from, to)
	}
	if err != nil {
		h.logger.Error("verify chain", zap.String("chain_id", chainID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify chain"})
		return
	}

	if !report.Valid {
		RecordVerificationFailure(string(report.Reason))
	}
	c.JSON(http.StatusOK, report)
}

// window parses the from/to query parameters, defaulting to the full range.
func (h *LedgerHandler) window(c *gin.Context) (from, to uint64, ok bool) {
	to = maxSequence
	var err error
	if s := c.Query("from"); s != "" {
		if from, err = strconv.ParseUint(s, 10, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a non-negative integer"})
			return 0, 0, false
		}
	}
	if s := c.Query("to"); s != "" {
		if to, err = strconv.ParseUint(s, 10, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be a non-negative integer"})
			return 0, 0, false
		}
	}
	if to < from {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not be less than from"})
		return 0, 0, false
	}
	return from, to, true
}
