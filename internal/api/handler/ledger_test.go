package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/praxis-legal/praxis/internal/api/handler"
	"github.com/praxis-legal/praxis/internal/ledger"
	"go.uber.org/zap"
)

var ctx = context.Background()

func setupLedgerRouter(t *testing.T) (*gin.Engine, *ledger.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := ledger.NewMemoryStore()
	verifier := ledger.NewVerifier(store, zap.NewNop())
	h := handler.NewLedgerHandler(store, verifier, zap.NewNop())

	r := gin.New()
	v1 := r.Group("/api/v1")
	h.Register(v1)
	return r, store
}

func seal(t *testing.T, store *ledger.MemoryStore, chainID string, payloads ...map[string]any) {
	t.Helper()
	a := ledger.NewAppender(store, zap.NewNop())
	for _, p := range payloads {
		if _, err := a.Append(ctx, chainID, "clerk", "TXN_POSTED", p); err != nil {
			t.Fatal(err)
		}
	}
}

func TestChains_listsSealedChains(t *testing.T) {
	router, store := setupLedgerRouter(t)
	seal(t, store, "instr-1", map[string]any{"p": "A"})
	seal(t, store, "trust-9", map[string]any{"p": "B"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/chains", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Chains []string `json:"chains"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Chains) != 2 {
		t.Errorf("expected 2 chains, got %v", resp.Chains)
	}
}

func TestHead_emptyChainReportsGenesis(t *testing.T) {
	router, _ := setupLedgerRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/chains/instr-none", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["head"] != ledger.GenesisHash {
		t.Errorf("head: got %v, want GenesisHash", resp["head"])
	}
	if int(resp["entries"].(float64)) != 0 {
		t.Errorf("entries: got %v, want 0", resp["entries"])
	}
}

func TestVerify_validChain(t *testing.T) {
	router, store := setupLedgerRouter(t)
	seal(t, store, "instr-42",
		map[string]any{"p": "A"},
		map[string]any{"p": "B"},
		map[string]any{"p": "C"},
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/chains/instr-42/verify", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var report ledger.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if !report.Valid || report.Length != 3 {
		t.Errorf("got valid=%v length=%d, want valid chain of 3", report.Valid, report.Length)
	}
}

func TestVerify_brokenChainIs200WithDiagnosis(t *testing.T) {
	router, store := setupLedgerRouter(t)
	seal(t, store, "instr-42",
		map[string]any{"p": "A"},
		map[string]any{"p": "B"},
		map[string]any{"p": "C"},
	)

	stored, err := store.ReadRange(ctx, "instr-42", 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	forged, err := ledger.Canonicalize(map[string]any{"p": "FORGED"})
	if err != nil {
		t.Fatal(err)
	}
	stored[0].Payload = forged

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/chains/instr-42/verify", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("a broken chain is a result, not a server error: got %d", w.Code)
	}
	var report ledger.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Valid {
		t.Fatal("tampered chain reported valid")
	}
	if report.BrokenAtSequence != 1 || report.Reason != ledger.ReasonHashMismatch {
		t.Errorf("got broken_at=%d reason=%q, want 1/hash_mismatch", report.BrokenAtSequence, report.Reason)
	}
}

func TestEntries_windowedRead(t *testing.T) {
	router, store := setupLedgerRouter(t)
	seal(t, store, "instr-42",
		map[string]any{"p": "A"},
		map[string]any{"p": "B"},
		map[string]any{"p": "C"},
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/chains/instr-42/entries?from=1&to=2", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Entries []struct {
			Sequence uint64         `json:"sequence"`
			Payload  map[string]any `json:"payload"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Entries))
	}
	if resp.Entries[0].Sequence != 1 || resp.Entries[0].Payload["p"] != "B" {
		t.Errorf("unexpected first entry: %+v", resp.Entries[0])
	}
}

func TestEntries_badWindowIs400(t *testing.T) {
	router, _ := setupLedgerRouter(t)

	for _, q := range []string{"?from=abc", "?from=5&to=2"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/chains/instr-42/entries"+q, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}
