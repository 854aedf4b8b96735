package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/praxis-legal/praxis/internal/api/handler"
	"github.com/praxis-legal/praxis/internal/ledger"
	"github.com/praxis-legal/praxis/internal/process"
	"go.uber.org/zap"
)

func setupProcessRouter(t *testing.T) (*gin.Engine, *ledger.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := ledger.NewMemoryStore()
	appender := ledger.NewAppender(store, zap.NewNop())
	svc := process.NewService(appender, zap.NewNop())
	h := handler.NewProcessHandler(svc, zap.NewNop())

	r := gin.New()
	v1 := r.Group("/api/v1")
	h.Register(v1)
	return r, store
}

func TestRecordAttempt_201_returnsReceipt(t *testing.T) {
	router, store := setupProcessRouter(t)

	body := `{
		"instruction_id": "7f3a",
		"gps": {"lat": -26.2041, "lng": 28.0473, "accuracy": 5},
		"outcome": "served",
		"notes": "handed over at gate",
		"items": [{"kind": "photo", "ref": "media/7f3a/1.jpg"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process/attempts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Receipt struct {
			ChainID  string `json:"chain_id"`
			Sequence uint64 `json:"sequence"`
			Hash     string `json:"hash"`
		} `json:"receipt"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Receipt.ChainID != "instr-7f3a" || resp.Receipt.Hash == "" {
		t.Errorf("unexpected receipt: %+v", resp.Receipt)
	}

	n, err := store.Len(ctx, "instr-7f3a")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 sealed link, got %d", n)
	}
}

func TestRecordAttempt_400_validationFailure(t *testing.T) {
	router, _ := setupProcessRouter(t)

	body := `{
		"instruction_id": "7f3a",
		"gps": {"lat": 95, "lng": 28.0473, "accuracy": 5},
		"outcome": "served"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process/attempts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRecordAttempt_400_malformedBody(t *testing.T) {
	router, _ := setupProcessRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process/attempts", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
