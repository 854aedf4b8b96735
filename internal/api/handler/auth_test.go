package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/praxis-legal/praxis/internal/api/handler"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/whoami", handler.RequireAuth(testSecret, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": handler.Actor(c)})
	})
	return r
}

func TestRequireAuth_validToken(t *testing.T) {
	router := setupAuthRouter(t)

	token, err := handler.IssueToken(testSecret, "sheriff-77", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); !strings.Contains(body, "sheriff-77") {
		t.Errorf("expected actor sheriff-77 in %s", body)
	}
}

func TestRequireAuth_missingToken(t *testing.T) {
	router := setupAuthRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuth_wrongSecret(t *testing.T) {
	router := setupAuthRouter(t)

	token, err := handler.IssueToken("other-secret", "sheriff-77", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuth_expiredToken(t *testing.T) {
	router := setupAuthRouter(t)

	token, err := handler.IssueToken(testSecret, "sheriff-77", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
