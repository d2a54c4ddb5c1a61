package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/storefront/internal/domain/model"
	pkgAuth "github.com/polkiloo/storefront/internal/pkg/auth"
	"github.com/polkiloo/storefront/internal/server/http/handlers"
	testhelpers "github.com/polkiloo/storefront/internal/test"
)

const adminID = int64(1)

func newTestEngine(realtime *testhelpers.RealtimeStub) *gin.Engine {
	return newTestEngineWithHealth(realtime, testhelpers.HealthCheckerStub{})
}

func newTestEngineWithHealth(realtime *testhelpers.RealtimeStub, health handlers.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	facade := testhelpers.StorefrontFacadeStub{
		TokenParserStub: testhelpers.TokenParserStub{ParseFn: func(token string) (int64, error) {
			switch token {
			case "good":
				return 9, nil
			case "admin":
				return adminID, nil
			}
			return 0, pkgAuth.ErrInvalidToken
		}},
		AdminCheckerStub: testhelpers.AdminCheckerStub{Admins: []int64{adminID}},
		OrderFacadeStub: testhelpers.OrderFacadeStub{
			OrdersFn: func(_ context.Context, userID int64) ([]model.Order, error) {
				return []model.Order{{OrderNumber: "ORD-1", UserID: userID, Status: model.OrderStatusPending, TotalAmount: decimal.NewFromInt(10)}}, nil
			},
		},
	}
	return Setup(facade, realtime, health, logger)
}

func authorized(method, path, token string, body []byte) *http.Request {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	return resp
}

func TestSetupRoutes(t *testing.T) {
	engine := newTestEngine(&testhelpers.RealtimeStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer good")
	if resp := serve(engine, req); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for orders, got %d", resp.Code)
	}

	body, _ := json.Marshal(map[string]any{
		"items":         []map[string]any{{"productId": 1, "variantId": 1, "quantity": 1}},
		"paymentMethod": "card",
	})
	req = httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good")
	if resp := serve(engine, req); resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202 for create, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/account", nil)
	req.AddCookie(&http.Cookie{Name: "storefront_token", Value: "good"})
	if resp := serve(engine, req); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for account, got %d", resp.Code)
	}

	if resp := serve(engine, authorized(http.MethodGet, "/api/jobs/"+uuid.NewString(), "admin", nil)); resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown job, got %d", resp.Code)
	}
}

func TestOperatorRoutesRequireAdmin(t *testing.T) {
	engine := newTestEngine(&testhelpers.RealtimeStub{})
	status, _ := json.Marshal(map[string]string{"status": "cancelled"})

	cases := []struct {
		name   string
		method string
		path   string
		body   []byte
		admin  int
	}{
		{name: "change status", method: http.MethodPatch, path: "/api/orders/ORD-1/status", body: status, admin: http.StatusOK},
		{name: "list jobs", method: http.MethodGet, path: "/api/jobs", admin: http.StatusOK},
		{name: "get job", method: http.MethodGet, path: "/api/jobs/" + uuid.NewString(), admin: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := serve(engine, authorized(tc.method, tc.path, "good", tc.body))
			if resp.Code != http.StatusForbidden {
				t.Fatalf("expected 403 for regular user, got %d", resp.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || body["code"] != "FORBIDDEN" {
				t.Fatalf("unexpected body %s", resp.Body.String())
			}

			if resp := serve(engine, authorized(tc.method, tc.path, "admin", tc.body)); resp.Code != tc.admin {
				t.Fatalf("expected %d for admin, got %d", tc.admin, resp.Code)
			}
		})
	}
}

func TestHealthRoute(t *testing.T) {
	engine := newTestEngine(&testhelpers.RealtimeStub{})
	if resp := serve(engine, httptest.NewRequest(http.MethodGet, "/healthz", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	engine = newTestEngineWithHealth(&testhelpers.RealtimeStub{}, testhelpers.HealthCheckerStub{Err: errors.New("ping")})
	if resp := serve(engine, httptest.NewRequest(http.MethodGet, "/healthz", nil)); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	engine := newTestEngine(&testhelpers.RealtimeStub{})

	for _, path := range []string{"/api/orders", "/api/account", "/api/jobs"} {
		if resp := serve(engine, httptest.NewRequest(http.MethodGet, path, nil)); resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", path, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer bad")
	if resp := serve(engine, req); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.Code)
	}
}

func TestRealtimeRoute(t *testing.T) {
	realtime := &testhelpers.RealtimeStub{}
	engine := newTestEngine(realtime)

	if resp := serve(engine, httptest.NewRequest(http.MethodGet, "/ws", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected anonymous connection, got %d", resp.Code)
	}
	if resp := serve(engine, httptest.NewRequest(http.MethodGet, "/ws?token=good", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected authenticated connection, got %d", resp.Code)
	}
	if resp := serve(engine, httptest.NewRequest(http.MethodGet, "/ws?token=bad", nil)); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.Code)
	}

	if len(realtime.Users) != 2 || realtime.Users[0] != 0 || realtime.Users[1] != 9 {
		t.Fatalf("unexpected connections %v", realtime.Users)
	}
}

var (
	_ handlers.StorefrontFacade = testhelpers.StorefrontFacadeStub{}
	_ handlers.Realtime         = (*testhelpers.RealtimeStub)(nil)
	_ handlers.HealthChecker    = testhelpers.HealthCheckerStub{}
)
