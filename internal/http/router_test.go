package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketfin-finance-services/internal/auth"
	"marketfin-finance-services/internal/config"
	"marketfin-finance-services/internal/feed"
	"marketfin-finance-services/internal/http/handlers"
	"marketfin-finance-services/internal/models"
	"marketfin-finance-services/internal/ws"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type staticLoader struct {
	snap models.Snapshot
}

func (l *staticLoader) LoadSnapshot(context.Context) (models.Snapshot, error) {
	return l.snap, nil
}

func operatorToken(t *testing.T, secret string, role auth.UserRole) string {
	t.Helper()
	claims := auth.Claims{
		UserID: "u1",
		Role:   role,
		Email:  "ops@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("token signing failed: %v", err)
	}
	return signed
}

func testServer(t *testing.T) (*httptest.Server, config.Config) {
	t.Helper()
	cfg := config.Config{
		JWTSecret:           "test-secret",
		WSHeartbeatInterval: 30 * time.Second,
	}

	snap := models.Snapshot{
		Restaurants: []models.Restaurant{{ID: "r1", Name: "Spice Villa"}},
		Orders: []models.Order{
			{ID: "o1", RestaurantID: "r1", TotalAmount: 500, PaymentMethod: models.PaymentOnline, Status: models.OrderDelivered, CreatedAt: time.Now().UnixMilli()},
		},
	}
	f := feed.New(&staticLoader{snap: snap}, nil, zap.NewNop(), time.Minute)
	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("snapshot load failed: %v", err)
	}

	h := &handlers.Handler{Logger: zap.NewNop(), Config: cfg, Feed: f}
	srv := httptest.NewServer(NewRouter(h, ws.New(f, zap.NewNop(), cfg), zap.NewNop(), cfg))
	t.Cleanup(srv.Close)
	return srv, cfg
}

// The telemetry middleware wraps every response writer, so the wrapper must
// keep supporting connection hijack or websocket upgrades break.
func TestAnalyticsWebsocketUpgradeThroughRouter(t *testing.T) {
	srv, cfg := testServer(t)

	token := operatorToken(t, cfg.JWTSecret, auth.RoleSuperAdmin)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/admin/analytics?window=today&token=" + token

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("websocket upgrade failed (status %d): %v", status, err)
	}
	defer conn.Close()

	var push struct {
		Type    string `json:"type"`
		Version int64  `json:"version"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&push); err != nil {
		t.Fatalf("initial push never arrived: %v", err)
	}
	if push.Type != "analytics" || push.Version != 1 {
		t.Fatalf("unexpected initial push: %+v", push)
	}
}

func TestAnalyticsWebsocketRejectsBadToken(t *testing.T) {
	srv, _ := testServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/admin/analytics?token=garbage"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		conn.Close()
		t.Fatal("expected handshake rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}
