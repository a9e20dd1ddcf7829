package ws

import (
	"net/http"
	"sync"
	"time"

	"marketfin-finance-services/internal/auth"
	"marketfin-finance-services/internal/config"
	"marketfin-finance-services/internal/feed"
	"marketfin-finance-services/internal/finance"
	"marketfin-finance-services/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server pushes recomputed analytics to connected operator dashboards
// whenever the snapshot feed swaps in a new state.
type Server struct {
	Feed   *feed.Feed
	Logger *zap.Logger
	Config config.Config
}

func New(f *feed.Feed, logger *zap.Logger, cfg config.Config) *Server {
	return &Server{Feed: f, Logger: logger, Config: cfg}
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

func (c *wsClient) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

type analyticsPush struct {
	Type        string                      `json:"type"`
	Version     int64                       `json:"version"`
	Window      finance.Window              `json:"window"`
	Totals      finance.GlobalMetrics       `json:"totals"`
	Restaurants []finance.RestaurantMetrics `json:"restaurants"`
	Partners    []finance.PartnerMetrics    `json:"partners"`
}

// HandleAnalytics upgrades the connection and streams analytics for the
// requested window. Browsers cannot set Authorization headers on websocket
// dials, so the token rides a query parameter.
func (s *Server) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.VerifyAccessToken(r.URL.Query().Get("token"), s.Config.JWTSecret)
	if err != nil || !claims.IsOperator() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	window, err := finance.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		http.Error(w, "invalid window", http.StatusBadRequest)
		return
	}
	includeIdle := r.URL.Query().Get("includeIdle") == "true"

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &wsClient{conn: conn}
	defer conn.Close()

	updates, cancel := s.Feed.Subscribe()
	defer cancel()

	// Reader only drains control frames; a read error means the peer left.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := client.writeJSON(s.buildPush(s.Feed.Snapshot(), window, includeIdle)); err != nil {
		return
	}

	heartbeat := time.NewTicker(s.Config.WSHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-closed:
			return
		case <-heartbeat.C:
			if err := client.ping(); err != nil {
				return
			}
		case snap := <-updates:
			if err := client.writeJSON(s.buildPush(snap, window, includeIdle)); err != nil {
				return
			}
		}
	}
}

func (s *Server) buildPush(snap models.Snapshot, window finance.Window, includeIdle bool) analyticsPush {
	totals, restaurants, partners := finance.Aggregate(snap, window, "", time.Now())
	if !includeIdle {
		restaurants = finance.ActiveOnly(restaurants)
	}
	return analyticsPush{
		Type:        "analytics",
		Version:     snap.Version,
		Window:      window,
		Totals:      totals,
		Restaurants: restaurants,
		Partners:    partners,
	}
}
