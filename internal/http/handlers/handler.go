package handlers

import (
	"marketfin-finance-services/internal/cache"
	"marketfin-finance-services/internal/config"
	"marketfin-finance-services/internal/feed"
	"marketfin-finance-services/internal/ledger"
	"marketfin-finance-services/internal/queue"
	"marketfin-finance-services/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Handler carries the shared dependencies for the admin finance surface.
// Queue, Cache, and Receipts may be nil; the handlers degrade to direct
// computation without them.
type Handler struct {
	DB       *pgxpool.Pool
	Logger   *zap.Logger
	Config   config.Config
	Feed     *feed.Feed
	Ledger   *ledger.Service
	Cache    *cache.Cache
	Queue    *queue.Client
	Receipts *storage.ObjectStore
}
