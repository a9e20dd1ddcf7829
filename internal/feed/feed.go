package feed

import (
	"context"
	"sync"
	"time"

	"marketfin-finance-services/internal/models"
	"marketfin-finance-services/internal/queue"

	"go.uber.org/zap"
)

// Loader reads one fully observed snapshot of every collection.
type Loader interface {
	LoadSnapshot(ctx context.Context) (models.Snapshot, error)
}

// Feed keeps the current snapshot and swaps in a fresh one whenever a
// collection changes. Change notifications arrive over RabbitMQ; a poll
// ticker covers missed or unavailable broker deliveries. Readers always see
// a complete snapshot, never a partially applied delta.
type Feed struct {
	loader       Loader
	broker       *queue.Client
	logger       *zap.Logger
	pollInterval time.Duration

	// refreshMu serializes whole refreshes. Without it two overlapping
	// loads can finish out of order and an older pre-commit read would
	// overwrite a newer snapshot under a higher version.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	snap        models.Snapshot
	version     int64
	subscribers map[int64]chan models.Snapshot
	nextSubID   int64

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a feed. broker may be nil; the feed then refreshes on the poll
// interval alone.
func New(loader Loader, broker *queue.Client, logger *zap.Logger, pollInterval time.Duration) *Feed {
	return &Feed{
		loader:       loader,
		broker:       broker,
		logger:       logger,
		pollInterval: pollInterval,
		subscribers:  map[int64]chan models.Snapshot{},
	}
}

// Start loads the initial snapshot, then refreshes on broker events and on
// the poll ticker until Stop is called.
func (f *Feed) Start(ctx context.Context) error {
	if err := f.Refresh(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	go f.run(runCtx)
	if f.broker != nil {
		go f.consume(runCtx)
	}
	return nil
}

func (f *Feed) Stop() {
	if f.cancel != nil {
		f.cancel()
		<-f.done
	}
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.Refresh(ctx); err != nil {
				f.logger.Error("snapshot poll failed", zap.Error(err))
			}
		}
	}
}

func (f *Feed) consume(ctx context.Context) {
	for {
		err := f.broker.Consume(queue.FeedQueue, func(msgCtx context.Context, routingKey string, _ []byte) error {
			f.logger.Debug("change event", zap.String("routingKey", routingKey))
			return f.Refresh(msgCtx)
		}, 3, time.Second)

		select {
		case <-ctx.Done():
			return
		default:
		}
		f.logger.Warn("feed consumer stopped, retrying", zap.Error(err))
		time.Sleep(5 * time.Second)
	}
}

// Refresh loads a fresh snapshot, bumps the version, and fans it out to
// subscribers. Refreshes are serialized so the installed snapshot is always
// the most recently loaded one. Slow subscribers are skipped rather than
// blocked on; they catch up on the next refresh.
func (f *Feed) Refresh(ctx context.Context) error {
	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()

	snap, err := f.loader.LoadSnapshot(ctx)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.version++
	snap.Version = f.version
	f.snap = snap
	for _, ch := range f.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
	f.mu.Unlock()
	return nil
}

// Snapshot returns the current snapshot. The caller must not mutate it.
func (f *Feed) Snapshot() models.Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snap
}

// Subscribe registers for snapshot updates. The returned cancel func must be
// called to release the channel.
func (f *Feed) Subscribe() (<-chan models.Snapshot, func()) {
	ch := make(chan models.Snapshot, 1)

	f.mu.Lock()
	f.nextSubID++
	id := f.nextSubID
	f.subscribers[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}
	return ch, cancel
}
