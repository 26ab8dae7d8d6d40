package share

import (
	"context"
	"log/slog"
	"sync"
)

// UpdateQueue decouples local bill mutations from relay publication. Saving
// a bill enqueues its id and returns immediately; a single worker drains
// the queue sequentially so relay load stays bounded and failures attribute
// to one bill at a time. An id already waiting is not queued twice: the
// worker reads the bill's latest content when its turn comes, so one pass
// covers any number of coalesced edits.
type UpdateQueue struct {
	syncer *Syncer

	mu      sync.Mutex
	pending map[string]struct{}
	ids     chan string
	wg      sync.WaitGroup
}

// NewUpdateQueue returns a queue holding at most size distinct bills.
func NewUpdateQueue(syncer *Syncer, size int) *UpdateQueue {
	return &UpdateQueue{
		syncer:  syncer,
		pending: make(map[string]struct{}, size),
		ids:     make(chan string, size),
	}
}

// Enqueue schedules the bill for publication and reports whether it is now
// queued. It never blocks: when the queue is full the request is dropped
// with a warning, leaving the bill to the next edit or explicit reshare.
func (q *UpdateQueue) Enqueue(billID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, waiting := q.pending[billID]; waiting {
		return true
	}
	select {
	case q.ids <- billID:
		q.pending[billID] = struct{}{}
		q.wg.Add(1)
		queueDepth.Set(float64(len(q.pending)))
		return true
	default:
		queueDropped.Inc()
		slog.Warn("Update queue full, dropping sync request", "billId", billID)
		return false
	}
}

// Run consumes the queue until ctx is cancelled, then drains whatever was
// already accepted so that work is not lost on shutdown.
func (q *UpdateQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.drain()
			return
		case id := <-q.ids:
			q.process(ctx, id)
		}
	}
}

// Wait blocks until every accepted request has been processed.
func (q *UpdateQueue) Wait() {
	q.wg.Wait()
}

func (q *UpdateQueue) process(ctx context.Context, billID string) {
	defer q.wg.Done()
	// Unmark before syncing: an edit landing mid-sync must re-queue, since
	// the running pass may have read the pre-edit content.
	q.mu.Lock()
	delete(q.pending, billID)
	queueDepth.Set(float64(len(q.pending)))
	q.mu.Unlock()

	if err := q.syncer.SyncBill(ctx, billID); err != nil {
		slog.Error("Failed to sync shared bill", "billId", billID, "error", err)
	}
}

// drain processes the remaining ids with a fresh context; the relay client
// still applies its own per-call timeout, so shutdown stays bounded.
func (q *UpdateQueue) drain() {
	for {
		select {
		case id := <-q.ids:
			q.process(context.Background(), id)
		default:
			return
		}
	}
}
