package consumer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "stagegate/pkg/platform/audit"
)

const (
	defaultBufferCapacity = 10000
	defaultFlushBatch     = 256
	defaultFlushInterval  = 5 * time.Second
)

// ringBuffer is a bounded buffer for security entries. When full, the oldest
// entry is dropped to make room; the security feed prefers fresh signal over
// completeness.
type ringBuffer struct {
	mu       sync.Mutex
	entries  []audit.Entry
	head     int
	tail     int
	count    int
	capacity int
	dropped  int64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = defaultBufferCapacity
	}
	return &ringBuffer{
		entries:  make([]audit.Entry, capacity),
		capacity: capacity,
	}
}

func (b *ringBuffer) enqueue(entry audit.Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count >= b.capacity {
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
	}
	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	b.count++
}

func (b *ringBuffer) dequeueBatch(n int) []audit.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}
	out := make([]audit.Entry, n)
	for i := 0; i < n; i++ {
		out[i] = b.entries[b.tail]
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return out
}

func (b *ringBuffer) stats() (length int, dropped int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count, b.dropped
}

// SecurityHandler buffers security-sensitive entries and flushes them in
// batches onto a dedicated structured log stream the SIEM tails. Buffering
// decouples a slow log sink from the consume loop.
type SecurityHandler struct {
	buffer *ringBuffer
	feed   *slog.Logger
}

func NewSecurityHandler(feed *slog.Logger) *SecurityHandler {
	return &SecurityHandler{
		buffer: newRingBuffer(defaultBufferCapacity),
		feed:   feed,
	}
}

func (h *SecurityHandler) Handle(_ context.Context, entry audit.Entry) error {
	h.buffer.enqueue(entry)
	return nil
}

// Run flushes the buffer on an interval until the context is cancelled, then
// performs one final drain.
func (h *SecurityHandler) Run(ctx context.Context) {
	ticker := time.NewTicker(defaultFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			h.flush(ctx)
		}
	}
}

func (h *SecurityHandler) flush(ctx context.Context) {
	for {
		batch := h.buffer.dequeueBatch(defaultFlushBatch)
		if len(batch) == 0 {
			break
		}
		for _, entry := range batch {
			h.feed.WarnContext(ctx, "security-sensitive override",
				"entry_id", entry.ID.String(),
				"action", string(entry.Action),
				"actor_id", entry.ActorID.String(),
				"target_id", entry.TargetID,
				"reason", entry.Reason,
				"request_id", entry.RequestID,
				"occurred_at", entry.CreatedAt.Format(time.RFC3339Nano),
			)
		}
	}
	if length, dropped := h.buffer.stats(); dropped > 0 {
		h.feed.WarnContext(ctx, "security feed dropped entries under backpressure",
			"buffered", length,
			"dropped_total", dropped,
		)
	}
}
