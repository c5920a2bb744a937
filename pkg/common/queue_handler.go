package common

import (
	"iter"
	"slices"
	"sync"
	"time"
)

// QueueProcessor is a function that processes a batch of items from the queue.
type QueueProcessor[V any] func(items []V)

// QueueHandler decouples producers from a batch processor: Add returns
// immediately and a background goroutine feeds the processor in chunks.
type QueueHandler[V any] struct {
	mu        sync.Mutex
	queue     []V
	processor QueueProcessor[V]
	chunkSize int
}

// NewQueueHandler creates a new QueueHandler and starts its worker.
func NewQueueHandler[V any](processor QueueProcessor[V], chunkSize int) *QueueHandler[V] {
	q := &QueueHandler[V]{
		queue:     make([]V, 0),
		processor: processor,
		chunkSize: chunkSize,
	}
	go q.processQueue()
	return q
}

// Add adds items to the queue.
func (h *QueueHandler[V]) Add(items ...V) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, items...)
}

func (h *QueueHandler[V]) AddIter(items iter.Seq[V]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, slices.Collect(items)...)
}

// Len reports how many items are waiting.
func (h *QueueHandler[V]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Flush drains the queue on the caller's goroutine. Meant for shutdown
// hooks that must see queued work applied before they snapshot.
func (h *QueueHandler[V]) Flush() {
	for h.processChunk() {
	}
}

func (h *QueueHandler[V]) processChunk() bool {
	h.mu.Lock()
	if len(h.queue) == 0 {
		h.mu.Unlock()
		return false
	}
	items := h.queue[:min(h.chunkSize, len(h.queue))]
	h.queue = h.queue[len(items):]
	h.mu.Unlock()

	h.processor(items)
	return true
}

func (h *QueueHandler[V]) processQueue() {
	for {
		if !h.processChunk() {
			time.Sleep(time.Second)
		}
	}
}
