package pubsub

import (
	"container/list"
	"sync/atomic"

	"rpcsubscriptions/metrics"
)

// Payload is a weak handle onto a serialized notification body. The
// recent-items buffer is the sole strong holder of the bytes (spec
// §4.1, §4.2, §9 "weak payload handles"): this module's go1.23.4
// toolchain predates the standard library's weak.Pointer[T], so the
// same effect is achieved by hand — every BroadcastMessage shares this
// one *Payload with the entry recentItems owns, and eviction clears its
// body so a transport sitting on a queued handle observes the payload
// as gone instead of keeping the bytes reachable.
type Payload struct {
	body atomic.Pointer[[]byte]
}

// NewPayload wraps body in a fresh handle. Exported so tests outside
// this package can build a BroadcastMessage without a live notifier.
func NewPayload(body []byte) *Payload {
	p := &Payload{}
	p.body.Store(&body)
	return p
}

// Bytes returns the serialized body and whether it is still resident
// in the recent-items buffer.
func (p *Payload) Bytes() ([]byte, bool) {
	b := p.body.Load()
	if b == nil {
		return nil, false
	}
	return *b, true
}

func (p *Payload) len() int {
	b := p.body.Load()
	if b == nil {
		return 0
	}
	return len(*b)
}

// evict severs the shared reference, letting the GC reclaim the body
// once every other strong reference (there should be none) is gone.
func (p *Payload) evict() {
	p.body.Store(nil)
}

// recentItems is a bounded FIFO of serialized notification payloads,
// enforcing both a count cap and a byte cap (spec §4.1). There is no
// direct teacher analogue for a bounded buffer; the FIFO shape is the
// generic Go container/list idiom, and the eviction telemetry follows
// adred-codev-ws_poc's metrics-on-every-mutation style.
type recentItems struct {
	items      *list.List // of *Payload
	totalBytes int
	maxLen     int
	maxBytes   int
	metrics    *metrics.Engine
}

func newRecentItems(maxLen, maxBytes int, m *metrics.Engine) *recentItems {
	return &recentItems{
		items:    list.New(),
		maxLen:   maxLen,
		maxBytes: maxBytes,
		metrics:  m,
	}
}

// push appends item, then evicts from the front while either cap is
// exceeded. Byte accounting uses checked arithmetic: overflow or
// underflow is a programming error (spec §4.1).
func (r *recentItems) push(item *Payload) {
	newTotal := r.totalBytes + item.len()
	if newTotal < r.totalBytes {
		panicProgrammingError("recent-items byte total overflowed")
	}
	r.totalBytes = newTotal
	r.items.PushBack(item)

	for r.totalBytes > r.maxBytes || r.items.Len() > r.maxLen {
		front := r.items.Front()
		if front == nil {
			panicProgrammingError("recent-items queue empty while over cap")
		}
		evicted := front.Value.(*Payload)
		newTotal := r.totalBytes - evicted.len()
		if newTotal > r.totalBytes {
			panicProgrammingError("recent-items byte total underflowed")
		}
		r.totalBytes = newTotal
		r.items.Remove(front)
		evicted.evict()
	}

	if r.metrics != nil {
		r.metrics.RecentItemsCount.Set(float64(r.items.Len()))
		r.metrics.RecentItemsBytes.Set(float64(r.totalBytes))
	}
}

func (r *recentItems) len() int { return r.items.Len() }
