package pubsub

import "time"

// SubscriptionInfo is the per-subscription bookkeeping record (spec §3).
// All fields are mutated only by the dispatcher goroutine; nothing in
// this struct needs a lock (spec §5, §9).
type SubscriptionInfo struct {
	ID     uint64
	Params SubscriptionParams
	Method string

	// lastNotifiedSlot is only meaningful for Account subscriptions;
	// every other kind leaves it at zero (spec §3).
	lastNotifiedSlot uint64

	// refCount backs I6: subscribes with byte-identical params share a
	// single SubscriptionInfo and increment this instead of creating a
	// new entry.
	refCount int

	createdAt time.Time
}

func newSubscriptionInfo(id uint64, params SubscriptionParams) *SubscriptionInfo {
	return &SubscriptionInfo{
		ID:        id,
		Params:    params,
		Method:    params.Kind().Method(),
		refCount:  1,
		createdAt: time.Now(),
	}
}
