// Package pubsub is the blockchain node's pub/sub notification engine:
// it multiplexes slot/vote/root/commitment events from many producers
// into a single ordered stream, matches them against a registry of
// client subscriptions, and broadcasts serialized JSON-RPC
// notifications to per-client transports with bounded memory.
package pubsub

import (
	"crypto/sha256"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"rpcsubscriptions/ledger"
	"rpcsubscriptions/metrics"
)

// Config bounds the engine's resource usage (spec §6 Configuration).
type Config struct {
	// MaxActiveSubscriptions caps registry.activeCount(); 0 means
	// unbounded.
	MaxActiveSubscriptions int
	// QueueCapacityItems bounds both the recent-items buffer's length
	// and each broadcast receiver's channel depth.
	QueueCapacityItems int
	// QueueCapacityBytes bounds the recent-items buffer's total size.
	QueueCapacityBytes int
	// IngestCapacity bounds how many unconsumed events the ingest
	// channel holds before a producer's Notify* call is dropped rather
	// than blocking (mirrors the broadcast channel's drop-when-full
	// posture, spec §5).
	IngestCapacity int
}

// DefaultConfig returns reasonable bounds for a single demo node.
func DefaultConfig() Config {
	return Config{
		MaxActiveSubscriptions: 0,
		QueueCapacityItems:     4096,
		QueueCapacityBytes:     64 << 20,
		IngestCapacity:         1024,
	}
}

// Control is the notification engine's public facade (spec §4.7): the
// set of externally callable entry points for enqueuing events and for
// subscribe/unsubscribe bookkeeping, plus the broadcast receiver
// factory transports use.
type Control struct {
	dispatcher *dispatcher
	broadcast  *broadcaster
	nextSubID  atomic.Uint64

	closed atomic.Bool
}

// New constructs the engine and spawns its dispatcher goroutine
// (spec §4.7 "construction spawns the dispatcher worker"). banks is the
// external collaborator consulted for every bank-at-slot lookup
// (spec §6 BankForks); commitments and optimistic are consulted only
// when initializing a new Account subscription's last-notified-slot
// (spec §4.6 Subscribed) and may be nil if the caller never needs that
// path exercised (e.g. a test ledger with no separate commitment
// cache). Pass nil for m to disable instrumentation.
func New(cfg Config, banks ledger.BankForks, commitments ledger.BlockCommitmentCache, optimistic ledger.OptimisticallyConfirmedBank, m *metrics.Engine) *Control {
	reg := newRegistry(cfg.MaxActiveSubscriptions)
	bcast := newBroadcaster(cfg.QueueCapacityItems, m)
	recent := newRecentItems(cfg.QueueCapacityItems, cfg.QueueCapacityBytes, m)
	notifier := newNotifier(bcast, recent, m)
	disp := newDispatcher(cfg.IngestCapacity, banks, commitments, optimistic, reg, notifier, m)

	c := &Control{dispatcher: disp, broadcast: bcast}
	go disp.run()
	return c
}

// enqueue submits ev to the ingest queue. If the dispatcher has already
// shut down, the event is dropped and Disconnected is logged at WARN
// (spec §7 Disconnected), never blocking the caller indefinitely.
func (c *Control) enqueue(ev event) {
	if c.closed.Load() {
		logDisconnected()
		return
	}
	select {
	case c.dispatcher.ingest <- ev:
	default:
		// Ingest queue is momentarily full; producers are expected to
		// retry or accept loss here rather than block the caller, the
		// same at-most-once posture as the broadcast channel.
		if c.dispatcher.metrics != nil {
			c.dispatcher.metrics.IngestDropped.Inc()
		}
	}
}

// Subscribe registers params, returning the new (or, for byte-identical
// parameters, the shared existing) subscription's id
// (spec §4.3, §4.7, I6).
func (c *Control) Subscribe(params SubscriptionParams) (uint64, error) {
	id := c.nextSubID.Add(1)
	result := make(chan subscribeResult, 1)
	c.enqueue(subscribeRequest{id: id, params: params, result: result})

	res, ok := c.awaitSubscribe(result)
	if !ok {
		return 0, ErrDisconnected
	}
	if res.err != nil {
		return 0, res.err
	}
	return res.info.ID, nil
}

func (c *Control) awaitSubscribe(result chan subscribeResult) (subscribeResult, bool) {
	if c.closed.Load() {
		return subscribeResult{}, false
	}
	select {
	case res := <-result:
		return res, true
	case <-time.After(5 * time.Second):
		return subscribeResult{}, false
	}
}

// Unsubscribe tears down id (spec §4.3, §4.7).
func (c *Control) Unsubscribe(id uint64) bool {
	result := make(chan bool, 1)
	c.enqueue(unsubscribeRequest{id: id, result: result})

	select {
	case ok := <-result:
		return ok
	case <-time.After(5 * time.Second):
		return false
	}
}

// NotifySubscribers enqueues a Bank event: the commitment-watcher index
// is matched against snap (spec §4.7).
func (c *Control) NotifySubscribers(snap CommitmentSlots) {
	c.enqueue(bankEvent{snap: snap})
}

// NotifyGossipSubscribers enqueues a Gossip event: only the Confirmed-
// eligible gossip-watcher index is matched (spec §4.4, §4.7).
func (c *Control) NotifyGossipSubscribers(highestConfirmedSlot uint64) {
	c.enqueue(gossipEvent{highestConfirmedSlot: highestConfirmedSlot})
}

// NotifySlot enqueues both a Slot event and a CreatedBank SlotUpdate
// event, in that order (spec §4.7).
func (c *Control) NotifySlot(slot, parent, root uint64) {
	c.enqueue(slotEvent{slot: slot, parent: parent, root: root})
	c.enqueue(slotUpdateEvent{kind: slotUpdateCreatedBank, slot: slot, parent: parent, timestamp: timeNow()})
}

// NotifySlotUpdate enqueues a single slot-lifecycle transition
// (spec §4.7).
func (c *Control) NotifySlotUpdate(kind slotUpdateKind, slot, parent uint64) {
	c.enqueue(slotUpdateEvent{kind: kind, slot: slot, parent: parent, timestamp: timeNow()})
}

// NotifySignaturesReceived enqueues a SignaturesReceived event
// (spec §4.7).
func (c *Control) NotifySignaturesReceived(slot uint64, signatures []string) {
	c.enqueue(signaturesReceivedEvent{slot: slot, signatures: signatures})
}

// NotifyVote enqueues a Vote event (spec §4.7).
func (c *Control) NotifyVote(slots []uint64, hash [32]byte, timestamp *int64) {
	c.enqueue(voteEvent{slots: slots, hash: hash, timestamp: timestamp})
}

// NotifyRoots sorts slots ascending and enqueues a Root SlotUpdate
// followed by a Root event per slot, in that order (spec §4.7, P5).
func (c *Control) NotifyRoots(slots []uint64) {
	sorted := append([]uint64(nil), slots...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, slot := range sorted {
		c.enqueue(slotUpdateEvent{kind: slotUpdateRoot, slot: slot, timestamp: timeNow()})
		c.enqueue(rootEvent{slot: slot})
	}
}

// Receiver registers a new transport receiver with the broadcaster
// (spec §4.7 "a factory for broadcast-channel receivers that transports
// use"). The returned function must be called on transport disconnect.
func (c *Control) Receiver() (<-chan BroadcastMessage, func()) {
	return c.broadcast.Receiver()
}

// Close sets the exit flag and joins the dispatcher goroutine, bounded
// by the dispatcher's receive timeout (spec §4.7 "construction spawns
// the dispatcher worker... shutdown sets an atomic exit flag and joins
// the worker").
func (c *Control) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.dispatcher.shuttingDown.Store(true)
	<-c.dispatcher.done
}

// VoteHash hashes an arbitrary vote payload into the fixed-size digest
// NotifyVote expects, for callers that only have a byte blob rather
// than a precomputed hash.
func VoteHash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

func timeNow() time.Time { return time.Now() }

// logDisconnected logs the Disconnected error case (spec §7): a
// producer's event is dropped because the dispatcher already shut down.
// It is intentionally not returned to callers, which observe
// fire-and-forget semantics for the Notify* methods.
func logDisconnected() {
	slog.Warn("pubsub: dropping event, dispatcher is shut down")
}
