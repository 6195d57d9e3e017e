package pubsub

import "time"

// event is the closed set of things the ingest channel carries into the
// dispatcher (spec §4.6, grounded on original_source/rpc_subscriptions.rs's
// NotificationEntry enum). It is unexported: callers only ever construct
// events through Control's Notify* methods.
type event interface{ isEvent() }

// subscribeRequest is the Subscribed event (spec §4.6): registry
// insert, with last-notified-slot initialized for Account subscriptions
// by querying the bank at the commitment-resolved slot. It carries a
// result channel because, unlike the other events, a caller needs a
// synchronous answer — the capacity check (I5) must surface
// CapacityExceeded back to the RPC caller, not just log it.
type subscribeRequest struct {
	id     uint64
	params SubscriptionParams
	result chan subscribeResult
}

type subscribeResult struct {
	info *SubscriptionInfo
	err  error
}

// unsubscribeRequest is the Unsubscribed event (spec §4.6): registry
// removal. Also carries a result channel so a caller can tell whether
// its id was actually found.
type unsubscribeRequest struct {
	id     uint64
	result chan bool
}

// slotEvent carries a newly-processed slot (spec §4.6, §7 NotifySlot).
type slotEvent struct {
	slot, parent, root uint64
}

// slotUpdateKind distinguishes the different slot-lifecycle transitions
// a slotsUpdates subscriber cares about.
type slotUpdateKind int

const (
	slotUpdateCreatedBank slotUpdateKind = iota
	slotUpdateCompleted
	slotUpdateFrozen
	slotUpdateOptimisticConfirmation
	slotUpdateRoot
	slotUpdateDead
)

// slotUpdateEvent carries a fine-grained slot lifecycle transition
// (spec §3 slotsUpdates, §4.6).
type slotUpdateEvent struct {
	kind      slotUpdateKind
	slot      uint64
	parent    uint64
	timestamp time.Time
}

// voteEvent carries a new vote transaction (spec §3 vote, §4.6).
type voteEvent struct {
	slots     []uint64
	hash      [32]byte
	timestamp *int64
}

// rootEvent carries a newly-rooted slot (spec §3 root, §4.6).
type rootEvent struct {
	slot uint64
}

// bankEvent carries a fresh CommitmentSlots snapshot; its arrival
// triggers the match-and-notify engine over the bank-driven commitment
// watchers (spec §4.4, §4.6, §4.7 NotifySubscribers).
type bankEvent struct {
	snap CommitmentSlots
}

// gossipEvent carries a cluster-confirmed slot observed via gossip,
// before the local bank itself reaches that commitment (spec §4.4). Only
// HighestConfirmedSlot is known at this point, so only Confirmed-level
// account/program/logs/signature watchers are eligible
// (registry.gossipWatchers).
type gossipEvent struct {
	highestConfirmedSlot uint64
}

// signaturesReceivedEvent carries a batch of signatures that have been
// received (not yet processed) by the node, for signature subscribers
// that opted into the early "receivedSignature" notification
// (spec §3 signatureSubscribe, §4.6).
type signaturesReceivedEvent struct {
	slot       uint64
	signatures []string
}

func (subscribeRequest) isEvent()        {}
func (unsubscribeRequest) isEvent()      {}
func (slotEvent) isEvent()               {}
func (slotUpdateEvent) isEvent()         {}
func (voteEvent) isEvent()               {}
func (rootEvent) isEvent()               {}
func (bankEvent) isEvent()               {}
func (gossipEvent) isEvent()             {}
func (signaturesReceivedEvent) isEvent() {}
