package pubsub

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"

	"rpcsubscriptions/ledger"
	"rpcsubscriptions/metrics"
)

// receiveDelay bounds how long the dispatcher blocks on the ingest
// channel before re-checking its shutdown flag (spec §4.6, §4.7
// RECEIVE_DELAY_MILLIS = 100ms).
const receiveDelay = 100 * time.Millisecond

// dispatcher is the single worker that owns the registry and drives all
// matching (spec §4.6, §5 "a single dedicated worker thread owns the
// registry... this side-steps registry locking entirely"). Grounded on
// the teacher's chain.go init-then-poll-atomic-flag idiom, generalized
// from "pause flag checked every block tick" to "shutdown flag checked
// every receive timeout."
type dispatcher struct {
	ingest      chan event
	banks       ledger.BankForks
	commitments ledger.BlockCommitmentCache
	optimistic  ledger.OptimisticallyConfirmedBank
	reg         *registry
	notifier    *notifier
	metrics     *metrics.Engine

	shuttingDown atomic.Bool
	done         chan struct{}
}

func newDispatcher(ingestCapacity int, banks ledger.BankForks, commitments ledger.BlockCommitmentCache, optimistic ledger.OptimisticallyConfirmedBank, reg *registry, n *notifier, m *metrics.Engine) *dispatcher {
	return &dispatcher{
		ingest:      make(chan event, ingestCapacity),
		banks:       banks,
		commitments: commitments,
		optimistic:  optimistic,
		reg:         reg,
		notifier:    n,
		metrics:     m,
		done:        make(chan struct{}),
	}
}

// currentCommitmentSlots reads the shared collaborators for a fresh
// CommitmentSlots snapshot (spec §5: "the dispatcher acquires shared
// access briefly per query"). Used only for initializing a new Account
// subscription's last-notified-slot (spec §4.6 Subscribed); ordinary
// matching always uses the snapshot carried on the triggering event.
func (d *dispatcher) currentCommitmentSlots() CommitmentSlots {
	var snap CommitmentSlots
	if d.commitments != nil {
		snap.Slot = d.commitments.Slot()
		snap.HighestConfirmedRoot = d.commitments.HighestConfirmedRoot()
	}
	if d.optimistic != nil {
		snap.HighestConfirmedSlot = d.optimistic.HighestConfirmedSlot()
	}
	return snap
}

// run is the dispatcher's single goroutine body: it receives from the
// ingest queue with a bounded timeout and, at each wake, first checks
// the shutdown flag. Timeouts are expected and ignored (spec §4.6).
func (d *dispatcher) run() {
	defer close(d.done)

	for {
		if d.shuttingDown.Load() {
			return
		}

		if d.metrics != nil {
			d.metrics.IngestQueueDepth.Set(float64(len(d.ingest)))
		}

		timer := time.NewTimer(receiveDelay)
		select {
		case ev, ok := <-d.ingest:
			timer.Stop()
			if !ok {
				return
			}
			d.dispatch(ev)
		case <-timer.C:
			// Expected: re-check the shutdown flag above.
		}
	}
}

// dispatch routes a single event to its handler (spec §4.6). The switch
// is exhaustive over the closed event set; an unreached default is a
// programming error, matching the Rust source's "wrong subscription
// type in alps map" case turned into a statically-unreachable branch
// (spec §9).
func (d *dispatcher) dispatch(ev event) {
	switch e := ev.(type) {
	case subscribeRequest:
		d.handleSubscribe(e)
	case unsubscribeRequest:
		e.result <- d.reg.unsubscribe(e.id)
	case slotEvent:
		d.handleSlot(e)
	case slotUpdateEvent:
		d.fanOutSingleton(KindSlotsUpdates, slotUpdatePayload(e), false)
	case voteEvent:
		d.handleVote(e)
	case rootEvent:
		d.fanOutSingleton(KindRoot, e.slot, false)
	case bankEvent:
		matchAndNotify(d.reg, d.reg.commitmentWatchers, e.snap, d.banks, d.notifier, d.metrics)
	case gossipEvent:
		snap := CommitmentSlots{HighestConfirmedSlot: e.highestConfirmedSlot}
		matchAndNotify(d.reg, d.reg.gossipWatchers, snap, d.banks, d.notifier, d.metrics)
	case signaturesReceivedEvent:
		d.handleSignaturesReceived(e)
	default:
		panicProgrammingError("unreachable event type in dispatcher", "type", fmt.Sprintf("%T", ev))
	}
}

func (d *dispatcher) handleSubscribe(req subscribeRequest) {
	initFn := func() uint64 {
		if req.params.Kind() != KindAccount {
			return 0
		}
		ap := req.params.(*AccountParams)
		resolvedSlot := resolveSlot(ap.Commitment, d.currentCommitmentSlots())
		bank, ok := d.banks.Get(resolvedSlot)
		if !ok {
			return 0
		}
		_, modifiedSlot, found := bank.GetAccountModifiedSlot(ap.Pubkey)
		if !found {
			return 0
		}
		return modifiedSlot
	}

	info, err := d.reg.subscribe(req.id, req.params, initFn)
	req.result <- subscribeResult{info: info, err: err}
}

func (d *dispatcher) handleSlot(e slotEvent) {
	d.fanOutSingleton(KindSlot, SlotPayload{Slot: e.slot, Parent: e.parent, Root: e.root}, false)
}

func (d *dispatcher) handleVote(e voteEvent) {
	payload := VotePayload{
		Slots:     e.slots,
		Hash:      base58.Encode(e.hash[:]),
		Timestamp: e.timestamp,
	}
	d.fanOutSingleton(KindVote, payload, false)
}

func (d *dispatcher) handleSignaturesReceived(e signaturesReceivedEvent) {
	for _, sig := range e.signatures {
		subs, ok := d.reg.bySignature[sig]
		if !ok {
			continue
		}
		for _, info := range subs {
			params := info.Params.(*SignatureParams)
			if !params.EnableReceivedNotification {
				continue
			}
			d.notifier.notify(withContext(e.slot, receivedSignatureValue{}), info, false)
		}
	}
}

// fanOutSingleton delivers value to the single node-progress watcher
// for kind, if one is currently registered (spec I2, §4.6).
func (d *dispatcher) fanOutSingleton(kind SubscriptionKind, value any, isFinal bool) {
	info, ok := d.reg.nodeProgress[kind]
	if !ok {
		return
	}
	d.notifier.notify(value, info, isFinal)
}

func slotUpdatePayload(e slotUpdateEvent) any {
	return map[string]any{
		"slot":      e.slot,
		"parent":    e.parent,
		"timestamp": e.timestamp.UnixMilli(),
		"type":      slotUpdateKindName(e.kind),
	}
}

func slotUpdateKindName(k slotUpdateKind) string {
	switch k {
	case slotUpdateCreatedBank:
		return "createdBank"
	case slotUpdateCompleted:
		return "completed"
	case slotUpdateFrozen:
		return "frozen"
	case slotUpdateOptimisticConfirmation:
		return "optimisticConfirmation"
	case slotUpdateRoot:
		return "root"
	case slotUpdateDead:
		return "dead"
	default:
		panicProgrammingError("unreachable slot-update kind", "kind", int(k))
		return ""
	}
}
