package main

import (
	"sync"

	"rpcsubscriptions/ledger"
	"rpcsubscriptions/pubsub"
)

// node is the demo binary's in-memory chain simulator: it owns the
// ledger and the pending account writes for the next frozen bank, and
// drives pubsub.Control's Notify* calls as slots advance — the
// generalized, Solana-shaped successor to the teacher's SolanaNode
// atomic slot counter (chain.go), now backed by a real bank-per-slot
// ledger instead of a bare uint64.
type node struct {
	mu      sync.Mutex
	ledger  *ledger.MemoryLedger
	control *pubsub.Control

	slot   uint64
	parent uint64
	root   uint64

	pendingAccounts map[string]ledger.Account
}

func newNode(l *ledger.MemoryLedger, control *pubsub.Control) *node {
	return &node{
		ledger:          l,
		control:         control,
		pendingAccounts: make(map[string]ledger.Account),
	}
}

// SetAccount stages an account write to land in the next advanced slot.
func (n *node) SetAccount(pubkey string, account ledger.Account) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pendingAccounts[pubkey] = account
}

// AdvanceSlot freezes a new bank carrying forward every prior account
// plus any staged writes, then notifies subscribers (spec §4.7
// NotifySlot, which itself enqueues both Slot and CreatedBank).
func (n *node) AdvanceSlot() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	parent := n.slot
	next := parent + 1

	bank := ledger.NewMemoryBank(next, parent)
	if prev, ok := n.ledger.Get(parent); ok {
		if mb, ok := prev.(*ledger.MemoryBank); ok {
			for pubkey, entry := range mb.AllAccounts() {
				bank.CarryAccount(pubkey, entry.Account, entry.ModifiedSlot)
			}
		}
	}
	for pubkey, account := range n.pendingAccounts {
		bank.SetAccount(pubkey, account)
	}
	n.pendingAccounts = make(map[string]ledger.Account)

	n.ledger.Freeze(bank)
	n.parent = parent
	n.slot = next

	n.control.NotifySlot(next, parent, n.root)
	n.control.NotifySubscribers(pubsub.CommitmentSlots{
		Slot:                 next,
		HighestConfirmedSlot: n.ledger.HighestConfirmedSlot(),
		HighestConfirmedRoot: n.ledger.HighestConfirmedRoot(),
	})
	return next
}

// ConfirmSlot marks slot as optimistically confirmed and notifies both
// the gossip-watcher path and the ordinary commitment-watcher path,
// mirroring how a real validator's vote-counting pipeline and its local
// bank both eventually observe the same confirmation.
func (n *node) ConfirmSlot(slot uint64) {
	n.mu.Lock()
	n.ledger.SetHighestConfirmedSlot(slot)
	root := n.root
	processedSlot := n.slot
	n.mu.Unlock()

	n.control.NotifyGossipSubscribers(slot)
	n.control.NotifySubscribers(pubsub.CommitmentSlots{
		Slot:                 processedSlot,
		HighestConfirmedSlot: slot,
		HighestConfirmedRoot: root,
	})
}

// SetRoot finalizes slot, batching through NotifyRoots (spec §4.7, P5).
func (n *node) SetRoot(slot uint64) {
	n.mu.Lock()
	n.ledger.SetHighestConfirmedRoot(slot)
	n.root = slot
	n.mu.Unlock()

	n.control.NotifyRoots([]uint64{slot})
}

// Reorg discards every bank above toSlot, simulating a fork reversion
// so an Account subscriber's last-notified-slot can revert backward
// (spec P2).
func (n *node) Reorg(toSlot uint64) {
	n.mu.Lock()
	n.ledger.Revert(toSlot)
	n.slot = toSlot
	root := n.root
	n.mu.Unlock()

	n.control.NotifySubscribers(pubsub.CommitmentSlots{
		Slot:                 toSlot,
		HighestConfirmedSlot: n.ledger.HighestConfirmedSlot(),
		HighestConfirmedRoot: root,
	})
}
