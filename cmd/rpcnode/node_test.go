package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpcsubscriptions/ledger"
	"rpcsubscriptions/metrics"
	"rpcsubscriptions/pubsub"
)

func newTestNode(t *testing.T) *node {
	t.Helper()
	mem := ledger.NewMemoryLedger()
	control := pubsub.New(pubsub.DefaultConfig(), mem, mem, mem, metrics.NewEngine(nil, "test"))
	t.Cleanup(control.Close)
	return newNode(mem, control)
}

func TestAdvanceSlotCarriesForwardUnchangedAccounts(t *testing.T) {
	n := newTestNode(t)

	n.SetAccount("alice", ledger.Account{Lamports: 1, Owner: "prog"})
	slot1 := n.AdvanceSlot()
	assert.Equal(t, uint64(1), slot1)

	// No new writes staged for this slot: "alice" should carry forward
	// without looking freshly modified.
	slot2 := n.AdvanceSlot()
	assert.Equal(t, uint64(2), slot2)

	bank, ok := n.ledger.Get(slot2)
	require.True(t, ok)
	mb, ok := bank.(*ledger.MemoryBank)
	require.True(t, ok)

	changed := mb.GetProgramAccountsModifiedSinceParent("prog")
	assert.Empty(t, changed, "carried-forward accounts must not appear modified since parent")

	acc, modifiedSlot, found := mb.GetAccountModifiedSlot("alice")
	require.True(t, found)
	assert.Equal(t, uint64(1), acc.Lamports)
	assert.Equal(t, slot1, modifiedSlot, "carry-forward preserves the original modified slot")
}

func TestAdvanceSlotAppliesNewWritesAtCurrentSlot(t *testing.T) {
	n := newTestNode(t)

	n.AdvanceSlot()
	n.SetAccount("bob", ledger.Account{Lamports: 9, Owner: "prog"})
	slot := n.AdvanceSlot()

	bank, ok := n.ledger.Get(slot)
	require.True(t, ok)
	mb := bank.(*ledger.MemoryBank)

	changed := mb.GetProgramAccountsModifiedSinceParent("prog")
	require.Len(t, changed, 1)
	assert.Equal(t, "bob", changed[0].Pubkey)
}

func TestReorgDiscardsBanksAboveTarget(t *testing.T) {
	n := newTestNode(t)

	n.AdvanceSlot()
	n.AdvanceSlot()
	n.Reorg(1)

	_, ok := n.ledger.Get(2)
	assert.False(t, ok)
	_, ok = n.ledger.Get(1)
	assert.True(t, ok)
}

func TestSetRootUpdatesHighestConfirmedRoot(t *testing.T) {
	n := newTestNode(t)
	n.AdvanceSlot()
	n.SetRoot(1)

	assert.Equal(t, uint64(1), n.ledger.HighestConfirmedRoot())
}
