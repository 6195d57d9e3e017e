package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBankSetVsCarryAccount(t *testing.T) {
	bank := NewMemoryBank(5, 4)
	bank.SetAccount("alice", Account{Lamports: 10})

	_, modifiedSlot, ok := bank.GetAccountModifiedSlot("alice")
	require.True(t, ok)
	assert.Equal(t, uint64(5), modifiedSlot, "SetAccount stamps the bank's own slot")

	next := NewMemoryBank(6, 5)
	entry := bank.AllAccounts()["alice"]
	next.CarryAccount("alice", entry.Account, entry.ModifiedSlot)

	_, carriedSlot, ok := next.GetAccountModifiedSlot("alice")
	require.True(t, ok)
	assert.Equal(t, uint64(5), carriedSlot, "CarryAccount preserves the original modified slot")
}

func TestGetProgramAccountsModifiedSinceParent(t *testing.T) {
	parent := NewMemoryBank(5, 4)
	parent.SetAccount("alice", Account{Owner: "prog", Lamports: 1})

	child := NewMemoryBank(6, 5)
	for pubkey, entry := range parent.AllAccounts() {
		child.CarryAccount(pubkey, entry.Account, entry.ModifiedSlot)
	}
	child.SetAccount("bob", Account{Owner: "prog", Lamports: 2})

	changed := child.GetProgramAccountsModifiedSinceParent("prog")
	require.Len(t, changed, 1, "carried-forward accounts must not appear as modified since parent")
	assert.Equal(t, "bob", changed[0].Pubkey)
}

func TestGetTransactionLogs(t *testing.T) {
	bank := NewMemoryBank(1, 0)
	info := LogInfo{Signature: "sig1", Logs: []string{"log line"}}
	bank.AppendLog(info, "alice")

	logs, ok := bank.GetTransactionLogs("alice")
	require.True(t, ok)
	assert.Equal(t, []LogInfo{info}, logs)

	all, ok := bank.GetTransactionLogs("")
	require.True(t, ok)
	assert.Equal(t, []LogInfo{info}, all)

	_, ok = bank.GetTransactionLogs("nobody")
	assert.False(t, ok)
}

func TestMemoryLedgerFreezeAndRevert(t *testing.T) {
	l := NewMemoryLedger()
	assert.Equal(t, uint64(0), l.Slot())

	l.Freeze(NewMemoryBank(1, 0))
	l.Freeze(NewMemoryBank(2, 1))
	assert.Equal(t, uint64(2), l.Slot())

	_, ok := l.Get(2)
	require.True(t, ok)

	l.Revert(1)
	assert.Equal(t, uint64(1), l.Slot())

	_, ok = l.Get(2)
	assert.False(t, ok, "reverted banks must be discarded")

	_, ok = l.Get(1)
	assert.True(t, ok, "banks at or below the revert target survive")
}

func TestMemoryLedgerCommitmentTrackers(t *testing.T) {
	l := NewMemoryLedger()
	l.SetHighestConfirmedSlot(10)
	l.SetHighestConfirmedRoot(8)

	assert.Equal(t, uint64(10), l.HighestConfirmedSlot())
	assert.Equal(t, uint64(8), l.HighestConfirmedRoot())
}

func TestAccountIsZero(t *testing.T) {
	assert.True(t, Account{}.IsZero())
	assert.False(t, Account{Lamports: 1}.IsZero())
}
