// Package ledger defines the collaborator interfaces the notification
// engine consults but does not own (spec §6): per-slot bank snapshots,
// the bank-forks index, the block-commitment cache and the
// optimistically-confirmed-bank tracker. It also ships an in-memory
// reference implementation good enough to drive a demo node or a test
// suite, generalized from the teacher's SolanaNode slot counter (which
// tracked only a bare slot number) into a slot-indexed map of full
// account/program/signature/log state supporting fork reverts.
package ledger

import "sync"

// Account is a single ledger account as the engine and its encoders see
// it (spec §6 "account owner/data accessors").
type Account struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
	RentEpoch  uint64
}

// IsZero reports whether a is the zero-valued account used to signal
// deletion to Account subscribers (spec §4.5 Account filter).
func (a Account) IsZero() bool {
	return a == Account{}
}

// TransactionResult is the outcome of a processed transaction; a nil Err
// means success (spec §6 get_signature_status_processed_since_parent).
type TransactionResult struct {
	Err any
}

// LogInfo is a single transaction's log output (spec §4.5 Logs filter).
type LogInfo struct {
	Signature string
	Err       any
	Logs      []string
	IsVote    bool
}

// Bank is a read-only snapshot of ledger state at one slot
// (spec §6 Bank).
type Bank interface {
	Slot() uint64

	// GetAccountModifiedSlot returns the account at pubkey and the slot
	// it was last modified at, if it has ever been written.
	GetAccountModifiedSlot(pubkey string) (Account, uint64, bool)

	// GetProgramAccountsModifiedSinceParent returns every account owned
	// by programPubkey that changed versus this bank's parent.
	GetProgramAccountsModifiedSinceParent(programPubkey string) []KeyedAccount

	// GetSignatureStatusProcessedSinceParent returns the processed
	// result for signature, if this bank (versus its parent) settled it.
	GetSignatureStatusProcessedSinceParent(signature string) (TransactionResult, bool)

	// GetTransactionLogs returns log entries for pubkey, or for every
	// transaction in the bank when pubkey is empty.
	GetTransactionLogs(pubkey string) ([]LogInfo, bool)
}

// KeyedAccount pairs a pubkey with its account value
// (spec §4.5 Program filter).
type KeyedAccount struct {
	Pubkey  string
	Account Account
}

// BankForks resolves a slot to its Bank snapshot under a shared,
// reader-writer-locked view (spec §6 BankForks, §5 "protected by
// reader-writer locks").
type BankForks interface {
	Get(slot uint64) (Bank, bool)
}

// BlockCommitmentCache reports the processed tip and the highest
// finalized (rooted) slot (spec §6 BlockCommitmentCache).
type BlockCommitmentCache interface {
	Slot() uint64
	HighestConfirmedRoot() uint64
}

// OptimisticallyConfirmedBank reports the highest slot confirmed by
// optimistic confirmation (spec §6 OptimisticallyConfirmedBank).
type OptimisticallyConfirmedBank interface {
	HighestConfirmedSlot() uint64
}

// MemoryBank is an in-memory Bank snapshot; fields are populated once
// and never mutated afterward (banks are immutable once frozen).
type MemoryBank struct {
	slot       uint64
	parentSlot uint64
	accounts   map[string]accountEntry
	signatures map[string]TransactionResult
	logs       []LogInfo
	logsByKey  map[string][]LogInfo
}

type accountEntry struct {
	account      Account
	modifiedSlot uint64
}

// NewMemoryBank builds an empty bank at slot with the given parent.
func NewMemoryBank(slot, parentSlot uint64) *MemoryBank {
	return &MemoryBank{
		slot:       slot,
		parentSlot: parentSlot,
		accounts:   make(map[string]accountEntry),
		signatures: make(map[string]TransactionResult),
		logsByKey:  make(map[string][]LogInfo),
	}
}

func (b *MemoryBank) Slot() uint64 { return b.slot }

// SetAccount records pubkey's value as of this bank, stamping it with
// this bank's own slot as the modified-slot.
func (b *MemoryBank) SetAccount(pubkey string, account Account) {
	b.accounts[pubkey] = accountEntry{account: account, modifiedSlot: b.slot}
}

// CarryAccount records pubkey's value as inherited from an earlier
// bank, preserving the slot it was actually last modified at — unlike
// SetAccount, this does not make the account look freshly written at
// this bank's own slot, which would otherwise corrupt
// GetProgramAccountsModifiedSinceParent's "since parent" semantics.
func (b *MemoryBank) CarryAccount(pubkey string, account Account, modifiedSlot uint64) {
	b.accounts[pubkey] = accountEntry{account: account, modifiedSlot: modifiedSlot}
}

func (b *MemoryBank) GetAccountModifiedSlot(pubkey string) (Account, uint64, bool) {
	entry, ok := b.accounts[pubkey]
	if !ok {
		return Account{}, 0, false
	}
	return entry.account, entry.modifiedSlot, true
}

// AllAccounts returns every account this bank holds along with the slot
// it was last modified at, used by callers building the next bank in a
// chain to carry forward unchanged state without losing its original
// modified-slot.
func (b *MemoryBank) AllAccounts() map[string]AccountAtSlot {
	out := make(map[string]AccountAtSlot, len(b.accounts))
	for pubkey, entry := range b.accounts {
		out[pubkey] = AccountAtSlot{Account: entry.account, ModifiedSlot: entry.modifiedSlot}
	}
	return out
}

// AccountAtSlot pairs an account with the slot it was last modified at.
type AccountAtSlot struct {
	Account      Account
	ModifiedSlot uint64
}

func (b *MemoryBank) GetProgramAccountsModifiedSinceParent(programPubkey string) []KeyedAccount {
	var out []KeyedAccount
	for pubkey, entry := range b.accounts {
		if entry.account.Owner == programPubkey && entry.modifiedSlot == b.slot {
			out = append(out, KeyedAccount{Pubkey: pubkey, Account: entry.account})
		}
	}
	return out
}

// RecordSignature marks signature as settled by this bank.
func (b *MemoryBank) RecordSignature(signature string, result TransactionResult) {
	b.signatures[signature] = result
}

func (b *MemoryBank) GetSignatureStatusProcessedSinceParent(signature string) (TransactionResult, bool) {
	result, ok := b.signatures[signature]
	return result, ok
}

// AppendLog records a transaction's logs in this bank, indexed both in
// slot order and per mentioned account key.
func (b *MemoryBank) AppendLog(info LogInfo, mentionedKeys ...string) {
	b.logs = append(b.logs, info)
	for _, key := range mentionedKeys {
		b.logsByKey[key] = append(b.logsByKey[key], info)
	}
}

func (b *MemoryBank) GetTransactionLogs(pubkey string) ([]LogInfo, bool) {
	if pubkey == "" {
		if len(b.logs) == 0 {
			return nil, false
		}
		return b.logs, true
	}
	logs, ok := b.logsByKey[pubkey]
	return logs, ok
}

// MemoryLedger is a concurrency-safe, in-memory BankForks plus the
// commitment trackers, suitable for the demo binary and tests. It is
// the generalized successor to the teacher's single atomic SlotNumber:
// where the teacher tracked one uint64, this tracks a full history of
// frozen banks so fork-revert scenarios (P2) and finality tracking are
// actually representable.
type MemoryLedger struct {
	mu                    sync.RWMutex
	banks                 map[uint64]Bank
	processedSlot         uint64
	highestConfirmedSlot  uint64
	highestConfirmedRoot  uint64
}

// NewMemoryLedger builds a ledger seeded with a genesis bank at slot 0.
func NewMemoryLedger() *MemoryLedger {
	l := &MemoryLedger{banks: make(map[uint64]Bank)}
	l.banks[0] = NewMemoryBank(0, 0)
	return l
}

// Freeze installs bank as the snapshot for its own slot and advances
// the processed tip. Used by callers (the demo binary's control
// endpoints, or tests) to simulate the replay pipeline producing new
// banks.
func (l *MemoryLedger) Freeze(bank Bank) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.banks[bank.Slot()] = bank
	if bank.Slot() > l.processedSlot {
		l.processedSlot = bank.Slot()
	}
}

// Revert discards every frozen bank above toSlot and resets the
// processed tip to toSlot, modeling a fork reversion so P2 can be
// exercised directly.
func (l *MemoryLedger) Revert(toSlot uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for slot := range l.banks {
		if slot > toSlot {
			delete(l.banks, slot)
		}
	}
	l.processedSlot = toSlot
}

func (l *MemoryLedger) Get(slot uint64) (Bank, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	bank, ok := l.banks[slot]
	return bank, ok
}

func (l *MemoryLedger) Slot() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.processedSlot
}

// SetHighestConfirmedRoot records a new finalized slot.
func (l *MemoryLedger) SetHighestConfirmedRoot(slot uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.highestConfirmedRoot = slot
}

func (l *MemoryLedger) HighestConfirmedRoot() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.highestConfirmedRoot
}

// SetHighestConfirmedSlot records a new optimistically-confirmed slot.
func (l *MemoryLedger) SetHighestConfirmedSlot(slot uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.highestConfirmedSlot = slot
}

func (l *MemoryLedger) HighestConfirmedSlot() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.highestConfirmedSlot
}
