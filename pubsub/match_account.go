package pubsub

import (
	"log/slog"

	"rpcsubscriptions/encoding"
	"rpcsubscriptions/ledger"
)

// matchAccount implements the Account filter contract (spec §4.5): query
// the bank, substitute a zero-valued account at modified_slot=0 when the
// account doesn't exist (how deletion is signaled), suppress when the
// modified slot equals what was already notified, and otherwise emit
// exactly one value while advancing last-notified-slot — using strict
// equality, not a <=, so a fork revert to an earlier slot still notifies
// (spec I3, P2).
func matchAccount(bank ledger.Bank, info *SubscriptionInfo, n *notifier, resolvedSlot uint64) (examined, notified bool) {
	params := info.Params.(*AccountParams)

	account, modifiedSlot, found := bank.GetAccountModifiedSlot(params.Pubkey)
	if !found {
		account = ledger.Account{}
		modifiedSlot = 0
	}

	if modifiedSlot == info.lastNotifiedSlot {
		return true, false
	}

	data := encoding.ApplySlice(account.Data, params.DataSlice)
	encoded, err := encoding.Account(ledger.Account{Owner: account.Owner, Data: data}, params.Encoding)
	if err != nil {
		slog.Warn("account encode failed, skipping notification",
			"subscription_id", info.ID, "pubkey", params.Pubkey, "error", err)
		if n.metrics != nil {
			n.metrics.AccountEncodeErrors.Inc()
		}
		return true, false
	}
	info.lastNotifiedSlot = modifiedSlot

	payload := AccountPayload{
		Data:       encoded,
		Executable: account.Executable,
		Lamports:   account.Lamports,
		Owner:      account.Owner,
		RentEpoch:  account.RentEpoch,
	}

	n.notify(withContext(resolvedSlot, payload), info, false)
	return true, true
}
