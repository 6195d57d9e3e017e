package pubsub

import (
	"bytes"
	"log/slog"

	"rpcsubscriptions/encoding"
	"rpcsubscriptions/ledger"
)

// matchProgram implements the Program filter contract (spec §4.5):
// fetch every account owned by the program that changed since its
// parent, keep only those matching every configured filter
// (conjunction), and emit one ProgramPayload per surviving account.
// Program subscriptions have no last-notified-slot bookkeeping (that is
// an Account-only concept, spec §4.5 step 5) — each commitment event
// that turns up matching accounts produces notifications.
func matchProgram(bank ledger.Bank, info *SubscriptionInfo, n *notifier, resolvedSlot uint64) (examined bool, notifiedCount int) {
	params := info.Params.(*ProgramParams)

	candidates := bank.GetProgramAccountsModifiedSinceParent(params.ProgramPubkey)
	if len(candidates) == 0 {
		return true, 0
	}

	var matched []ledger.KeyedAccount
	for _, ka := range candidates {
		if programFiltersMatch(params.Filters, ka.Account) {
			matched = append(matched, ka)
		}
	}
	if len(matched) == 0 {
		return true, 0
	}

	sent := 0
	for _, ka := range matched {
		data := encoding.ApplySlice(ka.Account.Data, params.DataSlice)
		encoded, err := encoding.Account(ledger.Account{Owner: ka.Account.Owner, Data: data}, params.Encoding)
		if err != nil {
			// One account's encode failure doesn't abort the rest of the
			// batch (spec.md §4.5 "Supplemented from original_source").
			slog.Warn("program account encode failed, skipping",
				"subscription_id", info.ID, "pubkey", ka.Pubkey, "error", err)
			if n.metrics != nil {
				n.metrics.AccountEncodeErrors.Inc()
			}
			continue
		}

		payload := ProgramPayload{
			Pubkey: ka.Pubkey,
			Account: AccountPayload{
				Data:       encoded,
				Executable: ka.Account.Executable,
				Lamports:   ka.Account.Lamports,
				Owner:      ka.Account.Owner,
				RentEpoch:  ka.Account.RentEpoch,
			},
		}
		n.notify(withContext(resolvedSlot, payload), info, false)
		sent++
	}

	return true, sent
}

// programFiltersMatch applies every configured filter as a conjunction
// (spec §4.5 Program filter: "use all-match").
func programFiltersMatch(filters []ProgramFilter, account ledger.Account) bool {
	for _, f := range filters {
		if f.DataSize != nil && uint64(len(account.Data)) != *f.DataSize {
			return false
		}
		if f.Memcmp != nil {
			m := f.Memcmp
			if m.Offset < 0 || m.Offset+len(m.Bytes) > len(account.Data) {
				return false
			}
			if !bytes.Equal(account.Data[m.Offset:m.Offset+len(m.Bytes)], m.Bytes) {
				return false
			}
		}
	}
	return true
}
