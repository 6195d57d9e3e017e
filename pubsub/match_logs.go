package pubsub

import "rpcsubscriptions/ledger"

// matchLogs implements the Logs filter contract (spec §4.5): fetch the
// relevant log entries, drop vote-transaction logs for the All kind,
// keep everything for AllWithVotes, and narrow to a single account's
// logs for Single — emitting one LogsPayload per surviving entry.
func matchLogs(bank ledger.Bank, info *SubscriptionInfo, n *notifier, resolvedSlot uint64) (examined bool, notifiedCount int) {
	params := info.Params.(*LogsParams)

	pubkey := ""
	if params.LogsKind == LogsSingle {
		pubkey = params.Pubkey
	}

	entries, ok := bank.GetTransactionLogs(pubkey)
	if !ok {
		return true, 0
	}

	count := 0
	for _, entry := range entries {
		if params.LogsKind == LogsAll && entry.IsVote {
			continue
		}
		payload := LogsPayload{
			Signature: entry.Signature,
			Err:       entry.Err,
			Logs:      entry.Logs,
		}
		n.notify(withContext(resolvedSlot, payload), info, false)
		count++
	}

	return true, count
}
