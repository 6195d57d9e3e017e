package pubsub

import "rpcsubscriptions/ledger"

// matchSignature implements the Signature filter contract (spec §4.5):
// a commitment-level signature match is always terminal — the Notifier
// is told is_final = true, and the caller (the match-and-notify cycle)
// removes the subscription from the registry once this returns true,
// since no further commitment-level notifications are ever emitted for
// a settled signature (spec I4, P4).
func matchSignature(bank ledger.Bank, info *SubscriptionInfo, n *notifier, resolvedSlot uint64) (examined, notifiedAndDone bool) {
	params := info.Params.(*SignatureParams)

	result, ok := bank.GetSignatureStatusProcessedSinceParent(params.Signature)
	if !ok {
		return true, false
	}

	payload := ProcessedSignaturePayload{Err: result.Err}
	n.notify(withContext(resolvedSlot, payload), info, true)
	return true, true
}
