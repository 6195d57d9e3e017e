package pubsub

import (
	"log/slog"
	"time"

	"rpcsubscriptions/ledger"
	"rpcsubscriptions/metrics"
)

// matchAndNotify is the Match-and-Notify Engine (spec §4.5): for every
// subscription in watchers, resolve its commitment slot against snap,
// fetch the bank at that slot, and run the kind-specific query/filter.
// Invoked once per Bank or Gossip event, over the commitment-watcher or
// gossip-watcher index respectively (spec §4.6).
//
// Signature subscriptions that receive their terminal notification are
// unsubscribed from reg at the end of the cycle, once every watcher has
// been examined, mirroring the
// original's "the registry removes the subscription upon observing the
// flag's propagation" (spec §4.5 step 6).
func matchAndNotify(reg *registry, watchers map[uint64]*SubscriptionInfo, snap CommitmentSlots, banks ledger.BankForks, n *notifier, m *metrics.Engine) {
	start := time.Now()

	examinedByKind := map[string]int{}
	notifiedByKind := map[string]int{}
	var toUnsubscribe []uint64

	for _, info := range watchers {
		kind := info.Params.Kind()
		resolvedSlot := resolveSlot(commitmentOf(info.Params), snap)

		bank, ok := banks.Get(resolvedSlot)
		if !ok {
			// MissingBank (spec §7): skip this cycle, don't mutate state.
			slog.Debug("skipping subscription for this cycle",
				"subscription_id", info.ID, "slot", resolvedSlot, "error", errMissingBank)
			continue
		}

		examinedByKind[kind.String()]++

		switch kind {
		case KindAccount:
			if _, notified := matchAccount(bank, info, n, resolvedSlot); notified {
				notifiedByKind[kind.String()]++
			}
		case KindProgram:
			if _, count := matchProgram(bank, info, n, resolvedSlot); count > 0 {
				notifiedByKind[kind.String()] += count
			}
		case KindLogs:
			if _, count := matchLogs(bank, info, n, resolvedSlot); count > 0 {
				notifiedByKind[kind.String()] += count
			}
		case KindSignature:
			if _, done := matchSignature(bank, info, n, resolvedSlot); done {
				notifiedByKind[kind.String()]++
				toUnsubscribe = append(toUnsubscribe, info.ID)
			}
		default:
			panicProgrammingError("unreachable subscription kind in match-and-notify", "kind", kind.String())
		}
	}

	for _, id := range toUnsubscribe {
		reg.unsubscribe(id)
	}

	elapsed := time.Since(start)
	totalNotified := 0
	for _, c := range notifiedByKind {
		totalNotified += c
	}

	if m == nil {
		return
	}
	for kind, count := range examinedByKind {
		m.MatchExamined.WithLabelValues(kind).Add(float64(count))
	}
	for kind, count := range notifiedByKind {
		m.MatchNotified.WithLabelValues(kind).Add(float64(count))
	}
	if totalNotified > 0 || elapsed > 10*time.Millisecond {
		m.MatchCycleDuration.Observe(elapsed.Seconds())
	}
}

// commitmentOf extracts the commitment level from whichever of the
// commitment-sensitive param kinds info holds.
func commitmentOf(params SubscriptionParams) Commitment {
	switch p := params.(type) {
	case *AccountParams:
		return p.Commitment
	case *ProgramParams:
		return p.Commitment
	case *LogsParams:
		return p.Commitment
	case *SignatureParams:
		return p.Commitment
	default:
		panicProgrammingError("unreachable subscription kind in commitmentOf", "kind", params.Kind().String())
		return Processed
	}
}
