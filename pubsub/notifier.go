package pubsub

import (
	"bytes"
	"encoding/json"

	"rpcsubscriptions/metrics"
)

// BroadcastMessage is what the Notifier publishes; transports hold only
// this lightweight handle plus a weak reference (*Payload) to the
// serialized body (spec §4.2).
type BroadcastMessage struct {
	SubscriptionID uint64
	IsFinal        bool
	Payload        *Payload
}

// notifier serializes a single notification, fans out a BroadcastMessage
// to every registered transport receiver, and keeps the payload alive in
// the recent-items buffer (spec §4.2). Grounded on the teacher's
// BroadcastNewBlock/BroadcastNewLog envelope construction, generalized
// from "write directly to every matching websocket" to "serialize once,
// fan out once, let each transport drain its own channel."
type notifier struct {
	broadcast *broadcaster
	scratch   bytes.Buffer
	recent    *recentItems
	metrics   *metrics.Engine
}

func newNotifier(broadcast *broadcaster, recent *recentItems, m *metrics.Engine) *notifier {
	return &notifier{broadcast: broadcast, recent: recent, metrics: m}
}

// notify builds the JSON-RPC envelope, serializes it through a reusable
// scratch buffer, fans out the broadcast message and pushes the payload
// into the recent-items buffer. Serialization of these shapes is total;
// any error is a programming error (spec §4.2).
func (n *notifier) notify(value any, sub *SubscriptionInfo, isFinal bool) {
	n.scratch.Reset()
	envelope := notificationEnvelope{
		JSONRPC: "2.0",
		Method:  sub.Method,
		Params: notificationParams{
			Result:       value,
			Subscription: sub.ID,
		},
	}
	if err := json.NewEncoder(&n.scratch).Encode(envelope); err != nil {
		panicProgrammingError("notification serialization failed", "error", err)
	}

	body := make([]byte, n.scratch.Len())
	copy(body, n.scratch.Bytes())
	p := NewPayload(body)

	n.broadcast.publish(BroadcastMessage{
		SubscriptionID: sub.ID,
		IsFinal:        isFinal,
		Payload:        p,
	})

	if n.metrics != nil {
		n.metrics.NotifierMessages.Inc()
		n.metrics.NotifierBytes.Add(float64(len(body)))
	}

	n.recent.push(p)
}
