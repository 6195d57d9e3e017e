package pubsub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpcsubscriptions/ledger"
)

func testConfig() Config {
	return Config{
		MaxActiveSubscriptions: 0,
		QueueCapacityItems:     64,
		QueueCapacityBytes:     1 << 20,
		IngestCapacity:         64,
	}
}

func mustReceive(t *testing.T, ch <-chan BroadcastMessage, timeout time.Duration) BroadcastMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a broadcast message")
		return BroadcastMessage{}
	}
}

func assertNoMessage(t *testing.T, ch <-chan BroadcastMessage, wait time.Duration) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("expected no message, got subscription %d", msg.SubscriptionID)
	case <-time.After(wait):
	}
}

func decodeResult(t *testing.T, p *Payload, out any) {
	t.Helper()
	body, ok := p.Bytes()
	require.True(t, ok, "payload unexpectedly evicted from the recent-items buffer")
	var envelope notificationEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	raw, err := json.Marshal(envelope.Params.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestControlSubscribeDeduplicatesAndUnsubscribe(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	c := New(testConfig(), mem, mem, mem, nil)
	defer c.Close()

	id1, err := c.Subscribe(&SlotParams{})
	require.NoError(t, err)
	id2, err := c.Subscribe(&SlotParams{})
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "byte-identical params resolve to the shared subscription (I6)")
	assert.Equal(t, 1, c.dispatcher.reg.activeCount())

	assert.True(t, c.Unsubscribe(id1))
	assert.Equal(t, 1, c.dispatcher.reg.activeCount(), "refcount still held by the second subscriber")

	assert.True(t, c.Unsubscribe(id2))
	assert.Equal(t, 0, c.dispatcher.reg.activeCount())

	assert.False(t, c.Unsubscribe(id1), "already-removed id reports failure")
}

func TestControlCapacityExceeded(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	cfg := testConfig()
	cfg.MaxActiveSubscriptions = 1
	c := New(cfg, mem, mem, mem, nil)
	defer c.Close()

	_, err := c.Subscribe(&AccountParams{Pubkey: "a"})
	require.NoError(t, err)

	_, err = c.Subscribe(&AccountParams{Pubkey: "b"})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestControlAccountNotificationStrictEqualityDedup(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	c := New(testConfig(), mem, mem, mem, nil)
	defer c.Close()

	recv, unregister := c.Receiver()
	defer unregister()

	id, err := c.Subscribe(&AccountParams{Pubkey: "acct", Commitment: Processed})
	require.NoError(t, err)

	bank1 := ledger.NewMemoryBank(1, 0)
	bank1.SetAccount("acct", ledger.Account{Lamports: 5})
	mem.Freeze(bank1)

	c.NotifySubscribers(CommitmentSlots{Slot: 1})
	msg := mustReceive(t, recv, time.Second)
	assert.Equal(t, id, msg.SubscriptionID)

	var first struct {
		Value AccountPayload `json:"value"`
	}
	decodeResult(t, msg.Payload, &first)
	assert.Equal(t, uint64(5), first.Value.Lamports)

	// Same slot again: the account's modified slot hasn't changed, so no
	// second notification should be emitted (I3).
	c.NotifySubscribers(CommitmentSlots{Slot: 1})
	assertNoMessage(t, recv, 300*time.Millisecond)

	// A fork reversion drops bank1 and resolves back to the (accountless)
	// genesis bank. Strict-equality suppression (not <=) means this still
	// notifies, since modified_slot (0) != last_notified_slot (1) (P2).
	mem.Revert(0)
	c.NotifySubscribers(CommitmentSlots{Slot: 0})
	msg = mustReceive(t, recv, time.Second)

	var second struct {
		Value AccountPayload `json:"value"`
	}
	decodeResult(t, msg.Payload, &second)
	assert.Equal(t, uint64(0), second.Value.Lamports, "deletion is signaled via the zero-valued account")
}

func TestControlSignatureSubscriptionIsTerminal(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	c := New(testConfig(), mem, mem, mem, nil)
	defer c.Close()

	recv, unregister := c.Receiver()
	defer unregister()

	id, err := c.Subscribe(&SignatureParams{Signature: "sig1", Commitment: Processed})
	require.NoError(t, err)

	bank1 := ledger.NewMemoryBank(1, 0)
	bank1.RecordSignature("sig1", ledger.TransactionResult{})
	mem.Freeze(bank1)

	c.NotifySubscribers(CommitmentSlots{Slot: 1})
	msg := mustReceive(t, recv, time.Second)
	assert.Equal(t, id, msg.SubscriptionID)
	assert.True(t, msg.IsFinal, "a settled signature is always a terminal notification (I4)")

	// Give the dispatcher goroutine a moment to process the post-match
	// unsubscribe before asserting the registry no longer holds it (P4).
	require.Eventually(t, func() bool {
		return c.dispatcher.reg.activeCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestControlRootNotificationsFireInAscendingOrder(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	c := New(testConfig(), mem, mem, mem, nil)
	defer c.Close()

	recv, unregister := c.Receiver()
	defer unregister()

	_, err := c.Subscribe(&RootParams{})
	require.NoError(t, err)

	c.NotifyRoots([]uint64{3, 1, 2})

	var got []uint64
	for i := 0; i < 3; i++ {
		msg := mustReceive(t, recv, time.Second)
		var slot uint64
		decodeResult(t, msg.Payload, &slot)
		got = append(got, slot)
	}

	assert.Equal(t, []uint64{1, 2, 3}, got, "NotifyRoots sorts ascending regardless of call order (P5)")
}

func TestControlGossipOnlyMatchesConfirmedSubscribers(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	c := New(testConfig(), mem, mem, mem, nil)
	defer c.Close()

	recv, unregister := c.Receiver()
	defer unregister()

	_, err := c.Subscribe(&AccountParams{Pubkey: "a", Commitment: Processed})
	require.NoError(t, err)
	confirmedID, err := c.Subscribe(&AccountParams{Pubkey: "b", Commitment: Confirmed})
	require.NoError(t, err)

	bank1 := ledger.NewMemoryBank(1, 0)
	bank1.SetAccount("b", ledger.Account{Lamports: 1})
	mem.Freeze(bank1)

	c.NotifyGossipSubscribers(1)

	msg := mustReceive(t, recv, time.Second)
	assert.Equal(t, confirmedID, msg.SubscriptionID, "only the Confirmed-level subscription is gossip-eligible")
	assertNoMessage(t, recv, 300*time.Millisecond)
}

func TestControlCloseIsIdempotentAndStopsDispatch(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	c := New(testConfig(), mem, mem, mem, nil)

	c.Close()
	c.Close() // must not block or panic

	_, err := c.Subscribe(&SlotParams{})
	assert.ErrorIs(t, err, ErrDisconnected)
}
