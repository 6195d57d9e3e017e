package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommitment(t *testing.T) {
	assert.Equal(t, Finalized, ParseCommitment("finalized"))
	assert.Equal(t, Confirmed, ParseCommitment("confirmed"))
	assert.Equal(t, Processed, ParseCommitment("processed"))
	assert.Equal(t, Processed, ParseCommitment(""), "unrecognized defaults to Processed")
	assert.Equal(t, Processed, ParseCommitment("bogus"))
}

func TestResolveSlot(t *testing.T) {
	snap := CommitmentSlots{Slot: 10, HighestConfirmedSlot: 8, HighestConfirmedRoot: 5}

	assert.Equal(t, uint64(10), resolveSlot(Processed, snap))
	assert.Equal(t, uint64(8), resolveSlot(Confirmed, snap))
	assert.Equal(t, uint64(5), resolveSlot(Finalized, snap))
}

func TestCommitmentString(t *testing.T) {
	assert.Equal(t, "processed", Processed.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "finalized", Finalized.String())
}
