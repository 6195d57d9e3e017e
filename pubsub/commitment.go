package pubsub

// Commitment is the consensus depth a subscriber wants their notifications
// evaluated at.
type Commitment int

const (
	Processed Commitment = iota
	Confirmed
	Finalized
)

func (c Commitment) String() string {
	switch c {
	case Processed:
		return "processed"
	case Confirmed:
		return "confirmed"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// ParseCommitment maps the wire string onto a Commitment, defaulting to
// Processed for an empty or unrecognized value (mirroring the teacher's
// getSlot default-commitment handling in solana_handler.go).
func ParseCommitment(s string) Commitment {
	switch s {
	case "finalized":
		return Finalized
	case "confirmed":
		return Confirmed
	default:
		return Processed
	}
}

// CommitmentSlots is the snapshot the commitment resolver consumes. Only
// the Gossip event path leaves Slot and HighestConfirmedRoot unset.
type CommitmentSlots struct {
	Slot                  uint64
	HighestConfirmedSlot  uint64
	HighestConfirmedRoot  uint64
}

// resolveSlot maps a commitment level plus the current commitment
// snapshot onto the slot whose ledger state must be queried (spec §4.4).
func resolveSlot(level Commitment, snap CommitmentSlots) uint64 {
	switch level {
	case Finalized:
		return snap.HighestConfirmedRoot
	case Confirmed:
		return snap.HighestConfirmedSlot
	default:
		return snap.Slot
	}
}
