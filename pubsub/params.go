package pubsub

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"rpcsubscriptions/encoding"
)

// SubscriptionKind identifies which of the eight closed variants a
// SubscriptionParams value is.
type SubscriptionKind int

const (
	KindAccount SubscriptionKind = iota
	KindProgram
	KindLogs
	KindSignature
	KindSlot
	KindSlotsUpdates
	KindRoot
	KindVote
)

func (k SubscriptionKind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindProgram:
		return "program"
	case KindLogs:
		return "logs"
	case KindSignature:
		return "signature"
	case KindSlot:
		return "slot"
	case KindSlotsUpdates:
		return "slotsUpdates"
	case KindRoot:
		return "root"
	case KindVote:
		return "vote"
	default:
		return "unknown"
	}
}

// Method returns the RPC method name used in outgoing notifications for
// this kind (spec §3).
func (k SubscriptionKind) Method() string {
	switch k {
	case KindAccount:
		return "accountNotification"
	case KindProgram:
		return "programNotification"
	case KindLogs:
		return "logsNotification"
	case KindSignature:
		return "signatureNotification"
	case KindSlot:
		return "slotNotification"
	case KindSlotsUpdates:
		return "slotsUpdatesNotification"
	case KindRoot:
		return "rootNotification"
	case KindVote:
		return "voteNotification"
	default:
		panicProgrammingError("unreachable subscription kind", "kind", int(k))
		return ""
	}
}

// SubscriptionParams is the tagged-variant interface identifying what a
// subscriber wants (spec §3). It is implemented by the eight concrete
// param structs below; the set is closed — do not implement it outside
// this package.
type SubscriptionParams interface {
	Kind() SubscriptionKind
	// Fingerprint is the canonical comparison key used to detect
	// byte-identical parameters for subscription dedup (spec I6).
	Fingerprint() string
}

func fingerprint(kind SubscriptionKind, v any) string {
	// Grounded on the teacher's generateBlockHashForSubscription idiom
	// (subscription.go): hash a deterministic textual representation
	// rather than comparing structs field-by-field.
	body, err := json.Marshal(v)
	if err != nil {
		panicProgrammingError("failed to fingerprint subscription params", "error", err)
	}
	sum := sha256.Sum256(append([]byte(fmt.Sprintf("%d:", kind)), body...))
	return hex.EncodeToString(sum[:])
}

// Encoding is the requested account-data encoding. It is an alias for
// the encoding package's Kind so that pubsub's public API stays in its
// own vocabulary while the actual encode/decode logic lives in one
// place (avoiding an import cycle: pubsub calls into encoding to
// serialize payloads, so encoding cannot import pubsub back).
type Encoding = encoding.Kind

const (
	EncodingBase58     = encoding.Base58
	EncodingBase64     = encoding.Base64
	EncodingJSONParsed = encoding.JSONParsed
)

func ParseEncoding(s string) Encoding { return encoding.ParseKind(s) }

// DataSlice restricts an account-data encoding to a byte range.
type DataSlice = encoding.Slice

// AccountParams subscribes to mutations of a single account.
type AccountParams struct {
	Pubkey     string
	Commitment Commitment
	Encoding   Encoding
	DataSlice  *DataSlice
}

func (p *AccountParams) Kind() SubscriptionKind { return KindAccount }
func (p *AccountParams) Fingerprint() string     { return fingerprint(KindAccount, p) }

// ProgramFilter is either a data-size filter or a memcmp filter (spec §4.5).
type ProgramFilter struct {
	DataSize *uint64
	Memcmp   *MemcmpFilter
}

type MemcmpFilter struct {
	Offset int
	Bytes  []byte
}

// ProgramParams subscribes to mutations of accounts owned by a program.
type ProgramParams struct {
	ProgramPubkey string
	Filters       []ProgramFilter
	Commitment    Commitment
	Encoding      Encoding
	DataSlice     *DataSlice
	WithContext   bool
}

func (p *ProgramParams) Kind() SubscriptionKind { return KindProgram }
func (p *ProgramParams) Fingerprint() string     { return fingerprint(KindProgram, p) }

// LogsSubscriptionKind selects which transactions' logs a Logs
// subscription observes.
type LogsSubscriptionKind int

const (
	LogsAll LogsSubscriptionKind = iota
	LogsAllWithVotes
	LogsSingle
)

// LogsParams subscribes to transaction log emissions.
type LogsParams struct {
	LogsKind   LogsSubscriptionKind
	Pubkey     string // only meaningful when LogsKind == LogsSingle
	Commitment Commitment
}

func (p *LogsParams) Kind() SubscriptionKind { return KindLogs }
func (p *LogsParams) Fingerprint() string     { return fingerprint(KindLogs, p) }

// SignatureParams subscribes to the finality of a single transaction
// signature.
type SignatureParams struct {
	Signature                 string
	Commitment                Commitment
	EnableReceivedNotification bool
}

func (p *SignatureParams) Kind() SubscriptionKind { return KindSignature }
func (p *SignatureParams) Fingerprint() string     { return fingerprint(KindSignature, p) }

// SlotParams, SlotsUpdatesParams, RootParams and VoteParams are the four
// singleton subscriptions: no parameters, so every subscriber of a given
// kind shares the same registry entry (spec I2).

type SlotParams struct{}

func (SlotParams) Kind() SubscriptionKind { return KindSlot }
func (SlotParams) Fingerprint() string     { return "slot" }

type SlotsUpdatesParams struct{}

func (SlotsUpdatesParams) Kind() SubscriptionKind { return KindSlotsUpdates }
func (SlotsUpdatesParams) Fingerprint() string     { return "slotsUpdates" }

type RootParams struct{}

func (RootParams) Kind() SubscriptionKind { return KindRoot }
func (RootParams) Fingerprint() string     { return "root" }

type VoteParams struct{}

func (VoteParams) Kind() SubscriptionKind { return KindVote }
func (VoteParams) Fingerprint() string     { return "vote" }
