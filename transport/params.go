package transport

import (
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"rpcsubscriptions/pubsub"
)

// wireConfig is the second positional parameter most *Subscribe calls
// accept: commitment plus encoding/filter options.
type wireConfig struct {
	Commitment                 string       `json:"commitment"`
	Encoding                   string       `json:"encoding"`
	DataSlice                  *wireSlice   `json:"dataSlice"`
	Filters                    []wireFilter `json:"filters"`
	EnableReceivedNotification bool         `json:"enableReceivedNotification"`
}

type wireSlice struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

type wireFilter struct {
	DataSize *uint64      `json:"dataSize"`
	Memcmp   *wireMemcmp  `json:"memcmp"`
}

type wireMemcmp struct {
	Offset int    `json:"offset"`
	Bytes  string `json:"bytes"` // base58-encoded, matching Solana's wire convention
}

func (s *wireSlice) toParams() *pubsub.DataSlice {
	if s == nil {
		return nil
	}
	return &pubsub.DataSlice{Offset: s.Offset, Length: s.Length}
}

func decodeFilters(filters []wireFilter) ([]pubsub.ProgramFilter, error) {
	out := make([]pubsub.ProgramFilter, 0, len(filters))
	for _, f := range filters {
		pf := pubsub.ProgramFilter{DataSize: f.DataSize}
		if f.Memcmp != nil {
			raw, err := base58.Decode(f.Memcmp.Bytes)
			if err != nil {
				return nil, fmt.Errorf("invalid memcmp bytes: %w", err)
			}
			pf.Memcmp = &pubsub.MemcmpFilter{Offset: f.Memcmp.Offset, Bytes: raw}
		}
		out = append(out, pf)
	}
	return out, nil
}

// parseAccountParams decodes `["<pubkey>", {config}]` (accountSubscribe).
func parseAccountParams(raw json.RawMessage) (pubsub.SubscriptionParams, error) {
	var positional []json.RawMessage
	if err := json.Unmarshal(raw, &positional); err != nil || len(positional) == 0 {
		return nil, fmt.Errorf("accountSubscribe requires a pubkey parameter")
	}
	var pubkey string
	if err := json.Unmarshal(positional[0], &pubkey); err != nil {
		return nil, fmt.Errorf("invalid pubkey: %w", err)
	}
	cfg := decodeOptionalConfig(positional)

	return &pubsub.AccountParams{
		Pubkey:     pubkey,
		Commitment: pubsub.ParseCommitment(cfg.Commitment),
		Encoding:   pubsub.ParseEncoding(cfg.Encoding),
		DataSlice:  cfg.DataSlice.toParams(),
	}, nil
}

// parseProgramParams decodes `["<programId>", {config}]` (programSubscribe).
func parseProgramParams(raw json.RawMessage) (pubsub.SubscriptionParams, error) {
	var positional []json.RawMessage
	if err := json.Unmarshal(raw, &positional); err != nil || len(positional) == 0 {
		return nil, fmt.Errorf("programSubscribe requires a program id parameter")
	}
	var programID string
	if err := json.Unmarshal(positional[0], &programID); err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}
	cfg := decodeOptionalConfig(positional)
	filters, err := decodeFilters(cfg.Filters)
	if err != nil {
		return nil, err
	}

	return &pubsub.ProgramParams{
		ProgramPubkey: programID,
		Filters:       filters,
		Commitment:    pubsub.ParseCommitment(cfg.Commitment),
		Encoding:      pubsub.ParseEncoding(cfg.Encoding),
		DataSlice:     cfg.DataSlice.toParams(),
	}, nil
}

// parseLogsParams decodes `[filterSpec, {config}]` (logsSubscribe); the
// filter spec is either the literal string "all"/"allWithVotes" or
// `{"mentions": ["<pubkey>"]}`.
func parseLogsParams(raw json.RawMessage) (pubsub.SubscriptionParams, error) {
	var positional []json.RawMessage
	if err := json.Unmarshal(raw, &positional); err != nil || len(positional) == 0 {
		return nil, fmt.Errorf("logsSubscribe requires a filter parameter")
	}
	cfg := decodeOptionalConfig(positional)
	commitment := pubsub.ParseCommitment(cfg.Commitment)

	var literal string
	if err := json.Unmarshal(positional[0], &literal); err == nil {
		if literal == "allWithVotes" {
			return &pubsub.LogsParams{LogsKind: pubsub.LogsAllWithVotes, Commitment: commitment}, nil
		}
		return &pubsub.LogsParams{LogsKind: pubsub.LogsAll, Commitment: commitment}, nil
	}

	var mentions struct {
		Mentions []string `json:"mentions"`
	}
	if err := json.Unmarshal(positional[0], &mentions); err != nil || len(mentions.Mentions) == 0 {
		return nil, fmt.Errorf("invalid logs filter")
	}
	return &pubsub.LogsParams{LogsKind: pubsub.LogsSingle, Pubkey: mentions.Mentions[0], Commitment: commitment}, nil
}

// parseSignatureParams decodes `["<signature>", {config}]` (signatureSubscribe).
func parseSignatureParams(raw json.RawMessage) (pubsub.SubscriptionParams, error) {
	var positional []json.RawMessage
	if err := json.Unmarshal(raw, &positional); err != nil || len(positional) == 0 {
		return nil, fmt.Errorf("signatureSubscribe requires a signature parameter")
	}
	var signature string
	if err := json.Unmarshal(positional[0], &signature); err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	cfg := decodeOptionalConfig(positional)

	return &pubsub.SignatureParams{
		Signature:                  signature,
		Commitment:                 pubsub.ParseCommitment(cfg.Commitment),
		EnableReceivedNotification: cfg.EnableReceivedNotification,
	}, nil
}

func decodeOptionalConfig(positional []json.RawMessage) wireConfig {
	var cfg wireConfig
	if len(positional) > 1 {
		_ = json.Unmarshal(positional[1], &cfg)
	}
	return cfg
}

// parseUnsubscribeID decodes `[<subscriptionId>]`, the shape every
// *Unsubscribe method takes.
func parseUnsubscribeID(raw json.RawMessage) (uint64, error) {
	var positional []uint64
	if err := json.Unmarshal(raw, &positional); err != nil || len(positional) == 0 {
		return 0, fmt.Errorf("unsubscribe requires a subscription id parameter")
	}
	return positional[0], nil
}
