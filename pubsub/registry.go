package pubsub

// registry holds all subscription indices. It is never touched outside
// the dispatcher goroutine, so none of its fields are guarded by a lock
// (spec §4.3, §9 design note: "a cleaner reimplementation confines the
// registry to the dispatcher... This removes the need for registry
// locks entirely").
type registry struct {
	maxActive int

	byID          map[uint64]*SubscriptionInfo
	byFingerprint map[string]*SubscriptionInfo
	bySignature   map[string]map[uint64]*SubscriptionInfo

	nodeProgress map[SubscriptionKind]*SubscriptionInfo

	commitmentWatchers map[uint64]*SubscriptionInfo
	gossipWatchers     map[uint64]*SubscriptionInfo
}

func newRegistry(maxActive int) *registry {
	return &registry{
		maxActive:          maxActive,
		byID:               make(map[uint64]*SubscriptionInfo),
		byFingerprint:      make(map[string]*SubscriptionInfo),
		bySignature:        make(map[string]map[uint64]*SubscriptionInfo),
		nodeProgress:       make(map[SubscriptionKind]*SubscriptionInfo),
		commitmentWatchers: make(map[uint64]*SubscriptionInfo),
		gossipWatchers:     make(map[uint64]*SubscriptionInfo),
	}
}

// activeCount is the caller-facing subscription count: distinct
// fingerprints, not raw refcounts (I5, I6).
func (r *registry) activeCount() int {
	return len(r.byFingerprint)
}

// subscribe inserts a new subscription or, if an entry with a byte-
// identical fingerprint already exists, bumps its refcount and returns
// the existing info (I6). initLastNotifiedSlot is consulted only for
// newly-created Account subscriptions, matching the Rust source's
// initial_last_notified_slot.
func (r *registry) subscribe(id uint64, params SubscriptionParams, initLastNotifiedSlot func() uint64) (*SubscriptionInfo, error) {
	fp := params.Fingerprint()
	if existing, ok := r.byFingerprint[fp]; ok {
		existing.refCount++
		return existing, nil
	}

	if r.maxActive > 0 && r.activeCount() >= r.maxActive {
		return nil, ErrCapacityExceeded
	}

	info := newSubscriptionInfo(id, params)
	if params.Kind() == KindAccount {
		info.lastNotifiedSlot = initLastNotifiedSlot()
	}

	r.byID[id] = info
	r.byFingerprint[fp] = info

	switch params.Kind() {
	case KindSlot, KindSlotsUpdates, KindRoot, KindVote:
		r.nodeProgress[params.Kind()] = info
	case KindSignature:
		sig := params.(*SignatureParams).Signature
		set, ok := r.bySignature[sig]
		if !ok {
			set = make(map[uint64]*SubscriptionInfo)
			r.bySignature[sig] = set
		}
		set[info.ID] = info
		r.addCommitmentOrGossip(info, params.(*SignatureParams).Commitment)
	case KindAccount:
		r.addCommitmentOrGossip(info, params.(*AccountParams).Commitment)
	case KindProgram:
		r.addCommitmentOrGossip(info, params.(*ProgramParams).Commitment)
	case KindLogs:
		r.addCommitmentOrGossip(info, params.(*LogsParams).Commitment)
	default:
		panicProgrammingError("unreachable subscription kind in subscribe", "kind", params.Kind().String())
	}

	return info, nil
}

// addCommitmentOrGossip wires a commitment-sensitive subscription into
// the bank-driven commitment-watchers index, and additionally into the
// gossip-watchers index when its commitment level is Confirmed — a
// Gossip event's CommitmentSlots only ever populates
// HighestConfirmedSlot, so non-confirmed subscriptions would never match
// and are excluded up front (spec §4.4).
func (r *registry) addCommitmentOrGossip(info *SubscriptionInfo, commitment Commitment) {
	r.commitmentWatchers[info.ID] = info
	if commitment == Confirmed {
		r.gossipWatchers[info.ID] = info
	}
}

// unsubscribe decrements the refcount for the subscription identified by
// id; once it reaches zero the entry is removed from every index (I1).
func (r *registry) unsubscribe(id uint64) bool {
	info, ok := r.byID[id]
	if !ok {
		return false
	}

	info.refCount--
	if info.refCount > 0 {
		return true
	}

	delete(r.byID, id)
	delete(r.byFingerprint, info.Params.Fingerprint())

	switch info.Params.Kind() {
	case KindSlot, KindSlotsUpdates, KindRoot, KindVote:
		if r.nodeProgress[info.Params.Kind()] == info {
			delete(r.nodeProgress, info.Params.Kind())
		}
	case KindSignature:
		sig := info.Params.(*SignatureParams).Signature
		if set, ok := r.bySignature[sig]; ok {
			delete(set, info.ID)
			if len(set) == 0 {
				delete(r.bySignature, sig)
			}
		}
		delete(r.commitmentWatchers, info.ID)
		delete(r.gossipWatchers, info.ID)
	case KindAccount, KindProgram, KindLogs:
		delete(r.commitmentWatchers, info.ID)
		delete(r.gossipWatchers, info.ID)
	}

	return true
}

func (r *registry) byIDLookup(id uint64) (*SubscriptionInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}
