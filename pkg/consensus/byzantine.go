package consensus

import (
	"sync"

	"github.com/swarmruntime/core/pkg/errs"
)

// BFTPhase is one phase of the PBFT three-phase protocol.
type BFTPhase string

const (
	PhasePrePrepare BFTPhase = "pre-prepare"
	PhasePrepare    BFTPhase = "prepare"
	PhaseCommit     BFTPhase = "commit"
)

// QuorumKind selects how ByzantineRound (when used for a non-byzantine
// decision type, per spec.md §4.8) or a direct tally computes its
// required quorum.
type QuorumKind string

const (
	QuorumMajority     QuorumKind = "majority"
	QuorumSupermajority QuorumKind = "supermajority"
	QuorumUnanimous     QuorumKind = "unanimous"
	QuorumWeighted      QuorumKind = "weighted"
)

// RequiredQuorum computes the vote count (or weight sum) required for
// kind to pass among n participants, per spec.md §4.7:
// majority = floor(n/2)+1, supermajority = ceil(2n/3), unanimous = n.
// QuorumWeighted is computed by the caller against vote weights; this
// helper returns the threshold fraction's numeric form (n) for that
// case since weighted thresholds are expressed relative to total weight.
func RequiredQuorum(kind QuorumKind, n int) int {
	switch kind {
	case QuorumSupermajority:
		return (2*n + 2) / 3 // ceil(2n/3)
	case QuorumUnanimous, QuorumWeighted:
		return n
	default: // QuorumMajority
		return n/2 + 1
	}
}

// WeightedQuorumMet reports whether the sum of weights for voters in
// favor, divided by the sum of all weights, meets or exceeds threshold.
func WeightedQuorumMet(weights map[string]float64, inFavor map[string]bool, threshold float64) bool {
	var total, favor float64
	for voter, w := range weights {
		total += w
		if inFavor[voter] {
			favor += w
		}
	}
	if total == 0 {
		return false
	}
	return favor/total >= threshold
}

// ByzantineRound runs one PBFT-style pre-prepare/prepare/commit round
// for a single (view, sequence) instance, deciding only once 2f+1
// commits carrying an identical digest have arrived (spec.md §4.7 —
// "Consensus safety").
type ByzantineRound struct {
	mu sync.Mutex

	nodeID    string
	n         int
	f         int
	transport Transport

	view     int
	sequence int

	prePrepared bool
	digest      string
	value       any

	prepares map[string]map[string]bool // digest -> voter set
	commits  map[string]map[string]bool // digest -> voter set

	decided      bool
	decidedValue any
}

// NewByzantineRound creates a ByzantineRound for n nodes tolerant to f
// faults (requires n >= 3f+1, the spec.md §4.7 precondition).
func NewByzantineRound(nodeID string, n, f int, transport Transport, view, sequence int) (*ByzantineRound, error) {
	if n < 3*f+1 {
		return nil, errs.New(errs.KindInvalidArgument, "byzantine round requires n >= 3f+1")
	}
	return &ByzantineRound{
		nodeID:    nodeID,
		n:         n,
		f:         f,
		transport: transport,
		view:      view,
		sequence:  sequence,
		prepares:  make(map[string]map[string]bool),
		commits:   make(map[string]map[string]bool),
	}, nil
}

// ProposeAsLeader broadcasts a pre-prepare for (digest, value); only
// the current leader for this view should call it.
func (r *ByzantineRound) ProposeAsLeader(digest string, value any) {
	r.mu.Lock()
	r.digest = digest
	r.value = value
	r.prePrepared = true
	r.mu.Unlock()

	r.transport.Broadcast(BFTMessage{Phase: PhasePrePrepare, View: r.view, Sequence: r.sequence, Digest: digest, Value: value, From: r.nodeID})
	r.broadcastPrepare(digest, value)
}

func (r *ByzantineRound) broadcastPrepare(digest string, value any) {
	r.mu.Lock()
	r.recordPrepareLocked(digest, r.nodeID)
	r.mu.Unlock()
	r.transport.Broadcast(BFTMessage{Phase: PhasePrepare, View: r.view, Sequence: r.sequence, Digest: digest, Value: value, From: r.nodeID})
}

func (r *ByzantineRound) recordPrepareLocked(digest, from string) {
	if r.prepares[digest] == nil {
		r.prepares[digest] = make(map[string]bool)
	}
	r.prepares[digest][from] = true
}

func (r *ByzantineRound) recordCommitLocked(digest, from string) {
	if r.commits[digest] == nil {
		r.commits[digest] = make(map[string]bool)
	}
	r.commits[digest][from] = true
}

// Receive processes an incoming BFTMessage from the transport, driving
// this replica through accept-pre-prepare -> prepare -> commit ->
// decide.
func (r *ByzantineRound) Receive(msg BFTMessage) {
	if msg.View != r.view || msg.Sequence != r.sequence {
		return
	}

	switch msg.Phase {
	case PhasePrePrepare:
		r.mu.Lock()
		if r.prePrepared {
			r.mu.Unlock()
			return
		}
		r.prePrepared = true
		r.digest = msg.Digest
		r.value = msg.Value
		r.mu.Unlock()
		r.broadcastPrepare(msg.Digest, msg.Value)

	case PhasePrepare:
		r.mu.Lock()
		r.recordPrepareLocked(msg.Digest, msg.From)
		count := len(r.prepares[msg.Digest])
		shouldCommit := count >= 2*r.f && !r.commits[msg.Digest][r.nodeID]
		r.mu.Unlock()
		if shouldCommit {
			r.mu.Lock()
			r.recordCommitLocked(msg.Digest, r.nodeID)
			r.mu.Unlock()
			r.transport.Broadcast(BFTMessage{Phase: PhaseCommit, View: r.view, Sequence: r.sequence, Digest: msg.Digest, Value: msg.Value, From: r.nodeID})
		}

	case PhaseCommit:
		r.mu.Lock()
		r.recordCommitLocked(msg.Digest, msg.From)
		count := len(r.commits[msg.Digest])
		if count >= 2*r.f+1 && !r.decided {
			r.decided = true
			r.decidedValue = msg.Value
		}
		r.mu.Unlock()
	}
}

// Decided reports whether this replica has reached a decision, and if
// so, its value.
func (r *ByzantineRound) Decided() (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decidedValue, r.decided
}

// Outcome matches spec.md §4.7's decision shape once the round has
// concluded (by decision or timeout).
type Outcome struct {
	Consensus         bool
	FinalChoice       any
	ApprovalRate      float64
	ParticipationRate float64
	ConfidenceScore   float64
}

// Outcome computes the decision outcome from the current commit tally
// for the decided digest (or, if undecided, the digest with the most
// commits).
func (r *ByzantineRound) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	digest := r.digest
	if r.decided {
		// find the digest that reached commits
		for d, voters := range r.commits {
			if len(voters) >= 2*r.f+1 {
				digest = d
				break
			}
		}
	}
	commitCount := len(r.commits[digest])
	participants := make(map[string]bool)
	for _, voters := range r.commits {
		for v := range voters {
			participants[v] = true
		}
	}

	approval := float64(commitCount) / float64(r.n)
	participation := float64(len(participants)) / float64(r.n)
	confidence := 0.0
	if r.decided {
		confidence = 1.0
	}
	return Outcome{
		Consensus:         r.decided,
		FinalChoice:       r.decidedValue,
		ApprovalRate:      approval,
		ParticipationRate: participation,
		ConfidenceScore:   confidence,
	}
}
