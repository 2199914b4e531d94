package swarm

import (
	"github.com/swarmruntime/core/pkg/consensus"
)

// DecisionKind selects how a collective decision's votes are tallied.
// Byzantine decisions are proxied through a consensus.ByzantineRound;
// every other kind is tallied directly against the cast votes.
type DecisionKind string

const (
	DecisionMajority     DecisionKind = "majority"
	DecisionSupermajority DecisionKind = "supermajority"
	DecisionUnanimous     DecisionKind = "unanimous"
	DecisionWeighted      DecisionKind = "weighted"
	DecisionByzantine     DecisionKind = "byzantine"
)

func (k DecisionKind) quorumKind() consensus.QuorumKind {
	switch k {
	case DecisionSupermajority:
		return consensus.QuorumSupermajority
	case DecisionUnanimous:
		return consensus.QuorumUnanimous
	case DecisionWeighted:
		return consensus.QuorumWeighted
	default:
		return consensus.QuorumMajority
	}
}

// Vote is one worker's vote in a collective decision.
type Vote struct {
	WorkerID string
	InFavor  bool
	Weight   float64
}

// DecisionOutcome mirrors consensus.Outcome's shape so callers can
// treat byzantine and directly-tallied decisions uniformly.
type DecisionOutcome struct {
	Consensus       bool
	ApprovalRate    float64
	ConfidenceScore float64
}

// TallyDecision resolves a non-byzantine collective decision directly
// from votes: majority/supermajority/unanimous count voters, weighted
// sums vote weight, per spec.md §4.7/§4.8. Use DecideByzantine for
// DecisionByzantine instead.
func TallyDecision(kind DecisionKind, votes []Vote) DecisionOutcome {
	n := len(votes)
	if n == 0 {
		return DecisionOutcome{}
	}

	if kind == DecisionWeighted {
		weights := make(map[string]float64, n)
		inFavor := make(map[string]bool, n)
		for _, v := range votes {
			weights[v.WorkerID] = v.Weight
			inFavor[v.WorkerID] = v.InFavor
		}
		met := consensus.WeightedQuorumMet(weights, inFavor, 0.5)
		var favorWeight, totalWeight float64
		for _, v := range votes {
			totalWeight += v.Weight
			if v.InFavor {
				favorWeight += v.Weight
			}
		}
		rate := 0.0
		if totalWeight > 0 {
			rate = favorWeight / totalWeight
		}
		return DecisionOutcome{Consensus: met, ApprovalRate: rate, ConfidenceScore: boolToConfidence(met)}
	}

	inFavor := 0
	for _, v := range votes {
		if v.InFavor {
			inFavor++
		}
	}
	required := consensus.RequiredQuorum(kind.quorumKind(), n)
	met := inFavor >= required
	return DecisionOutcome{
		Consensus:       met,
		ApprovalRate:    float64(inFavor) / float64(n),
		ConfidenceScore: boolToConfidence(met),
	}
}

func boolToConfidence(met bool) float64 {
	if met {
		return 1.0
	}
	return 0.0
}

// DecideByzantine resolves a DecisionByzantine collective decision by
// proxying through an already-driven consensus.ByzantineRound (the
// queen or a delegate must have run the pre-prepare/prepare/commit
// exchange via consensus.Transport beforehand).
func DecideByzantine(round *consensus.ByzantineRound) DecisionOutcome {
	out := round.Outcome()
	return DecisionOutcome{
		Consensus:       out.Consensus,
		ApprovalRate:    out.ApprovalRate,
		ConfidenceScore: out.ConfidenceScore,
	}
}
