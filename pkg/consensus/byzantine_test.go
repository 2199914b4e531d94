package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S8 — Byzantine consensus. n=4, f=1. Leader proposes V. 3 honest nodes
// commit (the 4th, byzantine, node never participates); decide(V)=true
// with approvalRate=0.75, confidenceScore=1.0.
func TestByzantineRound_S8(t *testing.T) {
	transport := NewInMemoryTransport("shared")

	leader, err := NewByzantineRound("n0", 4, 1, transport, 1, 1)
	require.NoError(t, err)
	r1, err := NewByzantineRound("n1", 4, 1, transport, 1, 1)
	require.NoError(t, err)
	r2, err := NewByzantineRound("n2", 4, 1, transport, 1, 1)
	require.NoError(t, err)
	// n3 (byzantine) is deliberately never registered: it neither
	// receives nor sends any message.

	transport.RegisterRound("n0", leader)
	transport.RegisterRound("n1", r1)
	transport.RegisterRound("n2", r2)

	leader.ProposeAsLeader("digest-v", "V")

	value, decided := leader.Decided()
	require.True(t, decided)
	assert.Equal(t, "V", value)

	outcome := leader.Outcome()
	assert.True(t, outcome.Consensus)
	assert.Equal(t, "V", outcome.FinalChoice)
	assert.InDelta(t, 0.75, outcome.ApprovalRate, 0.001)
	assert.Equal(t, 1.0, outcome.ConfidenceScore)

	// Invariant 8 (partial): every replica that decided sees the same
	// value for this (view, sequence).
	v1, ok1 := r1.Decided()
	v2, ok2 := r2.Decided()
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, "V", v1)
	assert.Equal(t, "V", v2)
}

func TestByzantineRound_RejectsInsufficientN(t *testing.T) {
	transport := NewInMemoryTransport("t")
	_, err := NewByzantineRound("n0", 3, 1, transport, 1, 1) // needs n>=3f+1=4
	assert.Error(t, err)
}

func TestByzantineRound_NoDecisionBelowQuorum(t *testing.T) {
	transport := NewInMemoryTransport("t")
	leader, err := NewByzantineRound("n0", 4, 1, transport, 1, 1)
	require.NoError(t, err)
	transport.RegisterRound("n0", leader)
	// No other replicas registered: leader alone can never reach 2f+1=3 commits.

	leader.ProposeAsLeader("d", "V")
	_, decided := leader.Decided()
	assert.False(t, decided)
}

func TestRequiredQuorum(t *testing.T) {
	assert.Equal(t, 3, RequiredQuorum(QuorumMajority, 4))     // floor(4/2)+1
	assert.Equal(t, 3, RequiredQuorum(QuorumSupermajority, 4)) // ceil(8/3)=3
	assert.Equal(t, 4, RequiredQuorum(QuorumUnanimous, 4))
}

func TestWeightedQuorumMet(t *testing.T) {
	weights := map[string]float64{"a": 1, "b": 2, "c": 1}
	inFavor := map[string]bool{"b": true, "c": true}
	assert.True(t, WeightedQuorumMet(weights, inFavor, 0.5))
	assert.False(t, WeightedQuorumMet(weights, inFavor, 0.8))
}
