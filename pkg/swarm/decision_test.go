package swarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmruntime/core/pkg/consensus"
)

func TestTallyDecision_Majority(t *testing.T) {
	votes := []Vote{{WorkerID: "a", InFavor: true}, {WorkerID: "b", InFavor: true}, {WorkerID: "c", InFavor: false}}
	out := TallyDecision(DecisionMajority, votes)
	assert.True(t, out.Consensus)
	assert.InDelta(t, 2.0/3.0, out.ApprovalRate, 0.001)
}

func TestTallyDecision_Supermajority(t *testing.T) {
	votes := []Vote{{InFavor: true}, {InFavor: true}, {InFavor: false}, {InFavor: false}}
	out := TallyDecision(DecisionSupermajority, votes) // needs ceil(8/3)=3
	assert.False(t, out.Consensus)
}

func TestTallyDecision_Unanimous(t *testing.T) {
	votes := []Vote{{InFavor: true}, {InFavor: true}}
	out := TallyDecision(DecisionUnanimous, votes)
	assert.True(t, out.Consensus)

	votes = append(votes, Vote{InFavor: false})
	out = TallyDecision(DecisionUnanimous, votes)
	assert.False(t, out.Consensus)
}

func TestTallyDecision_Weighted(t *testing.T) {
	votes := []Vote{
		{WorkerID: "a", InFavor: true, Weight: 1},
		{WorkerID: "b", InFavor: true, Weight: 2},
		{WorkerID: "c", InFavor: false, Weight: 1},
	}
	out := TallyDecision(DecisionWeighted, votes)
	assert.True(t, out.Consensus)
	assert.InDelta(t, 0.75, out.ApprovalRate, 0.001)
}

func TestDecideByzantine_ProxiesConsensusOutcome(t *testing.T) {
	transport := consensus.NewInMemoryTransport("n0")
	leader, err := consensus.NewByzantineRound("n0", 4, 1, transport, 1, 1)
	require.NoError(t, err)
	r1, err := consensus.NewByzantineRound("n1", 4, 1, transport, 1, 1)
	require.NoError(t, err)
	r2, err := consensus.NewByzantineRound("n2", 4, 1, transport, 1, 1)
	require.NoError(t, err)
	transport.RegisterRound("n0", leader)
	transport.RegisterRound("n1", r1)
	transport.RegisterRound("n2", r2)

	leader.ProposeAsLeader("d", "V")

	out := DecideByzantine(leader)
	assert.True(t, out.Consensus)
	assert.InDelta(t, 0.75, out.ApprovalRate, 0.001)
	assert.Equal(t, 1.0, out.ConfidenceScore)
}
