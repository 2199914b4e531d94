// Package consensus implements the Raft-like leader election and
// PBFT-style Byzantine voting described in spec.md §4.7 (component
// C8), over an injectable Transport.
package consensus

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/clock"
)

// NodeRole is a node's role in the current term.
type NodeRole string

const (
	RoleFollower  NodeRole = "follower"
	RoleCandidate NodeRole = "candidate"
	RoleLeader    NodeRole = "leader"
)

// VoteRequest is sent by a candidate to request a vote for a term.
type VoteRequest struct {
	Term      int
	Candidate string
}

// VoteResponse answers a VoteRequest.
type VoteResponse struct {
	Term    int
	Granted bool
}

// Heartbeat is sent by a leader to suppress followers' election
// timeouts.
type Heartbeat struct {
	Term   int
	Leader string
}

// Election is one node's participation in Raft-like majority leader
// election.
type Election struct {
	mu sync.Mutex

	clock     clock.Clock
	nodeID    string
	peers     []string
	transport Transport

	term        int
	role        NodeRole
	votedFor    string
	leaderID    string
	grantedBy   map[string]bool
	lastContact time.Time

	electionTimeoutMin time.Duration
	electionTimeoutMax time.Duration
}

// ElectionConfig configures an Election.
type ElectionConfig struct {
	ElectionTimeoutMin time.Duration // default 150ms
	ElectionTimeoutMax time.Duration // default 300ms
}

func (c ElectionConfig) withDefaults() ElectionConfig {
	if c.ElectionTimeoutMin <= 0 {
		c.ElectionTimeoutMin = 150 * time.Millisecond
	}
	if c.ElectionTimeoutMax <= 0 {
		c.ElectionTimeoutMax = 300 * time.Millisecond
	}
	return c
}

// NewElection creates an Election in the follower role.
func NewElection(c clock.Clock, nodeID string, peers []string, transport Transport, cfg ElectionConfig) *Election {
	cfg = cfg.withDefaults()
	return &Election{
		clock:              c,
		nodeID:             nodeID,
		peers:              peers,
		transport:          transport,
		role:               RoleFollower,
		lastContact:        c.Now(),
		electionTimeoutMin: cfg.ElectionTimeoutMin,
		electionTimeoutMax: cfg.ElectionTimeoutMax,
	}
}

// randomTimeout picks a randomized election timeout in
// [electionTimeoutMin, electionTimeoutMax).
func (e *Election) randomTimeout() time.Duration {
	span := e.electionTimeoutMax - e.electionTimeoutMin
	if span <= 0 {
		return e.electionTimeoutMin
	}
	return e.electionTimeoutMin + time.Duration(rand.Int64N(int64(span)))
}

// TimedOut reports whether the time since the last leader contact
// exceeds a freshly-drawn randomized election timeout, and if so,
// begins a new election.
func (e *Election) TimedOut() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.role == RoleLeader {
		return false
	}
	return e.clock.Since(e.lastContact) > e.randomTimeout()
}

// StartElection increments the term, votes for self, and requests
// votes from every peer, becoming leader if it wins a strict majority.
func (e *Election) StartElection() bool {
	e.mu.Lock()
	e.term++
	e.role = RoleCandidate
	e.votedFor = e.nodeID
	term := e.term
	e.grantedBy = map[string]bool{e.nodeID: true}
	e.mu.Unlock()

	granted := 1 // self
	for _, peer := range e.peers {
		resp, err := e.transport.RequestVote(peer, VoteRequest{Term: term, Candidate: e.nodeID})
		if err != nil {
			continue
		}
		e.mu.Lock()
		if resp.Term > e.term {
			e.stepDownLocked(resp.Term)
			e.mu.Unlock()
			return false
		}
		if resp.Granted {
			granted++
		}
		e.mu.Unlock()
	}

	total := len(e.peers) + 1
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.term != term || e.role != RoleCandidate {
		return false // a higher term arrived while canvassing
	}
	if granted*2 > total {
		e.role = RoleLeader
		e.leaderID = e.nodeID
		e.lastContact = e.clock.Now()
		return true
	}
	return false
}

// HandleVoteRequest implements the follower's vote-granting rule: at
// most one vote per term, only for a candidate whose term is at least
// as current as the follower's own.
func (e *Election) HandleVoteRequest(req VoteRequest) VoteResponse {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Term < e.term {
		return VoteResponse{Term: e.term, Granted: false}
	}
	if req.Term > e.term {
		e.stepDownLocked(req.Term)
	}
	if e.votedFor == "" || e.votedFor == req.Candidate {
		e.votedFor = req.Candidate
		e.lastContact = e.clock.Now()
		return VoteResponse{Term: e.term, Granted: true}
	}
	return VoteResponse{Term: e.term, Granted: false}
}

// HandleHeartbeat resets the election timeout and, if the heartbeat's
// term is current or newer, recognizes its sender as leader.
func (e *Election) HandleHeartbeat(hb Heartbeat) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if hb.Term < e.term {
		return
	}
	if hb.Term > e.term {
		e.stepDownLocked(hb.Term)
	}
	e.role = RoleFollower
	e.leaderID = hb.Leader
	e.lastContact = e.clock.Now()
}

// stepDownLocked adopts a newer term, reverting to follower with no
// vote cast yet. Caller must hold e.mu.
func (e *Election) stepDownLocked(term int) {
	e.term = term
	e.role = RoleFollower
	e.votedFor = ""
	e.leaderID = ""
}

// Role returns the node's current role.
func (e *Election) Role() NodeRole {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.role
}

// Term returns the node's current term.
func (e *Election) Term() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.term
}

// IsLeader reports whether this node believes itself to be the leader.
func (e *Election) IsLeader() bool { return e.Role() == RoleLeader }
