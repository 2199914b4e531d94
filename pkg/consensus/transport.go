package consensus

// Transport abstracts inter-node messaging so the election and
// Byzantine-round state machines are agnostic to wire format; spec.md
// §1 puts wire-layout out of scope, and no example repo's gRPC/
// protobuf stack could be grounded without running protoc, so the
// default implementation below is an in-memory bus and a real deployment
// supplies its own network-backed Transport.
type Transport interface {
	RequestVote(peer string, req VoteRequest) (VoteResponse, error)
	SendHeartbeat(peer string, hb Heartbeat)
	Broadcast(msg BFTMessage)
}

// BFTMessage is one pre-prepare/prepare/commit message in a
// ByzantineRound.
type BFTMessage struct {
	Phase    BFTPhase
	View     int
	Sequence int
	Digest   string
	Value    any
	From     string
}

// InMemoryTransport wires a fixed set of named nodes together via Go
// channels, for tests and single-process deployments.
type InMemoryTransport struct {
	nodeID    string
	elections map[string]*Election
	rounds    map[string]*ByzantineRound
}

// NewInMemoryTransport creates a Transport for nodeID. elections and
// rounds are populated after construction (they reference each other
// circularly via Transport), so callers wire them in a second pass
// with RegisterElection/RegisterRound.
func NewInMemoryTransport(nodeID string) *InMemoryTransport {
	return &InMemoryTransport{
		nodeID:    nodeID,
		elections: make(map[string]*Election),
		rounds:    make(map[string]*ByzantineRound),
	}
}

// RegisterElection makes peerID's Election reachable for RequestVote/
// SendHeartbeat calls originating from this transport.
func (t *InMemoryTransport) RegisterElection(peerID string, e *Election) {
	t.elections[peerID] = e
}

// RegisterRound makes peerID's ByzantineRound reachable for Broadcast.
func (t *InMemoryTransport) RegisterRound(peerID string, r *ByzantineRound) {
	t.rounds[peerID] = r
}

func (t *InMemoryTransport) RequestVote(peer string, req VoteRequest) (VoteResponse, error) {
	e, ok := t.elections[peer]
	if !ok {
		return VoteResponse{}, errNoSuchPeer(peer)
	}
	return e.HandleVoteRequest(req), nil
}

func (t *InMemoryTransport) SendHeartbeat(peer string, hb Heartbeat) {
	if e, ok := t.elections[peer]; ok {
		e.HandleHeartbeat(hb)
	}
}

func (t *InMemoryTransport) Broadcast(msg BFTMessage) {
	for id, r := range t.rounds {
		if id == msg.From {
			continue
		}
		r.Receive(msg)
	}
}

type errNoSuchPeer string

func (e errNoSuchPeer) Error() string { return "consensus: no such peer: " + string(e) }
