package provider

import (
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/clock"
)

// SpendRecord is one logged completion's cost.
type SpendRecord struct {
	ProviderID string
	AgentID    string
	Model      string
	CostUSD    float64
	Tokens     int
	At         time.Time
}

// SpendLog accumulates per-provider and per-agent spend for reporting
// and for feeding budget dimensions back into admission control.
type SpendLog struct {
	mu        sync.Mutex
	clock     clock.Clock
	records   []SpendRecord
	byAgent   map[string]float64
	byProvider map[string]float64
}

// NewSpendLog creates an empty SpendLog.
func NewSpendLog(c clock.Clock) *SpendLog {
	return &SpendLog{
		clock:      c,
		byAgent:    make(map[string]float64),
		byProvider: make(map[string]float64),
	}
}

// Record appends a spend entry.
func (s *SpendLog) Record(providerID, agentID, model string, costUSD float64, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, SpendRecord{
		ProviderID: providerID,
		AgentID:    agentID,
		Model:      model,
		CostUSD:    costUSD,
		Tokens:     tokens,
		At:         s.clock.Now(),
	})
	s.byAgent[agentID] += costUSD
	s.byProvider[providerID] += costUSD
}

// AgentSpend returns the cumulative spend recorded for agentID.
func (s *SpendLog) AgentSpend(agentID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byAgent[agentID]
}

// ProviderSpend returns the cumulative spend recorded for providerID.
func (s *SpendLog) ProviderSpend(providerID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byProvider[providerID]
}

// Records returns a copy of every recorded entry, oldest first.
func (s *SpendLog) Records() []SpendRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SpendRecord, len(s.records))
	copy(out, s.records)
	return out
}
