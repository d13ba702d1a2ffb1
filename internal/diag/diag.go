// Package diag collects the human-readable match records verbose runs
// produce. This keeps observability out of the engine's control flow.
package diag

import (
	"fmt"
	"sort"
	"sync"
)

// Match records that one element matched one rule.
type Match struct {
	Target string
	Rule   string
}

func (m Match) String() string {
	return fmt.Sprintf("%s matched rule %q", m.Target, m.Rule)
}

// Collector accumulates match records from concurrent workers.
type Collector struct {
	mu      sync.Mutex
	matches []Match
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record appends one match record.
func (c *Collector) Record(target, rule string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = append(c.matches, Match{Target: target, Rule: rule})
}

// Matches returns a copy of the records sorted by (Target, Rule). Arrival
// order across workers is nondeterministic, so sorting here keeps verbose
// output stable.
func (c *Collector) Matches() []Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Match, len(c.matches))
	copy(out, c.matches)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

// Reset discards all records.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = nil
}
