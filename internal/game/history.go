package game

import (
	"sync"
)

// RoundHistory is a bounded ring of settled rounds, oldest evicted first.
// The orchestrator is the single writer; readers only ever see copies, so
// concurrent observers need no coordination beyond the read lock.
type RoundHistory struct {
	mu       sync.RWMutex
	records  []RoundRecord
	capacity int
}

func NewRoundHistory(capacity int) *RoundHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &RoundHistory{capacity: capacity}
}

// Append archives a settled round, evicting the oldest record at capacity.
func (h *RoundHistory) Append(record RoundRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, record)
	if len(h.records) > h.capacity {
		h.records = h.records[len(h.records)-h.capacity:]
	}
}

// Recent returns up to limit records, most recent first.
func (h *RoundHistory) Recent(limit int) []RoundRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.records) {
		limit = len(h.records)
	}

	out := make([]RoundRecord, 0, limit)
	for i := len(h.records) - 1; i >= len(h.records)-limit; i-- {
		out = append(out, h.records[i])
	}
	return out
}

// Find looks up an archived round by id, for fairness verification.
func (h *RoundHistory) Find(roundID string) (RoundRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.records) - 1; i >= 0; i-- {
		if h.records[i].RoundID == roundID {
			return h.records[i], true
		}
	}
	return RoundRecord{}, false
}

func (h *RoundHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
