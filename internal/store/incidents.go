package store

import (
	"container/ring"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/drivewatch/correlator/internal/model"
)

// IncidentStore keeps a bounded history of raised incidents for the ops API,
// with LRU admission dedupe so a drive flapping between the same two statuses
// does not flood the history. Emission to the logging sink is unconditional
// and happens before admission; this store only shapes what the API shows.
type IncidentStore struct {
	mu        sync.RWMutex
	incidents *ring.Ring
	dedupe    *lru.Cache[string, bool]
	capacity  int
}

// NewIncidentStore creates an incident history holding at most capacity
// entries, deduplicating across the last dedupeCap distinct incident keys.
func NewIncidentStore(capacity, dedupeCap int) *IncidentStore {
	cache, _ := lru.New[string, bool](dedupeCap)

	return &IncidentStore{
		incidents: ring.New(capacity),
		dedupe:    cache,
		capacity:  capacity,
	}
}

// Add records an incident in the history. It returns false when an incident
// with the same drive, status and reason was recently admitted.
func (s *IncidentStore) Add(inc *model.Incident) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inc.DiskSerialNumber + ":" + inc.Status + ":" + inc.Reason
	if _, seen := s.dedupe.Get(key); seen {
		return false
	}
	s.dedupe.Add(key, true)

	s.incidents.Value = inc
	s.incidents = s.incidents.Next()
	return true
}

// All returns the recorded incidents, oldest first.
func (s *IncidentStore) All() []*model.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Incident
	s.incidents.Do(func(v interface{}) {
		if inc, ok := v.(*model.Incident); ok && inc != nil {
			out = append(out, inc)
		}
	})
	return out
}

// Stats reports history occupancy for the ops API.
func (s *IncidentStore) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	s.incidents.Do(func(v interface{}) {
		if v != nil {
			count++
		}
	})

	return map[string]interface{}{
		"incidents":   count,
		"capacity":    s.capacity,
		"dedupe_size": s.dedupe.Len(),
	}
}
