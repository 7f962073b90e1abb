package relay

import "sync"

// seenSet is a bounded set of recently processed event IDs. Some transports
// deliver the same event through two independent channels (primary stream
// plus a raw feed used to cover partial-caching gaps for direct messages);
// the set collapses both paths into one processed event. When the bound is
// reached the oldest entry is evicted.
type seenSet struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
	head  int
	max   int
}

func newSeenSet(max int) *seenSet {
	return &seenSet{
		ids:   make(map[string]struct{}, max),
		order: make([]string, max),
		max:   max,
	}
}

// Observe records the ID and reports whether it had been seen before. The
// check-and-insert is atomic so racing delivery paths cannot both claim a
// first sighting.
func (s *seenSet) Observe(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return true
	}

	if old := s.order[s.head]; old != "" {
		delete(s.ids, old)
	}
	s.order[s.head] = id
	s.head = (s.head + 1) % s.max
	s.ids[id] = struct{}{}

	return false
}
