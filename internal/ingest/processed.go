package ingest

// processedSet tracks identity keys of files already handled this process
// lifetime. Optionally bounded: when maxEntries > 0 the oldest keys are
// evicted first, which at worst re-processes an old file (idempotent: same
// input produces the same output file).
type processedSet struct {
	keys       map[string]struct{}
	order      []string
	maxEntries int
}

func newProcessedSet(maxEntries int) *processedSet {
	return &processedSet{
		keys:       make(map[string]struct{}),
		maxEntries: maxEntries,
	}
}

func (s *processedSet) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

func (s *processedSet) Add(key string) {
	if s.Has(key) {
		return
	}
	s.keys[key] = struct{}{}
	s.order = append(s.order, key)
	for s.maxEntries > 0 && len(s.order) > s.maxEntries {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.keys, oldest)
	}
}

func (s *processedSet) Len() int {
	return len(s.keys)
}
