package checklist

// Store holds acknowledgement state for one rendered report. It is bound to
// the hash of the report text and resets itself whenever that text changes.
// A Store belongs to a single viewer and is not safe for concurrent use.
type Store struct {
	hash         ContentHash
	bound        bool
	acknowledged map[string]bool
	valid        map[string]struct{}
}

// NewStore returns an unbound, empty store.
func NewStore() *Store {
	return &Store{
		acknowledged: make(map[string]bool),
		valid:        make(map[string]struct{}),
	}
}

// Bind attaches the store to reportText. If the store was bound to different
// text it is reset first. It reports whether a reset happened.
func (s *Store) Bind(reportText string) bool {
	h := HashContent(reportText)
	if s.bound && s.hash == h {
		return false
	}
	changed := s.bound
	s.Reset()
	s.hash = h
	s.bound = true
	return changed
}

// Unbind resets the store and detaches it from any report.
func (s *Store) Unbind() {
	s.Reset()
	s.hash = ContentHash{}
	s.bound = false
}

// ContentHash returns the bound hash and whether the store is bound.
func (s *Store) ContentHash() (ContentHash, bool) {
	return s.hash, s.bound
}

// RegisterKey marks key as a row of the current render. Repeat calls are no-ops.
func (s *Store) RegisterKey(key string) {
	if _, ok := s.valid[key]; ok {
		return
	}
	s.valid[key] = struct{}{}
}

// Registered reports whether key belongs to the current render.
func (s *Store) Registered(key string) bool {
	_, ok := s.valid[key]
	return ok
}

// RegisteredCount is the size of the valid-key set.
func (s *Store) RegisteredCount() int {
	return len(s.valid)
}

// SetAcknowledged records a toggle. Unregistered keys are stored but never
// counted.
func (s *Store) SetAcknowledged(key string, value bool) {
	s.acknowledged[key] = value
}

// Acknowledged reports the stored toggle for key.
func (s *Store) Acknowledged(key string) bool {
	return s.acknowledged[key]
}

// AcknowledgedCount counts keys that are both registered and acknowledged.
func (s *Store) AcknowledgedCount() int {
	n := 0
	for key := range s.valid {
		if s.acknowledged[key] {
			n++
		}
	}
	return n
}

// Reset clears acknowledgements and the valid-key set.
func (s *Store) Reset() {
	clear(s.acknowledged)
	clear(s.valid)
}
