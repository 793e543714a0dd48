package memory

import (
	"sync"
	"time"
)

// Store is the audit-backed working memory shared by all loop stages.
// It combines three surfaces with distinct lifecycles:
//
//   - a key-value working store where writes overwrite (last-write-wins)
//   - an evidence cache where entries are write-once
//   - an ordered, append-only trace log
//
// A run has exactly one writer (the orchestrator), but all operations take
// a lock anyway so that observers such as event subscribers or a report
// formatter can read concurrently.
type Store struct {
	mu            sync.RWMutex
	entries       map[string]Entry
	evidence      map[string]any
	evidenceOrder []string
	traces        []TraceRecord
	nextSeq       int64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		entries:  make(map[string]Entry),
		evidence: make(map[string]any),
		nextSeq:  1,
	}
}

// Write records a working-memory entry under key, overwriting any prior
// entry. evidenceID may be empty when the value has no evidence backlink.
func (s *Store) Write(key string, value any, evidenceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = Entry{
		Value:      value,
		WrittenAt:  time.Now(),
		EvidenceID: evidenceID,
	}
}

// Read returns the most recent value for key, or false if never written.
func (s *Store) Read(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

// HasEvidence reports whether an evidence entry exists for id.
// Pure lookup, no side effects.
func (s *Store) HasEvidence(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.evidence[id]
	return ok
}

// StoreEvidence caches a tool result under its evidence identifier.
// Returns true if the entry was stored, false if the identifier already
// exists. The duplicate path leaves the first value intact; the control
// stage is expected to reject duplicates before execution, so a false
// return indicates a caller-level logic error, not store corruption.
func (s *Store) StoreEvidence(id string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.evidence[id]; exists {
		return false
	}

	s.evidence[id] = value
	s.evidenceOrder = append(s.evidenceOrder, id)
	return true
}

// GetEvidence returns the cached value for an evidence identifier.
func (s *Store) GetEvidence(id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.evidence[id]
	return value, ok
}

// AppendTrace appends a record to the audit log, assigning its sequence
// number and timestamp. Returns the record as stored. Records are never
// mutated or removed after this call.
func (s *Store) AppendTrace(record TraceRecord) TraceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.Seq = s.nextSeq
	record.Timestamp = time.Now()
	s.nextSeq++

	s.traces = append(s.traces, record)
	return record
}

// Trace returns a copy of the audit log in append order.
func (s *Store) Trace() []TraceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TraceRecord, len(s.traces))
	copy(out, s.traces)
	return out
}

// TraceCount returns the number of appended records.
func (s *Store) TraceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.traces)
}

// Violations counts control-stage records whose validation result is false.
func (s *Store) Violations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, record := range s.traces {
		if record.Stage == StageControl && record.Validation != nil && !*record.Validation {
			count++
		}
	}
	return count
}

// Summarize returns a point-in-time snapshot reflecting every write and
// append that happened before the call. Maps and slices are copied so the
// caller can hold the summary across later writes.
func (s *Store) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[string]any, len(s.entries))
	for key, entry := range s.entries {
		values[key] = entry.Value
	}

	keys := make([]string, len(s.evidenceOrder))
	copy(keys, s.evidenceOrder)

	return Summary{
		StoredValues: values,
		EvidenceKeys: keys,
		TraceCount:   len(s.traces),
	}
}
