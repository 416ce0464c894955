package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vinayprograms/reverie/errors"
	"github.com/vinayprograms/reverie/telemetry"
)

// InMemoryStore implements Store on a map. Nothing survives the process;
// it backs tests and storage.backend = "memory".
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	keys    KeyStrategy
	now     func() time.Time
	tracer  *telemetry.Tracer
	closed  bool
}

// NewInMemoryStore creates an empty in-memory store.
// A nil keys strategy defaults to UniqueTimestampKeys.
func NewInMemoryStore(keys KeyStrategy) *InMemoryStore {
	if keys == nil {
		keys = &UniqueTimestampKeys{}
	}
	return &InMemoryStore{
		records: make(map[string]Record),
		keys:    keys,
		now:     time.Now,
		tracer:  telemetry.GetTracer(),
	}
}

// Save implements Store.
func (s *InMemoryStore) Save(ctx context.Context, rec *Record) (key string, err error) {
	_, span := s.tracer.StartStoreSpan(ctx, "save")
	defer func() {
		s.tracer.EndStoreSpan(span, telemetry.StoreSpanOptions{Backend: "memory", Key: key}, err)
	}()

	if rec == nil {
		return "", errors.InvalidInput("record is required")
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}
	rec.applyDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", errors.New(errors.ErrCodeUnavailable, "store closed")
	}

	key = s.keys.Next(s.now())
	s.records[key] = rec.Clone()
	return key, nil
}

// List implements Store.
func (s *InMemoryStore) List(ctx context.Context, limit int) (entries []Entry, err error) {
	_, span := s.tracer.StartStoreSpan(ctx, "list")
	defer func() {
		s.tracer.EndStoreSpan(span, telemetry.StoreSpanOptions{Backend: "memory", Count: len(entries)}, err)
	}()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.sortedKeys()
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return s.entries(keys), nil
}

// Get implements Store.
func (s *InMemoryStore) Get(ctx context.Context, key string) (entry *Entry, err error) {
	_, span := s.tracer.StartStoreSpan(ctx, "get")
	defer func() {
		s.tracer.EndStoreSpan(span, telemetry.StoreSpanOptions{Backend: "memory", Key: key}, err)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, errors.NotFound("memory not found", errors.WithKey(key))
	}
	return &Entry{Key: key, Record: rec.Clone()}, nil
}

// ScanAll implements Store.
func (s *InMemoryStore) ScanAll(ctx context.Context) (entries []Entry, err error) {
	_, span := s.tracer.StartStoreSpan(ctx, "scan")
	defer func() {
		s.tracer.EndStoreSpan(span, telemetry.StoreSpanOptions{Backend: "memory", Count: len(entries)}, err)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries(s.sortedKeys()), nil
}

// Close implements Store. Later saves fail; reads keep working.
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// sortedKeys must be called with s.mu held.
func (s *InMemoryStore) sortedKeys() []string {
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// entries must be called with s.mu held.
func (s *InMemoryStore) entries(keys []string) []Entry {
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Key: k, Record: s.records[k].Clone()})
	}
	return out
}
