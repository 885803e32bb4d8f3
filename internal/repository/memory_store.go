package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Records are deep-copied on the way in
// and out, so callers never share maps with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Record)}
}

// Put inserts or replaces a record.
func (s *MemoryStore) Put(collection, id string, rec Record) error {
	clone, err := cloneRecord(rec)
	if err != nil {
		return err
	}
	clone["id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]Record)
		s.collections[collection] = docs
	}
	docs[id] = clone
	return nil
}

// PutModel stores a model under id using its JSON form.
func (s *MemoryStore) PutModel(collection, id string, v any) error {
	rec, err := toRecord(v)
	if err != nil {
		return err
	}
	return s.Put(collection, id, rec)
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Record, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Record
	for _, id := range ids {
		rec := docs[id]
		if !matchAll(rec, filters) {
			continue
		}
		clone, err := cloneRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec)
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, partial Record) error {
	ok, err := s.UpdateIf(ctx, collection, id, nil, partial)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) UpdateIf(ctx context.Context, collection, id string, conds []Filter, partial Record) (bool, error) {
	if err := validateFilters(conds); err != nil {
		return false, err
	}
	patch, err := cloneRecord(partial)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.collections[collection][id]
	if !ok || !matchAll(rec, conds) {
		return false, nil
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	return true, nil
}

func cloneRecord(rec Record) (Record, error) {
	if rec == nil {
		return Record{}, nil
	}
	return toRecord(rec)
}

func matchAll(rec Record, filters []Filter) bool {
	for _, f := range filters {
		if !matches(rec, f) {
			return false
		}
	}
	return true
}

func matches(rec Record, f Filter) bool {
	v, ok := rec[f.Field]
	if !ok {
		return false
	}
	cmp, ok := compareValues(v, f.Value)
	if !ok {
		return f.Op == OpNe
	}
	switch f.Op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	}
	return false
}

// compareValues orders a stored value against a filter value. Stored times are
// RFC 3339 strings after the JSON round trip; they are parsed when the filter
// value is a time. The second result is false when the values are not comparable.
func compareValues(stored, want any) (int, bool) {
	stored = normalizeValue(stored)
	want = normalizeValue(want)

	switch w := want.(type) {
	case time.Time:
		var st time.Time
		switch x := stored.(type) {
		case time.Time:
			st = x
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return 0, false
			}
			st = parsed
		default:
			return 0, false
		}
		return st.Compare(w), true
	case string:
		x, ok := stored.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, w), true
	case bool:
		x, ok := stored.(bool)
		if !ok {
			return 0, false
		}
		if x == w {
			return 0, true
		}
		if !x {
			return -1, true
		}
		return 1, true
	case float64:
		x, ok := stored.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < w:
			return -1, true
		case x > w:
			return 1, true
		}
		return 0, true
	case nil:
		if stored == nil {
			return 0, true
		}
		return 0, false
	}
	return 0, false
}
