package token

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type MemoryStore struct {
	mu          sync.RWMutex
	records     map[Key]Record
	expireAfter time.Duration
	ttlEnabled  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[Key]Record),
	}
}

func (m *MemoryStore) FindByKey(ctx context.Context, key Key) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.records[key]
	if !exists {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryStore) UpsertByKey(ctx context.Context, key Key, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *cloneRecord(*rec)
	stored.ID = key.String()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	rec.ID = stored.ID
	m.records[key] = stored
	return nil
}

func (m *MemoryStore) DeleteByKey(ctx context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key)
	return nil
}

func (m *MemoryStore) EnsureExpiryIndex(ctx context.Context, field string, after time.Duration) error {
	if field != ExpiresAtField {
		return fmt.Errorf("%w: %s", ErrUnsupportedExpiryField, field)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireAfter = after
	m.ttlEnabled = true
	return nil
}

func (m *MemoryStore) IncrementAttempts(ctx context.Context, key Key, at time.Time) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.records[key]
	if !exists {
		return nil, ErrRecordNotFound
	}

	rec.AttemptCount++
	rec.LastAttemptAt = &at
	m.records[key] = rec
	return cloneRecord(rec), nil
}

func (m *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ttlEnabled {
		return 0, nil
	}

	cutoff := now.Add(-m.expireAfter)
	var removed int64
	for key, rec := range m.records {
		if rec.ExpiresAt.Before(cutoff) {
			delete(m.records, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}

func cloneRecord(rec Record) *Record {
	if rec.LastAttemptAt != nil {
		at := *rec.LastAttemptAt
		rec.LastAttemptAt = &at
	}
	return &rec
}
