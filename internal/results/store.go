package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownKey is returned when a record slot name is not one of Keys.
var ErrUnknownKey = errors.New("unknown result key")

// #region store-interface

// Store holds the records of a single session. An absent key means the test
// has not completed yet and is reported as found=false, never as an error.
type Store interface {
	Put(ctx context.Context, key Key, payload []byte) error
	Get(ctx context.Context, key Key) (payload []byte, found bool, err error)
}

// #endregion store-interface

// #region typed-helpers

// Save encodes rec and writes it under its own key.
func Save(ctx context.Context, s Store, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s result: %w", rec.Key(), err)
	}
	if err := s.Put(ctx, rec.Key(), payload); err != nil {
		return fmt.Errorf("put %s result: %w", rec.Key(), err)
	}
	return nil
}

// Load reads the record of type T. found is false when the slot is empty.
func Load[T Record](ctx context.Context, s Store) (rec T, found bool, err error) {
	key := rec.Key()
	payload, found, err := s.Get(ctx, key)
	if err != nil {
		return rec, false, fmt.Errorf("get %s result: %w", key, err)
	}
	if !found {
		return rec, false, nil
	}
	if err := json.Unmarshal(payload, &rec); err != nil {
		return rec, false, fmt.Errorf("unmarshal %s result: %w", key, err)
	}
	return rec, true, nil
}

// Snapshot is the read-only view of a session's three slots.
type Snapshot struct {
	Gaze   *GazeResult
	Gait   *GaitResult
	Speech *SpeechResult
}

// Complete reports whether all three records are present.
func (s Snapshot) Complete() bool {
	return s.Gaze != nil && s.Gait != nil && s.Speech != nil
}

// LoadSnapshot reads all three slots.
func LoadSnapshot(ctx context.Context, s Store) (Snapshot, error) {
	var snap Snapshot
	if g, ok, err := Load[GazeResult](ctx, s); err != nil {
		return Snapshot{}, err
	} else if ok {
		snap.Gaze = &g
	}
	if g, ok, err := Load[GaitResult](ctx, s); err != nil {
		return Snapshot{}, err
	} else if ok {
		snap.Gait = &g
	}
	if sp, ok, err := Load[SpeechResult](ctx, s); err != nil {
		return Snapshot{}, err
	} else if ok {
		snap.Speech = &sp
	}
	return snap, nil
}

func validKey(k Key) error {
	for _, known := range Keys {
		if k == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownKey, k)
}

// #endregion typed-helpers

// #region memory-store

// MemoryStore is an in-process Store for a single session.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key][]byte)}
}

// Put stores a copy of payload under key.
func (m *MemoryStore) Put(_ context.Context, key Key, payload []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	cp := append([]byte(nil), payload...)
	m.mu.Lock()
	m.records[key] = cp
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the payload under key.
func (m *MemoryStore) Get(_ context.Context, key Key) ([]byte, bool, error) {
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), p...), true, nil
}

// Clear drops every record, ending the session's lifetime.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	m.records = make(map[Key][]byte)
	m.mu.Unlock()
}

// #endregion memory-store
