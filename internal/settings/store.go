// SPDX-License-Identifier: GPL-3.0-only

// Package settings persists user preferences as string key/value pairs.
package settings

import (
	"errors"
	"sync"
)

// Setting keys.
const (
	KeyDaytimeStart      = "DaytimeStart"
	KeyNighttimeStart    = "NighttimeStart"
	KeyDayBrightness     = "DayBrightness"
	KeyNightBrightness   = "NightBrightness"
	KeyDayToNight        = "DayToNightTransitionTime"
	KeyNightToDay        = "NightToDayTransitionTime"
	KeyLocationEnabled   = "LocationEnabled"
	KeyLocationLatitude  = "LocationLatitude"
	KeyLocationLongitude = "LocationLongitude"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("setting not found")

// Store reads and writes settings.
type Store interface {
	ReadSetting(key string) (string, error)
	WriteSetting(key, value string) error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// ReadSetting implements Store.
func (m *MemoryStore) ReadSetting(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// WriteSetting implements Store.
func (m *MemoryStore) WriteSetting(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}
