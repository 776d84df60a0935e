// SPDX-License-Identifier: GPL-3.0-only

package hid

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Manager keeps one open Studio per attached display, keyed by serial.
type Manager struct {
	studios    map[string]*Studio
	mu         sync.RWMutex
	enumerator func() ([]DeviceInfo, error)
	opener     func(serial string) (Device, error)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEnumerator replaces hidapi enumeration.
func WithEnumerator(fn func() ([]DeviceInfo, error)) ManagerOption {
	return func(m *Manager) {
		m.enumerator = fn
	}
}

// WithOpener replaces hidapi device opening.
func WithOpener(fn func(serial string) (Device, error)) ManagerOption {
	return func(m *Manager) {
		m.opener = fn
	}
}

// NewManager creates a manager with no open displays.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		studios:    make(map[string]*Studio),
		enumerator: EnumerateDisplays,
		opener:     OpenDisplay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Serials returns the serials of the open displays in sorted order.
func (m *Manager) Serials() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	serials := make([]string, 0, len(m.studios))
	for serial := range m.studios {
		serials = append(serials, serial)
	}
	sort.Strings(serials)
	return serials
}

// Studio returns the open display with serial.
func (m *Manager) Studio(serial string) (*Studio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	studio, ok := m.studios[serial]
	if !ok {
		return nil, fmt.Errorf("display with serial %s not found: %w", serial, ErrDisplayClosed)
	}
	return studio, nil
}

// Refresh re-enumerates, closing displays that disappeared and opening new ones.
func (m *Manager) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos, err := m.enumerator()
	if err != nil {
		return fmt.Errorf("failed to enumerate displays: %w", err)
	}

	present := make(map[string]DeviceInfo, len(infos))
	for _, info := range infos {
		present[info.Serial] = info
	}

	for serial, studio := range m.studios {
		if _, ok := present[serial]; ok {
			continue
		}
		log.Info().Str("serial", serial).Msg("Studio Display disconnected")
		if err := studio.Close(); err != nil {
			log.Warn().Err(err).Str("serial", serial).Msg("Failed to close disconnected display")
		}
		delete(m.studios, serial)
	}

	for serial, info := range present {
		if _, ok := m.studios[serial]; ok {
			continue
		}
		device, err := m.opener(serial)
		if err != nil {
			log.Error().Err(err).Str("serial", serial).Msg("Failed to open display")
			continue
		}
		m.studios[serial] = NewStudio(device)
		log.Info().Str("serial", serial).Str("product", info.Product).Msg("Studio Display connected")
	}

	return nil
}

// Close closes every open display.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for serial, studio := range m.studios {
		if err := studio.Close(); err != nil {
			log.Error().Err(err).Str("serial", serial).Msg("Failed to close display")
		}
		delete(m.studios, serial)
	}
	return nil
}

// Count returns the number of open displays.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.studios)
}
