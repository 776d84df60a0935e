// SPDX-License-Identifier: GPL-3.0-only

// Package udev watches netlink uevents for display hot-plug: Apple Studio
// Displays on USB, DRM connector changes for DDC/CI monitors and integrated
// backlight devices.
package udev

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pilebones/go-udev/netlink"
	"github.com/rs/zerolog/log"
)

const (
	// netlinkBufferSize avoids ENOBUFS when a USB hub enumerates many
	// interfaces at once.
	netlinkBufferSize = 2 * 1024 * 1024

	// removeDebounceWindow collapses the per-interface REMOVE burst of one device.
	removeDebounceWindow = 2 * time.Second

	// staleRemoveAge is when remembered REMOVE timestamps are dropped.
	staleRemoveAge = time.Minute
)

const (
	// AppleVendorIDPattern matches the Apple USB vendor id as udev reports it
	// ("5ac" or "05ac", any case).
	AppleVendorIDPattern = "0?5[aA][cC]"

	// StudioDisplayProductID is the USB product id of the Apple Studio Display.
	StudioDisplayProductID = "1114"
)

// Source identifies which kind of device produced an event.
type Source string

const (
	SourceUSB       Source = "usb"
	SourceDRM       Source = "drm"
	SourceBacklight Source = "backlight"
)

// EventType represents the type of device event.
type EventType int

const (
	// EventAdd indicates a device was connected.
	EventAdd EventType = iota
	// EventRemove indicates a device was disconnected.
	EventRemove
	// EventChange indicates a connector changed state (DRM hotplug).
	EventChange
)

func (t EventType) String() string {
	switch t {
	case EventAdd:
		return "add"
	case EventRemove:
		return "remove"
	case EventChange:
		return "change"
	default:
		return "unknown"
	}
}

// Event represents a display hot-plug event.
type Event struct {
	Type   EventType
	Source Source
}

// EventHandler is called when a device event occurs.
type EventHandler func(event Event)

// RecoveryHandler is called after events may have been lost and displays
// should be re-enumerated.
type RecoveryHandler func()

// Monitor watches for display connect/disconnect events.
type Monitor struct {
	conn            *netlink.UEventConn
	handler         EventHandler
	recoveryHandler RecoveryHandler
	quit            chan struct{}
	stopped         bool
	lastRemoveTime  map[string]time.Time
	mu              sync.Mutex
}

// NewMonitor creates a new udev monitor with the given event handler.
func NewMonitor(handler EventHandler) *Monitor {
	return &Monitor{
		handler:        handler,
		lastRemoveTime: make(map[string]time.Time),
	}
}

// SetRecoveryHandler sets the handler called when the monitor recovers from errors.
func (m *Monitor) SetRecoveryHandler(handler RecoveryHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoveryHandler = handler
}

// Start begins monitoring. Events are processed in a background goroutine.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return fmt.Errorf("monitor already started")
	}

	m.conn = &netlink.UEventConn{}
	if err := m.conn.Connect(netlink.UdevEvent); err != nil {
		m.conn = nil
		return fmt.Errorf("failed to connect to netlink: %w", err)
	}

	if err := setSocketBufferSize(m.conn.Fd, netlinkBufferSize); err != nil {
		log.Warn().Err(err).Int("size", netlinkBufferSize).Msg("Failed to set netlink buffer size")
	} else {
		log.Debug().Int("size", netlinkBufferSize).Msg("Netlink socket buffer size configured")
	}

	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.quit = m.conn.Monitor(queue, errs, m.createMatcher())
	m.stopped = false

	go m.processEvents(queue, errs)

	log.Info().Msg("udev monitor started")
	return nil
}

// Stop stops the monitor and releases resources.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil || m.stopped {
		return nil
	}

	m.stopped = true

	select {
	case m.quit <- struct{}{}:
	default:
	}

	if err := m.conn.Close(); err != nil {
		return fmt.Errorf("failed to close netlink connection: %w", err)
	}

	m.conn = nil
	log.Info().Msg("udev monitor stopped")
	return nil
}

// createMatcher accepts Studio Display add/remove on USB, DRM connector
// changes and backlight add/remove.
func (m *Monitor) createMatcher() *netlink.RuleDefinitions {
	rules := &netlink.RuleDefinitions{}

	addAction := "add"
	removeAction := "remove"
	changeAction := "change"

	// PRODUCT is "vendor/product/bcdDevice"; anchored so "5ac/11149" does not match.
	productPattern := fmt.Sprintf("^%s/%s/[^/]+$", AppleVendorIDPattern, StudioDisplayProductID)

	for _, action := range []*string{&addAction, &removeAction} {
		rules.AddRule(netlink.RuleDefinition{
			Action: action,
			Env: map[string]string{
				"SUBSYSTEM": "^usb$",
				"PRODUCT":   productPattern,
			},
		})
	}

	rules.AddRule(netlink.RuleDefinition{
		Action: &changeAction,
		Env: map[string]string{
			"SUBSYSTEM": "^drm$",
			"HOTPLUG":   "^1$",
		},
	})

	for _, action := range []*string{&addAction, &removeAction} {
		rules.AddRule(netlink.RuleDefinition{
			Action: action,
			Env: map[string]string{
				"SUBSYSTEM": "^backlight$",
			},
		})
	}

	return rules
}

func (m *Monitor) processEvents(queue chan netlink.UEvent, errs chan error) {
	for {
		select {
		case event, ok := <-queue:
			if !ok {
				return
			}
			m.handleEvent(event)
		case err, ok := <-errs:
			if !ok {
				return
			}
			m.mu.Lock()
			stopped := m.stopped
			recoveryHandler := m.recoveryHandler
			m.mu.Unlock()
			if stopped {
				return
			}

			// Events may have been dropped, so re-enumerate.
			if isBufferOverflowError(err) {
				log.Warn().Msg("Netlink buffer overflow detected, triggering recovery refresh")
				if recoveryHandler != nil {
					go recoveryHandler()
				}
				continue
			}

			log.Error().Err(err).Msg("udev monitor error")
		}
	}
}

// setSocketBufferSize tries SO_RCVBUFFORCE (needs CAP_NET_ADMIN) and falls
// back to SO_RCVBUF, which the kernel caps at net.core.rmem_max.
func setSocketBufferSize(fd int, size int) error {
	err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUFFORCE, size)
	if err == nil {
		return nil
	}
	return syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, size)
}

// isBufferOverflowError reports whether err is a netlink ENOBUFS.
func isBufferOverflowError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ENOBUFS) {
		return true
	}
	// go-udev sometimes flattens the errno into the message.
	return strings.Contains(strings.ToLower(err.Error()), "no buffer space available")
}

// shouldDebounceRemove reports whether a REMOVE for key was already seen
// within removeDebounceWindow, and records this one.
func (m *Monitor) shouldDebounceRemove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for k, t := range m.lastRemoveTime {
		if now.Sub(t) > staleRemoveAge {
			delete(m.lastRemoveTime, k)
		}
	}

	last, seen := m.lastRemoveTime[key]
	m.lastRemoveTime[key] = now
	return seen && now.Sub(last) < removeDebounceWindow
}

func classify(uevent netlink.UEvent) (Source, EventType, bool) {
	var source Source
	switch uevent.Env["SUBSYSTEM"] {
	case "drm":
		source = SourceDRM
	case "backlight":
		source = SourceBacklight
	default:
		// REMOVE events may arrive without SUBSYSTEM once the device is gone;
		// the matcher only lets Studio Display USB events through otherwise.
		source = SourceUSB
	}

	switch uevent.Action {
	case netlink.ADD:
		return source, EventAdd, true
	case netlink.REMOVE:
		return source, EventRemove, true
	case netlink.CHANGE:
		return source, EventChange, source == SourceDRM
	default:
		return source, 0, false
	}
}

// handleEvent processes a single udev event.
func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	source, eventType, ok := classify(uevent)
	if !ok {
		return
	}

	// A Studio Display adds a usb_device plus one usb_interface per function;
	// only the device counts. REMOVE may lack DEVTYPE, so it is not checked there.
	if source == SourceUSB && eventType == EventAdd && uevent.Env["DEVTYPE"] != "usb_device" {
		return
	}

	if eventType == EventRemove {
		key := uevent.Env["PRODUCT"]
		if key == "" {
			key = uevent.KObj
		}
		if m.shouldDebounceRemove(string(source) + ":" + key) {
			log.Debug().Str("key", key).Msg("Ignoring duplicate remove event")
			return
		}
	}

	log.Info().
		Str("source", string(source)).
		Str("action", eventType.String()).
		Str("devpath", uevent.KObj).
		Str("product", uevent.Env["PRODUCT"]).
		Msg("Display hot-plug event")

	if m.handler != nil {
		m.handler(Event{Type: eventType, Source: source})
	}
}
