// Package hub provides a process-wide component registry.
//
// Components are keyed by (dimension, name). A dimension groups components
// of the same kind: singletons such as the active configuration and logger,
// ordinary components, and event handlers.
//
// # Usage
//
//	h := hub.New()
//	err := h.Register("foundation.config", cfg, hub.DimensionSingleton,
//	    map[string]string{"source": "env"}, true)
//
//	v, ok := h.Get("foundation.config", hub.DimensionSingleton)
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package hub

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// Well-known dimensions.
const (
	DimensionSingleton    = "singleton"
	DimensionComponent    = "component"
	DimensionEventHandler = "event_handler"
)

var (
	// ErrAlreadyRegistered is returned when registering an existing key without replace.
	ErrAlreadyRegistered = errors.New("hub: already registered")

	// ErrInvalidName is returned for an empty name or dimension.
	ErrInvalidName = errors.New("hub: name and dimension are required")
)

// Registry is the registration surface consumed by the initialization coordinator
// and the logger factory.
type Registry interface {
	Register(name string, value any, dimension string, metadata map[string]string, replace bool) error
	Get(name, dimension string) (any, bool)
	Has(name, dimension string) bool
}

// Entry is a registered component.
type Entry struct {
	Name         string
	Dimension    string
	Value        any
	Metadata     map[string]string
	RegisteredAt time.Time
}

type key struct {
	dimension string
	name      string
}

// Hub is the default Registry implementation.
type Hub struct {
	mu      sync.RWMutex
	entries map[key]Entry
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{entries: make(map[key]Entry)}
}

var (
	defaultMu  sync.Mutex
	defaultHub *Hub
)

// Default returns the process-wide hub, creating it on first use.
func Default() *Hub {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultHub == nil {
		defaultHub = New()
	}
	return defaultHub
}

// ResetDefaultForTesting discards the process-wide hub.
func ResetDefaultForTesting() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultHub = nil
}

// Register stores value under (dimension, name).
// If the key exists and replace is false, ErrAlreadyRegistered is returned.
func (h *Hub) Register(name string, value any, dimension string, metadata map[string]string, replace bool) error {
	if name == "" || dimension == "" {
		return ErrInvalidName
	}

	k := key{dimension: dimension, name: name}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.entries[k]; exists && !replace {
		return fmt.Errorf("%w: %s/%s", ErrAlreadyRegistered, dimension, name)
	}

	h.entries[k] = Entry{
		Name:         name,
		Dimension:    dimension,
		Value:        value,
		Metadata:     maps.Clone(metadata),
		RegisteredAt: time.Now(),
	}
	return nil
}

// Get returns the value registered under (dimension, name).
func (h *Hub) Get(name, dimension string) (any, bool) {
	e, ok := h.Entry(name, dimension)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Entry returns the full entry registered under (dimension, name).
func (h *Hub) Entry(name, dimension string) (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.entries[key{dimension: dimension, name: name}]
	if !ok {
		return Entry{}, false
	}
	e.Metadata = maps.Clone(e.Metadata)
	return e, true
}

// Has reports whether (dimension, name) is registered.
func (h *Hub) Has(name, dimension string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.entries[key{dimension: dimension, name: name}]
	return ok
}

// Unregister removes (dimension, name). It reports whether an entry was removed.
func (h *Hub) Unregister(name, dimension string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := key{dimension: dimension, name: name}
	if _, ok := h.entries[k]; !ok {
		return false
	}
	delete(h.entries, k)
	return true
}

// List returns the names registered in dimension, sorted.
func (h *Hub) List(dimension string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var names []string
	for k := range h.entries {
		if k.dimension == dimension {
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of entries.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
