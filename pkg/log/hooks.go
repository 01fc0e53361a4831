package log

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// NamedHook is a zerolog hook with a stable registration name.
type NamedHook interface {
	zerolog.Hook
	Name() string
}

// HookName returns the registration name for h.
func HookName(h zerolog.Hook) string {
	if n, ok := h.(NamedHook); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// FieldsHook attaches a fixed set of string fields to every event.
type FieldsHook struct {
	fields map[string]string
	keys   []string
}

// NewFieldsHook creates a hook for fields. The map is copied.
func NewFieldsHook(fields map[string]string) *FieldsHook {
	h := &FieldsHook{fields: make(map[string]string, len(fields))}
	for k, v := range fields {
		h.fields[k] = v
	}
	h.keys = sortedKeys(h.fields)
	return h
}

// Name implements NamedHook.
func (h *FieldsHook) Name() string { return "log.fields" }

// Run implements zerolog.Hook.
func (h *FieldsHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	for _, k := range h.keys {
		e.Str(k, h.fields[k])
	}
}

// LevelCounterHook counts events per level on a counter vector labelled by level.
type LevelCounterHook struct {
	counter *prometheus.CounterVec
}

// NewLevelCounterHook creates a hook incrementing counter{level}.
func NewLevelCounterHook(counter *prometheus.CounterVec) *LevelCounterHook {
	return &LevelCounterHook{counter: counter}
}

// Name implements NamedHook.
func (h *LevelCounterHook) Name() string { return "log.level_counter" }

// Run implements zerolog.Hook.
func (h *LevelCounterHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	h.counter.WithLabelValues(level.String()).Inc()
}
