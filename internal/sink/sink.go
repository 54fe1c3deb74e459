// Package sink publishes generated units.
package sink

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/ecsgen/internal/dispatch"
)

// Sink accepts named units of generated text.
type Sink interface {
	Emit(ctx context.Context, u dispatch.Unit) error
	Remove(ctx context.Context, identity string) error
}

// PassAware sinks are told which pass their next emissions belong to.
type PassAware interface {
	BeginPass(token string, seq int64)
}

// Stats counts sink activity since creation.
type Stats struct {
	Written int   `json:"written"`
	Skipped int   `json:"skipped"`
	Removed int   `json:"removed"`
	Bytes   int64 `json:"bytes"`
}

func validIdentity(identity string) error {
	if identity == "" || identity == "." || identity == ".." ||
		strings.ContainsAny(identity, `/\`) || strings.ContainsRune(identity, 0) {
		return fmt.Errorf("invalid unit identity %q", identity)
	}
	return nil
}

// MemorySink keeps units in memory. It is safe for concurrent use.
type MemorySink struct {
	mu    sync.RWMutex
	units map[string]string
	stats Stats
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{units: make(map[string]string)}
}

func (m *MemorySink) Emit(ctx context.Context, u dispatch.Unit) error {
	if err := validIdentity(u.Identity); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.units[u.Identity]; ok && prev == u.Text {
		m.stats.Skipped++
		return nil
	}
	m.units[u.Identity] = u.Text
	m.stats.Written++
	m.stats.Bytes += int64(len(u.Text))
	return nil
}

func (m *MemorySink) Remove(ctx context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.units[identity]; ok {
		delete(m.units, identity)
		m.stats.Removed++
	}
	return nil
}

// Text returns the current text of a unit.
func (m *MemorySink) Text(identity string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.units[identity]
	return t, ok
}

// Identities returns every held unit identity in sorted order.
func (m *MemorySink) Identities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.units))
	for id := range m.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot copies the held units.
func (m *MemorySink) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.units))
	for k, v := range m.units {
		out[k] = v
	}
	return out
}

// Stats returns activity counters.
func (m *MemorySink) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}
