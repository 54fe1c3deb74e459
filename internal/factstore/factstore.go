// Package factstore caches extracted facts per declaration so that passes
// only redo work for declarations whose content changed, and so that
// value-equal facts keep their previous instance.
package factstore

import (
	"sort"
	"sync"

	"github.com/roach88/ecsgen/internal/ir"
)

// Key identifies a declaration across passes.
type Key struct {
	File string
	Name string // full name
}

// Change classifies what Put did to the stored fact.
type Change int

const (
	ChangeUnchanged Change = iota
	ChangeAdded
	ChangeUpdated
	ChangeRemoved
)

func (c Change) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	}
	return "unchanged"
}

type entry struct {
	declHash string
	fact     ir.Fact // nil when the declaration produced no fact
	revision int64   // pass sequence at which fact last changed
}

// Store holds the latest fact per declaration. Each key has one logical
// writer per pass; the mutex only protects the map.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[Key]*entry)}
}

// Cached returns the stored fact when the declaration hash is unchanged.
// ok is false when the declaration must be extracted again. A cached nil
// fact means the declaration produced no fact last time either.
func (s *Store) Cached(key Key, declHash string) (fact ir.Fact, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, found := s.entries[key]
	if !found || e.declHash != declHash {
		return nil, false
	}
	return e.fact, true
}

// Put records the extraction outcome for key. When fact is value-equal to
// the stored fact the stored instance is kept and returned, so downstream
// identity comparisons see no change.
func (s *Store) Put(key Key, declHash string, fact ir.Fact, rev int64) (ir.Fact, Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[key]
	if !found {
		s.entries[key] = &entry{declHash: declHash, fact: fact, revision: rev}
		if fact == nil {
			return nil, ChangeUnchanged
		}
		return fact, ChangeAdded
	}

	e.declHash = declHash
	switch {
	case e.fact == nil && fact == nil:
		return nil, ChangeUnchanged
	case e.fact == nil:
		e.fact, e.revision = fact, rev
		return fact, ChangeAdded
	case fact == nil:
		e.fact, e.revision = nil, rev
		return nil, ChangeRemoved
	case e.fact.EqualFact(fact):
		return e.fact, ChangeUnchanged
	default:
		e.fact, e.revision = fact, rev
		return fact, ChangeUpdated
	}
}

// Revision returns the pass sequence at which key's fact last changed.
func (s *Store) Revision(key Key) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return e.revision, true
}

// Sweep removes every entry of file whose key is not in live and returns
// the removed keys that held a fact.
func (s *Store) Sweep(file string, live map[Key]bool) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []Key
	for k, e := range s.entries {
		if k.File != file || live[k] {
			continue
		}
		if e.fact != nil {
			removed = append(removed, k)
		}
		delete(s.entries, k)
	}
	sortKeys(removed)
	return removed
}

// DropFile removes every entry of file.
func (s *Store) DropFile(file string) []Key {
	return s.Sweep(file, nil)
}

// Files returns the distinct files with entries, sorted.
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var files []string
	for k := range s.entries {
		if !seen[k.File] {
			seen[k.File] = true
			files = append(files, k.File)
		}
	}
	sort.Strings(files)
	return files
}

// Len returns the number of entries, including those without a fact.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot is an immutable view of every stored fact, grouped by category
// and sorted by full name (then file, for duplicate names).
type Snapshot struct {
	Components []*ir.ComponentFact
	Contexts   []*ir.ContextFact
	Systems    []*ir.SystemFact
	Features   []*ir.FeatureFact
	Groups     []*ir.GroupFact
	Listeners  []*ir.ListenerFact
}

// Len returns the total number of facts.
func (s Snapshot) Len() int {
	return len(s.Components) + len(s.Contexts) + len(s.Systems) +
		len(s.Features) + len(s.Groups) + len(s.Listeners)
}

// Snapshot copies the current facts out of the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.entries))
	for k, e := range s.entries {
		if e.fact != nil {
			keys = append(keys, k)
		}
	}
	facts := make(map[Key]ir.Fact, len(keys))
	for _, k := range keys {
		facts[k] = s.entries[k].fact
	}
	s.mu.RUnlock()

	sortKeys(keys)

	var snap Snapshot
	for _, k := range keys {
		switch f := facts[k].(type) {
		case *ir.ComponentFact:
			snap.Components = append(snap.Components, f)
		case *ir.ContextFact:
			snap.Contexts = append(snap.Contexts, f)
		case *ir.SystemFact:
			snap.Systems = append(snap.Systems, f)
		case *ir.FeatureFact:
			snap.Features = append(snap.Features, f)
		case *ir.GroupFact:
			snap.Groups = append(snap.Groups, f)
		case *ir.ListenerFact:
			snap.Listeners = append(snap.Listeners, f)
		}
	}
	return snap
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].File < keys[j].File
	})
}
