package ir

import (
	"slices"
	"sort"
)

// IdentitySet is an immutable set of type identities, sorted by FullName.
// The zero value is the empty set.
type IdentitySet struct {
	items []TypeIdentity
}

// NewIdentitySet builds a set from the given identities.
func NewIdentitySet(ids ...TypeIdentity) IdentitySet {
	var b IdentitySetBuilder
	b.Add(ids...)
	return b.Build()
}

// IdentitySetBuilder accumulates identities before publishing an IdentitySet.
// The zero value is ready to use. A builder must not be shared across
// goroutines.
type IdentitySetBuilder struct {
	m map[string]TypeIdentity
}

// Add inserts identities. Zero identities are ignored. When two identities
// share a FullName the lexically smaller derived view wins, so the result
// does not depend on insertion order.
func (b *IdentitySetBuilder) Add(ids ...TypeIdentity) {
	if b.m == nil {
		b.m = make(map[string]TypeIdentity, len(ids))
	}
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if prev, ok := b.m[id.FullName]; ok && !detailLess(id, prev) {
			continue
		}
		b.m[id.FullName] = id
	}
}

// AddSet inserts every member of s.
func (b *IdentitySetBuilder) AddSet(s IdentitySet) {
	b.Add(s.items...)
}

// Len returns the number of distinct identities added so far.
func (b *IdentitySetBuilder) Len() int {
	return len(b.m)
}

// Build publishes the accumulated identities as an immutable set.
func (b *IdentitySetBuilder) Build() IdentitySet {
	if len(b.m) == 0 {
		return IdentitySet{}
	}
	items := make([]TypeIdentity, 0, len(b.m))
	for _, id := range b.m {
		items = append(items, id)
	}
	SortIdentities(items)
	return IdentitySet{items: items}
}

func detailLess(a, b TypeIdentity) bool {
	if a.Namespace != b.Namespace {
		return a.Namespace < b.Namespace
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Prefix < b.Prefix
}

// Len returns the number of members.
func (s IdentitySet) Len() int {
	return len(s.items)
}

// Empty reports whether the set has no members.
func (s IdentitySet) Empty() bool {
	return len(s.items) == 0
}

// Items returns a copy of the members in FullName order.
func (s IdentitySet) Items() []TypeIdentity {
	return slices.Clone(s.items)
}

// Contains reports whether a member with the same FullName exists.
func (s IdentitySet) Contains(id TypeIdentity) bool {
	return s.ContainsName(id.FullName)
}

// ContainsName reports whether a member with the given FullName exists.
func (s IdentitySet) ContainsName(fullName string) bool {
	i := sort.Search(len(s.items), func(i int) bool { return s.items[i].FullName >= fullName })
	return i < len(s.items) && s.items[i].FullName == fullName
}

// Equal reports set equality. Insertion order never matters.
func (s IdentitySet) Equal(o IdentitySet) bool {
	if len(s.items) != len(o.items) {
		return false
	}
	for i := range s.items {
		if s.items[i].FullName != o.items[i].FullName {
			return false
		}
	}
	return true
}

// Union returns a new set holding the members of both sets.
func (s IdentitySet) Union(o IdentitySet) IdentitySet {
	if o.Empty() {
		return s
	}
	if s.Empty() {
		return o
	}
	var b IdentitySetBuilder
	b.AddSet(s)
	b.AddSet(o)
	return b.Build()
}

// FullNames returns the member names in order.
func (s IdentitySet) FullNames() []string {
	names := make([]string, len(s.items))
	for i, id := range s.items {
		names[i] = id.FullName
	}
	return names
}

// Canonical returns the set as a sorted IRArray of full names.
func (s IdentitySet) Canonical() IRArray {
	return Strings(s.FullNames())
}
