package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentitySetOrderIndependent(t *testing.T) {
	a := NewTypeIdentity("Game", "A", "")
	b := NewTypeIdentity("Game", "B", "")
	c := NewTypeIdentity("Input", "C", "")

	s1 := NewIdentitySet(c, a, b)
	s2 := NewIdentitySet(b, c, a, a)

	assert.True(t, s1.Equal(s2))
	assert.Equal(t, []string{"Game.A", "Game.B", "Input.C"}, s1.FullNames())
	assert.Equal(t, 3, s2.Len())
}

func TestIdentitySetIgnoresZero(t *testing.T) {
	s := NewIdentitySet(TypeIdentity{}, NewTypeIdentity("", "A", ""))
	assert.Equal(t, []string{"A"}, s.FullNames())
}

func TestIdentitySetContains(t *testing.T) {
	s := NewIdentitySet(
		NewTypeIdentity("Game", "A", ""),
		NewTypeIdentity("Game", "C", ""),
	)

	assert.True(t, s.ContainsName("Game.A"))
	assert.True(t, s.Contains(ParseTypeIdentity("Game.C")))
	assert.False(t, s.ContainsName("Game.B"))
	assert.False(t, IdentitySet{}.ContainsName("Game.A"))
}

func TestIdentitySetUnion(t *testing.T) {
	s1 := NewIdentitySet(NewTypeIdentity("", "A", ""), NewTypeIdentity("", "B", ""))
	s2 := NewIdentitySet(NewTypeIdentity("", "B", ""), NewTypeIdentity("", "C", ""))

	u := s1.Union(s2)
	assert.Equal(t, []string{"A", "B", "C"}, u.FullNames())
	assert.Equal(t, []string{"A", "B"}, s1.FullNames(), "union must not mutate its receiver")
	assert.True(t, s1.Union(IdentitySet{}).Equal(s1))
}

func TestIdentitySetItemsIsCopy(t *testing.T) {
	s := NewIdentitySet(NewTypeIdentity("", "A", ""))
	items := s.Items()
	items[0] = NewTypeIdentity("", "Z", "")

	assert.Equal(t, []string{"A"}, s.FullNames())
}

func TestTypeIdentityPrefix(t *testing.T) {
	tests := []struct {
		full   string
		suffix string
		prefix string
		short  string
	}{
		{"Game.PositionComponent", "Component", "Position", "Position"},
		{"Game.Position", "Component", "", "Position"},
		{"Game.Component", "Component", "", "Component"},
		{"GameContext", "Context", "Game", "Game"},
	}

	for _, tt := range tests {
		t.Run(tt.full, func(t *testing.T) {
			id := ParseTypeIdentity(tt.full, tt.suffix)
			assert.Equal(t, tt.full, id.FullName)
			assert.Equal(t, tt.prefix, id.Prefix)
			assert.Equal(t, tt.short, id.Short())
		})
	}
}
