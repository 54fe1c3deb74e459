package ir

import (
	"sort"
	"strings"
)

// TypeIdentity names a declared type. Equality and ordering use FullName
// only; the other fields are derived views kept for templates.
type TypeIdentity struct {
	Namespace string `json:"namespace,omitempty"`
	FullName  string `json:"full_name"`
	Name      string `json:"name"`
	Prefix    string `json:"prefix,omitempty"` // Name with a category suffix stripped
}

// NewTypeIdentity builds an identity from a namespace and a short name.
// The first suffix that Name ends with (and is not equal to) is stripped to
// form Prefix.
func NewTypeIdentity(namespace, name string, suffixes ...string) TypeIdentity {
	full := name
	if namespace != "" {
		full = namespace + "." + name
	}
	return TypeIdentity{
		Namespace: namespace,
		FullName:  full,
		Name:      name,
		Prefix:    stripSuffix(name, suffixes),
	}
}

// ParseTypeIdentity splits a fully-qualified name on its last dot.
func ParseTypeIdentity(fullName string, suffixes ...string) TypeIdentity {
	ns, name := "", fullName
	if i := strings.LastIndexByte(fullName, '.'); i >= 0 {
		ns, name = fullName[:i], fullName[i+1:]
	}
	return NewTypeIdentity(ns, name, suffixes...)
}

func stripSuffix(name string, suffixes []string) string {
	for _, s := range suffixes {
		if s != "" && len(name) > len(s) && strings.HasSuffix(name, s) {
			return strings.TrimSuffix(name, s)
		}
	}
	return ""
}

// Equal reports whether two identities name the same type.
func (t TypeIdentity) Equal(o TypeIdentity) bool {
	return t.FullName == o.FullName
}

// Compare orders identities by FullName (ordinal).
func (t TypeIdentity) Compare(o TypeIdentity) int {
	return strings.Compare(t.FullName, o.FullName)
}

// IsZero reports whether the identity is unset.
func (t TypeIdentity) IsZero() bool {
	return t.FullName == ""
}

// Short returns the suffix-stripped name when one was derived, else Name.
func (t TypeIdentity) Short() string {
	if t.Prefix != "" {
		return t.Prefix
	}
	return t.Name
}

func (t TypeIdentity) String() string {
	return t.FullName
}

// SortIdentities sorts identities in place by FullName.
func SortIdentities(ids []TypeIdentity) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].FullName < ids[j].FullName })
}
