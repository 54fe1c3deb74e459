package extract

import (
	"fmt"
	"strings"
)

// AttributeNamespace is the namespace of the generator's attribute catalog.
const AttributeNamespace = "Entitas.Generators.Attributes"

// AttrKind is the closed set of attributes the extractors understand.
type AttrKind int

const (
	AttrIgnored AttrKind = iota
	AttrComponent
	AttrContext
	AttrComponents
	AttrSystems
	AttrFeatures
	AttrAddToContext
	AttrUnique
	AttrEvent
	AttrIndex
	AttrCleanup
	AttrInitialize
	AttrExecute
	AttrReactive
	AttrTrigger
	AttrEntityIs
	AttrFeature
	AttrGroup
	AttrAllOf
	AttrAnyOf
	AttrNoneOf
	AttrListener
)

var attrNames = map[AttrKind]string{
	AttrComponent:    "Component",
	AttrContext:      "Context",
	AttrComponents:   "Components",
	AttrSystems:      "Systems",
	AttrFeatures:     "Features",
	AttrAddToContext: "AddToContext",
	AttrUnique:       "Unique",
	AttrEvent:        "Event",
	AttrIndex:        "Index",
	AttrCleanup:      "Cleanup",
	AttrInitialize:   "Initialize",
	AttrExecute:      "Execute",
	AttrReactive:     "Reactive",
	AttrTrigger:      "Trigger",
	AttrEntityIs:     "EntityIs",
	AttrFeature:      "Feature",
	AttrGroup:        "Group",
	AttrAllOf:        "AllOf",
	AttrAnyOf:        "AnyOf",
	AttrNoneOf:       "NoneOf",
	AttrListener:     "Listener",
}

var attrsByName = func() map[string]AttrKind {
	m := make(map[string]AttrKind, len(attrNames))
	for k, n := range attrNames {
		m[n] = k
	}
	return m
}()

func (k AttrKind) String() string {
	if n, ok := attrNames[k]; ok {
		return n
	}
	if k == AttrIgnored {
		return "Ignored"
	}
	return fmt.Sprintf("attr(%d)", int(k))
}

// TypeName is the catalog type the attribute resolves to, e.g.
// "Entitas.Generators.Attributes.ComponentAttribute".
func (k AttrKind) TypeName() string {
	n, ok := attrNames[k]
	if !ok {
		return ""
	}
	return AttributeNamespace + "." + n + "Attribute"
}

// matchesType reports whether a resolved attribute type is this catalog
// attribute. The "Attribute" suffix is optional.
func (k AttrKind) matchesType(fullName string) bool {
	name := k.TypeName()
	return name != "" && (fullName == name || fullName == strings.TrimSuffix(name, "Attribute"))
}

// Classify maps an attribute name as written to its kind by simple name.
// A namespace qualifier and an "Attribute" suffix are ignored. Unknown names
// are AttrIgnored.
func Classify(name string) AttrKind {
	_, simple := splitQualified(name)
	if k, ok := attrsByName[simple]; ok {
		return k
	}
	if k, ok := attrsByName[strings.TrimSuffix(simple, "Attribute")]; ok {
		return k
	}
	return AttrIgnored
}

// splitQualified splits "A.B.Name" into ("A.B", "Name").
func splitQualified(name string) (qualifier, simple string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
