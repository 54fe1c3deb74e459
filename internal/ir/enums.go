package ir

import (
	"fmt"
	"strings"
)

// Category identifies which kind of declaration a fact came from.
type Category int

const (
	CategoryComponent Category = iota + 1
	CategoryContext
	CategorySystem
	CategoryFeature
	CategoryGroup
	CategoryListener
)

var categoryNames = map[Category]string{
	CategoryComponent: "component",
	CategoryContext:   "context",
	CategorySystem:    "system",
	CategoryFeature:   "feature",
	CategoryGroup:     "group",
	CategoryListener:  "listener",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Suffix is the conventional type-name suffix stripped to form a prefix.
func (c Category) Suffix() string {
	switch c {
	case CategoryComponent:
		return "Component"
	case CategoryContext:
		return "Context"
	case CategorySystem:
		return "System"
	case CategoryFeature:
		return "Feature"
	case CategoryGroup:
		return "Group"
	case CategoryListener:
		return "Listener"
	}
	return ""
}

// Categories lists every category in precedence order.
var Categories = []Category{
	CategoryComponent,
	CategoryContext,
	CategorySystem,
	CategoryFeature,
	CategoryGroup,
	CategoryListener,
}

// EventTarget selects which entities an event listener observes.
type EventTarget int

const (
	TargetAny EventTarget = iota
	TargetSelf
)

func (t EventTarget) String() string {
	if t == TargetSelf {
		return "Self"
	}
	return "Any"
}

// ParseEventTarget accepts "Any", "Self", or an enum-qualified form such as
// "EventTarget.Self".
func ParseEventTarget(s string) (EventTarget, error) {
	switch enumMember(s) {
	case "Any":
		return TargetAny, nil
	case "Self":
		return TargetSelf, nil
	}
	return 0, fmt.Errorf("unknown event target %q", s)
}

// EventKind is a bit set of entity events. Components may declare Added,
// Removed or their union; system triggers may combine any of the four.
type EventKind uint8

const (
	EventAdded EventKind = 1 << iota
	EventRemoved
	EventChanged
	EventSet

	EventAddedOrRemoved = EventAdded | EventRemoved
)

var eventKindNames = []struct {
	kind EventKind
	name string
}{
	{EventAdded, "Added"},
	{EventRemoved, "Removed"},
	{EventChanged, "Changed"},
	{EventSet, "Set"},
}

// Has reports whether every bit of k2 is set in k.
func (k EventKind) Has(k2 EventKind) bool {
	return k2 != 0 && k&k2 == k2
}

func (k EventKind) String() string {
	if k == EventAddedOrRemoved {
		return "AddedOrRemoved"
	}
	var parts []string
	for _, n := range eventKindNames {
		if k&n.kind != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "|")
}

// ParseEventKind accepts a member name, an enum-qualified name, or a
// "|"-separated union ("Added|Removed").
func ParseEventKind(s string) (EventKind, error) {
	var kind EventKind
	for _, part := range strings.Split(s, "|") {
		switch enumMember(strings.TrimSpace(part)) {
		case "Added":
			kind |= EventAdded
		case "Removed":
			kind |= EventRemoved
		case "AddedOrRemoved":
			kind |= EventAddedOrRemoved
		case "Changed":
			kind |= EventChanged
		case "Set":
			kind |= EventSet
		default:
			return 0, fmt.Errorf("unknown event kind %q", s)
		}
	}
	return kind, nil
}

// Hook names one of the generated entity callbacks.
type Hook int

const (
	HookAdded Hook = iota
	HookChanged
	HookSet
	HookRemoved
)

// Hooks lists every hook in generation order.
var Hooks = []Hook{HookAdded, HookChanged, HookSet, HookRemoved}

func (h Hook) String() string {
	switch h {
	case HookAdded:
		return "OnAdded"
	case HookChanged:
		return "OnChanged"
	case HookSet:
		return "OnSet"
	case HookRemoved:
		return "OnRemoved"
	}
	return fmt.Sprintf("hook(%d)", int(h))
}

// Event is the event bit a hook corresponds to.
func (h Hook) Event() EventKind {
	switch h {
	case HookAdded:
		return EventAdded
	case HookChanged:
		return EventChanged
	case HookSet:
		return EventSet
	case HookRemoved:
		return EventRemoved
	}
	return 0
}

// HooksFor expands an event bit set into the hooks it wires into.
func HooksFor(kind EventKind) []Hook {
	var hooks []Hook
	for _, h := range Hooks {
		if kind&h.Event() != 0 {
			hooks = append(hooks, h)
		}
	}
	return hooks
}

// IndexKind selects the generated lookup structure for a component.
type IndexKind int

const (
	IndexNone IndexKind = iota
	IndexArray
	IndexDictionary
)

func (k IndexKind) String() string {
	switch k {
	case IndexArray:
		return "Array"
	case IndexDictionary:
		return "Dictionary"
	}
	return "None"
}

// ParseIndexKind accepts "None", "Array", "Dictionary" or enum-qualified forms.
func ParseIndexKind(s string) (IndexKind, error) {
	switch enumMember(s) {
	case "None":
		return IndexNone, nil
	case "Array":
		return IndexArray, nil
	case "Dictionary":
		return IndexDictionary, nil
	}
	return 0, fmt.Errorf("unknown index kind %q", s)
}

// CleanupMode selects how cleanup components are purged.
type CleanupMode int

const (
	CleanupNone CleanupMode = iota
	CleanupRemoveComponent
	CleanupDestroyEntity
)

func (m CleanupMode) String() string {
	switch m {
	case CleanupRemoveComponent:
		return "RemoveComponent"
	case CleanupDestroyEntity:
		return "DestroyEntity"
	}
	return "None"
}

// ParseCleanupMode accepts "RemoveComponent", "DestroyEntity" or
// enum-qualified forms.
func ParseCleanupMode(s string) (CleanupMode, error) {
	switch enumMember(s) {
	case "RemoveComponent":
		return CleanupRemoveComponent, nil
	case "DestroyEntity":
		return CleanupDestroyEntity, nil
	}
	return 0, fmt.Errorf("unknown cleanup mode %q", s)
}

// ExecutionPhase selects the frame stage a system phase runs in.
type ExecutionPhase int

const (
	PhaseUpdate ExecutionPhase = iota
	PhaseFixedUpdate
	PhaseLateUpdate
)

func (p ExecutionPhase) String() string {
	switch p {
	case PhaseFixedUpdate:
		return "FixedUpdate"
	case PhaseLateUpdate:
		return "LateUpdate"
	}
	return "Update"
}

// ParseExecutionPhase accepts "Update", "FixedUpdate", "LateUpdate" or
// enum-qualified forms.
func ParseExecutionPhase(s string) (ExecutionPhase, error) {
	switch enumMember(s) {
	case "Update":
		return PhaseUpdate, nil
	case "FixedUpdate":
		return PhaseFixedUpdate, nil
	case "LateUpdate":
		return PhaseLateUpdate, nil
	}
	return 0, fmt.Errorf("unknown execution phase %q", s)
}

// enumMember strips an enum type qualifier: "EventTarget.Self" -> "Self".
func enumMember(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
