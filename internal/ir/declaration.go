package ir

import "fmt"

// Declaration is the host-supplied shape of one user type: its name, the
// attributes applied to it with constant arguments, its members and any
// method bodies the generators care about.
type Declaration struct {
	File       string      `json:"file"`
	Namespace  string      `json:"namespace,omitempty"`
	Name       string      `json:"name"`
	Kind       string      `json:"kind,omitempty"` // "class", "struct", "interface"
	Imports    []string    `json:"imports,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Members    []Member    `json:"members,omitempty"`
	Methods    []Method    `json:"methods,omitempty"`
}

// FullName returns the namespace-qualified declaration name.
func (d Declaration) FullName() string {
	if d.Namespace == "" {
		return d.Name
	}
	return d.Namespace + "." + d.Name
}

// Identity returns the declaration's type identity with the given category
// suffix stripped into Prefix.
func (d Declaration) Identity(suffix string) TypeIdentity {
	return NewTypeIdentity(d.Namespace, d.Name, suffix)
}

// Method returns the body of the named method.
func (d Declaration) Method(name string) (string, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m.Body, true
		}
	}
	return "", false
}

// Canonical returns the declaration's canonical form. File is excluded so a
// moved declaration with unchanged content keeps its hash.
func (d Declaration) Canonical() IRObject {
	attrs := make(IRArray, len(d.Attributes))
	for i, a := range d.Attributes {
		attrs[i] = a.Canonical()
	}
	members := make(IRArray, len(d.Members))
	for i, m := range d.Members {
		members[i] = m.Canonical()
	}
	methods := make(IRArray, len(d.Methods))
	for i, m := range d.Methods {
		methods[i] = IRObject{"name": IRString(m.Name), "body": IRString(m.Body)}
	}
	return IRObject{
		"namespace":  IRString(d.Namespace),
		"name":       IRString(d.Name),
		"kind":       IRString(d.Kind),
		"imports":    Strings(d.Imports),
		"attributes": attrs,
		"members":    members,
		"methods":    methods,
	}
}

// Attribute is one attribute application. Type is the resolved full name of
// the attribute type when the host already resolved it; empty otherwise.
type Attribute struct {
	Name string    `json:"name"`
	Type string    `json:"type,omitempty"`
	Args []AttrArg `json:"args,omitempty"`
}

// Arg returns the named argument, or the positional argument at index pos
// when no named argument matches. pos < 0 disables the positional lookup.
func (a Attribute) Arg(name string, pos int) (AttrValue, bool) {
	for _, arg := range a.Args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	if pos < 0 {
		return AttrValue{}, false
	}
	i := 0
	for _, arg := range a.Args {
		if arg.Name != "" {
			continue
		}
		if i == pos {
			return arg.Value, true
		}
		i++
	}
	return AttrValue{}, false
}

func (a Attribute) Canonical() IRObject {
	args := make(IRArray, len(a.Args))
	for i, arg := range a.Args {
		args[i] = IRObject{"name": IRString(arg.Name), "value": arg.Value.Canonical()}
	}
	return IRObject{
		"name": IRString(a.Name),
		"type": IRString(a.Type),
		"args": args,
	}
}

// AttrArg is a positional (empty Name) or named attribute argument.
type AttrArg struct {
	Name  string    `json:"name,omitempty"`
	Value AttrValue `json:"value"`
}

// ValueKind tags the constant carried by an AttrValue.
type ValueKind int

const (
	ValueBool ValueKind = iota + 1
	ValueInt
	ValueString
	ValueEnum // qualified enum member, e.g. "EventTarget.Self"
	ValueType // type reference (typeof), full or simple name
	ValueList
)

func (k ValueKind) String() string {
	switch k {
	case ValueBool:
		return "bool"
	case ValueInt:
		return "int"
	case ValueString:
		return "string"
	case ValueEnum:
		return "enum"
	case ValueType:
		return "type"
	case ValueList:
		return "list"
	}
	return fmt.Sprintf("value(%d)", int(k))
}

// AttrValue is a typed attribute constant.
type AttrValue struct {
	Kind ValueKind   `json:"kind"`
	Bool bool        `json:"bool,omitempty"`
	Int  int64       `json:"int,omitempty"`
	Str  string      `json:"str,omitempty"` // string, enum member or type name
	List []AttrValue `json:"list,omitempty"`
}

func BoolValue(b bool) AttrValue     { return AttrValue{Kind: ValueBool, Bool: b} }
func IntValue(i int64) AttrValue     { return AttrValue{Kind: ValueInt, Int: i} }
func StringValue(s string) AttrValue { return AttrValue{Kind: ValueString, Str: s} }
func EnumValue(s string) AttrValue   { return AttrValue{Kind: ValueEnum, Str: s} }
func TypeValue(s string) AttrValue   { return AttrValue{Kind: ValueType, Str: s} }

func ListValue(items ...AttrValue) AttrValue {
	return AttrValue{Kind: ValueList, List: items}
}

// TypeNames flattens a type reference or a list of type references.
func (v AttrValue) TypeNames() ([]string, error) {
	switch v.Kind {
	case ValueType:
		return []string{v.Str}, nil
	case ValueList:
		names := make([]string, 0, len(v.List))
		for i, item := range v.List {
			if item.Kind != ValueType {
				return nil, fmt.Errorf("list[%d]: expected type reference, got %s", i, item.Kind)
			}
			names = append(names, item.Str)
		}
		return names, nil
	}
	return nil, fmt.Errorf("expected type reference, got %s", v.Kind)
}

func (v AttrValue) Canonical() IRValue {
	obj := IRObject{"kind": IRString(v.Kind.String())}
	switch v.Kind {
	case ValueBool:
		obj["value"] = IRBool(v.Bool)
	case ValueInt:
		obj["value"] = IRInt(v.Int)
	case ValueList:
		items := make(IRArray, len(v.List))
		for i, item := range v.List {
			items[i] = item.Canonical()
		}
		obj["value"] = items
	default:
		obj["value"] = IRString(v.Str)
	}
	return obj
}

// Member is a field or property of a declaration.
type Member struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Public      bool   `json:"public"`
	Static      bool   `json:"static,omitempty"`
	Abstract    bool   `json:"abstract,omitempty"`
	Synthesized bool   `json:"synthesized,omitempty"`
}

// IsField reports whether the member becomes a generated component field.
func (m Member) IsField() bool {
	return m.Public && !m.Static && !m.Abstract && !m.Synthesized
}

func (m Member) Canonical() IRObject {
	return IRObject{
		"name":        IRString(m.Name),
		"type":        IRString(m.Type),
		"public":      IRBool(m.Public),
		"static":      IRBool(m.Static),
		"abstract":    IRBool(m.Abstract),
		"synthesized": IRBool(m.Synthesized),
	}
}

// Method carries a method body verbatim.
type Method struct {
	Name string `json:"name"`
	Body string `json:"body"`
}
