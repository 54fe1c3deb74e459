package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/ecsgen/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Declaration shape errors (E101-E109)
	ErrInvalidIdentifier   = "E101" // declaration or member name is not an identifier
	ErrDuplicateName       = "E102" // duplicate declaration, member or method name
	ErrEmptyAttributeName  = "E103" // attribute without a name
	ErrInvalidArgValue     = "E104" // malformed attribute argument
	ErrEmptyMemberType     = "E105" // member without a type
	ErrInvalidKind         = "E106" // kind is not class, struct or interface
	ErrDuplicateArgName    = "E107" // the same named argument twice on one attribute
	ErrPositionalAfterName = "E108" // positional argument after a named one
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var validKinds = map[string]bool{
	"class":     true,
	"struct":    true,
	"interface": true,
}

// Validate checks declarations against shape rules.
// Returns all errors found (does not fail-fast). Validation never decides
// what a declaration means; that is the extractors' job.
func Validate(decls []ir.Declaration) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]string)
	for i, d := range decls {
		field := fmt.Sprintf("declarations[%d]", i)

		if prev, ok := seen[d.FullName()]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate declaration %q (also in %s)", d.FullName(), prev),
				Code:    ErrDuplicateName,
			})
		} else {
			seen[d.FullName()] = d.File
		}

		errs = append(errs, validateDeclaration(field, d)...)
	}
	return errs
}

func validateDeclaration(field string, d ir.Declaration) []ValidationError {
	var errs []ValidationError

	if !identPattern.MatchString(d.Name) {
		errs = append(errs, ValidationError{
			Field:   field + ".name",
			Message: fmt.Sprintf("invalid declaration name %q", d.Name),
			Code:    ErrInvalidIdentifier,
		})
	}
	for _, part := range strings.Split(d.Namespace, ".") {
		if d.Namespace != "" && !identPattern.MatchString(part) {
			errs = append(errs, ValidationError{
				Field:   field + ".namespace",
				Message: fmt.Sprintf("invalid namespace %q", d.Namespace),
				Code:    ErrInvalidIdentifier,
			})
			break
		}
	}
	if !validKinds[d.Kind] {
		errs = append(errs, ValidationError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("invalid kind %q, must be \"class\", \"struct\", or \"interface\"", d.Kind),
			Code:    ErrInvalidKind,
		})
	}

	for i, a := range d.Attributes {
		errs = append(errs, validateAttribute(fmt.Sprintf("%s.attributes[%d]", field, i), a)...)
	}

	members := make(map[string]bool)
	for i, m := range d.Members {
		mf := fmt.Sprintf("%s.members[%d]", field, i)
		if !identPattern.MatchString(m.Name) {
			errs = append(errs, ValidationError{
				Field:   mf + ".name",
				Message: fmt.Sprintf("invalid member name %q", m.Name),
				Code:    ErrInvalidIdentifier,
			})
		}
		if members[m.Name] {
			errs = append(errs, ValidationError{
				Field:   mf + ".name",
				Message: fmt.Sprintf("duplicate member name %q", m.Name),
				Code:    ErrDuplicateName,
			})
		}
		members[m.Name] = true
		if strings.TrimSpace(m.Type) == "" {
			errs = append(errs, ValidationError{
				Field:   mf + ".type",
				Message: fmt.Sprintf("member %q has no type", m.Name),
				Code:    ErrEmptyMemberType,
			})
		}
	}

	methods := make(map[string]bool)
	for i, m := range d.Methods {
		if methods[m.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.methods[%d].name", field, i),
				Message: fmt.Sprintf("duplicate method name %q", m.Name),
				Code:    ErrDuplicateName,
			})
		}
		methods[m.Name] = true
	}

	return errs
}

func validateAttribute(field string, a ir.Attribute) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(a.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".name",
			Message: "attribute name is required",
			Code:    ErrEmptyAttributeName,
		})
	}

	names := make(map[string]bool)
	named := false
	for i, arg := range a.Args {
		af := fmt.Sprintf("%s.args[%d]", field, i)
		if arg.Name == "" && named {
			errs = append(errs, ValidationError{
				Field:   af,
				Message: "positional argument follows a named argument",
				Code:    ErrPositionalAfterName,
			})
		}
		if arg.Name != "" {
			named = true
			if names[arg.Name] {
				errs = append(errs, ValidationError{
					Field:   af + ".name",
					Message: fmt.Sprintf("duplicate argument %q", arg.Name),
					Code:    ErrDuplicateArgName,
				})
			}
			names[arg.Name] = true
		}
		if msg := checkValue(arg.Value); msg != "" {
			errs = append(errs, ValidationError{
				Field:   af,
				Message: msg,
				Code:    ErrInvalidArgValue,
			})
		}
	}
	return errs
}

// checkValue returns a description of what is wrong with v, or "".
func checkValue(v ir.AttrValue) string {
	switch v.Kind {
	case ir.ValueType, ir.ValueEnum:
		if strings.TrimSpace(v.Str) == "" {
			return fmt.Sprintf("empty %s reference", v.Kind)
		}
	case ir.ValueList:
		for i, item := range v.List {
			if item.Kind == ir.ValueList {
				return fmt.Sprintf("list[%d]: nested lists are not allowed", i)
			}
			if msg := checkValue(item); msg != "" {
				return fmt.Sprintf("list[%d]: %s", i, msg)
			}
		}
	case ir.ValueBool, ir.ValueInt, ir.ValueString:
	default:
		return fmt.Sprintf("unknown value kind %d", int(v.Kind))
	}
	return ""
}
