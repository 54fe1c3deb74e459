package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ecsgen/internal/ir"
)

func validDecl() ir.Declaration {
	return ir.Declaration{
		File:      "game.cue",
		Namespace: "Game",
		Name:      "PositionComponent",
		Kind:      "struct",
		Attributes: []ir.Attribute{
			{Name: "Component"},
			{Name: "Event", Args: []ir.AttrArg{
				{Value: ir.EnumValue("EventTarget.Self")},
				{Name: "order", Value: ir.IntValue(1)},
			}},
		},
		Members: []ir.Member{{Name: "x", Type: "float", Public: true}},
	}
}

func TestValidateValid(t *testing.T) {
	errs := Validate([]ir.Declaration{validDecl()})
	assert.Empty(t, errs, "valid declaration should have no errors")
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *ir.Declaration)
		code   string
	}{
		{"bad name", func(d *ir.Declaration) { d.Name = "1Position" }, ErrInvalidIdentifier},
		{"bad namespace", func(d *ir.Declaration) { d.Namespace = "Game..Core" }, ErrInvalidIdentifier},
		{"bad kind", func(d *ir.Declaration) { d.Kind = "record" }, ErrInvalidKind},
		{"empty attribute", func(d *ir.Declaration) { d.Attributes[0].Name = " " }, ErrEmptyAttributeName},
		{"duplicate member", func(d *ir.Declaration) {
			d.Members = append(d.Members, ir.Member{Name: "x", Type: "int", Public: true})
		}, ErrDuplicateName},
		{"member without type", func(d *ir.Declaration) { d.Members[0].Type = "" }, ErrEmptyMemberType},
		{"empty type reference", func(d *ir.Declaration) {
			d.Attributes[0].Args = []ir.AttrArg{{Value: ir.TypeValue("")}}
		}, ErrInvalidArgValue},
		{"nested list", func(d *ir.Declaration) {
			d.Attributes[0].Args = []ir.AttrArg{{Value: ir.ListValue(ir.ListValue())}}
		}, ErrInvalidArgValue},
		{"duplicate named argument", func(d *ir.Declaration) {
			d.Attributes[1].Args = append(d.Attributes[1].Args, ir.AttrArg{Name: "order", Value: ir.IntValue(2)})
		}, ErrDuplicateArgName},
		{"positional after named", func(d *ir.Declaration) {
			d.Attributes[1].Args = append(d.Attributes[1].Args, ir.AttrArg{Value: ir.IntValue(2)})
		}, ErrPositionalAfterName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDecl()
			tt.mutate(&d)

			errs := Validate([]ir.Declaration{d})
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
		})
	}
}

func TestValidateDuplicateDeclarations(t *testing.T) {
	a := validDecl()
	b := validDecl()
	b.File = "other.cue"

	errs := Validate([]ir.Declaration{a, b})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateName, errs[0].Code)
	assert.Contains(t, errs[0].Message, "game.cue")
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "declarations[0].name", Message: "bad", Code: ErrInvalidIdentifier}
	assert.Equal(t, "[E101] declarations[0].name: bad", err.Error())

	err.Line = 3
	assert.Equal(t, "[E101] line 3: declarations[0].name: bad", err.Error())
}
