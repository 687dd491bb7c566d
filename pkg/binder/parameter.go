package binder

import (
	"fmt"
	"strings"

	"github.com/rhino1998/callbind/pkg/binder/types"
)

type ParameterFlags uint8

const (
	ProhibitNull ParameterFlags = 1 << iota
	ProhibitNullItems
	IsParamArray
	IsParamDictionary
	IsHidden
)

func (f ParameterFlags) Has(flag ParameterFlags) bool {
	return f&flag == flag
}

// Unnamed marks parameters that keyword arguments cannot target.
const Unnamed = "<unnamed>"

// ParameterDescriptor is one logical parameter of a candidate: the type an
// argument in that position must convert to.
type ParameterDescriptor struct {
	Type  types.Type
	Name  string
	Flags ParameterFlags

	// Info is the declared parameter the descriptor was derived from, if any.
	Info *Parameter
}

func NewParameterDescriptor(info *Parameter, typ types.Type, name string, flags ParameterFlags) ParameterDescriptor {
	if flags.Has(IsParamArray) || flags.Has(IsParamDictionary) || name == "" {
		name = Unnamed
	}

	return ParameterDescriptor{
		Type:  typ,
		Name:  name,
		Flags: flags,
		Info:  info,
	}
}

func (p ParameterDescriptor) IsParamArray() bool { return p.Flags.Has(IsParamArray) }

func (p ParameterDescriptor) IsParamDictionary() bool { return p.Flags.Has(IsParamDictionary) }

func (p ParameterDescriptor) IsHidden() bool { return p.Flags.Has(IsHidden) }

func (p ParameterDescriptor) ProhibitsNull() bool { return p.Flags.Has(ProhibitNull) }

// Expand derives the descriptor of one synthesized positional slot of a
// params array. The slot carries the element type.
func (p ParameterDescriptor) Expand() ParameterDescriptor {
	if !p.IsParamArray() {
		panic(fmt.Sprintf("bug: expanding non-params parameter %s", p))
	}

	elem, ok := types.Elem(p.Type)
	if !ok {
		panic(fmt.Sprintf("bug: params parameter %s is not an array", p))
	}

	var flags ParameterFlags
	if p.Flags.Has(ProhibitNullItems) {
		flags |= ProhibitNull
	}
	if p.IsHidden() {
		flags |= IsHidden
	}

	return ParameterDescriptor{
		Type:  elem,
		Name:  Unnamed,
		Flags: flags,
		Info:  p.Info,
	}
}

// Substitute returns the descriptor with its type's type parameters bound.
func (p ParameterDescriptor) Substitute(bindings map[*types.TypeParameter]types.Type) ParameterDescriptor {
	p.Type = types.Substitute(p.Type, bindings)
	return p
}

func (p ParameterDescriptor) String() string {
	var sb strings.Builder
	if p.IsParamArray() {
		sb.WriteString("params ")
	}
	if p.IsParamDictionary() {
		sb.WriteString("**")
	}
	sb.WriteString(p.Type.String())
	if p.Name != Unnamed {
		sb.WriteString(" ")
		sb.WriteString(p.Name)
	}

	return sb.String()
}
