package binder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rhino1998/callbind/pkg/binder/kinds"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
)

type ParameterMode int

const (
	In ParameterMode = iota
	Ref
	Out
)

func (m ParameterMode) String() string {
	switch m {
	case Ref:
		return "ref"
	case Out:
		return "out"
	default:
		return "in"
	}
}

// Parameter is a declared parameter of a method. For ref and out parameters
// Type is the referenced element type.
type Parameter struct {
	Name string
	Type types.Type
	Mode ParameterMode

	ParamArray      bool
	ParamDictionary bool
	Hidden          bool

	ProhibitNull      bool
	ProhibitNullItems bool

	HasDefault bool
	Default    any
}

func (p *Parameter) IsByRef() bool {
	return p.Mode == Ref || p.Mode == Out
}

func (p *Parameter) flags() ParameterFlags {
	var flags ParameterFlags
	if p.ProhibitNull {
		flags |= ProhibitNull
	}
	if p.ProhibitNullItems {
		flags |= ProhibitNullItems
	}
	if p.ParamArray {
		flags |= IsParamArray
	}
	if p.ParamDictionary {
		flags |= IsParamDictionary
	}
	if p.Hidden {
		flags |= IsHidden
	}

	return flags
}

func (p *Parameter) String() string {
	var sb strings.Builder
	switch {
	case p.ParamArray:
		sb.WriteString("params ")
	case p.ParamDictionary:
		sb.WriteString("**")
	case p.IsByRef():
		sb.WriteString(p.Mode.String())
		sb.WriteString(" ")
	}

	sb.WriteString(p.Type.String())
	if p.Name != "" {
		sb.WriteString(" ")
		sb.WriteString(p.Name)
	}
	if p.HasDefault {
		fmt.Fprintf(&sb, " = %s", object.Inspect(p.Default))
	}

	return sb.String()
}

// Invocation is what a method body receives. Args has one entry per declared
// parameter; ref and out parameters receive an *object.Ref.
type Invocation struct {
	Method *Method
	Args   []any
}

func (inv *Invocation) Ref(i int) *object.Ref {
	ref, ok := inv.Args[i].(*object.Ref)
	if !ok {
		panic(fmt.Sprintf("bug: parameter %d of %s is not by-ref", i, inv.Method))
	}

	return ref
}

type Implementation interface {
	Invoke(inv *Invocation) (any, error)
}

type ImplementationFunc func(inv *Invocation) (any, error)

func (f ImplementationFunc) Invoke(inv *Invocation) (any, error) {
	return f(inv)
}

type Method struct {
	Name          string
	DeclaringType types.Type

	TypeParameters []*types.TypeParameter
	Parameters     []Parameter
	Return         types.Type

	// Constructor methods return a new instance of DeclaringType; keyword
	// arguments that match no parameter are assigned to its members.
	Constructor bool

	Body Implementation

	definition    *Method
	typeArguments []types.Type
}

func (m *Method) ReturnType() types.Type {
	if m.Constructor && m.DeclaringType != nil {
		return m.DeclaringType
	}

	if m.Return == nil {
		return types.Void
	}

	return m.Return
}

// IsGenericDefinition reports whether the method still has unbound type parameters.
func (m *Method) IsGenericDefinition() bool {
	return len(m.TypeParameters) > 0 && m.typeArguments == nil
}

func (m *Method) IsGeneric() bool {
	return len(m.TypeParameters) > 0
}

func (m *Method) TypeArguments() []types.Type {
	return m.typeArguments
}

func (m *Method) Definition() *Method {
	if m.definition == nil {
		return m
	}

	return m.definition
}

func (m *Method) bindings() map[*types.TypeParameter]types.Type {
	if m.typeArguments == nil {
		return nil
	}

	b := make(map[*types.TypeParameter]types.Type, len(m.TypeParameters))
	for i, tp := range m.TypeParameters {
		b[tp] = m.typeArguments[i]
	}

	return b
}

// MakeGeneric closes a generic method definition over type arguments.
func (m *Method) MakeGeneric(args []types.Type) (*Method, error) {
	if !m.IsGenericDefinition() {
		return nil, fmt.Errorf("%s is not a generic method definition", m)
	}

	if len(args) != len(m.TypeParameters) {
		return nil, fmt.Errorf("%s expects %d type arguments, got %d", m, len(m.TypeParameters), len(args))
	}

	closed := *m
	closed.definition = m
	closed.typeArguments = slices.Clone(args)

	b := closed.bindings()
	closed.Parameters = make([]Parameter, len(m.Parameters))
	for i, p := range m.Parameters {
		p.Type = types.Substitute(p.Type, b)
		closed.Parameters[i] = p
	}
	if m.Return != nil {
		closed.Return = types.Substitute(m.Return, b)
	}

	return &closed, nil
}

func (m *Method) validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: method has no name", ErrInvalidSignature)
	}

	if m.Constructor {
		if m.DeclaringType == nil || m.DeclaringType.Kind() != kinds.Class {
			return fmt.Errorf("%w: constructor %s must declare a class", ErrInvalidSignature, m.Name)
		}
	}

	seenParams, seenDict := false, false
	names := make(map[string]struct{})
	for i := range m.Parameters {
		p := &m.Parameters[i]
		if p.Type == nil {
			return fmt.Errorf("%w: %s parameter %d has no type", ErrInvalidSignature, m.Name, i)
		}

		if p.Name != "" {
			if _, ok := names[p.Name]; ok {
				return fmt.Errorf("%w: %s declares parameter %s twice", ErrInvalidSignature, m.Name, p.Name)
			}
			names[p.Name] = struct{}{}
		}

		if seenDict {
			return fmt.Errorf("%w: %s parameter %s follows the params dictionary", ErrInvalidSignature, m.Name, p)
		}

		switch {
		case p.ParamArray && p.ParamDictionary:
			return fmt.Errorf("%w: %s parameter %s is both params array and dictionary", ErrInvalidSignature, m.Name, p)
		case p.ParamArray:
			if p.Type.Kind() != kinds.Array {
				return fmt.Errorf("%w: %s params parameter %s must be an array", ErrInvalidSignature, m.Name, p)
			}
			if p.IsByRef() || p.HasDefault {
				return fmt.Errorf("%w: %s params parameter %s cannot be by-ref or defaulted", ErrInvalidSignature, m.Name, p)
			}
			seenParams = true
		case p.ParamDictionary:
			if p.IsByRef() || p.HasDefault {
				return fmt.Errorf("%w: %s params dictionary %s cannot be by-ref or defaulted", ErrInvalidSignature, m.Name, p)
			}
			seenDict = true
		case seenParams:
			return fmt.Errorf("%w: %s parameter %s follows the params array", ErrInvalidSignature, m.Name, p)
		}

		if p.Mode == Out && p.HasDefault {
			return fmt.Errorf("%w: %s out parameter %s cannot be defaulted", ErrInvalidSignature, m.Name, p)
		}
	}

	return nil
}

func (m *Method) Call(args []any) (any, error) {
	if m.Body == nil {
		return nil, fmt.Errorf("%s has no implementation", m)
	}

	return m.Body.Invoke(&Invocation{Method: m, Args: args})
}

func (m *Method) String() string {
	var sb strings.Builder
	if m.DeclaringType != nil {
		sb.WriteString(m.DeclaringType.String())
		sb.WriteString("::")
	}
	sb.WriteString(m.Name)

	switch {
	case m.typeArguments != nil:
		fmt.Fprintf(&sb, "<%s>", joinTypes(m.typeArguments))
	case len(m.TypeParameters) > 0:
		names := make([]string, len(m.TypeParameters))
		for i, tp := range m.TypeParameters {
			names[i] = tp.Name()
		}
		fmt.Fprintf(&sb, "<%s>", strings.Join(names, ", "))
	}

	params := make([]string, len(m.Parameters))
	for i := range m.Parameters {
		params[i] = m.Parameters[i].String()
	}
	fmt.Fprintf(&sb, "(%s)", strings.Join(params, ", "))

	if ret := m.ReturnType(); ret != types.Void {
		fmt.Fprintf(&sb, " %s", ret)
	}

	return sb.String()
}

func joinTypes(ts []types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}

	return strings.Join(parts, ", ")
}
