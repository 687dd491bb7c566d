package types

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rhino1998/callbind/pkg/binder/kinds"
)

// Name is a globally unique rendering of a type, suitable for cache keys.
type Name string

type Type interface {
	Kind() kinds.Kind
	String() string
	GlobalName() Name
}

var (
	Unknown    = Kind(kinds.Unknown)
	Void       = Kind(kinds.Void)
	Null       = Kind(kinds.Null)
	Dynamic    = Kind(kinds.Dynamic)
	Object     = Kind(kinds.Object)
	Bool       = Kind(kinds.Bool)
	Char       = Kind(kinds.Char)
	String     = Kind(kinds.String)
	Symbol     = Kind(kinds.Symbol)
	Int8       = Kind(kinds.Int8)
	UInt8      = Kind(kinds.UInt8)
	Int16      = Kind(kinds.Int16)
	UInt16     = Kind(kinds.UInt16)
	Int32      = Kind(kinds.Int32)
	UInt32     = Kind(kinds.UInt32)
	Int64      = Kind(kinds.Int64)
	UInt64     = Kind(kinds.UInt64)
	Single     = Kind(kinds.Single)
	Double     = Kind(kinds.Double)
	Decimal    = Kind(kinds.Decimal)
	BigInteger = Kind(kinds.BigInteger)
)

// Kind is a built-in type identified only by its kind.
type Kind kinds.Kind

func (t Kind) Kind() kinds.Kind { return kinds.Kind(t) }

func (t Kind) String() string { return kinds.Kind(t).String() }

func (t Kind) GlobalName() Name { return Name(kinds.Kind(t).String()) }

// Member is a field or property of a class that keyword construction may assign.
type Member struct {
	Name     string
	Type     Type
	ReadOnly bool
	Property bool
}

func (m Member) String() string {
	return fmt.Sprintf("%s %s", m.Name, m.Type)
}

type Class struct {
	name       string
	namespace  string
	base       Type
	interfaces []Type
	members    []Member

	valueType          bool
	defaultConstructor bool

	converters []Type
	protocols  []Type
}

func NewClass(name string, base Type, interfaces ...Type) *Class {
	return &Class{
		name:       name,
		base:       base,
		interfaces: interfaces,
	}
}

func (t *Class) InNamespace(ns string) *Class {
	t.namespace = ns
	return t
}

func (t *Class) AsValueType() *Class {
	t.valueType = true
	t.defaultConstructor = true
	return t
}

func (t *Class) WithDefaultConstructor() *Class {
	t.defaultConstructor = true
	return t
}

func (t *Class) With(member Member) *Class {
	t.members = append(t.members, member)
	return t
}

// WithConverter declares an explicit conversion operator from t to target.
func (t *Class) WithConverter(target Type) *Class {
	t.converters = append(t.converters, target)
	return t
}

// WithProtocol declares a conversion protocol method (to_str, to_int, ...) producing target.
func (t *Class) WithProtocol(target Type) *Class {
	t.protocols = append(t.protocols, target)
	return t
}

func (t *Class) Kind() kinds.Kind { return kinds.Class }

func (t *Class) Name() string { return t.name }

func (t *Class) String() string { return t.name }

func (t *Class) GlobalName() Name {
	if t.namespace == "" {
		return Name(t.name)
	}

	return Name(fmt.Sprintf("%s::%s", t.namespace, t.name))
}

func (t *Class) Base() Type {
	if t.base == nil {
		return Object
	}

	return t.base
}

func (t *Class) DeclaredInterfaces() []Type { return t.interfaces }

func (t *Class) IsValueType() bool { return t.valueType }

func (t *Class) HasDefaultConstructor() bool { return t.defaultConstructor }

func (t *Class) Converters() []Type { return t.converters }

func (t *Class) Protocols() []Type { return t.protocols }

func (t *Class) DeclaredMembers() []Member { return t.members }

type Interface struct {
	name       string
	interfaces []Type
}

func NewInterface(name string, extends ...Type) *Interface {
	return &Interface{name: name, interfaces: extends}
}

func (t *Interface) Kind() kinds.Kind { return kinds.Interface }

func (t *Interface) Name() string { return t.name }

func (t *Interface) String() string { return t.name }

func (t *Interface) GlobalName() Name { return Name(t.name) }

func (t *Interface) DeclaredInterfaces() []Type { return t.interfaces }

type Array struct {
	elem Type
}

func NewArray(elem Type) *Array {
	return &Array{elem: elem}
}

func (t *Array) Kind() kinds.Kind { return kinds.Array }

func (t *Array) String() string { return fmt.Sprintf("%s[]", t.elem) }

func (t *Array) GlobalName() Name { return Name(fmt.Sprintf("%s[]", t.elem.GlobalName())) }

func (t *Array) Elem() Type { return t.elem }

// Box is a caller-supplied mutable cell passed to a by-ref parameter.
type Box struct {
	elem Type
}

func NewBox(elem Type) *Box {
	return &Box{elem: elem}
}

func (t *Box) Kind() kinds.Kind { return kinds.Box }

func (t *Box) String() string { return fmt.Sprintf("Box<%s>", t.elem) }

func (t *Box) GlobalName() Name { return Name(fmt.Sprintf("Box<%s>", t.elem.GlobalName())) }

func (t *Box) Elem() Type { return t.elem }

type Nullable struct {
	elem Type
}

func NewNullable(elem Type) *Nullable {
	return &Nullable{elem: elem}
}

func (t *Nullable) Kind() kinds.Kind { return kinds.Nullable }

func (t *Nullable) String() string { return fmt.Sprintf("%s?", t.elem) }

func (t *Nullable) GlobalName() Name { return Name(fmt.Sprintf("%s?", t.elem.GlobalName())) }

func (t *Nullable) Elem() Type { return t.elem }

type Tuple struct {
	elems []Type
}

func NewTuple(elems ...Type) *Tuple {
	return &Tuple{elems: elems}
}

func (t *Tuple) Kind() kinds.Kind { return kinds.Tuple }

func (t *Tuple) String() string {
	return fmt.Sprintf("(%s)", joinTypes(t.elems, Type.String))
}

func (t *Tuple) GlobalName() Name {
	return Name(fmt.Sprintf("(%s)", joinTypes(t.elems, globalName)))
}

func (t *Tuple) Elems() []Type { return t.elems }

// Delegate is a non-generic callable signature, such as a block or lambda value.
type Delegate struct {
	Parameters []Type
	Return     Type
}

// NewDelegate returns a delegate type. A nil ret is a void delegate.
func NewDelegate(params []Type, ret Type) *Delegate {
	if ret == nil {
		ret = Void
	}

	return &Delegate{Parameters: params, Return: ret}
}

func (t *Delegate) Kind() kinds.Kind { return kinds.Delegate }

func (t *Delegate) returnType() Type {
	if t.Return == nil {
		return Void
	}

	return t.Return
}

func (t *Delegate) String() string {
	return fmt.Sprintf("proc(%s) %s", joinTypes(t.Parameters, Type.String), t.returnType())
}

func (t *Delegate) GlobalName() Name {
	return Name(fmt.Sprintf("proc(%s) %s", joinTypes(t.Parameters, globalName), t.returnType().GlobalName()))
}

func globalName(t Type) string { return string(t.GlobalName()) }

func joinTypes(ts []Type, f func(Type) string) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, f(t))
	}

	return strings.Join(parts, ", ")
}

func Equal(t1, t2 Type) bool {
	if t1 == nil || t2 == nil {
		return t1 == t2
	}

	if t1.Kind() != t2.Kind() {
		return false
	}

	switch t1 := t1.(type) {
	case Kind:
		return t1 == t2 && t1.Kind() != kinds.Unknown
	case *Array:
		t2, ok := t2.(*Array)
		return ok && Equal(t1.elem, t2.elem)
	case *Box:
		t2, ok := t2.(*Box)
		return ok && Equal(t1.elem, t2.elem)
	case *Nullable:
		t2, ok := t2.(*Nullable)
		return ok && Equal(t1.elem, t2.elem)
	case *Tuple:
		t2, ok := t2.(*Tuple)
		return ok && slices.EqualFunc(t1.elems, t2.elems, Equal)
	case *Delegate:
		switch t2 := t2.(type) {
		case *Delegate:
			return slices.EqualFunc(t1.Parameters, t2.Parameters, Equal) && Equal(t1.returnType(), t2.returnType())
		default:
			return false
		}
	case *Constructed:
		t2, ok := t2.(*Constructed)
		return ok && t1.def == t2.def && slices.EqualFunc(t1.args, t2.args, Equal)
	default:
		return Type(t1) == t2
	}
}

func IsReferenceType(t Type) bool {
	switch t := t.(type) {
	case Kind:
		switch t.Kind() {
		case kinds.Object, kinds.Dynamic, kinds.String, kinds.Symbol, kinds.BigInteger:
			return true
		default:
			return false
		}
	case *Class:
		return !t.valueType
	case *Constructed:
		return !t.def.valueType
	case *TypeParameter:
		return t.ReferenceType
	case *Nullable:
		return false
	default:
		return t != nil
	}
}

func IsValueType(t Type) bool {
	switch t := t.(type) {
	case Kind:
		return t.Kind().IsPrimitive()
	case *Class:
		return t.valueType
	case *Constructed:
		return t.def.valueType
	case *TypeParameter:
		return t.ValueType
	case *Nullable:
		return true
	default:
		return false
	}
}

func HasDefaultConstructor(t Type) bool {
	switch t := t.(type) {
	case *Class:
		return t.defaultConstructor
	case *Constructed:
		return t.def.defaultConstructor
	case *TypeParameter:
		return t.DefaultConstructor || t.ValueType
	case Kind:
		return t == Object || t.Kind().IsPrimitive()
	default:
		return IsValueType(t)
	}
}

// Elem returns the element type of arrays, boxes and nullables.
func Elem(t Type) (Type, bool) {
	switch t := t.(type) {
	case *Array:
		return t.elem, true
	case *Box:
		return t.elem, true
	case *Nullable:
		return t.elem, true
	default:
		return nil, false
	}
}

// BaseType returns the direct base class of t, or nil for roots and interfaces.
func BaseType(t Type) Type {
	switch t := t.(type) {
	case *Class:
		return t.Base()
	case *Constructed:
		if t.def.kind == kinds.Interface {
			return nil
		}
		return t.Base()
	case Kind:
		if t == Object || t == Dynamic || t == Void || t == Null || t == Unknown {
			return nil
		}
		return Object
	case *Interface, *TypeParameter:
		return nil
	default:
		return Object
	}
}

func declaredInterfaces(t Type) []Type {
	switch t := t.(type) {
	case *Class:
		return t.interfaces
	case *Interface:
		return t.interfaces
	case *Constructed:
		return t.Interfaces()
	case *Array:
		return []Type{ListInterface.Of(t.elem)}
	case *TypeParameter:
		return t.Constraints
	default:
		return nil
	}
}

// Interfaces returns every interface t implements, transitively, including those of its base classes.
func Interfaces(t Type) []Type {
	var out []Type
	var visit func(Type)
	visit = func(t Type) {
		for _, iface := range declaredInterfaces(t) {
			if !isInterface(iface) {
				continue
			}
			if slices.ContainsFunc(out, func(o Type) bool { return Equal(o, iface) }) {
				continue
			}
			out = append(out, iface)
			visit(iface)
		}
	}

	for cur := t; cur != nil; cur = BaseType(cur) {
		visit(cur)
	}

	return out
}

// Hierarchy returns t, its base class chain and then all of its interfaces.
func Hierarchy(t Type) []Type {
	var out []Type
	for cur := t; cur != nil; cur = BaseType(cur) {
		out = append(out, cur)
	}

	return append(out, Interfaces(t)...)
}

func isInterface(t Type) bool {
	return t.Kind() == kinds.Interface
}

func IsAssignableTo(v, to Type) bool {
	if v == nil || to == nil || v.Kind() == kinds.Void || v.Kind() == kinds.Unknown {
		return false
	}

	if Equal(v, to) {
		return true
	}

	if to == Dynamic || to == Object {
		return true
	}

	if v == Null {
		switch to.(type) {
		case *Nullable:
			return true
		default:
			return IsReferenceType(to)
		}
	}

	if v == Dynamic {
		return false
	}

	switch to := to.(type) {
	case *Array:
		if v, ok := v.(*Array); ok {
			return IsReferenceType(v.elem) && IsAssignableTo(v.elem, to.elem)
		}
	case *Constructed:
		if d, ok := v.(*Delegate); ok && to.def.kind == kinds.Delegate {
			params, ret := to.Signature()
			return slices.EqualFunc(d.Parameters, params, Equal) && Equal(d.returnType(), ret)
		}
	}

	for _, super := range Hierarchy(v)[1:] {
		if Equal(super, to) {
			return true
		}
	}

	return false
}

// IsOpen reports whether t mentions any type parameter.
func IsOpen(t Type) bool {
	return len(References(t)) > 0
}

// References returns the type parameters mentioned by t, directly or nested, in first-mention order.
func References(t Type) []*TypeParameter {
	var out []*TypeParameter
	var visit func(Type)
	visit = func(t Type) {
		switch t := t.(type) {
		case *TypeParameter:
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		case *Array:
			visit(t.elem)
		case *Box:
			visit(t.elem)
		case *Nullable:
			visit(t.elem)
		case *Tuple:
			for _, elem := range t.elems {
				visit(elem)
			}
		case *Delegate:
			for _, param := range t.Parameters {
				visit(param)
			}
			visit(t.Return)
		case *Constructed:
			for _, arg := range t.args {
				visit(arg)
			}
		}
	}
	visit(t)

	return out
}

// Substitute replaces the type parameters of t according to bindings.
func Substitute(t Type, bindings map[*TypeParameter]Type) Type {
	if len(bindings) == 0 {
		return t
	}

	switch t := t.(type) {
	case *TypeParameter:
		if bound, ok := bindings[t]; ok {
			return bound
		}
		return t
	case *Array:
		return NewArray(Substitute(t.elem, bindings))
	case *Box:
		return NewBox(Substitute(t.elem, bindings))
	case *Nullable:
		return NewNullable(Substitute(t.elem, bindings))
	case *Tuple:
		return NewTuple(substituteAll(t.elems, bindings)...)
	case *Delegate:
		return NewDelegate(substituteAll(t.Parameters, bindings), Substitute(t.Return, bindings))
	case *Constructed:
		return t.def.Of(substituteAll(t.args, bindings)...)
	default:
		return t
	}
}

func substituteAll(ts []Type, bindings map[*TypeParameter]Type) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = Substitute(t, bindings)
	}

	return out
}

// Members returns the members visible on t, most derived first.
func Members(t Type) []Member {
	var out []Member
	for cur := t; cur != nil; cur = BaseType(cur) {
		switch cur := cur.(type) {
		case *Class:
			out = append(out, cur.members...)
		case *Constructed:
			out = append(out, cur.Members()...)
		}
	}

	return out
}

func LookupMember(t Type, name string) (Member, bool) {
	members := Members(t)
	index := slices.IndexFunc(members, func(m Member) bool {
		return m.Name == name
	})
	if index == -1 {
		return Member{}, false
	}

	return members[index], true
}
