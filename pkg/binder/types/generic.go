package types

import (
	"fmt"
	"strings"

	"github.com/rhino1998/callbind/pkg/binder/kinds"
)

type TypeParameter struct {
	name string

	// Constraints are base class or interface constraints. They may mention
	// other type parameters of the same declaration.
	Constraints []Type

	ReferenceType      bool
	ValueType          bool
	DefaultConstructor bool
}

func NewTypeParameter(name string, constraints ...Type) *TypeParameter {
	return &TypeParameter{name: name, Constraints: constraints}
}

func (t *TypeParameter) Kind() kinds.Kind { return kinds.TypeParameter }

func (t *TypeParameter) Name() string { return t.name }

func (t *TypeParameter) String() string { return t.name }

func (t *TypeParameter) GlobalName() Name { return Name(fmt.Sprintf("%s'%p", t.name, t)) }

// ConstraintString renders the constraint clause, e.g. "T: class, new(), IComparable".
func (t *TypeParameter) ConstraintString() string {
	var parts []string
	if t.ReferenceType {
		parts = append(parts, "class")
	}
	if t.ValueType {
		parts = append(parts, "struct")
	}
	if t.DefaultConstructor {
		parts = append(parts, "new()")
	}
	for _, c := range t.Constraints {
		parts = append(parts, c.String())
	}

	if len(parts) == 0 {
		return t.name
	}

	return fmt.Sprintf("%s: %s", t.name, strings.Join(parts, ", "))
}

// Generic is an open generic class, interface or delegate definition.
type Generic struct {
	name   string
	kind   kinds.Kind
	params []*TypeParameter

	base       Type
	interfaces []Type
	members    []Member

	valueType          bool
	defaultConstructor bool

	delegateParams []Type
	delegateReturn Type
}

func NewGenericInterface(name string, params []*TypeParameter, extends ...Type) *Generic {
	return &Generic{
		name:       name,
		kind:       kinds.Interface,
		params:     params,
		interfaces: extends,
	}
}

func NewGenericClass(name string, params []*TypeParameter, base Type, interfaces ...Type) *Generic {
	return &Generic{
		name:       name,
		kind:       kinds.Class,
		params:     params,
		base:       base,
		interfaces: interfaces,
	}
}

func NewGenericDelegate(name string, params []*TypeParameter, ret Type, args ...Type) *Generic {
	return &Generic{
		name:           name,
		kind:           kinds.Delegate,
		params:         params,
		delegateParams: args,
		delegateReturn: ret,
	}
}

func (g *Generic) WithDefaultConstructor() *Generic {
	g.defaultConstructor = true
	return g
}

func (g *Generic) With(member Member) *Generic {
	g.members = append(g.members, member)
	return g
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Parameters() []*TypeParameter { return g.params }

func (g *Generic) Of(args ...Type) *Constructed {
	if len(args) != len(g.params) {
		panic(fmt.Sprintf("bug: %s expects %d type arguments, got %d", g.name, len(g.params), len(args)))
	}

	return &Constructed{def: g, args: args}
}

func (g *Generic) String() string {
	names := make([]string, len(g.params))
	for i, p := range g.params {
		names[i] = p.name
	}

	return fmt.Sprintf("%s<%s>", g.name, strings.Join(names, ", "))
}

// Constructed is a generic definition applied to type arguments, e.g. IList<Foo>.
type Constructed struct {
	def  *Generic
	args []Type
}

func (t *Constructed) Kind() kinds.Kind { return t.def.kind }

func (t *Constructed) Definition() *Generic { return t.def }

func (t *Constructed) Args() []Type { return t.args }

func (t *Constructed) String() string {
	return fmt.Sprintf("%s<%s>", t.def.name, joinTypes(t.args, Type.String))
}

func (t *Constructed) GlobalName() Name {
	return Name(fmt.Sprintf("%s<%s>", t.def.name, joinTypes(t.args, globalName)))
}

func (t *Constructed) bindings() map[*TypeParameter]Type {
	m := make(map[*TypeParameter]Type, len(t.args))
	for i, p := range t.def.params {
		m[p] = t.args[i]
	}

	return m
}

func (t *Constructed) Base() Type {
	if t.def.base == nil {
		return Object
	}

	return Substitute(t.def.base, t.bindings())
}

func (t *Constructed) Interfaces() []Type {
	return substituteAll(t.def.interfaces, t.bindings())
}

func (t *Constructed) Members() []Member {
	b := t.bindings()
	out := make([]Member, len(t.def.members))
	for i, m := range t.def.members {
		m.Type = Substitute(m.Type, b)
		out[i] = m
	}

	return out
}

// Signature returns the substituted parameter and return types of a constructed delegate.
func (t *Constructed) Signature() ([]Type, Type) {
	b := t.bindings()
	ret := t.def.delegateReturn
	if ret == nil {
		ret = Void
	}

	return substituteAll(t.def.delegateParams, b), Substitute(ret, b)
}

var (
	enumerableT = NewTypeParameter("T")
	listT       = NewTypeParameter("T")
	listClassT  = NewTypeParameter("T")
	dictK       = NewTypeParameter("K")
	dictV       = NewTypeParameter("V")
	dictClassK  = NewTypeParameter("K")
	dictClassV  = NewTypeParameter("V")
	funcArg     = NewTypeParameter("A")
	funcResult  = NewTypeParameter("R")
	actionArg   = NewTypeParameter("A")

	Enumerable          = NewGenericInterface("IEnumerable", []*TypeParameter{enumerableT})
	ListInterface       = NewGenericInterface("IList", []*TypeParameter{listT}, Enumerable.Of(listT))
	List                = NewGenericClass("List", []*TypeParameter{listClassT}, nil, ListInterface.Of(listClassT)).WithDefaultConstructor()
	DictionaryInterface = NewGenericInterface("IDictionary", []*TypeParameter{dictK, dictV})
	Dictionary          = NewGenericClass("Dictionary", []*TypeParameter{dictClassK, dictClassV}, nil, DictionaryInterface.Of(dictClassK, dictClassV)).WithDefaultConstructor()
	Func                = NewGenericDelegate("Func", []*TypeParameter{funcArg, funcResult}, funcResult, funcArg)
	Action              = NewGenericDelegate("Action", []*TypeParameter{actionArg}, Void, actionArg)

	// Hash is the dynamic language's built-in dictionary.
	Hash = NewClass("Hash", nil, DictionaryInterface.Of(Object, Object)).WithDefaultConstructor()
)
