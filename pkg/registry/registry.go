// Package registry maps callable names to the overload sets declared for
// them, together with the classes, interfaces and generic definitions their
// signatures mention. Registries are built explicitly at startup, usually
// from a YAML file.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/rhino1998/callbind/pkg/binder"
	"github.com/rhino1998/callbind/pkg/binder/types"
)

var (
	ErrUndefinedType = errors.New("undefined type")
	ErrRedefined     = errors.New("redefined")
)

var builtins = map[string]types.Type{
	"void":    types.Void,
	"nil":     types.Null,
	"dynamic": types.Dynamic,
	"object":  types.Object,
	"bool":    types.Bool,
	"char":    types.Char,
	"string":  types.String,
	"symbol":  types.Symbol,
	"int8":    types.Int8,
	"uint8":   types.UInt8,
	"int16":   types.Int16,
	"uint16":  types.UInt16,
	"int32":   types.Int32,
	"uint32":  types.UInt32,
	"int64":   types.Int64,
	"uint64":  types.UInt64,
	"single":  types.Single,
	"double":  types.Double,
	"decimal": types.Decimal,
	"bignum":  types.BigInteger,
	"Hash":    types.Hash,
}

var builtinGenerics = map[string]*types.Generic{
	"IEnumerable": types.Enumerable,
	"IList":       types.ListInterface,
	"List":        types.List,
	"IDictionary": types.DictionaryInterface,
	"Dictionary":  types.Dictionary,
	"Func":        types.Func,
	"Action":      types.Action,
}

// Scope maps type parameter names to the parameters of a generic declaration.
type Scope map[string]*types.TypeParameter

type Registry struct {
	logger *slog.Logger

	types     map[string]types.Type
	generics  map[string]*types.Generic
	methods   map[string][]*binder.Method
	overloads map[string]*binder.Overloads
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		types:     maps.Clone(builtins),
		generics:  maps.Clone(builtinGenerics),
		methods:   make(map[string][]*binder.Method),
		overloads: make(map[string]*binder.Overloads),
	}
}

func (r *Registry) defined(name string) bool {
	_, isType := r.types[name]
	_, isGeneric := r.generics[name]
	return isType || isGeneric || name == "box" || name == "tuple"
}

func (r *Registry) DefineType(name string, t types.Type) error {
	if r.defined(name) {
		return fmt.Errorf("type %s %w", name, ErrRedefined)
	}

	r.types[name] = t
	r.logger.Debug("defined type", slog.String("name", name), slog.String("kind", t.Kind().String()))
	return nil
}

func (r *Registry) DefineGeneric(name string, g *types.Generic) error {
	if r.defined(name) {
		return fmt.Errorf("generic type %s %w", name, ErrRedefined)
	}

	r.generics[name] = g
	r.logger.Debug("defined generic type", slog.String("name", name), slog.Int("parameters", len(g.Parameters())))
	return nil
}

func (r *Registry) Type(name string) (types.Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

func (r *Registry) Generic(name string) (*types.Generic, bool) {
	g, ok := r.generics[name]
	return g, ok
}

// ParseType parses and resolves a type expression. Names in scope resolve to
// type parameters before registered types.
func (r *Registry) ParseType(src string, scope Scope) (types.Type, error) {
	expr, err := ParseTypeExpr(src)
	if err != nil {
		return nil, err
	}

	return r.ResolveType(expr, scope)
}

func (r *Registry) ResolveType(expr TypeExpr, scope Scope) (types.Type, error) {
	switch expr := expr.(type) {
	case Identifier:
		if tp, ok := scope[string(expr)]; ok {
			return tp, nil
		}
		if t, ok := r.types[string(expr)]; ok {
			return t, nil
		}
		if _, ok := r.generics[string(expr)]; ok {
			return nil, fmt.Errorf("generic type %s used without type arguments", expr)
		}
		return nil, fmt.Errorf("%w %s", ErrUndefinedType, expr)
	case ArrayType:
		elem, err := r.ResolveType(expr.Element, scope)
		if err != nil {
			return nil, err
		}
		return types.NewArray(elem), nil
	case NullableType:
		elem, err := r.ResolveType(expr.Element, scope)
		if err != nil {
			return nil, err
		}
		if !types.IsValueType(elem) {
			return nil, fmt.Errorf("%s is not a value type and cannot be nullable", elem)
		}
		return types.NewNullable(elem), nil
	case GenericType:
		args := make([]types.Type, len(expr.Args))
		for i, arg := range expr.Args {
			t, err := r.ResolveType(arg, scope)
			if err != nil {
				return nil, err
			}
			args[i] = t
		}

		switch expr.Name {
		case "box":
			if len(args) != 1 {
				return nil, fmt.Errorf("box takes 1 type argument, got %d", len(args))
			}
			return types.NewBox(args[0]), nil
		case "tuple":
			return types.NewTuple(args...), nil
		}

		g, ok := r.generics[string(expr.Name)]
		if !ok {
			return nil, fmt.Errorf("%w generic %s", ErrUndefinedType, expr.Name)
		}
		if len(args) != len(g.Parameters()) {
			return nil, fmt.Errorf("%s takes %d type arguments, got %d", g, len(g.Parameters()), len(args))
		}
		return g.Of(args...), nil
	default:
		panic(fmt.Sprintf("bug: unhandled type expression %T", expr))
	}
}

// Add declares a method under name. Overload sets are built on first lookup
// after the last Add.
func (r *Registry) Add(name string, m *binder.Method) {
	r.methods[name] = append(r.methods[name], m)
	delete(r.overloads, name)
}

// Overloads returns the overload set declared under name.
func (r *Registry) Overloads(name string) (*binder.Overloads, error) {
	if o, ok := r.overloads[name]; ok {
		return o, nil
	}

	methods, ok := r.methods[name]
	if !ok {
		return nil, fmt.Errorf("no methods named %s", name)
	}

	o, err := binder.NewOverloads(name, methods...)
	if err != nil {
		return nil, fmt.Errorf("failed to build overloads for %s: %w", name, err)
	}

	r.overloads[name] = o
	r.logger.Debug("built overloads",
		slog.String("name", name),
		slog.String("id", o.ID.String()),
		slog.Int("methods", len(methods)),
		slog.Int("candidates", len(o.Candidates())),
	)

	return o, nil
}

// Names returns the declared method names in order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.methods))
}
