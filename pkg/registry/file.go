package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/rhino1998/callbind/pkg/binder"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/topological"
	"gopkg.in/yaml.v3"
)

var ErrInvalidFile = errors.New("invalid registry file")

// File is the YAML form of a registry.
type File struct {
	Types   []TypeSpec   `yaml:"types"`
	Methods []MethodSpec `yaml:"methods"`
}

type TypeKind string

const (
	KindClass     TypeKind = "class"
	KindStruct    TypeKind = "struct"
	KindInterface TypeKind = "interface"
)

type TypeSpec struct {
	Name      string   `yaml:"name"`
	Kind      TypeKind `yaml:"kind"`
	Namespace string   `yaml:"namespace"`

	// Params makes the type a generic definition.
	Params []string `yaml:"params"`

	Base       string   `yaml:"base"`
	Interfaces []string `yaml:"interfaces"`

	DefaultConstructor bool         `yaml:"default_constructor"`
	Members            []MemberSpec `yaml:"members"`
	Converters         []string     `yaml:"converters"`
	Protocols          []string     `yaml:"protocols"`
}

type MemberSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	ReadOnly bool   `yaml:"read_only"`
	Property bool   `yaml:"property"`
}

type TypeParamSpec struct {
	Name        string   `yaml:"name"`
	Constraints []string `yaml:"constraints"`
	Class       bool     `yaml:"class"`
	Struct      bool     `yaml:"struct"`
	New         bool     `yaml:"new"`
}

type ParamSpec struct {
	Name         string  `yaml:"name"`
	Type         string  `yaml:"type"`
	Mode         string  `yaml:"mode"`
	Params       bool    `yaml:"params"`
	Dictionary   bool    `yaml:"dictionary"`
	Hidden       bool    `yaml:"hidden"`
	NotNull      bool    `yaml:"not_null"`
	NotNullItems bool    `yaml:"not_null_items"`
	Default      *string `yaml:"default"`
}

type MethodSpec struct {
	Name        string          `yaml:"name"`
	Declaring   string          `yaml:"declaring"`
	TypeParams  []TypeParamSpec `yaml:"type_params"`
	Params      []ParamSpec     `yaml:"params"`
	Return      string          `yaml:"return"`
	Constructor bool            `yaml:"constructor"`
	Body        Body            `yaml:"body"`
	Value       *string         `yaml:"value"`
}

var modes = map[string]binder.ParameterMode{
	"in":  binder.In,
	"ref": binder.Ref,
	"out": binder.Out,
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}

	return Parse(data, path)
}

func Parse(data []byte, path string) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	f.setDefaults()
	if err := f.validate(path); err != nil {
		return nil, err
	}

	return &f, nil
}

func (f *File) setDefaults() {
	for i := range f.Types {
		if f.Types[i].Kind == "" {
			f.Types[i].Kind = KindClass
		}
	}

	for i := range f.Methods {
		m := &f.Methods[i]
		if m.Body == "" {
			m.Body = BodySignature
			if m.Constructor {
				m.Body = BodyConstruct
			}
		}
		for k := range m.Params {
			if m.Params[k].Mode == "" {
				m.Params[k].Mode = "in"
			}
		}
	}
}

func (f *File) validate(path string) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w %s: %s", ErrInvalidFile, path, fmt.Sprintf(format, args...))
	}

	names := make(map[string]struct{})
	for i, t := range f.Types {
		if t.Name == "" {
			return invalid("type %d has no name", i)
		}
		if _, ok := names[t.Name]; ok {
			return invalid("type %s declared twice", t.Name)
		}
		names[t.Name] = struct{}{}

		switch t.Kind {
		case KindClass, KindStruct:
		case KindInterface:
			if t.Base != "" || len(t.Members) > 0 || len(t.Converters) > 0 || len(t.Protocols) > 0 {
				return invalid("interface %s may only declare interfaces", t.Name)
			}
		default:
			return invalid("type %s has unknown kind %q", t.Name, t.Kind)
		}

		if len(t.Params) > 0 && (len(t.Converters) > 0 || len(t.Protocols) > 0) {
			return invalid("generic type %s cannot declare conversions", t.Name)
		}
	}

	for i, m := range f.Methods {
		if m.Name == "" {
			return invalid("method %d has no name", i)
		}
		if !m.Body.Valid() {
			return invalid("method %s has unknown body %q", m.Name, m.Body)
		}
		if (m.Body == BodyConst || m.Body == BodyOut) && m.Value == nil {
			return invalid("method %s with body %s needs a value", m.Name, m.Body)
		}
		if m.Constructor && m.Declaring == "" {
			return invalid("constructor %s needs a declaring type", m.Name)
		}
		for k, p := range m.Params {
			if p.Type == "" {
				return invalid("method %s parameter %d has no type", m.Name, k)
			}
			if _, ok := modes[p.Mode]; !ok {
				return invalid("method %s parameter %d has unknown mode %q", m.Name, k, p.Mode)
			}
		}
	}

	return nil
}

// Load reads a registry file and builds the registry it declares.
func Load(logger *slog.Logger, path string) (*Registry, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	r := New(logger)
	err = r.Build(f)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", path, err)
	}

	logger.Info("loaded registry",
		slog.String("path", path),
		slog.Int("types", len(f.Types)),
		slog.Int("methods", len(f.Methods)),
	)

	return r, nil
}

// Build declares the types and methods of f. Types are declared after the
// types their base and interfaces mention; members and conversions are added
// once every type exists.
func (r *Registry) Build(f *File) error {
	specs := make(map[string]*TypeSpec, len(f.Types))
	for i := range f.Types {
		specs[f.Types[i].Name] = &f.Types[i]
	}

	ordered := make([]*TypeSpec, 0, len(specs))
	for i := range f.Types {
		ordered = append(ordered, &f.Types[i])
	}

	var parseErr error
	ordered, err := topological.SortFunc(ordered,
		func(t *TypeSpec) string { return t.Name },
		func(t *TypeSpec) []*TypeSpec {
			var deps []*TypeSpec
			for _, src := range append([]string{t.Base}, t.Interfaces...) {
				if src == "" {
					continue
				}
				expr, err := ParseTypeExpr(src)
				if err != nil {
					parseErr = errors.Join(parseErr, fmt.Errorf("type %s: %w", t.Name, err))
					continue
				}
				for _, name := range identifiers(expr) {
					if dep, ok := specs[string(name)]; ok && dep != t {
						deps = append(deps, dep)
					}
				}
			}
			return deps
		},
	)
	if err != nil {
		return fmt.Errorf("failed to order types: %w", err)
	}
	if parseErr != nil {
		return parseErr
	}

	scopes := make(map[string]Scope)
	for _, spec := range ordered {
		scope, err := r.declareType(spec)
		if err != nil {
			return fmt.Errorf("type %s: %w", spec.Name, err)
		}
		scopes[spec.Name] = scope
	}

	for _, spec := range ordered {
		err := r.defineMembers(spec, scopes[spec.Name])
		if err != nil {
			return fmt.Errorf("type %s: %w", spec.Name, err)
		}
	}

	for i := range f.Methods {
		m, err := r.method(&f.Methods[i])
		if err != nil {
			return fmt.Errorf("method %s: %w", f.Methods[i].Name, err)
		}
		r.Add(f.Methods[i].Name, m)
	}

	for _, name := range r.Names() {
		_, err := r.Overloads(name)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) resolveAll(srcs []string, scope Scope) ([]types.Type, error) {
	out := make([]types.Type, len(srcs))
	for i, src := range srcs {
		t, err := r.ParseType(src, scope)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}

	return out, nil
}

func (r *Registry) declareType(spec *TypeSpec) (Scope, error) {
	scope := make(Scope, len(spec.Params))
	params := make([]*types.TypeParameter, len(spec.Params))
	for i, name := range spec.Params {
		params[i] = types.NewTypeParameter(name)
		scope[name] = params[i]
	}

	var base types.Type
	if spec.Base != "" {
		t, err := r.ParseType(spec.Base, scope)
		if err != nil {
			return nil, fmt.Errorf("base: %w", err)
		}
		base = t
	}

	interfaces, err := r.resolveAll(spec.Interfaces, scope)
	if err != nil {
		return nil, fmt.Errorf("interfaces: %w", err)
	}

	if len(params) > 0 {
		var g *types.Generic
		switch spec.Kind {
		case KindInterface:
			g = types.NewGenericInterface(spec.Name, params, interfaces...)
		default:
			g = types.NewGenericClass(spec.Name, params, base, interfaces...)
		}
		if spec.DefaultConstructor {
			g.WithDefaultConstructor()
		}
		return scope, r.DefineGeneric(spec.Name, g)
	}

	var t types.Type
	switch spec.Kind {
	case KindInterface:
		t = types.NewInterface(spec.Name, interfaces...)
	default:
		class := types.NewClass(spec.Name, base, interfaces...).InNamespace(spec.Namespace)
		if spec.Kind == KindStruct {
			class.AsValueType()
		}
		if spec.DefaultConstructor {
			class.WithDefaultConstructor()
		}
		t = class
	}

	return scope, r.DefineType(spec.Name, t)
}

func (r *Registry) defineMembers(spec *TypeSpec, scope Scope) error {
	members := make([]types.Member, len(spec.Members))
	for i, m := range spec.Members {
		t, err := r.ParseType(m.Type, scope)
		if err != nil {
			return fmt.Errorf("member %s: %w", m.Name, err)
		}
		members[i] = types.Member{Name: m.Name, Type: t, ReadOnly: m.ReadOnly, Property: m.Property}
	}

	if g, ok := r.generics[spec.Name]; ok {
		for _, m := range members {
			g.With(m)
		}
		return nil
	}

	class, ok := r.types[spec.Name].(*types.Class)
	if !ok {
		return nil
	}

	for _, m := range members {
		class.With(m)
	}

	converters, err := r.resolveAll(spec.Converters, scope)
	if err != nil {
		return fmt.Errorf("converters: %w", err)
	}
	for _, t := range converters {
		class.WithConverter(t)
	}

	protocols, err := r.resolveAll(spec.Protocols, scope)
	if err != nil {
		return fmt.Errorf("protocols: %w", err)
	}
	for _, t := range protocols {
		class.WithProtocol(t)
	}

	return nil
}

func (r *Registry) method(spec *MethodSpec) (*binder.Method, error) {
	m := &binder.Method{
		Name:        spec.Name,
		Constructor: spec.Constructor,
	}

	if spec.Declaring != "" {
		t, err := r.ParseType(spec.Declaring, nil)
		if err != nil {
			return nil, fmt.Errorf("declaring type: %w", err)
		}
		m.DeclaringType = t
	}

	scope := make(Scope, len(spec.TypeParams))
	for _, tp := range spec.TypeParams {
		if _, ok := scope[tp.Name]; ok {
			return nil, fmt.Errorf("type parameter %s declared twice", tp.Name)
		}
		param := types.NewTypeParameter(tp.Name)
		param.ReferenceType = tp.Class
		param.ValueType = tp.Struct
		param.DefaultConstructor = tp.New
		scope[tp.Name] = param
		m.TypeParameters = append(m.TypeParameters, param)
	}
	for i, tp := range spec.TypeParams {
		constraints, err := r.resolveAll(tp.Constraints, scope)
		if err != nil {
			return nil, fmt.Errorf("type parameter %s: %w", tp.Name, err)
		}
		m.TypeParameters[i].Constraints = constraints
	}

	for _, ps := range spec.Params {
		t, err := r.ParseType(ps.Type, scope)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", ps.Name, err)
		}

		p := binder.Parameter{
			Name:              ps.Name,
			Type:              t,
			Mode:              modes[ps.Mode],
			ParamArray:        ps.Params,
			ParamDictionary:   ps.Dictionary,
			Hidden:            ps.Hidden,
			ProhibitNull:      ps.NotNull,
			ProhibitNullItems: ps.NotNullItems,
		}

		if ps.Default != nil {
			v, err := r.ParseValue(*ps.Default)
			if err != nil {
				return nil, fmt.Errorf("parameter %s default: %w", ps.Name, err)
			}
			p.HasDefault = true
			p.Default = v
		}

		m.Parameters = append(m.Parameters, p)
	}

	if spec.Return != "" {
		t, err := r.ParseType(spec.Return, scope)
		if err != nil {
			return nil, fmt.Errorf("return type: %w", err)
		}
		m.Return = t
	}

	var value any
	if spec.Value != nil {
		v, err := r.ParseValue(*spec.Value)
		if err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
		value = v
	}

	body, err := spec.Body.Implementation(value)
	if err != nil {
		return nil, err
	}
	m.Body = body

	return m, nil
}
