package registry_test

import (
	"path/filepath"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/rhino1998/callbind/pkg/binder"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
	"github.com/rhino1998/callbind/pkg/registry"
	"github.com/rhino1998/callbind/pkg/topological"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) *registry.Registry {
	t.Helper()

	reg, err := registry.Load(slogt.New(t), filepath.Join("testdata", "registry.yaml"))
	require.NoError(t, err)
	return reg
}

func call(t *testing.T, reg *registry.Registry, name string, args ...string) (*binder.BindingResult, any, error) {
	t.Helper()

	b, err := binder.New(slogt.New(t), binder.DefaultConfig(), nil)
	require.NoError(t, err)

	o, err := reg.Overloads(name)
	require.NoError(t, err)

	sig, values, err := reg.ParseArguments(args)
	require.NoError(t, err)

	result, err := b.Bind(o, sig, binder.RestrictArguments(values...))
	if err != nil {
		return nil, nil, err
	}

	res, err := result.Plan.Invoke(values)
	return result, res, err
}

func TestLoad(t *testing.T) {
	r := require.New(t)
	reg := load(t)

	r.Equal([]string{"first", "log", "options", "point", "try_parse", "widen", "write"}, reg.Names())

	dog, ok := reg.Type("Dog")
	r.True(ok)
	animal, _ := reg.Type("Animal")
	r.True(types.IsAssignableTo(dog, animal))

	kennel, _ := reg.Type("Kennel")
	r.True(types.IsAssignableTo(kennel, types.ListInterface.Of(dog)))

	point, _ := reg.Type("Point")
	r.True(types.IsValueType(point))

	cell, ok := reg.Generic("Cell")
	r.True(ok)
	member, ok := types.LookupMember(cell.Of(types.String), "item")
	r.True(ok)
	r.Equal(types.String, member.Type)
	r.True(types.HasDefaultConstructor(cell.Of(types.String)))

	celsius, _ := reg.Type("Celsius")
	r.True(binder.DefaultConversions{}.CanConvert(celsius, types.Double, binder.NarrowingTwo))
}

func TestDeclaredMethods(t *testing.T) {
	reg := load(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"write", []string{"5"}, `"write(int32 value) string"`},
		{"write", []string{"hello"}, `"write(string value) string"`},
		{"widen", []string{"int64:5"}, `"widen(int32 value) string"`},
		{"log", []string{`"%s %s"`, "1", ":two"}, `["%s %s", [1, :two]]`},
		{"log", []string{"fmt"}, `["fmt", []]`},
		{"try_parse", []string{"text"}, "[true, 42]"},
		{"options", []string{"n"}, `["n", 10, {}]`},
		{"options", []string{"n", "size=3", "color=:red"}, `["n", 3, {:color => :red}]`},
		{"options", []string{"n", "**{color: :red}"}, `["n", 10, {:color => :red}]`},
		{"point", []string{"x=1", "y=2"}, "#<Point x=1 y=2>"},
	}

	for _, test := range tests {
		t.Run(test.name+" "+test.want, func(t *testing.T) {
			r := require.New(t)

			_, res, err := call(t, reg, test.name, test.args...)
			r.NoError(err)
			r.Equal(test.want, object.Inspect(res))
		})
	}
}

func TestGenericMethodFromFile(t *testing.T) {
	r := require.New(t)
	reg := load(t)

	result, res, err := call(t, reg, "first", "Kennel:{}")
	r.NoError(err)

	dog, _ := reg.Type("Dog")
	r.Equal([]types.Type{dog}, result.Candidate.Method().TypeArguments())
	r.Equal(dog, result.Candidate.Method().ReturnType())
	r.IsType(&object.Instance{}, res)

	_, _, err = call(t, reg, "first", "5")
	r.ErrorIs(err, binder.ErrNoApplicableMethod)
}

func TestReadOnlyMemberFromFile(t *testing.T) {
	reg := load(t)

	_, _, err := call(t, reg, "point", "x=1", "id=2")
	require.ErrorIs(t, err, binder.ErrReadOnlyAssignment)
}

func TestParseInvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown kind", "types: [{name: X, kind: blob}]"},
		{"duplicate type", "types: [{name: X}, {name: X}]"},
		{"interface with members", "types: [{name: X, kind: interface, members: [{name: a, type: int32}]}]"},
		{"constructor without type", "methods: [{name: new, constructor: true}]"},
		{"unknown body", "methods: [{name: f, body: nope}]"},
		{"const without value", "methods: [{name: f, body: const}]"},
		{"unknown mode", "methods: [{name: f, params: [{name: a, type: int32, mode: sideways}]}]"},
		{"untyped parameter", "methods: [{name: f, params: [{name: a}]}]"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := registry.Parse([]byte(test.yaml), "test.yaml")
			require.ErrorIs(t, err, registry.ErrInvalidFile)
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		target error
	}{
		{"cycle", "types: [{name: A, base: B}, {name: B, base: A}]", topological.ErrCycleDetected},
		{"undefined parameter type", "methods: [{name: f, params: [{name: a, type: Missing}]}]", registry.ErrUndefinedType},
		{"undefined base", "types: [{name: A, base: Missing}]", registry.ErrUndefinedType},
		{"bad default", `methods: [{name: f, params: [{name: a, type: int8, default: "int8:999"}]}]`, nil},
		{"bad dictionary", "methods: [{name: f, params: [{name: a, type: int32, dictionary: true}]}]", binder.ErrUnsupportedDictionaryType},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := require.New(t)

			f, err := registry.Parse([]byte(test.yaml), "test.yaml")
			r.NoError(err)

			err = registry.New(slogt.New(t)).Build(f)
			r.Error(err)
			if test.target != nil {
				r.ErrorIs(err, test.target)
			}
		})
	}
}

func TestOverloadsAfterAdd(t *testing.T) {
	r := require.New(t)
	reg := registry.New(slogt.New(t))

	reg.Add("f", &binder.Method{Name: "f", Parameters: []binder.Parameter{{Name: "a", Type: types.Int32}}})
	first, err := reg.Overloads("f")
	r.NoError(err)

	again, err := reg.Overloads("f")
	r.NoError(err)
	r.Same(first, again)

	reg.Add("f", &binder.Method{Name: "f", Parameters: []binder.Parameter{{Name: "a", Type: types.String}}})
	rebuilt, err := reg.Overloads("f")
	r.NoError(err)
	r.NotSame(first, rebuilt)
	r.Len(rebuilt.Methods, 2)

	_, err = reg.Overloads("missing")
	r.Error(err)
}
