package types_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/stretchr/testify/require"
)

func names(ts []types.Type) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}

	return out
}

func TestIsAssignableTo(t *testing.T) {
	animal := types.NewClass("Animal", nil)
	pet := types.NewInterface("IPet")
	dog := types.NewClass("Dog", animal, pet)

	tests := []struct {
		name     string
		from, to types.Type
		want     bool
	}{
		{"identity", types.Int32, types.Int32, true},
		{"to object", types.Int32, types.Object, true},
		{"to dynamic", dog, types.Dynamic, true},
		{"dynamic to object", types.Dynamic, types.Object, true},
		{"dynamic to string", types.Dynamic, types.String, false},
		{"base class", dog, animal, true},
		{"derived class", animal, dog, false},
		{"interface", dog, pet, true},
		{"nil to class", types.Null, dog, true},
		{"nil to nullable", types.Null, types.NewNullable(types.Int32), true},
		{"nil to value", types.Null, types.Int32, false},
		{"void", types.Void, types.Object, false},
		{"covariant array", types.NewArray(dog), types.NewArray(animal), true},
		{"value array", types.NewArray(types.Int32), types.NewArray(types.Object), false},
		{"array to list", types.NewArray(types.Int32), types.ListInterface.Of(types.Int32), true},
		{"array to enumerable", types.NewArray(types.String), types.Enumerable.Of(types.String), true},
		{"list to interface", types.List.Of(dog), types.ListInterface.Of(dog), true},
		{"list is invariant", types.List.Of(dog), types.ListInterface.Of(animal), false},
		{"hash", types.Hash, types.DictionaryInterface.Of(types.Object, types.Object), true},
		{"numeric", types.Int32, types.Int64, false},
		{"delegate", types.NewDelegate([]types.Type{types.Int32}, types.String), types.Func.Of(types.Int32, types.String), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, types.IsAssignableTo(test.from, test.to))
		})
	}
}

func TestVoidDelegate(t *testing.T) {
	r := require.New(t)

	built := types.NewDelegate([]types.Type{types.Int32}, nil)
	r.Equal(types.Void, built.Return)

	literal := &types.Delegate{Parameters: []types.Type{types.Int32}}
	r.Equal("proc(int32) void", literal.String())
	r.Equal(built.GlobalName(), literal.GlobalName())
	r.True(types.Equal(built, literal))
	r.True(types.IsAssignableTo(literal, types.Action.Of(types.Int32)))
	r.False(types.IsAssignableTo(literal, types.Func.Of(types.Int32, types.Int32)))
}

func TestHierarchy(t *testing.T) {
	r := require.New(t)

	got := names(types.Hierarchy(types.List.Of(types.String)))
	want := []string{"List<string>", "object", "IList<string>", "IEnumerable<string>"}
	r.Empty(cmp.Diff(want, got))

	animal := types.NewClass("Animal", nil, types.NewInterface("INamed"))
	dog := types.NewClass("Dog", animal)
	r.Empty(cmp.Diff([]string{"Dog", "Animal", "object", "INamed"}, names(types.Hierarchy(dog))))
}

func TestSubstitute(t *testing.T) {
	r := require.New(t)

	k := types.NewTypeParameter("K")
	v := types.NewTypeParameter("V")
	open := types.NewTuple(types.NewArray(k), types.Dictionary.Of(k, types.NewNullable(v)))

	r.True(types.IsOpen(open))
	r.Equal([]*types.TypeParameter{k, v}, types.References(open))

	closed := types.Substitute(open, map[*types.TypeParameter]types.Type{k: types.String, v: types.Int32})
	r.False(types.IsOpen(closed))
	r.Equal("(string[], Dictionary<string, int32?>)", closed.String())
	r.True(types.Equal(closed, types.NewTuple(
		types.NewArray(types.String),
		types.Dictionary.Of(types.String, types.NewNullable(types.Int32)),
	)))
}

func TestConstructedMembers(t *testing.T) {
	r := require.New(t)

	tp := types.NewTypeParameter("T")
	cell := types.NewGenericClass("Cell", []*types.TypeParameter{tp}, nil).
		With(types.Member{Name: "item", Type: tp})

	member, ok := types.LookupMember(cell.Of(types.Double), "item")
	r.True(ok)
	r.Equal(types.Double, member.Type)

	_, ok = types.LookupMember(cell.Of(types.Double), "missing")
	r.False(ok)
}

func TestValueAndReferenceTypes(t *testing.T) {
	r := require.New(t)

	point := types.NewClass("Point", nil).AsValueType()

	r.True(types.IsValueType(types.Int32))
	r.True(types.IsValueType(point))
	r.True(types.IsValueType(types.NewNullable(point)))
	r.False(types.IsValueType(types.String))
	r.True(types.IsReferenceType(types.String))
	r.True(types.IsReferenceType(types.NewArray(types.Int32)))
	r.False(types.IsReferenceType(point))

	r.True(types.HasDefaultConstructor(types.Int32))
	r.True(types.HasDefaultConstructor(types.List.Of(types.Int32)))
	r.False(types.HasDefaultConstructor(types.NewClass("Opaque", nil)))
}
