package registry_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/registry"
	"github.com/stretchr/testify/require"
)

func TestParseTypeExpr(t *testing.T) {
	tests := []struct {
		src  string
		want registry.TypeExpr
	}{
		{"int32", registry.Identifier("int32")},
		{"int32?", registry.NullableType{Element: registry.Identifier("int32")}},
		{"object[]", registry.ArrayType{Element: registry.Identifier("object")}},
		{
			"IList<List<int32>>[]?",
			registry.NullableType{Element: registry.ArrayType{Element: registry.GenericType{
				Name: "IList",
				Args: []registry.TypeExpr{registry.GenericType{
					Name: "List",
					Args: []registry.TypeExpr{registry.Identifier("int32")},
				}},
			}}},
		},
		{
			"Dictionary<string, T[]>",
			registry.GenericType{
				Name: "Dictionary",
				Args: []registry.TypeExpr{registry.Identifier("string"), registry.ArrayType{Element: registry.Identifier("T")}},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			r := require.New(t)

			got, err := registry.ParseTypeExpr(test.src)
			r.NoError(err)
			r.Empty(cmp.Diff(test.want, got))
			r.Equal(test.src, got.String())
		})
	}
}

func TestParseTypeExprErrors(t *testing.T) {
	for _, src := range []string{"", "int32 int32", "List<", "List<int32", "int32[", "[]", "List<int32,>"} {
		t.Run(src, func(t *testing.T) {
			_, err := registry.ParseTypeExpr(src)
			require.ErrorIs(t, err, registry.ErrSyntax)
		})
	}
}

func TestResolveType(t *testing.T) {
	reg := registry.New(slogt.New(t))

	tp := types.NewTypeParameter("T")
	scope := registry.Scope{"T": tp}

	tests := []struct {
		src  string
		want types.Type
	}{
		{"int32?", types.NewNullable(types.Int32)},
		{"box<string>", types.NewBox(types.String)},
		{"tuple<bool, int32>", types.NewTuple(types.Bool, types.Int32)},
		{"Dictionary<string, object>", types.Dictionary.Of(types.String, types.Object)},
		{"IList<T>[]", types.NewArray(types.ListInterface.Of(tp))},
		{"bignum", types.BigInteger},
	}

	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			r := require.New(t)

			got, err := reg.ParseType(test.src, scope)
			r.NoError(err)
			r.True(types.Equal(test.want, got), "got %s", got)
		})
	}
}

func TestResolveTypeErrors(t *testing.T) {
	r := require.New(t)
	reg := registry.New(slogt.New(t))

	_, err := reg.ParseType("Foo", nil)
	r.ErrorIs(err, registry.ErrUndefinedType)

	_, err = reg.ParseType("Foo<int32>", nil)
	r.ErrorIs(err, registry.ErrUndefinedType)

	_, err = reg.ParseType("string?", nil)
	r.Error(err)

	_, err = reg.ParseType("List", nil)
	r.Error(err)

	_, err = reg.ParseType("List<int32, int32>", nil)
	r.Error(err)

	_, err = reg.ParseType("box<int32, int32>", nil)
	r.Error(err)
}

func TestDefineType(t *testing.T) {
	r := require.New(t)
	reg := registry.New(slogt.New(t))

	foo := types.NewClass("Foo", nil)
	r.NoError(reg.DefineType("Foo", foo))
	r.ErrorIs(reg.DefineType("Foo", foo), registry.ErrRedefined)
	r.ErrorIs(reg.DefineType("int32", foo), registry.ErrRedefined)
	r.ErrorIs(reg.DefineGeneric("List", types.List), registry.ErrRedefined)

	got, err := reg.ParseType("Foo[]", nil)
	r.NoError(err)
	r.True(types.Equal(types.NewArray(foo), got))
}
