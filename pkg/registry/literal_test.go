package registry_test

import (
	"math/big"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/rhino1998/callbind/pkg/binder"
	"github.com/rhino1998/callbind/pkg/binder/numeric"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
	"github.com/rhino1998/callbind/pkg/registry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	reg := registry.New(slogt.New(t))

	tests := []struct {
		src  string
		want any
	}{
		{"5", int32(5)},
		{"-3", int32(-3)},
		{"0x10", int32(16)},
		{"2.5", 2.5},
		{"nil", nil},
		{"true", true},
		{"false", false},
		{`"quoted str"`, "quoted str"},
		{"hello", "hello"},
		{":sym", object.Symbol("sym")},
		{"'c'", object.Char('c')},
		{"[1, two, :three]", object.List{int32(1), "two", object.Symbol("three")}},
		{"[]", object.List{}},
		{"int8:5", int8(5)},
		{"uint64:7", uint64(7)},
		{"double:1", float64(1)},
		{"char:a", object.Char('a')},
		{"string:abc", "abc"},
		{"string:12", "12"},
		{"symbol:abc", object.Symbol("abc")},
		{"object:1", int32(1)},
		{"int32?:nil", nil},
		{"int32?:4", int32(4)},
	}

	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			r := require.New(t)

			got, err := reg.ParseValue(test.src)
			r.NoError(err)
			r.Equal(test.want, got)
		})
	}
}

func TestParseValueNumbers(t *testing.T) {
	r := require.New(t)
	reg := registry.New(slogt.New(t))

	got, err := reg.ParseValue("3000000000")
	r.NoError(err)
	r.Equal(0, big.NewInt(3000000000).Cmp(got.(*big.Int)))

	got, err = reg.ParseValue("bignum:12")
	r.NoError(err)
	r.Equal(0, big.NewInt(12).Cmp(got.(*big.Int)))

	got, err = reg.ParseValue("decimal:1.25")
	r.NoError(err)
	r.True(decimal.RequireFromString("1.25").Equal(got.(decimal.Decimal)))

	_, err = reg.ParseValue("int8:300")
	r.ErrorIs(err, numeric.ErrRange)
}

func TestParseValueCompound(t *testing.T) {
	r := require.New(t)
	reg := registry.New(slogt.New(t))

	point := types.NewClass("Point", nil).
		With(types.Member{Name: "x", Type: types.Int16}).
		With(types.Member{Name: "id", Type: types.Int32, ReadOnly: true})
	r.NoError(reg.DefineType("Point", point))

	got, err := reg.ParseValue(`{a: 1, "b": [2]}`)
	r.NoError(err)
	h := got.(*object.Hash)
	r.Equal([]any{object.Symbol("a"), "b"}, h.Keys())
	b, _ := h.Get("b")
	r.Equal(object.List{int32(2)}, b)

	got, err = reg.ParseValue("box<int32>:5")
	r.NoError(err)
	r.Equal(object.NewBox(types.Int32, int32(5)), got)

	got, err = reg.ParseValue("Point:{x: 1, id: 2}")
	r.NoError(err)
	inst := got.(*object.Instance)
	r.Same(point, inst.Class)
	x, _ := inst.Member("x")
	r.Equal(int16(1), x)
	id, _ := inst.Member("id")
	r.Equal(int32(2), id)

	_, err = reg.ParseValue("Point:{z: 1}")
	r.Error(err)

	_, err = reg.ParseValue("Point:5")
	r.Error(err)
}

func TestParseValueErrors(t *testing.T) {
	reg := registry.New(slogt.New(t))

	for _, src := range []string{"", "[1,", "{a 1}", "{1: 2}", "hello world", "-x", ":", "int32", "char:ab", `"unterminated`} {
		t.Run(src, func(t *testing.T) {
			_, err := reg.ParseValue(src)
			require.Error(t, err)
		})
	}
}

func TestParseArgument(t *testing.T) {
	reg := registry.New(slogt.New(t))

	tests := []struct {
		src   string
		info  binder.ArgumentInfo
		value any
	}{
		{"5", binder.SimpleArgument(), int32(5)},
		{"x=5", binder.NamedArgument("x"), int32(5)},
		{"name=int8:5", binder.NamedArgument("name"), int8(5)},
		{"*[1, 2]", binder.SplatArgument(), object.List{int32(1), int32(2)}},
		{"[1, 2]", binder.SimpleArgument(), object.List{int32(1), int32(2)}},
	}

	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			r := require.New(t)

			info, value, err := reg.ParseArgument(test.src)
			r.NoError(err)
			r.Equal(test.info, info)
			r.Equal(test.value, value)
		})
	}

	t.Run("dictionary", func(t *testing.T) {
		r := require.New(t)

		info, value, err := reg.ParseArgument("**{a: 1}")
		r.NoError(err)
		r.Equal(binder.DictionaryArgument(), info)
		r.Equal("{:a => 1}", object.Inspect(value))
	})

	t.Run("separated stars", func(t *testing.T) {
		_, _, err := reg.ParseArgument("* *{a: 1}")
		require.Error(t, err)
	})
}

func TestParseArguments(t *testing.T) {
	r := require.New(t)
	reg := registry.New(slogt.New(t))

	sig, values, err := reg.ParseArguments([]string{"1", "*[2]", "k=3", "**{j: 4}"})
	r.NoError(err)
	r.Equal(binder.NewCallSignature(
		binder.SimpleArgument(), binder.SplatArgument(), binder.NamedArgument("k"), binder.DictionaryArgument(),
	), sig)
	r.Len(values, 4)

	_, _, err = reg.ParseArguments([]string{"k=3", "1"})
	r.ErrorIs(err, binder.ErrInvalidCallSignature)

	_, _, err = reg.ParseArguments([]string{"1", "[2"})
	r.ErrorIs(err, registry.ErrSyntax)
}
