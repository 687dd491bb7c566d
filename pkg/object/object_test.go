package object_test

import (
	"math/big"
	"testing"

	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestHashKeepsInsertionOrder(t *testing.T) {
	r := require.New(t)

	h := object.NewHash()
	h.Set(object.Symbol("b"), int32(1))
	h.Set("a", int32(2))
	h.Set(object.Symbol("b"), int32(3))

	r.Equal(2, h.Len())
	r.Equal([]any{object.Symbol("b"), "a"}, h.Keys())

	v, ok := h.Get(object.Symbol("b"))
	r.True(ok)
	r.Equal(int32(3), v)

	_, ok = h.Get("b")
	r.False(ok)

	r.Equal(`{:b => 3, "a" => 2}`, h.String())
}

func TestInstanceMembers(t *testing.T) {
	r := require.New(t)

	animal := types.NewClass("Animal", nil).With(types.Member{Name: "name", Type: types.String})
	dog := types.NewClass("Dog", animal).With(types.Member{Name: "id", Type: types.Int32, ReadOnly: true})

	d := object.NewInstance(dog)
	r.NoError(d.SetMember("name", "rex"))
	r.ErrorIs(d.SetMember("id", int32(1)), object.ErrReadOnlyAssignment)
	r.Error(d.SetMember("missing", 1))

	d.Init("id", int32(7))
	r.Equal("#<Dog id=7 name=\"rex\">", d.String())

	converted, err := d.ConvertTo(animal)
	r.NoError(err)
	name, ok := converted.(*object.Instance).Member("name")
	r.True(ok)
	r.Equal("rex", name)

	_, err = d.ConvertTo(types.Double)
	r.Error(err)
}

type typed struct{}

func (typed) Type() types.Type { return types.Decimal }

func TestTypeOf(t *testing.T) {
	tests := []struct {
		value any
		want  types.Type
	}{
		{nil, types.Null},
		{true, types.Bool},
		{"s", types.String},
		{object.Symbol("s"), types.Symbol},
		{object.Char('c'), types.Char},
		{int8(1), types.Int8},
		{uint16(1), types.UInt16},
		{int32(1), types.Int32},
		{1, types.Int64},
		{float32(1), types.Single},
		{1.5, types.Double},
		{decimal.NewFromInt(1), types.Decimal},
		{big.NewInt(1), types.BigInteger},
		{object.NewHash(), types.Hash},
		{typed{}, types.Decimal},
		{object.List{}, types.Object},
	}

	for _, test := range tests {
		require.True(t, types.Equal(test.want, object.TypeOf(test.value)), "%#v", test.value)
	}

	require.True(t, types.Equal(types.NewBox(types.Int32), object.TypeOf(object.NewBox(types.Int32, int32(1)))))
}

func TestInspect(t *testing.T) {
	r := require.New(t)

	r.Equal("nil", object.Inspect(nil))
	r.Equal(`"s"`, object.Inspect("s"))
	r.Equal(":s", object.Inspect(object.Symbol("s")))
	r.Equal("?c", object.Inspect(object.Char('c')))
	r.Equal(`[1, "a", nil]`, object.Inspect([]any{int32(1), "a", nil}))
	r.Equal("[true, 2.5]", object.Inspect(object.Tuple{true, 2.5}))
	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	r.True(ok)
	r.Equal("123456789012345678901234567890", object.Inspect(huge))
	r.Equal("Box<int32>(4)", object.Inspect(object.NewBox(types.Int32, int32(4))))
}

func TestZero(t *testing.T) {
	r := require.New(t)

	r.Equal(int32(0), object.Zero(types.Int32))
	r.Equal(false, object.Zero(types.Bool))
	r.Equal("", object.Zero(types.String))
	r.Equal(object.Char(0), object.Zero(types.Char))
	r.Nil(object.Zero(types.Object))
}
