package interpreter_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rhino1998/callbind/pkg/binder/plan"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/interpreter"
	"github.com/rhino1998/callbind/pkg/object"
	"github.com/stretchr/testify/require"
)

type callable struct {
	name string
	fn   func(args []any) (any, error)
}

func (c callable) Call(args []any) (any, error) { return c.fn(args) }

func (c callable) String() string { return c.name }

type double struct{}

func (double) Convert(value any, from, to types.Type) (any, error) {
	n, ok := value.(int32)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T", value)
	}

	return int64(n) * 2, nil
}

func TestExecuteCallsThroughBlock(t *testing.T) {
	r := require.New(t)

	var received []any
	target := callable{name: "target", fn: func(args []any) (any, error) {
		received = args
		args[1].(*object.Ref).Value = "written"
		return "result", nil
	}}

	var b plan.Builder
	ref := b.Assign("ref", &plan.NewRef{Elem: types.String})
	ret := b.Assign("ret", &plan.Call{
		Target: target,
		Args:   []plan.Node{&plan.Argument{Index: 0, Typ: types.Int32}, ref},
		Typ:    types.String,
	})
	l := &plan.Lambda{
		Name:  "target",
		Arity: 1,
		Body: b.Block(&plan.Tuple{Items: []plan.Node{
			ret,
			&plan.RefValue{Ref: ref, Elem: types.String},
		}}),
	}

	got, err := interpreter.Execute(l, []any{int32(1)})
	r.NoError(err)
	r.Equal(object.Tuple{"result", "written"}, got)
	r.Equal(int32(1), received[0])
}

func TestExecuteArity(t *testing.T) {
	l := &plan.Lambda{Name: "f", Arity: 2, Body: &plan.Constant{Value: 1, Typ: types.Int64}}

	_, err := interpreter.Execute(l, []any{1})
	require.ErrorIs(t, err, interpreter.ErrArgument)
}

func TestNewArrayWithCollapsed(t *testing.T) {
	r := require.New(t)

	l := &plan.Lambda{
		Name:  "array",
		Arity: 2,
		Body: &plan.NewArray{
			Elem: types.Int64,
			Items: []plan.Node{
				&plan.Convert{Value: &plan.Argument{Index: 0, Typ: types.Int32}, From: types.Int32, To: types.Int64, Using: double{}},
				&plan.SplatItem{Splat: 1, Offset: 0, Typ: types.Int32},
			},
			CollapsedAt: 2,
			Collapsed:   &plan.Collapsed{Splat: 1, From: 1, Elem: types.Int64, Using: double{}},
		},
	}

	got, err := interpreter.Execute(l, []any{int32(1), object.List{int32(2), int32(3), int32(4)}})
	r.NoError(err)
	r.Equal([]any{int64(2), int32(2), int64(6), int64(8)}, got)

	got, err = interpreter.Execute(l, []any{int32(1), object.List{int32(2)}})
	r.NoError(err)
	r.Equal([]any{int64(2), int32(2)}, got)

	_, err = interpreter.Execute(l, []any{int32(1), object.List{}})
	r.ErrorIs(err, interpreter.ErrArgument)

	_, err = interpreter.Execute(l, []any{int32(1), "not a sequence"})
	r.ErrorIs(err, interpreter.ErrArgument)
}

func TestDictionaryItem(t *testing.T) {
	r := require.New(t)

	l := &plan.Lambda{
		Name:  "item",
		Arity: 1,
		Body:  &plan.DictionaryItem{Dictionary: 0, Name: "a", Typ: types.Object},
	}

	h := object.NewHash()
	h.Set(object.Symbol("a"), "found")
	got, err := interpreter.Execute(l, []any{h})
	r.NoError(err)
	r.Equal("found", got)

	h = object.NewHash()
	h.Set("a", "string key")
	got, err = interpreter.Execute(l, []any{h})
	r.NoError(err)
	r.Equal("string key", got)

	got, err = interpreter.Execute(l, []any{map[string]any{"a": "map"}})
	r.NoError(err)
	r.Equal("map", got)

	_, err = interpreter.Execute(l, []any{object.NewHash()})
	r.ErrorIs(err, interpreter.ErrArgument)
}

func TestUnboxChecksElementType(t *testing.T) {
	r := require.New(t)

	var b plan.Builder
	box := b.Assign("box", &plan.Unbox{Box: &plan.Argument{Index: 0, Typ: types.NewBox(types.Int32)}, Elem: types.Int32})
	b.Add(&plan.StoreBox{Box: box, Value: &plan.Constant{Value: int32(9), Typ: types.Int32}})
	l := &plan.Lambda{Name: "store", Arity: 1, Body: b.Block(&plan.BoxValue{Box: box, Elem: types.Int32})}

	cell := object.NewBox(types.Int32, int32(1))
	got, err := interpreter.Execute(l, []any{cell})
	r.NoError(err)
	r.Equal(int32(9), got)
	r.Equal(int32(9), cell.Value)

	_, err = interpreter.Execute(l, []any{object.NewBox(types.String, "x")})
	r.ErrorIs(err, object.ErrIncorrectBoxType)

	var boxErr *object.BoxTypeError
	r.True(errors.As(err, &boxErr))
	r.Equal("Box<string>", boxErr.Actual)
}

func TestSetMember(t *testing.T) {
	r := require.New(t)

	point := types.NewClass("Point", nil).
		With(types.Member{Name: "x", Type: types.Int32}).
		With(types.Member{Name: "id", Type: types.Int32, ReadOnly: true})

	build := func(member types.Member) *plan.Lambda {
		var b plan.Builder
		inst := b.Assign("inst", &plan.Argument{Index: 0, Typ: point})
		b.Add(&plan.SetMember{Target: inst, Owner: point, Member: member, Value: &plan.Argument{Index: 1, Typ: types.Int32}})
		return &plan.Lambda{Name: "set", Arity: 2, Body: b.Block(inst)}
	}

	x, _ := types.LookupMember(point, "x")
	got, err := interpreter.Execute(build(x), []any{object.NewInstance(point), int32(5)})
	r.NoError(err)
	v, ok := got.(*object.Instance).Member("x")
	r.True(ok)
	r.Equal(int32(5), v)

	id, _ := types.LookupMember(point, "id")
	_, err = interpreter.Execute(build(id), []any{object.NewInstance(point), int32(5)})
	r.ErrorIs(err, object.ErrReadOnlyAssignment)
}
