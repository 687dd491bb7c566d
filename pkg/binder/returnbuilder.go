package binder

import (
	"github.com/rhino1998/callbind/pkg/binder/plan"
	"github.com/rhino1998/callbind/pkg/binder/types"
)

// ReturnBuilder shapes the value the plan returns from the callee's result.
// call is nil when the callee returns nothing.
type ReturnBuilder interface {
	CountOutParams() int
	ReturnType() types.Type
	ToExpression(ctx *buildContext, call plan.Node) (plan.Node, error)
	Substitute(bindings map[*types.TypeParameter]types.Type) ReturnBuilder
}

type basicReturnBuilder struct {
	typ types.Type
}

func NewReturnBuilder(typ types.Type) ReturnBuilder {
	return &basicReturnBuilder{typ: typ}
}

func (b *basicReturnBuilder) CountOutParams() int { return 0 }

func (b *basicReturnBuilder) ReturnType() types.Type { return b.typ }

func (b *basicReturnBuilder) ToExpression(ctx *buildContext, call plan.Node) (plan.Node, error) {
	return call, nil
}

func (b *basicReturnBuilder) Substitute(bindings map[*types.TypeParameter]types.Type) ReturnBuilder {
	return &basicReturnBuilder{typ: types.Substitute(b.typ, bindings)}
}

// byRefReturnBuilder composes the callee's result with the final values of
// the by-ref parameters no box was supplied for. A single component is
// returned bare, more than one as a tuple.
type byRefReturnBuilder struct {
	inner ReturnBuilder
	refs  []types.Type
}

func (b *byRefReturnBuilder) CountOutParams() int {
	if b.inner.ReturnType() == types.Void {
		return len(b.refs)
	}

	return len(b.refs) + 1
}

func (b *byRefReturnBuilder) components() []types.Type {
	var out []types.Type
	if ret := b.inner.ReturnType(); ret != types.Void {
		out = append(out, ret)
	}

	return append(out, b.refs...)
}

func (b *byRefReturnBuilder) ReturnType() types.Type {
	components := b.components()
	if len(components) == 1 {
		return components[0]
	}

	return types.NewTuple(components...)
}

func (b *byRefReturnBuilder) ToExpression(ctx *buildContext, call plan.Node) (plan.Node, error) {
	var items []plan.Node
	if b.inner.ReturnType() != types.Void {
		ret, err := b.inner.ToExpression(ctx, call)
		if err != nil {
			return nil, err
		}
		items = append(items, ret)
	}
	items = append(items, ctx.refs...)

	if len(items) == 1 {
		return items[0], nil
	}

	return &plan.Tuple{Items: items}, nil
}

func (b *byRefReturnBuilder) Substitute(bindings map[*types.TypeParameter]types.Type) ReturnBuilder {
	refs := make([]types.Type, len(b.refs))
	for i, ref := range b.refs {
		refs[i] = types.Substitute(ref, bindings)
	}

	return &byRefReturnBuilder{inner: b.inner.Substitute(bindings), refs: refs}
}

type memberAssignment struct {
	member types.Member
	offset int
}

// keywordConstructorReturnBuilder assigns the keyword arguments a
// constructor's parameters did not claim to members of the new instance, in
// the order they were supplied.
type keywordConstructorReturnBuilder struct {
	inner       ReturnBuilder
	owner       types.Type
	assignments []memberAssignment
	count       int
}

func (b *keywordConstructorReturnBuilder) CountOutParams() int { return b.inner.CountOutParams() }

func (b *keywordConstructorReturnBuilder) ReturnType() types.Type { return b.inner.ReturnType() }

func (b *keywordConstructorReturnBuilder) ToExpression(ctx *buildContext, call plan.Node) (plan.Node, error) {
	ret, err := b.inner.ToExpression(ctx, call)
	if err != nil {
		return nil, err
	}

	instance, ok := ret.(*plan.Temp)
	if !ok {
		instance = ctx.builder.Assign("instance", ret)
	}

	for _, a := range b.assignments {
		i := ctx.args.KeywordIndex(a.offset, b.count)
		ctx.use(i)
		ctx.builder.Add(&plan.SetMember{
			Target: instance,
			Owner:  b.owner,
			Member: a.member,
			Value:  ctx.convert(ctx.args.Node(i), ctx.args.Type(i), a.member.Type),
		})
	}

	return instance, nil
}

func (b *keywordConstructorReturnBuilder) Substitute(bindings map[*types.TypeParameter]types.Type) ReturnBuilder {
	return &keywordConstructorReturnBuilder{
		inner:       b.inner.Substitute(bindings),
		owner:       b.owner,
		assignments: b.assignments,
		count:       b.count,
	}
}
