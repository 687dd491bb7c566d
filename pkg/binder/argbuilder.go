package binder

import (
	"fmt"

	"github.com/rhino1998/callbind/pkg/binder/plan"
	"github.com/rhino1998/callbind/pkg/binder/types"
)

// Builder priorities. When two candidates are otherwise equivalent the one
// whose highest-priority builder is lower wins.
const (
	simplePriority     = 0
	defaultPriority    = 2
	paramsDictPriority = 3
	paramsPriority     = 4
	referencePriority  = 5
)

type argFunc func(args []any) (any, error)

// buildContext carries the state shared by the builders of one plan.
type buildContext struct {
	builder     *plan.Builder
	args        *ActualArguments
	conversions Conversions
	used        []bool

	// after holds statements run once the callee returns.
	after []plan.Node
	// refs holds the by-ref values surfaced as extra return components, in parameter order.
	refs []plan.Node
}

func newBuildContext(args *ActualArguments, conversions Conversions) *buildContext {
	return &buildContext{
		builder:     &plan.Builder{},
		args:        args,
		conversions: conversions,
		used:        make([]bool, args.Count()),
	}
}

func (ctx *buildContext) use(i int) {
	if i < 0 || i >= len(ctx.used) {
		panic(fmt.Sprintf("bug: argument index %d out of range [0, %d)", i, len(ctx.used)))
	}

	if ctx.used[i] {
		panic(fmt.Sprintf("bug: argument %d consumed twice", i))
	}

	ctx.used[i] = true
}

func (ctx *buildContext) unused() []int {
	var out []int
	for i, used := range ctx.used {
		if !used {
			out = append(out, i)
		}
	}

	return out
}

func needsConversion(from, to types.Type) bool {
	return !types.IsAssignableTo(from, to)
}

func (ctx *buildContext) convert(node plan.Node, from, to types.Type) plan.Node {
	if !needsConversion(from, to) {
		return node
	}

	return &plan.Convert{Value: node, From: from, To: to, Using: ctx.conversions}
}

// rawIndex returns the call-site position a discrete argument is read from,
// when it is read directly rather than out of a spread.
func (ctx *buildContext) rawIndex(i int) (int, bool) {
	arg, ok := ctx.args.Node(i).(*plan.Argument)
	if !ok {
		return -1, false
	}

	return arg.Index, true
}

func (ctx *buildContext) convertFunc(i int, to types.Type) (argFunc, bool) {
	raw, ok := ctx.rawIndex(i)
	if !ok {
		return nil, false
	}

	from := ctx.args.Type(i)
	if !needsConversion(from, to) {
		return func(args []any) (any, error) {
			return args[raw], nil
		}, true
	}

	conversions := ctx.conversions
	return func(args []any) (any, error) {
		return conversions.Convert(args[raw], from, to)
	}, true
}

// ArgBuilder produces the value of one callee parameter from the actual arguments.
type ArgBuilder interface {
	// ConsumedArgumentCount is the number of actual arguments the builder reads.
	ConsumedArgumentCount() int
	Priority() int
	Parameter() ParameterDescriptor

	ToExpression(ctx *buildContext) (plan.Node, error)
	// ToDelegate returns a closure computing the value from the call-site
	// arguments, or false when the builder needs the tree path.
	ToDelegate(ctx *buildContext) (argFunc, bool)

	// Clone rebuilds the builder for a substituted parameter. It returns nil
	// when the builder cannot be retargeted.
	Clone(param ParameterDescriptor) ArgBuilder
}

// SimpleArgBuilder copies one positional argument.
type SimpleArgBuilder struct {
	param ParameterDescriptor
	index int
}

func NewSimpleArgBuilder(param ParameterDescriptor, index int) *SimpleArgBuilder {
	return &SimpleArgBuilder{param: param, index: index}
}

func (b *SimpleArgBuilder) ConsumedArgumentCount() int { return 1 }

func (b *SimpleArgBuilder) Priority() int { return simplePriority }

func (b *SimpleArgBuilder) Parameter() ParameterDescriptor { return b.param }

func (b *SimpleArgBuilder) Index() int { return b.index }

func (b *SimpleArgBuilder) ToExpression(ctx *buildContext) (plan.Node, error) {
	ctx.use(b.index)
	return ctx.convert(ctx.args.Node(b.index), ctx.args.Type(b.index), b.param.Type), nil
}

func (b *SimpleArgBuilder) ToDelegate(ctx *buildContext) (argFunc, bool) {
	ctx.use(b.index)
	return ctx.convertFunc(b.index, b.param.Type)
}

func (b *SimpleArgBuilder) Clone(param ParameterDescriptor) ArgBuilder {
	return &SimpleArgBuilder{param: param, index: b.index}
}

func (b *SimpleArgBuilder) at(index int) *SimpleArgBuilder {
	return &SimpleArgBuilder{param: b.param, index: index}
}

// KeywordArgBuilder binds the keyword argument at offset among count keyword
// arguments. Keyword arguments trail the argument list, so the absolute index
// is only fixed once the total argument count is known.
type KeywordArgBuilder struct {
	inner  *SimpleArgBuilder
	offset int
	count  int
}

func NewKeywordArgBuilder(param ParameterDescriptor, offset, count int) *KeywordArgBuilder {
	return &KeywordArgBuilder{inner: NewSimpleArgBuilder(param, -1), offset: offset, count: count}
}

func (b *KeywordArgBuilder) ConsumedArgumentCount() int { return 1 }

func (b *KeywordArgBuilder) Priority() int { return b.inner.Priority() }

func (b *KeywordArgBuilder) Parameter() ParameterDescriptor { return b.inner.param }

func (b *KeywordArgBuilder) resolve(ctx *buildContext) *SimpleArgBuilder {
	return b.inner.at(ctx.args.KeywordIndex(b.offset, b.count))
}

func (b *KeywordArgBuilder) ToExpression(ctx *buildContext) (plan.Node, error) {
	return b.resolve(ctx).ToExpression(ctx)
}

func (b *KeywordArgBuilder) ToDelegate(ctx *buildContext) (argFunc, bool) {
	return b.resolve(ctx).ToDelegate(ctx)
}

func (b *KeywordArgBuilder) Clone(param ParameterDescriptor) ArgBuilder {
	return NewKeywordArgBuilder(param, b.offset, b.count)
}

// DefaultArgBuilder supplies the declared default of an omitted optional parameter.
type DefaultArgBuilder struct {
	param ParameterDescriptor
	value any
}

func NewDefaultArgBuilder(param ParameterDescriptor, value any) *DefaultArgBuilder {
	return &DefaultArgBuilder{param: param, value: value}
}

func (b *DefaultArgBuilder) ConsumedArgumentCount() int { return 0 }

func (b *DefaultArgBuilder) Priority() int { return defaultPriority }

func (b *DefaultArgBuilder) Parameter() ParameterDescriptor { return b.param }

func (b *DefaultArgBuilder) ToExpression(ctx *buildContext) (plan.Node, error) {
	return &plan.Constant{Value: b.value, Typ: b.param.Type}, nil
}

func (b *DefaultArgBuilder) ToDelegate(ctx *buildContext) (argFunc, bool) {
	value := b.value
	return func([]any) (any, error) {
		return value, nil
	}, true
}

func (b *DefaultArgBuilder) Clone(param ParameterDescriptor) ArgBuilder {
	return &DefaultArgBuilder{param: param, value: b.value}
}

// ParamsArgBuilder packs count positional arguments starting at logical index
// start into a new array. Collapsed arguments in that range are copied in at
// run time.
type ParamsArgBuilder struct {
	param ParameterDescriptor
	start int
	count int
}

func NewParamsArgBuilder(param ParameterDescriptor, start, count int) *ParamsArgBuilder {
	return &ParamsArgBuilder{param: param, start: start, count: count}
}

func (b *ParamsArgBuilder) ConsumedArgumentCount() int { return b.count }

func (b *ParamsArgBuilder) Priority() int { return paramsPriority }

func (b *ParamsArgBuilder) Parameter() ParameterDescriptor { return b.param }

func (b *ParamsArgBuilder) elem() types.Type {
	elem, ok := types.Elem(b.param.Type)
	if !ok {
		panic(fmt.Sprintf("bug: params parameter %s is not an array", b.param))
	}

	return elem
}

func (b *ParamsArgBuilder) ToExpression(ctx *buildContext) (plan.Node, error) {
	elem := b.elem()
	array := &plan.NewArray{Elem: elem}

	for logical := b.start; logical < b.start+b.count; logical++ {
		i, ok := ctx.args.Discrete(logical)
		if !ok {
			if array.Collapsed == nil {
				array.CollapsedAt = len(array.Items)
				array.Collapsed = &plan.Collapsed{
					Splat: ctx.args.SplatIndex(),
					From:  ctx.args.ExpandedCount(),
					Elem:  elem,
				}
				if needsConversion(types.Dynamic, elem) {
					array.Collapsed.Using = ctx.conversions
				}
			}
			continue
		}

		ctx.use(i)
		array.Items = append(array.Items, ctx.convert(ctx.args.Node(i), ctx.args.Type(i), elem))
	}

	return array, nil
}

func (b *ParamsArgBuilder) ToDelegate(ctx *buildContext) (argFunc, bool) {
	elem := b.elem()
	items := make([]argFunc, 0, b.count)
	for logical := b.start; logical < b.start+b.count; logical++ {
		i, ok := ctx.args.Discrete(logical)
		if !ok {
			return nil, false
		}

		ctx.use(i)
		item, ok := ctx.convertFunc(i, elem)
		if !ok {
			return nil, false
		}
		items = append(items, item)
	}

	return func(args []any) (any, error) {
		out := make([]any, len(items))
		for i, item := range items {
			v, err := item(args)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}, true
}

func (b *ParamsArgBuilder) Clone(param ParameterDescriptor) ArgBuilder {
	if _, ok := types.Elem(param.Type); !ok {
		return nil
	}

	return &ParamsArgBuilder{param: param, start: b.start, count: b.count}
}

// ParamsDictArgBuilder packs the keyword arguments no parameter claimed into
// a dictionary built by the factory for the declared dictionary type.
type ParamsDictArgBuilder struct {
	param    ParameterDescriptor
	names    []string
	offsets  []int
	count    int
	strategy dictionaryStrategy
}

func NewParamsDictArgBuilder(param ParameterDescriptor, names []string, offsets []int, count int) (*ParamsDictArgBuilder, error) {
	strategy, ok := dictionaryStrategyFor(param.Type)
	if !ok {
		name := Unnamed
		if param.Info != nil {
			name = param.Info.Name
		}
		return nil, &UnsupportedDictionaryTypeError{Parameter: name, Type: param.Type}
	}

	return &ParamsDictArgBuilder{
		param:    param,
		names:    names,
		offsets:  offsets,
		count:    count,
		strategy: strategy,
	}, nil
}

func (b *ParamsDictArgBuilder) ConsumedArgumentCount() int { return len(b.names) }

func (b *ParamsDictArgBuilder) Priority() int { return paramsDictPriority }

func (b *ParamsDictArgBuilder) Parameter() ParameterDescriptor { return b.param }

func (b *ParamsDictArgBuilder) ToExpression(ctx *buildContext) (plan.Node, error) {
	dict := &plan.NewDictionary{Typ: b.param.Type, Factory: b.strategy.factory}

	for k, name := range b.names {
		i := ctx.args.KeywordIndex(b.offsets[k], b.count)
		if ctx.used[i] {
			continue
		}

		ctx.use(i)
		dict.Keys = append(dict.Keys, b.strategy.key(name))
		dict.Values = append(dict.Values, ctx.convert(ctx.args.Node(i), ctx.args.Type(i), b.strategy.value))
	}

	return dict, nil
}

func (b *ParamsDictArgBuilder) ToDelegate(ctx *buildContext) (argFunc, bool) {
	var keys []any
	var values []argFunc
	for k, name := range b.names {
		i := ctx.args.KeywordIndex(b.offsets[k], b.count)
		if ctx.used[i] {
			continue
		}

		ctx.use(i)
		value, ok := ctx.convertFunc(i, b.strategy.value)
		if !ok {
			return nil, false
		}
		keys = append(keys, b.strategy.key(name))
		values = append(values, value)
	}

	factory := b.strategy.factory
	return func(args []any) (any, error) {
		vals := make([]any, len(values))
		for i, value := range values {
			v, err := value(args)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return factory.Make(keys, vals)
	}, true
}

func (b *ParamsDictArgBuilder) Clone(param ParameterDescriptor) ArgBuilder {
	clone, err := NewParamsDictArgBuilder(param, b.names, b.offsets, b.count)
	if err != nil {
		return nil
	}

	return clone
}

// ReferenceArgBuilder passes a caller-supplied box to a by-ref parameter. The
// box is type-checked and unwrapped into a reference cell, and the cell's
// final value is written back into the box once the callee returns.
type ReferenceArgBuilder struct {
	inner ArgBuilder
	elem  types.Type
}

func NewReferenceArgBuilder(inner ArgBuilder, elem types.Type) *ReferenceArgBuilder {
	return &ReferenceArgBuilder{inner: inner, elem: elem}
}

func (b *ReferenceArgBuilder) ConsumedArgumentCount() int { return b.inner.ConsumedArgumentCount() }

func (b *ReferenceArgBuilder) Priority() int { return referencePriority }

func (b *ReferenceArgBuilder) Parameter() ParameterDescriptor { return b.inner.Parameter() }

func (b *ReferenceArgBuilder) ToExpression(ctx *buildContext) (plan.Node, error) {
	value, err := b.inner.ToExpression(ctx)
	if err != nil {
		return nil, err
	}

	box := ctx.builder.Assign("box", &plan.Unbox{Box: value, Elem: b.elem})
	ref := ctx.builder.Assign("ref", &plan.NewRef{Initial: &plan.BoxValue{Box: box, Elem: b.elem}, Elem: b.elem})
	ctx.after = append(ctx.after, &plan.StoreBox{Box: box, Value: &plan.RefValue{Ref: ref, Elem: b.elem}})

	return ref, nil
}

func (b *ReferenceArgBuilder) ToDelegate(ctx *buildContext) (argFunc, bool) {
	return nil, false
}

func (b *ReferenceArgBuilder) Clone(param ParameterDescriptor) ArgBuilder {
	elem, ok := types.Elem(param.Type)
	if !ok {
		return nil
	}

	inner := b.inner.Clone(param)
	if inner == nil {
		return nil
	}

	return &ReferenceArgBuilder{inner: inner, elem: elem}
}

// ReturnReferenceArgBuilder passes a plain value to a by-ref parameter and
// surfaces the parameter's final value as an extra return component.
type ReturnReferenceArgBuilder struct {
	inner ArgBuilder
}

func NewReturnReferenceArgBuilder(inner ArgBuilder) *ReturnReferenceArgBuilder {
	return &ReturnReferenceArgBuilder{inner: inner}
}

func (b *ReturnReferenceArgBuilder) ConsumedArgumentCount() int { return b.inner.ConsumedArgumentCount() }

func (b *ReturnReferenceArgBuilder) Priority() int { return referencePriority }

func (b *ReturnReferenceArgBuilder) Parameter() ParameterDescriptor { return b.inner.Parameter() }

func (b *ReturnReferenceArgBuilder) ToExpression(ctx *buildContext) (plan.Node, error) {
	value, err := b.inner.ToExpression(ctx)
	if err != nil {
		return nil, err
	}

	elem := b.Parameter().Type
	ref := ctx.builder.Assign("ref", &plan.NewRef{Initial: value, Elem: elem})
	ctx.refs = append(ctx.refs, &plan.RefValue{Ref: ref, Elem: elem})

	return ref, nil
}

func (b *ReturnReferenceArgBuilder) ToDelegate(ctx *buildContext) (argFunc, bool) {
	return nil, false
}

func (b *ReturnReferenceArgBuilder) Clone(param ParameterDescriptor) ArgBuilder {
	inner := b.inner.Clone(param)
	if inner == nil {
		return nil
	}

	return &ReturnReferenceArgBuilder{inner: inner}
}

// OutArgBuilder passes a fresh cell to an out parameter. It reads no argument.
type OutArgBuilder struct {
	param ParameterDescriptor
}

func NewOutArgBuilder(param ParameterDescriptor) *OutArgBuilder {
	return &OutArgBuilder{param: param}
}

func (b *OutArgBuilder) ConsumedArgumentCount() int { return 0 }

func (b *OutArgBuilder) Priority() int { return referencePriority }

func (b *OutArgBuilder) Parameter() ParameterDescriptor { return b.param }

func (b *OutArgBuilder) ToExpression(ctx *buildContext) (plan.Node, error) {
	ref := ctx.builder.Assign("out", &plan.NewRef{Elem: b.param.Type})
	ctx.refs = append(ctx.refs, &plan.RefValue{Ref: ref, Elem: b.param.Type})

	return ref, nil
}

func (b *OutArgBuilder) ToDelegate(ctx *buildContext) (argFunc, bool) {
	return nil, false
}

func (b *OutArgBuilder) Clone(param ParameterDescriptor) ArgBuilder {
	return &OutArgBuilder{param: param}
}
