package binder

import (
	"fmt"

	"github.com/rhino1998/callbind/pkg/binder/plan"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/interpreter"
)

// Plan is the executable form of a bound call. Tree is always built; Delegate
// is a closure fast path set when no argument is read out of a spread, no
// parameter is by-ref and the result needs no shaping.
type Plan struct {
	Candidate *MethodCandidate
	Tree      *plan.Lambda
	Delegate  func(args []any) (any, error)
}

func (p *Plan) HasDelegate() bool { return p.Delegate != nil }

// Invoke runs the plan against the call-site arguments.
func (p *Plan) Invoke(args []any) (any, error) {
	if p.Delegate != nil {
		return p.Delegate(args)
	}

	return interpreter.Execute(p.Tree, args)
}

func (p *Plan) String() string {
	return plan.Format(p.Tree)
}

func (b *Binder) BuildExecutionPlan(c *MethodCandidate, args *ActualArguments) (*Plan, error) {
	if !c.shaped {
		return nil, fmt.Errorf("bug: building a plan for unshaped candidate %s", c)
	}

	tree, err := b.buildTree(c, args)
	if err != nil {
		return nil, fmt.Errorf("failed to build plan for %s: %w", c, err)
	}

	p := &Plan{
		Candidate: c,
		Tree:      tree,
	}

	if !b.Config.DisableDelegates {
		p.Delegate = b.buildDelegate(c, args)
	}

	return p, nil
}

func checkConsumed(ctx *buildContext, c *MethodCandidate) {
	if unused := ctx.unused(); len(unused) > 0 {
		panic(fmt.Sprintf("bug: %s left arguments %v unconsumed", c, unused))
	}
}

func (b *Binder) buildTree(c *MethodCandidate, args *ActualArguments) (*plan.Lambda, error) {
	ctx := newBuildContext(args, b.conversions)

	callArgs := make([]plan.Node, len(c.builders))
	for i, builder := range c.builders {
		node, err := builder.ToExpression(ctx)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		callArgs[i] = node
	}

	m := c.method
	call := &plan.Call{Target: m, Args: callArgs, Typ: m.ReturnType()}

	var ret plan.Node = call
	_, basic := c.returnBuilder.(*basicReturnBuilder)
	if !basic || len(ctx.after) > 0 {
		if m.ReturnType() == types.Void {
			ctx.builder.Add(call)
			ret = nil
		} else {
			ret = ctx.builder.Assign("ret", call)
		}
		ctx.builder.Add(ctx.after...)
	}

	result, err := c.returnBuilder.ToExpression(ctx, ret)
	if err != nil {
		return nil, err
	}

	checkConsumed(ctx, c)

	return &plan.Lambda{
		Name:  m.String(),
		Arity: args.RawCount(),
		Body:  ctx.builder.Block(result),
	}, nil
}

func (b *Binder) buildDelegate(c *MethodCandidate, args *ActualArguments) func([]any) (any, error) {
	if args.HasSpread() || args.CollapsedCount() > 0 {
		return nil
	}

	if _, ok := c.returnBuilder.(*basicReturnBuilder); !ok {
		return nil
	}

	ctx := newBuildContext(args, b.conversions)
	fns := make([]argFunc, len(c.builders))
	for i, builder := range c.builders {
		fn, ok := builder.ToDelegate(ctx)
		if !ok {
			return nil
		}
		fns[i] = fn
	}

	checkConsumed(ctx, c)

	m := c.method
	arity := args.RawCount()
	return func(callArgs []any) (any, error) {
		if len(callArgs) != arity {
			return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", interpreter.ErrArgument, m, arity, len(callArgs))
		}

		vals := make([]any, len(fns))
		for i, fn := range fns {
			v, err := fn(callArgs)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}

		return m.Call(vals)
	}
}
