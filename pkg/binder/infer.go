package binder

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/rhino1998/callbind/pkg/binder/kinds"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/topological"
)

// inferGenericMethod infers the type arguments of a shaped candidate of an
// open generic method and returns the candidate closed over them.
func (b *Binder) inferGenericMethod(c *MethodCandidate, args *ActualArguments) (*MethodCandidate, error) {
	m := c.method
	index := make(map[*types.TypeParameter]int, len(m.TypeParameters))
	for i, tp := range m.TypeParameters {
		index[tp] = i
	}

	ordered, err := topological.SortFunc(m.TypeParameters,
		func(tp *types.TypeParameter) int { return index[tp] },
		func(tp *types.TypeParameter) []*types.TypeParameter {
			var deps []*types.TypeParameter
			for _, constraint := range tp.Constraints {
				for _, ref := range types.References(constraint) {
					if _, ok := index[ref]; ok && ref != tp {
						deps = append(deps, ref)
					}
				}
			}
			return deps
		})
	if err != nil {
		return nil, &InferenceError{Reason: err.Error()}
	}

	inputs := make(map[*types.TypeParameter][]types.Type)
	for i := 0; i < args.Arity(); i++ {
		formal := c.parameters[i].Type
		if !types.IsOpen(formal) {
			continue
		}

		err := collectInputs(formal, args.TypeAt(i), inputs)
		if err != nil {
			return nil, err
		}
	}

	inferred := make(map[*types.TypeParameter]types.Type, len(ordered))
	for _, tp := range ordered {
		best, err := bestType(tp, inputs[tp])
		if err != nil {
			return nil, err
		}

		inferred[tp] = best
		err = checkConstraints(tp, best, inferred)
		if err != nil {
			return nil, err
		}

		b.logger.Debug("inferred type argument",
			slog.String("method", m.String()),
			slog.String("parameter", tp.Name()),
			slog.String("type", best.String()),
		)
	}

	typeArgs := make([]types.Type, len(m.TypeParameters))
	for i, tp := range m.TypeParameters {
		typeArgs[i] = inferred[tp]
	}

	closed, err := m.MakeGeneric(typeArgs)
	if err != nil {
		return nil, &InferenceError{Reason: err.Error()}
	}

	out := &MethodCandidate{
		method:        closed,
		parameters:    make([]ParameterDescriptor, len(c.parameters)),
		expanded:      c.expanded,
		reduced:       c.reduced,
		shaped:        true,
		returnBuilder: c.returnBuilder.Substitute(inferred),
	}
	for i, p := range c.parameters {
		out.parameters[i] = p.Substitute(inferred)
	}
	if c.paramsDict != nil {
		dict := c.paramsDict.Substitute(inferred)
		out.paramsDict = &dict
	}

	for _, builder := range c.builders {
		clone := builder.Clone(builder.Parameter().Substitute(inferred))
		if clone == nil {
			return nil, &InferenceError{Reason: fmt.Sprintf("%T for %s cannot be retargeted", builder, builder.Parameter())}
		}
		out.builders = append(out.builders, clone)
	}

	return out, nil
}

// collectInputs matches a formal parameter type against an argument type and
// records, for each type parameter the formal mentions, the type the argument
// implies for it.
func collectInputs(formal, actual types.Type, inputs map[*types.TypeParameter][]types.Type) error {
	switch f := formal.(type) {
	case *types.TypeParameter:
		switch actual {
		case types.Null:
			return nil
		case types.Dynamic:
			actual = types.Object
		}
		inputs[f] = append(inputs[f], actual)
		return nil
	case *types.Array:
		a, ok := actual.(*types.Array)
		if !ok {
			return nil
		}
		return collectInputs(f.Elem(), a.Elem(), inputs)
	case *types.Box:
		a, ok := actual.(*types.Box)
		if !ok {
			return nil
		}
		return collectInputs(f.Elem(), a.Elem(), inputs)
	case *types.Nullable:
		if a, ok := actual.(*types.Nullable); ok {
			return collectInputs(f.Elem(), a.Elem(), inputs)
		}
		if types.IsValueType(actual) {
			return collectInputs(f.Elem(), actual, inputs)
		}
		return nil
	case *types.Tuple:
		a, ok := actual.(*types.Tuple)
		if !ok || len(a.Elems()) != len(f.Elems()) {
			return nil
		}
		for i, elem := range f.Elems() {
			err := collectInputs(elem, a.Elems()[i], inputs)
			if err != nil {
				return err
			}
		}
		return nil
	case *types.Delegate:
		a, ok := actual.(*types.Delegate)
		if !ok {
			return nil
		}
		return collectSignature(f.Parameters, f.Return, a, inputs)
	case *types.Constructed:
		if a, ok := actual.(*types.Delegate); ok && f.Kind() == kinds.Delegate {
			params, ret := f.Signature()
			return collectSignature(params, ret, a, inputs)
		}

		var matches []*types.Constructed
		for _, super := range types.Hierarchy(actual) {
			sc, ok := super.(*types.Constructed)
			if !ok || sc.Definition() != f.Definition() {
				continue
			}
			if !slices.ContainsFunc(matches, func(m *types.Constructed) bool { return types.Equal(m, sc) }) {
				matches = append(matches, sc)
			}
		}

		switch len(matches) {
		case 0:
			return nil
		case 1:
		default:
			return &InferenceError{Reason: fmt.Sprintf("%s implements %s more than once", actual, f.Definition())}
		}

		for i, arg := range f.Args() {
			err := collectInputs(arg, matches[0].Args()[i], inputs)
			if err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func collectSignature(params []types.Type, ret types.Type, actual *types.Delegate, inputs map[*types.TypeParameter][]types.Type) error {
	if len(params) != len(actual.Parameters) {
		return nil
	}

	for i, p := range params {
		err := collectInputs(p, actual.Parameters[i], inputs)
		if err != nil {
			return err
		}
	}

	if ret != nil && actual.Return != nil && actual.Return != types.Void {
		return collectInputs(ret, actual.Return, inputs)
	}

	return nil
}

// bestType returns the input every other input is assignable to.
func bestType(tp *types.TypeParameter, inputs []types.Type) (types.Type, error) {
	if len(inputs) == 0 {
		return nil, &InferenceError{Parameter: tp, Reason: "no argument determines it"}
	}

	for _, candidate := range inputs {
		if !slices.ContainsFunc(inputs, func(in types.Type) bool { return !types.IsAssignableTo(in, candidate) }) {
			return candidate, nil
		}
	}

	return nil, &InferenceError{Parameter: tp, Reason: fmt.Sprintf("conflicting argument types %s", joinTypes(inputs))}
}

func checkConstraints(tp *types.TypeParameter, t types.Type, bindings map[*types.TypeParameter]types.Type) error {
	fail := func(format string, args ...any) error {
		return &InferenceError{Parameter: tp, Reason: fmt.Sprintf(format, args...)}
	}

	if tp.ReferenceType && !types.IsReferenceType(t) {
		return fail("%s is not a reference type", t)
	}

	if tp.ValueType && (!types.IsValueType(t) || t.Kind() == kinds.Nullable) {
		return fail("%s is not a non-nullable value type", t)
	}

	if tp.DefaultConstructor && !types.HasDefaultConstructor(t) {
		return fail("%s has no default constructor", t)
	}

	for _, constraint := range tp.Constraints {
		bound := types.Substitute(constraint, bindings)
		if types.IsOpen(bound) {
			return fail("constraint %s is not determined", bound)
		}

		if !types.IsAssignableTo(t, bound) {
			return fail("%s does not satisfy %s", t, bound)
		}
	}

	return nil
}
