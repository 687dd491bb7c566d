// Package interpreter executes plan trees against a call-site argument list.
package interpreter

import (
	"errors"
	"fmt"

	"github.com/rhino1998/callbind/pkg/binder/plan"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
)

var ErrArgument = errors.New("invalid call-site argument")

func Execute(l *plan.Lambda, args []Value) (Value, error) {
	if len(args) != l.Arity {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrArgument, l.Name, l.Arity, len(args))
	}

	state := newState(l, args)

	return state.evaluate(newScope(nil), l.Body)
}

type State struct {
	lambda *plan.Lambda
	args   []Value
}

func newState(l *plan.Lambda, args []Value) *State {
	return &State{
		lambda: l,
		args:   args,
	}
}

func (s *State) argument(index int) (Value, error) {
	if index < 0 || index >= len(s.args) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrArgument, index)
	}

	return s.args[index], nil
}

func (s *State) sequence(index int) (object.Sequence, error) {
	v, err := s.argument(index)
	if err != nil {
		return nil, err
	}

	seq, ok := v.(object.Sequence)
	if !ok {
		return nil, fmt.Errorf("%w: argument %d is %T, not a sequence", ErrArgument, index, v)
	}

	return seq, nil
}

func (s *State) evaluateAll(scope *Scope, nodes []plan.Node) ([]Value, error) {
	vals := make([]Value, len(nodes))
	for i, node := range nodes {
		v, err := s.evaluate(scope, node)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	return vals, nil
}

func (s *State) evaluate(scope *Scope, node plan.Node) (Value, error) {
	switch node := node.(type) {
	case *plan.Argument:
		return s.argument(node.Index)
	case *plan.SplatItem:
		seq, err := s.sequence(node.Splat)
		if err != nil {
			return nil, err
		}
		if node.Offset >= seq.Len() {
			return nil, fmt.Errorf("%w: spread argument has %d elements, need %d", ErrArgument, seq.Len(), node.Offset+1)
		}
		return seq.At(node.Offset), nil
	case *plan.DictionaryItem:
		return s.dictionaryItem(node)
	case *plan.Constant:
		return node.Value, nil
	case *plan.Convert:
		v, err := s.evaluate(scope, node.Value)
		if err != nil {
			return nil, err
		}
		return node.Using.Convert(v, node.From, node.To)
	case *plan.NewArray:
		return s.newArray(scope, node)
	case *plan.NewDictionary:
		vals, err := s.evaluateAll(scope, node.Values)
		if err != nil {
			return nil, err
		}
		return node.Factory.Make(node.Keys, vals)
	case *plan.Temp:
		v, ok := scope.Get(node)
		if !ok {
			return nil, fmt.Errorf("bug: temporary %s read before declaration", node)
		}
		return v, nil
	case *plan.Assign:
		v, err := s.evaluate(scope, node.Value)
		if err != nil {
			return nil, err
		}
		return v, scope.Set(node.Temp, v)
	case *plan.Unbox:
		v, err := s.evaluate(scope, node.Box)
		if err != nil {
			return nil, err
		}
		box, ok := v.(*object.Box)
		if !ok {
			return nil, &object.BoxTypeError{Expected: node.Elem, Actual: fmt.Sprintf("%T", v)}
		}
		if !types.Equal(box.Elem, node.Elem) {
			return nil, &object.BoxTypeError{Expected: node.Elem, Actual: types.NewBox(box.Elem).String()}
		}
		return box, nil
	case *plan.BoxValue:
		box, err := s.box(scope, node.Box)
		if err != nil {
			return nil, err
		}
		return box.Value, nil
	case *plan.StoreBox:
		box, err := s.box(scope, node.Box)
		if err != nil {
			return nil, err
		}
		v, err := s.evaluate(scope, node.Value)
		if err != nil {
			return nil, err
		}
		box.Value = v
		return nil, nil
	case *plan.NewRef:
		if node.Initial == nil {
			return &object.Ref{Value: object.Zero(node.Elem)}, nil
		}
		v, err := s.evaluate(scope, node.Initial)
		if err != nil {
			return nil, err
		}
		return &object.Ref{Value: v}, nil
	case *plan.RefValue:
		v, err := s.evaluate(scope, node.Ref)
		if err != nil {
			return nil, err
		}
		ref, ok := v.(*object.Ref)
		if !ok {
			return nil, fmt.Errorf("bug: %s is %T, not a ref", node.Ref, v)
		}
		return ref.Value, nil
	case *plan.Call:
		args, err := s.evaluateAll(scope, node.Args)
		if err != nil {
			return nil, err
		}
		return node.Target.Call(args)
	case *plan.Tuple:
		vals, err := s.evaluateAll(scope, node.Items)
		if err != nil {
			return nil, err
		}
		return object.Tuple(vals), nil
	case *plan.SetMember:
		return nil, s.setMember(scope, node)
	case *plan.Block:
		inner := newScope(scope)
		for _, v := range node.Vars {
			err := inner.Declare(v)
			if err != nil {
				return nil, err
			}
		}
		for _, stmt := range node.Body {
			_, err := s.evaluate(inner, stmt)
			if err != nil {
				return nil, err
			}
		}
		if node.Result == nil {
			return nil, nil
		}
		return s.evaluate(inner, node.Result)
	default:
		return nil, fmt.Errorf("bug: unhandled plan node %T", node)
	}
}

func (s *State) box(scope *Scope, node plan.Node) (*object.Box, error) {
	v, err := s.evaluate(scope, node)
	if err != nil {
		return nil, err
	}

	box, ok := v.(*object.Box)
	if !ok {
		return nil, fmt.Errorf("bug: %s is %T, not a box", node, v)
	}

	return box, nil
}

func (s *State) dictionaryItem(node *plan.DictionaryItem) (Value, error) {
	v, err := s.argument(node.Dictionary)
	if err != nil {
		return nil, err
	}

	var (
		item Value
		ok   bool
	)
	switch dict := v.(type) {
	case *object.Hash:
		item, ok = dict.Get(object.Symbol(node.Name))
		if !ok {
			item, ok = dict.Get(node.Name)
		}
	case map[string]any:
		item, ok = dict[node.Name]
	default:
		return nil, fmt.Errorf("%w: argument %d is %T, not a dictionary", ErrArgument, node.Dictionary, v)
	}

	if !ok {
		return nil, fmt.Errorf("%w: spread dictionary is missing key %s", ErrArgument, node.Name)
	}

	return item, nil
}

func (s *State) newArray(scope *Scope, node *plan.NewArray) (Value, error) {
	items, err := s.evaluateAll(scope, node.Items)
	if err != nil {
		return nil, err
	}

	if node.Collapsed == nil {
		return items, nil
	}

	seq, err := s.sequence(node.Collapsed.Splat)
	if err != nil {
		return nil, err
	}

	count := seq.Len() - node.Collapsed.From
	if count < 0 {
		return nil, fmt.Errorf("%w: spread argument has %d elements, need at least %d", ErrArgument, seq.Len(), node.Collapsed.From)
	}

	at := min(node.CollapsedAt, len(items))
	out := make([]Value, 0, len(items)+count)
	out = append(out, items[:at]...)
	for i := 0; i < count; i++ {
		v := seq.At(node.Collapsed.From + i)
		if node.Collapsed.Using != nil {
			v, err = node.Collapsed.Using.Convert(v, object.TypeOf(v), node.Collapsed.Elem)
			if err != nil {
				return nil, fmt.Errorf("spread element %d: %w", node.Collapsed.From+i, err)
			}
		}
		out = append(out, v)
	}
	out = append(out, items[at:]...)

	return out, nil
}

func (s *State) setMember(scope *Scope, node *plan.SetMember) error {
	target, err := s.evaluate(scope, node.Target)
	if err != nil {
		return err
	}

	if node.Member.ReadOnly {
		return &object.ReadOnlyAssignmentError{Type: node.Owner.String(), Member: node.Member.Name}
	}

	setter, ok := target.(object.MemberSetter)
	if !ok {
		return fmt.Errorf("cannot assign member %s on %T", node.Member.Name, target)
	}

	v, err := s.evaluate(scope, node.Value)
	if err != nil {
		return err
	}

	return setter.SetMember(node.Member.Name, v)
}
