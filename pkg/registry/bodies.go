package registry

import (
	"fmt"
	"slices"

	"github.com/rhino1998/callbind/pkg/binder"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
)

// Body names a canned method implementation for declared methods.
type Body string

const (
	// BodyEcho returns its arguments: a single argument bare, several as a tuple.
	BodyEcho Body = "echo"
	// BodyFirst returns its first argument.
	BodyFirst Body = "first"
	// BodyConst returns the method's declared value.
	BodyConst Body = "const"
	// BodyConstruct builds an instance of the declaring class from its arguments.
	BodyConstruct Body = "construct"
	// BodySignature returns the signature of the method that ran.
	BodySignature Body = "signature"
	// BodyOut stores the declared value into every by-ref parameter and
	// reports success: it returns true from bool methods and the value otherwise.
	BodyOut Body = "out"
)

var bodies = []Body{BodyEcho, BodyFirst, BodyConst, BodyConstruct, BodySignature, BodyOut}

func (b Body) Valid() bool {
	return slices.Contains(bodies, b)
}

func deref(v any) any {
	if ref, ok := v.(*object.Ref); ok {
		return ref.Value
	}

	return v
}

// Implementation returns the implementation of b. Value is used by the
// const and out bodies.
func (b Body) Implementation(value any) (binder.Implementation, error) {
	switch b {
	case BodyEcho:
		return binder.ImplementationFunc(func(inv *binder.Invocation) (any, error) {
			if len(inv.Args) == 1 {
				return deref(inv.Args[0]), nil
			}
			out := make(object.Tuple, len(inv.Args))
			for i, arg := range inv.Args {
				out[i] = deref(arg)
			}
			return out, nil
		}), nil
	case BodyFirst:
		return binder.ImplementationFunc(func(inv *binder.Invocation) (any, error) {
			if len(inv.Args) == 0 {
				return nil, nil
			}
			return deref(inv.Args[0]), nil
		}), nil
	case BodyConst:
		return binder.ImplementationFunc(func(inv *binder.Invocation) (any, error) {
			return value, nil
		}), nil
	case BodyConstruct:
		return binder.ImplementationFunc(construct), nil
	case BodySignature:
		return binder.ImplementationFunc(func(inv *binder.Invocation) (any, error) {
			return inv.Method.String(), nil
		}), nil
	case BodyOut:
		return binder.ImplementationFunc(func(inv *binder.Invocation) (any, error) {
			for i, p := range inv.Method.Parameters {
				if p.IsByRef() {
					inv.Ref(i).Value = value
				}
			}
			switch inv.Method.ReturnType() {
			case types.Void:
				return nil, nil
			case types.Bool:
				return true, nil
			default:
				return value, nil
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown body %q", b)
	}
}

func construct(inv *binder.Invocation) (any, error) {
	class, ok := inv.Method.DeclaringType.(*types.Class)
	if !ok {
		return nil, fmt.Errorf("%s does not declare a class", inv.Method)
	}

	inst := object.NewInstance(class)
	for i, p := range inv.Method.Parameters {
		if _, ok := types.LookupMember(class, p.Name); ok {
			inst.Init(p.Name, deref(inv.Args[i]))
		}
	}

	return inst, nil
}
