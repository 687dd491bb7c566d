// Package object holds the runtime values that execution plans read and produce.
package object

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/shopspring/decimal"
)

var ErrReadOnlyAssignment = errors.New("read-only assignment")

type ReadOnlyAssignmentError struct {
	Type   string
	Member string
}

func (e *ReadOnlyAssignmentError) Error() string {
	return fmt.Sprintf("%s: cannot assign read-only member %s of %s", ErrReadOnlyAssignment, e.Member, e.Type)
}

func (e *ReadOnlyAssignmentError) Is(target error) bool {
	return target == ErrReadOnlyAssignment
}

type Symbol string

func (s Symbol) String() string { return ":" + string(s) }

// Char is a single character. It is distinct from int32 so that its type survives at run time.
type Char rune

func (c Char) String() string { return fmt.Sprintf("?%c", rune(c)) }

// Box is a mutable cell supplied by a caller for a by-ref parameter.
type Box struct {
	Elem  types.Type
	Value any
}

func NewBox(elem types.Type, value any) *Box {
	return &Box{Elem: elem, Value: value}
}

func (b *Box) String() string {
	return fmt.Sprintf("Box<%s>(%v)", b.Elem, b.Value)
}

// Ref is the temporary cell a callee receives for a by-ref or out parameter.
type Ref struct {
	Value any
}

// Sequence is a value spread into a call's argument list.
type Sequence interface {
	Len() int
	At(i int) any
}

type List []any

func (l List) Len() int { return len(l) }

func (l List) At(i int) any { return l[i] }

type Tuple []any

func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = Inspect(v)
	}

	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// Hash is an insertion-ordered dictionary with arbitrary comparable keys.
type Hash struct {
	keys   []any
	values map[any]any
}

func NewHash() *Hash {
	return &Hash{values: make(map[any]any)}
}

func (h *Hash) Set(key, value any) {
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

func (h *Hash) Get(key any) (any, bool) {
	v, ok := h.values[key]
	return v, ok
}

func (h *Hash) Keys() []any {
	return slices.Clone(h.keys)
}

func (h *Hash) Len() int { return len(h.keys) }

func (h *Hash) String() string {
	parts := make([]string, len(h.keys))
	for i, k := range h.keys {
		parts[i] = fmt.Sprintf("%s => %s", Inspect(k), Inspect(h.values[k]))
	}

	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

// MemberSetter is implemented by instances that keyword construction can assign into.
type MemberSetter interface {
	SetMember(name string, value any) error
}

// Instance is a generic instance of a registered class.
type Instance struct {
	Class  *types.Class
	fields map[string]any
}

func NewInstance(class *types.Class) *Instance {
	return &Instance{Class: class, fields: make(map[string]any)}
}

func (o *Instance) SetMember(name string, value any) error {
	member, ok := types.LookupMember(o.Class, name)
	if !ok {
		return fmt.Errorf("undefined member %s for %s", name, o.Class)
	}

	if member.ReadOnly {
		return &ReadOnlyAssignmentError{Type: o.Class.String(), Member: name}
	}

	o.fields[name] = value
	return nil
}

// Init sets a member without the read-only check, as a constructor does.
func (o *Instance) Init(name string, value any) {
	o.fields[name] = value
}

func (o *Instance) Member(name string) (any, bool) {
	v, ok := o.fields[name]
	return v, ok
}

// ConvertTo implements the explicit converters and conversion protocols a
// class declares. Converting to another class copies the members both share;
// converting to anything else yields the instance's value member.
func (o *Instance) ConvertTo(to types.Type) (any, error) {
	if class, ok := to.(*types.Class); ok {
		out := NewInstance(class)
		for name, v := range o.fields {
			if _, ok := types.LookupMember(class, name); ok {
				out.fields[name] = v
			}
		}
		return out, nil
	}

	v, ok := o.fields["value"]
	if !ok {
		return nil, fmt.Errorf("%s has no value to convert to %s", o.Class, to)
	}

	return v, nil
}

func (o *Instance) String() string {
	var parts []string
	for _, m := range types.Members(o.Class) {
		if v, ok := o.fields[m.Name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", m.Name, Inspect(v)))
		}
	}

	return fmt.Sprintf("#<%s %s>", o.Class, strings.Join(parts, " "))
}

// Inspect renders a runtime value the way the CLI prints results.
func Inspect(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", v)
	case []any:
		return Tuple(v).String()
	case *big.Int:
		return v.String()
	case decimal.Decimal:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// TypeOf returns the natural type of a runtime value.
func TypeOf(v any) types.Type {
	switch v := v.(type) {
	case nil:
		return types.Null
	case bool:
		return types.Bool
	case string:
		return types.String
	case Symbol:
		return types.Symbol
	case Char:
		return types.Char
	case int8:
		return types.Int8
	case uint8:
		return types.UInt8
	case int16:
		return types.Int16
	case uint16:
		return types.UInt16
	case int32:
		return types.Int32
	case uint32:
		return types.UInt32
	case int64, int:
		return types.Int64
	case uint64, uint:
		return types.UInt64
	case float32:
		return types.Single
	case float64:
		return types.Double
	case decimal.Decimal:
		return types.Decimal
	case *big.Int:
		return types.BigInteger
	case *Box:
		return types.NewBox(v.Elem)
	case *Instance:
		return v.Class
	case *Hash:
		return types.Hash
	case Typed:
		return v.Type()
	default:
		return types.Object
	}
}

// Convertible values implement their own explicit conversions.
type Convertible interface {
	ConvertTo(to types.Type) (any, error)
}

// Typed lets host values report their own type.
type Typed interface {
	Type() types.Type
}

var ErrIncorrectBoxType = errors.New("incorrect box type")

type BoxTypeError struct {
	Expected types.Type
	Actual   string
}

func (e *BoxTypeError) Error() string {
	return fmt.Sprintf("%s: expected Box<%s>, got %s", ErrIncorrectBoxType, e.Expected, e.Actual)
}

func (e *BoxTypeError) Is(target error) bool {
	return target == ErrIncorrectBoxType
}

// Zero returns the zero value of t's runtime representation.
func Zero(t types.Type) any {
	switch t {
	case types.Bool:
		return false
	case types.Char:
		return Char(0)
	case types.String:
		return ""
	case types.Int8:
		return int8(0)
	case types.UInt8:
		return uint8(0)
	case types.Int16:
		return int16(0)
	case types.UInt16:
		return uint16(0)
	case types.Int32:
		return int32(0)
	case types.UInt32:
		return uint32(0)
	case types.Int64:
		return int64(0)
	case types.UInt64:
		return uint64(0)
	case types.Single:
		return float32(0)
	case types.Double:
		return float64(0)
	case types.Decimal:
		return decimal.Zero
	case types.BigInteger:
		return new(big.Int)
	default:
		return nil
	}
}
