// Package plan is the tree representation of a bound call: typed operations
// reading the call-site argument list, marshalling them into the callee's
// parameters, invoking it and shaping its result.
package plan

import (
	"fmt"
	"strings"

	"github.com/rhino1998/callbind/pkg/binder/types"
)

type Node interface {
	Type() types.Type
	String() string
}

// Converter performs the runtime half of a conversion chosen at bind time.
type Converter interface {
	Convert(value any, from, to types.Type) (any, error)
}

type Callable interface {
	Call(args []any) (any, error)
	String() string
}

// Argument reads position Index of the call-site argument list.
type Argument struct {
	Index int
	Typ   types.Type
}

func (n *Argument) Type() types.Type { return n.Typ }

func (n *Argument) String() string { return fmt.Sprintf("$%d", n.Index) }

// SplatItem reads element Offset of the sequence spread at argument position Splat.
type SplatItem struct {
	Splat  int
	Offset int
	Typ    types.Type
}

func (n *SplatItem) Type() types.Type { return n.Typ }

func (n *SplatItem) String() string { return fmt.Sprintf("$%d[%d]", n.Splat, n.Offset) }

// DictionaryItem reads the keyword Name out of the dictionary spread at
// argument position Dictionary. Symbol and string keys both match.
type DictionaryItem struct {
	Dictionary int
	Name       string
	Typ        types.Type
}

func (n *DictionaryItem) Type() types.Type { return n.Typ }

func (n *DictionaryItem) String() string { return fmt.Sprintf("$%d{%s}", n.Dictionary, n.Name) }

type Constant struct {
	Value any
	Typ   types.Type
}

func (n *Constant) Type() types.Type { return n.Typ }

func (n *Constant) String() string { return fmt.Sprintf("%#v", n.Value) }

type Convert struct {
	Value Node
	From  types.Type
	To    types.Type
	Using Converter
}

func (n *Convert) Type() types.Type { return n.To }

func (n *Convert) String() string {
	return fmt.Sprintf("(convert %s %s->%s)", n.Value, n.From, n.To)
}

// Collapsed is a run of spread elements whose count is only known when the
// plan runs. It starts at element From of the sequence at argument Splat.
type Collapsed struct {
	Splat int
	From  int
	Elem  types.Type
	Using Converter
}

func (n *Collapsed) String() string {
	return fmt.Sprintf("(each $%d[%d:] as %s)", n.Splat, n.From, n.Elem)
}

// NewArray builds an array from discrete items; when Collapsed is set its
// elements are copied in at item position CollapsedAt.
type NewArray struct {
	Elem        types.Type
	Items       []Node
	Collapsed   *Collapsed
	CollapsedAt int
}

func (n *NewArray) Type() types.Type { return types.NewArray(n.Elem) }

func (n *NewArray) String() string {
	parts := make([]string, 0, len(n.Items)+1)
	for i, item := range n.Items {
		if n.Collapsed != nil && i == n.CollapsedAt {
			parts = append(parts, n.Collapsed.String())
		}
		parts = append(parts, item.String())
	}
	if n.Collapsed != nil && n.CollapsedAt >= len(n.Items) {
		parts = append(parts, n.Collapsed.String())
	}

	return fmt.Sprintf("(array %s %s)", n.Elem, strings.Join(parts, " "))
}

// DictionaryFactory constructs a concrete dictionary for a declared dictionary type.
type DictionaryFactory struct {
	Name string
	Make func(keys []any, values []any) (any, error)
}

type NewDictionary struct {
	Typ     types.Type
	Factory DictionaryFactory
	Keys    []any
	Values  []Node
}

func (n *NewDictionary) Type() types.Type { return n.Typ }

func (n *NewDictionary) String() string {
	parts := make([]string, len(n.Keys))
	for i, key := range n.Keys {
		parts[i] = fmt.Sprintf("%v: %s", key, n.Values[i])
	}

	return fmt.Sprintf("(%s {%s})", n.Factory.Name, strings.Join(parts, ", "))
}

type Temp struct {
	ID   int
	Name string
	Typ  types.Type
}

func (n *Temp) Type() types.Type { return n.Typ }

func (n *Temp) String() string { return fmt.Sprintf("%%%s.%d", n.Name, n.ID) }

type Assign struct {
	Temp  *Temp
	Value Node
}

func (n *Assign) Type() types.Type { return n.Temp.Typ }

func (n *Assign) String() string { return fmt.Sprintf("(set %s %s)", n.Temp, n.Value) }

// Unbox type-checks a caller-supplied box and yields it.
type Unbox struct {
	Box  Node
	Elem types.Type
}

func (n *Unbox) Type() types.Type { return types.NewBox(n.Elem) }

func (n *Unbox) String() string { return fmt.Sprintf("(unbox %s %s)", n.Box, n.Elem) }

// BoxValue reads the current value held by a box.
type BoxValue struct {
	Box  Node
	Elem types.Type
}

func (n *BoxValue) Type() types.Type { return n.Elem }

func (n *BoxValue) String() string { return fmt.Sprintf("(boxval %s)", n.Box) }

// StoreBox writes Value back into a caller-supplied box.
type StoreBox struct {
	Box   Node
	Value Node
}

func (n *StoreBox) Type() types.Type { return types.Void }

func (n *StoreBox) String() string { return fmt.Sprintf("(store %s %s)", n.Box, n.Value) }

// NewRef creates the cell a callee writes a by-ref parameter through.
type NewRef struct {
	Initial Node
	Elem    types.Type
}

func (n *NewRef) Type() types.Type { return n.Elem }

func (n *NewRef) String() string {
	if n.Initial == nil {
		return fmt.Sprintf("(ref %s)", n.Elem)
	}
	return fmt.Sprintf("(ref %s %s)", n.Elem, n.Initial)
}

// RefValue reads the final value of a by-ref cell.
type RefValue struct {
	Ref  Node
	Elem types.Type
}

func (n *RefValue) Type() types.Type { return n.Elem }

func (n *RefValue) String() string { return fmt.Sprintf("(deref %s)", n.Ref) }

type Call struct {
	Target Callable
	Args   []Node
	Typ    types.Type
}

func (n *Call) Type() types.Type { return n.Typ }

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}

	return fmt.Sprintf("(call %s %s)", n.Target, strings.Join(args, " "))
}

type Tuple struct {
	Items []Node
}

func (n *Tuple) Type() types.Type {
	elems := make([]types.Type, len(n.Items))
	for i, item := range n.Items {
		elems[i] = item.Type()
	}

	return types.NewTuple(elems...)
}

func (n *Tuple) String() string {
	items := make([]string, len(n.Items))
	for i, item := range n.Items {
		items[i] = item.String()
	}

	return fmt.Sprintf("(tuple %s)", strings.Join(items, " "))
}

// SetMember assigns a field or property of Target, failing at run time when the member is read-only.
type SetMember struct {
	Target Node
	Owner  types.Type
	Member types.Member
	Value  Node
}

func (n *SetMember) Type() types.Type { return types.Void }

func (n *SetMember) String() string {
	return fmt.Sprintf("(setmember %s.%s %s)", n.Target, n.Member.Name, n.Value)
}

type Block struct {
	Vars   []*Temp
	Body   []Node
	Result Node
}

func (n *Block) Type() types.Type {
	if n.Result == nil {
		return types.Void
	}

	return n.Result.Type()
}

func (n *Block) String() string {
	parts := make([]string, 0, len(n.Body)+1)
	for _, stmt := range n.Body {
		parts = append(parts, stmt.String())
	}
	if n.Result != nil {
		parts = append(parts, n.Result.String())
	}

	return fmt.Sprintf("(block %s)", strings.Join(parts, " "))
}

// Lambda is a complete plan taking the call-site argument list.
type Lambda struct {
	Name  string
	Arity int
	Body  Node
}

func (n *Lambda) Type() types.Type { return n.Body.Type() }

func (n *Lambda) String() string {
	return fmt.Sprintf("(lambda %s/%d %s)", n.Name, n.Arity, n.Body)
}
