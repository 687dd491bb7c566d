package binder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rhino1998/callbind/pkg/binder/plan"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
)

type ArgumentKind int

const (
	// Simple is a plain positional argument.
	Simple ArgumentKind = iota
	// Splat is a sequence spread into the positional arguments.
	Splat
	// Named is a keyword argument.
	Named
	// Dictionary is a dictionary spread into the keyword arguments.
	Dictionary
)

type ArgumentInfo struct {
	Kind ArgumentKind
	Name string
}

func SimpleArgument() ArgumentInfo { return ArgumentInfo{Kind: Simple} }

func NamedArgument(name string) ArgumentInfo { return ArgumentInfo{Kind: Named, Name: name} }

func SplatArgument() ArgumentInfo { return ArgumentInfo{Kind: Splat} }

func DictionaryArgument() ArgumentInfo { return ArgumentInfo{Kind: Dictionary} }

func (a ArgumentInfo) String() string {
	switch a.Kind {
	case Named:
		return a.Name + ":"
	case Splat:
		return "*"
	case Dictionary:
		return "**"
	default:
		return "_"
	}
}

// CallSignature describes the shape of a call site's argument list:
// positional arguments, at most one splat, keyword arguments and at most one
// dictionary spread, in that order.
type CallSignature struct {
	Arguments []ArgumentInfo
}

func NewCallSignature(args ...ArgumentInfo) CallSignature {
	return CallSignature{Arguments: args}
}

// PositionalSignature is the signature of a call with n simple arguments.
func PositionalSignature(n int) CallSignature {
	args := make([]ArgumentInfo, n)
	for i := range args {
		args[i] = SimpleArgument()
	}

	return CallSignature{Arguments: args}
}

func (s CallSignature) Len() int { return len(s.Arguments) }

func (s CallSignature) index(kind ArgumentKind) int {
	return slices.IndexFunc(s.Arguments, func(a ArgumentInfo) bool { return a.Kind == kind })
}

func (s CallSignature) HasSplat() bool { return s.index(Splat) != -1 }

func (s CallSignature) HasDictionary() bool { return s.index(Dictionary) != -1 }

func (s CallSignature) HasNamed() bool { return s.index(Named) != -1 }

func (s CallSignature) Validate() error {
	names := make(map[string]struct{})
	spreads := make(map[ArgumentKind]bool)
	last := Simple
	for i, arg := range s.Arguments {
		if arg.Kind < last {
			return fmt.Errorf("%w: %s argument at position %d is out of order in (%s)", ErrInvalidCallSignature, arg, i, s)
		}
		last = arg.Kind

		if arg.Kind == Splat || arg.Kind == Dictionary {
			if spreads[arg.Kind] {
				return fmt.Errorf("%w: more than one %s in (%s)", ErrInvalidCallSignature, arg, s)
			}
			spreads[arg.Kind] = true
		}

		if arg.Kind != Named {
			continue
		}
		if arg.Name == "" {
			return fmt.Errorf("%w: keyword argument at position %d has no name", ErrInvalidCallSignature, i)
		}
		if _, ok := names[arg.Name]; ok {
			return fmt.Errorf("%w: keyword %s given twice", ErrInvalidCallSignature, arg.Name)
		}
		names[arg.Name] = struct{}{}
	}

	return nil
}

func (s CallSignature) String() string {
	parts := make([]string, len(s.Arguments))
	for i, arg := range s.Arguments {
		parts[i] = arg.String()
	}

	return strings.Join(parts, ", ")
}

// RestrictedArguments are the runtime values of a call site paired with the
// types the binder may rely on.
type RestrictedArguments struct {
	values []any
	types  []types.Type

	// hasValueRestriction marks bindings that depend on more than the types,
	// which makes them unsuitable for caching.
	hasValueRestriction bool
}

func NewRestrictedArguments(values []any, argTypes []types.Type, hasValueRestriction bool) (*RestrictedArguments, error) {
	if len(values) != len(argTypes) {
		return nil, fmt.Errorf("restricted arguments have %d values but %d types", len(values), len(argTypes))
	}

	return &RestrictedArguments{
		values:              slices.Clone(values),
		types:               slices.Clone(argTypes),
		hasValueRestriction: hasValueRestriction,
	}, nil
}

// RestrictArguments restricts each value to its natural type.
func RestrictArguments(values ...any) *RestrictedArguments {
	argTypes := make([]types.Type, len(values))
	for i, v := range values {
		argTypes[i] = object.TypeOf(v)
	}

	return &RestrictedArguments{
		values: slices.Clone(values),
		types:  argTypes,
	}
}

func (a *RestrictedArguments) Len() int { return len(a.values) }

func (a *RestrictedArguments) Value(i int) any { return a.values[i] }

func (a *RestrictedArguments) Type(i int) types.Type { return a.types[i] }

func (a *RestrictedArguments) Values() []any { return slices.Clone(a.values) }

func (a *RestrictedArguments) HasValueRestriction() bool { return a.hasValueRestriction }

type actualArgument struct {
	node  plan.Node
	typ   types.Type
	value any
}

// ActualArguments is the normalized argument list a candidate is shaped
// against: positional arguments (with the splat expanded) followed by keyword
// arguments (with the dictionary spread expanded). Positional arguments past
// the splat expansion limit are collapsed: they are counted but only read at
// run time.
//
// Discrete indexes cover positional and keyword arguments. Logical indexes
// additionally count the collapsed arguments, which sit between the two.
type ActualArguments struct {
	signature CallSignature
	raw       *RestrictedArguments

	positional []actualArgument
	named      []actualArgument
	names      []string

	splat     int
	expanded  int
	collapsed int
}

// Count is the number of discrete arguments.
func (a *ActualArguments) Count() int { return len(a.positional) + len(a.named) }

func (a *ActualArguments) CollapsedCount() int { return a.collapsed }

// PositionalCount is the number of positional arguments including collapsed ones.
func (a *ActualArguments) PositionalCount() int { return len(a.positional) + a.collapsed }

// Arity is the number of logical arguments.
func (a *ActualArguments) Arity() int { return a.PositionalCount() + len(a.named) }

func (a *ActualArguments) NamedCount() int { return len(a.named) }

func (a *ActualArguments) Names() []string { return a.names }

func (a *ActualArguments) Signature() CallSignature { return a.signature }

func (a *ActualArguments) Restricted() *RestrictedArguments { return a.raw }

// RawCount is the length of the call site's argument list.
func (a *ActualArguments) RawCount() int { return a.raw.Len() }

// FirstCollapsed is the logical index of the first collapsed argument.
func (a *ActualArguments) FirstCollapsed() int { return len(a.positional) }

// SplatIndex is the call-site position of the splat, or -1.
func (a *ActualArguments) SplatIndex() int { return a.splat }

// ExpandedCount is the number of splat elements bound as discrete arguments.
func (a *ActualArguments) ExpandedCount() int { return a.expanded }

// HasSpread reports whether any argument is read out of a splat or dictionary spread.
func (a *ActualArguments) HasSpread() bool {
	return a.signature.HasSplat() || a.signature.HasDictionary()
}

func (a *ActualArguments) discrete(i int) actualArgument {
	if i < len(a.positional) {
		return a.positional[i]
	}

	return a.named[i-len(a.positional)]
}

func (a *ActualArguments) Node(i int) plan.Node { return a.discrete(i).node }

func (a *ActualArguments) Type(i int) types.Type { return a.discrete(i).typ }

func (a *ActualArguments) Value(i int) any { return a.discrete(i).value }

// Discrete maps a logical index to a discrete index. Collapsed arguments have none.
func (a *ActualArguments) Discrete(logical int) (int, bool) {
	switch {
	case logical < len(a.positional):
		return logical, true
	case logical < a.PositionalCount():
		return -1, false
	default:
		return logical - a.collapsed, true
	}
}

// TypeAt returns the bind-time type of a logical argument. Collapsed arguments are dynamic.
func (a *ActualArguments) TypeAt(logical int) types.Type {
	i, ok := a.Discrete(logical)
	if !ok {
		return types.Dynamic
	}

	return a.Type(i)
}

// KeywordIndex returns the discrete index of keyword argument k of count.
func (a *ActualArguments) KeywordIndex(k, count int) int {
	return a.Count() - count + k
}

func (a *ActualArguments) String() string {
	parts := make([]string, 0, a.Count()+1)
	for _, arg := range a.positional {
		parts = append(parts, arg.typ.String())
	}
	if a.collapsed > 0 {
		parts = append(parts, fmt.Sprintf("*dynamic[%d]", a.collapsed))
	}
	for i, arg := range a.named {
		parts = append(parts, fmt.Sprintf("%s: %s", a.names[i], arg.typ))
	}

	return strings.Join(parts, ", ")
}

// Key identifies every binding that must produce the same plan: the call
// shape, the discrete argument types and whether any arguments are collapsed.
func (a *ActualArguments) Key() string {
	var sb strings.Builder
	sb.WriteString(a.signature.String())
	sb.WriteString("|")
	for _, arg := range a.positional {
		sb.WriteString(string(arg.typ.GlobalName()))
		sb.WriteString(";")
	}
	if a.collapsed > 0 {
		sb.WriteString("*;")
	}
	for i, arg := range a.named {
		fmt.Fprintf(&sb, "%s=%s;", a.names[i], arg.typ.GlobalName())
	}

	return sb.String()
}

// Normalize expands the splat and dictionary spread of a call into the
// argument list candidates are shaped against.
func (b *Binder) Normalize(overloads *Overloads, signature CallSignature, args *RestrictedArguments) (*ActualArguments, error) {
	err := signature.Validate()
	if err != nil {
		return nil, err
	}

	if signature.Len() != args.Len() {
		return nil, fmt.Errorf("%w: signature (%s) has %d arguments, got %d", ErrInvalidCallSignature, signature, signature.Len(), args.Len())
	}

	actual := &ActualArguments{
		signature: signature,
		raw:       args,
		splat:     -1,
	}

	seen := make(map[string]struct{})
	addNamed := func(name string, arg actualArgument) error {
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: keyword %s given twice", ErrInvalidCallSignature, name)
		}
		seen[name] = struct{}{}
		actual.names = append(actual.names, name)
		actual.named = append(actual.named, arg)
		return nil
	}

	for i, info := range signature.Arguments {
		value, typ := args.Value(i), args.Type(i)
		switch info.Kind {
		case Simple:
			actual.positional = append(actual.positional, actualArgument{
				node:  &plan.Argument{Index: i, Typ: typ},
				typ:   typ,
				value: value,
			})
		case Splat:
			seq, ok := value.(object.Sequence)
			if !ok {
				return nil, fmt.Errorf("%w: splat argument %d is %s, not a sequence", ErrInvalidCallSignature, i, typ)
			}

			limit := min(b.Config.MaxSplatExpansion, max(overloads.MaxPositional()-len(actual.positional), 0))
			actual.splat = i
			actual.expanded = min(seq.Len(), limit)
			actual.collapsed = seq.Len() - actual.expanded
			for k := 0; k < actual.expanded; k++ {
				item := seq.At(k)
				itemType := object.TypeOf(item)
				actual.positional = append(actual.positional, actualArgument{
					node:  &plan.SplatItem{Splat: i, Offset: k, Typ: itemType},
					typ:   itemType,
					value: item,
				})
			}
		case Named:
			err := addNamed(info.Name, actualArgument{
				node:  &plan.Argument{Index: i, Typ: typ},
				typ:   typ,
				value: value,
			})
			if err != nil {
				return nil, err
			}
		case Dictionary:
			keys, values, err := spreadDictionary(value)
			if err != nil {
				return nil, fmt.Errorf("dictionary argument %d: %w", i, err)
			}

			for k, key := range keys {
				itemType := object.TypeOf(values[k])
				name := keyName(key)
				err := addNamed(name, actualArgument{
					node:  &plan.DictionaryItem{Dictionary: i, Name: name, Typ: itemType},
					typ:   itemType,
					value: values[k],
				})
				if err != nil {
					return nil, err
				}
			}
		}
	}

	return actual, nil
}

func keyName(key any) string {
	switch key := key.(type) {
	case object.Symbol:
		return string(key)
	default:
		return key.(string)
	}
}

func spreadDictionary(value any) ([]any, []any, error) {
	switch dict := value.(type) {
	case *object.Hash:
		keys := dict.Keys()
		values := make([]any, len(keys))
		for i, key := range keys {
			switch key.(type) {
			case string, object.Symbol:
			default:
				return nil, nil, fmt.Errorf("%w: keyword key %s is not a string or symbol", ErrInvalidCallSignature, object.Inspect(key))
			}
			values[i], _ = dict.Get(key)
		}
		return keys, values, nil
	case map[string]any:
		names := make([]string, 0, len(dict))
		for name := range dict {
			names = append(names, name)
		}
		slices.Sort(names)

		keys := make([]any, len(names))
		values := make([]any, len(names))
		for i, name := range names {
			keys[i] = name
			values[i] = dict[name]
		}
		return keys, values, nil
	default:
		return nil, nil, fmt.Errorf("%w: %T is not a dictionary", ErrInvalidCallSignature, value)
	}
}
