package binder

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rhino1998/callbind/pkg/binder/types"
)

var (
	errTooManyArguments = errors.New("too many positional arguments")
	errCollapsed        = errors.New("spread arguments must bind to a params array")
	errMissingArgument  = errors.New("missing argument")
	errDuplicateKeyword = errors.New("keyword argument duplicates a positional argument")
	errUnknownKeyword   = errors.New("unknown keyword")
)

// MethodCandidate is one callable shape of a method. Candidates built from
// declarations carry the visible positional parameters; shaping one against
// a call yields a candidate whose parameters run parallel to the logical
// arguments of that call, with one argument builder per declared parameter.
type MethodCandidate struct {
	method *Method

	parameters []ParameterDescriptor
	paramsDict *ParameterDescriptor

	builders      []ArgBuilder
	returnBuilder ReturnBuilder

	// expanded candidates bind trailing positional arguments to the elements of their params array.
	expanded bool
	// reduced candidates take plain values for by-ref parameters and return their final values.
	reduced bool
	shaped  bool
}

func (c *MethodCandidate) Method() *Method { return c.method }

func (c *MethodCandidate) Parameters() []ParameterDescriptor { return c.parameters }

func (c *MethodCandidate) ArgBuilders() []ArgBuilder { return c.builders }

func (c *MethodCandidate) ReturnBuilder() ReturnBuilder { return c.returnBuilder }

// Arity is the number of parameters of the candidate.
func (c *MethodCandidate) Arity() int { return len(c.parameters) }

func (c *MethodCandidate) IsExpanded() bool { return c.expanded }

func (c *MethodCandidate) IsReduced() bool { return c.reduced }

// HasParamsDictionaryOnly reports whether the candidate takes nothing but a params dictionary.
func (c *MethodCandidate) HasParamsDictionaryOnly() bool {
	return c.paramsDict != nil && len(c.parameters) == 0
}

// VisibleArity is the number of positional parameters that are not hidden.
func (c *MethodCandidate) VisibleArity() int {
	n := 0
	for _, p := range c.parameters {
		if !p.IsHidden() {
			n++
		}
	}

	return n
}

func (c *MethodCandidate) fixedCount() int {
	if c.expanded {
		return len(c.parameters) - 1
	}

	return len(c.parameters)
}

func (c *MethodCandidate) maxPriority() int {
	p := 0
	for _, b := range c.builders {
		p = max(p, b.Priority())
	}

	return p
}

func (c *MethodCandidate) String() string {
	var sb strings.Builder
	sb.WriteString(c.method.String())

	var forms []string
	if c.expanded {
		forms = append(forms, "expanded")
	}
	if c.reduced {
		forms = append(forms, "reduced")
	}
	if len(forms) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(forms, ", "))
	}

	return sb.String()
}

func newCandidates(m *Method) ([]*MethodCandidate, error) {
	byRef := slices.ContainsFunc(m.Parameters, func(p Parameter) bool { return p.IsByRef() })
	params := slices.ContainsFunc(m.Parameters, func(p Parameter) bool { return p.ParamArray })

	reducedForms := []bool{false}
	if byRef {
		reducedForms = append(reducedForms, true)
	}
	expandedForms := []bool{false}
	if params {
		expandedForms = append(expandedForms, true)
	}

	var out []*MethodCandidate
	for _, reduced := range reducedForms {
		for _, expanded := range expandedForms {
			c, err := newCandidate(m, reduced, expanded)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}

	return out, nil
}

func newCandidate(m *Method, reduced, expanded bool) (*MethodCandidate, error) {
	c := &MethodCandidate{
		method:        m,
		expanded:      expanded,
		reduced:       reduced,
		returnBuilder: NewReturnBuilder(m.ReturnType()),
	}

	for i := range m.Parameters {
		p := &m.Parameters[i]
		flags := p.flags()
		switch {
		case p.ParamDictionary:
			if _, ok := dictionaryStrategyFor(p.Type); !ok {
				return nil, &UnsupportedDictionaryTypeError{Method: m.String(), Parameter: p.Name, Type: p.Type}
			}
			desc := NewParameterDescriptor(p, p.Type, p.Name, flags)
			c.paramsDict = &desc
		case p.Mode == Out && reduced:
		case p.IsByRef() && !reduced:
			c.parameters = append(c.parameters, NewParameterDescriptor(p, types.NewBox(p.Type), p.Name, flags))
		case p.ParamArray && !expanded:
			c.parameters = append(c.parameters, NewParameterDescriptor(p, p.Type, p.Name, flags&^IsParamArray))
		default:
			c.parameters = append(c.parameters, NewParameterDescriptor(p, p.Type, p.Name, flags))
		}
	}

	return c, nil
}

// shape binds the candidate to a call: positional arguments in order,
// keyword arguments by name, leftovers into the params dictionary or, for
// constructors, onto members. Parameters nothing binds take their defaults.
func (c *MethodCandidate) shape(args *ActualArguments) (*MethodCandidate, error) {
	if c.shaped {
		panic(fmt.Sprintf("bug: shaping shaped candidate %s", c))
	}

	m := c.method
	positional := args.PositionalCount()
	fixed := c.fixedCount()

	if !c.expanded && positional > len(c.parameters) {
		return nil, fmt.Errorf("%w: takes %d, got %d", errTooManyArguments, c.VisibleArity(), positional)
	}

	if args.CollapsedCount() > 0 && (!c.expanded || args.FirstCollapsed() < fixed) {
		return nil, errCollapsed
	}

	const unbound = -1
	positionalSource := make([]int, len(c.parameters))
	keywordSource := make([]int, len(c.parameters))
	for i := range c.parameters {
		positionalSource[i] = unbound
		keywordSource[i] = unbound
	}

	shaped := &MethodCandidate{
		method:     m,
		parameters: make([]ParameterDescriptor, args.Arity()),
		paramsDict: c.paramsDict,
		expanded:   c.expanded,
		reduced:    c.reduced,
		shaped:     true,
	}

	for i := 0; i < positional; i++ {
		if i < fixed {
			shaped.parameters[i] = c.parameters[i]
			positionalSource[i] = i
		} else {
			shaped.parameters[i] = c.parameters[fixed].Expand()
		}
	}

	names := args.Names()
	var dictNames []string
	var dictOffsets []int
	var assignments []memberAssignment
	for k, name := range names {
		index := slices.IndexFunc(c.parameters[:fixed], func(p ParameterDescriptor) bool {
			return p.Name == name
		})

		logical := positional + k
		switch {
		case index != -1:
			if positionalSource[index] != unbound {
				return nil, fmt.Errorf("%w: %s", errDuplicateKeyword, name)
			}
			keywordSource[index] = k
			shaped.parameters[logical] = c.parameters[index]
		case c.paramsDict != nil:
			strategy, _ := dictionaryStrategyFor(c.paramsDict.Type)
			shaped.parameters[logical] = NewParameterDescriptor(c.paramsDict.Info, strategy.value, name, c.paramsDict.Flags&^IsParamDictionary)
			dictNames = append(dictNames, name)
			dictOffsets = append(dictOffsets, k)
		case m.Constructor:
			member, ok := types.LookupMember(m.DeclaringType, name)
			if !ok {
				return nil, fmt.Errorf("%w %s: %s has no member %s", errUnknownKeyword, name, m.DeclaringType, name)
			}
			shaped.parameters[logical] = NewParameterDescriptor(nil, member.Type, name, 0)
			assignments = append(assignments, memberAssignment{member: member, offset: k})
		default:
			return nil, fmt.Errorf("%w %s", errUnknownKeyword, name)
		}
	}

	var refs []types.Type
	visible := 0
	for i := range m.Parameters {
		p := &m.Parameters[i]

		if p.ParamDictionary {
			b, err := NewParamsDictArgBuilder(*c.paramsDict, dictNames, dictOffsets, len(names))
			if err != nil {
				return nil, err
			}
			shaped.builders = append(shaped.builders, b)
			continue
		}

		if p.Mode == Out && c.reduced {
			shaped.builders = append(shaped.builders, NewOutArgBuilder(NewParameterDescriptor(p, p.Type, p.Name, 0)))
			refs = append(refs, p.Type)
			continue
		}

		index := visible
		visible++
		desc := c.parameters[index]

		var b ArgBuilder
		switch {
		case c.expanded && index == fixed:
			b = NewParamsArgBuilder(desc, fixed, max(positional-fixed, 0))
		case positionalSource[index] != unbound:
			b = NewSimpleArgBuilder(desc, positionalSource[index])
		case keywordSource[index] != unbound:
			b = NewKeywordArgBuilder(desc, keywordSource[index], len(names))
		case p.HasDefault && !(p.IsByRef() && !c.reduced):
			b = NewDefaultArgBuilder(desc, p.Default)
		default:
			return nil, fmt.Errorf("%w for parameter %s", errMissingArgument, p)
		}

		if p.IsByRef() {
			if c.reduced {
				b = NewReturnReferenceArgBuilder(b)
				refs = append(refs, p.Type)
			} else {
				b = NewReferenceArgBuilder(b, p.Type)
			}
		}

		shaped.builders = append(shaped.builders, b)
	}

	shaped.returnBuilder = NewReturnBuilder(m.ReturnType())
	if len(assignments) > 0 {
		shaped.returnBuilder = &keywordConstructorReturnBuilder{
			inner:       shaped.returnBuilder,
			owner:       m.DeclaringType,
			assignments: assignments,
			count:       len(names),
		}
	}
	if len(refs) > 0 {
		shaped.returnBuilder = &byRefReturnBuilder{inner: shaped.returnBuilder, refs: refs}
	}

	return shaped, nil
}

// CandidateSet holds the candidates sharing one arity.
type CandidateSet struct {
	Arity      int
	Candidates []*MethodCandidate
}

func (s *CandidateSet) add(c *MethodCandidate) {
	if c.Arity() != s.Arity {
		panic(fmt.Sprintf("bug: candidate %s of arity %d added to set of arity %d", c, c.Arity(), s.Arity))
	}

	s.Candidates = append(s.Candidates, c)
}

// accepts reports whether a call with the given positional and keyword
// counts can possibly bind to a candidate of the set.
func (s *CandidateSet) accepts(c *MethodCandidate, positional, named int) bool {
	if c.expanded {
		return true
	}

	if positional > s.Arity {
		return false
	}

	return named > 0 || positional >= c.requiredCount()
}

func (c *MethodCandidate) requiredCount() int {
	n := 0
	for _, p := range c.parameters {
		if p.Info == nil || !p.Info.HasDefault {
			n++
		}
	}

	return n
}

// Overloads is a named set of methods resolved together.
type Overloads struct {
	ID      uuid.UUID
	Name    string
	Methods []*Method

	sets          map[int]*CandidateSet
	maxPositional int
}

func NewOverloads(name string, methods ...*Method) (*Overloads, error) {
	o := &Overloads{
		ID:      uuid.New(),
		Name:    name,
		Methods: methods,
		sets:    make(map[int]*CandidateSet),
	}

	for _, m := range methods {
		err := m.validate()
		if err != nil {
			return nil, err
		}

		candidates, err := newCandidates(m)
		if err != nil {
			return nil, err
		}

		for _, c := range candidates {
			set, ok := o.sets[c.Arity()]
			if !ok {
				set = &CandidateSet{Arity: c.Arity()}
				o.sets[c.Arity()] = set
			}
			set.add(c)
			o.maxPositional = max(o.maxPositional, c.fixedCount())
		}
	}

	return o, nil
}

// MaxPositional is the largest number of fixed positional parameters of any candidate.
func (o *Overloads) MaxPositional() int { return o.maxPositional }

// Sets returns the candidate sets ordered by arity.
func (o *Overloads) Sets() []*CandidateSet {
	out := make([]*CandidateSet, 0, len(o.sets))
	for _, arity := range slices.Sorted(maps.Keys(o.sets)) {
		out = append(out, o.sets[arity])
	}

	return out
}

func (o *Overloads) Candidates() []*MethodCandidate {
	var out []*MethodCandidate
	for _, set := range o.Sets() {
		out = append(out, set.Candidates...)
	}

	return out
}

func (o *Overloads) eligible(args *ActualArguments) []*MethodCandidate {
	var out []*MethodCandidate
	for _, set := range o.Sets() {
		for _, c := range set.Candidates {
			if set.accepts(c, args.PositionalCount(), args.NamedCount()) {
				out = append(out, c)
			}
		}
	}

	return out
}
