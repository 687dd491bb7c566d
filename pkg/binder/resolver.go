package binder

import (
	"errors"
	"log/slog"

	"github.com/rhino1998/callbind/pkg/binder/kinds"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
)

type BindingResult struct {
	Candidate *MethodCandidate
	Level     NarrowingLevel
	Arguments *ActualArguments
	Plan      *Plan
}

// Bind resolves a call over the configured narrowing range.
func (b *Binder) Bind(overloads *Overloads, signature CallSignature, args *RestrictedArguments) (*BindingResult, error) {
	return b.Resolve(overloads, signature, args, b.Config.Narrowing)
}

// Resolve selects the best candidate of overloads for a call and builds its
// execution plan. Levels are tried from the strictest up; the first level at
// which any candidate applies decides the call.
func (b *Binder) Resolve(overloads *Overloads, signature CallSignature, args *RestrictedArguments, levels NarrowingRange) (*BindingResult, error) {
	actual, err := b.Normalize(overloads, signature, args)
	if err != nil {
		return nil, err
	}

	return b.ResolveArguments(overloads, actual, levels)
}

// ResolveArguments resolves a call whose arguments are already normalized.
func (b *Binder) ResolveArguments(overloads *Overloads, actual *ActualArguments, levels NarrowingRange) (*BindingResult, error) {
	err := levels.Validate()
	if err != nil {
		return nil, err
	}

	logger := b.logger.With(
		slog.String("method", overloads.Name),
		slog.String("overloads", overloads.ID.String()),
		slog.String("arguments", actual.String()),
	)

	failures := newErrorSet()
	candidates := b.shapeCandidates(logger, overloads, actual, failures)

	for _, level := range levels.Levels() {
		var applicable []*MethodCandidate
		for _, c := range candidates {
			if b.applicable(c, actual, level) == nil {
				applicable = append(applicable, c)
			}
		}

		if len(applicable) == 0 {
			continue
		}

		best := applicable[0]
		if len(applicable) > 1 {
			var tied []*MethodCandidate
			best, tied = b.selectBest(applicable, actual)
			if best == nil {
				logger.Debug("ambiguous match", slog.Int("level", int(level)), slog.Int("tied", len(tied)))
				return nil, &AmbiguousMatchError{Name: overloads.Name, Level: level, Candidates: tied}
			}
		}

		logger.Debug("resolved call",
			slog.String("candidate", best.String()),
			slog.Int("level", int(level)),
			slog.Int("applicable", len(applicable)),
		)

		p, err := b.BuildExecutionPlan(best, actual)
		if err != nil {
			return nil, err
		}

		return &BindingResult{
			Candidate: best,
			Level:     level,
			Arguments: actual,
			Plan:      p,
		}, nil
	}

	methods := make(map[*Method]struct{})
	var invalid *InvalidParametersError
	for _, c := range candidates {
		methods[c.method.Definition()] = struct{}{}

		err := b.applicable(c, actual, levels.Max)
		var target *InvalidParametersError
		if errors.As(err, &target) && invalid == nil {
			invalid = target
		}
		logger.Debug("candidate rejected", slog.String("candidate", c.String()), slog.Any("reason", err))
		failures.Add(&CandidateError{Candidate: c, Err: err})
	}

	if len(methods) == 1 && invalid != nil {
		return nil, invalid
	}

	return nil, &NoApplicableMethodError{
		Name:      overloads.Name,
		Arguments: actual.String(),
		Failures:  failures,
	}
}

// shapeCandidates shapes every eligible candidate against the call and
// infers the type arguments of generic ones. Candidates that cannot be shaped
// are recorded in failures.
func (b *Binder) shapeCandidates(logger *slog.Logger, overloads *Overloads, actual *ActualArguments, failures *ErrorSet) []*MethodCandidate {
	var out []*MethodCandidate
	for _, c := range overloads.eligible(actual) {
		shaped, err := c.shape(actual)
		if err == nil && shaped.method.IsGenericDefinition() {
			shaped, err = b.inferGenericMethod(shaped, actual)
		}

		if err != nil {
			logger.Debug("candidate rejected", slog.String("candidate", c.String()), slog.Any("reason", err))
			failures.Add(&CandidateError{Candidate: c, Err: err})
			continue
		}

		out = append(out, shaped)
	}

	return out
}

// applicable checks that every argument converts to its parameter at level.
func (b *Binder) applicable(c *MethodCandidate, actual *ActualArguments, level NarrowingLevel) error {
	for i := 0; i < actual.Arity(); i++ {
		from := actual.TypeAt(i)
		param := c.parameters[i]

		mismatch := &ArgumentMismatch{Index: i, Parameter: param.Name, From: from, To: param.Type}
		if param.ProhibitsNull() && from == types.Null {
			return mismatch
		}

		if b.conversions.CanConvert(from, param.Type, level) {
			continue
		}

		if box, ok := param.Type.(*types.Box); ok {
			if actualBox, ok := from.(*types.Box); ok {
				return &InvalidParametersError{
					Candidate: c,
					Parameter: param.Name,
					Err:       &object.BoxTypeError{Expected: box.Elem(), Actual: actualBox.String()},
				}
			}
		}

		if param.Info != nil && param.Info.ParamDictionary {
			return &InvalidParametersError{Candidate: c, Parameter: param.Name, Err: mismatch}
		}

		return mismatch
	}

	return nil
}

// selectBest returns the candidate that beats every other one, or the
// candidates no other one beats when there is none.
func (b *Binder) selectBest(candidates []*MethodCandidate, actual *ActualArguments) (*MethodCandidate, []*MethodCandidate) {
	for _, c := range candidates {
		best := true
		for _, other := range candidates {
			if other != c && b.compare(c, other, actual) != One {
				best = false
				break
			}
		}

		if best {
			return c, nil
		}
	}

	var tied []*MethodCandidate
	for _, c := range candidates {
		beaten := false
		for _, other := range candidates {
			if other != c && b.compare(other, c, actual) == One {
				beaten = true
				break
			}
		}

		if !beaten {
			tied = append(tied, c)
		}
	}

	if len(tied) == 0 {
		tied = candidates
	}

	return nil, tied
}

// compare decides which of two applicable candidates is better for the
// arguments. A candidate is better when it is at least as good for every
// argument and strictly better for one; mixed results are ambiguous.
func (b *Binder) compare(c1, c2 *MethodCandidate, actual *ActualArguments) Comparison {
	result := Equivalent
	for i := 0; i < actual.Arity(); i++ {
		switch b.conversions.Prefer(actual.TypeAt(i), c1.parameters[i].Type, c2.parameters[i].Type) {
		case One:
			if result == Two {
				return Ambiguous
			}
			result = One
		case Two:
			if result == One {
				return Ambiguous
			}
			result = Two
		case Ambiguous:
			return Ambiguous
		}
	}

	if result != Equivalent {
		return result
	}

	return tieBreak(c1, c2)
}

func tieBreak(c1, c2 *MethodCandidate) Comparison {
	g1, g2 := c1.method.IsGeneric(), c2.method.IsGeneric()
	switch {
	case !g1 && g2:
		return One
	case g1 && !g2:
		return Two
	}

	p1, p2 := c1.maxPriority(), c2.maxPriority()
	switch {
	case p1 < p2:
		return One
	case p1 > p2:
		return Two
	}

	d1, d2 := c1.method.DeclaringType, c2.method.DeclaringType
	if d1 != nil && d2 != nil && !types.Equal(d1, d2) && d1.Kind() != kinds.Interface {
		switch {
		case types.IsAssignableTo(d1, d2):
			return One
		case types.IsAssignableTo(d2, d1):
			return Two
		}
	}

	return Equivalent
}
