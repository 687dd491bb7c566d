package binder

import (
	"github.com/rhino1998/callbind/pkg/binder/kinds"
	"github.com/rhino1998/callbind/pkg/binder/numeric"
	"github.com/rhino1998/callbind/pkg/binder/types"
)

// Comparison is the outcome of comparing two candidates, or two parameter
// types, for the same argument.
type Comparison int

const (
	Equivalent Comparison = iota
	One
	Two
	Ambiguous
)

func (c Comparison) String() string {
	switch c {
	case Equivalent:
		return "equivalent"
	case One:
		return "one"
	case Two:
		return "two"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

func (c Comparison) flip() Comparison {
	switch c {
	case One:
		return Two
	case Two:
		return One
	default:
		return c
	}
}

// PreferConvert decides which of two parameter types is the better target for
// an argument of type arg.
func PreferConvert(arg, t1, t2 types.Type) Comparison {
	if types.Equal(t1, t2) {
		return Equivalent
	}

	if types.Equal(arg, t1) {
		return One
	}
	if types.Equal(arg, t2) {
		return Two
	}

	if c := preferTable(t1, t2); c != Equivalent {
		return c
	}
	if c := preferTable(t2, t1); c != Equivalent {
		return c.flip()
	}

	assignable12 := types.IsAssignableTo(t1, t2)
	assignable21 := types.IsAssignableTo(t2, t1)
	switch {
	case assignable12 && !assignable21:
		return One
	case assignable21 && !assignable12:
		return Two
	}

	c1, ok1 := numericCode(t1)
	c2, ok2 := numericCode(t2)
	if ok1 && ok2 {
		implicit12 := numeric.IsImplicit(c1, c2)
		implicit21 := numeric.IsImplicit(c2, c1)
		switch {
		case implicit12 && !implicit21:
			return One
		case implicit21 && !implicit12:
			return Two
		}
	}

	return Equivalent
}

// preferTable returns One when t1 is declared preferable to t2.
func preferTable(t1, t2 types.Type) Comparison {
	k1, k2 := t1.Kind(), t2.Kind()
	if _, ok := t1.(types.Kind); !ok {
		return Equivalent
	}
	if _, ok := t2.(types.Kind); !ok {
		return Equivalent
	}

	switch {
	case fixedInteger(k1) && k1.IsSigned() && k2.IsUnsigned() && k1.Width() <= k2.Width():
		return One
	case k1 == kinds.Bool && k2 == kinds.Int32:
		return One
	case k1 == kinds.Char && k2 == kinds.String:
		return One
	case fixedNumeric(k1) && (k2 == kinds.Decimal || k2 == kinds.BigInteger):
		return One
	case k1 == kinds.Decimal && k2 == kinds.BigInteger:
		return One
	}

	return Equivalent
}

func fixedInteger(k kinds.Kind) bool {
	return k.IsInteger() && k != kinds.BigInteger
}

func fixedNumeric(k kinds.Kind) bool {
	return fixedInteger(k) || k == kinds.Single || k == kinds.Double
}
