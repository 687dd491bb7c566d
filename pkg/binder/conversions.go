package binder

import (
	"fmt"
	"math/big"
	"strconv"
	"unicode/utf8"

	"github.com/rhino1998/callbind/pkg/binder/kinds"
	"github.com/rhino1998/callbind/pkg/binder/numeric"
	"github.com/rhino1998/callbind/pkg/binder/plan"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
	"github.com/shopspring/decimal"
)

// Conversions is the value model's conversion capability: which conversions
// exist at each narrowing level, which of two parameter types an argument
// prefers, and how a value is converted at run time.
type Conversions interface {
	plan.Converter

	CanConvert(from, to types.Type, level NarrowingLevel) bool
	Prefer(arg, t1, t2 types.Type) Comparison
}

// DefaultConversions implements the dynamic language's conversion rules over
// the numeric tables.
type DefaultConversions struct{}

func numericCode(t types.Type) (numeric.Code, bool) {
	if _, ok := t.(types.Kind); !ok {
		return numeric.Invalid, false
	}

	return numeric.CodeOf(t.Kind())
}

func (c DefaultConversions) CanConvert(from, to types.Type, level NarrowingLevel) bool {
	if from == nil || to == nil {
		return false
	}

	if types.IsAssignableTo(from, to) {
		return true
	}

	if level < NarrowingOne {
		return false
	}

	fromCode, fromNumeric := numericCode(from)
	toCode, toNumeric := numericCode(to)

	if fromNumeric && toNumeric && numeric.IsImplicit(fromCode, toCode) {
		return true
	}

	if to == types.String && (from == types.Char || from == types.Symbol) {
		return true
	}

	if nullable, ok := to.(*types.Nullable); ok && c.CanConvert(from, nullable.Elem(), level) {
		return true
	}

	if level < NarrowingTwo {
		return false
	}

	if fromNumeric && toNumeric {
		return true
	}

	if to == types.Bool && from != types.Void {
		return true
	}

	if to == types.String && fromNumeric {
		return true
	}

	if from == types.String && (to == types.Symbol || to == types.Char) {
		return true
	}

	if toNumeric && from == types.Char && toCode != numeric.Single && toCode != numeric.Double {
		return true
	}

	if declares(from, to, (*types.Class).Converters) {
		return true
	}

	if level < NarrowingThree {
		return false
	}

	if from == types.Dynamic {
		return true
	}

	if declares(from, to, (*types.Class).Protocols) {
		return true
	}

	if to.Kind() == kinds.Interface {
		switch from.Kind() {
		case kinds.Class, kinds.Interface, kinds.Object:
			return true
		}
	}

	return false
}

// declares reports whether from or one of its base classes declares a conversion to to.
func declares(from, to types.Type, targets func(*types.Class) []types.Type) bool {
	for cur := from; cur != nil; cur = types.BaseType(cur) {
		class, ok := cur.(*types.Class)
		if !ok {
			continue
		}

		for _, target := range targets(class) {
			if types.IsAssignableTo(target, to) {
				return true
			}
		}
	}

	return false
}

func (c DefaultConversions) Prefer(arg, t1, t2 types.Type) Comparison {
	return PreferConvert(arg, t1, t2)
}

func (c DefaultConversions) Convert(value any, from, to types.Type) (any, error) {
	actual := object.TypeOf(value)
	if types.IsAssignableTo(actual, to) {
		return value, nil
	}

	fail := func() (any, error) {
		return nil, &ConversionError{Value: object.Inspect(value), From: from, To: to}
	}

	if nullable, ok := to.(*types.Nullable); ok {
		if value == nil {
			return nil, nil
		}
		return c.Convert(value, from, nullable.Elem())
	}

	if value == nil {
		if to == types.Bool {
			return false, nil
		}
		return fail()
	}

	if convertible, ok := value.(object.Convertible); ok {
		converted, err := convertible.ConvertTo(to)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConversion, err)
		}
		if _, loops := converted.(object.Convertible); loops && !types.IsAssignableTo(object.TypeOf(converted), to) {
			return fail()
		}
		return c.Convert(converted, object.TypeOf(converted), to)
	}

	if code, ok := numericCode(to); ok {
		if ch, ok := value.(object.Char); ok && code != numeric.Single && code != numeric.Double {
			return numeric.Convert(int32(ch), code)
		}
		if _, ok := numeric.CodeOfValue(value); ok {
			return numeric.Convert(value, code)
		}
		return fail()
	}

	switch to {
	case types.Bool:
		b, ok := value.(bool)
		return !ok || b, nil
	case types.String:
		return toString(value)
	case types.Symbol:
		s, ok := value.(string)
		if !ok {
			return fail()
		}
		return object.Symbol(s), nil
	case types.Char:
		s, ok := value.(string)
		if !ok || utf8.RuneCountInString(s) != 1 {
			return fail()
		}
		r, _ := utf8.DecodeRuneInString(s)
		return object.Char(r), nil
	}

	return fail()
}

func toString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case object.Char:
		return string(rune(v)), nil
	case object.Symbol:
		return string(v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case decimal.Decimal:
		return v.String(), nil
	case *big.Int:
		return v.String(), nil
	default:
		if _, ok := numeric.CodeOfValue(v); ok {
			return fmt.Sprint(v), nil
		}
		return nil, &ConversionError{Value: object.Inspect(value), From: object.TypeOf(value), To: types.String}
	}
}
