package registry

import (
	"fmt"
	"strings"
)

// TypeExpr is a parsed type expression such as "IList<T>[]" or "int32?".
type TypeExpr interface {
	typeExpr()
	String() string
}

type Identifier string

func (Identifier) typeExpr() {}

func (i Identifier) String() string { return string(i) }

type ArrayType struct {
	Element TypeExpr
}

func (ArrayType) typeExpr() {}

func (t ArrayType) String() string { return t.Element.String() + "[]" }

type NullableType struct {
	Element TypeExpr
}

func (NullableType) typeExpr() {}

func (t NullableType) String() string { return t.Element.String() + "?" }

// GenericType applies a generic definition, box or tuple to type arguments.
type GenericType struct {
	Name Identifier
	Args []TypeExpr
}

func (GenericType) typeExpr() {}

func (t GenericType) String() string {
	args := make([]string, len(t.Args))
	for i, arg := range t.Args {
		args[i] = arg.String()
	}

	return fmt.Sprintf("%s<%s>", t.Name, strings.Join(args, ", "))
}

// identifiers returns every name a type expression mentions.
func identifiers(expr TypeExpr) []Identifier {
	switch expr := expr.(type) {
	case Identifier:
		return []Identifier{expr}
	case ArrayType:
		return identifiers(expr.Element)
	case NullableType:
		return identifiers(expr.Element)
	case GenericType:
		out := []Identifier{expr.Name}
		for _, arg := range expr.Args {
			out = append(out, identifiers(arg)...)
		}
		return out
	default:
		return nil
	}
}
