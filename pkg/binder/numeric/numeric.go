// Package numeric implements the conversion tables and bounds-checked
// conversions between the fixed-width numeric representations, decimal and
// the arbitrary-precision integer type.
//
// Values are represented by their natural Go types: int8 through uint64,
// float32, float64, decimal.Decimal and *big.Int.
package numeric

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/rhino1998/callbind/pkg/binder/kinds"
	"github.com/shopspring/decimal"
)

type Code int

const (
	Invalid Code = iota
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Single
	Double
	Decimal
	BigInteger

	numCodes
)

// Fixnum is the language's built-in fixed-width signed integer.
const Fixnum = Int32

var ErrRange = errors.New("range error")

type RangeError struct {
	Value  string
	Target Code
}

func (e *RangeError) Error() string {
	if e.Target == Fixnum {
		return fmt.Sprintf("%s: %s too big to convert into '%s'", ErrRange, e.Value, e.Target)
	}
	return fmt.Sprintf("%s: %s is out of range for %s", ErrRange, e.Value, e.Target)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}

func (c Code) String() string {
	return c.Kind().String()
}

func (c Code) Valid() bool {
	return c > Invalid && c < numCodes
}

func (c Code) Kind() kinds.Kind {
	switch c {
	case Int8:
		return kinds.Int8
	case UInt8:
		return kinds.UInt8
	case Int16:
		return kinds.Int16
	case UInt16:
		return kinds.UInt16
	case Int32:
		return kinds.Int32
	case UInt32:
		return kinds.UInt32
	case Int64:
		return kinds.Int64
	case UInt64:
		return kinds.UInt64
	case Single:
		return kinds.Single
	case Double:
		return kinds.Double
	case Decimal:
		return kinds.Decimal
	case BigInteger:
		return kinds.BigInteger
	default:
		return kinds.Unknown
	}
}

func CodeOf(k kinds.Kind) (Code, bool) {
	for c := Int8; c < numCodes; c++ {
		if c.Kind() == k {
			return c, true
		}
	}

	return Invalid, false
}

// CodeOfValue returns the code of a Go numeric value.
func CodeOfValue(v any) (Code, bool) {
	switch v.(type) {
	case int8:
		return Int8, true
	case uint8:
		return UInt8, true
	case int16:
		return Int16, true
	case uint16:
		return UInt16, true
	case int32:
		return Int32, true
	case uint32:
		return UInt32, true
	case int64:
		return Int64, true
	case int:
		return Int64, true
	case uint64:
		return UInt64, true
	case uint:
		return UInt64, true
	case float32:
		return Single, true
	case float64:
		return Double, true
	case decimal.Decimal:
		return Decimal, true
	case *big.Int:
		return BigInteger, true
	default:
		return Invalid, false
	}
}

func codes(cs ...Code) uint32 {
	var mask uint32
	for _, c := range cs {
		mask |= 1 << uint(c)
	}

	return mask
}

var integers = codes(Int8, UInt8, Int16, UInt16, Int32, UInt32, Int64, UInt64)

// explicit lists, per source code, the targets that need an explicit (narrowing) conversion.
var explicit = [numCodes]uint32{
	Int8:       codes(UInt8, UInt16, UInt32, UInt64),
	UInt8:      codes(Int8),
	Int16:      codes(Int8, UInt8, UInt16, UInt32, UInt64),
	UInt16:     codes(Int8, UInt8, Int16),
	Int32:      codes(Int8, UInt8, Int16, UInt16, UInt32, UInt64),
	UInt32:     codes(Int8, UInt8, Int16, UInt16, Int32),
	Int64:      codes(Int8, UInt8, Int16, UInt16, Int32, UInt32, UInt64),
	UInt64:     codes(Int8, UInt8, Int16, UInt16, Int32, UInt32, Int64),
	Single:     integers | codes(Decimal, BigInteger),
	Double:     integers | codes(Single, Decimal, BigInteger),
	Decimal:    integers | codes(Single, Double, BigInteger),
	BigInteger: integers | codes(Single, Double, Decimal),
}

// IsExplicit reports whether converting from one code to another narrows.
func IsExplicit(from, to Code) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}

	return explicit[from]&(1<<uint(to)) != 0
}

// IsImplicit reports whether converting between two codes widens. Every pair
// of valid codes that is not explicit is implicit.
func IsImplicit(from, to Code) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}

	return !IsExplicit(from, to)
}
