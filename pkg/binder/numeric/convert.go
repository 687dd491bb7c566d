package numeric

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrNotNumeric = errors.New("not a numeric value")

type bounds struct {
	min, max *big.Int
}

var integerBounds = map[Code]bounds{
	Int8:   {big.NewInt(math.MinInt8), big.NewInt(math.MaxInt8)},
	UInt8:  {big.NewInt(0), big.NewInt(math.MaxUint8)},
	Int16:  {big.NewInt(math.MinInt16), big.NewInt(math.MaxInt16)},
	UInt16: {big.NewInt(0), big.NewInt(math.MaxUint16)},
	Int32:  {big.NewInt(math.MinInt32), big.NewInt(math.MaxInt32)},
	UInt32: {big.NewInt(0), big.NewInt(math.MaxUint32)},
	Int64:  {big.NewInt(math.MinInt64), big.NewInt(math.MaxInt64)},
	UInt64: {big.NewInt(0), new(big.Int).SetUint64(math.MaxUint64)},
}

// MaxDecimal is the largest magnitude a decimal value may hold (96-bit mantissa).
var MaxDecimal = decimal.RequireFromString("79228162514264337593543950335")

func rangeError(v any, to Code) error {
	return &RangeError{Value: fmt.Sprint(v), Target: to}
}

// Convert converts a numeric value to the representation of the target code,
// failing with a RangeError when the value does not fit. Floating point
// sources truncate toward zero for every integer target.
func Convert(v any, to Code) (any, error) {
	from, ok := CodeOfValue(v)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotNumeric, v)
	}

	if !to.Valid() {
		return nil, fmt.Errorf("invalid numeric target %d", int(to))
	}

	switch v.(type) {
	case int, uint:
	default:
		if from == to {
			return v, nil
		}
	}

	switch to {
	case Single:
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, rangeError(v, to)
		}
		return float32(f), nil
	case Double:
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return f, nil
	case Decimal:
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		if d.Abs().GreaterThan(MaxDecimal) {
			return nil, rangeError(v, to)
		}
		return d, nil
	case BigInteger:
		return toBigInt(v)
	}

	bi, err := toBigInt(v)
	if err != nil {
		return nil, err
	}

	b := integerBounds[to]
	if bi.Cmp(b.min) < 0 || bi.Cmp(b.max) > 0 {
		return nil, rangeError(v, to)
	}

	return fromBigInt(bi, to), nil
}

// ToFixnum converts a numeric value to the language's fixed-width integer.
func ToFixnum(v any) (int32, error) {
	res, err := Convert(v, Fixnum)
	if err != nil {
		return 0, err
	}

	return res.(int32), nil
}

func toBigInt(v any) (*big.Int, error) {
	switch v := v.(type) {
	case int8:
		return big.NewInt(int64(v)), nil
	case uint8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case uint16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case uint32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case float32:
		return floatToBigInt(float64(v), v)
	case float64:
		return floatToBigInt(v, v)
	case decimal.Decimal:
		return v.BigInt(), nil
	case *big.Int:
		return new(big.Int).Set(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotNumeric, v)
	}
}

func floatToBigInt(f float64, orig any) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &RangeError{Value: fmt.Sprint(orig), Target: BigInteger}
	}

	bi, _ := new(big.Float).SetFloat64(math.Trunc(f)).Int(nil)
	return bi, nil
}

func fromBigInt(bi *big.Int, to Code) any {
	switch to {
	case Int8:
		return int8(bi.Int64())
	case UInt8:
		return uint8(bi.Uint64())
	case Int16:
		return int16(bi.Int64())
	case UInt16:
		return uint16(bi.Uint64())
	case Int32:
		return int32(bi.Int64())
	case UInt32:
		return uint32(bi.Uint64())
	case Int64:
		return bi.Int64()
	case UInt64:
		return bi.Uint64()
	default:
		panic(fmt.Sprintf("bug: %s is not a fixed-width integer", to))
	}
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		if math.IsInf(f, 0) {
			return 0, rangeError(v, Double)
		}
		return f, nil
	default:
		bi, err := toBigInt(v)
		if err != nil {
			return 0, err
		}
		f, _ := new(big.Float).SetInt(bi).Float64()
		return f, nil
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch v := v.(type) {
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return decimal.Decimal{}, rangeError(v, Decimal)
		}
		return decimal.NewFromFloat32(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, rangeError(v, Decimal)
		}
		return decimal.NewFromFloat(v), nil
	case decimal.Decimal:
		return v, nil
	default:
		bi, err := toBigInt(v)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromBigInt(bi, 0), nil
	}
}
