package numeric_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/rhino1998/callbind/pkg/binder/numeric"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestConvertBounds(t *testing.T) {
	tests := []struct {
		name  string
		value any
		to    numeric.Code
		want  any
	}{
		{"int8 max", int64(math.MaxInt8), numeric.Int8, int8(math.MaxInt8)},
		{"int8 min", int32(math.MinInt8), numeric.Int8, int8(math.MinInt8)},
		{"uint8 max", int16(math.MaxUint8), numeric.UInt8, uint8(math.MaxUint8)},
		{"uint64 max", new(big.Int).SetUint64(math.MaxUint64), numeric.UInt64, uint64(math.MaxUint64)},
		{"int64 min", big.NewInt(math.MinInt64), numeric.Int64, int64(math.MinInt64)},
		{"int to int64", 7, numeric.Int64, int64(7)},
		{"identity", int16(3), numeric.Int16, int16(3)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := require.New(t)

			got, err := numeric.Convert(test.value, test.to)
			r.NoError(err)
			r.Equal(test.want, got)
		})
	}
}

func TestConvertOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		value any
		to    numeric.Code
	}{
		{"int8 overflow", int32(math.MaxInt8 + 1), numeric.Int8},
		{"int8 underflow", int32(math.MinInt8 - 1), numeric.Int8},
		{"negative to unsigned", int8(-1), numeric.UInt32},
		{"uint64 overflow", new(big.Int).Lsh(big.NewInt(1), 64), numeric.UInt64},
		{"single overflow", math.MaxFloat64, numeric.Single},
		{"decimal overflow", new(big.Int).Lsh(big.NewInt(1), 100), numeric.Decimal},
		{"nan to integer", math.NaN(), numeric.Int64},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := numeric.Convert(test.value, test.to)
			require.ErrorIs(t, err, numeric.ErrRange)
		})
	}
}

func TestFloatToIntegerTruncates(t *testing.T) {
	tests := []struct {
		value float64
		to    numeric.Code
		want  any
	}{
		{2.7, numeric.Int32, int32(2)},
		{-2.7, numeric.Int32, int32(-2)},
		{2.5, numeric.Int64, int64(2)},
		{3.5, numeric.Int64, int64(3)},
		{2.7, numeric.Int16, int16(2)},
		{-0.5, numeric.Int8, int8(0)},
		{127.5, numeric.Int8, int8(127)},
		{-128.9, numeric.Int8, int8(-128)},
		{127.5, numeric.Int16, int16(127)},
		{255.9, numeric.UInt8, uint8(255)},
		{-0.9, numeric.UInt8, uint8(0)},
		{127.5, numeric.Int64, int64(127)},
	}

	for _, test := range tests {
		got, err := numeric.Convert(test.value, test.to)
		require.NoError(t, err)
		require.Equal(t, test.want, got, "%v to %s", test.value, test.to)
	}
}

func TestFixnumRangeMessage(t *testing.T) {
	r := require.New(t)

	_, err := numeric.ToFixnum(new(big.Int).Lsh(big.NewInt(1), 40))
	r.ErrorIs(err, numeric.ErrRange)
	r.EqualError(err, "range error: 1099511627776 too big to convert into 'int32'")

	_, err = numeric.Convert(int32(300), numeric.UInt8)
	r.EqualError(err, "range error: 300 is out of range for uint8")
}

func TestConvertDecimalAndBigInteger(t *testing.T) {
	r := require.New(t)

	got, err := numeric.Convert(decimal.RequireFromString("12.9"), numeric.Int16)
	r.NoError(err)
	r.Equal(int16(12), got)

	got, err = numeric.Convert(int32(-5), numeric.Decimal)
	r.NoError(err)
	r.True(decimal.NewFromInt(-5).Equal(got.(decimal.Decimal)))

	got, err = numeric.Convert(uint64(math.MaxUint64), numeric.BigInteger)
	r.NoError(err)
	r.Equal(0, new(big.Int).SetUint64(math.MaxUint64).Cmp(got.(*big.Int)))

	got, err = numeric.Convert(big.NewInt(1<<20), numeric.Double)
	r.NoError(err)
	r.Equal(float64(1<<20), got)

	_, err = numeric.Convert("1", numeric.Int32)
	r.ErrorIs(err, numeric.ErrNotNumeric)
}

func TestImplicitAndExplicit(t *testing.T) {
	r := require.New(t)

	r.True(numeric.IsImplicit(numeric.Int8, numeric.Int64))
	r.True(numeric.IsImplicit(numeric.UInt8, numeric.Int16))
	r.True(numeric.IsImplicit(numeric.Int64, numeric.Double))
	r.True(numeric.IsImplicit(numeric.Int32, numeric.BigInteger))
	r.True(numeric.IsExplicit(numeric.Int32, numeric.UInt32))
	r.True(numeric.IsExplicit(numeric.Double, numeric.Single))
	r.True(numeric.IsExplicit(numeric.BigInteger, numeric.Int64))

	for from := numeric.Int8; from <= numeric.BigInteger; from++ {
		for to := numeric.Int8; to <= numeric.BigInteger; to++ {
			r.NotEqual(numeric.IsImplicit(from, to), numeric.IsExplicit(from, to), "%s to %s", from, to)
		}
	}

	r.False(numeric.IsImplicit(numeric.Invalid, numeric.Int32))
}
