package binder

import "fmt"

// NarrowingLevel orders conversions by permissiveness. A candidate only
// competes at the lowest level at which every one of its arguments converts.
type NarrowingLevel int

const (
	// NarrowingNone permits identity and reference assignability only.
	NarrowingNone NarrowingLevel = iota
	// NarrowingOne adds implicit numeric widening and the lossless default protocol conversions.
	NarrowingOne
	// NarrowingTwo adds numeric narrowing, explicit converters and bool coercion.
	NarrowingTwo
	// NarrowingThree adds dynamic values, conversion protocols and interface coercion.
	NarrowingThree

	NarrowingAll = NarrowingThree
)

func (l NarrowingLevel) String() string {
	return fmt.Sprintf("narrowing level %d", int(l))
}

func (l NarrowingLevel) Valid() bool {
	return l >= NarrowingNone && l <= NarrowingAll
}

type NarrowingRange struct {
	Min NarrowingLevel
	Max NarrowingLevel
}

func FullNarrowing() NarrowingRange {
	return NarrowingRange{Min: NarrowingNone, Max: NarrowingAll}
}

func (r NarrowingRange) Validate() error {
	if !r.Min.Valid() || !r.Max.Valid() {
		return fmt.Errorf("narrowing range [%d, %d] outside [%d, %d]", r.Min, r.Max, NarrowingNone, NarrowingAll)
	}

	if r.Min > r.Max {
		return fmt.Errorf("narrowing range minimum %d exceeds maximum %d", r.Min, r.Max)
	}

	return nil
}

func (r NarrowingRange) Levels() []NarrowingLevel {
	levels := make([]NarrowingLevel, 0, r.Max-r.Min+1)
	for l := r.Min; l <= r.Max; l++ {
		levels = append(levels, l)
	}

	return levels
}
