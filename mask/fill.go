package mask

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FillValue is written into every voxel outside the mask.
type FillValue struct {
	name  string
	value float32
}

var (
	FillZero = FillValue{name: "zero"}
	FillNaN  = FillValue{name: "nan", value: float32(math.NaN())}
)

// ParseFillValue accepts "zero", "nan" or a number.  An empty string is zero.
func ParseFillValue(s string) (FillValue, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return FillZero, nil
	case "nan":
		return FillNaN, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return FillValue{}, fmt.Errorf("bad fill value %q: expected zero, nan or a number", s)
	}
	return FillValue{name: strings.TrimSpace(s), value: float32(v)}, nil
}

// Value returns the float32 fill.
func (f FillValue) Value() float32 {
	return f.value
}

func (f FillValue) String() string {
	if f.name == "" {
		return "zero"
	}
	return f.name
}
