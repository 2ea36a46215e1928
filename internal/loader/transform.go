package loader

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/spinload/internal/tensor"
)

// Transform selects how a sample's stored value is reshaped before it enters
// a batch.
type Transform int

// Supported transforms.
const (
	// Identity passes the value through as float32.
	Identity Transform = iota
	// Amplitude stores |value| as float32.
	Amplitude
	// Sign stores an int64 class label: -1 for negative values and +1
	// otherwise. Zero (including -0) and NaN map to +1.
	Sign
)

// String returns the transform name.
func (t Transform) String() string {
	switch t {
	case Identity:
		return "identity"
	case Amplitude:
		return "amplitude"
	case Sign:
		return "sign"
	default:
		return fmt.Sprintf("Transform(%d)", int(t))
	}
}

// ParseTransform is the inverse of Transform.String. "none" and "no" are
// accepted for Identity.
func ParseTransform(s string) (Transform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "identity", "none", "no", "":
		return Identity, nil
	case "amplitude", "abs":
		return Amplitude, nil
	case "sign":
		return Sign, nil
	default:
		return Identity, fmt.Errorf("%w: unknown transform %q", ErrTransform, s)
	}
}

func (t Transform) valid() bool {
	return t >= Identity && t <= Sign
}

// valueType returns the element type of the batch value vector.
func (t Transform) valueType() tensor.DataType {
	if t == Sign {
		return tensor.Int64
	}
	return tensor.Float32
}

// floatValue applies Identity or Amplitude.
func (t Transform) floatValue(v float64) float32 {
	if t == Amplitude {
		return float32(math.Abs(v))
	}
	return float32(v)
}

// SignLabel maps v to its class label under the Sign transform.
func SignLabel(v float64) int64 {
	if v < 0 {
		return -1
	}
	return 1
}
