package stats

import (
	"encoding/json"
	"math"
)

// Float is a float64 that survives JSON encoding when it is not a number:
// NaN and ±Inf marshal as null and null unmarshals back to NaN.
type Float float64

// NaN returns a missing Float
func NaN() Float {
	return Float(math.NaN())
}

// IsMissing reports whether the value is NaN or infinite
func (f Float) IsMissing() bool {
	v := float64(f)
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if f.IsMissing() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = NaN()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}
