package fingerprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// ValidationError reports malformed raw fingerprint input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fingerprint %s: %s", e.Field, e.Reason)
}

// Raw is a sampled 2D signal: X increases with sample index, Y is amplitude.
// Shape holds the maximum extents [width, height] the samples span.
//
// The canonical JSON form is
//
//	{"shape":[w,h],"coords":{"x":[...],"y":[...]}}
//
// UnmarshalJSON also accepts coords as an array of {"x":..,"y":..} pairs.
type Raw struct {
	Shape [2]float64
	X     []float64
	Y     []float64
}

type rawCoordsColumns struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

type rawPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type rawJSON struct {
	Shape  [2]float64      `json:"shape"`
	Coords json.RawMessage `json:"coords"`
}

func (r Raw) MarshalJSON() ([]byte, error) {
	x, y := r.X, r.Y
	if x == nil {
		x = []float64{}
	}
	if y == nil {
		y = []float64{}
	}
	return json.Marshal(struct {
		Shape  [2]float64       `json:"shape"`
		Coords rawCoordsColumns `json:"coords"`
	}{r.Shape, rawCoordsColumns{X: x, Y: y}})
}

func (r *Raw) UnmarshalJSON(data []byte) error {
	var doc rawJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.Shape = doc.Shape
	r.X, r.Y = nil, nil

	coords := bytes.TrimSpace(doc.Coords)
	if len(coords) == 0 || string(coords) == "null" {
		return nil
	}

	switch coords[0] {
	case '{':
		var cols rawCoordsColumns
		if err := json.Unmarshal(coords, &cols); err != nil {
			return fmt.Errorf("decoding coords columns: %w", err)
		}
		r.X, r.Y = cols.X, cols.Y
	case '[':
		var pts []rawPoint
		if err := json.Unmarshal(coords, &pts); err != nil {
			return fmt.Errorf("decoding coords pairs: %w", err)
		}
		r.X = make([]float64, len(pts))
		r.Y = make([]float64, len(pts))
		for i, p := range pts {
			r.X[i], r.Y[i] = p.X, p.Y
		}
	default:
		return &ValidationError{Field: "coords", Reason: "must be an object of columns or an array of points"}
	}
	return nil
}

// Len is the number of samples.
func (r *Raw) Len() int {
	return len(r.X)
}

// Validate checks the structural invariants of the raw input.
func (r *Raw) Validate() error {
	if r == nil {
		return &ValidationError{Field: "fingerprint", Reason: "is nil"}
	}
	if len(r.X) != len(r.Y) {
		return &ValidationError{
			Field:  "coords",
			Reason: fmt.Sprintf("x has %d values but y has %d", len(r.X), len(r.Y)),
		}
	}
	for i, v := range r.Shape {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &ValidationError{Field: fmt.Sprintf("shape[%d]", i), Reason: fmt.Sprintf("must be a non-negative finite number, got %v", v)}
		}
	}
	for i := range r.X {
		if err := checkSample("x", i, r.X[i]); err != nil {
			return err
		}
		if err := checkSample("y", i, r.Y[i]); err != nil {
			return err
		}
	}
	return nil
}

func checkSample(axis string, i int, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: fmt.Sprintf("coords.%s[%d]", axis, i), Reason: "is not finite"}
	}
	if v < 0 {
		return &ValidationError{Field: fmt.Sprintf("coords.%s[%d]", axis, i), Reason: fmt.Sprintf("is negative (%v)", v)}
	}
	return nil
}

// DecodeRaw reads and validates a raw fingerprint document.
func DecodeRaw(rd io.Reader) (*Raw, error) {
	var raw Raw
	if err := json.NewDecoder(rd).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding raw fingerprint: %w", err)
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	return &raw, nil
}

// ReadRawFile opens path and decodes it with DecodeRaw.
func ReadRawFile(path string) (*Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fingerprint: %w", err)
	}
	defer f.Close()
	return DecodeRaw(f)
}
