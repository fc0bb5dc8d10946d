package distance

import (
	"fmt"
	"math"
	"strings"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 calculates the squared Euclidean distance between two vectors.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// L1 calculates the Manhattan distance between two vectors.
func L1(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += float32(math.Abs(float64(a[i] - b[i])))
	}
	return sum
}

// Hamming counts the components that differ between two vectors.
func Hamming(a, b []float32) float32 {
	var n int
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return float32(n)
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(float64(Dot(v, v))))
}

// Metric identifies the distance used to order neighbors.
type Metric uint8

const (
	// MetricAngular is sqrt(2 - 2*cos(a, b)), the Euclidean distance between
	// the normalized vectors.
	MetricAngular Metric = iota
	// MetricEuclidean is the L2 distance.
	MetricEuclidean
	// MetricManhattan is the L1 distance.
	MetricManhattan
	// MetricHamming is the number of differing components.
	MetricHamming
	// MetricDot orders by descending inner product.
	MetricDot
)

func (m Metric) String() string {
	switch m {
	case MetricAngular:
		return "angular"
	case MetricEuclidean:
		return "euclidean"
	case MetricManhattan:
		return "manhattan"
	case MetricHamming:
		return "hamming"
	case MetricDot:
		return "dot"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// Valid reports whether m names a supported metric.
func (m Metric) Valid() bool {
	return m <= MetricDot
}

// Parse maps a metric name to its Metric.
func Parse(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "angular", "cosine":
		return MetricAngular, nil
	case "euclidean", "l2":
		return MetricEuclidean, nil
	case "manhattan", "l1":
		return MetricManhattan, nil
	case "hamming":
		return MetricHamming, nil
	case "dot":
		return MetricDot, nil
	default:
		return 0, fmt.Errorf("distance: unknown metric %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("distance: invalid metric %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
