package distance

import (
	"fmt"
	"math"
)

// Strategy is the metric-specific part of the forest index: it measures
// distances between vectors and chooses the hyperplane that splits a node.
// Implementations are stateless and safe for concurrent use.
type Strategy interface {
	// Metric returns the metric this strategy implements.
	Metric() Metric
	// Distance returns the distance between a and b; lower is nearer.
	Distance(a, b []float32) float32
	// Split writes the normal of a hyperplane separating p from q into
	// normal and returns the hyperplane offset.
	Split(p, q, normal []float32) float32
}

// For returns the strategy for m.
func For(m Metric) (Strategy, error) {
	switch m {
	case MetricAngular:
		return angular{}, nil
	case MetricEuclidean:
		return minkowski{metric: MetricEuclidean, dist: func(a, b []float32) float32 {
			return float32(math.Sqrt(float64(SquaredL2(a, b))))
		}}, nil
	case MetricManhattan:
		return minkowski{metric: MetricManhattan, dist: L1}, nil
	case MetricHamming:
		return minkowski{metric: MetricHamming, dist: Hamming}, nil
	case MetricDot:
		return dot{}, nil
	default:
		return nil, fmt.Errorf("distance: unsupported metric %v", m)
	}
}

// Margin returns the signed distance of v from the hyperplane (normal, offset).
func Margin(normal []float32, offset float32, v []float32) float32 {
	return Dot(normal, v) + offset
}

type angular struct{}

func (angular) Metric() Metric { return MetricAngular }

func (angular) Distance(a, b []float32) float32 {
	pp, qq, pq := Dot(a, a), Dot(b, b), Dot(a, b)
	d := float32(2)
	if ppqq := pp * qq; ppqq > 0 {
		d = 2 - 2*pq/float32(math.Sqrt(float64(ppqq)))
	}
	if d < 0 {
		d = 0
	}
	return float32(math.Sqrt(float64(d)))
}

func (angular) Split(p, q, normal []float32) float32 {
	np, nq := Norm(p), Norm(q)
	if np == 0 {
		np = 1
	}
	if nq == 0 {
		nq = 1
	}
	for i := range normal {
		normal[i] = p[i]/np - q[i]/nq
	}
	return 0
}

// dot orders by descending inner product and splits like angular.
type dot struct{}

func (dot) Metric() Metric { return MetricDot }

func (dot) Distance(a, b []float32) float32 { return -Dot(a, b) }

func (dot) Split(p, q, normal []float32) float32 { return angular{}.Split(p, q, normal) }

// minkowski splits on the perpendicular bisector of p and q.
type minkowski struct {
	metric Metric
	dist   func(a, b []float32) float32
}

func (m minkowski) Metric() Metric { return m.metric }

func (m minkowski) Distance(a, b []float32) float32 { return m.dist(a, b) }

func (minkowski) Split(p, q, normal []float32) float32 {
	var offset float32
	for i := range normal {
		normal[i] = p[i] - q[i]
		offset -= normal[i] * (p[i] + q[i]) / 2
	}
	return offset
}
