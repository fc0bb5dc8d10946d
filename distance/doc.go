// Package distance provides the distance metrics supported by the vector
// index and the per-metric split strategies used to build its trees.
//
// # Supported Metrics
//
//   - MetricAngular: sqrt(2 - 2*cos), the default
//   - MetricEuclidean: L2 distance
//   - MetricManhattan: L1 distance
//   - MetricHamming: number of differing components
//   - MetricDot: negated inner product (lower is nearer)
//
// # Usage
//
//	m, _ := distance.Parse("euclidean")
//	s, _ := distance.For(m)
//	d := s.Distance(a, b)
package distance
