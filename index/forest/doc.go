// Package forest implements a random projection forest for approximate
// nearest neighbor search.
//
// Each tree recursively splits the items with a hyperplane chosen from two
// random items until a node holds at most LeafSize items. A query walks all
// trees best-first by hyperplane margin, gathers SearchK candidates and ranks
// them exactly with the configured metric.
//
// Builds are reproducible: tree t draws its splits from a generator seeded
// with Seed+t, items are inserted in ascending id order and trees are merged
// in tree order regardless of how the parallel build was scheduled.
//
// # File format
//
// Save writes a 64-byte header followed by 8-byte aligned sections (ids,
// vectors, roots, nodes, normals, leaf slots) and a CRC32 of the body. Load
// maps the file read-only and serves queries from the mapping:
//
//	idx, err := forest.Load("index.kbf", 128, distance.MetricAngular)
//	if err != nil {
//		return err
//	}
//	defer idx.Close() // unmaps; the file may be removed afterwards
//
//	ids, err := idx.NeighborsByID(7, 10)
package forest
