// Package index provides the nearest neighbor index contract, result type and
// typed errors shared by index implementations.
//
// The forest subpackage implements the contract with a random projection
// forest that can be saved to disk and served from a memory mapping.
package index
