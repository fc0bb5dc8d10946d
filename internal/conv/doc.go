// Package conv provides overflow-checked integer conversions for index
// positions and entity ids.
package conv
