// Package vecfile loads embedding vectors from files named <id>.<ext>.
//
// Supported encodings:
//
//   - .npy: NumPy arrays (float32, float64 or integer; 1-D or 1xN)
//   - .json: a JSON array of numbers
//   - .f32, .bin, .vec: raw little-endian float32
package vecfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/sbinet/npyio"
)

var (
	// ErrUnsupported is returned for files with an unknown extension.
	ErrUnsupported = errors.New("vecfile: unsupported vector file")
	// ErrMalformed is returned for files that do not hold a flat numeric vector.
	ErrMalformed = errors.New("vecfile: malformed vector file")
)

// Entry is an artifact file whose extension-stripped name is an integer id.
type Entry struct {
	ID   uint64
	Name string
}

// ID parses the artifact id of a file name: the name without its extension
// must be a non-negative base-10 integer.
func ID(name string) (uint64, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(stem, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// List returns the artifact files of dir sorted by id. Directories and names
// without an integer stem are skipped. When several files share an id, the
// lexicographically first name wins.
func List(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]string, len(des))
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		id, ok := ID(de.Name())
		if !ok {
			continue
		}
		if prev, dup := byID[id]; !dup || de.Name() < prev {
			byID[id] = de.Name()
		}
	}

	out := make([]Entry, 0, len(byID))
	for id, name := range byID {
		out = append(out, Entry{ID: id, Name: name})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

// Supported reports whether Load understands the extension of name.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".npy", ".json", ".f32", ".bin", ".vec":
		return true
	default:
		return false
	}
}

// Load reads the vector stored at path.
func Load(path string) ([]float32, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Decode parses a vector from data using the encoding selected by ext.
func Decode(ext string, data []byte) ([]float32, error) {
	switch strings.ToLower(ext) {
	case ".npy":
		return decodeNPY(data)
	case ".json":
		return decodeJSON(data)
	case ".f32", ".bin", ".vec":
		return decodeRaw(data)
	default:
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupported, ext)
	}
}

func decodeNPY(data []byte) ([]float32, error) {
	r, err := npyio.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	shape := r.Header.Descr.Shape
	switch {
	case len(shape) == 1:
	case len(shape) == 2 && shape[0] == 1:
	default:
		return nil, fmt.Errorf("%w: npy shape %v is not a single vector", ErrMalformed, shape)
	}

	dtype := strings.TrimLeft(r.Header.Descr.Type, "<>|=")
	switch dtype {
	case "f4":
		var v []float32
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return v, nil
	case "f8":
		var v []float64
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return narrow(v), nil
	case "i8":
		var v []int64
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return convert(v), nil
	case "i4":
		var v []int32
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return convert(v), nil
	case "u1":
		var v []uint8
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return convert(v), nil
	default:
		return nil, fmt.Errorf("%w: npy dtype %q", ErrMalformed, r.Header.Descr.Type)
	}
}

func decodeJSON(data []byte) ([]float32, error) {
	var flat []float64
	if err := json.Unmarshal(data, &flat); err == nil {
		return narrow(flat), nil
	}

	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("%w: json holds %d rows", ErrMalformed, len(rows))
	}
	return narrow(rows[0]), nil
}

func decodeRaw(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of float32", ErrMalformed, len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}

// Encode writes v as raw little-endian float32.
func Encode(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

func narrow(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func convert[T int64 | int32 | uint8](v []T) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
