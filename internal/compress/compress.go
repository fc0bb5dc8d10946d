// Package compress implements the self-describing block compression used for
// graph snapshots inside a knowledge base container.
//
// Block layout: [Algorithm uint8][UncompressedSize uint64][StoredSize uint64][Data...].
// When compression does not pay off the data is stored raw and the header
// records AlgorithmNone.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a block compression algorithm.
type Algorithm uint8

const (
	// AlgorithmNone stores data uncompressed.
	AlgorithmNone Algorithm = 0
	// AlgorithmLZ4 uses LZ4 block compression (fast).
	AlgorithmLZ4 Algorithm = 1
	// AlgorithmZSTD uses ZSTD (better ratio).
	AlgorithmZSTD Algorithm = 2
)

const headerSize = 17

// MaxBlockSize bounds the uncompressed size a block header may declare.
const MaxBlockSize = 1 << 32

// maxLZ4Ratio is the largest expansion an LZ4 block can encode.
const maxLZ4Ratio = 255

var (
	// ErrCorruptBlock is returned for blocks whose header or payload is inconsistent.
	ErrCorruptBlock = errors.New("compress: corrupt block")
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmLZ4:
		return "lz4"
	case AlgorithmZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a name ("none", "lz4", "zstd") to its Algorithm.
// The empty string selects LZ4.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lz4":
		return AlgorithmLZ4, nil
	case "none":
		return AlgorithmNone, nil
	case "zstd":
		return AlgorithmZSTD, nil
	default:
		return 0, fmt.Errorf("compress: unknown algorithm %q", name)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxBlockSize))
}

// Compress encodes data as a block using algo.
func Compress(data []byte, algo Algorithm) ([]byte, error) {
	var (
		payload []byte
		err     error
	)

	switch algo {
	case AlgorithmNone:
	case AlgorithmLZ4:
		payload, err = compressLZ4(data)
	case AlgorithmZSTD:
		payload, err = compressZSTD(data)
	default:
		return nil, fmt.Errorf("compress: unsupported algorithm %v", algo)
	}
	if err != nil {
		return nil, err
	}

	// Store raw if compression saves less than 10%.
	if algo == AlgorithmNone || len(payload) == 0 || float64(len(payload)) > float64(len(data))*0.9 {
		algo = AlgorithmNone
		payload = data
	}

	out := make([]byte, headerSize+len(payload))
	out[0] = byte(algo)
	binary.LittleEndian.PutUint64(out[1:], uint64(len(data)))
	binary.LittleEndian.PutUint64(out[9:], uint64(len(payload)))
	copy(out[headerSize:], payload)
	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return compressed[:n], nil
}

func compressZSTD(data []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

// Decompress decodes a block produced by Compress.
func Decompress(block []byte) ([]byte, Algorithm, error) {
	if len(block) < headerSize {
		return nil, 0, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptBlock, len(block))
	}

	algo := Algorithm(block[0])
	rawSize := binary.LittleEndian.Uint64(block[1:])
	storedSize := binary.LittleEndian.Uint64(block[9:])
	if uint64(len(block)-headerSize) != storedSize {
		return nil, algo, fmt.Errorf("%w: stored size %d, have %d", ErrCorruptBlock, storedSize, len(block)-headerSize)
	}
	payload := block[headerSize:]
	if rawSize > MaxBlockSize {
		return nil, algo, fmt.Errorf("%w: declared size %d exceeds %d", ErrCorruptBlock, rawSize, uint64(MaxBlockSize))
	}

	switch algo {
	case AlgorithmNone:
		if storedSize != rawSize {
			return nil, algo, fmt.Errorf("%w: raw block size mismatch", ErrCorruptBlock)
		}
		return payload, algo, nil

	case AlgorithmLZ4:
		if rawSize > storedSize*maxLZ4Ratio+headerSize {
			return nil, algo, fmt.Errorf("%w: declared size %d from %d lz4 bytes", ErrCorruptBlock, rawSize, storedSize)
		}
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, algo, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if uint64(n) != rawSize {
			return nil, algo, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
		return out, algo, nil

	case AlgorithmZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, algo, err
		}
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(payload, make([]byte, 0, min(rawSize, storedSize*4)))
		if err != nil {
			return nil, algo, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if uint64(len(out)) != rawSize {
			return nil, algo, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
		return out, algo, nil

	default:
		return nil, algo, fmt.Errorf("%w: unknown algorithm %d", ErrCorruptBlock, uint8(algo))
	}
}
