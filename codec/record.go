package codec

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/graphkb/distance"
)

// FormatVersion is the current container format version.
const FormatVersion = 1

// ErrInvalidRecord is returned for metadata records that cannot describe an
// index.
var ErrInvalidRecord = errors.New("codec: invalid metadata record")

// Record is the metadata stored beside the graph and index of a container.
// It is computed at build time and never changed afterwards.
type Record struct {
	FormatVersion    int             `json:"format_version"`
	VectorLength     int             `json:"vector_length"`
	EntityType       string          `json:"entity_type"`
	IDPredicate      string          `json:"id_predicate"`
	Metric           distance.Metric `json:"metric"`
	Trees            int             `json:"trees"`
	ItemCount        int             `json:"item_count"`
	CreatedAt        time.Time       `json:"created_at"`
	GraphCompression string          `json:"graph_compression"`
	Codec            string          `json:"codec,omitempty"`
}

// Validate reports whether r can be used to reopen an index.
func (r *Record) Validate() error {
	switch {
	case r.FormatVersion > FormatVersion:
		return fmt.Errorf("%w: format version %d is newer than %d", ErrInvalidRecord, r.FormatVersion, FormatVersion)
	case r.VectorLength <= 0:
		return fmt.Errorf("%w: vector_length %d", ErrInvalidRecord, r.VectorLength)
	case r.EntityType == "":
		return fmt.Errorf("%w: missing entity_type", ErrInvalidRecord)
	case r.IDPredicate == "":
		return fmt.Errorf("%w: missing id_predicate", ErrInvalidRecord)
	case !r.Metric.Valid():
		return fmt.Errorf("%w: metric %s", ErrInvalidRecord, r.Metric)
	}
	return nil
}

// EncodeRecord validates r and encodes it with c (Default when nil).
func EncodeRecord(c Codec, r *Record) ([]byte, error) {
	if c == nil {
		c = Default
	}
	if r.FormatVersion == 0 {
		r.FormatVersion = FormatVersion
	}
	r.Codec = c.Name()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return c.Marshal(r)
}

// DecodeRecord decodes and validates a record. The record is read with c
// first; when it names a different codec it is read again with that one.
// Records written before the format was versioned decode as version 1.
func DecodeRecord(c Codec, data []byte) (*Record, error) {
	if c == nil {
		c = Default
	}
	var r Record
	if err := c.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if r.Codec != "" && r.Codec != c.Name() {
		named, ok := ByName(r.Codec)
		if !ok {
			return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidRecord, r.Codec)
		}
		r = Record{}
		if err := named.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRecord, named.Name(), err)
		}
	}
	if r.FormatVersion == 0 {
		r.FormatVersion = FormatVersion
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
