package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphkb/distance"
)

func sampleRecord() *Record {
	return &Record{
		VectorLength:     2,
		EntityType:       "http://example.org/Item",
		IDPredicate:      "http://example.org/id",
		Metric:           distance.MetricEuclidean,
		Trees:            10,
		ItemCount:        3,
		CreatedAt:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		GraphCompression: "lz4",
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := EncodeRecord(c, sampleRecord())
			require.NoError(t, err)
			assert.Contains(t, string(data), `"metric":"euclidean"`)
			assert.Contains(t, string(data), `"vector_length":2`)

			got, err := DecodeRecord(c, data)
			require.NoError(t, err)
			want := sampleRecord()
			want.FormatVersion = FormatVersion
			want.Codec = c.Name()
			assert.Equal(t, want, got)
		})
	}
}

func TestDecodeRecord_Legacy(t *testing.T) {
	got, err := DecodeRecord(nil, []byte(`{"vector_length":128,"entity_type":"E","id_predicate":"P"}`))
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, got.FormatVersion)
	assert.Equal(t, distance.MetricAngular, got.Metric)
}

func TestDecodeRecord_Invalid(t *testing.T) {
	tests := map[string]string{
		"garbage":    `{`,
		"no length":  `{"entity_type":"E","id_predicate":"P"}`,
		"no type":    `{"vector_length":1,"id_predicate":"P"}`,
		"no pred":    `{"vector_length":1,"entity_type":"E"}`,
		"future":     `{"format_version":99,"vector_length":1,"entity_type":"E","id_predicate":"P"}`,
		"bad metric": `{"vector_length":1,"entity_type":"E","id_predicate":"P","metric":"chebyshev"}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRecord(nil, []byte(data))
			assert.Error(t, err)
		})
	}

	_, err := EncodeRecord(nil, &Record{})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = ByName("")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("gob")
	assert.False(t, ok)
}

func TestDecodeRecord_NamedCodec(t *testing.T) {
	data, err := EncodeRecord(JSON{}, sampleRecord())
	require.NoError(t, err)

	got, err := DecodeRecord(GoJSON{}, data)
	require.NoError(t, err)
	assert.Equal(t, "json", got.Codec)
	assert.Equal(t, 2, got.VectorLength)

	_, err = DecodeRecord(nil, []byte(`{"vector_length":1,"entity_type":"E","id_predicate":"P","codec":"gob"}`))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
