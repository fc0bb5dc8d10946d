package graphkb

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphkb/archive"
	"github.com/hupe1980/graphkb/codec"
	"github.com/hupe1980/graphkb/distance"
	"github.com/hupe1980/graphkb/index"
	"github.com/hupe1980/graphkb/vecfile"
)

func TestTranslateError(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, translateError("op", "p", nil))
	})

	t.Run("Sentinels", func(t *testing.T) {
		tests := []struct {
			in   error
			want error
		}{
			{index.ErrInvalidK, ErrInvalidK},
			{index.ErrClosed, ErrClosed},
			{archive.ErrClosed, ErrClosed},
			{fmt.Errorf("x: %w", archive.ErrImageNotFound), ErrNotFound},
			{&index.ErrItemNotFound{ID: 9}, ErrNotFound},
		}
		for _, tt := range tests {
			err := translateError("op", "p", tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.in)
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		err := translateError("ingest", "emb", &index.ErrDimensionMismatch{Expected: 128, Actual: 64})

		var ie *InputError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "ingest", ie.Op)
		assert.Equal(t, "emb", ie.Path)

		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 128, dm.Expected)
		assert.Equal(t, 64, dm.Actual)

		var cause *index.ErrDimensionMismatch
		assert.ErrorAs(t, err, &cause)
	})

	t.Run("InvalidDistanceType", func(t *testing.T) {
		err := translateError("open", "kb", &index.ErrInvalidDistanceType{Metric: distance.Metric(99)})
		var dt *ErrInvalidDistanceType
		require.ErrorAs(t, err, &dt)
		assert.Equal(t, distance.Metric(99), dt.Metric)
	})

	t.Run("Input", func(t *testing.T) {
		for _, in := range []error{
			archive.ErrMalformed,
			codec.ErrInvalidRecord,
			vecfile.ErrMalformed,
			vecfile.ErrUnsupported,
			index.ErrEmpty,
			fs.ErrNotExist,
		} {
			var ie *InputError
			assert.ErrorAs(t, translateError("op", "p", fmt.Errorf("wrapped: %w", in)), &ie, in.Error())
		}
	})

	t.Run("Resource", func(t *testing.T) {
		for _, in := range []error{archive.ErrScratch, archive.ErrOpen, fs.ErrPermission} {
			var re *ResourceError
			assert.ErrorAs(t, translateError("op", "p", in), &re, in.Error())
		}
	})

	t.Run("AlreadyTranslated", func(t *testing.T) {
		in := &ResourceError{Op: "close", Err: errors.New("x")}
		assert.Same(t, in, translateError("op", "p", in))
	})
}

func TestErrorMessages(t *testing.T) {
	ie := &InputError{Op: "ingest", Path: "emb", Err: errors.New("bad")}
	assert.Contains(t, ie.Error(), "ingest")
	assert.Contains(t, ie.Error(), "emb")
	assert.Contains(t, ie.Error(), "bad")

	re := &ResourceError{Op: "close", Err: errors.New("busy")}
	assert.Contains(t, re.Error(), "busy")

	dm := &ErrDimensionMismatch{Expected: 3, Actual: 2}
	assert.Equal(t, "dimension mismatch: expected 3, got 2", dm.Error())
}
