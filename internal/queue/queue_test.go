package queue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMax(t *testing.T) {
	q := NewMax(4)
	_, ok := q.Pop()
	assert.False(t, ok)

	q.Push(1, 0.5)
	q.Push(2, math.MaxFloat32)
	q.Push(3, -1)
	q.Push(4, 0.9)

	top, ok := q.Top()
	require.True(t, ok)
	assert.Equal(t, uint32(2), top.Node)

	var got []uint32
	for q.Len() > 0 {
		it, _ := q.Pop()
		got = append(got, it.Node)
	}
	assert.Equal(t, []uint32{2, 4, 1, 3}, got)
}

func TestMax_TiesPopInPushOrder(t *testing.T) {
	q := NewMax(0)
	for n := range uint32(16) {
		q.Push(n, 1)
	}
	q.Push(99, 2)

	it, _ := q.Pop()
	assert.Equal(t, uint32(99), it.Node)
	for want := range uint32(16) {
		it, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, it.Node)
	}
}

func TestMax_Reset(t *testing.T) {
	q := NewMax(2)
	q.Push(1, 1)
	q.Reset()
	assert.Zero(t, q.Len())
	_, ok := q.Top()
	assert.False(t, ok)
}
