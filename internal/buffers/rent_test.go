package buffers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRentEmpty(t *testing.T) {
	for _, n := range []int{0, -1, -4096} {
		b := Rent(n)
		assert.Equal(t, 0, b.Len())
		assert.Empty(t, b.Bytes())
		b.Return()
		b.Return()
	}
}

func TestRentExposesRequestedLength(t *testing.T) {
	for _, n := range []int{1, 16, 511, 512, 513, 4096, 100000, 1 << 24} {
		b := Rent(n)
		require.Len(t, b.Bytes(), n)
		assert.GreaterOrEqual(t, cap(b.Bytes()), n)
		b.Return()
	}
}

func TestRentOversizedBypassesPool(t *testing.T) {
	n := 1<<maxClassShift + 1
	b := Rent(n)
	assert.Equal(t, -1, b.class)
	assert.Len(t, b.Bytes(), n)
	b.Return()
}

func TestReturnIsIdempotent(t *testing.T) {
	b := Rent(1024)
	b.Return()
	assert.NotPanics(t, b.Return)
	assert.Nil(t, b.slab)
}

func TestBytesAfterReturnPanics(t *testing.T) {
	b := Rent(64)
	b.Return()
	assert.Panics(t, func() { _ = b.Bytes() })
}

func TestClassFor(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{1, 0},
		{512, 0},
		{513, 1},
		{1024, 1},
		{1025, 2},
		{1 << maxClassShift, maxClassShift - minClassShift},
		{1<<maxClassShift + 1, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classFor(tt.length), "length %d", tt.length)
	}
}
