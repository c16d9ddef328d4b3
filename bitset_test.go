package ecsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitSetMarkUnmark(t *testing.T) {
	var b BitSet
	assert.True(t, b.IsEmpty())

	b.Mark(5)
	assert.True(t, b.Test(5))
	assert.False(t, b.Test(4))
	assert.False(t, b.IsEmpty())

	b.Unmark(5)
	assert.False(t, b.Test(5))
	assert.True(t, b.IsEmpty())
}

func TestBitSetGrowsAcrossWords(t *testing.T) {
	var b BitSet
	b.Mark(200)
	require.True(t, b.Test(200))
	assert.False(t, b.Test(199))
	assert.Equal(t, 1, b.Cardinality())
}

func TestBitSetContainsAndIntersects(t *testing.T) {
	var required, mask BitSet
	required.Mark(1)
	required.Mark(3)

	mask.Mark(1)
	assert.False(t, mask.Contains(required))

	mask.Mark(3)
	mask.Mark(7)
	assert.True(t, mask.Contains(required))

	var excluded BitSet
	excluded.Mark(9)
	assert.False(t, mask.Intersects(excluded))
	excluded.Mark(7)
	assert.True(t, mask.Intersects(excluded))
}

func TestBitSetEqualsIgnoresTrailingWords(t *testing.T) {
	var a, b BitSet
	a.Mark(2)
	b.Mark(2)
	b.Mark(40)
	b.Unmark(40)
	assert.True(t, a.Equals(b))
}

func TestBitSetStringCanonicalForm(t *testing.T) {
	tests := []struct {
		name string
		bits []uint32
		want string
	}{
		{"empty", nil, "0"},
		{"single word", []uint32{0, 1}, "3"},
		{"multi word", []uint32{0, 32}, "1-00000001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b BitSet
			for _, bit := range tt.bits {
				b.Mark(bit)
			}
			assert.Equal(t, tt.want, b.String())
		})
	}
}

func TestBitSetOrAndAndNot(t *testing.T) {
	var a, b BitSet
	a.Mark(1)
	a.Mark(2)
	b.Mark(2)
	b.Mark(3)

	or := a.Or(b)
	assert.True(t, or.Test(1))
	assert.True(t, or.Test(2))
	assert.True(t, or.Test(3))

	and := a.And(b)
	assert.False(t, and.Test(1))
	assert.True(t, and.Test(2))
	assert.False(t, and.Test(3))

	andNot := a.AndNot(b)
	assert.True(t, andNot.Test(1))
	assert.False(t, andNot.Test(2))
}

func TestBitSetCloneIsIndependent(t *testing.T) {
	var a BitSet
	a.Mark(1)
	clone := a.Clone()
	clone.Mark(9)
	assert.False(t, a.Test(9))
	assert.True(t, clone.Test(9))
}
