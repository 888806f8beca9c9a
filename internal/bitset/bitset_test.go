package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetClearTest(t *testing.T) {
	b := New(130)
	assert.False(t, b.Test(64))
	assert.True(t, b.Set(64))
	assert.True(t, b.Test(64))
	assert.False(t, b.Set(64), "duplicate set must report false")
	assert.True(t, b.Clear(64))
	assert.False(t, b.Clear(64), "duplicate clear must report false")
}

func TestAcquireSetClearsAndReturnsIndices(t *testing.T) {
	b := New(100)
	b.Set(1)
	b.Set(63)
	b.Set(64)
	b.Set(99)

	acquired := b.AcquireSet()
	assert.ElementsMatch(t, []int{1, 63, 64, 99}, acquired)

	for _, i := range acquired {
		assert.False(t, b.Test(i))
	}
	assert.Empty(t, b.AcquireSet())
}
