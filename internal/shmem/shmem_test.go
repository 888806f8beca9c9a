package shmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateExclusive(t *testing.T) {
	name := "test-segment-exclusive"
	defer Remove(name)

	_, err := Create(name, 16)
	assert.NoError(t, err)

	_, err = Create(name, 16)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestOpenOrCreateIdempotent(t *testing.T) {
	name := "test-segment-ooc"
	defer Remove(name)

	seg1, created1, err := OpenOrCreate(name, 8)
	assert.NoError(t, err)
	assert.True(t, created1)

	seg2, created2, err := OpenOrCreate(name, 8)
	assert.NoError(t, err)
	assert.False(t, created2)
	assert.Same(t, seg1, seg2)
}

func TestReleaseRemovesOnLastOwner(t *testing.T) {
	name := "test-segment-release"
	seg, err := Create(name, 4)
	assert.NoError(t, err)

	other, err := Open(name)
	assert.NoError(t, err)
	assert.Equal(t, 2, other.RefCount())

	seg.Release()
	assert.True(t, Exists(name))

	other.Release()
	assert.False(t, Exists(name))
}

func TestObjectsOpenOrCreateAndRelease(t *testing.T) {
	objs := NewObjects()
	v, created := objs.OpenOrCreate("dyncfg", func() any { return 42 })
	assert.True(t, created)
	assert.Equal(t, 42, v)

	v2, created2 := objs.OpenOrCreate("dyncfg", func() any { return 0 })
	assert.False(t, created2)
	assert.Equal(t, 42, v2)

	assert.False(t, objs.Release("dyncfg"))
	assert.True(t, objs.Release("dyncfg"))
	assert.False(t, objs.Exists("dyncfg"))
}
