package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticStorageReserveUnlockOpen(t *testing.T) {
	dir := t.TempDir()
	s := NewStaticStorage(dir, ".service")

	assert.False(t, s.Exists("demo"))

	res, err := s.Reserve("demo")
	require.NoError(t, err)

	// Not readable until unlocked.
	assert.False(t, s.Exists("demo"))
	_, err = s.Open("demo")
	assert.ErrorIs(t, err, ErrDoesNotExist)

	require.NoError(t, res.Unlock([]byte("payload")))

	assert.True(t, s.Exists("demo"))
	data, err := s.Open("demo")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestStaticStorageReserveTwiceFailsWhileLocked(t *testing.T) {
	dir := t.TempDir()
	s := NewStaticStorage(dir, ".service")

	_, err := s.Reserve("demo")
	require.NoError(t, err)

	_, err = s.Reserve("demo")
	assert.ErrorIs(t, err, ErrIsBeingCreatedByAnotherInstance)
}

func TestStaticStorageReserveFailsAfterUnlock(t *testing.T) {
	dir := t.TempDir()
	s := NewStaticStorage(dir, ".service")

	res, err := s.Reserve("demo")
	require.NoError(t, err)
	require.NoError(t, res.Unlock([]byte("x")))

	_, err = s.Reserve("demo")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestStaticStorageAbortReleasesReservation(t *testing.T) {
	dir := t.TempDir()
	s := NewStaticStorage(dir, ".service")

	res, err := s.Reserve("demo")
	require.NoError(t, err)
	require.NoError(t, res.Abort())

	res2, err := s.Reserve("demo")
	require.NoError(t, err)
	require.NoError(t, res2.Unlock([]byte("x")))
}

func TestStaticStorageRemove(t *testing.T) {
	dir := t.TempDir()
	s := NewStaticStorage(dir, ".service")

	res, _ := s.Reserve("demo")
	_ = res.Unlock([]byte("x"))

	require.NoError(t, s.Remove("demo"))
	assert.False(t, s.Exists("demo"))
	assert.NoFileExists(t, filepath.Join(dir, "demo.service"))
}

func TestDynamicStorageCreateOpenRelease(t *testing.T) {
	s := NewDynamicStorage()

	dc, err := s.CreateAndMarkReady("svc", 4, 8, 4)
	require.NoError(t, err)
	assert.True(t, dc.IsReady())

	_, err = s.CreateAndMarkReady("svc", 4, 8, 4)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	opened, err := s.Open("svc")
	require.NoError(t, err)
	assert.Same(t, dc, opened)

	s.Release("svc")
	s.Release("svc")
	assert.False(t, s.Exists("svc"))
}

func TestDynamicStorageOpenFailsWhenMissing(t *testing.T) {
	s := NewDynamicStorage()
	_, err := s.Open("missing")
	assert.ErrorIs(t, err, ErrDoesNotExist)
}

func TestDynamicStorageOpenOrCreateIdempotent(t *testing.T) {
	s := NewDynamicStorage()

	a := s.OpenOrCreate("svc", 4, 8, 4)
	b := s.OpenOrCreate("svc", 4, 8, 4)
	assert.Same(t, a, b)
	assert.True(t, a.IsReady())
}
