package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeStaticConfigRoundTrips(t *testing.T) {
	original := sampleStatic()
	data, err := EncodeStaticConfig(original)
	require.NoError(t, err)

	decoded, err := DecodeStaticConfig(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestEncodeStaticConfigIncludesVersion(t *testing.T) {
	data, err := EncodeStaticConfig(sampleStatic())
	require.NoError(t, err)
	assert.Contains(t, string(data), "version")
}

func TestDecodeStaticConfigIgnoresUnknownKeys(t *testing.T) {
	data, err := EncodeStaticConfig(sampleStatic())
	require.NoError(t, err)
	withExtra := strings.Replace(string(data), "[service]", "[service]\nsome_future_field = 123", 1)

	decoded, err := DecodeStaticConfig([]byte(withExtra))
	require.NoError(t, err)
	assert.Equal(t, "demo", decoded.ServiceName)
}

func TestDecodeStaticConfigRejectsNewerVersion(t *testing.T) {
	data, err := EncodeStaticConfig(sampleStatic())
	require.NoError(t, err)
	bumped := strings.Replace(string(data), "version = 1", "version = 999", 1)

	_, err = DecodeStaticConfig([]byte(bumped))
	assert.Error(t, err)
}

func TestDecodeStaticConfigRejectsMissingMeta(t *testing.T) {
	_, err := DecodeStaticConfig([]byte("[service]\nname = x\n"))
	assert.Error(t, err)
}
