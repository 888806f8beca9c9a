package namehash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfIsDeterministic(t *testing.T) {
	a := Of("demo", "publish-subscribe")
	b := Of("demo", "publish-subscribe")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestOfDistinguishesBoundaries(t *testing.T) {
	assert.NotEqual(t, Of("ab", "c"), Of("a", "bc"))
}

func TestOfDistinguishesPattern(t *testing.T) {
	assert.NotEqual(t, Of("demo", "publish-subscribe"), Of("demo", "event"))
}
