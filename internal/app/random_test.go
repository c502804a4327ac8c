package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomizer_SeedIsDeterministic(t *testing.T) {
	a, b := NewRandomizer(7), NewRandomizer(7)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.IntN(100), b.IntN(100))
	}
}

func TestRandomizer_IntNInRange(t *testing.T) {
	r := NewRandomizer(0)
	for i := 0; i < 100; i++ {
		n := r.IntN(5)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 5)
	}
}
