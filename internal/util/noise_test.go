package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoise_DeterministicAndBounded(t *testing.T) {
	a := NewNoise(42)
	b := NewNoise(42)

	for i := 0; i < 100; i++ {
		x, y := float64(i)*0.37, float64(i)*-0.11
		v := a.At(x, y)
		assert.Equal(t, v, b.At(x, y), "одинаковый сид даёт одинаковый шум")
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}
