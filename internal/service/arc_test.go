package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceArc(t *testing.T) {
	t.Run("middle of arc advances by one", func(t *testing.T) {
		next, end := AdvanceArc(1, 5)
		assert.Equal(t, 2, next)
		assert.False(t, end)
	})

	t.Run("last step reaches end, index stays bounded", func(t *testing.T) {
		next, end := AdvanceArc(4, 5)
		assert.Equal(t, 4, next)
		assert.True(t, end)
	})

	t.Run("choice on second to last step reaches end", func(t *testing.T) {
		// currentIndex+1 == totalSteps-1 еще не конец
		next, end := AdvanceArc(3, 5)
		assert.Equal(t, 4, next)
		assert.False(t, end)
	})

	t.Run("single step arc ends immediately", func(t *testing.T) {
		next, end := AdvanceArc(0, 1)
		assert.Equal(t, 0, next)
		assert.True(t, end)
	})

	t.Run("open ended arc never reaches end", func(t *testing.T) {
		next, end := AdvanceArc(0, 0)
		assert.Equal(t, 0, next)
		assert.False(t, end)

		next, end = AdvanceArc(7, 0)
		assert.Equal(t, 7, next)
		assert.False(t, end)
	})

	t.Run("index never decreases across repeated advances", func(t *testing.T) {
		idx := 0
		for i := 0; i < 10; i++ {
			next, _ := AdvanceArc(idx, 3)
			assert.GreaterOrEqual(t, next, idx)
			idx = next
		}
		assert.Equal(t, 2, idx)
	})
}
