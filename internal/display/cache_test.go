package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkShownDeduplicates(t *testing.T) {
	cache := NewCache()

	assert.False(t, cache.MarkShown("imagebytes"), "first sighting is not a duplicate")
	assert.True(t, cache.MarkShown("imagebytes"))
	assert.False(t, cache.MarkShown("otherbytes"))
}

func TestResetForgetsEverything(t *testing.T) {
	cache := NewCache()
	cache.MarkShown("imagebytes")

	cache.Reset()

	assert.False(t, cache.MarkShown("imagebytes"))
}
