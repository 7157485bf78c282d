package core

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestVertexWireLayout(t *testing.T) {
	// Shaders consume 36-byte vertices with fixed attribute offsets.
	var v Vertex
	assert.Equal(t, uintptr(36), unsafe.Sizeof(v))
	assert.Equal(t, uintptr(0), unsafe.Offsetof(v.Position))
	assert.Equal(t, uintptr(12), unsafe.Offsetof(v.Color))
	assert.Equal(t, uintptr(28), unsafe.Offsetof(v.UV))
}

func TestColorConstants(t *testing.T) {
	assert.Equal(t, Color{1, 1, 1, 1}, ColorWhite)
	assert.Equal(t, float32(1), ColorRed.R)
	assert.Equal(t, float32(1), ColorRed.A)
}
