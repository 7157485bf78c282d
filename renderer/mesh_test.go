package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprite-engine/core"
)

func TestAddQuadGeometry(t *testing.T) {
	m := NewMesh()
	m.AddQuad(
		mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0},
		mgl32.Vec2{0, 1}, mgl32.Vec2{1, 1},
		core.ColorWhite)

	require.Len(t, m.Vertices, 4)
	require.Len(t, m.Indices, 6)

	uvs := []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	for i, v := range m.Vertices {
		assert.Equal(t, uvs[i], v.UV, "vertex %d UV", i)
		assert.Equal(t, positions[i], v.Position, "vertex %d position", i)
		assert.Equal(t, core.ColorWhite, v.Color, "vertex %d color", i)
	}
	assert.Equal(t, []uint32{0, 1, 2, 2, 3, 0}, m.Indices)
}

func TestAddQuadIndexOffsets(t *testing.T) {
	m := NewMesh()
	corners := []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	m.AddQuad(corners[0], corners[1], corners[2], corners[3], core.ColorWhite)
	m.AddQuad(corners[0], corners[1], corners[2], corners[3], core.ColorRed)

	require.Len(t, m.Indices, 12)
	assert.Equal(t, []uint32{4, 5, 6, 6, 7, 4}, m.Indices[6:])
	assert.Equal(t, 2, m.QuadCount())
}

func TestAddSpriteUVMapping(t *testing.T) {
	m := NewMesh()
	region := core.SpriteRegion{X: 16, Y: 32, Width: 8, Height: 8}
	m.AddSprite(mgl32.Vec2{0, 0}, mgl32.Vec2{0, 0}, 1, core.ColorWhite, region, 128, 128)

	require.Len(t, m.Vertices, 4)
	// top-left, top-right, bottom-right, bottom-left
	assert.Equal(t, mgl32.Vec2{0.125, 0.25}, m.Vertices[0].UV)
	assert.Equal(t, mgl32.Vec2{0.1875, 0.25}, m.Vertices[1].UV)
	assert.Equal(t, mgl32.Vec2{0.1875, 0.3125}, m.Vertices[2].UV)
	assert.Equal(t, mgl32.Vec2{0.125, 0.3125}, m.Vertices[3].UV)
}

func TestAddSpritePivotAndScale(t *testing.T) {
	m := NewMesh()
	region := core.SpriteRegion{X: 0, Y: 0, Width: 10, Height: 20}
	m.AddSprite(mgl32.Vec2{100, 50}, mgl32.Vec2{5, 10}, 2, core.ColorWhite, region, 64, 64)

	// Origin offset by -(pivot * scale), size is region * scale.
	bl := m.Vertices[3].Position
	tr := m.Vertices[1].Position
	assert.Equal(t, mgl32.Vec3{90, 30, 0}, bl)
	assert.Equal(t, mgl32.Vec3{110, 70, 0}, tr)
}

func TestMeshClearKeepsCapacity(t *testing.T) {
	m := NewMesh()
	for i := 0; i < 10; i++ {
		m.AddQuad(mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, mgl32.Vec2{0, 1}, mgl32.Vec2{1, 1}, core.ColorWhite)
	}
	vertexCap := cap(m.Vertices)
	indexCap := cap(m.Indices)

	m.Clear()
	assert.Empty(t, m.Vertices)
	assert.Empty(t, m.Indices)
	assert.Equal(t, vertexCap, cap(m.Vertices))
	assert.Equal(t, indexCap, cap(m.Indices))
	assert.Equal(t, 0, m.QuadCount())
}

func TestMeshFull(t *testing.T) {
	m := NewMesh()
	assert.False(t, m.Full())
	for i := 0; i < MaxSprites; i++ {
		m.AddQuad(mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, mgl32.Vec2{0, 1}, mgl32.Vec2{1, 1}, core.ColorWhite)
	}
	assert.True(t, m.Full())
}
