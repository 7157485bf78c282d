package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprite-engine/core"
)

func TestFillMeshRejectsOverflow(t *testing.T) {
	requests := make([]DrawRequest, MaxSprites+3)
	for i := range requests {
		requests[i] = quadRequest(Opaque, 0, ProgramFlat, 0, core.ColorWhite)
	}

	m := NewMesh()
	rejected := fillMesh(m, requests, nil)

	assert.Equal(t, 3, rejected)
	assert.Equal(t, MaxSprites, m.QuadCount())
	assert.True(t, m.Full())
}

func TestFillMeshWithinCapacity(t *testing.T) {
	requests := []DrawRequest{
		quadRequest(Opaque, 0, ProgramFlat, 0, core.ColorWhite),
		quadRequest(Opaque, 0, ProgramFlat, 0, core.ColorRed),
	}
	m := NewMesh()
	assert.Zero(t, fillMesh(m, requests, nil))
	assert.Equal(t, 2, m.QuadCount())
}

func TestFillMeshUnregisteredTexture(t *testing.T) {
	// A sprite whose texture is not registered still lands in the mesh,
	// with UVs taken against a unit atlas.
	requests := []DrawRequest{{
		Transparency: Opaque,
		ProgramID:    ProgramSprite,
		TextureID:    9,
		Payload: Sprite{
			Position: mgl32.Vec2{0, 0},
			Scale:    1,
			Color:    core.ColorWhite,
			Region:   core.SpriteRegion{X: 0, Y: 0, Width: 1, Height: 1},
		},
	}}
	m := NewMesh()
	require.Zero(t, fillMesh(m, requests, nil))
	require.Equal(t, 1, m.QuadCount())
	assert.Equal(t, mgl32.Vec2{1, 1}, m.Vertices[2].UV)
}

func TestBatchStaleThreshold(t *testing.T) {
	const evictAfter = 300
	assert.False(t, batchStale(100, 100, evictAfter), "just used")
	assert.False(t, batchStale(100, 400, evictAfter), "exactly at threshold")
	assert.True(t, batchStale(100, 401, evictAfter), "one past threshold")
}

func TestBatchReuseKeysMatchAcrossFrames(t *testing.T) {
	// The same request on consecutive frames resolves to the same key,
	// so the batch map reuses one entry rather than allocating another.
	first := quadRequest(Transparent, 4, ProgramFlat, 0, core.ColorWhite)
	second := quadRequest(Transparent, 4, ProgramFlat, 0, core.ColorWhite)

	seen := map[BatchKey]int{}
	seen[first.Key()]++
	seen[second.Key()]++
	require.Len(t, seen, 1)
	assert.Equal(t, 2, seen[first.Key()])
}
