package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprite-engine/core"
)

func quadRequest(transparency Transparency, layer uint8, program, texture uint16, color core.Color) DrawRequest {
	return DrawRequest{
		Transparency: transparency,
		Layer:        layer,
		ProgramID:    program,
		TextureID:    texture,
		Payload: Quad{
			BottomLeft:  mgl32.Vec2{0, 0},
			BottomRight: mgl32.Vec2{1, 0},
			TopLeft:     mgl32.Vec2{0, 1},
			TopRight:    mgl32.Vec2{1, 1},
			Color:       color,
		},
	}
}

func TestBatchKeyOpaqueBeforeTransparent(t *testing.T) {
	// Opaque sorts first no matter how the other fields compare.
	opaque := MakeBatchKey(Opaque, 255, 65535, 65535)
	transparent := MakeBatchKey(Transparent, 0, 0, 0)
	assert.Less(t, uint64(opaque), uint64(transparent))
}

func TestBatchKeyOrderWithinTransparency(t *testing.T) {
	byLayer := MakeBatchKey(Opaque, 1, 0, 0)
	byProgram := MakeBatchKey(Opaque, 0, 1, 0)
	byTexture := MakeBatchKey(Opaque, 0, 0, 1)

	assert.Greater(t, uint64(byLayer), uint64(byProgram), "layer outranks program")
	assert.Greater(t, uint64(byProgram), uint64(byTexture), "program outranks texture")
}

func TestBatchKeyAccessors(t *testing.T) {
	key := MakeBatchKey(Transparent, 7, 300, 42)
	assert.Equal(t, uint16(300), key.ProgramID())
	assert.Equal(t, uint16(42), key.TextureID())
}

func TestBatchKeyEquality(t *testing.T) {
	a := quadRequest(Transparent, 3, 1, 9, core.ColorRed)
	b := quadRequest(Transparent, 3, 1, 9, core.ColorBlue)
	c := quadRequest(Transparent, 3, 1, 10, core.ColorBlue)
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestSortRequestsIsStable(t *testing.T) {
	requests := []DrawRequest{
		quadRequest(Opaque, 1, 0, 0, core.ColorRed),
		quadRequest(Opaque, 0, 0, 0, core.ColorWhite),
		quadRequest(Opaque, 1, 0, 0, core.ColorGreen),
		quadRequest(Opaque, 1, 0, 0, core.ColorBlue),
	}
	sortRequests(requests)

	assert.Equal(t, uint8(0), requests[0].Layer)
	// Same-key requests keep their submission order.
	colors := []core.Color{
		requests[1].Payload.(Quad).Color,
		requests[2].Payload.(Quad).Color,
		requests[3].Payload.(Quad).Color,
	}
	assert.Equal(t, []core.Color{core.ColorRed, core.ColorGreen, core.ColorBlue}, colors)
}

func TestPartitionRunsGroupsByKey(t *testing.T) {
	requests := []DrawRequest{
		quadRequest(Opaque, 0, 0, 0, core.ColorWhite),
		quadRequest(Opaque, 0, 0, 0, core.ColorRed),
		quadRequest(Opaque, 1, 0, 0, core.ColorGreen),
		quadRequest(Transparent, 0, 1, 2, core.ColorBlue),
	}
	sortRequests(requests)
	runs := partitionRuns(requests)

	require.Len(t, runs, 3)
	assert.Len(t, runs[0].requests, 2)
	assert.Len(t, runs[1].requests, 1)
	assert.Len(t, runs[2].requests, 1)
	for _, run := range runs {
		for _, request := range run.requests {
			assert.Equal(t, run.key, request.Key())
		}
	}
}

func TestPartitionRunsEmpty(t *testing.T) {
	assert.Nil(t, partitionRuns(nil))
}

func TestPartitionRunsSingleKey(t *testing.T) {
	requests := []DrawRequest{
		quadRequest(Opaque, 2, 1, 5, core.ColorWhite),
		quadRequest(Opaque, 2, 1, 5, core.ColorRed),
		quadRequest(Opaque, 2, 1, 5, core.ColorBlue),
	}
	sortRequests(requests)
	runs := partitionRuns(requests)

	require.Len(t, runs, 1)
	assert.Len(t, runs[0].requests, 3)
}

func TestSpriteAppendsIntoMesh(t *testing.T) {
	m := NewMesh()
	tex := &Texture{Width: 64, Height: 64}
	payload := Sprite{
		Position: mgl32.Vec2{10, 10},
		Scale:    1,
		Color:    core.ColorWhite,
		Region:   core.SpriteRegion{X: 0, Y: 0, Width: 16, Height: 16},
	}
	payload.appendTo(m, tex)
	require.Equal(t, 1, m.QuadCount())
	assert.Equal(t, mgl32.Vec2{0.25, 0.25}, m.Vertices[2].UV)
}
