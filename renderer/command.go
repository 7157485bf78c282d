package renderer

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"sprite-engine/core"
)

// Transparency splits the draw order into an opaque pass followed by a
// transparent pass.
type Transparency uint8

const (
	Opaque Transparency = iota
	Transparent
)

// Renderable is the closed set of draw payloads. Quad carries explicit
// corner positions; Sprite references an atlas sub-region.
type Renderable interface {
	appendTo(mesh *Mesh, tex *Texture)
}

// Quad draws a solid-colored quad at four explicit corners.
type Quad struct {
	BottomLeft  mgl32.Vec2
	BottomRight mgl32.Vec2
	TopLeft     mgl32.Vec2
	TopRight    mgl32.Vec2
	Color       core.Color
}

func (q Quad) appendTo(mesh *Mesh, _ *Texture) {
	mesh.AddQuad(q.BottomLeft, q.BottomRight, q.TopLeft, q.TopRight, q.Color)
}

// Sprite draws an atlas region at a position, offset by a scaled pivot.
type Sprite struct {
	Position mgl32.Vec2
	Pivot    mgl32.Vec2
	Scale    float32
	Color    core.Color
	Region   core.SpriteRegion
}

func (s Sprite) appendTo(mesh *Mesh, tex *Texture) {
	atlasWidth, atlasHeight := uint32(1), uint32(1)
	if tex != nil {
		atlasWidth, atlasHeight = tex.Width, tex.Height
	}
	mesh.AddSprite(s.Position, s.Pivot, s.Scale, s.Color, s.Region, atlasWidth, atlasHeight)
}

// DrawRequest is one immutable draw submitted for the current frame.
type DrawRequest struct {
	Transparency Transparency
	Layer        uint8
	ProgramID    uint16
	TextureID    uint16
	Payload      Renderable
}

// BatchKey packs the draw state into a single integer whose ascending
// order is the draw order: opaque before transparent, then by layer,
// then shader program, then texture.
type BatchKey uint64

func MakeBatchKey(transparency Transparency, layer uint8, programID, textureID uint16) BatchKey {
	return BatchKey(uint64(transparency)<<56 | uint64(layer)<<48 | uint64(programID)<<32 | uint64(textureID)<<16)
}

// Key derives the request's batch key.
func (r DrawRequest) Key() BatchKey {
	return MakeBatchKey(r.Transparency, r.Layer, r.ProgramID, r.TextureID)
}

func (k BatchKey) ProgramID() uint16 { return uint16(k >> 32) }
func (k BatchKey) TextureID() uint16 { return uint16(k >> 16) }

// sortRequests orders requests by batch key, keeping submission order
// within each key so geometry lands in the mesh in a stable order.
func sortRequests(requests []DrawRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].Key() < requests[j].Key()
	})
}

// batchRun is one contiguous run of sorted requests sharing a key.
type batchRun struct {
	key      BatchKey
	requests []DrawRequest
}

// partitionRuns splits a key-sorted request list into contiguous runs.
// The input must already be sorted by key.
func partitionRuns(sorted []DrawRequest) []batchRun {
	if len(sorted) == 0 {
		return nil
	}
	runs := make([]batchRun, 0, 8)
	start := 0
	current := sorted[0].Key()
	for i := 1; i < len(sorted); i++ {
		if key := sorted[i].Key(); key != current {
			runs = append(runs, batchRun{key: current, requests: sorted[start:i]})
			start = i
			current = key
		}
	}
	return append(runs, batchRun{key: current, requests: sorted[start:]})
}
