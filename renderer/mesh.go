package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"sprite-engine/core"
)

// MaxSprites bounds the number of quads a single batch can hold per frame.
const MaxSprites = 4096

// Mesh is a growable CPU-side vertex/index stream. It is rebuilt every
// frame and uploaded into the owning batch's ring buffers; Clear keeps
// the backing arrays so steady-state frames allocate nothing.
type Mesh struct {
	Vertices []core.Vertex
	Indices  []uint32
}

func NewMesh() *Mesh {
	return &Mesh{
		Vertices: make([]core.Vertex, 0, 256),
		Indices:  make([]uint32, 0, 384),
	}
}

// Clear resets the mesh for reuse without releasing capacity.
func (m *Mesh) Clear() {
	m.Vertices = m.Vertices[:0]
	m.Indices = m.Indices[:0]
}

// QuadCount reports how many quads have been appended this frame.
func (m *Mesh) QuadCount() int {
	return len(m.Vertices) / 4
}

// Full reports whether the mesh has reached the per-batch quad capacity.
func (m *Mesh) Full() bool {
	return m.QuadCount() >= MaxSprites
}

// AddQuad appends four vertices at the given corners with z=0 and unit
// UVs, plus six indices forming two CCW triangles. Vertex order is
// bottom-left, bottom-right, top-right, top-left.
func (m *Mesh) AddQuad(bl, br, tl, tr mgl32.Vec2, color core.Color) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices,
		core.Vertex{Position: mgl32.Vec3{bl.X(), bl.Y(), 0}, Color: color, UV: mgl32.Vec2{0, 0}},
		core.Vertex{Position: mgl32.Vec3{br.X(), br.Y(), 0}, Color: color, UV: mgl32.Vec2{1, 0}},
		core.Vertex{Position: mgl32.Vec3{tr.X(), tr.Y(), 0}, Color: color, UV: mgl32.Vec2{1, 1}},
		core.Vertex{Position: mgl32.Vec3{tl.X(), tl.Y(), 0}, Color: color, UV: mgl32.Vec2{0, 1}},
	)
	m.appendQuadIndices(base)
}

// AddSprite appends a quad for an atlas sub-region. The draw position is
// the sprite origin offset by -(pivot * scale); width and height come
// from the region scaled uniformly. UVs are simple ratios of the region
// against the atlas dimensions and are not clamped, so an out-of-range
// region produces UVs outside the unit square.
func (m *Mesh) AddSprite(position, pivot mgl32.Vec2, scale float32, color core.Color,
	region core.SpriteRegion, atlasWidth, atlasHeight uint32) {

	u := float32(region.X) / float32(atlasWidth)
	v := float32(region.Y) / float32(atlasHeight)
	du := float32(region.Width) / float32(atlasWidth)
	dv := float32(region.Height) / float32(atlasHeight)

	px := position.X() - pivot.X()*scale
	py := position.Y() - pivot.Y()*scale
	w := float32(region.Width) * scale
	h := float32(region.Height) * scale

	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices,
		core.Vertex{Position: mgl32.Vec3{px, py + h, 0}, Color: color, UV: mgl32.Vec2{u, v}},
		core.Vertex{Position: mgl32.Vec3{px + w, py + h, 0}, Color: color, UV: mgl32.Vec2{u + du, v}},
		core.Vertex{Position: mgl32.Vec3{px + w, py, 0}, Color: color, UV: mgl32.Vec2{u + du, v + dv}},
		core.Vertex{Position: mgl32.Vec3{px, py, 0}, Color: color, UV: mgl32.Vec2{u, v + dv}},
	)
	m.appendQuadIndices(base)
}

func (m *Mesh) appendQuadIndices(base uint32) {
	m.Indices = append(m.Indices, base, base+1, base+2, base+2, base+3, base)
}
