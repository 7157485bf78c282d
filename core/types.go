package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Color struct {
	R, G, B, A float32
}

var (
	ColorWhite = Color{1, 1, 1, 1}
	ColorBlack = Color{0, 0, 0, 1}
	ColorGray  = Color{0.4, 0.4, 0.4, 1}
	ColorRed   = Color{1, 0, 0, 1}
	ColorGreen = Color{0, 1, 0, 1}
	ColorBlue  = Color{0, 0, 1, 1}
)

// Vertex is the wire format consumed by every pipeline: 3 floats position,
// 4 floats color, 2 floats UV, tightly packed at a 36-byte stride.
// Shaders bind position at location 0 (offset 0), color at location 1
// (offset 12) and UV at location 2 (offset 28).
type Vertex struct {
	Position mgl32.Vec3
	Color    Color
	UV       mgl32.Vec2
}

// SpriteRegion is a sub-rectangle of a texture atlas, in pixels.
type SpriteRegion struct {
	X, Y, Width, Height uint32
}
