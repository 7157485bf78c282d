// Demo: a field of layered sprites over a checkerboard atlas, with a
// flat-colored background quad, a translucent overlay, and a line-strip
// outline following the cursor.
package main

import (
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"sprite-engine/core"
	"sprite-engine/renderer"
	"sprite-engine/textures"
)

const atlasID uint16 = 1

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	window, err := core.NewWindow(core.DefaultWindowConfig())
	if err != nil {
		slog.Error("failed to create window", "error", err)
		os.Exit(1)
	}
	defer window.Destroy()

	config := renderer.DefaultConfig()
	config.AppName = "sprite-engine demo"
	config.ShaderDir = "shaders"
	r, err := renderer.New(window, config)
	if err != nil {
		slog.Error("failed to initialize renderer", "error", err)
		os.Exit(1)
	}
	defer r.Destroy()

	window.SetResizeCallback(func(width, height uint32) {
		r.Resize(width, height)
	})

	atlas := textures.Checkerboard(128, 128, 16, core.ColorWhite, core.Color{R: 0.8, G: 0.3, B: 0.3, A: 1})
	if err := r.RegisterTexture(atlasID, atlas.Width, atlas.Height, atlas.Pixels); err != nil {
		slog.Error("failed to register atlas", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	for !window.ShouldClose() {
		window.PollEvents()
		if window.IsKeyPressed(core.KeyEscape) {
			break
		}

		t := float32(time.Since(start).Seconds())
		r.SubmitFrame(buildScene(window, t))

		if err := r.Render(1.0); err != nil {
			slog.Error("render failed", "error", err)
			os.Exit(1)
		}
	}
	r.WaitIdle()
}

func buildScene(window *core.Window, t float32) []renderer.DrawRequest {
	width, height := window.GetFramebufferSize()
	w, h := float32(width), float32(height)

	requests := make([]renderer.DrawRequest, 0, 64)

	// Background quad on the lowest layer.
	requests = append(requests, renderer.DrawRequest{
		Transparency: renderer.Opaque,
		Layer:        0,
		ProgramID:    renderer.ProgramFlat,
		Payload: renderer.Quad{
			BottomLeft:  mgl32.Vec2{0, 0},
			BottomRight: mgl32.Vec2{w, 0},
			TopLeft:     mgl32.Vec2{0, h},
			TopRight:    mgl32.Vec2{w, h},
			Color:       core.Color{R: 0.1, G: 0.12, B: 0.18, A: 1},
		},
	})

	// A ring of atlas sprites orbiting the center.
	for i := 0; i < 12; i++ {
		angle := t*0.5 + float32(i)*math.Pi/6
		x := w/2 + 180*float32(math.Cos(float64(angle)))
		y := h/2 + 180*float32(math.Sin(float64(angle)))
		requests = append(requests, renderer.DrawRequest{
			Transparency: renderer.Opaque,
			Layer:        1,
			ProgramID:    renderer.ProgramSprite,
			TextureID:    atlasID,
			Payload: renderer.Sprite{
				Position: mgl32.Vec2{x, y},
				Pivot:    mgl32.Vec2{16, 16},
				Scale:    2,
				Color:    core.ColorWhite,
				Region:   core.SpriteRegion{X: 0, Y: 0, Width: 32, Height: 32},
			},
		})
	}

	// Translucent overlay drawn after all opaque geometry.
	pulse := 0.25 + 0.15*float32(math.Sin(float64(t*2)))
	requests = append(requests, renderer.DrawRequest{
		Transparency: renderer.Transparent,
		Layer:        2,
		ProgramID:    renderer.ProgramFlat,
		Payload: renderer.Quad{
			BottomLeft:  mgl32.Vec2{w / 4, h / 4},
			BottomRight: mgl32.Vec2{3 * w / 4, h / 4},
			TopLeft:     mgl32.Vec2{w / 4, 3 * h / 4},
			TopRight:    mgl32.Vec2{3 * w / 4, 3 * h / 4},
			Color:       core.Color{R: 0.2, G: 0.6, B: 0.9, A: pulse},
		},
	})

	// Debug outline around the cursor, on the topmost layer.
	cx, cy := window.GetCursorPos()
	x, y := float32(cx), h-float32(cy)
	requests = append(requests, renderer.DrawRequest{
		Transparency: renderer.Transparent,
		Layer:        3,
		ProgramID:    renderer.ProgramLine,
		Payload: renderer.Quad{
			BottomLeft:  mgl32.Vec2{x - 20, y - 20},
			BottomRight: mgl32.Vec2{x + 20, y - 20},
			TopLeft:     mgl32.Vec2{x - 20, y + 20},
			TopRight:    mgl32.Vec2{x + 20, y + 20},
			Color:       core.ColorGreen,
		},
	})

	return requests
}
