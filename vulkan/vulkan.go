// Package vulkan wraps the Vulkan objects the renderer owns: instance,
// device, swapchain, buffers, images, descriptors, pipelines and the
// synchronization primitives driving the frame loop. It is a thin layer
// over the github.com/vulkan-go/vulkan bindings; ownership and
// destruction stay explicit.
package vulkan

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// MaxFramesInFlight is the number of frames the CPU may record ahead of
// the GPU. Buffer ring regions and frame resources are sized for it.
const MaxFramesInFlight = 2

// Init points the bindings at the GLFW-provided loader and resolves the
// global entry points. Call once, on the main thread, before any other
// function in this package.
func Init() error {
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize Vulkan loader: %w", err)
	}
	return nil
}

// safeString null-terminates s for handoff to the C API.
func safeString(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\x00' {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}
