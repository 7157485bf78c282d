package renderer

import (
	"fmt"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"

	"sprite-engine/vulkan"
)

// Texture is one registered GPU texture: image, view, and sampler, owned
// by the texture manager for the renderer's lifetime.
type Texture struct {
	ID      uint16
	Width   uint32
	Height  uint32
	Image   *vulkan.Image
	Sampler vk.Sampler
}

func (t *Texture) destroy(device *vulkan.Device) {
	vulkan.DestroySampler(device, t.Sampler)
	t.Image.Destroy(device)
}

// textureManager owns all registered textures, keyed by id.
type textureManager struct {
	textures map[uint16]*Texture
}

func newTextureManager() *textureManager {
	return &textureManager{textures: make(map[uint16]*Texture)}
}

func (tm *textureManager) lookup(id uint16) *Texture {
	return tm.textures[id]
}

// register uploads pixels as a new texture under id. Re-registering an
// id replaces the old texture; the caller must have quiesced the GPU
// first so the old image is safe to destroy.
func (tm *textureManager) register(device *vulkan.Device, id uint16, width, height uint32, pixels []byte) error {
	image, err := vulkan.CreateImage(device, width, height, vk.FormatR8g8b8a8Unorm,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return fmt.Errorf("failed to create texture %d image: %w", id, err)
	}
	if err := image.CreateView(device, vk.ImageAspectFlags(vk.ImageAspectColorBit)); err != nil {
		image.Destroy(device)
		return fmt.Errorf("failed to create texture %d view: %w", id, err)
	}
	if err := vulkan.UploadImagePixels(device, image, pixels); err != nil {
		image.Destroy(device)
		return fmt.Errorf("failed to upload texture %d: %w", id, err)
	}
	sampler, err := vulkan.CreateSampler(device, vk.FilterNearest, vk.FilterNearest, vk.SamplerAddressModeClampToEdge)
	if err != nil {
		image.Destroy(device)
		return fmt.Errorf("failed to create texture %d sampler: %w", id, err)
	}

	if old, ok := tm.textures[id]; ok {
		slog.Debug("replacing texture", "id", id, "width", width, "height", height)
		old.destroy(device)
	}
	tm.textures[id] = &Texture{
		ID:      id,
		Width:   width,
		Height:  height,
		Image:   image,
		Sampler: sampler,
	}
	return nil
}

func (tm *textureManager) destroy(device *vulkan.Device) {
	for id, tex := range tm.textures {
		tex.destroy(device)
		delete(tm.textures, id)
	}
}
