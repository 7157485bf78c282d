package renderer

import (
	"fmt"
	"log/slog"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"sprite-engine/core"
	"sprite-engine/vulkan"
)

const (
	// Per-frame ring region sizes. Each batch owns one region per frame
	// in flight so the CPU can rebuild a region while the GPU still
	// reads the other.
	vertexRegionSize = MaxSprites * 4 * vulkan.VertexStride
	indexRegionSize  = MaxSprites * 6 * 4
)

// Batch owns the GPU-side state for one BatchKey: ring vertex/index
// buffers, a descriptor set bound once at creation, and the transient
// mesh rebuilt each frame.
type Batch struct {
	Key  BatchKey
	Mesh *Mesh

	vertexBuffer *vulkan.Buffer
	indexBuffer  *vulkan.Buffer
	descriptor   vk.DescriptorSet
	program      *ShaderProgram

	// indexCount per frame slot, captured at upload time so the draw
	// call matches the region actually written for that slot.
	indexCounts [vulkan.MaxFramesInFlight]uint32

	// lastUsed is the frame index of the most recent frame that drew
	// this batch, used for idle eviction.
	lastUsed uint64
}

// NewBatch allocates the batch's ring buffers and writes its descriptor
// set once: binding 0 is the shared uniform buffer, binding 1 the
// texture's view and sampler when the program samples one.
func NewBatch(device *vulkan.Device, key BatchKey, program *ShaderProgram,
	uniform *vulkan.Buffer, uniformSize uint64, texture *Texture) (*Batch, error) {

	vertexBuffer, err := vulkan.CreateBuffer(device, vertexRegionSize*vulkan.MaxFramesInFlight,
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	if err != nil {
		return nil, fmt.Errorf("failed to create batch vertex buffer: %w", err)
	}
	indexBuffer, err := vulkan.CreateBuffer(device, indexRegionSize*vulkan.MaxFramesInFlight,
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	if err != nil {
		vertexBuffer.Destroy(device)
		return nil, fmt.Errorf("failed to create batch index buffer: %w", err)
	}

	set, err := program.Pool.AllocateDescriptorSet(device, program.SetLayout)
	if err != nil {
		indexBuffer.Destroy(device)
		vertexBuffer.Destroy(device)
		return nil, fmt.Errorf("failed to allocate batch descriptor set: %w", err)
	}

	for i, binding := range program.Bindings {
		switch binding.Kind {
		case vulkan.DescriptorUniformBuffer:
			vulkan.UpdateDescriptorSetBuffer(device, set, uint32(i), uniform.Handle, 0, uniformSize)
		case vulkan.DescriptorCombinedImageSampler:
			// An unregistered texture leaves the image binding unwritten;
			// the batch still exists so the frame survives, and the write
			// happens on recreation once the texture shows up.
			if texture == nil {
				slog.Warn("texture not registered, image binding left unwritten",
					"texture", key.TextureID(), "program", key.ProgramID())
				continue
			}
			vulkan.UpdateDescriptorSetImage(device, set, uint32(i), texture.Image.View, texture.Sampler)
		}
	}

	return &Batch{
		Key:          key,
		Mesh:         NewMesh(),
		vertexBuffer: vertexBuffer,
		indexBuffer:  indexBuffer,
		descriptor:   set,
		program:      program,
	}, nil
}

// Upload writes the batch's mesh into the given frame slot's ring
// regions and records the index count to draw for that slot.
func (b *Batch) Upload(device *vulkan.Device, slot uint32) error {
	if len(b.Mesh.Indices) == 0 {
		b.indexCounts[slot] = 0
		return nil
	}
	if err := b.vertexBuffer.Update(device, uint64(slot), vertexRegionSize, vertexBytes(b.Mesh.Vertices)); err != nil {
		return fmt.Errorf("failed to upload batch vertices: %w", err)
	}
	if err := b.indexBuffer.Update(device, uint64(slot), indexRegionSize, indexBytes(b.Mesh.Indices)); err != nil {
		return fmt.Errorf("failed to upload batch indices: %w", err)
	}
	b.indexCounts[slot] = uint32(len(b.Mesh.Indices))
	return nil
}

// Record binds the batch's pipeline, frame-offset buffer regions, and
// descriptor set, then issues its single indexed draw. uniformOffset
// selects the frame slot's region of the shared uniform buffer.
func (b *Batch) Record(cb *vulkan.CommandBuffer, slot uint32, uniformOffset uint32) {
	count := b.indexCounts[slot]
	if count == 0 {
		return
	}
	cb.BindPipeline(b.program.Pipeline.Handle)
	cb.BindVertexBuffer(b.vertexBuffer.Handle, uint64(slot)*vertexRegionSize)
	cb.BindIndexBuffer(b.indexBuffer.Handle, uint64(slot)*indexRegionSize)
	cb.BindDescriptorSet(b.program.Pipeline.Layout, b.descriptor, uniformOffset)
	cb.DrawIndexed(count)
}

// Destroy releases the batch's buffers and returns its descriptor set
// to the program's pool. The caller must ensure the GPU is no longer
// reading the batch's resources.
func (b *Batch) Destroy(device *vulkan.Device) {
	b.program.Pool.FreeDescriptorSet(device, b.descriptor)
	b.indexBuffer.Destroy(device)
	b.vertexBuffer.Destroy(device)
}

func vertexBytes(vertices []core.Vertex) []byte {
	size := len(vertices) * vulkan.VertexStride
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
}

func indexBytes(indices []uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}
