package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type CommandPool struct {
	Handle vk.CommandPool
}

func CreateCommandPool(device *Device, transient bool) (*CommandPool, error) {
	flags := vk.CommandPoolCreateFlags(0)
	if transient {
		flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit)
	}
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsFamily,
		Flags:            flags,
	}

	pool := &CommandPool{}
	if result := vk.CreateCommandPool(device.Handle, &poolInfo, nil, &pool.Handle); result != vk.Success {
		return nil, fmt.Errorf("failed to create command pool: %w", vk.Error(result))
	}
	return pool, nil
}

// Reset recycles every command buffer allocated from the pool. Only call
// after the fence of the frame that used them has signaled.
func (p *CommandPool) Reset(device *Device) error {
	if result := vk.ResetCommandPool(device.Handle, p.Handle, 0); result != vk.Success {
		return fmt.Errorf("failed to reset command pool: %w", vk.Error(result))
	}
	return nil
}

func (p *CommandPool) Destroy(device *Device) {
	vk.DestroyCommandPool(device.Handle, p.Handle, nil)
}

type CommandBuffer struct {
	Handle vk.CommandBuffer
}

func AllocateCommandBuffer(device *Device, pool *CommandPool) (*CommandBuffer, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.Handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if result := vk.AllocateCommandBuffers(device.Handle, &allocInfo, buffers); result != vk.Success {
		return nil, fmt.Errorf("failed to allocate command buffer: %w", vk.Error(result))
	}
	return &CommandBuffer{Handle: buffers[0]}, nil
}

func (cb *CommandBuffer) Begin(oneTime bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if oneTime {
		beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if result := vk.BeginCommandBuffer(cb.Handle, &beginInfo); result != vk.Success {
		return fmt.Errorf("failed to begin command buffer: %w", vk.Error(result))
	}
	return nil
}

func (cb *CommandBuffer) End() error {
	if result := vk.EndCommandBuffer(cb.Handle); result != vk.Success {
		return fmt.Errorf("failed to end command buffer: %w", vk.Error(result))
	}
	return nil
}

func (cb *CommandBuffer) BeginRenderPass(renderPass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, clearColor [4]float32) {
	clearValues := []vk.ClearValue{vk.NewClearValue(clearColor[:])}
	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cb.Handle, &renderPassInfo, vk.SubpassContentsInline)
}

func (cb *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(cb.Handle)
}

func (cb *CommandBuffer) BindPipeline(pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointGraphics, pipeline)
}

func (cb *CommandBuffer) BindVertexBuffer(buffer vk.Buffer, offset uint64) {
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{buffer}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (cb *CommandBuffer) BindIndexBuffer(buffer vk.Buffer, offset uint64) {
	vk.CmdBindIndexBuffer(cb.Handle, buffer, vk.DeviceSize(offset), vk.IndexTypeUint32)
}

// BindDescriptorSet binds one set with optional dynamic offsets for its
// dynamic uniform bindings.
func (cb *CommandBuffer) BindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet, dynamicOffsets ...uint32) {
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, layout, 0, 1,
		[]vk.DescriptorSet{set}, uint32(len(dynamicOffsets)), dynamicOffsets)
}

func (cb *CommandBuffer) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(cb.Handle, indexCount, 1, 0, 0, 0)
}

func (cb *CommandBuffer) SetViewport(width, height float32) {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    width,
		Height:   height,
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
}

func (cb *CommandBuffer) SetScissor(extent vk.Extent2D) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})
}

// TransitionImageLayout records the pipeline barrier moving image
// between layouts. The two transitions the renderer needs are
// Undefined -> TransferDstOptimal (top of pipe -> transfer) and
// TransferDstOptimal -> ShaderReadOnlyOptimal (transfer -> fragment
// shader).
func TransitionImageLayout(cb *CommandBuffer, image vk.Image, oldLayout, newLayout vk.ImageLayout) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return fmt.Errorf("unsupported layout transition: %d -> %d", oldLayout, newLayout)
	}

	vk.CmdPipelineBarrier(cb.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// CopyBufferToImage records a copy of a staging buffer into image.
// rowLengthTexels is the padded staging row length expressed in texels,
// derived from the device's buffer-copy pitch alignment.
func CopyBufferToImage(cb *CommandBuffer, buffer vk.Buffer, image vk.Image, width, height, rowLengthTexels uint32) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   rowLengthTexels,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb.Handle, buffer, image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

// ExecuteSingleTimeCommands allocates a one-shot command buffer from its
// own transient pool, records fn into it, submits on the graphics queue
// and blocks on a dedicated fence until the GPU is done.
func ExecuteSingleTimeCommands(device *Device, fn func(cb *CommandBuffer) error) error {
	pool, err := CreateCommandPool(device, true)
	if err != nil {
		return err
	}
	defer pool.Destroy(device)

	cb, err := AllocateCommandBuffer(device, pool)
	if err != nil {
		return err
	}
	if err := cb.Begin(true); err != nil {
		return err
	}
	if err := fn(cb); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}

	fence, err := CreateFence(device, false)
	if err != nil {
		return err
	}
	defer fence.Destroy(device)

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	if result := vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); result != vk.Success {
		return fmt.Errorf("failed to submit one-time commands: %w", vk.Error(result))
	}
	return fence.Wait(device, vk.MaxUint64)
}
