package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type Semaphore struct {
	Handle vk.Semaphore
}

func CreateSemaphore(device *Device) (*Semaphore, error) {
	semInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	sem := &Semaphore{}
	if result := vk.CreateSemaphore(device.Handle, &semInfo, nil, &sem.Handle); result != vk.Success {
		return nil, fmt.Errorf("failed to create semaphore: %w", vk.Error(result))
	}
	return sem, nil
}

func (s *Semaphore) Destroy(device *Device) {
	vk.DestroySemaphore(device.Handle, s.Handle, nil)
}

type Fence struct {
	Handle vk.Fence
}

func CreateFence(device *Device, signaled bool) (*Fence, error) {
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	fence := &Fence{}
	if result := vk.CreateFence(device.Handle, &fenceInfo, nil, &fence.Handle); result != vk.Success {
		return nil, fmt.Errorf("failed to create fence: %w", vk.Error(result))
	}
	return fence, nil
}

func (f *Fence) Wait(device *Device, timeout uint64) error {
	if result := vk.WaitForFences(device.Handle, 1, []vk.Fence{f.Handle}, vk.True, timeout); result != vk.Success {
		return fmt.Errorf("failed to wait for fence: %w", vk.Error(result))
	}
	return nil
}

func (f *Fence) Reset(device *Device) error {
	if result := vk.ResetFences(device.Handle, 1, []vk.Fence{f.Handle}); result != vk.Success {
		return fmt.Errorf("failed to reset fence: %w", vk.Error(result))
	}
	return nil
}

func (f *Fence) Destroy(device *Device) {
	vk.DestroyFence(device.Handle, f.Handle, nil)
}

// SubmitQueue submits cb on the graphics queue, waiting on wait at the
// color-attachment-output stage, signaling signal and fence when the
// GPU finishes.
func SubmitQueue(device *Device, cb *CommandBuffer, wait, signal *Semaphore, fence *Fence) error {
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait.Handle},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal.Handle},
	}
	if result := vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); result != vk.Success {
		return fmt.Errorf("failed to submit queue: %w", vk.Error(result))
	}
	return nil
}

// PresentQueue presents imageIndex once wait has signaled. An
// out-of-date or suboptimal result is surfaced as ErrOutOfDate.
func PresentQueue(device *Device, swapchain *SwapChain, imageIndex uint32, wait *Semaphore) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.Handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	result := vk.QueuePresent(device.PresentQueue, &presentInfo)
	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return ErrOutOfDate
	default:
		return fmt.Errorf("failed to present queue: %w", vk.Error(result))
	}
}
