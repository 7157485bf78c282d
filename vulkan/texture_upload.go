package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// UploadImagePixels copies tightly packed RGBA pixel data into a device-local
// image through a host-visible staging buffer. Each row is padded to the
// device's optimal buffer-copy pitch alignment, so the copy records the
// padded row length rather than the image width. Blocks until the transfer
// has completed.
func UploadImagePixels(device *Device, image *Image, pixels []byte) error {
	width, height := image.Width, image.Height
	tightPitch := uint64(width) * 4
	if uint64(len(pixels)) < tightPitch*uint64(height) {
		return fmt.Errorf("pixel data too short: have %d bytes, need %d", len(pixels), tightPitch*uint64(height))
	}

	align := device.PitchAlignment()
	rowPitch := (tightPitch + align - 1) &^ (align - 1)
	stagingSize := rowPitch * uint64(height)

	staging, err := CreateBuffer(device, stagingSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	if err != nil {
		return fmt.Errorf("failed to create staging buffer: %w", err)
	}
	defer staging.Destroy(device)

	var mapped unsafe.Pointer
	if result := vk.MapMemory(device.Handle, staging.Memory, 0, vk.DeviceSize(stagingSize), 0, &mapped); result != vk.Success {
		return fmt.Errorf("failed to map staging buffer: %w", vk.Error(result))
	}
	dst := (*[1 << 30]byte)(mapped)[:stagingSize:stagingSize]
	for row := uint64(0); row < uint64(height); row++ {
		copy(dst[row*rowPitch:row*rowPitch+tightPitch], pixels[row*tightPitch:(row+1)*tightPitch])
	}
	mappedRange := vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: staging.Memory,
		Offset: 0,
		Size:   vk.DeviceSize(vk.WholeSize),
	}
	vk.FlushMappedMemoryRanges(device.Handle, 1, []vk.MappedMemoryRange{mappedRange})
	vk.UnmapMemory(device.Handle, staging.Memory)

	return ExecuteSingleTimeCommands(device, func(cb *CommandBuffer) error {
		if err := TransitionImageLayout(cb, image.Handle, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
			return err
		}
		CopyBufferToImage(cb, staging.Handle, image.Handle, width, height, uint32(rowPitch/4))
		return TransitionImageLayout(cb, image.Handle, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	})
}
