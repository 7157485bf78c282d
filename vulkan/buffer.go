package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
}

func CreateBuffer(device *Device, size uint64, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*Buffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	buffer := &Buffer{Size: size}
	if result := vk.CreateBuffer(device.Handle, &bufferInfo, nil, &buffer.Handle); result != vk.Success {
		return nil, fmt.Errorf("failed to create buffer: %w", vk.Error(result))
	}

	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.Handle, buffer.Handle, &memRequirements)
	memRequirements.Deref()

	memType, err := device.FindMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		vk.DestroyBuffer(device.Handle, buffer.Handle, nil)
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memType,
	}
	if result := vk.AllocateMemory(device.Handle, &allocInfo, nil, &buffer.Memory); result != vk.Success {
		vk.DestroyBuffer(device.Handle, buffer.Handle, nil)
		return nil, fmt.Errorf("failed to allocate buffer memory: %w", vk.Error(result))
	}
	if result := vk.BindBufferMemory(device.Handle, buffer.Handle, buffer.Memory, 0); result != vk.Success {
		vk.FreeMemory(device.Handle, buffer.Memory, nil)
		vk.DestroyBuffer(device.Handle, buffer.Handle, nil)
		return nil, fmt.Errorf("failed to bind buffer memory: %w", vk.Error(result))
	}

	return buffer, nil
}

// Update writes data into the buffer region reserved for frameIndex:
// map [frameIndex*frameStride, +len(data)), copy, flush, unmap. The
// mapped range is widened to the non-coherent atom size so the flush
// stays inside it. The mapping is always released, flush failure or not.
func (b *Buffer) Update(device *Device, frameIndex uint64, frameStride uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	offset := frameIndex * frameStride
	size := uint64(len(data))
	if offset+size > b.Size {
		return fmt.Errorf("buffer update out of range: offset %d + %d bytes exceeds size %d", offset, size, b.Size)
	}

	atom := device.AtomSize()
	if atom == 0 {
		atom = 1
	}
	mapOffset := offset &^ (atom - 1)
	mapSize := (offset + size - mapOffset + atom - 1) &^ (atom - 1)
	flushSize := vk.DeviceSize(mapSize)
	if mapOffset+mapSize > b.Size {
		mapSize = b.Size - mapOffset
		flushSize = vk.DeviceSize(vk.WholeSize)
	}

	var mapped unsafe.Pointer
	if result := vk.MapMemory(device.Handle, b.Memory, vk.DeviceSize(mapOffset), vk.DeviceSize(mapSize), 0, &mapped); result != vk.Success {
		return fmt.Errorf("failed to map buffer memory: %w", vk.Error(result))
	}
	dst := (*[1 << 30]byte)(mapped)[:mapSize:mapSize]
	copy(dst[offset-mapOffset:], data)

	flushErr := b.flush(device, mapOffset, flushSize)
	vk.UnmapMemory(device.Handle, b.Memory)
	return flushErr
}

func (b *Buffer) flush(device *Device, offset uint64, size vk.DeviceSize) error {
	ranges := []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: b.Memory,
		Offset: vk.DeviceSize(offset),
		Size:   size,
	}}
	if result := vk.FlushMappedMemoryRanges(device.Handle, 1, ranges); result != vk.Success {
		return fmt.Errorf("failed to flush mapped memory: %w", vk.Error(result))
	}
	return nil
}

func (b *Buffer) Destroy(device *Device) {
	if b.Handle != vk.Buffer(vk.NullHandle) {
		vk.DestroyBuffer(device.Handle, b.Handle, nil)
		b.Handle = vk.Buffer(vk.NullHandle)
	}
	if b.Memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(device.Handle, b.Memory, nil)
		b.Memory = vk.DeviceMemory(vk.NullHandle)
	}
}
