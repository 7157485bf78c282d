package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

var requiredDeviceExtensions = []string{"VK_KHR_swapchain"}

type Device struct {
	PhysicalDevice vk.PhysicalDevice
	Handle         vk.Device
	GraphicsQueue  vk.Queue
	PresentQueue   vk.Queue
	GraphicsFamily uint32
	PresentFamily  uint32

	properties vk.PhysicalDeviceProperties
	memory     vk.PhysicalDeviceMemoryProperties
}

// PickPhysicalDevice selects the highest-scoring adapter that has
// graphics and present queues for the surface and supports the
// swapchain extension. The logical device is created separately via
// CreateLogicalDevice.
func PickPhysicalDevice(instance *Instance, surface vk.Surface) (*Device, error) {
	var count uint32
	if result := vk.EnumeratePhysicalDevices(instance.Handle, &count, nil); result != vk.Success || count == 0 {
		return nil, fmt.Errorf("failed to enumerate physical devices: %w", vk.Error(result))
	}
	devices := make([]vk.PhysicalDevice, count)
	if result := vk.EnumeratePhysicalDevices(instance.Handle, &count, devices); result != vk.Success {
		return nil, fmt.Errorf("failed to enumerate physical devices: %w", vk.Error(result))
	}

	var selected vk.PhysicalDevice
	var graphicsFamily, presentFamily uint32
	bestScore := -1
	for _, candidate := range devices {
		gfx, present, ok := findQueueFamilies(candidate, surface)
		if !ok || !supportsDeviceExtensions(candidate) {
			continue
		}
		score := deviceScore(candidate)
		if score > bestScore {
			bestScore = score
			selected = candidate
			graphicsFamily, presentFamily = gfx, present
		}
	}
	if bestScore < 0 {
		return nil, fmt.Errorf("no suitable GPU found")
	}

	device := &Device{
		PhysicalDevice: selected,
		GraphicsFamily: graphicsFamily,
		PresentFamily:  presentFamily,
	}
	vk.GetPhysicalDeviceProperties(selected, &device.properties)
	device.properties.Deref()
	device.properties.Limits.Deref()
	vk.GetPhysicalDeviceMemoryProperties(selected, &device.memory)
	device.memory.Deref()
	return device, nil
}

func deviceScore(device vk.PhysicalDevice) int {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &props)
	props.Deref()

	switch props.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 500
	default:
		return 100
	}
}

func findQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) (graphics, present uint32, ok bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, props)

	var hasGraphics, hasPresent bool
	for i := range props {
		props[i].Deref()
		if props[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphics = uint32(i)
			hasGraphics = true
		}
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supported)
		if supported == vk.True {
			present = uint32(i)
			hasPresent = true
		}
		if hasGraphics && hasPresent {
			break
		}
	}
	return graphics, present, hasGraphics && hasPresent
}

func supportsDeviceExtensions(device vk.PhysicalDevice) bool {
	var count uint32
	if vk.EnumerateDeviceExtensionProperties(device, "", &count, nil) != vk.Success {
		return false
	}
	props := make([]vk.ExtensionProperties, count)
	if vk.EnumerateDeviceExtensionProperties(device, "", &count, props) != vk.Success {
		return false
	}
	available := make(map[string]bool, count)
	for i := range props {
		props[i].Deref()
		available[vk.ToString(props[i].ExtensionName[:])] = true
	}
	for _, ext := range requiredDeviceExtensions {
		if !available[ext] {
			return false
		}
	}
	return true
}

func (d *Device) CreateLogicalDevice() error {
	uniqueFamilies := map[uint32]bool{
		d.GraphicsFamily: true,
		d.PresentFamily:  true,
	}
	queueInfos := make([]vk.DeviceQueueCreateInfo, 0, len(uniqueFamilies))
	for family := range uniqueFamilies {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	extensions := safeStrings(requiredDeviceExtensions)
	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}

	var handle vk.Device
	if result := vk.CreateDevice(d.PhysicalDevice, &createInfo, nil, &handle); result != vk.Success {
		return fmt.Errorf("failed to create logical device: %w", vk.Error(result))
	}
	d.Handle = handle

	var queue vk.Queue
	vk.GetDeviceQueue(d.Handle, d.GraphicsFamily, 0, &queue)
	d.GraphicsQueue = queue
	vk.GetDeviceQueue(d.Handle, d.PresentFamily, 0, &queue)
	d.PresentQueue = queue
	return nil
}

// FindMemoryType selects a memory type satisfying both the resource's
// type mask and the requested property flags. Failing to find one means
// the platform cannot back the resource at all, so callers treat the
// error as fatal.
func (d *Device) FindMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.memory.MemoryTypeCount; i++ {
		memoryType := d.memory.MemoryTypes[i]
		memoryType.Deref()
		if typeFilter&(1<<i) != 0 && memoryType.PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, fmt.Errorf("failed to find memory type (filter 0x%x, properties 0x%x)", typeFilter, properties)
}

// PitchAlignment returns the device's minimum buffer-copy row pitch
// alignment, used when staging texture uploads.
func (d *Device) PitchAlignment() uint64 {
	return uint64(d.properties.Limits.OptimalBufferCopyRowPitchAlignment)
}

// UniformAlignment returns the minimum offset alignment for dynamic
// uniform buffer bindings.
func (d *Device) UniformAlignment() uint64 {
	return uint64(d.properties.Limits.MinUniformBufferOffsetAlignment)
}

// AtomSize returns the non-coherent mapped-memory flush granularity.
func (d *Device) AtomSize() uint64 {
	return uint64(d.properties.Limits.NonCoherentAtomSize)
}

func (d *Device) GPUName() string {
	return vk.ToString(d.properties.DeviceName[:])
}

func (d *Device) WaitIdle() {
	vk.DeviceWaitIdle(d.Handle)
}

func (d *Device) Destroy() {
	vk.DestroyDevice(d.Handle, nil)
}
