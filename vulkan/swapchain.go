package vulkan

import (
	"errors"
	"fmt"
	"math"

	vk "github.com/vulkan-go/vulkan"
)

// ErrOutOfDate reports that the swapchain no longer matches the surface
// and must be rebuilt. The affected frame is dropped, not retried.
var ErrOutOfDate = errors.New("swapchain out of date")

type SwapChain struct {
	Handle vk.Swapchain
	Images []vk.Image
	Views  []vk.ImageView
	Format vk.Format
	Extent vk.Extent2D
}

type SwapChainConfig struct {
	Width  uint32
	Height uint32
	VSync  bool
}

func CreateSwapChain(device *Device, surface vk.Surface, config SwapChainConfig) (*SwapChain, error) {
	var caps vk.SurfaceCapabilities
	if result := vk.GetPhysicalDeviceSurfaceCapabilities(device.PhysicalDevice, surface, &caps); result != vk.Success {
		return nil, fmt.Errorf("failed to query surface capabilities: %w", vk.Error(result))
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	format, err := chooseSurfaceFormat(device.PhysicalDevice, surface)
	if err != nil {
		return nil, err
	}
	presentMode := choosePresentMode(device.PhysicalDevice, surface, config.VSync)
	extent := chooseExtent(caps, config.Width, config.Height)

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.Swapchain(vk.NullHandle),
	}
	if device.GraphicsFamily != device.PresentFamily {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{device.GraphicsFamily, device.PresentFamily}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if result := vk.CreateSwapchain(device.Handle, &createInfo, nil, &handle); result != vk.Success {
		return nil, fmt.Errorf("failed to create swapchain: %w", vk.Error(result))
	}

	var count uint32
	vk.GetSwapchainImages(device.Handle, handle, &count, nil)
	images := make([]vk.Image, count)
	vk.GetSwapchainImages(device.Handle, handle, &count, images)

	sc := &SwapChain{
		Handle: handle,
		Images: images,
		Format: format.Format,
		Extent: extent,
	}

	sc.Views = make([]vk.ImageView, len(images))
	for i, image := range images {
		view, err := CreateImageView(device, image, sc.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			sc.Destroy(device)
			return nil, fmt.Errorf("failed to create swapchain image view %d: %w", i, err)
		}
		sc.Views[i] = view
	}

	return sc, nil
}

func chooseSurfaceFormat(device vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceFormat, error) {
	var count uint32
	vk.GetPhysicalDeviceSurfaceFormats(device, surface, &count, nil)
	if count == 0 {
		return vk.SurfaceFormat{}, fmt.Errorf("surface reports no formats")
	}
	formats := make([]vk.SurfaceFormat, count)
	vk.GetPhysicalDeviceSurfaceFormats(device, surface, &count, formats)
	for i := range formats {
		formats[i].Deref()
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f, nil
		}
	}
	return formats[0], nil
}

func choosePresentMode(device vk.PhysicalDevice, surface vk.Surface, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	var count uint32
	vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &count, nil)
	modes := make([]vk.PresentMode, count)
	vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &count, modes)
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

func chooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 && caps.CurrentExtent.Width != 0 {
		return caps.CurrentExtent
	}
	extent := vk.Extent2D{Width: width, Height: height}
	extent.Width = clamp(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	extent.Height = clamp(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	return extent
}

func clamp(v, lo, hi uint32) uint32 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// AcquireNextImage returns the next presentable image index. The
// semaphore is signaled once the image is actually available. An
// out-of-date or suboptimal result is returned as ErrOutOfDate so the
// caller can rebuild the swapchain and skip the frame.
func (sc *SwapChain) AcquireNextImage(device *Device, semaphore vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(device.Handle, sc.Handle, vk.MaxUint64, semaphore, vk.Fence(vk.NullHandle), &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		return imageIndex, nil
	case vk.ErrorOutOfDate:
		return 0, ErrOutOfDate
	default:
		return 0, fmt.Errorf("failed to acquire swapchain image: %w", vk.Error(result))
	}
}

func (sc *SwapChain) Destroy(device *Device) {
	for _, view := range sc.Views {
		vk.DestroyImageView(device.Handle, view, nil)
	}
	sc.Views = nil
	if sc.Handle != vk.Swapchain(vk.NullHandle) {
		vk.DestroySwapchain(device.Handle, sc.Handle, nil)
		sc.Handle = vk.Swapchain(vk.NullHandle)
	}
}
