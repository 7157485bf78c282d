package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type Image struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32
}

func CreateImage(device *Device, width, height uint32, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags, properties vk.MemoryPropertyFlags) (*Image, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	img := &Image{
		Format: format,
		Width:  width,
		Height: height,
	}
	if result := vk.CreateImage(device.Handle, &imageInfo, nil, &img.Handle); result != vk.Success {
		return nil, fmt.Errorf("failed to create image: %w", vk.Error(result))
	}

	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device.Handle, img.Handle, &memRequirements)
	memRequirements.Deref()

	memType, err := device.FindMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		vk.DestroyImage(device.Handle, img.Handle, nil)
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memType,
	}
	if result := vk.AllocateMemory(device.Handle, &allocInfo, nil, &img.Memory); result != vk.Success {
		vk.DestroyImage(device.Handle, img.Handle, nil)
		return nil, fmt.Errorf("failed to allocate image memory: %w", vk.Error(result))
	}
	if result := vk.BindImageMemory(device.Handle, img.Handle, img.Memory, 0); result != vk.Success {
		vk.FreeMemory(device.Handle, img.Memory, nil)
		vk.DestroyImage(device.Handle, img.Handle, nil)
		return nil, fmt.Errorf("failed to bind image memory: %w", vk.Error(result))
	}

	return img, nil
}

func CreateImageView(device *Device, image vk.Image, format vk.Format, aspectFlags vk.ImageAspectFlags) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if result := vk.CreateImageView(device.Handle, &viewInfo, nil, &view); result != vk.Success {
		return vk.ImageView(vk.NullHandle), fmt.Errorf("failed to create image view: %w", vk.Error(result))
	}
	return view, nil
}

func (img *Image) CreateView(device *Device, aspectFlags vk.ImageAspectFlags) error {
	view, err := CreateImageView(device, img.Handle, img.Format, aspectFlags)
	if err != nil {
		return err
	}
	img.View = view
	return nil
}

func CreateSampler(device *Device, magFilter, minFilter vk.Filter, addressMode vk.SamplerAddressMode) (vk.Sampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               magFilter,
		MinFilter:               minFilter,
		AddressModeU:            addressMode,
		AddressModeV:            addressMode,
		AddressModeW:            addressMode,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeNearest,
	}

	var sampler vk.Sampler
	if result := vk.CreateSampler(device.Handle, &samplerInfo, nil, &sampler); result != vk.Success {
		return vk.Sampler(vk.NullHandle), fmt.Errorf("failed to create sampler: %w", vk.Error(result))
	}
	return sampler, nil
}

func DestroySampler(device *Device, sampler vk.Sampler) {
	vk.DestroySampler(device.Handle, sampler, nil)
}

func (img *Image) Destroy(device *Device) {
	if img.View != vk.ImageView(vk.NullHandle) {
		vk.DestroyImageView(device.Handle, img.View, nil)
		img.View = vk.ImageView(vk.NullHandle)
	}
	if img.Handle != vk.Image(vk.NullHandle) {
		vk.DestroyImage(device.Handle, img.Handle, nil)
		img.Handle = vk.Image(vk.NullHandle)
	}
	if img.Memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(device.Handle, img.Memory, nil)
		img.Memory = vk.DeviceMemory(vk.NullHandle)
	}
}
