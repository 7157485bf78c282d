package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// DescriptorKind names the binding types the fixed pipelines use.
type DescriptorKind int

const (
	DescriptorUniformBuffer DescriptorKind = iota
	DescriptorCombinedImageSampler
)

// ShaderStage selects which stage a binding is visible to.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
)

// DescriptorBinding is one (kind, stage) entry of a set layout; the
// binding index is its position in the caller-supplied list.
type DescriptorBinding struct {
	Kind  DescriptorKind
	Stage ShaderStage
}

func (k DescriptorKind) vkType() vk.DescriptorType {
	switch k {
	case DescriptorUniformBuffer:
		// Dynamic so one descriptor write can address per-frame regions
		// of the shared uniform buffer via a bind-time offset.
		return vk.DescriptorTypeUniformBufferDynamic
	case DescriptorCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	default:
		panic(fmt.Sprintf("unknown descriptor kind %d", k))
	}
}

func (s ShaderStage) vkFlags() vk.ShaderStageFlags {
	switch s {
	case StageVertex:
		return vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	case StageFragment:
		return vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	default:
		panic(fmt.Sprintf("unknown shader stage %d", s))
	}
}

func CreateDescriptorSetLayout(device *Device, bindings []DescriptorBinding) (vk.DescriptorSetLayout, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  b.Kind.vkType(),
			DescriptorCount: 1,
			StageFlags:      b.Stage.vkFlags(),
		}
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}

	var layout vk.DescriptorSetLayout
	if result := vk.CreateDescriptorSetLayout(device.Handle, &layoutInfo, nil, &layout); result != vk.Success {
		return vk.DescriptorSetLayout(vk.NullHandle), fmt.Errorf("failed to create descriptor set layout: %w", vk.Error(result))
	}
	return layout, nil
}

func DestroyDescriptorSetLayout(device *Device, layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(device.Handle, layout, nil)
}

type DescriptorPool struct {
	Handle vk.DescriptorPool
}

// CreateDescriptorPool sizes the pool so that maxSets sets of the given
// binding list can be allocated. Sets are individually freeable so the
// batch engine can return them when a batch is evicted.
func CreateDescriptorPool(device *Device, bindings []DescriptorBinding, maxSets uint32) (*DescriptorPool, error) {
	counts := map[vk.DescriptorType]uint32{}
	for _, b := range bindings {
		counts[b.Kind.vkType()] += maxSets
	}
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(counts))
	for descriptorType, count := range counts {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            descriptorType,
			DescriptorCount: count,
		})
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	pool := &DescriptorPool{}
	if result := vk.CreateDescriptorPool(device.Handle, &poolInfo, nil, &pool.Handle); result != vk.Success {
		return nil, fmt.Errorf("failed to create descriptor pool: %w", vk.Error(result))
	}
	return pool, nil
}

func (p *DescriptorPool) AllocateDescriptorSet(device *Device, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	if result := vk.AllocateDescriptorSets(device.Handle, &allocInfo, &set); result != vk.Success {
		return vk.DescriptorSet(vk.NullHandle), fmt.Errorf("failed to allocate descriptor set: %w", vk.Error(result))
	}
	return set, nil
}

func (p *DescriptorPool) FreeDescriptorSet(device *Device, set vk.DescriptorSet) {
	vk.FreeDescriptorSets(device.Handle, p.Handle, 1, &set)
}

func (p *DescriptorPool) Destroy(device *Device) {
	vk.DestroyDescriptorPool(device.Handle, p.Handle, nil)
}

// UpdateDescriptorSetBuffer points binding at a uniform buffer range.
func UpdateDescriptorSetBuffer(device *Device, set vk.DescriptorSet, binding uint32, buffer vk.Buffer, offset, size uint64) {
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: buffer,
		Offset: vk.DeviceSize(offset),
		Range:  vk.DeviceSize(size),
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
		DescriptorCount: 1,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(device.Handle, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// UpdateDescriptorSetImage points binding at a sampled image in
// shader-read-only layout.
func UpdateDescriptorSetImage(device *Device, set vk.DescriptorSet, binding uint32, view vk.ImageView, sampler vk.Sampler) {
	imageInfo := vk.DescriptorImageInfo{
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		ImageView:   view,
		Sampler:     sampler,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(device.Handle, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}
