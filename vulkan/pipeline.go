package vulkan

import (
	"fmt"
	"os"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// VertexStride is the wire size of one vertex: 3 floats position,
// 4 floats color, 2 floats UV.
const VertexStride = 36

// Topology selects the primitive assembly mode for a pipeline.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyLineStrip
)

func (t Topology) vkTopology() vk.PrimitiveTopology {
	switch t {
	case TopologyTriangleList:
		return vk.PrimitiveTopologyTriangleList
	case TopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip
	default:
		panic(fmt.Sprintf("unknown topology %d", t))
	}
}

type Pipeline struct {
	Handle vk.Pipeline
	Layout vk.PipelineLayout
}

type PipelineConfig struct {
	VertexShaderPath   string
	FragmentShaderPath string
	Topology           Topology
	RenderPass         vk.RenderPass
	SetLayout          vk.DescriptorSetLayout
}

// LoadShaderModule reads compiled SPIR-V byte-code from disk and wraps
// it in a shader module.
func LoadShaderModule(device *Device, path string) (vk.ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return vk.ShaderModule(vk.NullHandle), fmt.Errorf("failed to read shader %s: %w", path, err)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return vk.ShaderModule(vk.NullHandle), fmt.Errorf("shader %s is not valid SPIR-V (%d bytes)", path, len(code))
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    bytesToUint32(code),
	}
	var module vk.ShaderModule
	if result := vk.CreateShaderModule(device.Handle, &createInfo, nil, &module); result != vk.Success {
		return vk.ShaderModule(vk.NullHandle), fmt.Errorf("failed to create shader module %s: %w", path, vk.Error(result))
	}
	return module, nil
}

func bytesToUint32(data []byte) []uint32 {
	return (*[1 << 28]uint32)(unsafe.Pointer(&data[0]))[: len(data)/4 : len(data)/4]
}

func DestroyShaderModule(device *Device, module vk.ShaderModule) {
	vk.DestroyShaderModule(device.Handle, module, nil)
}

// CreateGraphicsPipeline builds a pipeline with the fixed 3-attribute
// vertex input, alpha blending, and dynamic viewport/scissor so the
// pipeline survives swapchain rebuilds.
func CreateGraphicsPipeline(device *Device, vertModule, fragModule vk.ShaderModule, config PipelineConfig) (*Pipeline, error) {
	entryPoint := safeString("main")
	shaderStages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertModule,
			PName:  entryPoint,
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragModule,
			PName:  entryPoint,
		},
	}

	binding := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    VertexStride,
		InputRate: vk.VertexInputRateVertex,
	}
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 28},
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{binding},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               config.Topology.vkTopology(),
		PrimitiveRestartEnable: vk.False,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
	}
	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{config.SetLayout},
	}
	pipeline := &Pipeline{}
	if result := vk.CreatePipelineLayout(device.Handle, &layoutInfo, nil, &pipeline.Layout); result != vk.Success {
		return nil, fmt.Errorf("failed to create pipeline layout: %w", vk.Error(result))
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              pipeline.Layout,
		RenderPass:          config.RenderPass,
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	if result := vk.CreateGraphicsPipelines(device.Handle, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineInfo}, nil, pipelines); result != vk.Success {
		vk.DestroyPipelineLayout(device.Handle, pipeline.Layout, nil)
		return nil, fmt.Errorf("failed to create graphics pipeline: %w", vk.Error(result))
	}
	pipeline.Handle = pipelines[0]
	return pipeline, nil
}

func (p *Pipeline) Destroy(device *Device) {
	if p.Handle != vk.Pipeline(vk.NullHandle) {
		vk.DestroyPipeline(device.Handle, p.Handle, nil)
		p.Handle = vk.Pipeline(vk.NullHandle)
	}
	if p.Layout != vk.PipelineLayout(vk.NullHandle) {
		vk.DestroyPipelineLayout(device.Handle, p.Layout, nil)
		p.Layout = vk.PipelineLayout(vk.NullHandle)
	}
}

// CreateRenderPass builds the single-subpass color-only pass used by the
// frame loop: clear on load, store, final layout ready for present.
func CreateRenderPass(device *Device, format vk.Format) (vk.RenderPass, error) {
	colorAttachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	colorRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorRef},
	}
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	if result := vk.CreateRenderPass(device.Handle, &createInfo, nil, &renderPass); result != vk.Success {
		return vk.RenderPass(vk.NullHandle), fmt.Errorf("failed to create render pass: %w", vk.Error(result))
	}
	return renderPass, nil
}

func DestroyRenderPass(device *Device, renderPass vk.RenderPass) {
	vk.DestroyRenderPass(device.Handle, renderPass, nil)
}

// CreateFramebuffer wraps one swapchain image view for the render pass.
// The frame loop creates one per frame and destroys it once the frame's
// fence has signaled.
func CreateFramebuffer(device *Device, renderPass vk.RenderPass, view vk.ImageView, extent vk.Extent2D) (vk.Framebuffer, error) {
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{view},
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}
	var framebuffer vk.Framebuffer
	if result := vk.CreateFramebuffer(device.Handle, &createInfo, nil, &framebuffer); result != vk.Success {
		return vk.Framebuffer(vk.NullHandle), fmt.Errorf("failed to create framebuffer: %w", vk.Error(result))
	}
	return framebuffer, nil
}

func DestroyFramebuffer(device *Device, framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(device.Handle, framebuffer, nil)
}
