package renderer

import (
	"fmt"
	"path/filepath"

	vk "github.com/vulkan-go/vulkan"

	"sprite-engine/vulkan"
)

// Fixed program ids understood by the registry.
const (
	ProgramFlat   uint16 = 0 // untextured triangles
	ProgramSprite uint16 = 1 // textured sprite quads
	ProgramLine   uint16 = 2 // untextured line strip, debug outlines
)

// MaxDescriptorSets bounds how many batches can hold a descriptor set
// from one program's pool at the same time.
const MaxDescriptorSets = 512

// ShaderProgram is one immutable pipeline configuration: shader modules,
// descriptor layout and pool, and the graphics pipeline itself.
type ShaderProgram struct {
	ID        uint16
	Pipeline  *vulkan.Pipeline
	SetLayout vk.DescriptorSetLayout
	Pool      *vulkan.DescriptorPool
	Bindings  []vulkan.DescriptorBinding

	vertModule vk.ShaderModule
	fragModule vk.ShaderModule
}

type programSpec struct {
	id       uint16
	vertName string
	fragName string
	topology vulkan.Topology
	bindings []vulkan.DescriptorBinding
}

// ProgramRegistry owns the fixed set of shader programs, created once at
// renderer startup and immutable afterwards.
type ProgramRegistry struct {
	programs map[uint16]*ShaderProgram
}

// NewProgramRegistry compiles the built-in programs from SPIR-V files
// under shaderDir. The file layout is <shaderDir>/<name>.{vert,frag}.spv.
func NewProgramRegistry(device *vulkan.Device, renderPass vk.RenderPass, shaderDir string) (*ProgramRegistry, error) {
	specs := []programSpec{
		{
			id:       ProgramFlat,
			vertName: "flat",
			fragName: "flat",
			topology: vulkan.TopologyTriangleList,
			bindings: []vulkan.DescriptorBinding{
				{Kind: vulkan.DescriptorUniformBuffer, Stage: vulkan.StageVertex},
			},
		},
		{
			id:       ProgramSprite,
			vertName: "sprite",
			fragName: "sprite",
			topology: vulkan.TopologyTriangleList,
			bindings: []vulkan.DescriptorBinding{
				{Kind: vulkan.DescriptorUniformBuffer, Stage: vulkan.StageVertex},
				{Kind: vulkan.DescriptorCombinedImageSampler, Stage: vulkan.StageFragment},
			},
		},
		{
			id:       ProgramLine,
			vertName: "line",
			fragName: "line",
			topology: vulkan.TopologyLineStrip,
			bindings: []vulkan.DescriptorBinding{
				{Kind: vulkan.DescriptorUniformBuffer, Stage: vulkan.StageVertex},
			},
		},
	}

	registry := &ProgramRegistry{programs: make(map[uint16]*ShaderProgram, len(specs))}
	for _, spec := range specs {
		program, err := newShaderProgram(device, renderPass, shaderDir, spec)
		if err != nil {
			registry.Destroy(device)
			return nil, fmt.Errorf("failed to build shader program %d: %w", spec.id, err)
		}
		registry.programs[spec.id] = program
	}
	return registry, nil
}

func newShaderProgram(device *vulkan.Device, renderPass vk.RenderPass, shaderDir string, spec programSpec) (*ShaderProgram, error) {
	vertModule, err := vulkan.LoadShaderModule(device, filepath.Join(shaderDir, spec.vertName+".vert.spv"))
	if err != nil {
		return nil, err
	}
	fragModule, err := vulkan.LoadShaderModule(device, filepath.Join(shaderDir, spec.fragName+".frag.spv"))
	if err != nil {
		vulkan.DestroyShaderModule(device, vertModule)
		return nil, err
	}

	setLayout, err := vulkan.CreateDescriptorSetLayout(device, spec.bindings)
	if err != nil {
		vulkan.DestroyShaderModule(device, fragModule)
		vulkan.DestroyShaderModule(device, vertModule)
		return nil, err
	}
	pool, err := vulkan.CreateDescriptorPool(device, spec.bindings, MaxDescriptorSets)
	if err != nil {
		vulkan.DestroyDescriptorSetLayout(device, setLayout)
		vulkan.DestroyShaderModule(device, fragModule)
		vulkan.DestroyShaderModule(device, vertModule)
		return nil, err
	}

	pipeline, err := vulkan.CreateGraphicsPipeline(device, vertModule, fragModule, vulkan.PipelineConfig{
		Topology:   spec.topology,
		RenderPass: renderPass,
		SetLayout:  setLayout,
	})
	if err != nil {
		pool.Destroy(device)
		vulkan.DestroyDescriptorSetLayout(device, setLayout)
		vulkan.DestroyShaderModule(device, fragModule)
		vulkan.DestroyShaderModule(device, vertModule)
		return nil, err
	}

	return &ShaderProgram{
		ID:         spec.id,
		Pipeline:   pipeline,
		SetLayout:  setLayout,
		Pool:       pool,
		Bindings:   spec.bindings,
		vertModule: vertModule,
		fragModule: fragModule,
	}, nil
}

// Lookup returns the program for id. Requesting an id outside the fixed
// set is a programming error and panics.
func (r *ProgramRegistry) Lookup(id uint16) *ShaderProgram {
	program, ok := r.programs[id]
	if !ok {
		panic(fmt.Sprintf("unknown shader program id %d", id))
	}
	return program
}

// Samples reports whether the program binds a sampled texture.
func (p *ShaderProgram) Samples() bool {
	for _, binding := range p.Bindings {
		if binding.Kind == vulkan.DescriptorCombinedImageSampler {
			return true
		}
	}
	return false
}

// Destroy tears down every program in reverse dependency order.
func (r *ProgramRegistry) Destroy(device *vulkan.Device) {
	for id, program := range r.programs {
		program.Pipeline.Destroy(device)
		program.Pool.Destroy(device)
		vulkan.DestroyDescriptorSetLayout(device, program.SetLayout)
		vulkan.DestroyShaderModule(device, program.fragModule)
		vulkan.DestroyShaderModule(device, program.vertModule)
		delete(r.programs, id)
	}
}
