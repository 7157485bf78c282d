package renderer

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"

	"sprite-engine/core"
	"sprite-engine/vulkan"
)

// Config controls renderer startup. Zero values are filled from
// DefaultConfig.
type Config struct {
	AppName     string
	ShaderDir   string
	RenderScale float32
	VSync       bool
	ClearColor  [4]float32

	// EvictAfterFrames is how many frames a batch may sit unused before
	// its GPU resources are released.
	EvictAfterFrames uint64
}

func DefaultConfig() Config {
	return Config{
		AppName:          "sprite-engine",
		ShaderDir:        "shaders",
		RenderScale:      1.0,
		VSync:            true,
		ClearColor:       [4]float32{0.2, 0.2, 0.2, 1.0},
		EvictAfterFrames: 300,
	}
}

// uniformBufferObject is the per-frame shader uniform block. The field
// order matches the std140 block declared by every vertex shader.
type uniformBufferObject struct {
	View       mgl32.Mat4
	Model      mgl32.Mat4
	Projection mgl32.Mat4
}

const uniformSize = uint64(unsafe.Sizeof(uniformBufferObject{}))

// frameResources is the per-frame-in-flight synchronization and command
// state, indexed by frame_index mod MaxFramesInFlight.
type frameResources struct {
	fence          *vulkan.Fence
	imageAvailable *vulkan.Semaphore
	renderFinished *vulkan.Semaphore
	pool           *vulkan.CommandPool
	commandBuffer  *vulkan.CommandBuffer

	// framebuffer wraps the swapchain image this slot last rendered to.
	// It is destroyed after the slot's fence wait, once the GPU is done
	// with it, and recreated for the newly acquired image.
	framebuffer vk.Framebuffer
}

// Renderer owns the GPU device, swapchain, pipelines, textures, and
// batches, and drives the per-frame acquire/record/submit/present loop.
// All methods must be called from the thread that created it.
type Renderer struct {
	config Config
	window *core.Window

	instance   *vulkan.Instance
	surface    vk.Surface
	device     *vulkan.Device
	swapchain  *vulkan.SwapChain
	renderPass vk.RenderPass
	programs   *ProgramRegistry
	textures   *textureManager

	uniform       *vulkan.Buffer
	uniformStride uint64

	batches map[BatchKey]*Batch
	pending []DrawRequest

	frames     [vulkan.MaxFramesInFlight]*frameResources
	frameIndex uint64

	rebuildNeeded bool
	width, height uint32
}

// New initializes the full GPU stack against the given window surface.
// Any failure here is unrecoverable for the caller beyond reporting it.
func New(window *core.Window, config Config) (*Renderer, error) {
	def := DefaultConfig()
	if config.AppName == "" {
		config.AppName = def.AppName
	}
	if config.ShaderDir == "" {
		config.ShaderDir = def.ShaderDir
	}
	if config.RenderScale == 0 {
		config.RenderScale = def.RenderScale
	}
	if config.EvictAfterFrames == 0 {
		config.EvictAfterFrames = def.EvictAfterFrames
	}

	if err := vulkan.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize graphics library: %w", err)
	}

	instanceConfig := vulkan.DefaultInstanceConfig()
	instanceConfig.AppName = config.AppName
	instanceConfig.RequiredExtensions = window.GetRequiredInstanceExtensions()
	instance, err := vulkan.NewInstance(instanceConfig)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		config:   config,
		window:   window,
		instance: instance,
		textures: newTextureManager(),
		batches:  make(map[BatchKey]*Batch),
	}

	surfacePtr, err := window.CreateWindowSurface(instance.Handle)
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("failed to create window surface: %w", err)
	}
	r.surface = vk.SurfaceFromPointer(surfacePtr)

	r.device, err = vulkan.PickPhysicalDevice(instance, r.surface)
	if err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.device.CreateLogicalDevice(); err != nil {
		r.Destroy()
		return nil, err
	}

	width, height := window.GetFramebufferSize()
	r.width, r.height = uint32(width), uint32(height)
	r.swapchain, err = vulkan.CreateSwapChain(r.device, r.surface, vulkan.SwapChainConfig{
		Width:  r.width,
		Height: r.height,
		VSync:  config.VSync,
	})
	if err != nil {
		r.Destroy()
		return nil, err
	}

	r.renderPass, err = vulkan.CreateRenderPass(r.device, r.swapchain.Format)
	if err != nil {
		r.Destroy()
		return nil, err
	}

	r.programs, err = NewProgramRegistry(r.device, r.renderPass, config.ShaderDir)
	if err != nil {
		r.Destroy()
		return nil, err
	}

	align := r.device.UniformAlignment()
	r.uniformStride = (uniformSize + align - 1) &^ (align - 1)
	r.uniform, err = vulkan.CreateBuffer(r.device, r.uniformStride*vulkan.MaxFramesInFlight,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("failed to create uniform buffer: %w", err)
	}

	for i := range r.frames {
		frame, err := newFrameResources(r.device)
		if err != nil {
			r.Destroy()
			return nil, fmt.Errorf("failed to create frame slot %d: %w", i, err)
		}
		r.frames[i] = frame
	}

	slog.Info("renderer initialized",
		"gpu", r.device.GPUName(),
		"swapchainImages", len(r.swapchain.Images),
		"framesInFlight", vulkan.MaxFramesInFlight)
	return r, nil
}

func newFrameResources(device *vulkan.Device) (*frameResources, error) {
	fence, err := vulkan.CreateFence(device, true)
	if err != nil {
		return nil, err
	}
	imageAvailable, err := vulkan.CreateSemaphore(device)
	if err != nil {
		fence.Destroy(device)
		return nil, err
	}
	renderFinished, err := vulkan.CreateSemaphore(device)
	if err != nil {
		imageAvailable.Destroy(device)
		fence.Destroy(device)
		return nil, err
	}
	pool, err := vulkan.CreateCommandPool(device, true)
	if err != nil {
		renderFinished.Destroy(device)
		imageAvailable.Destroy(device)
		fence.Destroy(device)
		return nil, err
	}
	cb, err := vulkan.AllocateCommandBuffer(device, pool)
	if err != nil {
		pool.Destroy(device)
		renderFinished.Destroy(device)
		imageAvailable.Destroy(device)
		fence.Destroy(device)
		return nil, err
	}
	return &frameResources{
		fence:          fence,
		imageAvailable: imageAvailable,
		renderFinished: renderFinished,
		pool:           pool,
		commandBuffer:  cb,
	}, nil
}

func (fr *frameResources) destroy(device *vulkan.Device) {
	if fr.framebuffer != vk.Framebuffer(vk.NullHandle) {
		vulkan.DestroyFramebuffer(device, fr.framebuffer)
		fr.framebuffer = vk.Framebuffer(vk.NullHandle)
	}
	fr.pool.Destroy(device)
	fr.renderFinished.Destroy(device)
	fr.imageAvailable.Destroy(device)
	fr.fence.Destroy(device)
}

// RegisterTexture uploads pixels as texture id, replacing any prior
// texture with that id. Batches referencing the id are dropped after a
// device-idle wait so they rebind against the new image on next use;
// this also repairs batches created before the texture existed.
func (r *Renderer) RegisterTexture(id uint16, width, height uint32, pixels []byte) error {
	stale := make([]BatchKey, 0, 1)
	for key := range r.batches {
		if key.TextureID() == id {
			stale = append(stale, key)
		}
	}
	if len(stale) > 0 {
		r.device.WaitIdle()
		for _, key := range stale {
			r.batches[key].Destroy(r.device)
			delete(r.batches, key)
		}
	}
	return r.textures.register(r.device, id, width, height, pixels)
}

// SubmitFrame queues draw requests for the next Render call. Multiple
// collaborators may each submit their own list within one tick.
func (r *Renderer) SubmitFrame(requests []DrawRequest) {
	r.pending = append(r.pending, requests...)
}

// Resize notes new surface dimensions and forces a swapchain rebuild
// before the next frame is drawn.
func (r *Renderer) Resize(width, height uint32) {
	r.width, r.height = width, height
	r.rebuildNeeded = true
}

// Render draws one frame from the requests queued since the last call.
// scaleFactor is the window system's content scale; together with the
// configured render scale it sets the orthographic world size. Transient
// surface failures drop the frame and rebuild the swapchain.
func (r *Renderer) Render(scaleFactor float32) error {
	if r.rebuildNeeded {
		if err := r.rebuildSwapchain(); err != nil {
			return err
		}
	}

	slot := uint32(r.frameIndex % vulkan.MaxFramesInFlight)
	frame := r.frames[slot]

	// The fence wait guarantees the GPU is done with this slot's prior
	// submission before any of its resources are touched again. That
	// includes the slot's semaphores, so it must precede the acquire
	// that reuses imageAvailable. The fence is only reset once the frame
	// is certain to be submitted, otherwise an error return here would
	// leave it unsignaled and deadlock the slot's next wait.
	if err := frame.fence.Wait(r.device, vk.MaxUint64); err != nil {
		return err
	}

	imageIndex, err := r.swapchain.AcquireNextImage(r.device, frame.imageAvailable.Handle)
	if err != nil {
		if err == vulkan.ErrOutOfDate {
			slog.Debug("swapchain out of date on acquire, rebuilding")
			r.rebuildNeeded = true
			r.pending = r.pending[:0]
			return nil
		}
		return fmt.Errorf("failed to acquire swapchain image: %w", err)
	}

	if err := frame.pool.Reset(r.device); err != nil {
		return err
	}
	if frame.framebuffer != vk.Framebuffer(vk.NullHandle) {
		vulkan.DestroyFramebuffer(r.device, frame.framebuffer)
		frame.framebuffer = vk.Framebuffer(vk.NullHandle)
	}

	r.evictStaleBatches()

	ordered, err := r.processRequests()
	if err != nil {
		return err
	}

	frame.framebuffer, err = vulkan.CreateFramebuffer(r.device, r.renderPass,
		r.swapchain.Views[imageIndex], r.swapchain.Extent)
	if err != nil {
		return err
	}

	if err := r.updateUniforms(slot, scaleFactor); err != nil {
		return err
	}
	for _, batch := range ordered {
		if err := batch.Upload(r.device, slot); err != nil {
			return err
		}
	}

	cb := frame.commandBuffer
	if err := cb.Begin(true); err != nil {
		return err
	}
	cb.SetViewport(float32(r.swapchain.Extent.Width), float32(r.swapchain.Extent.Height))
	cb.SetScissor(r.swapchain.Extent)
	cb.BeginRenderPass(r.renderPass, frame.framebuffer, r.swapchain.Extent, r.config.ClearColor)
	uniformOffset := uint32(uint64(slot) * r.uniformStride)
	for _, batch := range ordered {
		batch.Record(cb, slot, uniformOffset)
	}
	cb.EndRenderPass()
	if err := cb.End(); err != nil {
		return err
	}

	if err := frame.fence.Reset(r.device); err != nil {
		return err
	}
	if err := vulkan.SubmitQueue(r.device, cb, frame.imageAvailable, frame.renderFinished, frame.fence); err != nil {
		return err
	}
	if err := vulkan.PresentQueue(r.device, r.swapchain, imageIndex, frame.renderFinished); err != nil {
		if err == vulkan.ErrOutOfDate {
			slog.Debug("swapchain out of date on present, rebuilding")
			r.rebuildNeeded = true
		} else {
			return err
		}
	}

	r.frameIndex++
	return nil
}

// processRequests sorts the pending requests into key order, partitions
// them into runs, and appends each run's geometry into its batch's mesh,
// creating batches lazily on first sight of a key. Requests beyond a
// batch's capacity are rejected and reported once.
func (r *Renderer) processRequests() ([]*Batch, error) {
	sortRequests(r.pending)
	runs := partitionRuns(r.pending)

	rejected := 0
	ordered := make([]*Batch, 0, len(runs))
	for _, run := range runs {
		batch, err := r.batchFor(run.key)
		if err != nil {
			return nil, err
		}
		batch.Mesh.Clear()
		batch.lastUsed = r.frameIndex

		rejected += fillMesh(batch.Mesh, run.requests, r.textures.lookup(run.key.TextureID()))
		ordered = append(ordered, batch)
	}
	r.pending = r.pending[:0]

	if rejected > 0 {
		slog.Error("draw requests rejected, batch capacity exceeded",
			"rejected", rejected, "capacity", MaxSprites)
	}
	return ordered, nil
}

func (r *Renderer) batchFor(key BatchKey) (*Batch, error) {
	if batch, ok := r.batches[key]; ok {
		return batch, nil
	}
	program := r.programs.Lookup(key.ProgramID())
	var texture *Texture
	if program.Samples() {
		texture = r.textures.lookup(key.TextureID())
	}
	batch, err := NewBatch(r.device, key, program, r.uniform, uniformSize, texture)
	if err != nil {
		return nil, err
	}
	r.batches[key] = batch
	return batch, nil
}

// fillMesh appends each request's geometry into mesh, stopping at the
// batch capacity. Returns how many requests were rejected for overflow.
func fillMesh(mesh *Mesh, requests []DrawRequest, texture *Texture) (rejected int) {
	for _, request := range requests {
		if mesh.Full() {
			rejected++
			continue
		}
		request.Payload.appendTo(mesh, texture)
	}
	return rejected
}

// batchStale reports whether a batch last drawn at lastUsed has sat idle
// past the eviction threshold as of frameIndex.
func batchStale(lastUsed, frameIndex, evictAfter uint64) bool {
	return frameIndex-lastUsed > evictAfter
}

// evictStaleBatches releases batches whose key has not recurred for the
// configured number of frames. Running right after the slot fence wait
// means any batch idle that long has no submissions in flight.
func (r *Renderer) evictStaleBatches() {
	for key, batch := range r.batches {
		if batchStale(batch.lastUsed, r.frameIndex, r.config.EvictAfterFrames) {
			batch.Destroy(r.device)
			delete(r.batches, key)
			slog.Debug("evicted idle batch", "key", uint64(key), "idleFrames", r.frameIndex-batch.lastUsed)
		}
	}
}

// updateUniforms recomputes the orthographic projection from the current
// extent and scale, then writes it into this slot's uniform region.
func (r *Renderer) updateUniforms(slot uint32, scaleFactor float32) error {
	scale := scaleFactor * r.config.RenderScale
	if scale == 0 {
		scale = 1
	}
	ubo := uniformBufferObject{
		View:  mgl32.Ident4(),
		Model: mgl32.Ident4(),
		Projection: mgl32.Ortho(
			0, float32(r.swapchain.Extent.Width)/scale,
			0, float32(r.swapchain.Extent.Height)/scale,
			-1, 100),
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&ubo)), uniformSize)
	return r.uniform.Update(r.device, uint64(slot), r.uniformStride, data)
}

// rebuildSwapchain recreates the swapchain against the current surface
// dimensions. The render pass and pipelines survive because the surface
// format does not change between rebuilds of the same surface.
func (r *Renderer) rebuildSwapchain() error {
	r.device.WaitIdle()
	for _, frame := range r.frames {
		if frame.framebuffer != vk.Framebuffer(vk.NullHandle) {
			vulkan.DestroyFramebuffer(r.device, frame.framebuffer)
			frame.framebuffer = vk.Framebuffer(vk.NullHandle)
		}
	}
	r.swapchain.Destroy(r.device)

	swapchain, err := vulkan.CreateSwapChain(r.device, r.surface, vulkan.SwapChainConfig{
		Width:  r.width,
		Height: r.height,
		VSync:  r.config.VSync,
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild swapchain: %w", err)
	}
	r.swapchain = swapchain
	r.rebuildNeeded = false
	slog.Info("swapchain rebuilt", "width", r.width, "height", r.height)
	return nil
}

// WaitIdle blocks until the GPU has drained all submitted work.
func (r *Renderer) WaitIdle() {
	if r.device != nil {
		r.device.WaitIdle()
	}
}

// Destroy tears everything down in reverse creation order. Safe to call
// on a partially constructed renderer.
func (r *Renderer) Destroy() {
	if r.device != nil {
		r.device.WaitIdle()

		for _, batch := range r.batches {
			batch.Destroy(r.device)
		}
		r.batches = nil

		for i, frame := range r.frames {
			if frame != nil {
				frame.destroy(r.device)
				r.frames[i] = nil
			}
		}
		if r.uniform != nil {
			r.uniform.Destroy(r.device)
			r.uniform = nil
		}
		if r.programs != nil {
			r.programs.Destroy(r.device)
			r.programs = nil
		}
		if r.textures != nil {
			r.textures.destroy(r.device)
			r.textures = nil
		}
		if r.renderPass != vk.RenderPass(vk.NullHandle) {
			vulkan.DestroyRenderPass(r.device, r.renderPass)
			r.renderPass = vk.RenderPass(vk.NullHandle)
		}
		if r.swapchain != nil {
			r.swapchain.Destroy(r.device)
			r.swapchain = nil
		}
		r.device.Destroy()
		r.device = nil
	}
	if r.instance != nil {
		if r.surface != vk.Surface(vk.NullHandle) {
			r.instance.DestroySurface(r.surface)
			r.surface = vk.Surface(vk.NullHandle)
		}
		r.instance.Destroy()
		r.instance = nil
	}
}
