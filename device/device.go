// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device abstracts the native graphics API behind the Instance and
// Driver interfaces. The Vulkan implementation lives in this package, a
// recording fake for tests lives in devicetest.
//
// Every value type mirrors the numeric value of its Vulkan counterpart so
// that the Vulkan implementation can convert without lookup tables.
package device

import "errors"

// Driver results that callers are expected to branch on.
var (
	ErrOutOfDate  = errors.New("swapchain out of date")
	ErrSuboptimal = errors.New("swapchain suboptimal")
	ErrTimeout    = errors.New("wait timed out")
)

// Handle identifies a native object owned by a Driver. The zero Handle is null.
type Handle uint64

// Native object handles.
type (
	Buffer              Handle
	Memory              Handle
	Image               Handle
	ImageView           Handle
	Sampler             Handle
	ShaderModule        Handle
	DescriptorSetLayout Handle
	DescriptorSet       Handle
	PipelineLayout      Handle
	Pipeline            Handle
	RenderPass          Handle
	Framebuffer         Handle
	CommandPool         Handle
	CommandBuffer       Handle
	Fence               Handle
	Semaphore           Handle
	Surface             Handle
	Swapchain           Handle
)

// AdapterType is the kind of physical device.
type AdapterType int32

// Adapter types
const (
	AdapterOther AdapterType = iota
	AdapterIntegrated
	AdapterDiscrete
	AdapterVirtual
	AdapterCPU
)

func (t AdapterType) String() string {
	switch t {
	case AdapterIntegrated:
		return "integrated"
	case AdapterDiscrete:
		return "discrete"
	case AdapterVirtual:
		return "virtual"
	case AdapterCPU:
		return "cpu"
	}
	return "other"
}

// Limits holds the adapter limits the device layer depends on.
type Limits struct {
	MinUniformBufferOffsetAlignment uint64
	MaxSamplerAnisotropy            float32
	MaxImageDimension2D             uint32
}

// AdapterInfo describes available physical properties of a rendering device
type AdapterInfo struct {
	Index         int
	ID            int
	VendorID      int
	DriverVersion int
	APIVersion    uint32
	Name          string
	Type          AdapterType
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint64
	Heaps         []uint64
	Limits        Limits
}

// Vendor returns the name of the adapter vendor.
func (a AdapterInfo) Vendor() string {
	return VendorName(a.VendorID)
}

// DriverConfiguration configures the logical device opened from an adapter.
type DriverConfiguration struct {
	Extensions []string

	// DescriptorSets is the capacity of the device-wide descriptor pool.
	DescriptorSets uint32
}

// Instance is an explicit API context. It is created by the application and
// outlives every Driver opened from it.
type Instance interface {

	// Adapters returns the physical devices visible to the instance.
	Adapters() []AdapterInfo

	// Open creates a logical device with one graphics queue
	// on the adapter at the given index.
	Open(adapter int, cfg DriverConfiguration) (Driver, error)

	// Destroy releases the instance. Every Driver must be destroyed first.
	Destroy()
}

// MemoryRequirements reports the memory a buffer or image needs.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

// MemoryType is one entry of the adapter memory type table.
type MemoryType struct {
	Properties MemoryProperty
	Heap       uint32
}

// Extent is a two dimensional size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// Rect is a scissor rectangle.
type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// Viewport is a dynamic viewport.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// ImageInfo describes a 2D image.
type ImageInfo struct {
	Format    Format
	Extent    Extent
	MipLevels uint32
	Usage     ImageUsage
}

// SamplerInfo describes a sampler.
type SamplerInfo struct {
	MinFilter     Filter
	MagFilter     Filter
	MipmapMode    MipmapMode
	AddressU      AddressMode
	AddressV      AddressMode
	AddressW      AddressMode
	MaxAnisotropy float32
	BorderColor   BorderColor
}

// LayoutBinding is one binding of a descriptor set layout.
type LayoutBinding struct {
	Binding uint32
	Type    DescriptorType
	Stages  ShaderStage
}

// DescriptorWrite updates one binding of a descriptor set. Buffer and Range
// are used by uniform buffer bindings, View and Sampler by image samplers.
type DescriptorWrite struct {
	Binding uint32
	Type    DescriptorType
	Buffer  Buffer
	Range   uint64
	View    ImageView
	Sampler Sampler
}

// VertexAttribute is one attribute of the single interleaved vertex binding.
type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

// RasterState is the rasterizer configuration of a pipeline.
type RasterState struct {
	Polygon   PolygonMode
	Cull      CullMode
	FrontFace FrontFace
	LineWidth float32
}

// BlendState is the color blend configuration of the single color attachment.
type BlendState struct {
	Enable   bool
	SrcColor BlendFactor
	DstColor BlendFactor
	ColorOp  BlendOp
	SrcAlpha BlendFactor
	DstAlpha BlendFactor
	AlphaOp  BlendOp
}

// DepthState is the depth/stencil configuration of a pipeline.
type DepthState struct {
	Test    bool
	Write   bool
	Compare CompareOp
}

// PipelineInfo describes a graphics pipeline.
type PipelineInfo struct {
	Layout         PipelineLayout
	RenderPass     RenderPass
	VertexModule   ShaderModule
	FragmentModule ShaderModule
	VertexEntry    string
	FragmentEntry  string
	Stride         uint32
	Attributes     []VertexAttribute
	Topology       Topology
	Raster         RasterState
	Blend          BlendState
	Depth          DepthState
	Dynamic        []DynamicState
}

// ImageBarrier is an image memory barrier performing a layout transition.
type ImageBarrier struct {
	Image     Image
	Old, New  ImageLayout
	Aspect    ImageAspect
	SrcAccess AccessFlags
	DstAccess AccessFlags
	SrcStage  PipelineStage
	DstStage  PipelineStage
	MipLevels uint32
}

// ClearValues are the render pass clear values.
type ClearValues struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

// SubmitInfo describes one queue submission.
type SubmitInfo struct {
	CommandBuffer CommandBuffer
	Wait          Semaphore
	WaitStage     PipelineStage
	Signal        Semaphore
	Fence         Fence
}

// SurfaceCapabilities reports what a surface supports.
type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32
	CurrentExtent  Extent
	MinExtent      Extent
	MaxExtent      Extent
	CompositeAlpha CompositeAlpha
}

// SurfaceFormat pairs a format with its color space.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// SwapchainInfo describes a swapchain.
type SwapchainInfo struct {
	Surface        Surface
	MinImageCount  uint32
	Format         SurfaceFormat
	Extent         Extent
	PresentMode    PresentMode
	CompositeAlpha CompositeAlpha
	Old            Swapchain
}

// Driver is a logical device with a single graphics and present capable
// queue. A Driver is not safe for concurrent use.
type Driver interface {

	// Adapter returns the properties of the adapter the driver was opened on.
	Adapter() AdapterInfo

	// MemoryTypes returns the memory type table of the adapter.
	MemoryTypes() []MemoryType

	// WaitIdle blocks until the device finished all submitted work.
	WaitIdle() error

	// Destroy destroys the logical device and every pool it owns.
	Destroy()

	CreateBuffer(size uint64, usage BufferUsage) (Buffer, MemoryRequirements, error)
	DestroyBuffer(Buffer)
	AllocateMemory(size uint64, typeIndex uint32) (Memory, error)
	FreeMemory(Memory)
	BindBufferMemory(Buffer, Memory) error

	// MapMemory maps size bytes of memory. The slice is valid until UnmapMemory.
	MapMemory(mem Memory, size uint64) ([]byte, error)
	UnmapMemory(Memory)

	CreateImage(ImageInfo) (Image, MemoryRequirements, error)
	DestroyImage(Image)
	BindImageMemory(Image, Memory) error
	CreateImageView(img Image, format Format, aspect ImageAspect) (ImageView, error)
	DestroyImageView(ImageView)
	CreateSampler(SamplerInfo) (Sampler, error)
	DestroySampler(Sampler)

	// FormatSupportsDepth reports whether format can be a depth attachment.
	FormatSupportsDepth(Format) bool

	CreateShaderModule(code []byte) (ShaderModule, error)
	DestroyShaderModule(ShaderModule)
	CreateDescriptorSetLayout([]LayoutBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(DescriptorSetLayout)
	CreatePipelineLayout(DescriptorSetLayout) (PipelineLayout, error)
	DestroyPipelineLayout(PipelineLayout)
	CreateGraphicsPipeline(PipelineInfo) (Pipeline, error)
	DestroyPipeline(Pipeline)

	// AllocateDescriptorSets allocates count sets from the device-wide pool.
	AllocateDescriptorSets(layout DescriptorSetLayout, count int) ([]DescriptorSet, error)
	FreeDescriptorSets([]DescriptorSet)
	UpdateDescriptorSet(DescriptorSet, []DescriptorWrite)

	CreateRenderPass(color, depth Format) (RenderPass, error)
	DestroyRenderPass(RenderPass)
	CreateFramebuffer(rp RenderPass, views []ImageView, extent Extent) (Framebuffer, error)
	DestroyFramebuffer(Framebuffer)

	// ImportSurface wraps a native surface created by the windowing layer.
	ImportSurface(native uintptr) (Surface, error)
	DestroySurface(Surface)
	SurfaceCapabilities(Surface) (SurfaceCapabilities, error)
	SurfaceFormats(Surface) ([]SurfaceFormat, error)
	PresentModes(Surface) ([]PresentMode, error)
	CreateSwapchain(SwapchainInfo) (Swapchain, []Image, error)
	DestroySwapchain(Swapchain)

	// AcquireNextImage returns ErrOutOfDate or ErrSuboptimal next to a valid
	// index when the surface changed, and ErrTimeout when timeout elapsed.
	AcquireNextImage(sc Swapchain, timeout uint64, signal Semaphore) (uint32, error)
	QueuePresent(sc Swapchain, index uint32, wait Semaphore) error

	// CreateCommandPool creates a pool on the graphics queue family.
	// Buffers from a resettable pool may be reset individually.
	CreateCommandPool(resettable bool) (CommandPool, error)
	DestroyCommandPool(CommandPool)
	ResetCommandPool(CommandPool) error
	AllocateCommandBuffers(pool CommandPool, count int) ([]CommandBuffer, error)
	FreeCommandBuffers(CommandPool, []CommandBuffer)

	BeginCommandBuffer(cb CommandBuffer, oneTime bool) error
	EndCommandBuffer(CommandBuffer) error
	ResetCommandBuffer(CommandBuffer) error

	CmdBeginRenderPass(cb CommandBuffer, rp RenderPass, fb Framebuffer, extent Extent, clear ClearValues)
	CmdEndRenderPass(CommandBuffer)
	CmdSetViewport(CommandBuffer, Viewport)
	CmdSetScissor(CommandBuffer, Rect)
	CmdBindPipeline(CommandBuffer, Pipeline)
	CmdBindVertexBuffer(CommandBuffer, Buffer)
	CmdBindIndexBuffer(CommandBuffer, Buffer, IndexType)
	CmdBindDescriptorSet(CommandBuffer, PipelineLayout, DescriptorSet)
	CmdDraw(cb CommandBuffer, vertexCount, firstVertex uint32)
	CmdDrawIndexed(cb CommandBuffer, indexCount, firstIndex uint32)
	CmdCopyBuffer(cb CommandBuffer, src, dst Buffer, size uint64)
	CmdCopyBufferToImage(cb CommandBuffer, src Buffer, dst Image, extent Extent, aspect ImageAspect)
	CmdCopyImageToBuffer(cb CommandBuffer, src Image, dst Buffer, extent Extent, aspect ImageAspect)
	CmdCopyImage(cb CommandBuffer, src, dst Image, extent Extent, aspect ImageAspect)
	CmdPipelineBarrier(CommandBuffer, ImageBarrier)

	CreateFence(signaled bool) (Fence, error)
	DestroyFence(Fence)

	// WaitForFence returns ErrTimeout when the fence is still unsignaled
	// after timeout nanoseconds.
	WaitForFence(f Fence, timeout uint64) error
	ResetFence(Fence) error
	FenceSignaled(Fence) (bool, error)
	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(Semaphore)

	QueueSubmit(SubmitInfo) error
}
