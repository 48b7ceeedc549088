// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

// MemoryProperty is a set of memory property flags.
type MemoryProperty uint32

// Memory properties
const (
	MemoryDeviceLocal  MemoryProperty = 0x1
	MemoryHostVisible  MemoryProperty = 0x2
	MemoryHostCoherent MemoryProperty = 0x4
	MemoryHostCached   MemoryProperty = 0x8
)

// BufferUsage is a set of buffer usage flags.
type BufferUsage uint32

// Buffer usages
const (
	BufferTransferSrc BufferUsage = 0x1
	BufferTransferDst BufferUsage = 0x2
	BufferUniform     BufferUsage = 0x10
	BufferIndex       BufferUsage = 0x40
	BufferVertex      BufferUsage = 0x80
)

// ImageUsage is a set of image usage flags.
type ImageUsage uint32

// Image usages
const (
	ImageTransferSrc            ImageUsage = 0x1
	ImageTransferDst            ImageUsage = 0x2
	ImageSampled                ImageUsage = 0x4
	ImageColorAttachment        ImageUsage = 0x10
	ImageDepthStencilAttachment ImageUsage = 0x20
)

// ImageAspect selects the aspects of an image.
type ImageAspect uint32

// Image aspects
const (
	AspectColor   ImageAspect = 0x1
	AspectDepth   ImageAspect = 0x2
	AspectStencil ImageAspect = 0x4
)

// ImageLayout is the layout of an image.
type ImageLayout int32

// Image layouts
const (
	LayoutUndefined              ImageLayout = 0
	LayoutGeneral                ImageLayout = 1
	LayoutColorAttachment        ImageLayout = 2
	LayoutDepthStencilAttachment ImageLayout = 3
	LayoutShaderReadOnly         ImageLayout = 5
	LayoutTransferSrc            ImageLayout = 6
	LayoutTransferDst            ImageLayout = 7
	LayoutPresentSrc             ImageLayout = 1000001002
)

func (l ImageLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "undefined"
	case LayoutGeneral:
		return "general"
	case LayoutColorAttachment:
		return "color-attachment"
	case LayoutDepthStencilAttachment:
		return "depth-stencil-attachment"
	case LayoutShaderReadOnly:
		return "shader-read-only"
	case LayoutTransferSrc:
		return "transfer-src"
	case LayoutTransferDst:
		return "transfer-dst"
	case LayoutPresentSrc:
		return "present-src"
	}
	return "unknown"
}

// Format is a pixel or vertex attribute format.
type Format int32

// Formats
const (
	FormatUndefined          Format = 0
	FormatR8Unorm            Format = 9
	FormatR8G8Unorm          Format = 16
	FormatR8G8B8A8Unorm      Format = 37
	FormatR8G8B8A8Srgb       Format = 43
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatA2R10G10B10Unorm   Format = 58
	FormatR16Unorm           Format = 70
	FormatR16Sfloat          Format = 76
	FormatR16G16Unorm        Format = 77
	FormatR16G16Sfloat       Format = 83
	FormatR16G16B16A16Unorm  Format = 91
	FormatR16G16B16A16Sfloat Format = 97
	FormatR32Uint            Format = 98
	FormatR32Sfloat          Format = 100
	FormatR32G32Sfloat       Format = 103
	FormatR32G32B32Sfloat    Format = 106
	FormatR32G32B32A32Sfloat Format = 109
	FormatD16Unorm           Format = 124
	FormatD32Sfloat          Format = 126
	FormatS8Uint             Format = 127
	FormatD24UnormS8Uint     Format = 129
	FormatD32SfloatS8Uint    Format = 130
)

// HasStencil reports whether a depth format carries a stencil aspect.
func (f Format) HasStencil() bool {
	return f == FormatD24UnormS8Uint || f == FormatD32SfloatS8Uint
}

// ColorSpace is the color space of a surface format.
type ColorSpace int32

// ColorSpaceSrgbNonlinear is the only color space the device layer uses.
const ColorSpaceSrgbNonlinear ColorSpace = 0

// ShaderStage is a set of shader stages.
type ShaderStage uint32

// Shader stages
const (
	StageVertex   ShaderStage = 0x1
	StageFragment ShaderStage = 0x10
)

// DescriptorType is the type of a descriptor binding.
type DescriptorType int32

// Descriptor types
const (
	DescriptorCombinedImageSampler DescriptorType = 1
	DescriptorUniformBuffer        DescriptorType = 6
)

// IndexType is the element type of an index buffer.
type IndexType int32

// Index types
const (
	IndexUint16 IndexType = 0
	IndexUint32 IndexType = 1
)

// Filter is a texel filter.
type Filter int32

// Filters
const (
	FilterNearest Filter = 0
	FilterLinear  Filter = 1
)

// MipmapMode is a mip level filter.
type MipmapMode int32

// Mipmap modes
const (
	MipmapNearest MipmapMode = 0
	MipmapLinear  MipmapMode = 1
)

// AddressMode is a texture coordinate wrapping mode.
type AddressMode int32

// Address modes
const (
	AddressRepeat            AddressMode = 0
	AddressMirroredRepeat    AddressMode = 1
	AddressClampToEdge       AddressMode = 2
	AddressClampToBorder     AddressMode = 3
	AddressMirrorClampToEdge AddressMode = 4
)

// BorderColor is the color of clamp-to-border samples.
type BorderColor int32

// Border colors
const (
	BorderFloatTransparentBlack BorderColor = 0
	BorderFloatOpaqueBlack      BorderColor = 2
	BorderFloatOpaqueWhite      BorderColor = 4
)

// AccessFlags is a set of memory access types.
type AccessFlags uint32

// Access flags
const (
	AccessShaderRead                  AccessFlags = 0x20
	AccessColorAttachmentWrite        AccessFlags = 0x100
	AccessDepthStencilAttachmentRead  AccessFlags = 0x200
	AccessDepthStencilAttachmentWrite AccessFlags = 0x400
	AccessTransferRead                AccessFlags = 0x800
	AccessTransferWrite               AccessFlags = 0x1000
	AccessMemoryRead                  AccessFlags = 0x8000
)

// PipelineStage is a set of pipeline stages.
type PipelineStage uint32

// Pipeline stages
const (
	StageTopOfPipe             PipelineStage = 0x1
	StageFragmentShader        PipelineStage = 0x80
	StageEarlyFragmentTests    PipelineStage = 0x100
	StageColorAttachmentOutput PipelineStage = 0x400
	StageTransfer              PipelineStage = 0x1000
	StageBottomOfPipe          PipelineStage = 0x2000
)

// PresentMode is a swapchain presentation mode.
type PresentMode int32

// Present modes
const (
	PresentImmediate   PresentMode = 0
	PresentMailbox     PresentMode = 1
	PresentFIFO        PresentMode = 2
	PresentFIFORelaxed PresentMode = 3
)

// CompositeAlpha is a set of surface alpha compositing modes.
type CompositeAlpha uint32

// Composite alpha modes
const (
	CompositeOpaque         CompositeAlpha = 0x1
	CompositePreMultiplied  CompositeAlpha = 0x2
	CompositePostMultiplied CompositeAlpha = 0x4
	CompositeInherit        CompositeAlpha = 0x8
)

// Topology is a primitive topology.
type Topology int32

// Topologies
const (
	TopologyPointList     Topology = 0
	TopologyLineList      Topology = 1
	TopologyLineStrip     Topology = 2
	TopologyTriangleList  Topology = 3
	TopologyTriangleStrip Topology = 4
)

// PolygonMode is a rasterization fill mode.
type PolygonMode int32

// Polygon modes
const (
	PolygonFill  PolygonMode = 0
	PolygonLine  PolygonMode = 1
	PolygonPoint PolygonMode = 2
)

// CullMode is a face culling mode.
type CullMode uint32

// Cull modes
const (
	CullNone  CullMode = 0
	CullFront CullMode = 1
	CullBack  CullMode = 2
)

// FrontFace is the winding order of front facing triangles.
type FrontFace int32

// Front faces
const (
	FrontCounterClockwise FrontFace = 0
	FrontClockwise        FrontFace = 1
)

// BlendFactor is a blend factor.
type BlendFactor int32

// Blend factors
const (
	BlendZero             BlendFactor = 0
	BlendOne              BlendFactor = 1
	BlendSrcAlpha         BlendFactor = 6
	BlendOneMinusSrcAlpha BlendFactor = 7
)

// BlendOp is a blend operation.
type BlendOp int32

// BlendOpAdd adds source and destination.
const BlendOpAdd BlendOp = 0

// CompareOp is a depth comparison.
type CompareOp int32

// Compare operations
const (
	CompareNever          CompareOp = 0
	CompareLess           CompareOp = 1
	CompareEqual          CompareOp = 2
	CompareLessOrEqual    CompareOp = 3
	CompareGreater        CompareOp = 4
	CompareNotEqual       CompareOp = 5
	CompareGreaterOrEqual CompareOp = 6
	CompareAlways         CompareOp = 7
)

// DynamicState is pipeline state set per command buffer.
type DynamicState int32

// Dynamic states
const (
	DynamicViewport DynamicState = 0
	DynamicScissor  DynamicState = 1
)
