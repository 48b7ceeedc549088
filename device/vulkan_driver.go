// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/devblok/korugs/core"
	vk "github.com/vulkan-go/vulkan"
)

// VulkanDriver is the Vulkan implementation of Driver. Native handles are
// kept in a registry and handed out as opaque Handles.
type VulkanDriver struct {
	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queue          vk.Queue
	queueFamily    uint32

	adapter     AdapterInfo
	memoryTypes []MemoryType

	descriptorPool vk.DescriptorPool
	pipelineCache  vk.PipelineCache

	next    Handle
	objects map[Handle]interface{}
}

type swapchainObject struct {
	swapchain vk.Swapchain
	images    []Image
}

func (v *VulkanDriver) put(obj interface{}) Handle {
	v.next++
	v.objects[v.next] = obj
	return v.next
}

func (v *VulkanDriver) take(h Handle) interface{} {
	obj := v.objects[h]
	delete(v.objects, h)
	return obj
}

func lookup[T any](v *VulkanDriver, h Handle) T {
	obj, _ := v.objects[h].(T)
	return obj
}

func (v *VulkanDriver) createDescriptorPool(capacity uint32) error {
	if capacity == 0 {
		capacity = 1024
	}
	poolSizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: capacity * 2,
		},
		{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: capacity * 8,
		}}
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       capacity,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var descriptorPool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(v.device, &dpci, nil, &descriptorPool)); err != nil {
		return errors.New("vk.CreateDescriptorPool(): " + err.Error())
	}
	v.descriptorPool = descriptorPool

	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var pipelineCache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(v.device, &pcci, nil, &pipelineCache)); err != nil {
		return errors.New("vk.CreatePipelineCache(): " + err.Error())
	}
	v.pipelineCache = pipelineCache
	return nil
}

// Adapter implements interface
func (v *VulkanDriver) Adapter() AdapterInfo {
	return v.adapter
}

// MemoryTypes implements interface
func (v *VulkanDriver) MemoryTypes() []MemoryType {
	return v.memoryTypes
}

// WaitIdle implements interface
func (v *VulkanDriver) WaitIdle() error {
	if err := vk.Error(vk.DeviceWaitIdle(v.device)); err != nil {
		return errors.New("vk.DeviceWaitIdle(): " + err.Error())
	}
	return nil
}

// Destroy implements interface
func (v *VulkanDriver) Destroy() {
	if v == nil || v.device == nil {
		return
	}
	vk.DeviceWaitIdle(v.device)
	vk.DestroyPipelineCache(v.device, v.pipelineCache, nil)
	vk.DestroyDescriptorPool(v.device, v.descriptorPool, nil)
	vk.DestroyDevice(v.device, nil)
	v.objects = nil
	v.device = nil
}

// CreateBuffer implements interface
func (v *VulkanDriver) CreateBuffer(size uint64, usage BufferUsage) (Buffer, MemoryRequirements, error) {
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(v.device, &bci, nil, &buffer)); err != nil {
		return 0, MemoryRequirements{}, fmt.Errorf("vk.CreateBuffer(): %s", err.Error())
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(v.device, buffer, &req)
	req.Deref()

	return Buffer(v.put(buffer)), MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}, nil
}

// DestroyBuffer implements interface
func (v *VulkanDriver) DestroyBuffer(b Buffer) {
	if buffer, ok := v.take(Handle(b)).(vk.Buffer); ok {
		vk.DestroyBuffer(v.device, buffer, nil)
	}
}

// AllocateMemory implements interface
func (v *VulkanDriver) AllocateMemory(size uint64, typeIndex uint32) (Memory, error) {
	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}

	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(v.device, &mai, nil, &memory)); err != nil {
		return 0, fmt.Errorf("vk.AllocateMemory(): %s", err.Error())
	}
	return Memory(v.put(memory)), nil
}

// FreeMemory implements interface
func (v *VulkanDriver) FreeMemory(m Memory) {
	if memory, ok := v.take(Handle(m)).(vk.DeviceMemory); ok {
		vk.FreeMemory(v.device, memory, nil)
	}
}

// BindBufferMemory implements interface
func (v *VulkanDriver) BindBufferMemory(b Buffer, m Memory) error {
	buffer := lookup[vk.Buffer](v, Handle(b))
	memory := lookup[vk.DeviceMemory](v, Handle(m))
	if err := vk.Error(vk.BindBufferMemory(v.device, buffer, memory, 0)); err != nil {
		return fmt.Errorf("vk.BindBufferMemory(): %s", err.Error())
	}
	return nil
}

// MapMemory implements interface
func (v *VulkanDriver) MapMemory(m Memory, size uint64) ([]byte, error) {
	var data unsafe.Pointer
	memory := lookup[vk.DeviceMemory](v, Handle(m))
	if err := vk.Error(vk.MapMemory(v.device, memory, 0, vk.DeviceSize(size), 0, &data)); err != nil {
		return nil, fmt.Errorf("vk.MapMemory(): %s", err.Error())
	}
	return unsafe.Slice((*byte)(data), size), nil
}

// UnmapMemory implements interface
func (v *VulkanDriver) UnmapMemory(m Memory) {
	vk.UnmapMemory(v.device, lookup[vk.DeviceMemory](v, Handle(m)))
}

// CreateImage implements interface
func (v *VulkanDriver) CreateImage(info ImageInfo) (Image, MemoryRequirements, error) {
	levels := info.MipLevels
	if levels == 0 {
		levels = 1
	}
	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    vk.Format(info.Format),
		Extent: vk.Extent3D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
			Depth:  1,
		},
		MipLevels:     levels,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(info.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	if err := vk.Error(vk.CreateImage(v.device, &ici, nil, &image)); err != nil {
		return 0, MemoryRequirements{}, fmt.Errorf("vk.CreateImage(): %s", err.Error())
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(v.device, image, &req)
	req.Deref()

	return Image(v.put(image)), MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}, nil
}

// DestroyImage implements interface
func (v *VulkanDriver) DestroyImage(i Image) {
	if image, ok := v.take(Handle(i)).(vk.Image); ok {
		vk.DestroyImage(v.device, image, nil)
	}
}

// BindImageMemory implements interface
func (v *VulkanDriver) BindImageMemory(i Image, m Memory) error {
	image := lookup[vk.Image](v, Handle(i))
	memory := lookup[vk.DeviceMemory](v, Handle(m))
	if err := vk.Error(vk.BindImageMemory(v.device, image, memory, 0)); err != nil {
		return fmt.Errorf("vk.BindImageMemory(): %s", err.Error())
	}
	return nil
}

// CreateImageView implements interface
func (v *VulkanDriver) CreateImageView(i Image, format Format, aspect ImageAspect) (ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    lookup[vk.Image](v, Handle(i)),
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(v.device, &ivci, nil, &view)); err != nil {
		return 0, fmt.Errorf("vk.CreateImageView(): %s", err.Error())
	}
	return ImageView(v.put(view)), nil
}

// DestroyImageView implements interface
func (v *VulkanDriver) DestroyImageView(iv ImageView) {
	if view, ok := v.take(Handle(iv)).(vk.ImageView); ok {
		vk.DestroyImageView(v.device, view, nil)
	}
}

// CreateSampler implements interface
func (v *VulkanDriver) CreateSampler(info SamplerInfo) (Sampler, error) {
	anisotropy := vk.False
	if info.MaxAnisotropy > 1 {
		anisotropy = vk.True
	}
	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.Filter(info.MagFilter),
		MinFilter:               vk.Filter(info.MinFilter),
		MipmapMode:              vk.SamplerMipmapMode(info.MipmapMode),
		AddressModeU:            vk.SamplerAddressMode(info.AddressU),
		AddressModeV:            vk.SamplerAddressMode(info.AddressV),
		AddressModeW:            vk.SamplerAddressMode(info.AddressW),
		AnisotropyEnable:        vk.Bool32(anisotropy),
		MaxAnisotropy:           info.MaxAnisotropy,
		BorderColor:             vk.BorderColor(info.BorderColor),
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MaxLod:                  vk.LodClampNone,
	}

	var sampler vk.Sampler
	if err := vk.Error(vk.CreateSampler(v.device, &sci, nil, &sampler)); err != nil {
		return 0, fmt.Errorf("vk.CreateSampler(): %s", err.Error())
	}
	return Sampler(v.put(sampler)), nil
}

// DestroySampler implements interface
func (v *VulkanDriver) DestroySampler(s Sampler) {
	if sampler, ok := v.take(Handle(s)).(vk.Sampler); ok {
		vk.DestroySampler(v.device, sampler, nil)
	}
}

// FormatSupportsDepth implements interface
func (v *VulkanDriver) FormatSupportsDepth(f Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(v.physicalDevice, vk.Format(f), &props)
	props.Deref()
	return props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit) != 0
}

// CreateShaderModule implements interface
func (v *VulkanDriver) CreateShaderModule(code []byte) (ShaderModule, error) {
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    core.SliceUint32(code),
	}

	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(v.device, &smci, nil, &module)); err != nil {
		return 0, fmt.Errorf("vk.CreateShaderModule(): %s", err.Error())
	}
	return ShaderModule(v.put(module)), nil
}

// DestroyShaderModule implements interface
func (v *VulkanDriver) DestroyShaderModule(sm ShaderModule) {
	if module, ok := v.take(Handle(sm)).(vk.ShaderModule); ok {
		vk.DestroyShaderModule(v.device, module, nil)
	}
}

// CreateDescriptorSetLayout implements interface
func (v *VulkanDriver) CreateDescriptorSetLayout(bindings []LayoutBinding) (DescriptorSetLayout, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
	}
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}

	var layout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(v.device, &dslci, nil, &layout)); err != nil {
		return 0, errors.New("vk.CreateDescriptorSetLayout(): " + err.Error())
	}
	return DescriptorSetLayout(v.put(layout)), nil
}

// DestroyDescriptorSetLayout implements interface
func (v *VulkanDriver) DestroyDescriptorSetLayout(l DescriptorSetLayout) {
	if layout, ok := v.take(Handle(l)).(vk.DescriptorSetLayout); ok {
		vk.DestroyDescriptorSetLayout(v.device, layout, nil)
	}
}

// CreatePipelineLayout implements interface
func (v *VulkanDriver) CreatePipelineLayout(l DescriptorSetLayout) (PipelineLayout, error) {
	plci := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{lookup[vk.DescriptorSetLayout](v, Handle(l))},
	}

	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(v.device, &plci, nil, &layout)); err != nil {
		return 0, errors.New("vk.CreatePipelineLayout(): " + err.Error())
	}
	return PipelineLayout(v.put(layout)), nil
}

// DestroyPipelineLayout implements interface
func (v *VulkanDriver) DestroyPipelineLayout(l PipelineLayout) {
	if layout, ok := v.take(Handle(l)).(vk.PipelineLayout); ok {
		vk.DestroyPipelineLayout(v.device, layout, nil)
	}
}

// CreateGraphicsPipeline implements interface
func (v *VulkanDriver) CreateGraphicsPipeline(info PipelineInfo) (Pipeline, error) {
	stages := []vk.PipelineShaderStageCreateInfo{{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageVertexBit,
		Module: lookup[vk.ShaderModule](v, Handle(info.VertexModule)),
		PName:  safeString(info.VertexEntry),
	}, {
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageFragmentBit,
		Module: lookup[vk.ShaderModule](v, Handle(info.FragmentModule)),
		PName:  safeString(info.FragmentEntry),
	}}

	attributes := make([]vk.VertexInputAttributeDescription, len(info.Attributes))
	for i, a := range info.Attributes {
		attributes[i] = vk.VertexInputAttributeDescription{
			Binding:  0,
			Location: a.Location,
			Format:   vk.Format(a.Format),
			Offset:   a.Offset,
		}
	}
	bindings := []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    info.Stride,
		InputRate: vk.VertexInputRateVertex,
	}}

	dynamic := make([]vk.DynamicState, len(info.Dynamic))
	for i, d := range info.Dynamic {
		dynamic[i] = vk.DynamicState(d)
	}

	blendEnable := vk.False
	if info.Blend.Enable {
		blendEnable = vk.True
	}
	depthTest, depthWrite := vk.False, vk.False
	if info.Depth.Test {
		depthTest = vk.True
	}
	if info.Depth.Write {
		depthWrite = vk.True
	}

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopology(info.Topology),
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonMode(info.Raster.Polygon),
			CullMode:    vk.CullModeFlags(info.Raster.Cull),
			FrontFace:   vk.FrontFace(info.Raster.FrontFace),
			LineWidth:   info.Raster.LineWidth,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vk.Bool32(depthTest),
			DepthWriteEnable:      vk.Bool32(depthWrite),
			DepthCompareOp:        vk.CompareOp(info.Depth.Compare),
			DepthBoundsTestEnable: vk.False,
			StencilTestEnable:     vk.False,
			Back: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
			Front: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask:      0xF,
				BlendEnable:         vk.Bool32(blendEnable),
				SrcColorBlendFactor: vk.BlendFactor(info.Blend.SrcColor),
				DstColorBlendFactor: vk.BlendFactor(info.Blend.DstColor),
				ColorBlendOp:        vk.BlendOp(info.Blend.ColorOp),
				SrcAlphaBlendFactor: vk.BlendFactor(info.Blend.SrcAlpha),
				DstAlphaBlendFactor: vk.BlendFactor(info.Blend.DstAlpha),
				AlphaBlendOp:        vk.BlendOp(info.Blend.AlphaOp),
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamic)),
			PDynamicStates:    dynamic,
		},
		Layout:     lookup[vk.PipelineLayout](v, Handle(info.Layout)),
		RenderPass: lookup[vk.RenderPass](v, Handle(info.RenderPass)),
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(v.device, v.pipelineCache, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		return 0, errors.New("vk.CreateGraphicsPipelines(): " + err.Error())
	}
	return Pipeline(v.put(pipelines[0])), nil
}

// DestroyPipeline implements interface
func (v *VulkanDriver) DestroyPipeline(p Pipeline) {
	if pipeline, ok := v.take(Handle(p)).(vk.Pipeline); ok {
		vk.DestroyPipeline(v.device, pipeline, nil)
	}
}

// AllocateDescriptorSets implements interface
func (v *VulkanDriver) AllocateDescriptorSets(l DescriptorSetLayout, count int) ([]DescriptorSet, error) {
	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     v.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{lookup[vk.DescriptorSetLayout](v, Handle(l))},
	}

	sets := make([]DescriptorSet, 0, count)
	for idx := 0; idx < count; idx++ {
		var set vk.DescriptorSet
		if err := vk.Error(vk.AllocateDescriptorSets(v.device, &dsai, &set)); err != nil {
			v.FreeDescriptorSets(sets)
			return nil, fmt.Errorf("vk.AllocateDescriptorSets(): %s", err.Error())
		}
		sets = append(sets, DescriptorSet(v.put(set)))
	}
	return sets, nil
}

// FreeDescriptorSets implements interface
func (v *VulkanDriver) FreeDescriptorSets(sets []DescriptorSet) {
	for _, s := range sets {
		if set, ok := v.take(Handle(s)).(vk.DescriptorSet); ok {
			vk.FreeDescriptorSets(v.device, v.descriptorPool, 1, &set)
		}
	}
}

// UpdateDescriptorSet implements interface
func (v *VulkanDriver) UpdateDescriptorSet(s DescriptorSet, writes []DescriptorWrite) {
	set := lookup[vk.DescriptorSet](v, Handle(s))
	wds := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		wd := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      w.Binding,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorType(w.Type),
			DescriptorCount: 1,
		}
		switch w.Type {
		case DescriptorUniformBuffer:
			wd.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: lookup[vk.Buffer](v, Handle(w.Buffer)),
				Offset: 0,
				Range:  vk.DeviceSize(w.Range),
			}}
		case DescriptorCombinedImageSampler:
			wd.PImageInfo = []vk.DescriptorImageInfo{{
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				ImageView:   lookup[vk.ImageView](v, Handle(w.View)),
				Sampler:     lookup[vk.Sampler](v, Handle(w.Sampler)),
			}}
		}
		wds = append(wds, wd)
	}
	vk.UpdateDescriptorSets(v.device, uint32(len(wds)), wds, 0, nil)
}

// CreateRenderPass implements interface
func (v *VulkanDriver) CreateRenderPass(color, depth Format) (RenderPass, error) {
	attachments := []vk.AttachmentDescription{
		{
			Format:         vk.Format(color),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         vk.Format(depth),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthAttachmentRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpassDependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorAttachmentRef)),
		PColorAttachments:       colorAttachmentRef,
		PDepthStencilAttachment: &depthAttachmentRef,
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{subpassDependency},
	}

	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(v.device, &rpci, nil, &renderPass)); err != nil {
		return 0, errors.New("vk.CreateRenderPass(): " + err.Error())
	}
	return RenderPass(v.put(renderPass)), nil
}

// DestroyRenderPass implements interface
func (v *VulkanDriver) DestroyRenderPass(rp RenderPass) {
	if renderPass, ok := v.take(Handle(rp)).(vk.RenderPass); ok {
		vk.DestroyRenderPass(v.device, renderPass, nil)
	}
}

// CreateFramebuffer implements interface
func (v *VulkanDriver) CreateFramebuffer(rp RenderPass, views []ImageView, extent Extent) (Framebuffer, error) {
	attachments := make([]vk.ImageView, len(views))
	for i, view := range views {
		attachments[i] = lookup[vk.ImageView](v, Handle(view))
	}
	fci := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      lookup[vk.RenderPass](v, Handle(rp)),
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(v.device, &fci, nil, &framebuffer)); err != nil {
		return 0, errors.New("vk.CreateFramebuffer(): " + err.Error())
	}
	return Framebuffer(v.put(framebuffer)), nil
}

// DestroyFramebuffer implements interface
func (v *VulkanDriver) DestroyFramebuffer(fb Framebuffer) {
	if framebuffer, ok := v.take(Handle(fb)).(vk.Framebuffer); ok {
		vk.DestroyFramebuffer(v.device, framebuffer, nil)
	}
}

// ImportSurface implements interface
func (v *VulkanDriver) ImportSurface(native uintptr) (Surface, error) {
	surface := vk.SurfaceFromPointer(native)

	var supported vk.Bool32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(v.physicalDevice, v.queueFamily, surface, &supported)); err != nil {
		return 0, errors.New("vk.GetPhysicalDeviceSurfaceSupport(): " + err.Error())
	}
	if !supported.B() {
		return 0, errors.New("vk.GetPhysicalDeviceSurfaceSupport(): surface is not supported")
	}
	return Surface(v.put(surface)), nil
}

// DestroySurface implements interface
func (v *VulkanDriver) DestroySurface(s Surface) {
	if surface, ok := v.take(Handle(s)).(vk.Surface); ok {
		vk.DestroySurface(v.instance, surface, nil)
	}
}

// SurfaceCapabilities implements interface
func (v *VulkanDriver) SurfaceCapabilities(s Surface) (SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(v.physicalDevice, lookup[vk.Surface](v, Handle(s)), &caps)); err != nil {
		return SurfaceCapabilities{}, errors.New("vk.GetPhysicalDeviceSurfaceCapabilities(): " + err.Error())
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return SurfaceCapabilities{
		MinImageCount:  caps.MinImageCount,
		MaxImageCount:  caps.MaxImageCount,
		CurrentExtent:  Extent{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinExtent:      Extent{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxExtent:      Extent{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		CompositeAlpha: CompositeAlpha(caps.SupportedCompositeAlpha),
	}, nil
}

// SurfaceFormats implements interface
func (v *VulkanDriver) SurfaceFormats(s Surface) ([]SurfaceFormat, error) {
	surface := lookup[vk.Surface](v, Handle(s))
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, surface, &count, nil)); err != nil {
		return nil, errors.New("vk.GetPhysicalDeviceSurfaceFormats(): " + err.Error())
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, surface, &count, formats)); err != nil {
		return nil, errors.New("vk.GetPhysicalDeviceSurfaceFormats(): " + err.Error())
	}
	out := make([]SurfaceFormat, count)
	for i := range formats {
		formats[i].Deref()
		out[i] = SurfaceFormat{
			Format:     Format(formats[i].Format),
			ColorSpace: ColorSpace(formats[i].ColorSpace),
		}
	}
	return out, nil
}

// PresentModes implements interface
func (v *VulkanDriver) PresentModes(s Surface) ([]PresentMode, error) {
	surface := lookup[vk.Surface](v, Handle(s))
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(v.physicalDevice, surface, &count, nil)); err != nil {
		return nil, errors.New("vk.GetPhysicalDeviceSurfacePresentModes(): " + err.Error())
	}
	modes := make([]vk.PresentMode, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(v.physicalDevice, surface, &count, modes)); err != nil {
		return nil, errors.New("vk.GetPhysicalDeviceSurfacePresentModes(): " + err.Error())
	}
	out := make([]PresentMode, count)
	for i, m := range modes {
		out[i] = PresentMode(m)
	}
	return out, nil
}

// CreateSwapchain implements interface
func (v *VulkanDriver) CreateSwapchain(info SwapchainInfo) (Swapchain, []Image, error) {
	var old vk.Swapchain
	if sc, ok := v.objects[Handle(info.Old)].(*swapchainObject); ok {
		old = sc.swapchain
	}

	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         lookup[vk.Surface](v, Handle(info.Surface)),
		MinImageCount:   info.MinImageCount,
		ImageFormat:     vk.Format(info.Format.Format),
		ImageColorSpace: vk.ColorSpace(info.Format.ColorSpace),
		ImageExtent: vk.Extent2D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
		},
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit),
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   vk.CompositeAlphaFlagBits(info.CompositeAlpha),
		PresentMode:      vk.PresentMode(info.PresentMode),
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     old,
	}

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(v.device, &scci, nil, &swapchain)); err != nil {
		return 0, nil, errors.New("vk.CreateSwapchain(): " + err.Error())
	}

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(v.device, swapchain, &numImages, nil)); err != nil {
		vk.DestroySwapchain(v.device, swapchain, nil)
		return 0, nil, errors.New("vk.GetSwapchainImages(num): " + err.Error())
	}
	vkImages := make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(v.device, swapchain, &numImages, vkImages)); err != nil {
		vk.DestroySwapchain(v.device, swapchain, nil)
		return 0, nil, errors.New("vk.GetSwapchainImages(images): " + err.Error())
	}

	obj := &swapchainObject{swapchain: swapchain}
	for _, img := range vkImages {
		obj.images = append(obj.images, Image(v.put(img)))
	}
	return Swapchain(v.put(obj)), obj.images, nil
}

// DestroySwapchain implements interface
func (v *VulkanDriver) DestroySwapchain(s Swapchain) {
	obj, ok := v.take(Handle(s)).(*swapchainObject)
	if !ok {
		return
	}
	// swapchain images are owned by the swapchain itself
	for _, img := range obj.images {
		delete(v.objects, Handle(img))
	}
	vk.DestroySwapchain(v.device, obj.swapchain, nil)
}

// AcquireNextImage implements interface
func (v *VulkanDriver) AcquireNextImage(s Swapchain, timeout uint64, signal Semaphore) (uint32, error) {
	var sc vk.Swapchain
	if obj, ok := v.objects[Handle(s)].(*swapchainObject); ok {
		sc = obj.swapchain
	}

	var index uint32
	switch result := vk.AcquireNextImage(v.device, sc, timeout, lookup[vk.Semaphore](v, Handle(signal)), nil, &index); result {
	case vk.Success:
		return index, nil
	case vk.Suboptimal:
		return index, ErrSuboptimal
	case vk.ErrorOutOfDate:
		return index, ErrOutOfDate
	case vk.Timeout, vk.NotReady:
		return index, ErrTimeout
	default:
		return index, errors.New("vk.AcquireNextImage(): " + vk.Error(result).Error())
	}
}

// QueuePresent implements interface
func (v *VulkanDriver) QueuePresent(s Swapchain, index uint32, wait Semaphore) error {
	var sc vk.Swapchain
	if obj, ok := v.objects[Handle(s)].(*swapchainObject); ok {
		sc = obj.swapchain
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{lookup[vk.Semaphore](v, Handle(wait))},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc},
		PImageIndices:      []uint32{index},
	}

	switch result := vk.QueuePresent(v.queue, &presentInfo); result {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return ErrSuboptimal
	case vk.ErrorOutOfDate:
		return ErrOutOfDate
	default:
		return errors.New("vk.QueuePresent(): " + vk.Error(result).Error())
	}
}

// CreateCommandPool implements interface
func (v *VulkanDriver) CreateCommandPool(resettable bool) (CommandPool, error) {
	flags := vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit)
	if resettable {
		flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit)
	}
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: v.queueFamily,
		Flags:            flags,
	}

	var commandPool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(v.device, &cpci, nil, &commandPool)); err != nil {
		return 0, errors.New("vk.CreateCommandPool(): " + err.Error())
	}
	return CommandPool(v.put(commandPool)), nil
}

// DestroyCommandPool implements interface
func (v *VulkanDriver) DestroyCommandPool(p CommandPool) {
	if pool, ok := v.take(Handle(p)).(vk.CommandPool); ok {
		vk.DestroyCommandPool(v.device, pool, nil)
	}
}

// ResetCommandPool implements interface
func (v *VulkanDriver) ResetCommandPool(p CommandPool) error {
	if err := vk.Error(vk.ResetCommandPool(v.device, lookup[vk.CommandPool](v, Handle(p)), 0)); err != nil {
		return errors.New("vk.ResetCommandPool(): " + err.Error())
	}
	return nil
}

// AllocateCommandBuffers implements interface
func (v *VulkanDriver) AllocateCommandBuffers(p CommandPool, count int) ([]CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        lookup[vk.CommandPool](v, Handle(p)),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}

	commandBuffers := make([]vk.CommandBuffer, count)
	if err := vk.Error(vk.AllocateCommandBuffers(v.device, &cbai, commandBuffers)); err != nil {
		return nil, errors.New("vk.AllocateCommandBuffers(): " + err.Error())
	}
	out := make([]CommandBuffer, count)
	for i, cb := range commandBuffers {
		out[i] = CommandBuffer(v.put(cb))
	}
	return out, nil
}

// FreeCommandBuffers implements interface
func (v *VulkanDriver) FreeCommandBuffers(p CommandPool, cbs []CommandBuffer) {
	pool := lookup[vk.CommandPool](v, Handle(p))
	var native []vk.CommandBuffer
	for _, cb := range cbs {
		if buffer, ok := v.take(Handle(cb)).(vk.CommandBuffer); ok {
			native = append(native, buffer)
		}
	}
	if len(native) > 0 {
		vk.FreeCommandBuffers(v.device, pool, uint32(len(native)), native)
	}
}

func (v *VulkanDriver) commandBuffer(cb CommandBuffer) vk.CommandBuffer {
	return lookup[vk.CommandBuffer](v, Handle(cb))
}

// BeginCommandBuffer implements interface
func (v *VulkanDriver) BeginCommandBuffer(cb CommandBuffer, oneTime bool) error {
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if oneTime {
		cbbi.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if err := vk.Error(vk.BeginCommandBuffer(v.commandBuffer(cb), &cbbi)); err != nil {
		return errors.New("vk.BeginCommandBuffer(): " + err.Error())
	}
	return nil
}

// EndCommandBuffer implements interface
func (v *VulkanDriver) EndCommandBuffer(cb CommandBuffer) error {
	if err := vk.Error(vk.EndCommandBuffer(v.commandBuffer(cb))); err != nil {
		return errors.New("vk.EndCommandBuffer(): " + err.Error())
	}
	return nil
}

// ResetCommandBuffer implements interface
func (v *VulkanDriver) ResetCommandBuffer(cb CommandBuffer) error {
	flags := vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)
	if err := vk.Error(vk.ResetCommandBuffer(v.commandBuffer(cb), flags)); err != nil {
		return errors.New("vk.ResetCommandBuffer(): " + err.Error())
	}
	return nil
}

// CmdBeginRenderPass implements interface
func (v *VulkanDriver) CmdBeginRenderPass(cb CommandBuffer, rp RenderPass, fb Framebuffer, extent Extent, clear ClearValues) {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(clear.Color[:])
	clearValues[1].SetDepthStencil(clear.Depth, clear.Stencil)

	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  lookup[vk.RenderPass](v, Handle(rp)),
		Framebuffer: lookup[vk.Framebuffer](v, Handle(fb)),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(v.commandBuffer(cb), &rpbi, vk.SubpassContentsInline)
}

// CmdEndRenderPass implements interface
func (v *VulkanDriver) CmdEndRenderPass(cb CommandBuffer) {
	vk.CmdEndRenderPass(v.commandBuffer(cb))
}

// CmdSetViewport implements interface
func (v *VulkanDriver) CmdSetViewport(cb CommandBuffer, vp Viewport) {
	vk.CmdSetViewport(v.commandBuffer(cb), 0, 1, []vk.Viewport{{
		X:        vp.X,
		Y:        vp.Y,
		Width:    vp.Width,
		Height:   vp.Height,
		MinDepth: vp.MinDepth,
		MaxDepth: vp.MaxDepth,
	}})
}

// CmdSetScissor implements interface
func (v *VulkanDriver) CmdSetScissor(cb CommandBuffer, r Rect) {
	vk.CmdSetScissor(v.commandBuffer(cb), 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: vk.Extent2D{Width: r.Width, Height: r.Height},
	}})
}

// CmdBindPipeline implements interface
func (v *VulkanDriver) CmdBindPipeline(cb CommandBuffer, p Pipeline) {
	vk.CmdBindPipeline(v.commandBuffer(cb), vk.PipelineBindPointGraphics, lookup[vk.Pipeline](v, Handle(p)))
}

// CmdBindVertexBuffer implements interface
func (v *VulkanDriver) CmdBindVertexBuffer(cb CommandBuffer, b Buffer) {
	vk.CmdBindVertexBuffers(v.commandBuffer(cb), 0, 1, []vk.Buffer{lookup[vk.Buffer](v, Handle(b))}, []vk.DeviceSize{0})
}

// CmdBindIndexBuffer implements interface
func (v *VulkanDriver) CmdBindIndexBuffer(cb CommandBuffer, b Buffer, t IndexType) {
	vk.CmdBindIndexBuffer(v.commandBuffer(cb), lookup[vk.Buffer](v, Handle(b)), 0, vk.IndexType(t))
}

// CmdBindDescriptorSet implements interface
func (v *VulkanDriver) CmdBindDescriptorSet(cb CommandBuffer, l PipelineLayout, s DescriptorSet) {
	vk.CmdBindDescriptorSets(v.commandBuffer(cb), vk.PipelineBindPointGraphics,
		lookup[vk.PipelineLayout](v, Handle(l)), 0, 1,
		[]vk.DescriptorSet{lookup[vk.DescriptorSet](v, Handle(s))}, 0, nil)
}

// CmdDraw implements interface
func (v *VulkanDriver) CmdDraw(cb CommandBuffer, vertexCount, firstVertex uint32) {
	vk.CmdDraw(v.commandBuffer(cb), vertexCount, 1, firstVertex, 0)
}

// CmdDrawIndexed implements interface
func (v *VulkanDriver) CmdDrawIndexed(cb CommandBuffer, indexCount, firstIndex uint32) {
	vk.CmdDrawIndexed(v.commandBuffer(cb), indexCount, 1, firstIndex, 0, 0)
}

// CmdCopyBuffer implements interface
func (v *VulkanDriver) CmdCopyBuffer(cb CommandBuffer, src, dst Buffer, size uint64) {
	vk.CmdCopyBuffer(v.commandBuffer(cb), lookup[vk.Buffer](v, Handle(src)), lookup[vk.Buffer](v, Handle(dst)),
		1, []vk.BufferCopy{{Size: vk.DeviceSize(size)}})
}

func bufferImageCopy(extent Extent, aspect ImageAspect) vk.BufferImageCopy {
	return vk.BufferImageCopy{
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(aspect),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
}

// CmdCopyBufferToImage implements interface
func (v *VulkanDriver) CmdCopyBufferToImage(cb CommandBuffer, src Buffer, dst Image, extent Extent, aspect ImageAspect) {
	vk.CmdCopyBufferToImage(v.commandBuffer(cb), lookup[vk.Buffer](v, Handle(src)), lookup[vk.Image](v, Handle(dst)),
		vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{bufferImageCopy(extent, aspect)})
}

// CmdCopyImageToBuffer implements interface
func (v *VulkanDriver) CmdCopyImageToBuffer(cb CommandBuffer, src Image, dst Buffer, extent Extent, aspect ImageAspect) {
	vk.CmdCopyImageToBuffer(v.commandBuffer(cb), lookup[vk.Image](v, Handle(src)), vk.ImageLayoutTransferSrcOptimal,
		lookup[vk.Buffer](v, Handle(dst)), 1, []vk.BufferImageCopy{bufferImageCopy(extent, aspect)})
}

// CmdCopyImage implements interface
func (v *VulkanDriver) CmdCopyImage(cb CommandBuffer, src, dst Image, extent Extent, aspect ImageAspect) {
	layers := vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(aspect),
		LayerCount: 1,
	}
	region := vk.ImageCopy{
		SrcSubresource: layers,
		DstSubresource: layers,
		Extent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyImage(v.commandBuffer(cb),
		lookup[vk.Image](v, Handle(src)), vk.ImageLayoutTransferSrcOptimal,
		lookup[vk.Image](v, Handle(dst)), vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageCopy{region})
}

// CmdPipelineBarrier implements interface
func (v *VulkanDriver) CmdPipelineBarrier(cb CommandBuffer, b ImageBarrier) {
	levels := b.MipLevels
	if levels == 0 {
		levels = 1
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           vk.ImageLayout(b.Old),
		NewLayout:           vk.ImageLayout(b.New),
		SrcAccessMask:       vk.AccessFlags(b.SrcAccess),
		DstAccessMask:       vk.AccessFlags(b.DstAccess),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               lookup[vk.Image](v, Handle(b.Image)),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(b.Aspect),
			BaseMipLevel:   0,
			LevelCount:     levels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdPipelineBarrier(v.commandBuffer(cb), vk.PipelineStageFlags(b.SrcStage), vk.PipelineStageFlags(b.DstStage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// CreateFence implements interface
func (v *VulkanDriver) CreateFence(signaled bool) (Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(v.device, &fci, nil, &fence)); err != nil {
		return 0, errors.New("vk.CreateFence(): " + err.Error())
	}
	return Fence(v.put(fence)), nil
}

// DestroyFence implements interface
func (v *VulkanDriver) DestroyFence(f Fence) {
	if fence, ok := v.take(Handle(f)).(vk.Fence); ok {
		vk.DestroyFence(v.device, fence, nil)
	}
}

// WaitForFence implements interface
func (v *VulkanDriver) WaitForFence(f Fence, timeout uint64) error {
	switch result := vk.WaitForFences(v.device, 1, []vk.Fence{lookup[vk.Fence](v, Handle(f))}, vk.True, timeout); result {
	case vk.Success:
		return nil
	case vk.Timeout:
		return ErrTimeout
	default:
		return errors.New("vk.WaitForFences(): " + vk.Error(result).Error())
	}
}

// ResetFence implements interface
func (v *VulkanDriver) ResetFence(f Fence) error {
	if err := vk.Error(vk.ResetFences(v.device, 1, []vk.Fence{lookup[vk.Fence](v, Handle(f))})); err != nil {
		return errors.New("vk.ResetFences(): " + err.Error())
	}
	return nil
}

// FenceSignaled implements interface
func (v *VulkanDriver) FenceSignaled(f Fence) (bool, error) {
	switch result := vk.GetFenceStatus(v.device, lookup[vk.Fence](v, Handle(f))); result {
	case vk.Success:
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, errors.New("vk.GetFenceStatus(): " + vk.Error(result).Error())
	}
}

// CreateSemaphore implements interface
func (v *VulkanDriver) CreateSemaphore() (Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(v.device, &sci, nil, &semaphore)); err != nil {
		return 0, errors.New("vk.CreateSemaphore(): " + err.Error())
	}
	return Semaphore(v.put(semaphore)), nil
}

// DestroySemaphore implements interface
func (v *VulkanDriver) DestroySemaphore(s Semaphore) {
	if semaphore, ok := v.take(Handle(s)).(vk.Semaphore); ok {
		vk.DestroySemaphore(v.device, semaphore, nil)
	}
}

// QueueSubmit implements interface
func (v *VulkanDriver) QueueSubmit(info SubmitInfo) error {
	si := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.commandBuffer(info.CommandBuffer)},
	}
	if info.Wait != 0 {
		si.WaitSemaphoreCount = 1
		si.PWaitSemaphores = []vk.Semaphore{lookup[vk.Semaphore](v, Handle(info.Wait))}
		si.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(info.WaitStage)}
	}
	if info.Signal != 0 {
		si.SignalSemaphoreCount = 1
		si.PSignalSemaphores = []vk.Semaphore{lookup[vk.Semaphore](v, Handle(info.Signal))}
	}

	if err := vk.Error(vk.QueueSubmit(v.queue, 1, []vk.SubmitInfo{si}, lookup[vk.Fence](v, Handle(info.Fence)))); err != nil {
		return errors.New("vk.QueueSubmit(): " + err.Error())
	}
	return nil
}
