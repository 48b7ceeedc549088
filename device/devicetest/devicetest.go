// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package devicetest provides an in-memory device.Instance and device.Driver.
// The fake keeps buffer, memory and image contents in host memory, executes
// transfer commands when they are submitted and records every other command
// so that tests can inspect what a frame would have drawn.
package devicetest

import (
	"errors"
	"fmt"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
)

// Memory type indices of the default fake memory table.
const (
	DeviceLocalType = 0
	HostVisibleType = 1
)

// DefaultAdapter is the adapter reported by a new Instance.
func DefaultAdapter() device.AdapterInfo {
	return device.AdapterInfo{
		Index:      0,
		ID:         0x1f06,
		VendorID:   device.VendorNVIDIA,
		APIVersion: 1 << 22,
		Name:       "Fake Adapter",
		Type:       device.AdapterDiscrete,
		Extensions: []string{"VK_KHR_swapchain"},
		Memory:     2 << 30,
		Heaps:      []uint64{1 << 30, 1 << 30},
		Limits: device.Limits{
			MinUniformBufferOffsetAlignment: 256,
			MaxSamplerAnisotropy:            16,
			MaxImageDimension2D:             16384,
		},
	}
}

// DefaultMemoryTypes is a device-local type followed by a host-visible one.
func DefaultMemoryTypes() []device.MemoryType {
	return []device.MemoryType{
		{Properties: device.MemoryDeviceLocal, Heap: 0},
		{Properties: device.MemoryHostVisible | device.MemoryHostCoherent, Heap: 1},
	}
}

// Instance is a fake device.Instance.
type Instance struct {
	AdapterList []device.AdapterInfo
	Drivers     []*Driver
	Destroyed   bool
}

// NewInstance returns an instance with a single DefaultAdapter.
func NewInstance() *Instance {
	return &Instance{
		AdapterList: []device.AdapterInfo{DefaultAdapter()},
	}
}

// Adapters implements interface
func (i *Instance) Adapters() []device.AdapterInfo {
	return i.AdapterList
}

// Open implements interface
func (i *Instance) Open(adapter int, cfg device.DriverConfiguration) (device.Driver, error) {
	if adapter < 0 || adapter >= len(i.AdapterList) {
		return nil, fmt.Errorf("%w: %d of %d", core.ErrInvalidAdapter, adapter, len(i.AdapterList))
	}
	drv := NewDriver(i.AdapterList[adapter])
	i.Drivers = append(i.Drivers, drv)
	return drv, nil
}

// Destroy implements interface
func (i *Instance) Destroy() {
	i.Destroyed = true
}

// Command is one recorded command buffer entry.
type Command struct {
	Op          string
	Pipeline    device.Pipeline
	Layout      device.PipelineLayout
	Buffer      device.Buffer
	IndexType   device.IndexType
	Set         device.DescriptorSet
	RenderPass  device.RenderPass
	Framebuffer device.Framebuffer
	Extent      device.Extent
	Clear       device.ClearValues
	Viewport    device.Viewport
	Scissor     device.Rect
	Count       uint32
	First       uint32
	Barrier     device.ImageBarrier
	Src, Dst    device.Handle
	Size        uint64
}

// CommandBuffer is the recorded state of a fake command buffer.
type CommandBuffer struct {
	Pool      device.CommandPool
	Recording bool
	OneTime   bool
	Commands  []Command
	Submitted int
}

// Draws returns the draw commands of the buffer.
func (c *CommandBuffer) Draws() []Command {
	var draws []Command
	for _, cmd := range c.Commands {
		if cmd.Op == "Draw" || cmd.Op == "DrawIndexed" {
			draws = append(draws, cmd)
		}
	}
	return draws
}

// Find returns the first command with the given op.
func (c *CommandBuffer) Find(op string) (Command, bool) {
	for _, cmd := range c.Commands {
		if cmd.Op == op {
			return cmd, true
		}
	}
	return Command{}, false
}

type memory struct {
	data      []byte
	typeIndex uint32
	mapped    bool
}

type buffer struct {
	size   uint64
	usage  device.BufferUsage
	memory device.Memory
}

type image struct {
	info   device.ImageInfo
	memory device.Memory
	layout device.ImageLayout
	data   []byte
}

type swapchain struct {
	info   device.SwapchainInfo
	images []device.Image
	next   uint32
}

// Present is one recorded presentation.
type Present struct {
	Swapchain device.Swapchain
	Index     uint32
	Wait      device.Semaphore
}

// Driver is a fake device.Driver. Submitted work completes immediately.
type Driver struct {
	Info  device.AdapterInfo
	Types []device.MemoryType

	// TypeBits is the memory type mask reported for every buffer and image.
	TypeBits uint32

	// DepthFormats lists the formats usable as depth attachments.
	DepthFormats map[device.Format]bool

	Capabilities device.SurfaceCapabilities
	Formats      []device.SurfaceFormat
	Modes        []device.PresentMode

	// AcquireResults are returned, one per call, by AcquireNextImage
	// before it falls back to round robin success.
	AcquireResults []error

	// FailAllocation makes AllocateMemory fail.
	FailAllocation bool

	Submits  []device.SubmitInfo
	Presents []Present
	Idle     int

	Pipelines    map[device.Pipeline]device.PipelineInfo
	Layouts      map[device.DescriptorSetLayout][]device.LayoutBinding
	Writes       map[device.DescriptorSet][]device.DescriptorWrite
	Samplers     map[device.Sampler]device.SamplerInfo
	Modules      map[device.ShaderModule][]byte
	Framebuffers map[device.Framebuffer]device.Extent

	next     device.Handle
	live     map[device.Handle]string
	created  map[string]int
	buffers  map[device.Buffer]*buffer
	memories map[device.Memory]*memory
	images   map[device.Image]*image
	cbs      map[device.CommandBuffer]*CommandBuffer
	fences   map[device.Fence]bool
	chains   map[device.Swapchain]*swapchain
	views    map[device.ImageView]device.Image

	destroyed bool
}

// NewDriver returns a driver for info with DefaultMemoryTypes.
func NewDriver(info device.AdapterInfo) *Driver {
	return &Driver{
		Info:     info,
		Types:    DefaultMemoryTypes(),
		TypeBits: 0x3,
		DepthFormats: map[device.Format]bool{
			device.FormatD32Sfloat: true,
		},
		Capabilities: device.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  3,
			CurrentExtent:  device.Extent{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF},
			MinExtent:      device.Extent{Width: 1, Height: 1},
			MaxExtent:      device.Extent{Width: 16384, Height: 16384},
			CompositeAlpha: device.CompositeOpaque | device.CompositePreMultiplied,
		},
		Formats: []device.SurfaceFormat{
			{Format: device.FormatR8G8B8A8Unorm},
			{Format: device.FormatB8G8R8A8Unorm},
		},
		Modes:        []device.PresentMode{device.PresentFIFO, device.PresentMailbox},
		Pipelines:    make(map[device.Pipeline]device.PipelineInfo),
		Layouts:      make(map[device.DescriptorSetLayout][]device.LayoutBinding),
		Writes:       make(map[device.DescriptorSet][]device.DescriptorWrite),
		Samplers:     make(map[device.Sampler]device.SamplerInfo),
		Modules:      make(map[device.ShaderModule][]byte),
		Framebuffers: make(map[device.Framebuffer]device.Extent),
		live:         make(map[device.Handle]string),
		created:      make(map[string]int),
		buffers:      make(map[device.Buffer]*buffer),
		memories:     make(map[device.Memory]*memory),
		images:       make(map[device.Image]*image),
		cbs:          make(map[device.CommandBuffer]*CommandBuffer),
		fences:       make(map[device.Fence]bool),
		chains:       make(map[device.Swapchain]*swapchain),
		views:        make(map[device.ImageView]device.Image),
	}
}

func (d *Driver) alloc(kind string) device.Handle {
	d.next++
	d.live[d.next] = kind
	d.created[kind]++
	return d.next
}

func (d *Driver) free(h device.Handle) {
	delete(d.live, h)
}

// Live counts the live objects of a kind, e.g. "buffer" or "framebuffer".
func (d *Driver) Live(kind string) int {
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// Created counts every object of a kind ever created.
func (d *Driver) Created(kind string) int {
	return d.created[kind]
}

// IsLive reports whether a handle has not been destroyed.
func (d *Driver) IsLive(h device.Handle) bool {
	_, ok := d.live[h]
	return ok
}

// Destroyed reports whether Destroy was called.
func (d *Driver) Destroyed() bool {
	return d.destroyed
}

// BufferData returns the contents of the memory bound to a buffer,
// regardless of the memory type.
func (d *Driver) BufferData(b device.Buffer) []byte {
	buf, ok := d.buffers[b]
	if !ok {
		return nil
	}
	mem, ok := d.memories[buf.memory]
	if !ok {
		return nil
	}
	return mem.data[:buf.size]
}

// ImageData returns the texel contents of an image.
func (d *Driver) ImageData(i device.Image) []byte {
	if img, ok := d.images[i]; ok {
		return img.data
	}
	return nil
}

// ImageLayout returns the current layout of an image.
func (d *Driver) ImageLayout(i device.Image) device.ImageLayout {
	if img, ok := d.images[i]; ok {
		return img.layout
	}
	return device.LayoutUndefined
}

// Image returns the image behind a view.
func (d *Driver) Image(v device.ImageView) device.Image {
	return d.views[v]
}

// CommandBuffer returns the recorded state of a command buffer.
func (d *Driver) CommandBuffer(cb device.CommandBuffer) *CommandBuffer {
	return d.cbs[cb]
}

// Adapter implements interface
func (d *Driver) Adapter() device.AdapterInfo {
	return d.Info
}

// MemoryTypes implements interface
func (d *Driver) MemoryTypes() []device.MemoryType {
	return d.Types
}

// WaitIdle implements interface
func (d *Driver) WaitIdle() error {
	d.Idle++
	return nil
}

// Destroy implements interface
func (d *Driver) Destroy() {
	d.destroyed = true
}

// CreateBuffer implements interface
func (d *Driver) CreateBuffer(size uint64, usage device.BufferUsage) (device.Buffer, device.MemoryRequirements, error) {
	if size == 0 {
		return 0, device.MemoryRequirements{}, errors.New("vk.CreateBuffer(): zero sized buffer")
	}
	h := device.Buffer(d.alloc("buffer"))
	d.buffers[h] = &buffer{size: size, usage: usage}
	return h, device.MemoryRequirements{Size: size, Alignment: 16, TypeBits: d.TypeBits}, nil
}

// DestroyBuffer implements interface
func (d *Driver) DestroyBuffer(b device.Buffer) {
	delete(d.buffers, b)
	d.free(device.Handle(b))
}

// AllocateMemory implements interface
func (d *Driver) AllocateMemory(size uint64, typeIndex uint32) (device.Memory, error) {
	if d.FailAllocation {
		return 0, errors.New("vk.AllocateMemory(): ErrorOutOfDeviceMemory")
	}
	if int(typeIndex) >= len(d.Types) {
		return 0, fmt.Errorf("vk.AllocateMemory(): memory type %d out of range", typeIndex)
	}
	h := device.Memory(d.alloc("memory"))
	d.memories[h] = &memory{data: make([]byte, size), typeIndex: typeIndex}
	return h, nil
}

// FreeMemory implements interface
func (d *Driver) FreeMemory(m device.Memory) {
	delete(d.memories, m)
	d.free(device.Handle(m))
}

// BindBufferMemory implements interface
func (d *Driver) BindBufferMemory(b device.Buffer, m device.Memory) error {
	buf, ok := d.buffers[b]
	if !ok {
		return errors.New("vk.BindBufferMemory(): unknown buffer")
	}
	mem, ok := d.memories[m]
	if !ok || uint64(len(mem.data)) < buf.size {
		return errors.New("vk.BindBufferMemory(): memory too small")
	}
	buf.memory = m
	return nil
}

// MapMemory implements interface
func (d *Driver) MapMemory(m device.Memory, size uint64) ([]byte, error) {
	mem, ok := d.memories[m]
	if !ok {
		return nil, errors.New("vk.MapMemory(): unknown memory")
	}
	if d.Types[mem.typeIndex].Properties&device.MemoryHostVisible == 0 {
		return nil, errors.New("vk.MapMemory(): memory is not host visible")
	}
	if mem.mapped {
		return nil, errors.New("vk.MapMemory(): memory already mapped")
	}
	mem.mapped = true
	return mem.data[:size], nil
}

// UnmapMemory implements interface
func (d *Driver) UnmapMemory(m device.Memory) {
	if mem, ok := d.memories[m]; ok {
		mem.mapped = false
	}
}

// Mapped reports whether a memory object is currently mapped.
func (d *Driver) Mapped(m device.Memory) bool {
	mem, ok := d.memories[m]
	return ok && mem.mapped
}

func bytesPerTexel(f device.Format) int {
	switch f {
	case device.FormatR8Unorm, device.FormatS8Uint:
		return 1
	case device.FormatR8G8Unorm, device.FormatR16Unorm, device.FormatR16Sfloat, device.FormatD16Unorm:
		return 2
	case device.FormatR16G16B16A16Unorm, device.FormatR16G16B16A16Sfloat, device.FormatR32G32Sfloat,
		device.FormatD32SfloatS8Uint:
		return 8
	case device.FormatR32G32B32Sfloat:
		return 12
	case device.FormatR32G32B32A32Sfloat:
		return 16
	}
	return 4
}

// CreateImage implements interface
func (d *Driver) CreateImage(info device.ImageInfo) (device.Image, device.MemoryRequirements, error) {
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return 0, device.MemoryRequirements{}, errors.New("vk.CreateImage(): zero sized image")
	}
	h := device.Image(d.alloc("image"))
	size := uint64(info.Extent.Width) * uint64(info.Extent.Height) * uint64(bytesPerTexel(info.Format))
	d.images[h] = &image{info: info, data: make([]byte, size)}
	return h, device.MemoryRequirements{Size: size, Alignment: 256, TypeBits: d.TypeBits}, nil
}

// DestroyImage implements interface
func (d *Driver) DestroyImage(i device.Image) {
	delete(d.images, i)
	d.free(device.Handle(i))
}

// BindImageMemory implements interface
func (d *Driver) BindImageMemory(i device.Image, m device.Memory) error {
	img, ok := d.images[i]
	if !ok {
		return errors.New("vk.BindImageMemory(): unknown image")
	}
	if _, ok := d.memories[m]; !ok {
		return errors.New("vk.BindImageMemory(): unknown memory")
	}
	img.memory = m
	return nil
}

// CreateImageView implements interface
func (d *Driver) CreateImageView(i device.Image, format device.Format, aspect device.ImageAspect) (device.ImageView, error) {
	if _, ok := d.images[i]; !ok {
		return 0, errors.New("vk.CreateImageView(): unknown image")
	}
	h := device.ImageView(d.alloc("view"))
	d.views[h] = i
	return h, nil
}

// DestroyImageView implements interface
func (d *Driver) DestroyImageView(v device.ImageView) {
	delete(d.views, v)
	d.free(device.Handle(v))
}

// CreateSampler implements interface
func (d *Driver) CreateSampler(info device.SamplerInfo) (device.Sampler, error) {
	h := device.Sampler(d.alloc("sampler"))
	d.Samplers[h] = info
	return h, nil
}

// DestroySampler implements interface
func (d *Driver) DestroySampler(s device.Sampler) {
	delete(d.Samplers, s)
	d.free(device.Handle(s))
}

// FormatSupportsDepth implements interface
func (d *Driver) FormatSupportsDepth(f device.Format) bool {
	return d.DepthFormats[f]
}

// CreateShaderModule implements interface
func (d *Driver) CreateShaderModule(code []byte) (device.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return 0, errors.New("vk.CreateShaderModule(): code size is not a multiple of 4")
	}
	h := device.ShaderModule(d.alloc("module"))
	d.Modules[h] = append([]byte(nil), code...)
	return h, nil
}

// DestroyShaderModule implements interface
func (d *Driver) DestroyShaderModule(m device.ShaderModule) {
	delete(d.Modules, m)
	d.free(device.Handle(m))
}

// CreateDescriptorSetLayout implements interface
func (d *Driver) CreateDescriptorSetLayout(bindings []device.LayoutBinding) (device.DescriptorSetLayout, error) {
	h := device.DescriptorSetLayout(d.alloc("descriptor-set-layout"))
	d.Layouts[h] = append([]device.LayoutBinding(nil), bindings...)
	return h, nil
}

// DestroyDescriptorSetLayout implements interface
func (d *Driver) DestroyDescriptorSetLayout(l device.DescriptorSetLayout) {
	delete(d.Layouts, l)
	d.free(device.Handle(l))
}

// CreatePipelineLayout implements interface
func (d *Driver) CreatePipelineLayout(l device.DescriptorSetLayout) (device.PipelineLayout, error) {
	if !d.IsLive(device.Handle(l)) {
		return 0, errors.New("vk.CreatePipelineLayout(): invalid descriptor set layout")
	}
	return device.PipelineLayout(d.alloc("pipeline-layout")), nil
}

// DestroyPipelineLayout implements interface
func (d *Driver) DestroyPipelineLayout(l device.PipelineLayout) {
	d.free(device.Handle(l))
}

// CreateGraphicsPipeline implements interface
func (d *Driver) CreateGraphicsPipeline(info device.PipelineInfo) (device.Pipeline, error) {
	if !d.IsLive(device.Handle(info.Layout)) || !d.IsLive(device.Handle(info.RenderPass)) {
		return 0, errors.New("vk.CreateGraphicsPipelines(): invalid layout or render pass")
	}
	h := device.Pipeline(d.alloc("pipeline"))
	d.Pipelines[h] = info
	return h, nil
}

// DestroyPipeline implements interface
func (d *Driver) DestroyPipeline(p device.Pipeline) {
	delete(d.Pipelines, p)
	d.free(device.Handle(p))
}

// AllocateDescriptorSets implements interface
func (d *Driver) AllocateDescriptorSets(l device.DescriptorSetLayout, count int) ([]device.DescriptorSet, error) {
	if !d.IsLive(device.Handle(l)) {
		return nil, errors.New("vk.AllocateDescriptorSets(): invalid layout")
	}
	sets := make([]device.DescriptorSet, count)
	for i := range sets {
		sets[i] = device.DescriptorSet(d.alloc("descriptor-set"))
	}
	return sets, nil
}

// FreeDescriptorSets implements interface
func (d *Driver) FreeDescriptorSets(sets []device.DescriptorSet) {
	for _, s := range sets {
		delete(d.Writes, s)
		d.free(device.Handle(s))
	}
}

// UpdateDescriptorSet implements interface
func (d *Driver) UpdateDescriptorSet(s device.DescriptorSet, writes []device.DescriptorWrite) {
	d.Writes[s] = append([]device.DescriptorWrite(nil), writes...)
}

// CreateRenderPass implements interface
func (d *Driver) CreateRenderPass(color, depth device.Format) (device.RenderPass, error) {
	return device.RenderPass(d.alloc("render-pass")), nil
}

// DestroyRenderPass implements interface
func (d *Driver) DestroyRenderPass(rp device.RenderPass) {
	d.free(device.Handle(rp))
}

// CreateFramebuffer implements interface
func (d *Driver) CreateFramebuffer(rp device.RenderPass, views []device.ImageView, extent device.Extent) (device.Framebuffer, error) {
	if !d.IsLive(device.Handle(rp)) {
		return 0, errors.New("vk.CreateFramebuffer(): invalid render pass")
	}
	h := device.Framebuffer(d.alloc("framebuffer"))
	d.Framebuffers[h] = extent
	return h, nil
}

// DestroyFramebuffer implements interface
func (d *Driver) DestroyFramebuffer(fb device.Framebuffer) {
	delete(d.Framebuffers, fb)
	d.free(device.Handle(fb))
}

// ImportSurface implements interface
func (d *Driver) ImportSurface(native uintptr) (device.Surface, error) {
	if native == 0 {
		return 0, errors.New("vk.GetPhysicalDeviceSurfaceSupport(): null surface")
	}
	return device.Surface(d.alloc("surface")), nil
}

// DestroySurface implements interface
func (d *Driver) DestroySurface(s device.Surface) {
	d.free(device.Handle(s))
}

// SurfaceCapabilities implements interface
func (d *Driver) SurfaceCapabilities(device.Surface) (device.SurfaceCapabilities, error) {
	return d.Capabilities, nil
}

// SurfaceFormats implements interface
func (d *Driver) SurfaceFormats(device.Surface) ([]device.SurfaceFormat, error) {
	return d.Formats, nil
}

// PresentModes implements interface
func (d *Driver) PresentModes(device.Surface) ([]device.PresentMode, error) {
	return d.Modes, nil
}

// CreateSwapchain implements interface
func (d *Driver) CreateSwapchain(info device.SwapchainInfo) (device.Swapchain, []device.Image, error) {
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return 0, nil, errors.New("vk.CreateSwapchain(): zero extent")
	}
	h := device.Swapchain(d.alloc("swapchain"))
	sc := &swapchain{info: info}
	for i := uint32(0); i < info.MinImageCount; i++ {
		img := device.Image(d.alloc("swapchain-image"))
		size := uint64(info.Extent.Width) * uint64(info.Extent.Height) * 4
		d.images[img] = &image{
			info: device.ImageInfo{Format: info.Format.Format, Extent: info.Extent, MipLevels: 1},
			data: make([]byte, size),
		}
		sc.images = append(sc.images, img)
	}
	d.chains[h] = sc
	return h, sc.images, nil
}

// DestroySwapchain implements interface
func (d *Driver) DestroySwapchain(s device.Swapchain) {
	if sc, ok := d.chains[s]; ok {
		for _, img := range sc.images {
			delete(d.images, img)
			d.free(device.Handle(img))
		}
	}
	delete(d.chains, s)
	d.free(device.Handle(s))
}

// SwapchainInfo returns the creation info of a live swapchain.
func (d *Driver) SwapchainInfo(s device.Swapchain) (device.SwapchainInfo, bool) {
	sc, ok := d.chains[s]
	if !ok {
		return device.SwapchainInfo{}, false
	}
	return sc.info, true
}

// AcquireNextImage implements interface
func (d *Driver) AcquireNextImage(s device.Swapchain, timeout uint64, signal device.Semaphore) (uint32, error) {
	sc, ok := d.chains[s]
	if !ok {
		return 0, errors.New("vk.AcquireNextImage(): unknown swapchain")
	}
	index := sc.next
	if len(d.AcquireResults) > 0 {
		err := d.AcquireResults[0]
		d.AcquireResults = d.AcquireResults[1:]
		if err != nil && !errors.Is(err, device.ErrSuboptimal) {
			return index, err
		}
		sc.next = (sc.next + 1) % uint32(len(sc.images))
		return index, err
	}
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	return index, nil
}

// QueuePresent implements interface. The presented image is left in the
// present-src layout the render pass ends in.
func (d *Driver) QueuePresent(s device.Swapchain, index uint32, wait device.Semaphore) error {
	sc, ok := d.chains[s]
	if !ok {
		return errors.New("vk.QueuePresent(): unknown swapchain")
	}
	if int(index) < len(sc.images) {
		d.images[sc.images[index]].layout = device.LayoutPresentSrc
	}
	d.Presents = append(d.Presents, Present{Swapchain: s, Index: index, Wait: wait})
	return nil
}

// CreateCommandPool implements interface
func (d *Driver) CreateCommandPool(resettable bool) (device.CommandPool, error) {
	return device.CommandPool(d.alloc("command-pool")), nil
}

// DestroyCommandPool implements interface
func (d *Driver) DestroyCommandPool(p device.CommandPool) {
	for h, cb := range d.cbs {
		if cb.Pool == p {
			delete(d.cbs, h)
			d.free(device.Handle(h))
		}
	}
	d.free(device.Handle(p))
}

// ResetCommandPool implements interface
func (d *Driver) ResetCommandPool(p device.CommandPool) error {
	for _, cb := range d.cbs {
		if cb.Pool == p {
			cb.Commands = nil
			cb.Recording = false
		}
	}
	return nil
}

// AllocateCommandBuffers implements interface
func (d *Driver) AllocateCommandBuffers(p device.CommandPool, count int) ([]device.CommandBuffer, error) {
	if !d.IsLive(device.Handle(p)) {
		return nil, errors.New("vk.AllocateCommandBuffers(): invalid pool")
	}
	cbs := make([]device.CommandBuffer, count)
	for i := range cbs {
		cbs[i] = device.CommandBuffer(d.alloc("command-buffer"))
		d.cbs[cbs[i]] = &CommandBuffer{Pool: p}
	}
	return cbs, nil
}

// FreeCommandBuffers implements interface
func (d *Driver) FreeCommandBuffers(p device.CommandPool, cbs []device.CommandBuffer) {
	for _, cb := range cbs {
		delete(d.cbs, cb)
		d.free(device.Handle(cb))
	}
}

// BeginCommandBuffer implements interface
func (d *Driver) BeginCommandBuffer(cb device.CommandBuffer, oneTime bool) error {
	buf, ok := d.cbs[cb]
	if !ok {
		return errors.New("vk.BeginCommandBuffer(): unknown command buffer")
	}
	buf.Commands = nil
	buf.Recording = true
	buf.OneTime = oneTime
	return nil
}

// EndCommandBuffer implements interface
func (d *Driver) EndCommandBuffer(cb device.CommandBuffer) error {
	buf, ok := d.cbs[cb]
	if !ok || !buf.Recording {
		return errors.New("vk.EndCommandBuffer(): command buffer is not recording")
	}
	buf.Recording = false
	return nil
}

// ResetCommandBuffer implements interface
func (d *Driver) ResetCommandBuffer(cb device.CommandBuffer) error {
	buf, ok := d.cbs[cb]
	if !ok {
		return errors.New("vk.ResetCommandBuffer(): unknown command buffer")
	}
	buf.Commands = nil
	buf.Recording = false
	return nil
}

func (d *Driver) record(cb device.CommandBuffer, cmd Command) {
	if buf, ok := d.cbs[cb]; ok && buf.Recording {
		buf.Commands = append(buf.Commands, cmd)
	}
}

// CmdBeginRenderPass implements interface
func (d *Driver) CmdBeginRenderPass(cb device.CommandBuffer, rp device.RenderPass, fb device.Framebuffer, extent device.Extent, clear device.ClearValues) {
	d.record(cb, Command{Op: "BeginRenderPass", RenderPass: rp, Framebuffer: fb, Extent: extent, Clear: clear})
}

// CmdEndRenderPass implements interface
func (d *Driver) CmdEndRenderPass(cb device.CommandBuffer) {
	d.record(cb, Command{Op: "EndRenderPass"})
}

// CmdSetViewport implements interface
func (d *Driver) CmdSetViewport(cb device.CommandBuffer, vp device.Viewport) {
	d.record(cb, Command{Op: "SetViewport", Viewport: vp})
}

// CmdSetScissor implements interface
func (d *Driver) CmdSetScissor(cb device.CommandBuffer, r device.Rect) {
	d.record(cb, Command{Op: "SetScissor", Scissor: r})
}

// CmdBindPipeline implements interface
func (d *Driver) CmdBindPipeline(cb device.CommandBuffer, p device.Pipeline) {
	d.record(cb, Command{Op: "BindPipeline", Pipeline: p})
}

// CmdBindVertexBuffer implements interface
func (d *Driver) CmdBindVertexBuffer(cb device.CommandBuffer, b device.Buffer) {
	d.record(cb, Command{Op: "BindVertexBuffer", Buffer: b})
}

// CmdBindIndexBuffer implements interface
func (d *Driver) CmdBindIndexBuffer(cb device.CommandBuffer, b device.Buffer, t device.IndexType) {
	d.record(cb, Command{Op: "BindIndexBuffer", Buffer: b, IndexType: t})
}

// CmdBindDescriptorSet implements interface
func (d *Driver) CmdBindDescriptorSet(cb device.CommandBuffer, l device.PipelineLayout, s device.DescriptorSet) {
	d.record(cb, Command{Op: "BindDescriptorSet", Layout: l, Set: s})
}

// CmdDraw implements interface
func (d *Driver) CmdDraw(cb device.CommandBuffer, vertexCount, firstVertex uint32) {
	d.record(cb, Command{Op: "Draw", Count: vertexCount, First: firstVertex})
}

// CmdDrawIndexed implements interface
func (d *Driver) CmdDrawIndexed(cb device.CommandBuffer, indexCount, firstIndex uint32) {
	d.record(cb, Command{Op: "DrawIndexed", Count: indexCount, First: firstIndex})
}

// CmdCopyBuffer implements interface
func (d *Driver) CmdCopyBuffer(cb device.CommandBuffer, src, dst device.Buffer, size uint64) {
	d.record(cb, Command{Op: "CopyBuffer", Src: device.Handle(src), Dst: device.Handle(dst), Size: size})
}

// CmdCopyBufferToImage implements interface
func (d *Driver) CmdCopyBufferToImage(cb device.CommandBuffer, src device.Buffer, dst device.Image, extent device.Extent, aspect device.ImageAspect) {
	d.record(cb, Command{Op: "CopyBufferToImage", Src: device.Handle(src), Dst: device.Handle(dst), Extent: extent})
}

// CmdCopyImageToBuffer implements interface
func (d *Driver) CmdCopyImageToBuffer(cb device.CommandBuffer, src device.Image, dst device.Buffer, extent device.Extent, aspect device.ImageAspect) {
	d.record(cb, Command{Op: "CopyImageToBuffer", Src: device.Handle(src), Dst: device.Handle(dst), Extent: extent})
}

// CmdCopyImage implements interface
func (d *Driver) CmdCopyImage(cb device.CommandBuffer, src, dst device.Image, extent device.Extent, aspect device.ImageAspect) {
	d.record(cb, Command{Op: "CopyImage", Src: device.Handle(src), Dst: device.Handle(dst), Extent: extent})
}

// CmdPipelineBarrier implements interface
func (d *Driver) CmdPipelineBarrier(cb device.CommandBuffer, b device.ImageBarrier) {
	d.record(cb, Command{Op: "PipelineBarrier", Barrier: b})
}

// CreateFence implements interface
func (d *Driver) CreateFence(signaled bool) (device.Fence, error) {
	h := device.Fence(d.alloc("fence"))
	d.fences[h] = signaled
	return h, nil
}

// DestroyFence implements interface
func (d *Driver) DestroyFence(f device.Fence) {
	delete(d.fences, f)
	d.free(device.Handle(f))
}

// WaitForFence implements interface
func (d *Driver) WaitForFence(f device.Fence, timeout uint64) error {
	signaled, ok := d.fences[f]
	if !ok {
		return errors.New("vk.WaitForFences(): unknown fence")
	}
	if !signaled {
		return device.ErrTimeout
	}
	return nil
}

// ResetFence implements interface
func (d *Driver) ResetFence(f device.Fence) error {
	if _, ok := d.fences[f]; !ok {
		return errors.New("vk.ResetFences(): unknown fence")
	}
	d.fences[f] = false
	return nil
}

// FenceSignaled implements interface
func (d *Driver) FenceSignaled(f device.Fence) (bool, error) {
	signaled, ok := d.fences[f]
	if !ok {
		return false, errors.New("vk.GetFenceStatus(): unknown fence")
	}
	return signaled, nil
}

// SetFence forces the state of a fence.
func (d *Driver) SetFence(f device.Fence, signaled bool) {
	d.fences[f] = signaled
}

// CreateSemaphore implements interface
func (d *Driver) CreateSemaphore() (device.Semaphore, error) {
	return device.Semaphore(d.alloc("semaphore")), nil
}

// DestroySemaphore implements interface
func (d *Driver) DestroySemaphore(s device.Semaphore) {
	d.free(device.Handle(s))
}

// QueueSubmit implements interface. Transfer commands are executed in
// recording order before the fence is signaled.
func (d *Driver) QueueSubmit(info device.SubmitInfo) error {
	buf, ok := d.cbs[info.CommandBuffer]
	if !ok {
		return errors.New("vk.QueueSubmit(): unknown command buffer")
	}
	if buf.Recording {
		return errors.New("vk.QueueSubmit(): command buffer is still recording")
	}
	for _, cmd := range buf.Commands {
		if err := d.execute(cmd); err != nil {
			return err
		}
	}
	buf.Submitted++
	d.Submits = append(d.Submits, info)
	if info.Fence != 0 {
		if _, ok := d.fences[info.Fence]; !ok {
			return errors.New("vk.QueueSubmit(): unknown fence")
		}
		d.fences[info.Fence] = true
	}
	return nil
}

func (d *Driver) execute(cmd Command) error {
	switch cmd.Op {
	case "CopyBuffer":
		src := d.BufferData(device.Buffer(cmd.Src))
		dst := d.BufferData(device.Buffer(cmd.Dst))
		if uint64(len(src)) < cmd.Size || uint64(len(dst)) < cmd.Size {
			return errors.New("vk.CmdCopyBuffer(): region out of range")
		}
		copy(dst[:cmd.Size], src[:cmd.Size])
	case "CopyBufferToImage":
		img, ok := d.images[device.Image(cmd.Dst)]
		if !ok {
			return errors.New("vk.CmdCopyBufferToImage(): unknown image")
		}
		copy(img.data, d.BufferData(device.Buffer(cmd.Src)))
	case "CopyImageToBuffer":
		img, ok := d.images[device.Image(cmd.Src)]
		if !ok {
			return errors.New("vk.CmdCopyImageToBuffer(): unknown image")
		}
		if img.layout != device.LayoutTransferSrc {
			return fmt.Errorf("vk.CmdCopyImageToBuffer(): source image in %s layout", img.layout)
		}
		copy(d.BufferData(device.Buffer(cmd.Dst)), img.data)
	case "CopyImage":
		src, ok := d.images[device.Image(cmd.Src)]
		dst, ok2 := d.images[device.Image(cmd.Dst)]
		if !ok || !ok2 {
			return errors.New("vk.CmdCopyImage(): unknown image")
		}
		if src.layout != device.LayoutTransferSrc || dst.layout != device.LayoutTransferDst {
			return fmt.Errorf("vk.CmdCopyImage(): images in %s and %s layouts", src.layout, dst.layout)
		}
		copy(dst.data, src.data)
	case "PipelineBarrier":
		img, ok := d.images[cmd.Barrier.Image]
		if !ok {
			break
		}
		if cmd.Barrier.Old != device.LayoutUndefined && cmd.Barrier.Old != img.layout {
			return fmt.Errorf("vk.CmdPipelineBarrier(): image in %s layout, barrier expects %s", img.layout, cmd.Barrier.Old)
		}
		img.layout = cmd.Barrier.New
	}
	return nil
}

var _ device.Driver = (*Driver)(nil)
var _ device.Instance = (*Instance)(nil)
