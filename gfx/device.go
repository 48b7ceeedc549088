// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"errors"
	"fmt"
	"io"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/shader"
	log "github.com/sirupsen/logrus"
)

// Options replace the defaults of a new Device. Every field is optional.
type Options struct {
	// Preprocessor reflects shader sources, WGSL by default.
	Preprocessor shader.Preprocessor

	// Compiler compiles translated sources, naga by default.
	Compiler shader.Compiler

	// Store caches bytecode. By default the cache directory and bundle
	// of the shader configuration are used, or memory when neither is set.
	Store shader.Store

	Log *log.Entry
}

// Device is a logical device on one adapter together with every resource
// created on it. A Device is not safe for concurrent use.
type Device struct {
	driver  device.Driver
	adapter device.AdapterInfo
	cfg     core.Configuration
	log     *log.Entry

	allocator    *MemoryAllocator
	instant      *instant
	commandPool  device.CommandPool
	preprocessor shader.Preprocessor
	cache        *shader.Cache
	closers      []io.Closer

	defaultSampler *Sampler

	vertexBuffers   *pool[*VertexBuffer, device.Buffer]
	indexBuffers    *pool[*IndexBuffer, device.Buffer]
	textures        *pool[*Texture, device.Image]
	samplers        *pool[*Sampler, device.Sampler]
	vertexShaders   *pool[*Shader, device.ShaderModule]
	fragmentShaders *pool[*Shader, device.ShaderModule]
	programs        *pool[*Program, programKey]
	renderables     *pool[*Renderable, renderableKey]
	swapchains      *pool[*Swapchain, device.Swapchain]

	frame     frameState
	transform transform
	lastDrawn *Renderable
}

// LogAdapters writes the adapters of inst to logger.
func LogAdapters(inst device.Instance, logger *log.Entry) {
	for _, a := range inst.Adapters() {
		logger.WithFields(log.Fields{
			"index":   a.Index,
			"name":    a.Name,
			"vendor":  a.Vendor(),
			"type":    a.Type,
			"api":     device.VersionString(a.APIVersion),
			"memory":  a.Memory,
			"heaps":   a.Heaps,
			"invalid": a.Invalid,
		}).Info("adapter")
	}
}

// NewDevice opens the configured adapter of inst.
func NewDevice(inst device.Instance, cfg core.Configuration, opts Options) (*Device, error) {
	logger := opts.Log
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	LogAdapters(inst, logger)

	adapters := inst.Adapters()
	index := cfg.Renderer.Adapter
	if index < 0 || index >= len(adapters) {
		return nil, fmt.Errorf("%w: %d of %d", core.ErrInvalidAdapter, index, len(adapters))
	}
	if adapters[index].Invalid {
		return nil, fmt.Errorf("%w: %s lacks required features", core.ErrInvalidAdapter, adapters[index].Name)
	}
	driver, err := inst.Open(index, device.DriverConfiguration{
		Extensions:     cfg.Renderer.DeviceExtensions,
		DescriptorSets: cfg.Renderer.DescriptorSets,
	})
	if err != nil {
		return nil, err
	}

	d := &Device{
		driver:       driver,
		adapter:      driver.Adapter(),
		cfg:          cfg,
		preprocessor: opts.Preprocessor,
		transform:    newTransform(),
	}
	d.frame.clear.Depth = 1
	d.log = logger.WithField("device", d.adapter.Name)
	if d.preprocessor == nil {
		d.preprocessor = shader.WGSL{}
	}
	d.allocator = NewMemoryAllocator(driver)
	d.initPools()

	if err := d.init(opts); err != nil {
		d.Destroy()
		return nil, err
	}
	d.log.WithField("adapter", index).Info("device created")
	return d, nil
}

func (d *Device) init(opts Options) error {
	var err error
	if d.instant, err = newInstant(d.driver, d.cfg.Renderer.FenceTimeout); err != nil {
		return err
	}
	if d.commandPool, err = d.driver.CreateCommandPool(true); err != nil {
		return fmt.Errorf("vk.CreateCommandPool(): %w", err)
	}
	if d.defaultSampler, err = d.CreateSampler(shader.DefaultSamplerInfo()); err != nil {
		return err
	}
	store := opts.Store
	if store == nil {
		if store, err = d.openStore(); err != nil {
			return err
		}
	}
	d.cache = shader.NewCache(store, opts.Compiler, d.log)
	return nil
}

// openStore layers the cache directory over the bundle.
func (d *Device) openStore() (shader.Store, error) {
	var layers shader.Layered
	if dir := d.cfg.Shaders.CacheDir; dir != "" {
		store, err := shader.OpenDirStore(dir)
		if err != nil {
			return nil, err
		}
		layers = append(layers, store)
	}
	if path := d.cfg.Shaders.Bundle; path != "" {
		bundle, err := shader.OpenBundle(path)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, bundle)
		layers = append(layers, bundle)
	}
	if len(layers) == 0 {
		return shader.NewMemoryStore(), nil
	}
	return layers, nil
}

func (d *Device) initPools() {
	d.vertexBuffers = newPool(func(vb *VertexBuffer) device.Buffer { return vb.buffer })
	d.indexBuffers = newPool(func(ib *IndexBuffer) device.Buffer { return ib.buffer })
	d.textures = newPool(func(t *Texture) device.Image { return t.image })
	d.samplers = newPool(func(s *Sampler) device.Sampler { return s.sampler })
	d.vertexShaders = newPool(func(s *Shader) device.ShaderModule { return s.module })
	d.fragmentShaders = newPool(func(s *Shader) device.ShaderModule { return s.module })
	d.programs = newPool((*Program).key)
	d.renderables = newPool((*Renderable).key)
	d.swapchains = newPool(func(sc *Swapchain) device.Swapchain { return sc.swapchain })
}

// Destroy waits for the device to become idle and releases everything
// created on it, then the device itself.
func (d *Device) Destroy() {
	if d.driver == nil {
		return
	}
	if err := d.driver.WaitIdle(); err != nil {
		d.log.WithError(err).Error("vk.DeviceWaitIdle()")
	}
	d.destroyFrames()
	if d.frame.renderPass != 0 {
		d.driver.DestroyRenderPass(d.frame.renderPass)
		d.frame.renderPass = 0
	}
	d.renderables.releaseAll()
	d.programs.releaseAll()
	d.vertexShaders.releaseAll()
	d.fragmentShaders.releaseAll()
	d.vertexBuffers.releaseAll()
	d.indexBuffers.releaseAll()
	d.textures.releaseAll()
	d.samplers.releaseAll()
	d.swapchains.releaseAll()
	if d.defaultSampler != nil {
		d.defaultSampler.Release()
	}
	if d.commandPool != 0 {
		d.driver.DestroyCommandPool(d.commandPool)
	}
	if d.instant != nil {
		d.instant.release()
	}
	for _, c := range d.closers {
		c.Close()
	}
	d.driver.Destroy()
	d.driver = nil
	d.log.Info("device destroyed")
}

// Driver returns the native driver.
func (d *Device) Driver() device.Driver {
	return d.driver
}

// Name returns the adapter name.
func (d *Device) Name() string {
	return d.adapter.Name
}

// AdapterIndex returns the index of the adapter the device was opened on.
func (d *Device) AdapterIndex() int {
	return d.adapter.Index
}

// Adapter returns the adapter properties.
func (d *Device) Adapter() device.AdapterInfo {
	return d.adapter
}

// SwapchainSize returns the extent of the current swapchain, zero when
// there is none.
func (d *Device) SwapchainSize() (width, height uint32) {
	if sc := d.swapchains.current(); sc != nil {
		return sc.extent.Width, sc.extent.Height
	}
	return 0, 0
}

// VertexBuffer returns the current vertex buffer.
func (d *Device) VertexBuffer() *VertexBuffer {
	return d.vertexBuffers.current()
}

// IndexBuffer returns the current index buffer.
func (d *Device) IndexBuffer() *IndexBuffer {
	return d.indexBuffers.current()
}

// VertexShader returns the current vertex shader.
func (d *Device) VertexShader() *Shader {
	return d.vertexShaders.current()
}

// FragmentShader returns the current fragment shader.
func (d *Device) FragmentShader() *Shader {
	return d.fragmentShaders.current()
}

// Program returns the program of the current shader pair.
func (d *Device) Program() *Program {
	return d.programs.current()
}

// Renderable returns the current renderable.
func (d *Device) Renderable() *Renderable {
	return d.renderables.current()
}

// Swapchain returns the current swapchain.
func (d *Device) Swapchain() *Swapchain {
	return d.swapchains.current()
}

// SubmitVertexBuffer tracks vb and returns the tracked buffer with the
// same native handle. Like every submit it collects afterwards.
func (d *Device) SubmitVertexBuffer(vb *VertexBuffer) *VertexBuffer {
	defer d.collect()
	return d.vertexBuffers.submit(vb)
}

// SubmitIndexBuffer tracks ib like SubmitVertexBuffer.
func (d *Device) SubmitIndexBuffer(ib *IndexBuffer) *IndexBuffer {
	defer d.collect()
	return d.indexBuffers.submit(ib)
}

// SubmitTexture tracks t.
func (d *Device) SubmitTexture(t *Texture) *Texture {
	defer d.collect()
	return d.textures.submit(t)
}

// SubmitSampler tracks s.
func (d *Device) SubmitSampler(s *Sampler) *Sampler {
	defer d.collect()
	return d.samplers.submit(s)
}

// SubmitShader tracks s in the pool of its stage.
func (d *Device) SubmitShader(s *Shader) (*Shader, error) {
	defer d.collect()
	switch s.Type() {
	case core.VertexShaderType:
		return d.vertexShaders.submit(s), nil
	case core.FragmentShaderType:
		return d.fragmentShaders.submit(s), nil
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnknownShaderStage, s.Type())
}

// SubmitSwapchain tracks sc. The first swapchain creates the render pass
// and frame resources, it is the one presented to.
func (d *Device) SubmitSwapchain(sc *Swapchain) (*Swapchain, error) {
	defer d.collect()
	tracked := d.swapchains.submit(sc)
	if d.swapchains.len() == 1 && d.frame.framebuffers == nil {
		if err := d.buildFrames(tracked); err != nil {
			return nil, err
		}
	}
	return tracked, nil
}

// LoadVertexBuffer selects vb, nil clears the selection.
func (d *Device) LoadVertexBuffer(vb *VertexBuffer) error {
	d.vertexBuffers.set(vb)
	return d.selectionChanged()
}

// LoadIndexBuffer selects ib, nil draws unindexed.
func (d *Device) LoadIndexBuffer(ib *IndexBuffer) error {
	d.indexBuffers.set(ib)
	return d.selectionChanged()
}

// LoadVertexShader selects a vertex shader.
func (d *Device) LoadVertexShader(s *Shader) error {
	if s != nil && s.Type() != core.VertexShaderType {
		return fmt.Errorf("%w: %s loaded as vertex shader", core.ErrUnknownShaderStage, s.Type())
	}
	d.vertexShaders.set(s)
	return d.selectionChanged()
}

// LoadFragmentShader selects a fragment shader.
func (d *Device) LoadFragmentShader(s *Shader) error {
	if s != nil && s.Type() != core.FragmentShaderType {
		return fmt.Errorf("%w: %s loaded as fragment shader", core.ErrUnknownShaderStage, s.Type())
	}
	d.fragmentShaders.set(s)
	return d.selectionChanged()
}

// LoadSwapchain selects the swapchain size queries refer to.
func (d *Device) LoadSwapchain(sc *Swapchain) error {
	if sc == nil {
		d.swapchains.set(nil)
		return nil
	}
	_, err := d.SubmitSwapchain(sc)
	return err
}

// LoadTexture binds t to the unit-th texture of the current fragment
// shader, nil unbinds it.
func (d *Device) LoadTexture(t *Texture, unit int) error {
	param, err := d.textureUnit(unit)
	if err != nil {
		return err
	}
	if t != nil {
		t = d.textures.submit(t)
	}
	return param.SetTexture(t)
}

// LoadSampler samples the unit-th texture of the current fragment shader
// with s, nil restores the default.
func (d *Device) LoadSampler(s *Sampler, unit int) error {
	param, err := d.textureUnit(unit)
	if err != nil {
		return err
	}
	if s != nil {
		s = d.samplers.submit(s)
	}
	return param.SetSampler(s)
}

func (d *Device) textureUnit(unit int) (*Parameter, error) {
	fs := d.fragmentShaders.current()
	if fs == nil {
		return nil, errors.New("no fragment shader loaded")
	}
	param := fs.textureParam(unit)
	if param == nil {
		return nil, fmt.Errorf("%w: texture unit %d of %s", core.ErrMissingParameter, unit, fs.file)
	}
	return param, nil
}

// selectionChanged resolves the program and renderable of the current
// selection, then collects.
func (d *Device) selectionChanged() error {
	err := d.resolve()
	d.collect()
	return err
}

// resolveProgram promotes the current shader pair into a program.
func (d *Device) resolveProgram() (*Program, error) {
	vs, fs := d.vertexShaders.current(), d.fragmentShaders.current()
	if vs == nil || fs == nil {
		d.programs.set(nil)
		return nil, nil
	}
	if p, ok := d.programs.find(programKey{vs.module, fs.module}); ok {
		if p.layout == 0 {
			if err := p.buildLayouts(); err != nil {
				return nil, err
			}
		}
		return d.programs.submit(p), nil
	}
	p, err := d.createProgram(vs, fs)
	if err != nil {
		return nil, err
	}
	return d.programs.submit(p), nil
}

// resolve selects the renderable of the current vertex buffer, index
// buffer and program, creating it when needed.
func (d *Device) resolve() error {
	program, err := d.resolveProgram()
	vb := d.vertexBuffers.current()
	if err != nil || vb == nil || program == nil {
		d.renderables.set(nil)
		return err
	}
	ib := d.indexBuffers.current()
	if r, ok := d.renderables.find(renderableKey{vb.buffer, indexHandle(ib)}); ok {
		if r.program != program {
			r.rebind(program)
			d.invalidateFrames()
		}
		d.renderables.submit(r)
		return nil
	}
	d.renderables.submit(newRenderable(d, vb, ib, program))
	return nil
}

// DestroyVertexBuffer releases vb once nothing draws it.
func (d *Device) DestroyVertexBuffer(vb *VertexBuffer) {
	if !d.vertexBuffers.contains(vb) {
		vb.Release()
		return
	}
	vb.marked = true
	d.collect()
}

// DestroyIndexBuffer releases ib once nothing draws it.
func (d *Device) DestroyIndexBuffer(ib *IndexBuffer) {
	if !d.indexBuffers.contains(ib) {
		ib.Release()
		return
	}
	ib.marked = true
	d.collect()
}

// DestroyShader releases s together with every program using it.
func (d *Device) DestroyShader(s *Shader) {
	if !d.vertexShaders.contains(s) && !d.fragmentShaders.contains(s) {
		s.Release()
		return
	}
	s.marked = true
	d.collect()
}

// DestroyTexture releases t and unbinds it from every shader.
func (d *Device) DestroyTexture(t *Texture) {
	if !d.textures.contains(t) {
		t.Release()
		return
	}
	t.marked = true
	d.collect()
}

// DestroySampler releases s and unbinds it from every texture and shader.
func (d *Device) DestroySampler(s *Sampler) {
	if !d.samplers.contains(s) {
		s.Release()
		return
	}
	s.marked = true
	d.collect()
}

// DestroySwapchain releases sc. Destroying the presented swapchain moves
// presentation to the next one.
func (d *Device) DestroySwapchain(sc *Swapchain) {
	if !d.swapchains.contains(sc) {
		sc.Release()
		return
	}
	sc.marked = true
	d.collect()
}

// invalidateFrames forces the next draw to prepare the current renderable
// again and every image to be recorded again.
func (d *Device) invalidateFrames() {
	d.lastDrawn = nil
	for i := range d.frame.dirty {
		d.frame.dirty[i] = true
	}
}
