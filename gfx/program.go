// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/shader"
)

type programKey struct {
	vertex, fragment device.ShaderModule
}

type pipelineKey struct {
	format   string
	topology device.Topology
}

// Program pairs a vertex and a fragment shader. It owns the descriptor
// set layout, the pipeline layout and one pipeline per vertex format and
// topology it was drawn with.
type Program struct {
	device   *Device
	vertex   *Shader
	fragment *Shader

	setLayout device.DescriptorSetLayout
	layout    device.PipelineLayout
	pipelines map[pipelineKey]device.Pipeline
	marked    bool
}

func (d *Device) createProgram(vs, fs *Shader) (*Program, error) {
	p := &Program{
		device:    d,
		vertex:    vs,
		fragment:  fs,
		pipelines: make(map[pipelineKey]device.Pipeline),
	}
	if err := p.buildLayouts(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Program) key() programKey {
	return programKey{p.vertex.module, p.fragment.module}
}

func (p *Program) buildLayouts() error {
	driver := p.device.driver
	var bindings []device.LayoutBinding
	for _, s := range p.stages() {
		stage := device.StageVertex
		if s.Type() == core.FragmentShaderType {
			stage = device.StageFragment
		}
		for _, b := range s.stage.Bindings {
			t := device.DescriptorCombinedImageSampler
			if b.Kind == shader.BindingUniformBuffer {
				t = device.DescriptorUniformBuffer
			}
			bindings = append(bindings, device.LayoutBinding{Binding: b.Index, Type: t, Stages: stage})
		}
	}
	setLayout, err := driver.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return fmt.Errorf("vk.CreateDescriptorSetLayout(): %w", err)
	}
	layout, err := driver.CreatePipelineLayout(setLayout)
	if err != nil {
		driver.DestroyDescriptorSetLayout(setLayout)
		return fmt.Errorf("vk.CreatePipelineLayout(): %w", err)
	}
	p.setLayout, p.layout = setLayout, layout
	return nil
}

func (p *Program) stages() []*Shader {
	return []*Shader{p.vertex, p.fragment}
}

// pipeline returns the pipeline for records of format drawn as topology,
// building it on first use. It returns a null pipeline while no render
// pass exists.
func (p *Program) pipeline(format shader.VertexFormat, topology device.Topology) (device.Pipeline, error) {
	rp := p.device.frame.renderPass
	if rp == 0 {
		return 0, nil
	}
	if p.layout == 0 {
		if err := p.buildLayouts(); err != nil {
			return 0, err
		}
	}
	key := pipelineKey{format.String(), topology}
	if pl, ok := p.pipelines[key]; ok {
		return pl, nil
	}
	attrs, stride, err := shader.MapAttributes(p.vertex.stage.Inputs, format)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", p.vertex.file, err)
	}
	pl, err := p.device.driver.CreateGraphicsPipeline(device.PipelineInfo{
		Layout:         p.layout,
		RenderPass:     rp,
		VertexModule:   p.vertex.module,
		FragmentModule: p.fragment.module,
		VertexEntry:    p.vertex.Entry(),
		FragmentEntry:  p.fragment.Entry(),
		Stride:         stride,
		Attributes:     attrs,
		Topology:       topology,
		Raster: device.RasterState{
			Polygon:   device.PolygonFill,
			Cull:      device.CullNone,
			FrontFace: device.FrontClockwise,
			LineWidth: 1,
		},
		Blend: device.BlendState{
			Enable:   true,
			SrcColor: device.BlendSrcAlpha,
			DstColor: device.BlendOneMinusSrcAlpha,
			ColorOp:  device.BlendOpAdd,
			SrcAlpha: device.BlendOne,
			DstAlpha: device.BlendZero,
			AlphaOp:  device.BlendOpAdd,
		},
		Depth: device.DepthState{
			Test:    true,
			Write:   true,
			Compare: device.CompareLessOrEqual,
		},
		Dynamic: []device.DynamicState{device.DynamicViewport, device.DynamicScissor},
	})
	if err != nil {
		return 0, fmt.Errorf("vk.CreateGraphicsPipelines(): %w", err)
	}
	p.pipelines[key] = pl
	return pl, nil
}

// writes resolves the descriptor writes of both stages. Every texture
// parameter must have a texture.
func (p *Program) writes() ([]device.DescriptorWrite, error) {
	var writes []device.DescriptorWrite
	for _, s := range p.stages() {
		for _, b := range s.stage.Bindings {
			if b.Kind == shader.BindingUniformBuffer {
				writes = append(writes, device.DescriptorWrite{
					Binding: b.Index,
					Type:    device.DescriptorUniformBuffer,
					Buffer:  s.uniforms.buffer,
					Range:   s.uniforms.size,
				})
				continue
			}
			param := s.Param(b.Name)
			if param == nil || param.texture == nil {
				return nil, fmt.Errorf("%w: texture %s of %s", core.ErrMissingParameter, b.Name, s.file)
			}
			writes = append(writes, device.DescriptorWrite{
				Binding: b.Index,
				Type:    device.DescriptorCombinedImageSampler,
				View:    param.texture.view,
				Sampler: s.samplerFor(b, param).sampler,
			})
		}
	}
	return writes, nil
}

// dirty reports whether a parameter of either stage changed.
func (p *Program) dirty() bool {
	return p.vertex.dirty() || p.fragment.dirty()
}

func (p *Program) upload() error {
	if err := p.vertex.upload(); err != nil {
		return err
	}
	return p.fragment.upload()
}

// destroyPipelines drops every pipeline, they are rebuilt on the next draw.
func (p *Program) destroyPipelines() {
	for key, pl := range p.pipelines {
		p.device.driver.DestroyPipeline(pl)
		delete(p.pipelines, key)
	}
}

// Vertex returns the vertex stage.
func (p *Program) Vertex() *Shader {
	return p.vertex
}

// Fragment returns the fragment stage.
func (p *Program) Fragment() *Shader {
	return p.fragment
}

// Marked reports whether the program waits for collection.
func (p *Program) Marked() bool {
	return p.marked
}

// Release destroys the pipelines, then the pipeline layout, then the
// descriptor set layout. The shaders are not owned by the program.
func (p *Program) Release() {
	p.destroyPipelines()
	if p.layout != 0 {
		p.device.driver.DestroyPipelineLayout(p.layout)
		p.layout = 0
	}
	if p.setLayout != 0 {
		p.device.driver.DestroyDescriptorSetLayout(p.setLayout)
		p.setLayout = 0
	}
}
