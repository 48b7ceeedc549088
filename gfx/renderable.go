// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"
	"slices"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
)

type renderableKey struct {
	vertex, index device.Buffer
}

var topologies = map[core.DrawMode]device.Topology{
	core.DrawPoints:        device.TopologyPointList,
	core.DrawLines:         device.TopologyLineList,
	core.DrawLineStrip:     device.TopologyLineStrip,
	core.DrawTriangles:     device.TopologyTriangleList,
	core.DrawTriangleStrip: device.TopologyTriangleStrip,
}

// Renderable is a program bound to a vertex buffer and an optional index
// buffer. It does not own any of them.
type Renderable struct {
	device  *Device
	vb      *VertexBuffer
	ib      *IndexBuffer
	program *Program

	set      device.DescriptorSet
	bound    []device.DescriptorWrite
	pipeline device.Pipeline

	mode   core.DrawMode
	first  uint32
	count  uint32
	marked bool
}

func newRenderable(d *Device, vb *VertexBuffer, ib *IndexBuffer, program *Program) *Renderable {
	return &Renderable{
		device:  d,
		vb:      vb,
		ib:      ib,
		program: program,
		mode:    core.DrawTriangles,
	}
}

func (r *Renderable) key() renderableKey {
	return renderableKey{vertex: r.vb.buffer, index: indexHandle(r.ib)}
}

func indexHandle(ib *IndexBuffer) device.Buffer {
	if ib == nil {
		return 0
	}
	return ib.buffer
}

// rebind switches the renderable to another program. The descriptor set
// belongs to the layout of the old one and is freed.
func (r *Renderable) rebind(p *Program) {
	if r.program == p {
		return
	}
	r.unbind()
	r.program = p
}

// unbind frees the descriptor set, it is allocated again on the next draw.
func (r *Renderable) unbind() {
	if r.set != 0 {
		r.device.driver.FreeDescriptorSets([]device.DescriptorSet{r.set})
	}
	r.set, r.bound, r.pipeline = 0, nil, 0
}

// uses reports whether a write bound to the descriptor set matches.
func (r *Renderable) uses(match func(device.DescriptorWrite) bool) bool {
	return slices.ContainsFunc(r.bound, match)
}

// prepare resolves the pipeline and descriptor set. The set is allocated
// on first use and rewritten when a binding changed.
func (r *Renderable) prepare() error {
	topology, ok := topologies[r.mode]
	if !ok {
		return fmt.Errorf("unknown draw mode %d", r.mode)
	}
	pipeline, err := r.program.pipeline(r.vb.format, topology)
	if err != nil {
		return err
	}
	writes, err := r.program.writes()
	if err != nil {
		return err
	}
	if r.set == 0 && len(writes) > 0 {
		sets, err := r.device.driver.AllocateDescriptorSets(r.program.setLayout, 1)
		if err != nil {
			return fmt.Errorf("vk.AllocateDescriptorSets(): %w", err)
		}
		r.set = sets[0]
	}
	if !slices.Equal(writes, r.bound) {
		r.device.driver.UpdateDescriptorSet(r.set, writes)
		r.bound = writes
	}
	r.pipeline = pipeline
	return nil
}

// drawable reports whether the renderable can be recorded.
func (r *Renderable) drawable() bool {
	if r.pipeline == 0 || r.vb.Len() == 0 {
		return false
	}
	return r.set != 0 || len(r.bound) == 0
}

// elements returns the first element and element count to draw.
func (r *Renderable) elements() (first, count uint32) {
	total := uint32(r.vb.Len())
	if r.ib != nil {
		total = uint32(r.ib.Len())
	}
	if r.first >= total {
		return 0, 0
	}
	count = total - r.first
	if r.count > 0 && r.count < count {
		count = r.count
	}
	return r.first, count
}

func (r *Renderable) record(cb device.CommandBuffer) {
	first, count := r.elements()
	if count == 0 {
		return
	}
	driver := r.device.driver
	driver.CmdBindPipeline(cb, r.pipeline)
	driver.CmdBindVertexBuffer(cb, r.vb.buffer)
	if r.set != 0 {
		driver.CmdBindDescriptorSet(cb, r.program.layout, r.set)
	}
	if r.ib != nil {
		driver.CmdBindIndexBuffer(cb, r.ib.buffer, r.ib.indexType)
		driver.CmdDrawIndexed(cb, count, first)
		return
	}
	driver.CmdDraw(cb, count, first)
}

// VertexBuffer returns the bound vertex buffer.
func (r *Renderable) VertexBuffer() *VertexBuffer {
	return r.vb
}

// IndexBuffer returns the bound index buffer, nil when drawing unindexed.
func (r *Renderable) IndexBuffer() *IndexBuffer {
	return r.ib
}

// Program returns the bound program.
func (r *Renderable) Program() *Program {
	return r.program
}

// Marked reports whether the renderable waits for collection.
func (r *Renderable) Marked() bool {
	return r.marked
}

// Release frees the descriptor set.
func (r *Renderable) Release() {
	r.unbind()
}
