// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"github.com/devblok/korugs/device"
	log "github.com/sirupsen/logrus"
)

// collect releases every marked object. Marks propagate first: programs
// of marked shaders and renderables of marked buffers or programs are
// marked too. Renderables go first so that none outlives what it draws.
func (d *Device) collect() {
	if !d.propagateMarks() {
		return
	}
	if err := d.driver.WaitIdle(); err != nil {
		d.log.WithError(err).Error("vk.DeviceWaitIdle()")
	}
	selected := d.renderables.current()

	d.textures.each(func(t *Texture) {
		if t.marked {
			d.unbindTexture(t)
		}
	})
	d.samplers.each(func(s *Sampler) {
		if s.marked {
			d.unbindSampler(s)
		}
	})

	counts := log.Fields{}
	counts["renderables"] = d.renderables.collect(func(r *Renderable) {
		if r == d.lastDrawn {
			d.lastDrawn = nil
		}
	})
	counts["programs"] = d.programs.collect(nil)
	counts["shaders"] = d.vertexShaders.collect(nil) + d.fragmentShaders.collect(nil)
	counts["buffers"] = d.vertexBuffers.collect(nil) + d.indexBuffers.collect(nil)
	counts["textures"] = d.textures.collect(nil)
	counts["samplers"] = d.samplers.collect(nil)
	first := d.presentTarget()
	counts["swapchains"] = d.swapchains.collect(func(sc *Swapchain) {
		if sc == first {
			d.destroyFrames()
		}
	})
	d.log.WithFields(counts).Debug("collected")

	if first != nil && first.marked {
		if next := d.presentTarget(); next != nil {
			if err := d.buildFrames(next); err != nil {
				d.log.WithError(err).Error("frame resources not rebuilt")
			}
		}
	}
	// what is left of the selection may still draw, unindexed
	if selected != nil && selected.marked {
		if err := d.resolve(); err != nil {
			d.log.WithError(err).Error("selection not resolved")
		}
	}
	d.invalidateFrames()
}

// propagateMarks reports whether anything is marked at all.
func (d *Device) propagateMarks() bool {
	found := false
	d.programs.each(func(p *Program) {
		if p.vertex.marked || p.fragment.marked {
			p.marked = true
		}
	})
	d.renderables.each(func(r *Renderable) {
		if r.vb.marked || (r.ib != nil && r.ib.marked) || r.program.marked {
			r.marked = true
		}
	})
	check := func(marked bool) {
		found = found || marked
	}
	d.renderables.each(func(r *Renderable) { check(r.marked) })
	d.programs.each(func(p *Program) { check(p.marked) })
	d.vertexShaders.each(func(s *Shader) { check(s.marked) })
	d.fragmentShaders.each(func(s *Shader) { check(s.marked) })
	d.vertexBuffers.each(func(vb *VertexBuffer) { check(vb.marked) })
	d.indexBuffers.each(func(ib *IndexBuffer) { check(ib.marked) })
	d.textures.each(func(t *Texture) { check(t.marked) })
	d.samplers.each(func(s *Sampler) { check(s.marked) })
	d.swapchains.each(func(sc *Swapchain) { check(sc.marked) })
	return found
}

// eachShader visits every tracked shader of both stages.
func (d *Device) eachShader(fn func(*Shader)) {
	d.vertexShaders.each(fn)
	d.fragmentShaders.each(fn)
}

// unbindTexture clears every parameter holding t and frees the descriptor
// sets it is written to.
func (d *Device) unbindTexture(t *Texture) {
	d.eachShader(func(s *Shader) {
		for _, p := range s.params {
			if p.texture == t {
				p.texture = nil
				p.dirty = true
			}
		}
	})
	d.unbindWrites(func(w device.DescriptorWrite) bool {
		return w.View == t.view
	})
}

// unbindSampler detaches s from textures and parameters and frees the
// descriptor sets it is written to.
func (d *Device) unbindSampler(s *Sampler) {
	d.textures.each(func(t *Texture) {
		if t.sampler == s {
			t.sampler = nil
		}
	})
	d.eachShader(func(sh *Shader) {
		for _, p := range sh.params {
			if p.sampler == s {
				p.sampler = nil
				p.dirty = true
			}
		}
	})
	d.unbindWrites(func(w device.DescriptorWrite) bool {
		return w.Type == device.DescriptorCombinedImageSampler && w.Sampler == s.sampler
	})
}

func (d *Device) unbindWrites(match func(device.DescriptorWrite) bool) {
	d.renderables.each(func(r *Renderable) {
		if r.uses(match) {
			r.unbind()
		}
	})
}
