// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package graphics

import (
	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/gfx"
	log "github.com/sirupsen/logrus"
)

// CreateVertexBuffer uploads data and tracks the buffer.
func (g *Graphics) CreateVertexBuffer(data *core.VertexData, dynamic bool) *gfx.VertexBuffer {
	vb, err := g.device.CreateVertexBuffer(data, dynamic)
	if err != nil {
		g.log.WithError(err).WithField("vertices", data.Len()).Error("vertex buffer not created")
		return nil
	}
	return g.device.SubmitVertexBuffer(vb)
}

// FlushVertexBuffer replaces the vertices of a dynamic buffer.
func (g *Graphics) FlushVertexBuffer(vb *gfx.VertexBuffer, data *core.VertexData) bool {
	if vb == nil {
		return false
	}
	if err := vb.Flush(data); err != nil {
		g.log.WithError(err).Error("vertex buffer not flushed")
		return false
	}
	return true
}

// LoadVertexBuffer selects vb, nil clears the selection.
func (g *Graphics) LoadVertexBuffer(vb *gfx.VertexBuffer) {
	if err := g.device.LoadVertexBuffer(vb); err != nil {
		g.log.WithError(err).Error("vertex buffer not loaded")
	}
}

// DestroyVertexBuffer releases vb once nothing draws it.
func (g *Graphics) DestroyVertexBuffer(vb *gfx.VertexBuffer) {
	if vb == nil {
		return
	}
	g.device.DestroyVertexBuffer(vb)
}

// CreateIndexBuffer uploads indices and tracks the buffer.
func (g *Graphics) CreateIndexBuffer(indices []uint32, t device.IndexType, dynamic bool) *gfx.IndexBuffer {
	ib, err := g.device.CreateIndexBuffer(indices, t, dynamic)
	if err != nil {
		g.log.WithError(err).WithField("indices", len(indices)).Error("index buffer not created")
		return nil
	}
	return g.device.SubmitIndexBuffer(ib)
}

// FlushIndexBuffer replaces the indices of a dynamic buffer.
func (g *Graphics) FlushIndexBuffer(ib *gfx.IndexBuffer, indices []uint32) bool {
	if ib == nil {
		return false
	}
	if err := ib.Flush(indices); err != nil {
		g.log.WithError(err).Error("index buffer not flushed")
		return false
	}
	return true
}

// LoadIndexBuffer selects ib, nil draws unindexed.
func (g *Graphics) LoadIndexBuffer(ib *gfx.IndexBuffer) {
	if err := g.device.LoadIndexBuffer(ib); err != nil {
		g.log.WithError(err).Error("index buffer not loaded")
	}
}

// DestroyIndexBuffer releases ib once nothing draws it.
func (g *Graphics) DestroyIndexBuffer(ib *gfx.IndexBuffer) {
	if ib == nil {
		return
	}
	g.device.DestroyIndexBuffer(ib)
}

// CreateTexture creates a 2D texture from levels and tracks it.
func (g *Graphics) CreateTexture(width, height uint32, format core.ColorFormat, levels [][]byte, dynamic bool) *gfx.Texture {
	t, err := g.device.CreateTexture(width, height, format, levels, dynamic)
	if err != nil {
		g.log.WithError(err).WithFields(log.Fields{
			"width":  width,
			"height": height,
			"format": format,
		}).Error("texture not created")
		return nil
	}
	return g.device.SubmitTexture(t)
}

// MapTexture returns the data of a dynamic texture and its line size.
func (g *Graphics) MapTexture(t *gfx.Texture) ([]byte, uint32, bool) {
	if t == nil {
		return nil, 0, false
	}
	data, lineSize, err := t.Map()
	if err != nil {
		g.log.WithError(err).Error("texture not mapped")
		return nil, 0, false
	}
	return data, lineSize, true
}

// UnmapTexture uploads what was written to a mapped texture.
func (g *Graphics) UnmapTexture(t *gfx.Texture) {
	if t == nil {
		return
	}
	if err := t.Unmap(); err != nil {
		g.log.WithError(err).Error("texture not uploaded")
	}
}

// LoadTexture binds t to a texture unit of the current fragment shader.
func (g *Graphics) LoadTexture(t *gfx.Texture, unit int) {
	if err := g.device.LoadTexture(t, unit); err != nil {
		g.log.WithError(err).WithField("unit", unit).Error("texture not loaded")
	}
}

// DestroyTexture releases t and unbinds it everywhere.
func (g *Graphics) DestroyTexture(t *gfx.Texture) {
	if t == nil {
		return
	}
	g.device.DestroyTexture(t)
}

// CopyTexture copies the base level of src into dst.
func (g *Graphics) CopyTexture(dst, src *gfx.Texture) {
	if dst == nil || src == nil {
		return
	}
	if err := g.device.CopyTexture(dst, src); err != nil {
		g.log.WithError(err).Error("texture not copied")
	}
}

// CreateSampler creates a sampler and tracks it.
func (g *Graphics) CreateSampler(info core.SamplerInfo) *gfx.Sampler {
	s, err := g.device.CreateSampler(info)
	if err != nil {
		g.log.WithError(err).Error("sampler not created")
		return nil
	}
	return g.device.SubmitSampler(s)
}

// LoadSampler overrides the sampler of a texture unit, nil restores it.
func (g *Graphics) LoadSampler(s *gfx.Sampler, unit int) {
	if err := g.device.LoadSampler(s, unit); err != nil {
		g.log.WithError(err).WithField("unit", unit).Error("sampler not loaded")
	}
}

// DestroySampler releases s and detaches it everywhere.
func (g *Graphics) DestroySampler(s *gfx.Sampler) {
	if s == nil {
		return
	}
	g.device.DestroySampler(s)
}

// CreateStageSurface creates a readback surface.
func (g *Graphics) CreateStageSurface(width, height uint32, format core.ColorFormat) *gfx.StageSurface {
	s, err := g.device.CreateStageSurface(width, height, format)
	if err != nil {
		g.log.WithError(err).Error("stage surface not created")
		return nil
	}
	return s
}

// MapStageSurface returns the surface data and its line size.
func (g *Graphics) MapStageSurface(s *gfx.StageSurface) ([]byte, uint32, bool) {
	if s == nil {
		return nil, 0, false
	}
	data, lineSize, err := s.Map()
	if err != nil {
		g.log.WithError(err).Error("stage surface not mapped")
		return nil, 0, false
	}
	return data, lineSize, true
}

// UnmapStageSurface ends a MapStageSurface.
func (g *Graphics) UnmapStageSurface(s *gfx.StageSurface) {
	if s != nil {
		s.Unmap()
	}
}

// StageTexture copies src into the readback surface dst.
func (g *Graphics) StageTexture(dst *gfx.StageSurface, src *gfx.Texture) {
	if dst == nil || src == nil {
		return
	}
	if err := g.device.StageTexture(dst, src); err != nil {
		g.log.WithError(err).Error("texture not staged")
	}
}

// StageFrame copies the last presented frame into dst.
func (g *Graphics) StageFrame(dst *gfx.StageSurface) bool {
	if dst == nil {
		return false
	}
	if err := g.device.StageFrame(dst); err != nil {
		g.log.WithError(err).Error("frame not staged")
		return false
	}
	return true
}

// DestroyStageSurface releases s. Stage surfaces are never drawn so they
// are released at once.
func (g *Graphics) DestroyStageSurface(s *gfx.StageSurface) {
	if s != nil {
		s.Release()
	}
}
