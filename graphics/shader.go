// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package graphics

import (
	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
)

// CreateVertexShader compiles a vertex stage and tracks it. file keys the
// bytecode cache.
func (g *Graphics) CreateVertexShader(source, file string) *gfx.Shader {
	return g.createShader(source, file, core.VertexShaderType)
}

// CreateFragmentShader compiles a fragment stage and tracks it.
func (g *Graphics) CreateFragmentShader(source, file string) *gfx.Shader {
	return g.createShader(source, file, core.FragmentShaderType)
}

func (g *Graphics) createShader(source, file string, stage core.ShaderType) *gfx.Shader {
	s, err := g.device.CreateShader(source, file, stage)
	if err != nil {
		g.log.WithError(err).WithField("shader", file).Error("shader not created")
		return nil
	}
	tracked, err := g.device.SubmitShader(s)
	if err != nil {
		g.log.WithError(err).WithField("shader", file).Error("shader not submitted")
		s.Release()
		return nil
	}
	return tracked
}

// LoadVertexShader selects a vertex shader.
func (g *Graphics) LoadVertexShader(s *gfx.Shader) {
	if err := g.device.LoadVertexShader(s); err != nil {
		g.log.WithError(err).Error("vertex shader not loaded")
	}
}

// LoadFragmentShader selects a fragment shader.
func (g *Graphics) LoadFragmentShader(s *gfx.Shader) {
	if err := g.device.LoadFragmentShader(s); err != nil {
		g.log.WithError(err).Error("fragment shader not loaded")
	}
}

// VertexShader returns the current vertex shader.
func (g *Graphics) VertexShader() *gfx.Shader {
	return g.device.VertexShader()
}

// FragmentShader returns the current fragment shader.
func (g *Graphics) FragmentShader() *gfx.Shader {
	return g.device.FragmentShader()
}

// DestroyShader releases s together with every program using it.
func (g *Graphics) DestroyShader(s *gfx.Shader) {
	if s == nil {
		return
	}
	g.device.DestroyShader(s)
}

// Param looks a parameter of s up by name.
func (g *Graphics) Param(s *gfx.Shader, name string) *gfx.Parameter {
	if s == nil {
		return nil
	}
	p := s.Param(name)
	if p == nil {
		g.log.WithField("shader", s.File()).WithField("param", name).Warn("no such parameter")
	}
	return p
}

// ParamAt looks a parameter of s up by index.
func (g *Graphics) ParamAt(s *gfx.Shader, i int) *gfx.Parameter {
	if s == nil {
		return nil
	}
	p := s.ParamAt(i)
	if p == nil {
		g.log.WithField("shader", s.File()).WithField("param", i).Warn("no such parameter")
	}
	return p
}

func (g *Graphics) setParam(p *gfx.Parameter, set func() error) {
	if p == nil {
		return
	}
	if err := set(); err != nil {
		g.log.WithError(err).WithField("param", p.Name()).Error("parameter not set")
	}
}

// SetBool sets a bool parameter.
func (g *Graphics) SetBool(p *gfx.Parameter, v bool) {
	g.setParam(p, func() error { return p.SetBool(v) })
}

// SetInt sets an int parameter.
func (g *Graphics) SetInt(p *gfx.Parameter, v int32) {
	g.setParam(p, func() error { return p.SetInt(v) })
}

// SetFloat sets a float parameter.
func (g *Graphics) SetFloat(p *gfx.Parameter, v float32) {
	g.setParam(p, func() error { return p.SetFloat(v) })
}

// SetVec2 sets a vec2 parameter.
func (g *Graphics) SetVec2(p *gfx.Parameter, v glm.Vec2) {
	g.setParam(p, func() error { return p.SetVec2(v) })
}

// SetVec3 sets a vec3 parameter.
func (g *Graphics) SetVec3(p *gfx.Parameter, v glm.Vec3) {
	g.setParam(p, func() error { return p.SetVec3(v) })
}

// SetVec4 sets a vec4 parameter.
func (g *Graphics) SetVec4(p *gfx.Parameter, v glm.Vec4) {
	g.setParam(p, func() error { return p.SetVec4(v) })
}

// SetMatrix3 sets a matrix parameter from a 3x3 matrix.
func (g *Graphics) SetMatrix3(p *gfx.Parameter, m glm.Mat3) {
	g.setParam(p, func() error { return p.SetMatrix3(m) })
}

// SetMatrix4 sets a matrix parameter.
func (g *Graphics) SetMatrix4(p *gfx.Parameter, m glm.Mat4) {
	g.setParam(p, func() error { return p.SetMatrix4(m) })
}

// SetTexture binds a texture to a texture parameter.
func (g *Graphics) SetTexture(p *gfx.Parameter, t *gfx.Texture) {
	g.setParam(p, func() error {
		if t != nil {
			t = g.device.SubmitTexture(t)
		}
		return p.SetTexture(t)
	})
}

// SetBytes sets the raw uniform data of a parameter.
func (g *Graphics) SetBytes(p *gfx.Parameter, data []byte) {
	g.setParam(p, func() error { return p.SetBytes(data) })
}

// SetDefault restores the declared default of a parameter.
func (g *Graphics) SetDefault(p *gfx.Parameter) {
	if p != nil {
		p.SetDefault()
	}
}
