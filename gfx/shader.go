// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/shader"
	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

// Shader is one compiled stage with its parameters and uniform buffer.
type Shader struct {
	device *Device
	log    *log.Entry
	file   string
	stage  *shader.Stage
	code   []byte
	module device.ShaderModule

	params   []*Parameter
	uniforms *UniformBuffer

	// samplers declared by the source, by binding index
	samplers map[uint32]*Sampler

	world    *Parameter
	viewProj *Parameter
	marked   bool
}

// CreateShader preprocesses, compiles and loads a stage. file is the
// bytecode cache key and names the shader in diagnostics.
func (d *Device) CreateShader(source, file string, stage core.ShaderType) (*Shader, error) {
	st, err := shader.Prepare(d.preprocessor, stage, source, file)
	if err != nil {
		return nil, err
	}
	code, err := d.cache.Load(file, source, st.Translated)
	if err != nil {
		return nil, err
	}
	module, err := d.driver.CreateShaderModule(code)
	if err != nil {
		return nil, fmt.Errorf("vk.CreateShaderModule(): %w", err)
	}
	s := &Shader{
		device:   d,
		log:      d.log.WithField("shader", file),
		file:     file,
		stage:    st,
		code:     code,
		module:   module,
		samplers: make(map[uint32]*Sampler),
	}
	for i, p := range st.Params {
		param := &Parameter{
			shader: s,
			name:   p.Name,
			typ:    p.Type,
			count:  max(p.Count, 1),
			offset: st.Offsets[i],
			value:  make([]byte, p.Size()),
			def:    make([]byte, p.Size()),
			dirty:  true,
		}
		copy(param.def, p.Default)
		copy(param.value, param.def)
		s.params = append(s.params, param)
	}
	s.world = s.Param(shader.WorldName)
	s.viewProj = s.Param(shader.ViewProjName)

	if err := s.createResources(); err != nil {
		s.Release()
		return nil, err
	}
	s.log.WithFields(log.Fields{
		"stage":    st.Stage,
		"params":   len(s.params),
		"bindings": len(st.Bindings),
	}).Debug("shader loaded")
	return s, nil
}

// CreateVertexShader loads a vertex stage.
func (d *Device) CreateVertexShader(source, file string) (*Shader, error) {
	return d.CreateShader(source, file, core.VertexShaderType)
}

// CreateFragmentShader loads a fragment stage.
func (d *Device) CreateFragmentShader(source, file string) (*Shader, error) {
	return d.CreateShader(source, file, core.FragmentShaderType)
}

func (s *Shader) createResources() error {
	if s.stage.Uniforms != "" {
		ub, err := s.device.CreateUniformBuffer(uint64(max(s.stage.UniformSize, shader.RegisterSize)))
		if err != nil {
			return err
		}
		s.uniforms = ub
	}
	declared := make(map[string]shader.Sampler, len(s.stage.Samplers))
	for _, smp := range s.stage.Samplers {
		declared[smp.Name] = smp
	}
	for _, b := range s.stage.Bindings {
		if b.Kind != shader.BindingImageSampler || len(b.Samplers) == 0 {
			continue
		}
		smp, err := s.device.CreateSampler(declared[b.Samplers[0]].Info)
		if err != nil {
			return err
		}
		s.samplers[b.Index] = smp
	}
	return nil
}

// Type returns the stage of the shader.
func (s *Shader) Type() core.ShaderType {
	return s.stage.Stage
}

// File returns the name the shader was loaded under.
func (s *Shader) File() string {
	return s.file
}

// Module returns the native shader module.
func (s *Shader) Module() device.ShaderModule {
	return s.module
}

// Entry returns the entry point name.
func (s *Shader) Entry() string {
	return s.stage.Entry
}

// Bindings returns the descriptor bindings of the stage.
func (s *Shader) Bindings() []shader.Binding {
	return s.stage.Bindings
}

// VertexFormat returns the record format a vertex shader reads.
func (s *Shader) VertexFormat() shader.VertexFormat {
	return shader.FormatOf(s.stage.Inputs)
}

// Params returns every parameter in declaration order.
func (s *Shader) Params() []*Parameter {
	return s.params
}

// Param returns the parameter called name, nil when there is none.
func (s *Shader) Param(name string) *Parameter {
	for _, p := range s.params {
		if p.name == name {
			return p
		}
	}
	return nil
}

// ParamAt returns the parameter at index i, nil when out of range.
func (s *Shader) ParamAt(i int) *Parameter {
	if i < 0 || i >= len(s.params) {
		return nil
	}
	return s.params[i]
}

// World returns the world matrix parameter of a vertex shader.
func (s *Shader) World() *Parameter {
	return s.world
}

// ViewProj returns the view projection parameter of a vertex shader.
func (s *Shader) ViewProj() *Parameter {
	return s.viewProj
}

// textureParam returns the unit-th texture parameter.
func (s *Shader) textureParam(unit int) *Parameter {
	for _, p := range s.params {
		if p.typ != shader.ParamTexture {
			continue
		}
		if unit == 0 {
			return p
		}
		unit--
	}
	return nil
}

// dirty reports whether any parameter changed since the last upload.
func (s *Shader) dirty() bool {
	for _, p := range s.params {
		if p.dirty {
			return true
		}
	}
	return false
}

// upload writes the uniform parameters into the uniform buffer when any
// of them changed, and clears every dirty flag.
func (s *Shader) upload() error {
	changed := false
	for _, p := range s.params {
		if p.dirty && p.typ != shader.ParamTexture {
			changed = true
		}
	}
	if changed && s.uniforms != nil {
		data := make([]byte, s.stage.UniformSize)
		for _, p := range s.params {
			copy(data[p.offset:], p.value)
		}
		if err := s.uniforms.Update(data); err != nil {
			return err
		}
	}
	for _, p := range s.params {
		p.dirty = false
	}
	return nil
}

// samplerFor resolves the sampler of a texture binding: a loaded sampler,
// then the sampler of the texture, then the declared one, then the default.
func (s *Shader) samplerFor(b shader.Binding, p *Parameter) *Sampler {
	switch {
	case p.sampler != nil:
		return p.sampler
	case p.texture != nil && p.texture.sampler != nil:
		return p.texture.sampler
	case s.samplers[b.Index] != nil:
		return s.samplers[b.Index]
	}
	return s.device.defaultSampler
}

// Marked reports whether the shader waits for collection.
func (s *Shader) Marked() bool {
	return s.marked
}

// Release destroys the module, the uniform buffer and declared samplers.
func (s *Shader) Release() {
	if s.module == 0 {
		return
	}
	for _, smp := range s.samplers {
		smp.Release()
	}
	if s.uniforms != nil {
		s.uniforms.Release()
	}
	s.device.driver.DestroyShaderModule(s.module)
	s.module = 0
}

// Parameter is one shader parameter. Setting a value marks it dirty, the
// uniform buffer is updated on the next draw.
type Parameter struct {
	shader *Shader
	name   string
	typ    shader.ParamType
	count  int
	offset uint32
	value  []byte
	def    []byte

	texture *Texture
	sampler *Sampler
	dirty   bool
}

// Name of the parameter
func (p *Parameter) Name() string {
	return p.name
}

// Type of the parameter
func (p *Parameter) Type() shader.ParamType {
	return p.typ
}

// Offset in the uniform buffer
func (p *Parameter) Offset() uint32 {
	return p.offset
}

// Value returns the current uniform data of the parameter.
func (p *Parameter) Value() []byte {
	return p.value
}

// Texture returns the texture bound to a texture parameter.
func (p *Parameter) Texture() *Texture {
	return p.texture
}

// Dirty reports whether the parameter changed since the last draw.
func (p *Parameter) Dirty() bool {
	return p.dirty
}

func (p *Parameter) set(t shader.ParamType, data []byte) error {
	if p.typ != t {
		return fmt.Errorf("parameter %s is %s, set as %s", p.name, p.typ, t)
	}
	if len(data) > len(p.value) {
		return fmt.Errorf("%w: %d bytes into parameter %s of %d", core.ErrSizeMismatch, len(data), p.name, len(p.value))
	}
	copy(p.value, data)
	p.dirty = true
	return nil
}

func putFloats(v ...float32) []byte {
	data := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	return data
}

// SetBool sets a bool parameter, stored as a 32 bit integer.
func (p *Parameter) SetBool(v bool) error {
	var i uint32
	if v {
		i = 1
	}
	return p.set(shader.ParamBool, binary.LittleEndian.AppendUint32(nil, i))
}

// SetInt sets an int parameter.
func (p *Parameter) SetInt(v int32) error {
	return p.set(shader.ParamInt, binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

// SetFloat sets a float parameter.
func (p *Parameter) SetFloat(v float32) error {
	return p.set(shader.ParamFloat, putFloats(v))
}

// SetVec2 sets a vec2 parameter.
func (p *Parameter) SetVec2(v glm.Vec2) error {
	return p.set(shader.ParamVec2, putFloats(v[:]...))
}

// SetVec3 sets a vec3 parameter.
func (p *Parameter) SetVec3(v glm.Vec3) error {
	return p.set(shader.ParamVec3, putFloats(v[:]...))
}

// SetVec4 sets a vec4 parameter.
func (p *Parameter) SetVec4(v glm.Vec4) error {
	return p.set(shader.ParamVec4, putFloats(v[:]...))
}

// SetMatrix3 sets a matrix parameter from a 3x3 matrix, the remaining
// row and column are those of the identity.
func (p *Parameter) SetMatrix3(m glm.Mat3) error {
	return p.SetMatrix4(m.Mat4())
}

// SetMatrix4 sets a matrix parameter.
func (p *Parameter) SetMatrix4(m glm.Mat4) error {
	return p.set(shader.ParamMatrix4x4, putFloats(m[:]...))
}

// SetBytes sets the raw uniform data of any non texture parameter.
func (p *Parameter) SetBytes(data []byte) error {
	if p.typ == shader.ParamTexture {
		return fmt.Errorf("parameter %s is a texture", p.name)
	}
	return p.set(p.typ, data)
}

// SetTexture binds t to a texture parameter, nil unbinds it.
func (p *Parameter) SetTexture(t *Texture) error {
	if p.typ != shader.ParamTexture {
		return fmt.Errorf("parameter %s is %s, set as %s", p.name, p.typ, shader.ParamTexture)
	}
	if p.texture != t {
		p.texture = t
		p.dirty = true
	}
	return nil
}

// SetSampler overrides the sampler the texture parameter is sampled
// with, nil restores the default resolution.
func (p *Parameter) SetSampler(s *Sampler) error {
	if p.typ != shader.ParamTexture {
		return fmt.Errorf("parameter %s is %s, not a texture", p.name, p.typ)
	}
	if p.sampler != s {
		p.sampler = s
		p.dirty = true
	}
	return nil
}

// SetDefault restores the declared default value.
func (p *Parameter) SetDefault() {
	copy(p.value, p.def)
	p.texture = nil
	p.dirty = true
}
