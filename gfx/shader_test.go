// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"testing"

	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/korugs/core"
)

const materialFS = `struct Material {
	Tint: vec4<f32>, // = 1, 0.5, 0.25, 1
	Gloss: f32, // = 2
	Mode: i32,
}

var<uniform> material: Material;

@fragment
fn main() -> @location(0) vec4<f32> {
	return material.Tint * material.Gloss;
}
`

func TestShaderParams(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	fs, err := f.device.CreateFragmentShader(materialFS, "material.frag.wgsl")
	c.Assert(err, qt.IsNil)
	defer fs.Release()

	c.Assert(fs.Params(), qt.HasLen, 3)
	c.Assert(fs.Entry(), qt.Equals, "main")
	c.Assert(fs.World(), qt.IsNil)
	c.Assert(fs.ViewProj(), qt.IsNil)
	c.Assert(fs.Param("Missing"), qt.IsNil)
	c.Assert(fs.ParamAt(3), qt.IsNil)
	c.Assert(fs.ParamAt(-1), qt.IsNil)

	tint := fs.Param("Tint")
	c.Assert(tint.Offset(), qt.Equals, uint32(0))
	c.Assert(tint.Value(), qt.DeepEquals, putFloats(1, 0.5, 0.25, 1))
	gloss := fs.ParamAt(1)
	c.Assert(gloss.Name(), qt.Equals, "Gloss")
	c.Assert(gloss.Offset(), qt.Equals, uint32(16))
	c.Assert(gloss.Value(), qt.DeepEquals, putFloats(2))
	c.Assert(fs.Param("Mode").Offset(), qt.Equals, uint32(20))
}

func TestParameterSetters(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	fs, err := f.device.CreateFragmentShader(materialFS, "material.frag.wgsl")
	c.Assert(err, qt.IsNil)
	defer fs.Release()
	for _, p := range fs.Params() {
		p.dirty = false
	}

	tint := fs.Param("Tint")
	c.Assert(tint.SetFloat(1), qt.ErrorMatches, "parameter Tint is vec4, set as float")
	c.Assert(tint.Dirty(), qt.IsFalse)
	c.Assert(tint.SetBytes(make([]byte, 17)), qt.ErrorIs, core.ErrSizeMismatch)
	c.Assert(tint.SetTexture(nil), qt.IsNotNil)
	c.Assert(tint.SetSampler(nil), qt.IsNotNil)

	c.Assert(tint.SetVec4(glm.Vec4{0, 0, 0, 1}), qt.IsNil)
	c.Assert(tint.Dirty(), qt.IsTrue)
	c.Assert(tint.Value(), qt.DeepEquals, putFloats(0, 0, 0, 1))
	tint.SetDefault()
	c.Assert(tint.Value(), qt.DeepEquals, putFloats(1, 0.5, 0.25, 1))

	// partial writes keep the tail
	c.Assert(tint.SetBytes(putFloats(9)), qt.IsNil)
	c.Assert(tint.Value(), qt.DeepEquals, putFloats(9, 0.5, 0.25, 1))

	c.Assert(fs.Param("Mode").SetInt(-1), qt.IsNil)
	c.Assert(fs.Param("Mode").Value(), qt.DeepEquals, []byte{0xff, 0xff, 0xff, 0xff})
	c.Assert(fs.Param("Gloss").SetBool(true), qt.IsNotNil)
}

func TestSetMatrix3(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	vs, err := f.device.CreateVertexShader(triangleVS, "triangle.vert.wgsl")
	c.Assert(err, qt.IsNil)
	defer vs.Release()

	vp := vs.ViewProj()
	c.Assert(vp, qt.IsNotNil)
	// matrices start as identity
	c.Assert(readMat4(vp.Value()), qt.Equals, glm.Ident4())

	m := glm.Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	c.Assert(vp.SetMatrix3(m), qt.IsNil)
	c.Assert(readMat4(vp.Value()), qt.Equals, glm.Mat4{
		1, 2, 3, 0,
		4, 5, 6, 0,
		7, 8, 9, 0,
		0, 0, 0, 1,
	})
}

func TestParamsUploadOnDraw(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	d := f.device
	f.withSwapchain(c)
	vb, err := d.CreateVertexBuffer(triangle(), false)
	c.Assert(err, qt.IsNil)
	vs, err := d.CreateVertexShader(triangleVS, "triangle.vert.wgsl")
	c.Assert(err, qt.IsNil)
	fs, err := d.CreateFragmentShader(materialFS, "material.frag.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(d.LoadVertexBuffer(vb), qt.IsNil)
	c.Assert(d.LoadVertexShader(vs), qt.IsNil)
	c.Assert(d.LoadFragmentShader(fs), qt.IsNil)

	c.Assert(d.Draw(core.DrawTriangles, 0, 0), qt.IsNil)
	data := f.driver.BufferData(fs.uniforms.Handle())
	c.Assert(data[:20], qt.DeepEquals, putFloats(1, 0.5, 0.25, 1, 2))
	c.Assert(fs.dirty(), qt.IsFalse)

	c.Assert(fs.Param("Gloss").SetFloat(4), qt.IsNil)
	c.Assert(d.Draw(core.DrawTriangles, 0, 0), qt.IsNil)
	data = f.driver.BufferData(fs.uniforms.Handle())
	c.Assert(data[16:20], qt.DeepEquals, putFloats(4))
	c.Assert(f.driver.Writes[d.Renderable().set], qt.HasLen, 2)
}
