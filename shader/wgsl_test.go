// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korugs/core"
)

const vertexWGSL = `struct Uniforms {
	ViewProj: float4x4,
	World: mat4x4<f32>,
	tint: vec4<f32>, // = 1, 0.5, 0, 1
}

var<uniform> u: Uniforms;

struct VertexInput {
	@location(0) position: vec3<f32>,
	@location(1) color: vec4<f32>,
	@location(2) uv: vec2<f32>,
}

struct VertexOutput {
	@builtin(position) clip: vec4<f32>,
	@location(0) color: vec4<f32>,
}

@vertex
fn main(in: VertexInput, @builtin(vertex_index) index: u32) -> VertexOutput {
	var out: VertexOutput;
	out.clip = u.ViewProj * u.World * vec4<f32>(in.position, 1.0);
	out.color = in.color * u.tint;
	return out;
}
`

const fragmentWGSL = `var albedo: texture2d;
var albedoSampler: sampler_state; // filter=linear address=wrap anisotropy=4

@fragment
fn main(@location(0) color: vec4<f32>, @location(1) uv: vec2<f32>) -> TARGET float4 {
	return color * textureSample(albedo, albedoSampler, uv);
}
`

func float32At(b []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
}

func TestWGSLVertex(t *testing.T) {
	c := qt.New(t)
	p, err := WGSL{}.Process(vertexWGSL, "triangle.vert.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Stage, qt.Equals, core.VertexShaderType)
	c.Assert(p.Source, qt.Equals, vertexWGSL)
	c.Assert(p.Uniforms, qt.Equals, "u")

	c.Assert(p.Params, qt.HasLen, 3)
	c.Assert(p.Params[0].Name, qt.Equals, ViewProjName)
	c.Assert(p.Params[0].Type, qt.Equals, ParamMatrix4x4)
	c.Assert(p.Params[1].Name, qt.Equals, WorldName)
	c.Assert(p.Params[2].Type, qt.Equals, ParamVec4)

	// matrices default to identity
	c.Assert(float32At(p.Params[0].Default, 0), qt.Equals, float32(1))
	c.Assert(float32At(p.Params[0].Default, 1), qt.Equals, float32(0))
	c.Assert(float32At(p.Params[0].Default, 5), qt.Equals, float32(1))
	c.Assert(float32At(p.Params[0].Default, 15), qt.Equals, float32(1))
	c.Assert(float32At(p.Params[2].Default, 1), qt.Equals, float32(0.5))

	c.Assert(p.Inputs, qt.DeepEquals, []InputAttribute{
		{Name: "position", Location: 0, Semantic: InputPosition},
		{Name: "color", Location: 1, Semantic: InputColor},
		{Name: "uv", Location: 2, Semantic: InputTexCoord, Width: 2},
	})
}

func TestWGSLFragment(t *testing.T) {
	c := qt.New(t)
	p, err := WGSL{}.Process(fragmentWGSL, "triangle.frag.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Stage, qt.Equals, core.FragmentShaderType)
	c.Assert(p.Uniforms, qt.Equals, "")
	c.Assert(p.Params, qt.DeepEquals, []Param{{Name: "albedo", Type: ParamTexture}})
	c.Assert(p.Inputs, qt.HasLen, 0)
	c.Assert(p.Samplers, qt.HasLen, 1)
	c.Assert(p.Samplers[0].Texture, qt.Equals, "albedo")
	c.Assert(p.Samplers[0].Info, qt.DeepEquals, core.SamplerInfo{
		Filter:        core.FilterLinear,
		AddressU:      core.AddressWrap,
		AddressV:      core.AddressWrap,
		AddressW:      core.AddressWrap,
		MaxAnisotropy: 4,
	})
}

func TestWGSLInlineVertexInputs(t *testing.T) {
	c := qt.New(t)
	src := `@vertex
fn vs(@location(0) pos: vec3<f32>, @location(1) normal: vec3<f32>, @location(2) texcoord: vec3<f32>) -> @builtin(position) vec4<f32> {
	return vec4<f32>(pos, 1.0);
}
`
	p, err := WGSL{}.Process(src, "inline.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Entry, qt.Equals, "vs")
	c.Assert(FormatOf(p.Inputs), qt.DeepEquals, VertexFormat{Normals: true, TexCoords: []int{3}})
}

func TestWGSLRejectsMisalignedBlock(t *testing.T) {
	c := qt.New(t)
	src := `struct U {
	a: f32,
	b: vec3<f32>,
}
var<uniform> u: U;
@fragment fn main() -> @location(0) vec4<f32> { return vec4<f32>(u.b, u.a); }
`
	_, err := WGSL{}.Process(src, "bad.wgsl")
	c.Assert(err, qt.ErrorMatches, `uniform block u: b: member at offset 16, packed at 4, reorder or pad the block`)
}

func TestWGSLIncludes(t *testing.T) {
	c := qt.New(t)
	files := map[string]string{
		"common.wgsl": "struct U {\n\tWorld: mat4x4<f32>,\n}\n",
	}
	w := WGSL{Include: func(name string) (string, error) {
		src, ok := files[name]
		if !ok {
			return "", errors.New("no such file")
		}
		return src, nil
	}}
	src := "#include \"common.wgsl\"\nvar<uniform> u: U;\n@vertex fn main() -> @builtin(position) vec4<f32> { return u.World[0]; }\n"
	p, err := w.Process(src, "main.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Params, qt.HasLen, 1)
	c.Assert(p.Source, qt.Not(qt.Contains), "#include")

	_, err = w.Process("#include \"missing.wgsl\"\n", "main.wgsl")
	c.Assert(err, qt.ErrorMatches, `main.wgsl: include missing.wgsl: no such file`)

	_, err = WGSL{}.Process(src, "main.wgsl")
	c.Assert(err, qt.ErrorMatches, `main.wgsl: includes are not enabled`)
}

func TestPrepare(t *testing.T) {
	c := qt.New(t)
	st, err := Prepare(WGSL{}, core.FragmentShaderType, fragmentWGSL, "triangle.frag.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(st.UniformSize, qt.Equals, uint32(0))
	c.Assert(st.Bindings, qt.DeepEquals, []Binding{
		{Index: FragmentBindingBase, Kind: BindingImageSampler, Name: "albedo", Samplers: []string{"albedoSampler"}},
	})
	c.Assert(st.Translated, qt.Contains, "@group(0) @binding(16) var albedo: texture_2d<f32>;")
	c.Assert(st.Translated, qt.Contains, "-> @location(0) vec4<f32>")

	_, err = Prepare(WGSL{}, core.VertexShaderType, fragmentWGSL, "triangle.frag.wgsl")
	c.Assert(err, qt.ErrorIs, core.ErrUnknownShaderStage)

	// the stage is taken from the request when the source has no entry point
	st, err = Prepare(WGSL{}, core.VertexShaderType, "struct U {\n\tWorld: mat4x4<f32>,\n}\nvar<uniform> u: U;\n", "lib.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(st.Stage, qt.Equals, core.VertexShaderType)
	c.Assert(st.UniformSize, qt.Equals, uint32(64))
}

func TestWGSLDropsExplicitBindings(t *testing.T) {
	c := qt.New(t)
	src := "@group(1) @binding(3) var albedo: texture_2d<f32>;\n@fragment fn main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }\n"
	p, err := WGSL{}.Process(src, "bound.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Params, qt.HasLen, 1)
	c.Assert(p.Source, qt.Not(qt.Contains), "@binding(3)")
}
