// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korugs/core"
)

const fragmentSource = `struct Material {
	tint: vec4<f32>,
}
var<uniform> material: Material;
var albedo: texture_2d<f32>;
var albedoSampler: sampler;
var detail: texture_2d<f32>;
var detailSampler: sampler;
`

func TestAssignBindings(t *testing.T) {
	c := qt.New(t)
	p := &Processed{
		Stage:    core.FragmentShaderType,
		Uniforms: "material",
		Params: []Param{
			{Name: "tint", Type: ParamVec4},
			{Name: "albedo", Type: ParamTexture},
			{Name: "detail", Type: ParamTexture},
		},
		Samplers: []Sampler{
			{Name: "albedoSampler", Texture: "albedo"},
			{Name: "detailSampler"},
		},
	}
	out, bindings, err := AssignBindings(p, fragmentSource)
	c.Assert(err, qt.IsNil)
	c.Assert(bindings, qt.DeepEquals, []Binding{
		{Index: 16, Kind: BindingUniformBuffer, Name: "material"},
		{Index: 17, Kind: BindingImageSampler, Name: "albedo", Samplers: []string{"albedoSampler"}},
		{Index: 18, Kind: BindingImageSampler, Name: "detail", Samplers: []string{"detailSampler"}},
	})
	c.Assert(out, qt.Contains, "@group(0) @binding(16) var<uniform> material: Material;")
	c.Assert(out, qt.Contains, "@group(0) @binding(17) var albedo: texture_2d<f32>;")
	c.Assert(out, qt.Contains, "@group(0) @binding(17) var albedoSampler: sampler;")
	c.Assert(out, qt.Contains, "@group(0) @binding(18) var detail: texture_2d<f32>;")
	c.Assert(out, qt.Contains, "@group(0) @binding(18) var detailSampler: sampler;")
}

func TestAssignBindingsVertexRange(t *testing.T) {
	c := qt.New(t)
	p := &Processed{
		Stage:    core.VertexShaderType,
		Uniforms: "u",
		Params:   []Param{{Name: "ViewProj", Type: ParamMatrix4x4}},
	}
	out, bindings, err := AssignBindings(p, "var<uniform> u: U;\n")
	c.Assert(err, qt.IsNil)
	c.Assert(bindings, qt.HasLen, 1)
	c.Assert(bindings[0].Index, qt.Equals, uint32(VertexBindingBase))
	c.Assert(out, qt.Equals, "@group(0) @binding(0) var<uniform> u: U;\n")
}

func TestAssignBindingsRepeatable(t *testing.T) {
	c := qt.New(t)
	p := &Processed{
		Stage:  core.FragmentShaderType,
		Params: []Param{{Name: "albedo", Type: ParamTexture}},
	}
	src := "var albedo: texture_2d<f32>;\n"
	first, _, err := AssignBindings(p, src)
	c.Assert(err, qt.IsNil)
	second, _, err := AssignBindings(p, src)
	c.Assert(err, qt.IsNil)
	c.Assert(second, qt.Equals, first)
	c.Assert(strings.Count(first, "@binding(16)"), qt.Equals, 1)
}

func TestAssignBindingsErrors(t *testing.T) {
	c := qt.New(t)

	_, _, err := AssignBindings(&Processed{Stage: core.UnknownShaderType}, "")
	c.Assert(err, qt.ErrorIs, core.ErrUnknownShaderStage)

	_, _, err = AssignBindings(&Processed{
		Stage:    core.FragmentShaderType,
		Samplers: []Sampler{{Name: "orphan"}},
	}, "var orphan: sampler;")
	c.Assert(err, qt.ErrorMatches, "sampler orphan: no texture to bind to")

	_, _, err = AssignBindings(&Processed{
		Stage:  core.FragmentShaderType,
		Params: []Param{{Name: "missing", Type: ParamTexture}},
	}, "var other: texture_2d<f32>;")
	c.Assert(err, qt.ErrorMatches, "declaration of missing not found")
}
