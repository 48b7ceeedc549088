// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestTranslate(t *testing.T) {
	c := qt.New(t)
	for _, tc := range []struct {
		in, out string
	}{
		{"var<uniform> u: float4x4;", "var<uniform> u: mat4x4<f32>;"},
		{"let a: float4 = float4(1.0);", "let a: vec4<f32> = vec4<f32>(1.0);"},
		{"var t: texture2d; var s: sampler_state;", "var t: texture_2d<f32>; var s: sampler;"},
		{"fn main() -> POSITION vec4<f32>", "fn main() -> @builtin(position) vec4<f32>"},
		{"fn fs() -> TARGET float4", "fn fs() -> @location(0) vec4<f32>"},
		{"let floaty = myfloat4 + float4x4_count;", "let floaty = myfloat4 + float4x4_count;"},
		{"let n: uint = 1u; let i: int3;", "let n: u32 = 1u; let i: vec3<i32>;"},
	} {
		c.Assert(Translate(tc.in), qt.Equals, tc.out)
	}
}

func TestTranslateWGSLUnchanged(t *testing.T) {
	c := qt.New(t)
	src := "@vertex fn main(@location(0) p: vec3<f32>) -> @builtin(position) vec4<f32> { return vec4<f32>(p, 1.0); }"
	c.Assert(Translate(src), qt.Equals, src)
}
