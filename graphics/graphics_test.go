// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package graphics

import (
	"testing"

	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/device/devicetest"
	"github.com/devblok/korugs/gfx"
)

type padCompiler struct{}

func (padCompiler) Compile(source string) ([]byte, error) {
	code := []byte(source)
	for len(code)%4 != 0 {
		code = append(code, 0)
	}
	return code, nil
}

const vertexSource = `struct Uniforms {
	ViewProj: mat4x4<f32>,
}

var<uniform> u: Uniforms;

@vertex
fn main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
	return u.ViewProj * vec4<f32>(position, 1.0);
}
`

const fragmentSource = `struct Material {
	Tint: vec4<f32>, // = 1, 1, 1, 1
}

var<uniform> material: Material;

@fragment
fn main() -> @location(0) vec4<f32> {
	return material.Tint;
}
`

type harness struct {
	*Graphics
	driver *devicetest.Driver
	hook   *test.Hook
}

func newHarness(c *qt.C) *harness {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	inst := devicetest.NewInstance()
	g := Create(inst, core.DefaultConfiguration(), gfx.Options{
		Compiler: padCompiler{},
		Log:      log.NewEntry(logger),
	})
	c.Assert(g, qt.IsNotNil)
	c.Cleanup(g.Destroy)
	hook.Reset()
	return &harness{
		Graphics: g,
		driver:   inst.Drivers[0],
		hook:     hook,
	}
}

// errors returns the messages logged at Error since the last call.
func (h *harness) errors() []string {
	var msgs []string
	for _, e := range h.hook.AllEntries() {
		if e.Level == log.ErrorLevel {
			msgs = append(msgs, e.Message)
		}
	}
	h.hook.Reset()
	return msgs
}

func triangle() *core.VertexData {
	return &core.VertexData{
		Points: []glm.Vec3{{0, -0.5, 0}, {0.5, 0.5, 0}, {-0.5, 0.5, 0}},
	}
}

func TestCreateInvalidAdapter(t *testing.T) {
	c := qt.New(t)
	logger, hook := test.NewNullLogger()
	cfg := core.DefaultConfiguration()
	cfg.Renderer.Adapter = 5
	g := Create(devicetest.NewInstance(), cfg, gfx.Options{
		Compiler: padCompiler{},
		Log:      log.NewEntry(logger),
	})
	c.Assert(g, qt.IsNil)
	c.Assert(hook.LastEntry().Level, qt.Equals, log.ErrorLevel)
	c.Assert(hook.LastEntry().Message, qt.Equals, "device not created")
	// a nil Graphics can be destroyed
	g.Destroy()
}

func TestTriangle(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c)

	sc := h.CreateSwapchain(1, 800, 600)
	c.Assert(sc, qt.IsNotNil)
	w, ht := h.Size()
	c.Assert(w, qt.Equals, uint32(800))
	c.Assert(ht, qt.Equals, uint32(600))

	vb := h.CreateVertexBuffer(triangle(), false)
	vs := h.CreateVertexShader(vertexSource, "color.vert.wgsl")
	fs := h.CreateFragmentShader(fragmentSource, "color.frag.wgsl")
	c.Assert(vb, qt.IsNotNil)
	c.Assert(vs, qt.IsNotNil)
	c.Assert(fs, qt.IsNotNil)

	h.LoadVertexBuffer(vb)
	h.LoadVertexShader(vs)
	h.LoadFragmentShader(fs)
	c.Assert(h.VertexShader(), qt.Equals, vs)
	c.Assert(h.FragmentShader(), qt.Equals, fs)
	h.SetVec4(h.Param(fs, "Tint"), glm.Vec4{1, 0, 0, 1})
	h.Draw(core.DrawTriangles, 0, 0)
	c.Assert(h.Present(), qt.IsTrue)
	c.Assert(h.errors(), qt.HasLen, 0)

	var frame *devicetest.CommandBuffer
	for _, s := range h.driver.Submits {
		if s.Wait != 0 {
			frame = h.driver.CommandBuffer(s.CommandBuffer)
		}
	}
	c.Assert(frame, qt.IsNotNil)
	draws := frame.Draws()
	c.Assert(draws, qt.HasLen, 1)
	c.Assert(draws[0].Count, qt.Equals, uint32(3))
	c.Assert(h.driver.Presents, qt.HasLen, 1)
	c.Assert(h.driver.Presents[0].Swapchain, qt.Equals, sc.Handle())
}

func TestFailuresAreLogged(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c)

	c.Assert(h.Present(), qt.IsFalse)
	c.Assert(h.hook.LastEntry().Level, qt.Equals, log.DebugLevel)
	c.Assert(h.hook.LastEntry().Message, qt.Equals, "frame dropped")
	h.hook.Reset()

	h.Draw(core.DrawTriangles, 0, 0)
	c.Assert(h.errors(), qt.DeepEquals, []string{"draw failed"})

	// a fragment stage cannot be created as a vertex shader
	c.Assert(h.CreateVertexShader(fragmentSource, "color.frag.wgsl"), qt.IsNil)
	c.Assert(h.errors(), qt.DeepEquals, []string{"shader not created"})

	c.Assert(h.CreateTexture(4, 4, core.FormatDXT1, nil, false), qt.IsNil)
	c.Assert(h.errors(), qt.DeepEquals, []string{"texture not created"})

	c.Assert(h.CreateVertexBuffer(&core.VertexData{}, false), qt.IsNil)
	c.Assert(h.errors(), qt.DeepEquals, []string{"vertex buffer not created"})

	c.Assert(h.CreateIndexBuffer([]uint32{70000}, device.IndexUint16, false), qt.IsNil)
	c.Assert(h.errors(), qt.DeepEquals, []string{"index buffer not created"})

	h.LoadTexture(nil, 0)
	c.Assert(h.errors(), qt.DeepEquals, []string{"texture not loaded"})

	h.Resize(640, 480)
	c.Assert(h.errors(), qt.DeepEquals, []string{"resize failed"})

	c.Assert(h.StageFrame(nil), qt.IsFalse)
	surf := h.CreateStageSurface(800, 600, core.FormatBGRA)
	c.Assert(surf, qt.IsNotNil)
	defer h.DestroyStageSurface(surf)
	c.Assert(h.StageFrame(surf), qt.IsFalse)
	c.Assert(h.errors(), qt.DeepEquals, []string{"frame not staged"})
}

func TestParams(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c)
	fs := h.CreateFragmentShader(fragmentSource, "color.frag.wgsl")
	c.Assert(fs, qt.IsNotNil)

	c.Assert(h.Param(fs, "Gloss"), qt.IsNil)
	c.Assert(h.hook.LastEntry().Level, qt.Equals, log.WarnLevel)
	c.Assert(h.ParamAt(fs, 1), qt.IsNil)
	c.Assert(h.Param(nil, "Tint"), qt.IsNil)
	h.hook.Reset()

	tint := h.ParamAt(fs, 0)
	c.Assert(tint.Name(), qt.Equals, "Tint")
	h.SetFloat(tint, 1)
	c.Assert(h.errors(), qt.DeepEquals, []string{"parameter not set"})

	h.SetVec4(tint, glm.Vec4{0.5, 0.5, 0.5, 1})
	h.SetDefault(tint)
	c.Assert(h.errors(), qt.HasLen, 0)

	// setters ignore a missing parameter
	h.SetMatrix4(nil, glm.Ident4())
	h.SetDefault(nil)
	c.Assert(h.errors(), qt.HasLen, 0)
}

func TestResourceLifetime(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c)

	tex := h.CreateTexture(4, 4, core.FormatRGBA, nil, true)
	c.Assert(tex, qt.IsNotNil)
	data, pitch, ok := h.MapTexture(tex)
	c.Assert(ok, qt.IsTrue)
	c.Assert(pitch, qt.Equals, uint32(16))
	data[0] = 0xFF
	h.UnmapTexture(tex)
	c.Assert(h.driver.ImageData(tex.Image())[0], qt.Equals, byte(0xFF))

	smp := h.CreateSampler(core.SamplerInfo{Filter: core.FilterLinear, AddressU: core.AddressWrap})
	c.Assert(smp, qt.IsNotNil)
	tex.SetSampler(smp)
	h.DestroySampler(smp)
	c.Assert(tex.Sampler(), qt.IsNil)

	ib := h.CreateIndexBuffer([]uint32{0, 1, 2}, device.IndexUint32, true)
	c.Assert(h.FlushIndexBuffer(ib, []uint32{2, 1, 0}), qt.IsTrue)
	c.Assert(h.FlushIndexBuffer(ib, []uint32{0, 1, 2, 3}), qt.IsFalse)
	c.Assert(h.errors(), qt.DeepEquals, []string{"index buffer not flushed"})

	vb := h.CreateVertexBuffer(triangle(), false)
	c.Assert(h.FlushVertexBuffer(vb, triangle()), qt.IsFalse)
	c.Assert(h.errors(), qt.DeepEquals, []string{"vertex buffer not flushed"})

	h.DestroyTexture(tex)
	h.DestroyIndexBuffer(ib)
	h.DestroyVertexBuffer(vb)
	c.Assert(h.driver.Live("image"), qt.Equals, 0)
	c.Assert(h.driver.Live("buffer"), qt.Equals, 0)

	// nil handles are ignored
	h.DestroyTexture(nil)
	h.DestroyShader(nil)
	h.DestroySwapchain(nil)
	c.Assert(h.errors(), qt.HasLen, 0)
}
