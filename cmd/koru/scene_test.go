// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/image/bmp"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device/devicetest"
	"github.com/devblok/korugs/gfx"
	"github.com/devblok/korugs/graphics"
	"github.com/devblok/korugs/model"
)

type padCompiler struct{}

func (padCompiler) Compile(source string) ([]byte, error) {
	code := []byte(source)
	for len(code)%4 != 0 {
		code = append(code, 0)
	}
	return code, nil
}

func newGraphics(c *qt.C) (*graphics.Graphics, *devicetest.Driver, *test.Hook) {
	logger, hook := test.NewNullLogger()
	inst := devicetest.NewInstance()
	g := graphics.Create(inst, core.DefaultConfiguration(), gfx.Options{
		Compiler: padCompiler{},
		Log:      log.NewEntry(logger),
	})
	c.Assert(g, qt.IsNotNil)
	c.Cleanup(g.Destroy)
	return g, inst.Drivers[0], hook
}

func shaderSources(c *qt.C) map[string]string {
	sources := make(map[string]string)
	c.Assert(dirSources("shaders", sources), qt.IsNil)
	return sources
}

func TestDirSources(t *testing.T) {
	c := qt.New(t)
	sources := shaderSources(c)
	c.Assert(sources, qt.HasLen, 4)
	c.Assert(sources["lit.frag.wgsl"], qt.Contains, "var<uniform> light: Light;")

	// files of other kinds are skipped
	dir := t.TempDir()
	c.Assert(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(dir, "color.frag.wgsl"), []byte("override"), 0644), qt.IsNil)
	c.Assert(dirSources(dir, sources), qt.IsNil)
	c.Assert(sources, qt.HasLen, 4)
	c.Assert(sources["color.frag.wgsl"], qt.Equals, "override")

	c.Assert(dirSources(filepath.Join(dir, "missing"), sources), qt.IsNotNil)
}

func TestShaderNames(t *testing.T) {
	c := qt.New(t)
	vs, fs := shaderNames(model.Triangle())
	c.Assert(vs, qt.Equals, "color.vert.wgsl")
	c.Assert(fs, qt.Equals, "color.frag.wgsl")
	vs, fs = shaderNames(model.Quad())
	c.Assert(vs, qt.Equals, "lit.vert.wgsl")
	c.Assert(fs, qt.Equals, "lit.frag.wgsl")
}

func TestLoadMesh(t *testing.T) {
	c := qt.New(t)
	mesh, err := loadMesh("")
	c.Assert(err, qt.IsNil)
	c.Assert(mesh.Indices(), qt.HasLen, 3)

	path := filepath.Join(t.TempDir(), "broken.dae")
	c.Assert(os.WriteFile(path, []byte("<COLLADA></COLLADA>"), 0644), qt.IsNil)
	_, err = loadMesh(path)
	c.Assert(err, qt.ErrorMatches, ".*broken.dae: .*")
}

func TestSceneDraws(t *testing.T) {
	c := qt.New(t)
	g, driver, hook := newGraphics(c)
	c.Assert(g.CreateSwapchain(1, 800, 600), qt.IsNotNil)

	s, err := newScene(g, model.Triangle(), shaderSources(c))
	c.Assert(err, qt.IsNil)
	s.draw(g.Size())
	c.Assert(g.Present(), qt.IsTrue)
	for _, e := range hook.AllEntries() {
		c.Assert(e.Level, qt.Not(qt.Equals), log.ErrorLevel, qt.Commentf("%s", e.Message))
	}

	var frame *devicetest.CommandBuffer
	for _, sub := range driver.Submits {
		if sub.Wait != 0 {
			frame = driver.CommandBuffer(sub.CommandBuffer)
		}
	}
	c.Assert(frame, qt.IsNotNil)
	draws := frame.Draws()
	c.Assert(draws, qt.HasLen, 1)
	c.Assert(draws[0].Op, qt.Equals, "DrawIndexed")
	c.Assert(draws[0].Count, qt.Equals, uint32(3))
	c.Assert(s.angle > 0, qt.IsTrue)
}

func TestSceneReload(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newGraphics(c)
	c.Assert(g.CreateSwapchain(1, 800, 600), qt.IsNotNil)

	sources := shaderSources(c)
	s, err := newScene(g, model.Quad(), sources)
	c.Assert(err, qt.IsNil)
	c.Assert(s.uses("/somewhere/lit.frag.wgsl"), qt.IsTrue)
	c.Assert(s.uses("/somewhere/color.frag.wgsl"), qt.IsFalse)

	old := s.fs
	c.Assert(s.reload("lit.frag.wgsl", sources["lit.frag.wgsl"]), qt.IsTrue)
	c.Assert(s.fs, qt.Not(qt.Equals), old)
	c.Assert(g.FragmentShader(), qt.Equals, s.fs)
	c.Assert(s.fs.Param("Ambient"), qt.IsNotNil)

	// a vertex source offered as the fragment stage does not replace it
	kept := s.fs
	c.Assert(s.reload("lit.frag.wgsl", sources["lit.vert.wgsl"]), qt.IsFalse)
	c.Assert(s.fs, qt.Equals, kept)

	s.draw(g.Size())
	c.Assert(g.Present(), qt.IsTrue)
	s.destroy()
}

func TestSceneMissingShader(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newGraphics(c)
	_, err := newScene(g, model.Triangle(), map[string]string{})
	c.Assert(err, qt.ErrorMatches, "shader color.vert.wgsl not found")
}

func TestSaveFrame(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newGraphics(c)
	sc := g.CreateSwapchain(1, 800, 600)
	c.Assert(sc, qt.IsNotNil)

	dir := t.TempDir()
	_, err := saveFrame(g, sc, dir)
	c.Assert(err, qt.ErrorMatches, "frame not staged")

	s, err := newScene(g, model.Triangle(), shaderSources(c))
	c.Assert(err, qt.IsNil)
	s.draw(g.Size())
	c.Assert(g.Present(), qt.IsTrue)

	path, err := saveFrame(g, sc, dir)
	c.Assert(err, qt.IsNil)
	f, err := os.Open(path)
	c.Assert(err, qt.IsNil)
	defer f.Close()
	img, err := bmp.Decode(f)
	c.Assert(err, qt.IsNil)
	c.Assert(img.Bounds().Dx(), qt.Equals, 800)
	c.Assert(img.Bounds().Dy(), qt.Equals, 600)
}
