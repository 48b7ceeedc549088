// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/gfx"
	"github.com/devblok/korugs/graphics"
	"github.com/devblok/korugs/model"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/gobuffalo/packd"
	"github.com/gobuffalo/packr"
)

const shaderExt = ".wgsl"

// embeddedSources reads the shaders packed into the binary.
func embeddedSources() (map[string]string, error) {
	box := packr.NewBox("./shaders")
	sources := make(map[string]string)
	err := box.Walk(func(name string, f packd.File) error {
		if filepath.Ext(name) == shaderExt {
			sources[filepath.Base(name)] = f.String()
		}
		return nil
	})
	return sources, err
}

// dirSources reads the shaders of dir, overriding the embedded ones.
func dirSources(dir string, sources map[string]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != shaderExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		sources[e.Name()] = string(data)
	}
	return nil
}

// loadMesh imports a collada file, or returns the built in triangle.
func loadMesh(path string) (*model.Mesh, error) {
	if path == "" {
		return model.Triangle(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mesh, err := model.ImportCollada(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mesh, nil
}

// shaderNames picks the program for the attributes a mesh carries.
func shaderNames(mesh *model.Mesh) (vertex, fragment string) {
	if len(mesh.Vertices().Colors) > 0 {
		return "color.vert.wgsl", "color.frag.wgsl"
	}
	return "lit.vert.wgsl", "lit.frag.wgsl"
}

type scene struct {
	g       *graphics.Graphics
	mesh    *model.Mesh
	sources map[string]string

	vb *gfx.VertexBuffer
	ib *gfx.IndexBuffer

	vertex, fragment string
	vs, fs           *gfx.Shader

	angle float32
}

func newScene(g *graphics.Graphics, mesh *model.Mesh, sources map[string]string) (*scene, error) {
	s := &scene{
		g:       g,
		mesh:    mesh,
		sources: sources,
	}
	s.vertex, s.fragment = shaderNames(mesh)

	if s.vb = g.CreateVertexBuffer(mesh.Vertices(), false); s.vb == nil {
		return nil, errors.New("mesh vertices not uploaded")
	}
	if s.ib = g.CreateIndexBuffer(mesh.Indices(), device.IndexUint32, false); s.ib == nil {
		return nil, errors.New("mesh indices not uploaded")
	}
	g.LoadVertexBuffer(s.vb)
	g.LoadIndexBuffer(s.ib)

	for _, name := range []string{s.vertex, s.fragment} {
		source, ok := sources[name]
		if !ok {
			return nil, fmt.Errorf("shader %s not found", name)
		}
		if !s.reload(name, source) {
			return nil, fmt.Errorf("shader %s not created", name)
		}
	}
	return s, nil
}

// reload replaces the shader compiled from file name. A source that does
// not compile keeps the previous shader in place.
func (s *scene) reload(name, source string) bool {
	s.sources[name] = source
	switch name {
	case s.vertex:
		vs := s.g.CreateVertexShader(source, name)
		if vs == nil {
			return false
		}
		s.g.DestroyShader(s.vs)
		s.vs = vs
		s.g.LoadVertexShader(vs)
	case s.fragment:
		fs := s.g.CreateFragmentShader(source, name)
		if fs == nil {
			return false
		}
		s.g.DestroyShader(s.fs)
		s.fs = fs
		s.g.LoadFragmentShader(fs)
	}
	return true
}

// uses reports whether file name belongs to the loaded program.
func (s *scene) uses(name string) bool {
	name = filepath.Base(name)
	return name == s.vertex || name == s.fragment
}

// draw records one frame of the spinning mesh.
func (s *scene) draw(width, height uint32) {
	const near, far = 0.1, 100

	g := s.g
	aspect := float32(width) / float32(height)
	g.Clear(core.ClearColor|core.ClearDepth, glm.Vec4{0.1, 0.1, 0.12, 1}, 1, 0)
	g.Frustum(-aspect*near, aspect*near, near, -near, near, far)

	s.mesh.SetRotation(glm.HomogRotate3D(s.angle, glm.Vec3{0, 1, 0}))
	s.angle += 0.005

	g.MatrixSet(glm.Translate3D(0, 0, -3).Mul4(s.mesh.World()))
	if world := s.vs.Param("World"); world != nil {
		g.SetMatrix4(world, s.mesh.World())
	}
	g.Draw(core.DrawTriangles, 0, 0)
}

func (s *scene) destroy() {
	s.g.DestroyShader(s.vs)
	s.g.DestroyShader(s.fs)
	s.g.DestroyIndexBuffer(s.ib)
	s.g.DestroyVertexBuffer(s.vb)
}
