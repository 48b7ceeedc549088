// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korugs/shader"
	"github.com/devblok/korugs/utility/kar"
)

type padCompiler struct{}

func (padCompiler) Compile(source string) ([]byte, error) {
	code := []byte(source)
	for len(code)%4 != 0 {
		code = append(code, 0)
	}
	return code, nil
}

const commonSource = `struct Material {
	Tint: vec4<f32>, // = 1, 1, 1, 1
}
`

const fragmentSource = `#include "common.wgsl"

var<uniform> material: Material;

@fragment
fn main() -> @location(0) vec4<f32> {
	return material.Tint;
}
`

const vertexSource = `struct Uniforms {
	ViewProj: mat4x4<f32>,
}

var<uniform> u: Uniforms;

@vertex
fn main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
	return u.ViewProj * vec4<f32>(position, 1.0);
}
`

func writeFiles(c *qt.C, dir string, files map[string]string) {
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(path), 0755), qt.IsNil)
		c.Assert(os.WriteFile(path, []byte(content), 0644), qt.IsNil)
	}
}

func testHeader() kar.Header {
	return kar.Header{Author: "tester", DateCreated: 0, Version: 3}
}

func TestCompressListExtract(t *testing.T) {
	c := qt.New(t)
	src := t.TempDir()
	writeFiles(c, src, map[string]string{
		"a.txt":        "first file",
		"nested/b.txt": strings.Repeat("second ", 100),
	})

	dst := filepath.Join(t.TempDir(), "out.kar")
	c.Assert(createFile(dst, func(w io.Writer) error {
		return compressFiles(src, w, testHeader())
	}), qt.IsNil)
	c.Assert(createFile(dst, func(io.Writer) error { return nil }), qt.Equals, errExists)

	var listing bytes.Buffer
	c.Assert(listArchive(dst, &listing), qt.IsNil)
	c.Assert(listing.String(), qt.Contains, "author: tester\nversion: 3\ncreated: 1970-01-01T00:00:00Z\n")
	c.Assert(listing.String(), qt.Contains, "a.txt\n")
	c.Assert(listing.String(), qt.Contains, "nested/b.txt\n")

	out := t.TempDir()
	c.Assert(extractArchive(dst, out), qt.IsNil)
	data, err := os.ReadFile(filepath.Join(out, "nested", "b.txt"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, strings.Repeat("second ", 100))
	data, err = os.ReadFile(filepath.Join(out, "a.txt"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "first file")
}

func TestCompressSingleFile(t *testing.T) {
	c := qt.New(t)
	src := t.TempDir()
	writeFiles(c, src, map[string]string{"only.txt": "alone"})

	var buf bytes.Buffer
	c.Assert(compressFiles(filepath.Join(src, "only.txt"), &buf, testHeader()), qt.IsNil)
	archive, err := kar.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	c.Assert(archive.Files(), qt.DeepEquals, []string{"only.txt"})
}

func TestCreateFileRemovesOnFailure(t *testing.T) {
	c := qt.New(t)
	dst := filepath.Join(t.TempDir(), "out.kar")
	err := createFile(dst, func(io.Writer) error {
		return compressFiles(filepath.Join(t.TempDir(), "missing"), io.Discard, testHeader())
	})
	c.Assert(err, qt.IsNotNil)
	_, err = os.Stat(dst)
	c.Assert(os.IsNotExist(err), qt.IsTrue)
}

func TestCompileShaders(t *testing.T) {
	c := qt.New(t)
	src := t.TempDir()
	writeFiles(c, src, map[string]string{
		"common.wgsl":          commonSource,
		"color.frag.wgsl":      fragmentSource,
		"mesh/color.vert.wgsl": vertexSource,
		"mesh/readme.txt":      "not a shader",
	})

	dst := filepath.Join(t.TempDir(), "shaders.kar")
	c.Assert(createFile(dst, func(w io.Writer) error {
		return compileShaders(src, w, testHeader(), padCompiler{})
	}), qt.IsNil)

	bundle, err := shader.OpenBundle(dst)
	c.Assert(err, qt.IsNil)
	defer bundle.Close()

	keys := bundle.Keys()
	sort.Strings(keys)
	c.Assert(keys, qt.DeepEquals, []string{"color.frag.wgsl", "mesh/color.vert.wgsl"})

	hash, err := bundle.Hash("color.frag.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(hash, qt.DeepEquals, shader.Hash(fragmentSource))

	code, err := bundle.Get("mesh/color.vert.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(string(code), qt.Contains, "@group(0) @binding(0) var<uniform> u: Uniforms;")
}

func TestCompileShadersFailures(t *testing.T) {
	c := qt.New(t)
	empty := t.TempDir()
	c.Assert(compileShaders(empty, io.Discard, testHeader(), padCompiler{}), qt.ErrorMatches, "no shaders in .*")

	broken := t.TempDir()
	writeFiles(c, broken, map[string]string{"color.frag.wgsl": fragmentSource})
	c.Assert(compileShaders(broken, io.Discard, testHeader(), padCompiler{}), qt.ErrorMatches, ".*include common.wgsl.*")
}

func TestArchiveName(t *testing.T) {
	c := qt.New(t)
	root := filepath.Join("a", "b")
	c.Assert(archiveName(root, filepath.Join(root, "c", "d.txt")), qt.Equals, "c/d.txt")
	c.Assert(archiveName(filepath.Join(root, "e.txt"), filepath.Join(root, "e.txt")), qt.Equals, "e.txt")
}
