// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core holds the API neutral types shared by every layer:
// configuration, error kinds, color formats and vertex data.
package core

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

func (s ShaderType) String() string {
	switch s {
	case VertexShaderType:
		return "vertex"
	case FragmentShaderType:
		return "fragment"
	}
	return "unknown"
}

// ColorFormat is an API neutral texture format
type ColorFormat int

// Color formats
const (
	FormatUnknown ColorFormat = iota
	FormatA8
	FormatR8
	FormatRGBA
	FormatBGRX
	FormatBGRA
	FormatR10G10B10A2
	FormatRGBA16
	FormatR16
	FormatRGBA16F
	FormatRGBA32F
	FormatRG16F
	FormatRG32F
	FormatR16F
	FormatR32F
	FormatDXT1
	FormatDXT3
	FormatDXT5
	FormatR8G8
	FormatRGBAUnorm
	FormatBGRXUnorm
	FormatBGRAUnorm
	FormatRG16
)

var colorFormatBits = map[ColorFormat]int{
	FormatA8:          8,
	FormatR8:          8,
	FormatRGBA:        32,
	FormatBGRX:        32,
	FormatBGRA:        32,
	FormatR10G10B10A2: 32,
	FormatRGBA16:      64,
	FormatR16:         16,
	FormatRGBA16F:     64,
	FormatRGBA32F:     128,
	FormatRG16F:       32,
	FormatRG32F:       64,
	FormatR16F:        16,
	FormatR32F:        32,
	FormatDXT1:        4,
	FormatDXT3:        8,
	FormatDXT5:        8,
	FormatR8G8:        16,
	FormatRGBAUnorm:   32,
	FormatBGRXUnorm:   32,
	FormatBGRAUnorm:   32,
	FormatRG16:        32,
}

// BitsPerPixel returns the storage size of one texel
func (f ColorFormat) BitsPerPixel() int {
	return colorFormatBits[f]
}

// IsCompressed reports block compressed formats
func (f ColorFormat) IsCompressed() bool {
	return f == FormatDXT1 || f == FormatDXT3 || f == FormatDXT5
}

// TextureSize is the byte size of one level with rows padded to four bytes.
func TextureSize(f ColorFormat, width, height uint32) uint64 {
	row := (uint64(width)*uint64(f.BitsPerPixel())/8 + 3) &^ 3
	return row * uint64(height)
}

// SampleFilter selects the texel filters of a sampler
type SampleFilter int

// Sample filters
const (
	FilterPoint SampleFilter = iota
	FilterLinear
	FilterAnisotropic
	FilterMinMagPointMipLinear
	FilterMinPointMagLinearMipPoint
	FilterMinPointMagMipLinear
	FilterMinLinearMagMipPoint
	FilterMinLinearMagPointMipLinear
	FilterMinMagLinearMipPoint
)

// AddressMode selects how out of range coordinates are sampled
type AddressMode int

// Address modes
const (
	AddressClamp AddressMode = iota
	AddressWrap
	AddressMirror
	AddressBorder
	AddressMirrorOnce
)

// SamplerInfo is an API neutral sampler description
type SamplerInfo struct {
	Filter        SampleFilter
	AddressU      AddressMode
	AddressV      AddressMode
	AddressW      AddressMode
	MaxAnisotropy int
	BorderColor   uint32
}

// DrawMode is the primitive topology of a draw call
type DrawMode int

// Draw modes
const (
	DrawPoints DrawMode = iota
	DrawLines
	DrawLineStrip
	DrawTriangles
	DrawTriangleStrip
)

// ClearFlags selects the targets cleared by Clear
type ClearFlags uint32

// Clear targets
const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil
)

// TexVerts is one set of texture coordinates, Width floats per vertex
type TexVerts struct {
	Width int
	Data  []float32
}

// VertexData is the API neutral per-vertex input, one slice per attribute.
// Points is required, every other attribute is optional.
type VertexData struct {
	Points   []glm.Vec3
	Normals  []glm.Vec3
	Tangents []glm.Vec3
	Colors   []uint32
	TexVerts []TexVerts
}

// Len is the number of vertices
func (v *VertexData) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Points)
}
