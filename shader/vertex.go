// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"fmt"

	"github.com/devblok/korugs/device"
)

// VertexFormat tells which attributes an interleaved vertex record
// carries. Positions are always present. TexCoords holds the component
// count of every texture coordinate set.
type VertexFormat struct {
	Normals   bool
	Tangents  bool
	Colors    bool
	TexCoords []int
}

// Equal reports whether two formats produce the same record.
func (f VertexFormat) Equal(o VertexFormat) bool {
	if f.Normals != o.Normals || f.Tangents != o.Tangents || f.Colors != o.Colors || len(f.TexCoords) != len(o.TexCoords) {
		return false
	}
	for i := range f.TexCoords {
		if f.TexCoords[i] != o.TexCoords[i] {
			return false
		}
	}
	return true
}

func (f VertexFormat) String() string {
	return fmt.Sprintf("point normals=%t tangents=%t colors=%t uv=%v", f.Normals, f.Tangents, f.Colors, f.TexCoords)
}

// VertexElement is the placement of one attribute in the record.
type VertexElement struct {
	Semantic Input
	Set      int
	Offset   uint32
	Size     uint32
	Format   device.Format
}

// Layout places the attributes of a vertex record: point, normal and
// tangent as vec4, color as packed RGBA8, then every texture coordinate
// set. Vertex buffers and vertex shaders both derive their layout here.
func (f VertexFormat) Layout() (elements []VertexElement, stride uint32) {
	add := func(sem Input, set int, size uint32, format device.Format) {
		elements = append(elements, VertexElement{Semantic: sem, Set: set, Offset: stride, Size: size, Format: format})
		stride += size
	}
	add(InputPosition, 0, 16, device.FormatR32G32B32A32Sfloat)
	if f.Normals {
		add(InputNormal, 0, 16, device.FormatR32G32B32A32Sfloat)
	}
	if f.Tangents {
		add(InputTangent, 0, 16, device.FormatR32G32B32A32Sfloat)
	}
	if f.Colors {
		add(InputColor, 0, 4, device.FormatR8G8B8A8Unorm)
	}
	for set, width := range f.TexCoords {
		switch width {
		case 2:
			add(InputTexCoord, set, 8, device.FormatR32G32Sfloat)
		case 3:
			add(InputTexCoord, set, 12, device.FormatR32G32B32Sfloat)
		default:
			add(InputTexCoord, set, 16, device.FormatR32G32B32A32Sfloat)
		}
	}
	return elements, stride
}

// FormatOf derives the vertex format a shader expects from its inputs.
func FormatOf(inputs []InputAttribute) VertexFormat {
	var f VertexFormat
	for _, in := range inputs {
		switch in.Semantic {
		case InputNormal:
			f.Normals = true
		case InputTangent:
			f.Tangents = true
		case InputColor:
			f.Colors = true
		case InputTexCoord:
			f.TexCoords = append(f.TexCoords, in.Width)
		}
	}
	return f
}

// VertexAttributes maps the inputs of a vertex shader onto the record
// layout of its own format.
func VertexAttributes(inputs []InputAttribute) ([]device.VertexAttribute, uint32) {
	attrs, stride, _ := MapAttributes(inputs, FormatOf(inputs))
	return attrs, stride
}

// MapAttributes maps the inputs of a vertex shader onto the record layout
// of f. Records may carry attributes the shader does not read, every input
// must be present in f.
func MapAttributes(inputs []InputAttribute, f VertexFormat) ([]device.VertexAttribute, uint32, error) {
	elements, stride := f.Layout()
	attrs := make([]device.VertexAttribute, 0, len(inputs))
	set := 0
	for _, in := range inputs {
		want := 0
		if in.Semantic == InputTexCoord {
			want = set
			set++
		}
		found := false
		for _, el := range elements {
			if el.Semantic == in.Semantic && el.Set == want {
				attrs = append(attrs, device.VertexAttribute{
					Location: in.Location,
					Format:   el.Format,
					Offset:   el.Offset,
				})
				found = true
				break
			}
		}
		if !found {
			return nil, 0, fmt.Errorf("input %s (%s %d) not in vertex format %s", in.Name, in.Semantic, want, f)
		}
	}
	return attrs, stride, nil
}
