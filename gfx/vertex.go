// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"encoding/binary"
	"fmt"
	"math"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/shader"
)

// vertexFormat tells which attributes data carries.
func vertexFormat(data *core.VertexData) shader.VertexFormat {
	f := shader.VertexFormat{
		Normals:  len(data.Normals) > 0,
		Tangents: len(data.Tangents) > 0,
		Colors:   len(data.Colors) > 0,
	}
	for _, tv := range data.TexVerts {
		f.TexCoords = append(f.TexCoords, tv.Width)
	}
	return f
}

func putVec4(dst []byte, v glm.Vec3, w float32) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(v[2]))
	binary.LittleEndian.PutUint32(dst[12:], math.Float32bits(w))
}

// packVertices interleaves data into one record per vertex, laid out by
// shader.VertexFormat.Layout.
func packVertices(data *core.VertexData) ([]byte, shader.VertexFormat, error) {
	n := data.Len()
	if n == 0 {
		return nil, shader.VertexFormat{}, fmt.Errorf("%w: no vertices", core.ErrSizeMismatch)
	}
	format := vertexFormat(data)
	for _, attr := range []struct {
		name string
		len  int
	}{
		{"normals", len(data.Normals)},
		{"tangents", len(data.Tangents)},
		{"colors", len(data.Colors)},
	} {
		if attr.len != 0 && attr.len != n {
			return nil, format, fmt.Errorf("%w: %d %s for %d points", core.ErrSizeMismatch, attr.len, attr.name, n)
		}
	}
	for i, tv := range data.TexVerts {
		if tv.Width < 2 || tv.Width > 4 {
			return nil, format, fmt.Errorf("uv set %d: width %d", i, tv.Width)
		}
		if len(tv.Data) != tv.Width*n {
			return nil, format, fmt.Errorf("%w: uv set %d holds %d floats for %d points", core.ErrSizeMismatch, i, len(tv.Data), n)
		}
	}

	elements, stride := format.Layout()
	out := make([]byte, int(stride)*n)
	for v := 0; v < n; v++ {
		record := out[v*int(stride):]
		for _, el := range elements {
			dst := record[el.Offset:]
			switch el.Semantic {
			case shader.InputPosition:
				putVec4(dst, data.Points[v], 1)
			case shader.InputNormal:
				putVec4(dst, data.Normals[v], 0)
			case shader.InputTangent:
				putVec4(dst, data.Tangents[v], 0)
			case shader.InputColor:
				binary.LittleEndian.PutUint32(dst, data.Colors[v])
			case shader.InputTexCoord:
				tv := data.TexVerts[el.Set]
				for c := 0; c < tv.Width; c++ {
					binary.LittleEndian.PutUint32(dst[c*4:], math.Float32bits(tv.Data[v*tv.Width+c]))
				}
			}
		}
	}
	return out, format, nil
}
