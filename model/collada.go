// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/util/collada"
	glm "github.com/go-gl/mathgl/mgl32"
)

type corner struct {
	position, normal int
}

// ImportCollada reads the first geometry of a Collada document. Corners
// sharing a position and a normal become one vertex.
func ImportCollada(fileContents []byte) (*Mesh, error) {
	var doc collada.Collada
	if err := xml.Unmarshal(fileContents, &doc); err != nil {
		return nil, err
	}
	if len(doc.Geometries) == 0 {
		return nil, errors.New("no geometry in document")
	}
	mesh := &doc.Geometries[0].Mesh
	triangles := &mesh.Triangles

	vertexInput, ok := triangles.Input("VERTEX")
	if !ok {
		return nil, errors.New("triangles without VERTEX input")
	}
	positions, err := positionSource(mesh, vertexInput.Source)
	if err != nil {
		return nil, err
	}
	var normals *collada.Source
	normalInput, hasNormals := triangles.Input("NORMAL")
	if hasNormals {
		if normals, err = mesh.FindSource(normalInput.Source); err != nil {
			return nil, err
		}
	}

	stride := triangles.Stride()
	if stride == 0 || len(triangles.Index)%stride != 0 {
		return nil, fmt.Errorf("%d indices do not divide into %d inputs", len(triangles.Index), stride)
	}

	data := &core.VertexData{}
	seen := make(map[corner]uint32)
	indices := make([]uint32, 0, len(triangles.Index)/stride)
	for i := 0; i < len(triangles.Index); i += stride {
		key := corner{position: triangles.Index[i+int(vertexInput.Offset)], normal: -1}
		if hasNormals {
			key.normal = triangles.Index[i+int(normalInput.Offset)]
		}
		if idx, ok := seen[key]; ok {
			indices = append(indices, idx)
			continue
		}
		p, err := positions.Element(key.position)
		if err != nil {
			return nil, err
		}
		if len(p) < 3 {
			return nil, fmt.Errorf("position source %s is %d wide", positions.ID, len(p))
		}
		data.Points = append(data.Points, glm.Vec3{p[0], p[1], p[2]})
		if hasNormals {
			n, err := normals.Element(key.normal)
			if err != nil {
				return nil, err
			}
			if len(n) < 3 {
				return nil, fmt.Errorf("normal source %s is %d wide", normals.ID, len(n))
			}
			data.Normals = append(data.Normals, glm.Vec3{n[0], n[1], n[2]})
		}
		idx := uint32(len(data.Points) - 1)
		seen[key] = idx
		indices = append(indices, idx)
	}
	return NewMesh(data, indices), nil
}

// positionSource resolves the VERTEX input through the vertices element
// to its POSITION source.
func positionSource(mesh *collada.Mesh, ref string) (*collada.Source, error) {
	if src, err := mesh.FindSource(ref); err == nil {
		return src, nil
	}
	for _, in := range mesh.Vertices.Inputs {
		if in.Semantic == "POSITION" {
			return mesh.FindSource(in.Source)
		}
	}
	return nil, fmt.Errorf("vertices %s without POSITION input", ref)
}
