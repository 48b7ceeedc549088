// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model holds meshes ready to be uploaded as vertex and index
// buffers.
package model

import (
	"sync"

	"github.com/devblok/korugs/core"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Object represents the engine supported model
type Object interface {

	// SetPosition sets the object's current position in space.
	// Has to be thread-safe
	SetPosition(glm.Mat4)

	// Position gets the object's current position in space.
	// Has to be thread-safe
	Position() glm.Mat4

	// SetRotation sets the object's rotation matrix.
	// Has to be thread-safe
	SetRotation(glm.Mat4)

	// Rotation gets the object's rotation matrix.
	// Has to be thread-safe
	Rotation() glm.Mat4

	// Vertices returns the per-vertex data uploaded to a vertex buffer
	Vertices() *core.VertexData

	// Indices returns the triangle list indices into Vertices
	Indices() []uint32
}

// Mesh is an indexed triangle list placed in space.
type Mesh struct {
	mutex    sync.RWMutex
	position glm.Mat4
	rotation glm.Mat4

	vertices *core.VertexData
	indices  []uint32
}

var _ Object = (*Mesh)(nil)

// NewMesh creates a mesh at the origin.
func NewMesh(vertices *core.VertexData, indices []uint32) *Mesh {
	return &Mesh{
		position: glm.Ident4(),
		rotation: glm.Ident4(),
		vertices: vertices,
		indices:  indices,
	}
}

// SetPosition implements interface
func (m *Mesh) SetPosition(pos glm.Mat4) {
	m.mutex.Lock()
	m.position = pos
	m.mutex.Unlock()
}

// Position implements interface
func (m *Mesh) Position() glm.Mat4 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.position
}

// SetRotation implements interface
func (m *Mesh) SetRotation(rot glm.Mat4) {
	m.mutex.Lock()
	m.rotation = rot
	m.mutex.Unlock()
}

// Rotation implements interface
func (m *Mesh) Rotation() glm.Mat4 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.rotation
}

// World is the position times the rotation.
func (m *Mesh) World() glm.Mat4 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.position.Mul4(m.rotation)
}

// Vertices implements interface
func (m *Mesh) Vertices() *core.VertexData {
	return m.vertices
}

// Indices implements interface
func (m *Mesh) Indices() []uint32 {
	return m.indices
}

// Triangle is a colored triangle in normalized device coordinates.
func Triangle() *Mesh {
	return NewMesh(&core.VertexData{
		Points: []glm.Vec3{{0, -0.5, 0}, {0.5, 0.5, 0}, {-0.5, 0.5, 0}},
		Colors: []uint32{0xff0000ff, 0xff00ff00, 0xffff0000},
	}, []uint32{0, 1, 2})
}

// Quad is a unit quad facing +z with texture coordinates.
func Quad() *Mesh {
	return NewMesh(&core.VertexData{
		Points:  []glm.Vec3{{-0.5, -0.5, 0}, {0.5, -0.5, 0}, {0.5, 0.5, 0}, {-0.5, 0.5, 0}},
		Normals: []glm.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		TexVerts: []core.TexVerts{{
			Width: 2,
			Data:  []float32{0, 1, 1, 1, 1, 0, 0, 0},
		}},
	}, []uint32{0, 1, 2, 2, 3, 0})
}
