// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

// transform holds the matrix stack and the projection stack. The view
// projection parameter is projection times the top of the matrix stack.
type transform struct {
	matrices    []glm.Mat4
	projection  glm.Mat4
	projections []glm.Mat4
	dirty       bool
}

func newTransform() transform {
	return transform{
		matrices:   []glm.Mat4{glm.Ident4()},
		projection: glm.Ident4(),
		dirty:      true,
	}
}

func (t *transform) top() *glm.Mat4 {
	return &t.matrices[len(t.matrices)-1]
}

func (t *transform) viewProj() glm.Mat4 {
	return t.projection.Mul4(*t.top())
}

// MatrixPush duplicates the top of the matrix stack.
func (d *Device) MatrixPush() {
	d.transform.matrices = append(d.transform.matrices, *d.transform.top())
}

// MatrixPop drops the top of the matrix stack. The last matrix is never
// popped.
func (d *Device) MatrixPop() {
	t := &d.transform
	if len(t.matrices) == 1 {
		d.log.Warn("matrix stack underflow")
		return
	}
	t.matrices = t.matrices[:len(t.matrices)-1]
	t.dirty = true
}

// MatrixIdentity resets the top of the matrix stack.
func (d *Device) MatrixIdentity() {
	d.MatrixSet(glm.Ident4())
}

// MatrixSet replaces the top of the matrix stack.
func (d *Device) MatrixSet(m glm.Mat4) {
	*d.transform.top() = m
	d.transform.dirty = true
}

// Matrix returns the top of the matrix stack.
func (d *Device) Matrix() glm.Mat4 {
	return *d.transform.top()
}

// MatrixMul multiplies the top of the matrix stack by m.
func (d *Device) MatrixMul(m glm.Mat4) {
	d.MatrixSet(d.Matrix().Mul4(m))
}

// MatrixTranslate applies a translation.
func (d *Device) MatrixTranslate(v glm.Vec3) {
	d.MatrixMul(glm.Translate3D(v.X(), v.Y(), v.Z()))
}

// MatrixScale applies a scale.
func (d *Device) MatrixScale(v glm.Vec3) {
	d.MatrixMul(glm.Scale3D(v.X(), v.Y(), v.Z()))
}

// MatrixRotate applies a rotation of angle radians around axis.
func (d *Device) MatrixRotate(angle float32, axis glm.Vec3) {
	d.MatrixMul(glm.HomogRotate3D(angle, axis.Normalize()))
}

// Ortho sets an orthographic projection.
func (d *Device) Ortho(left, right, top, bottom, near, far float32) {
	d.SetProjection(glm.Ortho(left, right, bottom, top, near, far))
}

// Frustum sets a perspective projection.
func (d *Device) Frustum(left, right, top, bottom, near, far float32) {
	d.SetProjection(glm.Frustum(left, right, bottom, top, near, far))
}

// SetProjection replaces the projection matrix.
func (d *Device) SetProjection(m glm.Mat4) {
	d.transform.projection = m
	d.transform.dirty = true
}

// Projection returns the projection matrix.
func (d *Device) Projection() glm.Mat4 {
	return d.transform.projection
}

// ProjectionPush saves the projection matrix.
func (d *Device) ProjectionPush() {
	d.transform.projections = append(d.transform.projections, d.transform.projection)
}

// ProjectionPop restores the last saved projection matrix.
func (d *Device) ProjectionPop() {
	t := &d.transform
	if len(t.projections) == 0 {
		d.log.Warn("projection stack underflow")
		return
	}
	t.projection = t.projections[len(t.projections)-1]
	t.projections = t.projections[:len(t.projections)-1]
	t.dirty = true
}
