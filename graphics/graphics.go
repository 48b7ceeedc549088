// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package graphics is the public face of the device layer. Nothing here
// returns an error: failures are logged and creation calls return nil,
// so a host application can keep running on a degraded device.
package graphics

import (
	"errors"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

// Graphics wraps one gfx.Device. Like the device it must be driven from
// a single goroutine.
type Graphics struct {
	device *gfx.Device
	log    *log.Entry
}

// Create opens the configured adapter of inst. It returns nil when the
// device cannot be created.
func Create(inst device.Instance, cfg core.Configuration, opts gfx.Options) *Graphics {
	if opts.Log == nil {
		opts.Log = log.NewEntry(log.StandardLogger())
	}
	d, err := gfx.NewDevice(inst, cfg, opts)
	if err != nil {
		opts.Log.WithError(err).Error("device not created")
		return nil
	}
	return &Graphics{
		device: d,
		log:    opts.Log.WithField("device", d.Name()),
	}
}

// Destroy releases the device and everything created on it.
func (g *Graphics) Destroy() {
	if g == nil {
		return
	}
	g.device.Destroy()
}

// Device exposes the wrapped device.
func (g *Graphics) Device() *gfx.Device {
	return g.device
}

// Name is the adapter name.
func (g *Graphics) Name() string {
	return g.device.Name()
}

// AdapterIndex is the index of the adapter in use.
func (g *Graphics) AdapterIndex() int {
	return g.device.AdapterIndex()
}

// Size returns the extent of the current swapchain.
func (g *Graphics) Size() (width, height uint32) {
	return g.device.SwapchainSize()
}

// Width of the current swapchain
func (g *Graphics) Width() uint32 {
	w, _ := g.Size()
	return w
}

// Height of the current swapchain
func (g *Graphics) Height() uint32 {
	_, h := g.Size()
	return h
}

// CreateSwapchain creates a swapchain on a native surface and tracks it.
// The first swapchain is the one presented to.
func (g *Graphics) CreateSwapchain(native uintptr, width, height uint32) *gfx.Swapchain {
	sc, err := g.device.CreateSwapchain(native, width, height)
	if err != nil {
		g.log.WithError(err).Error("swapchain not created")
		return nil
	}
	tracked, err := g.device.SubmitSwapchain(sc)
	if err != nil {
		g.log.WithError(err).Error("swapchain not submitted")
		g.device.DestroySwapchain(sc)
		return nil
	}
	return tracked
}

// LoadSwapchain selects the swapchain size queries and Resize refer to.
func (g *Graphics) LoadSwapchain(sc *gfx.Swapchain) {
	if err := g.device.LoadSwapchain(sc); err != nil {
		g.log.WithError(err).Error("swapchain not loaded")
	}
}

// DestroySwapchain releases sc.
func (g *Graphics) DestroySwapchain(sc *gfx.Swapchain) {
	if sc == nil {
		return
	}
	g.device.DestroySwapchain(sc)
}

// Resize recreates the current swapchain for a new window size.
func (g *Graphics) Resize(width, height uint32) {
	if err := g.device.Resize(width, height); err != nil {
		g.log.WithError(err).WithFields(log.Fields{
			"width":  width,
			"height": height,
		}).Error("resize failed")
	}
}

// Draw draws the current selection. A zero count draws every element
// from start on.
func (g *Graphics) Draw(mode core.DrawMode, start, count uint32) {
	if err := g.device.Draw(mode, start, count); err != nil {
		g.log.WithError(err).Error("draw failed")
	}
}

// Present submits and presents the next frame. It reports whether a
// frame was presented, a dropped frame is logged.
func (g *Graphics) Present() bool {
	err := g.device.Present()
	switch {
	case err == nil:
		return true
	case errors.Is(err, core.ErrPresentStale):
		g.log.WithError(err).Debug("frame dropped")
	default:
		g.log.WithError(err).Error("present failed")
	}
	return false
}

// IsPresentReady reports without blocking whether Present would not wait.
func (g *Graphics) IsPresentReady() bool {
	return g.device.IsPresentReady()
}

// SetViewport sets the viewport of the following frames.
func (g *Graphics) SetViewport(x, y int32, width, height uint32) {
	g.device.SetViewport(x, y, width, height)
}

// Viewport returns the current viewport.
func (g *Graphics) Viewport() device.Viewport {
	return g.device.Viewport()
}

// SetScissorRect sets the scissor of the following frames.
func (g *Graphics) SetScissorRect(x, y int32, width, height uint32) {
	g.device.SetScissorRect(x, y, width, height)
}

// Clear sets the values the selected targets are cleared to.
func (g *Graphics) Clear(flags core.ClearFlags, color glm.Vec4, depth float32, stencil uint32) {
	g.device.Clear(flags, color, depth, stencil)
}

// Ortho sets an orthographic projection.
func (g *Graphics) Ortho(left, right, top, bottom, near, far float32) {
	g.device.Ortho(left, right, top, bottom, near, far)
}

// Frustum sets a perspective projection.
func (g *Graphics) Frustum(left, right, top, bottom, near, far float32) {
	g.device.Frustum(left, right, top, bottom, near, far)
}

// ProjectionPush saves the projection.
func (g *Graphics) ProjectionPush() {
	g.device.ProjectionPush()
}

// ProjectionPop restores the last saved projection.
func (g *Graphics) ProjectionPop() {
	g.device.ProjectionPop()
}

// MatrixPush duplicates the top of the matrix stack.
func (g *Graphics) MatrixPush() {
	g.device.MatrixPush()
}

// MatrixPop drops the top of the matrix stack.
func (g *Graphics) MatrixPop() {
	g.device.MatrixPop()
}

// MatrixIdentity resets the top of the matrix stack.
func (g *Graphics) MatrixIdentity() {
	g.device.MatrixIdentity()
}

// MatrixSet replaces the top of the matrix stack.
func (g *Graphics) MatrixSet(m glm.Mat4) {
	g.device.MatrixSet(m)
}

// Matrix returns the top of the matrix stack.
func (g *Graphics) Matrix() glm.Mat4 {
	return g.device.Matrix()
}

// MatrixTranslate applies a translation.
func (g *Graphics) MatrixTranslate(v glm.Vec3) {
	g.device.MatrixTranslate(v)
}

// MatrixScale applies a scale.
func (g *Graphics) MatrixScale(v glm.Vec3) {
	g.device.MatrixScale(v)
}

// MatrixRotate rotates by angle radians around axis.
func (g *Graphics) MatrixRotate(angle float32, axis glm.Vec3) {
	g.device.MatrixRotate(angle, axis)
}
