// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"errors"
	"fmt"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	glm "github.com/go-gl/mathgl/mgl32"
)

// frameState holds the device wide frame resources. They are built on
// the first swapchain, one framebuffer, command buffer and fence per
// swapchain image.
type frameState struct {
	renderPass  device.RenderPass
	colorFormat device.Format
	depthFormat device.Format

	framebuffers   []device.Framebuffer
	cbs            []device.CommandBuffer
	dirty          []bool
	inFlight       []device.Fence
	imagesInFlight []device.Fence
	imageAvailable []device.Semaphore
	renderFinished []device.Semaphore
	index          int

	viewport device.Viewport
	scissor  device.Rect
	clear    device.ClearValues

	lastImage uint32
	presented bool
}

// presentTarget is the first tracked swapchain.
func (d *Device) presentTarget() *Swapchain {
	if len(d.swapchains.entries) == 0 {
		return nil
	}
	return d.swapchains.entries[0]
}

// buildFrames creates the frame resources for sc. The render pass is only
// recreated when the attachment formats changed, which drops every
// pipeline built for the previous one.
func (d *Device) buildFrames(sc *Swapchain) error {
	f := &d.frame
	if f.renderPass == 0 || f.colorFormat != sc.format.Format || f.depthFormat != sc.depthFormat {
		rp, err := d.driver.CreateRenderPass(sc.format.Format, sc.depthFormat)
		if err != nil {
			return fmt.Errorf("vk.CreateRenderPass(): %w", err)
		}
		if f.renderPass != 0 {
			d.programs.each((*Program).destroyPipelines)
			d.renderables.each(func(r *Renderable) { r.pipeline = 0 })
			d.driver.DestroyRenderPass(f.renderPass)
		}
		f.renderPass, f.colorFormat, f.depthFormat = rp, sc.format.Format, sc.depthFormat
	}

	n := sc.Len()
	for i := 0; i < n; i++ {
		fb, err := d.driver.CreateFramebuffer(f.renderPass, []device.ImageView{sc.views[i], sc.depth[i].view}, sc.extent)
		if err != nil {
			return fmt.Errorf("vk.CreateFramebuffer(): %w", err)
		}
		f.framebuffers = append(f.framebuffers, fb)

		fence, err := d.driver.CreateFence(true)
		if err != nil {
			return fmt.Errorf("vk.CreateFence(): %w", err)
		}
		f.inFlight = append(f.inFlight, fence)

		for _, sems := range []*[]device.Semaphore{&f.imageAvailable, &f.renderFinished} {
			sem, err := d.driver.CreateSemaphore()
			if err != nil {
				return fmt.Errorf("vk.CreateSemaphore(): %w", err)
			}
			*sems = append(*sems, sem)
		}
	}
	cbs, err := d.driver.AllocateCommandBuffers(d.commandPool, n)
	if err != nil {
		return fmt.Errorf("vk.AllocateCommandBuffers(): %w", err)
	}
	f.cbs = cbs
	f.dirty = make([]bool, n)
	f.imagesInFlight = make([]device.Fence, n)
	f.index = 0
	f.presented = false

	f.viewport = device.Viewport{
		Width:    float32(sc.extent.Width),
		Height:   float32(sc.extent.Height),
		MaxDepth: 1,
	}
	f.scissor = device.Rect{Width: sc.extent.Width, Height: sc.extent.Height}
	d.invalidateFrames()
	return nil
}

// destroyFrames releases the per image resources, the render pass is kept.
func (d *Device) destroyFrames() {
	f := &d.frame
	for _, fb := range f.framebuffers {
		d.driver.DestroyFramebuffer(fb)
	}
	if len(f.cbs) > 0 {
		d.driver.FreeCommandBuffers(d.commandPool, f.cbs)
	}
	for _, fence := range f.inFlight {
		d.driver.DestroyFence(fence)
	}
	for _, sem := range f.imageAvailable {
		d.driver.DestroySemaphore(sem)
	}
	for _, sem := range f.renderFinished {
		d.driver.DestroySemaphore(sem)
	}
	f.framebuffers, f.cbs, f.dirty = nil, nil, nil
	f.inFlight, f.imagesInFlight = nil, nil
	f.imageAvailable, f.renderFinished = nil, nil
	f.presented = false
}

// record rebuilds the command buffer of image i from every drawable
// renderable.
func (d *Device) record(i int, sc *Swapchain) error {
	f := &d.frame
	cb := f.cbs[i]
	if err := d.driver.ResetCommandBuffer(cb); err != nil {
		return fmt.Errorf("vk.ResetCommandBuffer(): %w", err)
	}
	if err := d.driver.BeginCommandBuffer(cb, false); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer(): %w", err)
	}
	d.driver.CmdBeginRenderPass(cb, f.renderPass, f.framebuffers[i], sc.extent, f.clear)
	d.driver.CmdSetViewport(cb, f.viewport)
	d.driver.CmdSetScissor(cb, f.scissor)
	d.renderables.each(func(r *Renderable) {
		if r.drawable() {
			r.record(cb)
		}
	})
	d.driver.CmdEndRenderPass(cb)
	if err := d.driver.EndCommandBuffer(cb); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %w", err)
	}
	f.dirty[i] = false
	return nil
}

// Draw draws the current renderable as mode. A zero count draws every
// element from start on.
func (d *Device) Draw(mode core.DrawMode, start, count uint32) error {
	r := d.renderables.current()
	if r == nil {
		return errors.New("draw without vertex buffer and shaders loaded")
	}
	if r.mode != mode || r.first != start || r.count != count {
		r.mode, r.first, r.count = mode, start, count
		d.invalidateFrames()
	}
	return d.UpdateDraw()
}

// UpdateDraw prepares the current renderable for recording: descriptor
// sets, pipeline, view projection and uniform uploads. It does nothing
// when the renderable was prepared last and nothing changed since.
func (d *Device) UpdateDraw() error {
	r := d.renderables.current()
	if r == nil {
		return nil
	}
	if r == d.lastDrawn && !r.program.dirty() && !d.transform.dirty {
		return nil
	}
	if vp := r.program.vertex.viewProj; vp != nil {
		if err := vp.SetMatrix4(d.transform.viewProj()); err != nil {
			return err
		}
	}
	if err := r.prepare(); err != nil {
		if errors.Is(err, core.ErrMissingParameter) {
			d.log.WithError(err).Debug("renderable not ready")
			return nil
		}
		return err
	}
	if err := r.program.upload(); err != nil {
		return err
	}
	d.invalidateFrames()
	d.transform.dirty = false
	d.lastDrawn = r
	return nil
}

// Present records what changed, submits the next image of the first
// swapchain and queues it for presentation.
func (d *Device) Present() error {
	sc := d.presentTarget()
	f := &d.frame
	if sc == nil || len(f.cbs) == 0 {
		return fmt.Errorf("%w: no swapchain", core.ErrPresentStale)
	}
	timeout := d.cfg.Renderer.FenceTimeout
	slot := f.index

	if err := d.driver.WaitForFence(f.inFlight[slot], timeout); err != nil {
		return fmt.Errorf("vk.WaitForFences(): %w", err)
	}
	index, err := d.driver.AcquireNextImage(sc.swapchain, timeout, f.imageAvailable[slot])
	switch {
	case errors.Is(err, device.ErrOutOfDate):
		d.log.Warn("swapchain out of date, frame dropped")
		return fmt.Errorf("%w: %w", core.ErrPresentStale, err)
	case errors.Is(err, device.ErrSuboptimal):
		d.log.Debug("swapchain suboptimal")
	case err != nil:
		return fmt.Errorf("vk.AcquireNextImageKHR(): %w", err)
	}

	if fence := f.imagesInFlight[index]; fence != 0 {
		if err := d.driver.WaitForFence(fence, timeout); err != nil {
			return fmt.Errorf("vk.WaitForFences(): %w", err)
		}
	}
	f.imagesInFlight[index] = f.inFlight[slot]

	if f.dirty[index] {
		if err := d.record(int(index), sc); err != nil {
			return err
		}
	}
	if err := d.driver.ResetFence(f.inFlight[slot]); err != nil {
		return fmt.Errorf("vk.ResetFences(): %w", err)
	}
	if err := d.driver.QueueSubmit(device.SubmitInfo{
		CommandBuffer: f.cbs[index],
		Wait:          f.imageAvailable[slot],
		WaitStage:     device.StageColorAttachmentOutput,
		Signal:        f.renderFinished[slot],
		Fence:         f.inFlight[slot],
	}); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %w", err)
	}

	err = d.driver.QueuePresent(sc.swapchain, index, f.renderFinished[slot])
	f.index = (slot + 1) % len(f.inFlight)
	switch {
	case errors.Is(err, device.ErrOutOfDate):
		d.log.Warn("swapchain out of date after present")
		return fmt.Errorf("%w: %w", core.ErrPresentStale, err)
	case errors.Is(err, device.ErrSuboptimal):
		d.log.Debug("swapchain suboptimal")
	case err != nil:
		return fmt.Errorf("vk.QueuePresentKHR(): %w", err)
	}
	f.lastImage = index
	f.presented = true
	return nil
}

// IsPresentReady reports without blocking whether the next frame slot
// is free.
func (d *Device) IsPresentReady() bool {
	f := &d.frame
	if len(f.inFlight) == 0 {
		return false
	}
	signaled, err := d.driver.FenceSignaled(f.inFlight[f.index])
	if err != nil {
		d.log.WithError(err).Error("vk.GetFenceStatus()")
		return false
	}
	return signaled
}

// Resize recreates the current swapchain for a new window size, and the
// frame resources when it is the presented one. The viewport and scissor
// are reset to the new size.
func (d *Device) Resize(width, height uint32) error {
	sc := d.swapchains.current()
	if sc == nil {
		return fmt.Errorf("%w: no swapchain", core.ErrPresentStale)
	}
	if err := d.driver.WaitIdle(); err != nil {
		return fmt.Errorf("vk.DeviceWaitIdle(): %w", err)
	}
	changed, err := sc.Recreate(width, height)
	if err != nil || !changed {
		return err
	}
	if sc != d.presentTarget() {
		return nil
	}
	d.destroyFrames()
	return d.buildFrames(sc)
}

// SetViewport sets the viewport of every following frame.
func (d *Device) SetViewport(x, y int32, width, height uint32) {
	d.frame.viewport = device.Viewport{
		X:        float32(x),
		Y:        float32(y),
		Width:    float32(width),
		Height:   float32(height),
		MaxDepth: 1,
	}
	d.invalidateFrames()
}

// Viewport returns the current viewport.
func (d *Device) Viewport() device.Viewport {
	return d.frame.viewport
}

// SetScissorRect sets the scissor rectangle of every following frame.
func (d *Device) SetScissorRect(x, y int32, width, height uint32) {
	d.frame.scissor = device.Rect{X: x, Y: y, Width: width, Height: height}
	d.invalidateFrames()
}

// ScissorRect returns the current scissor rectangle.
func (d *Device) ScissorRect() device.Rect {
	return d.frame.scissor
}

// Clear sets the values the selected targets are cleared to when a
// frame begins.
func (d *Device) Clear(flags core.ClearFlags, color glm.Vec4, depth float32, stencil uint32) {
	c := &d.frame.clear
	if flags&core.ClearColor != 0 {
		c.Color = [4]float32(color)
	}
	if flags&core.ClearDepth != 0 {
		c.Depth = depth
	}
	if flags&core.ClearStencil != 0 {
		c.Stencil = stencil
	}
	d.invalidateFrames()
}
