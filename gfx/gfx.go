// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx is the graphics device layer on top of a device.Driver. It
// owns every GPU resource, deduplicates them in pools, resolves what is
// drawn from the current selection and records and presents frames.
//
// Errors are returned to the caller. Nothing in this package is safe for
// concurrent use, a Device must be driven from a single goroutine.
package gfx

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	// Releasing twice has no effect.
	Release()
}

var (
	_ Releasable = (*Buffer)(nil)
	_ Releasable = (*VertexBuffer)(nil)
	_ Releasable = (*IndexBuffer)(nil)
	_ Releasable = (*UniformBuffer)(nil)
	_ Releasable = (*Texture)(nil)
	_ Releasable = (*Sampler)(nil)
	_ Releasable = (*StageSurface)(nil)
	_ Releasable = (*Shader)(nil)
	_ Releasable = (*Program)(nil)
	_ Releasable = (*Renderable)(nil)
	_ Releasable = (*Swapchain)(nil)
)
