// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
)

// StageSurface is a host visible buffer textures and presented frames
// are copied into for reading back.
type StageSurface struct {
	*Buffer

	device *Device
	width  uint32
	height uint32
	format core.ColorFormat
}

// CreateStageSurface creates a zero filled readback surface.
func (d *Device) CreateStageSurface(width, height uint32, format core.ColorFormat) (*StageSurface, error) {
	if _, err := NativeFormat(format); err != nil {
		return nil, err
	}
	size := core.TextureSize(format, width, height)
	if size == 0 {
		return nil, fmt.Errorf("%w: stage surface of %dx%d", core.ErrSizeMismatch, width, height)
	}
	buf, err := d.CreateBuffer(size, device.BufferTransferDst, stagingProps)
	if err != nil {
		return nil, err
	}
	mapped, err := buf.Map()
	if err != nil {
		buf.Release()
		return nil, err
	}
	clear(mapped)
	buf.Unmap()
	return &StageSurface{
		Buffer: buf,
		device: d,
		width:  width,
		height: height,
		format: format,
	}, nil
}

// Map returns the surface data and its line size.
func (s *StageSurface) Map() ([]byte, uint32, error) {
	data, err := s.Buffer.Map()
	if err != nil {
		return nil, 0, err
	}
	return data, uint32(core.TextureSize(s.format, s.width, 1)), nil
}

// Width of the surface
func (s *StageSurface) Width() uint32 {
	return s.width
}

// Height of the surface
func (s *StageSurface) Height() uint32 {
	return s.height
}

// Format of the surface
func (s *StageSurface) Format() core.ColorFormat {
	return s.format
}

func (s *StageSurface) extent() device.Extent {
	return device.Extent{Width: s.width, Height: s.height}
}

// StageTexture copies src into dst. Both must have the same size and format.
func (d *Device) StageTexture(dst *StageSurface, src *Texture) error {
	if src.width != dst.width || src.height != dst.height || src.format != dst.format {
		return fmt.Errorf("%w: %dx%d texture into a %dx%d stage surface", core.ErrSizeMismatch, src.width, src.height, dst.width, dst.height)
	}
	return d.instant.copyImageToBuffer(src.image, device.LayoutShaderReadOnly, dst.buffer, dst.extent(), device.AspectColor)
}

// CopyTexture copies the base level of src into dst.
func (d *Device) CopyTexture(dst, src *Texture) error {
	if src.width != dst.width || src.height != dst.height || src.native != dst.native {
		return fmt.Errorf("%w: %dx%d texture into a %dx%d texture", core.ErrSizeMismatch, src.width, src.height, dst.width, dst.height)
	}
	return d.instant.copyImage(src.image, dst.image, device.LayoutShaderReadOnly, src.Extent(), device.AspectColor)
}

// StageFrame copies the most recently presented image into dst.
func (d *Device) StageFrame(dst *StageSurface) error {
	sc := d.presentTarget()
	if sc == nil || !d.frame.presented {
		return fmt.Errorf("%w: nothing presented", core.ErrPresentStale)
	}
	if sc.extent.Width != dst.width || sc.extent.Height != dst.height || sc.format.Format != mustNative(dst.format) {
		return fmt.Errorf("%w: %dx%d frame into a %dx%d stage surface", core.ErrSizeMismatch, sc.extent.Width, sc.extent.Height, dst.width, dst.height)
	}
	return d.instant.copyImageToBuffer(sc.images[d.frame.lastImage], device.LayoutPresentSrc, dst.buffer, dst.extent(), device.AspectColor)
}

func mustNative(f core.ColorFormat) device.Format {
	native, _ := NativeFormat(f)
	return native
}
