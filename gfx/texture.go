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
)

// Texture is a sampled 2D image. Only the base level is uploaded,
// the remaining levels are kept by the caller.
type Texture struct {
	device *Device
	image  device.Image
	view   device.ImageView
	memory *Memory

	format core.ColorFormat
	native device.Format
	width  uint32
	height uint32
	levels int

	sampler *Sampler
	staging *Buffer
	dynamic bool
	mapped  bool
	marked  bool
}

// CreateTexture creates a 2D texture. levels holds the data of each mip
// level, the base level may be shorter than the texture which leaves the
// rest zeroed. Dynamic textures keep their staging buffer for Map.
func (d *Device) CreateTexture(width, height uint32, format core.ColorFormat, levels [][]byte, dynamic bool) (*Texture, error) {
	native, err := NativeFormat(format)
	if err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: texture of %dx%d", core.ErrSizeMismatch, width, height)
	}
	size := core.TextureSize(format, width, height)
	var base []byte
	if len(levels) > 0 {
		base = levels[0]
	}
	if uint64(len(base)) > size {
		return nil, fmt.Errorf("%w: %d bytes into a %d byte texture", core.ErrSizeMismatch, len(base), size)
	}

	staging, err := d.CreateBuffer(size, device.BufferTransferSrc|device.BufferTransferDst, stagingProps)
	if err != nil {
		return nil, err
	}
	mapped, err := staging.Map()
	if err != nil {
		staging.Release()
		return nil, err
	}
	clear(mapped)
	copy(mapped, base)
	staging.Unmap()

	t := &Texture{
		device:  d,
		format:  format,
		native:  native,
		width:   width,
		height:  height,
		levels:  max(len(levels), 1),
		staging: staging,
		dynamic: dynamic,
	}
	if err := t.createImage(); err != nil {
		staging.Release()
		return nil, err
	}
	if err := d.instant.uploadImage(staging.buffer, t.image, t.Extent()); err != nil {
		t.Release()
		return nil, err
	}
	if !dynamic {
		staging.Release()
		t.staging = nil
	}
	return t, nil
}

func (t *Texture) createImage() error {
	d := t.device
	img, req, err := d.driver.CreateImage(device.ImageInfo{
		Format:    t.native,
		Extent:    t.Extent(),
		MipLevels: 1,
		Usage:     device.ImageTransferSrc | device.ImageTransferDst | device.ImageSampled,
	})
	if err != nil {
		return fmt.Errorf("vk.CreateImage(): %w: %w", core.ErrAllocationFailed, err)
	}
	memory, err := d.allocator.Malloc(req, device.MemoryDeviceLocal)
	if err != nil {
		d.driver.DestroyImage(img)
		return err
	}
	if err := d.driver.BindImageMemory(img, memory.Get()); err != nil {
		memory.Release()
		d.driver.DestroyImage(img)
		return fmt.Errorf("vk.BindImageMemory(): %w", err)
	}
	view, err := d.driver.CreateImageView(img, t.native, device.AspectColor)
	if err != nil {
		memory.Release()
		d.driver.DestroyImage(img)
		return fmt.Errorf("vk.CreateImageView(): %w", err)
	}
	t.image, t.memory, t.view = img, memory, view
	return nil
}

// Map returns the staging data of a dynamic texture and its line size.
// The texture is re-uploaded by Unmap.
func (t *Texture) Map() ([]byte, uint32, error) {
	if !t.dynamic {
		return nil, 0, errors.New("map of a static texture")
	}
	data, err := t.staging.Map()
	if err != nil {
		return nil, 0, err
	}
	t.mapped = true
	return data, t.LineSize(), nil
}

// Unmap uploads the mapped staging data.
func (t *Texture) Unmap() error {
	if !t.mapped {
		return nil
	}
	t.staging.Unmap()
	t.mapped = false
	return t.device.instant.uploadImage(t.staging.buffer, t.image, t.Extent())
}

// Update replaces the contents of a dynamic texture.
func (t *Texture) Update(data []byte) error {
	if uint64(len(data)) > core.TextureSize(t.format, t.width, t.height) {
		return fmt.Errorf("%w: %d bytes into a %d byte texture", core.ErrSizeMismatch, len(data), core.TextureSize(t.format, t.width, t.height))
	}
	mapped, _, err := t.Map()
	if err != nil {
		return err
	}
	copy(mapped, data)
	return t.Unmap()
}

// LineSize is the byte size of one row of texels.
func (t *Texture) LineSize() uint32 {
	return uint32(core.TextureSize(t.format, t.width, 1))
}

// Width of the base level
func (t *Texture) Width() uint32 {
	return t.width
}

// Height of the base level
func (t *Texture) Height() uint32 {
	return t.height
}

// Extent of the base level
func (t *Texture) Extent() device.Extent {
	return device.Extent{Width: t.width, Height: t.height}
}

// Format returns the color format of the texture.
func (t *Texture) Format() core.ColorFormat {
	return t.format
}

// Levels returns the mip level count the texture was created with.
func (t *Texture) Levels() int {
	return t.levels
}

// Dynamic reports whether the texture can be mapped.
func (t *Texture) Dynamic() bool {
	return t.dynamic
}

// Image returns the native image.
func (t *Texture) Image() device.Image {
	return t.image
}

// View returns the native image view.
func (t *Texture) View() device.ImageView {
	return t.view
}

// SetSampler associates s with the texture. Bindings without a sampler
// of their own sample the texture with it. A nil s restores the default.
func (t *Texture) SetSampler(s *Sampler) {
	t.sampler = s
	t.device.invalidateFrames()
}

// Sampler returns the associated sampler, nil when none is set.
func (t *Texture) Sampler() *Sampler {
	return t.sampler
}

// Marked reports whether the texture waits for collection.
func (t *Texture) Marked() bool {
	return t.marked
}

// Release destroys the view, the image and their memory.
func (t *Texture) Release() {
	if t.image == 0 {
		return
	}
	d := t.device
	d.driver.DestroyImageView(t.view)
	d.driver.DestroyImage(t.image)
	t.memory.Release()
	if t.staging != nil {
		t.staging.Release()
	}
	t.image, t.view = 0, 0
}
