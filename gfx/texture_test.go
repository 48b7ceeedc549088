// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
)

func checker(width, height uint32) []byte {
	data := make([]byte, width*height*4)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestCreateTextureUploadsBaseLevel(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	data := checker(4, 2)
	tex, err := f.device.CreateTexture(4, 2, core.FormatRGBA, [][]byte{data, make([]byte, 8)}, false)
	c.Assert(err, qt.IsNil)
	defer tex.Release()

	c.Assert(tex.Levels(), qt.Equals, 2)
	c.Assert(tex.LineSize(), qt.Equals, uint32(16))
	c.Assert(f.driver.ImageData(tex.Image()), qt.DeepEquals, data)
	c.Assert(f.driver.ImageLayout(tex.Image()), qt.Equals, device.LayoutShaderReadOnly)
	c.Assert(f.driver.Image(tex.View()), qt.Equals, tex.Image())
	// the staging buffer of a static texture is gone
	c.Assert(f.driver.Live("buffer"), qt.Equals, 0)

	cb := f.driver.CommandBuffer(f.device.instant.cb)
	c.Assert(cb.Submitted > 0, qt.IsTrue)
}

func TestCreateTextureShortBaseLevel(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	tex, err := f.device.CreateTexture(2, 2, core.FormatRGBA, [][]byte{{1, 2, 3, 4}}, false)
	c.Assert(err, qt.IsNil)
	defer tex.Release()
	want := make([]byte, 16)
	copy(want, []byte{1, 2, 3, 4})
	c.Assert(f.driver.ImageData(tex.Image()), qt.DeepEquals, want)

	empty, err := f.device.CreateTexture(2, 2, core.FormatRGBA, nil, false)
	c.Assert(err, qt.IsNil)
	defer empty.Release()
	c.Assert(empty.Levels(), qt.Equals, 1)
	c.Assert(f.driver.ImageData(empty.Image()), qt.DeepEquals, make([]byte, 16))
}

func TestCreateTextureErrors(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	d := f.device

	_, err := d.CreateTexture(0, 4, core.FormatRGBA, nil, false)
	c.Assert(err, qt.ErrorIs, core.ErrSizeMismatch)
	_, err = d.CreateTexture(2, 2, core.FormatRGBA, [][]byte{make([]byte, 17)}, false)
	c.Assert(err, qt.ErrorIs, core.ErrSizeMismatch)
	_, err = d.CreateTexture(4, 4, core.FormatDXT1, nil, false)
	c.Assert(err, qt.ErrorIs, core.ErrUnsupportedFormat)
	_, err = d.CreateTexture(4, 4, core.FormatUnknown, nil, false)
	c.Assert(err, qt.ErrorIs, core.ErrUnsupportedFormat)

	f.driver.FailAllocation = true
	_, err = d.CreateTexture(4, 4, core.FormatRGBA, nil, false)
	c.Assert(err, qt.ErrorIs, core.ErrAllocationFailed)
	for _, kind := range []string{"buffer", "memory", "image", "view"} {
		c.Assert(f.driver.Live(kind), qt.Equals, 0, qt.Commentf("%s", kind))
	}
}

func TestDynamicTextureMap(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	tex, err := f.device.CreateTexture(2, 2, core.FormatRGBA, nil, true)
	c.Assert(err, qt.IsNil)
	defer tex.Release()

	data, pitch, err := tex.Map()
	c.Assert(err, qt.IsNil)
	c.Assert(pitch, qt.Equals, uint32(8))
	c.Assert(data, qt.HasLen, 16)
	copy(data[pitch:], []byte{9, 9, 9, 9})
	c.Assert(tex.Unmap(), qt.IsNil)
	c.Assert(f.driver.ImageData(tex.Image())[8:12], qt.DeepEquals, []byte{9, 9, 9, 9})

	c.Assert(tex.Update(bytes.Repeat([]byte{7}, 16)), qt.IsNil)
	c.Assert(f.driver.ImageData(tex.Image()), qt.DeepEquals, bytes.Repeat([]byte{7}, 16))
	c.Assert(tex.Update(make([]byte, 17)), qt.ErrorIs, core.ErrSizeMismatch)
	// an unmapped texture has nothing to upload
	c.Assert(tex.Unmap(), qt.IsNil)

	static, err := f.device.CreateTexture(2, 2, core.FormatRGBA, nil, false)
	c.Assert(err, qt.IsNil)
	defer static.Release()
	_, _, err = static.Map()
	c.Assert(err, qt.ErrorMatches, "map of a static texture")
}

func TestStageTexture(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	d := f.device
	data := checker(4, 4)
	tex, err := d.CreateTexture(4, 4, core.FormatRGBA, [][]byte{data}, false)
	c.Assert(err, qt.IsNil)
	defer tex.Release()

	surf, err := d.CreateStageSurface(4, 4, core.FormatRGBA)
	c.Assert(err, qt.IsNil)
	defer surf.Release()
	c.Assert(d.StageTexture(surf, tex), qt.IsNil)
	c.Assert(f.driver.ImageLayout(tex.Image()), qt.Equals, device.LayoutShaderReadOnly)

	got, pitch, err := surf.Map()
	c.Assert(err, qt.IsNil)
	c.Assert(pitch, qt.Equals, uint32(16))
	c.Assert(got, qt.DeepEquals, data)
	surf.Unmap()

	small, err := d.CreateStageSurface(2, 2, core.FormatRGBA)
	c.Assert(err, qt.IsNil)
	defer small.Release()
	c.Assert(d.StageTexture(small, tex), qt.ErrorIs, core.ErrSizeMismatch)

	_, err = d.CreateStageSurface(0, 2, core.FormatRGBA)
	c.Assert(err, qt.ErrorIs, core.ErrSizeMismatch)
}

func TestCopyTexture(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	d := f.device
	data := checker(2, 2)
	src, err := d.CreateTexture(2, 2, core.FormatRGBA, [][]byte{data}, false)
	c.Assert(err, qt.IsNil)
	defer src.Release()
	dst, err := d.CreateTexture(2, 2, core.FormatRGBAUnorm, nil, false)
	c.Assert(err, qt.IsNil)
	defer dst.Release()

	c.Assert(d.CopyTexture(dst, src), qt.IsNil)
	c.Assert(f.driver.ImageData(dst.Image()), qt.DeepEquals, data)
	c.Assert(f.driver.ImageLayout(src.Image()), qt.Equals, device.LayoutShaderReadOnly)
	c.Assert(f.driver.ImageLayout(dst.Image()), qt.Equals, device.LayoutShaderReadOnly)

	other, err := d.CreateTexture(2, 2, core.FormatBGRA, nil, false)
	c.Assert(err, qt.IsNil)
	defer other.Release()
	c.Assert(d.CopyTexture(other, src), qt.ErrorIs, core.ErrSizeMismatch)
}

func TestStageFrameBeforePresent(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	surf, err := f.device.CreateStageSurface(800, 600, core.FormatBGRA)
	c.Assert(err, qt.IsNil)
	defer surf.Release()
	c.Assert(f.device.StageFrame(surf), qt.ErrorIs, core.ErrPresentStale)

	f.withSwapchain(c)
	c.Assert(f.device.StageFrame(surf), qt.ErrorIs, core.ErrPresentStale)
}

func TestNativeFormat(t *testing.T) {
	c := qt.New(t)
	for format, native := range toNative {
		got, err := NativeFormat(format)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, native)
		c.Assert(mustNative(ColorFormatOf(native)), qt.Equals, native)
	}
	c.Assert(ColorFormatOf(device.FormatB8G8R8A8Unorm), qt.Equals, core.FormatBGRA)
}
