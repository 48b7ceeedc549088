// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
)

var allLayouts = []device.ImageLayout{
	device.LayoutUndefined,
	device.LayoutGeneral,
	device.LayoutColorAttachment,
	device.LayoutDepthStencilAttachment,
	device.LayoutShaderReadOnly,
	device.LayoutTransferSrc,
	device.LayoutTransferDst,
	device.LayoutPresentSrc,
}

func TestTransitionTable(t *testing.T) {
	c := qt.New(t)
	supported := map[layoutPair]bool{
		{device.LayoutUndefined, device.LayoutTransferDst}:            true,
		{device.LayoutTransferDst, device.LayoutShaderReadOnly}:       true,
		{device.LayoutUndefined, device.LayoutDepthStencilAttachment}: true,
	}
	for _, from := range allLayouts {
		for _, to := range allLayouts {
			_, err := transitionBarrier(1, from, to, device.AspectColor)
			if supported[layoutPair{from, to}] {
				c.Check(err, qt.IsNil, qt.Commentf("%s to %s", from, to))
				continue
			}
			c.Check(err, qt.ErrorIs, core.ErrUnsupportedTransition, qt.Commentf("%s to %s", from, to))
		}
	}
}

func TestTransitionBarrierMasks(t *testing.T) {
	c := qt.New(t)
	b, err := transitionBarrier(7, device.LayoutTransferDst, device.LayoutShaderReadOnly, device.AspectColor)
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.DeepEquals, device.ImageBarrier{
		Image:     7,
		Old:       device.LayoutTransferDst,
		New:       device.LayoutShaderReadOnly,
		Aspect:    device.AspectColor,
		SrcAccess: device.AccessTransferWrite,
		DstAccess: device.AccessShaderRead,
		SrcStage:  device.StageTransfer,
		DstStage:  device.StageFragmentShader,
		MipLevels: 1,
	})

	b, err = transitionBarrier(7, device.LayoutUndefined, device.LayoutDepthStencilAttachment, device.AspectDepth)
	c.Assert(err, qt.IsNil)
	c.Assert(b.SrcAccess, qt.Equals, device.AccessFlags(0))
	c.Assert(b.DstStage, qt.Equals, device.StageEarlyFragmentTests)
}

func TestInstantTransition(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	img, _, err := f.driver.CreateImage(device.ImageInfo{
		Format:    device.FormatR8G8B8A8Unorm,
		Extent:    device.Extent{Width: 4, Height: 4},
		MipLevels: 1,
	})
	c.Assert(err, qt.IsNil)

	submits := len(f.driver.Submits)
	c.Assert(f.device.instant.transition(img, device.LayoutUndefined, device.LayoutTransferDst, device.AspectColor), qt.IsNil)
	c.Assert(f.driver.ImageLayout(img), qt.Equals, device.LayoutTransferDst)
	c.Assert(f.driver.Submits, qt.HasLen, submits+1)

	// the fence is reset for the next submission
	signaled, err := f.driver.FenceSignaled(f.device.instant.fence)
	c.Assert(err, qt.IsNil)
	c.Assert(signaled, qt.IsFalse)

	err = f.device.instant.transition(img, device.LayoutShaderReadOnly, device.LayoutTransferDst, device.AspectColor)
	c.Assert(err, qt.ErrorIs, core.ErrUnsupportedTransition)
	c.Assert(f.driver.Submits, qt.HasLen, submits+1)
	c.Assert(f.driver.ImageLayout(img), qt.Equals, device.LayoutTransferDst)
}

func TestInstantCopies(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	d := f.device
	src, err := d.CreateBufferData([]byte{1, 2, 3, 4, 5, 6, 7, 8}, device.BufferTransferSrc, stagingProps)
	c.Assert(err, qt.IsNil)
	defer src.Release()
	dst, err := d.CreateBuffer(8, device.BufferTransferDst, device.MemoryDeviceLocal)
	c.Assert(err, qt.IsNil)
	defer dst.Release()

	c.Assert(d.instant.copyBuffer(src.Handle(), dst.Handle(), 8), qt.IsNil)
	c.Assert(f.driver.BufferData(dst.Handle()), qt.DeepEquals, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	cb := f.driver.CommandBuffer(d.instant.cb)
	c.Assert(cb.OneTime, qt.IsTrue)
	// the pool is reset once the work completed
	c.Assert(cb.Commands, qt.HasLen, 0)
}

func TestCopyBarriers(t *testing.T) {
	c := qt.New(t)
	pairs := []layoutPair{
		{device.LayoutShaderReadOnly, device.LayoutTransferSrc},
		{device.LayoutTransferSrc, device.LayoutShaderReadOnly},
		{device.LayoutShaderReadOnly, device.LayoutTransferDst},
		{device.LayoutTransferDst, device.LayoutShaderReadOnly},
		{device.LayoutPresentSrc, device.LayoutTransferSrc},
		{device.LayoutTransferSrc, device.LayoutPresentSrc},
	}
	for _, p := range pairs {
		b, err := copyBarrier(3, p.from, p.to, device.AspectColor)
		c.Assert(err, qt.IsNil, qt.Commentf("%s to %s", p.from, p.to))
		c.Assert(b.Old, qt.Equals, p.from)
		c.Assert(b.New, qt.Equals, p.to)
	}
	// copies do not widen what transition accepts
	_, err := transitionBarrier(3, device.LayoutPresentSrc, device.LayoutTransferSrc, device.AspectColor)
	c.Assert(err, qt.ErrorIs, core.ErrUnsupportedTransition)
	_, err = copyBarrier(3, device.LayoutGeneral, device.LayoutTransferSrc, device.AspectColor)
	c.Assert(err, qt.ErrorIs, core.ErrUnsupportedTransition)

	b, err := copyBarrier(3, device.LayoutPresentSrc, device.LayoutTransferSrc, device.AspectColor)
	c.Assert(err, qt.IsNil)
	c.Assert(b.SrcStage, qt.Equals, device.StageColorAttachmentOutput)
	c.Assert(b.DstAccess, qt.Equals, device.AccessTransferRead)
}

func TestCopyNeedsTransferLayouts(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	d := f.device
	tex, err := d.CreateTexture(2, 2, core.FormatRGBA, [][]byte{checker(2, 2)}, false)
	c.Assert(err, qt.IsNil)
	defer tex.Release()
	surf, err := d.CreateStageSurface(2, 2, core.FormatRGBA)
	c.Assert(err, qt.IsNil)
	defer surf.Release()

	// a bare copy reads the image in the layout its upload left it in
	err = d.instant.run(func(cb device.CommandBuffer) error {
		f.driver.CmdCopyImageToBuffer(cb, tex.Image(), surf.Handle(), surf.extent(), device.AspectColor)
		return nil
	})
	c.Assert(err, qt.ErrorMatches, ".*source image in .* layout")

	c.Assert(d.instant.copyImageToBuffer(tex.Image(), device.LayoutShaderReadOnly, surf.Handle(), surf.extent(), device.AspectColor), qt.IsNil)
	c.Assert(f.driver.ImageLayout(tex.Image()), qt.Equals, device.LayoutShaderReadOnly)
}
