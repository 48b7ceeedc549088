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

func TestChooseSurfaceFormat(t *testing.T) {
	c := qt.New(t)
	f, err := chooseSurfaceFormat([]device.SurfaceFormat{{Format: device.FormatUndefined}})
	c.Assert(err, qt.IsNil)
	c.Assert(f, qt.Equals, device.SurfaceFormat{Format: device.FormatB8G8R8A8Unorm, ColorSpace: device.ColorSpaceSrgbNonlinear})

	f, err = chooseSurfaceFormat([]device.SurfaceFormat{{Format: device.FormatR8G8B8A8Unorm}, {Format: device.FormatB8G8R8A8Unorm}})
	c.Assert(err, qt.IsNil)
	c.Assert(f.Format, qt.Equals, device.FormatB8G8R8A8Unorm)

	f, err = chooseSurfaceFormat([]device.SurfaceFormat{{Format: device.FormatR8G8B8A8Srgb}, {Format: device.FormatR8G8B8A8Unorm}})
	c.Assert(err, qt.IsNil)
	c.Assert(f.Format, qt.Equals, device.FormatR8G8B8A8Srgb)

	_, err = chooseSurfaceFormat(nil)
	c.Assert(err, qt.ErrorIs, core.ErrUnsupportedFormat)
}

func TestChoosePresentMode(t *testing.T) {
	c := qt.New(t)
	c.Assert(choosePresentMode([]device.PresentMode{device.PresentFIFO, device.PresentMailbox}), qt.Equals, device.PresentMailbox)
	c.Assert(choosePresentMode([]device.PresentMode{device.PresentImmediate, device.PresentFIFO}), qt.Equals, device.PresentFIFO)
	c.Assert(choosePresentMode(nil), qt.Equals, device.PresentFIFO)
}

func TestChooseCompositeAlpha(t *testing.T) {
	c := qt.New(t)
	c.Assert(chooseCompositeAlpha(device.CompositeOpaque|device.CompositePreMultiplied), qt.Equals, device.CompositePreMultiplied)
	c.Assert(chooseCompositeAlpha(device.CompositeOpaque|device.CompositeInherit), qt.Equals, device.CompositeInherit)
	c.Assert(chooseCompositeAlpha(device.CompositeOpaque), qt.Equals, device.CompositeOpaque)
	c.Assert(chooseCompositeAlpha(0), qt.Equals, device.CompositeOpaque)
}

func TestChooseExtent(t *testing.T) {
	c := qt.New(t)
	caps := device.SurfaceCapabilities{
		CurrentExtent: device.Extent{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF},
		MinExtent:     device.Extent{Width: 64, Height: 64},
		MaxExtent:     device.Extent{Width: 4096, Height: 2048},
	}
	c.Assert(chooseExtent(caps, 800, 600), qt.Equals, device.Extent{Width: 800, Height: 600})
	c.Assert(chooseExtent(caps, 10, 9000), qt.Equals, device.Extent{Width: 64, Height: 2048})

	caps.CurrentExtent = device.Extent{Width: 1024, Height: 768}
	c.Assert(chooseExtent(caps, 800, 600), qt.Equals, device.Extent{Width: 1024, Height: 768})
}

func TestChooseImageCount(t *testing.T) {
	c := qt.New(t)
	caps := device.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 3}
	c.Assert(chooseImageCount(caps, 1), qt.Equals, uint32(2))
	c.Assert(chooseImageCount(caps, 3), qt.Equals, uint32(3))
	c.Assert(chooseImageCount(caps, 8), qt.Equals, uint32(3))
	caps.MaxImageCount = 0
	c.Assert(chooseImageCount(caps, 8), qt.Equals, uint32(8))
}

func TestCreateSwapchain(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	sc, err := f.device.CreateSwapchain(1, 800, 600)
	c.Assert(err, qt.IsNil)

	c.Assert(sc.Len(), qt.Equals, 3)
	c.Assert(sc.Extent(), qt.Equals, device.Extent{Width: 800, Height: 600})
	c.Assert(sc.Format().Format, qt.Equals, device.FormatB8G8R8A8Unorm)
	c.Assert(sc.DepthFormat(), qt.Equals, device.FormatD32Sfloat)
	c.Assert(sc.PresentMode(), qt.Equals, device.PresentMailbox)

	info, ok := f.driver.SwapchainInfo(sc.Handle())
	c.Assert(ok, qt.IsTrue)
	c.Assert(info.CompositeAlpha, qt.Equals, device.CompositePreMultiplied)
	c.Assert(info.MinImageCount, qt.Equals, uint32(3))

	for _, depth := range sc.depth {
		c.Assert(f.driver.ImageLayout(depth.image), qt.Equals, device.LayoutDepthStencilAttachment)
	}
	c.Assert(f.driver.Live("image"), qt.Equals, 3)
	c.Assert(f.driver.Live("view"), qt.Equals, 6)

	sc.Release()
	for _, kind := range []string{"image", "view", "swapchain", "swapchain-image", "surface", "memory"} {
		c.Assert(f.driver.Live(kind), qt.Equals, 0, qt.Commentf("%s", kind))
	}
}

func TestCreateSwapchainWithoutDepthFormat(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.driver.DepthFormats = nil
	_, err := f.device.CreateSwapchain(1, 800, 600)
	c.Assert(err, qt.ErrorIs, core.ErrUnsupportedFormat)
	c.Assert(f.driver.Live("surface"), qt.Equals, 0)

	_, err = f.device.CreateSwapchain(0, 800, 600)
	c.Assert(err, qt.IsNotNil)
}

func TestSwapchainStencilDepth(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.driver.DepthFormats = map[device.Format]bool{device.FormatD24UnormS8Uint: true}
	sc, err := f.device.CreateSwapchain(1, 320, 240)
	c.Assert(err, qt.IsNil)
	defer sc.Release()
	c.Assert(sc.DepthFormat(), qt.Equals, device.FormatD24UnormS8Uint)

	for _, depth := range sc.depth {
		c.Assert(f.driver.ImageLayout(depth.image), qt.Equals, device.LayoutDepthStencilAttachment)
	}
}

func TestSwapchainRecreate(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	sc, err := f.device.CreateSwapchain(1, 800, 600)
	c.Assert(err, qt.IsNil)
	defer sc.Release()

	old := sc.Handle()
	changed, err := sc.Recreate(800, 600)
	c.Assert(err, qt.IsNil)
	c.Assert(changed, qt.IsFalse)
	c.Assert(sc.Handle(), qt.Equals, old)

	changed, err = sc.Recreate(1920, 1080)
	c.Assert(err, qt.IsNil)
	c.Assert(changed, qt.IsTrue)
	c.Assert(sc.Handle(), qt.Not(qt.Equals), old)
	c.Assert(f.driver.IsLive(device.Handle(old)), qt.IsFalse)

	info, _ := f.driver.SwapchainInfo(sc.Handle())
	c.Assert(info.Old, qt.Equals, old)
	c.Assert(info.Extent, qt.Equals, device.Extent{Width: 1920, Height: 1080})
	c.Assert(f.driver.Live("image"), qt.Equals, 3)
	c.Assert(f.driver.Live("view"), qt.Equals, 6)
}
