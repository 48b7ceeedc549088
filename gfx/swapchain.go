// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	log "github.com/sirupsen/logrus"
)

// depthFormats are tried in order for the depth attachment
var depthFormats = []device.Format{
	device.FormatD32Sfloat,
	device.FormatD32SfloatS8Uint,
	device.FormatD24UnormS8Uint,
}

// compositePreference lists composite alpha modes from most preferred
var compositePreference = []device.CompositeAlpha{
	device.CompositePreMultiplied,
	device.CompositePostMultiplied,
	device.CompositeInherit,
	device.CompositeOpaque,
}

type depthImage struct {
	image  device.Image
	view   device.ImageView
	memory *Memory
}

// Swapchain presents to one window surface. It owns the surface, the
// color views of its images and one depth attachment per image.
type Swapchain struct {
	device  *Device
	log     *log.Entry
	surface device.Surface

	swapchain      device.Swapchain
	images         []device.Image
	views          []device.ImageView
	depth          []depthImage
	format         device.SurfaceFormat
	depthFormat    device.Format
	presentMode    device.PresentMode
	compositeAlpha device.CompositeAlpha
	extent         device.Extent
	marked         bool
}

// CreateSwapchain wraps a native window surface and creates a swapchain
// of the requested size on it. The surface is owned by the swapchain.
func (d *Device) CreateSwapchain(native uintptr, width, height uint32) (*Swapchain, error) {
	surface, err := d.driver.ImportSurface(native)
	if err != nil {
		return nil, fmt.Errorf("vk.CreateSurface(): %w", err)
	}
	sc := &Swapchain{
		device:  d,
		log:     d.log.WithField("swapchain", surface),
		surface: surface,
	}
	if err := sc.choose(); err != nil {
		d.driver.DestroySurface(surface)
		return nil, err
	}
	if err := sc.build(width, height); err != nil {
		sc.destroyImages()
		d.driver.DestroySurface(surface)
		return nil, err
	}
	return sc, nil
}

// choose picks the surface format, present mode, composite alpha and
// depth format once. They do not change on resize.
func (sc *Swapchain) choose() error {
	d := sc.device
	formats, err := d.driver.SurfaceFormats(sc.surface)
	if err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	sc.format, err = chooseSurfaceFormat(formats)
	if err != nil {
		return err
	}
	modes, err := d.driver.PresentModes(sc.surface)
	if err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfacePresentModes(): %w", err)
	}
	sc.presentMode = choosePresentMode(modes)

	caps, err := d.driver.SurfaceCapabilities(sc.surface)
	if err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceCapabilities(): %w", err)
	}
	sc.compositeAlpha = chooseCompositeAlpha(caps.CompositeAlpha)

	sc.depthFormat = device.FormatUndefined
	for _, f := range depthFormats {
		if d.driver.FormatSupportsDepth(f) {
			sc.depthFormat = f
			break
		}
	}
	if sc.depthFormat == device.FormatUndefined {
		return fmt.Errorf("%w: no depth attachment format", core.ErrUnsupportedFormat)
	}
	sc.log.WithFields(log.Fields{
		"format":  sc.format.Format,
		"depth":   sc.depthFormat,
		"present": sc.presentMode,
	}).Debug("swapchain configuration")
	return nil
}

func chooseSurfaceFormat(formats []device.SurfaceFormat) (device.SurfaceFormat, error) {
	if len(formats) == 0 {
		return device.SurfaceFormat{}, fmt.Errorf("%w: surface reports no formats", core.ErrUnsupportedFormat)
	}
	// a single undefined entry means any format is accepted
	if len(formats) == 1 && formats[0].Format == device.FormatUndefined {
		return device.SurfaceFormat{Format: device.FormatB8G8R8A8Unorm, ColorSpace: device.ColorSpaceSrgbNonlinear}, nil
	}
	for _, f := range formats {
		if f.Format == device.FormatB8G8R8A8Unorm {
			return f, nil
		}
	}
	return formats[0], nil
}

func choosePresentMode(modes []device.PresentMode) device.PresentMode {
	for _, m := range modes {
		if m == device.PresentMailbox {
			return m
		}
	}
	return device.PresentFIFO
}

func chooseCompositeAlpha(supported device.CompositeAlpha) device.CompositeAlpha {
	for _, c := range compositePreference {
		if supported&c != 0 {
			return c
		}
	}
	return device.CompositeOpaque
}

func chooseExtent(caps device.SurfaceCapabilities, width, height uint32) device.Extent {
	if caps.CurrentExtent.Width != 0xFFFFFFFF {
		return caps.CurrentExtent
	}
	return device.Extent{
		Width:  min(max(width, caps.MinExtent.Width), caps.MaxExtent.Width),
		Height: min(max(height, caps.MinExtent.Height), caps.MaxExtent.Height),
	}
}

func chooseImageCount(caps device.SurfaceCapabilities, want uint32) uint32 {
	count := max(want, caps.MinImageCount)
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// build creates the native swapchain, replacing the previous one, and
// the per image attachments.
func (sc *Swapchain) build(width, height uint32) error {
	d := sc.device
	caps, err := d.driver.SurfaceCapabilities(sc.surface)
	if err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceCapabilities(): %w", err)
	}
	extent := chooseExtent(caps, width, height)
	old := sc.swapchain
	swapchain, images, err := d.driver.CreateSwapchain(device.SwapchainInfo{
		Surface:        sc.surface,
		MinImageCount:  chooseImageCount(caps, d.cfg.Renderer.SwapchainSize),
		Format:         sc.format,
		Extent:         extent,
		PresentMode:    sc.presentMode,
		CompositeAlpha: sc.compositeAlpha,
		Old:            old,
	})
	if err != nil {
		return fmt.Errorf("vk.CreateSwapchain(): %w", err)
	}
	sc.destroyImages()
	if old != 0 {
		d.driver.DestroySwapchain(old)
	}
	sc.swapchain, sc.images, sc.extent = swapchain, images, extent

	for _, img := range images {
		view, err := d.driver.CreateImageView(img, sc.format.Format, device.AspectColor)
		if err != nil {
			return fmt.Errorf("vk.CreateImageView(): %w", err)
		}
		sc.views = append(sc.views, view)

		depth, err := sc.createDepth()
		if err != nil {
			return err
		}
		sc.depth = append(sc.depth, depth)
	}
	sc.log.WithFields(log.Fields{
		"width":  extent.Width,
		"height": extent.Height,
		"images": len(images),
	}).Info("swapchain created")
	return nil
}

func (sc *Swapchain) createDepth() (depthImage, error) {
	d := sc.device
	img, req, err := d.driver.CreateImage(device.ImageInfo{
		Format:    sc.depthFormat,
		Extent:    sc.extent,
		MipLevels: 1,
		Usage:     device.ImageDepthStencilAttachment,
	})
	if err != nil {
		return depthImage{}, fmt.Errorf("vk.CreateImage(): %w: %w", core.ErrAllocationFailed, err)
	}
	memory, err := d.allocator.Malloc(req, device.MemoryDeviceLocal)
	if err != nil {
		d.driver.DestroyImage(img)
		return depthImage{}, err
	}
	if err := d.driver.BindImageMemory(img, memory.Get()); err != nil {
		memory.Release()
		d.driver.DestroyImage(img)
		return depthImage{}, fmt.Errorf("vk.BindImageMemory(): %w", err)
	}
	aspect := device.AspectDepth
	if sc.depthFormat != device.FormatD32Sfloat {
		aspect |= device.AspectStencil
	}
	view, err := d.driver.CreateImageView(img, sc.depthFormat, aspect)
	if err != nil {
		memory.Release()
		d.driver.DestroyImage(img)
		return depthImage{}, fmt.Errorf("vk.CreateImageView(): %w", err)
	}
	depth := depthImage{image: img, view: view, memory: memory}
	if err := d.instant.transition(img, device.LayoutUndefined, device.LayoutDepthStencilAttachment, aspect); err != nil {
		destroyDepth(d.driver, depth)
		return depthImage{}, err
	}
	return depth, nil
}

func destroyDepth(driver device.Driver, depth depthImage) {
	driver.DestroyImageView(depth.view)
	driver.DestroyImage(depth.image)
	depth.memory.Release()
}

func (sc *Swapchain) destroyImages() {
	for _, v := range sc.views {
		sc.device.driver.DestroyImageView(v)
	}
	for _, depth := range sc.depth {
		destroyDepth(sc.device.driver, depth)
	}
	sc.views, sc.depth, sc.images = nil, nil, nil
}

// Recreate rebuilds the swapchain for a new window size. Nothing happens
// when the size did not change.
func (sc *Swapchain) Recreate(width, height uint32) (bool, error) {
	if sc.extent.Width == width && sc.extent.Height == height {
		return false, nil
	}
	if err := sc.device.driver.WaitIdle(); err != nil {
		return false, fmt.Errorf("vk.DeviceWaitIdle(): %w", err)
	}
	if err := sc.build(width, height); err != nil {
		return false, err
	}
	return true, nil
}

// Handle returns the native swapchain.
func (sc *Swapchain) Handle() device.Swapchain {
	return sc.swapchain
}

// Extent returns the size of the swapchain images.
func (sc *Swapchain) Extent() device.Extent {
	return sc.extent
}

// Format returns the surface format of the swapchain images.
func (sc *Swapchain) Format() device.SurfaceFormat {
	return sc.format
}

// DepthFormat returns the format of the depth attachments.
func (sc *Swapchain) DepthFormat() device.Format {
	return sc.depthFormat
}

// PresentMode returns the chosen present mode.
func (sc *Swapchain) PresentMode() device.PresentMode {
	return sc.presentMode
}

// Len returns the number of swapchain images.
func (sc *Swapchain) Len() int {
	return len(sc.images)
}

// Marked reports whether the swapchain waits for collection.
func (sc *Swapchain) Marked() bool {
	return sc.marked
}

// Release destroys the attachments, the swapchain and its surface.
func (sc *Swapchain) Release() {
	if sc.swapchain == 0 {
		return
	}
	sc.destroyImages()
	sc.device.driver.DestroySwapchain(sc.swapchain)
	sc.device.driver.DestroySurface(sc.surface)
	sc.swapchain = 0
}
