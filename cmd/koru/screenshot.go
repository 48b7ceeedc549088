// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/gfx"
	"github.com/devblok/korugs/graphics"
	"golang.org/x/image/bmp"
)

// frameImage copies a mapped frame into an image. Rows are pitch bytes
// apart, formats without alpha come out opaque.
func frameImage(data []byte, pitch, width, height uint32, format core.ColorFormat) (*image.RGBA, error) {
	var swap, opaque bool
	switch format {
	case core.FormatRGBA, core.FormatRGBAUnorm:
	case core.FormatBGRA, core.FormatBGRAUnorm:
		swap = true
	case core.FormatBGRX, core.FormatBGRXUnorm:
		swap, opaque = true, true
	default:
		return nil, fmt.Errorf("%w: cannot save format %d frames", core.ErrUnsupportedFormat, format)
	}
	if width == 0 || height == 0 || pitch < width*4 || uint64(len(data)) < uint64(pitch)*uint64(height-1)+uint64(width)*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d pitch %d", core.ErrSizeMismatch, len(data), width, height, pitch)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	for y := uint32(0); y < height; y++ {
		src := data[y*pitch : y*pitch+width*4]
		dst := img.Pix[int(y)*img.Stride:]
		for x := uint32(0); x < width*4; x += 4 {
			r, g, b, a := src[x], src[x+1], src[x+2], src[x+3]
			if swap {
				r, b = b, r
			}
			if opaque {
				a = 0xff
			}
			dst[x], dst[x+1], dst[x+2], dst[x+3] = r, g, b, a
		}
	}
	return img, nil
}

// saveFrame writes the last presented frame of sc as a bitmap into dir.
func saveFrame(g *graphics.Graphics, sc *gfx.Swapchain, dir string) (string, error) {
	extent := sc.Extent()
	format := gfx.ColorFormatOf(sc.Format().Format)

	surface := g.CreateStageSurface(extent.Width, extent.Height, format)
	if surface == nil {
		return "", errors.New("stage surface not created")
	}
	defer g.DestroyStageSurface(surface)

	if !g.StageFrame(surface) {
		return "", errors.New("frame not staged")
	}
	data, pitch, ok := g.MapStageSurface(surface)
	if !ok {
		return "", errors.New("stage surface not mapped")
	}
	img, err := frameImage(data, pitch, extent.Width, extent.Height, format)
	g.UnmapStageSurface(surface)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("koru-%s.bmp", time.Now().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := bmp.Encode(f, img); err != nil {
		return "", err
	}
	return path, nil
}
