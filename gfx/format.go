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

var toNative = map[core.ColorFormat]device.Format{
	core.FormatA8:          device.FormatR8Unorm,
	core.FormatR8:          device.FormatR8Unorm,
	core.FormatRGBA:        device.FormatR8G8B8A8Unorm,
	core.FormatBGRX:        device.FormatB8G8R8A8Unorm,
	core.FormatBGRA:        device.FormatB8G8R8A8Unorm,
	core.FormatR10G10B10A2: device.FormatA2R10G10B10Unorm,
	core.FormatRGBA16:      device.FormatR16G16B16A16Unorm,
	core.FormatR16:         device.FormatR16Unorm,
	core.FormatRGBA16F:     device.FormatR16G16B16A16Sfloat,
	core.FormatRGBA32F:     device.FormatR32G32B32A32Sfloat,
	core.FormatRG16F:       device.FormatR16G16Sfloat,
	core.FormatRG32F:       device.FormatR32G32Sfloat,
	core.FormatR16F:        device.FormatR16Sfloat,
	core.FormatR32F:        device.FormatR32Sfloat,
	core.FormatR8G8:        device.FormatR8G8Unorm,
	core.FormatRGBAUnorm:   device.FormatR8G8B8A8Unorm,
	core.FormatBGRXUnorm:   device.FormatB8G8R8A8Unorm,
	core.FormatBGRAUnorm:   device.FormatB8G8R8A8Unorm,
	core.FormatRG16:        device.FormatR16G16Unorm,
}

// NativeFormat converts a color format to the native one.
// Block compressed formats are not supported.
func NativeFormat(f core.ColorFormat) (device.Format, error) {
	if f.IsCompressed() {
		return device.FormatUndefined, fmt.Errorf("%w: block compressed %d", core.ErrUnsupportedFormat, f)
	}
	native, ok := toNative[f]
	if !ok {
		return device.FormatUndefined, fmt.Errorf("%w: color format %d", core.ErrUnsupportedFormat, f)
	}
	return native, nil
}

// ColorFormatOf converts a native format back. Formats with several
// color formats mapping to them resolve to the plain variant.
func ColorFormatOf(f device.Format) core.ColorFormat {
	switch f {
	case device.FormatR8Unorm:
		return core.FormatR8
	case device.FormatR8G8Unorm:
		return core.FormatR8G8
	case device.FormatR8G8B8A8Unorm, device.FormatR8G8B8A8Srgb:
		return core.FormatRGBA
	case device.FormatB8G8R8A8Unorm, device.FormatB8G8R8A8Srgb:
		return core.FormatBGRA
	case device.FormatA2R10G10B10Unorm:
		return core.FormatR10G10B10A2
	case device.FormatR16Unorm:
		return core.FormatR16
	case device.FormatR16Sfloat:
		return core.FormatR16F
	case device.FormatR16G16Unorm:
		return core.FormatRG16
	case device.FormatR16G16Sfloat:
		return core.FormatRG16F
	case device.FormatR16G16B16A16Unorm:
		return core.FormatRGBA16
	case device.FormatR16G16B16A16Sfloat:
		return core.FormatRGBA16F
	case device.FormatR32Sfloat:
		return core.FormatR32F
	case device.FormatR32G32Sfloat:
		return core.FormatRG32F
	case device.FormatR32G32B32A32Sfloat:
		return core.FormatRGBA32F
	}
	return core.FormatUnknown
}
