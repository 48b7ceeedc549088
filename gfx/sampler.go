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

type filterModes struct {
	min, mag    device.Filter
	mip         device.MipmapMode
	anisotropic bool
}

var filters = map[core.SampleFilter]filterModes{
	core.FilterPoint:                      {device.FilterNearest, device.FilterNearest, device.MipmapNearest, false},
	core.FilterLinear:                     {device.FilterLinear, device.FilterLinear, device.MipmapLinear, false},
	core.FilterAnisotropic:                {device.FilterLinear, device.FilterLinear, device.MipmapLinear, true},
	core.FilterMinMagPointMipLinear:       {device.FilterNearest, device.FilterNearest, device.MipmapLinear, false},
	core.FilterMinPointMagLinearMipPoint:  {device.FilterNearest, device.FilterLinear, device.MipmapNearest, false},
	core.FilterMinPointMagMipLinear:       {device.FilterNearest, device.FilterLinear, device.MipmapLinear, false},
	core.FilterMinLinearMagMipPoint:       {device.FilterLinear, device.FilterNearest, device.MipmapNearest, false},
	core.FilterMinLinearMagPointMipLinear: {device.FilterLinear, device.FilterNearest, device.MipmapLinear, false},
	core.FilterMinMagLinearMipPoint:       {device.FilterLinear, device.FilterLinear, device.MipmapNearest, false},
}

var addressModes = map[core.AddressMode]device.AddressMode{
	core.AddressClamp:      device.AddressClampToEdge,
	core.AddressWrap:       device.AddressRepeat,
	core.AddressMirror:     device.AddressMirroredRepeat,
	core.AddressBorder:     device.AddressClampToBorder,
	core.AddressMirrorOnce: device.AddressMirrorClampToEdge,
}

// nativeSampler converts info. Anisotropy applies to the anisotropic
// filter only and is clamped to [1, limit].
func nativeSampler(info core.SamplerInfo, limit float32) (device.SamplerInfo, error) {
	f, ok := filters[info.Filter]
	if !ok {
		return device.SamplerInfo{}, fmt.Errorf("unknown sample filter %d", info.Filter)
	}
	var modes [3]device.AddressMode
	for i, m := range []core.AddressMode{info.AddressU, info.AddressV, info.AddressW} {
		if modes[i], ok = addressModes[m]; !ok {
			return device.SamplerInfo{}, fmt.Errorf("unknown address mode %d", m)
		}
	}
	anisotropy := float32(1)
	if f.anisotropic {
		anisotropy = float32(info.MaxAnisotropy)
		if anisotropy > limit {
			anisotropy = limit
		}
		if anisotropy < 1 {
			anisotropy = 1
		}
	}
	return device.SamplerInfo{
		MinFilter:     f.min,
		MagFilter:     f.mag,
		MipmapMode:    f.mip,
		AddressU:      modes[0],
		AddressV:      modes[1],
		AddressW:      modes[2],
		MaxAnisotropy: anisotropy,
		BorderColor:   device.BorderFloatTransparentBlack,
	}, nil
}

// Sampler is a native sampler created from a core.SamplerInfo.
type Sampler struct {
	driver  device.Driver
	sampler device.Sampler
	info    core.SamplerInfo
	marked  bool
}

// CreateSampler creates a sampler state.
func (d *Device) CreateSampler(info core.SamplerInfo) (*Sampler, error) {
	native, err := nativeSampler(info, d.adapter.Limits.MaxSamplerAnisotropy)
	if err != nil {
		return nil, err
	}
	sampler, err := d.driver.CreateSampler(native)
	if err != nil {
		return nil, fmt.Errorf("vk.CreateSampler(): %w", err)
	}
	return &Sampler{
		driver:  d.driver,
		sampler: sampler,
		info:    info,
	}, nil
}

// Handle returns the native sampler.
func (s *Sampler) Handle() device.Sampler {
	return s.sampler
}

// Info returns the state the sampler was created with.
func (s *Sampler) Info() core.SamplerInfo {
	return s.info
}

// Marked reports whether the sampler waits for collection.
func (s *Sampler) Marked() bool {
	return s.marked
}

// Release destroys the sampler.
func (s *Sampler) Release() {
	if s.sampler == 0 {
		return
	}
	s.driver.DestroySampler(s.sampler)
	s.sampler = 0
}
