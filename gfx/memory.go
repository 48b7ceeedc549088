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

// Memory is one native allocation. Every buffer and image owns exactly
// one, bound at offset zero.
type Memory struct {
	driver device.Driver
	memory device.Memory
	len    uint64
	props  device.MemoryProperty
	mapped []byte
}

// Len returns the length of assigned memory.
func (m *Memory) Len() uint64 {
	return m.len
}

// Get returns the native memory handle.
func (m *Memory) Get() device.Memory {
	return m.memory
}

// Properties returns the property flags of the memory type.
func (m *Memory) Properties() device.MemoryProperty {
	return m.props
}

// Map maps the entire memory region. Mapping mapped memory returns
// the existing slice. The slice is valid until Unmap.
func (m *Memory) Map() ([]byte, error) {
	if m.mapped != nil {
		return m.mapped, nil
	}
	data, err := m.driver.MapMemory(m.memory, m.len)
	if err != nil {
		return nil, fmt.Errorf("vk.MapMemory(): %w", err)
	}
	m.mapped = data
	return data, nil
}

// Unmap removes the memory mapping if it was mapped.
func (m *Memory) Unmap() {
	if m.mapped != nil {
		m.driver.UnmapMemory(m.memory)
		m.mapped = nil
	}
}

// Release frees memory after unmapping it if previously mapped.
func (m *Memory) Release() {
	if m.memory == 0 {
		return
	}
	m.Unmap()
	m.driver.FreeMemory(m.memory)
	m.memory = 0
}

// NewMemoryAllocator creates a new memory allocator for the driver. The
// memory type table of the adapter is read once.
func NewMemoryAllocator(driver device.Driver) *MemoryAllocator {
	return &MemoryAllocator{
		driver: driver,
		types:  driver.MemoryTypes(),
	}
}

// MemoryAllocator is responsible returning usable
// memory for any resources that may need it.
type MemoryAllocator struct {
	driver device.Driver
	types  []device.MemoryType
}

// Malloc returns a usable memory chunk ready for use.
func (ma *MemoryAllocator) Malloc(req device.MemoryRequirements, props device.MemoryProperty) (*Memory, error) {
	typeIndex, err := ma.findMemoryType(req.TypeBits, props)
	if err != nil {
		return nil, err
	}
	memory, err := ma.driver.AllocateMemory(req.Size, typeIndex)
	if err != nil {
		return nil, fmt.Errorf("vk.AllocateMemory(): %w: %w", core.ErrAllocationFailed, err)
	}
	return &Memory{
		driver: ma.driver,
		memory: memory,
		len:    req.Size,
		props:  ma.types[typeIndex].Properties,
	}, nil
}

func (ma *MemoryAllocator) findMemoryType(filter uint32, props device.MemoryProperty) (uint32, error) {
	for idx, t := range ma.types {
		if filter&(1<<uint(idx)) != 0 && t.Properties&props == props {
			return uint32(idx), nil
		}
	}
	return 0, fmt.Errorf("%w: type bits %#x, properties %#x", core.ErrMemoryTypeUnavailable, filter, props)
}
