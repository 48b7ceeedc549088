// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/shader"
)

// stagingProps are the memory properties of every staging buffer
const stagingProps = device.MemoryHostVisible | device.MemoryHostCoherent

// Buffer implements a generic buffer backed by its own memory.
type Buffer struct {
	driver device.Driver
	buffer device.Buffer
	memory *Memory
	size   uint64
	usage  device.BufferUsage
	props  device.MemoryProperty
	marked bool
}

// CreateBuffer creates, allocates and binds a new buffer. The memory type
// must have every bit of props.
func (d *Device) CreateBuffer(size uint64, usage device.BufferUsage, props device.MemoryProperty) (*Buffer, error) {
	buffer, req, err := d.driver.CreateBuffer(size, usage)
	if err != nil {
		return nil, fmt.Errorf("vk.CreateBuffer(): %w: %w", core.ErrAllocationFailed, err)
	}
	memory, err := d.allocator.Malloc(req, props)
	if err != nil {
		d.driver.DestroyBuffer(buffer)
		return nil, err
	}
	if err := d.driver.BindBufferMemory(buffer, memory.Get()); err != nil {
		memory.Release()
		d.driver.DestroyBuffer(buffer)
		return nil, fmt.Errorf("vk.BindBufferMemory(): %w", err)
	}
	return &Buffer{
		driver: d.driver,
		buffer: buffer,
		memory: memory,
		size:   size,
		usage:  usage,
		props:  props,
	}, nil
}

// CreateBufferData creates a buffer holding data. Host visible buffers are
// written directly, any other goes through a temporary staging buffer.
func (d *Device) CreateBufferData(data []byte, usage device.BufferUsage, props device.MemoryProperty) (*Buffer, error) {
	size := uint64(len(data))
	if props&device.MemoryHostVisible != 0 {
		buf, err := d.CreateBuffer(size, usage, props)
		if err != nil {
			return nil, err
		}
		mapped, err := buf.Map()
		if err != nil {
			buf.Release()
			return nil, err
		}
		copy(mapped, data)
		buf.Unmap()
		return buf, nil
	}

	buf, staging, err := d.createStaged(size, usage, props)
	if err != nil {
		return nil, err
	}
	defer staging.Release()
	if err := d.upload(buf, staging, data); err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

// createStaged creates a transfer destination buffer and a host visible
// staging buffer of the same size.
func (d *Device) createStaged(size uint64, usage device.BufferUsage, props device.MemoryProperty) (buf, staging *Buffer, err error) {
	staging, err = d.CreateBuffer(size, device.BufferTransferSrc, stagingProps)
	if err != nil {
		return nil, nil, err
	}
	buf, err = d.CreateBuffer(size, usage|device.BufferTransferDst, props)
	if err != nil {
		staging.Release()
		return nil, nil, err
	}
	return buf, staging, nil
}

// upload fills staging with data and copies it into dst. Data larger than
// the staging buffer fails without copying anything.
func (d *Device) upload(dst, staging *Buffer, data []byte) error {
	if uint64(len(data)) > staging.size {
		return fmt.Errorf("%w: %d bytes into a %d byte buffer", core.ErrSizeMismatch, len(data), staging.size)
	}
	if len(data) == 0 {
		return nil
	}
	mapped, err := staging.Map()
	if err != nil {
		return err
	}
	copy(mapped, data)
	staging.Unmap()
	return d.instant.copyBuffer(staging.buffer, dst.buffer, uint64(len(data)))
}

// Handle returns the native buffer handle.
func (b *Buffer) Handle() device.Buffer {
	return b.buffer
}

// Size returns the buffer capacity in bytes.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Usage returns the usage flags the buffer was created with.
func (b *Buffer) Usage() device.BufferUsage {
	return b.usage
}

// Properties returns the requested memory properties.
func (b *Buffer) Properties() device.MemoryProperty {
	return b.props
}

// Map returns the host mapping of the buffer memory, valid until Unmap.
func (b *Buffer) Map() ([]byte, error) {
	return b.memory.Map()
}

// Unmap invalidates the slice returned by Map.
func (b *Buffer) Unmap() {
	b.memory.Unmap()
}

// Marked reports whether the buffer waits for collection.
func (b *Buffer) Marked() bool {
	return b.marked
}

// Release destroys the buffer and memory asociated with it.
func (b *Buffer) Release() {
	if b.buffer == 0 {
		return
	}
	b.driver.DestroyBuffer(b.buffer)
	b.memory.Release()
	b.buffer = 0
}

// VertexBuffer holds interleaved vertex records in device local memory.
type VertexBuffer struct {
	*Buffer

	device  *Device
	staging *Buffer
	format  shader.VertexFormat
	stride  uint32
	count   int
	dynamic bool
}

// CreateVertexBuffer interleaves data and uploads it. Dynamic buffers
// accept Flush.
func (d *Device) CreateVertexBuffer(data *core.VertexData, dynamic bool) (*VertexBuffer, error) {
	packed, format, err := packVertices(data)
	if err != nil {
		return nil, err
	}
	buf, staging, err := d.createStaged(uint64(len(packed)), device.BufferVertex, device.MemoryDeviceLocal)
	if err != nil {
		return nil, err
	}
	if err := d.upload(buf, staging, packed); err != nil {
		buf.Release()
		staging.Release()
		return nil, err
	}
	_, stride := format.Layout()
	return &VertexBuffer{
		Buffer:  buf,
		device:  d,
		staging: staging,
		format:  format,
		stride:  stride,
		count:   data.Len(),
		dynamic: dynamic,
	}, nil
}

// Flush replaces the vertices of a dynamic buffer. The new data must have
// the same attributes and fit the allocated capacity.
func (vb *VertexBuffer) Flush(data *core.VertexData) error {
	if !vb.dynamic {
		return errors.New("flush of a static vertex buffer")
	}
	packed, format, err := packVertices(data)
	if err != nil {
		return err
	}
	if !format.Equal(vb.format) {
		return fmt.Errorf("%w: vertex format %s, buffer holds %s", core.ErrSizeMismatch, format, vb.format)
	}
	if err := vb.device.upload(vb.Buffer, vb.staging, packed); err != nil {
		return err
	}
	vb.count = data.Len()
	vb.device.invalidateFrames()
	return nil
}

// Len returns the number of vertices.
func (vb *VertexBuffer) Len() int {
	return vb.count
}

// Format returns the attributes held by each record.
func (vb *VertexBuffer) Format() shader.VertexFormat {
	return vb.format
}

// Stride returns the record size in bytes.
func (vb *VertexBuffer) Stride() uint32 {
	return vb.stride
}

// Dynamic reports whether the buffer accepts Flush.
func (vb *VertexBuffer) Dynamic() bool {
	return vb.dynamic
}

// Release destroys the buffer together with its staging buffer.
func (vb *VertexBuffer) Release() {
	vb.Buffer.Release()
	vb.staging.Release()
}

// IndexBuffer holds 16 or 32 bit indices in device local memory.
type IndexBuffer struct {
	*Buffer

	device    *Device
	staging   *Buffer
	indexType device.IndexType
	count     int
	dynamic   bool
}

// IndexSize is the byte width of one index.
func IndexSize(t device.IndexType) int {
	if t == device.IndexUint16 {
		return 2
	}
	return 4
}

func packIndices(indices []uint32, t device.IndexType) ([]byte, error) {
	width := IndexSize(t)
	packed := make([]byte, len(indices)*width)
	for i, idx := range indices {
		if width == 2 {
			if idx > 0xFFFF {
				return nil, fmt.Errorf("index %d at %d does not fit 16 bits", idx, i)
			}
			binary.LittleEndian.PutUint16(packed[i*2:], uint16(idx))
			continue
		}
		binary.LittleEndian.PutUint32(packed[i*4:], idx)
	}
	return packed, nil
}

// CreateIndexBuffer uploads indices stored with the given index type.
func (d *Device) CreateIndexBuffer(indices []uint32, t device.IndexType, dynamic bool) (*IndexBuffer, error) {
	packed, err := packIndices(indices, t)
	if err != nil {
		return nil, err
	}
	buf, staging, err := d.createStaged(uint64(len(packed)), device.BufferIndex, device.MemoryDeviceLocal)
	if err != nil {
		return nil, err
	}
	if err := d.upload(buf, staging, packed); err != nil {
		buf.Release()
		staging.Release()
		return nil, err
	}
	return &IndexBuffer{
		Buffer:    buf,
		device:    d,
		staging:   staging,
		indexType: t,
		count:     len(indices),
		dynamic:   dynamic,
	}, nil
}

// Flush replaces the indices of a dynamic buffer.
func (ib *IndexBuffer) Flush(indices []uint32) error {
	if !ib.dynamic {
		return errors.New("flush of a static index buffer")
	}
	packed, err := packIndices(indices, ib.indexType)
	if err != nil {
		return err
	}
	if err := ib.device.upload(ib.Buffer, ib.staging, packed); err != nil {
		return err
	}
	ib.count = len(indices)
	ib.device.invalidateFrames()
	return nil
}

// Len returns the number of indices.
func (ib *IndexBuffer) Len() int {
	return ib.count
}

// IndexType returns the width of the indices.
func (ib *IndexBuffer) IndexType() device.IndexType {
	return ib.indexType
}

// Release destroys the buffer together with its staging buffer.
func (ib *IndexBuffer) Release() {
	ib.Buffer.Release()
	ib.staging.Release()
}

// UniformBuffer backs the parameters of one shader stage.
type UniformBuffer struct {
	*Buffer

	device  *Device
	staging *Buffer
}

// CreateUniformBuffer creates a uniform buffer of at least size bytes,
// padded to the uniform offset alignment of the adapter.
func (d *Device) CreateUniformBuffer(size uint64) (*UniformBuffer, error) {
	if align := d.adapter.Limits.MinUniformBufferOffsetAlignment; align > 1 {
		size = (size + align - 1) / align * align
	}
	buf, staging, err := d.createStaged(size, device.BufferUniform, device.MemoryDeviceLocal)
	if err != nil {
		return nil, err
	}
	return &UniformBuffer{
		Buffer:  buf,
		device:  d,
		staging: staging,
	}, nil
}

// Update uploads data to the start of the buffer.
func (ub *UniformBuffer) Update(data []byte) error {
	return ub.device.upload(ub.Buffer, ub.staging, data)
}

// Release destroys the buffer together with its staging buffer.
func (ub *UniformBuffer) Release() {
	ub.Buffer.Release()
	ub.staging.Release()
}
