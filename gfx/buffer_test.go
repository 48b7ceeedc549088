// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"encoding/binary"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/device/devicetest"
)

func TestBufferDataDeviceLocal(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	data := []byte("0123456789abcdef")
	buf, err := f.device.CreateBufferData(data, device.BufferVertex, device.MemoryDeviceLocal)
	c.Assert(err, qt.IsNil)
	defer buf.Release()

	c.Assert(f.driver.BufferData(buf.Handle()), qt.DeepEquals, data)
	c.Assert(buf.Usage()&device.BufferTransferDst, qt.Not(qt.Equals), device.BufferUsage(0))
	// only the buffer and its memory outlive the upload
	c.Assert(f.driver.Live("buffer"), qt.Equals, 1)
	c.Assert(f.driver.Live("memory"), qt.Equals, 1)
}

func TestBufferDataHostVisible(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	submits := len(f.driver.Submits)
	data := []byte{1, 2, 3, 4}
	buf, err := f.device.CreateBufferData(data, device.BufferUniform, stagingProps)
	c.Assert(err, qt.IsNil)
	defer buf.Release()

	c.Assert(f.driver.BufferData(buf.Handle()), qt.DeepEquals, data)
	c.Assert(f.driver.Submits, qt.HasLen, submits)
	c.Assert(f.driver.Mapped(buf.memory.Get()), qt.IsFalse)

	mapped, err := buf.Map()
	c.Assert(err, qt.IsNil)
	mapped[0] = 9
	buf.Unmap()
	c.Assert(f.driver.BufferData(buf.Handle())[0], qt.Equals, byte(9))
}

func TestBufferMemoryTypeUnavailable(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.driver.TypeBits = 1 << devicetest.DeviceLocalType
	_, err := f.device.CreateBuffer(64, device.BufferUniform, stagingProps)
	c.Assert(err, qt.ErrorIs, core.ErrMemoryTypeUnavailable)
	c.Assert(f.driver.Live("buffer"), qt.Equals, 0)
}

func TestBufferAllocationFailed(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.driver.FailAllocation = true
	_, err := f.device.CreateVertexBuffer(triangle(), false)
	c.Assert(err, qt.ErrorIs, core.ErrAllocationFailed)
	c.Assert(f.driver.Live("buffer"), qt.Equals, 0)
	c.Assert(f.driver.Live("memory"), qt.Equals, 0)
}

func TestVertexBufferLayout(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	data := &core.VertexData{
		Points:  []glm.Vec3{{1, 2, 3}, {4, 5, 6}},
		Normals: []glm.Vec3{{0, 0, 1}, {0, 1, 0}},
		Colors:  []uint32{0xFF0000FF, 0xFF00FF00},
		TexVerts: []core.TexVerts{
			{Width: 2, Data: []float32{0.25, 0.75, 1, 0}},
		},
	}
	vb, err := f.device.CreateVertexBuffer(data, false)
	c.Assert(err, qt.IsNil)
	defer vb.Release()

	c.Assert(vb.Len(), qt.Equals, 2)
	c.Assert(vb.Stride(), qt.Equals, uint32(16+16+4+8))
	raw := f.driver.BufferData(vb.Handle())
	c.Assert(raw, qt.HasLen, 2*44)

	word := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
	}
	second := 44
	c.Assert(word(second+0), qt.Equals, float32(4))
	c.Assert(word(second+12), qt.Equals, float32(1))
	c.Assert(word(second+20), qt.Equals, float32(1))
	c.Assert(word(second+28), qt.Equals, float32(0))
	c.Assert(binary.LittleEndian.Uint32(raw[second+32:]), qt.Equals, uint32(0xFF00FF00))
	c.Assert(word(second+36), qt.Equals, float32(1))
	c.Assert(word(second+40), qt.Equals, float32(0))
}

func TestVertexBufferMismatchedAttributes(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	data := triangle()
	data.Normals = []glm.Vec3{{0, 0, 1}}
	_, err := f.device.CreateVertexBuffer(data, false)
	c.Assert(err, qt.ErrorIs, core.ErrSizeMismatch)

	_, err = f.device.CreateVertexBuffer(&core.VertexData{}, false)
	c.Assert(err, qt.ErrorIs, core.ErrSizeMismatch)
}

func TestVertexBufferFlush(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	static, err := f.device.CreateVertexBuffer(triangle(), false)
	c.Assert(err, qt.IsNil)
	defer static.Release()
	c.Assert(static.Flush(triangle()), qt.ErrorMatches, "flush of a static vertex buffer")

	vb, err := f.device.CreateVertexBuffer(triangle(), true)
	c.Assert(err, qt.IsNil)
	defer vb.Release()

	smaller := &core.VertexData{Points: []glm.Vec3{{7, 8, 9}}}
	c.Assert(vb.Flush(smaller), qt.IsNil)
	c.Assert(vb.Len(), qt.Equals, 1)
	raw := f.driver.BufferData(vb.Handle())
	c.Assert(math.Float32frombits(binary.LittleEndian.Uint32(raw)), qt.Equals, float32(7))

	larger := &core.VertexData{Points: make([]glm.Vec3, 4)}
	c.Assert(vb.Flush(larger), qt.ErrorIs, core.ErrSizeMismatch)
	c.Assert(vb.Len(), qt.Equals, 1)
	c.Assert(math.Float32frombits(binary.LittleEndian.Uint32(f.driver.BufferData(vb.Handle()))), qt.Equals, float32(7))

	colored := triangle()
	colored.Colors = []uint32{1, 2, 3}
	c.Assert(vb.Flush(colored), qt.ErrorIs, core.ErrSizeMismatch)
}

func TestIndexBuffer(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	ib, err := f.device.CreateIndexBuffer([]uint32{0, 1, 2, 2, 3, 0}, device.IndexUint16, true)
	c.Assert(err, qt.IsNil)
	defer ib.Release()

	c.Assert(ib.Len(), qt.Equals, 6)
	c.Assert(ib.Size(), qt.Equals, uint64(12))
	raw := f.driver.BufferData(ib.Handle())
	c.Assert(binary.LittleEndian.Uint16(raw[6:]), qt.Equals, uint16(2))
	c.Assert(binary.LittleEndian.Uint16(raw[8:]), qt.Equals, uint16(3))

	c.Assert(ib.Flush([]uint32{5, 6, 7}), qt.IsNil)
	c.Assert(ib.Len(), qt.Equals, 3)
	c.Assert(binary.LittleEndian.Uint16(f.driver.BufferData(ib.Handle())), qt.Equals, uint16(5))

	c.Assert(ib.Flush(make([]uint32, 7)), qt.ErrorIs, core.ErrSizeMismatch)
	c.Assert(ib.Flush([]uint32{0x10000}), qt.ErrorMatches, "index 65536 at 0 does not fit 16 bits")

	_, err = f.device.CreateIndexBuffer([]uint32{70000}, device.IndexUint16, false)
	c.Assert(err, qt.IsNotNil)
	wide, err := f.device.CreateIndexBuffer([]uint32{70000}, device.IndexUint32, false)
	c.Assert(err, qt.IsNil)
	defer wide.Release()
	c.Assert(binary.LittleEndian.Uint32(f.driver.BufferData(wide.Handle())), qt.Equals, uint32(70000))
	c.Assert(wide.Flush([]uint32{1}), qt.ErrorMatches, "flush of a static index buffer")
}

func TestUniformBufferUpdate(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	ub, err := f.device.CreateUniformBuffer(20)
	c.Assert(err, qt.IsNil)
	defer ub.Release()
	// padded to the uniform offset alignment
	c.Assert(ub.Size(), qt.Equals, uint64(256))

	c.Assert(ub.Update([]byte{1, 2, 3, 4}), qt.IsNil)
	c.Assert(f.driver.BufferData(ub.Handle())[:4], qt.DeepEquals, []byte{1, 2, 3, 4})

	c.Assert(ub.Update(make([]byte, 257)), qt.ErrorIs, core.ErrSizeMismatch)
	c.Assert(f.driver.BufferData(ub.Handle())[:4], qt.DeepEquals, []byte{1, 2, 3, 4})
}
