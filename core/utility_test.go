// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"image"
	"image/color"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korugs/core"
)

func TestSliceUint32(t *testing.T) {
	c := qt.New(t)
	c.Assert(core.SliceUint32(nil), qt.IsNil)
	c.Assert(core.SliceUint32([]byte{1, 2, 3}), qt.IsNil)

	words := []uint32{0x03020100, 0xdeadbeef}
	data := core.WordsToBytes(words)
	c.Assert(data[:4], qt.DeepEquals, []byte{0, 1, 2, 3})
	c.Assert(core.SliceUint32(data), qt.DeepEquals, words)

	// trailing bytes are dropped
	c.Assert(core.SliceUint32(append(data, 9)), qt.HasLen, 2)
}

func TestGetPixels(t *testing.T) {
	c := qt.New(t)
	gray := image.NewGray(image.Rect(2, 3, 4, 4))
	gray.SetGray(2, 3, color.Gray{Y: 10})
	gray.SetGray(3, 3, color.Gray{Y: 200})

	pix := core.GetPixels(gray)
	c.Assert(pix, qt.DeepEquals, []uint8{10, 10, 10, 255, 200, 200, 200, 255})
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Medium(b *testing.B) {
	data := make([]byte, 1000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkGetPixels(b *testing.B) {
	img := image.NewNRGBA(image.Rect(0, 0, 512, 512))
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(img)
	}
}
