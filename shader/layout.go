// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

// RegisterSize is the size of one constant register. Parameters never
// straddle a register boundary unless they are larger than one.
const RegisterSize = 16

// ValueSize is the byte size of one element of a parameter type.
// Textures and strings do not live in the uniform buffer.
func ValueSize(t ParamType) uint32 {
	switch t {
	case ParamBool, ParamFloat, ParamInt:
		return 4
	case ParamVec2, ParamInt2:
		return 8
	case ParamVec3, ParamInt3:
		return 12
	case ParamVec4, ParamInt4:
		return 16
	case ParamMatrix4x4:
		return 64
	}
	return 0
}

// Size is the byte size of a parameter including its array count.
func (p Param) Size() uint32 {
	count := p.Count
	if count < 1 {
		count = 1
	}
	return ValueSize(p.Type) * uint32(count)
}

// Layout computes the uniform buffer offset of every parameter in
// declaration order and the total buffer size, rounded to RegisterSize.
// Parameters without uniform storage get offset zero.
func Layout(params []Param) (offsets []uint32, size uint32) {
	offsets = make([]uint32, len(params))
	for i, p := range params {
		s := p.Size()
		if s == 0 {
			continue
		}
		if rem := size % RegisterSize; rem != 0 && rem+s > RegisterSize {
			size += RegisterSize - rem
		}
		offsets[i] = size
		size += s
	}
	if rem := size % RegisterSize; rem != 0 {
		size += RegisterSize - rem
	}
	return offsets, size
}
