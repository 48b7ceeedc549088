// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package shader turns shader sources into SPIR-V and describes their
// resources. It derives the uniform buffer layout of a stage, assigns
// descriptor bindings, compiles through naga and caches bytecode by
// content hash.
package shader

import (
	"fmt"

	"github.com/devblok/korugs/core"
)

// ParamType is the value type of a shader parameter
type ParamType int

// Parameter types
const (
	ParamUnknown ParamType = iota
	ParamBool
	ParamFloat
	ParamInt
	ParamString
	ParamVec2
	ParamVec3
	ParamVec4
	ParamInt2
	ParamInt3
	ParamInt4
	ParamMatrix4x4
	ParamTexture
)

func (t ParamType) String() string {
	switch t {
	case ParamBool:
		return "bool"
	case ParamFloat:
		return "float"
	case ParamInt:
		return "int"
	case ParamString:
		return "string"
	case ParamVec2:
		return "vec2"
	case ParamVec3:
		return "vec3"
	case ParamVec4:
		return "vec4"
	case ParamInt2:
		return "int2"
	case ParamInt3:
		return "int3"
	case ParamInt4:
		return "int4"
	case ParamMatrix4x4:
		return "matrix4x4"
	case ParamTexture:
		return "texture"
	}
	return "unknown"
}

// Param is a parameter as reported by the preprocessor. Count is the
// array length, zero and one both mean a single value.
type Param struct {
	Name    string
	Type    ParamType
	Count   int
	Default []byte
}

// Sampler is a sampler declaration. Texture names the texture
// parameter it is sampled with, it may be empty.
type Sampler struct {
	Name    string
	Texture string
	Info    core.SamplerInfo
}

// Input is the semantic of one vertex shader input.
type Input int

// Vertex input semantics
const (
	InputPosition Input = iota
	InputNormal
	InputTangent
	InputColor
	InputTexCoord
)

func (i Input) String() string {
	switch i {
	case InputPosition:
		return "position"
	case InputNormal:
		return "normal"
	case InputTangent:
		return "tangent"
	case InputColor:
		return "color"
	case InputTexCoord:
		return "texcoord"
	}
	return "unknown"
}

// InputAttribute is one declared vertex input. Width is the component
// count of texture coordinates and is ignored for other semantics.
type InputAttribute struct {
	Name     string
	Location uint32
	Semantic Input
	Width    int
}

// DefaultEntry is the entry point of sources that do not name one.
const DefaultEntry = "main"

// Processed is the output of a Preprocessor. Uniforms is the name of
// the uniform block variable, empty when the stage declares none.
type Processed struct {
	Stage    core.ShaderType
	Source   string
	Entry    string
	Uniforms string
	Params   []Param
	Samplers []Sampler
	Inputs   []InputAttribute
}

// Preprocessor resolves a shader source and reflects its resources.
type Preprocessor interface {
	Process(source, file string) (*Processed, error)
}

// Well known parameter names
const (
	ViewProjName = "ViewProj"
	WorldName    = "World"
)

// Stage is a shader stage ready for compilation: the uniform layout is
// computed, aliases are translated and bindings are assigned.
type Stage struct {
	*Processed

	Offsets     []uint32
	UniformSize uint32
	Bindings    []Binding

	// Translated is the source handed to the compiler.
	Translated string
}

// Prepare runs the preprocessor and every pass that precedes compilation.
// When the preprocessor cannot tell the stage, want is used.
func Prepare(pre Preprocessor, want core.ShaderType, source, file string) (*Stage, error) {
	processed, err := pre.Process(source, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	switch {
	case processed.Stage == core.UnknownShaderType:
		processed.Stage = want
	case want != core.UnknownShaderType && processed.Stage != want:
		return nil, fmt.Errorf("%s: %w: declared %s, requested %s", file, core.ErrUnknownShaderStage, processed.Stage, want)
	}

	st := &Stage{Processed: processed}
	st.Offsets, st.UniformSize = Layout(processed.Params)

	translated := Translate(processed.Source)
	st.Translated, st.Bindings, err = AssignBindings(processed, translated)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return st, nil
}
