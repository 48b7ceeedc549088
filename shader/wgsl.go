// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/devblok/korugs/core"
)

// WGSL is a Preprocessor for WGSL sources, with the neutral aliases
// accepted in type positions. It reflects the uniform block, textures,
// samplers and vertex inputs of a stage.
//
// Uniform block members are written one per line. A member may carry
// its default value in a trailing comment:
//
//	tint: vec4<f32>, // = 1, 1, 1, 1
//
// A sampler line may carry its state the same way:
//
//	var smp: sampler; // texture=albedo filter=linear address=wrap anisotropy=8
type WGSL struct {
	// Include resolves #include "name" lines. Nil disables includes.
	Include func(name string) (string, error)
}

// maxIncludeDepth bounds nested includes
const maxIncludeDepth = 16

var (
	includePattern  = regexp.MustCompile(`(?m)^[ \t]*#include[ \t]+"([^"]+)"[ \t]*$`)
	varPattern      = regexp.MustCompile(`(?m)^[ \t]*var(\s*<\s*uniform\s*>)?\s+(\w+)\s*:\s*([^;]+);[ \t]*(//.*)?$`)
	vertexFnPattern = regexp.MustCompile(`@vertex\s+fn\s+\w+\s*\(((?:[^()]|\([^()]*\))*)\)`)
	locationPattern = regexp.MustCompile(`@location\s*\(\s*(\d+)\s*\)`)
	attrPattern     = regexp.MustCompile(`@\w+(\s*\([^)]*\))?`)
	arrayPattern    = regexp.MustCompile(`^array\s*<\s*(.+?)\s*,\s*(\d+)\s*>$`)
	boundPattern    = regexp.MustCompile(`@group\s*\(\s*\d+\s*\)\s*@binding\s*\(\s*\d+\s*\)\s*`)
	entryPattern    = regexp.MustCompile(`@(?:vertex|fragment)\s+fn\s+(\w+)`)
)

// Process implements interface
func (w WGSL) Process(source, file string) (*Processed, error) {
	resolved, err := w.resolve(source, file, 0)
	if err != nil {
		return nil, err
	}
	// bindings are always reassigned
	resolved = boundPattern.ReplaceAllString(resolved, "")
	// aliases are translated for reflection only, the resolved source
	// is translated again when the stage is prepared
	text := Translate(resolved)

	p := &Processed{
		Stage:  stageOf(text),
		Source: resolved,
		Entry:  DefaultEntry,
	}
	if m := entryPattern.FindStringSubmatch(text); m != nil {
		p.Entry = m[1]
	}

	lastTexture := ""
	for _, m := range varPattern.FindAllStringSubmatch(text, -1) {
		uniform, name, typ, comment := m[1] != "", m[2], strings.TrimSpace(m[3]), m[4]
		switch {
		case uniform:
			if p.Uniforms != "" {
				return nil, fmt.Errorf("uniform block %s: only one uniform block per stage, found %s", name, p.Uniforms)
			}
			params, err := uniformMembers(text, typ)
			if err != nil {
				return nil, fmt.Errorf("uniform block %s: %w", name, err)
			}
			p.Uniforms = name
			// uniform members always precede textures so that the
			// parameter index of a member matches its struct order
			p.Params = append(params, p.Params...)
		case strings.HasPrefix(typ, "texture_2d"):
			p.Params = append(p.Params, Param{Name: name, Type: ParamTexture})
			lastTexture = name
		case typ == "sampler":
			s, err := parseSampler(name, comment)
			if err != nil {
				return nil, err
			}
			if s.Texture == "" {
				s.Texture = lastTexture
			}
			p.Samplers = append(p.Samplers, s)
		case strings.HasPrefix(typ, "texture_"):
			return nil, fmt.Errorf("%s: %w: %s", name, core.ErrUnsupportedFormat, typ)
		}
	}

	if p.Stage == core.VertexShaderType {
		if p.Inputs, err = vertexInputs(text); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (w WGSL) resolve(source, file string, depth int) (string, error) {
	if !includePattern.MatchString(source) {
		return source, nil
	}
	if w.Include == nil {
		return "", fmt.Errorf("%s: includes are not enabled", file)
	}
	if depth >= maxIncludeDepth {
		return "", fmt.Errorf("%s: includes nested deeper than %d", file, maxIncludeDepth)
	}
	var failed error
	out := includePattern.ReplaceAllStringFunc(source, func(line string) string {
		if failed != nil {
			return ""
		}
		name := includePattern.FindStringSubmatch(line)[1]
		inc, err := w.Include(name)
		if err != nil {
			failed = fmt.Errorf("%s: include %s: %w", file, name, err)
			return ""
		}
		inc, err = w.resolve(inc, name, depth+1)
		if err != nil {
			failed = err
			return ""
		}
		return inc
	})
	return out, failed
}

func stageOf(text string) core.ShaderType {
	vertex := strings.Contains(text, "@vertex")
	fragment := strings.Contains(text, "@fragment")
	switch {
	case vertex && !fragment:
		return core.VertexShaderType
	case fragment && !vertex:
		return core.FragmentShaderType
	}
	return core.UnknownShaderType
}

// structBody returns the member lines of struct name.
func structBody(text, name string) ([]string, error) {
	re := regexp.MustCompile(`struct\s+` + regexp.QuoteMeta(name) + `\s*\{`)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return nil, fmt.Errorf("struct %s not found", name)
	}
	end := strings.IndexByte(text[loc[1]:], '}')
	if end < 0 {
		return nil, fmt.Errorf("struct %s is not closed", name)
	}
	return strings.Split(text[loc[1]:loc[1]+end], "\n"), nil
}

type member struct {
	name    string
	typ     string
	comment string
	line    string
}

// splitMember parses "@attr name: type, // comment". ok is false for
// lines that declare nothing.
func splitMember(line string) (m member, ok bool) {
	m.line = line
	if i := strings.Index(line, "//"); i >= 0 {
		m.comment = strings.TrimSpace(line[i+2:])
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return m, false
	}
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return m, false
	}
	head := strings.TrimSpace(attrPattern.ReplaceAllString(line[:colon], ""))
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return m, false
	}
	m.name = fields[len(fields)-1]
	m.typ = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line[colon+1:]), ","))
	return m, true
}

func uniformMembers(text, structName string) ([]Param, error) {
	lines, err := structBody(text, structName)
	if err != nil {
		return nil, err
	}
	var params []Param
	for _, line := range lines {
		m, ok := splitMember(line)
		if !ok {
			continue
		}
		t, count, err := paramType(m.typ)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.name, err)
		}
		p := Param{Name: m.name, Type: t, Count: count}
		if p.Default, err = parseDefault(p, m.comment); err != nil {
			return nil, fmt.Errorf("%s: %w", m.name, err)
		}
		params = append(params, p)
	}
	if err := checkNaturalLayout(params); err != nil {
		return nil, err
	}
	return params, nil
}

var wgslTypes = map[string]ParamType{
	"bool":        ParamBool,
	"f32":         ParamFloat,
	"i32":         ParamInt,
	"u32":         ParamInt,
	"vec2<f32>":   ParamVec2,
	"vec2f":       ParamVec2,
	"vec3<f32>":   ParamVec3,
	"vec3f":       ParamVec3,
	"vec4<f32>":   ParamVec4,
	"vec4f":       ParamVec4,
	"vec2<i32>":   ParamInt2,
	"vec2i":       ParamInt2,
	"vec3<i32>":   ParamInt3,
	"vec3i":       ParamInt3,
	"vec4<i32>":   ParamInt4,
	"vec4i":       ParamInt4,
	"vec2<u32>":   ParamInt2,
	"vec2u":       ParamInt2,
	"vec3<u32>":   ParamInt3,
	"vec3u":       ParamInt3,
	"vec4<u32>":   ParamInt4,
	"vec4u":       ParamInt4,
	"mat4x4<f32>": ParamMatrix4x4,
	"mat4x4f":     ParamMatrix4x4,
}

func paramType(typ string) (ParamType, int, error) {
	typ = strings.Join(strings.Fields(typ), "")
	count := 0
	if m := arrayPattern.FindStringSubmatch(typ); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			return ParamUnknown, 0, fmt.Errorf("bad array length %s", m[2])
		}
		typ, count = m[1], n
	}
	t, ok := wgslTypes[typ]
	if !ok {
		return ParamUnknown, 0, fmt.Errorf("unsupported uniform type %s", typ)
	}
	return t, count, nil
}

// naturalAlign is the WGSL alignment of a uniform member type.
func naturalAlign(t ParamType) uint32 {
	switch t {
	case ParamVec2, ParamInt2:
		return 8
	case ParamVec3, ParamInt3, ParamVec4, ParamInt4, ParamMatrix4x4:
		return 16
	}
	return 4
}

// checkNaturalLayout makes sure the register packing of Layout places every
// member where WGSL does, so the buffer and the struct agree.
func checkNaturalLayout(params []Param) error {
	offsets, _ := Layout(params)
	var offset uint32
	for i, p := range params {
		align := naturalAlign(p.Type)
		if p.Count > 1 {
			if ValueSize(p.Type)%RegisterSize != 0 {
				return fmt.Errorf("%s: uniform array elements must be a multiple of %d bytes", p.Name, RegisterSize)
			}
			align = RegisterSize
		}
		offset = (offset + align - 1) &^ (align - 1)
		if offset != offsets[i] {
			return fmt.Errorf("%s: member at offset %d, packed at %d, reorder or pad the block", p.Name, offset, offsets[i])
		}
		offset += p.Size()
	}
	return nil
}

// parseDefault encodes a default comment of the form "= v, v, ...". Matrices
// without a default start as identity.
func parseDefault(p Param, comment string) ([]byte, error) {
	size := p.Size()
	if size == 0 {
		return nil, nil
	}
	out := make([]byte, size)
	comment = strings.TrimSpace(comment)
	if !strings.HasPrefix(comment, "=") {
		if p.Type == ParamMatrix4x4 {
			fillIdentity(out)
		}
		return out, nil
	}
	value := strings.TrimSpace(comment[1:])
	if value == "identity" {
		if p.Type != ParamMatrix4x4 {
			return nil, fmt.Errorf("identity default on %s", p.Type)
		}
		fillIdentity(out)
		return out, nil
	}

	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields)*4 > len(out) {
		return nil, fmt.Errorf("%d default values do not fit %d bytes", len(fields), size)
	}
	for i, f := range fields {
		var word uint32
		switch p.Type {
		case ParamBool:
			b, err := strconv.ParseBool(f)
			if err != nil {
				return nil, err
			}
			if b {
				word = 1
			}
		case ParamInt, ParamInt2, ParamInt3, ParamInt4:
			n, err := strconv.ParseInt(f, 0, 32)
			if err != nil {
				return nil, err
			}
			word = uint32(int32(n))
		default:
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, err
			}
			word = math.Float32bits(float32(v))
		}
		binary.LittleEndian.PutUint32(out[i*4:], word)
	}
	return out, nil
}

func fillIdentity(out []byte) {
	for m := 0; m+64 <= len(out); m += 64 {
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(out[m+(i*5)*4:], math.Float32bits(1))
		}
	}
}

var (
	samplerFilters = map[string]core.SampleFilter{
		"point":       core.FilterPoint,
		"nearest":     core.FilterPoint,
		"linear":      core.FilterLinear,
		"anisotropic": core.FilterAnisotropic,
	}
	samplerAddress = map[string]core.AddressMode{
		"clamp":       core.AddressClamp,
		"wrap":        core.AddressWrap,
		"repeat":      core.AddressWrap,
		"mirror":      core.AddressMirror,
		"border":      core.AddressBorder,
		"mirror_once": core.AddressMirrorOnce,
	}
)

// DefaultSamplerInfo is nearest filtering with clamp to a transparent border.
func DefaultSamplerInfo() core.SamplerInfo {
	return core.SamplerInfo{
		Filter:        core.FilterPoint,
		AddressU:      core.AddressBorder,
		AddressV:      core.AddressBorder,
		AddressW:      core.AddressBorder,
		MaxAnisotropy: 1,
	}
}

func parseSampler(name, comment string) (Sampler, error) {
	s := Sampler{Name: name, Info: DefaultSamplerInfo()}
	comment = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(comment), "//"))
	for _, kv := range strings.Fields(comment) {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "texture":
			s.Texture = v
		case "filter":
			f, ok := samplerFilters[v]
			if !ok {
				return s, fmt.Errorf("sampler %s: unknown filter %s", name, v)
			}
			s.Info.Filter = f
		case "address":
			a, ok := samplerAddress[v]
			if !ok {
				return s, fmt.Errorf("sampler %s: unknown address mode %s", name, v)
			}
			s.Info.AddressU, s.Info.AddressV, s.Info.AddressW = a, a, a
		case "anisotropy":
			n, err := strconv.Atoi(v)
			if err != nil {
				return s, fmt.Errorf("sampler %s: %w", name, err)
			}
			s.Info.MaxAnisotropy = n
		}
	}
	return s, nil
}

// vertexInputs reflects the @location arguments of the vertex entry point,
// written inline or through an input struct.
func vertexInputs(text string) ([]InputAttribute, error) {
	m := vertexFnPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	var members []member
	for _, arg := range splitArgs(m[1]) {
		mem, ok := splitMember(arg)
		if !ok {
			continue
		}
		if locationPattern.MatchString(arg) {
			members = append(members, mem)
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(arg), "@builtin") {
			continue
		}
		lines, err := structBody(text, mem.typ)
		if err != nil {
			return nil, fmt.Errorf("vertex input %s: %w", mem.name, err)
		}
		for _, line := range lines {
			sm, ok := splitMember(line)
			if !ok || !locationPattern.MatchString(line) {
				continue
			}
			members = append(members, sm)
		}
	}

	var inputs []InputAttribute
	for _, mem := range members {
		loc, _ := strconv.ParseUint(locationPattern.FindStringSubmatch(mem.line)[1], 10, 32)
		in := InputAttribute{Name: mem.name, Location: uint32(loc)}
		if err := classifyInput(&in, mem.typ); err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// splitArgs splits a parameter list on commas outside angle brackets.
func splitArgs(list string) []string {
	var args []string
	depth, start := 0, 0
	for i, r := range list {
		switch r {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, list[start:i])
				start = i + 1
			}
		}
	}
	return append(args, list[start:])
}

func classifyInput(in *InputAttribute, typ string) error {
	name := strings.ToLower(in.Name)
	switch {
	case strings.Contains(name, "pos"):
		in.Semantic = InputPosition
	case strings.Contains(name, "norm"):
		in.Semantic = InputNormal
	case strings.Contains(name, "tang"):
		in.Semantic = InputTangent
	case strings.Contains(name, "col"):
		in.Semantic = InputColor
	case strings.Contains(name, "uv"), strings.Contains(name, "tex"):
		in.Semantic = InputTexCoord
		t, _, err := paramType(typ)
		if err != nil {
			return fmt.Errorf("vertex input %s: %w", in.Name, err)
		}
		switch t {
		case ParamVec2:
			in.Width = 2
		case ParamVec3:
			in.Width = 3
		case ParamVec4:
			in.Width = 4
		default:
			return fmt.Errorf("vertex input %s: texture coordinates of type %s", in.Name, typ)
		}
	default:
		return fmt.Errorf("vertex input %s: cannot tell its semantic from the name", in.Name)
	}
	return nil
}
