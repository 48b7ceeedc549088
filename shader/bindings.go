// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"fmt"
	"regexp"

	"github.com/devblok/korugs/core"
)

// BindingKind is the resource kind behind a descriptor binding
type BindingKind int

// Binding kinds
const (
	BindingUniformBuffer BindingKind = iota
	BindingImageSampler
)

func (k BindingKind) String() string {
	if k == BindingUniformBuffer {
		return "uniform-buffer"
	}
	return "combined-image-sampler"
}

// Binding is one descriptor binding of a stage. Name is the uniform block
// variable or the texture parameter, Samplers lists the samplers that
// share the binding of the texture.
type Binding struct {
	Index    uint32
	Kind     BindingKind
	Name     string
	Samplers []string
}

// Each stage owns a fixed range of binding indices so that the vertex and
// fragment stages of a program never collide.
const (
	VertexBindingBase   = 0
	FragmentBindingBase = 16
	BindingsPerStage    = 16
)

// BindingBase returns the first binding index of a stage.
func BindingBase(stage core.ShaderType) (uint32, error) {
	switch stage {
	case core.VertexShaderType:
		return VertexBindingBase, nil
	case core.FragmentShaderType:
		return FragmentBindingBase, nil
	}
	return 0, fmt.Errorf("%w: %s", core.ErrUnknownShaderStage, stage)
}

// AssignBindings assigns binding indices from the parsed resources of p and
// injects the group and binding attributes into the matching declarations
// of source. The uniform block takes the first index of the stage, each
// texture the next one, and each sampler joins the texture it names or
// else the most recently assigned texture.
func AssignBindings(p *Processed, source string) (string, []Binding, error) {
	base, err := BindingBase(p.Stage)
	if err != nil {
		return source, nil, err
	}

	var bindings []Binding
	next := base
	if p.Uniforms != "" {
		bindings = append(bindings, Binding{Index: next, Kind: BindingUniformBuffer, Name: p.Uniforms})
		next++
	}

	textures := make(map[string]int)
	for _, param := range p.Params {
		if param.Type != ParamTexture {
			continue
		}
		if _, ok := textures[param.Name]; ok {
			continue
		}
		if next >= base+BindingsPerStage {
			return source, nil, fmt.Errorf("%s stage uses more than %d bindings", p.Stage, BindingsPerStage)
		}
		textures[param.Name] = len(bindings)
		bindings = append(bindings, Binding{Index: next, Kind: BindingImageSampler, Name: param.Name})
		next++
	}

	for _, s := range p.Samplers {
		idx, ok := textures[s.Texture]
		if !ok {
			idx = lastTexture(bindings)
		}
		if idx < 0 {
			return source, nil, fmt.Errorf("sampler %s: no texture to bind to", s.Name)
		}
		bindings[idx].Samplers = append(bindings[idx].Samplers, s.Name)
	}

	for _, b := range bindings {
		if source, err = injectBinding(source, b.Name, b.Index, b.Kind == BindingUniformBuffer); err != nil {
			return source, nil, err
		}
		for _, s := range b.Samplers {
			if source, err = injectBinding(source, s, b.Index, false); err != nil {
				return source, nil, err
			}
		}
	}
	return source, bindings, nil
}

func lastTexture(bindings []Binding) int {
	for i := len(bindings) - 1; i >= 0; i-- {
		if bindings[i].Kind == BindingImageSampler {
			return i
		}
	}
	return -1
}

func injectBinding(source, name string, index uint32, uniform bool) (string, error) {
	decl := `var\s+`
	if uniform {
		decl = `var\s*<\s*uniform\s*>\s+`
	}
	re := regexp.MustCompile(`(?m)^([ \t]*)(` + decl + regexp.QuoteMeta(name) + `\s*:)`)
	loc := re.FindStringSubmatchIndex(source)
	if loc == nil {
		return source, fmt.Errorf("declaration of %s not found", name)
	}
	attr := fmt.Sprintf("@group(0) @binding(%d) ", index)
	return source[:loc[4]] + attr + source[loc[4]:], nil
}
