// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"regexp"
	"sort"
	"strings"
)

// aliases maps the neutral type and stage keywords accepted in
// sources to their WGSL spelling.
var aliases = map[string]string{
	"float":         "f32",
	"float2":        "vec2<f32>",
	"float3":        "vec3<f32>",
	"float4":        "vec4<f32>",
	"float3x3":      "mat3x3<f32>",
	"float4x4":      "mat4x4<f32>",
	"int":           "i32",
	"int2":          "vec2<i32>",
	"int3":          "vec3<i32>",
	"int4":          "vec4<i32>",
	"uint":          "u32",
	"texture2d":     "texture_2d<f32>",
	"sampler_state": "sampler",
	"POSITION":      "@builtin(position)",
	"TARGET":        "@location(0)",
}

var aliasPattern = func() *regexp.Regexp {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, regexp.QuoteMeta(k))
	}
	// longest first so float4x4 never matches as float4
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return regexp.MustCompile(`\b(` + strings.Join(keys, "|") + `)\b`)
}()

// Translate replaces every neutral alias token with its WGSL equivalent.
// Only whole tokens are replaced, identifiers containing an alias are kept.
func Translate(source string) string {
	return aliasPattern.ReplaceAllStringFunc(source, func(token string) string {
		return aliases[token]
	})
}
