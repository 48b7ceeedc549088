// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "errors"

// Error kinds returned by the graphics layer. Callers match them with errors.Is,
// the wrapped message carries the native diagnostic.
var (
	ErrAllocationFailed      = errors.New("allocation failed")
	ErrMemoryTypeUnavailable = errors.New("no compatible memory type")
	ErrCompileFailed         = errors.New("shader compilation failed")
	ErrUnsupportedTransition = errors.New("unsupported image layout transition")
	ErrSizeMismatch          = errors.New("payload exceeds allocated size")
	ErrPresentStale          = errors.New("presentation target is stale")
	ErrUnknownShaderStage    = errors.New("unknown shader stage")
	ErrMissingParameter      = errors.New("missing shader parameter")
	ErrInvalidAdapter        = errors.New("invalid adapter")
	ErrUnsupportedFormat     = errors.New("unsupported format")
)
