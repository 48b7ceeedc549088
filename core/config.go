// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/gobuffalo/envy"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override the configuration file
const (
	EnvAdapter       = "KORU_ADAPTER"
	EnvDebug         = "KORU_DEBUG"
	EnvShaderCache   = "KORU_SHADER_CACHE"
	EnvSwapchainSize = "KORU_SWAPCHAIN_SIZE"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration     `toml:"time"`
	Renderer RendererConfiguration `toml:"renderer"`
	Instance InstanceConfiguration `toml:"instance"`
	Shaders  ShaderConfiguration   `toml:"shaders"`
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int `toml:"frames_per_second"`

	// EventPollDelay is the window event polling interval in milliseconds
	EventPollDelay int `toml:"event_poll_delay"`
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	Adapter          int      `toml:"adapter"`
	SwapchainSize    uint32   `toml:"swapchain_size"`
	DeviceExtensions []string `toml:"device_extensions"`

	// DescriptorSets is the capacity of the device descriptor pool
	DescriptorSets uint32 `toml:"descriptor_sets"`

	// FenceTimeout in nanoseconds, math.MaxUint64 waits forever
	FenceTimeout uint64 `toml:"fence_timeout"`

	ScreenWidth  uint32 `toml:"screen_width"`
	ScreenHeight uint32 `toml:"screen_height"`
}

// InstanceConfiguration describes the API instance to be created
type InstanceConfiguration struct {
	DebugMode  bool     `toml:"debug_mode"`
	Extensions []string `toml:"extensions"`
	Layers     []string `toml:"layers"`
}

// ShaderConfiguration points at shader sources and the bytecode cache
type ShaderConfiguration struct {
	Directory string `toml:"directory"`
	CacheDir  string `toml:"cache_dir"`
	Bundle    string `toml:"bundle"`
}

// DefaultConfiguration returns the configuration used when no file is given
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  10,
		},
		Renderer: RendererConfiguration{
			SwapchainSize:  3,
			DescriptorSets: 1024,
			FenceTimeout:   math.MaxUint64,
			ScreenWidth:    800,
			ScreenHeight:   600,
		},
		Shaders: ShaderConfiguration{
			Directory: "./shaders",
		},
	}
}

// LoadConfiguration reads a TOML configuration file over the defaults and
// applies environment overrides. An empty path only applies the overrides.
func LoadConfiguration(path string) (Configuration, error) {
	cfg := DefaultConfiguration()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if cfg, err = ParseConfiguration(data); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	return cfg, ApplyEnvironment(&cfg)
}

// ParseConfiguration decodes TOML over the defaults.
func ParseConfiguration(data []byte) (Configuration, error) {
	cfg := DefaultConfiguration()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnvironment overrides cfg from the KORU_* environment variables.
func ApplyEnvironment(cfg *Configuration) error {
	if v := envy.Get(EnvAdapter, ""); v != "" {
		adapter, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAdapter, err)
		}
		cfg.Renderer.Adapter = adapter
	}
	if v := envy.Get(EnvDebug, ""); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		cfg.Instance.DebugMode = debug
	}
	if v := envy.Get(EnvShaderCache, ""); v != "" {
		cfg.Shaders.CacheDir = v
	}
	if v := envy.Get(EnvSwapchainSize, ""); v != "" {
		size, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSwapchainSize, err)
		}
		cfg.Renderer.SwapchainSize = uint32(size)
	}
	return nil
}
