// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/envy"

	"github.com/devblok/korugs/core"
)

const sampleConfiguration = `
[time]
frames_per_second = 144

[renderer]
adapter = 1
screen_width = 1280
screen_height = 720
device_extensions = ["VK_KHR_swapchain"]

[shaders]
bundle = "shaders.kar"
`

func TestDefaultConfiguration(t *testing.T) {
	c := qt.New(t)
	cfg := core.DefaultConfiguration()
	c.Assert(cfg.Time.FramesPerSecond, qt.Equals, 60)
	c.Assert(cfg.Time.EventPollDelay, qt.Equals, 10)
	c.Assert(cfg.Renderer.SwapchainSize, qt.Equals, uint32(3))
	c.Assert(cfg.Renderer.DescriptorSets, qt.Equals, uint32(1024))
	c.Assert(cfg.Renderer.FenceTimeout, qt.Equals, uint64(math.MaxUint64))
	c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(800))
	c.Assert(cfg.Renderer.ScreenHeight, qt.Equals, uint32(600))
	c.Assert(cfg.Shaders.Directory, qt.Equals, "./shaders")
}

func TestParseConfiguration(t *testing.T) {
	c := qt.New(t)
	cfg, err := core.ParseConfiguration([]byte(sampleConfiguration))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Time.FramesPerSecond, qt.Equals, 144)
	c.Assert(cfg.Renderer.Adapter, qt.Equals, 1)
	c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(1280))
	c.Assert(cfg.Renderer.DeviceExtensions, qt.DeepEquals, []string{"VK_KHR_swapchain"})
	c.Assert(cfg.Shaders.Bundle, qt.Equals, "shaders.kar")

	// keys left out keep their defaults
	c.Assert(cfg.Time.EventPollDelay, qt.Equals, 10)
	c.Assert(cfg.Renderer.SwapchainSize, qt.Equals, uint32(3))
	c.Assert(cfg.Shaders.Directory, qt.Equals, "./shaders")

	_, err = core.ParseConfiguration([]byte("[time\n"))
	c.Assert(err, qt.IsNotNil)
}

func TestLoadConfiguration(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "koru.toml")
	c.Assert(os.WriteFile(path, []byte(sampleConfiguration), 0644), qt.IsNil)

	cfg, err := core.LoadConfiguration(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Renderer.ScreenHeight, qt.Equals, uint32(720))

	_, err = core.LoadConfiguration(filepath.Join(dir, "missing.toml"))
	c.Assert(os.IsNotExist(err), qt.IsTrue)

	broken := filepath.Join(dir, "broken.toml")
	c.Assert(os.WriteFile(broken, []byte("adapter = "), 0644), qt.IsNil)
	_, err = core.LoadConfiguration(broken)
	c.Assert(err, qt.ErrorMatches, ".*broken.toml: .*")
}

func TestApplyEnvironment(t *testing.T) {
	c := qt.New(t)
	envy.Temp(func() {
		envy.Set(core.EnvAdapter, "2")
		envy.Set(core.EnvDebug, "true")
		envy.Set(core.EnvShaderCache, "/tmp/koru-cache")
		envy.Set(core.EnvSwapchainSize, "2")

		cfg, err := core.LoadConfiguration("")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Renderer.Adapter, qt.Equals, 2)
		c.Assert(cfg.Instance.DebugMode, qt.IsTrue)
		c.Assert(cfg.Shaders.CacheDir, qt.Equals, "/tmp/koru-cache")
		c.Assert(cfg.Renderer.SwapchainSize, qt.Equals, uint32(2))
	})
}

func TestApplyEnvironmentInvalid(t *testing.T) {
	c := qt.New(t)
	for _, key := range []string{core.EnvAdapter, core.EnvDebug, core.EnvSwapchainSize} {
		envy.Temp(func() {
			envy.Set(key, "many")
			cfg := core.DefaultConfiguration()
			c.Assert(core.ApplyEnvironment(&cfg), qt.ErrorMatches, key+": .*")
		})
	}
}
