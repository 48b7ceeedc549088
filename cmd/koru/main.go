// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/gfx"
	"github.com/devblok/korugs/graphics"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

var frameCounter int64

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
	debug        = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
)

var (
	configFile = flag.String("config", "koru.toml", "Configuration file, used when present")
	meshFile   = flag.String("mesh", "", "Collada file to show instead of the triangle")
	shaderDir  = flag.String("shaders", "", "Read shaders from this directory and reload them on change")
	verbose    = flag.Bool("v", false, "Log debug messages")
)

func newWindow(cfg core.RendererConfiguration) (*sdl.Window, error) {
	return sdl.CreateWindow("Koru3D",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.ScreenWidth),
		int32(cfg.ScreenHeight),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
}

func loadConfiguration() (core.Configuration, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return core.Configuration{}, err
	}
	cfg, err := core.LoadConfiguration(*configFile)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = core.LoadConfiguration("")
	}
	if err != nil {
		return cfg, err
	}
	if *debug {
		cfg.Instance.DebugMode = true
	}
	return cfg, nil
}

// watchShaders forwards the shader files of dir that change.
func watchShaders(ctx context.Context, wg *sync.WaitGroup, dir string, changed chan<- string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Ext(event.Name) != shaderExt {
					continue
				}
				select {
				case changed <- event.Name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("shader watcher")
			}
		}
	}()
	return watcher, nil
}

func main() {
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			panic(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			panic(err)
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			panic(err)
		}
		if err := trace.Start(f); err != nil {
			panic(err)
		}
		defer trace.Stop()
	}

	configuration, err := loadConfiguration()
	if err != nil {
		log.WithError(err).Fatal("configuration not loaded")
	}

	sources, err := embeddedSources()
	if err != nil {
		log.WithError(err).Fatal("embedded shaders not read")
	}
	if *shaderDir != "" {
		if err := dirSources(*shaderDir, sources); err != nil {
			log.WithError(err).Fatal("shaders not read")
		}
	}

	mesh, err := loadMesh(*meshFile)
	if err != nil {
		log.WithError(err).Fatal("mesh not loaded")
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		panic(err)
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		panic(err)
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := newWindow(configuration.Renderer)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	configuration.Instance.Extensions = append(configuration.Instance.Extensions, window.VulkanGetInstanceExtensions()...)
	instance, err := device.NewVulkanInstance(device.DefaultVulkanApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr(), configuration.Instance)
	if err != nil {
		panic(err)
	}
	defer instance.Destroy()

	g := graphics.Create(instance, configuration, gfx.Options{})
	if g == nil {
		os.Exit(1)
	}
	defer g.Destroy()
	log.WithFields(log.Fields{
		"adapter": g.AdapterIndex(),
		"name":    g.Name(),
	}).Info("device created")

	surface, err := window.VulkanCreateSurface(instance.Handle())
	if err != nil {
		panic(err)
	}
	swapchain := g.CreateSwapchain(uintptr(surface), configuration.Renderer.ScreenWidth, configuration.Renderer.ScreenHeight)
	if swapchain == nil {
		os.Exit(1)
	}

	sc, err := newScene(g, mesh, sources)
	if err != nil {
		log.WithError(err).Error("scene not created")
		return
	}
	defer sc.destroy()

	timeService := core.NewTime(configuration.Time)
	defer timeService.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	programSync := sync.WaitGroup{}

	changed := make(chan string)
	if *shaderDir != "" {
		watcher, err := watchShaders(ctx, &programSync, *shaderDir, changed)
		if err != nil {
			log.WithError(err).Warn("shaders will not reload")
		} else {
			defer watcher.Close()
		}
	}

	/* Frame counter loop */
	programSync.Add(1)
	go func(ctx context.Context, wg *sync.WaitGroup) {
	CounterLoop:
		for {
			select {
			case <-ctx.Done():
				break CounterLoop
			default:
				currentCount := atomic.LoadInt64(&frameCounter)
				atomic.StoreInt64(&frameCounter, 0)
				fmt.Printf("\r\033[2KFrame count: %d\tCGO calls: %d", currentCount*5, runtime.NumCgoCall())
				time.Sleep(200 * time.Millisecond)
				// 200 ms * 5 = 1s, therefore we need to mutiply the count
			}
		}
		wg.Done()
	}(ctx, &programSync)

	/* Event and render loop, both on the locked thread */
EventLoop:
	for {
		select {
		case <-ctx.Done():
			break EventLoop
		case name := <-changed:
			if !sc.uses(name) {
				continue
			}
			data, err := os.ReadFile(name)
			if err != nil {
				log.WithError(err).WithField("shader", name).Warn("shader not read")
				continue
			}
			if sc.reload(filepath.Base(name), string(data)) {
				log.WithField("shader", name).Info("shader reloaded")
			}
		case <-timeService.EventTicker().C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Type != sdl.KEYDOWN {
						continue
					}
					switch et.Keysym.Sym {
					case sdl.K_ESCAPE:
						cancel()
						continue EventLoop
					case sdl.K_F12:
						if path, err := saveFrame(g, swapchain, "."); err != nil {
							log.WithError(err).Warn("screenshot not saved")
						} else {
							log.WithField("file", path).Info("screenshot saved")
						}
					}
				case *sdl.WindowEvent:
					if et.Event == sdl.WINDOWEVENT_SIZE_CHANGED && et.Data1 > 0 && et.Data2 > 0 {
						g.Resize(uint32(et.Data1), uint32(et.Data2))
					}
				case *sdl.QuitEvent:
					cancel()
					continue EventLoop
				}
			}
		case <-timeService.FpsTicker().C:
			width, height := g.Size()
			if width == 0 || height == 0 {
				continue
			}
			sc.draw(width, height)
			if g.Present() {
				timeService.Frame()
				atomic.AddInt64(&frameCounter, 1)
			}
		}
	}

	programSync.Wait()
	fmt.Println()
	log.WithField("fps", timeService.MeasuredFps()).Info("exiting")

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			panic(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			panic(err)
		}
	}
}
