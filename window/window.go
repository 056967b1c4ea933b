// Package window is the SDL2 side of presentation: the window, its events, and the
// Vulkan surface and loader it provides.
package window

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"

	"github.com/vkngwrapper/hellotriangle/config"
)

// ResizeFlag is raised by window events and cleared by whoever consumes it.
type ResizeFlag struct {
	pending bool
}

func (f *ResizeFlag) Set() { f.pending = true }

// Consume reports whether a resize was pending and clears it.
func (f *ResizeFlag) Consume() bool {
	pending := f.pending
	f.pending = false
	return pending
}

type Window struct {
	sdlWindow *sdl.Window
	logger    *slog.Logger

	resize    ResizeFlag
	closing   bool
	minimized bool
	onEvent   func(sdl.Event)
}

// Open initializes SDL video and creates a resizable Vulkan window. It must be called
// from the main OS thread.
func Open(cfg config.Window, logger *slog.Logger) (*Window, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "initialize SDL video")
	}

	sdlWindow, err := sdl.CreateWindow(cfg.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.Width), int32(cfg.Height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	return newWindow(sdlWindow, logger), nil
}

func newWindow(sdlWindow *sdl.Window, logger *slog.Logger) *Window {
	w := &Window{
		sdlWindow: sdlWindow,
		logger:    logger,
	}
	w.onEvent = w.eventHandler()
	return w
}

// eventHandler returns the closure every polled or awaited event is fed to.
func (w *Window) eventHandler() func(sdl.Event) {
	return func(event sdl.Event) {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.closing = true
		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_RESIZED:
				w.resize.Set()
			case sdl.WINDOWEVENT_MINIMIZED:
				w.minimized = true
				w.logger.Debug("window minimized")
			case sdl.WINDOWEVENT_RESTORED:
				w.minimized = false
				w.logger.Debug("window restored")
			case sdl.WINDOWEVENT_CLOSE:
				w.closing = true
			}
		}
	}
}

// Loader returns the global Vulkan driver, loaded through SDL.
func (w *Window) Loader() (core1_0.GlobalDriver, error) {
	globalDriver, err := core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "load Vulkan through SDL")
	}
	return globalDriver, nil
}

// InstanceExtensions are the instance extensions SDL needs to present to this window.
func (w *Window) InstanceExtensions() []string {
	return w.sdlWindow.VulkanGetInstanceExtensions()
}

// CreateSurface has the shape of device.SurfaceFactory.
func (w *Window) CreateSurface(instance core1_0.Instance, surfaceExtension khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
	return vkng_sdl2.CreateSurface(instance, surfaceExtension, w.sdlWindow)
}

// DrawableSize is the size in pixels, which differs from the window size on high-DPI
// displays.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.sdlWindow.VulkanGetDrawableSize()
	return int(width), int(height)
}

func (w *Window) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.onEvent(event)
	}
}

// WaitEvents blocks until at least one event arrives, then drains the queue.
func (w *Window) WaitEvents() {
	event := sdl.WaitEvent()
	if event != nil {
		w.onEvent(event)
	}
	w.PollEvents()
}

func (w *Window) ShouldClose() bool { return w.closing }

func (w *Window) Minimized() bool { return w.minimized }

func (w *Window) Resized() *ResizeFlag { return &w.resize }

func (w *Window) Destroy() {
	if w.sdlWindow != nil {
		_ = w.sdlWindow.Destroy()
		w.sdlWindow = nil
	}
	sdl.Quit()
}
