// Package app wires the window, device, swapchain, pipeline and frame loop together and
// owns their teardown.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/hellotriangle/config"
	"github.com/vkngwrapper/hellotriangle/device"
	"github.com/vkngwrapper/hellotriangle/frame"
	"github.com/vkngwrapper/hellotriangle/pipeline"
	"github.com/vkngwrapper/hellotriangle/shaders"
	"github.com/vkngwrapper/hellotriangle/swapchain"
	"github.com/vkngwrapper/hellotriangle/window"
)

const applicationName = "Hello Triangle"

type Application struct {
	cfg    config.Config
	logger *slog.Logger
	stack  teardown

	window     *window.Window
	instance   *device.Instance
	surface    *device.Surface
	physical   *device.PhysicalDevice
	logical    *device.Logical
	swapchains *swapchain.Manager
	cache      *pipeline.Cache
	assembly   *pipeline.Assembly
	frames     *frame.Synchronizer
}

func New(cfg config.Config, logger *slog.Logger) *Application {
	if logger == nil {
		logger = slog.Default()
	}
	return &Application{
		cfg:    cfg,
		logger: logger,
		stack:  teardown{logger: logger},
	}
}

// Run initializes everything, drives the frame loop until the window closes and then
// releases all resources, on success and failure alike.
func (app *Application) Run(ctx context.Context) error {
	defer app.release()

	err := app.init(ctx)
	if err != nil {
		return err
	}

	err = app.frames.Run(app.window)
	if err != nil {
		return err
	}

	// Cache contents are final once the device is idle, which Run waits for.
	err = app.cache.Save()
	if err != nil {
		app.logger.Warn("pipeline cache not saved", "error", err)
	}
	return nil
}

// release waits for outstanding device work, then tears down in reverse creation order.
func (app *Application) release() {
	if app.logical != nil {
		err := app.logical.WaitIdle()
		if err != nil {
			app.logger.Warn("device did not reach idle before teardown", "error", err)
		}
	}
	app.stack.run()
}

func (app *Application) init(ctx context.Context) error {
	var err error

	app.window, err = window.Open(app.cfg.Window, app.logger)
	if err != nil {
		return err
	}
	app.stack.push("window", app.window.Destroy)

	globalDriver, err := app.window.Loader()
	if err != nil {
		return err
	}

	app.instance, err = device.CreateInstance(globalDriver, device.InstanceOptions{
		ApplicationName:  applicationName,
		WindowExtensions: app.window.InstanceExtensions(),
		Validation:       app.cfg.Validation,
		Logger:           app.logger,
	})
	if err != nil {
		return err
	}
	app.stack.push("instance", app.instance.Destroy)

	app.surface, err = device.BindSurface(app.instance, app.window.CreateSurface)
	if err != nil {
		return err
	}
	app.stack.push("surface", app.surface.Destroy)

	app.physical, err = device.PickPhysicalDevice(app.instance, app.surface, app.logger)
	if err != nil {
		return err
	}

	app.logical, err = device.CreateLogicalDevice(app.instance, app.physical)
	if err != nil {
		return err
	}
	app.stack.push("device", app.logical.Destroy)

	swapchainBackend := swapchain.NewVulkanBackend(app.logical, app.physical, app.surface)
	app.swapchains = swapchain.NewManager(swapchainBackend, app.window, app.logical.Indices, app.logger)
	err = app.swapchains.Create()
	if err != nil {
		return err
	}
	app.stack.push("swapchain", app.swapchains.Destroy)

	fsys, vertex, fragment := app.cfg.ShaderSource()
	code, err := shaders.LoadPair(ctx, fsys, vertex, fragment)
	if err != nil {
		return err
	}

	app.cache, err = pipeline.OpenCache(app.logical.Driver, app.cfg.PipelineCache, pipeline.IdentityOf(app.physical.Properties), app.logger)
	if err != nil {
		return err
	}
	app.stack.push("pipeline cache", app.cache.Destroy)

	app.assembly, err = pipeline.NewAssembly(app.logical.Driver, code, app.cache, app.swapchains.State().Format(), app.logger)
	if err != nil {
		return err
	}
	app.stack.push("pipeline", app.assembly.Destroy)

	err = app.swapchains.AttachRenderPass(app.assembly)
	if err != nil {
		return err
	}

	frameBackend, err := frame.NewVulkanBackend(app.logical, swapchainBackend.Extension(), app.swapchains, app.assembly, app.cfg.Clear())
	if err != nil {
		return errors.Wrap(err, "failed to create frame resources")
	}
	app.stack.push("frame resources", frameBackend.Destroy)

	app.frames = frame.NewSynchronizer(frameBackend, app.swapchains, app.window.Resized(), time.Duration(app.cfg.StatsInterval), app.logger)
	return nil
}
