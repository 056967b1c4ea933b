// Package pipeline builds the render pass and graphics pipeline that draw the triangle
// into swapchain framebuffers.
package pipeline

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/hellotriangle/shaders"
)

// Assembly owns the render pass, pipeline layout and graphics pipeline for one
// swapchain format.
type Assembly struct {
	driver  core1_0.CoreDeviceDriver
	shaders shaders.Pair
	cache   *Cache
	logger  *slog.Logger

	format     core1_0.Format
	renderPass core1_0.RenderPass
	layout     core1_0.PipelineLayout
	pipeline   core1_0.Pipeline
}

// NewAssembly builds the render pass and pipeline for format. cache may be nil.
func NewAssembly(driver core1_0.CoreDeviceDriver, code shaders.Pair, cache *Cache, format core1_0.Format, logger *slog.Logger) (*Assembly, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assembly{
		driver:  driver,
		shaders: code,
		cache:   cache,
		logger:  logger,
	}

	var err error
	a.layout, _, err = driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pipeline layout")
	}

	err = a.build(format)
	if err != nil {
		a.Destroy()
		return nil, err
	}
	return a, nil
}

func (a *Assembly) RenderPass() core1_0.RenderPass { return a.renderPass }
func (a *Assembly) Pipeline() core1_0.Pipeline     { return a.pipeline }
func (a *Assembly) Format() core1_0.Format         { return a.format }

// Rebuild replaces the render pass and pipeline for a new swapchain format. The device
// must be idle.
func (a *Assembly) Rebuild(format core1_0.Format) error {
	a.destroyPipeline()
	return a.build(format)
}

func (a *Assembly) build(format core1_0.Format) error {
	renderPass, err := createRenderPass(a.driver, format)
	if err != nil {
		return errors.Wrapf(err, "failed to create render pass for %s", format)
	}
	a.renderPass = renderPass
	a.format = format

	vertShader, _, err := a.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: a.shaders.Vertex,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create vertex shader module")
	}
	defer a.driver.DestroyShaderModule(vertShader, nil)

	fragShader, _, err := a.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: a.shaders.Fragment,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create fragment shader module")
	}
	defer a.driver.DestroyShaderModule(fragShader, nil)

	start := hrtime.Now()
	pipelines, _, err := a.driver.CreateGraphicsPipelines(a.cache.Handle(), nil,
		GraphicsPipelineCreateInfo(vertShader, fragShader, a.layout, a.renderPass),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create graphics pipeline")
	}
	a.logger.Debug("graphics pipeline created",
		"format", format.String(),
		"cached", a.cache.Handle() != nil,
		"elapsed", hrtime.Since(start))

	a.pipeline = pipelines[0]
	return nil
}

func (a *Assembly) destroyPipeline() {
	if a.pipeline.Initialized() {
		a.driver.DestroyPipeline(a.pipeline, nil)
		a.pipeline = core1_0.Pipeline{}
	}
	if a.renderPass.Initialized() {
		a.driver.DestroyRenderPass(a.renderPass, nil)
		a.renderPass = core1_0.RenderPass{}
	}
}

func (a *Assembly) Destroy() {
	a.destroyPipeline()
	if a.layout.Initialized() {
		a.driver.DestroyPipelineLayout(a.layout, nil)
		a.layout = core1_0.PipelineLayout{}
	}
}
