// Package swapchain owns the chain of presentable images and replaces it wholesale when
// the surface invalidates it.
package swapchain

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/hellotriangle/device"
)

// Surface is the window-side view the manager needs.
type Surface interface {
	// DrawableSize is the framebuffer size in pixels, not the logical window size.
	DrawableSize() (width, height int)
	// WaitEvents blocks until the window system delivers at least one event.
	WaitEvents()
	ShouldClose() bool
}

// Request is a negotiated swapchain configuration.
type Request struct {
	Capabilities  *khr_surface.SurfaceCapabilities
	Format        khr_surface.SurfaceFormat
	PresentMode   khr_surface.PresentMode
	Extent        core1_0.Extent2D
	ImageCount    int
	SharingMode   core1_0.SharingMode
	QueueFamilies []int
}

// Backend performs the individual create and destroy calls.
type Backend interface {
	WaitIdle() error
	Support() (device.SwapchainSupport, error)
	CreateSwapchain(req Request) (khr_swapchain.Swapchain, []core1_0.Image, error)
	CreateImageViews(state *State) ([]core1_0.ImageView, error)
	CreateFramebuffers(state *State, renderPass core1_0.RenderPass) ([]core1_0.Framebuffer, error)
	DestroyFramebuffers(state *State)
	DestroyImageViews(state *State)
	DestroySwapchain(state *State)
}

// RenderPassSource provides the render pass framebuffers are built against. Rebuild is
// called when a recreated chain comes back with a different pixel format.
type RenderPassSource interface {
	RenderPass() core1_0.RenderPass
	Format() core1_0.Format
	Rebuild(format core1_0.Format) error
}

// State is one live swapchain with its images, views and framebuffers. Recreation
// produces a new State; the old one is emptied when its handles are destroyed.
type State struct {
	Generation    int
	Swapchain     khr_swapchain.Swapchain
	Images        []core1_0.Image
	Views         []core1_0.ImageView
	Framebuffers  []core1_0.Framebuffer
	SurfaceFormat khr_surface.SurfaceFormat
	Extent        core1_0.Extent2D
	PresentMode   khr_surface.PresentMode
}

func (s *State) Format() core1_0.Format {
	return s.SurfaceFormat.Format
}

type Manager struct {
	backend    Backend
	surface    Surface
	indices    device.QueueFamilyIndices
	logger     *slog.Logger
	renderPass RenderPassSource

	state      *State
	generation int
}

func NewManager(backend Backend, surface Surface, indices device.QueueFamilyIndices, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend: backend,
		surface: surface,
		indices: indices,
		logger:  logger,
	}
}

// State returns the live chain, or nil before Create.
func (m *Manager) State() *State {
	return m.state
}

// Create builds the first chain and its image views. Framebuffers follow in
// AttachRenderPass, once a render pass for the chain's format exists.
func (m *Manager) Create() error {
	if m.state != nil {
		return errors.New("swapchain already created")
	}
	return m.createChain()
}

func (m *Manager) AttachRenderPass(renderPass RenderPassSource) error {
	if m.state == nil {
		return errors.New("attach render pass: no swapchain")
	}
	m.renderPass = renderPass
	return m.createFramebuffers()
}

func (m *Manager) createChain() error {
	support, err := m.backend.Support()
	if err != nil {
		return err
	}
	if !support.Adequate() {
		return errors.Newf("surface reports %d formats and %d present modes", len(support.Formats), len(support.PresentModes))
	}

	width, height := m.surface.DrawableSize()
	sharingMode, queueFamilies := ChooseSharing(m.indices)
	req := Request{
		Capabilities:  support.Capabilities,
		Format:        ChooseSurfaceFormat(support.Formats),
		PresentMode:   ChoosePresentMode(support.PresentModes),
		Extent:        ChooseExtent(support.Capabilities, width, height),
		ImageCount:    ChooseImageCount(support.Capabilities),
		SharingMode:   sharingMode,
		QueueFamilies: queueFamilies,
	}

	swapchain, images, err := m.backend.CreateSwapchain(req)
	if err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}

	m.generation++
	state := &State{
		Generation:    m.generation,
		Swapchain:     swapchain,
		Images:        images,
		SurfaceFormat: req.Format,
		Extent:        req.Extent,
		PresentMode:   req.PresentMode,
	}
	m.state = state

	state.Views, err = m.backend.CreateImageViews(state)
	if err != nil {
		return errors.Wrap(err, "failed to create image views")
	}

	m.logger.Info("swapchain created",
		"generation", state.Generation,
		"format", req.Format.Format.String(),
		"extent", req.Extent,
		"presentMode", req.PresentMode.String(),
		"images", len(images))
	return nil
}

func (m *Manager) createFramebuffers() error {
	framebuffers, err := m.backend.CreateFramebuffers(m.state, m.renderPass.RenderPass())
	if err != nil {
		return errors.Wrap(err, "failed to create framebuffers")
	}
	m.state.Framebuffers = framebuffers
	return nil
}

// Recreate replaces the chain after a resize or a stale/suboptimal result. While the
// drawable area is zero (minimized) it blocks on window events. A close request during
// that wait leaves the old chain in place for teardown and returns nil.
func (m *Manager) Recreate() error {
	width, height := m.surface.DrawableSize()
	for width == 0 || height == 0 {
		if m.surface.ShouldClose() {
			m.logger.Debug("window closing while minimized, skipping recreation")
			return nil
		}
		m.logger.Debug("drawable area is empty, waiting", "width", width, "height", height)
		m.surface.WaitEvents()
		width, height = m.surface.DrawableSize()
	}

	err := m.backend.WaitIdle()
	if err != nil {
		return err
	}

	m.destroyChain()

	err = m.createChain()
	if err != nil {
		return err
	}

	if m.renderPass == nil {
		return nil
	}

	if m.renderPass.Format() != m.state.Format() {
		m.logger.Info("surface format changed, rebuilding render pass",
			"from", m.renderPass.Format().String(),
			"to", m.state.Format().String())
		err = m.renderPass.Rebuild(m.state.Format())
		if err != nil {
			return err
		}
	}

	return m.createFramebuffers()
}

// destroyChain releases framebuffers, then views, then the swapchain.
func (m *Manager) destroyChain() {
	state := m.state
	if state == nil {
		return
	}

	if len(state.Framebuffers) > 0 {
		m.backend.DestroyFramebuffers(state)
		state.Framebuffers = nil
	}
	if len(state.Views) > 0 {
		m.backend.DestroyImageViews(state)
		state.Views = nil
	}
	m.backend.DestroySwapchain(state)
	state.Swapchain = khr_swapchain.Swapchain{}
	state.Images = nil

	m.state = nil
}

// Destroy releases the live chain. The caller must have waited for the device to idle.
func (m *Manager) Destroy() {
	m.destroyChain()
}
