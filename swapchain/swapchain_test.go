package swapchain

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/hellotriangle/device"
)

func index(i int) *int { return &i }

func undefinedCapabilities() *khr_surface.SurfaceCapabilities {
	return &khr_surface.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  3,
		CurrentExtent:  core1_0.Extent2D{Width: int(uint32(math.MaxUint32)), Height: int(uint32(math.MaxUint32))},
		MinImageExtent: core1_0.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
	}
}

func TestChooseExtentDefined(t *testing.T) {
	caps := undefinedCapabilities()
	caps.CurrentExtent = core1_0.Extent2D{Width: 800, Height: 600}

	assert.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, ChooseExtent(caps, 1920, 1080))
}

func TestChooseExtentUndefinedUsesDrawable(t *testing.T) {
	assert.Equal(t, core1_0.Extent2D{Width: 1200, Height: 800}, ChooseExtent(undefinedCapabilities(), 1200, 800))
}

func TestChooseExtentUndefinedClamps(t *testing.T) {
	caps := undefinedCapabilities()
	assert.Equal(t, core1_0.Extent2D{Width: 4096, Height: 64}, ChooseExtent(caps, 10000, 10))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, 3, ChooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 3}))
	assert.Equal(t, 3, ChooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}))
	assert.Equal(t, 2, ChooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
}

func TestChoosePresentMode(t *testing.T) {
	assert.Equal(t, khr_surface.PresentModeMailbox, ChoosePresentMode([]khr_surface.PresentMode{
		khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox,
	}))
	assert.Equal(t, khr_surface.PresentModeFIFO, ChoosePresentMode([]khr_surface.PresentMode{
		khr_surface.PresentModeImmediate, khr_surface.PresentModeFIFO,
	}))
}

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	other := khr_surface.SurfaceFormat{Format: core1_0.FormatR8G8B8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}

	assert.Equal(t, preferred, ChooseSurfaceFormat([]khr_surface.SurfaceFormat{other, preferred}))
	assert.Equal(t, other, ChooseSurfaceFormat([]khr_surface.SurfaceFormat{other}))
}

func TestChooseSharing(t *testing.T) {
	mode, families := ChooseSharing(device.QueueFamilyIndices{GraphicsFamily: index(0), PresentFamily: index(0)})
	assert.Equal(t, core1_0.SharingModeExclusive, mode)
	assert.Empty(t, families)

	mode, families = ChooseSharing(device.QueueFamilyIndices{GraphicsFamily: index(0), PresentFamily: index(2)})
	assert.Equal(t, core1_0.SharingModeConcurrent, mode)
	assert.Equal(t, []int{0, 2}, families)
}

type fakeSurface struct {
	sizes   [][2]int
	current [2]int
	waits   int

	closing     bool
	closeOnWait bool
}

func (s *fakeSurface) DrawableSize() (int, int) {
	return s.current[0], s.current[1]
}

func (s *fakeSurface) ShouldClose() bool {
	return s.closing
}

// WaitEvents steps through the queued sizes, one per event.
func (s *fakeSurface) WaitEvents() {
	s.waits++
	if s.closeOnWait {
		s.closing = true
	}
	if len(s.sizes) > 0 {
		s.current = s.sizes[0]
		s.sizes = s.sizes[1:]
	}
}

type fakeBackend struct {
	calls    []string
	support  device.SwapchainSupport
	images   int
	requests []Request
	failSwap error
}

func (b *fakeBackend) record(format string, args ...any) {
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
}

func (b *fakeBackend) WaitIdle() error {
	b.record("wait idle")
	return nil
}

func (b *fakeBackend) Support() (device.SwapchainSupport, error) {
	return b.support, nil
}

func (b *fakeBackend) CreateSwapchain(req Request) (khr_swapchain.Swapchain, []core1_0.Image, error) {
	if b.failSwap != nil {
		return khr_swapchain.Swapchain{}, nil, b.failSwap
	}
	b.record("create swapchain")
	b.requests = append(b.requests, req)
	return khr_swapchain.Swapchain{}, make([]core1_0.Image, b.images), nil
}

func (b *fakeBackend) CreateImageViews(state *State) ([]core1_0.ImageView, error) {
	b.record("create views %d", state.Generation)
	return make([]core1_0.ImageView, len(state.Images)), nil
}

func (b *fakeBackend) CreateFramebuffers(state *State, renderPass core1_0.RenderPass) ([]core1_0.Framebuffer, error) {
	b.record("create framebuffers %d", state.Generation)
	return make([]core1_0.Framebuffer, len(state.Views)), nil
}

func (b *fakeBackend) DestroyFramebuffers(state *State) {
	b.record("destroy framebuffers %d", state.Generation)
}

func (b *fakeBackend) DestroyImageViews(state *State) {
	b.record("destroy views %d", state.Generation)
}

func (b *fakeBackend) DestroySwapchain(state *State) {
	b.record("destroy swapchain %d", state.Generation)
}

type fakeRenderPass struct {
	format   core1_0.Format
	rebuilds []core1_0.Format
}

func (p *fakeRenderPass) RenderPass() core1_0.RenderPass { return core1_0.RenderPass{} }
func (p *fakeRenderPass) Format() core1_0.Format         { return p.format }
func (p *fakeRenderPass) Rebuild(format core1_0.Format) error {
	p.rebuilds = append(p.rebuilds, format)
	p.format = format
	return nil
}

func newTestManager(t *testing.T, width, height int) (*Manager, *fakeBackend, *fakeSurface, *fakeRenderPass) {
	t.Helper()

	caps := undefinedCapabilities()
	backend := &fakeBackend{
		images: 3,
		support: device.SwapchainSupport{
			Capabilities: caps,
			Formats: []khr_surface.SurfaceFormat{
				{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
			},
			PresentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO},
		},
	}
	surface := &fakeSurface{current: [2]int{width, height}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := NewManager(backend, surface, device.QueueFamilyIndices{GraphicsFamily: index(0), PresentFamily: index(0)}, logger)

	require.NoError(t, manager.Create())
	renderPass := &fakeRenderPass{format: manager.State().Format()}
	require.NoError(t, manager.AttachRenderPass(renderPass))
	backend.calls = nil

	return manager, backend, surface, renderPass
}

func TestManagerCreate(t *testing.T) {
	manager, backend, _, _ := newTestManager(t, 800, 600)

	state := manager.State()
	require.NotNil(t, state)
	assert.Equal(t, 1, state.Generation)
	assert.Len(t, state.Images, 3)
	assert.Len(t, state.Views, 3)
	assert.Len(t, state.Framebuffers, 3)
	assert.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, state.Extent)
	assert.Equal(t, 3, backend.requests[0].ImageCount)
	assert.Equal(t, core1_0.SharingModeExclusive, backend.requests[0].SharingMode)
}

func TestManagerCreateTwice(t *testing.T) {
	manager, _, _, _ := newTestManager(t, 800, 600)
	assert.Error(t, manager.Create())
}

func TestManagerRecreateOrder(t *testing.T) {
	manager, backend, surface, renderPass := newTestManager(t, 800, 600)
	surface.current = [2]int{1200, 800}

	require.NoError(t, manager.Recreate())

	assert.Equal(t, []string{
		"wait idle",
		"destroy framebuffers 1",
		"destroy views 1",
		"destroy swapchain 1",
		"create swapchain",
		"create views 2",
		"create framebuffers 2",
	}, backend.calls)

	state := manager.State()
	assert.Equal(t, 2, state.Generation)
	assert.Equal(t, core1_0.Extent2D{Width: 1200, Height: 800}, state.Extent)
	assert.Len(t, state.Framebuffers, len(state.Images))
	assert.Empty(t, renderPass.rebuilds)
}

func TestManagerRecreateInvalidatesOldState(t *testing.T) {
	manager, _, _, _ := newTestManager(t, 800, 600)
	old := manager.State()

	require.NoError(t, manager.Recreate())

	assert.NotSame(t, old, manager.State())
	assert.Empty(t, old.Framebuffers)
	assert.Empty(t, old.Views)
	assert.Empty(t, old.Images)
}

func TestManagerRecreateWaitsWhileMinimized(t *testing.T) {
	manager, backend, surface, _ := newTestManager(t, 800, 600)
	surface.current = [2]int{0, 0}
	surface.sizes = [][2]int{{0, 0}, {640, 0}, {640, 480}}

	require.NoError(t, manager.Recreate())

	assert.Equal(t, 3, surface.waits)
	assert.Equal(t, "wait idle", backend.calls[0])
	assert.Equal(t, core1_0.Extent2D{Width: 640, Height: 480}, manager.State().Extent)
	assert.Equal(t, 2, manager.State().Generation)
}

func TestManagerRecreateAbortsWhenClosing(t *testing.T) {
	manager, backend, surface, _ := newTestManager(t, 800, 600)
	old := manager.State()
	surface.current = [2]int{0, 0}
	surface.closing = true

	require.NoError(t, manager.Recreate())

	assert.Zero(t, surface.waits)
	assert.Empty(t, backend.calls)
	assert.Same(t, old, manager.State())
	assert.Equal(t, 1, manager.State().Generation)
	assert.Len(t, manager.State().Framebuffers, 3)
}

func TestManagerRecreateAbortsWhenClosedWhileMinimized(t *testing.T) {
	manager, backend, surface, _ := newTestManager(t, 800, 600)
	surface.current = [2]int{0, 0}
	surface.closeOnWait = true

	require.NoError(t, manager.Recreate())

	assert.Equal(t, 1, surface.waits)
	assert.Empty(t, backend.calls)
	assert.Equal(t, 1, manager.State().Generation)

	manager.Destroy()
	assert.Contains(t, backend.calls, "destroy swapchain 1")
}

func TestManagerRecreateRepeatedly(t *testing.T) {
	manager, _, surface, _ := newTestManager(t, 800, 600)

	for i := 0; i < 4; i++ {
		surface.current = [2]int{0, 0}
		surface.sizes = [][2]int{{800, 600}}
		require.NoError(t, manager.Recreate())
	}

	assert.Equal(t, 5, manager.State().Generation)
	assert.Equal(t, 4, surface.waits)
	assert.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, manager.State().Extent)
}

func TestManagerRecreateRebuildsOnFormatChange(t *testing.T) {
	manager, backend, _, renderPass := newTestManager(t, 800, 600)
	backend.support.Formats = []khr_surface.SurfaceFormat{
		{Format: core1_0.FormatR8G8B8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
	}

	require.NoError(t, manager.Recreate())

	assert.Equal(t, []core1_0.Format{core1_0.FormatR8G8B8A8SRGB}, renderPass.rebuilds)
	assert.Equal(t, core1_0.FormatR8G8B8A8SRGB, manager.State().Format())
}

func TestManagerRecreateFailure(t *testing.T) {
	manager, backend, _, _ := newTestManager(t, 800, 600)
	backend.failSwap = errors.New("device lost")

	err := manager.Recreate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device lost")
	assert.Nil(t, manager.State())
}

func TestManagerDestroy(t *testing.T) {
	manager, backend, _, _ := newTestManager(t, 800, 600)

	manager.Destroy()
	manager.Destroy()

	assert.Equal(t, []string{
		"destroy framebuffers 1",
		"destroy views 1",
		"destroy swapchain 1",
	}, backend.calls)
	assert.Nil(t, manager.State())
}
