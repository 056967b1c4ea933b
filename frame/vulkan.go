package frame

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/hellotriangle/device"
	"github.com/vkngwrapper/hellotriangle/swapchain"
)

// Pipeline is the render pass and pipeline each frame draws with.
type Pipeline interface {
	RenderPass() core1_0.RenderPass
	Pipeline() core1_0.Pipeline
}

// Chain exposes the live swapchain, which recreation may replace between frames.
type Chain interface {
	State() *swapchain.State
}

type slot struct {
	imageAvailable core1_0.Semaphore
	renderFinished core1_0.Semaphore
	inFlight       core1_0.Fence
	commandBuffer  core1_0.CommandBuffer
}

// VulkanBackend drives the frame states against a real device.
type VulkanBackend struct {
	device    *device.Logical
	extension khr_swapchain.ExtensionDriver
	chain     Chain
	pipeline  Pipeline
	clear     mgl32.Vec4

	commandPool core1_0.CommandPool
	slots       [MaxFramesInFlight]slot
}

// NewVulkanBackend creates the command pool and the per-slot synchronization objects.
// Fences start signaled so the first wait on each slot returns immediately.
func NewVulkanBackend(logical *device.Logical, extension khr_swapchain.ExtensionDriver, chain Chain, pipeline Pipeline, clear mgl32.Vec4) (*VulkanBackend, error) {
	b := &VulkanBackend{
		device:    logical,
		extension: extension,
		chain:     chain,
		pipeline:  pipeline,
		clear:     clear,
	}

	err := b.createCommandBuffers()
	if err != nil {
		b.Destroy()
		return nil, err
	}

	err = b.createSyncObjects()
	if err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

func (b *VulkanBackend) createCommandBuffers() error {
	pool, _, err := b.device.Driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: *b.device.Indices.GraphicsFamily,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create command pool")
	}
	b.commandPool = pool

	buffers, _, err := b.device.Driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        b.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: MaxFramesInFlight,
	})
	if err != nil {
		return errors.Wrap(err, "failed to allocate command buffers")
	}

	for i := range b.slots {
		b.slots[i].commandBuffer = buffers[i]
	}
	return nil
}

func (b *VulkanBackend) createSyncObjects() error {
	for i := range b.slots {
		var err error
		b.slots[i].imageAvailable, _, err = b.device.Driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return errors.Wrap(err, "failed to create image-available semaphore")
		}

		b.slots[i].renderFinished, _, err = b.device.Driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return errors.Wrap(err, "failed to create render-finished semaphore")
		}

		b.slots[i].inFlight, _, err = b.device.Driver.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create in-flight fence")
		}
	}
	return nil
}

func (b *VulkanBackend) WaitForFence(slot int) error {
	_, err := b.device.Driver.WaitForFences(true, common.NoTimeout, b.slots[slot].inFlight)
	return err
}

func (b *VulkanBackend) AcquireNextImage(slot int) (int, Status, error) {
	imageIndex, res, err := b.extension.AcquireNextImage(b.chain.State().Swapchain, common.NoTimeout, &b.slots[slot].imageAvailable, nil)
	status, err := presentationStatus(res, err)
	return imageIndex, status, err
}

func (b *VulkanBackend) ResetFence(slot int) error {
	_, err := b.device.Driver.ResetFences(b.slots[slot].inFlight)
	return err
}

func (b *VulkanBackend) Record(slot, image int) error {
	state := b.chain.State()
	buffer := b.slots[slot].commandBuffer

	_, err := b.device.Driver.ResetCommandBuffer(buffer, 0)
	if err != nil {
		return err
	}

	_, err = b.device.Driver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{})
	if err != nil {
		return err
	}

	err = b.device.Driver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  b.pipeline.RenderPass(),
			Framebuffer: state.Framebuffers[image],
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: state.Extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{b.clear[0], b.clear[1], b.clear[2], b.clear[3]},
			},
		})
	if err != nil {
		return err
	}

	b.device.Driver.CmdBindPipeline(buffer, core1_0.PipelineBindPointGraphics, b.pipeline.Pipeline())
	b.device.Driver.CmdSetViewport(buffer, core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(state.Extent.Width),
		Height:   float32(state.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	b.device.Driver.CmdSetScissor(buffer, core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: state.Extent,
	})
	b.device.Driver.CmdDraw(buffer, 3, 1, 0, 0)
	b.device.Driver.CmdEndRenderPass(buffer)

	_, err = b.device.Driver.EndCommandBuffer(buffer)
	return err
}

func (b *VulkanBackend) Submit(slot int) error {
	s := &b.slots[slot]
	_, err := b.device.Driver.QueueSubmit(b.device.GraphicsQueue, &s.inFlight,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{s.imageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{s.commandBuffer},
			SignalSemaphores: []core1_0.Semaphore{s.renderFinished},
		},
	)
	return err
}

func (b *VulkanBackend) Present(slot, image int) (Status, error) {
	res, err := b.extension.QueuePresent(b.device.PresentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{b.slots[slot].renderFinished},
		Swapchains:     []khr_swapchain.Swapchain{b.chain.State().Swapchain},
		ImageIndices:   []int{image},
	})
	return presentationStatus(res, err)
}

func (b *VulkanBackend) WaitIdle() error {
	return b.device.WaitIdle()
}

// presentationStatus folds the stale and suboptimal results into a Status. The wrapper
// reports VK_ERROR_OUT_OF_DATE_KHR as an error too, so the result code is checked first.
func presentationStatus(res common.VkResult, err error) (Status, error) {
	switch res {
	case khr_swapchain.VKErrorOutOfDate:
		return OutOfDate, nil
	case khr_swapchain.VKSuboptimal:
		return Suboptimal, nil
	}
	if err != nil {
		return Success, err
	}
	if res != core1_0.VKSuccess {
		return Success, errors.Wrapf(ErrUnexpectedResult, "%s", res)
	}
	return Success, nil
}

// Destroy releases the pool and synchronization objects. The device must be idle.
func (b *VulkanBackend) Destroy() {
	for i := range b.slots {
		s := &b.slots[i]
		if s.imageAvailable.Initialized() {
			b.device.Driver.DestroySemaphore(s.imageAvailable, nil)
		}
		if s.renderFinished.Initialized() {
			b.device.Driver.DestroySemaphore(s.renderFinished, nil)
		}
		if s.inFlight.Initialized() {
			b.device.Driver.DestroyFence(s.inFlight, nil)
		}
		*s = slot{}
	}

	if b.commandPool.Initialized() {
		b.device.Driver.DestroyCommandPool(b.commandPool, nil)
		b.commandPool = core1_0.CommandPool{}
	}
}
