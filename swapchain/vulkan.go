package swapchain

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/hellotriangle/device"
)

// VulkanBackend is the Backend over a live device and surface.
type VulkanBackend struct {
	device    *device.Logical
	physical  *device.PhysicalDevice
	surface   *device.Surface
	extension khr_swapchain.ExtensionDriver
}

func NewVulkanBackend(logical *device.Logical, physical *device.PhysicalDevice, surface *device.Surface) *VulkanBackend {
	return &VulkanBackend{
		device:    logical,
		physical:  physical,
		surface:   surface,
		extension: khr_swapchain.CreateExtensionDriverFromCoreDriver(logical.Driver),
	}
}

// Extension exposes the swapchain extension driver for acquire and present.
func (b *VulkanBackend) Extension() khr_swapchain.ExtensionDriver {
	return b.extension
}

func (b *VulkanBackend) WaitIdle() error {
	return b.device.WaitIdle()
}

func (b *VulkanBackend) Support() (device.SwapchainSupport, error) {
	return b.surface.Support(b.physical.Handle)
}

func (b *VulkanBackend) CreateSwapchain(req Request) (khr_swapchain.Swapchain, []core1_0.Image, error) {
	swapchain, _, err := b.extension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: b.surface.Handle,

		MinImageCount:    req.ImageCount,
		ImageFormat:      req.Format.Format,
		ImageColorSpace:  req.Format.ColorSpace,
		ImageExtent:      req.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   req.SharingMode,
		QueueFamilyIndices: req.QueueFamilies,

		PreTransform:   req.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    req.PresentMode,
		Clipped:        true,
	})
	if err != nil {
		return khr_swapchain.Swapchain{}, nil, err
	}

	images, _, err := b.extension.GetSwapchainImages(swapchain)
	if err != nil {
		b.extension.DestroySwapchain(swapchain, nil)
		return khr_swapchain.Swapchain{}, nil, errors.Wrap(err, "get swapchain images")
	}

	return swapchain, images, nil
}

func (b *VulkanBackend) CreateImageViews(state *State) ([]core1_0.ImageView, error) {
	var imageViews []core1_0.ImageView
	for _, image := range state.Images {
		view, _, err := b.device.Driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   state.Format(),
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			for _, created := range imageViews {
				b.device.Driver.DestroyImageView(created, nil)
			}
			return nil, err
		}

		imageViews = append(imageViews, view)
	}

	return imageViews, nil
}

func (b *VulkanBackend) CreateFramebuffers(state *State, renderPass core1_0.RenderPass) ([]core1_0.Framebuffer, error) {
	var framebuffers []core1_0.Framebuffer
	for _, imageView := range state.Views {
		framebuffer, _, err := b.device.Driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: renderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				imageView,
			},
			Width:  state.Extent.Width,
			Height: state.Extent.Height,
		})
		if err != nil {
			for _, created := range framebuffers {
				b.device.Driver.DestroyFramebuffer(created, nil)
			}
			return nil, err
		}

		framebuffers = append(framebuffers, framebuffer)
	}

	return framebuffers, nil
}

func (b *VulkanBackend) DestroyFramebuffers(state *State) {
	for _, framebuffer := range state.Framebuffers {
		b.device.Driver.DestroyFramebuffer(framebuffer, nil)
	}
}

func (b *VulkanBackend) DestroyImageViews(state *State) {
	for _, imageView := range state.Views {
		b.device.Driver.DestroyImageView(imageView, nil)
	}
}

func (b *VulkanBackend) DestroySwapchain(state *State) {
	if state.Swapchain.Initialized() {
		b.extension.DestroySwapchain(state.Swapchain, nil)
	}
}
