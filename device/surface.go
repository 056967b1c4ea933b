package device

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// SurfaceFactory creates the presentation surface for a window. The window system
// collaborator supplies it.
type SurfaceFactory func(instance core1_0.Instance, surfaceExtension khr_surface.ExtensionDriver) (khr_surface.Surface, error)

// Surface links the presentation target to the instance.
type Surface struct {
	Extension khr_surface.ExtensionDriver
	Handle    khr_surface.Surface
}

func BindSurface(inst *Instance, create SurfaceFactory) (*Surface, error) {
	surfaceExtension := khr_surface.CreateExtensionDriverFromCoreDriver(inst.Driver)
	handle, err := create(inst.Driver.Instance(), surfaceExtension)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create window surface")
	}

	return &Surface{
		Extension: surfaceExtension,
		Handle:    handle,
	}, nil
}

func (s *Surface) Support(device core1_0.PhysicalDevice) (SwapchainSupport, error) {
	var details SwapchainSupport
	var err error

	details.Capabilities, _, err = s.Extension.GetPhysicalDeviceSurfaceCapabilities(s.Handle, device)
	if err != nil {
		return details, errors.Wrap(err, "query surface capabilities")
	}

	details.Formats, _, err = s.Extension.GetPhysicalDeviceSurfaceFormats(s.Handle, device)
	if err != nil {
		return details, errors.Wrap(err, "query surface formats")
	}

	details.PresentModes, _, err = s.Extension.GetPhysicalDeviceSurfacePresentModes(s.Handle, device)
	if err != nil {
		return details, errors.Wrap(err, "query surface present modes")
	}
	return details, nil
}

func (s *Surface) Destroy() {
	if s.Handle.Initialized() {
		s.Extension.DestroySurface(s.Handle, nil)
		s.Handle = khr_surface.Surface{}
	}
}
