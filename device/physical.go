package device

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// RequiredExtensions must all be present on a selected accelerator.
var RequiredExtensions = []string{khr_swapchain.ExtensionName}

// PhysicalDevice is the accelerator chosen by PickPhysicalDevice.
type PhysicalDevice struct {
	Handle     core1_0.PhysicalDevice
	Properties *core1_0.PhysicalDeviceProperties
	Indices    QueueFamilyIndices

	extensions map[string]struct{}
}

func (p *PhysicalDevice) HasExtension(name string) bool {
	_, ok := p.extensions[name]
	return ok
}

// PickPhysicalDevice enumerates the accelerators and keeps the first one able to
// present to surface.
func PickPhysicalDevice(inst *Instance, surface *Surface, logger *slog.Logger) (*PhysicalDevice, error) {
	if logger == nil {
		logger = slog.Default()
	}

	physicalDevices, _, err := inst.Driver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	candidates := make([]Candidate, 0, len(physicalDevices))
	properties := make([]*core1_0.PhysicalDeviceProperties, 0, len(physicalDevices))
	for idx, device := range physicalDevices {
		props, err := inst.Driver.GetPhysicalDeviceProperties(device)
		if err != nil {
			return nil, errors.Wrapf(err, "query properties of device %d", idx)
		}

		candidate, err := describe(inst, surface, device, props)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, candidate)
		properties = append(properties, props)
	}

	selected, indices, rejected, err := SelectCandidate(candidates, RequiredExtensions)
	for _, reason := range rejected {
		logger.Info("rejected accelerator", "reason", reason.Error())
	}
	if err != nil {
		return nil, err
	}

	logger.Info("selected accelerator",
		"name", candidates[selected].Name,
		"graphicsFamily", *indices.GraphicsFamily,
		"presentFamily", *indices.PresentFamily)

	return &PhysicalDevice{
		Handle:     physicalDevices[selected],
		Properties: properties[selected],
		Indices:    indices,
		extensions: candidates[selected].Extensions,
	}, nil
}

// candidateName labels an accelerator in logs. The wrapper reports the driver name
// rather than the device name, so the device ID stands in when that is empty.
func candidateName(props *core1_0.PhysicalDeviceProperties) string {
	if props.DriverName != "" {
		return props.DriverName
	}
	return fmt.Sprintf("device %d", props.DeviceID)
}

func describe(inst *Instance, surface *Surface, device core1_0.PhysicalDevice, props *core1_0.PhysicalDeviceProperties) (Candidate, error) {
	candidate := Candidate{
		Name:       candidateName(props),
		Extensions: map[string]struct{}{},
	}

	queueFamilies := inst.Driver.GetPhysicalDeviceQueueFamilyProperties(device)
	for queueFamilyIdx, queueFamily := range queueFamilies {
		supported, _, err := surface.Extension.GetPhysicalDeviceSurfaceSupport(surface.Handle, device, queueFamilyIdx)
		if err != nil {
			return candidate, errors.Wrapf(err, "%s: query present support of family %d", candidate.Name, queueFamilyIdx)
		}

		candidate.QueueFamilies = append(candidate.QueueFamilies, QueueFamily{
			Graphics: (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0,
			Present:  supported,
		})
	}

	extensions, _, err := inst.Driver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return candidate, errors.Wrapf(err, "%s: enumerate device extensions", candidate.Name)
	}
	for name := range extensions {
		candidate.Extensions[name] = struct{}{}
	}

	// The surface is only queried once the swapchain extension is known to be there.
	if len(MissingExtensions(RequiredExtensions, candidate.Extensions)) == 0 {
		candidate.Support, err = surface.Support(device)
		if err != nil {
			return candidate, errors.Wrapf(err, "%s", candidate.Name)
		}
	}

	return candidate, nil
}

// portabilityExtensions lists the optional extensions enabled when present, which makes
// the device usable through portability drivers such as MoltenVK.
func (p *PhysicalDevice) portabilityExtensions() []string {
	if p.HasExtension(khr_portability_subset.ExtensionName) {
		return []string{khr_portability_subset.ExtensionName}
	}
	return nil
}
