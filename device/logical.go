package device

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Logical is an open device session with its graphics and present queues. The two
// queues are the same handle when one family serves both roles.
type Logical struct {
	Driver        core1_0.CoreDeviceDriver
	GraphicsQueue core1_0.Queue
	PresentQueue  core1_0.Queue
	Indices       QueueFamilyIndices
}

// UniqueQueueFamilies is the de-duplicated union of the graphics and present families.
func UniqueQueueFamilies(indices QueueFamilyIndices) []int {
	uniqueQueueFamilies := []int{*indices.GraphicsFamily}
	if uniqueQueueFamilies[0] != *indices.PresentFamily {
		uniqueQueueFamilies = append(uniqueQueueFamilies, *indices.PresentFamily)
	}
	return uniqueQueueFamilies
}

func CreateLogicalDevice(inst *Instance, physical *PhysicalDevice) (*Logical, error) {
	if !physical.Indices.IsComplete() {
		return nil, errors.Newf("create logical device: incomplete queue families (%s)", physical.Indices)
	}

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range UniqueQueueFamilies(physical.Indices) {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, RequiredExtensions...)
	extensionNames = append(extensionNames, physical.portabilityExtensions()...)

	handle, _, err := inst.Driver.CreateDevice(physical.Handle, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueFamilyOptions,
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logical device")
	}

	deviceDriver, err := inst.Driver.BuildDeviceDriver(handle)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load device driver")
	}

	return &Logical{
		Driver:        deviceDriver,
		GraphicsQueue: deviceDriver.GetQueue(*physical.Indices.GraphicsFamily, 0),
		PresentQueue:  deviceDriver.GetQueue(*physical.Indices.PresentFamily, 0),
		Indices:       physical.Indices,
	}, nil
}

// WaitIdle blocks until the device has no outstanding work.
func (d *Logical) WaitIdle() error {
	_, err := d.Driver.DeviceWaitIdle()
	return errors.Wrap(err, "wait for device idle")
}

func (d *Logical) Destroy() {
	if d.Driver != nil {
		d.Driver.DestroyDevice(nil)
		d.Driver = nil
	}
}
