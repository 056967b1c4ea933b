package device

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
)

const ValidationLayer = "VK_LAYER_KHRONOS_validation"

var (
	ErrMissingExtension = errors.New("required extension not available")
	ErrMissingLayer     = errors.New("required layer not available- install LunarG Vulkan SDK")
)

type InstanceOptions struct {
	ApplicationName string
	// WindowExtensions are the instance extensions the window system needs.
	WindowExtensions []string
	Validation       bool
	Logger           *slog.Logger
}

// Instance is the connection to the Vulkan loader, plus the debug messenger when
// validation is on.
type Instance struct {
	Driver core1_0.CoreInstanceDriver

	debugDriver    ext_debug_utils.ExtensionDriver
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	logger         *slog.Logger
}

func CreateInstance(globalDriver core1_0.GlobalDriver, opts InstanceOptions) (*Instance, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	inst := &Instance{logger: logger}

	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := globalDriver.AvailableExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}

	required := append([]string{}, opts.WindowExtensions...)
	if opts.Validation {
		required = append(required, ext_debug_utils.ExtensionName)
	}

	missing := MissingExtensions(required, extensions)
	if len(missing) > 0 {
		return nil, errors.Wrapf(ErrMissingExtension, "createInstance: %s", strings.Join(missing, ", "))
	}
	instanceOptions.EnabledExtensionNames = required

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if opts.Validation {
		layers, _, err := globalDriver.AvailableLayers()
		if err != nil {
			return nil, errors.Wrap(err, "enumerate instance layers")
		}

		if missing := MissingExtensions([]string{ValidationLayer}, layers); len(missing) > 0 {
			return nil, errors.Wrapf(ErrMissingLayer, "createInstance: %s", ValidationLayer)
		}
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, ValidationLayer)

		// Covers vkCreateInstance and vkDestroyInstance themselves.
		instanceOptions.Next = inst.debugMessengerOptions()
	}

	instance, _, err := globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create instance")
	}

	inst.Driver, err = globalDriver.BuildInstanceDriver(instance)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load instance driver")
	}

	if opts.Validation {
		inst.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(inst.Driver)
		inst.debugMessenger, _, err = inst.debugDriver.CreateDebugUtilsMessenger(nil, inst.debugMessengerOptions())
		if err != nil {
			inst.Driver.DestroyInstance(nil)
			return nil, errors.Wrap(err, "failed to set up debug messenger")
		}
	}

	logger.Debug("instance created", "extensions", instanceOptions.EnabledExtensionNames, "layers", instanceOptions.EnabledLayerNames)
	return inst, nil
}

func (i *Instance) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityVerbose | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityError,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    i.logDebug,
	}
}

// logDebug never aborts the triggering call.
func (i *Instance) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	i.logger.Log(context.Background(), severityLevel(severity), "validation layer",
		"type", msgType.String(),
		"message", data.Message)
	return false
}

func severityLevel(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) slog.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return slog.LevelError
	case severity&ext_debug_utils.SeverityWarning != 0:
		return slog.LevelWarn
	case severity&ext_debug_utils.SeverityInfo != 0:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func (i *Instance) Destroy() {
	if i.debugMessenger.Initialized() {
		i.debugDriver.DestroyDebugUtilsMessenger(i.debugMessenger, nil)
		i.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if i.Driver != nil {
		i.Driver.DestroyInstance(nil)
		i.Driver = nil
	}
}
