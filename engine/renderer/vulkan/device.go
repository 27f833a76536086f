package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport VulkanSwapchainSupportInfo

	// The graphics family also supports compute; every command buffer of
	// the renderer is submitted there.
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

type queueFamilyInfo struct {
	graphics, present       uint32
	hasGraphics, hasPresent bool
}

// DeviceCreate selects a physical device and creates the logical device with
// its queues.
func DeviceCreate(context *VulkanContext) error {
	device, err := SelectPhysicalDevice(context)
	if err != nil {
		return err
	}
	context.Device = device

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{device.GraphicsQueueIndex}
	if device.PresentQueueIndex != device.GraphicsQueueIndex {
		indices = append(indices, device.PresentQueueIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if hasDeviceExtension(device.PhysicalDevice, portabilitySubsetExtension) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensionNames = append(extensionNames, portabilitySubsetExtension)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logical vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logical); res != vk.Success {
		return VulkanResultError(res, "vkCreateDevice")
	}
	device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(logical, device.GraphicsQueueIndex, 0, &graphicsQueue)
	vk.GetDeviceQueue(logical, device.PresentQueueIndex, 0, &presentQueue)
	device.GraphicsQueue = graphicsQueue
	device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	if context.Device == nil {
		return
	}
	// Unset queues
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

// DeviceQuerySwapchainSupport reads the capabilities, formats and present
// modes the surface offers on physicalDevice.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	var info VulkanSwapchainSupportInfo

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities); res != vk.Success {
		return info, VulkanResultError(res, "vkGetPhysicalDeviceSurfaceCapabilities")
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return info, VulkanResultError(res, "vkGetPhysicalDeviceSurfaceFormats")
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats); res != vk.Success {
			return info, VulkanResultError(res, "vkGetPhysicalDeviceSurfaceFormats")
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return info, VulkanResultError(res, "vkGetPhysicalDeviceSurfacePresentModes")
	}
	if presentModeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, info.PresentModes); res != vk.Success {
			return info, VulkanResultError(res, "vkGetPhysicalDeviceSurfacePresentModes")
		}
	}
	return info, nil
}

// SelectPhysicalDevice returns the best device that can render, compute and
// present to the context surface. Discrete GPUs win over the others.
func SelectPhysicalDevice(context *VulkanContext) (*VulkanDevice, error) {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return nil, VulkanResultError(res, "vkEnumeratePhysicalDevices")
	}
	if physicalDeviceCount == 0 {
		return nil, errors.Mark(errors.New("no devices which support Vulkan were found"), core.ErrNoSuitableDevice)
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return nil, VulkanResultError(res, "vkEnumeratePhysicalDevices")
	}

	var selected *VulkanDevice
	for _, physical := range physicalDevices {
		candidate, ok := physicalDeviceMeetsRequirements(physical, context.Surface)
		if !ok {
			continue
		}
		if selected == nil || candidate.Properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			selected = candidate
		}
		if candidate.Properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			break
		}
	}
	if selected == nil {
		return nil, errors.Mark(errors.New("no physical device meets the requirements"), core.ErrNoSuitableDevice)
	}

	logDeviceInfo(selected)
	core.LogInfo("Physical device selected.")
	return selected, nil
}

func physicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface) (*VulkanDevice, bool) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()

	name := CString(properties.DeviceName[:])

	queues := findQueueFamilies(device, surface)
	core.LogDebug("Graphics+Compute: %t | Present: %t | %s", queues.hasGraphics, queues.hasPresent, name)
	if !queues.hasGraphics || !queues.hasPresent {
		core.LogInfo("Device '%s' lacks the required queues. Skipping.", name)
		return nil, false
	}

	if !hasDeviceExtension(device, vk.KhrSwapchainExtensionName) {
		core.LogInfo("Device '%s' does not support swapchains. Skipping.", name)
		return nil, false
	}

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present on '%s', skipping device.", name)
		return nil, false
	}

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(device, &features)
	features.Deref()

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(device, &memory)
	memory.Deref()

	return &VulkanDevice{
		PhysicalDevice:     device,
		SwapchainSupport:   support,
		GraphicsQueueIndex: queues.graphics,
		PresentQueueIndex:  queues.present,
		Properties:         properties,
		Features:           features,
		Memory:             memory,
	}, true
}

// findQueueFamilies prefers a single family that does graphics, compute and
// present.
func findQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) queueFamilyInfo {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	var info queueFamilyInfo
	wanted := vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		index := uint32(i)

		graphics := queueFamilies[i].QueueFlags&wanted == wanted
		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(device, index, surface, &supportsPresent)
		present := supportsPresent == vk.True

		if graphics && present {
			return queueFamilyInfo{graphics: index, present: index, hasGraphics: true, hasPresent: true}
		}
		if graphics && !info.hasGraphics {
			info.graphics, info.hasGraphics = index, true
		}
		if present && !info.hasPresent {
			info.present, info.hasPresent = index, true
		}
	}
	return info
}

func hasDeviceExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if CString(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func logDeviceInfo(device *VulkanDevice) {
	properties := device.Properties
	core.LogInfo("Selected device: '%s'.", CString(properties.DeviceName[:]))

	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}

	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)

	for j := uint32(0); j < device.Memory.MemoryHeapCount; j++ {
		heap := device.Memory.MemoryHeaps[j]
		heap.Deref()
		sizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", sizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", sizeGib)
		}
	}
}
