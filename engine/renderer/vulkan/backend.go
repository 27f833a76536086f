package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// VulkanBackend implements renderer.RendererBackend on a Vulkan device. Every
// object it creates is addressed through an opaque handle; the tables below
// map those handles to the native objects.
type VulkanBackend struct {
	platform *platform.Platform
	context  *VulkanContext
	locks    *VulkanLockPool

	validation bool

	fences          *containers.HandleTable[metadata.FenceHandle, vk.Fence]
	semaphores      *containers.HandleTable[metadata.SemaphoreHandle, vk.Semaphore]
	commandPools    *containers.HandleTable[metadata.CommandPoolHandle, vk.CommandPool]
	commandBuffers  *containers.HandleTable[metadata.CommandBufferHandle, *VulkanCommandBuffer]
	swapchains      *containers.HandleTable[metadata.SwapchainHandle, *VulkanSwapchain]
	images          *containers.HandleTable[metadata.ImageHandle, *VulkanImage]
	views           *containers.HandleTable[metadata.ImageViewHandle, *VulkanImageView]
	buffers         *containers.HandleTable[metadata.BufferHandle, *VulkanBuffer]
	descriptorPools *containers.HandleTable[metadata.DescriptorPoolHandle, vk.DescriptorPool]
	descriptorSets  *containers.HandleTable[metadata.DescriptorSetHandle, *VulkanDescriptorSet]
	setLayouts      *containers.HandleTable[metadata.DescriptorSetLayoutHandle, vk.DescriptorSetLayout]
	shaderModules   *containers.HandleTable[metadata.ShaderModuleHandle, vk.ShaderModule]
	pipelineLayouts *containers.HandleTable[metadata.PipelineLayoutHandle, vk.PipelineLayout]
	pipelines       *containers.HandleTable[metadata.PipelineHandle, *VulkanPipeline]

	renderpasses *RenderpassCache
	framebuffers *FramebufferCache
}

var _ renderer.RendererBackend = (*VulkanBackend)(nil)

// New creates the instance, the window surface and the logical device.
func New(p *platform.Platform, appName string, validation bool) (*VulkanBackend, error) {
	vb := &VulkanBackend{
		platform:        p,
		context:         &VulkanContext{},
		locks:           NewVulkanLockPool(),
		validation:      validation,
		fences:          containers.NewHandleTable[metadata.FenceHandle, vk.Fence](8),
		semaphores:      containers.NewHandleTable[metadata.SemaphoreHandle, vk.Semaphore](8),
		commandPools:    containers.NewHandleTable[metadata.CommandPoolHandle, vk.CommandPool](4),
		commandBuffers:  containers.NewHandleTable[metadata.CommandBufferHandle, *VulkanCommandBuffer](4),
		swapchains:      containers.NewHandleTable[metadata.SwapchainHandle, *VulkanSwapchain](2),
		images:          containers.NewHandleTable[metadata.ImageHandle, *VulkanImage](16),
		views:           containers.NewHandleTable[metadata.ImageViewHandle, *VulkanImageView](16),
		buffers:         containers.NewHandleTable[metadata.BufferHandle, *VulkanBuffer](64),
		descriptorPools: containers.NewHandleTable[metadata.DescriptorPoolHandle, vk.DescriptorPool](8),
		descriptorSets:  containers.NewHandleTable[metadata.DescriptorSetHandle, *VulkanDescriptorSet](64),
		setLayouts:      containers.NewHandleTable[metadata.DescriptorSetLayoutHandle, vk.DescriptorSetLayout](8),
		shaderModules:   containers.NewHandleTable[metadata.ShaderModuleHandle, vk.ShaderModule](8),
		pipelineLayouts: containers.NewHandleTable[metadata.PipelineLayoutHandle, vk.PipelineLayout](8),
		pipelines:       containers.NewHandleTable[metadata.PipelineHandle, *VulkanPipeline](8),
	}

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, errors.Mark(errors.New("GetInstanceProcAddress is nil"), core.ErrBackendFailure)
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to initialize vulkan"), core.ErrBackendFailure)
	}

	if err := vb.createInstance(appName); err != nil {
		return nil, err
	}

	if vb.validation {
		if err := vb.createDebugCallback(); err != nil {
			// Validation output is a debugging aid, the renderer works without it.
			core.LogWarn("vulkan debugger unavailable: %s", err)
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := p.CreateWindowSurface(vb.context.Instance)
	if err != nil {
		vb.destroyInstance()
		return nil, errors.Mark(errors.Wrap(err, "vulkan surface creation failed"), core.ErrBackendFailure)
	}
	vb.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vb.context); err != nil {
		vb.destroyInstance()
		return nil, err
	}
	vb.locks.SetQueueFamily(vb.context.Device.GraphicsQueueIndex)
	vb.locks.SetQueueFamily(vb.context.Device.PresentQueueIndex)

	vb.renderpasses = NewRenderpassCache(vb.context)
	vb.framebuffers = NewFramebufferCache(vb.context)

	core.LogInfo("Vulkan backend initialized successfully.")
	return vb, nil
}

func (vb *VulkanBackend) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Lumen Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := vb.platform.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if vb.validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if hasInstanceLayer(validationLayerName) {
			layers = append(layers, validationLayerName)
		} else {
			core.LogWarn("Validation requested but %s is missing.", validationLayerName)
		}
	}

	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vb.context.Allocator, &instance); res != vk.Success {
		return VulkanResultError(res, "vkCreateInstance")
	}
	if err := vk.InitInstance(instance); err != nil {
		return errors.Mark(err, core.ErrBackendFailure)
	}
	vb.context.Instance = instance

	core.LogInfo("Vulkan Instance created.")
	return nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if CString(available[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (vb *VulkanBackend) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vb.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
		return err
	}
	vb.context.debugCallback = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

func (vb *VulkanBackend) device() vk.Device {
	return vb.context.Device.LogicalDevice
}

func (vb *VulkanBackend) WaitIdle() error {
	if res := vk.DeviceWaitIdle(vb.device()); res != vk.Success {
		return VulkanResultError(res, "vkDeviceWaitIdle")
	}
	return nil
}

// Shutdown waits for the device, releases the backend owned caches and
// destroys the device, surface and instance. Objects still alive in the
// handle tables are leaks of the caller; they are reported and released.
func (vb *VulkanBackend) Shutdown() {
	if vb.context.Device == nil || vb.context.Device.LogicalDevice == nil {
		return
	}
	vk.DeviceWaitIdle(vb.device())

	vb.reportLeaks()
	vb.releaseLeaks()

	vb.framebuffers.Destroy()
	vb.renderpasses.Destroy()

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vb.context)
	vb.destroyInstance()
}

func (vb *VulkanBackend) destroyInstance() {
	core.LogDebug("Destroying Vulkan surface...")
	if vb.context.Surface != vk.NullSurface {
		vk.DestroySurface(vb.context.Instance, vb.context.Surface, vb.context.Allocator)
		vb.context.Surface = vk.NullSurface
	}

	if vb.context.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vb.context.Instance, vb.context.debugCallback, vb.context.Allocator)
		vb.context.debugCallback = vk.NullDebugReportCallback
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vb.context.Instance, vb.context.Allocator)
	vb.context.Instance = nil
}

func (vb *VulkanBackend) reportLeaks() {
	counts := map[string]int{
		"fence":                 vb.fences.Len(),
		"semaphore":             vb.semaphores.Len(),
		"command pool":          vb.commandPools.Len(),
		"swapchain":             vb.swapchains.Len(),
		"buffer":                vb.buffers.Len(),
		"image view":            vb.views.Len(),
		"descriptor pool":       vb.descriptorPools.Len(),
		"descriptor set layout": vb.setLayouts.Len(),
		"shader module":         vb.shaderModules.Len(),
		"pipeline layout":       vb.pipelineLayouts.Len(),
		"pipeline":              vb.pipelines.Len(),
	}
	owned := 0
	vb.images.Each(func(_ metadata.ImageHandle, img *VulkanImage) {
		if img.owned {
			owned++
		}
	})
	counts["image"] = owned

	for kind, n := range counts {
		if n > 0 {
			core.LogWarn("vulkan backend shutdown with %d live %s object(s)", n, kind)
		}
	}
}

func (vb *VulkanBackend) releaseLeaks() {
	for _, h := range liveHandles(vb.pipelines) {
		vb.DestroyPipeline(h)
	}
	for _, h := range liveHandles(vb.pipelineLayouts) {
		vb.DestroyPipelineLayout(h)
	}
	for _, h := range liveHandles(vb.shaderModules) {
		vb.DestroyShaderModule(h)
	}
	for _, h := range liveHandles(vb.setLayouts) {
		vb.DestroyDescriptorSetLayout(h)
	}
	for _, h := range liveHandles(vb.descriptorPools) {
		vb.DestroyDescriptorPool(h)
	}
	for _, h := range liveHandles(vb.views) {
		vb.DestroyImageView(h)
	}
	for _, h := range liveHandles(vb.images) {
		if img, ok := vb.images.Get(h); ok && img.owned {
			vb.DestroyImage(h)
		}
	}
	for _, h := range liveHandles(vb.buffers) {
		vb.DestroyBuffer(h)
	}
	for _, h := range liveHandles(vb.swapchains) {
		vb.DestroySwapchain(h)
	}
	for _, h := range liveHandles(vb.commandPools) {
		vb.DestroyCommandPool(h)
	}
	for _, h := range liveHandles(vb.semaphores) {
		vb.DestroySemaphore(h)
	}
	for _, h := range liveHandles(vb.fences) {
		vb.DestroyFence(h)
	}
}

// liveHandles snapshots the tokens of t so entries can be removed while
// walking them.
func liveHandles[H ~uint64, V any](t *containers.HandleTable[H, V]) []H {
	out := make([]H, 0, t.Len())
	t.Each(func(h H, _ V) {
		out = append(out, h)
	})
	return out
}
