// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/devblok/korugs/core"
	vk "github.com/vulkan-go/vulkan"
)

// DefaultVulkanApplicationInfo application info describes a Vulkan application
var DefaultVulkanApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   "korugs\x00",
	PEngineName:        "korugs\x00",
}

// NewVulkanInstance creates a Vulkan instance. procAddr is the
// vkGetInstanceProcAddr supplied by the windowing layer, when nil
// the system loader is used.
func NewVulkanInstance(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg core.InstanceConfiguration) (*VulkanInstance, error) {
	if cfg.DebugMode {
		cfg.Layers = append(cfg.Layers, "VK_LAYER_KHRONOS_validation")
		cfg.Extensions = append(cfg.Extensions, vk.ExtDebugReportExtensionName)
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.New("vk.SetDefaultGetInstanceProcAddr(): " + err.Error())
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.New("vk.Init(): " + err.Error())
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: safeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, errors.New("vk.CreateInstance(): " + err.Error())
	}
	vk.InitInstance(instance)

	physicalDevices, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, errors.New("device.enumerateDevices(): " + err.Error())
	}

	return &VulkanInstance{
		configuration:    cfg,
		instance:         instance,
		availableDevices: physicalDevices,
	}, nil
}

// VulkanInstance is the Vulkan implementation of Instance.
type VulkanInstance struct {
	configuration core.InstanceConfiguration

	availableDevices []vk.PhysicalDevice
	instance         vk.Instance
}

// Handle returns the native instance, for windowing layers
// that need it to create surfaces.
func (v *VulkanInstance) Handle() vk.Instance {
	return v.instance
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, availableDevices)); err != nil {
		return nil, fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	return availableDevices, nil
}

// Adapters implements interface
func (v *VulkanInstance) Adapters() []AdapterInfo {
	adapters := make([]AdapterInfo, len(v.availableDevices))
	for i, pd := range v.availableDevices {
		adapters[i] = describeAdapter(i, pd)
	}
	return adapters
}

func describeAdapter(index int, pd vk.PhysicalDevice) AdapterInfo {
	info := AdapterInfo{Index: index}

	var numExtensions uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numExtensions, nil)); err != nil {
		info.Invalid = true
	}
	extensions := make([]vk.ExtensionProperties, numExtensions)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numExtensions, extensions)); err != nil {
		info.Invalid = true
	}
	for _, ext := range extensions {
		ext.Deref()
		info.Extensions = append(info.Extensions, vk.ToString(ext.ExtensionName[:]))
	}

	var numLayers uint32
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numLayers, nil)); err != nil {
		info.Invalid = true
	}
	layers := make([]vk.LayerProperties, numLayers)
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numLayers, layers)); err != nil {
		info.Invalid = true
	}
	for _, layer := range layers {
		layer.Deref()
		info.Layers = append(info.Layers, vk.ToString(layer.LayerName[:]))
	}

	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
	memoryProperties.Deref()
	for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
		memoryProperties.MemoryHeaps[iMem].Deref()
		size := uint64(memoryProperties.MemoryHeaps[iMem].Size)
		info.Heaps = append(info.Heaps, size)
		info.Memory += size
	}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()
	properties.Limits.Deref()
	info.ID = int(properties.DeviceID)
	info.VendorID = int(properties.VendorID)
	info.DriverVersion = int(properties.DriverVersion)
	info.APIVersion = properties.ApiVersion
	info.Name = vk.ToString(properties.DeviceName[:])
	info.Type = AdapterType(properties.DeviceType)
	info.Limits = Limits{
		MinUniformBufferOffsetAlignment: uint64(properties.Limits.MinUniformBufferOffsetAlignment),
		MaxSamplerAnisotropy:            properties.Limits.MaxSamplerAnisotropy,
		MaxImageDimension2D:             properties.Limits.MaxImageDimension2D,
	}
	return info
}

// Open implements interface
func (v *VulkanInstance) Open(adapter int, cfg DriverConfiguration) (Driver, error) {
	if adapter < 0 || adapter >= len(v.availableDevices) {
		return nil, fmt.Errorf("%w: %d of %d", core.ErrInvalidAdapter, adapter, len(v.availableDevices))
	}
	pd := v.availableDevices[adapter]

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, nil)
	if queueFamilyCount == 0 {
		return nil, errors.New("vk.GetPhysicalDeviceQueueFamilyProperties(): no queuefamilies on GPU")
	}
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, queueFamilies)

	graphicsIndex := -1
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphicsIndex = i
			break
		}
	}
	if graphicsIndex < 0 {
		return nil, errors.New("vulkan error: could not find a suitable queue family for the target Vulkan mode")
	}

	extensions := cfg.Extensions
	if !containsString(extensions, vk.KhrSwapchainExtensionName) {
		extensions = append(extensions, vk.KhrSwapchainExtensionName)
	}

	info := describeAdapter(adapter, pd)
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: uint32(graphicsIndex),
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vk.Bool32(boolToUint(info.Limits.MaxSamplerAnisotropy > 1)),
		}},
	}

	var logicalDevice vk.Device
	if err := vk.Error(vk.CreateDevice(pd, &dci, nil, &logicalDevice)); err != nil {
		return nil, errors.New("vk.CreateDevice(): " + err.Error())
	}

	var queue vk.Queue
	vk.GetDeviceQueue(logicalDevice, uint32(graphicsIndex), 0, &queue)

	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
	memoryProperties.Deref()
	memoryTypes := make([]MemoryType, memoryProperties.MemoryTypeCount)
	for idx := range memoryTypes {
		memoryProperties.MemoryTypes[idx].Deref()
		memoryTypes[idx] = MemoryType{
			Properties: MemoryProperty(memoryProperties.MemoryTypes[idx].PropertyFlags),
			Heap:       memoryProperties.MemoryTypes[idx].HeapIndex,
		}
	}

	drv := &VulkanDriver{
		instance:       v.instance,
		physicalDevice: pd,
		device:         logicalDevice,
		queue:          queue,
		queueFamily:    uint32(graphicsIndex),
		adapter:        info,
		memoryTypes:    memoryTypes,
		objects:        make(map[Handle]interface{}),
	}

	if err := drv.createDescriptorPool(cfg.DescriptorSets); err != nil {
		vk.DestroyDevice(logicalDevice, nil)
		return nil, err
	}
	return drv, nil
}

// Destroy implements interface
func (v *VulkanInstance) Destroy() {
	if v == nil || v.instance == nil {
		return
	}
	v.availableDevices = nil
	vk.DestroyInstance(v.instance, nil)
	v.instance = nil
}

func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if strings.TrimSuffix(item, "\x00") == strings.TrimSuffix(s, "\x00") {
			return true
		}
	}
	return false
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
