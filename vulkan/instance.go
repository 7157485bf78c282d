package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type Instance struct {
	Handle vk.Instance
}

type InstanceConfig struct {
	AppName            string
	EngineName         string
	AppVersion         uint32
	EngineVersion      uint32
	RequiredExtensions []string
}

func DefaultInstanceConfig() InstanceConfig {
	return InstanceConfig{
		AppName:       "Sprite Engine App",
		EngineName:    "Sprite Engine",
		AppVersion:    vk.MakeVersion(1, 0, 0),
		EngineVersion: vk.MakeVersion(1, 0, 0),
	}
}

func NewInstance(config InstanceConfig) (*Instance, error) {
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeString(config.AppName),
		ApplicationVersion: config.AppVersion,
		PEngineName:        safeString(config.EngineName),
		EngineVersion:      config.EngineVersion,
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}

	extensions := safeStrings(config.RequiredExtensions)
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}

	var instance vk.Instance
	if result := vk.CreateInstance(&createInfo, nil, &instance); result != vk.Success {
		return nil, fmt.Errorf("failed to create Vulkan instance: %w", vk.Error(result))
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, fmt.Errorf("failed to load instance entry points: %w", err)
	}

	return &Instance{Handle: instance}, nil
}

func (i *Instance) DestroySurface(surface vk.Surface) {
	vk.DestroySurface(i.Handle, surface, nil)
}

func (i *Instance) Destroy() {
	vk.DestroyInstance(i.Handle, nil)
}
