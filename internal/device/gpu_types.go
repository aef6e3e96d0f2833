package device

// DeviceType describes the class of a discovered compute device.
type DeviceType string

const (
	DeviceTypeGPU         DeviceType = "GPU"
	DeviceTypeCPU         DeviceType = "CPU"
	DeviceTypeAccelerator DeviceType = "Accelerator"
	DeviceTypeDefault     DeviceType = "Default"
	DeviceTypeUnknown     DeviceType = "Unknown"
)

// DeviceInfo captures metadata about one compute device, returned by
// the dispatcher's list_gpus command as (id, name, memory_bytes, cores).
type DeviceInfo struct {
	ID              int
	Name            string
	Vendor          string
	Version         string
	Type            DeviceType
	MaxComputeUnits uint32
	MemoryBytes     uint64
}

// PlatformInfo groups the devices exposed by one driver/platform.
type PlatformInfo struct {
	Name    string
	Vendor  string
	Version string
	Devices []DeviceInfo
}
