//go:build cuda

package gpu

import (
	"log/slog"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// Detect queries NVML and reports the NVIDIA device with the most memory.
// Any NVML failure yields the unknown summary.
func Detect() *Summary {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		slog.Debug("nvml init failed", "error", nvml.ErrorString(ret))
		return Unknown()
	}
	defer nvml.Shutdown()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS || count == 0 {
		return Unknown()
	}

	var largest uint64
	for i := 0; i < count; i++ {
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			slog.Debug("nvml device handle failed", "index", i, "error", nvml.ErrorString(ret))
			continue
		}
		mem, ret := device.GetMemoryInfo()
		if ret != nvml.SUCCESS {
			continue
		}
		if mem.Total > largest {
			largest = mem.Total
		}
	}

	s := &Summary{Vendor: "nvidia"}
	if largest > 0 {
		gb := bytesToGB(largest)
		s.VRAMGB = &gb
	}
	return s
}
