// Package diagnostics collects a best-effort snapshot of the host for run logs.
package diagnostics

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tphakala/sift-go/internal/logger"
)

const bytesPerMiB = 1024 * 1024

// SystemInfo describes the host an extraction run executes on. Fields that
// could not be read are left at their zero value.
type SystemInfo struct {
	CPUModel          string
	LogicalCores      int
	TotalMemory       uint64
	AvailableMemory   uint64
	MemoryUsedPercent float64
	Platform          string
	PlatformVersion   string
	KernelArch        string
	GoVersion         string
	GoMaxProcs        int
}

// Snapshot reads the current system information. It never fails; sources that
// are unavailable on this platform are skipped.
func Snapshot() SystemInfo {
	info := SystemInfo{
		GoVersion:  runtime.Version(),
		GoMaxProcs: runtime.GOMAXPROCS(0),
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		info.CPUModel = infos[0].ModelName
	}
	if n, err := cpu.Counts(true); err == nil {
		info.LogicalCores = n
	} else {
		info.LogicalCores = runtime.NumCPU()
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
		info.AvailableMemory = vm.Available
		info.MemoryUsedPercent = vm.UsedPercent
	}
	if h, err := host.Info(); err == nil {
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
		info.KernelArch = h.KernelArch
	}
	return info
}

// Fields returns the snapshot as structured log fields
func (s SystemInfo) Fields() []logger.Field {
	return []logger.Field{
		logger.String("cpu_model", s.CPUModel),
		logger.Int("logical_cores", s.LogicalCores),
		logger.Uint64("memory_total_mib", s.TotalMemory/bytesPerMiB),
		logger.Uint64("memory_available_mib", s.AvailableMemory/bytesPerMiB),
		logger.Float64("memory_used_percent", s.MemoryUsedPercent),
		logger.String("platform", s.Platform),
		logger.String("platform_version", s.PlatformVersion),
		logger.String("kernel_arch", s.KernelArch),
		logger.String("go_version", s.GoVersion),
		logger.Int("gomaxprocs", s.GoMaxProcs),
	}
}

// MemStats reports Go heap usage in MiB, logged when a run ends
func MemStats() []logger.Field {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return []logger.Field{
		logger.Uint64("heap_alloc_mib", m.HeapAlloc/bytesPerMiB),
		logger.Uint64("total_alloc_mib", m.TotalAlloc/bytesPerMiB),
		logger.Uint64("sys_mib", m.Sys/bytesPerMiB),
		logger.Int64("num_gc", int64(m.NumGC)),
	}
}
