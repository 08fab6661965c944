// Package cpuspec inspects the host CPU to size the extraction worker pool.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName        string
	LogicalCores     int
	PhysicalCores    int
	PerformanceCores int // 0 when the CPU is not a known hybrid design
}

// GetCPUSpec returns the specification of the host CPU
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:        cpuid.CPU.BrandName,
		LogicalCores:     cpuid.CPU.LogicalCores,
		PhysicalCores:    cpuid.CPU.PhysicalCores,
		PerformanceCores: PerformanceCores(cpuid.CPU.BrandName),
	}
}

// OptimalThreadCount returns the number of extraction workers for this CPU.
// Hybrid CPUs use their performance cores only. The result is capped at the
// CPUs available to the process, which may be fewer than the host has.
func (c CPUSpec) OptimalThreadCount() int {
	available := runtime.NumCPU()

	n := c.LogicalCores
	if c.PerformanceCores > 0 {
		n = c.PerformanceCores
	}
	if n <= 0 || n > available {
		n = available
	}
	return n
}

// ThreadCount resolves a configured thread count. Values <= 0 select the
// optimal count for the host CPU.
func ThreadCount(configured int) int {
	if configured > 0 {
		return configured
	}
	return GetCPUSpec().OptimalThreadCount()
}

// hybridCPU maps a brand name pattern to its performance core count
type hybridCPU struct {
	pattern *regexp.Regexp
	pCores  int
}

// hybridCPUs is checked in order, more specific patterns first
var hybridCPUs = []hybridCPU{
	// Intel 12th to 14th gen desktop
	{regexp.MustCompile(`core.*i[3579]-1[234]100`), 4},
	{regexp.MustCompile(`core.*i[3579]-1[234](400|500|600)`), 6},
	{regexp.MustCompile(`core.*i[3579]-1[234](700|900)`), 8},
	// Intel Core Ultra 200S
	{regexp.MustCompile(`core.*ultra\s+9\s+(processor\s+)?285`), 8},
	{regexp.MustCompile(`core.*ultra\s+7\s+(processor\s+)?2[56]5`), 8},
	{regexp.MustCompile(`core.*ultra\s+5\s+(processor\s+)?235`), 6},
	{regexp.MustCompile(`core.*ultra\s+5\s+(processor\s+)?225`), 4},
	// Apple Silicon
	{regexp.MustCompile(`apple\s+m1\s+ultra`), 16},
	{regexp.MustCompile(`apple\s+m[23]\s+ultra`), 24},
	{regexp.MustCompile(`apple\s+m[234]\s+max`), 12},
	{regexp.MustCompile(`apple\s+m1\s+max`), 8},
	{regexp.MustCompile(`apple\s+m[1234]\s+pro`), 8},
	{regexp.MustCompile(`apple\s+m4\b`), 6},
	{regexp.MustCompile(`apple\s+m[123]\b`), 4},
}

// PerformanceCores returns the performance core count of a known hybrid CPU
// brand name, or 0.
func PerformanceCores(brandName string) int {
	brand := strings.ToLower(brandName)
	for _, h := range hybridCPUs {
		if h.pattern.MatchString(brand) {
			return h.pCores
		}
	}
	return 0
}
