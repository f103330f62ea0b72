package perf

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

var errSampleEmpty = errors.New("cpu percent: no samples")

// Sample is one reading of system load.
type Sample struct {
	CPUPercent float64
	MemPercent float64
	MemUsed    uint64
	MemTotal   uint64
}

// Sampler reads system load.
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// SystemSampler reads load from the host through gopsutil.
type SystemSampler struct{}

// Sample returns CPU usage since the previous call and current memory use.
func (SystemSampler) Sample(ctx context.Context) (Sample, error) {
	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Sample{}, fmt.Errorf("cpu percent: %w", err)
	}
	if len(total) == 0 {
		return Sample{}, errSampleEmpty
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("virtual memory: %w", err)
	}
	return Sample{
		CPUPercent: total[0],
		MemPercent: vm.UsedPercent,
		MemUsed:    vm.Used,
		MemTotal:   vm.Total,
	}, nil
}
