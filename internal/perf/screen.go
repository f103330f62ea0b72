// Package perf implements a screen showing CPU and memory load.
package perf

import (
	"context"
	"fmt"
	"sync"

	"pkt.systems/marquee/core"
	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

// ScreenName is the registered name of the performance screen.
const ScreenName schema.ScreenName = "perf"

const lineUnavailable = "Perf: unavailable"

// Screen polls a Sampler and renders labelled progress bars.
type Screen struct {
	*core.Looper

	sampler Sampler
	log     pslog.Logger

	mu     sync.Mutex
	sample *Sample
	failed bool
}

// NewFactory returns a core.Factory building a performance screen. A nil
// sampler reads the local host.
func NewFactory(sampler Sampler) core.Factory {
	return func(args core.Args, hooks core.Hooks) (core.Screen, error) {
		return New(args, hooks, sampler), nil
	}
}

// New builds a performance screen.
func New(args core.Args, hooks core.Hooks, sampler Sampler) *Screen {
	if sampler == nil {
		sampler = SystemSampler{}
	}
	s := &Screen{sampler: sampler}
	s.Looper = core.NewLooper(ScreenName, args, hooks, s.poll, s.redraw)
	s.log = s.Looper.Logger()
	s.Redraw()
	return s
}

func (s *Screen) poll(ctx context.Context) {
	sample, err := s.sampler.Sample(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if !s.failed {
			s.log.Warn("perf sample failed", "err", err)
		}
		s.failed = true
		return
	}
	if s.failed {
		s.log.Info("perf sample recovered")
	}
	s.failed = false
	s.sample = &sample
}

func (s *Screen) redraw() {
	s.mu.Lock()
	sample := s.sample
	failed := s.failed
	s.mu.Unlock()
	s.Looper.SetLines(render(sample, failed, s.Looper.Width()))
}

func render(sample *Sample, failed bool, width int) []string {
	if failed || sample == nil {
		if failed {
			return []string{lineUnavailable}
		}
		return []string{"Perf"}
	}
	cpuLabel := "CPU"
	memLabel := fmt.Sprintf("MEM %s/%s", formatBytes(sample.MemUsed), formatBytes(sample.MemTotal))
	return []string{
		labelled(cpuLabel, sample.CPUPercent, width),
		core.ProgressBar(sample.CPUPercent/100, width),
		labelled(memLabel, sample.MemPercent, width),
		core.ProgressBar(sample.MemPercent/100, width),
	}
}

// labelled left-aligns label and right-aligns the percentage.
func labelled(label string, pct float64, width int) string {
	value := fmt.Sprintf("%3.0f%%", pct)
	room := width - len([]rune(value))
	if room <= 0 {
		return core.PadRight(value, width)
	}
	return core.PadRight(label, room) + value
}

func formatBytes(n uint64) string {
	const gib = 1 << 30
	const mib = 1 << 20
	if n >= gib {
		return fmt.Sprintf("%.1fG", float64(n)/gib)
	}
	return fmt.Sprintf("%dM", n/mib)
}
