package profiler

import (
	"log"
	"runtime"
	"sync"
	"time"
)

// StageTiming is the measurement of one profiled stage.
type StageTiming struct {
	Name     string
	Duration time.Duration
	// HeapMB is the live heap after the stage.
	HeapMB float64
	// AllocMB is the number of megabytes allocated during the stage.
	AllocMB float64
	// GCs is the number of collections that ran during the stage.
	GCs uint32
	Err error
}

// StageProfiler records wall time and memory statistics for each stage of a pipeline run
// and logs one line per stage.
type StageProfiler struct {
	mu       sync.Mutex
	stages   []StageTiming
	memStats runtime.MemStats
	quiet    bool
}

// NewStageProfiler creates a StageProfiler. A quiet profiler records timings without logging.
//
// Parameters:
//   - quiet: suppress per-stage log lines
//
// Returns:
//   - *StageProfiler: the profiler
func NewStageProfiler(quiet bool) *StageProfiler {
	return &StageProfiler{quiet: quiet}
}

// Stage runs fn and records how long it took and how much it allocated. The error from fn
// is returned unchanged.
//
// Parameters:
//   - name: the stage name
//   - fn: the stage body
//
// Returns:
//   - error: the error returned by fn
func (p *StageProfiler) Stage(name string, fn func() error) error {
	p.mu.Lock()
	runtime.ReadMemStats(&p.memStats)
	startAlloc := p.memStats.TotalAlloc
	startGC := p.memStats.NumGC
	p.mu.Unlock()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	p.mu.Lock()
	defer p.mu.Unlock()
	runtime.ReadMemStats(&p.memStats)
	t := StageTiming{
		Name:     name,
		Duration: elapsed,
		HeapMB:   float64(p.memStats.Alloc) / 1024 / 1024,
		AllocMB:  float64(p.memStats.TotalAlloc-startAlloc) / 1024 / 1024,
		GCs:      p.memStats.NumGC - startGC,
		Err:      err,
	}
	p.stages = append(p.stages, t)

	if !p.quiet {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		log.Printf("[Profiler] %s %s in %s | Heap: %.2f MB | Alloc: %.2f MB | GC: %d",
			name, status, elapsed.Round(time.Microsecond), t.HeapMB, t.AllocMB, t.GCs)
	}
	return err
}

// Timings returns a copy of the recorded stages in execution order.
//
// Returns:
//   - []StageTiming: the recorded stages
func (p *StageProfiler) Timings() []StageTiming {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StageTiming, len(p.stages))
	copy(out, p.stages)
	return out
}

// Total returns the summed duration of every recorded stage.
func (p *StageProfiler) Total() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total time.Duration
	for _, s := range p.stages {
		total += s.Duration
	}
	return total
}

// Reset discards recorded stages.
func (p *StageProfiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = p.stages[:0]
}
