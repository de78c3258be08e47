package profiler

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Stage is the wall time spent in one named step of a request.
type Stage struct {
	Name     string
	Duration time.Duration
}

// Stats summarizes one profiled request.
type Stats struct {
	// Stages lists the recorded steps in order.
	Stages []Stage

	// Total is the time from NewProfiler to Finish.
	Total time.Duration

	// HeapAlloc is the live heap size at Finish.
	HeapAlloc uint64

	// Allocated is the number of heap bytes allocated process-wide while profiling.
	Allocated uint64

	// GCCycles is the number of garbage collections completed while profiling.
	GCCycles uint32
}

// Stage returns the duration of the named stage, or 0.
func (s Stats) Stage(name string) time.Duration {
	for _, st := range s.Stages {
		if st.Name == name {
			return st.Duration
		}
	}
	return 0
}

// Profiler tracks stage timings and memory statistics of a single load request.
// It is not safe for concurrent use; each request owns its profiler.
type Profiler struct {
	start    time.Time
	last     time.Time
	stages   []Stage
	memStats runtime.MemStats

	startTotalAlloc uint64
	startGCCount    uint32

	logger *zap.Logger
}

// NewProfiler creates a profiler and records the starting memory statistics.
//
// Parameters:
//   - logger: receives the summary at debug level; nil disables logging
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *zap.Logger) *Profiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now()
	p := &Profiler{
		start:  now,
		last:   now,
		logger: logger,
	}
	runtime.ReadMemStats(&p.memStats)
	p.startTotalAlloc = p.memStats.TotalAlloc
	p.startGCCount = p.memStats.NumGC
	return p
}

// Mark closes the current stage under name and starts the next one.
//
// Parameters:
//   - name: the stage that just finished
func (p *Profiler) Mark(name string) {
	now := time.Now()
	p.stages = append(p.stages, Stage{Name: name, Duration: now.Sub(p.last)})
	p.last = now
}

// Finish reads the final memory statistics and logs the summary.
//
// Returns:
//   - Stats: the collected statistics
func (p *Profiler) Finish() Stats {
	runtime.ReadMemStats(&p.memStats)

	stats := Stats{
		Stages:    append([]Stage(nil), p.stages...),
		Total:     time.Since(p.start),
		HeapAlloc: p.memStats.HeapAlloc,
		Allocated: p.memStats.TotalAlloc - p.startTotalAlloc,
		GCCycles:  p.memStats.NumGC - p.startGCCount,
	}

	fields := make([]zap.Field, 0, len(stats.Stages)+4)
	for _, st := range stats.Stages {
		fields = append(fields, zap.Duration(st.Name, st.Duration))
	}
	fields = append(fields,
		zap.Duration("total", stats.Total),
		zap.Float64("heap_mb", float64(stats.HeapAlloc)/1024/1024),
		zap.Float64("allocated_mb", float64(stats.Allocated)/1024/1024),
		zap.Uint32("gc", stats.GCCycles),
	)
	p.logger.Debug("request profile", fields...)
	return stats
}
