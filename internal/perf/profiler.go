package perf

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// ProfileOptions selects which recordings a Profiler takes. Empty paths
// are skipped.
type ProfileOptions struct {
	CPUPath   string
	MemPath   string
	TracePath string
}

// Enabled reports whether any recording was requested.
func (o ProfileOptions) Enabled() bool {
	return o.CPUPath != "" || o.MemPath != "" || o.TracePath != ""
}

// Profiler records a CPU profile and an execution trace around a run, and
// writes a heap profile when it stops. It is the command-line counterpart
// of a DevTools performance recording.
type Profiler struct {
	opts      ProfileOptions
	cpuFile   *os.File
	traceFile *os.File
	started   bool
}

// NewProfiler creates a profiler for opts.
func NewProfiler(opts ProfileOptions) *Profiler {
	return &Profiler{opts: opts}
}

// Start begins the CPU profile and trace. On error anything already started
// is stopped again.
func (p *Profiler) Start() error {
	if p.started {
		return nil
	}

	if p.opts.CPUPath != "" {
		f, err := os.Create(p.opts.CPUPath)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		p.cpuFile = f
	}

	if p.opts.TracePath != "" {
		f, err := os.Create(p.opts.TracePath)
		if err != nil {
			p.stopCPU()
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			p.stopCPU()
			return fmt.Errorf("failed to start trace: %w", err)
		}
		p.traceFile = f
	}

	p.started = true
	return nil
}

// Stop ends the recordings and writes the heap profile.
func (p *Profiler) Stop() error {
	if !p.started {
		return nil
	}
	p.started = false

	var errs []error
	if p.traceFile != nil {
		trace.Stop()
		errs = append(errs, p.traceFile.Close())
		p.traceFile = nil
	}
	if err := p.stopCPU(); err != nil {
		errs = append(errs, err)
	}
	if p.opts.MemPath != "" {
		errs = append(errs, WriteHeap(p.opts.MemPath))
	}
	return errors.Join(errs...)
}

func (p *Profiler) stopCPU() error {
	if p.cpuFile == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := p.cpuFile.Close()
	p.cpuFile = nil
	return err
}

// WriteHeap writes a heap profile to path after forcing a collection.
func WriteHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}

// MemStats returns current memory statistics.
func MemStats() runtime.MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m
}

// FormatBytes formats bytes into human-readable form.
func FormatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
