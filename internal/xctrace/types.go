package xctrace

import "strings"

// Frame is a resolved call-stack entry. Name holds either a symbol or a raw
// hex address string; Binary is the owning module and may be empty.
type Frame struct {
	Name   string
	Addr   string
	Binary string
}

// RawAddress reports whether the frame was never resolved to a symbol.
// Such frames stay in the backtrace but are excluded from name-based
// aggregation.
func (f Frame) RawAddress() bool {
	return strings.HasPrefix(f.Name, "0x")
}

// Sample is one profiling observation. Backtrace is ordered leaf-first:
// index 0 is the innermost call.
type Sample struct {
	Time      string
	Thread    string
	Process   string
	WeightMS  float64
	Backtrace []Frame
}

// Trace is the full ordered sequence of samples for one exported profiling
// run. Built once by the parser, read-only for all analysis.
type Trace struct {
	Samples []Sample
}

// TotalWeight returns the summed sample weight in milliseconds.
func (t *Trace) TotalWeight() float64 {
	total := 0.0
	for _, s := range t.Samples {
		total += s.WeightMS
	}
	return total
}

// LifeCyclePhase is one app-launch life-cycle period.
type LifeCyclePhase struct {
	StartTime  string
	DurationMS float64
	Phase      string
	Narrative  string
	Process    string
}

// LibraryLoad records one dynamic library load during launch.
type LibraryLoad struct {
	StartTime  string
	DurationMS float64
	Name       string
	Path       string
}

// Hang is one potential-hang record.
type Hang struct {
	StartTime  string
	DurationMS float64
	Type       string
	Thread     string
	Process    string
}

// Hitch is one animation-hitch record.
type Hitch struct {
	StartTime   string
	DurationMS  float64
	Process     string
	System      bool
	Description string
}

// Leak is one leaked allocation.
type Leak struct {
	Address            string
	SizeBytes          int64
	ResponsibleFrame   string
	ResponsibleLibrary string
	Backtrace          []Frame
	Type               string
}

// AllocationStat is one row of the allocations statistics table.
type AllocationStat struct {
	Category        string
	PersistentBytes int64
	PersistentCount int64
	TotalBytes      int64
	TotalCount      int64
}

// EnergySample is one energy-usage observation.
type EnergySample struct {
	Time       string
	CPUPercent float64
	GPUPercent float64
	Impact     float64
	Process    string
}

// ViewUpdate is one UI view-body update record.
type ViewUpdate struct {
	StartTime   string
	DurationUS  float64
	Description string
	Category    string
	Severity    string
	ViewName    string
}
