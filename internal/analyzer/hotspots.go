package analyzer

import (
	"sort"
	"strings"

	"xctrace-mcp/internal/xctrace"
)

// FrameStat is one ranked aggregation result: how often a frame name was
// observed and how much sample weight it accumulated. Binary is the owning
// module last seen for that name.
type FrameStat struct {
	Name     string
	Count    int
	WeightMS float64
	Binary   string
}

// Frames from these modules and symbol prefixes are treated as system code
// when callers ask for it to be excluded.
var systemPrefixes = []string{
	"dyld", "libsystem", "libobjc", "libdispatch",
	"CoreFoundation", "Foundation", "UIKit", "QuartzCore",
	"_CF", "_NS", "objc_",
}

// frameworkKeywords select UI-framework frames out of the inclusive ranking.
var frameworkKeywords = []string{"SwiftUI", "AG::", "View", "Layout", "DisplayList", "Attribute"}

const frameworkBinaryMarker = "SwiftUI"

// accumulator builds name-keyed frame statistics while remembering first-seen
// order, so equal-weight entries rank deterministically by traversal order.
type accumulator struct {
	stats map[string]*FrameStat
	order []string
}

func newAccumulator() *accumulator {
	return &accumulator{stats: make(map[string]*FrameStat)}
}

func (a *accumulator) add(name, binary string, weightMS float64) {
	st, ok := a.stats[name]
	if !ok {
		st = &FrameStat{Name: name}
		a.stats[name] = st
		a.order = append(a.order, name)
	}
	st.Count++
	st.WeightMS += weightMS
	if binary != "" {
		st.Binary = binary
	}
}

// ranked returns the accumulated stats sorted by weight descending. The sort
// is stable over insertion order; ties keep the order frames were first seen.
func (a *accumulator) ranked(topN int) []FrameStat {
	out := make([]FrameStat, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, *a.stats[name])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WeightMS > out[j].WeightMS
	})
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}

// HotFrames ranks frames by inclusive ("total") time: a frame is charged a
// sample's full weight when it appears anywhere in that sample's backtrace.
// A name occurring twice in one stack contributes only once per sample.
// filterBinary, when non-empty, requires an exact binary match;
// excludeSystem drops frames matching the known system prefixes.
func HotFrames(trace *xctrace.Trace, topN int, filterBinary string, excludeSystem bool) []FrameStat {
	acc := newAccumulator()
	for _, sample := range trace.Samples {
		seen := make(map[string]bool)
		for _, frame := range sample.Backtrace {
			if frame.RawAddress() {
				continue
			}
			if filterBinary != "" && frame.Binary != filterBinary {
				continue
			}
			if excludeSystem && isSystemFrame(frame) {
				continue
			}
			if seen[frame.Name] {
				continue
			}
			seen[frame.Name] = true
			acc.add(frame.Name, frame.Binary, sample.WeightMS)
		}
	}
	return acc.ranked(topN)
}

// SelfTimeFrames ranks frames by leaf-only ("self") time: per sample, only
// the innermost qualifying frame is charged. Samples with no qualifying
// leaf contribute nothing.
func SelfTimeFrames(trace *xctrace.Trace, topN int, filterBinary string) []FrameStat {
	acc := newAccumulator()
	for _, sample := range trace.Samples {
		for _, frame := range sample.Backtrace {
			if frame.RawAddress() {
				continue
			}
			if filterBinary != "" && frame.Binary != filterBinary {
				continue
			}
			acc.add(frame.Name, frame.Binary, sample.WeightMS)
			break
		}
	}
	return acc.ranked(topN)
}

// AppFrames ranks frames belonging to the given binary, matched as a
// case-insensitive substring. Frames with no recorded binary are excluded.
// Aggregation is inclusive, with the same per-sample dedup as HotFrames.
func AppFrames(trace *xctrace.Trace, appBinary string, topN int) []FrameStat {
	needle := strings.ToLower(appBinary)
	acc := newAccumulator()
	for _, sample := range trace.Samples {
		seen := make(map[string]bool)
		for _, frame := range sample.Backtrace {
			if frame.RawAddress() {
				continue
			}
			if frame.Binary == "" || !strings.Contains(strings.ToLower(frame.Binary), needle) {
				continue
			}
			if seen[frame.Name] {
				continue
			}
			seen[frame.Name] = true
			acc.add(frame.Name, frame.Binary, sample.WeightMS)
		}
	}
	return acc.ranked(topN)
}

// FrameworkFrames post-filters the inclusive top 100 down to UI-framework
// frames, keeping the inclusive ranking order.
func FrameworkFrames(trace *xctrace.Trace, topN int) []FrameStat {
	var results []FrameStat
	for _, st := range HotFrames(trace, 100, "", false) {
		if !matchesFramework(st) {
			continue
		}
		results = append(results, st)
		if topN > 0 && len(results) >= topN {
			break
		}
	}
	return results
}

func matchesFramework(st FrameStat) bool {
	for _, kw := range frameworkKeywords {
		if strings.Contains(st.Name, kw) {
			return true
		}
	}
	return strings.Contains(st.Binary, frameworkBinaryMarker)
}

func isSystemFrame(frame xctrace.Frame) bool {
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(frame.Name, prefix) {
			return true
		}
		if frame.Binary != "" && strings.HasPrefix(frame.Binary, prefix) {
			return true
		}
	}
	return false
}
