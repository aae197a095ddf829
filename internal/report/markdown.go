package report

import (
	"fmt"
	"sort"
	"strings"

	"xctrace-mcp/internal/analyzer"
	"xctrace-mcp/internal/xctrace"
)

// Options controls report generation.
type Options struct {
	// AppBinary, when set, adds an app-scoped frame section and is offered
	// to readers as the flame-graph filter.
	AppBinary string
	// CollapsedPath, when set, is mentioned in the flame-graph section.
	CollapsedPath string
}

// Generate renders a Markdown report from whichever categories the export
// contained. Sections for absent categories are omitted.
func Generate(exp *Export, opts Options) string {
	var b strings.Builder
	b.WriteString("# Instruments Profiling Report\n\n")

	writeSchemas(&b, exp.Schemas)
	writeLifeCycle(&b, exp.LifeCycle)
	writeLibraryLoads(&b, exp.LibraryLoads)
	writeTimeProfile(&b, exp.Trace, opts)
	writeViewUpdates(&b, exp.ViewUpdates)
	writeHangs(&b, exp)
	writeHitches(&b, exp)
	writeLeaks(&b, exp)
	writeAllocations(&b, exp.AllocStats)
	writeEnergy(&b, exp.Energy)

	return b.String()
}

func writeSchemas(b *strings.Builder, schemas []string) {
	if len(schemas) == 0 {
		return
	}
	b.WriteString("## Available Schemas\n\n")
	for _, s := range schemas {
		fmt.Fprintf(b, "- %s\n", s)
	}
	b.WriteString("\n")
}

func writeLifeCycle(b *strings.Builder, phases []xctrace.LifeCyclePhase) {
	if len(phases) == 0 {
		return
	}
	totalMS := 0.0
	for _, p := range phases {
		totalMS += p.DurationMS
	}

	b.WriteString("## App Launch - Life Cycle Phases\n\n")
	fmt.Fprintf(b, "**Total Launch Time:** %.2f ms (%.2f s)\n\n", totalMS, totalMS/1000)
	b.WriteString("| Phase | Duration (ms) | % | Description |\n")
	b.WriteString("|-------|---------------|---|-------------|\n")
	for _, p := range phases {
		pct := 0.0
		if totalMS > 0 {
			pct = p.DurationMS / totalMS * 100
		}
		fmt.Fprintf(b, "| %s | %.2f | %.1f%% | %s |\n", p.Phase, p.DurationMS, pct, truncate(p.Narrative, 50))
	}
	b.WriteString("\n### Launch Performance Assessment\n\n")
	switch {
	case totalMS < 400:
		b.WriteString("**Status:** ✅ Excellent - App launches in under 400ms\n")
	case totalMS < 1000:
		b.WriteString("**Status:** ✅ Good - App launches in under 1 second\n")
	case totalMS < 2000:
		b.WriteString("**Status:** ⚠️ Acceptable - Consider optimizing launch time\n")
	default:
		fmt.Fprintf(b, "**Status:** ❌ Slow - Launch time (%.2fs) exceeds 2 seconds\n", totalMS/1000)
	}
	b.WriteString("\n")
}

func writeLibraryLoads(b *strings.Builder, loads []xctrace.LibraryLoad) {
	if len(loads) == 0 {
		return
	}
	totalMS := 0.0
	for _, l := range loads {
		totalMS += l.DurationMS
	}

	b.WriteString("## App Launch - Library Loading\n\n")
	fmt.Fprintf(b, "**Total Libraries:** %d\n", len(loads))
	fmt.Fprintf(b, "**Total Load Time:** %.2f ms\n\n", totalMS)

	slow := make([]xctrace.LibraryLoad, 0, len(loads))
	for _, l := range loads {
		if l.DurationMS > 1.0 {
			slow = append(slow, l)
		}
	}
	sort.SliceStable(slow, func(i, j int) bool { return slow[i].DurationMS > slow[j].DurationMS })
	if len(slow) > 15 {
		slow = slow[:15]
	}
	if len(slow) > 0 {
		b.WriteString("### Slowest Libraries (>1ms)\n\n")
		b.WriteString("| Library | Duration (ms) |\n")
		b.WriteString("|---------|---------------|\n")
		for _, l := range slow {
			fmt.Fprintf(b, "| %s | %.2f |\n", l.Name, l.DurationMS)
		}
		b.WriteString("\n")
	}
}

func writeTimeProfile(b *strings.Builder, trace *xctrace.Trace, opts Options) {
	if trace == nil || len(trace.Samples) == 0 {
		return
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(b, "- **Total Samples:** %d\n", len(trace.Samples))
	fmt.Fprintf(b, "- **Total Time:** %.2f ms\n\n", trace.TotalWeight())

	b.WriteString("## Hot Frames - Total Time (Top 25)\n\n")
	b.WriteString("| Rank | Function | Count | Total (ms) | Binary |\n")
	b.WriteString("|------|----------|-------|------------|--------|\n")
	for i, st := range analyzer.HotFrames(trace, 25, "", false) {
		binary := "-"
		if st.Binary != "" {
			binary = truncate(st.Binary, 20)
		}
		fmt.Fprintf(b, "| %d | %s | %d | %.2f | %s |\n", i+1, truncate(st.Name, 60), st.Count, st.WeightMS, binary)
	}
	b.WriteString("\n")

	b.WriteString("## Hot Frames - Self Time (Top 15)\n\n")
	b.WriteString("| Rank | Function | Count | Self (ms) |\n")
	b.WriteString("|------|----------|-------|-----------|\n")
	for i, st := range analyzer.SelfTimeFrames(trace, 15, "") {
		fmt.Fprintf(b, "| %d | %s | %d | %.2f |\n", i+1, truncate(st.Name, 60), st.Count, st.WeightMS)
	}
	b.WriteString("\n")

	if framework := analyzer.FrameworkFrames(trace, 15); len(framework) > 0 {
		b.WriteString("## SwiftUI / AttributeGraph Frames\n\n")
		b.WriteString("| Function | Count | Total (ms) |\n")
		b.WriteString("|----------|-------|------------|\n")
		for _, st := range framework {
			fmt.Fprintf(b, "| %s | %d | %.2f |\n", truncate(st.Name, 70), st.Count, st.WeightMS)
		}
		b.WriteString("\n")
	}

	if opts.AppBinary != "" {
		if app := analyzer.AppFrames(trace, opts.AppBinary, 20); len(app) > 0 {
			fmt.Fprintf(b, "## App Code (%s)\n\n", opts.AppBinary)
			b.WriteString("| Function | Count | Total (ms) |\n")
			b.WriteString("|----------|-------|------------|\n")
			for _, st := range app {
				fmt.Fprintf(b, "| %s | %d | %.2f |\n", truncate(st.Name, 70), st.Count, st.WeightMS)
			}
			b.WriteString("\n")
		}
	}

	if opts.CollapsedPath != "" {
		b.WriteString("## Flame Graph Data\n\n")
		fmt.Fprintf(b, "Collapsed stack format saved to: `%s`\n\n", opts.CollapsedPath)
		b.WriteString("To generate a flame graph:\n\n")
		b.WriteString("```bash\n")
		fmt.Fprintf(b, "flamegraph.pl %s > flamegraph.svg\n", opts.CollapsedPath)
		b.WriteString("```\n\n")
	}
}

func writeViewUpdates(b *strings.Builder, updates []xctrace.ViewUpdate) {
	if len(updates) == 0 {
		return
	}
	b.WriteString("## SwiftUI View Body Updates\n\n")
	fmt.Fprintf(b, "**Total Updates:** %d\n\n", len(updates))

	if stats := analyzer.ViewBodyStats(updates); len(stats) > 0 {
		if len(stats) > 15 {
			stats = stats[:15]
		}
		b.WriteString("### View Body Statistics (Top 15)\n\n")
		b.WriteString("| View | Count | Avg (µs) | Total (µs) |\n")
		b.WriteString("|------|-------|----------|------------|\n")
		for _, st := range stats {
			fmt.Fprintf(b, "| %s | %d | %.1f | %.1f |\n", st.ViewName, st.Count, st.AvgUS, st.TotalUS)
		}
		b.WriteString("\n")
	}

	if slow := analyzer.SlowUpdates(updates, 1000); len(slow) > 0 {
		if len(slow) > 10 {
			slow = slow[:10]
		}
		b.WriteString("### Slow Updates (>1ms)\n\n")
		b.WriteString("| Time | Duration (µs) | Description | Severity |\n")
		b.WriteString("|------|---------------|-------------|----------|\n")
		for _, u := range slow {
			fmt.Fprintf(b, "| %s | %.1f | %s | %s |\n", u.StartTime, u.DurationUS, truncate(u.Description, 50), u.Severity)
		}
		b.WriteString("\n")
	}
}

func writeHangs(b *strings.Builder, exp *Export) {
	if !exp.HangsCaptured {
		return
	}
	b.WriteString("## Potential Hangs\n\n")
	if len(exp.Hangs) == 0 {
		b.WriteString("**Total:** 0\n**Status:** ✅ OK - No hangs detected\n\n")
		return
	}
	fmt.Fprintf(b, "**Total:** %d\n**Status:** ⚠️ Warning\n\n", len(exp.Hangs))
	b.WriteString("| Time | Duration (ms) | Type | Thread |\n")
	b.WriteString("|------|---------------|------|--------|\n")
	hangs := exp.Hangs
	if len(hangs) > 10 {
		hangs = hangs[:10]
	}
	for _, h := range hangs {
		fmt.Fprintf(b, "| %s | %.1f | %s | %s |\n", h.StartTime, h.DurationMS, h.Type, truncate(h.Thread, 30))
	}
	b.WriteString("\n")
}

func writeHitches(b *strings.Builder, exp *Export) {
	if !exp.HitchesCaptured {
		return
	}
	b.WriteString("## Animation Hitches\n\n")
	if len(exp.Hitches) == 0 {
		b.WriteString("**Total:** 0\n**Status:** ✅ OK - No hitches detected\n\n")
		return
	}

	var app, system []xctrace.Hitch
	for _, h := range exp.Hitches {
		if h.System {
			system = append(system, h)
		} else {
			app = append(app, h)
		}
	}
	fmt.Fprintf(b, "**Total:** %d (App: %d, System: %d)\n", len(exp.Hitches), len(app), len(system))
	switch {
	case len(app) == 0:
		b.WriteString("**Status:** ✅ OK - No app hitches\n\n")
	case len(app) <= 5:
		b.WriteString("**Status:** ⚠️ Minor issues\n\n")
	default:
		fmt.Fprintf(b, "**Status:** ❌ %d app hitches detected\n\n", len(app))
	}

	if len(app) > 0 {
		if len(app) > 10 {
			app = app[:10]
		}
		b.WriteString("### App Hitches\n\n")
		b.WriteString("| Time | Duration (ms) | Description |\n")
		b.WriteString("|------|---------------|-------------|\n")
		for _, h := range app {
			fmt.Fprintf(b, "| %s | %.1f | %s |\n", h.StartTime, h.DurationMS, truncate(h.Description, 40))
		}
		b.WriteString("\n")
	}
}

// leakGroup is one "leaks by library/frame" aggregation row.
type leakGroup struct {
	Key   string
	Count int
	Bytes int64
}

func groupLeaks(leaks []xctrace.Leak, key func(xctrace.Leak) string) []leakGroup {
	byKey := make(map[string]*leakGroup)
	var order []string
	for _, l := range leaks {
		k := key(l)
		if k == "" {
			continue
		}
		g, ok := byKey[k]
		if !ok {
			g = &leakGroup{Key: k}
			byKey[k] = g
			order = append(order, k)
		}
		g.Count++
		g.Bytes += l.SizeBytes
	}
	out := make([]leakGroup, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Bytes > out[j].Bytes })
	return out
}

func writeLeaks(b *strings.Builder, exp *Export) {
	if !exp.LeaksCaptured {
		return
	}
	b.WriteString("## Memory Leaks\n\n")
	if len(exp.Leaks) == 0 {
		b.WriteString("**Status:** ✅ No memory leaks detected\n\n")
		return
	}

	var totalBytes int64
	for _, l := range exp.Leaks {
		totalBytes += l.SizeBytes
	}
	b.WriteString("**Status:** ❌ Leaks detected!\n")
	fmt.Fprintf(b, "**Total Leaks:** %d\n", len(exp.Leaks))
	fmt.Fprintf(b, "**Total Leaked Memory:** %.2f KB (%d bytes)\n\n", float64(totalBytes)/1024, totalBytes)

	if byLib := groupLeaks(exp.Leaks, func(l xctrace.Leak) string { return l.ResponsibleLibrary }); len(byLib) > 0 {
		if len(byLib) > 10 {
			byLib = byLib[:10]
		}
		b.WriteString("### Leaks by Library\n\n")
		b.WriteString("| Library | Count | Bytes |\n")
		b.WriteString("|---------|-------|-------|\n")
		for _, g := range byLib {
			fmt.Fprintf(b, "| %s | %d | %d |\n", g.Key, g.Count, g.Bytes)
		}
		b.WriteString("\n")
	}

	if byFrame := groupLeaks(exp.Leaks, func(l xctrace.Leak) string { return l.ResponsibleFrame }); len(byFrame) > 0 {
		if len(byFrame) > 15 {
			byFrame = byFrame[:15]
		}
		b.WriteString("### Leaks by Responsible Frame (Top 15)\n\n")
		b.WriteString("| Function | Count | Bytes |\n")
		b.WriteString("|----------|-------|-------|\n")
		for _, g := range byFrame {
			fmt.Fprintf(b, "| %s | %d | %d |\n", truncate(g.Key, 60), g.Count, g.Bytes)
		}
		b.WriteString("\n")
	}

	largest := append([]xctrace.Leak(nil), exp.Leaks...)
	sort.SliceStable(largest, func(i, j int) bool { return largest[i].SizeBytes > largest[j].SizeBytes })
	if len(largest) > 10 {
		largest = largest[:10]
	}
	b.WriteString("### Largest Leaks (Top 10)\n\n")
	b.WriteString("| Address | Size (bytes) | Responsible Frame |\n")
	b.WriteString("|---------|--------------|-------------------|\n")
	for _, l := range largest {
		fmt.Fprintf(b, "| %s | %d | %s |\n", l.Address, l.SizeBytes, truncate(l.ResponsibleFrame, 40))
	}
	b.WriteString("\n")
}

func writeAllocations(b *strings.Builder, stats []xctrace.AllocationStat) {
	if len(stats) == 0 {
		return
	}
	var persistent, total int64
	for _, s := range stats {
		persistent += s.PersistentBytes
		total += s.TotalBytes
	}

	b.WriteString("## Memory Allocations - Statistics\n\n")
	fmt.Fprintf(b, "**Persistent Memory:** %.2f MB\n", float64(persistent)/(1<<20))
	fmt.Fprintf(b, "**Total Allocated:** %.2f MB\n\n", float64(total)/(1<<20))

	top := append([]xctrace.AllocationStat(nil), stats...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].PersistentBytes > top[j].PersistentBytes })
	if len(top) > 15 {
		top = top[:15]
	}
	b.WriteString("### Top Categories by Persistent Memory\n\n")
	b.WriteString("| Category | Persistent | Count | Total |\n")
	b.WriteString("|----------|------------|-------|-------|\n")
	for _, s := range top {
		fmt.Fprintf(b, "| %s | %.2f MB | %d | %.2f MB |\n",
			s.Category, float64(s.PersistentBytes)/(1<<20), s.PersistentCount, float64(s.TotalBytes)/(1<<20))
	}
	b.WriteString("\n")
}

func writeEnergy(b *strings.Builder, samples []xctrace.EnergySample) {
	if len(samples) == 0 {
		return
	}
	n := float64(len(samples))
	var avgCPU, avgGPU, avgImpact, maxCPU, maxGPU, maxImpact float64
	for _, s := range samples {
		avgCPU += s.CPUPercent
		avgGPU += s.GPUPercent
		avgImpact += s.Impact
		maxCPU = max(maxCPU, s.CPUPercent)
		maxGPU = max(maxGPU, s.GPUPercent)
		maxImpact = max(maxImpact, s.Impact)
	}
	avgCPU /= n
	avgGPU /= n
	avgImpact /= n

	b.WriteString("## Energy Usage\n\n")
	switch {
	case avgImpact < 5:
		b.WriteString("**Status:** ✅ Low - Good energy efficiency\n\n")
	case avgImpact < 10:
		b.WriteString("**Status:** ⚠️ Moderate - Some optimization may help\n\n")
	default:
		b.WriteString("**Status:** ❌ High - Significant energy drain\n\n")
	}
	b.WriteString("### Average Usage\n\n")
	fmt.Fprintf(b, "- **Energy Impact:** %.1f (max: %.1f)\n", avgImpact, maxImpact)
	fmt.Fprintf(b, "- **CPU Usage:** %.1f%% (max: %.1f%%)\n", avgCPU, maxCPU)
	fmt.Fprintf(b, "- **GPU Usage:** %.1f%% (max: %.1f%%)\n\n", avgGPU, maxGPU)

	var high []xctrace.EnergySample
	for _, s := range samples {
		if s.Impact >= 10 {
			high = append(high, s)
		}
	}
	if len(high) > 0 {
		fmt.Fprintf(b, "### High Energy Impact Periods (%d samples)\n\n", len(high))
		if len(high) > 10 {
			high = high[:10]
		}
		b.WriteString("| Time | Energy Impact | CPU | GPU |\n")
		b.WriteString("|------|---------------|-----|-----|\n")
		for _, s := range high {
			fmt.Fprintf(b, "| %s | %.1f | %.1f%% | %.1f%% |\n", s.Time, s.Impact, s.CPUPercent, s.GPUPercent)
		}
		b.WriteString("\n")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
