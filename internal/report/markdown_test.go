package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xctrace-mcp/internal/xctrace"
)

func testExport() *Export {
	return &Export{
		Schemas: []string{"time-profile", "potential-hangs"},
		Trace: &xctrace.Trace{Samples: []xctrace.Sample{
			{WeightMS: 5, Backtrace: []xctrace.Frame{
				{Name: "funcA", Binary: "MyApp"},
				{Name: "main", Binary: "MyApp"},
			}},
			{WeightMS: 3, Backtrace: []xctrace.Frame{
				{Name: "CFRunLoopRun", Binary: "CoreFoundation"},
				{Name: "main", Binary: "MyApp"},
			}},
		}},
		LifeCycle: []xctrace.LifeCyclePhase{
			{Phase: "Initializing", DurationMS: 150, Narrative: "Process creation"},
			{Phase: "Launching", DurationMS: 200},
		},
		LibraryLoads: []xctrace.LibraryLoad{
			{Name: "libswiftCore.dylib", DurationMS: 2.4},
			{Name: "libtiny.dylib", DurationMS: 0.2},
		},
		Hangs:           []xctrace.Hang{{StartTime: "00:05.000", DurationMS: 350, Type: "Microhang", Thread: "Main Thread"}},
		HangsCaptured:   true,
		HitchesCaptured: true,
		LeaksCaptured:   true,
	}
}

func TestGenerateSections(t *testing.T) {
	md := Generate(testExport(), Options{AppBinary: "MyApp"})

	assert.Contains(t, md, "# Instruments Profiling Report")
	assert.Contains(t, md, "## Available Schemas")
	assert.Contains(t, md, "## App Launch - Life Cycle Phases")
	assert.Contains(t, md, "**Total Launch Time:** 350.00 ms")
	assert.Contains(t, md, "✅ Excellent")
	assert.Contains(t, md, "## App Launch - Library Loading")
	assert.Contains(t, md, "libswiftCore.dylib")
	// Fast loads stay out of the slow table.
	assert.NotContains(t, md, "libtiny.dylib")
	assert.Contains(t, md, "- **Total Samples:** 2")
	assert.Contains(t, md, "- **Total Time:** 8.00 ms")
	assert.Contains(t, md, "## Hot Frames - Total Time (Top 25)")
	assert.Contains(t, md, "## Hot Frames - Self Time (Top 15)")
	assert.Contains(t, md, "## App Code (MyApp)")
	assert.Contains(t, md, "## Potential Hangs")
	assert.Contains(t, md, "Microhang")
	// Hitches captured with zero records reads as a clean pass.
	assert.Contains(t, md, "✅ OK - No hitches detected")
	assert.Contains(t, md, "✅ No memory leaks detected")
}

func TestGenerateOmitsAbsentCategories(t *testing.T) {
	md := Generate(&Export{}, Options{})

	assert.Contains(t, md, "# Instruments Profiling Report")
	assert.NotContains(t, md, "## Summary")
	assert.NotContains(t, md, "## Potential Hangs")
	assert.NotContains(t, md, "## Memory Leaks")
	assert.NotContains(t, md, "## Energy Usage")
}

func TestGenerateSlowLaunchStatus(t *testing.T) {
	exp := &Export{LifeCycle: []xctrace.LifeCyclePhase{{Phase: "Launching", DurationMS: 2500}}}
	md := Generate(exp, Options{})
	assert.Contains(t, md, "❌ Slow")
}

func TestGenerateLeakTables(t *testing.T) {
	exp := &Export{
		LeaksCaptured: true,
		Leaks: []xctrace.Leak{
			{Address: "0x1", SizeBytes: 1024, ResponsibleFrame: "make_buffer", ResponsibleLibrary: "MyApp"},
			{Address: "0x2", SizeBytes: 2048, ResponsibleFrame: "make_buffer", ResponsibleLibrary: "MyApp"},
		},
	}
	md := Generate(exp, Options{})

	assert.Contains(t, md, "**Total Leaks:** 2")
	assert.Contains(t, md, "**Total Leaked Memory:** 3.00 KB (3072 bytes)")
	assert.Contains(t, md, "### Leaks by Library")
	assert.Contains(t, md, "| MyApp | 2 | 3072 |")
	assert.Contains(t, md, "### Largest Leaks (Top 10)")
}

func TestGenerateEnergyStatus(t *testing.T) {
	exp := &Export{Energy: []xctrace.EnergySample{
		{Time: "00:01.000", CPUPercent: 80, GPUPercent: 20, Impact: 15},
	}}
	md := Generate(exp, Options{})

	assert.Contains(t, md, "❌ High - Significant energy drain")
	assert.Contains(t, md, "### High Energy Impact Periods (1 samples)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "longer str...", truncate("longer string here", 10))
}
