package xctrace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLifeCycle(t *testing.T) {
	doc := `
	<result>
		<row>
			<start-time id="1" fmt="00:00.000"/>
			<duration>250000000</duration>
			<app-period fmt="Initializing"/>
			<narrative-text fmt="Process creation through dyld start"/>
			<process id="2" fmt="MyApp (1234)"/>
		</row>
		<row>
			<start-time fmt="00:00.250"/>
			<duration fmt="120.5 ms"/>
			<app-period>Launching</app-period>
			<process ref="2"/>
		</row>
		<row>
			<duration>1000000</duration>
		</row>
	</result>`
	phases, err := ParseLifeCycle(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, phases, 2)

	assert.Equal(t, "Initializing", phases[0].Phase)
	assert.Equal(t, 250.0, phases[0].DurationMS)
	assert.Equal(t, "Process creation through dyld start", phases[0].Narrative)
	assert.Equal(t, "MyApp (1234)", phases[0].Process)

	// Nanosecond text absent, formatted fallback used; phase from chardata.
	assert.Equal(t, "Launching", phases[1].Phase)
	assert.Equal(t, 120.5, phases[1].DurationMS)
	assert.Equal(t, "MyApp (1234)", phases[1].Process)
}

func TestParseLibraryLoads(t *testing.T) {
	doc := `
	<result>
		<row>
			<start-time fmt="00:00.010"/>
			<duration>2500000</duration>
			<file-path fmt="/usr/lib/swift/libswiftCore.dylib"/>
		</row>
		<row>
			<duration>500000</duration>
			<string fmt="/System/Library/Frameworks/UIKit.framework/UIKit"/>
		</row>
		<row>
			<duration>100000</duration>
		</row>
	</result>`
	loads, err := ParseLibraryLoads(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, loads, 2)

	assert.Equal(t, "libswiftCore.dylib", loads[0].Name)
	assert.Equal(t, "/usr/lib/swift/libswiftCore.dylib", loads[0].Path)
	assert.Equal(t, 2.5, loads[0].DurationMS)

	assert.Equal(t, "UIKit", loads[1].Name)
}

func TestParseHangs(t *testing.T) {
	doc := `
	<result>
		<row>
			<start-time fmt="00:05.000"/>
			<duration>350000000</duration>
			<hang-type fmt="Microhang"/>
			<thread fmt="Main Thread"/>
			<process fmt="MyApp (1234)"/>
		</row>
	</result>`
	hangs, err := ParseHangs(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, hangs, 1)

	assert.Equal(t, 350.0, hangs[0].DurationMS)
	assert.Equal(t, "Microhang", hangs[0].Type)
	assert.Equal(t, "Main Thread", hangs[0].Thread)
}

func TestParseHitches(t *testing.T) {
	doc := `
	<result>
		<row>
			<start-time fmt="00:02.000"/>
			<duration>33000000</duration>
			<process fmt="MyApp (1234)"/>
			<boolean fmt="false"/>
			<string fmt="Some other text"/>
			<string fmt="Potential Issue: frame delivered late"/>
		</row>
		<row>
			<duration>16000000</duration>
			<boolean fmt="true"/>
		</row>
	</result>`
	hitches, err := ParseHitches(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, hitches, 2)

	assert.False(t, hitches[0].System)
	assert.Equal(t, 33.0, hitches[0].DurationMS)
	assert.Equal(t, "Potential Issue: frame delivered late", hitches[0].Description)

	assert.True(t, hitches[1].System)
	assert.Empty(t, hitches[1].Description)
}

func TestParseLeaks(t *testing.T) {
	doc := `
	<result>
		<row>
			<address fmt="0x600003d041e0"/>
			<size>1024</size>
			<symbol name="make_buffer"/>
			<binary name="MyApp"/>
			<backtrace>
				<frame name="malloc" addr="0x1"/>
				<frame name="make_buffer" addr="0x2"/>
				<frame addr="0x3"/>
			</backtrace>
		</row>
		<row>
			<size>64</size>
		</row>
	</result>`
	leaks, err := ParseLeaks(strings.NewReader(doc))
	require.NoError(t, err)

	// Rows without an address are dropped.
	require.Len(t, leaks, 1)
	l := leaks[0]
	assert.Equal(t, "0x600003d041e0", l.Address)
	assert.Equal(t, int64(1024), l.SizeBytes)
	assert.Equal(t, "make_buffer", l.ResponsibleFrame)
	assert.Equal(t, "MyApp", l.ResponsibleLibrary)
	assert.Equal(t, "Leak", l.Type)
	require.Len(t, l.Backtrace, 2)
	assert.Equal(t, "malloc", l.Backtrace[0].Name)
}

func TestLeakSizeFromFormatted(t *testing.T) {
	doc := `
	<result>
		<row>
			<address fmt="0x1"/>
			<size fmt="2,048 bytes"/>
		</row>
	</result>`
	leaks, err := ParseLeaks(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, leaks, 1)
	assert.Equal(t, int64(2048), leaks[0].SizeBytes)
}

func TestParseAllocationStats(t *testing.T) {
	doc := `
	<result>
		<row>
			<category fmt="Malloc 48 Bytes"/>
			<persistent-bytes>4800</persistent-bytes>
			<persistent-count>100</persistent-count>
			<total-bytes fmt="1.5 MB"/>
			<total-count>32768</total-count>
		</row>
		<row>
			<persistent-bytes>16</persistent-bytes>
		</row>
	</result>`
	stats, err := ParseAllocationStats(strings.NewReader(doc))
	require.NoError(t, err)

	// Rows without a category are dropped.
	require.Len(t, stats, 1)
	s := stats[0]
	assert.Equal(t, "Malloc 48 Bytes", s.Category)
	assert.Equal(t, int64(4800), s.PersistentBytes)
	assert.Equal(t, int64(100), s.PersistentCount)
	assert.Equal(t, int64(1.5*(1<<20)), s.TotalBytes)
	assert.Equal(t, int64(32768), s.TotalCount)
}

func TestParseAllocationStatsMalformedDocument(t *testing.T) {
	_, err := ParseAllocationStats(strings.NewReader("<result><row>"))
	assert.Error(t, err)
}

func TestParseEnergy(t *testing.T) {
	doc := `
	<result>
		<row>
			<sample-time fmt="00:01.000"/>
			<cpu-usage fmt="42.5 %"/>
			<gpu-usage fmt="10 %"/>
			<energy-impact fmt="12.0"/>
			<process fmt="MyApp (1234)"/>
		</row>
	</result>`
	samples, err := ParseEnergy(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, samples, 1)

	e := samples[0]
	assert.Equal(t, 42.5, e.CPUPercent)
	assert.Equal(t, 10.0, e.GPUPercent)
	assert.Equal(t, 12.0, e.Impact)
}

func TestParseViewUpdates(t *testing.T) {
	doc := `
	<result>
		<row>
			<start-time fmt="00:00.500"/>
			<duration>1500000</duration>
			<string id="s1" fmt="ViewBodyAccessor&lt;ContentView&gt; evaluated"/>
			<string fmt="Update"/>
			<event-concept fmt="High"/>
		</row>
		<row>
			<duration>1000</duration>
		</row>
	</result>`
	updates, err := ParseViewUpdates(strings.NewReader(doc))
	require.NoError(t, err)

	// Rows without a description are dropped.
	require.Len(t, updates, 1)
	u := updates[0]
	assert.Equal(t, 1500.0, u.DurationUS)
	assert.Equal(t, "ContentView", u.ViewName)
	assert.Equal(t, "Update", u.Category)
	assert.Equal(t, "High", u.Severity)
}

func TestReadTOC(t *testing.T) {
	doc := `
	<trace-toc>
		<run number="1">
			<data>
				<table schema="time-profile"/>
				<table schema="dyld-library-load"/>
				<table/>
			</data>
		</run>
	</trace-toc>`
	schemas, err := ReadTOC(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"time-profile", "dyld-library-load"}, schemas)
}
