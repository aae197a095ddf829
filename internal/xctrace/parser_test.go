package xctrace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoRowProfile = `
<trace-query-result>
	<node>
		<row>
			<sample-time id="1" fmt="00:00.100.000"/>
			<thread id="2" fmt="Main Thread 0x1d47"/>
			<process id="3" fmt="MyApp (1234)"/>
			<weight id="4" fmt="5 ms"/>
			<backtrace id="5">
				<frame id="10" name="funcA" addr="0x100001000">
					<binary id="20" name="binX"/>
				</frame>
				<frame id="11" name="funcB" addr="0x100002000">
					<binary ref="20"/>
				</frame>
			</backtrace>
		</row>
		<row>
			<sample-time ref="1"/>
			<thread ref="2"/>
			<process ref="3"/>
			<weight id="6" fmt="3 ms"/>
			<backtrace id="7">
				<frame id="12" name="funcA" addr="0x100001000">
					<binary id="21" name="binY"/>
				</frame>
				<frame id="13" name="funcC" addr="0x100003000">
					<binary ref="21"/>
				</frame>
			</backtrace>
		</row>
	</node>
</trace-query-result>`

func TestParseTimeProfile(t *testing.T) {
	trace, err := ParseTimeProfile(strings.NewReader(twoRowProfile))
	require.NoError(t, err)
	require.Len(t, trace.Samples, 2)

	a := trace.Samples[0]
	assert.Equal(t, "00:00.100.000", a.Time)
	assert.Equal(t, "Main Thread 0x1d47", a.Thread)
	assert.Equal(t, "MyApp (1234)", a.Process)
	assert.Equal(t, 5.0, a.WeightMS)
	require.Len(t, a.Backtrace, 2)
	assert.Equal(t, Frame{Name: "funcA", Addr: "0x100001000", Binary: "binX"}, a.Backtrace[0])
	assert.Equal(t, Frame{Name: "funcB", Addr: "0x100002000", Binary: "binX"}, a.Backtrace[1])

	// Second row reads its scalar fields through references.
	b := trace.Samples[1]
	assert.Equal(t, a.Time, b.Time)
	assert.Equal(t, a.Thread, b.Thread)
	assert.Equal(t, a.Process, b.Process)
	assert.Equal(t, 3.0, b.WeightMS)
	require.Len(t, b.Backtrace, 2)
	assert.Equal(t, "binY", b.Backtrace[0].Binary)
	assert.Equal(t, "funcC", b.Backtrace[1].Name)

	assert.Equal(t, 8.0, trace.TotalWeight())
}

func TestParseTimeProfileFrameRef(t *testing.T) {
	doc := `
	<result>
		<row>
			<weight id="1" fmt="2 ms"/>
			<backtrace>
				<frame id="10" name="shared" addr="0xdead">
					<binary id="20" name="libShared"/>
				</frame>
			</backtrace>
		</row>
		<row>
			<weight ref="1"/>
			<backtrace>
				<frame ref="10"/>
			</backtrace>
		</row>
	</result>`
	trace, err := ParseTimeProfile(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, trace.Samples, 2)

	// A frame reference yields identical resolved attributes.
	assert.Equal(t, trace.Samples[0].Backtrace[0], trace.Samples[1].Backtrace[0])
}

func TestParseTimeProfileMissingFields(t *testing.T) {
	doc := `
	<result>
		<row>
			<backtrace>
				<frame name="lonely" addr="0x1"/>
			</backtrace>
		</row>
	</result>`
	trace, err := ParseTimeProfile(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, trace.Samples, 1)

	s := trace.Samples[0]
	assert.Empty(t, s.Time)
	assert.Empty(t, s.Thread)
	assert.Empty(t, s.Process)
	assert.Equal(t, 1.0, s.WeightMS)
	assert.Empty(t, s.Backtrace[0].Binary)
}

func TestParseTimeProfileDropsRows(t *testing.T) {
	doc := `
	<result>
		<row>
			<weight fmt="7 ms"/>
		</row>
		<row>
			<backtrace>
				<frame addr="0x1"/>
				<frame addr="0x2"/>
			</backtrace>
		</row>
		<row>
			<backtrace>
				<frame name="kept" addr="0x3"/>
				<frame addr="0x4"/>
			</backtrace>
		</row>
	</result>`
	trace, err := ParseTimeProfile(strings.NewReader(doc))
	require.NoError(t, err)

	// Row without backtrace and row whose frames are all unnamed both drop;
	// the unnamed frame in the surviving row drops silently.
	require.Len(t, trace.Samples, 1)
	require.Len(t, trace.Samples[0].Backtrace, 1)
	assert.Equal(t, "kept", trace.Samples[0].Backtrace[0].Name)
}

func TestParseTimeProfileKeepsRawAddressFrames(t *testing.T) {
	doc := `
	<result>
		<row>
			<backtrace>
				<frame name="0x10f2c4a00" addr="0x10f2c4a00"/>
				<frame name="main" addr="0x10f2c0000"/>
			</backtrace>
		</row>
	</result>`
	trace, err := ParseTimeProfile(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, trace.Samples, 1)
	require.Len(t, trace.Samples[0].Backtrace, 2)
	assert.True(t, trace.Samples[0].Backtrace[0].RawAddress())
	assert.False(t, trace.Samples[0].Backtrace[1].RawAddress())
}

func TestParseTimeProfileMalformedDocument(t *testing.T) {
	_, err := ParseTimeProfile(strings.NewReader("not xml at all"))
	assert.Error(t, err)
}

func TestParseWeightMS(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12.5 ms", 12.5},
		{"1,234.5 ms", 1234.5},
		{"1 ms", 1.0},
		{"5ms", 5.0},
		{"garbage", 1.0},
		{"", 1.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseWeightMS(tt.in), "input %q", tt.in)
	}
}

func TestMalformedWeightKeepsSample(t *testing.T) {
	doc := `
	<result>
		<row>
			<weight fmt="not a number"/>
			<backtrace>
				<frame name="work" addr="0x1"/>
			</backtrace>
		</row>
	</result>`
	trace, err := ParseTimeProfile(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, trace.Samples, 1)
	assert.Equal(t, 1.0, trace.Samples[0].WeightMS)
}
