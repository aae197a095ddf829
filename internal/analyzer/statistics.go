package analyzer

import (
	"math"

	"xctrace-mcp/internal/xctrace"
)

// TraceStatistics summarizes one reconstructed trace.
type TraceStatistics struct {
	SampleCount       int
	TotalWeightMS     float64
	AverageStackDepth float64
	MaxStackDepth     int
	MinStackDepth     int
	UniqueFrames      int
	UniqueBinaries    int
}

// ComputeStatistics calculates summary statistics for the trace.
func ComputeStatistics(trace *xctrace.Trace) TraceStatistics {
	stats := TraceStatistics{SampleCount: len(trace.Samples)}
	if stats.SampleCount == 0 {
		return stats
	}

	totalDepth := 0
	stats.MinStackDepth = math.MaxInt32

	frameSet := make(map[string]bool)
	binarySet := make(map[string]bool)

	for _, sample := range trace.Samples {
		stats.TotalWeightMS += sample.WeightMS

		depth := len(sample.Backtrace)
		totalDepth += depth
		if depth > stats.MaxStackDepth {
			stats.MaxStackDepth = depth
		}
		if depth < stats.MinStackDepth {
			stats.MinStackDepth = depth
		}

		for _, frame := range sample.Backtrace {
			if !frame.RawAddress() {
				frameSet[frame.Name] = true
			}
			if frame.Binary != "" {
				binarySet[frame.Binary] = true
			}
		}
	}

	stats.AverageStackDepth = float64(totalDepth) / float64(stats.SampleCount)
	stats.UniqueFrames = len(frameSet)
	stats.UniqueBinaries = len(binarySet)
	return stats
}
