package analyzer

import (
	"fmt"
	"strings"

	"xctrace-mcp/internal/xctrace"
)

// CollapsedStacks renders the trace in the folded-stack format flame-graph
// tools consume: one line per sample, root-to-leaf frame names joined by
// semicolons, then the sample weight truncated to an integer.
//
// Raw-address frames are dropped. filterBinary, when non-empty, is a
// case-insensitive substring match; frames with no recorded binary pass.
// Samples with no surviving frames are omitted entirely.
func CollapsedStacks(trace *xctrace.Trace, filterBinary string) string {
	needle := strings.ToLower(filterBinary)
	var lines []string
	for _, sample := range trace.Samples {
		var stack []string
		for i := len(sample.Backtrace) - 1; i >= 0; i-- {
			frame := sample.Backtrace[i]
			if frame.RawAddress() {
				continue
			}
			if needle != "" && frame.Binary != "" && !strings.Contains(strings.ToLower(frame.Binary), needle) {
				continue
			}
			stack = append(stack, sanitizeFrameName(frame.Name))
		}
		if len(stack) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %d", strings.Join(stack, ";"), int(sample.WeightMS)))
	}
	return strings.Join(lines, "\n")
}

// sanitizeFrameName keeps frame names safe for the line grammar: the stack
// separator becomes a colon, spaces become underscores.
func sanitizeFrameName(name string) string {
	name = strings.ReplaceAll(name, ";", ":")
	return strings.ReplaceAll(name, " ", "_")
}
