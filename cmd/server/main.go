package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"xctrace-mcp/internal/analyzer"
	"xctrace-mcp/internal/report"
)

// Export cache, keyed by directory
var exportCache = make(map[string]*report.Export)

func cachedExport(dir string) (*report.Export, bool) {
	exp, ok := exportCache[dir]
	return exp, ok
}

func requireTrace(dir string) (*report.Export, *mcp.CallToolResult) {
	exp, ok := cachedExport(dir)
	if !ok {
		return nil, mcp.NewToolResultError("Export not loaded. Use load_trace tool first")
	}
	if exp.Trace == nil || len(exp.Trace.Samples) == 0 {
		return nil, mcp.NewToolResultError("No time profile was captured in this export")
	}
	return exp, nil
}

func formatFrameStats(title string, stats []analyzer.FrameStat) string {
	var sb strings.Builder
	sb.WriteString(title + "\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")

	if len(stats) == 0 {
		sb.WriteString("No frames found.\n")
		return sb.String()
	}
	for i, st := range stats {
		sb.WriteString(fmt.Sprintf("#%d: %s\n", i+1, st.Name))
		sb.WriteString(fmt.Sprintf("    Time: %.2f ms\n", st.WeightMS))
		sb.WriteString(fmt.Sprintf("    Samples: %d\n", st.Count))
		if st.Binary != "" {
			sb.WriteString(fmt.Sprintf("    Binary: %s\n", st.Binary))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func main() {
	// Create MCP server
	s := server.NewMCPServer(
		"xctrace-profiler",
		"1.0.0",
		server.WithLogging(),
	)

	// Tool 1: Load Trace
	loadTraceTool := mcp.NewTool("load_trace",
		mcp.WithDescription("Load an xctrace XML export directory for analysis"),
		mcp.WithString("export_dir",
			mcp.Required(),
			mcp.Description("Absolute path to the directory containing the exported XML files"),
		),
	)

	s.AddTool(loadTraceTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir, err := request.RequireString("export_dir")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		exp, err := report.LoadExport(dir, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load export: %v", err)), nil
		}
		exportCache[dir] = exp

		samples := 0
		if exp.Trace != nil {
			samples = len(exp.Trace.Samples)
		}
		result := fmt.Sprintf(`Export loaded successfully!

Directory: %s
Schemas: %d
Time-profile samples: %d
Life-cycle phases: %d
Library loads: %d
Hangs: %d
Hitches: %d
Leaks: %d
View updates: %d

Use other tools to analyze this export.
`,
			dir,
			len(exp.Schemas),
			samples,
			len(exp.LifeCycle),
			len(exp.LibraryLoads),
			len(exp.Hangs),
			len(exp.Hitches),
			len(exp.Leaks),
			len(exp.ViewUpdates),
		)

		return mcp.NewToolResultText(result), nil
	})

	// Tool 2: Hot Frames (total time)
	hotFramesTool := mcp.NewTool("hot_frames",
		mcp.WithDescription("Rank frames by total (inclusive) time. This is the most important tool for identifying performance bottlenecks."),
		mcp.WithString("export_dir",
			mcp.Required(),
			mcp.Description("Path to the loaded export directory"),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of top frames to return (default: 25)"),
		),
		mcp.WithString("filter_binary",
			mcp.Description("Only count frames owned by this exact binary"),
		),
		mcp.WithBoolean("exclude_system",
			mcp.Description("Skip frames from system libraries (dyld, libsystem, UIKit, ...)"),
		),
	)

	s.AddTool(hotFramesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir, err := request.RequireString("export_dir")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		exp, errResult := requireTrace(dir)
		if errResult != nil {
			return errResult, nil
		}

		topN := int(request.GetFloat("top_n", 25))
		stats := analyzer.HotFrames(exp.Trace, topN,
			request.GetString("filter_binary", ""),
			request.GetBool("exclude_system", false))

		return mcp.NewToolResultText(formatFrameStats("🔥 HOT FRAMES - TOTAL TIME", stats)), nil
	})

	// Tool 3: Self Time Frames (leaf-only)
	selfTimeTool := mcp.NewTool("self_time_frames",
		mcp.WithDescription("Rank frames by self (leaf-only) time - where the CPU actually spent its cycles. These are often the real operations to optimize."),
		mcp.WithString("export_dir",
			mcp.Required(),
			mcp.Description("Path to the loaded export directory"),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of top frames to return (default: 15)"),
		),
		mcp.WithString("filter_binary",
			mcp.Description("Only count frames owned by this exact binary"),
		),
	)

	s.AddTool(selfTimeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir, err := request.RequireString("export_dir")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		exp, errResult := requireTrace(dir)
		if errResult != nil {
			return errResult, nil
		}

		topN := int(request.GetFloat("top_n", 15))
		stats := analyzer.SelfTimeFrames(exp.Trace, topN, request.GetString("filter_binary", ""))

		return mcp.NewToolResultText(formatFrameStats("🎯 HOT FRAMES - SELF TIME", stats)), nil
	})

	// Tool 4: App Frames
	appFramesTool := mcp.NewTool("app_frames",
		mcp.WithDescription("Rank frames belonging to the application binary (case-insensitive substring match on the owning binary)."),
		mcp.WithString("export_dir",
			mcp.Required(),
			mcp.Description("Path to the loaded export directory"),
		),
		mcp.WithString("app_binary",
			mcp.Required(),
			mcp.Description("Application binary name, e.g. 'MyApp'"),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of top frames to return (default: 20)"),
		),
	)

	s.AddTool(appFramesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir, err := request.RequireString("export_dir")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		appBinary, err := request.RequireString("app_binary")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		exp, errResult := requireTrace(dir)
		if errResult != nil {
			return errResult, nil
		}

		topN := int(request.GetFloat("top_n", 20))
		stats := analyzer.AppFrames(exp.Trace, appBinary, topN)

		return mcp.NewToolResultText(formatFrameStats(fmt.Sprintf("📱 APP CODE FRAMES (%s)", appBinary), stats)), nil
	})

	// Tool 5: Framework Frames
	frameworkTool := mcp.NewTool("framework_frames",
		mcp.WithDescription("Rank SwiftUI / AttributeGraph framework frames out of the inclusive top 100."),
		mcp.WithString("export_dir",
			mcp.Required(),
			mcp.Description("Path to the loaded export directory"),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of frames to return (default: 15)"),
		),
	)

	s.AddTool(frameworkTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir, err := request.RequireString("export_dir")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		exp, errResult := requireTrace(dir)
		if errResult != nil {
			return errResult, nil
		}

		topN := int(request.GetFloat("top_n", 15))
		stats := analyzer.FrameworkFrames(exp.Trace, topN)

		return mcp.NewToolResultText(formatFrameStats("🖼  FRAMEWORK FRAMES", stats)), nil
	})

	// Tool 6: Collapsed Stacks
	collapsedTool := mcp.NewTool("collapsed_stacks",
		mcp.WithDescription("Emit the trace as collapsed stacks ('frame1;frame2 weight' lines) for flame-graph renderers."),
		mcp.WithString("export_dir",
			mcp.Required(),
			mcp.Description("Path to the loaded export directory"),
		),
		mcp.WithString("filter_binary",
			mcp.Description("Keep only frames whose binary contains this substring (case-insensitive)"),
		),
	)

	s.AddTool(collapsedTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir, err := request.RequireString("export_dir")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		exp, errResult := requireTrace(dir)
		if errResult != nil {
			return errResult, nil
		}

		collapsed := analyzer.CollapsedStacks(exp.Trace, request.GetString("filter_binary", ""))
		if collapsed == "" {
			return mcp.NewToolResultText("No stacks survived the filter."), nil
		}
		return mcp.NewToolResultText(collapsed), nil
	})

	// Tool 7: Trace Statistics
	statisticsTool := mcp.NewTool("trace_statistics",
		mcp.WithDescription("Get summary statistics about the time profile: total time, stack depths, unique frames and binaries."),
		mcp.WithString("export_dir",
			mcp.Required(),
			mcp.Description("Path to the loaded export directory"),
		),
	)

	s.AddTool(statisticsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir, err := request.RequireString("export_dir")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		exp, errResult := requireTrace(dir)
		if errResult != nil {
			return errResult, nil
		}

		stats := analyzer.ComputeStatistics(exp.Trace)

		var sb strings.Builder
		sb.WriteString("📊 TRACE STATISTICS\n")
		sb.WriteString("═══════════════════════════════════════════════════\n\n")
		sb.WriteString(fmt.Sprintf("Total Samples: %d\n", stats.SampleCount))
		sb.WriteString(fmt.Sprintf("Total Time: %.2f ms\n\n", stats.TotalWeightMS))
		sb.WriteString("Call Stack Depth:\n")
		sb.WriteString(fmt.Sprintf("  Average: %.2f frames\n", stats.AverageStackDepth))
		sb.WriteString(fmt.Sprintf("  Maximum: %d frames\n", stats.MaxStackDepth))
		sb.WriteString(fmt.Sprintf("  Minimum: %d frames\n\n", stats.MinStackDepth))
		sb.WriteString("Unique Elements:\n")
		sb.WriteString(fmt.Sprintf("  Frames: %d\n", stats.UniqueFrames))
		sb.WriteString(fmt.Sprintf("  Binaries: %d\n", stats.UniqueBinaries))

		return mcp.NewToolResultText(sb.String()), nil
	})

	// Tool 8: Generate Report
	reportTool := mcp.NewTool("generate_report",
		mcp.WithDescription("Generate the full Markdown profiling report for a loaded export."),
		mcp.WithString("export_dir",
			mcp.Required(),
			mcp.Description("Path to the loaded export directory"),
		),
		mcp.WithString("app_binary",
			mcp.Description("App binary name to add an app-scoped section"),
		),
	)

	s.AddTool(reportTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir, err := request.RequireString("export_dir")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		exp, ok := cachedExport(dir)
		if !ok {
			return mcp.NewToolResultError("Export not loaded. Use load_trace tool first"), nil
		}

		md := report.Generate(exp, report.Options{
			AppBinary: request.GetString("app_binary", ""),
		})
		return mcp.NewToolResultText(md), nil
	})

	// Start the server
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
