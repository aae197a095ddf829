package xctrace

import (
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// The secondary export categories are all shaped the same way: a flat list of
// rows whose fields are located by element name and read through the
// reference index. Each category declares its fields as data and shares one
// extraction routine, instead of carrying a bespoke parser per schema.

// field binds an element name within a row to a setter on the record.
// The node passed to set is already resolved through the index.
type field[T any] struct {
	elem string
	set  func(*T, *Node)
}

// rowSchema describes one record category. finish runs after field
// extraction for anything the flat table cannot express; returning false
// drops the row.
type rowSchema[T any] struct {
	fields []field[T]
	finish func(*T, *Node, *RefIndex) bool
}

func extractRows[T any](r io.Reader, category string, schema rowSchema[T]) ([]T, error) {
	root, err := ReadDocument(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", category, err)
	}
	idx := BuildRefIndex(root)

	var records []T
	for _, row := range root.FindAll("row") {
		var rec T
		for _, f := range schema.fields {
			if n := row.Find(f.elem); n != nil {
				f.set(&rec, idx.Resolve(n))
			}
		}
		if schema.finish != nil && !schema.finish(&rec, row, idx) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// display returns a node's human-readable value: the fmt attribute when
// present, otherwise its character data.
func display(n *Node) string {
	if n.Fmt != "" {
		return n.Fmt
	}
	return strings.TrimSpace(n.Text)
}

// durationMS converts a duration node. The export usually stores a
// nanosecond integer as text; some schemas only carry a formatted string
// with a unit suffix. Unparseable values yield 0.
func durationMS(n *Node) float64 {
	if ns, err := strconv.ParseInt(strings.TrimSpace(n.Text), 10, 64); err == nil {
		return float64(ns) / 1e6
	}
	f := n.Fmt
	switch {
	case strings.Contains(f, "ms"):
		return parseUnitNumber(f, "ms")
	case strings.Contains(f, "µs"):
		return parseUnitNumber(f, "µs") / 1000
	case strings.Contains(f, "s"):
		return parseUnitNumber(f, "s") * 1000
	}
	return 0
}

func parseUnitNumber(s, unit string) float64 {
	s = strings.ReplaceAll(s, unit, "")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// byteCount converts a size node: integer text, or a formatted value like
// "12.5 MB".
func byteCount(n *Node) int64 {
	if v, err := strconv.ParseInt(strings.TrimSpace(n.Text), 10, 64); err == nil {
		return v
	}
	parts := strings.Fields(strings.ReplaceAll(strings.ToLower(n.Fmt), ",", ""))
	if len(parts) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	mult := float64(1)
	if len(parts) >= 2 {
		switch parts[1] {
		case "kb":
			mult = 1 << 10
		case "mb":
			mult = 1 << 20
		case "gb":
			mult = 1 << 30
		}
	}
	return int64(v * mult)
}

func intText(n *Node) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(n.Text), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func percent(n *Node) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(display(n), "%", "")), 64)
	if err != nil {
		return 0
	}
	return v
}

func floatValue(n *Node) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(display(n)), 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseLifeCycle reads the app-launch life-cycle-period export.
func ParseLifeCycle(r io.Reader) ([]LifeCyclePhase, error) {
	return extractRows(r, "life-cycle periods", rowSchema[LifeCyclePhase]{
		fields: []field[LifeCyclePhase]{
			{"start-time", func(p *LifeCyclePhase, n *Node) { p.StartTime = n.Fmt }},
			{"duration", func(p *LifeCyclePhase, n *Node) { p.DurationMS = durationMS(n) }},
			{"app-period", func(p *LifeCyclePhase, n *Node) { p.Phase = display(n) }},
			{"narrative-text", func(p *LifeCyclePhase, n *Node) { p.Narrative = display(n) }},
			{"process", func(p *LifeCyclePhase, n *Node) { p.Process = n.Fmt }},
		},
		finish: func(p *LifeCyclePhase, _ *Node, _ *RefIndex) bool {
			return p.Phase != ""
		},
	})
}

// ParseLibraryLoads reads the dyld-library-load export.
func ParseLibraryLoads(r io.Reader) ([]LibraryLoad, error) {
	return extractRows(r, "library loads", rowSchema[LibraryLoad]{
		fields: []field[LibraryLoad]{
			{"start-time", func(l *LibraryLoad, n *Node) { l.StartTime = n.Fmt }},
			{"duration", func(l *LibraryLoad, n *Node) { l.DurationMS = durationMS(n) }},
			{"file-path", func(l *LibraryLoad, n *Node) { l.Path = display(n) }},
		},
		finish: func(l *LibraryLoad, row *Node, idx *RefIndex) bool {
			if l.Path == "" {
				// Older exports carry the path in a bare string element.
				for _, s := range row.FindAll("string") {
					f := display(idx.Resolve(s))
					if strings.Contains(f, "/") || strings.Contains(f, ".dylib") || strings.Contains(f, ".framework") {
						l.Path = f
						break
					}
				}
			}
			if l.Path == "" {
				return false
			}
			l.Name = path.Base(l.Path)
			return l.Name != ""
		},
	})
}

// ParseHangs reads the potential-hangs export.
func ParseHangs(r io.Reader) ([]Hang, error) {
	return extractRows(r, "hangs", rowSchema[Hang]{
		fields: []field[Hang]{
			{"start-time", func(h *Hang, n *Node) { h.StartTime = n.Fmt }},
			{"duration", func(h *Hang, n *Node) { h.DurationMS = durationMS(n) }},
			{"hang-type", func(h *Hang, n *Node) { h.Type = n.Fmt }},
			{"thread", func(h *Hang, n *Node) { h.Thread = n.Fmt }},
			{"process", func(h *Hang, n *Node) { h.Process = n.Fmt }},
		},
	})
}

// ParseHitches reads the hitches export.
func ParseHitches(r io.Reader) ([]Hitch, error) {
	return extractRows(r, "hitches", rowSchema[Hitch]{
		fields: []field[Hitch]{
			{"start-time", func(h *Hitch, n *Node) { h.StartTime = n.Fmt }},
			{"duration", func(h *Hitch, n *Node) { h.DurationMS = durationMS(n) }},
			{"process", func(h *Hitch, n *Node) { h.Process = n.Fmt }},
			{"boolean", func(h *Hitch, n *Node) { h.System = strings.EqualFold(n.Fmt, "true") }},
		},
		finish: func(h *Hitch, row *Node, idx *RefIndex) bool {
			for _, s := range row.FindAll("string") {
				if f := idx.Resolve(s).Fmt; strings.Contains(f, "Potential Issue") {
					h.Description = f
					break
				}
			}
			return true
		},
	})
}

// ParseLeaks reads the leaks export.
func ParseLeaks(r io.Reader) ([]Leak, error) {
	return extractRows(r, "leaks", rowSchema[Leak]{
		fields: []field[Leak]{
			{"address", func(l *Leak, n *Node) { l.Address = display(n) }},
			{"size", func(l *Leak, n *Node) { l.SizeBytes = leakSize(n) }},
			{"symbol", func(l *Leak, n *Node) { l.ResponsibleFrame = nameOrFmt(n) }},
			{"binary", func(l *Leak, n *Node) { l.ResponsibleLibrary = nameOrFmt(n) }},
			{"leak-type", func(l *Leak, n *Node) { l.Type = display(n) }},
		},
		finish: func(l *Leak, row *Node, idx *RefIndex) bool {
			if l.Address == "" {
				return false
			}
			if l.Type == "" {
				l.Type = "Leak"
			}
			if bt := row.Find("backtrace"); bt != nil {
				for _, fr := range idx.Resolve(bt).FindAll("frame") {
					fr = idx.Resolve(fr)
					if fr.Name != "" {
						l.Backtrace = append(l.Backtrace, Frame{Name: fr.Name, Addr: fr.Addr})
					}
				}
			}
			return true
		},
	})
}

func nameOrFmt(n *Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.Fmt
}

func leakSize(n *Node) int64 {
	if v, err := strconv.ParseInt(strings.TrimSpace(n.Text), 10, 64); err == nil {
		return v
	}
	f := strings.ToLower(n.Fmt)
	if !strings.Contains(f, "bytes") {
		return 0
	}
	parts := strings.Fields(strings.ReplaceAll(f, ",", ""))
	if len(parts) == 0 {
		return 0
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseAllocationStats reads the allocations statistics export.
func ParseAllocationStats(r io.Reader) ([]AllocationStat, error) {
	return extractRows(r, "allocation statistics", rowSchema[AllocationStat]{
		fields: []field[AllocationStat]{
			{"category", func(a *AllocationStat, n *Node) { a.Category = display(n) }},
			{"persistent-bytes", func(a *AllocationStat, n *Node) { a.PersistentBytes = byteCount(n) }},
			{"persistent-count", func(a *AllocationStat, n *Node) { a.PersistentCount = intText(n) }},
			{"total-bytes", func(a *AllocationStat, n *Node) { a.TotalBytes = byteCount(n) }},
			{"total-count", func(a *AllocationStat, n *Node) { a.TotalCount = intText(n) }},
		},
		finish: func(a *AllocationStat, _ *Node, _ *RefIndex) bool {
			return a.Category != ""
		},
	})
}

// ParseEnergy reads the energy-impact export.
func ParseEnergy(r io.Reader) ([]EnergySample, error) {
	return extractRows(r, "energy usage", rowSchema[EnergySample]{
		fields: []field[EnergySample]{
			{"sample-time", func(e *EnergySample, n *Node) { e.Time = n.Fmt }},
			{"cpu-usage", func(e *EnergySample, n *Node) { e.CPUPercent = percent(n) }},
			{"gpu-usage", func(e *EnergySample, n *Node) { e.GPUPercent = percent(n) }},
			{"energy-impact", func(e *EnergySample, n *Node) { e.Impact = floatValue(n) }},
			{"process", func(e *EnergySample, n *Node) { e.Process = n.Fmt }},
		},
	})
}

// ParseViewUpdates reads the UI view-body updates export.
func ParseViewUpdates(r io.Reader) ([]ViewUpdate, error) {
	return extractRows(r, "view updates", rowSchema[ViewUpdate]{
		fields: []field[ViewUpdate]{
			{"start-time", func(v *ViewUpdate, n *Node) { v.StartTime = n.Fmt }},
			{"duration", func(v *ViewUpdate, n *Node) { v.DurationUS = durationMS(n) * 1000 }},
			{"event-concept", func(v *ViewUpdate, n *Node) { v.Severity = n.Fmt }},
		},
		finish: func(v *ViewUpdate, row *Node, idx *RefIndex) bool {
			for _, s := range row.FindAll("string") {
				resolved := idx.Resolve(s)
				f := resolved.Fmt
				if v.Description == "" && s.ID != "" {
					v.Description = f
				}
				if v.Category == "" && (f == "Update" || f == "Layout" || f == "Render") {
					v.Category = f
				}
			}
			if v.Description == "" {
				return false
			}
			v.ViewName = viewNameFrom(v.Description)
			return true
		},
	})
}

// viewNameFrom pulls the generic view type out of a body-accessor
// description like "ViewBodyAccessor<ContentView>".
func viewNameFrom(description string) string {
	const marker = "ViewBodyAccessor<"
	start := strings.Index(description, marker)
	if start < 0 {
		return ""
	}
	start += len(marker)
	end := strings.Index(description[start:], ">")
	if end <= 0 {
		return ""
	}
	return description[start : start+end]
}
