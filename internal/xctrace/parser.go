package xctrace

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseTimeProfile reads a time-profile export document and reconstructs its
// samples. Rows that yield no usable backtrace are dropped; every other
// anomaly degrades to a documented fallback instead of an error.
func ParseTimeProfile(r io.Reader) (*Trace, error) {
	root, err := ReadDocument(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse time profile: %w", err)
	}
	idx := BuildRefIndex(root)

	trace := &Trace{}
	for _, row := range root.FindAll("row") {
		if sample, ok := reconstructSample(row, idx); ok {
			trace.Samples = append(trace.Samples, sample)
		}
	}
	return trace, nil
}

// reconstructSample turns one row into a Sample. Missing fields become empty
// strings, a malformed weight falls back to 1.0, and a backtrace that is
// empty after dropping unnamed frames discards the row.
func reconstructSample(row *Node, idx *RefIndex) (Sample, bool) {
	sample := Sample{
		Time:     formattedField(row, "sample-time", idx),
		Thread:   formattedField(row, "thread", idx),
		Process:  formattedField(row, "process", idx),
		WeightMS: 1.0,
	}
	if w := row.Find("weight"); w != nil {
		sample.WeightMS = parseWeightMS(idx.Resolve(w).Fmt)
	}

	bt := row.Find("backtrace")
	if bt == nil {
		return Sample{}, false
	}
	for _, fr := range idx.Resolve(bt).FindAll("frame") {
		fr = idx.Resolve(fr)
		if fr.Name == "" {
			continue
		}
		frame := Frame{Name: fr.Name, Addr: fr.Addr}
		for _, child := range fr.Children {
			if child.Tag() == "binary" {
				frame.Binary = idx.Resolve(child).Name
				break
			}
		}
		sample.Backtrace = append(sample.Backtrace, frame)
	}
	if len(sample.Backtrace) == 0 {
		return Sample{}, false
	}
	return sample, true
}

// formattedField locates an element in the row subtree and returns its
// resolved display string, or "" when the element is absent.
func formattedField(row *Node, tag string, idx *RefIndex) string {
	n := row.Find(tag)
	if n == nil {
		return ""
	}
	return idx.Resolve(n).Fmt
}

// parseWeightMS parses a formatted weight like "1,234.5 ms" into
// milliseconds. Any parse failure yields the 1.0 fallback: a malformed
// weight must not lose a stack trace.
func parseWeightMS(formatted string) float64 {
	s := strings.ReplaceAll(formatted, "ms", "")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 1.0
	}
	return v
}
