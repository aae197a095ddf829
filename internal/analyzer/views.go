package analyzer

import (
	"sort"

	"xctrace-mcp/internal/xctrace"
)

// ViewStat aggregates view-body update durations per view type.
type ViewStat struct {
	ViewName string
	Count    int
	AvgUS    float64
	TotalUS  float64
}

// ViewBodyStats groups view updates by view name, sorted by total duration
// descending.
func ViewBodyStats(updates []xctrace.ViewUpdate) []ViewStat {
	byView := make(map[string]*ViewStat)
	var order []string
	for _, u := range updates {
		if u.ViewName == "" {
			continue
		}
		st, ok := byView[u.ViewName]
		if !ok {
			st = &ViewStat{ViewName: u.ViewName}
			byView[u.ViewName] = st
			order = append(order, u.ViewName)
		}
		st.Count++
		st.TotalUS += u.DurationUS
	}

	out := make([]ViewStat, 0, len(order))
	for _, name := range order {
		st := *byView[name]
		st.AvgUS = st.TotalUS / float64(st.Count)
		out = append(out, st)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalUS > out[j].TotalUS
	})
	return out
}

// SlowUpdates returns updates at or above the threshold, in input order.
func SlowUpdates(updates []xctrace.ViewUpdate, thresholdUS float64) []xctrace.ViewUpdate {
	var out []xctrace.ViewUpdate
	for _, u := range updates {
		if u.DurationUS >= thresholdUS {
			out = append(out, u)
		}
	}
	return out
}
