package contracts

import (
	"sort"

	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/sheet"
)

// TopUnitsInReports is the number of organizational units charted in reports.
const TopUnitsInReports = 5

// GroupCount is the number of records sharing a grouping label.
type GroupCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Metrics summarizes a full, unfiltered set of records.
//
// Active counts records whose status category is in force; unlike the Active status
// filter it does not include records that are only expiring soon.
type Metrics struct {
	Total        int          `json:"total"`
	Active       int          `json:"active"`
	Expired      int          `json:"expired"`
	ExpiringSoon int          `json:"expiring_soon"`
	ByStatus     []GroupCount `json:"by_status"` // keyed by raw upper-cased status
	ByUnit       []GroupCount `json:"by_unit"`   // keyed by raw unit text
}

// Metrics computes a Metrics snapshot of records. Groups are listed in the order their
// label is first encountered.
func (s Schema) Metrics(records []sheet.Record) Metrics {
	m := Metrics{Total: len(records), ByStatus: []GroupCount{}, ByUnit: []GroupCount{}}
	statusIdx := make(map[string]int)
	unitIdx := make(map[string]int)

	for _, r := range records {
		c := s.Classify(r)
		switch c.Category {
		case InForce:
			m.Active++
		case Expired:
			m.Expired++
		}
		if c.ExpiringSoon {
			m.ExpiringSoon++
		}
		m.ByStatus = countGroup(m.ByStatus, statusIdx, c.Status)
		m.ByUnit = countGroup(m.ByUnit, unitIdx, s.Unit(r))
	}
	return m
}

func countGroup(groups []GroupCount, idx map[string]int, label string) []GroupCount {
	if i, ok := idx[label]; ok {
		groups[i].Count++
		return groups
	}
	idx[label] = len(groups)
	return append(groups, GroupCount{Label: label, Count: 1})
}

// StatusCounts returns the status grouping as a map.
func (m Metrics) StatusCounts() map[string]int {
	counts := make(map[string]int, len(m.ByStatus))
	for _, g := range m.ByStatus {
		counts[g.Label] = g.Count
	}
	return counts
}

// TopUnits returns up to n unit groups with the highest counts. Ties keep the order in
// which the units were first encountered. A non-positive n returns every group.
func (m Metrics) TopUnits(n int) []GroupCount {
	top := append([]GroupCount(nil), m.ByUnit...)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Count > top[j].Count
	})
	if n > 0 && len(top) > n {
		top = top[:n]
	}
	return top
}
