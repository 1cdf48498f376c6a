package contracts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/sheet"
)

// StatusFilter selects records by status.
type StatusFilter string

const (
	AllStatuses    StatusFilter = "TODOS"
	Active         StatusFilter = "ATIVOS" // in force or expiring soon
	InForceOnly    StatusFilter = "VIGENTE"
	ExpiredOnly    StatusFilter = "VENCIDO"
	TerminatedOnly StatusFilter = "RESCINDIDO"
	ExpiringSoon   StatusFilter = "A VENCER"
)

// StatusFilters lists every valid StatusFilter.
var StatusFilters = []StatusFilter{AllStatuses, Active, InForceOnly, ExpiredOnly, TerminatedOnly, ExpiringSoon}

// AllUnits is the unit selector that matches every organizational unit.
const AllUnits = "TODAS"

// ErrInvalidStatusFilter is returned by ParseStatusFilter for unknown selectors.
var ErrInvalidStatusFilter = fmt.Errorf("invalid status filter")

// ParseStatusFilter returns the StatusFilter named by s (case-insensitive).
// An empty s selects AllStatuses.
func ParseStatusFilter(s string) (StatusFilter, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return AllStatuses, nil
	}
	for _, f := range StatusFilters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatusFilter, s)
}

// Criteria combines the free-text, status and unit filters applied to records.
// Zero-valued Status and Unit select everything.
type Criteria struct {
	Query  string       `json:"query"`
	Status StatusFilter `json:"status"`
	Unit   string       `json:"unit"`
}

// String describes the criteria for report headers.
func (c Criteria) String() string {
	status, unit := c.Status, c.Unit
	if status == "" {
		status = AllStatuses
	}
	if unit == "" {
		unit = AllUnits
	}
	desc := fmt.Sprintf("Filtro Ativo: %s | Secretaria: %s", status, unit)
	if c.Query != "" {
		desc += fmt.Sprintf(" | Busca: %s", c.Query)
	}
	return desc
}

// Matches reports whether r satisfies every filter of c.
func (s Schema) Matches(r sheet.Record, c Criteria) bool {
	return matchesQuery(r, strings.ToLower(c.Query)) &&
		s.matchesStatus(r, c.Status) &&
		s.matchesUnit(r, c.Unit)
}

// Filter returns the records that match c, in their original order.
func (s Schema) Filter(records []sheet.Record, c Criteria) []sheet.Record {
	query := strings.ToLower(c.Query)
	matched := make([]sheet.Record, 0, len(records))
	for _, r := range records {
		if matchesQuery(r, query) && s.matchesStatus(r, c.Status) && s.matchesUnit(r, c.Unit) {
			matched = append(matched, r)
		}
	}
	return matched
}

// matchesQuery expects an already lower-cased query.
func matchesQuery(r sheet.Record, query string) bool {
	if query == "" {
		return true
	}
	for _, v := range r.Values() {
		if strings.Contains(strings.ToLower(v), query) {
			return true
		}
	}
	return false
}

func (s Schema) matchesStatus(r sheet.Record, f StatusFilter) bool {
	switch f {
	case "", AllStatuses:
		return true
	}

	c := s.Classify(r)
	switch f {
	case Active:
		return c.Category == InForce || c.ExpiringSoon
	case InForceOnly:
		return c.Category == InForce
	case ExpiredOnly:
		return c.Category == Expired
	case TerminatedOnly:
		return c.Category == Terminated
	case ExpiringSoon:
		return c.ExpiringSoon
	default:
		return true
	}
}

func (s Schema) matchesUnit(r sheet.Record, unit string) bool {
	if unit == "" || unit == AllUnits {
		return true
	}
	return s.Unit(r) == unit
}

// Units returns the distinct non-empty organizational units of records, sorted.
func (s Schema) Units(records []sheet.Record) []string {
	seen := make(map[string]bool)
	units := make([]string, 0)
	for _, r := range records {
		u := s.Unit(r)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		units = append(units, u)
	}
	sort.Strings(units)
	return units
}
