// Package contracts classifies, filters, aggregates and projects the records of a
// parsed contracts sheet.
package contracts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/sheet"
)

// ExpiringSoonDays is the largest number of remaining days for which a contract is
// considered to be expiring soon.
const ExpiringSoonDays = 30

// Schema names the columns that classification, filtering and aggregation read.
// Each field lists key fragments that are tried in order (see sheet.Record.ResolveAny),
// so the schema survives accents and annotations being added to the sheet's headers.
type Schema struct {
	StatusKeys        []string
	DaysRemainingKeys []string
	UnitKeys          []string
}

// DefaultSchema matches the headers of the contracts spreadsheet export.
var DefaultSchema = Schema{
	StatusKeys:        []string{"SITUAÇÃO"},
	DaysRemainingKeys: []string{"FALTANTES", "DIAS"},
	UnitKeys:          []string{"SECRETARIA"},
}

// Status returns the record's upper-cased status text.
func (s Schema) Status(r sheet.Record) string {
	return strings.ToUpper(r.ResolveAny(s.StatusKeys...))
}

// Unit returns the record's organizational unit (secretaria) exactly as written.
func (s Schema) Unit(r sheet.Record) string {
	return r.ResolveAny(s.UnitKeys...)
}

// DaysRemaining returns the raw remaining-days text of the record.
func (s Schema) DaysRemaining(r sheet.Record) string {
	return r.ResolveAny(s.DaysRemainingKeys...)
}

// Category is the normalized status of a contract.
type Category int

const (
	Unclassified Category = iota
	InForce
	Expired
	Terminated
)

// categoryMarkers are tested in order against the upper-cased status; the first
// marker found in the status decides the category.
var categoryMarkers = []struct {
	marker   string
	category Category
}{
	{"VIGENTE", InForce},
	{"VENCIDO", Expired},
	{"RESCINDIDO", Terminated},
}

// CategoryOf returns the category of an upper-cased status text.
func CategoryOf(status string) Category {
	for _, m := range categoryMarkers {
		if strings.Contains(status, m.marker) {
			return m.category
		}
	}
	return Unclassified
}

func (c Category) String() string {
	switch c {
	case InForce:
		return "VIGENTE"
	case Expired:
		return "VENCIDO"
	case Terminated:
		return "RESCINDIDO"
	default:
		return "OUTROS"
	}
}

// Indicator names the visual cue presenters attach to a category.
func (c Category) Indicator() string {
	switch c {
	case InForce:
		return "success"
	case Expired:
		return "danger"
	case Terminated:
		return "warning"
	default:
		return "pending"
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Classification is the derived status information of one record.
type Classification struct {
	Category      Category `json:"category"`
	Status        string   `json:"status"`
	DaysRemaining int      `json:"days_remaining"`
	HasDays       bool     `json:"has_days"`
	ExpiringSoon  bool     `json:"expiring_soon"`
}

// Classify derives the status category and expiry information of r.
func (s Schema) Classify(r sheet.Record) Classification {
	status := s.Status(r)
	days, ok := ParseDays(s.DaysRemaining(r))
	return Classification{
		Category:      CategoryOf(status),
		Status:        status,
		DaysRemaining: days,
		HasDays:       ok,
		ExpiringSoon:  ok && days > 0 && days <= ExpiringSoonDays,
	}
}

// ParseDays reads a base-10 integer from the start of s, after leading whitespace and
// an optional sign, ignoring anything that follows the digits ("12 dias" is 12).
// ok is false when s does not start with a number; that is "no value", not zero.
// Values out of the int range are clamped to it.
func ParseDays(s string) (days int, ok bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	days, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		// days is already clamped to the nearest int bound
		return days, true
	}
	if err != nil {
		return 0, false
	}
	return days, true
}

// BadgeKind selects how remaining days are presented.
type BadgeKind int

const (
	NoBadge BadgeKind = iota
	SoonBadge
	OverdueBadge
	NeutralBadge
)

// DaysBadge is the presentation of a record's remaining days.
type DaysBadge struct {
	Kind BadgeKind
	Days int // absolute number of days to display
}

// Badge returns how the classification's remaining days should be displayed.
func (c Classification) Badge() DaysBadge {
	switch {
	case !c.HasDays:
		return DaysBadge{Kind: NoBadge}
	case c.ExpiringSoon:
		return DaysBadge{Kind: SoonBadge, Days: c.DaysRemaining}
	case c.DaysRemaining < 0:
		return DaysBadge{Kind: OverdueBadge, Days: -c.DaysRemaining}
	default:
		return DaysBadge{Kind: NeutralBadge, Days: c.DaysRemaining}
	}
}

func (b DaysBadge) String() string {
	switch b.Kind {
	case SoonBadge, NeutralBadge:
		return fmt.Sprintf("%d dias", b.Days)
	case OverdueBadge:
		return fmt.Sprintf("Vencido (%dd)", b.Days)
	default:
		return ""
	}
}
