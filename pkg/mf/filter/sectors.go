package filter

import "strings"

// DefaultExcludedSectors are left out of Magic Formula rankings: their balance
// sheets make EBIT/EV and return on capital meaningless.
var DefaultExcludedSectors = []string{
	"Financial Services",
	"Financial",
	"Banks",
	"Insurance",
	"Utilities",
	"Utility",
	"Real Estate",
	"Real Estate Investment Trust",
	"REIT",
}

// Sectors excludes a sector when it equals, or starts with, any listed name,
// ignoring case. Match reports whether the sector is allowed.
type Sectors struct{ excluded []string }

// NewSectors builds the predicate; an empty list means DefaultExcludedSectors.
func NewSectors(excluded []string) Sectors {
	if len(excluded) == 0 {
		excluded = DefaultExcludedSectors
	}
	out := make([]string, 0, len(excluded))
	for _, s := range excluded {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return Sectors{excluded: out}
}

func (s Sectors) Match(sector string) bool { return !s.Excluded(sector) }

// Excluded reports whether sector is on the exclusion list.
func (s Sectors) Excluded(sector string) bool {
	sec := strings.ToLower(strings.TrimSpace(sector))
	if sec == "" {
		return false
	}
	for _, ex := range s.excluded {
		if strings.HasPrefix(sec, ex) {
			return true
		}
	}
	return false
}
