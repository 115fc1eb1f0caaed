// Package coverage maintains the compact "dates covered" string stored in
// the archive header: comma separated YYYYMMDD dates and low-high ranges.
package coverage

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

// Range is an inclusive span of YYYYMMDD values. A single date has Low == High.
type Range struct {
	Low  int
	High int
}

func (r Range) String() string {
	if r.Low == r.High {
		return strconv.Itoa(r.Low)
	}
	return strconv.Itoa(r.Low) + "-" + strconv.Itoa(r.High)
}

// absorbs reports whether r and o overlap or touch
func (r Range) absorbs(o Range) bool {
	return o.Low <= r.High+1 && r.Low <= o.High+1
}

func (r Range) union(o Range) Range {
	if o.Low < r.Low {
		r.Low = o.Low
	}
	if o.High > r.High {
		r.High = o.High
	}
	return r
}

// Contains reports whether date falls inside r
func (r Range) Contains(date int) bool {
	return date >= r.Low && date <= r.High
}

// Parse splits a coverage string into its items. Blank items are ignored.
func Parse(s string) ([]Range, error) {
	var out []Range
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		r, err := parseItem(item)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func parseItem(item string) (Range, error) {
	low, high, isRange := strings.Cut(item, "-")
	lv, err := parseDate(low)
	if err != nil {
		return Range{}, err
	}
	if !isRange {
		return Range{Low: lv, High: lv}, nil
	}
	hv, err := parseDate(high)
	if err != nil {
		return Range{}, err
	}
	if hv < lv {
		lv, hv = hv, lv
	}
	return Range{Low: lv, High: hv}, nil
}

func parseDate(s string) (int, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err != nil || len(s) != 8 {
		return 0, types.Errorf(types.KindMalformed, "coverage.Parse", "invalid date %q", s)
	}
	return v, nil
}

// Join renders items back into a coverage string, skipping absorbed entries
func Join(items []Range) string {
	parts := make([]string, 0, len(items))
	for _, r := range items {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ",")
}

// Compact absorbs every item into any other it overlaps or touches until no
// more absorptions happen, then orders the survivors ascending.
func Compact(items []Range) []Range {
	alive := make([]bool, len(items))
	for i := range alive {
		alive[i] = true
	}

	for changed := true; changed; {
		changed = false
		for i := range items {
			if !alive[i] {
				continue
			}
			for j := range items {
				if i == j || !alive[j] {
					continue
				}
				if items[i].absorbs(items[j]) {
					items[i] = items[i].union(items[j])
					alive[j] = false
					changed = true
				}
			}
		}
	}

	out := make([]Range, 0, len(items))
	for i, r := range items {
		if alive[i] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Low < out[b].Low })
	return out
}

// Merge folds the items of added into old. Merging an already covered date
// leaves the string unchanged.
func Merge(old, added string) (string, error) {
	oldItems, err := Parse(old)
	if err != nil {
		return "", err
	}
	newItems, err := Parse(added)
	if err != nil {
		return "", err
	}
	return Join(Compact(append(oldItems, newItems...))), nil
}

// FromDates builds a coverage string from individual YYYYMMDD dates
func FromDates(dates []string) (string, error) {
	return Merge("", strings.Join(dates, ","))
}

// Filter answers whether a date is already covered
type Filter struct {
	items []Range
}

// NewFilter parses a coverage string into a Filter
func NewFilter(s string) (*Filter, error) {
	items, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return &Filter{items: items}, nil
}

// Covers reports whether date (YYYYMMDD) is inside any item
func (f *Filter) Covers(date string) bool {
	if f == nil {
		return false
	}
	v, err := strconv.Atoi(strings.TrimSpace(date))
	if err != nil {
		return false
	}
	for _, r := range f.items {
		if r.Contains(v) {
			return true
		}
	}
	return false
}
