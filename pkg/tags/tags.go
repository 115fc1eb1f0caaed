// Package tags maps dates to the tag strings that classify a day's traffic,
// such as "Weekday|Monday, Weather|Rain|Heavy".
package tags

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

// DateLayout is the YYYYMMDD layout used for dates everywhere
const DateLayout = "20060102"

// DefaultZoneOffset is the capture site's UTC offset in hours
const DefaultZoneOffset = 8

const weatherPrefix = "Weather|"

// Store persists date to tag assignments
type Store interface {
	// Lookup returns the tag for date. A missing date is not an error.
	Lookup(ctx context.Context, date string) (string, bool, error)

	// Put assigns tag to date, replacing any previous assignment
	Put(ctx context.Context, date, tag string) error

	// All returns every assignment
	All(ctx context.Context) ([]types.TagAssignment, error)

	// Close releases the store
	Close() error
}

// Zone returns a fixed zone offsetHours from UTC, named like "GMT+8"
func Zone(offsetHours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("GMT%+d", offsetHours), offsetHours*3600)
}

// DateString formats t as YYYYMMDD
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

// PreviousDay returns the YYYYMMDD date before t
func PreviousDay(t time.Time) string {
	return DateString(t.AddDate(0, 0, -1))
}

// DefaultTag returns "<Weekday|Weekend>|<DayName>" for t
func DefaultTag(t time.Time) string {
	kind := "Weekday"
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		kind = "Weekend"
	}
	return kind + "|" + t.Weekday().String()
}

// DefaultTagForDate returns the default tag of a YYYYMMDD date
func DefaultTagForDate(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", types.Wrap(types.KindMalformed, "tags.DefaultTagForDate", err)
	}
	return DefaultTag(t), nil
}

// WeatherTag prefixes a simplified weather condition
func WeatherTag(cond string) string {
	if cond == "" {
		cond = "Unknown"
	}
	return weatherPrefix + cond
}

// Compose joins a default tag and a weather tag into one tag set
func Compose(defaultTag, weatherTag string) string {
	return defaultTag + ", " + weatherTag
}

// Upgrade decides whether today's stored tag set should take the newly
// observed weather. Rain replaces anything but rain or snow, and rain
// intensity only escalates (Moderate to Heavy or Storm, Heavy to Storm).
// Overcast replaces only dry tags. Every other condition keeps the stored tag.
func Upgrade(current, weatherTag string) (string, bool) {
	switch {
	case strings.Contains(weatherTag, "Rain"):
		switch {
		case strings.Contains(current, "Rain"):
			if strings.Contains(current, "Moderate") &&
				(strings.Contains(weatherTag, "Heavy") || strings.Contains(weatherTag, "Storm")) {
				return weatherTag, true
			}
			if strings.Contains(current, "Heavy") && strings.Contains(weatherTag, "Storm") {
				return weatherTag, true
			}
			return "", false
		case strings.Contains(current, "Snow"):
			return "", false
		}
		return weatherTag, true
	case strings.Contains(weatherTag, "Overcast"):
		if strings.Contains(current, "Rain") || strings.Contains(current, "Snow") {
			return "", false
		}
		return weatherTag, true
	}
	return "", false
}

// Resolve returns the stored tag for date, or its default tag
func Resolve(ctx context.Context, store Store, date string) (string, error) {
	if store != nil {
		tag, ok, err := store.Lookup(ctx, date)
		if err != nil {
			return "", fmt.Errorf("failed to look up tag for %s: %w", date, err)
		}
		if ok && tag != "" {
			return tag, nil
		}
	}
	return DefaultTagForDate(date)
}

// Copy writes every assignment of src into dst and returns how many were copied
func Copy(ctx context.Context, dst, src Store) (int, error) {
	entries, err := src.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read source tags: %w", err)
	}
	for i, e := range entries {
		if err := dst.Put(ctx, e.Date, e.Tag); err != nil {
			return i, fmt.Errorf("failed to copy tag for %s: %w", e.Date, err)
		}
	}
	return len(entries), nil
}
