package coverage

import (
	"errors"
	"testing"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

func TestMergeSequence(t *testing.T) {
	cov := ""
	var err error
	for _, d := range []string{"20130901", "20130902", "20130903"} {
		cov, err = Merge(cov, d)
		if err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
	}
	if cov != "20130901-20130903" {
		t.Errorf("Expected 20130901-20130903, got %s", cov)
	}

	cov, err = Merge(cov, "20130905")
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if cov != "20130901-20130903,20130905" {
		t.Errorf("Expected 20130901-20130903,20130905, got %s", cov)
	}
}

func TestMergeCases(t *testing.T) {
	testCases := []struct {
		name  string
		old   string
		added string
		want  string
	}{
		{"empty", "", "", ""},
		{"first date", "", "20130901", "20130901"},
		{"equal dates", "20130901", "20130901", "20130901"},
		{"adjacent dates", "20130902", "20130901", "20130901-20130902"},
		{"date inside range", "20130901-20130910", "20130905", "20130901-20130910"},
		{"date below range", "20130902-20130910", "20130901", "20130901-20130910"},
		{"date above range", "20130901-20130910", "20130911", "20130901-20130911"},
		{"overlapping ranges", "20130901-20130910", "20130905-20130915", "20130901-20130915"},
		{"adjacent ranges", "20130901-20130910", "20130911-20130915", "20130901-20130915"},
		{"contained range", "20130901-20130930", "20130910-20130912", "20130901-20130930"},
		{"gap bridged", "20130901,20130903", "20130902", "20130901-20130903"},
		{"disjoint", "20130910", "20130901", "20130901,20130910"},
		{"chained absorption", "20130901,20130905", "20130902-20130904", "20130901-20130905"},
		{"spaces tolerated", "20130901, 20130903", "20130905", "20130901,20130903,20130905"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Merge(tc.old, tc.added)
			if err != nil {
				t.Fatalf("Merge failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Merge(%q, %q) = %q, want %q", tc.old, tc.added, got, tc.want)
			}
		})
	}
}

func TestMergeIdempotent(t *testing.T) {
	cov := "20130901-20130903,20130905"
	for _, d := range []string{"20130901", "20130902", "20130905", "20130901-20130903"} {
		got, err := Merge(cov, d)
		if err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		if got != cov {
			t.Errorf("Re-merging %s changed %q to %q", d, cov, got)
		}
	}
}

func TestMergeMalformed(t *testing.T) {
	if _, err := Merge("2013-09-01", ""); !errors.Is(err, types.ErrMalformed) {
		t.Errorf("Expected malformed error, got %v", err)
	}
	if _, err := Merge("", "abc"); !errors.Is(err, types.ErrMalformed) {
		t.Errorf("Expected malformed error, got %v", err)
	}
}

func TestFromDates(t *testing.T) {
	got, err := FromDates([]string{"20130905", "20130901", "20130902", "20130903"})
	if err != nil {
		t.Fatalf("FromDates failed: %v", err)
	}
	if got != "20130901-20130903,20130905" {
		t.Errorf("Unexpected coverage: %s", got)
	}
}

func TestFilterCovers(t *testing.T) {
	f, err := NewFilter("20130901-20130903,20130905")
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	for _, d := range []string{"20130901", "20130902", "20130903", "20130905"} {
		if !f.Covers(d) {
			t.Errorf("Expected %s to be covered", d)
		}
	}
	for _, d := range []string{"20130831", "20130904", "20130906", "garbage"} {
		if f.Covers(d) {
			t.Errorf("Expected %s not to be covered", d)
		}
	}

	var empty *Filter
	if empty.Covers("20130901") {
		t.Error("Nil filter covers nothing")
	}
}
