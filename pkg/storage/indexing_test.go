package storage

import (
	"reflect"
	"testing"
)

func TestTagIndexOrderAndDedup(t *testing.T) {
	idx := NewTagIndex("Weekday|Monday", "Weekend|Sunday", "Weekday|Monday", "")

	if idx.Len() != 2 {
		t.Fatalf("Expected 2 tags, got %d", idx.Len())
	}

	added := idx.Merge([]string{"Weekend|Sunday", "Weekday|Tuesday"})
	if added != 1 {
		t.Errorf("Expected 1 new tag, got %d", added)
	}

	want := []string{"Weekday|Monday", "Weekend|Sunday", "Weekday|Tuesday"}
	if got := idx.Tags(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestTagIndexLookup(t *testing.T) {
	idx := NewTagIndex("a", "b")

	if !idx.Contains("b") {
		t.Error("Expected b to be indexed")
	}
	if idx.Contains("c") {
		t.Error("c should not be indexed")
	}
	if idx.Position("b") != 1 {
		t.Errorf("Expected position 1, got %d", idx.Position("b"))
	}
	if idx.Position("c") != -1 {
		t.Errorf("Expected -1, got %d", idx.Position("c"))
	}
}

func TestTagIndexTagsIsCopy(t *testing.T) {
	idx := NewTagIndex("a")
	tags := idx.Tags()
	tags[0] = "changed"

	if idx.Tags()[0] != "a" {
		t.Error("Tags() exposed the backing slice")
	}
}
