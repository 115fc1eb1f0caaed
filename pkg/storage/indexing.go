package storage

// TagIndex is the ordered, duplicate-free tag list kept in the archive header
type TagIndex struct {
	tags []string
	pos  map[string]int
}

// NewTagIndex creates an index from tags, dropping duplicates and blanks
func NewTagIndex(tags ...string) *TagIndex {
	idx := &TagIndex{pos: make(map[string]int)}
	idx.Merge(tags)
	return idx
}

// Add appends tag if it is not indexed yet
func (idx *TagIndex) Add(tag string) bool {
	if tag == "" {
		return false
	}
	if _, exists := idx.pos[tag]; exists {
		return false
	}
	idx.pos[tag] = len(idx.tags)
	idx.tags = append(idx.tags, tag)
	return true
}

// Merge adds every new tag in order and returns how many were added
func (idx *TagIndex) Merge(tags []string) int {
	added := 0
	for _, tag := range tags {
		if idx.Add(tag) {
			added++
		}
	}
	return added
}

// Contains reports whether tag is indexed
func (idx *TagIndex) Contains(tag string) bool {
	_, ok := idx.pos[tag]
	return ok
}

// Position returns the index of tag, or -1
func (idx *TagIndex) Position(tag string) int {
	if p, ok := idx.pos[tag]; ok {
		return p
	}
	return -1
}

// Tags returns a copy of the ordered tag list
func (idx *TagIndex) Tags() []string {
	out := make([]string, len(idx.tags))
	copy(out, idx.tags)
	return out
}

// Len returns the number of indexed tags
func (idx *TagIndex) Len() int {
	return len(idx.tags)
}
