package types

import "time"

// UnknownDate marks a record that is keyed by tag rather than by date
const UnknownDate = "UNKNOWN"

// Congestion codes reported per direction
const (
	CodeUnknown  = 0
	CodeLight    = 1
	CodeModerate = 2
	CodeHeavy    = 3
)

// LocationReading represents one segment's congestion sample
type LocationReading struct {
	Location   int
	Southbound int
	Northbound int
}

// SampleSet represents one full capture across all segments
type SampleSet struct {
	Date      string
	Timestamp string
	Readings  []LocationReading
}

// Bucket is one hour's codec-encoded reading set
type Bucket struct {
	Timestamp string
	Data      string
}

// DayRecord holds the ordered buckets collected for a date or a tag
type DayRecord struct {
	Date    string
	Tag     string
	Buckets []Bucket
	Dirty   bool
}

// NewDayRecord creates an empty record
func NewDayRecord(date, tag string) *DayRecord {
	return &DayRecord{
		Date: date,
		Tag:  tag,
	}
}

// FileHeader holds archive metadata
type FileHeader struct {
	Coverage string   `json:"coverage"`
	Tags     []string `json:"tags"`
}

// TagAssignment maps a date to its tag string
type TagAssignment struct {
	Date string
	Tag  string
}

// JobResult summarises a completed pipeline job
type JobResult struct {
	FilesParsed  int           `json:"files_parsed"`
	LinesSkipped int           `json:"lines_skipped"`
	DatesTouched []string      `json:"dates_touched"`
	TagsWritten  []string      `json:"tags_written"`
	Coverage     string        `json:"coverage"`
	Duration     time.Duration `json:"duration"`
}
