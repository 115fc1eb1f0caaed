// Package rawfile discovers and parses the scraped per-capture traffic files
// named <YYYYMMDD>_<HHmm>_TrafficRec.txt.
package rawfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/coverage"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/locations"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

// Suffix identifies raw sample files
const Suffix = "_TrafficRec.txt"

const fieldCount = 5

var logger = log.Default()

// SetLogger replaces the logger used for skipped lines
func SetLogger(l *log.Logger) {
	if l != nil {
		logger = l
	}
}

// File describes one discovered raw sample file
type File struct {
	Path string
	Date string
	Time string
}

// ParseName extracts the date and time from a raw file name. Time parts shorter
// than four digits get a trailing zero.
func ParseName(name string) (File, error) {
	if !strings.HasSuffix(name, Suffix) {
		return File{}, types.Errorf(types.KindMalformed, "rawfile.ParseName", "not a raw file: %s", name)
	}
	parts := strings.Split(name, "_")
	if len(parts) != 3 {
		return File{}, types.Errorf(types.KindMalformed, "rawfile.ParseName", "unexpected name: %s", name)
	}

	date, tm := parts[0], parts[1]
	if len(date) != 8 || !isDigits(date) {
		return File{}, types.Errorf(types.KindMalformed, "rawfile.ParseName", "bad date in %s", name)
	}
	if len(tm) < 4 {
		tm += "0"
	}
	if len(tm) != 4 || !isDigits(tm) {
		return File{}, types.Errorf(types.KindMalformed, "rawfile.ParseName", "bad time in %s", name)
	}
	return File{Path: name, Date: date, Time: tm}, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// Discover lists the raw files in dir whose dates are not covered by skip,
// ordered by date then time. A missing directory is a NotFound error.
func Discover(dir string, skip *coverage.Filter) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.Wrap(types.KindNotFound, "rawfile.Discover", err)
		}
		return nil, types.Wrap(types.KindIOFailure, "rawfile.Discover", err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, err := ParseName(e.Name())
		if err != nil {
			if strings.Contains(e.Name(), Suffix) {
				logger.Printf("Skipping unrecognised raw file %s", e.Name())
			}
			continue
		}
		if skip.Covers(f.Date) {
			continue
		}
		f.Path = filepath.Join(dir, e.Name())
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Date != files[j].Date {
			return files[i].Date < files[j].Date
		}
		return files[i].Time < files[j].Time
	})
	return files, nil
}

// Result is the outcome of parsing one raw file
type Result struct {
	Set     *types.SampleSet
	Skipped int
}

// ParseFile reads and parses a raw file
func ParseFile(ctx context.Context, f File) (*Result, error) {
	fp, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.Wrap(types.KindNotFound, "rawfile.ParseFile", err)
		}
		return nil, types.Wrap(types.KindIOFailure, "rawfile.ParseFile", err)
	}
	defer fp.Close()

	res, err := Parse(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.Path, err)
	}
	res.Set.Date = f.Date
	res.Set.Timestamp = f.Time
	return res, nil
}

// Parse builds one reading per location from "area, location, code, _, _"
// lines. Lines with the wrong field count, unknown locations or a location
// that does not advance are skipped. Missing locations read as zero.
func Parse(ctx context.Context, r io.Reader) (*Result, error) {
	res := &Result{Set: &types.SampleSet{}}
	readings := make([]types.LocationReading, 0, locations.Count)
	prev := -1

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNum++
		line := scanner.Text()

		fields := strings.Split(line, ",")
		if len(fields) != fieldCount {
			logger.Printf("Line %d: invalid field count %d", lineNum, len(fields))
			res.Skipped++
			continue
		}

		name := strings.TrimSpace(fields[0]) + ", " + strings.TrimSpace(fields[1])
		loc, ok := locations.Lookup(name)
		if !ok {
			logger.Printf("Line %d: unknown location %q", lineNum, name)
			res.Skipped++
			continue
		}
		if loc <= prev {
			logger.Printf("Line %d: location %d does not follow %d", lineNum, loc, prev)
			res.Skipped++
			continue
		}

		code, err := parseCode(fields[2])
		if err != nil {
			logger.Printf("Line %d: %v", lineNum, err)
			res.Skipped++
			continue
		}

		for i := prev + 1; i < loc; i++ {
			readings = append(readings, types.LocationReading{Location: i})
		}
		// The source publishes one condition column; it feeds both directions.
		readings = append(readings, types.LocationReading{
			Location:   loc,
			Southbound: code,
			Northbound: code,
		})
		prev = loc
	}
	if err := scanner.Err(); err != nil {
		return nil, types.Wrap(types.KindIOFailure, "rawfile.Parse", err)
	}

	for i := prev + 1; i < locations.Count; i++ {
		readings = append(readings, types.LocationReading{Location: i})
	}
	res.Set.Readings = readings
	return res, nil
}

func parseCode(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid congestion code %q", s)
	}
	return v, nil
}
