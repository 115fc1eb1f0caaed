package codec

import (
	"math"
	"strings"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

// normalizeWeights apply to the oldest, middle and newest 2-bit fields
var normalizeWeights = [3]int{2, 3, 4}

// Merge rolls the newest reading into each symbol's 6-bit history register:
// the old history shifts left two bits and the new code fills the low bits.
// Both inputs are decoded strings of RecordLen symbols.
func Merge(old, next string) (string, error) {
	if len(old) != RecordLen || len(next) != RecordLen {
		return "", types.Errorf(types.KindLengthMismatch, "codec.Merge",
			"lengths %d/%d, expected %d", len(old), len(next), RecordLen)
	}

	var b strings.Builder
	b.Grow(RecordLen)
	for i := 0; i < RecordLen; i++ {
		o, n := Position(old[i]), Position(next[i])
		if o < 0 || n < 0 {
			return "", types.Errorf(types.KindMalformed, "codec.Merge",
				"non-alphabet symbol at offset %d", i)
		}
		b.WriteByte(Symbol(((o << 2) & 63) + (n & 3)))
	}
	return b.String(), nil
}

// MergeEncoded decodes both buckets, merges them and re-encodes the result
func MergeEncoded(old, next string) (string, error) {
	merged, err := Merge(DecodeChecked(old, RecordLen), DecodeChecked(next, RecordLen))
	if err != nil {
		return "", err
	}
	return Encode(merged), nil
}

// NormalizeValue reduces one 6-bit history register to a single code
func NormalizeValue(v int) int {
	fields := [3]int{(v >> 4) & 3, (v >> 2) & 3, v & 3}

	sum, div := 0, 0
	for i, f := range fields {
		sum += f * normalizeWeights[i]
		if f != 0 {
			div += normalizeWeights[i]
		}
	}
	if div == 0 {
		return 1
	}

	r := int(math.Floor(float64(sum)/float64(div) + 0.5))
	if r == 0 {
		return 1
	}
	return r
}

// Normalize condenses every symbol of a decoded bucket into its weighted
// average reading
func Normalize(decoded string) (string, error) {
	if len(decoded) != RecordLen {
		return "", types.Errorf(types.KindLengthMismatch, "codec.Normalize",
			"length %d, expected %d", len(decoded), RecordLen)
	}

	var b strings.Builder
	b.Grow(RecordLen)
	for i := 0; i < len(decoded); i++ {
		p := Position(decoded[i])
		if p < 0 {
			return "", types.Errorf(types.KindMalformed, "codec.Normalize",
				"non-alphabet symbol at offset %d", i)
		}
		b.WriteByte(Symbol(NormalizeValue(p)))
	}
	return b.String(), nil
}

// NormalizeEncoded decodes, normalizes and re-encodes a bucket payload
func NormalizeEncoded(enc string) (string, error) {
	n, err := Normalize(DecodeChecked(enc, RecordLen))
	if err != nil {
		return "", err
	}
	return Encode(n), nil
}

// LineString maps a capture to its decoded bucket string, SB then NB for
// each location in order
func LineString(set *types.SampleSet) string {
	var b strings.Builder
	b.Grow(2 * len(set.Readings))
	for _, r := range set.Readings {
		b.WriteByte(Symbol(r.Southbound % 7))
		b.WriteByte(Symbol(r.Northbound % 7))
	}
	if b.Len() != RecordLen {
		logger.Printf("codec: warning: line string length %d from %d readings, expected %d",
			b.Len(), len(set.Readings), RecordLen)
	}
	return b.String()
}

// EncodeSampleSet returns the encoded bucket payload for a capture
func EncodeSampleSet(set *types.SampleSet) string {
	return Encode(LineString(set))
}

// CaptureAverage averages the four 2-bit slots packed into an 8-bit
// direction code. Slot k (bits 2k..2k+1) has weight k+1 and only non-empty
// slots count towards the divisor. An empty code averages to 0.
func CaptureAverage(code int) float64 {
	sum, div := 0, 0
	for k := 0; k < 4; k++ {
		f := (code >> (2 * k)) & 3
		sum += f * (k + 1)
		if f != 0 {
			div += k + 1
		}
	}
	if div == 0 {
		return 0
	}
	return float64(sum) / float64(div)
}

// ReadingAverages returns the capture averages of both directions
func ReadingAverages(r types.LocationReading) (sb, nb float64) {
	return CaptureAverage(r.Southbound), CaptureAverage(r.Northbound)
}

// Readings expands a decoded bucket string back into per-location readings
func Readings(decoded string) []types.LocationReading {
	out := make([]types.LocationReading, 0, len(decoded)/2)
	for i := 0; i+1 < len(decoded); i += 2 {
		out = append(out, types.LocationReading{
			Location:   i / 2,
			Southbound: Position(decoded[i]),
			Northbound: Position(decoded[i+1]),
		})
	}
	return out
}
