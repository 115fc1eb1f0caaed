// Package codec implements the duplicate-run string codec used for bucket
// payloads and the bit-packed merge of repeated same-hour readings.
package codec

import (
	"log"
	"strings"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/locations"
)

// Alphabet maps symbol positions 0-63 to printable characters
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Marker introduces a run token: marker, count symbol, character
const Marker = '.'

// MaxRun is the longest run a single token can carry
const MaxRun = len(Alphabet) - 1

// minRun is the shortest run worth replacing; shorter ones would expand
const minRun = 3

// RecordLen is the decoded length of one bucket: SB and NB per location
const RecordLen = 2 * locations.Count

var positions = func() [256]int8 {
	var p [256]int8
	for i := range p {
		p[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		p[Alphabet[i]] = int8(i)
	}
	return p
}()

var logger = log.Default()

// SetLogger replaces the logger used for codec warnings
func SetLogger(l *log.Logger) {
	if l != nil {
		logger = l
	}
}

// Position returns the alphabet position of c, or -1 when c is not a symbol
func Position(c byte) int {
	return int(positions[c])
}

// Symbol returns the character at alphabet position p (masked to 6 bits)
func Symbol(p int) byte {
	return Alphabet[p&63]
}

// Encode replaces runs of three or more identical characters with tokens
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		c := s[i]
		j := i + 1
		for j < len(s) && s[j] == c {
			j++
		}
		run := j - i
		i = j

		for run > 0 {
			n := run
			if n > MaxRun {
				n = MaxRun
			}
			if n >= minRun {
				b.WriteByte(Marker)
				b.WriteByte(Alphabet[n])
				b.WriteByte(c)
			} else {
				for k := 0; k < n; k++ {
					b.WriteByte(c)
				}
			}
			run -= n
		}
	}

	return b.String()
}

// Decode expands run tokens produced by Encode. A truncated trailing token
// is dropped and logged.
func Decode(s string) string {
	var b strings.Builder
	b.Grow(RecordLen)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != Marker {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			logger.Printf("codec: truncated run token at offset %d", i)
			break
		}
		count := Position(s[i+1])
		if count < 0 {
			logger.Printf("codec: invalid run count %q at offset %d", s[i+1], i)
			count = 0
		}
		for k := 0; k < count; k++ {
			b.WriteByte(s[i+2])
		}
		i += 2
	}

	return b.String()
}

// DecodeChecked decodes s and warns when the result is not want characters
// long. The mismatch points at upstream corruption, so it is not an error.
func DecodeChecked(s string, want int) string {
	out := Decode(s)
	if len(out) != want {
		logger.Printf("codec: warning: decoded length %d, expected %d", len(out), want)
	}
	return out
}
