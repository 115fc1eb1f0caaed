package codec

import (
	"math/rand"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"single", "A"},
		{"pair", "AA"},
		{"triple", "AAA"},
		{"mixed", "ABBBBCDDE"},
		{"max run", strings.Repeat("B", MaxRun)},
		{"split run", strings.Repeat("C", MaxRun+5)},
		{"record", strings.Repeat("BC", RecordLen/2)},
		{"runs at edges", "DDDDxyzDDDD"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			enc := Encode(tc.input)
			dec := Decode(enc)
			if dec != tc.input {
				t.Errorf("round trip mismatch: input=%q encoded=%q decoded=%q", tc.input, enc, dec)
			}
		})
	}
}

func TestEncodeDecodeRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for n := 0; n < 200; n++ {
		var b strings.Builder
		for b.Len() < RecordLen {
			c := Alphabet[rng.Intn(4)]
			run := rng.Intn(12) + 1
			for k := 0; k < run && b.Len() < RecordLen; k++ {
				b.WriteByte(c)
			}
		}
		s := b.String()

		if got := Decode(Encode(s)); got != s {
			t.Fatalf("round trip mismatch for %q: got %q", s, got)
		}
	}
}

func TestEncodeShortRunsNoExpansion(t *testing.T) {
	input := "AABCCDAABBCD"
	enc := Encode(input)
	if len(enc) != len(input) {
		t.Errorf("Expected no expansion: input=%d encoded=%d (%q)", len(input), len(enc), enc)
	}
	if strings.ContainsRune(enc, Marker) {
		t.Errorf("Expected no run tokens in %q", enc)
	}
}

func TestEncodeTokenFormat(t *testing.T) {
	enc := Encode("BBBBB")
	if enc != ".FB" {
		t.Errorf("Expected token .FB, got %q", enc)
	}

	enc = Encode(strings.Repeat("A", MaxRun+1))
	if enc != "./AA" {
		t.Errorf("Expected split token for run of %d, got %q", MaxRun+1, enc)
	}
}

func TestEncodeCompressesRecord(t *testing.T) {
	s := strings.Repeat("B", RecordLen)
	enc := Encode(s)
	if len(enc) >= len(s) {
		t.Errorf("Compression ineffective: original=%d, encoded=%d", len(s), len(enc))
	}
}

func TestDecodeTruncatedToken(t *testing.T) {
	if got := Decode("AB.F"); got != "AB" {
		t.Errorf("Expected truncated token to be dropped, got %q", got)
	}
}

func TestPositionAndSymbol(t *testing.T) {
	for i := 0; i < len(Alphabet); i++ {
		if Position(Symbol(i)) != i {
			t.Errorf("Position(Symbol(%d)) = %d", i, Position(Symbol(i)))
		}
	}
	if Position('.') != -1 {
		t.Error("Marker must not be an alphabet symbol")
	}
}

func BenchmarkEncode(b *testing.B) {
	s := strings.Repeat("BBBBCCDDDD", RecordLen/10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Encode(s)
	}
}
