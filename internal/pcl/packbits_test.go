package pcl

import (
	"bytes"
	"math/rand"
	"testing"
)

// unpackBits reverses packBits: header n <= 127 introduces n+1 literal
// bytes, header n >= 129 repeats the next byte 257-n times.
func unpackBits(t *testing.T, src []byte) []byte {
	t.Helper()
	var out []byte
	for i := 0; i < len(src); {
		n := int(src[i])
		i++
		if n <= 127 {
			count := n + 1
			if i+count > len(src) {
				t.Fatalf("literal run of %d overruns input", count)
			}
			out = append(out, src[i:i+count]...)
			i += count
		} else {
			count := 257 - n
			if i >= len(src) {
				t.Fatal("replicate run missing byte")
			}
			out = append(out, bytes.Repeat(src[i:i+1], count)...)
			i++
		}
	}
	return out
}

func TestPackBitsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"single", []byte{0x42}},
		{"two equal", []byte{7, 7}},
		{"two distinct", []byte{7, 8}},
		{"long run", bytes.Repeat([]byte{0xFF}, 300)},
		{"long literal", func() []byte {
			b := make([]byte, 300)
			for i := range b {
				b[i] = byte(i * 7)
			}
			return b
		}()},
		{"run then literal", append(bytes.Repeat([]byte{0}, 10), 1, 2, 3, 4)},
		{"literal then run", append([]byte{1, 2, 3, 4}, bytes.Repeat([]byte{0}, 10)...)},
		{"trailing single", append(bytes.Repeat([]byte{5, 5}, 4), 9)},
	}
	for _, tt := range tests {
		comp := packBits(nil, tt.in)
		got := unpackBits(t, comp)
		if !bytes.Equal(got, tt.in) {
			t.Errorf("%s: round trip mismatch (%d -> %d -> %d bytes)", tt.name, len(tt.in), len(comp), len(got))
		}
	}
}

func TestPackBitsRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 100; trial++ {
		n := rng.Intn(600)
		in := make([]byte, n)
		for i := range in {
			// biased toward runs
			if rng.Intn(3) > 0 && i > 0 {
				in[i] = in[i-1]
			} else {
				in[i] = byte(rng.Intn(256))
			}
		}
		comp := packBits(nil, in)
		if got := unpackBits(t, comp); !bytes.Equal(got, in) {
			t.Fatalf("trial %d: round trip mismatch", trial)
		}
	}
}

func TestPackBitsRunCaps(t *testing.T) {
	// a 200-byte run must split at the 127 cap
	comp := packBits(nil, bytes.Repeat([]byte{0xAA}, 200))
	if comp[0] != byte(257-127) || comp[1] != 0xAA {
		t.Errorf("first run header = %#x %#x, want %#x 0xAA", comp[0], comp[1], byte(257-127))
	}
	if comp[2] != byte(257-73) || comp[3] != 0xAA {
		t.Errorf("second run header = %#x %#x, want %#x 0xAA", comp[2], comp[3], byte(257-73))
	}
	if len(comp) != 4 {
		t.Errorf("compressed length = %d, want 4", len(comp))
	}
}

func TestPackBitsWorstCase(t *testing.T) {
	// bytes that never equal their neighbour stay literal and fit the
	// 2n+2 bound
	in := make([]byte, 256)
	for i := range in {
		in[i] = byte(i)
	}
	comp := packBits(nil, in)
	if len(comp) > 2*len(in)+2 {
		t.Errorf("compressed %d bytes to %d, beyond 2n+2 bound", len(in), len(comp))
	}
}
