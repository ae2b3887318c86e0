package record

import (
	"fmt"

	"github.com/petems/wavcap/internal/audio"
)

// Store accumulates per-callback sample chunks for both channels of a
// recording. Chunks are held as delivered and only merged into
// contiguous buffers when an export asks for them, so a push is a
// single append per channel. Memory grows without bound for the
// lifetime of a session; that is the chosen resource policy, not a bug.
type Store struct {
	left  [][]float32
	right [][]float32
	total int
}

// NewStore creates an empty sample store.
func NewStore() *Store {
	return &Store{}
}

// Push appends one capture block. Both channel chunks are expected to
// have the session's fixed block length; the store does not police
// that, per the capture contract.
func (s *Store) Push(b audio.Block) {
	s.left = append(s.left, b.Left)
	s.right = append(s.right, b.Right)
	s.total += len(b.Left)
}

// TotalSamples returns the number of samples recorded per channel.
func (s *Store) TotalSamples() int {
	return s.total
}

// Reset discards all accumulated chunks for a fresh recording.
func (s *Store) Reset() {
	s.left = nil
	s.right = nil
	s.total = 0
}

// Interleaved merges both channel logs and returns a freshly allocated
// interleaved stereo buffer (L,R,L,R,...) of length 2*TotalSamples.
// The store's own chunks are never aliased, so continued recording
// cannot invalidate an exported buffer.
func (s *Store) Interleaved() []float32 {
	left := flatten(s.left, s.total)
	right := flatten(s.right, s.total)
	return interleave(left, right)
}

// flatten concatenates chunks in arrival order into a single buffer of
// exactly total samples. If total overstates the summed chunk lengths
// the tail stays zero-filled; that is silent padding, not an error.
func flatten(chunks [][]float32, total int) []float32 {
	merged := make([]float32, total)
	offset := 0
	for _, chunk := range chunks {
		copy(merged[offset:], chunk)
		offset += len(chunk)
	}
	return merged
}

// interleave combines two equal-length channel buffers into stereo
// sample order. Unequal lengths mean a producer invariant was violated
// upstream; that is a programmer error, so it panics rather than
// silently dropping samples.
func interleave(left, right []float32) []float32 {
	if len(left) != len(right) {
		panic(fmt.Sprintf("record: channel length mismatch: left=%d right=%d", len(left), len(right)))
	}

	out := make([]float32, 2*len(left))
	for i := range left {
		out[2*i] = left[i]
		out[2*i+1] = right[i]
	}
	return out
}
