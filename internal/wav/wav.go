package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	headerSize    = 44
	numChannels   = 2
	bitsPerSample = 16
)

// Header is the 44-byte RIFF/WAVE header for a PCM file with a single
// fmt and data chunk. All fields are little-endian on the wire.
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload bytes
}

// Encode frames interleaved stereo float samples (L,R,L,R,...) as a
// 16-bit PCM WAV file and returns the complete byte buffer.
//
// Samples are quantized as int16(s * 32767) with truncation toward
// zero. Input outside [-1.0, 1.0] is not clamped and wraps per
// two's-complement 16-bit truncation; producing in-range samples is the
// caller's responsibility.
func Encode(interleaved []float32, sampleRate int) ([]byte, error) {
	if len(interleaved) == 0 {
		return nil, fmt.Errorf("cannot encode empty sample buffer")
	}
	if len(interleaved)%numChannels != 0 {
		return nil, fmt.Errorf("interleaved stereo buffer must have even length, got %d", len(interleaved))
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(interleaved) * 2) // 2 bytes per sample

	header := Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * numChannels * bitsPerSample / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	pcm := make([]int16, len(interleaved))
	for i, s := range interleaved {
		pcm[i] = quantize(s)
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(pcm)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, pcm); err != nil {
		return nil, fmt.Errorf("failed to write PCM payload: %w", err)
	}

	return buf.Bytes(), nil
}

// quantize converts a float sample to 16-bit PCM. The int32 intermediate
// pins the out-of-range behavior to two's-complement wrapping rather
// than leaving the float-to-int16 conversion implementation-defined.
func quantize(s float32) int16 {
	return int16(int32(s * 32767))
}

// Info describes a parsed WAV header.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataSize      int
	Duration      float64
}

// Parse validates a WAV byte buffer and returns its header info.
func Parse(data []byte) (*Info, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", headerSize, len(data))
	}

	var header Header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("invalid WAV file: missing data chunk")
	}
	if header.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	}
	if header.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	frameSize := int(header.NumChannels) * int(header.BitsPerSample) / 8
	frames := int(header.Subchunk2Size) / frameSize

	return &Info{
		SampleRate:    int(header.SampleRate),
		Channels:      int(header.NumChannels),
		BitsPerSample: int(header.BitsPerSample),
		DataSize:      int(header.Subchunk2Size),
		Duration:      float64(frames) / float64(header.SampleRate),
	}, nil
}

// Payload returns the PCM data section of a WAV byte buffer.
func Payload(data []byte) ([]byte, error) {
	info, err := Parse(data)
	if err != nil {
		return nil, err
	}
	end := headerSize + info.DataSize
	if end > len(data) {
		end = len(data)
	}
	return data[headerSize:end], nil
}
