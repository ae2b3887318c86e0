package audio

import "context"

// Block is one capture callback's worth of samples, one chunk per
// channel. Both chunks always have the same length.
type Block struct {
	Left  []float32
	Right []float32
}

// Capture defines the interface for stereo audio capture
type Capture interface {
	Start(ctx context.Context, deviceID string, sampleRate, blockSize int, out chan<- Block) error
	Pause() error
	Resume() error
	Stop() error
	ListDevices() ([]Device, error)
	Close() error
}

// Device represents an audio input device
type Device struct {
	ID      string
	Name    string
	Default bool
}
