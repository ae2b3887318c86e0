package audio

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

type portAudioCapture struct {
	stream *portaudio.Stream
	paused atomic.Bool
}

// New creates a new PortAudio-based stereo capture
func New() (Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioCapture{}, nil
}

// Available reports whether the host has a usable audio subsystem with
// at least one input device. It probes and tears down its own PortAudio
// context so it can be called before New.
func Available() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio subsystem unavailable: %w", err)
	}
	defer portaudio.Terminate()

	if _, err := portaudio.DefaultInputDevice(); err != nil {
		return fmt.Errorf("no input device available: %w", err)
	}
	return nil
}

func (p *portAudioCapture) Start(ctx context.Context, deviceID string, sampleRate, blockSize int, out chan<- Block) error {
	// Find device
	var device *portaudio.DeviceInfo
	if deviceID == "" {
		var err error
		device, err = portaudio.DefaultInputDevice()
		if err != nil {
			return fmt.Errorf("failed to get default input device: %w", err)
		}
	} else {
		devices, err := portaudio.Devices()
		if err != nil {
			return fmt.Errorf("failed to enumerate devices: %w", err)
		}
		for _, d := range devices {
			if d.Name == deviceID {
				device = d
				break
			}
		}
	}

	if device == nil {
		return fmt.Errorf("device not found: %s", deviceID)
	}
	if device.MaxInputChannels < 2 {
		return fmt.Errorf("device %s has no stereo input (%d channels)", device.Name, device.MaxInputChannels)
	}

	// Open stream: two channels, non-interleaved, fixed block size.
	// The callback receives one chunk per channel per cycle.
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 2,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: blockSize,
	}, func(in [][]float32) {
		if p.paused.Load() {
			return
		}
		select {
		case out <- copyBlock(in[0], in[1]):
		case <-ctx.Done():
		default:
			// Drop if channel full (backpressure)
		}
	})

	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}

	p.stream = stream
	p.paused.Store(false)

	if err := stream.Start(); err != nil {
		stream.Close()
		p.stream = nil
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	return nil
}

func (p *portAudioCapture) Pause() error {
	p.paused.Store(true)
	return nil
}

func (p *portAudioCapture) Resume() error {
	p.paused.Store(false)
	return nil
}

func (p *portAudioCapture) Stop() error {
	if p.stream != nil {
		if err := p.stream.Stop(); err != nil {
			return err
		}
		p.stream.Close()
		p.stream = nil
	}
	return nil
}

func (p *portAudioCapture) ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]Device, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, Device{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

func (p *portAudioCapture) Close() error {
	if p.stream != nil {
		p.stream.Close()
		p.stream = nil
	}
	portaudio.Terminate()
	return nil
}

// copyBlock snapshots the callback's channel buffers. PortAudio reuses
// them across cycles, so the block must not alias them.
func copyBlock(left, right []float32) Block {
	b := Block{
		Left:  make([]float32, len(left)),
		Right: make([]float32, len(right)),
	}
	copy(b.Left, left)
	copy(b.Right, right)
	return b
}
