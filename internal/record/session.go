package record

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/petems/wavcap/internal/audio"
	"github.com/petems/wavcap/internal/wav"
	"github.com/rs/zerolog"
)

// ErrNoSamples is returned when an artifact is requested before any
// audio has been buffered.
var ErrNoSamples = errors.New("no recorded samples")

// State is the lifecycle state of a recording session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config carries the session's collaborators and capture parameters.
type Config struct {
	Capture    audio.Capture
	DeviceID   string
	SampleRate int // samples per second, default 44100
	BlockSize  int // samples per callback chunk, default 2048
	Logger     zerolog.Logger
}

// Session owns one recording's lifecycle: it wires capture blocks into
// the sample store and derives WAV artifacts on demand. Artifact export
// is legal in any state with buffered samples, including mid-recording,
// and never mutates the buffered data.
type Session struct {
	id      uuid.UUID
	capture audio.Capture
	log     zerolog.Logger

	deviceID   string
	sampleRate int
	blockSize  int

	mu     sync.Mutex
	state  State
	store  *Store
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle session.
func New(cfg Config) *Session {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 2048
	}

	return &Session{
		id:         uuid.New(),
		capture:    cfg.Capture,
		log:        cfg.Logger,
		deviceID:   cfg.DeviceID,
		sampleRate: cfg.SampleRate,
		blockSize:  cfg.BlockSize,
		store:      NewStore(),
		state:      StateIdle,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// SampleRate returns the session's capture sample rate.
func (s *Session) SampleRate() int {
	return s.sampleRate
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TotalSamples returns the per-channel sample count buffered so far.
func (s *Session) TotalSamples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.TotalSamples()
}

// Start begins buffering capture blocks. Only an idle session can
// start; a stopped session's device has been released and its buffered
// samples remain available for export only.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("cannot start recording from state %s", s.state)
	}

	s.store.Reset()

	captureCtx, cancel := context.WithCancel(ctx)
	out := make(chan audio.Block, 32)

	if err := s.capture.Start(captureCtx, s.deviceID, s.sampleRate, s.blockSize, out); err != nil {
		cancel()
		return fmt.Errorf("failed to start capture: %w", err)
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRecording

	go s.consume(captureCtx, out)

	s.log.Info().
		Str("session", s.id.String()).
		Str("device", s.deviceID).
		Int("sample_rate", s.sampleRate).
		Int("block_size", s.blockSize).
		Msg("Recording started")

	return nil
}

// consume is the only writer to the store. It runs until the capture
// context is cancelled.
func (s *Session) consume(ctx context.Context, in <-chan audio.Block) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case block := <-in:
			s.mu.Lock()
			s.store.Push(block)
			s.mu.Unlock()
		}
	}
}

// Pause suspends block delivery without discarding buffered samples.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return fmt.Errorf("cannot pause from state %s", s.state)
	}
	if err := s.capture.Pause(); err != nil {
		return fmt.Errorf("failed to pause capture: %w", err)
	}

	s.state = StatePaused
	s.log.Info().Str("session", s.id.String()).Int("samples", s.store.TotalSamples()).Msg("Recording paused")
	return nil
}

// Resume restarts block delivery after a pause.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return fmt.Errorf("cannot resume from state %s", s.state)
	}
	if err := s.capture.Resume(); err != nil {
		return fmt.Errorf("failed to resume capture: %w", err)
	}

	s.state = StateRecording
	s.log.Info().Str("session", s.id.String()).Msg("Recording resumed")
	return nil
}

// Stop releases the capture device. Buffered samples stay available
// for export; the session cannot record again.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording && s.state != StatePaused {
		return fmt.Errorf("cannot stop from state %s", s.state)
	}

	if s.cancel != nil {
		s.cancel()
	}
	err := s.capture.Stop()
	s.state = StateStopped

	s.log.Info().
		Str("session", s.id.String()).
		Int("samples", s.store.TotalSamples()).
		Msg("Recording stopped")

	if err != nil {
		return fmt.Errorf("failed to stop capture: %w", err)
	}
	return nil
}

// Close tears down audio processing resources. It does not discard
// buffered samples, and a stop after close is still legal.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	return s.capture.Close()
}

// Artifact encodes the buffered samples so far into a WAV byte buffer.
// The result is a snapshot: continued recording never invalidates it.
func (s *Session) Artifact() ([]byte, error) {
	s.mu.Lock()
	if s.store.TotalSamples() == 0 {
		s.mu.Unlock()
		return nil, ErrNoSamples
	}
	interleaved := s.store.Interleaved()
	s.mu.Unlock()

	return wav.Encode(interleaved, s.sampleRate)
}

// ArtifactBase64 returns the WAV artifact as a base64 string, suitable
// for embedding in a JSON payload.
func (s *Session) ArtifactBase64() (string, error) {
	data, err := s.Artifact()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Save writes the WAV artifact to a file.
func (s *Session) Save(path string) error {
	data, err := s.Artifact()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	s.log.Info().
		Str("session", s.id.String()).
		Str("path", path).
		Int("bytes", len(data)).
		Msg("Artifact saved")
	return nil
}
