package record

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/petems/wavcap/internal/audio"
	"github.com/rs/zerolog"
)

// Mock capture for testing
type mockCapture struct {
	mu      sync.Mutex
	out     chan<- audio.Block
	paused  bool
	stopped bool
	closed  bool
}

func (m *mockCapture) Start(ctx context.Context, deviceID string, sampleRate, blockSize int, out chan<- audio.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = out
	return nil
}

func (m *mockCapture) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	return nil
}

func (m *mockCapture) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	return nil
}

func (m *mockCapture) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockCapture) ListDevices() ([]audio.Device, error) {
	return []audio.Device{{ID: "default", Name: "Default", Default: true}}, nil
}

func (m *mockCapture) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// deliver simulates one capture callback cycle.
func (m *mockCapture) deliver(left, right []float32) {
	m.mu.Lock()
	out := m.out
	paused := m.paused
	m.mu.Unlock()
	if paused {
		return
	}
	out <- audio.Block{Left: left, Right: right}
}

func newTestSession(capture audio.Capture) *Session {
	return New(Config{
		Capture:    capture,
		DeviceID:   "default",
		SampleRate: 44100,
		BlockSize:  4,
		Logger:     zerolog.Nop(),
	})
}

// waitForSamples polls until the session has buffered n samples.
func waitForSamples(t *testing.T, s *Session, n int) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if s.TotalSamples() >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d samples, have %d", n, s.TotalSamples())
}

func TestSessionLifecycle(t *testing.T) {
	capture := &mockCapture{}
	s := newTestSession(capture)

	if s.State() != StateIdle {
		t.Errorf("new session should be idle, got %s", s.State())
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.State() != StateRecording {
		t.Errorf("expected recording state, got %s", s.State())
	}

	if err := s.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if s.State() != StatePaused {
		t.Errorf("expected paused state, got %s", s.State())
	}

	if err := s.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if s.State() != StateRecording {
		t.Errorf("expected recording state after resume, got %s", s.State())
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.State() != StateStopped {
		t.Errorf("expected stopped state, got %s", s.State())
	}
	if !capture.stopped {
		t.Error("Stop should release the capture device")
	}
}

func TestSessionInvalidTransitions(t *testing.T) {
	s := newTestSession(&mockCapture{})

	if err := s.Pause(); err == nil {
		t.Error("expected error pausing an idle session")
	}
	if err := s.Resume(); err == nil {
		t.Error("expected error resuming an idle session")
	}
	if err := s.Stop(); err == nil {
		t.Error("expected error stopping an idle session")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error starting an already-recording session")
	}
	if err := s.Resume(); err == nil {
		t.Error("expected error resuming while recording")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error restarting a stopped session")
	}
}

func TestArtifactWithNoSamples(t *testing.T) {
	s := newTestSession(&mockCapture{})

	if _, err := s.Artifact(); err != ErrNoSamples {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
	if _, err := s.ArtifactBase64(); err != ErrNoSamples {
		t.Errorf("expected ErrNoSamples from base64 export, got %v", err)
	}
}

func TestArtifactAfterStop(t *testing.T) {
	capture := &mockCapture{}
	s := newTestSession(capture)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	capture.deliver([]float32{0.1, 0.2, 0.3, 0.4}, []float32{0.5, 0.6, 0.7, 0.8})
	waitForSamples(t, s, 4)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	data, err := s.Artifact()
	if err != nil {
		t.Fatalf("Artifact failed: %v", err)
	}

	// 4 stereo pairs: 44-byte header + 16 payload bytes
	if len(data) != 60 {
		t.Errorf("expected 60-byte artifact, got %d", len(data))
	}
}

func TestArtifactIsIdempotent(t *testing.T) {
	capture := &mockCapture{}
	s := newTestSession(capture)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	capture.deliver([]float32{0.5, -0.5, 0.25, -0.25}, []float32{1.0, -1.0, 0.0, 0.5})
	waitForSamples(t, s, 4)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	first, err := s.Artifact()
	if err != nil {
		t.Fatalf("first Artifact failed: %v", err)
	}
	second, err := s.Artifact()
	if err != nil {
		t.Fatalf("second Artifact failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("exporting twice from the same state must yield byte-identical artifacts")
	}
}

func TestArtifactMidRecordingIsSnapshot(t *testing.T) {
	capture := &mockCapture{}
	s := newTestSession(capture)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	capture.deliver([]float32{0.1, 0.2, 0.3, 0.4}, []float32{0.1, 0.2, 0.3, 0.4})
	waitForSamples(t, s, 4)

	snapshot, err := s.Artifact()
	if err != nil {
		t.Fatalf("mid-recording Artifact failed: %v", err)
	}
	if s.State() != StateRecording {
		t.Error("export must not change session state")
	}

	capture.deliver([]float32{0.5, 0.6, 0.7, 0.8}, []float32{0.5, 0.6, 0.7, 0.8})
	waitForSamples(t, s, 8)

	if len(snapshot) != 60 {
		t.Errorf("snapshot should still cover 4 pairs (60 bytes), got %d", len(snapshot))
	}

	full, err := s.Artifact()
	if err != nil {
		t.Fatalf("Artifact failed: %v", err)
	}
	if len(full) != 76 {
		t.Errorf("expected 76-byte artifact for 8 pairs, got %d", len(full))
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestPauseResumeSampleAccounting(t *testing.T) {
	capture := &mockCapture{}
	s := newTestSession(capture)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	capture.deliver([]float32{1, 2, 3, 4}, []float32{1, 2, 3, 4})
	capture.deliver([]float32{5, 6, 7, 8}, []float32{5, 6, 7, 8})
	waitForSamples(t, s, 8)

	if err := s.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	// Delivery while paused is suppressed at the capture boundary.
	capture.deliver([]float32{0, 0, 0, 0}, []float32{0, 0, 0, 0})
	time.Sleep(50 * time.Millisecond)
	if got := s.TotalSamples(); got != 8 {
		t.Errorf("paused session must not accumulate samples, got %d", got)
	}

	if err := s.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	capture.deliver([]float32{9, 10, 11, 12}, []float32{9, 10, 11, 12})
	waitForSamples(t, s, 12)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := s.TotalSamples(); got != 12 {
		t.Errorf("expected exactly 12 samples across the pause boundary, got %d", got)
	}
}

func TestCloseReleasesProcessing(t *testing.T) {
	capture := &mockCapture{}
	s := newTestSession(capture)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	capture.deliver([]float32{0.1, 0.2, 0.3, 0.4}, []float32{0.1, 0.2, 0.3, 0.4})
	waitForSamples(t, s, 4)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !capture.closed {
		t.Error("Close should tear down capture resources")
	}

	// Buffered samples survive a close, and a later stop is still legal.
	if _, err := s.Artifact(); err != nil {
		t.Errorf("Artifact after Close failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop after Close failed: %v", err)
	}
	if !capture.stopped {
		t.Error("Stop after Close should still release the device")
	}
}

func TestArtifactBase64(t *testing.T) {
	capture := &mockCapture{}
	s := newTestSession(capture)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	capture.deliver([]float32{0.1, 0.2, 0.3, 0.4}, []float32{0.1, 0.2, 0.3, 0.4})
	waitForSamples(t, s, 4)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	encoded, err := s.ArtifactBase64()
	if err != nil {
		t.Fatalf("ArtifactBase64 failed: %v", err)
	}

	// 60 artifact bytes encode to 80 base64 characters
	if len(encoded) != 80 {
		t.Errorf("expected 80 base64 characters, got %d", len(encoded))
	}
	if encoded[:8] != "UklGRjQA" {
		t.Errorf("base64 artifact should start with encoded RIFF header, got %q", encoded[:8])
	}
}
