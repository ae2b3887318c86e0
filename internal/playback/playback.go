package playback

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/petems/wavcap/internal/wav"
)

// Play renders a WAV artifact through the default output device and
// blocks until playback finishes or the context is cancelled.
func Play(ctx context.Context, data []byte) error {
	info, err := wav.Parse(data)
	if err != nil {
		return fmt.Errorf("cannot play artifact: %w", err)
	}
	if info.BitsPerSample != 16 {
		return fmt.Errorf("unsupported bit depth for playback: %d", info.BitsPerSample)
	}

	payload, err := wav.Payload(data)
	if err != nil {
		return err
	}

	op := &oto.NewContextOptions{
		SampleRate:   info.SampleRate,
		ChannelCount: info.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create audio output context: %w", err)
	}

	select {
	case <-readyChan:
	case <-ctx.Done():
		return ctx.Err()
	}

	player := otoCtx.NewPlayer(bytes.NewReader(payload))
	defer player.Close()
	player.Play()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	return nil
}
