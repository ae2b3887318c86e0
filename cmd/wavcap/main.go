package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/petems/wavcap/internal/audio"
	"github.com/petems/wavcap/internal/catalog"
	"github.com/petems/wavcap/internal/config"
	"github.com/petems/wavcap/internal/logging"
	"github.com/petems/wavcap/internal/permissions"
	"github.com/petems/wavcap/internal/playback"
	"github.com/petems/wavcap/internal/publish"
	"github.com/petems/wavcap/internal/record"
	"github.com/petems/wavcap/internal/wav"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	listDevices := pflag.Bool("list-devices", false, "list audio input devices and exit")
	device := pflag.String("device", "", "input device name (default: system default)")
	rate := pflag.Int("rate", 0, "sample rate in Hz (default: from config)")
	blockSize := pflag.Int("block", 0, "samples per capture block (default: from config)")
	duration := pflag.Duration("duration", 0, "stop automatically after this long (0: record until Ctrl+C)")
	output := pflag.String("output", "", "output WAV path (default: timestamped file in the configured directory)")
	play := pflag.Bool("play", false, "play the recording back after stopping")
	copyB64 := pflag.Bool("copy", false, "copy the base64-encoded artifact to the clipboard")
	publishFlag := pflag.Bool("publish", false, "publish the artifact to the configured MQTT broker")
	logLevel := pflag.String("log-level", "", "log level: debug, info, warn, error")
	version := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *version {
		fmt.Printf("wavcap %s (%s)\n", Version, Commit)
		return
	}

	// Load config from XDG/Library/AppData, then apply flag overrides
	cfg, err := config.Load()
	if err != nil {
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *device != "" {
		cfg.Audio.DeviceID = *device
	}
	if *rate > 0 {
		cfg.Audio.SampleRate = *rate
	}
	if *blockSize > 0 {
		cfg.Audio.BlockSize = *blockSize
	}
	if *publishFlag {
		cfg.MQTT.Enabled = true
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log := logging.NewWithLevel(cfg.LogLevel)

	// Capability and permission probe before touching the device
	if err := permissions.EnsureMicrophone(); err != nil {
		log.Fatal().Err(err).Msg("Microphone permission not granted")
	}
	if err := audio.Available(); err != nil {
		log.Fatal().Err(err).Msg("Audio capture unavailable")
	}

	capture, err := audio.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio")
	}
	defer capture.Close()

	if *listDevices {
		devices, err := capture.ListDevices()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list devices")
		}
		for _, d := range devices {
			if d.Default {
				color.Green("* %s (default)", d.Name)
			} else {
				fmt.Println("  " + d.Name)
			}
		}
		return
	}

	session := record.New(record.Config{
		Capture:    capture,
		DeviceID:   cfg.Audio.DeviceID,
		SampleRate: cfg.Audio.SampleRate,
		BlockSize:  cfg.Audio.BlockSize,
		Logger:     log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start recording")
	}

	color.Green("Recording at %d Hz... press Ctrl+C to stop", session.SampleRate())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if *duration > 0 {
		select {
		case <-sigChan:
		case <-time.After(*duration):
		}
	} else {
		<-sigChan
	}

	if err := session.Stop(); err != nil {
		log.Error().Err(err).Msg("Stop error")
	}

	artifact, err := session.Artifact()
	if err != nil {
		log.Fatal().Err(err).Msg("Nothing was recorded")
	}

	info, err := wav.Parse(artifact)
	if err != nil {
		log.Fatal().Err(err).Msg("Artifact failed validation")
	}
	color.Green("Recorded %.1fs (%d bytes)", info.Duration, len(artifact))

	path := *output
	if path == "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create output directory")
		}
		name := fmt.Sprintf("recording_%s.wav", time.Now().Format("20060102_150405"))
		path = filepath.Join(cfg.Output.Dir, name)
	}
	if err := session.Save(path); err != nil {
		log.Fatal().Err(err).Msg("Failed to save recording")
	}
	fmt.Println("Saved " + path)

	if err := recordInCatalog(cfg, session, path, info, len(artifact)); err != nil {
		log.Error().Err(err).Msg("Failed to update recording catalog")
	}

	if *copyB64 {
		encoded, err := session.ArtifactBase64()
		if err == nil {
			err = clipboard.WriteAll(encoded)
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to copy base64 artifact to clipboard")
		} else {
			fmt.Println("Copied base64 artifact to clipboard")
		}
	}

	if cfg.MQTT.Enabled {
		if err := publishArtifact(cfg, session, info, artifact, log); err != nil {
			log.Error().Err(err).Msg("Failed to publish recording")
		}
	}

	if *play {
		color.Cyan("Playing back...")
		if err := playback.Play(ctx, artifact); err != nil {
			log.Error().Err(err).Msg("Playback error")
		}
	}
}

func recordInCatalog(cfg *config.Config, session *record.Session, path string, info *wav.Info, size int) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Catalog.Path), 0755); err != nil {
		return err
	}
	cat, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	defer cat.Close()

	return cat.Add(catalog.Entry{
		ID:         session.ID().String(),
		Path:       path,
		SampleRate: info.SampleRate,
		Samples:    session.TotalSamples(),
		Duration:   info.Duration,
		Bytes:      size,
		CreatedAt:  time.Now(),
	})
}

func publishArtifact(cfg *config.Config, session *record.Session, info *wav.Info, artifact []byte, log zerolog.Logger) error {
	pub, err := publish.New(cfg.MQTT, log)
	if err != nil {
		return err
	}
	if pub == nil {
		return nil
	}
	defer pub.Close()

	encoded, err := session.ArtifactBase64()
	if err != nil {
		return err
	}

	return pub.Publish(publish.Message{
		SessionID:  session.ID().String(),
		Timestamp:  time.Now(),
		Format:     "wav",
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		Duration:   info.Duration,
		SizeBytes:  len(artifact),
		Data:       encoded,
	})
}
