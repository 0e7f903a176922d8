package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/hszk-dev/vidbrief/internal/executor"
)

// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
var ErrFFmpegNotFound = errors.New("ffmpeg executable not found")

// FFmpegConfig holds configuration for the FFmpeg audio extractor.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// SampleRate is the output sample rate in Hz.
	// Default: 16000
	SampleRate int

	// Channels is the number of output audio channels.
	// Default: 1
	Channels int

	// AudioCodec is the PCM codec of the WAV output.
	// Default: pcm_s16le
	AudioCodec string
}

// DefaultFFmpegConfig returns an FFmpegConfig suited to speech recognition input.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath: "ffmpeg",
		SampleRate: 16000,
		Channels:   1,
		AudioCodec: "pcm_s16le",
	}
}

// ResolveFFmpegPath locates the ffmpeg binary.
// A configured path must exist; otherwise ffmpeg is looked up on PATH.
func ResolveFFmpegPath(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("%w: FFMPEG_BIN is set to %q but the file does not exist", ErrFFmpegNotFound, configured)
		}
		return configured, nil
	}

	discovered, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: set FFMPEG_BIN or add ffmpeg to PATH", ErrFFmpegNotFound)
	}
	return discovered, nil
}

// FFmpegExtractor implements AudioExtractor using FFmpeg CLI.
type FFmpegExtractor struct {
	config FFmpegConfig
	exec   executor.Executor
}

// Compile-time verification that FFmpegExtractor implements AudioExtractor.
var _ AudioExtractor = (*FFmpegExtractor)(nil)

// NewFFmpegExtractor creates a new FFmpeg-based audio extractor.
func NewFFmpegExtractor(cfg FFmpegConfig, runner executor.Executor) *FFmpegExtractor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &FFmpegExtractor{
		config: cfg,
		exec:   runner,
	}
}

// ExtractAudio runs FFmpeg as a subprocess and waits for completion.
func (t *FFmpegExtractor) ExtractAudio(ctx context.Context, inputPath, outputPath string) error {
	if err := t.validateInput(inputPath); err != nil {
		return err
	}

	if err := t.validateOutputDir(filepath.Dir(outputPath)); err != nil {
		return err
	}

	args := t.buildFFmpegArgs(inputPath, outputPath)

	if _, err := t.exec.Run(ctx, t.config.FFmpegPath, args...); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("audio extraction cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced an empty file: %s", outputPath)
	}

	return nil
}

// validateInput checks if the input file exists and is readable.
func (t *FFmpegExtractor) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}

	return nil
}

// validateOutputDir checks if the output directory exists.
func (t *FFmpegExtractor) validateOutputDir(outputDir string) error {
	info, err := os.Stat(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", outputDir)
		}
		return fmt.Errorf("failed to access output directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", outputDir)
	}

	return nil
}

// buildFFmpegArgs constructs the FFmpeg command arguments.
func (t *FFmpegExtractor) buildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-y", // Overwrite output files without asking
		"-i", inputPath,
		"-vn", // Drop the video stream
		"-ac", strconv.Itoa(t.config.Channels),
		"-ar", strconv.Itoa(t.config.SampleRate),
		"-c:a", t.config.AudioCodec,
		"-f", "wav",
		outputPath,
	}
}
