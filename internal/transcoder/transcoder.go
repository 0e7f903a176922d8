package transcoder

import (
	"context"
)

// AudioExtractor defines the interface for pulling an audio track out of a video file.
type AudioExtractor interface {
	// ExtractAudio writes the audio track of inputPath to outputPath as 16 kHz mono
	// 16-bit PCM WAV, the format both transcription backends accept.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - inputPath: Path to the source video file
	//   - outputPath: Path of the WAV file to create; an existing file is overwritten
	//
	// The directory of outputPath must exist before calling this method.
	// Failures are not retried.
	ExtractAudio(ctx context.Context, inputPath, outputPath string) error
}
