//go:build opus

package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/hraban/opus"
)

const (
	sampleRate      = 48000
	maxChannels     = 2
	frameSizeMs     = 120
	samplesPerFrame = sampleRate * frameSizeMs * maxChannels / 1000
)

// OpusVerifier decodes a finished voice note end to end so a broken encode is
// caught before it reaches the user.
type OpusVerifier struct{}

func NewOpusVerifier() media.VoiceNoteVerifier {
	return &OpusVerifier{}
}

func (v *OpusVerifier) Verify(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stream, err := opus.NewStream(f)
	if err != nil {
		return fmt.Errorf("open opus stream: %w", err)
	}
	defer stream.Close()

	pcm := make([]int16, samplesPerFrame)
	decoded := 0
	for {
		n, err := stream.Read(pcm)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("decode opus stream: %w", err)
		}
		decoded += n
	}
	if decoded == 0 {
		return errors.New("opus stream holds no samples")
	}
	return nil
}
