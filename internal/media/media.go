package media

import "context"

// TagSet is the editable metadata of an audio file. Numeric fields are zero
// when unset.
type TagSet struct {
	Artist      string
	Title       string
	Album       string
	Genre       string
	Year        int
	DiskNumber  int
	TrackNumber int
	Artwork     []byte
}

type TagCodec interface {
	Read(path string) (TagSet, error)
	// Write overwrites every tag field of the file at path. Artwork is only
	// replaced when artwork is non-empty.
	Write(path string, tags TagSet, artwork []byte) error
}

type Transcoder interface {
	CutRange(ctx context.Context, sourcePath string, startSec, endSec int) (string, error)
	ToVoiceNote(ctx context.Context, sourcePath string) (string, error)
	Reencode(ctx context.Context, sourcePath string, bitrateKbps int) (string, error)
}

type Prober interface {
	DurationSeconds(ctx context.Context, path string) (int, error)
}

type VoiceNoteVerifier interface {
	Verify(path string) error
}
