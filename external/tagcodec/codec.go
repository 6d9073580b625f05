package tagcodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/foxseedlab/tunesmith/internal/media"
)

type container int

const (
	containerUnknown container = iota
	containerMPEG
	containerFLAC
	containerOgg
	containerMP4
)

func (c container) String() string {
	switch c {
	case containerMPEG:
		return "mpeg"
	case containerFLAC:
		return "flac"
	case containerOgg:
		return "ogg"
	case containerMP4:
		return "mp4"
	default:
		return "unknown"
	}
}

var errUnsupportedContainer = errors.New("unsupported container")

// Codec picks the tag format from the file's leading bytes: ID3v2 for MPEG
// audio, Vorbis comments for FLAC, and an ffmpeg remux for Ogg and MP4.
type Codec struct {
	id3   *ID3
	flac  *FLAC
	remux *Remux
}

func NewCodec(id3 *ID3, flac *FLAC, remux *Remux) *Codec {
	return &Codec{id3: id3, flac: flac, remux: remux}
}

func (c *Codec) Read(path string) (media.TagSet, error) {
	kind, err := sniff(path)
	if err != nil {
		return media.TagSet{}, &media.TagError{Kind: media.TagUnreadable, Path: path, Err: err}
	}
	switch kind {
	case containerMPEG:
		return c.id3.Read(path)
	case containerFLAC:
		return c.flac.Read(path)
	default:
		return c.remux.Read(path)
	}
}

func (c *Codec) Write(path string, tags media.TagSet, artwork []byte) error {
	kind, err := sniff(path)
	if err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	switch kind {
	case containerMPEG:
		return c.id3.Write(path, tags, artwork)
	case containerFLAC:
		return c.flac.Write(path, tags, artwork)
	default:
		return c.remux.Write(path, kind, tags, artwork)
	}
}

// sniff identifies the container from the first bytes of the file.
func sniff(path string) (container, error) {
	f, err := os.Open(path)
	if err != nil {
		return containerUnknown, err
	}
	defer f.Close()

	head := make([]byte, 12)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return containerUnknown, fmt.Errorf("%w: %v", errUnsupportedContainer, err)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, []byte("ID3")):
		return containerMPEG, nil
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return containerMPEG, nil
	case bytes.HasPrefix(head, []byte("fLaC")):
		return containerFLAC, nil
	case bytes.HasPrefix(head, []byte("OggS")):
		return containerOgg, nil
	case len(head) >= 8 && string(head[4:8]) == "ftyp":
		return containerMP4, nil
	}
	return containerUnknown, errUnsupportedContainer
}
