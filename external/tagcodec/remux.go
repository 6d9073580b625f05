package tagcodec

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/foxseedlab/tunesmith/internal/files"
	"github.com/foxseedlab/tunesmith/internal/media"
)

const (
	defaultRemuxTimeout = 2 * time.Minute
	maxDiagnosticLen    = 1024
)

// commandRunner executes an external tool and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Remux handles Ogg and MP4 files. Tags are read in process and written by
// an ffmpeg stream copy that takes its metadata from an ffmetadata file.
type Remux struct {
	binary  string
	timeout time.Duration
	run     commandRunner
}

func NewRemux(binary string, timeout time.Duration) *Remux {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = defaultRemuxTimeout
	}
	return &Remux{binary: binary, timeout: timeout, run: defaultCommandRunner}
}

// WithCommandRunner replaces process execution, for tests.
func (r *Remux) WithCommandRunner(run commandRunner) {
	if run != nil {
		r.run = run
	}
}

func (r *Remux) Read(path string) (media.TagSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return media.TagSet{}, &media.TagError{Kind: media.TagUnreadable, Path: path, Err: err}
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if errors.Is(err, tag.ErrNoTagsFound) {
		return media.TagSet{}, nil
	}
	if err != nil {
		return media.TagSet{}, &media.TagError{Kind: media.TagUnreadable, Path: path, Err: err}
	}

	tags := media.TagSet{
		Artist: m.Artist(),
		Title:  m.Title(),
		Album:  m.Album(),
		Genre:  m.Genre(),
		Year:   m.Year(),
	}
	tags.TrackNumber, _ = m.Track()
	tags.DiskNumber, _ = m.Disc()
	if m.Format() == tag.VORBIS {
		// Vorbis values are free text such as "3/12" or "2001-05-04".
		raw := m.Raw()
		tags.Year = leadingNumber(rawString(raw, "date"))
		tags.TrackNumber = leadingNumber(rawString(raw, "tracknumber"))
		tags.DiskNumber = leadingNumber(rawString(raw, "discnumber"))
	}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		tags.Artwork = pic.Data
	}
	return tags, nil
}

func (r *Remux) Write(path string, kind container, tags media.TagSet, artwork []byte) error {
	dir := filepath.Dir(path)
	var scratch []string
	defer func() {
		for _, p := range scratch {
			removeQuietly(p)
		}
	}()

	metadata := ffmetadata(kind, tags, artwork)
	metaPath, err := writeScratch(dir, ".tags-*.txt", []byte(metadata))
	if err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	scratch = append(scratch, metaPath)

	var coverPath string
	if kind == containerMP4 && len(artwork) > 0 {
		coverPath, err = writeScratch(dir, ".cover-*"+imageExt(artwork), artwork)
		if err != nil {
			return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
		}
		scratch = append(scratch, coverPath)
	}

	partial := files.PartialPath(path)
	scratch = append(scratch, partial)
	if err := r.exec(remuxArgs(kind, path, metaPath, coverPath, partial)); err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	if _, err := os.Stat(partial); err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: fmt.Errorf("no output produced: %w", err)}
	}
	if err := os.Rename(partial, path); err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	return nil
}

func (r *Remux) exec(args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	slog.Debug("executing ffmpeg", "op", "write tags", "args", strings.Join(args, " "))
	output, err := r.run(ctx, r.binary, args...)
	if err == nil {
		return nil
	}
	diagnostic := strings.TrimSpace(string(output))
	if len(diagnostic) > maxDiagnosticLen {
		diagnostic = diagnostic[len(diagnostic)-maxDiagnosticLen:]
	}
	return fmt.Errorf("ffmpeg: %w: %s", err, diagnostic)
}

// remuxArgs copies every stream unchanged. MP4 keeps the existing cover
// stream unless a new one is supplied; Ogg carries the cover as a comment.
func remuxArgs(kind container, src, metaPath, coverPath, dest string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y",
		"-i", src,
		"-f", "ffmetadata", "-i", metaPath,
	}
	switch kind {
	case containerMP4:
		if coverPath != "" {
			args = append(args, "-i", coverPath, "-map", "0:a", "-map", "2:v", "-disposition:v:0", "attached_pic")
		} else {
			args = append(args, "-map", "0")
		}
		args = append(args, "-c", "copy", "-map_metadata", "1", "-f", "mp4")
	default:
		args = append(args, "-map", "0:a", "-c", "copy", "-map_metadata", "1", "-map_metadata:s:a", "1:g", "-f", "ogg")
	}
	return append(args, dest)
}

// ffmetadata renders tags in ffmpeg's metadata file format. Empty fields
// are left out so they are cleared on write.
func ffmetadata(kind container, tags media.TagSet, artwork []byte) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	entry := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(escapeMetadata(value))
		b.WriteByte('\n')
	}
	entry("artist", tags.Artist)
	entry("title", tags.Title)
	entry("album", tags.Album)
	entry("genre", tags.Genre)
	entry("date", positive(tags.Year))
	entry("track", positive(tags.TrackNumber))
	entry("disc", positive(tags.DiskNumber))
	if kind == containerOgg && len(artwork) > 0 {
		block := coverPicture(artwork).Marshal()
		entry("METADATA_BLOCK_PICTURE", base64.StdEncoding.EncodeToString(block.Data))
	}
	return b.String()
}

func escapeMetadata(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '=', ';', '#', '\\', '\n':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rawString(raw map[string]interface{}, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func imageExt(data []byte) string {
	if http.DetectContentType(data) == "image/png" {
		return ".png"
	}
	return ".jpg"
}

func writeScratch(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		removeQuietly(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		removeQuietly(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove scratch file", "path", path, "error", err)
	}
}
