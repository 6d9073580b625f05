package transcoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/tunesmith/internal/files"
	"github.com/foxseedlab/tunesmith/internal/media"
)

const maxDiagnosticLen = 2048

// commandRunner executes an external tool and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type FFmpeg struct {
	binary      string
	timeout     time.Duration
	bitrateKbps int
	verifier    media.VoiceNoteVerifier
	run         commandRunner
}

func NewFFmpeg(binary string, timeout time.Duration, bitrateKbps int, verifier media.VoiceNoteVerifier) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		binary:      binary,
		timeout:     timeout,
		bitrateKbps: bitrateKbps,
		verifier:    verifier,
		run:         defaultCommandRunner,
	}
}

// WithCommandRunner replaces process execution, for tests.
func (f *FFmpeg) WithCommandRunner(r commandRunner) {
	if r != nil {
		f.run = r
	}
}

// CutRange copies [startSec, endSec) of the source without re-encoding.
func (f *FFmpeg) CutRange(ctx context.Context, sourcePath string, startSec, endSec int) (string, error) {
	const op = "cut range"
	if startSec < 0 || endSec <= startSec {
		return "", &media.TranscodeError{Kind: media.ToolFailure, Op: op, Err: fmt.Errorf("invalid range %d-%d", startSec, endSec)}
	}
	final := files.DerivedPath(sourcePath, files.KindCut)
	partial := files.PartialPath(final)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", strconv.Itoa(startSec),
		"-t", strconv.Itoa(endSec - startSec),
		"-i", sourcePath,
		"-acodec", "copy",
		partial,
	}
	if err := f.exec(ctx, op, args...); err != nil {
		removeQuietly(partial)
		return "", err
	}
	if err := commit(op, partial, final); err != nil {
		return "", err
	}
	return final, nil
}

// ToVoiceNote downmixes to mono, then encodes opus in ogg. Only the final
// file is ever visible under its real name.
func (f *FFmpeg) ToVoiceNote(ctx context.Context, sourcePath string) (string, error) {
	const op = "voice note"
	final := files.DerivedPath(sourcePath, files.KindVoice)
	mono := files.PartialPath(strings.TrimSuffix(final, ".ogg") + ".wav")
	partial := files.PartialPath(final)
	defer removeQuietly(mono)

	err := f.exec(ctx, op, "-y", "-hide_banner", "-loglevel", "error",
		"-i", sourcePath, "-map", "0:a", "-ac", "1", mono)
	if err != nil {
		return "", err
	}
	err = f.exec(ctx, op, "-y", "-hide_banner", "-loglevel", "error",
		"-i", mono,
		"-c:a", "libopus",
		"-b:a", fmt.Sprintf("%dk", f.bitrateKbps),
		"-vbr", "off",
		"-application", "voip",
		partial)
	if err != nil {
		removeQuietly(partial)
		return "", err
	}
	if f.verifier != nil {
		if err := f.verifier.Verify(partial); err != nil {
			removeQuietly(partial)
			return "", &media.TranscodeError{Kind: media.ToolFailure, Op: op, Err: fmt.Errorf("verify output: %w", err)}
		}
	}
	if err := commit(op, partial, final); err != nil {
		return "", err
	}
	return final, nil
}

func (f *FFmpeg) Reencode(_ context.Context, _ string, _ int) (string, error) {
	return "", &media.TranscodeError{Kind: media.NotImplemented, Op: "reencode"}
}

func (f *FFmpeg) exec(ctx context.Context, op string, args ...string) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	slog.Debug("executing ffmpeg", "op", op, "args", strings.Join(args, " "))
	output, err := f.run(ctx, f.binary, args...)
	if err == nil {
		return nil
	}
	diagnostic := trimDiagnostic(output)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &media.TranscodeError{Kind: media.Timeout, Op: op, Diagnostic: diagnostic, Err: ctx.Err()}
	}
	return &media.TranscodeError{Kind: media.ToolFailure, Op: op, Diagnostic: diagnostic, Err: err}
}

func commit(op, partial, final string) error {
	if _, err := os.Stat(partial); err != nil {
		return &media.TranscodeError{Kind: media.ToolFailure, Op: op, Err: fmt.Errorf("no output produced: %w", err)}
	}
	if err := os.Rename(partial, final); err != nil {
		removeQuietly(partial)
		return &media.TranscodeError{Kind: media.ToolFailure, Op: op, Err: fmt.Errorf("publish output: %w", err)}
	}
	return nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove intermediate file", "path", path, "error", err)
	}
}

func trimDiagnostic(output []byte) string {
	s := strings.TrimSpace(string(output))
	if len(s) > maxDiagnosticLen {
		s = s[len(s)-maxDiagnosticLen:]
	}
	return s
}
