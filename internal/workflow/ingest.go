package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/foxseedlab/tunesmith/internal/chat"
	"github.com/foxseedlab/tunesmith/internal/files"
	"github.com/foxseedlab/tunesmith/internal/i18n"
	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/foxseedlab/tunesmith/internal/session"
)

func (t *turn) handleAudio() error {
	if t.ev.Media == nil {
		return t.replyKey(i18n.StartOverMessage, nil)
	}
	t.notify(chat.ActivityTyping)

	in, err := t.ingest(t.ctx, *t.ev.Media)
	if err != nil {
		return t.replyError(err, nil)
	}
	t.files.Release(t.s.Ingest(in)...)
	t.log.Info("audio ingested", "path", in.AudioPath, "duration_sec", in.DurationSeconds)

	if err := t.users.IncrementUsageCounter(t.ctx, t.ev.UserID); err != nil {
		t.log.Warn("failed to increment usage counter", "error", err)
	}
	return t.replyKey(i18n.AskWhichModule, moduleKeyboard(t.tr))
}

// ingest downloads the upload and reads its tags. On failure nothing is left
// on disk and the session is untouched.
func (t *turn) ingest(ctx context.Context, ref chat.MediaRef) (session.Ingest, error) {
	limit := t.cfg.MaxAudioDurationSec
	if ref.DurationSeconds >= limit {
		return session.Ingest{}, &IngestError{Kind: IngestTooLarge, Err: fmt.Errorf("duration %ds", ref.DurationSeconds)}
	}
	if err := t.files.EnsureUserDir(t.ev.UserID); err != nil {
		return session.Ingest{}, &IngestError{Kind: IngestDirectoryCreateFailed, Err: err}
	}

	path := t.files.AllocatePath(t.ev.UserID, files.KindAudio, mediaExt(ref))
	if err := t.messenger.Download(ctx, ref, path); err != nil {
		t.files.Release(path)
		return session.Ingest{}, &IngestError{Kind: IngestDownloadFailed, Err: err}
	}

	duration := ref.DurationSeconds
	if duration == 0 {
		probed, err := t.prober.DurationSeconds(ctx, path)
		if err != nil {
			t.files.Release(path)
			return session.Ingest{}, &media.TagError{Kind: media.TagUnreadable, Path: path, Err: err}
		}
		if probed >= limit {
			t.files.Release(path)
			return session.Ingest{}, &IngestError{Kind: IngestTooLarge, Err: fmt.Errorf("probed duration %ds", probed)}
		}
		duration = probed
	}

	tags, err := t.codec.Read(path)
	if err != nil {
		t.files.Release(path)
		return session.Ingest{}, err
	}

	var artworkPath string
	if len(tags.Artwork) > 0 {
		artworkPath = files.DerivedPath(path, files.KindArtwork)
		if err := os.WriteFile(artworkPath, tags.Artwork, 0o644); err != nil {
			t.log.Warn("failed to extract artwork", "path", artworkPath, "error", err)
			t.files.Release(artworkPath)
			artworkPath = ""
		}
	}

	return session.Ingest{
		AudioPath:       path,
		ArtworkPath:     artworkPath,
		DurationSeconds: duration,
		MessageRef:      t.ev.MessageID,
		Tags:            tags,
	}, nil
}

func (t *turn) handlePhoto() error {
	if !t.s.HasIngestedAudio() {
		return t.replyKey(i18n.DefaultMessage, nil)
	}
	if !t.s.AwaitingArtwork() {
		if t.s.ActiveModule == session.ModuleTagEditor {
			return t.replyKey(i18n.AskWhichTag, tagKeyboard(t.tr))
		}
		return t.showModuleSelector()
	}
	if t.ev.Media == nil {
		return t.replyKey(i18n.AskForAlbumArt, tagKeyboard(t.tr))
	}

	path := t.files.AllocatePath(t.ev.UserID, files.KindArtwork, "")
	if err := t.messenger.Download(t.ctx, *t.ev.Media, path); err != nil {
		t.files.Release(path)
		t.log.Warn("failed to download artwork", "error", err)
		return t.replyKey(i18n.ErrDownloadPhoto, nil)
	}

	previous, err := t.s.SetPendingArtwork(path)
	if err != nil {
		t.files.Release(path)
		return err
	}
	t.files.Release(previous)
	return t.replyText(acknowledgement(t.tr, i18n.AlbumArtChanged), tagKeyboard(t.tr))
}

var audioExtByMime = map[string]string{
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/mp4":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/ogg":    ".ogg",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
}

func mediaExt(ref chat.MediaRef) string {
	if ext := filepath.Ext(ref.FileName); ext != "" {
		return ext
	}
	return audioExtByMime[ref.MimeType]
}
