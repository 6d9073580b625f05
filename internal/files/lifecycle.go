// Package files allocates and retires the per-user working files of a session.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

type Kind string

const (
	KindAudio   Kind = "audio"
	KindArtwork Kind = "artwork"
	KindCut     Kind = "cut"
	KindVoice   Kind = "voice"
)

func (k Kind) defaultExt() string {
	switch k {
	case KindArtwork:
		return ".jpg"
	case KindVoice:
		return ".ogg"
	default:
		return ".mp3"
	}
}

type Lifecycle struct {
	root    string
	counter atomic.Uint64
	now     func() time.Time
}

func NewLifecycle(root string) *Lifecycle {
	return &Lifecycle{root: root, now: time.Now}
}

func (l *Lifecycle) Root() string {
	return l.root
}

func (l *Lifecycle) UserDir(userID int64) string {
	return filepath.Join(l.root, strconv.FormatInt(userID, 10))
}

func (l *Lifecycle) EnsureUserDir(userID int64) error {
	if err := os.MkdirAll(l.UserDir(userID), 0o755); err != nil {
		return fmt.Errorf("create user directory: %w", err)
	}
	return nil
}

// AllocatePath returns a fresh path inside the user's directory. The file is
// not created. An empty ext falls back to the kind's usual extension.
func (l *Lifecycle) AllocatePath(userID int64, kind Kind, ext string) string {
	ext = normalizeExt(ext)
	if ext == "" {
		ext = kind.defaultExt()
	}
	seq := l.counter.Add(1)
	name := fmt.Sprintf("%s-%d-%d%s", kind, l.now().UnixNano(), seq, ext)
	return filepath.Join(l.UserDir(userID), name)
}

// Release deletes each path. Missing files and empty paths are ignored;
// other failures are logged and swallowed.
func (l *Lifecycle) Release(paths ...string) {
	for _, p := range paths {
		if err := remove(p); err != nil {
			slog.Warn("failed to release working file", "path", p, "error", err)
		}
	}
}

func remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// DerivedPath names the output of a transformation of source, next to it.
// The same source and kind always yield the same path.
func DerivedPath(source string, kind Kind) string {
	ext := filepath.Ext(source)
	base := strings.TrimSuffix(source, ext)
	switch kind {
	case KindVoice:
		return base + "." + string(kind) + KindVoice.defaultExt()
	case KindArtwork:
		return base + "." + string(kind) + KindArtwork.defaultExt()
	default:
		if ext == "" {
			ext = kind.defaultExt()
		}
		return base + "." + string(kind) + ext
	}
}

// PartialPath is the temporary name a writer uses before renaming onto final.
// It keeps the extension so tools can infer the container.
func PartialPath(final string) string {
	return filepath.Join(filepath.Dir(final), ".partial-"+filepath.Base(final))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.ContainsAny(ext[1:], `./\`) {
		return ""
	}
	return ext
}
