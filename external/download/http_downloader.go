package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/foxseedlab/tunesmith/internal/files"
)

const (
	DefaultMaxBytes = 100 << 20
	defaultTimeout  = 5 * time.Minute
)

var ErrTooLarge = errors.New("download exceeds size limit")

// HTTPDownloader fetches a URL into a local file. The destination only
// appears once the whole body has been written.
type HTTPDownloader struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPDownloader(maxBytes int64) *HTTPDownloader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPDownloader{
		client:   &http.Client{Timeout: defaultTimeout},
		maxBytes: maxBytes,
	}
}

func (d *HTTPDownloader) Fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}
	if resp.ContentLength > d.maxBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	partial := files.PartialPath(dest)
	f, err := os.Create(partial)
	if err != nil {
		return err
	}
	n, copyErr := io.Copy(f, io.LimitReader(resp.Body, d.maxBytes+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(partial)
		return copyErr
	case closeErr != nil:
		_ = os.Remove(partial)
		return closeErr
	case n > d.maxBytes:
		_ = os.Remove(partial)
		return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.maxBytes)
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return err
	}
	return nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
