package transcoder

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/tunesmith/internal/media"
)

type probeResult struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

type FFprobe struct {
	binary  string
	timeout time.Duration
	run     commandRunner
}

func NewFFprobe(binary string, timeout time.Duration) *FFprobe {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return &FFprobe{binary: binary, timeout: timeout, run: defaultCommandRunner}
}

func (p *FFprobe) WithCommandRunner(r commandRunner) {
	if r != nil {
		p.run = r
	}
}

// DurationSeconds returns the container duration rounded to whole seconds.
func (p *FFprobe) DurationSeconds(ctx context.Context, path string) (int, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	output, err := p.run(ctx, p.binary, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	if err != nil {
		return 0, &media.TranscodeError{Kind: media.ToolFailure, Op: "probe", Diagnostic: trimDiagnostic(output), Err: err}
	}
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil || math.IsNaN(seconds) || seconds < 0 {
		return 0, fmt.Errorf("ffprobe: no usable duration in %q", result.Format.Duration)
	}
	return int(math.Round(seconds)), nil
}
