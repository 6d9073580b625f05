package transcoder

import (
	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (media.Transcoder, error) {
		cfg := do.MustInvoke[*config.Config](i)
		verifier := do.MustInvoke[media.VoiceNoteVerifier](i)
		return NewFFmpeg(cfg.FFmpegPath, cfg.TranscodeTimeout, cfg.VoiceBitrateKbps, verifier), nil
	})
	do.Provide(injector, func(i do.Injector) (media.Prober, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewFFprobe(cfg.FFprobePath, cfg.TranscodeTimeout), nil
	})
}
