package tagcodec

import (
	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (media.TagCodec, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewCodec(NewID3(), NewFLAC(), NewRemux(cfg.FFmpegPath, cfg.TranscodeTimeout)), nil
	})
}
