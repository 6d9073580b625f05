package audio

import (
	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (media.VoiceNoteVerifier, error) {
		return NewOpusVerifier(), nil
	})
}
