package workflow

import (
	"github.com/foxseedlab/tunesmith/internal/chat"
	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/foxseedlab/tunesmith/internal/files"
	"github.com/foxseedlab/tunesmith/internal/i18n"
	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/foxseedlab/tunesmith/internal/repository"
	"github.com/foxseedlab/tunesmith/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*files.Lifecycle, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return files.NewLifecycle(cfg.WorkDir), nil
	})
	do.Provide(injector, func(i do.Injector) (*Dispatcher, error) {
		return NewDispatcher(Deps{
			Config:     do.MustInvoke[*config.Config](i),
			Sessions:   do.MustInvoke[*session.Manager](i),
			Users:      do.MustInvoke[repository.Repository](i),
			Codec:      do.MustInvoke[media.TagCodec](i),
			Transcoder: do.MustInvoke[media.Transcoder](i),
			Prober:     do.MustInvoke[media.Prober](i),
			Files:      do.MustInvoke[*files.Lifecycle](i),
			Translator: do.MustInvoke[i18n.Translator](i),
			Messenger:  do.MustInvoke[chat.Client](i),
		}), nil
	})
}
