package telegram

import (
	"github.com/foxseedlab/tunesmith/external/download"
	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		fetcher := do.MustInvoke[*download.HTTPDownloader](i)
		return NewClient(cfg.TelegramBotToken, fetcher), nil
	})
}
