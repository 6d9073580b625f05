package discord

import (
	"github.com/foxseedlab/tunesmith/external/download"
	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Client, error) {
		c := do.MustInvoke[*config.Config](i)
		fetcher := do.MustInvoke[*download.HTTPDownloader](i)
		return NewClient(c.DiscordToken, fetcher), nil
	})
}
