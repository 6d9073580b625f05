package i18n

import (
	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/foxseedlab/tunesmith/internal/i18n"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (i18n.Translator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewTranslator(cfg.DefaultLanguage)
	})
}
