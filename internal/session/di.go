package session

import (
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		store := do.MustInvoke[Store](i)
		return NewManager(store), nil
	})
}
