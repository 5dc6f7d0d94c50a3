// Package di provides dependency injection configuration for the QuillPost engagement core.
package di

import (
	"github.com/samber/do/v2"

	"github.com/quillpost/quill-server/internal/config"
	"github.com/quillpost/quill-server/internal/di/providers"
	"github.com/quillpost/quill-server/internal/logger"
	"github.com/quillpost/quill-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// The flags come from the command's own flag set.
func NewContainer(flags config.Flags) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, flags)

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideStore)

	// Business services
	do.Provide(injector, providers.ProvideEngagementService)
	do.Provide(injector, providers.ProvideTagService)

	return injector
}

// Bootstrap triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.EngagementService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.TagService](injector); err != nil {
		return err
	}
	return nil
}
