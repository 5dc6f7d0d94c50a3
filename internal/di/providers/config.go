// Package providers contains dependency injection providers for the QuillPost engagement core.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/quillpost/quill-server/internal/config"
	"github.com/quillpost/quill-server/internal/logger"
)

// ProvideConfig provides the application configuration. The raw flag
// values are provided by the command via do.ProvideValue.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	flags := do.MustInvoke[config.Flags](i)
	return config.Load(flags)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting QuillPost engagement core",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"db_backend", cfg.Database.Backend,
		"db_path", cfg.Database.Path,
	)

	return log, nil
}
