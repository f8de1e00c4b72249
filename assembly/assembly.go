package assembly

import (
	"context"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/app"
	"github.com/txix-open/isp-kit/config"
	"github.com/txix-open/isp-kit/http"
	"github.com/txix-open/isp-kit/log"
	"github.com/txix-open/isp-kit/validator"
	"urule-dev-proxy/conf"
)

type Assembly struct {
	app     *app.Application
	server  *http.Server
	logger  *log.Adapter
	locator Locator
	config  conf.Local
}

// ConfigOptions makes the application read the yaml file at path,
// environment variables override its values.
func ConfigOptions(path string) []config.Option {
	return []config.Option{
		config.WithExtraSource(config.NewYamlConfig(path)),
		config.WithValidator(validator.Default),
	}
}

func New(application *app.Application) (*Assembly, error) {
	localConfig := conf.Local{}
	err := application.Config().Read(&localConfig)
	if err != nil {
		return nil, errors.WithMessage(err, "read local config")
	}
	localConfig = localConfig.WithDefaults()
	err = localConfig.Validate()
	if err != nil {
		return nil, errors.WithMessage(err, "invalid local config")
	}

	level, err := localConfig.Logging.Level()
	if err != nil {
		return nil, errors.WithMessage(err, "invalid local config")
	}
	logger := application.Logger()
	logger.SetLevel(level)

	locator := NewLocator(logger)
	handler, err := locator.Handler(localConfig)
	if err != nil {
		return nil, errors.WithMessage(err, "locator handler")
	}

	server := http.NewServer(logger)
	server.Upgrade(handler)

	return &Assembly{
		app:     application,
		server:  server,
		logger:  logger,
		locator: locator,
		config:  localConfig,
	}, nil
}

func (a *Assembly) Runners() []app.Runner {
	return []app.Runner{
		app.RunnerFunc(func(ctx context.Context) error {
			a.logger.Info(ctx, "dev proxy started",
				log.String("listenAddress", a.config.Http.ListenAddress),
				log.String("pathPrefix", a.config.Routing.PathPrefix),
				log.String("primaryOrigin", a.config.Routing.PrimaryOrigin),
				log.String("fallbackOrigin", a.config.Routing.FallbackOrigin),
			)
			return a.server.ListenAndServe(a.config.Http.ListenAddress)
		}),
	}
}

func (a *Assembly) Closers() []app.Closer {
	return []app.Closer{
		app.CloserFunc(func() error {
			return a.server.Shutdown(context.Background())
		}),
		app.CloserFunc(func() error {
			a.locator.Close()
			return nil
		}),
	}
}
