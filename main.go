package main

import (
	"os"

	"github.com/txix-open/isp-kit/app"
	"github.com/txix-open/isp-kit/shutdown"
	"urule-dev-proxy/assembly"
)

const (
	configPathEnv     = "DEV_PROXY_CONFIG_PATH"
	defaultConfigPath = "conf/config.yml"
)

func main() {
	application, err := app.New(app.WithConfigOptions(assembly.ConfigOptions(configPath())...))
	if err != nil {
		panic(err)
	}
	logger := application.Logger()

	assembly, err := assembly.New(application)
	if err != nil {
		logger.Fatal(application.Context(), err)
	}
	application.AddRunners(assembly.Runners()...)
	application.AddClosers(assembly.Closers()...)

	shutdown.On(func() {
		logger.Info(application.Context(), "starting shutdown")
		application.Shutdown()
		logger.Info(application.Context(), "shutdown completed")
	})

	err = application.Run()
	if err != nil {
		application.Shutdown()
		logger.Fatal(application.Context(), err)
	}
}

func configPath() string {
	path := os.Getenv(configPathEnv)
	if path == "" {
		return defaultConfigPath
	}
	return path
}
