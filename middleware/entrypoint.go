package middleware

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/log"
	"urule-dev-proxy/request"
)

type EntryPointConfig struct {
	PathPrefix     string
	MaxRequestBody int64
}

func Entrypoint(next Handler, logger log.Logger, cfg EntryPointConfig) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, req *http.Request) {
		if cfg.MaxRequestBody > 0 {
			req.Body = http.MaxBytesReader(writer, req.Body, cfg.MaxRequestBody)
		}
		ctx := request.NewContext(req, writer, getEndpoint(req, cfg.PathPrefix))
		err := next.Handle(ctx)
		if err != nil {
			logger.Error(req.Context(), errors.WithMessage(err, "uncaught error"))
		}
	})
}

func getEndpoint(req *http.Request, pathPrefix string) string {
	endpoint := strings.TrimPrefix(req.URL.Path, pathPrefix)
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return endpoint
}
