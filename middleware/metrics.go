package middleware

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"urule-dev-proxy/request"
	"urule-dev-proxy/service"
)

// statusClientClosedRequest is reported when the client left before any response was written.
const statusClientClosedRequest = 499

func Metrics(metrics *service.ProxyMetrics) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *request.Context) error {
			scSrc := wrapWriter(ctx)
			start := time.Now()

			err := next.Handle(ctx)

			statusCode := scSrc.StatusCode()
			if !scSrc.Written() && errors.Is(ctx.Context().Err(), context.Canceled) {
				statusCode = statusClientClosedRequest
			}
			metrics.Observe(ctx.Target(), ctx.Request().Method, statusCode, time.Since(start))
			return err
		})
	}
}
