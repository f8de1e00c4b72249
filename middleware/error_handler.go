package middleware

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/log"
	"urule-dev-proxy/httperrors"
	"urule-dev-proxy/request"
)

type HttpError interface {
	WriteError(w http.ResponseWriter) error
}

func ErrorHandler(logger log.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *request.Context) error {
			err := next.Handle(ctx)
			if err == nil {
				return nil
			}

			// client went away, there is nobody to answer
			if errors.Is(err, context.Canceled) {
				logger.Debug(ctx.Context(), "client disconnected", log.String("error", err.Error()))
				return nil
			}

			logger.Error(ctx.Context(), err)

			var httpErr HttpError
			if errors.As(err, &httpErr) {
				return httpErr.WriteError(ctx.ResponseWriter())
			}

			return httperrors.
				New(http.StatusInternalServerError, "internal service error", err).
				WriteError(ctx.ResponseWriter())
		})
	}
}
