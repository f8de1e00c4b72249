package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/log"
	"urule-dev-proxy/request"
)

type scSource interface {
	StatusCode() int
	Written() bool
}

type writerWrapper struct {
	http.ResponseWriter

	statusCode int
}

func wrapWriter(ctx *request.Context) scSource {
	writer := &writerWrapper{ResponseWriter: ctx.ResponseWriter()}
	ctx.SetResponseWriter(writer)
	return writer
}

func (w *writerWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	upstream, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("writerWrapper: upstream writer doesn't implement Hijack")
	}
	conn, rw, err := upstream.Hijack()
	if err == nil && w.statusCode == 0 {
		w.statusCode = http.StatusSwitchingProtocols
	}
	return conn, rw, err
}

// Unwrap lets http.ResponseController reach Flush on the original writer.
func (w *writerWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *writerWrapper) StatusCode() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func (w *writerWrapper) Written() bool {
	return w.statusCode != 0
}

func (w *writerWrapper) Write(data []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	return w.ResponseWriter.Write(data)
}

// WriteHeader keeps the first final status, informational 1xx headers are skipped.
func (w *writerWrapper) WriteHeader(statusCode int) {
	if w.statusCode == 0 && (statusCode >= http.StatusOK || statusCode == http.StatusSwitchingProtocols) {
		w.statusCode = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func Logger(logger log.Logger, enableRequestLogging bool) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *request.Context) error {
			if !enableRequestLogging {
				return next.Handle(ctx)
			}

			r := ctx.Request()
			scSrc := wrapWriter(ctx)
			start := time.Now()

			err := next.Handle(ctx)

			logger.Debug(ctx.Context(), "log request",
				log.String("httpMethod", r.Method),
				log.String("remoteAddr", r.RemoteAddr),
				log.String("path", r.URL.Path),
				log.String("endpoint", ctx.EndpointWithQuery()),
				log.String("target", string(ctx.Target())),
				log.Int("statusCode", scSrc.StatusCode()),
				log.Int("elapsedTimeMs", int(time.Since(start).Milliseconds())),
			)

			return err
		})
	}
}
