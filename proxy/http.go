package proxy

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/requestid"
	"urule-dev-proxy/httperrors"
	"urule-dev-proxy/request"
)

const (
	requestIdHeader = "x-request-id"
)

type Http struct {
	target    *url.URL
	transport http.RoundTripper
	timeout   time.Duration
}

// NewHttp forwards requests to target. The transport is shared by all
// requests and must be safe for concurrent use.
func NewHttp(target *url.URL, transport http.RoundTripper, timeout time.Duration) Http {
	return Http{
		target:    target,
		transport: transport,
		timeout:   timeout,
	}
}

func (p Http) Handle(ctx *request.Context) error {
	timeoutCtx, cancel := context.WithTimeout(ctx.Context(), p.timeout)
	defer cancel()

	out := ctx.Request().Clone(timeoutCtx)
	out.URL.Path = ctx.Endpoint()
	out.URL.RawPath = ""

	var resultError error
	reverseProxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(p.target)
			// upstream sees the host the browser used
			pr.Out.Host = pr.In.Host
			pr.SetXForwarded()
			if requestId := requestid.FromContext(pr.In.Context()); requestId != "" {
				pr.Out.Header.Set(requestIdHeader, requestId)
			}
		},
		Transport: p.transport,
		ErrorHandler: func(_ http.ResponseWriter, _ *http.Request, err error) {
			resultError = p.upstreamError(ctx.Context(), timeoutCtx, err)
		},
	}
	reverseProxy.ServeHTTP(ctx.ResponseWriter(), out)

	return resultError
}

func (p Http) upstreamError(clientCtx context.Context, timeoutCtx context.Context, err error) error {
	host := p.target.Host
	if clientCtx.Err() != nil {
		return errors.WithMessagef(clientCtx.Err(), "http proxy to %s", host)
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return httperrors.New(
			http.StatusRequestEntityTooLarge,
			"request body is too large",
			errors.WithMessagef(err, "http proxy to %s", host),
		)
	}

	if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		return httperrors.New(
			http.StatusGatewayTimeout,
			"upstream timed out",
			errors.WithMessagef(err, "http proxy to %s", host),
		)
	}

	return httperrors.New(
		http.StatusBadGateway,
		"upstream is not available",
		errors.WithMessagef(err, "http proxy to %s", host),
	)
}
