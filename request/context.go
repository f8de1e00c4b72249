package request

import (
	"context"
	"net/http"

	"urule-dev-proxy/routing"
)

type Context struct {
	request        *http.Request
	responseWriter http.ResponseWriter

	endpoint string
	target   routing.Target
}

func NewContext(request *http.Request, response http.ResponseWriter, endpoint string) *Context {
	return &Context{
		request:        request,
		responseWriter: response,
		endpoint:       endpoint,
	}
}

func (c *Context) Request() *http.Request {
	return c.request
}

func (c *Context) ResponseWriter() http.ResponseWriter {
	return c.responseWriter
}

func (c *Context) SetResponseWriter(writer http.ResponseWriter) {
	c.responseWriter = writer
}

// Endpoint is the request path without the mount prefix, always starting with '/'.
func (c *Context) Endpoint() string {
	return c.endpoint
}

// EndpointWithQuery is the endpoint followed by the raw query, if any.
func (c *Context) EndpointWithQuery() string {
	if c.request.URL.RawQuery == "" {
		return c.endpoint
	}
	return c.endpoint + "?" + c.request.URL.RawQuery
}

func (c *Context) Target() routing.Target {
	return c.target
}

func (c *Context) SetTarget(target routing.Target) {
	c.target = target
}

func (c *Context) Context() context.Context {
	return c.request.Context()
}

func (c *Context) SetContext(ctx context.Context) {
	c.request = c.request.WithContext(ctx)
}
