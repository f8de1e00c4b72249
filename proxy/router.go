package proxy

import (
	"github.com/pkg/errors"
	"urule-dev-proxy/request"
	"urule-dev-proxy/routing"
)

type Handler interface {
	Handle(ctx *request.Context) error
}

type Upstream struct {
	Http Handler
	Ws   Handler
}

// Router classifies each request and hands it to the upstream of the chosen target.
type Router struct {
	rules     routing.Rules
	upstreams map[routing.Target]Upstream
}

func NewRouter(rules routing.Rules, primary Upstream, fallback Upstream) Router {
	return Router{
		rules: rules,
		upstreams: map[routing.Target]Upstream{
			routing.Primary:  primary,
			routing.Fallback: fallback,
		},
	}
}

func (r Router) Handle(ctx *request.Context) error {
	req := ctx.Request()
	target := r.rules.Classify(req.Method, ctx.EndpointWithQuery())
	ctx.SetTarget(target)

	upstream, ok := r.upstreams[target]
	if !ok {
		return errors.Errorf("no upstream for target %s", target)
	}
	if IsWebsocket(req) && upstream.Ws != nil {
		return upstream.Ws.Handle(ctx)
	}
	return upstream.Http.Handle(ctx)
}
