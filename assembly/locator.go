package assembly

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/txix-open/isp-kit/json"
	"github.com/txix-open/isp-kit/log"
	"urule-dev-proxy/conf"
	"urule-dev-proxy/middleware"
	"urule-dev-proxy/proxy"
	"urule-dev-proxy/routing"
	"urule-dev-proxy/server"
	"urule-dev-proxy/service"
)

const (
	healthPath  = "/internal/health"
	metricsPath = "/internal/metrics"

	maxIdleConnsPerHost = 32
)

type Locator struct {
	logger    log.Logger
	transport *http.Transport
	registry  *prometheus.Registry
	metrics   *service.ProxyMetrics
}

func NewLocator(logger log.Logger) Locator {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert
	transport.MaxIdleConnsPerHost = maxIdleConnsPerHost

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return Locator{
		logger:    logger,
		transport: transport,
		registry:  registry,
		metrics:   service.NewProxyMetrics(registry),
	}
}

func (l Locator) Handler(config conf.Local) (http.Handler, error) {
	primaryOrigin, err := conf.ParseOrigin(config.Routing.PrimaryOrigin)
	if err != nil {
		return nil, err
	}
	fallbackOrigin, err := conf.ParseOrigin(config.Routing.FallbackOrigin)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(config.Http.ProxyTimeoutInSec) * time.Second
	router := proxy.NewRouter(
		routing.NewRules(config.Routing.PrimaryGetMarkers),
		proxy.Upstream{
			Http: proxy.NewHttp(primaryOrigin, l.transport, timeout),
			Ws:   proxy.NewWs(primaryOrigin, timeout),
		},
		proxy.Upstream{
			Http: proxy.NewHttp(fallbackOrigin, l.transport, timeout),
			Ws:   proxy.NewWs(fallbackOrigin, timeout),
		},
	)

	middlewares := []middleware.Middleware{
		middleware.RequestId(),
		middleware.Logger(l.logger, config.Logging.RequestLogEnable),
	}
	if config.Metrics.Enable {
		middlewares = append(middlewares, middleware.Metrics(l.metrics))
	}
	middlewares = append(middlewares, middleware.ErrorHandler(l.logger))

	entrypoint := middleware.Entrypoint(
		middleware.Chain(router, middlewares...),
		l.logger,
		middleware.EntryPointConfig{
			PathPrefix:     config.Routing.PathPrefix,
			MaxRequestBody: config.Http.MaxRequestBodySizeInMb * 1024 * 1024, //nolint:mnd
		},
	)

	handler := mux.NewRouter().SkipClean(true)
	handler.Path(config.Routing.PathPrefix).Handler(entrypoint)
	handler.PathPrefix(config.Routing.PathPrefix + "/").Handler(entrypoint)
	handler.Path(healthPath).Methods(http.MethodGet).HandlerFunc(health)
	if config.Metrics.Enable {
		handler.Path(metricsPath).Methods(http.MethodGet).Handler(promhttp.HandlerFor(l.registry, promhttp.HandlerOpts{}))
	}
	if config.Static.Dir != "" {
		static, err := server.NewStaticHandler(config.Static.Dir, config.Static.HistoryApiFallback)
		if err != nil {
			return nil, err
		}
		handler.PathPrefix("/").Handler(static)
	}

	if config.Http.Compress {
		return compress(handler), nil
	}
	return handler, nil
}

func (l Locator) Close() {
	l.transport.CloseIdleConnections()
}

// compress gzips responses, upgrade requests are left to the ws proxy untouched.
func compress(next http.Handler) http.Handler {
	compressed := gzhttp.GzipHandler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if proxy.IsWebsocket(r) {
			next.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
