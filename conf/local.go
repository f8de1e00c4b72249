package conf

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/log"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultPathPrefix             = "/api/urule"
	DefaultProxyTimeoutInSec      = 30
	DefaultMaxRequestBodySizeInMb = 64
)

var DefaultPrimaryGetMarkers = []string{ // nolint:gochecknoglobals
	"/common/loadFunctions",
	"/ruleflowdesigner/loadFlowDefinition",
}

type Local struct {
	Http    Http
	Routing Routing
	Static  Static
	Logging Logging
	Metrics Metrics
}

type Http struct {
	ListenAddress          string `validate:"required"`
	ProxyTimeoutInSec      int
	MaxRequestBodySizeInMb int64
	Compress               bool
}

type Routing struct {
	PathPrefix        string
	PrimaryOrigin     string `validate:"required"`
	FallbackOrigin    string `validate:"required"`
	PrimaryGetMarkers []string
}

type Static struct {
	Dir                string
	HistoryApiFallback bool
}

type Logging struct {
	LogLevel         string
	RequestLogEnable bool
}

// Level parses LogLevel, an empty value means info.
func (l Logging) Level() (log.Level, error) {
	if strings.TrimSpace(l.LogLevel) == "" {
		return log.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.TrimSpace(l.LogLevel))
	if err != nil {
		return log.InfoLevel, errors.WithMessagef(err, "parse log level %s", l.LogLevel)
	}
	return level, nil
}

type Metrics struct {
	Enable bool
}

// WithDefaults fills empty values. The receiver is not modified.
func (c Local) WithDefaults() Local {
	if c.Routing.PathPrefix == "" {
		c.Routing.PathPrefix = DefaultPathPrefix
	}
	c.Routing.PathPrefix = "/" + strings.Trim(c.Routing.PathPrefix, "/")
	if len(c.Routing.PrimaryGetMarkers) == 0 {
		c.Routing.PrimaryGetMarkers = append([]string(nil), DefaultPrimaryGetMarkers...)
	}
	if c.Http.ProxyTimeoutInSec <= 0 {
		c.Http.ProxyTimeoutInSec = DefaultProxyTimeoutInSec
	}
	if c.Http.MaxRequestBodySizeInMb <= 0 {
		c.Http.MaxRequestBodySizeInMb = DefaultMaxRequestBodySizeInMb
	}
	return c
}

func (c Local) Validate() error {
	if c.Routing.PathPrefix == "/" {
		return errors.New("routing: path prefix must not be root")
	}
	_, err := ParseOrigin(c.Routing.PrimaryOrigin)
	if err != nil {
		return errors.WithMessage(err, "routing: primary origin")
	}
	_, err = ParseOrigin(c.Routing.FallbackOrigin)
	if err != nil {
		return errors.WithMessage(err, "routing: fallback origin")
	}
	_, err = c.Logging.Level()
	if err != nil {
		return errors.WithMessage(err, "logging")
	}
	for _, marker := range c.Routing.PrimaryGetMarkers {
		if strings.TrimSpace(marker) == "" {
			return errors.New("routing: empty primary get marker")
		}
	}
	return nil
}

// ParseOrigin parses an absolute http(s) base url.
func ParseOrigin(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("empty origin")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.WithMessagef(err, "parse origin %s", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unexpected origin scheme: %s", raw)
	}
	if u.Host == "" {
		return nil, errors.Errorf("origin without host: %s", raw)
	}
	return u, nil
}
