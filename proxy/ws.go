package proxy

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/tomakado/websocketproxy"
	"github.com/txix-open/isp-kit/requestid"
	"urule-dev-proxy/httperrors"
	"urule-dev-proxy/request"
)

type Ws struct {
	target           *url.URL
	handshakeTimeout time.Duration
}

func NewWs(target *url.URL, handshakeTimeout time.Duration) Ws {
	wsTarget := *target
	switch wsTarget.Scheme {
	case "https":
		wsTarget.Scheme = "wss"
	default:
		wsTarget.Scheme = "ws"
	}
	return Ws{
		target:           &wsTarget,
		handshakeTimeout: handshakeTimeout,
	}
}

func IsWebsocket(req *http.Request) bool {
	return websocket.IsWebSocketUpgrade(req)
}

//nolint:mnd
func (ws Ws) Handle(ctx *request.Context) error {
	backend := *ws.target
	backend.Path = joinPath(ws.target.Path, ctx.Endpoint())
	backend.RawPath = ""
	backend.RawQuery = ctx.Request().URL.RawQuery

	var resultError error
	state := &handshakeState{}
	netDialer := &net.Dialer{Timeout: ws.handshakeTimeout}
	proxy := websocketproxy.NewProxy(&backend)
	proxy.Backend = func(*http.Request) *url.URL {
		return &backend
	}
	proxy.Director = func(incoming *http.Request, out http.Header) {
		if requestId := requestid.FromContext(incoming.Context()); requestId != "" {
			out.Set(requestIdHeader, requestId)
		}
	}
	proxy.Dialer = &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: ws.handshakeTimeout,
		NetDialContext: func(dialCtx context.Context, network string, addr string) (net.Conn, error) {
			conn, err := netDialer.DialContext(dialCtx, network, addr)
			if err != nil {
				state.fail(err)
				return nil, err
			}
			return upstreamConn{Conn: conn, state: state}, nil
		},
	}
	proxy.Upgrader = &websocket.Upgrader{
		HandshakeTimeout: ws.handshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			resultError = httperrors.New(
				status,
				"websocket upgrade failed",
				errors.WithMessagef(reason, "ws proxy to %s", backend.Host),
			)
		},
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	writer := &handshakeWriter{ResponseWriter: ctx.ResponseWriter(), state: state}
	proxy.ServeHTTP(writer, ctx.Request())

	if writer.failed && resultError == nil {
		resultError = ws.handshakeError(ctx.Context(), backend.Host, state.err())
	}
	return resultError
}

func (ws Ws) handshakeError(clientCtx context.Context, host string, err error) error {
	if clientCtx.Err() != nil {
		return errors.WithMessagef(clientCtx.Err(), "ws proxy to %s", host)
	}
	if err == nil {
		err = errors.New("no handshake response")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return httperrors.New(
			http.StatusGatewayTimeout,
			"upstream timed out",
			errors.WithMessagef(err, "ws proxy to %s", host),
		)
	}

	return httperrors.New(
		http.StatusBadGateway,
		"upstream is not available",
		errors.WithMessagef(err, "ws proxy to %s", host),
	)
}

// handshakeState tracks whether the upstream answered the handshake at all.
type handshakeState struct {
	responded atomic.Bool
	lock      sync.Mutex
	lastErr   error
}

func (s *handshakeState) fail(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.lastErr == nil {
		s.lastErr = err
	}
}

func (s *handshakeState) err() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lastErr
}

type upstreamConn struct {
	net.Conn
	state *handshakeState
}

func (c upstreamConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.state.responded.Store(true)
	} else if err != nil && !c.state.responded.Load() {
		c.state.fail(err)
	}
	return n, err
}

// handshakeWriter drops the plain text reply websocketproxy writes when the
// upstream never answered, so the failure is rendered as a json error instead.
// Upstream handshake responses (e.g. 403) are relayed as is.
type handshakeWriter struct {
	http.ResponseWriter
	state    *handshakeState
	hijacked bool
	failed   bool
	scratch  http.Header
}

func (w *handshakeWriter) local() bool {
	return !w.hijacked && !w.state.responded.Load()
}

func (w *handshakeWriter) Header() http.Header {
	if w.local() {
		if w.scratch == nil {
			w.scratch = make(http.Header)
		}
		return w.scratch
	}
	return w.ResponseWriter.Header()
}

func (w *handshakeWriter) WriteHeader(statusCode int) {
	if w.local() {
		w.failed = true
		return
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *handshakeWriter) Write(data []byte) (int, error) {
	if w.failed || w.local() {
		w.failed = true
		return len(data), nil
	}
	return w.ResponseWriter.Write(data)
}

func (w *handshakeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(w.ResponseWriter).Hijack()
	if err != nil {
		return nil, nil, err
	}
	w.hijacked = true
	return conn, rw, nil
}

func (w *handshakeWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func joinPath(base string, endpoint string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}
