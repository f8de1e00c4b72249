package proxy_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"urule-dev-proxy/httperrors"
	"urule-dev-proxy/proxy"
	"urule-dev-proxy/request"
)

func TestWsForwardsMessages(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	paths := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path + "?" + r.URL.RawQuery
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			err = conn.WriteMessage(messageType, data)
			if err != nil {
				return
			}
		}
	}))
	defer backend.Close()

	ws := proxy.NewWs(mustParse(t, backend.URL+"/base/"), 5*time.Second)
	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/api/urule")
		_ = ws.Handle(request.NewContext(r, w, endpoint))
	}))
	defer front.Close()

	wsUrl := "ws" + strings.TrimPrefix(front.URL, "http") + "/api/urule/sockjs-node/websocket?t=1"
	conn, _, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	require.NoError(err)
	defer conn.Close()

	require.EqualValues("/base/sockjs-node/websocket?t=1", <-paths)

	err = conn.WriteMessage(websocket.TextMessage, []byte("reload"))
	require.NoError(err)
	_, data, err := conn.ReadMessage()
	require.NoError(err)
	require.EqualValues("reload", string(data))
}

func newUpgradeRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestWsUpstreamUnreachable(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	backend := httptest.NewServer(http.NotFoundHandler())
	backendUrl := backend.URL
	backend.Close()

	ws := proxy.NewWs(mustParse(t, backendUrl+"/base/"), 5*time.Second)
	rec := httptest.NewRecorder()
	err := ws.Handle(request.NewContext(newUpgradeRequest("/api/urule/sockjs-node/websocket"), rec, "/sockjs-node/websocket"))

	var httpErr httperrors.HttpError
	require.ErrorAs(err, &httpErr)
	require.EqualValues(http.StatusBadGateway, httpErr.StatusCode())
	require.Empty(rec.Body.String())
	require.Empty(rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	require.NoError(httpErr.WriteError(rec))
	require.EqualValues(http.StatusBadGateway, rec.Code)
	require.EqualValues("application/json", rec.Header().Get("Content-Type"))
	require.Contains(rec.Body.String(), "upstream is not available")
}

func TestWsRelaysRejectedHandshake(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", "dev-server")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("forbidden"))
	}))
	defer backend.Close()

	ws := proxy.NewWs(mustParse(t, backend.URL+"/base/"), 5*time.Second)
	rec := httptest.NewRecorder()
	err := ws.Handle(request.NewContext(newUpgradeRequest("/api/urule/sockjs-node/websocket"), rec, "/sockjs-node/websocket"))
	require.NoError(err)
	require.EqualValues(http.StatusForbidden, rec.Code)
	require.EqualValues("dev-server", rec.Header().Get("X-Upstream"))
	require.EqualValues("forbidden", rec.Body.String())
}
