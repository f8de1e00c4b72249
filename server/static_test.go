package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":           {Data: []byte("<html>index</html>")},
		"frame":                {Data: []byte("<html>frame</html>")},
		"frame.bundle.js":      {Data: []byte("console.log('frame')")},
		"css/iconfont.css":     {Data: []byte("body{}")},
		"fonts/iconfont.woff2": {Data: []byte("font")},
	}
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestStaticHandlerServesFiles(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	h := newStaticHandler(testFS(), true)

	rec := serve(h, "/frame.bundle.js")
	require.EqualValues(http.StatusOK, rec.Code)
	require.EqualValues("console.log('frame')", rec.Body.String())

	rec = serve(h, "/frame")
	require.EqualValues(http.StatusOK, rec.Code)
	require.EqualValues("<html>frame</html>", rec.Body.String())

	rec = serve(h, "/css/iconfont.css")
	require.EqualValues(http.StatusOK, rec.Code)

	rec = serve(h, "/")
	require.EqualValues(http.StatusOK, rec.Code)
	require.EqualValues("<html>index</html>", rec.Body.String())
}

func TestStaticHandlerHistoryFallback(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	h := newStaticHandler(testFS(), true)

	rec := serve(h, "/ruleflowdesigner/edit")
	require.EqualValues(http.StatusOK, rec.Code)
	require.EqualValues("<html>index</html>", rec.Body.String())

	rec = serve(h, "/missing.js")
	require.EqualValues(http.StatusNotFound, rec.Code)
}

func TestStaticHandlerWithoutFallback(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	h := newStaticHandler(testFS(), false)

	rec := serve(h, "/ruleflowdesigner/edit")
	require.EqualValues(http.StatusNotFound, rec.Code)
}

func TestNewStaticHandlerDir(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>dist</html>"), 0o600)
	require.NoError(err)

	h, err := NewStaticHandler(dir, true)
	require.NoError(err)
	rec := serve(h, "/decisiontableeditor/1")
	require.EqualValues("<html>dist</html>", rec.Body.String())

	_, err = NewStaticHandler(filepath.Join(dir, "index.html"), true)
	require.Error(err)

	_, err = NewStaticHandler(filepath.Join(dir, "missing"), true)
	require.Error(err)
}
