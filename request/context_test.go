package request_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"urule-dev-proxy/request"
)

func TestEndpointWithQuery(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	req := httptest.NewRequest(http.MethodGet, "/api/urule/ruleflowdesigner/loadFlowDefinition?id=1", nil)
	ctx := request.NewContext(req, httptest.NewRecorder(), "/ruleflowdesigner/loadFlowDefinition")
	require.EqualValues("/ruleflowdesigner/loadFlowDefinition?id=1", ctx.EndpointWithQuery())

	req = httptest.NewRequest(http.MethodGet, "/api/urule/other", nil)
	ctx = request.NewContext(req, httptest.NewRecorder(), "/other")
	require.EqualValues("/other", ctx.EndpointWithQuery())
}
