package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/chunkr/internal/api/shared"
	"github.com/phrazzld/chunkr/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	testLogger, logBuf := logger.GetTestLogger(t)

	var traceID string
	handler := TraceMiddleware(testLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, traceID, 32)

	entries := logBuf.FindEntries("inside handler")
	require.Len(t, entries, 1)
	assert.Equal(t, traceID, entries[0]["trace_id"])

	started := logBuf.FindEntries("request started")
	require.Len(t, started, 1)
	assert.Equal(t, "/health", started[0]["path"])
}
