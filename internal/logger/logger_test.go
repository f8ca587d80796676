package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestRequests(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	handler := Requests(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hlog.FromRequest(r).Debug().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var access map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &access))
	require.Equal(t, "http request", access["message"])
	require.Equal(t, "/healthz", access["path"])
	require.EqualValues(t, http.StatusTeapot, access["status"])
	require.NotEmpty(t, access["request_id"])
}

func TestSetup(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	require.Equal(t, zerolog.InfoLevel, Setup(false).GetLevel())
	require.False(t, log.Debug().Enabled())
	require.True(t, log.Info().Enabled())

	require.Equal(t, zerolog.DebugLevel, Setup(true).GetLevel())
	require.True(t, log.Debug().Enabled())
}
