package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	oh "github.com/boltstream/bolt-go/http"
)

func TestDataWrapsValueInEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/metrics/summary", nil)

	oh.Data(nil, map[string]interface{}{"count": 3}).ServeHTTP(w, r)

	require.Equal(t, "bolt-go", w.Header().Get("Server"))
	require.Equal(t, oh.HttpJson, w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, float64(0), body["code"])
	require.Equal(t, map[string]interface{}{"count": float64(3)}, body["data"])
}

func TestDataSupportsJsonpCallback(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/metrics/summary?callback=cb", nil)

	oh.Data(nil, "ok").ServeHTTP(w, r)

	require.Equal(t, oh.HttpJavaScript, w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), "cb(")
}

func TestWriteVersionParsesDottedVersion(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/version", nil)

	oh.WriteVersion(w, r, "1.2.3-4")

	var body struct {
		Data struct {
			Major     int    `json:"major"`
			Minor     int    `json:"minor"`
			Revision  int    `json:"revision"`
			Extra     int    `json:"extra"`
			Version   string `json:"version"`
			Signature string `json:"signature"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Data.Major)
	require.Equal(t, 2, body.Data.Minor)
	require.Equal(t, 3, body.Data.Revision)
	require.Equal(t, 4, body.Data.Extra)
	require.Equal(t, "1.2.3-4", body.Data.Version)
	require.Equal(t, "bolt-go", body.Data.Signature)
}

func TestSetHeaderStampsServer(t *testing.T) {
	w := httptest.NewRecorder()
	oh.SetHeader(w)
	require.Equal(t, "bolt-go", w.Header().Get("Server"))
}
