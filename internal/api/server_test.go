package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyclemine/pkg/mining/core"
)

type fakeSource struct {
	status    Status
	solutions []core.Solution
	stopped   bool
}

func (f *fakeSource) Status() Status             { return f.status }
func (f *fakeSource) Solutions() []core.Solution { return f.solutions }
func (f *fakeSource) RequestStop()               { f.stopped = true }

func TestStatusEndpoint(t *testing.T) {
	src := &fakeSource{status: Status{
		PluginName:    "cuckoo_lean_30",
		JobID:         7,
		RunID:         "run-1",
		Running:       true,
		SolutionFound: true,
		GraphsPerSec:  1.5,
	}}
	server := NewServer(src, nil)

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, uint32(7), got.JobID)
	assert.Equal(t, "cuckoo_lean_30", got.PluginName)
	assert.True(t, got.SolutionFound)
	assert.InDelta(t, 1.5, got.GraphsPerSec, 0.001)
}

func TestSolutionsEndpoint(t *testing.T) {
	var sol core.Solution
	sol.Nonces[0] = 42
	sol.SetNonce(0x0102030405060708)
	src := &fakeSource{solutions: []core.Solution{sol}}
	server := NewServer(src, nil)

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/solutions", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count     int             `json:"count"`
		Solutions []core.Solution `json:"solutions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, uint32(42), body.Solutions[0].Nonces[0])
	assert.Equal(t, uint64(0x0102030405060708), body.Solutions[0].NonceUint64())
}

func TestSolutionsEndpointEmpty(t *testing.T) {
	server := NewServer(&fakeSource{}, nil)

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/solutions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"solutions":[]}`, w.Body.String())
}

func TestStopEndpoint(t *testing.T) {
	src := &fakeSource{}
	server := NewServer(src, nil)

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/stop", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, src.stopped)
}
