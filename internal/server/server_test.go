package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busao-tracker/internal/feed"
	"busao-tracker/internal/ingest"
	"busao-tracker/internal/metrics"
	"busao-tracker/internal/server"
	"busao-tracker/internal/store"
	"busao-tracker/internal/vehicle"
)

// newStack wires a memory store, a bus feed pointed at upstream, and
// the HTTP router, mirroring the production composition in cmd/tracker.
func newStack(t *testing.T, upstream http.Handler) (*store.Memory, *httptest.Server) {
	t.Helper()
	feedSrv := httptest.NewServer(upstream)
	t.Cleanup(feedSrv.Close)

	st := store.NewMemory()
	sources := map[vehicle.Class]feed.Source{
		vehicle.ClassBus: &feed.BusFeed{BaseURL: feedSrv.URL, Window: time.Hour, Loc: time.UTC, Client: feedSrv.Client()},
	}
	mcol := metrics.NewCollector()
	syncer := ingest.NewSyncer(sources, st, nil, mcol)
	apiSrv := httptest.NewServer(server.New(st, syncer, mcol).Router([]string{"*"}))
	t.Cleanup(apiSrv.Close)
	return st, apiSrv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestSyncThenReadEndToEnd(t *testing.T) {
	_, apiSrv := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"ordem":"X1","linha":"384","latitude":"-22,90","longitude":"-43,17","velocidade":"35","datahora":"1700000000000"}]`))
	}))

	var syncResp struct {
		OK    bool `json:"ok"`
		Count int  `json:"count"`
	}
	resp := getJSON(t, apiSrv.URL+"/api/buses/sync", &syncResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, syncResp.OK)
	assert.Equal(t, 1, syncResp.Count)

	var recs []vehicle.Record
	resp = getJSON(t, apiSrv.URL+"/api/buses?linhas=384", &recs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, recs, 1)
	assert.Equal(t, "X1", recs[0].ID)
	assert.Equal(t, -22.90, recs[0].Latitude)
	assert.Equal(t, -43.17, recs[0].Longitude)
	assert.Equal(t, 35.0, recs[0].Speed)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), recs[0].Timestamp.UTC())

	// line tokens are trimmed and empties skipped
	resp = getJSON(t, apiSrv.URL+"/api/buses?linhas=%20384%20,,", &recs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, recs, 1)
}

func TestSyncFeedFailureReturns500(t *testing.T) {
	_, apiSrv := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	resp := getJSON(t, apiSrv.URL+"/api/buses/sync", &errResp)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, errResp.Error)
	assert.NotEmpty(t, errResp.Message)
}

func TestSnapshotWithoutLinhasIsEmptyArray(t *testing.T) {
	st, apiSrv := newStack(t, http.NewServeMux())
	st.ReplaceSnapshot(context.Background(), vehicle.ClassBus, []vehicle.Record{
		{ID: "A", Linha: "384", Timestamp: time.Now()},
	})

	var recs []vehicle.Record
	resp := getJSON(t, apiSrv.URL+"/api/buses", &recs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, recs)
}

func TestSnapshotEmptyStoreIsEmptyArrayNotError(t *testing.T) {
	_, apiSrv := newStack(t, http.NewServeMux())
	var recs []vehicle.Record
	resp := getJSON(t, apiSrv.URL+"/api/brt?linhas=10", &recs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, recs)
}

func TestLinesEndpoint(t *testing.T) {
	st, apiSrv := newStack(t, http.NewServeMux())
	st.SeedLines([]vehicle.Line{
		{Numero: "384", Nome: "Pavuna - Passeio", Modo: vehicle.ClassBus},
		{Numero: "385", Nome: "Irajá - Candelária", Modo: vehicle.ClassBus},
	})

	var out struct {
		Lines []vehicle.Line `json:"lines"`
	}
	resp := getJSON(t, apiSrv.URL+"/api/lines?q=38&modo=bus", &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out.Lines, 2)

	resp = getJSON(t, apiSrv.URL+"/api/lines?q=", &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, out.Lines)

	resp = getJSON(t, apiSrv.URL+"/api/lines?q=38&modo=tram", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouteShapesEndpoint(t *testing.T) {
	st, apiSrv := newStack(t, http.NewServeMux())
	st.SeedShapes("384", []vehicle.Polyline{
		{{Lat: -22.9, Lon: -43.2}, {Lat: -22.91, Lon: -43.21}},
	})

	var out map[string][]vehicle.Polyline
	resp := getJSON(t, apiSrv.URL+"/api/route-shapes?linhas=384,399", &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, out, "384")
	assert.Len(t, out["384"][0], 2)

	out = nil
	resp = getJSON(t, apiSrv.URL+"/api/route-shapes", &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, out)
}

func TestHealthEndpoint(t *testing.T) {
	_, apiSrv := newStack(t, http.NewServeMux())
	var out map[string]any
	resp := getJSON(t, apiSrv.URL+"/health", &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
}
