package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busao-tracker/internal/feed"
)

func TestBusFeedFetch(t *testing.T) {
	var gotUA, gotRawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotRawQuery = r.URL.RawQuery
		w.Write([]byte(`[
			{"ordem":"D13295","linha":"384","latitude":"-22,90","longitude":"-43,17","datahora":"1700000000000","velocidade":"35","datahoraenvio":"1700000001000","datahoraservidor":"1700000002000"}
		]`))
	}))
	defer srv.Close()

	f := &feed.BusFeed{BaseURL: srv.URL, Window: time.Hour, Loc: time.UTC, Client: srv.Client()}
	reports, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, "D13295", r.ID)
	assert.Equal(t, "384", r.Linha)
	assert.Equal(t, "-22,90", r.Latitude)
	assert.Equal(t, "-43,17", r.Longitude)
	assert.Equal(t, "35", r.Speed)
	assert.Nil(t, r.Heading)
	assert.Equal(t, time.UnixMilli(1700000000000), r.ReportedAt)
	assert.Equal(t, time.UnixMilli(1700000001000), r.SentAt)
	assert.Equal(t, time.UnixMilli(1700000002000), r.ReceivedAt)

	assert.Contains(t, gotUA, "MeuBusao")
	// the window literal goes on the wire unescaped, raw `+` included
	assert.Regexp(t,
		`^dataInicial=\d{4}-\d{2}-\d{2}\+\d{2}:\d{2}:\d{2}&dataFinal=\d{4}-\d{2}-\d{2}\+\d{2}:\d{2}:\d{2}$`,
		gotRawQuery)
	assert.NotContains(t, gotRawQuery, "%2B")
}

func TestBRTFeedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"veiculos":[
			{"codigo":"B1","placa":"ABC1234","linha":"10","latitude":-22.9068,"longitude":-43.1729,"dataHora":1700000000000,"velocidade":42,"direcao":"090"},
			{"codigo":"B2","linha":"10","latitude":-22.91,"longitude":-43.18,"dataHora":1700000000000,"velocidade":0,"direcao":" "},
			{"codigo":"B3","linha":"11","latitude":-22.92,"longitude":-43.19,"dataHora":1700000000000,"velocidade":12,"direcao":0}
		]}`))
	}))
	defer srv.Close()

	f := &feed.BRTFeed{URL: srv.URL, Client: srv.Client()}
	reports, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, "B1", reports[0].ID)
	assert.Equal(t, "ABC1234", reports[0].Plate)
	assert.Equal(t, "-22.9068", reports[0].Latitude)
	require.NotNil(t, reports[0].Heading)
	assert.Equal(t, 90.0, *reports[0].Heading)

	// a lone-space direcao is unknown, not zero
	assert.Nil(t, reports[1].Heading)

	// a numeric zero direcao is a valid heading (due north)
	require.NotNil(t, reports[2].Heading)
	assert.Equal(t, 0.0, *reports[2].Heading)
}

func TestFetchNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	brt := &feed.BRTFeed{URL: srv.URL, Client: srv.Client()}
	_, err := brt.Fetch(context.Background())
	assert.ErrorContains(t, err, "unexpected status 502")

	bus := &feed.BusFeed{BaseURL: srv.URL, Window: time.Hour, Client: srv.Client()}
	_, err = bus.Fetch(context.Background())
	assert.ErrorContains(t, err, "unexpected status 502")
}

func TestFetchMalformedJSONFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()

	bus := &feed.BusFeed{BaseURL: srv.URL, Window: time.Hour, Client: srv.Client()}
	_, err := bus.Fetch(context.Background())
	assert.ErrorContains(t, err, "parse bus feed")
}

func TestBRTFeedMissingVeiculos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := &feed.BRTFeed{URL: srv.URL, Client: srv.Client()}
	reports, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}
