// Package feed fetches raw vehicle reports from the dados.mobilidade.rio
// GPS endpoints. Each feed has its own response shape; both are
// flattened into Report here so the loose upstream schema never leaks
// past this boundary.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"busao-tracker/internal/normalize"
)

// Report is one raw vehicle observation as delivered by a feed.
// Coordinates stay in their raw string form; the reconciler runs them
// through the normalizer.
type Report struct {
	ID         string
	Plate      string
	Linha      string
	Latitude   string
	Longitude  string
	Speed      string
	Heading    *float64 // nil when the feed carries no usable heading
	ReportedAt time.Time
	SentAt     time.Time
	ReceivedAt time.Time
}

// Source yields the current raw report set for one transport mode.
type Source interface {
	Fetch(ctx context.Context) ([]Report, error)
}

const userAgent = "Mozilla/5.0 (compatible; MeuBusao/1.0)"

func get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	// the upstream service rejects anonymous clients
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}

// BusFeed reads the SPPO feed: a bare JSON array of all-string records,
// queried over a dataInicial/dataFinal window.
type BusFeed struct {
	BaseURL string
	Window  time.Duration
	Loc     *time.Location
	Client  *http.Client
}

type busReport struct {
	Ordem            string `json:"ordem"`
	Linha            string `json:"linha"`
	Latitude         string `json:"latitude"`
	Longitude        string `json:"longitude"`
	DataHora         string `json:"datahora"`
	Velocidade       string `json:"velocidade"`
	DataHoraEnvio    string `json:"datahoraenvio"`
	DataHoraServidor string `json:"datahoraservidor"`
}

func (f *BusFeed) Fetch(ctx context.Context) ([]Report, error) {
	loc := f.Loc
	if loc == nil {
		loc = time.Local
	}
	end := time.Now().In(loc)
	start := end.Add(-f.Window)
	// The upstream expects the raw `+` separator in the window literal;
	// escaping it changes the value the server decodes.
	u := fmt.Sprintf("%s?dataInicial=%s&dataFinal=%s",
		f.BaseURL,
		normalize.FormatWindowTimestamp(start),
		normalize.FormatWindowTimestamp(end))

	body, err := get(ctx, f.Client, u)
	if err != nil {
		return nil, err
	}
	var raw []busReport
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse bus feed: %w", err)
	}
	out := make([]Report, 0, len(raw))
	for _, b := range raw {
		out = append(out, Report{
			ID:         b.Ordem,
			Linha:      b.Linha,
			Latitude:   b.Latitude,
			Longitude:  b.Longitude,
			Speed:      b.Velocidade,
			ReportedAt: normalize.ParseEpochMillis(b.DataHora),
			SentAt:     normalize.ParseEpochMillis(b.DataHoraEnvio),
			ReceivedAt: normalize.ParseEpochMillis(b.DataHoraServidor),
		})
	}
	return out, nil
}

// BRTFeed reads the BRT feed: an object wrapping the vehicle array
// under "veiculos", with numeric coordinates and a heading field that
// may be a number, a padded string, or a lone space.
type BRTFeed struct {
	URL    string
	Client *http.Client
}

type brtVehicle struct {
	Codigo     string          `json:"codigo"`
	Placa      string          `json:"placa"`
	Linha      string          `json:"linha"`
	Latitude   json.Number     `json:"latitude"`
	Longitude  json.Number     `json:"longitude"`
	DataHora   int64           `json:"dataHora"`
	Velocidade json.Number     `json:"velocidade"`
	Direcao    json.RawMessage `json:"direcao"`
}

func (f *BRTFeed) Fetch(ctx context.Context) ([]Report, error) {
	body, err := get(ctx, f.Client, f.URL)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Veiculos []brtVehicle `json:"veiculos"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("parse brt feed: %w", err)
	}
	out := make([]Report, 0, len(wrapper.Veiculos))
	for _, v := range wrapper.Veiculos {
		out = append(out, Report{
			ID:         v.Codigo,
			Plate:      v.Placa,
			Linha:      v.Linha,
			Latitude:   v.Latitude.String(),
			Longitude:  v.Longitude.String(),
			Speed:      v.Velocidade.String(),
			Heading:    parseHeading(v.Direcao),
			ReportedAt: time.UnixMilli(v.DataHora),
		})
	}
	return out, nil
}

// parseHeading accepts a numeric or string direcao field. Anything that
// does not parse to a number is unknown, not zero: zero is a valid
// heading (due north).
func parseHeading(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	s := strings.TrimSpace(strings.Trim(string(raw), `"`))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
