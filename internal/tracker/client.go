package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"busao-tracker/internal/vehicle"
)

// Client talks to the tracker server's HTTP API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return json.Unmarshal(body, out)
}

func snapshotPath(class vehicle.Class) string {
	if class == vehicle.ClassBRT {
		return "/api/brt"
	}
	return "/api/buses"
}

// Snapshot fetches the current server snapshot for the given lines.
func (c *Client) Snapshot(ctx context.Context, class vehicle.Class, linhas []string) ([]vehicle.Record, error) {
	q := url.Values{"linhas": {strings.Join(linhas, ",")}}
	var recs []vehicle.Record
	if err := c.get(ctx, snapshotPath(class), q, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// RouteShapes fetches the reference polylines for the given lines.
func (c *Client) RouteShapes(ctx context.Context, linhas []string) (map[string][]vehicle.Polyline, error) {
	q := url.Values{"linhas": {strings.Join(linhas, ",")}}
	out := make(map[string][]vehicle.Polyline)
	if err := c.get(ctx, "/api/route-shapes", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Lines searches the line reference data for autocomplete.
func (c *Client) Lines(ctx context.Context, query string, modo vehicle.Class, limit int) ([]vehicle.Line, error) {
	q := url.Values{"q": {query}}
	if modo != "" {
		q.Set("modo", string(modo))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var out struct {
		Lines []vehicle.Line `json:"lines"`
	}
	if err := c.get(ctx, "/api/lines", q, &out); err != nil {
		return nil, err
	}
	return out.Lines, nil
}
