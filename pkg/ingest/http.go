package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// fetch downloads a CSV or JSON document. The format comes from the response content type,
// then from the URL's extension, and defaults to CSV.
func (l *Loader) fetch(ctx context.Context, source models.DataSource) (*table.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Path, nil)
	if err != nil {
		return nil, models.NewConfigurationError("source", "path", "invalid URL: %v", err)
	}
	req.Header.Set("Accept", "text/csv, application/json;q=0.9, */*;q=0.5")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, models.NotFoundError("url", source.Path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if isJSON(resp.Header.Get("Content-Type"), source.Path) {
		return ReadJSON(resp.Body)
	}
	return ReadCSV(resp.Body, delimiter(source.Delimiter))
}

func isJSON(contentType, rawURL string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case strings.HasSuffix(mediaType, "json"):
			return true
		case strings.Contains(mediaType, "csv"):
			return false
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		return strings.EqualFold(path.Ext(u.Path), ".json")
	}
	return false
}
