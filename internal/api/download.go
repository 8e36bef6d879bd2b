package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DownloadFile performs a GET expecting a binary body and saves it to
// filename. The body is streamed into a temporary file in the target
// directory and renamed into place on success; the temporary file is
// removed on every failure path so no half-written file is left behind.
func (c *Client) DownloadFile(ctx context.Context, path, filename string, query url.Values) (err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path, query), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return normalizeTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return c.httpError(resp.StatusCode, raw)
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create download dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		err = normalizeTransportError(err)
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	return nil
}

// CSVExportFilename derives a local filename for a CSV export when the
// caller did not supply one.
func CSVExportFilename(projectID string) string {
	safe := strings.ReplaceAll(projectID, string(os.PathSeparator), "_")
	return fmt.Sprintf("tasks-%s-%s.csv", safe, time.Now().Format("2006-01-02"))
}
