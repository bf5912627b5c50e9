package page2cbr

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

// fetchHTML downloads the page itself. Unlike per-image downloads, the page
// fetch retries transient server errors since the whole run depends on it.
func (arc *Archiver) fetchHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", arc.UserAgent)
	if arc.Cookie != "" {
		req.Header.Set("Cookie", arc.Cookie)
	}

	var resp *http.Response
	op := func() error {
		var err error
		resp, err = arc.httpClient.Do(req) //nolint:bodyclose
		if err == nil && (resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests) {
			resp.Body.Close()
			err = fmt.Errorf("failed to fetch with status code: %d", resp.StatusCode)
		}
		return err
	}
	exp := backoff.NewExponentialBackOff()
	exp.MaxElapsedTime = maxElapsedTime
	bo := backoff.WithMaxRetries(exp, uint64(arc.MaxRetries))
	if err := backoff.Retry(op, bo); err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("failed to fetch with status code: %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(content), nil
}
