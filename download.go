package page2cbr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	// Files this small are almost always tracking pixels, icons or error
	// pages served with an image content type.
	minImageSize = 1024

	copyChunkSize = 128 * 1024

	defaultImageExt = ".jpg"
)

// fileNameForCandidate derives the positional on-disk name for a candidate:
// zero-padded sequence number plus the extension from the URL path. Missing
// or implausibly long extensions fall back to .jpg.
func fileNameForCandidate(index int, rawURL string) string {
	ext := ""
	if u, err := nurl.Parse(rawURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if ext == "" || len(ext) > 6 {
		ext = defaultImageExt
	}
	return fmt.Sprintf("%04d%s", index, ext)
}

// downloadImages fetches every candidate into dir through the bounded
// download pool. Destination names are fixed before dispatch, so the
// completion order of concurrent downloads can never scramble page order.
// One record is returned per candidate, in candidate order.
func (arc *Archiver) downloadImages(ctx context.Context, urls []string, dir string, pageURL string) []DownloadRecord {
	referer := arc.Referer
	if referer == "" {
		referer = pageURL
	}

	records := make([]DownloadRecord, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		records[i] = DownloadRecord{
			URL:  url,
			Path: filepath.Join(dir, fileNameForCandidate(i+1, url)),
		}

		if err := arc.dlSemaphore.Acquire(ctx, 1); err != nil {
			records[i].Reason = err
			continue
		}

		wg.Add(1)
		go func(rec *DownloadRecord, seq int) {
			defer wg.Done()
			defer arc.dlSemaphore.Release(1)

			if err := arc.downloadImage(ctx, rec.URL, rec.Path, referer); err != nil {
				rec.Reason = err
				arc.logf("[SKIP] %d/%d %s: %v\n", seq, len(urls), rec.URL, err)
				return
			}

			rec.OK = true
			arc.logf("[OK] %d/%d %s\n", seq, len(urls), rec.URL)
		}(&records[i], i+1)
	}
	wg.Wait()

	return records
}

// downloadImage fetches one candidate and writes it to dstPath. Any failure
// removes the partial file so the working directory never holds truncated
// images that could be swept into the archive.
func (arc *Archiver) downloadImage(ctx context.Context, url string, dstPath string, referer string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "http error")
	}

	req.Header.Set("User-Agent", arc.UserAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	if arc.Cookie != "" {
		req.Header.Set("Cookie", arc.Cookie)
	}

	resp, err := arc.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "http error")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Errorf("http error: status %d", resp.StatusCode)
	}

	// An image-looking URL is trusted even when the server declares a
	// bogus content type, which misconfigured image hosts often do.
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "image") && !isProbablyImageURL(url) {
		return errors.Errorf("content type %q is not an image", contentType)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}

	buf := make([]byte, copyChunkSize)
	written, err := io.CopyBuffer(dst, resp.Body, buf)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dstPath)
		return errors.Wrap(err, "failed to write file")
	}

	if written < minImageSize {
		os.Remove(dstPath)
		return errors.Errorf("file too small (%d bytes), possibly an icon or error page", written)
	}

	return nil
}
