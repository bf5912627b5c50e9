package page2cbr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

var (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome Safari"
	maxElapsedTime   = 30 * time.Second
)

// Terminal conditions of an archival run. Per-image failures are never
// terminal; they are collected on the Result instead.
var (
	// ErrHTMLSource means the page HTML could not be obtained at all.
	ErrHTMLSource = errors.New("failed to obtain page HTML")
	// ErrNoCandidates means extraction and filtering left nothing to download.
	ErrNoCandidates = errors.New("no image candidates found in page")
	// ErrNoUsableImages means every single candidate failed to download.
	ErrNoUsableImages = errors.New("no usable image could be downloaded")
	// ErrPackaging means every available archive backend failed.
	ErrPackaging = errors.New("failed to package images")
)

// Request is data of an archival request.
type Request struct {
	URL string

	// Input optionally supplies pre-fetched HTML. When set, the HTML
	// source (plain or rendered fetch) is skipped entirely.
	Input io.Reader

	// DstBase is the output base path without extension. The archive
	// extension depends on which backend produced it.
	DstBase string
}

// DownloadRecord describes the outcome of one candidate download.
type DownloadRecord struct {
	URL    string
	Path   string
	OK     bool
	Reason error // nil when OK
}

// Result is the outcome of one archival run.
type Result struct {
	ArchivePath string
	Backend     string
	Succeeded   int
	Failures    []DownloadRecord
}

// Archiver turns a single web page into a comic archive: it extracts image
// URLs from the page, downloads them in natural-sort order and packs them
// into a CBR, falling back to CBZ when no rar executable is usable.
type Archiver struct {
	UserAgent string
	Referer   string // per-image Referer header; the page URL when empty
	Cookie    string // raw Cookie header value

	EnableLog        bool
	EnableVerboseLog bool

	Transport             http.RoundTripper
	RequestTimeout        time.Duration
	MaxRetries            int // page fetch only, images are never retried
	MaxConcurrentDownload int64

	MaxImages        int  // 0 = unlimited
	DisableExtFilter bool // keep extension-less candidate URLs

	RarPath string // explicit rar executable, otherwise looked up in PATH

	RenderHTML bool // obtain HTML from a headless browser instead of GET
	RenderWait time.Duration

	isValidated bool
	httpClient  *http.Client
	dlSemaphore *semaphore.Weighted
	backends    []archiveBackend
}

// Validate prepares Archiver to make sure its configurations are valid and
// ready to use. Must be run at least once before archival started.
func (arc *Archiver) Validate() {
	if arc.UserAgent == "" {
		arc.UserAgent = defaultUserAgent
	}

	if arc.RequestTimeout <= 0 {
		arc.RequestTimeout = 30 * time.Second
	}

	if arc.MaxConcurrentDownload <= 0 {
		arc.MaxConcurrentDownload = 4
	}

	if arc.Transport == nil {
		arc.Transport = http.DefaultTransport
	}

	arc.httpClient = &http.Client{
		Timeout:   arc.RequestTimeout,
		Transport: arc.Transport,
	}

	arc.dlSemaphore = semaphore.NewWeighted(arc.MaxConcurrentDownload)

	if arc.backends == nil {
		if exe := findRarExecutable(arc.RarPath); exe != "" {
			arc.backends = append(arc.backends, &rarBackend{exe: exe})
		} else {
			arc.logf("rar executable not found, archive will be packaged as CBZ\n")
		}
		arc.backends = append(arc.backends, &zipBackend{})
	}

	arc.isValidated = true
}

// Archive runs the whole pipeline for the specified request and returns the
// run result. Candidates that fail to download are recorded on the result;
// the returned error is non-nil only for the terminal conditions.
func (arc *Archiver) Archive(ctx context.Context, req Request) (*Result, error) {
	if !arc.isValidated {
		return nil, fmt.Errorf("archiver hasn't been validated")
	}

	if req.URL == "" {
		return nil, fmt.Errorf("request url is not specified")
	}

	pageURL, err := nurl.Parse(req.URL)
	if err != nil || pageURL.Scheme == "" || pageURL.Hostname() == "" {
		return nil, fmt.Errorf("url \"%s\" is not valid", req.URL)
	}

	if req.DstBase == "" {
		req.DstBase = "comic"
	}

	// Obtain the page HTML
	var pageHTML string
	switch {
	case req.Input != nil:
		content, err := io.ReadAll(req.Input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHTMLSource, err)
		}
		pageHTML = string(content)
	case arc.RenderHTML:
		pageHTML, err = fetchRenderedHTML(ctx, req.URL, arc.RenderWait, arc.UserAgent)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHTMLSource, err)
		}
	default:
		pageHTML, err = arc.fetchHTML(ctx, req.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHTMLSource, err)
		}
	}

	// Extract and sequence candidates
	candidates, err := arc.sequenceCandidates(extractImageURLs(pageURL, pageHTML))
	if err != nil {
		return nil, err
	}
	arc.verbosef("found %d image candidates in %s\n", len(candidates), req.URL)

	// The working directory only lives for this run, even on failure,
	// so partial downloads never leak to disk.
	imagesDir, err := os.MkdirTemp("", "page2cbr-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create working directory")
	}
	defer os.RemoveAll(imagesDir)

	records := arc.downloadImages(ctx, candidates, imagesDir, req.URL)

	result := &Result{}
	var files []string
	for _, rec := range records {
		if rec.OK {
			result.Succeeded++
			files = append(files, filepath.Base(rec.Path))
		} else {
			result.Failures = append(result.Failures, rec)
		}
	}

	if result.Succeeded == 0 {
		return result, ErrNoUsableImages
	}

	result.ArchivePath, result.Backend, err = arc.packImages(imagesDir, files, req.DstBase)
	if err != nil {
		return result, err
	}

	return result, nil
}
