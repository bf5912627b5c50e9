package page2cbr

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArchiver_Validate(t *testing.T) {
	arc := &Archiver{}
	arc.Validate()

	assert.NotEmpty(t, arc.UserAgent)
	assert.Greater(t, arc.RequestTimeout.Seconds(), 0.0)
	assert.Greater(t, arc.MaxConcurrentDownload, int64(0))
	assert.NotNil(t, arc.httpClient)
	assert.NotNil(t, arc.dlSemaphore)
	assert.NotEmpty(t, arc.backends)
	assert.True(t, arc.isValidated)

	// The zip fallback is always the last backend
	last := arc.backends[len(arc.backends)-1]
	assert.Equal(t, "zip", last.Name())
}

func TestArchiver_RequestValidation(t *testing.T) {
	arc := &Archiver{}

	_, err := arc.Archive(context.Background(), Request{URL: "https://x.test/p"})
	assert.ErrorContains(t, err, "hasn't been validated")

	arc.Validate()

	_, err = arc.Archive(context.Background(), Request{})
	assert.ErrorContains(t, err, "url is not specified")

	_, err = arc.Archive(context.Background(), Request{URL: "notValidURL"})
	assert.ErrorContains(t, err, "is not valid")
}

func newGalleryServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/p", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<img src="/a/1.jpg">
			<img src="/a/2.jpg">
			<img src="/a/10.jpg">
		</body></html>`))
	})
	for _, img := range []struct {
		path string
		size int
	}{
		{"/a/1.jpg", 2048},
		{"/a/2.jpg", 3000},
		{"/a/10.jpg", 4096},
	} {
		size := img.size
		mux.HandleFunc(img.path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(bytes.Repeat([]byte("x"), size))
		})
	}
	return httptest.NewServer(mux)
}

func TestArchiver_Archive(t *testing.T) {
	server := newGalleryServer()
	defer server.Close()

	dstBase := filepath.Join(t.TempDir(), "comic")

	arc := &Archiver{backends: []archiveBackend{&zipBackend{}}}
	arc.Validate()

	result, err := arc.Archive(context.Background(), Request{
		URL:     server.URL + "/p",
		DstBase: dstBase,
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, result.Succeeded)
	assert.Empty(t, result.Failures)
	assert.Equal(t, "zip", result.Backend)
	assert.Equal(t, dstBase+".cbz", result.ArchivePath)

	// Entries follow natural-sort page order: 1, 2, 10
	reader, err := zip.OpenReader(result.ArchivePath)
	assert.NoError(t, err)
	defer reader.Close()

	assert.Len(t, reader.File, 3)
	wantSizes := map[string]uint64{
		"0001.jpg": 2048,
		"0002.jpg": 3000,
		"0003.jpg": 4096,
	}
	for i, name := range []string{"0001.jpg", "0002.jpg", "0003.jpg"} {
		assert.Equal(t, name, reader.File[i].Name)
		assert.Equal(t, wantSizes[name], reader.File[i].UncompressedSize64)
	}
}

func TestArchiver_ArchiveFromInput(t *testing.T) {
	server := newGalleryServer()
	defer server.Close()

	pageHTML := `<img src="` + server.URL + `/a/1.jpg">`

	arc := &Archiver{backends: []archiveBackend{&zipBackend{}}}
	arc.Validate()

	result, err := arc.Archive(context.Background(), Request{
		URL:     server.URL + "/p",
		Input:   strings.NewReader(pageHTML),
		DstBase: filepath.Join(t.TempDir(), "comic"),
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
}

func TestArchiver_ArchiveNoCandidates(t *testing.T) {
	arc := &Archiver{backends: []archiveBackend{&zipBackend{}}}
	arc.Validate()

	_, err := arc.Archive(context.Background(), Request{
		URL:   "https://x.test/p",
		Input: strings.NewReader("<html><body><p>nothing here</p></body></html>"),
	})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestArchiver_ArchiveZeroSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dstBase := filepath.Join(t.TempDir(), "comic")

	arc := &Archiver{backends: []archiveBackend{&zipBackend{}}}
	arc.Validate()

	result, err := arc.Archive(context.Background(), Request{
		URL:     server.URL + "/p",
		Input:   strings.NewReader(`<img src="` + server.URL + `/a/1.jpg">`),
		DstBase: dstBase,
	})
	assert.ErrorIs(t, err, ErrNoUsableImages)
	assert.Equal(t, 0, result.Succeeded)
	assert.Len(t, result.Failures, 1)

	// No archive is produced on a zero-success run
	_, statErr := os.Stat(dstBase + ".cbz")
	assert.True(t, os.IsNotExist(statErr))
}

func TestArchiver_ArchiveSourceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	arc := &Archiver{backends: []archiveBackend{&zipBackend{}}}
	arc.Validate()

	_, err := arc.Archive(context.Background(), Request{URL: server.URL + "/p"})
	assert.ErrorIs(t, err, ErrHTMLSource)
}

func TestArchiver_ArchiveFallbackProducesSameEntries(t *testing.T) {
	server := newGalleryServer()
	defer server.Close()

	run := func(backends []archiveBackend) []string {
		dstBase := filepath.Join(t.TempDir(), "comic")

		arc := &Archiver{backends: backends}
		arc.Validate()

		result, err := arc.Archive(context.Background(), Request{
			URL:     server.URL + "/p",
			DstBase: dstBase,
		})
		assert.NoError(t, err)

		reader, err := zip.OpenReader(result.ArchivePath)
		assert.NoError(t, err)
		defer reader.Close()

		var names []string
		for _, entry := range reader.File {
			names = append(names, entry.Name)
		}
		return names
	}

	direct := run([]archiveBackend{&zipBackend{}})
	fallback := run([]archiveBackend{
		&fakeBackend{name: "rar", ext: ".cbr", err: assert.AnError},
		&zipBackend{},
	})

	assert.Equal(t, direct, fallback)
	assert.Equal(t, []string{"0001.jpg", "0002.jpg", "0003.jpg"}, direct)
}
