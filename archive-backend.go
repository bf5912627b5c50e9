package page2cbr

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// archiveBackend produces one archive from an ordered list of files inside
// imagesDir. Entries must be stored without any directory prefix, in the
// order given.
type archiveBackend interface {
	Name() string
	Ext() string
	Create(imagesDir string, files []string, dstPath string) error
}

// findRarExecutable returns the rar executable to use, if any. An explicit
// path wins over a PATH lookup of the well-known names.
func findRarExecutable(explicit string) string {
	if explicit != "" {
		return explicit
	}

	for _, name := range []string{"rar", "rar.exe"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}

// rarBackend builds a CBR by shelling out to the rar executable.
type rarBackend struct {
	exe string
}

func (b *rarBackend) Name() string { return "rar" }
func (b *rarBackend) Ext() string  { return ".cbr" }

func (b *rarBackend) Create(imagesDir string, files []string, dstPath string) error {
	// -ep drops stored paths, -idq silences interactive output. The
	// command runs inside imagesDir so the argument order alone decides
	// the order of entries in the archive.
	args := append([]string{"a", "-ep", "-idq", dstPath}, files...)
	cmd := exec.Command(b.exe, args...)
	cmd.Dir = imagesDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(output))
		if msg == "" {
			msg = err.Error()
		}
		return errors.Errorf("rar failed: %s", msg)
	}

	return nil
}

// zipBackend builds a CBZ with the standard library zip writer, using
// deflate-compressed entries named by bare filename.
type zipBackend struct{}

func (b *zipBackend) Name() string { return "zip" }
func (b *zipBackend) Ext() string  { return ".cbz" }

func (b *zipBackend) Create(imagesDir string, files []string, dstPath string) error {
	archive, err := os.Create(dstPath)
	if err != nil {
		return errors.Wrap(err, "failed to create archive")
	}

	zipWriter := zip.NewWriter(archive)
	err = func() error {
		for _, name := range files {
			entry, err := zipWriter.CreateHeader(&zip.FileHeader{
				Name:   name,
				Method: zip.Deflate,
			})
			if err != nil {
				return err
			}

			src, err := os.Open(filepath.Join(imagesDir, name))
			if err != nil {
				return err
			}

			_, err = io.Copy(entry, src)
			src.Close()
			if err != nil {
				return err
			}
		}
		return nil
	}()

	if closeErr := zipWriter.Close(); err == nil {
		err = closeErr
	}
	if archiveErr := archive.Close(); err == nil {
		err = archiveErr
	}

	if err != nil {
		os.Remove(dstPath)
		return errors.Wrap(err, "failed to write archive")
	}

	return nil
}

// packImages runs the configured backends in preference order and returns
// the path and backend name of the archive that got built. A backend
// failure is surfaced in the fallback warning rather than swallowed.
func (arc *Archiver) packImages(imagesDir string, files []string, dstBase string) (string, string, error) {
	if len(files) == 0 {
		return "", "", fmt.Errorf("%w: no image to pack", ErrPackaging)
	}

	var lastErr error
	for _, backend := range arc.backends {
		dstPath, err := filepath.Abs(dstBase + backend.Ext())
		if err != nil {
			return "", "", errors.Wrap(err, "invalid output path")
		}

		if err := backend.Create(imagesDir, files, dstPath); err != nil {
			lastErr = err
			arc.warnf("%s backend failed (%v), falling back\n", backend.Name(), err)
			continue
		}

		return dstPath, backend.Name(), nil
	}

	return "", "", fmt.Errorf("%w: %v", ErrPackaging, lastErr)
}
