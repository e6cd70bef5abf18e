// Package dump acquires, extracts and parses Wikipedia XML exports.
package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"

	"wikifeeder/internal/logger"
	"wikifeeder/internal/progress"
)

// Acquisition errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrCorruptArchive   = errors.New("corrupt archive")
)

const (
	downloadChunkSize = 1024 * 1024
	extractChunkSize  = 100 * 1024
	xmlFileName       = "wikipedia.xml"
	userAgent         = "wikifeeder/1.0"
)

// Acquirer downloads a dump export and decompresses it to local disk. Both
// steps are idempotent: an archive already on disk means a completed
// download, a populated extract directory means a completed extraction.
type Acquirer struct {
	client      *http.Client
	log         *logger.Logger
	url         string
	archivePath string
	extractDir  string
	keepArchive bool
	progressOut io.Writer
}

// AcquirerConfig carries the construction parameters for an Acquirer.
type AcquirerConfig struct {
	// URL is the dump export to download.
	URL string
	// ArchivePath is where the compressed archive lives on disk.
	ArchivePath string
	// ExtractDir is where the decompressed XML is written.
	ExtractDir string
	// KeepArchive leaves the archive in place after extraction. Sample
	// runs delete it to reclaim disk.
	KeepArchive bool
	// ProgressOut receives progress rendering, nil disables it.
	ProgressOut io.Writer
}

// NewAcquirer creates an acquirer for the given dump export.
func NewAcquirer(cfg AcquirerConfig, log *logger.Logger) *Acquirer {
	return &Acquirer{
		client:      &http.Client{},
		log:         log,
		url:         cfg.URL,
		archivePath: cfg.ArchivePath,
		extractDir:  cfg.ExtractDir,
		keepArchive: cfg.KeepArchive,
		progressOut: cfg.ProgressOut,
	}
}

// XMLPath returns the location of the decompressed dump.
func (a *Acquirer) XMLPath() string {
	return filepath.Join(a.extractDir, xmlFileName)
}

// EnsureArchive downloads the dump unless the archive is already on disk.
// A failed download removes its partial file so a later attempt starts
// clean.
func (a *Acquirer) EnsureArchive(ctx context.Context) error {
	if _, err := os.Stat(a.archivePath); err == nil {
		a.log.Info("dump archive already present", "path", a.archivePath)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(a.archivePath), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	a.log.Info("downloading dump", "url", a.url)

	if err := a.download(ctx); err != nil {
		a.removeQuietly(a.archivePath)
		return err
	}

	a.log.Info("dump archive downloaded", "path", a.archivePath)

	return nil
}

func (a *Acquirer) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download dump: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			a.log.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	out, err := os.Create(a.archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	bar := progress.NewByteBar(a.progressOut, filepath.Base(a.archivePath), resp.ContentLength)

	buf := make([]byte, downloadChunkSize)
	_, err = io.CopyBuffer(io.MultiWriter(out, bar.Writer()), resp.Body, buf)

	bar.Finish()

	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	return nil
}

// EnsureExtracted decompresses the archive into the extract directory unless
// it already holds files. A failed extraction removes its partial output.
func (a *Acquirer) EnsureExtracted(ctx context.Context) error {
	if entries, err := os.ReadDir(a.extractDir); err == nil && len(entries) > 0 {
		a.log.Info("extract directory already populated", "dir", a.extractDir)
		return nil
	}

	if err := os.MkdirAll(a.extractDir, 0o755); err != nil {
		return fmt.Errorf("failed to create extract directory: %w", err)
	}

	a.log.Info("extracting dump archive", "path", a.archivePath)

	xmlPath := a.XMLPath()

	if err := a.extract(ctx, xmlPath); err != nil {
		a.removeQuietly(xmlPath)
		return err
	}

	a.log.Info("dump extracted", "file", xmlPath)

	if !a.keepArchive {
		if err := os.Remove(a.archivePath); err != nil {
			a.log.Warn("failed to delete archive after extraction", "path", a.archivePath, "error", err)
		} else {
			a.log.Info("deleted archive after extraction", "path", a.archivePath)
		}
	}

	return nil
}

func (a *Acquirer) extract(ctx context.Context, xmlPath string) error {
	in, err := os.Open(a.archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}

	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			a.log.Warn("failed to close archive", "error", closeErr)
		}
	}()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	// Progress is measured in compressed bytes consumed, the only total
	// known up front.
	bar := progress.NewByteBar(a.progressOut, "extracting", info.Size())
	src := &contextReader{ctx: ctx, r: &countingReader{r: in, bar: bar}}

	bz, err := bzip2.NewReader(src, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}

	out, err := os.Create(xmlPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	buf := make([]byte, extractChunkSize)
	_, err = io.CopyBuffer(out, bz, buf)

	bar.Finish()

	if err == nil {
		err = bz.Close()
	}

	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}

	return nil
}

// removeQuietly deletes a partial artifact after a failure. The original
// failure is what the caller reports, so removal problems only warn.
func (a *Acquirer) removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn("failed to remove partial file", "path", path, "error", err)
	}
}

type countingReader struct {
	r   io.Reader
	bar *progress.Bar
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.bar.Add(int64(n))
	}

	return n, err
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
