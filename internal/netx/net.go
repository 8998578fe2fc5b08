// Package netx fetches import sources over HTTP.
package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/filex"
	"github.com/google/uuid"
)

const chunkSize = 64 * 1024

// Downloader streams remote files to disk.
type Downloader struct {
	client *http.Client
	now    func() time.Time
}

// NewDownloader returns a Downloader whose requests time out after timeout
// (zero means no timeout).
func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{client: &http.Client{Timeout: timeout}, now: time.Now}
}

// Fetch downloads link into destDir and returns the local path. Drive and
// Sheets share links are rewritten to direct downloads first. The body is
// copied in fixed-size chunks and never held in memory as a whole.
func (d *Downloader) Fetch(ctx context.Context, link, destDir string) (string, error) {
	src := link
	if direct, ok := TransformDriveURL(link); ok {
		src = direct
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", &common.TransportError{URL: link, Err: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &common.TransportError{URL: link, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		te := &common.TransportError{URL: link, Status: resp.StatusCode}
		if isDriveHost(src) && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized) {
			te.Err = errors.New("file is not shared: set access to \"Anyone with the link\"")
		}
		return "", te
	}

	dir, err := filex.EnsureDir(destDir)
	if err != nil {
		return "", err
	}

	name := d.fileName(resp, src)
	// a unique prefix keeps concurrent downloads of the same name apart
	dst := filepath.Join(dir, uuid.NewString()[:8]+"_"+name)

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	buf := make([]byte, chunkSize)
	_, copyErr := io.CopyBuffer(out, resp.Body, buf)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst)
		return "", &common.TransportError{URL: link, Err: errors.Join(copyErr, closeErr)}
	}
	return dst, nil
}

// fileName picks the Content-Disposition name, then the URL basename, then
// a timestamped fallback. The result never contains a directory.
func (d *Downloader) fileName(resp *http.Response, src string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if n := safeBase(params["filename"]); n != "" {
				return n
			}
		}
	}

	if u, err := url.Parse(src); err == nil {
		if n := safeBase(path.Base(u.Path)); len(n) >= 3 && strings.Contains(n, ".") {
			return n
		}
	}
	return fmt.Sprintf("import_%s.xlsx", d.now().Format("20060102_150405"))
}

func safeBase(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case ".", "/", "..":
		return ""
	}
	return name
}

// Resolve returns a local path for source: URLs are downloaded into dir,
// anything else must be an existing file.
func (d *Downloader) Resolve(ctx context.Context, source, dir string) (string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return d.Fetch(ctx, source, dir)
	}
	if _, err := os.Stat(source); err != nil {
		return "", fmt.Errorf("source %s: %w", source, err)
	}
	return source, nil
}
