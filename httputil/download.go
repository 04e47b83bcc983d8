package httputil

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/inodevs/inoutils/result"
)

// TempSuffix is appended to the destination name while a download is in
// flight.
const TempSuffix = ".part"

var (
	cdFilenameStar = regexp.MustCompile(`filename\*=([^']*)''([^;]+)`)
	cdFilenameQ    = regexp.MustCompile(`filename\s*=\s*"([^"]+)"`)
	cdFilename     = regexp.MustCompile(`filename\s*=\s*([^;]+)`)
)

// DownloadOptions controls Download.
type DownloadOptions struct {
	// Filename forces the final file name when destPath is a directory.
	Filename string
	// Overwrite allows replacing an existing destination file.
	Overwrite bool
	// Resume continues a previous partial download via an HTTP Range
	// request when a temp file exists.
	Resume bool
	// Progress, when non-nil, is called with (downloadedBytes, totalBytes);
	// totalBytes is -1 when unknown. Callback panics are not guarded.
	Progress func(downloaded, total int64)
}

// DownloadResult reports the outcome of a download.
type DownloadResult struct {
	result.Status
	Path       string `json:"path,omitempty"`
	Bytes      int64  `json:"bytes"`
	Filename   string `json:"filename,omitempty"`
	StatusCode int    `json:"status_code"`
	Attempts   int    `json:"attempts"`
}

// Download streams a URL to disk without buffering the body in memory.
// destPath may be a directory, in which case the file name is taken from
// opts.Filename, the Content-Disposition header, the final URL path, or a
// "download" fallback with an extension guessed from the content type. The
// body is written to a ".part" temp file and renamed into place only after
// the size check passes, so a failed download never leaves a truncated
// destination. Retries follow the client's retry policy, resuming from the
// temp file when opts.Resume is set.
func (c *Client) Download(ctx context.Context, rawURL, destPath string, opts DownloadOptions) DownloadResult {
	fullURL := c.composeURL(rawURL)

	baseDir, name, isDirHint := splitDest(destPath, opts.Filename, fullURL)
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return DownloadResult{Status: result.Err("create destination directory: %v", err)}
	}

	dest := filepath.Join(baseDir, name)
	tmp := dest + TempSuffix

	if _, err := os.Stat(dest); err == nil && !opts.Overwrite {
		return DownloadResult{Status: result.Err("destination exists and overwrite is off: %s", dest)}
	}

	attempts := c.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		res, retryable, err := c.downloadOnce(ctx, fullURL, dest, tmp, baseDir, isDirHint, opts)
		if err == nil {
			res.Attempts = attempt
			return res
		}
		lastErr = err
		if !retryable || ctx.Err() != nil || attempt == attempts {
			break
		}
		if serr := c.sleepBackoff(ctx, attempt); serr != nil {
			break
		}
	}

	return DownloadResult{
		Status:   result.Err("download failed: %v", lastErr),
		Attempts: attempts,
	}
}

// downloadOnce performs a single download attempt. The returned bool
// indicates whether the error is worth retrying.
func (c *Client) downloadOnce(ctx context.Context, fullURL, dest, tmp, baseDir string, isDirHint bool, opts DownloadOptions) (DownloadResult, bool, error) {
	var startOffset int64
	if opts.Resume {
		if info, err := os.Stat(tmp); err == nil {
			startOffset = info.Size()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return DownloadResult{}, false, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.hasAuth {
		req.SetBasicAuth(c.username, c.password)
	}
	if startOffset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", startOffset))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DownloadResult{}, true, err
	}
	defer func() { _ = resp.Body.Close() }()

	if _, retry := c.retryStatuses[resp.StatusCode]; retry {
		return DownloadResult{}, true, fmt.Errorf("server returned %s", resp.Status)
	}
	if resp.StatusCode >= 400 {
		return DownloadResult{}, false, fmt.Errorf("server returned %s", resp.Status)
	}

	// Server ignored the range request; restart from scratch.
	if startOffset > 0 && resp.StatusCode == http.StatusOK {
		_ = os.Remove(tmp)
		startOffset = 0
	}

	totalSize := expectedTotal(resp, startOffset)

	// Better name may be available from the response once headers arrive.
	if isDirHint && opts.Filename == "" {
		if derived := deriveFilename(resp); derived != "" && derived != filepath.Base(dest) {
			candidate := filepath.Join(baseDir, derived)
			if _, err := os.Stat(candidate); err == nil && !opts.Overwrite {
				return DownloadResult{}, false, fmt.Errorf("destination exists and overwrite is off: %s", candidate)
			}
			// tmp keeps its original name to preserve resume continuity.
			dest = candidate
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if startOffset > 0 {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	out, err := os.OpenFile(tmp, flags, 0o640) // #nosec G304 - path derived from caller destination
	if err != nil {
		return DownloadResult{}, false, err
	}

	downloaded := startOffset
	if opts.Progress != nil {
		opts.Progress(downloaded, totalSize)
	}

	buf := make([]byte, 1024*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				_ = out.Close()
				return DownloadResult{}, true, werr
			}
			downloaded += int64(n)
			if opts.Progress != nil {
				opts.Progress(downloaded, totalSize)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = out.Close()
			return DownloadResult{}, true, readErr
		}
	}
	if err := out.Close(); err != nil {
		return DownloadResult{}, true, err
	}

	if totalSize >= 0 && downloaded != totalSize {
		return DownloadResult{}, true, fmt.Errorf("downloaded size mismatch: got %d, expected %d", downloaded, totalSize)
	}

	if err := os.Rename(tmp, dest); err != nil {
		// Parent may have been removed concurrently; recreate and retry.
		if mkErr := os.MkdirAll(filepath.Dir(dest), 0o750); mkErr != nil {
			return DownloadResult{}, false, err
		}
		if err := os.Rename(tmp, dest); err != nil {
			return DownloadResult{}, false, err
		}
	}

	return DownloadResult{
		Status:     result.Ok(resp.Status),
		Path:       dest,
		Bytes:      downloaded,
		Filename:   filepath.Base(dest),
		StatusCode: resp.StatusCode,
	}, false, nil
}

// splitDest decides whether destPath names a directory or a file and picks
// a provisional file name.
func splitDest(destPath, forcedName, fullURL string) (baseDir, name string, isDirHint bool) {
	info, err := os.Stat(destPath)
	switch {
	case err == nil && info.IsDir():
		isDirHint = true
	case strings.HasSuffix(destPath, "/") || strings.HasSuffix(destPath, string(os.PathSeparator)):
		isDirHint = true
	case err != nil && filepath.Ext(destPath) == "":
		isDirHint = true
	}

	if !isDirHint {
		return filepath.Dir(destPath), filepath.Base(destPath), false
	}

	if forcedName != "" {
		return destPath, forcedName, true
	}
	if u, err := url.Parse(fullURL); err == nil {
		if n := path.Base(u.Path); n != "" && n != "/" && n != "." && strings.Contains(n, ".") && !strings.HasPrefix(n, ".") {
			if decoded, err := url.PathUnescape(n); err == nil {
				n = decoded
			}
			return destPath, n, true
		}
	}
	return destPath, "download", true
}

// expectedTotal computes the expected final size from Content-Length and
// Content-Range, or -1 when unknown.
func expectedTotal(resp *http.Response, startOffset int64) int64 {
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			if resp.StatusCode == http.StatusPartialContent {
				// For partial content, Content-Length is the remainder.
				return startOffset + n
			}
			return n
		}
	}
	if resp.StatusCode == http.StatusPartialContent {
		// Content-Range: bytes start-end/total
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			if i := strings.LastIndexByte(cr, '/'); i >= 0 {
				if n, err := strconv.ParseInt(cr[i+1:], 10, 64); err == nil {
					return n
				}
			}
		}
	}
	return -1
}

// deriveFilename picks a file name from Content-Disposition, the final URL
// path, or the content type, in that order.
func deriveFilename(resp *http.Response) string {
	cd := resp.Header.Get("Content-Disposition")
	var derived string
	if cd != "" {
		if m := cdFilenameStar.FindStringSubmatch(cd); m != nil {
			if decoded, err := url.QueryUnescape(strings.TrimSpace(m[2])); err == nil {
				derived = decoded
			}
		}
		if derived == "" {
			if m := cdFilenameQ.FindStringSubmatch(cd); m != nil {
				derived = strings.TrimSpace(m[1])
			}
		}
		if derived == "" {
			if m := cdFilename.FindStringSubmatch(cd); m != nil {
				derived = strings.Trim(strings.TrimSpace(m[1]), `'"`)
			}
		}
	}

	if derived == "" && resp.Request != nil && resp.Request.URL != nil {
		n := path.Base(resp.Request.URL.Path)
		if n != "" && n != "/" && n != "." && strings.Contains(n, ".") && !strings.HasPrefix(n, ".") {
			derived = n
		}
	}

	if derived != "" && path.Ext(derived) != "" {
		return derived
	}

	ctype := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(ctype, ';'); i >= 0 {
		ctype = ctype[:i]
	}
	ctype = strings.TrimSpace(strings.ToLower(ctype))
	ext := ""
	if ctype != "" {
		if exts, err := mime.ExtensionsByType(ctype); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}

	if derived != "" {
		return derived + ext
	}
	if ext != "" {
		return "download" + ext
	}
	return ""
}
