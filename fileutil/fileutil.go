// Package fileutil wraps filesystem mutation (copy, move, delete, archive
// extraction, chunking) with defensive pre-checks and the shared result
// contract: expected failures such as a missing path or a wrong-typed target
// come back as failure results, not errors.
package fileutil

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/inodevs/inoutils/result"
)

// ZipExtension is the only archive extension supported for extraction.
const ZipExtension = ".zip"

var trailingDigits = regexp.MustCompile(`^(.*?)(\d+)$`)

// UnzipResult reports the outcome of an archive extraction.
type UnzipResult struct {
	result.Status
	OutputPath     string `json:"output_path,omitempty"`
	FilesExtracted int    `json:"files_extracted"`
}

// UnzipOptions controls archive extraction behavior.
type UnzipOptions struct {
	// CaseSensitive rejects archives whose extension does not match
	// ZipExtension byte-for-byte. When false (the default) the extension is
	// lowercased before comparison, so ".ZIP" is accepted.
	CaseSensitive bool
}

// Unzip extracts a zip archive into outputDir. The source must be an
// existing regular file with the zip extension. Extraction that yields zero
// regular files is treated as a failure even though the archive itself was
// readable.
func Unzip(ctx context.Context, zipPath, outputDir string, opts UnzipOptions) UnzipResult {
	info, err := os.Stat(zipPath)
	if err != nil {
		return UnzipResult{Status: result.Err("zip file not found: %s", zipPath)}
	}
	if info.IsDir() {
		return UnzipResult{Status: result.Err("%s is a directory, not a zip file", zipPath)}
	}

	ext := filepath.Ext(zipPath)
	if !opts.CaseSensitive {
		ext = strings.ToLower(ext)
	}
	if ext != ZipExtension {
		return UnzipResult{Status: result.Err("%s does not have a %s extension", filepath.Base(zipPath), ZipExtension)}
	}

	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return UnzipResult{Status: result.Err("create output directory: %v", err)}
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return UnzipResult{Status: result.Err("%s is not a valid zip file: %v", filepath.Base(zipPath), err)}
	}
	defer func() { _ = reader.Close() }()

	extracted := 0
	for _, f := range reader.File {
		select {
		case <-ctx.Done():
			return UnzipResult{Status: result.Err("extraction cancelled: %v", ctx.Err())}
		default:
		}

		dest, err := sanitizeArchivePath(outputDir, f.Name)
		if err != nil {
			return UnzipResult{Status: result.Err("error extracting %s: %v", filepath.Base(zipPath), err)}
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o750); err != nil {
				return UnzipResult{Status: result.Err("error extracting %s: %v", filepath.Base(zipPath), err)}
			}
			continue
		}

		if err := extractFile(f, dest); err != nil {
			return UnzipResult{Status: result.Err("error extracting %s: %v", filepath.Base(zipPath), err)}
		}
		extracted++
	}

	if extracted == 0 {
		return UnzipResult{Status: result.Err("no files found after extracting %s", filepath.Base(zipPath))}
	}

	return UnzipResult{
		Status:         result.Ok(fmt.Sprintf("extracted %s", filepath.Base(zipPath))),
		OutputPath:     outputDir,
		FilesExtracted: extracted,
	}
}

// sanitizeArchivePath rejects entries that would escape the output directory.
func sanitizeArchivePath(base, name string) (string, error) {
	dest := filepath.Join(base, name)
	if !strings.HasPrefix(dest, filepath.Clean(base)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal archive path: %s", name)
	}
	return dest, nil
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640) // #nosec G304 - dest is sanitized above
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil { // #nosec G110 - archives come from trusted callers
		_ = out.Close()
		return err
	}
	return out.Close()
}

// DeleteResult reports the outcome of a delete operation.
type DeleteResult struct {
	result.Status
	Path string `json:"path,omitempty"`
}

// DeleteFile removes a single regular file. Missing paths and directories
// produce a failure result; nothing is mutated in either case.
func DeleteFile(path string) DeleteResult {
	info, err := os.Stat(path)
	if err != nil {
		return DeleteResult{Status: result.Err("file not found: %s", path)}
	}
	if info.IsDir() {
		return DeleteResult{Status: result.Err("%s is a directory, not a file", path)}
	}
	if err := os.Remove(path); err != nil {
		return DeleteResult{Status: result.Err("delete %s: %v", path, err)}
	}
	return DeleteResult{Status: result.Ok(fmt.Sprintf("deleted %s", filepath.Base(path))), Path: path}
}

// DeleteDir removes a directory tree. Missing paths and regular files
// produce a failure result; nothing is mutated in either case.
func DeleteDir(path string) DeleteResult {
	info, err := os.Stat(path)
	if err != nil {
		return DeleteResult{Status: result.Err("directory not found: %s", path)}
	}
	if !info.IsDir() {
		return DeleteResult{Status: result.Err("%s is a file, not a directory", path)}
	}
	if err := os.RemoveAll(path); err != nil {
		return DeleteResult{Status: result.Err("delete directory %s: %v", path, err)}
	}
	return DeleteResult{Status: result.Ok(fmt.Sprintf("deleted directory %s", filepath.Base(path))), Path: path}
}

// MoveResult reports the outcome of a move operation.
type MoveResult struct {
	result.Status
	OutputPath string `json:"output_path,omitempty"`
}

// MoveFile moves a regular file to dst, creating the destination parent
// directory if absent. The source must exist and be a file.
func MoveFile(src, dst string) MoveResult {
	info, err := os.Stat(src)
	if err != nil {
		return MoveResult{Status: result.Err("source not found: %s", src)}
	}
	if info.IsDir() {
		return MoveResult{Status: result.Err("%s is a directory, not a file", src)}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return MoveResult{Status: result.Err("create destination directory: %v", err)}
	}
	if err := moveFile(src, dst); err != nil {
		return MoveResult{Status: result.Err("move %s: %v", filepath.Base(src), err)}
	}
	return MoveResult{Status: result.Ok(fmt.Sprintf("moved %s", filepath.Base(src))), OutputPath: dst}
}

// moveFile renames src to dst, falling back to copy+remove across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src) // #nosec G304 - caller-provided path, pre-checked
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640) // #nosec G304
	if err != nil {
		_ = in.Close()
		return err
	}
	_, copyErr := io.Copy(out, in)
	_ = in.Close()
	if closeErr := out.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(dst)
		return copyErr
	}
	return os.Remove(src)
}

// LastFileResult reports the most recently modified regular file in a
// directory.
type LastFileResult struct {
	result.Status
	Path string `json:"path,omitempty"`
}

// LastFile returns the most recently modified regular file directly under
// dir. An empty or missing directory produces a failure result.
func LastFile(dir string) LastFileResult {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return LastFileResult{Status: result.Err("read directory %s: %v", dir, err)}
	}

	var (
		lastPath string
		lastMod  int64 = -1
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > lastMod {
			lastMod = mod
			lastPath = filepath.Join(dir, entry.Name())
		}
	}

	if lastPath == "" {
		return LastFileResult{Status: result.Err("no files in %s", dir)}
	}
	return LastFileResult{Status: result.Ok("found last file"), Path: lastPath}
}

// IncrementBatchName parses the trailing digits of stem, adds one, and
// re-pads to at least five digits. The field widens rather than wrapping
// when the counter outgrows its current width. A stem without trailing
// digits gets a fresh "_00001" suffix.
func IncrementBatchName(stem string) string {
	m := trailingDigits.FindStringSubmatch(stem)
	if m == nil {
		return stem + "_00001"
	}

	prefix, digits := m[1], m[2]
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		// Digit run too long to parse; keep it and append a fresh counter.
		return stem + "_00001"
	}
	n++

	width := len(digits)
	if width < 5 {
		width = 5
	}
	next := strconv.FormatUint(n, 10)
	if len(next) > width {
		width = len(next)
	}
	return prefix + fmt.Sprintf("%0*d", width, n)
}

// ChunkResult carries the chunks produced by ChunkBytes.
type ChunkResult struct {
	result.Status
	Chunks [][]byte `json:"-"`
	Count  int      `json:"count"`
}

// ChunkBytes splits data into chunks of at most size bytes. A non-positive
// size is a validation failure carrying zero chunks. The concatenation of
// the returned chunks always reconstructs data exactly.
func ChunkBytes(data []byte, size int) ChunkResult {
	if size <= 0 {
		return ChunkResult{Status: result.Err("chunk size must be positive, got %d", size)}
	}

	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}

	return ChunkResult{
		Status: result.Ok(fmt.Sprintf("split %d bytes into %d chunks", len(data), len(chunks))),
		Chunks: chunks,
		Count:  len(chunks),
	}
}
