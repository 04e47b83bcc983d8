package fileutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/inodevs/inoutils/result"
)

// CopyLogName is the name of the per-run copy log written beside the
// destination tree.
const CopyLogName = "copy_log.txt"

// CopyOptions controls CopyBatch behavior.
type CopyOptions struct {
	// Recursive descends into subdirectories, mirroring the tree under the
	// destination. When false only files directly under the source are
	// copied.
	Recursive bool
	// RenameFiles replaces each destination file name with
	// "{PrefixName}_{NNN}{ext}", where NNN is a 3-digit index assigned in
	// traversal order.
	RenameFiles bool
	// PrefixName is the base used when RenameFiles is set. Defaults to
	// "File".
	PrefixName string
}

// CopyBatchResult reports the outcome of a bulk copy.
type CopyBatchResult struct {
	result.Status
	Copied  int      `json:"copied"`
	Failed  int      `json:"failed"`
	LogPath string   `json:"log_path,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// CopyBatch copies every regular file from srcDir into dstDir. Files are
// processed in directory-traversal order with a stable per-file index.
// Every file is attempted even after earlier failures; partial failures are
// aggregated into a single overall failure result. A line-delimited log of
// every attempt is written to copy_log.txt inside the destination.
func CopyBatch(ctx context.Context, srcDir, dstDir string, opts CopyOptions) CopyBatchResult {
	info, err := os.Stat(srcDir)
	if err != nil {
		return CopyBatchResult{Status: result.Err("source directory not found: %s", srcDir)}
	}
	if !info.IsDir() {
		return CopyBatchResult{Status: result.Err("%s is not a directory", srcDir)}
	}

	if err := os.MkdirAll(dstDir, 0o750); err != nil {
		return CopyBatchResult{Status: result.Err("create destination directory: %v", err)}
	}

	files, err := collectFiles(srcDir, opts.Recursive)
	if err != nil {
		return CopyBatchResult{Status: result.Err("scan source directory: %v", err)}
	}

	prefix := opts.PrefixName
	if prefix == "" {
		prefix = "File"
	}

	var (
		logLines []string
		errs     []string
		copied   int
	)

	for i, rel := range files {
		select {
		case <-ctx.Done():
			return CopyBatchResult{Status: result.Err("copy cancelled: %v", ctx.Err())}
		default:
		}

		src := filepath.Join(srcDir, rel)

		var dst string
		if opts.RenameFiles {
			// Index is 1-based and assigned in traversal order.
			dst = filepath.Join(dstDir, fmt.Sprintf("%s_%03d%s", prefix, i+1, filepath.Ext(rel)))
		} else if opts.Recursive {
			dst = filepath.Join(dstDir, rel)
		} else {
			dst = filepath.Join(dstDir, filepath.Base(rel))
		}

		if err := copyOne(src, dst); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", rel, err))
			logLines = append(logLines, fmt.Sprintf("FAIL %s -> %s: %v", rel, filepath.Base(dst), err))
			continue
		}
		copied++
		logLines = append(logLines, fmt.Sprintf("OK %s -> %s", rel, filepath.Base(dst)))
	}

	logPath := filepath.Join(dstDir, CopyLogName)
	if err := os.WriteFile(logPath, []byte(strings.Join(logLines, "\n")+"\n"), 0o640); err != nil {
		errs = append(errs, fmt.Sprintf("write copy log: %v", err))
	}

	res := CopyBatchResult{
		Copied:  copied,
		Failed:  len(files) - copied,
		LogPath: logPath,
		Errors:  errs,
	}
	if len(errs) > 0 {
		res.Status = result.Err("copied %d of %d files (%d failures)", copied, len(files), len(files)-copied)
		return res
	}
	res.Status = result.Ok(fmt.Sprintf("copied %d files", copied))
	return res
}

// collectFiles lists regular files under root as slash-free relative paths
// in deterministic traversal order.
func collectFiles(root string, recursive bool) ([]string, error) {
	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, e := range entries {
			if !e.IsDir() {
				files = append(files, e.Name())
			}
		}
		sort.Strings(files)
		return files, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func copyOne(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}

	in, err := os.Open(src) // #nosec G304 - paths come from directory traversal
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640) // #nosec G304
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
