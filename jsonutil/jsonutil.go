// Package jsonutil provides small JSON validity and persistence helpers.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inodevs/inoutils/result"
)

// IsValid reports whether s is syntactically valid JSON.
func IsValid(s string) bool {
	return json.Valid([]byte(s))
}

// ParseResult carries a decoded JSON value.
type ParseResult struct {
	result.Status
	Value any `json:"-"`
}

// Parse decodes a JSON string into its generic Go representation (maps,
// slices, strings, float64, bool, nil).
func Parse(s string) ParseResult {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return ParseResult{Status: result.Err("invalid JSON: %v", err)}
	}
	return ParseResult{Status: result.Ok("parsed"), Value: v}
}

// SaveResult reports the outcome of SaveFile.
type SaveResult struct {
	result.Status
	Path string `json:"path,omitempty"`
}

// SaveFile serializes v as indented JSON and writes it atomically: the
// content goes to a temporary file in the target directory which is then
// renamed into place. Parent directories are created as needed.
func SaveFile(path string, v any) SaveResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return SaveResult{Status: result.Err("marshal JSON: %v", err)}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return SaveResult{Status: result.Err("create directory: %v", err)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp_*")
	if err != nil {
		return SaveResult{Status: result.Err("create temp file: %v", err)}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return SaveResult{Status: result.Err("write %s: %v", path, err)}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return SaveResult{Status: result.Err("close %s: %v", path, err)}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return SaveResult{Status: result.Err("finalize %s: %v", path, err)}
	}

	return SaveResult{Status: result.Ok(fmt.Sprintf("saved %s", filepath.Base(path))), Path: path}
}

// LoadResult carries a JSON value read from disk.
type LoadResult struct {
	result.Status
	Value any `json:"-"`
}

// LoadFile reads and decodes a JSON file.
func LoadFile(path string) LoadResult {
	data, err := os.ReadFile(path) // #nosec G304 - caller-provided path
	if err != nil {
		return LoadResult{Status: result.Err("read %s: %v", path, err)}
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return LoadResult{Status: result.Err("invalid JSON in %s: %v", path, err)}
	}
	return LoadResult{Status: result.Ok(fmt.Sprintf("loaded %s", filepath.Base(path))), Value: v}
}
