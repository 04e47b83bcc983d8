package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/inodevs/inoutils/inolog"
)

// ShipOptions controls ShipClosedSegments.
type ShipOptions struct {
	// KeyPrefix is prepended to every published object key.
	KeyPrefix string
	// RemoveAfter deletes segments locally once published.
	RemoveAfter bool
}

// ShipClosedSegments publishes rotated log segments for the named stream in
// logDir. The highest-numbered segment is the one still being appended to
// and is always skipped. Returns the URLs of the published segments.
func ShipClosedSegments(ctx context.Context, store Store, logDir, name string, opts ShipOptions) ([]string, error) {
	pattern, err := regexp.Compile("^" + regexp.QuoteMeta(name) + `_(\d{5,})` + regexp.QuoteMeta(inolog.Extension) + "$")
	if err != nil {
		return nil, fmt.Errorf("compile segment pattern: %w", err)
	}

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return nil, fmt.Errorf("read log directory: %w", err)
	}

	var segments []string
	seq := make(map[string]uint64)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		segments = append(segments, e.Name())
		seq[e.Name()] = n
	}
	// Numeric order; widened suffixes must sort after shorter ones.
	sort.Slice(segments, func(i, j int) bool {
		return seq[segments[i]] < seq[segments[j]]
	})

	if len(segments) <= 1 {
		return nil, nil
	}
	closed := segments[:len(segments)-1]

	var urls []string
	for _, seg := range closed {
		full := filepath.Join(logDir, seg)

		f, err := store.Open(ctx, full)
		if err != nil {
			return urls, err
		}

		key := seg
		if opts.KeyPrefix != "" {
			key = path.Join(opts.KeyPrefix, seg)
		}

		url, err := store.Publish(ctx, key, f)
		_ = f.Close()
		if err != nil {
			return urls, fmt.Errorf("publish segment %s: %w", seg, err)
		}
		urls = append(urls, url)

		if opts.RemoveAfter {
			if err := store.Remove(ctx, []string{full}); err != nil {
				return urls, err
			}
		}
	}

	return urls, nil
}
