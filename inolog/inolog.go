// Package inolog implements an append-only, size-bounded, rotating log
// stream of JSON-lines entries. Each stream owns a directory of segment
// files named "{name}_{NNNNN}.inolog"; once a segment reaches the configured
// size the next append rotates to a new segment with an incremented suffix.
// Segments are never mutated or deleted by this layer.
package inolog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/inodevs/inoutils/fileutil"
	"github.com/inodevs/inoutils/result"
)

// Extension is the file extension used for log segments.
const Extension = ".inolog"

// DefaultMaxSegmentBytes is the rotation threshold when none is configured.
const DefaultMaxSegmentBytes = 10 * 1024 * 1024

// ErrNameRequired is returned when a Logger is created without a name.
var ErrNameRequired = errors.New("inolog: log name is required")

// Category classifies a log entry.
type Category string

// Log categories, ordered by severity.
const (
	CategoryDebug    Category = "DEBUG"
	CategoryInfo     Category = "INFO"
	CategoryWarning  Category = "WARNING"
	CategoryError    Category = "ERROR"
	CategoryCritical Category = "CRITICAL"
)

// Entry is one structured record in a log stream. Entries are written once
// and never mutated; fields with empty values are omitted from the
// serialized form.
type Entry struct {
	Timestamp    string   `json:"timestamp"`
	ISOTimestamp string   `json:"iso_timestamp"`
	Category     Category `json:"category"`
	Level        string   `json:"level"`
	Logger       string   `json:"logger"`
	Source       string   `json:"source,omitempty"`
	ProcessID    int      `json:"process_id"`
	Msg          string   `json:"msg,omitempty"`
	Data         any      `json:"data,omitempty"`
}

// Runtime carries the ambient context stamped into each entry. It is
// injected rather than read from process state so streams are testable with
// fixed clocks and PIDs.
type Runtime struct {
	Now func() time.Time
	PID int
}

func defaultRuntime() Runtime {
	return Runtime{Now: time.Now, PID: os.Getpid()}
}

// Option configures a Logger.
type Option func(*Logger)

// WithMaxSegmentSize sets the rotation threshold in bytes.
func WithMaxSegmentSize(bytes int64) Option {
	return func(l *Logger) {
		if bytes > 0 {
			l.maxBytes = bytes
		}
	}
}

// WithRuntime overrides the clock and process ID used for entries.
func WithRuntime(rt Runtime) Option {
	return func(l *Logger) {
		if rt.Now != nil {
			l.rt.Now = rt.Now
		}
		if rt.PID != 0 {
			l.rt.PID = rt.PID
		}
	}
}

// Logger is a rotating log stream. The zero value is not usable; create one
// with New. Appends from multiple goroutines on the same Logger never
// interleave partial records.
type Logger struct {
	dir      string
	name     string
	maxBytes int64
	rt       Runtime

	mu      sync.Mutex
	segment string // path of the active segment
	pattern *regexp.Regexp
}

// New creates (or resumes) a log stream in dir. The directory is created if
// absent; failure to create it is fatal for the stream, since its entire
// purpose is durability of the record. The most recent matching segment is
// reused when it is still under the size threshold, otherwise a new segment
// is started.
func New(dir, name string, opts ...Option) (*Logger, error) {
	if name == "" {
		return nil, ErrNameRequired
	}

	l := &Logger{
		dir:      dir,
		name:     name,
		maxBytes: DefaultMaxSegmentBytes,
		rt:       defaultRuntime(),
		pattern:  regexp.MustCompile("^" + regexp.QuoteMeta(name) + `_(\d{5,})` + regexp.QuoteMeta(Extension) + "$"),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("inolog: create log directory: %w", err)
	}
	if err := l.openSegment(); err != nil {
		return nil, err
	}
	return l, nil
}

// openSegment selects the active segment: the highest-numbered existing
// segment when it is under the threshold, its successor when it is not, and
// a fresh "_00001" segment when none exist. Caller must hold mu (or be the
// constructor).
func (l *Logger) openSegment() error {
	latest, err := l.latestSegment()
	if err != nil {
		return err
	}

	switch {
	case latest == "":
		l.segment = filepath.Join(l.dir, l.name+"_00001"+Extension)
	default:
		info, err := os.Stat(latest)
		if err == nil && info.Size() < l.maxBytes {
			l.segment = latest
		} else {
			stem := filepath.Base(latest)
			stem = stem[:len(stem)-len(Extension)]
			l.segment = filepath.Join(l.dir, fileutil.IncrementBatchName(stem)+Extension)
		}
	}

	f, err := os.OpenFile(l.segment, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) // #nosec G304 - path built from validated name
	if err != nil {
		return fmt.Errorf("inolog: create segment: %w", err)
	}
	return f.Close()
}

// latestSegment returns the matching segment with the greatest numeric
// suffix, or "" when no segment exists yet.
func (l *Logger) latestSegment() (string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return "", fmt.Errorf("inolog: scan log directory: %w", err)
	}

	var (
		best    string
		bestSeq uint64
		found   bool
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := l.pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		seq, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		if !found || seq > bestSeq {
			found = true
			bestSeq = seq
			best = filepath.Join(l.dir, entry.Name())
		}
	}
	return best, nil
}

// Append writes one entry to the stream. If the active segment has reached
// the size threshold a rotation happens first, atomically with respect to
// this write. When category is empty it is inferred: data implementing
// result.Reporter maps to INFO on success and ERROR on failure, anything
// else defaults to INFO. Write failures propagate.
func (l *Logger) Append(data any, msg string, category Category, source string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if info, err := os.Stat(l.segment); err == nil && info.Size() >= l.maxBytes {
		if err := l.openSegment(); err != nil {
			return err
		}
	}

	if category == "" {
		category = inferCategory(data)
	}

	now := l.rt.Now()
	entry := Entry{
		Timestamp:    now.Format("2006-01-02 15:04:05.000"),
		ISOTimestamp: now.Format(time.RFC3339Nano),
		Category:     category,
		Level:        string(category),
		Logger:       l.name,
		Source:       source,
		ProcessID:    l.rt.PID,
		Msg:          msg,
		Data:         data,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("inolog: marshal entry: %w", err)
	}

	f, err := os.OpenFile(l.segment, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) // #nosec G304
	if err != nil {
		return fmt.Errorf("inolog: open segment: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("inolog: write entry: %w", err)
	}
	return f.Close()
}

func inferCategory(data any) Category {
	if r, ok := data.(result.Reporter); ok {
		if r.Succeeded() {
			return CategoryInfo
		}
		return CategoryError
	}
	return CategoryInfo
}

// Debug appends a DEBUG entry.
func (l *Logger) Debug(data any, msg, source string) error {
	return l.Append(data, msg, CategoryDebug, source)
}

// Info appends an INFO entry.
func (l *Logger) Info(data any, msg, source string) error {
	return l.Append(data, msg, CategoryInfo, source)
}

// Warning appends a WARNING entry.
func (l *Logger) Warning(data any, msg, source string) error {
	return l.Append(data, msg, CategoryWarning, source)
}

// Error appends an ERROR entry.
func (l *Logger) Error(data any, msg, source string) error {
	return l.Append(data, msg, CategoryError, source)
}

// Critical appends a CRITICAL entry.
func (l *Logger) Critical(data any, msg, source string) error {
	return l.Append(data, msg, CategoryCritical, source)
}

// Path returns the path of the active segment.
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.segment
}

// Stats describes the active segment.
type Stats struct {
	Exists    bool    `json:"exists"`
	Path      string  `json:"path,omitempty"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
	Modified  string  `json:"modified,omitempty"`
}

// Stats reports size information about the active segment.
func (l *Logger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(l.segment)
	if err != nil {
		return Stats{Exists: false}
	}
	return Stats{
		Exists:    true,
		Path:      l.segment,
		SizeBytes: info.Size(),
		SizeMB:    float64(info.Size()) / (1024 * 1024),
		Modified:  info.ModTime().Format(time.RFC3339),
	}
}
