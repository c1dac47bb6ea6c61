// Package flightrecorder keeps a rolling runtime/trace buffer and writes it to disk when something takes too long,
// such as a generative service call reaching its bounded wait or an HTTP request timing out.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime/trace"
	"strings"
	"sync"
	"time"

	"github.com/myrjola/rexcoach/internal/errors"
)

const (
	defaultMinAge   = 5 * time.Minute
	defaultMaxBytes = 64 * 1024 * 1024
	defaultCooldown = 30 * time.Minute
)

var ErrInvalidConfig = errors.NewSentinel("invalid flight recorder config")

// Config configures a Recorder.
type Config struct {
	Logger          *slog.Logger
	TracesDirectory string
	// MinAge is the minimum age of trace events kept in the buffer.
	MinAge time.Duration
	// MaxBytes caps the buffer size.
	MaxBytes uint64
	// Cooldown is the minimum time between two captures with the same reason.
	Cooldown time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Recorder captures traces. A nil *Recorder is valid and captures nothing, so callers need not check whether
// tracing is enabled.
type Recorder struct {
	logger    *slog.Logger
	fr        *trace.FlightRecorder
	directory string
	minAge    time.Duration
	maxBytes  uint64
	cooldown  time.Duration
	now       func() time.Time

	mu          sync.Mutex
	lastCapture map[string]time.Time
}

// New creates a Recorder writing into cfg.TracesDirectory, creating the directory if needed.
func New(cfg Config) (*Recorder, error) {
	if cfg.Logger == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "logger is required")
	}
	if cfg.TracesDirectory == "" {
		return nil, errors.Wrap(ErrInvalidConfig, "traces directory is required")
	}
	if err := os.MkdirAll(cfg.TracesDirectory, 0o700); err != nil { //nolint:mnd // owner only.
		return nil, errors.Wrap(err, "create traces directory", slog.String("dir", cfg.TracesDirectory))
	}
	if stat, err := os.Stat(cfg.TracesDirectory); err != nil || !stat.IsDir() {
		return nil, errors.Wrap(ErrInvalidConfig, "traces path is not a directory",
			slog.String("dir", cfg.TracesDirectory))
	}

	r := &Recorder{
		logger:      cfg.Logger,
		fr:          nil,
		directory:   cfg.TracesDirectory,
		minAge:      cmpOr(cfg.MinAge, defaultMinAge),
		maxBytes:    cmpOr(cfg.MaxBytes, defaultMaxBytes),
		cooldown:    cmpOr(cfg.Cooldown, defaultCooldown),
		now:         cfg.Now,
		mu:          sync.Mutex{},
		lastCapture: make(map[string]time.Time),
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.fr = trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: r.minAge, MaxBytes: r.maxBytes})
	return r, nil
}

func cmpOr[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}

// Start begins recording.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.fr.Start(); err != nil {
		return errors.Wrap(err, "start flight recorder")
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.Duration("min_age", r.minAge),
		slog.Uint64("max_bytes", r.maxBytes),
		slog.Duration("cooldown", r.cooldown))
	return nil
}

// Stop ends recording.
func (r *Recorder) Stop(ctx context.Context) {
	r.fr.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

var unsafeReasonChars = regexp.MustCompile(`[^a-z0-9-]+`)

// Capture writes the buffered trace to <reason>-<timestamp>.trace unless a capture with the same reason happened
// within the cooldown. It returns the file path, or "" when nothing was written.
func (r *Recorder) Capture(ctx context.Context, reason string) string {
	if r == nil {
		return ""
	}
	reason = unsafeReasonChars.ReplaceAllString(strings.ToLower(reason), "-")

	now := r.now()
	r.mu.Lock()
	last, ok := r.lastCapture[reason]
	if ok && now.Sub(last) < r.cooldown {
		r.mu.Unlock()
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
			slog.String("reason", reason), slog.Duration("remaining", r.cooldown-now.Sub(last)))
		return ""
	}
	r.lastCapture[reason] = now
	r.mu.Unlock()

	path := filepath.Join(r.directory, fmt.Sprintf("%s-%s.trace", reason, now.UTC().Format("20060102-150405")))
	if err := r.write(path); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to capture trace", errors.SlogError(err))
		return ""
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace", slog.String("reason", reason), slog.String("file", path))
	return path
}

func (r *Recorder) write(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create trace file", slog.String("file", path))
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close trace file"))
		}
	}()
	if _, err = r.fr.WriteTo(f); err != nil {
		return errors.Wrap(err, "write trace", slog.String("file", path))
	}
	return nil
}
