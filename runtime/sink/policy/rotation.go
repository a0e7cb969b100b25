package policy

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	asink "dirpx.dev/dlog/apis/sink"
	spolicy "dirpx.dev/dlog/apis/sink/policy"
)

// FileRotationOptions configures a rotating file sink.
//
// It is a runtime counterpart of apis/sink/policy.Rotation plus
// concrete file system details (path, file mode).
type FileRotationOptions struct {
	// Path is the path to the active log file.
	// Example: "/var/log/myapp.log".
	Path string

	// Policy describes when and how rotation should happen:
	//   - MaxSizeBytes > 0 -> rotate when file size exceeds N bytes.
	//   - MaxAgeDays > 0 -> rotate when file age exceeds N days.
	//   - MaxBackups > 0 -> keep at most N rotated files (older ones are deleted).
	//   - Compress -> optionally compress rotated files with gzip.
	Policy spolicy.Rotation

	// Name overrides the sink name. If empty, the sink reports
	// its name as "file(<base>)" where <base> is filepath.Base(Path).
	Name string

	// FileMode controls permissions for created log files.
	// When zero, a default of 0640 is used.
	FileMode os.FileMode
}

// rotatingFileSink implements asink.Sink and performs on-disk log rotation
// based on size, age and backup limits.
//
// Semantics:
//
//   - Write:
//
//     Is concurrency safe (guarded by a mutex).
//     Before each write, checks whether rotation is needed based on
//     current file size and age.
//     If rotation fails, returns an error and does not write the entry.
//
//   - Flush:
//
//     Calls file.Sync() on the underlying file.
//     Returns ErrRotationClosed after Close.
//
//   - Close:
//
//     Closes the underlying file, is idempotent, and marks the sink closed.
//     After Close, Write/Flush return ErrRotationClosed.
//
// Rotation naming scheme:
//   - Active file: Path (e.g. "/var/log/myapp.log").
//   - Rotated files: Path+".YYYYMMDD-HHMMSS" (UTC time).
//   - When Compress is true, rotated files are gzipped: ".gz" suffix added.
type rotatingFileSink struct {
	mu       sync.Mutex
	path     string
	opt      FileRotationOptions
	file     *os.File
	size     int64     // current file size in bytes
	created  time.Time // last (re)open/rotation time (or file mod time)
	closed   bool
	dead     bool
	lastErr  error
	dropped  int64
	rotCount int64
}

// Compile-time safety: *rotatingFileSink implements asink.Sink.
var _ asink.Sink = (*rotatingFileSink)(nil)

var (
	// ErrRotationClosed indicates that the sink has been closed.
	ErrRotationClosed = errors.New("sink/rotation: closed")

	// ErrRotationNoPath indicates that an empty file path was provided.
	ErrRotationNoPath = errors.New("sink/rotation: empty path")
)

// NewRotatingFileSink constructs a file-based sink with rotation.
//
// The function opens (or creates) the active log file immediately and
// inspects its current size and mod time to initialize rotation state.
//
// Returned sink is ready for concurrent use.
func NewRotatingFileSink(opt FileRotationOptions) (asink.Sink, error) {
	if opt.Path == "" {
		return nil, ErrRotationNoPath
	}
	opt.Policy = normalizeRotationPolicy(opt.Policy)
	if opt.FileMode == 0 {
		opt.FileMode = 0o640
	}

	s := &rotatingFileSink{
		path: opt.Path,
		opt:  opt,
	}
	if err := s.openCurrent(); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns the human-friendly name of the sink.
func (s *rotatingFileSink) Name() string {
	if s.opt.Name != "" {
		return s.opt.Name
	}
	base := filepath.Base(s.path)
	return "file(" + base + ")"
}

// Write writes a single encoded log entry to the current log file,
// performing rotation when needed.
//
// Behavior:
//   - If ctx is already cancelled, returns ctx.Err() without writing.
//   - If rotation is required and fails, returns the rotation error and
//     does not write the entry.
//   - If the sink is closed, returns ErrRotationClosed.
func (s *rotatingFileSink) Write(ctx context.Context, entry []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrRotationClosed
	}

	// Lazily open file if somehow not present (defensive).
	if s.file == nil {
		if err := s.openCurrent(); err != nil {
			return err
		}
	}

	if s.shouldRotate(time.Now(), len(entry)) {
		if err := s.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := s.file.Write(entry)
	s.size += int64(n)
	if err != nil {
		s.lastErr = err
		s.dropped++
		return err
	}
	return nil
}

// WriteBatch writes each entry in order, stopping at the first error.
func (s *rotatingFileSink) WriteBatch(ctx context.Context, entries [][]byte) error {
	for _, e := range entries {
		if err := s.Write(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Healthy reports false once the sink has been marked dead by its owner
// (see MarkDead). A rotating file sink does not mark itself dead on I/O
// errors: a transient disk error on one write does not disqualify the next.
func (s *rotatingFileSink) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && !s.dead
}

// MarkDead marks the sink permanently unhealthy, e.g. after its owning
// engine has exhausted a retry budget around it.
func (s *rotatingFileSink) MarkDead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = true
}

// Stats reports current file size, rotation count, and the last write error.
func (s *rotatingFileSink) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lastErr string
	if s.lastErr != nil {
		lastErr = s.lastErr.Error()
	}
	return map[string]any{
		"size_bytes": s.size,
		"rotations":  s.rotCount,
		"dropped":    s.dropped,
		"dead":       s.dead,
		"last_error": lastErr,
	}
}

// Flush ensures that all buffered data is written to disk.
// It calls file.Sync on the underlying file.
//
// After Close, Flush returns ErrRotationClosed.
func (s *rotatingFileSink) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrRotationClosed
	}
	if s.file == nil {
		return nil
	}
	return s.file.Sync()
}

// Close closes the current log file and marks the sink closed.
// Close is idempotent; subsequent calls return nil.
//
// After Close, Write and Flush return ErrRotationClosed.
func (s *rotatingFileSink) Close(ctx context.Context) error {
	_ = ctx // context is accepted for interface symmetry; not used here.

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// openCurrent opens the active log file, initializing size and created fields.
func (s *rotatingFileSink) openCurrent() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, s.opt.FileMode)
	if err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}

	s.file = f
	s.size = info.Size()
	s.created = info.ModTime()
	return nil
}

// shouldRotate decides whether a rotation is required before writing
// an entry with the given size. It uses the current file size and creation time.
func (s *rotatingFileSink) shouldRotate(now time.Time, incomingBytes int) bool {
	p := s.opt.Policy
	if p.MaxSizeBytes > 0 {
		if s.size+int64(incomingBytes) > p.MaxSizeBytes {
			return true
		}
	}
	if p.MaxAgeDays > 0 {
		maxAge := time.Duration(p.MaxAgeDays) * 24 * time.Hour
		if now.Sub(s.created) >= maxAge {
			return true
		}
	}
	return false
}

// rotateLocked performs log rotation while the caller holds s.mu.
// It closes the current file (if any), renames it to a backup file,
// optionally compresses the backup, prunes old backups, and opens a new file.
func (s *rotatingFileSink) rotateLocked() error {
	// Close current file handle if open.
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	// If the active file exists, shift numbered backups up by one slot and
	// rename the active file into slot 1.
	if _, err := os.Stat(s.path); err == nil {
		keep := s.opt.Policy.MaxBackups
		if keep <= 0 {
			keep = 1
		}
		if err := shiftNumberedBackups(s.path, keep, s.opt.Policy.Compress); err != nil {
			return err
		}
		backup := numberedBackupName(s.path, 1, false)
		if err := os.Rename(s.path, backup); err != nil {
			return err
		}
		s.rotCount++

		if s.opt.Policy.Compress {
			// Compression errors are best-effort: we ignore failures here,
			// rotated content is already safely on disk.
			_ = compressFile(backup)
		}
	}

	// Open a fresh active file.
	return s.openCurrent()
}

// normalizeRotationPolicy sanitizes Rotation fields to safe defaults.
//
// Semantics:
//   - Negative values are clamped to zero (disabled).
//   - Zero values mean "no rotation by this dimension".
func normalizeRotationPolicy(p spolicy.Rotation) spolicy.Rotation {
	if p.MaxSizeBytes < 0 {
		p.MaxSizeBytes = 0
	}
	if p.MaxAgeDays < 0 {
		p.MaxAgeDays = 0
	}
	if p.MaxBackups < 0 {
		p.MaxBackups = 0
	}
	return p
}

// numberedBackupName builds the rotated path for backup slot n of basePath,
// e.g. "/var/log/app.log" + n=2 -> "/var/log/app.2.log" (or
// "/var/log/app.2.log.gz" when compressed). The slot number is inserted
// before the final extension so a compressed rotation keeps its original
// extension visible, matching how operators expect to find "app.2.log.gz"
// rather than "app.log.2.gz".
func numberedBackupName(basePath string, n int, compressed bool) string {
	dir := filepath.Dir(basePath)
	base := filepath.Base(basePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := fmt.Sprintf("%s.%d%s", stem, n, ext)
	if compressed {
		name += ".gz"
	}
	return filepath.Join(dir, name)
}

// shiftNumberedBackups renames existing numbered backups up by one slot,
// from the highest surviving slot down to 1, so that slot 1 is free for the
// file about to be rotated in. Any backup that would shift past keep is
// deleted instead of renamed.
func shiftNumberedBackups(basePath string, keep int, compress bool) error {
	for n := keep; n >= 1; n-- {
		from := numberedBackupName(basePath, n, compress)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		if n == keep {
			if err := os.Remove(from); err != nil {
				return err
			}
			continue
		}
		to := numberedBackupName(basePath, n+1, compress)
		if err := os.Rename(from, to); err != nil {
			return err
		}
	}
	return nil
}

// compressFile gzips srcPath into srcPath+".gz" and removes the original file.
func compressFile(srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dstPath := srcPath + ".gz"
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	defer dst.Close()

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		_ = gw.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		return err
	}

	// Remove original file after successful compression.
	if err := os.Remove(srcPath); err != nil {
		return err
	}
	return nil
}
