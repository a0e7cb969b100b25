package policy

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	spolicy "dirpx.dev/dlog/apis/sink/policy"
)

func TestNewRotatingFileSink_EmptyPath(t *testing.T) {
	_, err := NewRotatingFileSink(FileRotationOptions{
		Path:   "",
		Policy: spolicy.Rotation{},
	})
	if err == nil {
		t.Fatalf("expected error for empty path, got nil")
	}
	if err != ErrRotationNoPath {
		t.Fatalf("err = %v, want ErrRotationNoPath", err)
	}
}

func TestRotatingFileSink_Name_DefaultAndOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	s, err := NewRotatingFileSink(FileRotationOptions{
		Path: path,
	})
	if err != nil {
		t.Fatalf("NewRotatingFileSink: %v", err)
	}
	if got, want := s.Name(), "file(app.log)"; got != want {
		t.Fatalf("Name() = %q, want %q", got, want)
	}

	s2, err := NewRotatingFileSink(FileRotationOptions{
		Path: path,
		Name: "custom",
	})
	if err != nil {
		t.Fatalf("NewRotatingFileSink: %v", err)
	}
	if got, want := s2.Name(), "custom"; got != want {
		t.Fatalf("Name() = %q, want %q", got, want)
	}
}

func TestRotatingFileSink_WriteCreatesAndAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	s, err := NewRotatingFileSink(FileRotationOptions{
		Path: path,
	})
	if err != nil {
		t.Fatalf("NewRotatingFileSink: %v", err)
	}
	defer s.Close(context.Background())

	ctx := context.Background()
	if err := s.Write(ctx, []byte("one\n")); err != nil {
		t.Fatalf("Write 1: %v", err)
	}
	if err := s.Write(ctx, []byte("two\n")); err != nil {
		t.Fatalf("Write 2: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got, want := string(data), "one\ntwo\n"; got != want {
		t.Fatalf("file content = %q, want %q", got, want)
	}
}

func TestRotatingFileSink_RotateOnSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	pol := spolicy.Rotation{
		MaxSizeBytes: 1024 * 1024, // threshold: 1 MiB
		MaxBackups:   2,
	}
	sink, err := NewRotatingFileSink(FileRotationOptions{
		Path:   path,
		Policy: pol,
	})
	if err != nil {
		t.Fatalf("NewRotatingFileSink: %v", err)
	}
	defer sink.Close(context.Background())

	// Force internal size close to MaxSize so that next write triggers rotation.
	rs := sink.(*rotatingFileSink)

	rs.mu.Lock()
	rs.size = pol.MaxSizeBytes // next Write will see size+len(entry) > maxBytes
	rs.mu.Unlock()

	// Perform a write that should cause rotation.
	if err := sink.Write(context.Background(), []byte("rotated\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// We expect: one active file + at least one numbered backup (app.1.log).
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var active, backups int
	for _, e := range entries {
		switch {
		case e.Name() == "app.log":
			active++
		case strings.HasPrefix(e.Name(), "app.") && strings.HasSuffix(e.Name(), ".log"):
			backups++
		}
	}
	if active != 1 {
		t.Fatalf("expected 1 active file, got %d", active)
	}
	if backups == 0 {
		t.Fatalf("expected at least one rotated backup file, got 0")
	}
}

// TestRotatingFileSink_RotateOnSize_SubMegabyteThreshold replicates a
// 1024-byte rotation threshold end to end: 30 writes of 100 bytes each
// (3000 bytes total) against size=1024, keep=2, compress=true should leave
// exactly app.log, app.1.log.gz and app.2.log.gz, with no app.3.*. A
// megabyte-granular threshold could never express 1024 bytes.
func TestRotatingFileSink_RotateOnSize_SubMegabyteThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	pol := spolicy.Rotation{
		MaxSizeBytes: 1024,
		MaxBackups:   2,
		Compress:     true,
	}
	sink, err := NewRotatingFileSink(FileRotationOptions{
		Path:   path,
		Policy: pol,
	})
	if err != nil {
		t.Fatalf("NewRotatingFileSink: %v", err)
	}
	defer sink.Close(context.Background())

	line := []byte(strings.Repeat("a", 99) + "\n") // exactly 100 bytes
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		if err := sink.Write(ctx, line); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}

	for _, want := range []string{"app.log", "app.1.log.gz", "app.2.log.gz"} {
		if !names[want] {
			t.Fatalf("expected %q in %v", want, names)
		}
	}
	for name := range names {
		if strings.HasPrefix(name, "app.3") {
			t.Fatalf("unexpected backup beyond keep=2: %q in %v", name, names)
		}
	}
}

func TestRotatingFileSink_RotateOnAge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	pol := spolicy.Rotation{
		MaxAgeDays: 1,
		MaxBackups: 2,
	}
	sink, err := NewRotatingFileSink(FileRotationOptions{
		Path:   path,
		Policy: pol,
	})
	if err != nil {
		t.Fatalf("NewRotatingFileSink: %v", err)
	}
	defer sink.Close(context.Background())

	rs := sink.(*rotatingFileSink)

	// Pretend the file is older than MaxAgeDays.
	rs.mu.Lock()
	rs.created = time.Now().Add(-48 * time.Hour) // 2 days ago
	rs.mu.Unlock()

	if err := sink.Write(context.Background(), []byte("age\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var backups int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "app.") && strings.HasSuffix(e.Name(), ".log") {
			backups++
		}
	}
	if backups == 0 {
		t.Fatalf("expected at least one rotated backup due to age, got 0")
	}
}

func TestRotatingFileSink_WriteAfterClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	sink, err := NewRotatingFileSink(FileRotationOptions{
		Path: path,
	})
	if err != nil {
		t.Fatalf("NewRotatingFileSink: %v", err)
	}

	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err = sink.Write(context.Background(), []byte("x"))
	if err != ErrRotationClosed {
		t.Fatalf("Write after Close err = %v, want ErrRotationClosed", err)
	}

	err = sink.Flush(context.Background())
	if err != ErrRotationClosed {
		t.Fatalf("Flush after Close err = %v, want ErrRotationClosed", err)
	}
}

func TestNumberedBackupName_Format(t *testing.T) {
	base := "/var/log/app.log"

	got := numberedBackupName(base, 2, false)
	want := "/var/log/app.2.log"
	if got != want {
		t.Fatalf("numberedBackupName = %q, want %q", got, want)
	}

	gotGz := numberedBackupName(base, 2, true)
	wantGz := "/var/log/app.2.log.gz"
	if gotGz != wantGz {
		t.Fatalf("numberedBackupName(gz) = %q, want %q", gotGz, wantGz)
	}
}

func TestShiftNumberedBackups_RespectsKeep(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "app.log")

	// Seed slots 1 and 2 (keep=2): rotating should drop slot 2, shift 1->2,
	// leaving slot 1 free for the caller to occupy.
	for _, n := range []int{1, 2} {
		p := numberedBackupName(base, n, false)
		if err := os.WriteFile(p, []byte{byte('a' + n)}, 0o640); err != nil {
			t.Fatalf("WriteFile(%s): %v", p, err)
		}
	}

	if err := shiftNumberedBackups(base, 2, false); err != nil {
		t.Fatalf("shiftNumberedBackups: %v", err)
	}

	if _, err := os.Stat(numberedBackupName(base, 1, false)); !os.IsNotExist(err) {
		t.Fatalf("expected slot 1 to be free, err=%v", err)
	}
	if _, err := os.Stat(numberedBackupName(base, 2, false)); err != nil {
		t.Fatalf("expected former slot 1 to have shifted into slot 2: %v", err)
	}
}

func TestCompressFile_CreatesGzipAndRemovesSource(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "app.1.log")

	content := []byte("hello rotation")
	if err := os.WriteFile(srcPath, content, 0o640); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := compressFile(srcPath); err != nil {
		t.Fatalf("compressFile: %v", err)
	}

	// Original should be gone.
	if _, err := os.Stat(srcPath); !os.IsNotExist(err) {
		t.Fatalf("expected src to be removed, got err=%v", err)
	}

	// Gzipped file should exist and contain the original content.
	gzPath := srcPath + ".gz"
	f, err := os.Open(gzPath)
	if err != nil {
		t.Fatalf("Open gz: %v", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer gr.Close()

	data, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("gz content = %q, want %q", string(data), string(content))
	}
}
