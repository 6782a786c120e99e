package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAtomicWriteFileReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target")

	if err := AtomicWriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	// No temp file debris may remain next to the target.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteFileWithBackupRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".bash_profile")

	// First write has nothing to back up.
	if err := WriteFileWithBackup(path, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := countBackups(t, dir, ".bash_profile"); got != 0 {
		t.Errorf("backups after first write = %d, want 0", got)
	}

	for i, content := range []string{"v2", "v3", "v4", "v5"} {
		if err := WriteFileWithBackup(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if got := countBackups(t, dir, ".bash_profile"); got != MaxBackups {
		t.Errorf("backups = %d, want pruned to %d", got, MaxBackups)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "v5" {
		t.Errorf("content = %q, want %q", data, "v5")
	}
}

func countBackups(t *testing.T, dir, base string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), base+BackupSuffix) {
			n++
		}
	}
	return n
}

func TestCopyDirBestEffortCollectsWarnings(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "nested", "file"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	warnings, err := CopyDirBestEffort(src, dst)
	if err != nil {
		t.Fatalf("CopyDirBestEffort: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if _, err := os.Stat(filepath.Join(dst, "nested", "file")); err != nil {
		t.Errorf("copied file missing: %v", err)
	}
}

func TestRemoveDirIfEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	full := filepath.Join(dir, "full")
	if err := os.MkdirAll(empty, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(full, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(full, "keep"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	RemoveDirIfEmpty(empty)
	RemoveDirIfEmpty(full)

	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Error("empty directory not removed")
	}
	if _, err := os.Stat(full); err != nil {
		t.Error("non-empty directory was removed")
	}
}
