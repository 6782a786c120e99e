package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testExeDir = "/opt/envis/bin"

func newTestShellManager(t *testing.T) (*ShellManager, ShellTarget) {
	t.Helper()
	target := ShellTarget{
		Path:   filepath.Join(t.TempDir(), ".bash_profile"),
		Syntax: BashSyntax,
	}
	return NewShellManager([]ShellTarget{target}, testExeDir), target
}

func readTarget(t *testing.T, target ShellTarget) string {
	t.Helper()
	data, err := os.ReadFile(target.Path)
	if err != nil {
		t.Fatalf("read target file: %v", err)
	}
	return string(data)
}

/**
 * The block markers must appear exactly once each after any sequence
 * of operations, and every serialised block starts with the warning
 * and the executable-directory PATH line.
 */
func TestBlockMarkersPaired(t *testing.T) {
	sm, target := newTestShellManager(t)

	ops := []func() error{
		func() error { return sm.AddPath("/a/bin") },
		func() error { return sm.AddExport("FOO", "bar") },
		func() error { return sm.AddAlias("ll", "ls -la") },
		func() error { return sm.DeletePath("/a/bin") },
		func() error { return sm.ClearBlockContent() },
		func() error { return sm.AddEchoEnvironment("dev", "e1") },
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		content := readTarget(t, target)
		if got := strings.Count(content, "# BEGIN Envis Environment Block"); got != 1 {
			t.Fatalf("op %d: begin marker count = %d, want 1", i, got)
		}
		if got := strings.Count(content, "# END Envis Environment Block"); got != 1 {
			t.Fatalf("op %d: end marker count = %d, want 1", i, got)
		}
		if !strings.Contains(content, "WARNING: This block is automatically managed by Envis") {
			t.Fatalf("op %d: warning line missing", i)
		}
		if !strings.Contains(content, `export PATH="`+testExeDir+`:$PATH"`) {
			t.Fatalf("op %d: executable dir PATH line missing:\n%s", i, content)
		}
	}
}

func TestAddPathPrependsAndKeepsExisting(t *testing.T) {
	sm, target := newTestShellManager(t)

	for _, p := range []string{"/a/bin", "/b/bin", "/c/bin"} {
		if err := sm.AddPath(p); err != nil {
			t.Fatal(err)
		}
	}
	got, err := sm.PathEntries(target)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/c/bin", "/b/bin", "/a/bin"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("path entries mismatch (-want +got):\n%s", diff)
	}

	// Re-adding an existing entry must not move it to the front.
	if err := sm.AddPath("/a/bin"); err != nil {
		t.Fatal(err)
	}
	got, _ = sm.PathEntries(target)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("re-add moved entries (-want +got):\n%s", diff)
	}
}

func TestDeletePathRemovesEntry(t *testing.T) {
	sm, target := newTestShellManager(t)

	sm.AddPath("/a/bin")
	sm.AddPath("/b/bin")
	if err := sm.DeletePath("/a/bin"); err != nil {
		t.Fatal(err)
	}
	got, _ := sm.PathEntries(target)
	if diff := cmp.Diff([]string{"/b/bin"}, got); diff != "" {
		t.Fatalf("path entries mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(readTarget(t, target), "/a/bin") {
		t.Fatal("deleted entry still present in file")
	}
}

func TestAddPathDeletePathRoundTrip(t *testing.T) {
	sm, target := newTestShellManager(t)

	sm.AddExport("FOO", "bar")
	before := strings.TrimSpace(readTarget(t, target))

	sm.AddPath("/tmp/x")
	sm.DeletePath("/tmp/x")
	after := strings.TrimSpace(readTarget(t, target))

	if before != after {
		t.Fatalf("round trip changed the file:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestExportKeyedReplace(t *testing.T) {
	sm, target := newTestShellManager(t)

	sm.AddExport("JAVA_HOME", "/old/jdk")
	sm.AddExport("JAVA_HOME", "/new/jdk")

	content := readTarget(t, target)
	if got := strings.Count(content, "export JAVA_HOME="); got != 1 {
		t.Fatalf("export line count = %d, want 1", got)
	}
	if !strings.Contains(content, `export JAVA_HOME="/new/jdk"`) {
		t.Fatalf("export not replaced:\n%s", content)
	}

	if err := sm.DeleteExport("JAVA_HOME"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(readTarget(t, target), "JAVA_HOME") {
		t.Fatal("export not deleted")
	}
}

func TestAliasLifecycle(t *testing.T) {
	sm, target := newTestShellManager(t)

	sm.AddAlias("k", "kubectl")
	if !strings.Contains(readTarget(t, target), "alias k='kubectl'") {
		t.Fatal("alias not written")
	}
	sm.AddAlias("k", "kubectl --context dev")
	content := readTarget(t, target)
	if got := strings.Count(content, "alias k="); got != 1 {
		t.Fatalf("alias line count = %d, want 1", got)
	}
	sm.DeleteAlias("k")
	if strings.Contains(readTarget(t, target), "alias k=") {
		t.Fatal("alias not deleted")
	}
}

func TestEchoEnvironmentLine(t *testing.T) {
	sm, target := newTestShellManager(t)

	sm.AddEchoEnvironment("dev", "e1")
	if !strings.Contains(readTarget(t, target), `echo "Envis: Current environment is dev (e1)"`) {
		t.Fatal("greeting line missing")
	}
	sm.AddEchoEnvironment("prod", "e2")
	content := readTarget(t, target)
	if got := strings.Count(content, "echo \"Envis:"); got != 1 {
		t.Fatalf("greeting line count = %d, want 1", got)
	}
	sm.RemoveEchoEnvironment()
	if strings.Contains(readTarget(t, target), "echo") {
		t.Fatal("greeting not removed")
	}
}

// Content outside the managed block must survive every operation.
func TestPreservesUserContent(t *testing.T) {
	sm, target := newTestShellManager(t)

	userLines := "# my own config\nexport EDITOR=vim\n"
	if err := os.WriteFile(target.Path, []byte(userLines), 0o644); err != nil {
		t.Fatal(err)
	}
	sm.AddPath("/a/bin")
	sm.AddExport("FOO", "bar")
	sm.ClearBlockContent()

	content := readTarget(t, target)
	if !strings.Contains(content, "# my own config") || !strings.Contains(content, "export EDITOR=vim") {
		t.Fatalf("user content lost:\n%s", content)
	}
}

func TestCorruptedMarkersRefused(t *testing.T) {
	sm, target := newTestShellManager(t)

	broken := "# BEGIN Envis Environment Block\n# BEGIN Envis Environment Block\n# END Envis Environment Block\n"
	if err := os.WriteFile(target.Path, []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := sm.AddPath("/a/bin"); err == nil {
		t.Fatal("expected error on duplicated markers")
	}
	// The broken file must be left untouched.
	if got := readTarget(t, target); got != broken {
		t.Fatalf("corrupted file was modified:\n%s", got)
	}
}

func TestBackupRotationBounded(t *testing.T) {
	sm, target := newTestShellManager(t)

	for i := 0; i < 6; i++ {
		if err := sm.AddExport("KEY", strings.Repeat("v", i+1)); err != nil {
			t.Fatal(err)
		}
	}
	matches, err := filepath.Glob(target.Path + ".envbak*")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) > 2 {
		t.Fatalf("backup count = %d, want <= 2", len(matches))
	}
}

func TestBatchedEditSingleWrite(t *testing.T) {
	sm, target := newTestShellManager(t)

	err := sm.Apply(func(e *BlockEdit) {
		e.Clear()
		e.AddPath("/a/bin")
		e.AddExport("FOO", "bar")
		e.AddAlias("ll", "ls -la")
		e.SetEcho("Envis: Current environment is dev (e1)")
	})
	if err != nil {
		t.Fatal(err)
	}
	content := readTarget(t, target)
	for _, want := range []string{
		`export PATH="/a/bin:$PATH"`,
		`export FOO="bar"`,
		"alias ll='ls -la'",
		`echo "Envis: Current environment is dev (e1)"`,
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("missing %q in:\n%s", want, content)
		}
	}
}
